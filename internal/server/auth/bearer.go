package auth

import (
	"strings"

	"github.com/coursesms/courses/internal/common"
)

// ParseBearer extracts the token from a "Bearer <token>" header value.
// A missing header, another scheme or a missing second segment yield false.
func ParseBearer(header string) (string, bool) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, common.BearerScheme) {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", false
	}
	return token, true
}
