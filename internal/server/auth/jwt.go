// Package auth signs and verifies the two token kinds of the auth core.
//
// Access tokens are short-lived and self-contained: they carry the user's
// profile and role and are checked by signature and expiry alone. Refresh
// tokens carry only the user id and are signed with a separate secret, so a
// leak of one secret never lets an attacker forge the other token kind.
package auth

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/coursesms/courses/internal/common"
	"github.com/coursesms/courses/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

var errWrongKind = errors.New("wrong token kind")

// AccessClaims is the claim set of an access token. Subject holds the
// decimal user id.
type AccessClaims struct {
	FirstName string      `json:"firstName"`
	LastName  string      `json:"lastName"`
	Email     string      `json:"email"`
	Role      models.Role `json:"role"`
	Kind      string      `json:"kind"`
	jwt.RegisteredClaims
}

// Validate is called by the jwt parser after the registered claims pass.
func (c AccessClaims) Validate() error {
	if c.Kind != kindAccess {
		return errWrongKind
	}
	return nil
}

// UserID parses the subject claim.
func (c AccessClaims) UserID() (int64, error) {
	return strconv.ParseInt(c.Subject, 10, 64)
}

// RefreshClaims is the claim set of a refresh token.
type RefreshClaims struct {
	UserID int64  `json:"userId"`
	Kind   string `json:"kind"`
	jwt.RegisteredClaims
}

func (c RefreshClaims) Validate() error {
	if c.Kind != kindRefresh {
		return errWrongKind
	}
	if c.UserID <= 0 {
		return errors.New("missing user id")
	}
	return nil
}

// Identity is what an access token is issued for.
type Identity struct {
	UserID    int64
	FirstName string
	LastName  string
	Email     string
	Role      models.Role
}

// IdentityOf extracts the token identity from a user record.
func IdentityOf(u *models.User) Identity {
	return Identity{
		UserID:    u.ID,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
		Role:      u.Role,
	}
}

// TokenConfig configures a TokenManager. Secrets have no defaults.
type TokenConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Audience      string

	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// TokenManager issues and verifies access and refresh tokens. It is
// immutable after construction and safe for concurrent use.
type TokenManager struct {
	cfg TokenConfig
}

func NewTokenManager(cfg TokenConfig) (*TokenManager, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, errors.New("access token secret is required")
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("refresh token secret is required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("access and refresh token secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("token TTLs must be positive")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &TokenManager{cfg: cfg}, nil
}

func (m *TokenManager) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := m.cfg.Now()
	rc := jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		Issuer:    m.cfg.Issuer,
		ID:        uuid.NewString(),
	}
	if m.cfg.Audience != "" {
		rc.Audience = jwt.ClaimStrings{m.cfg.Audience}
	}
	return rc
}

// IssueAccessToken signs an access token for id with the access secret.
func (m *TokenManager) IssueAccessToken(id Identity) (string, error) {
	claims := &AccessClaims{
		FirstName:        id.FirstName,
		LastName:         id.LastName,
		Email:            id.Email,
		Role:             id.Role,
		Kind:             kindAccess,
		RegisteredClaims: m.registered(strconv.FormatInt(id.UserID, 10), m.cfg.AccessTTL),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.cfg.AccessSecret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// IssueRefreshToken signs a refresh token for userID with the refresh secret.
func (m *TokenManager) IssueRefreshToken(userID int64) (string, error) {
	claims := &RefreshClaims{
		UserID:           userID,
		Kind:             kindRefresh,
		RegisteredClaims: m.registered("", m.cfg.RefreshTTL),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.cfg.RefreshSecret)
	if err != nil {
		return "", fmt.Errorf("sign refresh token: %w", err)
	}
	return signed, nil
}

// IssuePair mints a fresh access/refresh pair for id.
func (m *TokenManager) IssuePair(id Identity) (*models.TokenPair, error) {
	access, err := m.IssueAccessToken(id)
	if err != nil {
		return nil, err
	}
	refresh, err := m.IssueRefreshToken(id.UserID)
	if err != nil {
		return nil, err
	}
	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyAccessToken checks signature, expiry, issuer, audience and kind.
// Every failure wraps common.ErrInvalidToken.
func (m *TokenManager) VerifyAccessToken(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := m.parse(token, claims, m.cfg.AccessSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefreshToken is VerifyAccessToken for refresh tokens.
func (m *TokenManager) VerifyRefreshToken(token string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := m.parse(token, claims, m.cfg.RefreshSecret); err != nil {
		return nil, err
	}
	return claims, nil
}

func (m *TokenManager) parse(token string, claims jwt.Claims, secret []byte) error {
	if token == "" {
		return fmt.Errorf("%w: empty token", common.ErrInvalidToken)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.cfg.Now),
	}
	if m.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.cfg.Issuer))
	}
	if m.cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(m.cfg.Audience))
	}

	parsed, err := jwt.NewParser(opts...).ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %w", common.ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return common.ErrInvalidToken
	}
	return nil
}
