package grpc

import (
	"context"

	"github.com/coursesms/courses/internal/common"
	"github.com/coursesms/courses/internal/logging"
	"github.com/coursesms/courses/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// Policy is the access level a method requires.
type Policy int

const (
	// PolicyAuthenticated is the zero value, so unlisted methods are never
	// public by accident.
	PolicyAuthenticated Policy = iota
	PolicyPublic
	PolicyAdmin
)

// Authorizer is the part of services.AuthService the guard relies on.
type Authorizer interface {
	Authenticate(header string) services.Decision
	Authorize(ctx context.Context, header string) services.Decision
}

// Guard enforces per-method policies on incoming calls using the bearer
// token in the "authorization" metadata.
type Guard struct {
	auth     Authorizer
	logger   logging.Logger
	policies map[string]Policy
	fallback Policy
}

func NewGuard(a Authorizer, l logging.Logger) *Guard {
	return &Guard{
		auth:     a,
		logger:   l.With("module", "grpc_guard"),
		policies: make(map[string]Policy),
		fallback: PolicyAuthenticated,
	}
}

// Require sets the policy of a full method name such as
// "/grpc.health.v1.Health/Check". It is not safe to call once the server
// is serving.
func (g *Guard) Require(fullMethod string, p Policy) *Guard {
	g.policies[fullMethod] = p
	return g
}

func (g *Guard) policy(fullMethod string) Policy {
	if p, ok := g.policies[fullMethod]; ok {
		return p
	}
	return g.fallback
}

func bearerHeader(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if values := md.Get(common.AuthorizationHeaderName); len(values) > 0 {
		return values[0]
	}
	return ""
}

// check maps a rejected authentication to Unauthenticated and a rejected
// authorization to PermissionDenied.
func (g *Guard) check(ctx context.Context, fullMethod string) error {
	p := g.policy(fullMethod)
	if p == PolicyPublic {
		return nil
	}

	header := bearerHeader(ctx)
	if d := g.auth.Authenticate(header); !d.Accepted {
		g.logger.Debug(ctx, "unauthenticated call", "method", fullMethod, "reason", d.Reason.String())
		return status.Error(codes.Unauthenticated, "unauthenticated")
	}
	if p == PolicyAdmin {
		if d := g.auth.Authorize(ctx, header); !d.Accepted {
			g.logger.Debug(ctx, "forbidden call", "method", fullMethod, "reason", d.Reason.String())
			return status.Error(codes.PermissionDenied, "forbidden")
		}
	}
	return nil
}

// UnaryInterceptor rejects calls that fail their method's policy.
func (g *Guard) UnaryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if err := g.check(ctx, info.FullMethod); err != nil {
		return nil, err
	}
	return handler(ctx, req)
}

// StreamInterceptor is UnaryInterceptor for streaming calls.
func (g *Guard) StreamInterceptor(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
	if err := g.check(ss.Context(), info.FullMethod); err != nil {
		return err
	}
	return handler(srv, ss)
}
