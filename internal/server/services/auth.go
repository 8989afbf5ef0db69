// Package services contains server-side business logic. AuthService owns
// the credential and session-token lifecycle: registration, login,
// authentication, authorization and refresh-token rotation.
package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"time"

	"github.com/coursesms/courses/internal/common"
	"github.com/coursesms/courses/internal/logging"
	"github.com/coursesms/courses/internal/server/auth"
	"github.com/coursesms/courses/internal/server/metrics"
	"github.com/coursesms/courses/internal/server/models"
	"github.com/coursesms/courses/internal/server/password"
	"github.com/coursesms/courses/internal/server/repositories/repomanager"
	"github.com/coursesms/courses/internal/server/repositories/users"
	"github.com/go-playground/validator/v10"
)

const (
	opAuthenticate = "authenticate"
	opAuthorize    = "authorize"
	opRefresh      = "refresh"
	opLogin        = "login"
)

// AuthService is safe for concurrent use. It holds no mutable state of its
// own; all session state lives in the user store.
type AuthService struct {
	repos    repomanager.RepositoryManager
	tokens   *auth.TokenManager
	hasher   *password.Hasher
	log      logging.Logger
	metrics  *metrics.Metrics
	validate *validator.Validate
}

type Option func(*AuthService)

func WithLogger(l logging.Logger) Option {
	return func(s *AuthService) { s.log = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *AuthService) { s.metrics = m }
}

func NewAuthService(repos repomanager.RepositoryManager, tokens *auth.TokenManager, hasher *password.Hasher, opts ...Option) *AuthService {
	s := &AuthService{
		repos:    repos,
		tokens:   tokens,
		hasher:   hasher,
		log:      logging.Nop(),
		validate: newValidator(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *AuthService) record(ctx context.Context, op string, d Decision, args ...any) Decision {
	s.metrics.Decision(op, d.Reason.String())
	if !d.Accepted {
		s.log.Debug(ctx, op+" rejected", append(args, "reason", d.Reason.String())...)
	}
	return d
}

// Authenticate checks the bearer token in header by signature and expiry.
// It never touches the store.
func (s *AuthService) Authenticate(header string) Decision {
	_, d := s.authenticate(header)
	return s.record(context.Background(), opAuthenticate, d)
}

// IsAuthenticated reports whether header carries a valid access token.
func (s *AuthService) IsAuthenticated(header string) bool {
	return s.Authenticate(header).Accepted
}

func (s *AuthService) authenticate(header string) (*auth.AccessClaims, Decision) {
	if header == "" {
		return nil, reject(ReasonMissingHeader)
	}
	token, ok := auth.ParseBearer(header)
	if !ok {
		return nil, reject(ReasonMalformedHeader)
	}
	claims, err := s.tokens.VerifyAccessToken(token)
	if err != nil {
		return nil, reject(ReasonInvalidToken)
	}
	return claims, accept()
}

// Authorize authenticates header and then requires the record behind the
// token's email to exist with the admin role. Every failure, including a
// store error or a cancelled ctx, is a rejection.
func (s *AuthService) Authorize(ctx context.Context, header string) Decision {
	claims, d := s.authenticate(header)
	if !d.Accepted {
		return s.record(ctx, opAuthorize, d)
	}

	user, err := guardStore(ctx, func(ctx context.Context) (*models.User, error) {
		return s.repos.Users().FindByEmail(ctx, claims.Email)
	})
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return s.record(ctx, opAuthorize, reject(ReasonUserNotFound))
	case err != nil:
		s.log.Warn(ctx, "authorize: store lookup failed", "error", err)
		return s.record(ctx, opAuthorize, reject(ReasonStoreError))
	case user.Role != models.RoleAdmin:
		return s.record(ctx, opAuthorize, reject(ReasonNotAdmin), "user_id", user.ID)
	}
	return s.record(ctx, opAuthorize, accept())
}

// IsAuthorized reports whether header belongs to an existing admin.
func (s *AuthService) IsAuthorized(ctx context.Context, header string) bool {
	return s.Authorize(ctx, header).Accepted
}

// Refresh rotates a refresh token. Every rejection returns
// common.ErrorUnauthorized regardless of the step that failed.
func (s *AuthService) Refresh(ctx context.Context, token string) (*models.TokenPair, error) {
	pair, d := s.rotate(ctx, token)
	s.record(ctx, opRefresh, d)
	if !d.Accepted {
		return nil, common.ErrorUnauthorized
	}
	return pair, nil
}

func (s *AuthService) rotate(ctx context.Context, presented string) (*models.TokenPair, Decision) {
	claims, err := s.tokens.VerifyRefreshToken(presented)
	if err != nil {
		return nil, reject(ReasonInvalidToken)
	}

	repo := s.repos.Users()
	user, err := guardStore(ctx, func(ctx context.Context) (*models.User, error) {
		return repo.FindByID(ctx, claims.UserID)
	})
	if errors.Is(err, common.ErrorNotFound) {
		return nil, reject(ReasonUserNotFound)
	}
	if err != nil {
		s.log.Warn(ctx, "refresh: store lookup failed", "user_id", claims.UserID, "error", err)
		return nil, reject(ReasonStoreError)
	}

	if !user.HasRefreshToken() || subtle.ConstantTimeCompare([]byte(*user.RefreshToken), []byte(presented)) != 1 {
		s.log.Info(ctx, "refresh token does not match the stored one", "user_id", user.ID)
		return nil, reject(ReasonTokenMismatch)
	}

	pair, err := s.tokens.IssuePair(auth.IdentityOf(user))
	if err != nil {
		s.log.Error(ctx, "refresh: issue tokens", "user_id", user.ID, "error", err)
		return nil, reject(ReasonIssueFailed)
	}

	// The swap only lands if nobody rotated the same token in between.
	n, err := guardStore(ctx, func(ctx context.Context) (int64, error) {
		return repo.SwapRefreshToken(ctx, user.ID, presented, pair.RefreshToken)
	})
	if err != nil {
		s.log.Warn(ctx, "refresh: store swap failed", "user_id", user.ID, "error", err)
		return nil, reject(ReasonStoreError)
	}
	if n == 0 {
		return nil, reject(ReasonNotPersisted)
	}
	return pair, accept()
}

// Register validates in, stores a new user with role user and returns the
// stored record.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	return s.CreateUser(ctx, in, models.RoleUser)
}

// CreateUser is Register with an explicit role. It backs operator tooling
// that creates administrators.
func (s *AuthService) CreateUser(ctx context.Context, in RegisterInput, role models.Role) (*models.User, error) {
	if !role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", common.ErrorValidation, role)
	}
	if err := s.validate.Struct(in); err != nil {
		return nil, validationError(err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		s.log.Error(ctx, "register: hash password", "error", err)
		return nil, common.ErrorInternal
	}

	var created *models.User
	err = s.repos.WithinTx(ctx, func(ctx context.Context, repo users.Repository) error {
		n, err := repo.Create(ctx, &models.User{
			FirstName:    in.FirstName,
			LastName:     in.LastName,
			Email:        in.Email,
			PasswordHash: hash,
			Role:         role,
		})
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("user %s was not inserted", in.Email)
		}
		created, err = repo.FindByEmail(ctx, in.Email)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			return nil, common.ErrorAlreadyExists
		}
		s.log.Error(ctx, "register: store user", "error", err)
		return nil, common.ErrorInternal
	}

	s.log.Info(ctx, "user registered", "user_id", created.ID, "role", string(role))
	return created, nil
}

// Login verifies credentials, issues a token pair and stores its refresh
// token, replacing any earlier one. An unknown email and a wrong password
// are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*models.TokenPair, error) {
	if err := s.validate.Struct(in); err != nil {
		s.record(ctx, opLogin, reject(ReasonValidation))
		return nil, validationError(err)
	}

	pair, d := s.login(ctx, in)
	s.record(ctx, opLogin, d)
	if !d.Accepted {
		return nil, common.ErrorUnauthorized
	}
	return pair, nil
}

func (s *AuthService) login(ctx context.Context, in LoginInput) (*models.TokenPair, Decision) {
	repo := s.repos.Users()
	user, err := guardStore(ctx, func(ctx context.Context) (*models.User, error) {
		return repo.FindByEmail(ctx, in.Email)
	})
	if err != nil {
		start := time.Now()
		s.hasher.DummyVerify(in.Password)
		s.metrics.PasswordVerify(time.Since(start))
		if errors.Is(err, common.ErrorNotFound) {
			return nil, reject(ReasonBadCredentials)
		}
		s.log.Warn(ctx, "login: store lookup failed", "error", err)
		return nil, reject(ReasonStoreError)
	}

	start := time.Now()
	ok := s.hasher.Verify(in.Password, user.PasswordHash)
	s.metrics.PasswordVerify(time.Since(start))
	if !ok {
		return nil, reject(ReasonBadCredentials)
	}

	pair, err := s.tokens.IssuePair(auth.IdentityOf(user))
	if err != nil {
		s.log.Error(ctx, "login: issue tokens", "user_id", user.ID, "error", err)
		return nil, reject(ReasonIssueFailed)
	}

	n, err := guardStore(ctx, func(ctx context.Context) (int64, error) {
		return repo.SetRefreshToken(ctx, user.ID, pair.RefreshToken)
	})
	if err != nil {
		s.log.Warn(ctx, "login: store refresh token", "user_id", user.ID, "error", err)
		return nil, reject(ReasonStoreError)
	}
	if n == 0 {
		return nil, reject(ReasonNotPersisted)
	}

	s.log.Info(ctx, "user logged in", "user_id", user.ID)
	return pair, accept()
}

// ListUsers returns every stored user; an empty store is
// common.ErrorNotFound.
func (s *AuthService) ListUsers(ctx context.Context) ([]models.User, error) {
	all, err := s.repos.Users().List(ctx)
	if err != nil {
		s.log.Error(ctx, "list users", "error", err)
		return nil, common.ErrorInternal
	}
	if len(all) == 0 {
		return nil, common.ErrorNotFound
	}
	return all, nil
}

// guardStore runs a store call, failing fast on a done ctx and turning a
// panic inside the adapter into an error.
func guardStore[T any](ctx context.Context, fn func(context.Context) (T, error)) (v T, err error) {
	if err := ctx.Err(); err != nil {
		return v, err
	}
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("store panic: %v", p)
		}
	}()
	return fn(ctx)
}
