package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bookhavenapp/bookhaven-server/internal/auth"
	"github.com/bookhavenapp/bookhaven-server/internal/domain"
	domainerrors "github.com/bookhavenapp/bookhaven-server/internal/errors"
	"github.com/bookhavenapp/bookhaven-server/internal/id"
	"github.com/bookhavenapp/bookhaven-server/internal/store"
)

// tokenIssueAttempts bounds the collision-retry loop during issuance.
// With 256 bits of token entropy a single collision is already
// implausible; the store's unique index remains authoritative.
const tokenIssueAttempts = 5

// AuthService handles user sign-up, sign-in, sign-out, and bearer token
// verification.
type AuthService struct {
	store         store.Store
	tokenDuration time.Duration
	logger        *slog.Logger

	// now is overridable for tests.
	now func() time.Time
}

// NewAuthService creates a new authentication service.
// tokenDuration is the issued token lifetime.
func NewAuthService(store store.Store, tokenDuration time.Duration, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:         store,
		tokenDuration: tokenDuration,
		logger:        logger,
		now:           time.Now,
	}
}

// SetNowFunc overrides the clock. Test hook.
func (s *AuthService) SetNowFunc(now func() time.Time) {
	s.now = now
}

// SignUpRequest contains user registration data.
type SignUpRequest struct {
	Email                string `json:"email" validate:"required,email,max=254"`
	Password             string `json:"password" validate:"required,min=6,max=1024"`
	PasswordConfirmation string `json:"password_confirmation" validate:"required,eqfield=Password"`
}

// SignInRequest contains user credentials.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignInResponse carries the authenticated user and the issued token.
// Token is transported to the client in the Authorization response header
// and must never be logged.
type SignInResponse struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// SignUp creates a new user account. No token is issued at sign-up; the
// client must sign in to obtain one.
func (s *AuthService) SignUp(ctx context.Context, req SignUpRequest) (*domain.User, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	userID, err := id.Generate("user")
	if err != nil {
		return nil, fmt.Errorf("generate user ID: %w", err)
	}

	user := &domain.User{
		ID:           userID,
		Email:        req.Email,
		PasswordHash: passwordHash,
	}
	user.InitTimestamps()

	if err := s.store.CreateUser(ctx, user); err != nil {
		if domainerrors.Is(err, store.ErrEmailExists) {
			return nil, domainerrors.Validation("email has already been taken")
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	if s.logger != nil {
		s.logger.Info("User signed up", "user_id", userID)
	}

	return user, nil
}

// SignIn authenticates credentials and issues a fresh bearer token.
// All credential failures collapse to a single invalid-credentials outcome.
func (s *AuthService) SignIn(ctx context.Context, req SignInRequest) (*SignInResponse, error) {
	if err := validate.Struct(req); err != nil {
		return nil, formatValidationError(err)
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		if domainerrors.Is(err, store.ErrUserNotFound) {
			// Don't leak whether the email exists.
			return nil, domainerrors.InvalidCredentials("invalid email or password")
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	valid, err := auth.VerifyPassword(user.PasswordHash, req.Password)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !valid {
		return nil, domainerrors.InvalidCredentials("invalid email or password")
	}

	token, expiresAt, err := s.issueToken(ctx, user)
	if err != nil {
		return nil, err
	}

	if s.logger != nil {
		s.logger.Info("User signed in", "user_id", user.ID)
	}

	return &SignInResponse{
		User:      user,
		Token:     token,
		ExpiresAt: expiresAt,
	}, nil
}

// issueToken generates a token guaranteed unique among stored tokens and
// persists it together with its expiry via a column-only update. The
// update deliberately bypasses unrelated field validation so a stale user
// record can never block a token refresh. Generation retries on the rare
// collision, with the store's unique index as the final arbiter.
func (s *AuthService) issueToken(ctx context.Context, user *domain.User) (string, time.Time, error) {
	expiresAt := s.now().Add(s.tokenDuration)

	for attempt := 0; attempt < tokenIssueAttempts; attempt++ {
		token, err := auth.GenerateToken()
		if err != nil {
			return "", time.Time{}, err
		}

		exists, err := s.store.HasToken(ctx, token)
		if err != nil {
			return "", time.Time{}, fmt.Errorf("check token uniqueness: %w", err)
		}
		if exists {
			continue
		}

		err = s.store.SetAuthToken(ctx, user.ID, token, expiresAt)
		if domainerrors.Is(err, store.ErrTokenExists) {
			// Lost a race on the unique index; generate again.
			continue
		}
		if err != nil {
			return "", time.Time{}, fmt.Errorf("persist token: %w", err)
		}

		user.AuthToken = &token
		user.TokenExpiresAt = &expiresAt
		return token, expiresAt, nil
	}

	return "", time.Time{}, fmt.Errorf("token generation failed after %d attempts", tokenIssueAttempts)
}

// Authenticate maps an Authorization header value to a user. Missing,
// malformed, unknown, and expired credentials all yield the same
// unauthorized error so the response body cannot leak which case occurred.
// A lookup that finds an expired token never refreshes it.
func (s *AuthService) Authenticate(ctx context.Context, authHeader string) (*domain.User, error) {
	token, ok := auth.ParseBearer(authHeader)
	if !ok {
		return nil, domainerrors.ErrUnauthorized
	}

	user, err := s.store.GetUserByToken(ctx, token)
	if err != nil {
		if domainerrors.Is(err, store.ErrUserNotFound) {
			return nil, domainerrors.ErrUnauthorized
		}
		return nil, fmt.Errorf("lookup token: %w", err)
	}

	if !domain.TokenValid(user.AuthToken, user.TokenExpiresAt, s.now()) {
		return nil, domainerrors.ErrUnauthorized
	}

	return user, nil
}

// SignOut revokes the user's token. Token and expiry are cleared together
// in one update so a revoked token can never be partially valid.
func (s *AuthService) SignOut(ctx context.Context, user *domain.User) error {
	if err := s.store.ClearAuthToken(ctx, user.ID); err != nil {
		return fmt.Errorf("clear token: %w", err)
	}

	user.AuthToken = nil
	user.TokenExpiresAt = nil

	if s.logger != nil {
		s.logger.Info("User signed out", "user_id", user.ID)
	}
	return nil
}

// SweepExpired bulk-clears tokens whose expiry is strictly before now.
// Idempotent; safe to run concurrently with authentication.
func (s *AuthService) SweepExpired(ctx context.Context, now time.Time) (int64, error) {
	count, err := s.store.SweepExpiredTokens(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("sweep expired tokens: %w", err)
	}
	return count, nil
}
