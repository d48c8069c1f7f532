package api

import (
	"context"
	"net/http"

	"github.com/bookhavenapp/bookhaven-server/internal/domain"
	domainerrors "github.com/bookhavenapp/bookhaven-server/internal/errors"
	"github.com/bookhavenapp/bookhaven-server/internal/http/response"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

const contextKeyUser contextKey = "user"

// unauthorizedMessage is the single body for every authentication failure.
// Missing header, malformed header, unknown token, and expired token must
// be indistinguishable to the client.
const unauthorizedMessage = "Unauthorized"

// requireAuth is middleware that validates bearer tokens and attaches the
// authenticated user to the request context.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, err := s.authService.Authenticate(r.Context(), r.Header.Get("Authorization"))
		if err != nil {
			if domainerrors.Is(err, domainerrors.ErrUnauthorized) {
				response.Unauthorized(w, unauthorizedMessage, s.logger)
				return
			}
			s.logger.Error("Authentication lookup failed", "error", err)
			response.InternalError(w, "internal server error", s.logger)
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyUser, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// currentUser extracts the authenticated user from the request context.
// Returns nil outside requireAuth-protected routes.
func currentUser(ctx context.Context) *domain.User {
	if user, ok := ctx.Value(contextKeyUser).(*domain.User); ok {
		return user
	}
	return nil
}
