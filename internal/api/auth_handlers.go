package api

import (
	"net/http"
	"time"

	"github.com/bookhavenapp/bookhaven-server/internal/auth"
	"github.com/bookhavenapp/bookhaven-server/internal/domain"
	"github.com/bookhavenapp/bookhaven-server/internal/http/response"
	"github.com/bookhavenapp/bookhaven-server/internal/service"
)

// UserResponse contains user data in API responses. The token never
// appears in a response body; sign-in returns it in the Authorization
// response header only.
type UserResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// handleSignUp registers a new user account. The client must sign in
// afterwards to obtain a token.
func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req service.SignUpRequest
	if err := s.decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	user, err := s.authService.SignUp(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.Created(w, toUserResponse(user), s.logger)
}

// handleSignIn authenticates credentials and returns the fresh bearer
// token in the Authorization response header alongside a 201.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req service.SignInRequest
	if err := s.decodeJSON(r, &req); err != nil {
		response.BadRequest(w, "Invalid request body", s.logger)
		return
	}

	result, err := s.authService.SignIn(r.Context(), req)
	if err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	w.Header().Set("Authorization", auth.FormatBearer(result.Token))
	response.Created(w, toUserResponse(result.User), s.logger)
}

// handleSignOut revokes the caller's token.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r.Context())
	if user == nil {
		response.Unauthorized(w, unauthorizedMessage, s.logger)
		return
	}

	if err := s.authService.SignOut(r.Context(), user); err != nil {
		response.HandleError(w, err, s.logger)
		return
	}

	response.NoContent(w)
}
