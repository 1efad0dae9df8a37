package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/Quang-To/Pathwise/internal/config"
	"github.com/Quang-To/Pathwise/internal/db"
	"github.com/Quang-To/Pathwise/internal/types"
)

// UserStore resolves accounts and role assignments for login.
type UserStore interface {
	GetUserByUsername(ctx context.Context, username string) (*db.User, error)
	GetUserRole(ctx context.Context, userID string) (string, error)
}

// AuthHandler serves the token endpoint.
type AuthHandler struct {
	users      UserStore
	passwords  *config.PasswordConfig
	jwtService *JWTService
	validate   *validator.Validate
}

func NewAuthHandler(users UserStore, passwords *config.PasswordConfig, jwtService *JWTService) *AuthHandler {
	return &AuthHandler{
		users:      users,
		passwords:  passwords,
		jwtService: jwtService,
		validate:   validator.New(),
	}
}

// Login verifies a username/password pair and issues a bearer token with
// the user's role embedded. Unknown users and wrong passwords are
// indistinguishable to the caller.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, &ErrValidation{Field: "body", Message: "invalid JSON"})
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, &ErrValidation{Field: "credentials", Message: "username and password are required"})
		return
	}

	user, err := h.users.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		log.Printf("[auth] user lookup failed: %v", err)
		writeError(w, err)
		return
	}
	if user == nil || !h.passwords.VerifyPassword(req.Password, user.PasswordHash) {
		writeError(w, &ErrInvalidCredentials{})
		return
	}
	if !user.IsActive {
		writeError(w, &ErrAccountDisabled{Username: user.Username})
		return
	}

	role, err := h.users.GetUserRole(r.Context(), user.ID.String())
	if err != nil {
		log.Printf("[auth] role lookup failed for %s: %v", user.Username, err)
		writeError(w, err)
		return
	}

	token, err := h.jwtService.GenerateToken(user.ID, user.Username, role)
	if err != nil {
		log.Printf("[auth] token generation failed for %s: %v", user.Username, err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, types.LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}
