// internal/server/handlers/users.go

package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"stagemap/internal/domain/identity"
)

// UserService is user management plus token issuing
type UserService interface {
	identity.Service

	// IssueToken returns a bearer token for an active user
	IssueToken(ctx context.Context, userID string) (string, error)

	// IssueTokenFor is the admin form of IssueToken
	IssueTokenFor(ctx context.Context, actor *identity.User, userID string) (string, error)
}

// UserHandler handles user and admin HTTP requests
type UserHandler struct {
	users  UserService
	logger *zap.Logger
}

// NewUserHandler creates a new user handler
func NewUserHandler(users UserService, logger *zap.Logger) *UserHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserHandler{
		users:  users,
		logger: logger,
	}
}

type userRequest struct {
	Username string        `json:"username"`
	Email    string        `json:"email"`
	Role     identity.Role `json:"role"`
}

type tokenResponse struct {
	User  *identity.User `json:"user,omitempty"`
	Token string         `json:"token"`
}

// Register creates a user with its profile and returns a token for it
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actor := UserFromContext(r.Context())
	u, err := h.users.CreateUserWithProfile(r.Context(), actor, identity.NewUser{
		Username: req.Username,
		Email:    req.Email,
		Role:     req.Role,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	token, err := h.users.IssueToken(r.Context(), u.ID)
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, tokenResponse{User: u, Token: token})
}

// Me returns the authenticated user
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor := UserFromContext(r.Context())
	if actor == nil {
		respondWithServiceError(w, h.logger, identity.ErrUnauthorized)
		return
	}

	respondWithJSON(w, http.StatusOK, actor)
}

// ListUsers returns every user
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context(), UserFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, users)
}

// UpdateUser changes a user's username, email and role
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	u, err := h.users.UpdateUser(r.Context(), UserFromContext(r.Context()), chi.URLParam(r, "id"), identity.UserUpdate{
		Username: req.Username,
		Email:    req.Email,
		Role:     req.Role,
	})
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, u)
}

// DeleteUser removes a user and everything they organize
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.users.DeleteUser(r.Context(), UserFromContext(r.Context()), chi.URLParam(r, "id")); err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// IssueToken returns a fresh bearer token for a user
func (h *UserHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.users.IssueTokenFor(r.Context(), UserFromContext(r.Context()), chi.URLParam(r, "id"))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, tokenResponse{Token: token})
}

// Summary returns dashboard totals
func (h *UserHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.users.Summary(r.Context(), UserFromContext(r.Context()))
	if err != nil {
		respondWithServiceError(w, h.logger, err)
		return
	}

	respondWithJSON(w, http.StatusOK, summary)
}
