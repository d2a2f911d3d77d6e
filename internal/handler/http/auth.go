package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/AntonellaMasini/MadridCoffeeShopFinder/internal/service"
	apperrors "github.com/AntonellaMasini/MadridCoffeeShopFinder/pkg/errors"
	"github.com/AntonellaMasini/MadridCoffeeShopFinder/pkg/httputil"
	"github.com/AntonellaMasini/MadridCoffeeShopFinder/pkg/validator"
)

// AuthHandler handles HTTP requests for registration and token endpoints.
type AuthHandler struct {
	service *service.UserService
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth HTTP handler.
func NewAuthHandler(svc *service.UserService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{service: svc, logger: logger}
}

// RegisterRequest is the JSON request body for user registration.
type RegisterRequest struct {
	Username  string `json:"username" validate:"required,min=1,max=100"`
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name" validate:"required,min=1,max=100"`
	LastName  string `json:"last_name" validate:"required,min=1,max=100"`
	Password  string `json:"password" validate:"required,min=8"`
}

// Register handles POST /auth/
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	user, err := h.service.Register(r.Context(), service.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: user})
}

// IssueToken handles POST /auth/token. Credentials arrive form-encoded, the
// way OAuth2 password-flow clients send them, so this route bypasses the JSON
// content-type gate.
func (h *AuthHandler) IssueToken(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid form body: " + err.Error()},
		})
		return
	}

	token, err := h.service.Login(r.Context(), service.LoginInput{
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	})
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	// Token responses are flat, not enveloped: clients expect access_token at
	// the top level.
	httputil.WriteJSON(w, http.StatusOK, token)
}

// GetProfile handles GET /auth/{username}. An unknown username yields an
// empty 204 rather than an error.
func (h *AuthHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	user, err := h.service.GetByUsername(r.Context(), username)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: user})
}
