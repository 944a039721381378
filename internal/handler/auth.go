package handler

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/sakif/event-board/internal/auth"
	"github.com/sakif/event-board/internal/model"
	"github.com/sakif/event-board/internal/service"
)

// AuthHandler exposes the account endpoints: register, login, and the
// password-reset pair. It owns only HTTP concerns — decoding, validation,
// response shaping — and delegates every business rule to AuthService.
type AuthHandler struct {
	service  *service.AuthService
	github   *auth.GitHubProvider // nil when OAuth is not configured
	validate *validator.Validate
	devMode  bool
	logger   *slog.Logger
}

// NewAuthHandler creates an AuthHandler. github may be nil; devMode controls
// whether forgot-password responses disclose the raw reset token.
func NewAuthHandler(svc *service.AuthService, github *auth.GitHubProvider, devMode bool, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service:  svc,
		github:   github,
		validate: validator.New(),
		devMode:  devMode,
		logger:   logger,
	}
}

// Request structs carry validator tags; decodeValid runs them before any
// handler logic sees the data.

type registerRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

// authResponse is the success shape for register, login and the OAuth
// callback: the session JWT plus the public profile.
type authResponse struct {
	Token string           `json:"token"`
	User  model.PublicUser `json:"user"`
}

// decodeValid decodes the JSON body into dst and runs its validator tags.
// A false return means the error response has already been written.
func (h *AuthHandler) decodeValid(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Invalid JSON body",
		})
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		message := "Invalid request"
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			message = "Invalid value for field: " + fieldErrs[0].Field()
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: message,
		})
		return false
	}
	return true
}

// HandleRegister creates a new account.
//
// HTTP: POST /api/auth/register
// REQUEST BODY: {"name": "...", "email": "...", "password": "..."}
// RESPONSE: 201 with {"token": "...", "user": {...}}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	result, err := h.service.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, authResponse{
		Token: result.Token,
		User:  result.User.Public(),
	})
}

// HandleLogin authenticates an existing account.
//
// HTTP: POST /api/auth/login
// RESPONSE: 200 with {"token": "...", "user": {...}}, or 401 with the same
// message for a wrong password and an unknown email.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Token: result.Token,
		User:  result.User.Public(),
	})
}

// forgotPasswordResponse optionally carries the raw token. ResetToken is
// only populated in development mode, where it saves wiring up a local
// SMTP relay — production clients get the token by email only.
type forgotPasswordResponse struct {
	Message    string `json:"message"`
	ResetToken string `json:"resetToken,omitempty"`
}

// HandleForgotPassword starts a password reset.
//
// HTTP: POST /api/auth/forgot-password
func (h *AuthHandler) HandleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	raw, err := h.service.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := forgotPasswordResponse{Message: "Password reset email sent"}
	if h.devMode {
		resp.ResetToken = raw
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleResetPassword redeems a reset token.
//
// HTTP: POST /api/auth/reset-password
// REQUEST BODY: {"token": "...", "password": "..."}
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if !h.decodeValid(w, r, &req) {
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Password has been reset",
	})
}

// === GitHub OAuth ===

const stateCookieName = "oauth_state"

// HandleGitHubLogin redirects the browser to GitHub's consent screen.
//
// HTTP: GET /api/auth/github
//
// A random state value goes both into the redirect URL and an HttpOnly
// cookie; the callback compares the two to block login CSRF.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		writeError(w, err)
		return
	}
	state := hex.EncodeToString(buf)

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback finishes the OAuth flow and issues a session token.
//
// HTTP: GET /api/auth/github/callback?code=...&state=...
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" || cookie.Value != r.URL.Query().Get("state") {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "OAuth state mismatch",
		})
		return
	}
	// One-shot: expire the cookie whatever happens next.
	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})

	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: "Missing authorization code",
		})
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Warn("GitHub code exchange failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:   "oauth_error",
			Message: "GitHub sign-in failed",
		})
		return
	}

	result, err := h.service.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, authResponse{
		Token: result.Token,
		User:  result.User.Public(),
	})
}
