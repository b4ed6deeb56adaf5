package handlers

import (
	"net/http"

	"github.com/eventboard/server/internal/audit"
	"github.com/eventboard/server/internal/domain/users"
	"github.com/eventboard/server/internal/metrics"
)

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	Issue(userID int64, role string) (string, error)
}

type AuthHandler struct {
	Users  *users.Service
	Tokens TokenIssuer
	Audit  *audit.Logger
	Env    string
}

func NewAuthHandler(svc *users.Service, tokens TokenIssuer, env string) *AuthHandler {
	return &AuthHandler{Users: svc, Tokens: tokens, Env: env}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupResponse struct {
	Message string `json:"message"`
	UserID  int64  `json:"user_id"`
}

type loginResponse struct {
	Token  string `json:"token"`
	Role   string `json:"role"`
	UserID int64  `json:"user_id"`
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err, h.Env)
		return
	}

	user, err := h.Users.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		h.Audit.Failure(r, "user.signup", 0, "user", 0, err)
		writeError(w, r, err, h.Env)
		return
	}

	h.Audit.Success(r, "user.signup", user.ID, "user", user.ID)
	metrics.Signups.WithLabelValues(user.Role).Inc()
	writeJSON(w, http.StatusCreated, signupResponse{Message: "User created successfully", UserID: user.ID})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, r, err, h.Env)
		return
	}

	user, err := h.Users.Verify(r.Context(), req.Email, req.Password)
	if err != nil {
		h.Audit.Failure(r, "user.login", 0, "user", 0, err)
		writeError(w, r, err, h.Env)
		return
	}

	token, err := h.Tokens.Issue(user.ID, user.Role)
	if err != nil {
		writeError(w, r, err, h.Env)
		return
	}
	h.Audit.Success(r, "user.login", user.ID, "user", user.ID)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, Role: user.Role, UserID: user.ID})
}
