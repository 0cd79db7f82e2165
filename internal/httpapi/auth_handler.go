package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ahinestrog/bookstore/internal/auth"
	"github.com/ahinestrog/bookstore/internal/user"
)

type signupRequest struct {
	Email     string `json:"email"`
	Username  string `json:"username"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type tokenResponse struct {
	AccessToken  string    `json:"access"`
	RefreshToken string    `json:"refresh,omitempty"`
	TokenType    string    `json:"token_type"`
	ExpiresIn    int64     `json:"expires_in"`
	User         *userView `json:"user,omitempty"`
}

// POST /api/auth/signup
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	u, err := h.d.Users.Signup(r.Context(), user.SignupInput{
		Email:     req.Email,
		Username:  req.Username,
		Phone:     req.Phone,
		Password:  req.Password,
		Password2: req.Password2,
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusCreated, toUserView(u))
}

// POST /api/auth/login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	u, err := h.d.Users.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	pair, err := h.d.Sessions.Login(auth.Identity{UserID: u.ID, Admin: u.IsAdmin})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	view := toUserView(u)
	respondJSON(w, r, http.StatusOK, tokenResponse{
		AccessToken:  pair.Access,
		RefreshToken: pair.Refresh,
		TokenType:    "Bearer",
		ExpiresIn:    int64(pair.AccessTTL.Seconds()),
		User:         &view,
	})
}

// POST /api/auth/token/refresh
func (h *Handler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Refresh) == "" {
		respondJSON(w, r, http.StatusBadRequest, ErrorResponse{
			Detail: "Invalid request.",
			Fields: map[string]string{"refresh": "This field is required."},
		})
		return
	}
	access, ttl, err := h.d.Sessions.Refresh(r.Context(), req.Refresh)
	switch {
	case errors.Is(err, auth.ErrTokenRevoked):
		respondError(w, r, http.StatusUnauthorized, "Token is blacklisted")
		return
	case errors.Is(err, auth.ErrInvalidToken):
		respondError(w, r, http.StatusUnauthorized, "Token is invalid or expired")
		return
	case err != nil:
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, tokenResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int64(ttl.Seconds()),
	})
}

// POST /api/auth/logout blacklists the posted refresh token.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	var req refreshRequest
	if err := decode(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid JSON body")
		return
	}
	err := h.d.Sessions.Logout(r.Context(), id.UserID, req.Refresh)
	if auth.IsTokenError(err) {
		respondError(w, r, http.StatusBadRequest, "Invalid refresh token.")
		return
	}
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusResetContent)
}

// GET /api/auth/user
func (h *Handler) CurrentUser(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())
	u, err := h.d.Users.Get(r.Context(), id.UserID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respondJSON(w, r, http.StatusOK, toUserView(u))
}
