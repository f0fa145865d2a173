package api

import (
	"net/http"

	"pollpulse/internal/platform/apperr"
)

type registerRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleRegister godoc
// @Summary Register a new account
// @Tags auth
// @Accept json
// @Produce json
// @Param body body registerRequest true "account details"
// @Success 201 {object} map[string]any
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Router /api/v1/auth/register [post]
func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_body", "invalid request body", err))
		return
	}

	u, err := h.userSvc.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		errorResponse(w, err)
		return
	}

	token, err := h.jwtMgr.Generate(u.ID)
	if err != nil {
		errorResponse(w, apperr.Internal("token_error", "could not issue token", err))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"user":  u,
		"token": token,
	})
}

// handleLogin godoc
// @Summary Log in with email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param body body loginRequest true "credentials"
// @Success 200 {object} map[string]any
// @Failure 401 {object} map[string]string
// @Router /api/v1/auth/login [post]
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		errorResponse(w, apperr.BadRequest("invalid_body", "invalid request body", err))
		return
	}

	u, err := h.userSvc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		errorResponse(w, err)
		return
	}

	token, err := h.jwtMgr.Generate(u.ID)
	if err != nil {
		errorResponse(w, apperr.Internal("token_error", "could not issue token", err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"user":  u,
		"token": token,
	})
}

// handleMe godoc
// @Summary Current user
// @Tags auth
// @Security BearerAuth
// @Produce json
// @Success 200 {object} user.User
// @Failure 401 {object} map[string]string
// @Router /api/v1/auth/me [get]
func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.userSvc.GetByID(r.Context(), userIDFromCtx(r))
	if err != nil {
		errorResponse(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}
