package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"superpos/backend/internal/auth"
	"superpos/backend/internal/domain"
	"superpos/backend/internal/logger"
)

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	key := clientKey(r)
	if !a.loginLimiter.Allow(key) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts, try again in a minute"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) || errors.Is(err, auth.ErrInactiveAccount) {
			logger.Warn("login failed", "username", strings.TrimSpace(req.Username), "remote", key, "error", err)
		}
		writeServiceError(w, err)
		return
	}
	a.loginLimiter.Reset(key)

	writeOK(w, http.StatusOK, map[string]any{
		"access":  resp.Access,
		"refresh": resp.Refresh,
		"user":    resp.User,
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req domain.RefreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	if strings.TrimSpace(req.Refresh) == "" {
		writeError(w, http.StatusBadRequest, errors.New("refresh token is required"))
		return
	}

	resp, err := a.auth.Refresh(r.Context(), strings.TrimSpace(req.Refresh))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{
		"access":  resp.Access,
		"refresh": resp.Refresh,
		"user":    resp.User,
	})
}
