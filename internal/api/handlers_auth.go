package api

import (
	"encoding/json"
	"net/http"

	"github.com/JustinTDCT/MarkerVault/internal/auth"
	"github.com/JustinTDCT/MarkerVault/internal/models"
)

const settingAdminPasswordHash = "admin_password_hash"

// handleSetupCheck reports whether the admin password has been configured.
func (s *Server) handleSetupCheck(w http.ResponseWriter, r *http.Request) {
	hash, err := s.settingsRepo.Get(r.Context(), settingAdminPasswordHash)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to check setup state")
		return
	}
	s.respondJSON(w, http.StatusOK, Response{Success: true, Data: map[string]bool{
		"configured": hash != "",
	}})
}

// handleSetup sets the admin password on first run. Once configured, changes
// go through login + this endpoint with the current password.
func (s *Server) handleSetup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password        string `json:"password"`
		CurrentPassword string `json:"current_password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Password) < 8 {
		s.respondError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	existing, err := s.settingsRepo.Get(r.Context(), settingAdminPasswordHash)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to read setup state")
		return
	}
	if existing != "" && !auth.CheckPassword(existing, req.CurrentPassword) {
		s.respondError(w, http.StatusForbidden, "current password incorrect")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to hash password")
		return
	}
	if err := s.settingsRepo.Set(r.Context(), settingAdminPasswordHash, hash); err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to save password")
		return
	}
	s.respondJSON(w, http.StatusOK, Response{Success: true})
}

// handleLogin verifies the admin password and issues a session token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	hash, err := s.settingsRepo.Get(r.Context(), settingAdminPasswordHash)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to read credentials")
		return
	}
	if hash == "" {
		s.respondError(w, http.StatusForbidden, "setup required")
		return
	}
	if !auth.CheckPassword(hash, req.Password) {
		s.respondError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, jti, expiresAt, err := s.auth.IssueToken("admin")
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}
	if err := s.sessionRepo.Create(r.Context(), &models.Session{
		ID:        jti,
		UserID:    "admin",
		ExpiresAt: expiresAt,
	}); err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to create session")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "session",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.respondJSON(w, http.StatusOK, Response{Success: true, Data: map[string]interface{}{
		"token":      token,
		"expires_at": expiresAt,
	}})
}

// handleLogout revokes the current session.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	user := auth.UserFromContext(r.Context())
	if user == nil {
		s.respondError(w, http.StatusUnauthorized, "no session")
		return
	}
	if err := s.sessionRepo.Delete(r.Context(), user.SessionID); err != nil {
		s.respondError(w, http.StatusInternalServerError, "failed to revoke session")
		return
	}
	http.SetCookie(w, &http.Cookie{Name: "session", Value: "", Path: "/", MaxAge: -1})
	s.respondJSON(w, http.StatusOK, Response{Success: true})
}
