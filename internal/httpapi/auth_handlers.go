package httpapi

import (
	"net/http"
	"time"

	"keyward.org/internal/audit"
	"keyward.org/internal/auth"
	"keyward.org/internal/obs"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutRequest struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

type tokenPairResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	TokenType        string    `json:"token_type"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type accessTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req registerRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	// Self-service signups always start at the lowest role.
	principal, err := a.users.Register(r.Context(), req.Email, req.Password, auth.RoleGuest)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	pair, err := a.svc.IssuePair(principal.ID)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	recordPairIssued()
	_ = audit.LogEvent(r.Context(), "auth.registered", map[string]any{
		"user_id": principal.ID,
		"email":   principal.Email,
		"role":    string(principal.Role),
	})
	writeJSON(w, http.StatusCreated, pairResponse(pair))
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	principal, err := a.svc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		obs.RecordLogin("denied")
		_ = audit.LogEvent(r.Context(), "auth.login.denied", map[string]any{})
		handleAuthError(w, r, err)
		return
	}
	pair, err := a.svc.IssuePair(principal.ID)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	obs.RecordLogin("ok")
	recordPairIssued()
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id": principal.ID,
	})
	writeJSON(w, http.StatusOK, pairResponse(pair))
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	var req refreshRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	access, err := a.svc.RedeemRefresh(r.Context(), req.RefreshToken)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	obs.RecordTokenIssued(string(auth.TokenAccess))
	_ = audit.LogEvent(r.Context(), "auth.refreshed", map[string]any{})
	writeJSON(w, http.StatusOK, accessTokenResponse{
		AccessToken: access,
		TokenType:   "bearer",
	})
}

// handleLogout revokes the bearer token of the current request and,
// when supplied, the caller's refresh token. Revoking twice is safe.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if token, ok := auth.TokenFromContext(r.Context()); ok {
		if err := a.svc.Revoke(r.Context(), token); err != nil {
			handleAuthError(w, r, err)
			return
		}
		obs.RecordRevocation()
	}
	if r.ContentLength != 0 {
		var req logoutRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		if req.RefreshToken != "" {
			if err := a.svc.Revoke(r.Context(), req.RefreshToken); err != nil {
				handleAuthError(w, r, err)
				return
			}
			obs.RecordRevocation()
		}
	}
	_ = audit.LogEvent(r.Context(), "auth.logout", map[string]any{})
	w.WriteHeader(http.StatusNoContent)
}

func pairResponse(pair auth.TokenPair) tokenPairResponse {
	return tokenPairResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		TokenType:        "bearer",
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	}
}

func recordPairIssued() {
	obs.RecordTokenIssued(string(auth.TokenAccess))
	obs.RecordTokenIssued(string(auth.TokenRefresh))
}
