package httpapi

import (
	"net/http"
	"strings"
	"time"

	"keyward.org/internal/audit"
	"keyward.org/internal/auth"
)

type principalResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type updateMeRequest struct {
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		unauthorized(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, toPrincipalResponse(principal))
	case http.MethodPut:
		var req updateMeRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		updated, err := a.users.Update(r.Context(), principal.ID, auth.UserUpdate{
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			handleAuthError(w, r, err)
			return
		}
		_ = audit.LogEvent(r.Context(), "user.updated", map[string]any{
			"user_id": updated.ID,
		})
		writeJSON(w, http.StatusOK, toPrincipalResponse(updated))
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

// handleUserByID serves GET /v1/users/{id}. Role gating happens in the
// route registration; here only the lookup remains.
func (a *API) handleUserByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/v1/users/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusBadRequest, "invalid user id")
		return
	}
	principal, err := a.users.Get(r.Context(), id)
	if err != nil {
		handleAuthError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toPrincipalResponse(principal))
}

func toPrincipalResponse(p *auth.Principal) principalResponse {
	return principalResponse{
		ID:        p.ID,
		Email:     p.Email,
		Role:      string(p.Role),
		Active:    p.Active,
		Verified:  p.Verified,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}
