// Package httpapi is the HTTP transport around the auth core. It maps
// tagged outcomes to status codes (401 for authentication failures, 403
// for insufficient role, 404 for missing principals) and keeps every
// handler free of business logic.
package httpapi

import (
	"net/http"

	"keyward.org/internal/auth"
	"keyward.org/internal/obs"
)

// API wires handlers, middleware and the auth core together.
type API struct {
	mux        *http.ServeMux
	svc        *auth.Service
	users      *auth.Users
	readyProbe ReadyProbe
	version    string
}

// New builds the API with all routes registered.
func New(svc *auth.Service, users *auth.Users, rp ReadyProbe, version string) *API {
	a := &API{
		mux:        http.NewServeMux(),
		svc:        svc,
		users:      users,
		readyProbe: rp,
		version:    version,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	// Credential endpoints take the brunt of abuse; they get a tighter
	// per-IP budget than the rest of the API.
	a.mux.Handle("/v1/auth/register", RateLimit(http.HandlerFunc(a.handleRegister), 10, 5))
	a.mux.Handle("/v1/auth/login", RateLimit(http.HandlerFunc(a.handleLogin), 10, 5))
	a.mux.Handle("/v1/auth/refresh", RateLimit(http.HandlerFunc(a.handleRefresh), 10, 5))
	a.mux.HandleFunc("/v1/auth/logout", a.handleLogout)

	a.mux.HandleFunc("/v1/users/me", a.handleMe)
	a.mux.Handle("/v1/users/", RequireRole(http.HandlerFunc(a.handleUserByID), auth.RoleAdmin, auth.RoleSuperadmin))

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, 1<<20)
	h = obs.Instrument(h)
	h = LoggingJSON(h)
	h = SecurityHeaders(h)
	h = CORS(h)
	h = RequestID(h)
	return h
}
