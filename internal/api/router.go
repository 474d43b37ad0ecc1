package api

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/erazemk/armory/internal/auth"
	"github.com/erazemk/armory/internal/metrics"
	"github.com/erazemk/armory/internal/model"
	"github.com/erazemk/armory/internal/qr"
	"github.com/erazemk/armory/internal/registry"
)

// Deps are the collaborators the HTTP handlers need.
type Deps struct {
	DB       *sql.DB
	Tokens   *auth.Tokens
	Registry *registry.Registry
	QR       *qr.Service
	Metrics  *metrics.Metrics

	// MetricsPath mounts the Prometheus handler when Metrics is set.
	MetricsPath string
}

// NewRouter creates the HTTP handler with all endpoints registered.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	authHandler := &AuthHandler{DB: d.DB, Tokens: d.Tokens}
	usersHandler := &UsersHandler{DB: d.DB}
	personnelHandler := &PersonnelHandler{DB: d.DB, Registry: d.Registry, QR: d.QR}
	itemsHandler := &ItemsHandler{DB: d.DB, Registry: d.Registry, QR: d.QR}
	transactionsHandler := &TransactionsHandler{DB: d.DB, Metrics: d.Metrics}
	lookupHandler := &LookupHandler{DB: d.DB}
	qrHandler := &QRHandler{QR: d.QR}

	authMW := AuthMiddleware(d.Tokens, d.DB)
	requireAdmin := RequireRole(model.RoleAdmin)
	requireManager := RequireRole(model.RoleManager)

	authed := func(h http.HandlerFunc) http.Handler { return authMW(h) }
	manager := func(h http.HandlerFunc) http.Handler { return authMW(requireManager(h)) }
	admin := func(h http.HandlerFunc) http.Handler { return authMW(requireAdmin(h)) }

	// Public.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /healthz", healthz(d.DB))
	if d.Metrics != nil {
		path := d.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, d.Metrics.Handler())
	}

	// Session.
	mux.Handle("POST /api/auth/logout", authed(authHandler.Logout))
	mux.Handle("PUT /api/auth/password", authed(authHandler.ChangePassword))

	// Operators (admin only).
	mux.Handle("GET /api/users", admin(usersHandler.List))
	mux.Handle("POST /api/users", admin(usersHandler.Create))
	mux.Handle("GET /api/users/{id}", admin(usersHandler.Get))
	mux.Handle("PUT /api/users/{id}", admin(usersHandler.Update))
	mux.Handle("PUT /api/users/{id}/password", admin(usersHandler.ResetPassword))
	mux.Handle("DELETE /api/users/{id}", admin(usersHandler.Delete))

	// Personnel: read (all roles), write (manager+).
	mux.Handle("GET /api/personnel", authed(personnelHandler.List))
	mux.Handle("POST /api/personnel", manager(personnelHandler.Create))
	mux.Handle("GET /api/personnel/{id}", authed(personnelHandler.Get))
	mux.Handle("PUT /api/personnel/{id}/status", manager(personnelHandler.UpdateStatus))
	mux.Handle("DELETE /api/personnel/{id}", manager(personnelHandler.Delete))
	mux.Handle("GET /api/personnel/{id}/transactions", authed(personnelHandler.Transactions))
	mux.Handle("GET /api/personnel/{id}/qr", authed(personnelHandler.QRImage))

	// Items: read (all roles), write (manager+).
	mux.Handle("GET /api/items", authed(itemsHandler.List))
	mux.Handle("POST /api/items", manager(itemsHandler.Create))
	mux.Handle("GET /api/items/{id}", authed(itemsHandler.Get))
	mux.Handle("PUT /api/items/{id}", manager(itemsHandler.Update))
	mux.Handle("PUT /api/items/{id}/status", manager(itemsHandler.UpdateStatus))
	mux.Handle("DELETE /api/items/{id}", manager(itemsHandler.Delete))
	mux.Handle("GET /api/items/{id}/transactions", authed(itemsHandler.Transactions))
	mux.Handle("GET /api/items/{id}/qr", authed(itemsHandler.QRImage))

	mux.Handle("POST /api/qr/{type}/{id}/render", manager(qrHandler.Render))

	// Ledger (all roles).
	mux.Handle("POST /api/transactions", authed(transactionsHandler.Create))
	mux.Handle("GET /api/transactions", authed(transactionsHandler.List))
	mux.Handle("GET /api/transactions/{id}", authed(transactionsHandler.Get))
	mux.Handle("GET /api/custody", authed(transactionsHandler.Custody))

	mux.Handle("GET /api/lookup/{token}", authed(lookupHandler.Resolve))
	mux.Handle("GET /api/consumables", authed(lookupHandler.Consumables))

	var h http.Handler = mux
	h = AccessLog(d.Metrics)(h)
	h = middleware.Recoverer(h)
	h = middleware.RequestID(h)
	return h
}

func healthz(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			jsonError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
