// Package httpapi exposes the query/mutation gateway and the auxiliary
// transport-level routes.
package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"accountd/internal/account"
	"accountd/internal/apperr"
	"accountd/internal/config"
	"accountd/internal/geo"
	"accountd/internal/guard"
	"accountd/internal/obs"
	"accountd/internal/store"
	"accountd/internal/token"
)

// API is the HTTP layer. All domain operations go through the single
// gateway endpoint; everything else is transport plumbing.
type API struct {
	mux      *http.ServeMux
	ops      map[string]guard.Handler
	svc      *account.Service
	codec    *token.Codec
	gateway  store.Gateway
	reporter obs.Reporter

	version   string
	startedAt time.Time

	useSSL       bool
	allowOrigin  []string
	limiter      *rateLimiter
	maxBodyBytes int64
}

// New wires the operation table and routes.
func New(cfg config.Config, svc *account.Service, codec *token.Codec, lookup geo.Lookup, gw store.Gateway, reporter obs.Reporter) *API {
	a := &API{
		mux:          http.NewServeMux(),
		svc:          svc,
		codec:        codec,
		gateway:      gw,
		reporter:     reporter,
		version:      cfg.Version,
		startedAt:    time.Now().UTC(),
		useSSL:       cfg.UseSSL,
		allowOrigin:  cfg.AllowOrigin,
		limiter:      newRateLimiter(cfg.RateBurst, cfg.RatePerSec),
		maxBodyBytes: cfg.MaxBodyBytes,
	}

	// Unauthenticated write operations clear the embargo gate before any
	// domain logic; session-bound operations clear authentication first.
	blockEmbargoed := guard.BlockEmbargoed(lookup, cfg.EmbargoedContinent, cfg.EmbargoMessage, cfg.Env.DevelopmentLike())
	a.ops = map[string]guard.Handler{
		"login":         guard.Chain(a.handleLogin, blockEmbargoed),
		"createAccount": guard.Chain(a.handleCreateAccount, blockEmbargoed),
		"me":            guard.Chain(a.handleMe, guard.Authenticated(codec)),
	}

	a.mux.HandleFunc("/api", a.handleGateway)
	a.mux.HandleFunc("/ping", a.handlePing)
	a.mux.HandleFunc("/healthz", a.handleHealthz)
	a.mux.HandleFunc("/readyz", a.handleReadyz)
	a.mux.Handle("/metrics", obs.MetricsHandler())
	a.mux.HandleFunc("/", a.handleNotFound)

	return a
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := obs.Instrument(a.mux)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = a.limiter.Middleware(h)
	h = CORS(h, a.allowOrigin)
	h = Logging(h)
	if a.useSSL {
		h = RejectHTTP(h)
	}
	h = Recover(h, a.reporter)
	return RequestID(h)
}

// Close stops the rate limiter's background sweeper.
func (a *API) Close() {
	a.limiter.Close()
}

func (a *API) handlePing(w http.ResponseWriter, r *http.Request) {
	uptime := time.Since(a.startedAt)
	writeJSON(w, http.StatusOK, map[string]any{
		"message":      "pong",
		"version":      a.version,
		"runningSince": a.startedAt.Format(time.RFC3339),
		"uptime":       uptime.String(),
	})
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "accountd",
		"version": a.version,
	})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if a.gateway != nil {
		if err := a.gateway.Ping(r.Context()); err != nil {
			// The ping error can carry DSN detail; it goes to the log only.
			obs.LogEntry("error", map[string]any{
				"msg":        "readiness ping failed",
				"error":      err.Error(),
				"request_id": RequestIDFromContext(r.Context()),
			})
			writeJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "not_ready",
			})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

func (a *API) handleNotFound(w http.ResponseWriter, r *http.Request) {
	obs.LogEntry("warn", map[string]any{
		"msg":        "no route found",
		"url":        fmt.Sprintf("%s %s", r.Method, r.URL.Path),
		"request_id": RequestIDFromContext(r.Context()),
	})
	writeErrorEnvelope(w, http.StatusNotFound,
		apperr.New(apperr.NotFound, "Could not find the requested route."))
}
