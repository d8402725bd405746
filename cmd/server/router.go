package main

import (
	"net/http"
	"time"

	"github.com/benvon/smart-habits/internal/handlers"
	"github.com/benvon/smart-habits/internal/middleware"
	"github.com/benvon/smart-habits/internal/telemetry"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"
)

const requestTimeout = 30 * time.Second

// routerDeps is everything the HTTP surface is assembled from
type routerDeps struct {
	logger      *zap.Logger
	service     handlers.HabitService
	users       middleware.UserStore
	verifier    middleware.TokenVerifier // nil serves the local user
	rateLimiter *middleware.RateLimiter  // nil disables rate limiting
	health      *handlers.HealthChecker
	version     handlers.VersionInfo
	frontendURL string
	enableHSTS  bool
	tracing     bool
}

// newRouter wires middleware and routes. gorilla/mux runs middleware in
// registration order, so the first r.Use is the outermost wrapper.
func newRouter(d routerDeps) *mux.Router {
	r := mux.NewRouter()

	if d.tracing {
		r.Use(otelmux.Middleware(telemetry.ServiceName))
	}
	r.Use(middleware.SecurityHeaders(d.enableHSTS))
	r.Use(middleware.CORS(d.frontendURL))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.ErrorHandler(d.logger))
	r.Use(middleware.Audit(d.logger))
	r.Use(middleware.Logging(d.logger))

	// Public routes
	r.HandleFunc("/healthz", d.health.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/version", handlers.VersionHandler(d.version)).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	if d.verifier != nil {
		api.Use(middleware.Auth(d.verifier, d.users, d.logger))
	} else {
		api.Use(middleware.LocalUser(d.users, d.logger))
	}
	if d.rateLimiter != nil {
		api.Use(d.rateLimiter.Middleware())
	}

	handlers.NewAuthHandler().RegisterRoutes(api.PathPrefix("/auth").Subrouter())
	handlers.NewTaskHandler(d.service, d.logger).RegisterRoutes(api.PathPrefix("/tasks").Subrouter())
	handlers.NewTagHandler(d.service, d.logger).RegisterRoutes(api.PathPrefix("/tags").Subrouter())
	handlers.NewRecordHandler(d.service, d.logger).RegisterRoutes(api.PathPrefix("/records").Subrouter())
	handlers.NewSettingsHandler(d.service, d.logger).RegisterRoutes(api.PathPrefix("/settings").Subrouter())
	handlers.NewDayHandler(d.service, d.logger).RegisterRoutes(api)

	// Preflight requests are answered by the CORS middleware; this keeps mux
	// from replying 405 to OPTIONS on routes that do not list it
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	return r
}
