package api

import (
	"errors"
	"net/http"
	"sort"
	"strings"

	"github.com/eventboard/server/internal/api/handlers"
	"github.com/eventboard/server/internal/api/middleware"
	"github.com/eventboard/server/internal/api/problem"
	"github.com/eventboard/server/internal/audit"
	"github.com/eventboard/server/internal/auth"
	"github.com/eventboard/server/internal/config"
	"github.com/eventboard/server/internal/domain/events"
	"github.com/eventboard/server/internal/domain/users"
	"github.com/eventboard/server/internal/metrics"
	"github.com/rs/zerolog"
)

// Deps are the collaborators the HTTP layer needs.
type Deps struct {
	Config      config.Config
	Logger      zerolog.Logger
	Users       *users.Service
	Events      *events.Service
	Tokens      *auth.TokenManager
	DB          handlers.Pinger
	RateLimiter *middleware.RateLimiter
	Build       BuildInfo
}

// NewRouter builds the route table and wraps it in the middleware chain.
func NewRouter(d Deps) http.Handler {
	env := d.Config.Environment
	authHandler := handlers.NewAuthHandler(d.Users, d.Tokens, env)
	eventsHandler := handlers.NewEventsHandler(d.Events, env)
	auditLog := audit.NewLogger(d.Logger)
	authHandler.Audit = auditLog
	eventsHandler.Audit = auditLog
	requireAuth := middleware.RequireAuth(d.Tokens, env)

	mux := http.NewServeMux()
	mux.Handle("/healthz", handlers.Healthz(d.Build.Version))
	mux.Handle("/readyz", handlers.Readyz(d.DB))
	mux.Handle("/version", VersionHandler(d.Build))
	mux.Handle("/metrics", metrics.Handler())

	mux.Handle("/api/signup", methodMux(env, map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(authHandler.Signup),
	}))
	mux.Handle("/api/login", methodMux(env, map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(authHandler.Login),
	}))
	mux.Handle("/api/events", methodMux(env, map[string]http.Handler{
		http.MethodGet:  http.HandlerFunc(eventsHandler.List),
		http.MethodPost: requireAuth(http.HandlerFunc(eventsHandler.Create)),
	}))
	mux.Handle("/api/events/{id}", methodMux(env, map[string]http.Handler{
		http.MethodGet:    http.HandlerFunc(eventsHandler.Get),
		http.MethodPut:    requireAuth(http.HandlerFunc(eventsHandler.Update)),
		http.MethodDelete: requireAuth(http.HandlerFunc(eventsHandler.Delete)),
	}))
	mux.Handle("GET /images/{filename}", handlers.Images(d.Config.Images.Dir, env))

	limiter := d.RateLimiter
	if limiter == nil {
		limiter = middleware.NewRateLimiter(d.Config.RateLimit, env)
	}

	var h http.Handler = mux
	h = middleware.RequestSize(middleware.DefaultMaxBodySize)(h)
	h = limiter.Middleware(h)
	h = middleware.CORS(d.Config.CORS, d.Logger)(h)
	h = middleware.SecurityHeaders(d.Config.IsProduction())(h)
	h = metrics.HTTPMiddleware(h)
	h = middleware.RequestLogging(d.Logger)(h)
	h = middleware.CorrelationID(d.Logger)(h)
	h = middleware.Tracing(h)
	return h
}

var errMethodNotAllowed = errors.New("method not allowed")

func methodMux(env string, handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		problem.Write(w, r, http.StatusMethodNotAllowed, "about:blank", "Method not allowed", errMethodNotAllowed, env)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers)+1)
	for method := range handlers {
		methods = append(methods, method)
	}
	methods = append(methods, http.MethodOptions)
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
