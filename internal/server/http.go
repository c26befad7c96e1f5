package server

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/Jayem09/coduxa-sub000/internal/auth"
	"github.com/Jayem09/coduxa-sub000/internal/config"
	"github.com/Jayem09/coduxa-sub000/internal/logging"
)

// WSUpgrader handles WebSocket upgrades. AllowOrigins restricts it.
var WSUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// AllowOrigins limits WebSocket upgrades to the given origins. Requests
// without an Origin header (non-browser clients) are accepted.
func AllowOrigins(origins []string) {
	WSUpgrader.CheckOrigin = func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(origins, origin) || slices.Contains(origins, "*")
	}
}

// Routes are the feature handlers mounted by NewHTTPServer. Nil handlers
// are skipped.
type Routes struct {
	StartSession http.HandlerFunc
	GetSession   http.HandlerFunc
	Answer       http.HandlerFunc
	Navigate     http.HandlerFunc
	Flag         http.HandlerFunc
	Submit       http.HandlerFunc
	Close        http.HandlerFunc
	Results      http.HandlerFunc
	Profile      http.HandlerFunc
	Analytics    http.HandlerFunc
	SessionWS    http.HandlerFunc
}

// NewHTTPServer wires base routes (health, metrics) and the authenticated
// API for the service.
func NewHTTPServer(cfg *config.App, logger zerolog.Logger, pool *pgxpool.Pool, redis *redis.Client, tokens auth.TokenValidator, routes Routes) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pingDependencies(ctx, pool, redis); err != nil {
			logging.FromContext(r.Context()).Error().Err(err).Msg("dependency ping failed")
			http.Error(w, "upstream error", http.StatusBadGateway)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ready":true}`))
	})

	api := func(pattern string, h http.HandlerFunc) {
		if h == nil {
			return
		}
		mux.Handle(pattern, auth.AuthMiddleware(tokens, logger)(auth.RequireAuth(h)))
	}
	api("POST /v1/exams/{examID}/sessions", routes.StartSession)
	api("GET /v1/sessions/{sessionID}", routes.GetSession)
	api("PUT /v1/sessions/{sessionID}/answers/{questionID}", routes.Answer)
	api("POST /v1/sessions/{sessionID}/navigate", routes.Navigate)
	api("POST /v1/sessions/{sessionID}/flags/{questionID}", routes.Flag)
	api("POST /v1/sessions/{sessionID}/submit", routes.Submit)
	api("POST /v1/sessions/{sessionID}/close", routes.Close)
	api("GET /v1/users/me/results", routes.Results)
	api("GET /v1/users/me/profile", routes.Profile)
	api("GET /v1/exams/{examID}/analytics", routes.Analytics)

	// token travels in the query string; the handler validates it
	if routes.SessionWS != nil {
		mux.HandleFunc("GET /ws/sessions/{sessionID}", routes.SessionWS)
	}

	AllowOrigins(cfg.CORS.AllowedOrigins)

	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           withCORS(cfg.CORS, withLogger(logger, mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// withLogger attaches a request-scoped logger to every request.
func withLogger(logger zerolog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqLogger := logger.With().Str("method", r.Method).Str("path", r.URL.Path).Logger()
		next.ServeHTTP(w, r.WithContext(logging.IntoContext(r.Context(), reqLogger)))
	})
}

// withCORS answers preflight requests and decorates responses for allowed
// origins.
func withCORS(cfg config.CORS, next http.Handler) http.Handler {
	methods := strings.Join(cfg.AllowedMethods, ", ")
	headers := strings.Join(cfg.AllowedHeaders, ", ")
	maxAge := strconv.Itoa(cfg.MaxAge)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowed := origin != "" && (slices.Contains(cfg.AllowedOrigins, origin) || slices.Contains(cfg.AllowedOrigins, "*"))
		if allowed {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Add("Vary", "Origin")
			if cfg.AllowCredentials {
				h.Set("Access-Control-Allow-Credentials", "true")
			}
		}

		if r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != "" {
			if allowed {
				w.Header().Set("Access-Control-Allow-Methods", methods)
				w.Header().Set("Access-Control-Allow-Headers", headers)
				w.Header().Set("Access-Control-Max-Age", maxAge)
			}
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func pingDependencies(ctx context.Context, pool *pgxpool.Pool, redis *redis.Client) error {
	if pool != nil {
		if err := pool.Ping(ctx); err != nil {
			return err
		}
	}
	if redis != nil {
		if err := redis.Ping(ctx).Err(); err != nil {
			return err
		}
	}
	return nil
}
