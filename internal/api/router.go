package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/taskboard-be/internal/api/handlers"
	"github.com/isdelr/taskboard-be/internal/auth"
	"github.com/isdelr/taskboard-be/internal/metrics"
	"github.com/isdelr/taskboard-be/internal/services"
	"github.com/isdelr/taskboard-be/internal/websocket"
	"github.com/rs/zerolog/log"
)

// Services groups the collaborators the HTTP layer calls into.
type Services struct {
	Users    services.UserServiceProvider
	Projects services.ProjectServiceProvider
	Tasks    services.TaskServiceProvider
	Events   services.EventServiceProvider
}

// NewRouter creates and configures a new Chi router.
func NewRouter(db handlers.Pinger, hub *websocket.Hub, tokens auth.TokenVerifier, svc Services, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(db)
	userHandler := handlers.NewUserHandler(svc.Users)
	projectHandler := handlers.NewProjectHandler(svc.Projects)
	taskHandler := handlers.NewTaskHandler(svc.Tasks)
	eventHandler := handlers.NewEventHandler(svc.Events)
	wsHandler := handlers.NewWebSocketHandler(hub, svc.Projects, allowedOrigins)

	guard := auth.Guard(tokens, svc.Users)

	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Get)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", userHandler.Register)
			r.Post("/login", userHandler.Login)
			r.With(guard).Get("/me", userHandler.GetMe)
		})

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(guard)

			r.Route("/projects", func(r chi.Router) {
				r.Get("/", projectHandler.GetAll)
				r.Post("/", projectHandler.Create)
				r.Get("/{projectId}", projectHandler.Get)
			})

			r.Route("/tasks", func(r chi.Router) {
				r.Get("/", taskHandler.GetAll)
				r.Post("/", taskHandler.Create)
				r.Put("/{taskId}", taskHandler.Update)
				r.Delete("/{taskId}", taskHandler.Delete)
			})

			r.Get("/activity", eventHandler.GetRecent)
		})

		// Browsers cannot set headers on a websocket handshake, so the board
		// also accepts the token as a query parameter.
		r.With(tokenFromQuery, guard).Get("/ws/projects/{projectId}", wsHandler.Serve)
	})

	return r
}

// tokenFromQuery copies ?token= into the Authorization header when the
// header is absent.
func tokenFromQuery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			if token := r.URL.Query().Get("token"); token != "" {
				r.Header.Set("Authorization", "Bearer "+token)
			}
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs one line per request through zerolog. Query strings are
// left out since they may carry a token.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			log.Info().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("remote_addr", r.RemoteAddr).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Msg("HTTP request")
		}()
		next.ServeHTTP(ww, r)
	})
}
