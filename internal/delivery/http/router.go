package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/cinescope/movie_reviewer/internal/config"
	"github.com/cinescope/movie_reviewer/internal/delivery/http/handler"
	"github.com/cinescope/movie_reviewer/internal/delivery/http/middleware"
	"github.com/cinescope/movie_reviewer/internal/delivery/http/response"
	"github.com/cinescope/movie_reviewer/internal/pkg/logger"
	"github.com/cinescope/movie_reviewer/internal/pkg/session"
)

// Router holds HTTP handlers and router configuration
type Router struct {
	userHandler   *handler.UserHandler
	movieHandler  *handler.MovieHandler
	reviewHandler *handler.ReviewHandler
	sessions      *session.Manager
	users         middleware.AdminDirectory
	logger        *logger.Logger
	cfg           *config.Config
}

// NewRouter creates a new HTTP router
func NewRouter(
	userHandler *handler.UserHandler,
	movieHandler *handler.MovieHandler,
	reviewHandler *handler.ReviewHandler,
	sessions *session.Manager,
	users middleware.AdminDirectory,
	cfg *config.Config,
	log *logger.Logger,
) *Router {
	return &Router{
		userHandler:   userHandler,
		movieHandler:  movieHandler,
		reviewHandler: reviewHandler,
		sessions:      sessions,
		users:         users,
		logger:        log,
		cfg:           cfg,
	}
}

// Setup configures and returns the HTTP router
func (rt *Router) Setup() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(rt.logger))
	r.Use(middleware.Logger(rt.logger))
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   rt.cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.Authenticate(rt.sessions))

	r.Get("/health", rt.healthCheck)
	r.Get("/swagger/*", httpSwagger.WrapHandler)

	requireAdmin := middleware.RequireAdmin(rt.users)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", rt.userHandler.Register)
			r.Post("/login", rt.userHandler.Login)
			r.Post("/logout", rt.userHandler.Logout)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", rt.userHandler.List)
			r.Get("/{id}", rt.userHandler.GetByID)
			r.Get("/{id}/reviews", rt.reviewHandler.GetByUserID)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Put("/{id}", rt.userHandler.Update)
				r.Delete("/{id}", rt.userHandler.Delete)
				r.Post("/{id}/follow", rt.userHandler.Follow)
				r.Delete("/{id}/follow", rt.userHandler.Unfollow)
				r.Post("/{id}/block", rt.userHandler.Block)
				r.Delete("/{id}/block", rt.userHandler.Unblock)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth, requireAdmin)
				r.Post("/{id}/suspend", rt.userHandler.Suspend)
				r.Delete("/{id}/suspend", rt.userHandler.Reactivate)
			})
		})

		r.Route("/movies", func(r chi.Router) {
			r.Get("/", rt.movieHandler.List)
			r.Get("/{id}", rt.movieHandler.GetByID)
			r.Get("/{id}/rating", rt.movieHandler.GetRating)
			r.Get("/{id}/reviews", rt.reviewHandler.GetByMovieID)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Post("/{id}/favorite", rt.movieHandler.ToggleFavorite)
			})

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth, requireAdmin)
				r.Post("/", rt.movieHandler.Create)
				r.Delete("/{id}", rt.movieHandler.Delete)
			})
		})

		r.Route("/reviews", func(r chi.Router) {
			r.Get("/{id}", rt.reviewHandler.GetByID)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAuth)
				r.Post("/", rt.reviewHandler.Create)
				r.Put("/{id}", rt.reviewHandler.Update)
				r.Delete("/{id}", rt.reviewHandler.Delete)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAuth, requireAdmin)
			r.Post("/reviews/compact", rt.reviewHandler.Compact)
		})
	})

	return r
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}
