package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/taskforge/taskforge-be/internal/api/handlers"
	"github.com/taskforge/taskforge-be/internal/auth"
	"github.com/taskforge/taskforge-be/internal/services"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(corsOrigin string, authSvc *auth.Auth, userService services.UserServiceProvider, taskService services.TaskServiceProvider) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{corsOrigin},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService)
	taskHandler := handlers.NewTaskHandler(taskService)

	// The middleware resolves the bearer token against the session table,
	// so revoked tokens stop working immediately.
	authenticated := authSvc.Middleware(userService)

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/", userHandler.Signup)
			r.Post("/login", userHandler.Login)
			r.Get("/{id}/avatar", userHandler.GetAvatar)

			r.Group(func(r chi.Router) {
				r.Use(authenticated)
				r.Post("/logout", userHandler.Logout)
				r.Post("/logout-all", userHandler.LogoutAll)
				r.Route("/me", func(r chi.Router) {
					r.Get("/", userHandler.GetMe)
					r.Patch("/", userHandler.UpdateMe)
					r.Delete("/", userHandler.DeleteMe)
					r.Post("/avatar", userHandler.UploadAvatar)
					r.Delete("/avatar", userHandler.DeleteAvatar)
				})
			})
		})

		r.Route("/tasks", func(r chi.Router) {
			r.Use(authenticated)
			r.Post("/", taskHandler.Create)
			r.Get("/", taskHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", taskHandler.Get)
				r.Patch("/", taskHandler.Update)
				r.Delete("/", taskHandler.Delete)
			})
		})
	})

	return r
}
