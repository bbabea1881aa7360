package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"finflow-identity/internal/config"
	"finflow-identity/internal/handler"
	"finflow-identity/internal/middleware"
)

func New(
	cfg *config.Config,
	authMiddleware *middleware.AuthMiddleware,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
) http.Handler {
	r := chi.NewRouter()
	rateLimitMiddleware := middleware.NewRateLimitMiddleware(cfg.RateLimitRPM, cfg.AuthRateLimitRPM)

	r.Use(middleware.Recovery)
	r.Use(middleware.Logging)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.SecurityHeaders)
	r.Use(rateLimitMiddleware.Handler)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(middleware.Timeout(cfg.RequestTimeout))

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", authHandler.Login)
			auth.Post("/refresh", authHandler.Refresh)
			auth.Post("/logout", authHandler.Logout)
			auth.Post("/register", authHandler.Register)
			auth.Post("/google", authHandler.GoogleLogin)
			auth.Post("/otp/send", authHandler.SendOtp)
			auth.Post("/otp/verify", authHandler.VerifyOtp)
			auth.Post("/password/reset", authHandler.ResetPassword)
			auth.Post("/exists", authHandler.CheckExistence)
		})

		api.Route("/users", func(users chi.Router) {
			users.Use(authMiddleware.RequireAuth)
			users.Get("/me", userHandler.Me)
			users.Put("/me", userHandler.UpdateMe)
			users.Put("/me/biometric", userHandler.ToggleBiometric)
		})
	})

	return r
}
