package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/auth"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/handlers"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	authHandler *handlers.AuthHandler,
	oauthHandler *handlers.OAuthHandler,
	tokenManager *auth.TokenManager,
) {
	rateLimitConfig := middleware.DefaultAuthRateLimit()
	limited := middleware.RateLimitByIP(rateLimitConfig)

	// Public routes - no authentication required
	router.With(limited).Post("/auth/register", authHandler.Register)
	router.With(limited).Post("/auth/login", authHandler.Login)
	router.With(limited).Post("/auth/refresh", authHandler.RefreshToken)
	router.With(limited).Post("/auth/logout", authHandler.Logout)
	router.With(limited).Post("/auth/verify-email", authHandler.VerifyEmail)
	router.With(limited).Post("/auth/resend-verification", authHandler.ResendVerification)
	router.With(limited).Post("/auth/forgot-password", authHandler.ForgotPassword)
	router.With(limited).Post("/auth/reset-password", authHandler.ResetPassword)

	// Provider consent and callback
	router.Get("/auth/{provider}", oauthHandler.Authorize)
	router.With(limited).Get("/auth/{provider}/callback", oauthHandler.Callback)

	// Protected routes - authentication required
	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(tokenManager))

		r.Get("/auth/me", authHandler.Me)
		r.Post("/auth/logout-all", authHandler.LogoutAll)
		r.Post("/auth/change-password", authHandler.ChangePassword)
		r.Get("/auth/{provider}/link", oauthHandler.Link)
	})
}
