package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jonboulle/clockwork"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/auth"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/background"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/config"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/database"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/handlers"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/middleware"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/oauth"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/repositories"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/routes"
	"github.com/oklabflensburg/hackathonhub-sub000/internal/services"
	pkghttp "github.com/oklabflensburg/hackathonhub-sub000/pkg/http"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("configuration loaded", slog.String("env", cfg.Server.Env))

	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	if os.Getenv("RUN_MIGRATIONS") == "true" {
		if err := database.RunMigrations(cfg.Database.DSN(), "migrations"); err != nil {
			logger.Error("failed to run migrations", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("migrations applied")
	}

	clock := clockwork.NewRealClock()

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	refreshRepo := repositories.NewRefreshTokenRepository(db)
	verificationRepo := repositories.NewEmailVerificationRepository(db)
	resetRepo := repositories.NewPasswordResetRepository(db)

	// Token manager
	tokenManager := auth.NewTokenManager(
		cfg.Auth.SecretKey,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
		clock,
		logger,
	)

	// AWS SES email service
	emailService, err := services.NewAWSSESEmailService(
		cfg.Email.AWSRegion,
		cfg.Email.FromAddress,
		cfg.Server.FrontendURL,
		logger,
	)
	if err != nil {
		logger.Error("failed to initialize email service", slog.Any("error", err))
		os.Exit(1)
	}

	// Providers; a bad credential set is a deployment error, refuse to boot
	githubProvider := oauth.NewGitHubProvider(cfg.GitHub, logger)
	googleProvider := oauth.NewGoogleProvider(cfg.Google, logger)
	for _, p := range []oauth.Provider{githubProvider, googleProvider} {
		if err := p.ValidateConfig(); err != nil {
			logger.Error("provider configuration invalid",
				slog.String("provider", p.Name()), slog.Any("error", err))
			os.Exit(1)
		}
		if p.Enabled() {
			logger.Info("provider enabled", slog.String("provider", p.Name()))
		}
	}

	// Services
	sessionService := services.NewSessionService(refreshRepo, userRepo, tokenManager, clock, logger)
	verificationService := services.NewVerificationService(userRepo, verificationRepo, emailService, clock, logger)
	credentialService := services.NewCredentialService(userRepo, resetRepo, sessionService, verificationService, emailService, clock, logger)
	oauthService := services.NewOAuthService(
		[]oauth.Provider{githubProvider, googleProvider},
		userRepo, sessionService, clock, logger,
	)

	// Handlers
	ipConfig := &pkghttp.IPConfig{}
	if proxies := os.Getenv("TRUSTED_PROXIES"); proxies != "" {
		for _, p := range strings.Split(proxies, ",") {
			ipConfig.TrustedProxies = append(ipConfig.TrustedProxies, strings.TrimSpace(p))
		}
	}
	authHandler := handlers.NewAuthHandler(credentialService, sessionService, verificationService, userRepo, ipConfig)
	oauthHandler := handlers.NewOAuthHandler(oauthService, cfg.Server.FrontendURL, ipConfig)

	// Cleanup manager
	cleanupManager := background.NewCleanupManager(refreshRepo, verificationRepo, resetRepo, clock, logger, cfg.Auth.CleanupInterval)

	// Router
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(middleware.SecurityHeaders(middleware.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.AllowedOrigins)))
	router.Use(middleware.SecureLogger(logger))
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, authHandler, oauthHandler, tokenManager)

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy","database":"down"}`))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy","database":"up"}`))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go cleanupManager.Start(cleanupCtx)

	go func() {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", slog.Any("error", err))
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("shutdown signal received")

	cleanupCancel()
	cleanupManager.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}
