package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finflow-identity/internal/config"
	"finflow-identity/internal/database"
	"finflow-identity/internal/handler"
	"finflow-identity/internal/keys"
	"finflow-identity/internal/mailer"
	"finflow-identity/internal/middleware"
	"finflow-identity/internal/otp"
	"finflow-identity/internal/repository"
	"finflow-identity/internal/router"
	"finflow-identity/internal/service"
	"finflow-identity/internal/token"
)

type App struct {
	server       *http.Server
	db           *database.DB
	cleanupFuncs []func()
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	keyProvider, err := loadKeys(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load signing keys: %w", err)
	}

	slog.Info("connecting to PostgreSQL")
	db, err := database.New(context.Background(), cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.EnsureSchema(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ensure database schema: %w", err)
	}

	pool := db.Pool
	userRepo := repository.NewUserRepository(pool)
	roleRepo := repository.NewRoleRepository(pool)
	tokenRepo := repository.NewInvalidatedTokenRepository(pool)
	slog.Info("database ready")

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	cleanupFuncs := []func(){
		cleanupCancel,
		db.Close,
	}

	otpStore, storeCleanup, err := buildOtpStore(cfg)
	if err != nil {
		cleanupCancel()
		db.Close()
		return nil, fmt.Errorf("failed to initialize otp store: %w", err)
	}
	if storeCleanup != nil {
		cleanupFuncs = append(cleanupFuncs, storeCleanup)
	}

	mail := buildMailer(cfg)

	codec := token.NewCodec(keyProvider, cfg.TokenIssuer)

	var googleVerifier service.GoogleVerifier
	if cfg.GoogleClientID != "" {
		googleVerifier = service.NewTokeninfoVerifier(cfg.GoogleClientID)
	} else {
		slog.Warn("GOOGLE_CLIENT_ID not set, google login disabled")
	}

	authService := service.NewAuthService(userRepo, roleRepo, tokenRepo, codec, googleVerifier, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	accountService := service.NewAccountService(userRepo, roleRepo, codec)
	otpService := service.NewOtpService(userRepo, otpStore, codec, mail, cfg.OtpTTL, cfg.ExchangeTokenTTL)
	cleanupService := service.NewCleanupService(tokenRepo)

	seeder := service.NewSeeder(userRepo, roleRepo, cfg.SeedAdminPassword)
	if err := seeder.Run(context.Background()); err != nil {
		for _, cleanup := range cleanupFuncs {
			cleanup()
		}
		return nil, fmt.Errorf("failed to seed initial data: %w", err)
	}

	go cleanupService.StartSweepTicker(cleanupCtx, cfg.SweepInterval)

	authMiddleware := middleware.NewAuthMiddleware(authService)
	authHandler := handler.NewAuthHandler(authService, accountService, otpService)
	userHandler := handler.NewUserHandler(accountService)

	appRouter := router.New(cfg, authMiddleware, authHandler, userHandler)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      appRouter,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  cfg.ServerIdleTimeout,
	}

	return &App{
		server:       server,
		db:           db,
		cleanupFuncs: cleanupFuncs,
	}, nil
}

func (a *App) Run() error {
	go func() {
		slog.Info("server starting", "addr", a.server.Addr)
		if serveErr := a.server.ListenAndServe(); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			slog.Error("server failed", "error", serveErr)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	for _, cleanup := range a.cleanupFuncs {
		cleanup()
	}

	slog.Info("server stopped")
	return nil
}

// loadKeys prefers a PEM file so tokens survive restarts. Without one the
// process signs with an ephemeral key, which invalidates all outstanding
// tokens on every restart.
func loadKeys(cfg *config.Config) (*keys.Provider, error) {
	if cfg.PrivateKeyFile != "" {
		return keys.LoadPEMFile(cfg.PrivateKeyFile)
	}

	slog.Warn("JWT_PRIVATE_KEY_FILE not set, generating an ephemeral signing key")
	return keys.Generate()
}

func buildOtpStore(cfg *config.Config) (otp.Store, func(), error) {
	if cfg.RedisURL == "" {
		slog.Warn("REDIS_URL not set, using in-memory otp store")
		return otp.NewMemoryStore(), nil, nil
	}

	client, err := otp.Connect(context.Background(), cfg.RedisURL, 5, 2*time.Second)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = client.Close()
	}

	return otp.NewRedisStore(client), cleanup, nil
}

func buildMailer(cfg *config.Config) mailer.Mailer {
	if cfg.PostmarkServerToken == "" {
		slog.Warn("POSTMARK_SERVER_TOKEN not set, otp codes will only be logged")
		return mailer.NewDevMailer()
	}

	m, err := mailer.NewPostmarkMailer(cfg.PostmarkServerToken, cfg.PostmarkAccountToken, cfg.MailSender)
	if err != nil {
		slog.Warn("postmark mailer unavailable, otp codes will only be logged", "error", err)
		return mailer.NewDevMailer()
	}

	return m
}
