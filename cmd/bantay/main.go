package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v3"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lborres/bantay"
	"github.com/lborres/bantay/adapters/apple"
	fiberadapter "github.com/lborres/bantay/adapters/fiber"
	"github.com/lborres/bantay/adapters/google"
	pgxadapter "github.com/lborres/bantay/adapters/pgx"
	sqliteadapter "github.com/lborres/bantay/adapters/sqlite"
	"github.com/lborres/bantay/pkg/config"
	"github.com/lborres/bantay/pkg/crypto"
	"github.com/lborres/bantay/pkg/jwks"
	"github.com/lborres/bantay/pkg/logger"
)

func logFormat() string {
	format := []string{
		// Timestamp & Request ID
		"${time}|${requestid}",

		// Response metadata
		"${status}|${latency}",

		// Client info
		"${ip}:${port}",

		// Request details
		"${method}|${path}",

		// errors
		"${error}",
	}
	return strings.Join(format, "|") + "\n"
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	log = log.WithHashSalt(cfg.Secret)
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("bantay stopped with error", "error", err)
	}
	log.Info("bantay stopped cleanly")
}

func run(ctx context.Context, cfg config.Config, log *logger.Logger) error {
	storage, cleanup, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	hasher, err := crypto.NewPasswordHandler(cfg.PasswordHasher)
	if err != nil {
		return err
	}

	verifiers, err := buildVerifiers(cfg, log)
	if err != nil {
		return err
	}

	app := fiber.New(fiber.Config{
		AppName:      "bantay",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format:     logFormat(),
		TimeFormat: "2006/01/02 15:04:05",
		TimeZone:   "Local",
	}))

	b, err := bantay.New(bantay.Config{
		Secret:         cfg.Secret,
		Database:       storage,
		HTTP:           fiberadapter.New(app, log),
		PasswordHasher: hasher,
		Verifiers:      verifiers,
		Logger:         log,
		BasePath:       cfg.BasePath,
		SessionConfig: &bantay.SessionConfig{
			Issuer:     cfg.Issuer,
			AccessTTL:  cfg.AccessTTL,
			RefreshTTL: cfg.RefreshTTL,
		},
	})
	if err != nil {
		return fmt.Errorf("could not create bantay instance: %w", err)
	}

	if err := bootstrapAdmin(ctx, b, cfg, log); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.Addr, fiber.ListenConfig{DisableStartupMessage: true})
	}()
	log.Info("bantay started", "addr", cfg.Addr, "base_path", b.BasePath)

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return app.ShutdownWithContext(shutdownCtx)
}

// openStorage picks Postgres when a database URL is configured and falls
// back to a local SQLite file otherwise.
func openStorage(ctx context.Context, cfg config.Config, log *logger.Logger) (bantay.AccountStorage, func(), error) {
	if cfg.UsePostgres() {
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("pgxpool.New: %w", err)
		}
		store := pgxadapter.New(pool)
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		log.Info("using postgres account storage")
		return store, pool.Close, nil
	}

	store, err := sqliteadapter.Open(cfg.SQLitePath)
	if err != nil {
		return nil, nil, err
	}
	log.Info("using sqlite account storage", "path", cfg.SQLitePath)
	return store, func() { _ = store.Close() }, nil
}

// buildVerifiers wires only the providers that have a client id configured.
// The others answer 501.
func buildVerifiers(cfg config.Config, log *logger.Logger) ([]bantay.TokenVerifier, error) {
	var verifiers []bantay.TokenVerifier

	if cfg.GoogleClientID != "" {
		v, err := google.NewVerifier(google.Config{ClientID: cfg.GoogleClientID, Logger: log})
		if err != nil {
			return nil, err
		}
		verifiers = append(verifiers, v)
	} else {
		log.Warn("google sign-in disabled: BANTAY_GOOGLE_CLIENT_ID is not set")
	}

	if cfg.AppleBundleID != "" {
		v, err := apple.NewVerifier(apple.Config{
			BundleID: cfg.AppleBundleID,
			Keys:     jwks.NewKeySet(apple.KeysURL, jwks.Options{TTL: cfg.JWKSTTL}),
			Logger:   log,
		})
		if err != nil {
			return nil, err
		}
		verifiers = append(verifiers, v)
	} else {
		log.Warn("apple sign-in disabled: BANTAY_APPLE_BUNDLE_ID is not set")
	}

	return verifiers, nil
}

func bootstrapAdmin(ctx context.Context, b *bantay.Bantay, cfg config.Config, log *logger.Logger) error {
	if cfg.BootstrapAdminEmail == "" || cfg.BootstrapAdminPassword == "" {
		return nil
	}
	_, err := b.CreateSuperuser(ctx, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword, "")
	switch {
	case errors.Is(err, bantay.ErrEmailTaken):
		log.Debug("bootstrap admin already exists", "email", cfg.BootstrapAdminEmail)
		return nil
	case err != nil:
		return fmt.Errorf("bootstrap admin: %w", err)
	}
	log.Info("bootstrap admin created", "email", cfg.BootstrapAdminEmail)
	return nil
}
