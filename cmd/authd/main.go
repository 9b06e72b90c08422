package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/alarmdesk/console/internal/api"
	"github.com/alarmdesk/console/internal/auth"
	"github.com/alarmdesk/console/internal/publisher"
	internalsecrets "github.com/alarmdesk/console/internal/secrets"
	"github.com/alarmdesk/console/internal/store"
	"github.com/alarmdesk/console/internal/users"
	"github.com/alarmdesk/console/pkg/config"
	"github.com/alarmdesk/console/pkg/logger"
	"github.com/alarmdesk/console/pkg/secrets"
	"github.com/alarmdesk/console/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()
	cfg.ServiceName = "authd"

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	logg := logger.S()
	logg.Info("starting [authd]...")
	logg.Info("connection to DSN: ", utils.MaskDSN(cfg.DatabaseURL))

	// --- Signing key (AWS Secrets Manager, inline fallback for dev) ---
	keyCache := secrets.NewCache[[]byte](cfg.CacheTTL)
	stopCleaner := make(chan struct{})
	go keyCache.StartCleaner(cfg.CleanupFreq, stopCleaner)

	var resolver *internalsecrets.SigningKeyResolver
	awsProvider, err := secrets.NewAWSProvider(cfg.AWSRegion)
	if err != nil {
		if cfg.JWTSecret == "" {
			logg.Fatalw("failed to create AWS Secrets Manager provider and no JWT_SECRET set", "error", err)
		}
		logg.Warnw("AWS Secrets Manager unavailable, using inline JWT_SECRET", "error", err)
	} else {
		resolver = internalsecrets.NewSigningKeyResolver(
			logger.L(), cfg.JWTSecretName, cfg.JWTSecret, awsProvider, keyCache)

		if names, err := awsProvider.ListSecrets(ctx, "alarmdesk/authd/"); err != nil {
			logg.Warnw("failed to list configured secrets", "error", err)
		} else {
			logg.Infow("discovered configured secrets", "count", len(names), "secrets", names)
		}
	}

	signingKey := cfg.JWTSecret
	if resolver != nil {
		key, err := resolver.Resolve(ctx)
		if err != nil {
			logg.Fatalw("failed to resolve signing key", "secret", cfg.JWTSecretName, "error", err)
		}
		signingKey = string(key)
	}

	// --- Store (Redis + Postgres hybrid) ---
	st, err := store.NewHybrid(cfg.RedisAddr, cfg.RedisDB, cfg.DatabaseURL, store.PGPoolConfig{
		MaxConns:          int32(cfg.PGMaxConns),
		MinConns:          int32(cfg.PGMinConns),
		MaxConnLifetime:   cfg.PGMaxConnLifetime,
		MaxConnIdleTime:   cfg.PGMaxConnIdleTime,
		HealthCheckPeriod: cfg.PGHealthCheckPeriod,
	}, logger.L())
	if err != nil {
		logg.Fatalw("failed to init store", "error", err)
	}

	// --- User repository ---
	repo := users.NewPGRepository(st.(*store.HybridStore).PG, logger.L())

	// --- Auth service ---
	issuer := auth.NewTokenIssuer(signingKey, cfg.TokenTTL)
	authSvc := auth.NewService(logger.L(), repo, st, issuer, cfg.LockoutThreshold, cfg.LockoutWindow)

	// --- Seed account (opt-in) ---
	if cfg.BootstrapAdmin {
		bootstrapAdmin(ctx, cfg, awsProvider, authSvc)
	}

	// --- Connect to NATS ---
	nc, err := nats.Connect(cfg.NATSURL)
	if err != nil {
		logg.Fatalw("failed to connect to NATS", "error", err)
	}

	// --- Audit publisher ---
	pub, err := publisher.New(nc, cfg.AuditSubject, cfg.ServiceName)
	if err != nil {
		logg.Fatalw("failed to init publisher", "error", err)
	}

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		BodyLimit:    cfg.HTTPBodyLimit,
	})

	authHandler := api.NewAuthHandler(logger.L(), authSvc, pub)
	api.RegisterRoutes(app, nc, st, authHandler)

	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	logg.Infow("[authd] running",
		"nats", cfg.NATSURL,
		"env", cfg.Env,
		"lockout_threshold", cfg.LockoutThreshold,
		"token_ttl", cfg.TokenTTL)

	<-ctx.Done()
	logg.Info("shutting down [authd]...")

	close(stopCleaner)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if err := nc.Drain(); err != nil {
		logg.Warnw("nats.drain_failed", "error", err)
	}
	if err := st.Close(); err != nil {
		logg.Warnw("store.close_failed", "error", err)
	}
}

// bootstrapAdmin provisions the seed account at startup. Credentials come
// from Secrets Manager; without it (local dev) the inline
// BOOTSTRAP_ADMIN_USER/BOOTSTRAP_ADMIN_PASS values are used. Re-runs
// against an existing account are no-ops.
func bootstrapAdmin(ctx context.Context, cfg *config.Config, provider secrets.Provider, svc *auth.Service) {
	logg := logger.S()

	admin := internalsecrets.BootstrapAdmin{
		Username: cfg.BootstrapUser,
		Password: cfg.BootstrapPass,
		Role:     "admin",
	}
	if provider != nil {
		resolved, err := internalsecrets.ResolveBootstrapAdmin(ctx, logger.L(), provider, cfg.BootstrapSecretName)
		if err != nil {
			logg.Warnw("failed to resolve bootstrap secret, using inline credentials", "error", err)
		} else {
			admin = resolved
		}
	}

	if _, err := svc.Bootstrap(ctx, admin.Username, admin.Password, admin.Role); err != nil {
		if errors.Is(err, users.ErrAlreadyExists) {
			logg.Infow("seed account already provisioned", "user", admin.Username)
			return
		}
		logg.Fatalw("failed to provision seed account", "user", admin.Username, "error", err)
	}
}
