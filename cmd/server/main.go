package main

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	v1 "github.com/orderrelay/orderrelay/internal/api/v1"
	"github.com/orderrelay/orderrelay/internal/audit"
	"github.com/orderrelay/orderrelay/internal/config"
	"github.com/orderrelay/orderrelay/internal/httpclient"
	"github.com/orderrelay/orderrelay/internal/idempotency"
	"github.com/orderrelay/orderrelay/internal/integration/zoho"
	"github.com/orderrelay/orderrelay/internal/logger"
	"github.com/orderrelay/orderrelay/internal/router"
	"github.com/orderrelay/orderrelay/internal/service"
	"github.com/orderrelay/orderrelay/internal/webhook"
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	app := fx.New(
		fx.Provide(
			// Config
			config.NewConfig,

			// Logger
			newLogger,

			// Outbound HTTP
			httpclient.NewDefaultClient,

			// Webhook verification
			newVerifier,

			// Zoho CRM
			newTokenSource,
			newCRMClient,

			// Audit + dedup
			newAuditLogger,
			newTracker,

			// Orchestration
			service.NewSyncService,

			// HTTP surface
			v1.NewWebhookHandler,
			router.SetupRouter,
		),
		fx.Invoke(startServer),
	)

	app.Run()
}

func newLogger(cfg *config.Configuration) (*logger.Logger, error) {
	return logger.NewLoggerWithLevel(cfg.Logging.Level)
}

func newVerifier(cfg *config.Configuration, log *logger.Logger) webhook.Verifier {
	return webhook.NewVerifier(cfg.Webhook.Secret, log)
}

func newTokenSource(cfg *config.Configuration, client httpclient.Client, log *logger.Logger) zoho.TokenSource {
	return zoho.NewTokenSource(cfg.Zoho, client, log)
}

func newCRMClient(cfg *config.Configuration, tokens zoho.TokenSource, client httpclient.Client, log *logger.Logger) zoho.Client {
	return zoho.NewClient(cfg.Zoho, tokens, client, log)
}

func newAuditLogger(cfg *config.Configuration, log *logger.Logger) (audit.Logger, error) {
	if !cfg.Audit.Enabled {
		return audit.NewNoopLogger(), nil
	}
	return audit.NewPostgresLogger(cfg.Audit.DatabaseURL, log)
}

func newTracker(cfg *config.Configuration) idempotency.Tracker {
	if !cfg.Dedup.Enabled {
		return idempotency.NewNoopTracker()
	}
	return idempotency.NewTracker(cfg.Dedup.TTL)
}

func startServer(
	lc fx.Lifecycle,
	r *gin.Engine,
	cfg *config.Configuration,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting webhook relay", "address", cfg.Server.Address)
			go func() {
				if err := r.Run(cfg.Server.Address); err != nil {
					log.Fatalf("Failed to start server: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Info("Shutting down server...")
			return nil
		},
	})
}
