package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/itsm-ticket-service/internal/api/http"
	"github.com/spec-kit/itsm-ticket-service/internal/api/http/handlers"
	"github.com/spec-kit/itsm-ticket-service/internal/auth"
	"github.com/spec-kit/itsm-ticket-service/internal/config"
	"github.com/spec-kit/itsm-ticket-service/internal/events"
	"github.com/spec-kit/itsm-ticket-service/internal/notify"
	"github.com/spec-kit/itsm-ticket-service/internal/observability"
	"github.com/spec-kit/itsm-ticket-service/internal/persistence"
	"github.com/spec-kit/itsm-ticket-service/internal/repository"
	"github.com/spec-kit/itsm-ticket-service/internal/repository/memory"
	"github.com/spec-kit/itsm-ticket-service/internal/service"
	"github.com/spec-kit/itsm-ticket-service/internal/worker"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	metrics := observability.NewMetrics()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	var uow repository.UnitOfWork
	if pg.Enabled() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.Pool, cfg.Postgres.MigrationsDir, logger); err != nil {
				logger.Fatal("failed to run migrations", zap.Error(err))
			}
		}
		uow = persistence.NewTxManager(pg.Pool, logger)
	} else {
		logger.Warn("using in-memory store; data is lost on restart")
		uow = memory.NewStore()
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	dispatcher := events.NewInMemoryDispatcher()
	notifications := service.NewNotificationService(
		dispatcher,
		uow.Store().NotificationRules,
		notificationChannels(cfg.Notification, redis, logger),
		metrics,
		logger,
	).WithTicketURLPattern(cfg.Notification.TicketURLPattern)
	notifications.RegisterHandlers()

	notificationWorker := worker.NewNotificationWorker(dispatcher, logger, worker.Options{})
	notificationWorker.Start(ctx)

	notes := service.NewNoteService()
	approvalService := service.NewApprovalService(service.ApprovalDependencies{
		UnitOfWork: uow,
		Notes:      notes,
		Publisher:  notificationWorker,
		Metrics:    metrics,
		Logger:     logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		UnitOfWork: uow,
		Notes:      notes,
		Approvals:  approvalService,
		Publisher:  notificationWorker,
		Metrics:    metrics,
		Logger:     logger,
	})
	catalogService := service.NewCatalogService(uow)

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer, cfg.Auth.AccessTokenTTLMinutes)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:        handlers.NewTicketsHandler(ticketService, approvalService),
		Approvals:      handlers.NewApprovalsHandler(approvalService),
		Catalog:        handlers.NewCatalogHandler(catalogService),
		AuthMiddleware: auth.NewAuthMiddleware(tokens),
		Metrics:        metrics,
	})

	go func() {
		logger.Info("http server listening", zap.String("addr", cfg.App.Addr()), zap.String("env", cfg.App.Env))
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	if err := notificationWorker.Stop(shutdownCtx); err != nil {
		logger.Warn("notification worker stop", zap.Error(err))
	}
	notifications.Close()
}

// notificationChannels enables each channel whose target is configured.
func notificationChannels(cfg config.NotificationConfig, redis *persistence.Redis, logger *zap.Logger) []notify.Channel {
	var channels []notify.Channel
	if redis.Enabled() && cfg.RedisStream != "" {
		channels = append(channels, notify.NewRedisStream(redis.Client, cfg.RedisStream, cfg.StreamMaxLen))
	}
	if cfg.MattermostURL != "" {
		channels = append(channels, notify.NewMattermost(cfg.MattermostURL, cfg.MattermostTimeout))
	}
	if cfg.SMTP.Host != "" {
		channels = append(channels, notify.NewMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From, cfg.RecipientPattern))
	}
	if len(channels) == 0 {
		logger.Warn("no notification channels configured")
	}
	for _, ch := range channels {
		logger.Info("notification channel enabled", zap.String("channel", ch.Name()))
	}
	return channels
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
