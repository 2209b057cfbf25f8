package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/helpdesk-service/internal/api/http"
	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/mail"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/outbox"
	"github.com/spec-kit/helpdesk-service/internal/persistence"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return err
	}
	defer pg.Close()
	pool := pg.PoolHandle()
	if pool == nil {
		return errors.New("POSTGRES_DSN is required to serve")
	}
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(pool, logger); err != nil {
			return err
		}
	}

	rdb := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer rdb.Close()

	metrics := observability.NewMetrics()

	ticketRepo := repository.NewTicketRepository(pool)
	staffRepo := repository.NewStaffRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	allowListRepo := repository.NewAllowListRepository(pool)

	deliverer := outbox.NewDeliverer(mail.NewSMTPSender(cfg.SMTP), metrics, logger)
	var (
		box          outbox.Outbox
		outboxWorker *worker.OutboxWorker
	)
	if cfg.Notification.Outbox == config.OutboxRedis {
		redisBox := outbox.NewRedisOutbox(rdb.Client, cfg.Notification.OutboxKey)
		box = redisBox
		outboxWorker = worker.NewOutboxWorker(redisBox, deliverer, logger)
	} else {
		box = outbox.NewInlineOutbox(deliverer)
	}

	dispatcher := events.NewInMemoryDispatcher()
	renderer := mail.NewRenderer(cfg.App.Name, cfg.App.BaseURL)
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, renderer, box, logger))

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:         ticketRepo,
		ReplyRepo:          repository.NewReplyRepository(pool),
		AttachmentRepo:     repository.NewAttachmentRepository(pool),
		CategoryRepo:       categoryRepo,
		StaffRepo:          staffRepo,
		AllowListRepo:      allowListRepo,
		TxRunner:           repository.NewTxRunner(pool),
		Dispatcher:         dispatcher,
		Metrics:            metrics,
		Logger:             logger,
		AttachmentMaxBytes: cfg.Tickets.AttachmentMaxBytes,
		TrackIDMaxAttempts: cfg.Tickets.TrackIDMaxAttempts,
	})
	staffService := service.NewStaffService(service.StaffDependencies{
		StaffRepo:     staffRepo,
		AllowListRepo: allowListRepo,
		CategoryRepo:  categoryRepo,
		BcryptCost:    cfg.Auth.BcryptCost,
	})
	authService := service.NewAuthService(cfg.Auth, staffRepo)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: httptransport.ErrorHandler,
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, httptransport.MiddlewareConfig{
		Timeout:          cfg.App.RequestTimeout(),
		CORSAllowOrigins: cfg.App.CORSAllowOrigins,
	})
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, rdb),
		Tickets:        handlers.NewTicketsHandler(ticketService, staffService),
		StaffTickets:   handlers.NewStaffTicketsHandler(ticketService, service.NewExportService(ticketRepo), logger),
		Staff:          handlers.NewStaffHandler(authService, staffService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), staffRepo),
		Metrics:        metrics.Handler(),
	})

	var wg sync.WaitGroup
	workerCtx, cancelWorker := context.WithCancel(context.Background())
	defer cancelWorker()
	if outboxWorker != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			outboxWorker.Run(workerCtx)
		}()
	}

	listenErr := make(chan error, 1)
	go func() {
		listenErr <- app.Listen(cfg.App.Addr())
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-listenErr:
		cancelWorker()
		wg.Wait()
		return fmt.Errorf("fiber listen: %w", err)
	}

	if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	cancelWorker()
	wg.Wait()
	return nil
}
