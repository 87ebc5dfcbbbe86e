package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/api/dto"
	httptransport "github.com/spec-kit/helpdesk/internal/api/http"
	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
	"github.com/spec-kit/helpdesk/internal/persistence"
	"github.com/spec-kit/helpdesk/internal/repository"
	"github.com/spec-kit/helpdesk/internal/repository/memory"
	"github.com/spec-kit/helpdesk/internal/service"
	"github.com/spec-kit/helpdesk/internal/suggest"
	"github.com/spec-kit/helpdesk/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cfg)
	},
}

func serve(cfg *config.Config) error {
	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to connect postgres", zap.Error(err))
		return err
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.Pool, logger); err != nil {
			logger.Error("failed to run migrations", zap.Error(err))
			return err
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	var store repository.Store
	if pg.Enabled() {
		store = repository.NewPostgresStore(pg.Pool, time.Now)
	} else {
		store = memory.NewStore(time.Now)
	}

	var limiter auth.LoginLimiter
	if redis.Client != nil {
		limiter = auth.NewRedisLoginLimiter(redis.Client, cfg.Auth.MaxFailedLogins, time.Duration(cfg.Auth.FailedLoginWindowMins)*time.Minute)
	} else {
		limiter = auth.NewMemoryLoginLimiter(cfg.Auth.MaxFailedLogins, time.Duration(cfg.Auth.FailedLoginWindowMins)*time.Minute, nil)
	}

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher(logger)

	identities := service.NewIdentityService(service.IdentityDependencies{
		Store:       store,
		BcryptCost:  cfg.Auth.BcryptCost,
		ReadRetries: cfg.Postgres.ReadRetries,
		Logger:      logger,
	})
	sessions := service.NewSessionService(service.SessionDependencies{
		Store: store,
		Tokens: auth.NewTokenManager(auth.TokenOptions{
			Secret:   cfg.Auth.JWTSecret,
			Issuer:   cfg.Auth.Issuer,
			Audience: cfg.Auth.Audience,
			TTL:      cfg.Auth.AccessTTL(),
			Leeway:   cfg.Auth.ClockSkew(),
		}),
		RefreshTTL: cfg.Auth.RefreshTTL(),
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})
	policy := service.NewSLAPolicy(store.Departments(), cfg.SLA.Hours(), cfg.SLA.PolicyCacheSz, cfg.SLA.CacheTTL(), cfg.Postgres.ReadRetries)

	var suggester service.Suggester
	if client := suggest.NewClient(cfg.Suggest, logger); client != nil {
		suggester = client
	}
	tickets := service.NewTicketService(service.TicketDependencies{
		Store:       store,
		Policy:      policy,
		Dispatcher:  dispatcher,
		Metrics:     metrics,
		Suggester:   suggester,
		Logger:      logger,
		ReadRetries: cfg.Postgres.ReadRetries,
	})
	departments := service.NewDepartmentService(store, policy, logger)
	helpdesk := service.NewHelpdesk(service.HelpdeskDependencies{
		Identities: identities,
		Sessions:   sessions,
		Tickets:    tickets,
		Store:      store,
		Limiter:    limiter,
		Metrics:    metrics,
		Logger:     logger,
	})

	worker.StartNotificationWorker(dispatcher, store, nil, logger)

	scheduler := worker.NewScheduler(logger)
	grace := time.Duration(cfg.Auth.SessionPurgeGraceHours) * time.Hour
	if err := scheduler.AddSessionPurge(cfg.Jobs.SessionPurgeSpec, sessions, grace); err != nil {
		return err
	}
	scheduler.Start()

	checks := map[string]handlers.Pinger{"store": store}
	if redis.Client != nil {
		checks["redis"] = redis
	}

	validator := dto.NewValidator()
	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, checks),
		Auth:           handlers.NewAuthHandler(helpdesk, validator),
		Tickets:        handlers.NewTicketsHandler(tickets, validator),
		Departments:    handlers.NewDepartmentsHandler(departments, validator),
		AuthMiddleware: auth.NewAuthMiddleware(helpdesk),
		Metrics:        metrics,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- app.Listen(cfg.App.Addr())
	}()

	select {
	case err := <-errCh:
		logger.Error("fiber listen", zap.Error(err))
		return err
	case <-waitForShutdown(logger):
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	scheduler.Stop(shutdownCtx)
	return app.ShutdownWithContext(shutdownCtx)
}

func waitForShutdown(logger *zap.Logger) <-chan struct{} {
	done := make(chan struct{})
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("shutting down", zap.String("signal", sig.String()))
		close(done)
	}()
	return done
}
