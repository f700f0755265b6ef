package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/requisition-service/internal/api/http"
	"github.com/spec-kit/requisition-service/internal/api/http/handlers"
	"github.com/spec-kit/requisition-service/internal/auth"
	"github.com/spec-kit/requisition-service/internal/config"
	"github.com/spec-kit/requisition-service/internal/events"
	"github.com/spec-kit/requisition-service/internal/observability"
	"github.com/spec-kit/requisition-service/internal/persistence"
	"github.com/spec-kit/requisition-service/internal/repository"
	"github.com/spec-kit/requisition-service/internal/service"
	"github.com/spec-kit/requisition-service/internal/store"
	"github.com/spec-kit/requisition-service/internal/worker"
)

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	metrics := observability.NewMetrics()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	requisitionRepo := repository.NewRequisitionRepository(pool)
	changelogRepo := repository.NewChangelogRepository(pool)
	counterRepo := repository.NewCounterRepository(pool)
	authTokenRepo := repository.NewAuthTokenRepository(pool)
	replacementTokenRepo := repository.NewReplacementTokenRepository(pool)

	dispatcher := events.NewInMemoryDispatcher()
	cache := store.NewRequisitionCache(redis.Client, logger, cfg.Auth.RequisitionCacheTTL())

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:      userRepo,
		AuthTokenRepo: authTokenRepo,
	})
	userService := service.NewUserService(userRepo, cfg.Auth.BcryptCost)
	replacementService := service.NewReplacementService(service.ReplacementDependencies{
		TokenRepo:       replacementTokenRepo,
		RequisitionRepo: requisitionRepo,
		ChangelogRepo:   changelogRepo,
		UserRepo:        userRepo,
		Cache:           cache,
		Dispatcher:      dispatcher,
		Logger:          logger,
		TokenTTL:        cfg.Auth.ReplacementTokenTTL(),
	})
	requisitionService := service.NewRequisitionService(service.RequisitionDependencies{
		RequisitionRepo: requisitionRepo,
		ChangelogRepo:   changelogRepo,
		CounterRepo:     counterRepo,
		UserRepo:        userRepo,
		Replacements:    replacementService,
		Cache:           cache,
		Dispatcher:      dispatcher,
		Logger:          logger,
	})
	dashboardService := service.NewDashboardService(requisitionRepo)
	notificationService := service.NewNotificationService(cfg.Notification, logger)

	worker.StartNotificationWorker(dispatcher, notificationService)

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, authTokenRepo)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Users:          handlers.NewUsersHandler(userService, replacementService),
		Requisitions:   handlers.NewRequisitionsHandler(requisitionService),
		Replacement:    handlers.NewReplacementHandler(replacementService),
		Dashboard:      handlers.NewDashboardHandler(dashboardService),
		AuthMiddleware: authMiddleware,
		Metrics:        metrics,
		LoginLimiter:   httptransport.LoginRateLimiter(redis.Client, cfg.Auth.LoginAttemptsPerMinute, logger),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
