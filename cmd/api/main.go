package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/rileyafox/patient-portal/internal/api/http"
	"github.com/rileyafox/patient-portal/internal/api/http/handlers"
	"github.com/rileyafox/patient-portal/internal/config"
	"github.com/rileyafox/patient-portal/internal/notify"
	"github.com/rileyafox/patient-portal/internal/observability"
	"github.com/rileyafox/patient-portal/internal/persistence"
	"github.com/rileyafox/patient-portal/internal/queue"
	"github.com/rileyafox/patient-portal/internal/repository"
	"github.com/rileyafox/patient-portal/internal/service"
	"github.com/rileyafox/patient-portal/internal/timezone"
	"github.com/rileyafox/patient-portal/internal/worker"
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

	metrics := observability.NewMetrics()

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

	redis := persistence.NewRedis(cfg.Queue, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	shiftRepo := repository.NewShiftRepository(pool)

	resolver := timezone.NewResolver(logger, metrics)

	var reminderQueue *queue.RedisQueue
	if cfg.Queue.Enabled() && redis.Client != nil {
		reminderQueue = queue.NewRedisQueue(redis.Client, cfg.Queue, logger)
	}

	bookingDeps := service.BookingDependencies{
		UserRepo:  userRepo,
		ShiftRepo: shiftRepo,
		Resolver:  resolver,
		Logger:    logger,
		Metrics:   metrics,
	}
	if reminderQueue != nil {
		bookingDeps.Queue = reminderQueue
	}
	bookingService := service.NewBookingService(bookingDeps)

	channels := []notify.Channel{
		notify.NewEmailChannel(cfg.Email, logger),
		notify.NewSMSChannel(cfg.SMS, logger),
	}
	reminderService := service.NewReminderService(shiftRepo, channels, logger, metrics)

	worker.StartReminderWorker(ctx, reminderQueue, reminderService)

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	healthHandler := handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis)
	usersHandler := handlers.NewUsersHandler(bookingService)
	shiftsHandler := handlers.NewShiftsHandler(bookingService)

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: healthHandler,
		Users:  usersHandler,
		Shifts: shiftsHandler,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
