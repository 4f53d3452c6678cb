package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/sk-federation/youth-portal/internal/api/http"
	"github.com/sk-federation/youth-portal/internal/api/http/handlers"
	"github.com/sk-federation/youth-portal/internal/auth"
	"github.com/sk-federation/youth-portal/internal/config"
	"github.com/sk-federation/youth-portal/internal/events"
	"github.com/sk-federation/youth-portal/internal/observability"
	"github.com/sk-federation/youth-portal/internal/persistence"
	"github.com/sk-federation/youth-portal/internal/repository"
	"github.com/sk-federation/youth-portal/internal/service"
	"github.com/sk-federation/youth-portal/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
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
	if pg.PoolHandle() == nil {
		logger.Fatal("POSTGRES_DSN is required; sessions cannot be resolved without the user store")
	}

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), persistence.DefaultMigrationsDir, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	worker.StartAuditWorker(service.NewAuditService(dispatcher, logger))

	routes := auth.DefaultRouteTable()
	cookie := auth.SessionCookie{Name: cfg.Auth.CookieName, Secure: cfg.Auth.CookieSecure}
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL())
	gate := auth.NewGate(tokens, routes, cookie, logger.Named("gate"), metrics)
	sessions := auth.NewSessionResolver(tokens, routes, userRepo, cookie, logger.Named("session"))

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo:          userRepo,
		PasswordResetRepo: resetRepo,
		Tokens:            tokens,
		Routes:            routes,
		Limiter: service.NewSignInLimiter(redis.Client, service.SignInLimiterConfig{
			MaxAttempts: cfg.Auth.SignInMaxAttempts,
			Cooldown:    cfg.Auth.SignInCooldown(),
		}),
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}, metrics),
		Auth:   handlers.NewAuthHandler(authService, sessions, cookie, logger, cfg.Auth.ExposeResetToken),
		Pages:  handlers.NewPagesHandler(sessions, routes, cookie),
		Gate:   gate,
		Routes: routes,
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
