package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/sk-federation/youth-portal/internal/auth"
	"github.com/sk-federation/youth-portal/internal/config"
	"github.com/sk-federation/youth-portal/internal/domain"
	"github.com/sk-federation/youth-portal/internal/observability"
	"github.com/sk-federation/youth-portal/internal/persistence"
	"github.com/sk-federation/youth-portal/internal/repository"
	"github.com/sk-federation/youth-portal/internal/service"
)

func main() {
	var (
		username  = flag.String("username", "", "login name")
		email     = flag.String("email", "", "email address")
		password  = flag.String("password", "", "initial password")
		role      = flag.String("role", string(domain.RoleSKOfficial), "ADMIN, SK_FEDERATION or SK_OFFICIAL")
		barangay  = flag.String("barangay", "", "barangay (SK officials)")
		firstName = flag.String("first-name", "", "first name")
		lastName  = flag.String("last-name", "", "last name")
	)
	flag.Parse()

	if *username == "" || *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "usage: createuser -username <name> -email <email> -password <password> [-role ROLE] [-barangay NAME]")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()
	if pg.PoolHandle() == nil {
		logger.Fatal("POSTGRES_DSN is required")
	}

	authService := service.NewAuthService(cfg.Auth, service.AuthDependencies{
		UserRepo: repository.NewUserRepository(pg.PoolHandle()),
		Routes:   auth.DefaultRouteTable(),
		Logger:   logger,
	})

	user := &domain.User{
		Username:  *username,
		Email:     *email,
		Role:      domain.Role(strings.ToUpper(*role)),
		FirstName: *firstName,
		LastName:  *lastName,
		IsActive:  true,
	}
	if *barangay != "" {
		user.Barangay = barangay
	}

	if err := authService.CreateUser(ctx, user, *password); err != nil {
		logger.Fatal("failed to create user", zap.Error(err))
	}
	logger.Info("user created", zap.String("id", user.ID), zap.String("role", string(user.Role)))
}
