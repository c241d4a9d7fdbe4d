// Command create-user adds a user, or with -reset replaces the password of
// an existing one.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go-inventory-ledger/internal/config"
	"go-inventory-ledger/internal/model"
	"go-inventory-ledger/internal/repository"
	"go-inventory-ledger/internal/service"
	"go-inventory-ledger/pkg/database"
	"go-inventory-ledger/pkg/jwt"
	"go-inventory-ledger/pkg/logger"
)

func main() {
	var (
		envFile  = flag.String("env", "", "optional .env file")
		username = flag.String("username", "", "login name")
		email    = flag.String("email", "", "email address")
		password = flag.String("password", "", "password (at least 8 characters)")
		role     = flag.String("role", model.RoleStaff, "admin, manager or staff")
		reset    = flag.Bool("reset", false, "reset the password of an existing user")
	)
	flag.Parse()

	if err := run(*envFile, *username, *email, *password, *role, *reset); err != nil {
		fmt.Fprintln(os.Stderr, "create-user:", err)
		os.Exit(1)
	}
}

func run(envFile, username, email, password, role string, reset bool) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	logger.Init("create-user", cfg.Log.IsDevelopment())
	logger.SetLevel(cfg.Log.Level)

	db, err := database.ConnectDB(cfg.Database, false)
	if err != nil {
		return err
	}
	defer database.Close(db)
	if err := database.Migrate(db); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	auth := service.NewAuthService(repository.NewUserRepo(db), jwt.NewManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL))

	if reset {
		if err := auth.SetPassword(ctx, username, password); err != nil {
			return err
		}
		logger.Logger.Info().Str("username", username).Msg("password reset")
		return nil
	}

	user, err := auth.CreateUser(ctx, &service.CreateUserRequest{
		Username: username,
		Email:    email,
		Password: password,
		Role:     role,
	})
	if err != nil {
		return err
	}
	logger.Logger.Info().
		Str("username", user.Username).
		Str("role", user.Role).
		Msg("user created")
	return nil
}
