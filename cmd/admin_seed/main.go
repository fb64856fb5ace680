// Command admin_seed creates the initial administrator account.
package main

import (
	"context"
	"errors"
	"os"
	"strings"

	"lumepay/internal/config"
	"lumepay/internal/logging"
	"lumepay/internal/models"
	"lumepay/internal/repositories"

	"golang.org/x/crypto/bcrypt"
)

func main() {
	config.LoadEnv()
	cfg := config.Load()
	log := logging.Setup(cfg.Env)

	adminEmail := strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL")))
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	adminName := config.GetEnv("ADMIN_NAME", "LumePay Admin")

	if adminEmail == "" || adminPassword == "" {
		log.Fatal().Msg("ADMIN_EMAIL and ADMIN_PASSWORD must be set in environment")
	}

	db, err := repositories.InitDB(cfg.DB, logging.Component(log, "gorm"))
	if err != nil {
		log.Fatal().Err(err).Msg("database init failed")
	}
	defer func() {
		if err := repositories.CloseDB(db); err != nil {
			log.Error().Err(err).Msg("failed to close database connection")
		}
	}()

	ctx := context.Background()
	users := repositories.NewUserRepository(db)

	_, err = users.GetByEmail(ctx, adminEmail)
	switch {
	case err == nil:
		log.Info().Str("email", adminEmail).Msg("admin user already exists")
		return
	case !errors.Is(err, repositories.ErrUserNotFound):
		log.Fatal().Err(err).Msg("failed to look up admin")
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to hash password")
	}

	admin := &models.User{
		Name:         adminName,
		Email:        adminEmail,
		Password:     string(hashedPassword),
		IsAdmin:      true,
		TokenVersion: 1,
	}
	if err := users.Create(ctx, admin); err != nil {
		log.Fatal().Err(err).Msg("failed to create admin user")
	}

	log.Info().Str("id", admin.ID).Str("email", adminEmail).Msg("admin account created")
}
