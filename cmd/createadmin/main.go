// Command createadmin provisions an Admin account in the configured
// Postgres database.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"superpos/backend/internal/config"
	"superpos/backend/internal/domain"
	"superpos/backend/internal/logger"
	"superpos/backend/internal/service"
	pgstore "superpos/backend/internal/store/postgres"
)

func main() {
	var req domain.EmployeeCreateRequest
	flag.StringVar(&req.Username, "username", "admin", "login name of the new admin")
	flag.StringVar(&req.Email, "email", "", "optional email address")
	flag.StringVar(&req.FirstName, "first-name", "", "optional first name")
	flag.StringVar(&req.LastName, "last-name", "", "optional last name")
	envPath := flag.String("env-file", "", "optional .env file to load first")
	flag.Parse()

	req.Password = os.Getenv("ADMIN_PASSWORD")
	if err := run(*envPath, req); err != nil {
		fmt.Fprintln(os.Stderr, "createadmin:", err)
		os.Exit(1)
	}
}

func run(envPath string, req domain.EmployeeCreateRequest) error {
	if req.Password == "" {
		return errors.New("ADMIN_PASSWORD must be set")
	}
	cfg, err := config.Load(envPath)
	if err != nil {
		return err
	}
	if _, err := logger.Init(cfg.AppEnv); err != nil {
		return err
	}
	defer logger.Sync()
	if cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL must be set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pg, err := pgstore.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pg.Close()
	if cfg.RunMigrations {
		if err := pg.Migrate(ctx); err != nil {
			return fmt.Errorf("apply migrations: %w", err)
		}
	}

	svc := service.New(pg, nil)
	admin, err := svc.BootstrapAdmin(ctx, req)
	if err != nil {
		return err
	}
	fmt.Printf("created admin %q (id %d)\n", admin.Username, admin.ID)
	return nil
}
