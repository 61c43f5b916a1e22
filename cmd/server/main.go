package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"superpos/backend/internal/auth"
	"superpos/backend/internal/cache"
	"superpos/backend/internal/config"
	"superpos/backend/internal/domain"
	"superpos/backend/internal/httpapi"
	"superpos/backend/internal/logger"
	"superpos/backend/internal/metrics"
	"superpos/backend/internal/report"
	"superpos/backend/internal/service"
	"superpos/backend/internal/store"
	"superpos/backend/internal/store/memory"
	pgstore "superpos/backend/internal/store/postgres"
)

func main() {
	cfg, err := config.Load(envFile())
	if err != nil {
		logger.Fatal(err)
	}
	if _, err := logger.Init(cfg.AppEnv); err != nil {
		logger.Fatal(err)
	}
	defer logger.Sync()

	if err := validateSecurityConfig(cfg); err != nil {
		logger.Fatal(fmt.Errorf("invalid security configuration: %w", err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	closers := make([]func() error, 0, 2)

	repo, closeRepo, err := openRepository(ctx, cfg)
	if err != nil {
		logger.Fatal(err, "component", "repository")
	}
	if closeRepo != nil {
		closers = append(closers, closeRepo)
	}

	reportCache, closeCache := openReportCache(ctx, cfg)
	if closeCache != nil {
		closers = append(closers, closeCache)
	}

	var recorder *metrics.Recorder
	if cfg.MetricsEnabled {
		recorder = metrics.New(cfg.AppEnv)
	}

	reports := report.NewEngine(repo, reportCache, cfg.ReportCacheTTL, recorder)
	svc := service.New(repo, reports,
		service.WithMetrics(recorder),
		service.WithReceiptProfile(receiptProfile(cfg)),
	)
	authManager := auth.NewManager(cfg.AuthSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL, repo)
	api := httpapi.New(svc, authManager, recorder, httpapi.Options{
		AllowedOrigin:  cfg.AllowedOrigin,
		RequestTimeout: cfg.RequestTimeout,
		TrustProxy:     cfg.TrustProxy,
	})

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("POS backend listening", "address", cfg.Address(), "env", cfg.AppEnv)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal(err, "component", "http")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			logger.Error("close error", "error", err)
		}
	}

	logger.Info("server stopped")
}

// envFile returns ENV_FILE, or .env when it exists in the working directory.
func envFile() string {
	if path := os.Getenv("ENV_FILE"); path != "" {
		return path
	}
	if _, err := os.Stat(".env"); err == nil {
		return ".env"
	}
	return ""
}

func openRepository(ctx context.Context, cfg config.Config) (store.Repository, func() error, error) {
	if cfg.DatabaseURL == "" {
		logger.Info("repository: in-memory")
		return memory.NewSeeded(), nil, nil
	}

	pg, err := pgstore.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("postgres unavailable and DATABASE_URL is set, refusing in-memory fallback: %w", err)
	}
	if cfg.RunMigrations {
		if err := pg.Migrate(ctx); err != nil {
			_ = pg.Close()
			return nil, nil, fmt.Errorf("apply migrations: %w", err)
		}
	}
	logger.Info("repository: postgres", "migrations", cfg.RunMigrations)
	return pg, pg.Close, nil
}

// openReportCache falls back to the no-op cache when Redis is unset or
// unreachable. Reports stay correct without it.
func openReportCache(ctx context.Context, cfg config.Config) (cache.ReportCache, func() error) {
	if cfg.RedisAddr == "" {
		logger.Info("cache: noop")
		return cache.NoopReportCache{}, nil
	}
	redisCache := cache.NewRedisReportCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err := redisCache.Ping(ctx); err != nil {
		logger.Warn("redis unavailable, using noop cache", "addr", cfg.RedisAddr, "error", err)
		_ = redisCache.Close()
		return cache.NoopReportCache{}, nil
	}
	logger.Info("cache: redis", "addr", cfg.RedisAddr)
	return redisCache, redisCache.Close
}

func receiptProfile(cfg config.Config) service.ReceiptProfile {
	profile := service.DefaultReceiptProfile()
	profile.Company = domain.CompanyInfo{
		Name:    cfg.CompanyName,
		Address: cfg.CompanyAddress,
		Phone:   cfg.CompanyPhone,
		Email:   cfg.CompanyEmail,
		TaxID:   cfg.CompanyTaxID,
		Website: cfg.CompanyWebsite,
	}
	profile.Settings.TaxRate = decimal.RequireFromString("0.05")
	if cfg.Currency != "" {
		profile.Settings.Currency = cfg.Currency
		profile.Settings.CurrencySymbol = cfg.Currency
	}
	if cfg.PrintWidth > 0 {
		profile.Settings.PrintWidth = cfg.PrintWidth
	}
	profile.Settings.AutoPrint = cfg.AutoPrint
	return profile
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return errors.New("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.IsProduction() && cfg.AllowedOrigin == "*" {
		return errors.New("ALLOWED_ORIGIN must not be * in production")
	}
	if cfg.IsProduction() && cfg.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required in production")
	}
	return nil
}
