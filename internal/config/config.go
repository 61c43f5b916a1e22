package config

import (
	"fmt"
	"strings"
	"time"

	env "github.com/Netflix/go-env"
	"github.com/joho/godotenv"

	"superpos/backend/internal/logger"
)

// Config holds every runtime setting. Values come from the process
// environment, optionally pre-populated from a .env file.
type Config struct {
	AppEnv        string `env:"APP_ENV,default=development"`
	Port          string `env:"PORT,default=8080"`
	AllowedOrigin string `env:"ALLOWED_ORIGIN,default=http://127.0.0.1:3000"`
	TrustProxy    bool   `env:"TRUST_PROXY,default=false"`

	DatabaseURL   string `env:"DATABASE_URL"`
	RunMigrations bool   `env:"RUN_MIGRATIONS,default=true"`

	RedisAddr      string        `env:"REDIS_ADDR"`
	RedisPassword  string        `env:"REDIS_PASSWORD"`
	RedisDB        int           `env:"REDIS_DB,default=0"`
	ReportCacheTTL time.Duration `env:"REPORT_CACHE_TTL,default=30s"`

	AuthSecret      string        `env:"AUTH_SECRET"`
	AccessTokenTTL  time.Duration `env:"ACCESS_TOKEN_TTL,default=1h"`
	RefreshTokenTTL time.Duration `env:"REFRESH_TOKEN_TTL,default=24h"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT,default=15s"`
	MetricsEnabled bool          `env:"METRICS_ENABLED,default=true"`

	CompanyName    string `env:"COMPANY_NAME,default=DilmaSuperPOS"`
	CompanyAddress string `env:"COMPANY_ADDRESS"`
	CompanyPhone   string `env:"COMPANY_PHONE,default=+971 XX XXX XXXX"`
	CompanyEmail   string `env:"COMPANY_EMAIL,default=info@supermarket.ae"`
	CompanyTaxID   string `env:"COMPANY_TAX_ID,default=VAT: 123456789"`
	CompanyWebsite string `env:"COMPANY_WEBSITE,default=www.supermarket.ae"`
	Currency       string `env:"CURRENCY,default=AED"`
	PrintWidth     int    `env:"RECEIPT_PRINT_WIDTH,default=80"`
	AutoPrint      bool   `env:"RECEIPT_AUTO_PRINT,default=false"`
}

// Load reads path into the environment when it is non-empty and then maps
// the environment onto Config.
func Load(path string) (Config, error) {
	if path != "" {
		logger.Info("loading env file", "path", path)
		if err := godotenv.Load(path); err != nil {
			return Config{}, fmt.Errorf("load configuration file %s: %w", path, err)
		}
	}

	var cfg Config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return Config{}, fmt.Errorf("map environment onto config: %w", err)
	}
	cfg.AuthSecret = strings.TrimSpace(cfg.AuthSecret)
	if cfg.CompanyAddress == "" {
		cfg.CompanyAddress = "Dubai, UAE"
	}
	if cfg.ReportCacheTTL <= 0 {
		cfg.ReportCacheTTL = 30 * time.Second
	}
	if cfg.AccessTokenTTL <= 0 {
		cfg.AccessTokenTTL = time.Hour
	}
	if cfg.RefreshTokenTTL <= 0 {
		cfg.RefreshTokenTTL = 24 * time.Hour
	}
	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}
