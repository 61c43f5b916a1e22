package main

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"superpos/backend/internal/cache"
	"superpos/backend/internal/config"
	"superpos/backend/internal/store/memory"
)

const strongSecret = "0123456789abcdef0123456789abcdef"

func TestValidateSecurityConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{"short secret", config.Config{AuthSecret: "short"}, true},
		{"development defaults", config.Config{AuthSecret: strongSecret, AllowedOrigin: "*"}, false},
		{"production wildcard origin", config.Config{AppEnv: "production", AuthSecret: strongSecret, AllowedOrigin: "*", DatabaseURL: "postgres://x"}, true},
		{"production without database", config.Config{AppEnv: "production", AuthSecret: strongSecret, AllowedOrigin: "https://pos.example"}, true},
		{"production", config.Config{AppEnv: "production", AuthSecret: strongSecret, AllowedOrigin: "https://pos.example", DatabaseURL: "postgres://x"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateSecurityConfig(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestOpenRepositoryFallsBackToMemory(t *testing.T) {
	repo, closeFn, err := openRepository(context.Background(), config.Config{})
	require.NoError(t, err)
	assert.Nil(t, closeFn)
	assert.IsType(t, &memory.Store{}, repo)
}

func TestOpenReportCache(t *testing.T) {
	c, closeFn := openReportCache(context.Background(), config.Config{})
	assert.Nil(t, closeFn)
	assert.IsType(t, cache.NoopReportCache{}, c)

	mr := miniredis.RunT(t)
	c, closeFn = openReportCache(context.Background(), config.Config{RedisAddr: mr.Addr()})
	require.NotNil(t, closeFn)
	closeRedis := closeFn
	t.Cleanup(func() { _ = closeRedis() })
	assert.IsType(t, &cache.RedisReportCache{}, c)

	c, closeFn = openReportCache(context.Background(), config.Config{RedisAddr: "127.0.0.1:1"})
	assert.Nil(t, closeFn)
	assert.IsType(t, cache.NoopReportCache{}, c)
}

func TestReceiptProfileFromConfig(t *testing.T) {
	profile := receiptProfile(config.Config{
		CompanyName:    "Corner Shop",
		CompanyAddress: "Sharjah, UAE",
		Currency:       "AED",
		PrintWidth:     58,
		AutoPrint:      true,
	})

	assert.Equal(t, "Corner Shop", profile.Company.Name)
	assert.Equal(t, "Sharjah, UAE", profile.Company.Address)
	assert.Equal(t, 58, profile.Settings.PrintWidth)
	assert.True(t, profile.Settings.AutoPrint)
	assert.Equal(t, "0.05", profile.Settings.TaxRate.String())
}
