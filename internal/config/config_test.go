package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDefaults(t *testing.T) {
	cfg := &Config{}
	err := env.ParseWithOptions(cfg, env.Options{Environment: map[string]string{
		"DOKU_CLIENT_ID":  "BRN-0001",
		"DOKU_SECRET_KEY": "SK-secret",
		"AUTH_JWT_SECRET": "jwt-secret",
	}})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Environment.Name)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "/checkout/v1/payment", cfg.Doku.CheckoutPath)
	assert.Equal(t, "/api/doku/notify", cfg.Doku.NotifyPath)
	assert.Equal(t, 30*time.Second, cfg.Doku.Timeout)
	assert.Equal(t, 15*time.Second, cfg.Store.SettingsCacheTTL)
	assert.Equal(t, "TMP", cfg.Store.InvoicePrefix)
	assert.Equal(t, "IDR", cfg.Store.Currency)
	assert.Equal(t, "store:audit", cfg.Redis.AuditStream)
	assert.NoError(t, cfg.Validate())
}

func TestValidateMissingSecrets(t *testing.T) {
	cfg := &Config{Database: Database{Driver: "postgres"}}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DOKU_CLIENT_ID")
	assert.Contains(t, err.Error(), "DOKU_SECRET_KEY")
	assert.Contains(t, err.Error(), "AUTH_JWT_SECRET")
	assert.Contains(t, err.Error(), "DATABASE_DRIVER")
}
