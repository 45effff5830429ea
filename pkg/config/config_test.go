package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	os.Clearenv()

	cfg, err := Load("analytics-service")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Environment)
	assert.Equal(t, "analytics-service", cfg.Server.ServiceName)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "busticketing", cfg.Database.DBName)
	assert.Equal(t, 25, cfg.Database.MaxConns)

	assert.False(t, cfg.NATS.Enabled)
	assert.Equal(t, "TICKETING", cfg.NATS.StreamName)

	assert.Equal(t, 5*time.Minute, cfg.Cache.DefaultTTL())
	assert.Equal(t, time.Hour, cfg.Cache.CleanupInterval())

	assert.Equal(t, 2.5, cfg.Funnel.VisitorMultiplier)
	assert.Equal(t, 3.5, cfg.Funnel.VisitMultiplier)
	assert.Equal(t, 2.5, cfg.Funnel.SearchMultiplier)
	assert.Equal(t, 1.5, cfg.Funnel.SelectionMultiplier)
	assert.Equal(t, 1.2, cfg.Funnel.InitiatedMultiplier)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	os.Clearenv()
	t.Setenv("PORT", "9000")
	t.Setenv("DB_MAX_CONNS", "50")
	t.Setenv("NATS_ENABLED", "true")
	t.Setenv("CACHE_DEFAULT_TTL_SECONDS", "60")
	t.Setenv("FUNNEL_VISITOR_MULTIPLIER", "4.0")

	cfg, err := Load("analytics-service")
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 50, cfg.Database.MaxConns)
	assert.True(t, cfg.NATS.Enabled)
	assert.Equal(t, time.Minute, cfg.Cache.DefaultTTL())
	assert.Equal(t, 4.0, cfg.Funnel.VisitorMultiplier)
}

func TestDatabaseDSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db.internal",
		Port:     "5433",
		User:     "analytics",
		Password: "secret",
		DBName:   "tickets",
		SSLMode:  "require",
	}

	assert.Equal(t,
		"host=db.internal port=5433 user=analytics password=secret dbname=tickets sslmode=require",
		cfg.DSN(),
	)
}

func TestCacheConfigRejectsNonPositiveValues(t *testing.T) {
	cfg := CacheConfig{DefaultTTLSeconds: 0, CleanupIntervalHours: -1}

	assert.Equal(t, 5*time.Minute, cfg.DefaultTTL())
	assert.Equal(t, time.Hour, cfg.CleanupInterval())
}
