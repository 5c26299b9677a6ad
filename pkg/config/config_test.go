package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_ValoresPorDefecto(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "prospectos-api", cfg.App.Name)
	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, 3*time.Second, cfg.Access.PermissionTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Access.CacheTTL)
	assert.Equal(t, 3, cfg.Access.MaxRetries)
	assert.Equal(t, "CUS", cfg.Lifecycle.LifetimePrefix)
	assert.False(t, cfg.Lifecycle.QualifiedTerminal)
	assert.Empty(t, cfg.Redis.URL)
	assert.Equal(t, 6*time.Second, cfg.DB.StatementTimeout)
	assert.Equal(t, 25, cfg.DB.MaxConns)
}

func TestLoad_DesdeEntorno(t *testing.T) {
	t.Setenv("STORE_DRIVER", "Memory")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ACCESS_PERMISSION_TIMEOUT_MS", "250")
	t.Setenv("ACCESS_MAX_RETRIES", "5")
	t.Setenv("LIFECYCLE_LIFETIME_PREFIX", "AFI")
	t.Setenv("LIFECYCLE_QUALIFIED_TERMINAL", "true")
	t.Setenv("LIFECYCLE_PLACEHOLDER_EMAILS", "sin@correo.com, ,na@na.com")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Redis.URL)
	assert.Equal(t, 250*time.Millisecond, cfg.Access.PermissionTimeout)
	assert.Equal(t, 500*time.Millisecond, cfg.DB.StatementTimeout, "el tope de sentencia sigue al de permisos")
	assert.Equal(t, 5, cfg.Access.MaxRetries)
	assert.Equal(t, "AFI", cfg.Lifecycle.LifetimePrefix)
	assert.True(t, cfg.Lifecycle.QualifiedTerminal)
	assert.Equal(t, []string{"sin@correo.com", "na@na.com"}, cfg.Lifecycle.PlaceholderEmails)
}

func TestLoad_DriverDesconocido(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_ProductionSinSecreto(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "")
	_, err := Load()
	assert.Error(t, err)
}

func TestDBConfig_DSN(t *testing.T) {
	c := DBConfig{Host: "db", Port: 5432, User: "app", Password: "p@ss/word", DBName: "prospectos", SSLMode: "disable"}
	assert.Equal(t, "postgres://app:p%40ss%2Fword@db:5432/prospectos?sslmode=disable", c.DSN())
	assert.Equal(t, c.DSN(), c.ConnectionString())

	c.DatabaseURL = "postgres://x"
	assert.Equal(t, "postgres://x", c.ConnectionString())
}
