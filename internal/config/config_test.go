package config_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/davidmreis/bizbook/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "test-secret")

	cfg, err := config.Load()
	require.NoError(t, err)

	assert.Equal(t, "bizbook", cfg.App.Name)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "https://api.github.com", cfg.Remote.APIBase)
	assert.Equal(t, "main", cfg.Remote.Branch)
	assert.Equal(t, "data/store.json", cfg.Sync.Path)
	assert.Equal(t, 3*time.Second, cfg.Sync.Debounce)
	assert.Equal(t, "bizbook-vault", cfg.Vault.Branch)
	assert.Equal(t, "test-secret", cfg.Session.Secret)
	assert.Equal(t, 24*time.Hour, cfg.Session.TTL)
}

func TestLoad_RequiresSessionSecret(t *testing.T) {
	// t.Setenv registers the restore, the unset makes the key truly absent
	t.Setenv("SESSION_SECRET", "placeholder")
	require.NoError(t, os.Unsetenv("SESSION_SECRET"))

	_, err := config.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SESSION_SECRET")
}
