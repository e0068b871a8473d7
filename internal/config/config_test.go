package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig_Defaults(t *testing.T) {
	cfg := NewConfig()

	assert.Equal(t, int32(8188), cfg.HTTP.Port)
	assert.Equal(t, DefaultDatabasePath, cfg.Database.Path)
	assert.Equal(t, 60*time.Second, cfg.Offline.FetchTimeout)
	assert.Equal(t, int64(DefaultMaxDownloadBytes), cfg.Offline.MaxDownloadBytes)
	assert.Zero(t, cfg.Offline.MaxStorageBytes)
	assert.Empty(t, cfg.Offline.AllowedHosts)
	assert.False(t, cfg.Offline.AllowInsecureHTTP)
	assert.Empty(t, cfg.Catalog.BaseURL)
	assert.True(t, cfg.Tasks.Enabled)
	assert.Equal(t, "30 3 * * *", cfg.Verify.Schedule)
	assert.Equal(t, 2*time.Hour, cfg.Reader.SessionTTL)
}

func TestNewConfig_FromEnv(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("OFFLINE_ALLOWED_HOSTS", "cdn.example.com, *.books.example.org ,")
	t.Setenv("OFFLINE_MAX_STORAGE_BYTES", "1048576")
	t.Setenv("OFFLINE_ALLOW_INSECURE_HTTP", "true")
	t.Setenv("CATALOG_BASE_URL", "https://library.example.com")
	t.Setenv("VERIFY_ENABLED", "false")

	cfg := NewConfig()

	assert.Equal(t, int32(9000), cfg.HTTP.Port)
	assert.Equal(t, []string{"cdn.example.com", "*.books.example.org"}, cfg.Offline.AllowedHosts)
	assert.Equal(t, int64(1<<20), cfg.Offline.MaxStorageBytes)
	assert.True(t, cfg.Offline.AllowInsecureHTTP)
	assert.Equal(t, "https://library.example.com", cfg.Catalog.BaseURL)
	assert.False(t, cfg.Verify.Enabled)
}

func TestNewConfig_AllowedHostsDefaultToCatalog(t *testing.T) {
	t.Setenv("CATALOG_BASE_URL", "https://Library.Example.com:8443/api")

	cfg := NewConfig()

	assert.Equal(t, []string{"library.example.com"}, cfg.Offline.AllowedHosts)
}

func TestNewConfig_ExplicitAllowedHostsWin(t *testing.T) {
	t.Setenv("CATALOG_BASE_URL", "https://library.example.com")
	t.Setenv("OFFLINE_ALLOWED_HOSTS", "cdn.example.net")

	cfg := NewConfig()

	assert.Equal(t, []string{"cdn.example.net"}, cfg.Offline.AllowedHosts)
}
