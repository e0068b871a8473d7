package config

import (
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type (
	Config struct {
		HTTP
		Global
		Database
		Offline
		Catalog
		Tasks
		Verify
		Session
		Reader
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Database struct {
		Path string
	}
	Offline struct {
		FetchTimeout      time.Duration // Per-request timeout for cover and PDF fetches
		MaxDownloadBytes  int64         // Largest single binary accepted (0 = unlimited)
		MaxStorageBytes   int64         // Hard quota over all offline copies (0 = unlimited)
		AllowedHosts      []string      // Exact hosts or "*.suffix"; defaults to the catalog host, empty allows any host
		AllowInsecureHTTP bool          // Permit http:// binaries, for local development
		UserAgent         string
	}
	Catalog struct {
		BaseURL     string // Library backend; empty disables download-by-id
		Token       string
		Timeout     time.Duration
		MinInterval time.Duration // Minimum gap between lookups
	}
	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Verify struct {
		Enabled  bool
		Schedule string // Cron format: "30 3 * * *" = daily at 03:30
		Repair   bool   // Remove records whose PDF no longer matches its digest
	}
	Session struct {
		Secret        string
		Lifetime      time.Duration
		SecureCookies bool // Set to false for local dev without HTTPS
	}
	Reader struct {
		SessionTTL    time.Duration // Idle reader sessions older than this are pruned
		PruneSchedule string
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Offline cache defaults
	v.SetDefault("offline_fetch_timeout", "60s")
	v.SetDefault("offline_max_download_bytes", DefaultMaxDownloadBytes)
	v.SetDefault("offline_max_storage_bytes", 0)
	v.SetDefault("offline_allowed_hosts", "")
	v.SetDefault("offline_allow_insecure_http", false)
	v.SetDefault("offline_user_agent", "OfflineShelf/1.0")

	// Catalog defaults
	v.SetDefault("catalog_base_url", "")
	v.SetDefault("catalog_token", "")
	v.SetDefault("catalog_timeout", "10s")
	v.SetDefault("catalog_min_interval", "200ms")

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	// Store verification defaults
	v.SetDefault("verify_enabled", true)
	v.SetDefault("verify_schedule", "30 3 * * *")
	v.SetDefault("verify_repair", false)

	// Web session defaults
	v.SetDefault("session_secret", "")  // Auto-generated if empty
	v.SetDefault("session_lifetime", "720h")
	v.SetDefault("session_secure_cookies", true)

	// Reader defaults
	v.SetDefault("reader_session_ttl", "2h")
	v.SetDefault("reader_prune_schedule", "*/15 * * * *")

	cfg := &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Offline: Offline{
			FetchTimeout:      v.GetDuration("OFFLINE_FETCH_TIMEOUT"),
			MaxDownloadBytes:  v.GetInt64("OFFLINE_MAX_DOWNLOAD_BYTES"),
			MaxStorageBytes:   v.GetInt64("OFFLINE_MAX_STORAGE_BYTES"),
			AllowedHosts:      splitList(v.GetString("OFFLINE_ALLOWED_HOSTS")),
			AllowInsecureHTTP: v.GetBool("OFFLINE_ALLOW_INSECURE_HTTP"),
			UserAgent:         v.GetString("OFFLINE_USER_AGENT"),
		},
		Catalog: Catalog{
			BaseURL:     v.GetString("CATALOG_BASE_URL"),
			Token:       v.GetString("CATALOG_TOKEN"),
			Timeout:     v.GetDuration("CATALOG_TIMEOUT"),
			MinInterval: v.GetDuration("CATALOG_MIN_INTERVAL"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Verify: Verify{
			Enabled:  v.GetBool("VERIFY_ENABLED"),
			Schedule: v.GetString("VERIFY_SCHEDULE"),
			Repair:   v.GetBool("VERIFY_REPAIR"),
		},
		Session: Session{
			Secret:        v.GetString("SESSION_SECRET"),
			Lifetime:      v.GetDuration("SESSION_LIFETIME"),
			SecureCookies: v.GetBool("SESSION_SECURE_COOKIES"),
		},
		Reader: Reader{
			SessionTTL:    v.GetDuration("READER_SESSION_TTL"),
			PruneSchedule: v.GetString("READER_PRUNE_SCHEDULE"),
		},
	}

	if len(cfg.Offline.AllowedHosts) == 0 {
		cfg.Offline.AllowedHosts = catalogHosts(cfg.Catalog.BaseURL)
	}

	return cfg
}

// catalogHosts returns the host of the catalog base URL as a one-entry allow-list.
func catalogHosts(baseURL string) []string {
	if baseURL == "" {
		return nil
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Hostname() == "" {
		return nil
	}
	return []string{strings.ToLower(u.Hostname())}
}

// splitList parses a comma-separated env value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
