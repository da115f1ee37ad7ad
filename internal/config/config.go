package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all environment-derived settings for the service.
type Config struct {
	ListenAddr  string
	BaseURL     string
	FrontendURL string
	Env         string
	LogLevel    string

	DB struct {
		DSN         string
		MaxConns    int32
		MinConns    int32
		MaxConnIdle time.Duration
	}

	Google struct {
		ClientID     string
		ClientSecret string
		RedirectURL  string
	}

	Session struct {
		JWTSecret     string
		JWTLifetime   time.Duration
		CookieSecret  string // seals the pre-auth OAuth-state cookie (securecookie)
		VaultSecret   string // derives the Credential Vault's AEAD key
		CookieDomain  string
	}

	CORSOrigins []string

	RateLimit struct {
		Window   time.Duration
		Requests int
	}

	PrometheusEnabled bool
	TrustedProxies    []string
}

// Load reads configuration from the environment, applying the teacher's
// default-then-validate shape: every setting has a sane default except the
// handful that are genuinely required to run safely.
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.ListenAddr = getenvDefault("APP_LISTEN_ADDR", ":8080")
	cfg.BaseURL = getenvDefault("APP_BASE_URL", "http://localhost:8080")
	cfg.FrontendURL = getenvDefault("APP_FRONTEND_URL", "http://localhost:5173")
	cfg.Env = getenvDefault("APP_ENV", "development")
	cfg.LogLevel = getenvDefault("APP_LOG_LEVEL", "info")

	cfg.DB.DSN = os.Getenv("APP_DB_DSN")
	if cfg.DB.DSN == "" {
		host := os.Getenv("APP_DB_HOST")
		name := os.Getenv("APP_DB_NAME")
		user := os.Getenv("APP_DB_USER")
		password := os.Getenv("APP_DB_PASSWORD")
		port := getenvDefault("APP_DB_PORT", "5432")
		sslmode := getenvDefault("APP_DB_SSLMODE", "disable")

		var missing []string
		if host == "" {
			missing = append(missing, "APP_DB_HOST")
		}
		if name == "" {
			missing = append(missing, "APP_DB_NAME")
		}
		if user == "" {
			missing = append(missing, "APP_DB_USER")
		}
		if password == "" {
			missing = append(missing, "APP_DB_PASSWORD")
		}

		if len(missing) == 0 {
			cfg.DB.DSN = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, password, host, port, name, sslmode)
		}
	}
	cfg.DB.MaxConns = int32(getenvInt("APP_DB_MAX_CONNS", 10))
	cfg.DB.MinConns = int32(getenvInt("APP_DB_MIN_CONNS", 0))
	cfg.DB.MaxConnIdle = getenvDuration("APP_DB_MAX_CONN_IDLE", 30*time.Minute)

	cfg.Google.ClientID = os.Getenv("APP_GOOGLE_CLIENT_ID")
	cfg.Google.ClientSecret = os.Getenv("APP_GOOGLE_CLIENT_SECRET")
	cfg.Google.RedirectURL = getenvDefault("APP_GOOGLE_REDIRECT_URL", cfg.BaseURL+"/api/v1/auth/google/callback")

	cfg.Session.JWTSecret = os.Getenv("APP_JWT_SECRET")
	cfg.Session.JWTLifetime = getenvDuration("APP_JWT_LIFETIME", 7*24*time.Hour)
	cfg.Session.CookieSecret = getenvDefault("APP_OAUTH_STATE_SECRET", cfg.Session.JWTSecret)
	cfg.Session.VaultSecret = getenvDefault("APP_VAULT_SECRET", cfg.Session.JWTSecret)
	cfg.Session.CookieDomain = os.Getenv("APP_COOKIE_DOMAIN")

	cfg.CORSOrigins = getenvList("APP_CORS_ORIGINS")

	cfg.RateLimit.Window = getenvDuration("APP_RATE_LIMIT_WINDOW", time.Minute)
	cfg.RateLimit.Requests = getenvInt("APP_RATE_LIMIT_REQUESTS", 100)

	cfg.PrometheusEnabled = getenvBool("APP_PROMETHEUS_ENDPOINT_ENABLED", false)
	cfg.TrustedProxies = getenvList("APP_TRUSTED_PROXIES")

	var missing []string
	if cfg.DB.DSN == "" {
		missing = append(missing, "APP_DB_DSN (or APP_DB_HOST/APP_DB_NAME/APP_DB_USER/APP_DB_PASSWORD)")
	}
	if cfg.Google.ClientID == "" {
		missing = append(missing, "APP_GOOGLE_CLIENT_ID")
	}
	if cfg.Google.ClientSecret == "" {
		missing = append(missing, "APP_GOOGLE_CLIENT_SECRET")
	}
	if cfg.Session.JWTSecret == "" {
		missing = append(missing, "APP_JWT_SECRET")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if len(cfg.Session.JWTSecret) < 32 {
		return nil, fmt.Errorf("APP_JWT_SECRET must be at least 32 characters long (got %d)", len(cfg.Session.JWTSecret))
	}

	if len(cfg.TrustedProxies) == 0 {
		fmt.Println("WARNING: No APP_TRUSTED_PROXIES configured. The service will trust all proxies - not recommended for public environments.")
	}

	return cfg, nil
}

// IsProduction reports whether cookies and redirects should use production
// (Secure, strict) semantics.
func (c *Config) IsProduction() bool {
	return !strings.EqualFold(c.Env, "development") && !strings.EqualFold(c.Env, "test")
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch strings.ToLower(v) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func getenvList(key string) []string {
	if v := os.Getenv(key); v != "" {
		var result []string
		for _, item := range strings.Split(v, ",") {
			if trimmed := strings.TrimSpace(item); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return nil
}
