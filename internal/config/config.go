// AngelaMos | 2026
// config.go

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	App          AppConfig          `koanf:"app"`
	Server       ServerConfig       `koanf:"server"`
	Database     DatabaseConfig     `koanf:"database"`
	Redis        RedisConfig        `koanf:"redis"`
	JWT          JWTConfig          `koanf:"jwt"`
	RateLimit    RateLimitConfig    `koanf:"rate_limit"`
	CORS         CORSConfig         `koanf:"cors"`
	Log          LogConfig          `koanf:"log"`
	Otel         OtelConfig         `koanf:"otel"`
	Billing      BillingConfig      `koanf:"billing"`
	Quota        QuotaConfig        `koanf:"quota"`
	Notification NotificationConfig `koanf:"notification"`
}

type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time"`
}

type RedisConfig struct {
	URL          string `koanf:"url"`
	PoolSize     int    `koanf:"pool_size"`
	MinIdleConns int    `koanf:"min_idle_conns"`
}

type JWTConfig struct {
	PrivateKeyPath    string        `koanf:"private_key_path"`
	PublicKeyPath     string        `koanf:"public_key_path"`
	AccessTokenExpire time.Duration `koanf:"access_token_expire"`
	Issuer            string        `koanf:"issuer"`
	Audience          string        `koanf:"audience"`
}

type RateLimitConfig struct {
	Requests int           `koanf:"requests"`
	Window   time.Duration `koanf:"window"`
	Burst    int           `koanf:"burst"`

	// AuthRequests and CheckoutRequests bound credential and checkout
	// endpoints per window.
	AuthRequests     int `koanf:"auth_requests"`
	CheckoutRequests int `koanf:"checkout_requests"`

	// PremiumMultiplier scales the per-user budget of premium accounts.
	PremiumMultiplier int `koanf:"premium_multiplier"`
}

type CORSConfig struct {
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type OtelConfig struct {
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	Enabled     bool    `koanf:"enabled"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

type BillingConfig struct {
	Invoice InvoiceProviderConfig `koanf:"invoice"`
	Order   OrderProviderConfig   `koanf:"order"`
	// LockTTL bounds how long a delivery may hold the in-flight marker.
	LockTTL        time.Duration `koanf:"lock_ttl"`
	MaxPayloadSize int64         `koanf:"max_payload_size"`
}

// InvoiceProviderConfig configures the push-style invoice provider.
type InvoiceProviderConfig struct {
	BaseURL       string        `koanf:"base_url"`
	SecretKey     string        `koanf:"secret_key"`
	CallbackToken string        `koanf:"callback_token"`
	Currency      string        `koanf:"currency"`
	MonthlyAmount int64         `koanf:"monthly_amount"`
	YearlyAmount  int64         `koanf:"yearly_amount"`
	SuccessURL    string        `koanf:"success_url"`
	FailureURL    string        `koanf:"failure_url"`
	Timeout       time.Duration `koanf:"timeout"`
}

// OrderProviderConfig configures the capture-style order provider.
type OrderProviderConfig struct {
	BaseURL       string        `koanf:"base_url"`
	ClientID      string        `koanf:"client_id"`
	ClientSecret  string        `koanf:"client_secret"`
	Currency      string        `koanf:"currency"`
	MonthlyPrice  string        `koanf:"monthly_price"`
	YearlyPrice   string        `koanf:"yearly_price"`
	RefreshMargin time.Duration `koanf:"refresh_margin"`
	Timeout       time.Duration `koanf:"timeout"`
}

type QuotaConfig struct {
	FreeStorageBytes    int64 `koanf:"free_storage_bytes"`
	PremiumStorageBytes int64 `koanf:"premium_storage_bytes"`
	FreeProjects        int   `koanf:"free_projects"`
	PremiumProjects     int   `koanf:"premium_projects"`
}

type NotificationConfig struct {
	RedisPrefix   string        `koanf:"redis_prefix"`
	PingInterval  time.Duration `koanf:"ping_interval"`
	WriteTimeout  time.Duration `koanf:"write_timeout"`
	ListenBackoff time.Duration `koanf:"listen_backoff"`
}

var (
	cfg  *Config
	once sync.Once
)

func Load(configPath string) (*Config, error) {
	var loadErr error

	once.Do(func() {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			loadErr = fmt.Errorf("load .env: %w", err)
			return
		}

		k := koanf.New(".")

		if err := loadDefaults(k); err != nil {
			loadErr = fmt.Errorf("load defaults: %w", err)
			return
		}

		if _, err := os.Stat(configPath); configPath != "" && err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				loadErr = fmt.Errorf("load config file: %w", err)
				return
			}
		}

		if err := k.Load(env.Provider("", ".", envKeyReplacer), nil); err != nil {
			loadErr = fmt.Errorf("load env vars: %w", err)
			return
		}

		cfg = &Config{}
		if err := k.Unmarshal("", cfg); err != nil {
			loadErr = fmt.Errorf("unmarshal config: %w", err)
			return
		}

		if err := validate(cfg); err != nil {
			loadErr = fmt.Errorf("validate config: %w", err)
			return
		}
	})

	if loadErr != nil {
		return nil, loadErr
	}

	return cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "Collab Backend",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,

		"jwt.access_token_expire": "15m",
		"jwt.issuer":              "collab-backend",
		"jwt.audience":            "collab-backend-api",
		"jwt.private_key_path":    "keys/private.pem",
		"jwt.public_key_path":     "keys/public.pem",

		"rate_limit.requests":           100,
		"rate_limit.window":             "1m",
		"rate_limit.burst":              20,
		"rate_limit.auth_requests":      10,
		"rate_limit.checkout_requests":  20,
		"rate_limit.premium_multiplier": 10,

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.sample_rate":  0.1,
		"otel.service_name": "collab-backend",

		"billing.lock_ttl":               "30s",
		"billing.max_payload_size":       1 << 20,
		"billing.invoice.base_url":       "https://api.xendit.co",
		"billing.invoice.currency":       "IDR",
		"billing.invoice.monthly_amount": 49000,
		"billing.invoice.yearly_amount":  490000,
		"billing.invoice.timeout":        "15s",
		"billing.order.base_url":         "https://api-m.sandbox.paypal.com",
		"billing.order.currency":         "USD",
		"billing.order.monthly_price":    "4.99",
		"billing.order.yearly_price":     "49.99",
		"billing.order.refresh_margin":   "5m",
		"billing.order.timeout":          "15s",

		"quota.free_storage_bytes":    512 << 20,
		"quota.premium_storage_bytes": 10 << 30,
		"quota.free_projects":         3,
		"quota.premium_projects":      999999,

		"notification.redis_prefix":   "notifications:",
		"notification.ping_interval":  "30s",
		"notification.write_timeout":  "10s",
		"notification.listen_backoff": "2s",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                "database.url",
	"REDIS_URL":                   "redis.url",
	"ENVIRONMENT":                 "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"JWT_PRIVATE_KEY_PATH":        "jwt.private_key_path",
	"JWT_PUBLIC_KEY_PATH":         "jwt.public_key_path",
	"JWT_ACCESS_TOKEN_EXPIRE":     "jwt.access_token_expire",
	"JWT_ISSUER":                  "jwt.issuer",
	"JWT_AUDIENCE":                "jwt.audience",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"RATE_LIMIT_AUTH_REQUESTS":    "rate_limit.auth_requests",
	"RATE_LIMIT_CHECKOUT":         "rate_limit.checkout_requests",
	"RATE_LIMIT_PREMIUM_FACTOR":   "rate_limit.premium_multiplier",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
	"XENDIT_BASE_URL":             "billing.invoice.base_url",
	"XENDIT_SECRET_KEY":           "billing.invoice.secret_key",
	"XENDIT_WEBHOOK_KEY":          "billing.invoice.callback_token",
	"XENDIT_SUCCESS_URL":          "billing.invoice.success_url",
	"XENDIT_FAILURE_URL":          "billing.invoice.failure_url",
	"PAYPAL_BASE_URL":             "billing.order.base_url",
	"PAYPAL_CLIENT_ID":            "billing.order.client_id",
	"PAYPAL_CLIENT_SECRET":        "billing.order.client_secret",
	"PAYPAL_CURRENCY":             "billing.order.currency",
	"QUOTA_FREE_STORAGE_BYTES":    "quota.free_storage_bytes",
	"QUOTA_PREMIUM_STORAGE_BYTES": "quota.premium_storage_bytes",
	"QUOTA_FREE_PROJECTS":         "quota.free_projects",
	"QUOTA_PREMIUM_PROJECTS":      "quota.premium_projects",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

func validate(c *Config) error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.JWT.PrivateKeyPath == "" {
		return fmt.Errorf("JWT_PRIVATE_KEY_PATH is required")
	}

	if c.JWT.PublicKeyPath == "" {
		return fmt.Errorf("JWT_PUBLIC_KEY_PATH is required")
	}

	if c.CORS.AllowCredentials {
		for _, origin := range c.CORS.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf(
					"CORS wildcard '*' cannot be used with AllowCredentials",
				)
			}
		}
	}

	if c.App.Environment == "production" {
		if c.Otel.Enabled && c.Otel.Insecure {
			return fmt.Errorf("OTEL_INSECURE must be false in production")
		}
		if c.Billing.Invoice.CallbackToken == "" {
			return fmt.Errorf("XENDIT_WEBHOOK_KEY is required in production")
		}
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server.read_timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server.write_timeout must be positive")
	}

	if c.Quota.FreeStorageBytes <= 0 ||
		c.Quota.PremiumStorageBytes < c.Quota.FreeStorageBytes {
		return fmt.Errorf("quota storage ceilings are inconsistent")
	}

	if c.Quota.FreeProjects <= 0 ||
		c.Quota.PremiumProjects < c.Quota.FreeProjects {
		return fmt.Errorf("quota project ceilings are inconsistent")
	}

	if c.RateLimit.Window <= 0 || c.RateLimit.Requests <= 0 {
		return fmt.Errorf("rate_limit.requests and rate_limit.window must be positive")
	}

	if c.Billing.Order.RefreshMargin < 0 {
		return fmt.Errorf("billing.order.refresh_margin must not be negative")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
