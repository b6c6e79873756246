package config

import (
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator"
	_ "github.com/joho/godotenv/autoload"
	"github.com/knadh/koanf"
	"github.com/knadh/koanf/providers/env"
)

type Config struct {
	Primary  Primary        `koanf:"primary"`
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	PayGate  PayGateConfig  `koanf:"paygate"`
	Webhook  WebhookConfig  `koanf:"webhook"`
	Notify   NotifyConfig   `koanf:"notify"`
	Redis    RedisConfig    `koanf:"redis"`
	Worker   WorkerConfig   `koanf:"worker"`
	Logger   LoggerConfig   `koanf:"logger"`
}

type Primary struct {
	Env string `koanf:"env" validate:"required"`
}

type ServerConfig struct {
	Port         string        `koanf:"port" validate:"required"`
	ReadTimeout  time.Duration `koanf:"read_timeout" validate:"required"`
	WriteTimeout time.Duration `koanf:"write_timeout" validate:"required"`
	IdleTimeout  time.Duration `koanf:"idle_timeout" validate:"required"`
}

type DatabaseConfig struct {
	Host            string        `koanf:"host" validate:"required"`
	Port            int           `koanf:"port" validate:"required"`
	User            string        `koanf:"user" validate:"required"`
	Password        string        `koanf:"password" validate:"required"`
	Name            string        `koanf:"name" validate:"required"`
	SSLMode         string        `koanf:"ssl_mode" validate:"required"`
	MaxOpenConns    int           `koanf:"max_open_conns" validate:"required"`
	MaxIdleConns    int           `koanf:"max_idle_conns" validate:"required"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime" validate:"required"`
	ConnMaxIdleTime time.Duration `koanf:"conn_max_idle_time" validate:"required"`
}

// PayGateConfig holds the redirect-gateway merchant credentials. The defaults
// point at the gateway sandbox so non-production environments work without
// real credentials.
type PayGateConfig struct {
	PayURL     string        `koanf:"pay_url" validate:"required"`
	QueryURL   string        `koanf:"query_url" validate:"required"`
	Merchant   string        `koanf:"merchant" validate:"required"`
	AccessCode string        `koanf:"access_code" validate:"required"`
	SecretHex  string        `koanf:"secret_hex" validate:"required"`
	User       string        `koanf:"user"`
	Password   string        `koanf:"password"`
	Version    string        `koanf:"version"`
	Locale     string        `koanf:"locale"`
	Currency   string        `koanf:"currency"`
	Timeout    time.Duration `koanf:"timeout"`
}

type WebhookConfig struct {
	APIKey           string        `koanf:"api_key"`
	MaxBodyBytes     int64         `koanf:"max_body_bytes"`
	RateLimit        int           `koanf:"rate_limit"`
	RateWindow       time.Duration `koanf:"rate_window"`
	MaxTimestampAge  time.Duration `koanf:"max_timestamp_age"`
	MaxTimestampSkew time.Duration `koanf:"max_timestamp_skew"`
}

type NotifyConfig struct {
	BaseURL string        `koanf:"base_url"`
	Timeout time.Duration `koanf:"timeout"`
}

// RedisConfig is optional; when Addr is empty the rate limiter falls back to
// the in-process implementation.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
}

type WorkerConfig struct {
	Interval   time.Duration `koanf:"interval" validate:"required"`
	QueryAfter time.Duration `koanf:"query_after" validate:"required"`
	BatchSize  int           `koanf:"batch_size" validate:"required"`
}

type LoggerConfig struct {
	Level string `koanf:"level"`
}

func LoadConfig() (*Config, error) {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	k := koanf.New(".")

	err := k.Load(env.Provider("PAYCORE_", ".", func(s string) string {
		return strings.ReplaceAll(
			strings.ToLower(strings.TrimPrefix(s, "PAYCORE_")),
			"__",
			".",
		)
	}), nil)
	if err != nil {
		logger.Error("failed to load environment variables", "error", err)
		return nil, err
	}

	mainConfig := defaultConfig()

	err = k.Unmarshal("", mainConfig)
	if err != nil {
		logger.Error("could not unmarshal main config", "error", err)
		return nil, err
	}

	validate := validator.New()

	err = validate.Struct(mainConfig)
	if err != nil {
		logger.Error("config validation failed", "error", err)
		return nil, err
	}

	return mainConfig, nil
}

// defaultConfig carries the values that are safe to bake in: gateway sandbox
// credentials, protocol constants and the webhook guard-rail ceilings.
func defaultConfig() *Config {
	return &Config{
		PayGate: PayGateConfig{
			PayURL:     "https://mtf.onepay.vn/paygate/vpcpay.op",
			QueryURL:   "https://mtf.onepay.vn/paygate/vpcdps.op",
			Merchant:   "TESTONEPAY",
			AccessCode: "6BEB2546",
			SecretHex:  "6D0870CDE5F24F34F3915FB0045120DB",
			Version:    "2",
			Locale:     "vn",
			Currency:   "VND",
			Timeout:    10 * time.Second,
		},
		Webhook: WebhookConfig{
			MaxBodyBytes:     10 * 1024,
			RateLimit:        20,
			RateWindow:       60 * time.Second,
			MaxTimestampAge:  5 * time.Minute,
			MaxTimestampSkew: 1 * time.Minute,
		},
		Notify: NotifyConfig{
			Timeout: 5 * time.Second,
		},
		Worker: WorkerConfig{
			Interval:   1 * time.Minute,
			QueryAfter: 15 * time.Minute,
			BatchSize:  50,
		},
	}
}

// NewLogger builds the process logger at the configured level.
func (l LoggerConfig) NewLogger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(l.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	}))
}
