package config

import (
	"errors"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	DB struct {
		DSN string `yaml:"dsn"`
	} `yaml:"db"`
	Redis struct {
		URL string `yaml:"url"`
	} `yaml:"redis"`
	Gateway struct {
		BaseURL        string `yaml:"base_url"`
		KeyID          string `yaml:"key_id"`
		Secret         string `yaml:"secret"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"gateway"`
	Fees struct {
		PlatformFeeBps int64 `yaml:"platform_fee_bps"`
	} `yaml:"fees"`
	Escrow struct {
		OrderTTLMinutes int `yaml:"order_ttl_minutes"`
	} `yaml:"escrow"`
	Worker struct {
		SweepIntervalSeconds int64  `yaml:"sweep_interval_seconds"`
		SubscriptionCronSpec string `yaml:"subscription_cron_spec"`
	} `yaml:"worker"`
	RateLimit struct {
		Requests      int `yaml:"requests"`
		WindowSeconds int `yaml:"window_seconds"`
	} `yaml:"ratelimit"`
}

func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = "configs/config.yaml"
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)

	if cfg.Server.Addr == "" {
		return nil, errors.New("server.addr is required")
	}
	if cfg.DB.DSN == "" {
		return nil, errors.New("db.dsn is required")
	}
	if cfg.Gateway.BaseURL == "" || cfg.Gateway.KeyID == "" || cfg.Gateway.Secret == "" {
		return nil, errors.New("gateway config is incomplete")
	}
	if cfg.Fees.PlatformFeeBps < 0 || cfg.Fees.PlatformFeeBps > 10000 {
		return nil, errors.New("fees.platform_fee_bps must be within 0..10000")
	}
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Gateway.TimeoutSeconds <= 0 {
		cfg.Gateway.TimeoutSeconds = 10
	}
	if cfg.Escrow.OrderTTLMinutes <= 0 {
		cfg.Escrow.OrderTTLMinutes = 30
	}
	if cfg.Worker.SweepIntervalSeconds <= 0 {
		cfg.Worker.SweepIntervalSeconds = 60
	}
	if cfg.Worker.SubscriptionCronSpec == "" {
		cfg.Worker.SubscriptionCronSpec = "@every 1h"
	}
	if cfg.RateLimit.Requests <= 0 {
		cfg.RateLimit.Requests = 60
	}
	if cfg.RateLimit.WindowSeconds <= 0 {
		cfg.RateLimit.WindowSeconds = 60
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		cfg.DB.DSN = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("GATEWAY_BASE_URL"); v != "" {
		cfg.Gateway.BaseURL = v
	}
	if v := os.Getenv("GATEWAY_KEY_ID"); v != "" {
		cfg.Gateway.KeyID = v
	}
	if v := os.Getenv("GATEWAY_SECRET"); v != "" {
		cfg.Gateway.Secret = v
	}
	if v := os.Getenv("GATEWAY_TIMEOUT_SECONDS"); v != "" {
		cfg.Gateway.TimeoutSeconds = atoiOr(cfg.Gateway.TimeoutSeconds, v)
	}
	if v := os.Getenv("PLATFORM_FEE_BPS"); v != "" {
		cfg.Fees.PlatformFeeBps = atoi64Or(cfg.Fees.PlatformFeeBps, v)
	}
	if v := os.Getenv("ESCROW_ORDER_TTL_MINUTES"); v != "" {
		cfg.Escrow.OrderTTLMinutes = atoiOr(cfg.Escrow.OrderTTLMinutes, v)
	}
	if v := os.Getenv("WORKER_SWEEP_INTERVAL_SECONDS"); v != "" {
		cfg.Worker.SweepIntervalSeconds = atoi64Or(cfg.Worker.SweepIntervalSeconds, v)
	}
	if v := os.Getenv("WORKER_SUBSCRIPTION_CRON_SPEC"); v != "" {
		cfg.Worker.SubscriptionCronSpec = v
	}
	if v := os.Getenv("RATELIMIT_REQUESTS"); v != "" {
		cfg.RateLimit.Requests = atoiOr(cfg.RateLimit.Requests, v)
	}
	if v := os.Getenv("RATELIMIT_WINDOW_SECONDS"); v != "" {
		cfg.RateLimit.WindowSeconds = atoiOr(cfg.RateLimit.WindowSeconds, v)
	}
}

func atoiOr(fallback int, v string) int {
	i, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return i
}

func atoi64Or(fallback int64, v string) int64 {
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return i
}
