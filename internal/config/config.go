// Package config loads studyhub settings from defaults, an optional YAML file
// and the process environment, in that order of precedence (lowest first).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
	EnvTest        = "test"
)

type Config struct {
	Port    string `yaml:"port"`
	AppEnv  string `yaml:"app_env"`
	AppName string `yaml:"app_name"`

	Database DatabaseConfig `yaml:"database"`
	JWT      JWTConfig      `yaml:"jwt"`
	Limits   LimitsConfig   `yaml:"limits"`
	Mail     MailConfig     `yaml:"mail"`

	BcryptCost  int    `yaml:"bcrypt_cost"`
	CORSOrigins string `yaml:"cors_origins"`
	DataFile    string `yaml:"data_file"`
	BodyLimit   int    `yaml:"body_limit"`
	RedisAddr   string `yaml:"redis_addr"`
	RedisPass   string `yaml:"redis_password"`
	NATSURL     string `yaml:"nats_url"`
	EnablePprof bool   `yaml:"enable_pprof"`
	SeedOnStart bool   `yaml:"seed_on_start"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type JWTConfig struct {
	Secret           string        `yaml:"secret"`
	RefreshSecret    string        `yaml:"refresh_secret"`
	AccessTTL        time.Duration `yaml:"expires_in"`
	RefreshTTL       time.Duration `yaml:"refresh_expires_in"`
	PasswordResetTTL time.Duration `yaml:"password_reset_expires_in"`
}

type LimitsConfig struct {
	Window      time.Duration `yaml:"window"`
	MaxRequests int           `yaml:"max_requests"`
	AuthWindow  time.Duration `yaml:"auth_window"`
	AuthMax     int           `yaml:"auth_max"`
}

type MailConfig struct {
	SendGridAPIKey string `yaml:"sendgrid_api_key"`
	From           string `yaml:"from"`
	Workers        int    `yaml:"workers"`
	// RatePerSecond caps outgoing sends; 0 means unlimited.
	RatePerSecond int `yaml:"rate_per_second"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Port:    "8080",
		AppEnv:  EnvDevelopment,
		AppName: "studyhub",
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "studyhub.db",
		},
		JWT: JWTConfig{
			Secret:           "dev-access-secret-change-me",
			RefreshSecret:    "dev-refresh-secret-change-me",
			AccessTTL:        time.Hour,
			RefreshTTL:       7 * 24 * time.Hour,
			PasswordResetTTL: time.Hour,
		},
		Limits: LimitsConfig{
			Window:      15 * time.Minute,
			MaxRequests: 100,
			AuthWindow:  15 * time.Minute,
			AuthMax:     5,
		},
		Mail: MailConfig{
			From:    "no-reply@studyhub.local",
			Workers:       2,
			RatePerSecond: 10,
		},
		BcryptCost:  10,
		CORSOrigins: "*",
		DataFile:    "data.json",
		BodyLimit:   10 * 1024,
	}
}

// Load builds the configuration. The YAML file named by STUDYHUB_CONFIG is
// optional; a missing file is not an error, a malformed one is.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("STUDYHUB_CONFIG"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = envString("PORT", c.Port)
	c.AppEnv = envString("APP_ENV", c.AppEnv)
	c.Database.Driver = envString("DB_DRIVER", c.Database.Driver)
	c.Database.DSN = envString("DB_DSN", c.Database.DSN)
	c.JWT.Secret = envString("JWT_SECRET", c.JWT.Secret)
	c.JWT.RefreshSecret = envString("JWT_REFRESH_SECRET", c.JWT.RefreshSecret)
	c.JWT.AccessTTL = envDuration("JWT_EXPIRES_IN", c.JWT.AccessTTL)
	c.JWT.RefreshTTL = envDuration("JWT_REFRESH_EXPIRES_IN", c.JWT.RefreshTTL)
	c.JWT.PasswordResetTTL = envDuration("PASSWORD_RESET_EXPIRES_IN", c.JWT.PasswordResetTTL)
	c.BcryptCost = envInt("BCRYPT_COST", c.BcryptCost)
	c.Limits.Window = envDuration("RATE_LIMIT_WINDOW", c.Limits.Window)
	c.Limits.MaxRequests = envInt("RATE_LIMIT_MAX_REQUESTS", c.Limits.MaxRequests)
	c.Limits.AuthWindow = envDuration("AUTH_RATE_LIMIT_WINDOW", c.Limits.AuthWindow)
	c.Limits.AuthMax = envInt("AUTH_RATE_LIMIT_MAX", c.Limits.AuthMax)
	c.RedisAddr = envString("REDIS_ADDR", c.RedisAddr)
	c.RedisPass = envString("REDIS_PASSWORD", c.RedisPass)
	c.NATSURL = envString("NATS_URL", c.NATSURL)
	c.Mail.SendGridAPIKey = envString("SENDGRID_API_KEY", c.Mail.SendGridAPIKey)
	c.Mail.From = envString("MAIL_FROM", c.Mail.From)
	c.Mail.Workers = envInt("MAIL_WORKERS", c.Mail.Workers)
	c.Mail.RatePerSecond = envInt("MAIL_RATE_PER_SECOND", c.Mail.RatePerSecond)
	c.CORSOrigins = envString("CORS_ORIGINS", c.CORSOrigins)
	c.DataFile = envString("DATA_FILE", c.DataFile)
	c.BodyLimit = envInt("BODY_LIMIT", c.BodyLimit)
	c.EnablePprof = envBool("ENABLE_PPROF", c.EnablePprof)
	c.SeedOnStart = envBool("SEED_ON_START", c.SeedOnStart)
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.Database.DSN == "" {
		return errors.New("DB_DSN must be set")
	}
	if c.JWT.Secret == "" || c.JWT.RefreshSecret == "" {
		return errors.New("JWT_SECRET and JWT_REFRESH_SECRET must be set")
	}
	if c.JWT.Secret == c.JWT.RefreshSecret {
		return errors.New("JWT_SECRET and JWT_REFRESH_SECRET must differ")
	}
	if !c.IsDevelopment() && !c.IsTest() && (len(c.JWT.Secret) < 32 || len(c.JWT.RefreshSecret) < 32) {
		return fmt.Errorf("JWT secrets must be at least 32 characters in %s", c.AppEnv)
	}
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("token lifetimes must be positive")
	}
	if c.Mail.Workers < 1 {
		c.Mail.Workers = 1
	}
	return nil
}

func (c *Config) IsDevelopment() bool { return c.AppEnv == EnvDevelopment }
func (c *Config) IsTest() bool        { return c.AppEnv == EnvTest }

// AllowedOrigins returns CORS_ORIGINS in the comma separated form Fiber expects.
func (c *Config) AllowedOrigins() string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return "*"
	}
	return strings.Join(out, ", ")
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
