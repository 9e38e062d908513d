package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/cmclain4200/approcure/pkg/util"
	"github.com/spf13/viper"
)

type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Events      EventsConfig
	Store       StoreConfig
	AccessCodes AccessCodeConfig
	Metrics     MetricsConfig
	RateLimit   RateLimitConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	Env            string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours int
}

// EventsConfig selects where state-change events go. Channel is the redis
// pub/sub channel; empty disables pub/sub. Asynq enqueues worker tasks.
type EventsConfig struct {
	Channel string
	Asynq   bool
}

type StoreConfig struct {
	TimeoutSeconds int
}

type AccessCodeConfig struct {
	SweepCron string
}

type MetricsConfig struct {
	Prefix string
}

// RateLimitConfig bounds requests per client. ClaimRequests applies per user
// to access code redemption on top of the global limit.
type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
	ClaimRequests int
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (j *JWTConfig) Expiry() time.Duration {
	return time.Duration(j.ExpiryHours) * time.Hour
}

func (s *StoreConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

func Load() (*Config, error) {
	v := viper.New()

	// Set defaults
	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "approcure")
	v.SetDefault("DATABASE_PASSWORD", "approcure_secret")
	v.SetDefault("DATABASE_NAME", "approcure")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("JWT_SECRET", "change-me-in-production")
	v.SetDefault("JWT_EXPIRY_HOURS", 24)
	v.SetDefault("EVENTS_CHANNEL", "approcure:events")
	v.SetDefault("EVENTS_ASYNQ", true)
	v.SetDefault("STORE_TIMEOUT_SECONDS", 5)
	v.SetDefault("ACCESS_CODE_SWEEP_CRON", "*/15 * * * *")
	v.SetDefault("METRICS_PREFIX", "approcure")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("RATE_LIMIT_CLAIM_REQUESTS", 10)

	// Load from .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	// Override with environment variables
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("SERVER_HOST"),
			Port:           v.GetInt("SERVER_PORT"),
			Env:            v.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DATABASE_HOST"),
			Port:     v.GetInt("DATABASE_PORT"),
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			Name:     v.GetString("DATABASE_NAME"),
			SSLMode:  v.GetString("DATABASE_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		JWT: JWTConfig{
			Secret:      v.GetString("JWT_SECRET"),
			ExpiryHours: v.GetInt("JWT_EXPIRY_HOURS"),
		},
		Events: EventsConfig{
			Channel: v.GetString("EVENTS_CHANNEL"),
			Asynq:   v.GetBool("EVENTS_ASYNQ"),
		},
		Store: StoreConfig{
			TimeoutSeconds: v.GetInt("STORE_TIMEOUT_SECONDS"),
		},
		AccessCodes: AccessCodeConfig{
			SweepCron: v.GetString("ACCESS_CODE_SWEEP_CRON"),
		},
		Metrics: MetricsConfig{
			Prefix: v.GetString("METRICS_PREFIX"),
		},
		RateLimit: RateLimitConfig{
			Requests:      v.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
			ClaimRequests: v.GetInt("RATE_LIMIT_CLAIM_REQUESTS"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Store.TimeoutSeconds <= 0 {
		return fmt.Errorf("STORE_TIMEOUT_SECONDS must be positive, got %d", c.Store.TimeoutSeconds)
	}
	if c.AccessCodes.SweepCron != "" {
		if err := util.ValidateCronExpr(c.AccessCodes.SweepCron); err != nil {
			return fmt.Errorf("ACCESS_CODE_SWEEP_CRON: %w", err)
		}
	}
	if !c.Server.IsDevelopment() && c.JWT.Secret == "change-me-in-production" {
		return fmt.Errorf("JWT_SECRET must be set outside development")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
