package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS   float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int           `mapstructure:"RATE_LIMIT_BURST"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`
	BodyLimit      string        `mapstructure:"BODY_LIMIT"`

	GoogleAPIKey     string        `mapstructure:"GOOGLE_API_KEY"`
	GeminiModel      string        `mapstructure:"GEMINI_MODEL"`
	GeminiBaseURL    string        `mapstructure:"GEMINI_BASE_URL"`
	AITimeout        time.Duration `mapstructure:"AI_TIMEOUT"`
	AIRateLimitRPM   int           `mapstructure:"AI_RATE_LIMIT_RPM"`
	AIRateLimitBurst int           `mapstructure:"AI_RATE_LIMIT_BURST"`

	AuditSink       string `mapstructure:"AUDIT_SINK"`
	RedisURL        string `mapstructure:"REDIS_URL"`
	AuditMaxEntries int64  `mapstructure:"AUDIT_MAX_ENTRIES"`

	JWTSigningKey string        `mapstructure:"JWT_SIGNING_KEY"`
	TokenTTL      time.Duration `mapstructure:"TOKEN_TTL"`
}

// Audit sink backends.
const (
	AuditSinkMemory   = "memory"
	AuditSinkRedis    = "redis"
	AuditSinkPostgres = "postgres"
)

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT_RPS", 100)
	v.SetDefault("RATE_LIMIT_BURST", 200)
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("BODY_LIMIT", "10M")
	v.SetDefault("GEMINI_MODEL", "gemini-flash-latest")
	v.SetDefault("AI_TIMEOUT", "30s")
	v.SetDefault("AI_RATE_LIMIT_RPM", 60)
	v.SetDefault("AI_RATE_LIMIT_BURST", 5)
	v.SetDefault("AUDIT_SINK", AuditSinkMemory)
	v.SetDefault("AUDIT_MAX_ENTRIES", 1000)
	v.SetDefault("TOKEN_TTL", "24h")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "REQUEST_TIMEOUT", "BODY_LIMIT",
		"GOOGLE_API_KEY", "GEMINI_MODEL", "GEMINI_BASE_URL", "AI_TIMEOUT",
		"AI_RATE_LIMIT_RPM", "AI_RATE_LIMIT_BURST",
		"AUDIT_SINK", "REDIS_URL", "AUDIT_MAX_ENTRIES",
		"JWT_SIGNING_KEY", "TOKEN_TTL",
	} {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) <= 1 {
		if origins := v.GetString("CORS_ORIGINS"); origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}
	cfg.GoogleAPIKey = strings.TrimSpace(cfg.GoogleAPIKey)
	cfg.AuditSink = strings.ToLower(strings.TrimSpace(cfg.AuditSink))

	// Postgres URLs exported by some hosts use the legacy scheme.
	if strings.HasPrefix(cfg.DatabaseURL, "postgres://") {
		cfg.DatabaseURL = "postgresql://" + strings.TrimPrefix(cfg.DatabaseURL, "postgres://")
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.JWTSigningKey == "" {
		log.Println("WARNING: JWT_SIGNING_KEY not set; using an insecure development key.")
		cfg.JWTSigningKey = "medx-development-signing-key"
	}
	if cfg.GoogleAPIKey == "" {
		log.Println("WARNING: GOOGLE_API_KEY not set; AI endpoints will return demo data.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the server is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// AIConfigured reports whether a generative-model credential is present.
func (c *Config) AIConfigured() bool {
	return c.GoogleAPIKey != ""
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	switch c.AuditSink {
	case AuditSinkMemory, AuditSinkPostgres:
	case AuditSinkRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when AUDIT_SINK is %q", AuditSinkRedis)
		}
	default:
		return fmt.Errorf("AUDIT_SINK must be %q, %q, or %q, got %q",
			AuditSinkMemory, AuditSinkRedis, AuditSinkPostgres, c.AuditSink)
	}

	if c.JWTSigningKey == "" {
		return fmt.Errorf("JWT_SIGNING_KEY is required when ENV=%q", c.Env)
	}
	if c.IsProduction() && len(c.JWTSigningKey) < 32 {
		return fmt.Errorf("JWT_SIGNING_KEY must be at least 32 characters in production")
	}

	if c.AITimeout <= 0 {
		return fmt.Errorf("AI_TIMEOUT must be positive, got %s", c.AITimeout)
	}
	if c.AIRateLimitRPM < 0 {
		return fmt.Errorf("AI_RATE_LIMIT_RPM must not be negative, got %d", c.AIRateLimitRPM)
	}

	return nil
}
