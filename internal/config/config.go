package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port       string   `mapstructure:"PORT"`
	Env        string   `mapstructure:"ENV"`
	DatabaseURL string  `mapstructure:"DATABASE_URL"`
	DBMaxConns int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns int32    `mapstructure:"DB_MIN_CONNS"`
	RedisURL   string   `mapstructure:"REDIS_URL"`
	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	JWTSecret     string `mapstructure:"JWT_SECRET"`
	JWTIssuer     string `mapstructure:"JWT_ISSUER"`
	TokenTTLHours int    `mapstructure:"TOKEN_TTL_HOURS"`

	LabCriticalLowFactor  float64 `mapstructure:"LAB_CRITICAL_LOW_FACTOR"`
	LabCriticalHighFactor float64 `mapstructure:"LAB_CRITICAL_HIGH_FACTOR"`

	AIBaseURL        string `mapstructure:"AI_BASE_URL"`
	AIAPIKey         string `mapstructure:"AI_API_KEY"`
	AIModel          string `mapstructure:"AI_MODEL"`
	AITimeoutSeconds int    `mapstructure:"AI_TIMEOUT_SECONDS"`

	VideoAppID           string `mapstructure:"VIDEO_APP_ID"`
	VideoAppSecret       string `mapstructure:"VIDEO_APP_SECRET"`
	VideoTokenTTLMinutes int    `mapstructure:"VIDEO_TOKEN_TTL_MINUTES"`

	PaymentsBaseURL        string `mapstructure:"PAYMENTS_BASE_URL"`
	PaymentsAPIKey         string `mapstructure:"PAYMENTS_API_KEY"`
	PaymentsWebhookSecret  string `mapstructure:"PAYMENTS_WEBHOOK_SECRET"`
	PaymentsTimeoutSeconds int    `mapstructure:"PAYMENTS_TIMEOUT_SECONDS"`

	MQTTEnabled   bool   `mapstructure:"MQTT_ENABLED"`
	MQTTBrokerURL string `mapstructure:"MQTT_BROKER_URL"`
	MQTTClientID  string `mapstructure:"MQTT_CLIENT_ID"`
	MQTTTopic     string `mapstructure:"MQTT_TOPIC"`

	RateLimitRPS   float64 `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst int     `mapstructure:"RATE_LIMIT_BURST"`
}

// devJWTSecret is the fallback signing secret for development. Validate
// refuses to start production with it.
const devJWTSecret = "twin-dev-secret"

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("JWT_SECRET", devJWTSecret)
	v.SetDefault("JWT_ISSUER", "twin-api")
	v.SetDefault("TOKEN_TTL_HOURS", 24)
	v.SetDefault("LAB_CRITICAL_LOW_FACTOR", 0.7)
	v.SetDefault("LAB_CRITICAL_HIGH_FACTOR", 1.5)
	v.SetDefault("AI_BASE_URL", "https://api.openai.com/v1")
	v.SetDefault("AI_MODEL", "gpt-4o-mini")
	v.SetDefault("AI_TIMEOUT_SECONDS", 10)
	v.SetDefault("VIDEO_TOKEN_TTL_MINUTES", 60)
	v.SetDefault("PAYMENTS_BASE_URL", "https://api.stripe.com")
	v.SetDefault("PAYMENTS_TIMEOUT_SECONDS", 10)
	v.SetDefault("MQTT_ENABLED", false)
	v.SetDefault("MQTT_BROKER_URL", "tcp://localhost:1883")
	v.SetDefault("MQTT_CLIENT_ID", "twin-vitals-bridge")
	v.SetDefault("MQTT_TOPIC", "twin/vitals/+")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range []string{
		"PORT", "ENV", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
		"REDIS_URL", "CORS_ORIGINS",
		"JWT_SECRET", "JWT_ISSUER", "TOKEN_TTL_HOURS",
		"LAB_CRITICAL_LOW_FACTOR", "LAB_CRITICAL_HIGH_FACTOR",
		"AI_BASE_URL", "AI_API_KEY", "AI_MODEL", "AI_TIMEOUT_SECONDS",
		"VIDEO_APP_ID", "VIDEO_APP_SECRET", "VIDEO_TOKEN_TTL_MINUTES",
		"PAYMENTS_BASE_URL", "PAYMENTS_API_KEY", "PAYMENTS_WEBHOOK_SECRET", "PAYMENTS_TIMEOUT_SECONDS",
		"MQTT_ENABLED", "MQTT_BROKER_URL", "MQTT_CLIENT_ID", "MQTT_TOPIC",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
	} {
		v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if cfg.CORSOrigins == nil {
		origins := v.GetString("CORS_ORIGINS")
		if origins != "" {
			cfg.CORSOrigins = strings.Split(origins, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.IsDev() && cfg.JWTSecret == devJWTSecret {
		log.Println("WARNING: running with the built-in development JWT secret.")
		log.Println("WARNING: set JWT_SECRET before exposing this server anywhere.")
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

// Validate checks that the configuration is safe to run. Production refuses
// the development JWT secret, and the lab critical factors must describe a
// band strictly wider than the reference range itself.
func (c *Config) Validate() error {
	if c.IsProduction() && (c.JWTSecret == "" || c.JWTSecret == devJWTSecret) {
		return fmt.Errorf("JWT_SECRET must be set to a real secret in production")
	}
	if c.LabCriticalLowFactor <= 0 || c.LabCriticalLowFactor > 1 {
		return fmt.Errorf("LAB_CRITICAL_LOW_FACTOR must be in (0, 1], got %v", c.LabCriticalLowFactor)
	}
	if c.LabCriticalHighFactor < 1 {
		return fmt.Errorf("LAB_CRITICAL_HIGH_FACTOR must be >= 1, got %v", c.LabCriticalHighFactor)
	}
	if c.MQTTEnabled && c.MQTTBrokerURL == "" {
		return fmt.Errorf("MQTT_BROKER_URL is required when MQTT_ENABLED is true")
	}
	if c.TokenTTLHours <= 0 {
		return fmt.Errorf("TOKEN_TTL_HOURS must be positive, got %d", c.TokenTTLHours)
	}
	return nil
}
