package config

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Port              string   `mapstructure:"PORT"`
	Env               string   `mapstructure:"ENV"`
	DatabaseURL       string   `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32    `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32    `mapstructure:"DB_MIN_CONNS"`
	RedisURL          string   `mapstructure:"REDIS_URL"`
	JWTSecret         string   `mapstructure:"JWT_SECRET"`
	JWTAccessTTLMin   int      `mapstructure:"JWT_ACCESS_TTL_MIN"`
	CORSOrigins       []string `mapstructure:"CORS_ORIGINS"`
	AttachmentDir     string   `mapstructure:"ATTACHMENT_DIR"`
	DoctorSelfBooking bool     `mapstructure:"DOCTOR_SELF_BOOKING"`
	EnforceAvail      bool     `mapstructure:"ENFORCE_AVAILABILITY"`
	LockTTLSeconds    int      `mapstructure:"BOOKING_LOCK_TTL_SECONDS"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("JWT_ACCESS_TTL_MIN", 60)
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("ATTACHMENT_DIR", "./data/attachments")
	v.SetDefault("DOCTOR_SELF_BOOKING", false)
	v.SetDefault("ENFORCE_AVAILABILITY", false)
	v.SetDefault("BOOKING_LOCK_TTL_SECONDS", 10)

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("REDIS_URL")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("JWT_ACCESS_TTL_MIN")
	v.BindEnv("CORS_ORIGINS")
	v.BindEnv("ATTACHMENT_DIR")
	v.BindEnv("DOCTOR_SELF_BOOKING")
	v.BindEnv("ENFORCE_AVAILABILITY")
	v.BindEnv("BOOKING_LOCK_TTL_SECONDS")

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

	if cfg.IsDev() && cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-do-not-use-in-production"
		log.Println("WARNING: JWT_SECRET not set, using insecure development secret")
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

// Validate checks that the configuration is safe to run. Outside development
// a real JWT secret is mandatory, and booking lock TTL must stay positive so
// an abandoned lock cannot freeze a doctor's timeline forever.
func (c *Config) Validate() error {
	if !c.IsDev() && (c.JWTSecret == "" || c.JWTSecret == "dev-secret-do-not-use-in-production") {
		return fmt.Errorf("JWT_SECRET must be set when ENV is %q", c.Env)
	}
	if c.JWTAccessTTLMin <= 0 {
		return fmt.Errorf("JWT_ACCESS_TTL_MIN must be positive, got %d", c.JWTAccessTTLMin)
	}
	if c.LockTTLSeconds <= 0 {
		return fmt.Errorf("BOOKING_LOCK_TTL_SECONDS must be positive, got %d", c.LockTTLSeconds)
	}
	if c.DBMaxConns < c.DBMinConns {
		return fmt.Errorf("DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.DBMaxConns, c.DBMinConns)
	}
	return nil
}
