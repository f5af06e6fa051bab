package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the application-wide configuration.
type Config struct {
	App         AppConfig         `mapstructure:"app"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"db"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Payment     PaymentConfig     `mapstructure:"payment"`
	Progression ProgressionConfig `mapstructure:"progression"`
	Guest       GuestConfig       `mapstructure:"guest"`
	Beta        BetaConfig        `mapstructure:"beta"`
	Log         LogConfig         `mapstructure:"log"`
}

// AppConfig holds settings shared by every module.
type AppConfig struct {
	// Timezone decides which calendar day an activity belongs to.
	Timezone string `mapstructure:"timezone"`
}

// Location resolves Timezone, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// ServerConfig HTTP server settings.
type ServerConfig struct {
	Port         int        `mapstructure:"port"`
	BaseURL      string     `mapstructure:"base_url"`
	MaxBodyBytes int64      `mapstructure:"max_body_bytes"`
	CORS         CORSConfig `mapstructure:"cors"`
}

// CORSConfig cross-origin settings.
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL settings.
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // minutes
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // minutes
}

// DSN builds the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis settings. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig verification of identity-provider tokens.
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
}

// PaymentConfig payment webhook settings.
type PaymentConfig struct {
	WebhookSecret string        `mapstructure:"webhook_secret"`
	Tolerance     time.Duration `mapstructure:"tolerance"`
}

// Bonus and streak policies.
const (
	BonusPolicyAnyAttempt     = "any_attempt"
	BonusPolicyFullCompletion = "full_completion"

	StreakPolicyAnyNewDay   = "any_new_day"
	StreakPolicyConsecutive = "consecutive"
)

// ProgressionConfig XP and streak rules.
type ProgressionConfig struct {
	LevelThreshold int    `mapstructure:"level_threshold"`
	BonusPolicy    string `mapstructure:"bonus_policy"`
	StreakPolicy   string `mapstructure:"streak_policy"`
}

// GuestConfig trial access settings.
type GuestConfig struct {
	DefaultDuration time.Duration `mapstructure:"default_duration"`
}

// BetaConfig invitation code settings.
type BetaConfig struct {
	ElevatedRole string `mapstructure:"elevated_role"`
	MaxBatch     int    `mapstructure:"max_batch"`
	CodeLength   int    `mapstructure:"code_length"`
}

// LogConfig logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment.
// Precedence: environment > config file > defaults.
func Load(path string) (*Config, error) {
	v := viper.New()

	// ── defaults ──
	v.SetDefault("app.timezone", "Europe/London")

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:3000"})

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "habitat_english")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "UTC")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)
	v.SetDefault("db.conn_max_idle_time", 30)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.issuer", "habitat-english")
	v.SetDefault("auth.access_token_ttl", "1h")

	v.SetDefault("payment.tolerance", "5m")

	v.SetDefault("progression.level_threshold", 300)
	v.SetDefault("progression.bonus_policy", BonusPolicyAnyAttempt)
	v.SetDefault("progression.streak_policy", StreakPolicyAnyNewDay)

	v.SetDefault("guest.default_duration", "72h")

	v.SetDefault("beta.elevated_role", "beta_tester")
	v.SetDefault("beta.max_batch", 500)
	v.SetDefault("beta.code_length", 8)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// ── config file ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── environment ──
	v.SetEnvPrefix("HABITAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("config: auth.jwt_secret must be set")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("config: auth.jwt_secret must be at least 16 characters")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port must be between 1 and 65535")
	}
	if c.Progression.LevelThreshold <= 0 {
		return fmt.Errorf("config: progression.level_threshold must be positive")
	}
	switch c.Progression.BonusPolicy {
	case BonusPolicyAnyAttempt, BonusPolicyFullCompletion:
	default:
		return fmt.Errorf("config: unknown progression.bonus_policy %q", c.Progression.BonusPolicy)
	}
	switch c.Progression.StreakPolicy {
	case StreakPolicyAnyNewDay, StreakPolicyConsecutive:
	default:
		return fmt.Errorf("config: unknown progression.streak_policy %q", c.Progression.StreakPolicy)
	}
	if _, err := time.LoadLocation(c.App.Timezone); err != nil {
		return fmt.Errorf("config: invalid app.timezone %q: %w", c.App.Timezone, err)
	}
	if c.Guest.DefaultDuration <= 0 {
		return fmt.Errorf("config: guest.default_duration must be positive")
	}
	if c.Beta.MaxBatch <= 0 {
		return fmt.Errorf("config: beta.max_batch must be positive")
	}
	if c.Beta.CodeLength < 6 {
		return fmt.Errorf("config: beta.code_length must be at least 6")
	}
	return nil
}
