package config

import (
	"errors"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Log       LogConfig       `mapstructure:"log"`
	Security  SecurityConfig  `mapstructure:"security"`
	TwoFactor TwoFactorConfig `mapstructure:"two_factor"`
	Email     EmailConfig     `mapstructure:"email"`
}

// AppConfig holds application-wide settings
type AppConfig struct {
	Name string `mapstructure:"name"`
	// Env is "development", "test" or "production". Error bodies carry
	// diagnostic detail everywhere except production.
	Env string `mapstructure:"env"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	// TrustedProxies lists the addresses or CIDR ranges allowed to set
	// X-Forwarded-For. Empty means the peer address is the client.
	TrustedProxies []string `mapstructure:"trusted_proxies"`
}

// Addr returns the listen address
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DatabaseConfig holds credential store configuration
type DatabaseConfig struct {
	// Driver selects the store: "postgres" or "memory".
	Driver         string `mapstructure:"driver"`
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Name           string `mapstructure:"name"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	SSLMode        string `mapstructure:"ssl_mode"`
	MaxConnections int    `mapstructure:"max_connections"`
	AutoMigrate    bool   `mapstructure:"auto_migrate"`
}

// DSN returns the PostgreSQL connection string
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Addr returns the Redis address
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	Password     PasswordConfig     `mapstructure:"password"`
	Tokens       TokenConfig        `mapstructure:"tokens"`
	RateLimiting RateLimitingConfig `mapstructure:"rate_limiting"`
}

// PasswordConfig holds password hashing configuration
type PasswordConfig struct {
	MinLength  int `mapstructure:"min_length"`
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

// TokenConfig holds JWT token configuration
type TokenConfig struct {
	Secret     string        `mapstructure:"secret"`
	Issuer     string        `mapstructure:"issuer"`
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	PreAuthTTL time.Duration `mapstructure:"pre_auth_ttl"`
}

// RateLimitingConfig holds rate limiting configuration
type RateLimitingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// TwoFactorConfig holds TOTP configuration
type TwoFactorConfig struct {
	Issuer    string `mapstructure:"issuer"`
	Period    uint   `mapstructure:"period"`
	Skew      uint   `mapstructure:"skew"`
	ImageSize int    `mapstructure:"image_size"`
}

// EmailConfig holds email sending configuration
type EmailConfig struct {
	// Provider is "gmail", "log" or "none".
	Provider string           `mapstructure:"provider"`
	AppName  string           `mapstructure:"app_name"`
	Gmail    GmailEmailConfig `mapstructure:"gmail"`
}

// GmailEmailConfig holds Gmail API configuration
type GmailEmailConfig struct {
	// CredentialsJSON is the service account credentials JSON content
	CredentialsJSON string `mapstructure:"credentials_json"`
	// ClientID, ClientSecret and RefreshToken are the alternative to a service account
	ClientID      string `mapstructure:"client_id"`
	ClientSecret  string `mapstructure:"client_secret"`
	RefreshToken  string `mapstructure:"refresh_token"`
	SenderAddress string `mapstructure:"sender_address"`
	SenderName    string `mapstructure:"sender_name"`
}

// IsProduction reports whether the app runs in production mode
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.App.Env, "production")
}

// Validate checks settings that have no safe default
func (c *Config) Validate() error {
	if c.Security.Tokens.Secret == "" {
		return errors.New("security.tokens.secret is required")
	}
	if c.Security.Tokens.SessionTTL <= 0 || c.Security.Tokens.PreAuthTTL <= 0 {
		return errors.New("token TTLs must be positive")
	}
	switch c.Database.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown database driver %q", c.Database.Driver)
	}
	if c.TwoFactor.Skew == 0 {
		return errors.New("two_factor.skew must be at least 1")
	}
	for _, p := range c.Server.TrustedProxies {
		if _, err := ParseProxy(p); err != nil {
			return err
		}
	}
	return nil
}

// ParseProxy parses a trusted proxy entry, either a single address or a
// CIDR range
func ParseProxy(s string) (netip.Prefix, error) {
	if prefix, err := netip.ParsePrefix(s); err == nil {
		return prefix.Masked(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Prefix{}, fmt.Errorf("invalid trusted proxy %q", s)
	}
	return netip.PrefixFrom(addr, addr.BitLen()), nil
}

// Load reads configuration from file and environment variables
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/whiskers")

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix("WHISKERS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// LoadValidated loads configuration and rejects settings Validate refuses
func LoadValidated() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration built from defaults alone
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// Defaults are static values that always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "WhiskersWonderland")
	v.SetDefault("app.env", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 5000)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	v.SetDefault("server.trusted_proxies", []string{})

	// Database defaults
	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "whiskers")
	v.SetDefault("database.user", "whiskers")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_connections", 25)
	v.SetDefault("database.auto_migrate", false)

	// Redis defaults
	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Security defaults
	v.SetDefault("security.password.min_length", 1)
	v.SetDefault("security.password.bcrypt_cost", 10)

	v.SetDefault("security.tokens.secret", "")
	v.SetDefault("security.tokens.issuer", "whiskers-wonderland")
	v.SetDefault("security.tokens.session_ttl", "1h")
	v.SetDefault("security.tokens.pre_auth_ttl", "5m")

	v.SetDefault("security.rate_limiting.enabled", true)

	// Two-factor defaults
	v.SetDefault("two_factor.issuer", "WhiskersWonderland")
	v.SetDefault("two_factor.period", 30)
	v.SetDefault("two_factor.skew", 1)
	v.SetDefault("two_factor.image_size", 256)

	// Email defaults
	v.SetDefault("email.provider", "log")
	v.SetDefault("email.app_name", "WhiskersWonderland")
	v.SetDefault("email.gmail.sender_address", "")
	v.SetDefault("email.gmail.sender_name", "WhiskersWonderland")
}
