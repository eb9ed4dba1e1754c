package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Cart storage backends
const (
	CartBackendMemory   = "memory"
	CartBackendRedis    = "redis"
	CartBackendPostgres = "postgres"
)

type Config struct {
	Server   ServerConfig
	Cart     CartConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Metrics  MetricsConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	AllowedOrigins []string
}

type CartConfig struct {
	Backend   string
	KeyPrefix string
	TTL       time.Duration
	MaxOpen   int           // live cart stores kept in memory
	IdleTTL   time.Duration // idle time before a live store is dropped
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
	SSLMode  string
}

type RedisConfig struct {
	Host            string
	Port            string
	Password        string
	DB              int
	RateLimit       int // requests per window, 0 disables
	RateLimitWindow time.Duration
}

type JWTConfig struct {
	Secret string
}

type MetricsConfig struct {
	Enabled bool
	Token   string // bearer token for /metrics, empty leaves it open
}

// Addr returns host:port for the redis client
func (c RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// IsDevelopment reports whether the server runs outside production
func (c *Config) IsDevelopment() bool {
	return c.Server.Env != "production"
}

// Load reads configuration from a .env file (when present) and the environment
func Load() *Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("Warning: Could not read .env file: %v", err)
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	return fromViper(v)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173")
	v.SetDefault("CART_BACKEND", CartBackendMemory)
	v.SetDefault("CART_KEY_PREFIX", "farmstand_cart")
	v.SetDefault("CART_TTL", "168h")
	v.SetDefault("CART_MAX_OPEN", 10000)
	v.SetDefault("CART_IDLE_TTL", "30m")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("RATE_LIMIT_REQUESTS", 120)
	v.SetDefault("RATE_LIMIT_WINDOW", "1m")
	v.SetDefault("METRICS_ENABLED", true)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Env:            v.GetString("SERVER_ENV"),
			LogLevel:       v.GetString("LOG_LEVEL"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Cart: CartConfig{
			Backend:   strings.ToLower(v.GetString("CART_BACKEND")),
			KeyPrefix: v.GetString("CART_KEY_PREFIX"),
			TTL:       v.GetDuration("CART_TTL"),
			MaxOpen:   v.GetInt("CART_MAX_OPEN"),
			IdleTTL:   v.GetDuration("CART_IDLE_TTL"),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			Database: v.GetString("DB_DATABASE"),
			Schema:   v.GetString("DB_SCHEMA"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:            v.GetString("REDIS_HOST"),
			Port:            v.GetString("REDIS_PORT"),
			Password:        v.GetString("REDIS_PASSWORD"),
			DB:              v.GetInt("REDIS_DB"),
			RateLimit:       v.GetInt("RATE_LIMIT_REQUESTS"),
			RateLimitWindow: v.GetDuration("RATE_LIMIT_WINDOW"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("METRICS_ENABLED"),
			Token:   v.GetString("METRICS_TOKEN"),
		},
	}
}

// Validate checks the configuration for values the server cannot start with
func (c *Config) Validate() error {
	switch c.Cart.Backend {
	case CartBackendMemory, CartBackendRedis, CartBackendPostgres:
	default:
		return fmt.Errorf("unknown cart backend %q", c.Cart.Backend)
	}

	if c.Server.Port == "" {
		return errors.New("server port is required")
	}

	if c.Cart.Backend == CartBackendPostgres && c.Database.Database == "" {
		return errors.New("DB_DATABASE is required for the postgres cart backend")
	}

	if !c.IsDevelopment() && c.JWT.Secret == "" {
		return errors.New("JWT_SECRET is required in production")
	}

	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
