// Package config loads process settings from the environment, reading a .env file first
// when one exists.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

const (
	DriverMemory   = "memory"
	DriverRedis    = "redis"
	DriverPostgres = "postgres"
)

type Config struct {
	Port   string
	Driver string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	DatabaseURL string
	AMQPURL     string
	JWTSecret   string

	LogMode string
	LogFile string

	LowStockThreshold int
	LowStockSchedule  string
}

// Load reads .env (if present) and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	return FromEnv(os.Getenv), nil
}

// FromEnv builds a Config from a lookup function. Invalid numbers fall back to defaults.
func FromEnv(getenv func(string) string) *Config {
	get := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}
	threshold := cast.ToInt(get("LOW_STOCK_THRESHOLD", "5"))
	if threshold <= 0 {
		threshold = 5
	}
	redisDB, err := cast.ToIntE(get("REDIS_DB", "0"))
	if err != nil || redisDB < 0 {
		redisDB = 0
	}
	return &Config{
		Port:              get("APP_PORT", "8080"),
		Driver:            get("STORE_DRIVER", DriverMemory),
		RedisAddr:         getenv("REDIS_ADDR"),
		RedisPassword:     getenv("REDIS_PASSWORD"),
		RedisDB:           redisDB,
		RedisPrefix:       get("REDIS_PREFIX", "printa:"),
		DatabaseURL:       getenv("DATABASE_URL"),
		AMQPURL:           getenv("AMQP_URL"),
		JWTSecret:         getenv("AUTH_JWT_SECRET"),
		LogMode:           get("LOG_MODE", "development"),
		LogFile:           getenv("LOG_FILE"),
		LowStockThreshold: threshold,
		LowStockSchedule:  get("LOW_STOCK_SCHEDULE", "@every 5m"),
	}
}

func (c *Config) Validate() error {
	switch c.Driver {
	case DriverMemory:
	case DriverRedis:
		if c.RedisAddr == "" {
			return errors.New("config: REDIS_ADDR is required for the redis driver")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required for the postgres driver")
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.Driver)
	}
	if c.JWTSecret == "" {
		return errors.New("config: AUTH_JWT_SECRET is required")
	}
	return nil
}
