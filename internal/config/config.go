// Package config loads service configuration from the environment and holds
// the domain constants shared across packages.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// FeedMode selects the transport of the complaint change channel.
type FeedMode string

const (
	FeedRedis    FeedMode = "redis"
	FeedPostgres FeedMode = "postgres"
)

type Config struct {
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPort     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ChangeFeed FeedMode
	HTTPAddr   string
	JWTSecret  string

	TelegramBotToken string
	TelegramChatIDs  []int64

	Language         string
	ReloadAfterWrite bool
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}

// Load reads .env (if present) and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		DBHost:           withDefault(getenv("DB_HOST"), "localhost"),
		DBUser:           getenv("DB_USER"),
		DBPassword:       getenv("DB_PASSWORD"),
		DBName:           getenv("DB_NAME"),
		DBPort:           withDefault(getenv("DB_PORT"), "5432"),
		RedisAddr:        withDefault(getenv("REDIS_ADDR"), "localhost:6379"),
		RedisPassword:    getenv("REDIS_PASSWORD"),
		ChangeFeed:       FeedMode(withDefault(getenv("CHANGE_FEED"), string(FeedRedis))),
		HTTPAddr:         withDefault(getenv("HTTP_ADDR"), ":8080"),
		JWTSecret:        getenv("JWT_SECRET"),
		TelegramBotToken: getenv("TELEGRAM_BOT_TOKEN"),
		Language:         withDefault(getenv("LANG_DEFAULT"), DefaultLanguage),
		ReloadAfterWrite: true,
	}

	if raw := getenv("REDIS_DB"); raw != "" {
		db, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("REDIS_DB: %w", err)
		}
		cfg.RedisDB = db
	}
	if raw := getenv("RELOAD_AFTER_WRITE"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, fmt.Errorf("RELOAD_AFTER_WRITE: %w", err)
		}
		cfg.ReloadAfterWrite = v
	}
	if raw := getenv("TELEGRAM_CHAT_IDS"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			part = strings.TrimSpace(part)
			if part == "" {
				continue
			}
			id, err := strconv.ParseInt(part, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("TELEGRAM_CHAT_IDS: %w", err)
			}
			cfg.TelegramChatIDs = append(cfg.TelegramChatIDs, id)
		}
	}

	switch cfg.ChangeFeed {
	case FeedRedis, FeedPostgres:
	default:
		return nil, fmt.Errorf("CHANGE_FEED must be %q or %q, got %q", FeedRedis, FeedPostgres, cfg.ChangeFeed)
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	return cfg, nil
}

func withDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
