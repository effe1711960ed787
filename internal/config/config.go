package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/franciscosanchezn/tg-game-api/internal/database"
	"github.com/franciscosanchezn/tg-game-api/internal/logging"
)

// JSON logger whose level follows LOG_LEVEL, falling back to APP_ENV
var log = logging.New()

const (
	PendingStoreMemory = "memory"
	PendingStoreRedis  = "redis"
)

// Config used for the application configuration, loading the input from environment variables
type Config struct {
	// Server Configuration
	Port int    `json:"port"`
	Host string `json:"host"`
	Env  string `json:"env"`

	// Proxies allowed to set X-Forwarded-For. Empty means the socket address is the
	// client, which is what the per-IP limiters key on.
	TrustedProxies []string `json:"trusted_proxies"`

	// Database configuration
	Database database.Config `json:"-"`

	// Logging configuration
	LogLevel string `json:"log_level"`

	// Session tokens
	JWTAccessSecret  string        `json:"-"`
	JWTRefreshSecret string        `json:"-"`
	AccessTokenTTL   time.Duration `json:"access_token_ttl"`
	RefreshTokenTTL  time.Duration `json:"refresh_token_ttl"`

	// Telegram. An empty bot token disables every Telegram-backed login.
	TelegramBotToken      string        `json:"-"`
	TelegramWebhookSecret string        `json:"-"`
	InitDataMaxAge        time.Duration `json:"init_data_max_age"`
	AdminTelegramIDs      []int64       `json:"admin_telegram_ids"`

	// Code relay login
	LoginCodeTTL         time.Duration `json:"login_code_ttl"`
	LoginCodeMaxAttempts int           `json:"login_code_max_attempts"`
	PendingStore         string        `json:"pending_store"`
	RedisAddr            string        `json:"redis_addr"`
	RedisPassword        string        `json:"-"`
	RedisDB              int           `json:"redis_db"`
}

// String returns a string representation of Config with sensitive data masked
func (c *Config) String() string {
	return fmt.Sprintf("Config{Port: %d, Host: %s, Env: %s, TrustedProxies: %v, Database: %s, LogLevel: %s, JWTAccessSecret: [REDACTED], JWTRefreshSecret: [REDACTED], AccessTokenTTL: %s, RefreshTokenTTL: %s, TelegramBotToken: %s, TelegramWebhookSecret: %s, InitDataMaxAge: %s, LoginCodeTTL: %s, LoginCodeMaxAttempts: %d, PendingStore: %s, RedisAddr: %s, RedisPassword: [REDACTED]}",
		c.Port, c.Host, c.Env, c.TrustedProxies, c.Database.String(), c.LogLevel, c.AccessTokenTTL, c.RefreshTokenTTL,
		presence(c.TelegramBotToken), presence(c.TelegramWebhookSecret), c.InitDataMaxAge, c.LoginCodeTTL,
		c.LoginCodeMaxAttempts, c.PendingStore, c.RedisAddr)
}

// presence tells whether a secret is configured without printing it
func presence(secret string) string {
	if secret == "" {
		return "[NOT SET]"
	}
	return "[REDACTED]"
}

// LoadConfig read the proper configuration from environment variables and returns a Config struct
// Returns an error if any variable is present but invalid
func LoadConfig() (*Config, error) {
	log.Info("Loading configuration from environment variables")
	port, err := strconv.Atoi(GetEnvWithDefault("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	durations := map[string]time.Duration{
		"ACCESS_TOKEN_TTL":           15 * time.Minute,
		"REFRESH_TOKEN_TTL":          30 * 24 * time.Hour,
		"TELEGRAM_INIT_DATA_MAX_AGE": 24 * time.Hour,
		"LOGIN_CODE_TTL":             5 * time.Minute,
	}
	for key, def := range durations {
		d, err := parseDuration(key, def)
		if err != nil {
			return nil, err
		}
		durations[key] = d
	}

	adminIDs, err := parseIDList(GetEnvWithDefault("ADMIN_TELEGRAM_IDS", ""))
	if err != nil {
		return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_IDS: %w", err)
	}

	maxAttempts, err := strconv.Atoi(GetEnvWithDefault("LOGIN_CODE_MAX_ATTEMPTS", "5"))
	if err != nil || maxAttempts <= 0 {
		return nil, errors.New("invalid LOGIN_CODE_MAX_ATTEMPTS: must be a positive integer")
	}

	pendingStore := strings.ToLower(GetEnvWithDefault("PENDING_STORE", PendingStoreMemory))
	if pendingStore != PendingStoreMemory && pendingStore != PendingStoreRedis {
		return nil, fmt.Errorf("invalid PENDING_STORE %q (supported: memory, redis)", pendingStore)
	}

	config := &Config{
		Port: port,
		Host: GetEnvWithDefault("APP_HOST", "localhost"),
		Env:  GetEnvWithDefault("APP_ENV", "development"),

		TrustedProxies: parseList(GetEnvWithDefault("TRUSTED_PROXIES", "")),
		Database: database.Config{
			Driver:   GetEnvWithDefault("DB_DRIVER", "sqlite"),
			Host:     GetEnvWithDefault("DB_HOST", "localhost"),
			Port:     GetEnvWithDefault("DB_PORT", "5432"),
			User:     GetEnvWithDefault("DB_USER", "user"),
			Password: GetEnvWithDefault("DB_PASSWORD", "password"),
			Name:     GetEnvWithDefault("DB_NAME", "game"),
			SSLMode:  GetEnvWithDefault("DB_SSLMODE", "disable"),
			Path:     GetEnvWithDefault("DB_PATH", "game.sqlite"),
		},
		LogLevel:              GetEnvWithDefault("LOG_LEVEL", "info"),
		JWTAccessSecret:       GetEnvWithDefault("JWT_ACCESS_SECRET", "access-secret"),
		JWTRefreshSecret:      GetEnvWithDefault("JWT_REFRESH_SECRET", "refresh-secret"),
		AccessTokenTTL:        durations["ACCESS_TOKEN_TTL"],
		RefreshTokenTTL:       durations["REFRESH_TOKEN_TTL"],
		TelegramBotToken:      os.Getenv("TELEGRAM_BOT_TOKEN"),
		TelegramWebhookSecret: os.Getenv("TELEGRAM_WEBHOOK_SECRET"),
		InitDataMaxAge:        durations["TELEGRAM_INIT_DATA_MAX_AGE"],
		AdminTelegramIDs:      adminIDs,
		LoginCodeTTL:          durations["LOGIN_CODE_TTL"],
		LoginCodeMaxAttempts:  maxAttempts,
		PendingStore:          pendingStore,
		RedisAddr:             GetEnvWithDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               GetEnvAsType("REDIS_DB", 0),
	}

	if config.TelegramBotToken != "" && config.TelegramWebhookSecret == "" {
		return nil, errors.New("TELEGRAM_WEBHOOK_SECRET is required when TELEGRAM_BOT_TOKEN is set")
	}

	log.Infof("Configuration loaded: %s", config.String())
	return config, nil
}

// PlatformAuthEnabled reports whether Telegram-backed logins can work at all
func (c *Config) PlatformAuthEnabled() bool {
	return c.TelegramBotToken != ""
}

// Helper to get environment with default values
func GetEnvWithDefault(key, defaultValue string) string {
	log.Tracef("Getting environment variable: %s", key)
	value := os.Getenv(key)
	if value == "" {
		log.Debugf("Environment variable %s not set, using default value", key)
		return defaultValue
	}
	return value
}

// GetEnvAsType retrieves an environment variable and converts it to the specified type
// using generic type handling.
func GetEnvAsType[T any](key string, defaultValue T) T {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result T
	switch any(result).(type) {
	case int:
		intValue, err := strconv.Atoi(value)
		if err != nil {
			return defaultValue
		}
		return any(intValue).(T)
	case string:
		return any(value).(T)
	case bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return defaultValue
		}
		return any(boolValue).(T)
	case time.Duration:
		d, err := time.ParseDuration(value)
		if err != nil {
			return defaultValue
		}
		return any(d).(T)
	default:
		return defaultValue // Fallback for unsupported types
	}
}

// parseDuration reads a positive Go duration ("5m", "720h")
func parseDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

// parseList splits a comma separated value, dropping blanks
func parseList(value string) []string {
	var items []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}

// parseIDList reads a comma separated list of Telegram ids
func parseIDList(value string) ([]int64, error) {
	var ids []int64
	for _, part := range parseList(value) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
