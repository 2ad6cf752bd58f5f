package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // SCHEDULE_TIMEZONE must resolve on hosts without zoneinfo

	"github.com/joho/godotenv"
)

type Config struct {
	TelegramBotToken  string
	TelegramChannelID int64
	GeminiAPIKey      string
	BotUsername       string // without the leading "@"

	GeminiModel       string
	GeminiSearchModel string
	EnableSearch      bool

	SelfPingURL       string
	KeepAliveInterval time.Duration
	Port              int

	ScheduleTimezone string
	ScheduleFile     string

	DownloadDir string
	LogLevel    string
	LogDir      string
}

// Load reads the environment (and an optional .env file) into a Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	cfg := &Config{
		TelegramBotToken:  os.Getenv("TELEGRAM_BOT_TOKEN"),
		GeminiAPIKey:      os.Getenv("GEMINI_API_KEY"),
		BotUsername:       strings.TrimPrefix(strings.TrimSpace(os.Getenv("BOT_USERNAME")), "@"),
		GeminiModel:       getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-pro"),
		GeminiSearchModel: getEnvOrDefault("GEMINI_SEARCH_MODEL", "gemini-2.5-flash"),
		SelfPingURL:       getEnvOrDefault("SELF_PING_URL", os.Getenv("RENDER_EXTERNAL_URL")),
		ScheduleTimezone:  getEnvOrDefault("SCHEDULE_TIMEZONE", "Europe/Warsaw"),
		ScheduleFile:      os.Getenv("SCHEDULE_FILE"),
		DownloadDir:       getEnvOrDefault("DOWNLOAD_DIR", "downloads"),
		LogLevel:          getEnvOrDefault("LOG_LEVEL", "info"),
		LogDir:            getEnvOrDefault("LOG_DIR", "logs"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	var err error
	if cfg.TelegramChannelID, err = strconv.ParseInt(os.Getenv("TELEGRAM_CHANNEL_ID"), 10, 64); err != nil {
		return nil, fmt.Errorf("TELEGRAM_CHANNEL_ID must be an integer: %w", err)
	}
	if cfg.Port, err = strconv.Atoi(getEnvOrDefault("PORT", "8000")); err != nil {
		return nil, fmt.Errorf("PORT must be an integer: %w", err)
	}
	if cfg.KeepAliveInterval, err = time.ParseDuration(getEnvOrDefault("KEEPALIVE_INTERVAL", "10m")); err != nil {
		return nil, fmt.Errorf("KEEPALIVE_INTERVAL must be a duration: %w", err)
	}
	if cfg.EnableSearch, err = strconv.ParseBool(getEnvOrDefault("ENABLE_SEARCH", "false")); err != nil {
		return nil, fmt.Errorf("ENABLE_SEARCH must be a boolean: %w", err)
	}
	if _, err := time.LoadLocation(cfg.ScheduleTimezone); err != nil {
		return nil, fmt.Errorf("SCHEDULE_TIMEZONE is not a known location: %w", err)
	}

	return cfg, nil
}

// requiredVars is ordered so the first missing variable is reported deterministically.
var requiredVars = []string{"TELEGRAM_BOT_TOKEN", "TELEGRAM_CHANNEL_ID", "GEMINI_API_KEY", "BOT_USERNAME"}

func (c *Config) validate() error {
	values := map[string]string{
		"TELEGRAM_BOT_TOKEN":  c.TelegramBotToken,
		"TELEGRAM_CHANNEL_ID": os.Getenv("TELEGRAM_CHANNEL_ID"),
		"GEMINI_API_KEY":      c.GeminiAPIKey,
		"BOT_USERNAME":        c.BotUsername,
	}

	for _, key := range requiredVars {
		if values[key] == "" {
			return fmt.Errorf("required environment variable %s is not set", key)
		}
	}

	return nil
}

// Mention is the literal the bot reacts to in messages and captions.
func (c *Config) Mention() string {
	return "@" + c.BotUsername
}

func (c *Config) HasSelfPing() bool {
	return c.SelfPingURL != ""
}

func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.ScheduleTimezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnvOrDefault returns the environment variable value or a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
