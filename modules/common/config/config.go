package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// Config - every environment-driven setting of the server
type Config struct {
	// Server
	Port   string
	AppEnv string

	// Gemini API (the key itself is read at call time, see APIKey)
	GeminiModel   string
	GeminiBaseURL string

	// Upload
	MaxUploadBytes int64

	// Session
	SessionIdleTimeout time.Duration

	// Form defaults
	DefaultClothingStyle string
	DefaultScenery       string
}

const (
	DefaultPort           = "8080"
	DefaultModel          = "gemini-2.5-flash-image"
	DefaultMaxUploadBytes = 4 * 1024 * 1024
	DefaultIdleTimeout    = 2 * time.Hour
)

// LoadConfig - load .env (if any) and environment variables
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("⚠️  .env file not found, using environment variables")
	}

	cfg, err := FromEnv()
	if err != nil {
		return nil, err
	}

	log.Info().Msg("✅ Configuration loaded successfully")
	log.Info().Msgf("   Gemini: %s (key configured: %v)", cfg.GeminiModel, APIKey() != "")
	log.Info().Msgf("   Upload limit: %s (%d bytes)", cfg.MaxUploadLabel(), cfg.MaxUploadBytes)
	log.Info().Msgf("   Session idle timeout: %s", cfg.SessionIdleTimeout)

	return cfg, nil
}

// FromEnv - build a Config from the current environment without touching .env
func FromEnv() (*Config, error) {
	maxUpload := int64(DefaultMaxUploadBytes)
	if s := os.Getenv("MAX_UPLOAD_BYTES"); s != "" {
		parsed, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
		}
		maxUpload = parsed
	}

	idle := DefaultIdleTimeout
	if s := os.Getenv("SESSION_IDLE_TIMEOUT"); s != "" {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("SESSION_IDLE_TIMEOUT: %w", err)
		}
		idle = parsed
	}

	cfg := &Config{
		Port:                 getEnv("PORT", DefaultPort),
		AppEnv:               getEnv("APP_ENV", "production"),
		GeminiModel:          getEnv("GEMINI_MODEL", DefaultModel),
		GeminiBaseURL:        getEnv("GEMINI_BASE_URL", ""),
		MaxUploadBytes:       maxUpload,
		SessionIdleTimeout:   idle,
		DefaultClothingStyle: getEnv("DEFAULT_CLOTHING_STYLE", "uma jaqueta de couro preta e camiseta branca"),
		DefaultScenery:       getEnv("DEFAULT_SCENERY", "uma rua de Tóquio à noite, com luzes de neon"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// APIKey - Gemini credential, read from the process environment on every call.
// GEMINI_API_KEY wins over API_KEY.
func APIKey() string {
	if key := strings.TrimSpace(os.Getenv("GEMINI_API_KEY")); key != "" {
		return key
	}
	return strings.TrimSpace(os.Getenv("API_KEY"))
}

// MaxUploadLabel - upload cap as shown to users
func (c *Config) MaxUploadLabel() string {
	return SizeLabel(c.MaxUploadBytes)
}

// SizeLabel - "4MB" style label, rounded up; caps under 1 MiB are shown in KB
func SizeLabel(bytes int64) string {
	const kib, mib = 1024, 1024 * 1024
	if bytes < mib {
		return fmt.Sprintf("%dKB", (bytes+kib-1)/kib)
	}
	return fmt.Sprintf("%dMB", (bytes+mib-1)/mib)
}

func (c *Config) validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("MAX_UPLOAD_BYTES must be positive, got %d", c.MaxUploadBytes)
	}
	if c.SessionIdleTimeout <= 0 {
		return fmt.Errorf("SESSION_IDLE_TIMEOUT must be positive, got %s", c.SessionIdleTimeout)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
