package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting the server reads from the environment.
type Config struct {
	Port     string
	LogLevel string

	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string
	DBSSLMode  string

	JWTSecret string

	OpenAIKey          string
	OpenAIBaseURL      string
	TranscriptionModel string
	SummaryModel       string

	ResendKey string
	MailFrom  string

	AssetDir        string
	AssetBaseURL    string
	AssetSigningKey string

	AutosaveDebounce     time.Duration
	RecordingIdleTimeout time.Duration
	MaxUploadBytes       int64
}

// Load reads a .env file when present and then the process environment.
func Load() (*Config, error) {
	// A missing .env is normal in deployed environments.
	_ = godotenv.Load()

	cfg := &Config{
		Port:     env("PORT", "8080"),
		LogLevel: env("LOG_LEVEL", "info"),

		DBUser:     env("user", ""),
		DBPassword: env("password", ""),
		DBHost:     env("host", "localhost"),
		DBPort:     env("port", "5432"),
		DBName:     env("dbname", "postgres"),
		DBSSLMode:  env("sslmode", "require"),

		JWTSecret: env("SUPABASE_JWT_SECRET", ""),

		OpenAIKey:          env("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      env("OPENAI_BASE_URL", ""),
		TranscriptionModel: env("TRANSCRIPTION_MODEL", "whisper-1"),
		SummaryModel:       env("SUMMARY_MODEL", "gpt-4o-mini"),

		ResendKey: env("RESEND_API_KEY", ""),
		MailFrom:  env("MAIL_FROM", "notifications@voxnote.local"),

		AssetDir:        env("ASSET_DIR", "./data/assets"),
		AssetBaseURL:    strings.TrimSuffix(env("ASSET_BASE_URL", "http://localhost:8080"), "/"),
		AssetSigningKey: env("ASSET_SIGNING_KEY", ""),
	}

	var err error
	if cfg.AutosaveDebounce, err = durationEnv("AUTOSAVE_DEBOUNCE", time.Second); err != nil {
		return nil, err
	}
	if cfg.RecordingIdleTimeout, err = durationEnv("RECORDING_IDLE_TIMEOUT", 10*time.Minute); err != nil {
		return nil, err
	}
	if cfg.MaxUploadBytes, err = int64Env("MAX_UPLOAD_BYTES", 25<<20); err != nil {
		return nil, err
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("SUPABASE_JWT_SECRET is not set")
	}
	if cfg.AssetSigningKey == "" {
		cfg.AssetSigningKey = cfg.JWTSecret
	}
	return cfg, nil
}

// DSN builds the Postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode)
}

func env(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := env(key, "")
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, d)
	}
	return d, nil
}

func int64Env(key string, fallback int64) (int64, error) {
	v := env(key, "")
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}
