package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v9"
	"github.com/joho/godotenv"
)

type Config struct {
	Port      string `env:"PORT" envDefault:"3000"`
	PhotosDir string `env:"PHOTOS_DIR" envDefault:"photos"`
	// JSON bodies carry base64 PNGs, so the limit is generous
	MaxBodyMB int    `env:"MAX_BODY_MB" envDefault:"50"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`

	Immich Immich
}

// Immich holds the asset service settings. All four are required for mirroring.
type Immich struct {
	BaseURL  string `env:"IMMICH_BASE_URL"`
	APIKey   string `env:"IMMICH_API_KEY"`
	AlbumID  string `env:"IMMICH_ALBUM_ID"`
	DeviceID string `env:"IMMICH_DEVICE_ID"`
}

// Enabled reports whether every mirror setting is present.
func (i Immich) Enabled() bool {
	return i.BaseURL != "" && i.APIKey != "" && i.AlbumID != "" && i.DeviceID != ""
}

// Missing lists the unset environment variables.
func (i Immich) Missing() []string {
	var missing []string
	if i.BaseURL == "" {
		missing = append(missing, "IMMICH_BASE_URL")
	}
	if i.APIKey == "" {
		missing = append(missing, "IMMICH_API_KEY")
	}
	if i.AlbumID == "" {
		missing = append(missing, "IMMICH_ALBUM_ID")
	}
	if i.DeviceID == "" {
		missing = append(missing, "IMMICH_DEVICE_ID")
	}
	return missing
}

// Load loads .env (if present) and parses environment variables into Config.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// SetupLogging installs the default slog logger at the configured level.
func SetupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
