package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Log     LogConfig
	CORS    CORSConfig
	Client  ClientConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Addr returns the listen address for the HTTP server.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

type StorageConfig struct {
	DataDir string
	// DatabaseURL selects the store. Empty means SQLite under DataDir.
	DatabaseURL string
}

type LogConfig struct {
	Level string
}

// SlogLevel maps Level to a slog level. Unknown values fall back to info.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type CORSConfig struct {
	AllowedOrigins []string
}

type ClientConfig struct {
	BaseURL  string
	Timeout  time.Duration
	Debounce time.Duration
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:         3000,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
		},
		Log: LogConfig{
			Level: "info",
		},
		CORS: CORSConfig{
			AllowedOrigins: []string{"*"},
		},
		Client: ClientConfig{
			BaseURL:  "http://localhost:3000/api",
			Timeout:  10 * time.Second,
			Debounce: 300 * time.Millisecond,
		},
	}
}

// Load reads configuration in increasing order of precedence: built-in
// defaults, the JSON file at $XDG_CONFIG_HOME/folio/config.json, and
// environment variables (FOLIO_*, plus PORT and DATABASE_URL). A .env file
// in the working directory is loaded into the environment first; variables
// already set are not overwritten.
func Load() (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}
	return loadWith(newFileBackend(configFilePath()))
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return Config{}, fmt.Errorf("invalid config: server.port %d out of range", cfg.Server.Port)
	}
	return cfg, nil
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("loading %s: %w", path, err)
}
