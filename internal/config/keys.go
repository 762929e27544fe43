package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type keyType int

const (
	kString keyType = iota
	kInt
	kDuration
	kList
)

type keySpec struct {
	key string
	typ keyType
	env string
	// aliases are conventional variable names honored after env.
	aliases []string
	// secret keys are read from the environment only and masked on display.
	secret  bool
	apply   func(cfg *Config, v any)
	extract func(cfg Config) any
}

var specs = []keySpec{
	{
		key: "server.host", typ: kString, env: "FOLIO_SERVER_HOST",
		apply:   func(cfg *Config, v any) { cfg.Server.Host = v.(string) },
		extract: func(cfg Config) any { return cfg.Server.Host },
	},
	{
		key: "server.port", typ: kInt, env: "FOLIO_SERVER_PORT", aliases: []string{"PORT"},
		apply:   func(cfg *Config, v any) { cfg.Server.Port = v.(int) },
		extract: func(cfg Config) any { return cfg.Server.Port },
	},
	{
		key: "server.read_timeout", typ: kDuration, env: "FOLIO_SERVER_READ_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Server.ReadTimeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Server.ReadTimeout },
	},
	{
		key: "server.write_timeout", typ: kDuration, env: "FOLIO_SERVER_WRITE_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Server.WriteTimeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Server.WriteTimeout },
	},
	{
		key: "storage.data_dir", typ: kString, env: "FOLIO_STORAGE_DATA_DIR",
		apply:   func(cfg *Config, v any) { cfg.Storage.DataDir = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DataDir },
	},
	{
		key: "storage.database_url", typ: kString, env: "FOLIO_DATABASE_URL", aliases: []string{"DATABASE_URL"},
		secret:  true,
		apply:   func(cfg *Config, v any) { cfg.Storage.DatabaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Storage.DatabaseURL },
	},
	{
		key: "log.level", typ: kString, env: "FOLIO_LOG_LEVEL",
		apply:   func(cfg *Config, v any) { cfg.Log.Level = v.(string) },
		extract: func(cfg Config) any { return cfg.Log.Level },
	},
	{
		key: "cors.allowed_origins", typ: kList, env: "FOLIO_CORS_ALLOWED_ORIGINS",
		apply:   func(cfg *Config, v any) { cfg.CORS.AllowedOrigins = v.([]string) },
		extract: func(cfg Config) any { return strings.Join(cfg.CORS.AllowedOrigins, ",") },
	},
	{
		key: "client.base_url", typ: kString, env: "FOLIO_CLIENT_BASE_URL",
		apply:   func(cfg *Config, v any) { cfg.Client.BaseURL = v.(string) },
		extract: func(cfg Config) any { return cfg.Client.BaseURL },
	},
	{
		key: "client.timeout", typ: kDuration, env: "FOLIO_CLIENT_TIMEOUT",
		apply:   func(cfg *Config, v any) { cfg.Client.Timeout = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Client.Timeout },
	},
	{
		key: "client.debounce", typ: kDuration, env: "FOLIO_CLIENT_DEBOUNCE",
		apply:   func(cfg *Config, v any) { cfg.Client.Debounce = v.(time.Duration) },
		extract: func(cfg Config) any { return cfg.Client.Debounce },
	},
}

// parseValue converts a raw string into the Go type expected by s.apply.
func (s keySpec) parseValue(raw string) (any, error) {
	switch s.typ {
	case kInt:
		return strconv.Atoi(raw)
	case kDuration:
		return time.ParseDuration(raw)
	case kList:
		var out []string
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	default:
		return raw, nil
	}
}

func applyBackend(cfg *Config, b ConfigBackend) error {
	for _, s := range specs {
		if s.secret {
			continue
		}
		if s.typ == kInt {
			v, ok, err := b.GetInt(s.key)
			if err != nil {
				return fmt.Errorf("reading %s: %w", s.key, err)
			}
			if ok {
				s.apply(cfg, v)
			}
			continue
		}

		raw, ok, err := b.GetString(s.key)
		if err != nil {
			return fmt.Errorf("reading %s: %w", s.key, err)
		}
		if !ok || raw == "" {
			continue
		}
		v, err := s.parseValue(raw)
		if err != nil {
			return fmt.Errorf("invalid value for %s in config file: %w", s.key, err)
		}
		s.apply(cfg, v)
	}
	return nil
}

// lookupEnv returns the first non-empty value among the key's env var and
// its aliases.
func (s keySpec) lookupEnv() (name, raw string) {
	for _, name := range append([]string{s.env}, s.aliases...) {
		if v := os.Getenv(name); v != "" {
			return name, v
		}
	}
	return "", ""
}

func applyEnvOverrides(cfg *Config) {
	for _, s := range specs {
		if s.env == "" {
			continue
		}
		name, raw := s.lookupEnv()
		if raw == "" {
			continue
		}
		v, err := s.parseValue(raw)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] could not parse env var %s=%q: %v. Using default value.\n", name, raw, err)
			continue
		}
		s.apply(cfg, v)
	}
}
