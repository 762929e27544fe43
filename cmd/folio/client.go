package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/kalambet/folio/internal/client"
	"github.com/kalambet/folio/internal/config"
)

// newClient builds the API client for the configured base URL. Tests replace
// it to point at an httptest server.
var newClient = func(cfg config.Config) *client.Client {
	return client.New(cfg.Client.BaseURL, cfg.Client.Timeout)
}

// loadClient loads the config and returns a client for it.
func loadClient() (*client.Client, config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, config.Config{}, fmt.Errorf("loading config: %w", err)
	}
	return newClient(cfg), cfg, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
