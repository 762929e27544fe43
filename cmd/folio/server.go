package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kalambet/folio/internal/api"
	"github.com/kalambet/folio/internal/client"
	"github.com/kalambet/folio/internal/config"
	"github.com/kalambet/folio/internal/profile"
	"github.com/kalambet/folio/internal/storage"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the portfolio over MCP on stdin/stdout",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCP()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show server and store status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

// setupLogging installs a text slog handler on stderr. stdout stays free for
// command output and the MCP transport.
func setupLogging(cfg config.Config) *slog.Logger {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)
	return logger
}

// openService connects to the configured store. The caller owns the
// returned backend and must close it.
func openService(ctx context.Context, cfg config.Config) (*profile.Service, storage.Backend, error) {
	backend, err := storage.Open(ctx, cfg.Storage.DatabaseURL, cfg.Storage.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("opening storage (%s): %w", storage.Describe(cfg.Storage.DatabaseURL, cfg.Storage.DataDir), err)
	}
	return profile.NewService(backend), backend, nil
}

func newHTTPServer(ctx context.Context, cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := setupLogging(cfg)
	logger.Info("folio starting", "version", version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A store that cannot be reached at startup is fatal; there is no retry.
	svc, backend, err := openService(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Warn("closing storage", "error", err)
		}
	}()
	logger.Info("storage ready", "backend", storage.Describe(cfg.Storage.DatabaseURL, cfg.Storage.DataDir))

	handler := api.NewHandler(api.Deps{
		Service:        svc,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		Logger:         logger,
	})
	srv := newHTTPServer(ctx, cfg, handler)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func runMCP() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, backend, err := openService(ctx, cfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	mcpSrv := api.NewMCPServer(api.MCPDeps{Service: svc, Version: version})
	logger.Info("MCP server started (stdio transport)")
	if err := server.NewStdioServer(mcpSrv).Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("MCP stdio server: %w", err)
	}
	return nil
}

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		// Still show partial status even if config fails.
		printError("config error: %v", err)
		return nil
	}

	c := newClient(cfg)
	printStatus("API", "%s", c.BaseURL())

	// A full load also reports the profile; a server without one still
	// answers health on its own.
	view := client.NewView(c)
	_ = view.Load(ctx)
	h := view.Health()
	if !view.Loaded() {
		h, err = c.Health(ctx)
	}
	if err != nil {
		printStatus("Server", "%s", colorize(colorRed, "offline"))
	} else {
		printStatus("Server", "%s (checked %s)", colorize(colorGreen, h.Status), h.Timestamp.Local().Format(time.TimeOnly))
		if view.Loaded() {
			p := view.Profile()
			printStatus("Profile", "%s <%s>, %d projects", p.Name, p.Email, len(p.Projects))
		} else {
			printStatus("Profile", "%s", colorize(colorYellow, "none"))
		}
		ready, err := c.Ready(ctx)
		switch {
		case err != nil:
			printStatus("Store", "unknown (%v)", err)
		case ready:
			printStatus("Store", "%s", colorize(colorGreen, "ready"))
		default:
			printStatus("Store", "%s", colorize(colorYellow, "degraded"))
		}
	}

	printStatus("Backend", "%s", storage.Describe(cfg.Storage.DatabaseURL, cfg.Storage.DataDir))
	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	return nil
}
