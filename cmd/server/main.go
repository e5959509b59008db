// Package main provides the server entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/knakkis/bandbox/internal/api/httpapi"
	"github.com/knakkis/bandbox/internal/app/catalog"
	"github.com/knakkis/bandbox/internal/app/player"
	"github.com/knakkis/bandbox/internal/app/queue"
	"github.com/knakkis/bandbox/internal/infra/auth"
	"github.com/knakkis/bandbox/internal/infra/config"
	"github.com/knakkis/bandbox/internal/infra/logger"
	"github.com/knakkis/bandbox/internal/infra/store"
	"github.com/knakkis/bandbox/internal/infra/youtube"
)

var (
	app        = kingpin.New("bandbox-server", "bandbox promo site server")
	configPath = app.Flag("config", "Path to config file").Default("config/server.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{
		Output: "stdout",
		Level:  "info",
	}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if err := run(cfg); err != nil {
		zlog.Error().Msgf("Server error: %v", err)
		os.Exit(1)
	}
}

// run executes the main server logic. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	storeClient, err := store.New(store.Config{
		URL:    cfg.Store.URL,
		APIKey: cfg.Store.APIKey,
	})
	if err != nil {
		return fmt.Errorf("failed to create store client: %w", err)
	}

	authClient, err := auth.New(auth.Config{
		URL:    cfg.Auth.URL,
		APIKey: cfg.Auth.APIKey,
	})
	if err != nil {
		return fmt.Errorf("failed to create auth client: %w", err)
	}

	ytClient := youtube.New(youtube.Config{
		BaseURL:    cfg.YouTube.BaseURL,
		RatePerSec: cfg.YouTube.RatePerSec,
	})

	queueMgr := queue.NewManager()
	defer queueMgr.Close()

	loader := catalog.NewLoader(storeClient, ytClient, queueMgr)
	apiServer := httpapi.NewServer(queueMgr, loader, storeClient, authClient)

	controller := player.NewController(queueMgr, apiServer.WidgetLoader(), player.Config{
		MaxRetries:   cfg.Player.MaxInitRetries,
		RetryDelay:   cfg.Player.RetryDelay(),
		ReadyTimeout: cfg.Player.ReadyTimeout(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	controllerErrCh := make(chan error, 1)
	go func() {
		if err := controller.Run(ctx); err != nil {
			controllerErrCh <- err
		}
	}()

	server := &http.Server{
		Addr:    cfg.Server.Addr,
		Handler: h2c.NewHandler(apiServer.Handler(), &http2.Server{}),
	}

	serverErrCh := make(chan error, 1)
	go func() {
		zlog.Info().Msgf("Starting server: addr=%s", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-sigCh:
		zlog.Info().Msg("Received shutdown signal...")
	case err := <-controllerErrCh:
		zlog.Error().Msgf("Playback session failed: %v", err)
	case err := <-serverErrCh:
		return fmt.Errorf("server error: %w", err)
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Msgf("Failed to shutdown server: %v", err)
	}

	zlog.Info().Msg("Server stopped")
	return nil
}
