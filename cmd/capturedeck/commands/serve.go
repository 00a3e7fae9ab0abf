package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanchriswhite/CaptureDeck/internal/api"
	"github.com/bryanchriswhite/CaptureDeck/internal/logger"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the CaptureDeck server",
	Long: `Start the CaptureDeck HTTP server.

The server exposes a REST API for listing windows and starting or stopping
captures and recordings, plus a WebSocket event stream at /api/events.`,
	Example: `  # Start server on default port (8090)
  capturedeck serve

  # Start server on custom port
  capturedeck serve --port 9090

  # Start with debug logging
  capturedeck serve --log-level debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("serve")

	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := configMgr.Get()
	log.Info().
		Str("config", configMgr.GetConfigPath()).
		Str("log_level", cfg.LogLevel).
		Msg("Configuration loaded")

	a, err := newApp(configMgr)
	if err != nil {
		return err
	}
	defer a.Close()

	server := api.NewServer(a.directory, a.ctrl, a.encoder, configMgr, a.hub)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.ServerPort)
	}()

	log.Info().
		Int("port", cfg.ServerPort).
		Str("captures", cfg.CapturesDir()).
		Msg("CaptureDeck is running, press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-sigChan:
	}

	log.Info().Msg("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("HTTP shutdown incomplete")
	}
	return nil
}
