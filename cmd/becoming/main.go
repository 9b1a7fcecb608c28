// Becoming daemon - serves the habit-formation store to a companion UI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/becoming/becoming/internal/api"
	"github.com/becoming/becoming/internal/config"
	"github.com/becoming/becoming/internal/insight"
	"github.com/becoming/becoming/internal/logging"
	"github.com/becoming/becoming/internal/state"
	"github.com/becoming/becoming/internal/storage"
)

var (
	dataDir  string
	port     int
	debug    bool
	logLevel string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "becoming",
		Short: "Becoming - identity-based habit formation",
		RunE:  runDaemon,
	}

	home, _ := os.UserHomeDir()
	defaultDataDir := filepath.Join(home, ".becoming")

	rootCmd.Flags().StringVar(&dataDir, "data-dir", defaultDataDir, "Data directory")
	rootCmd.Flags().IntVar(&port, "port", 8080, "HTTP server port")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "Enable debug logging")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runDaemon(cmd *cobra.Command, args []string) error {
	logging.SetLevel(logging.ParseLevel(logLevel))
	if debug {
		logging.SetLevel(logging.DEBUG)
	}

	cfg, err := config.Load(filepath.Join(dataDir, "config.json"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.DataDir = dataDir
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = port
	}

	// Open database
	dbPath := filepath.Join(dataDir, "becoming.db")
	db, err := storage.Open(storage.Config{Path: dbPath})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	// The one startup load; from here memory is authoritative.
	store := state.NewStore(storage.NewStateStore(db))

	var insights *insight.Client
	if cfg.Features.EnableInsights {
		insights = insight.NewClient(insight.Config{
			APIKey: cfg.Insight.APIKey,
			Model:  cfg.Insight.Model,
		})
		if !insights.IsConfigured() {
			logging.Warn("ANTHROPIC_API_KEY not set - insights use the fallback line")
		}
	}

	server := api.New(api.Config{
		Port:    cfg.Server.Port,
		Store:   store,
		Insight: insights,
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		logging.Info("received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}
