package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"foreverclip/internal/clipboard"
	"foreverclip/internal/lock"
	"foreverclip/internal/server"
	"foreverclip/internal/service"
	"foreverclip/internal/settings"
	"foreverclip/internal/storage"
	"foreverclip/internal/storage/sqlite"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the clipboard monitor and the local API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := viper.New()
			v.SetEnvPrefix("FOREVERCLIP")
			v.AutomaticEnv()
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return fmt.Errorf("binding flags: %w", err)
			}
			setupLogging(v.GetString("log-format"), v.GetString("log-level"))
			return runDaemon(v)
		},
	}

	cmd.Flags().String("data-dir", "", "data directory (default: ~/.foreverclip)")
	cmd.Flags().String("db", "", "database path (default: <data-dir>/clipboard_history.db)")
	cmd.Flags().String("addr", "localhost:7756", "address for the local HTTP API")
	cmd.Flags().Duration("interval", 0, "clipboard poll interval (default: check_interval_ms setting)")
	cmd.Flags().String("log-format", "auto", "log format: auto|text|json")
	cmd.Flags().String("log-level", "info", "log level: debug|info|warn|error")

	return cmd
}

func runDaemon(v *viper.Viper) error {
	dataDir := v.GetString("data-dir")
	if dataDir == "" {
		var err error
		if dataDir, err = defaultDataDir(); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	// Only one live instance may touch the database and clipboard.
	instance, err := lock.New(dataDir, appName)
	if err != nil {
		return err
	}
	if err := instance.Acquire(); err != nil {
		return err
	}
	defer func() {
		if err := instance.Release(); err != nil {
			slog.Error("failed to release instance lock", "error", err)
		}
	}()

	prefs, err := settings.New(filepath.Join(dataDir, "settings.json"))
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	dbPath := v.GetString("db")
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "clipboard_history.db")
	}
	store, err := sqlite.New(storage.Config{DBPath: dbPath})
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	interval := v.GetDuration("interval")
	if interval <= 0 {
		interval = time.Duration(prefs.GetInt(settings.KeyCheckIntervalMS)) * time.Millisecond
	}

	clip := clipboard.NewSystem()
	monitor := clipboard.NewMonitor(clip, interval)
	history := service.New(monitor, clip, store, prefs)

	srv := server.New(history, server.Config{Addr: v.GetString("addr")})

	if err := history.Start(); err != nil {
		return fmt.Errorf("failed to start history service: %w", err)
	}
	if err := srv.Start(); err != nil {
		if stopErr := history.Stop(); stopErr != nil {
			slog.Error("failed to stop history service", "error", stopErr)
		}
		return fmt.Errorf("failed to start server: %w", err)
	}

	slog.Info("foreverclip running",
		"db", dbPath, "addr", v.GetString("addr"), "interval", interval)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("shutting down")
	if err := srv.Stop(); err != nil {
		slog.Error("error stopping server", "error", err)
	}
	if err := history.Stop(); err != nil {
		slog.Error("error stopping history service", "error", err)
	}
	return nil
}
