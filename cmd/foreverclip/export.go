package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"foreverclip/internal/clipboard"
	"foreverclip/internal/service"
	"foreverclip/internal/settings"
	"foreverclip/internal/storage"
	"foreverclip/internal/storage/sqlite"
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Dump the clipboard history as JSON",
		Long: `Writes every stored entry (content, timestamp, content type, size)
to the given file, or stdout when no file is named. A one-shot backup,
not a sync mechanism.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			v.SetEnvPrefix("FOREVERCLIP")
			v.AutomaticEnv()
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return fmt.Errorf("binding flags: %w", err)
			}
			setupLogging(v.GetString("log-format"), v.GetString("log-level"))
			return runExport(cmd, v, args)
		},
	}

	cmd.Flags().String("data-dir", "", "data directory (default: ~/.foreverclip)")
	cmd.Flags().String("db", "", "database path (default: <data-dir>/clipboard_history.db)")
	cmd.Flags().String("log-format", "auto", "log format: auto|text|json")
	cmd.Flags().String("log-level", "warn", "log level: debug|info|warn|error")

	return cmd
}

func runExport(cmd *cobra.Command, v *viper.Viper, args []string) error {
	dataDir := v.GetString("data-dir")
	if dataDir == "" {
		var err error
		if dataDir, err = defaultDataDir(); err != nil {
			return err
		}
	}

	dbPath := v.GetString("db")
	if dbPath == "" {
		dbPath = filepath.Join(dataDir, "clipboard_history.db")
	}
	store, err := sqlite.New(storage.Config{DBPath: dbPath})
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}

	prefs, err := settings.New(filepath.Join(dataDir, "settings.json"))
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	// The service is only used for its export path; the monitor is
	// never started.
	clip := clipboard.NewSystem()
	history := service.New(clipboard.NewMonitor(clip, 0), clip, store, prefs)

	out := os.Stdout
	if len(args) == 1 {
		f, err := os.Create(args[0])
		if err != nil {
			return fmt.Errorf("failed to create export file: %w", err)
		}
		defer f.Close()
		out = f
	}

	return history.Export(cmd.Context(), out)
}
