// foreverclip: clipboard-history manager core.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"foreverclip/internal/logging"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

const appName = "foreverclip"

func main() {
	root := &cobra.Command{
		Use:   appName,
		Short: "Clipboard history manager",
		Long: `foreverclip watches the system clipboard and keeps a searchable,
deduplicated history of everything you copy.

Run "foreverclip run" to start the monitor and the local API a
graphical shell connects to. Use "foreverclip export" for a one-shot
JSON backup of the history.

All flags can be set via FOREVERCLIP_<FLAG> env vars.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newRunCmd(),
		newExportCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("%s %s\n", appName, Version)
		},
	}
}

// defaultDataDir is where the database, settings and instance lock
// live unless overridden.
func defaultDataDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, "."+appName), nil
}

// setupLogging configures the global slog logger from parsed flags.
func setupLogging(formatStr, levelStr string) {
	logging.Setup(logging.ParseFormat(formatStr), logging.ParseLevel(levelStr))
}
