// Package cli implements the reqlog console commands: log rotation,
// archival transfer, and artifact inspection.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/getreqlog/reqlog/pkg/config"
	"github.com/getreqlog/reqlog/pkg/logging"
	"github.com/getreqlog/reqlog/pkg/store"
	"github.com/getreqlog/reqlog/pkg/store/local"
)

var (
	cfgFile string
	envFile string

	cfg    config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:           "reqlog",
	Short:         "Manage captured HTTP request/response log artifacts",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// .env is optional; a missing file is not an error.
		if envFile != "" {
			_ = godotenv.Load(envFile)
		} else {
			_ = godotenv.Load()
		}

		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}

		logger = logging.New(logging.Config{
			Level:  logging.ParseLevel(cfg.Log.Level),
			Format: logging.ParseFormat(cfg.Log.Format),
		})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "reqlog.yaml", "path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "path to a .env file to load first")
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// openDisk resolves a disk name to a store: explicitly registered stores
// win, then the configured local roots.
func openDisk(name string) (store.Store, error) {
	if s, ok := store.Disk(name); ok {
		return s, nil
	}
	switch name {
	case cfg.Disk:
		return local.New(cfg.StorageRoot)
	case cfg.BackupDisk:
		return local.New(cfg.BackupRoot)
	}
	return nil, fmt.Errorf("unknown disk %q; register it or configure disk/backup_disk", name)
}
