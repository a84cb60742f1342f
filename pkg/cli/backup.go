package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/getreqlog/reqlog/pkg/backup"
	"github.com/getreqlog/reqlog/pkg/pathtemplate"
)

var (
	backupDate         string
	backupDeleteSource bool
	backupCompress     bool
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Transfer a day's log artifact to the backup disk",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cfg.Enabled {
			fmt.Println("Request logging is disabled. No logs to transfer.")
			return nil
		}
		if cfg.BackupDisk == "" {
			fmt.Println("Backup disk is not configured (backup_disk). Skipping transfer.")
			return nil
		}
		if cfg.BackupDisk == cfg.Disk {
			return errors.New("source and destination disks are the same")
		}

		date := time.Now().AddDate(0, 0, -1)
		if backupDate != "" {
			var err error
			date, err = time.Parse("2006-01-02", backupDate)
			if err != nil {
				return fmt.Errorf("invalid --date %q: %w", backupDate, err)
			}
		}

		src, err := openDisk(cfg.Disk)
		if err != nil {
			return err
		}
		dst, err := openDisk(cfg.BackupDisk)
		if err != nil {
			return err
		}

		target, err := backup.Transfer(src, dst, pathtemplate.Template(cfg.PathTemplate), backup.Options{
			Date:         date,
			DeleteSource: backupDeleteSource,
			Compress:     backupCompress,
			Logger:       logger,
		})
		if errors.Is(err, backup.ErrNoArtifact) {
			fmt.Printf("No log artifact for %s on disk %q.\n", date.Format("2006-01-02"), cfg.Disk)
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Printf("Transferred %s log to %q as %s.\n", date.Format("2006-01-02"), cfg.BackupDisk, target)
		return nil
	},
}

func init() {
	backupCmd.Flags().StringVar(&backupDate, "date", "", "date of the logs to transfer (YYYY-MM-DD, defaults to yesterday)")
	backupCmd.Flags().BoolVar(&backupDeleteSource, "delete-source", false, "delete the source artifact after successful transfer")
	backupCmd.Flags().BoolVar(&backupCompress, "compress", false, "gzip the artifact on transfer")
	rootCmd.AddCommand(backupCmd)
}
