package cli

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/getreqlog/reqlog/pkg/pathtemplate"
	"github.com/getreqlog/reqlog/pkg/rotate"
)

var (
	rotateDays   int
	rotateDisk   string
	rotateDryRun bool
)

var rotateCmd = &cobra.Command{
	Use:   "rotate",
	Short: "Delete log artifacts older than the retention period",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		diskName := rotateDisk
		if diskName == "" {
			diskName = cfg.Disk
		}
		disk, err := openDisk(diskName)
		if err != nil {
			return err
		}

		template := pathtemplate.Template(cfg.PathTemplate)

		if rotateDryRun {
			fmt.Println("Dry run: no files will be deleted.")
		}

		report, err := rotate.Run(disk, template, rotate.Options{
			RetentionDays: rotateDays,
			DryRun:        rotateDryRun,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		deletedLabel := "Deleted"
		if rotateDryRun {
			deletedLabel = "Would delete"
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Disk", "Scanned", deletedLabel, "Kept"})
		t.AppendRow(table.Row{diskName, report.Scanned, report.Deleted, report.Kept})
		t.Render()
		return nil
	},
}

func init() {
	rotateCmd.Flags().IntVar(&rotateDays, "days", 30, "number of days of logs to keep")
	rotateCmd.Flags().StringVar(&rotateDisk, "disk", "", "disk to rotate (overrides config)")
	rotateCmd.Flags().BoolVar(&rotateDryRun, "dry-run", false, "simulate the rotation without deleting files")
	rootCmd.AddCommand(rotateCmd)
}
