package cli

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/getreqlog/reqlog/pkg/pathtemplate"
	"github.com/getreqlog/reqlog/pkg/query"
)

var (
	showDate  string
	showDisk  string
	showLimit int
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "List captured request logs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		diskName := showDisk
		if diskName == "" {
			diskName = cfg.Disk
		}
		disk, err := openDisk(diskName)
		if err != nil {
			return err
		}

		q := query.New().
			Disk(disk).
			PathTemplate(pathtemplate.Template(cfg.PathTemplate)).
			Logger(logger)
		if showDate != "" {
			q = q.WhereDate(showDate)
		}

		records, err := q.All()
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No request logs found.")
			return nil
		}

		if showLimit > 0 && len(records) > showLimit {
			records = records[len(records)-showLimit:]
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Start Time", "Method", "URI", "Status", "Duration (ms)"})
		for _, r := range records {
			t.AppendRow(table.Row{
				r.Request.StartTime,
				r.Request.Method,
				text.Trim(r.Request.URI, 60),
				fmt.Sprintf("%d %s", r.Response.StatusCode, r.Response.StatusText),
				r.Response.DurationMs,
			})
		}
		t.Render()
		fmt.Printf("%d record(s).\n", len(records))
		return nil
	},
}

func init() {
	showCmd.Flags().StringVar(&showDate, "date", "", "only show logs for this date (YYYY-MM-DD)")
	showCmd.Flags().StringVar(&showDisk, "disk", "", "disk to query (overrides config)")
	showCmd.Flags().IntVar(&showLimit, "limit", 50, "maximum number of records to display (0 = all)")
	rootCmd.AddCommand(showCmd)
}
