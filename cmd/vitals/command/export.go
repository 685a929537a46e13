package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/tidepool-org/vitals/monitor"
	"github.com/tidepool-org/vitals/reports"
)

var exportArgs seriesFlags
var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the series of a patient to a spreadsheet",
	Long:  "The export command writes the aggregated series of a patient and its statistics to an xlsx file",
	RunE:  func(cmd *cobra.Command, args []string) error { return Run(exportSeries) },
}

func exportSeries(mon monitor.Monitor) error {
	result, err := exportArgs.fetch(context.TODO(), mon)
	if err != nil {
		return err
	}

	report := reports.NewReport(result, time.Now())
	out := exportOut
	if out == "" {
		out = report.FileName()
	}

	file, err := os.Create(out)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := report.Write(file); err != nil {
		return err
	}

	fmt.Printf("Exported %d points to %s\n", len(result.Points), out)
	return nil
}

func init() {
	exportArgs.register(exportCmd)
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file, defaults to <metric>-<window>.xlsx")
	rootCmd.AddCommand(exportCmd)
}
