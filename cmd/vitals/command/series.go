package command

import (
	"context"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tidepool-org/vitals/monitor"
	"github.com/tidepool-org/vitals/readings"
	"github.com/tidepool-org/vitals/series"
)

// seriesFlags select the series of the series and export commands
type seriesFlags struct {
	patientId string
	metric    string
	window    string
	from      string
	to        string
}

func (s *seriesFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.patientId, "patient", "p", "", "Id of the patient")
	cmd.Flags().StringVarP(&s.metric, "metric", "m", string(readings.MetricHeartRate), "Metric of the series (ecg, heartRate, bloodOxygen, temperature)")
	cmd.Flags().StringVarP(&s.window, "window", "w", "", "Window of the series (30min, 1hour, 6h, 7d, custom, all), defaults to 30min or custom when from or to is set")
	cmd.Flags().StringVar(&s.from, "from", "", "Start of a custom window (RFC3339)")
	cmd.Flags().StringVar(&s.to, "to", "", "End of a custom window (RFC3339)")
	_ = cmd.MarkFlagRequired("patient")
}

func (s *seriesFlags) fetch(ctx context.Context, mon monitor.Monitor) (*monitor.Series, error) {
	from, err := parseTime(s.from)
	if err != nil {
		return nil, fmt.Errorf("invalid from: %w", err)
	}
	to, err := parseTime(s.to)
	if err != nil {
		return nil, fmt.Errorf("invalid to: %w", err)
	}
	value := s.window
	if value == "" && from == nil && to == nil {
		value = defaultWindow
	}
	window, err := series.ParseWindow(value, from, to)
	if err != nil {
		return nil, err
	}

	return mon.Series(ctx, s.patientId, readings.Metric(s.metric), window)
}

func parseTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

const defaultWindow = "30min"

var seriesArgs seriesFlags

var seriesCmd = &cobra.Command{
	Use:   "series",
	Short: "Print the series of a patient",
	Long:  "The series command fetches the readings of a patient once and prints the aggregated series",
	RunE:  func(cmd *cobra.Command, args []string) error { return Run(printSeries) },
}

func printSeries(mon monitor.Monitor) error {
	result, err := seriesArgs.fetch(context.TODO(), mon)
	if err != nil {
		return err
	}

	return writeSeries(os.Stdout, result)
}

func writeSeries(out io.Writer, s *monitor.Series) error {
	fmt.Fprintf(out, "%s (%s), window %s, %s granularity, normal range %v - %v\n\n", s.Title, s.Unit, s.Window, s.Granularity, s.Band.Min, s.Band.Max)

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tVALUE\tREADINGS\tSTATUS")
	for i, point := range s.Points {
		status := "Normal"
		if s.AbnormalFlags[i] {
			status = "Abnormal"
		}
		fmt.Fprintf(w, "%s\t%v\t%d\t%s\n", s.Labels[i], point.Value, point.Count, status)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if s.Statistics == nil {
		fmt.Fprintln(out, "\nNo readings in the selected window")
		return nil
	}
	stats := s.Statistics
	fmt.Fprintf(out, "\nAverage %v, max %v, min %v, %d of %d abnormal\n", stats.Average, stats.Max, stats.Min, stats.AbnormalCount, stats.TotalReadings)
	return nil
}

func init() {
	seriesArgs.register(seriesCmd)
	rootCmd.AddCommand(seriesCmd)
}
