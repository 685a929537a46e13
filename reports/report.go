package reports

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/tealeg/xlsx/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/tidepool-org/vitals/monitor"
)

const (
	SheetNameSummary  = "Summary"
	SheetNameReadings = "Readings"

	StatusNormal   = "Normal"
	StatusAbnormal = "Abnormal"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Report is a spreadsheet export of a computed series
type Report struct {
	series        *monitor.Series
	generatedTime time.Time
}

func NewReport(series *monitor.Series, generatedTime time.Time) Report {
	return Report{series: series, generatedTime: generatedTime}
}

// FileName returns the suggested file name of the export, e.g. heart-rate-30m.xlsx
func (r Report) FileName() string {
	title := strings.ToLower(strings.Join(strings.Fields(r.series.Title), "-"))
	if title == "" {
		title = string(r.series.Metric)
	}
	return fmt.Sprintf("%s-%s.xlsx", title, r.series.Window)
}

func (r Report) Generate() (*xlsx.File, error) {
	report := xlsx.NewFile()

	components := []func(report *xlsx.File) error{
		r.addSummarySheet,
		r.addReadingsSheet,
	}
	for _, fn := range components {
		if err := fn(report); err != nil {
			return nil, err
		}
	}

	return report, nil
}

func (r Report) Write(w io.Writer) error {
	report, err := r.Generate()
	if err != nil {
		return err
	}
	return report.Write(w)
}

func (r Report) addSummarySheet(report *xlsx.File) error {
	sh, err := report.AddSheet(SheetNameSummary)
	if err != nil {
		return err
	}

	sh.AddRow().AddCell().SetValue(fmt.Sprintf("%s Summary", r.series.Title))
	sh.AddRow()

	addField(sh, "Report Generated", r.generatedTime.Format(time.RFC3339))
	addField(sh, "Patient", r.series.PatientId)
	addField(sh, "Metric", r.series.Title)
	addField(sh, "Unit", r.series.Unit)
	addField(sh, "Window", r.series.Window)
	addField(sh, "Granularity", cases.Title(language.English).String(string(r.series.Granularity)))
	addField(sh, "Normal Range", fmt.Sprintf("%v - %v %s", r.series.Band.Min, r.series.Band.Max, r.series.Unit))
	if r.series.LastUpdated != nil {
		addField(sh, "Last Reading", r.series.LastUpdated.Format(time.RFC3339))
	}
	sh.AddRow()

	sh.AddRow().AddCell().SetValue("Statistics ---")
	stats := r.series.Statistics
	if stats == nil {
		sh.AddRow().AddCell().SetValue("No readings in the selected window")
		return nil
	}

	addNumber(sh, "Average", stats.Average)
	addNumber(sh, "Max", stats.Max)
	addNumber(sh, "Min", stats.Min)
	addCount(sh, "Abnormal Readings", stats.AbnormalCount)
	addCount(sh, "Total Readings", stats.TotalReadings)

	return nil
}

func (r Report) addReadingsSheet(report *xlsx.File) error {
	sh, err := report.AddSheet(SheetNameReadings)
	if err != nil {
		return err
	}

	header := sh.AddRow()
	header.AddCell().SetValue("Time")
	header.AddCell().SetValue(fmt.Sprintf("Value (%s)", r.series.Unit))
	header.AddCell().SetValue("Readings")
	header.AddCell().SetValue("Status")

	for i, point := range r.series.Points {
		row := sh.AddRow()
		row.AddCell().SetValue(r.series.Labels[i])
		row.AddCell().SetFloat(point.Value)
		row.AddCell().SetInt(point.Count)
		if r.series.AbnormalFlags[i] {
			row.AddCell().SetValue(StatusAbnormal)
		} else {
			row.AddCell().SetValue(StatusNormal)
		}
	}

	return nil
}

func addField(sh *xlsx.Sheet, name string, value string) {
	row := sh.AddRow()
	row.AddCell().SetValue(name)
	row.AddCell().SetValue(value)
}

func addNumber(sh *xlsx.Sheet, name string, value float64) {
	row := sh.AddRow()
	row.AddCell().SetValue(name)
	row.AddCell().SetFloat(value)
}

func addCount(sh *xlsx.Sheet, name string, value int) {
	row := sh.AddRow()
	row.AddCell().SetValue(name)
	row.AddCell().SetInt(value)
}
