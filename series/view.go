package series

import (
	"time"

	"github.com/tidepool-org/vitals/readings"
)

const (
	labelLayoutRaw = "15:04:05"
	// Raw points that span more than one calendar day carry the date as well
	labelLayoutRawDated = "Jan 02 15:04:05"
	labelLayoutHour     = "Jan 02 15:04"
	labelLayoutDay      = "Jan 02"
)

// View is the render-ready form of a series consumed by charts and tables
type View struct {
	Window        string        `json:"window"`
	Granularity   Granularity   `json:"granularity"`
	Band          readings.Band `json:"band"`
	Points        []Point       `json:"points"`
	Labels        []string      `json:"labels"`
	Values        []float64     `json:"values"`
	AbnormalFlags []bool        `json:"abnormalFlags"`
	Statistics    *Statistics   `json:"statistics"`
	LastUpdated   *time.Time    `json:"lastUpdated,omitempty"`
}

// Compute runs the full pipeline: window selection, aggregation, the visible slice and
// statistics over that slice.
func Compute(rs []readings.Reading, window TimeWindow, now time.Time, cfg Config) View {
	selected := SelectWindow(rs, window, now)
	aggregated := Aggregate(selected, window, cfg)
	visible := VisibleSlice(aggregated.Points, cfg.MaxVisiblePoints)

	view := NewView(visible, aggregated.Granularity, cfg)
	view.Window = window.String()
	view.LastUpdated = latest(selected)
	return view
}

func NewView(points []Point, granularity Granularity, cfg Config) View {
	loc := cfg.location()
	layout := labelLayout(granularity)
	if granularity == GranularityRaw && spansDays(points, loc) {
		layout = labelLayoutRawDated
	}

	view := View{
		Granularity:   granularity,
		Band:          cfg.AbnormalBand,
		Points:        points,
		Labels:        make([]string, 0, len(points)),
		Values:        make([]float64, 0, len(points)),
		AbnormalFlags: make([]bool, 0, len(points)),
		Statistics:    ComputeStatistics(points, cfg.AbnormalBand, cfg.Rounding),
	}
	for _, p := range points {
		view.Labels = append(view.Labels, p.Timestamp.In(loc).Format(layout))
		view.Values = append(view.Values, p.Value)
		view.AbnormalFlags = append(view.AbnormalFlags, cfg.AbnormalBand.IsAbnormal(p.Value))
	}
	return view
}

func labelLayout(granularity Granularity) string {
	switch granularity {
	case GranularityDay:
		return labelLayoutDay
	case GranularityHour:
		return labelLayoutHour
	default:
		return labelLayoutRaw
	}
}

func spansDays(points []Point, loc *time.Location) bool {
	if len(points) == 0 {
		return false
	}
	y, m, d := points[0].Timestamp.In(loc).Date()
	for _, p := range points[1:] {
		py, pm, pd := p.Timestamp.In(loc).Date()
		if py != y || pm != m || pd != d {
			return true
		}
	}
	return false
}

func latest(rs []readings.Reading) *time.Time {
	if len(rs) == 0 {
		return nil
	}
	last := rs[0].Timestamp
	for _, r := range rs[1:] {
		if r.Timestamp.After(last) {
			last = r.Timestamp
		}
	}
	return &last
}
