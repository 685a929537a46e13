package series

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/tidepool-org/vitals/readings"
)

type Statistics struct {
	Average       float64 `json:"average"`
	Max           float64 `json:"max"`
	Min           float64 `json:"min"`
	AbnormalCount int     `json:"abnormalCount"`
	TotalReadings int     `json:"totalReadings"`
}

// ComputeStatistics summarizes the visible points. It returns nil when there is nothing
// to summarize so that callers can tell "no data" apart from all-zero readings.
func ComputeStatistics(points []Point, band readings.Band, rounding readings.Rounding) *Statistics {
	stats := Statistics{
		Max: math.Inf(-1),
		Min: math.Inf(1),
	}

	sum := 0.0
	for _, p := range points {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			continue
		}
		sum += p.Value
		stats.Max = math.Max(stats.Max, p.Value)
		stats.Min = math.Min(stats.Min, p.Value)
		if band.IsAbnormal(p.Value) {
			stats.AbnormalCount++
		}
		stats.TotalReadings++
	}

	if stats.TotalReadings == 0 {
		return nil
	}

	stats.Average = Round(sum/float64(stats.TotalReadings), rounding)
	return &stats
}

// Round rounds half away from zero to the precision of the rounding mode
func Round(value float64, rounding readings.Rounding) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return value
	}
	return decimal.NewFromFloat(value).Round(rounding.Places()).InexactFloat64()
}
