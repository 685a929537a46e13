package readings

import (
	"math"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

type Metric string

const (
	MetricECG         Metric = "ecg"
	MetricHeartRate   Metric = "heartRate"
	MetricBloodOxygen Metric = "bloodOxygen"
	MetricTemperature Metric = "temperature"
)

var supportedMetrics = mapset.NewSet[Metric](
	MetricECG,
	MetricHeartRate,
	MetricBloodOxygen,
	MetricTemperature,
)

func IsSupported(metric Metric) bool {
	return supportedMetrics.Contains(metric)
}

// SupportedMetrics returns the metric names in a stable order
func SupportedMetrics() []Metric {
	return []Metric{MetricECG, MetricHeartRate, MetricBloodOxygen, MetricTemperature}
}

// Reading is a single timestamped measurement. A zero Timestamp marks a reading whose
// upstream timestamp could not be parsed.
type Reading struct {
	Timestamp time.Time `json:"timestamp" bson:"timestamp"`
	Value     float64   `json:"value" bson:"value"`
}

func (r Reading) Valid() bool {
	return !r.Timestamp.IsZero() && !math.IsNaN(r.Value) && !math.IsInf(r.Value, 0)
}

// Band is the inclusive range of values considered normal
type Band struct {
	Min float64 `json:"min" bson:"min" yaml:"min"`
	Max float64 `json:"max" bson:"max" yaml:"max"`
}

func (b Band) Contains(value float64) bool {
	return value >= b.Min && value <= b.Max
}

func (b Band) IsAbnormal(value float64) bool {
	return !b.Contains(value)
}

func (b Band) Validate() error {
	if math.IsNaN(b.Min) || math.IsNaN(b.Max) || b.Min >= b.Max {
		return ErrInvalidBand
	}
	return nil
}
