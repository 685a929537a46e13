package series

import (
	"time"

	"github.com/tidepool-org/vitals/readings"
)

const DefaultMaxVisiblePoints = 20

type BucketThresholds struct {
	// HourSpanHours is the span above which readings are grouped by hour
	HourSpanHours float64 `json:"hourSpanHours"`
	// DaySpanDays is the span above which readings are grouped by day
	DaySpanDays float64 `json:"daySpanDays"`
}

func (b BucketThresholds) hourSpan() time.Duration {
	return time.Duration(b.HourSpanHours * float64(time.Hour))
}

func (b BucketThresholds) daySpan() time.Duration {
	return time.Duration(b.DaySpanDays * 24 * float64(time.Hour))
}

type Config struct {
	MaxVisiblePoints int               `json:"maxVisiblePoints"`
	AbnormalBand     readings.Band     `json:"abnormalBand"`
	BucketThresholds BucketThresholds  `json:"bucketThresholds"`
	Rounding         readings.Rounding `json:"roundingMode"`

	// Location is the display time zone used for calendar bucketing and labels
	Location *time.Location `json:"-"`
}

func DefaultConfig() Config {
	return Config{
		MaxVisiblePoints: DefaultMaxVisiblePoints,
		AbnormalBand:     readings.Band{Min: 1800, Max: 2000},
		BucketThresholds: BucketThresholds{HourSpanHours: 6, DaySpanDays: 1},
		Rounding:         readings.RoundingInteger,
		Location:         time.Local,
	}
}

func ConfigForProfile(profile readings.Profile, maxVisiblePoints int, location *time.Location) Config {
	cfg := DefaultConfig()
	cfg.AbnormalBand = profile.Band
	cfg.Rounding = profile.Rounding
	if maxVisiblePoints > 0 {
		cfg.MaxVisiblePoints = maxVisiblePoints
	}
	if location != nil {
		cfg.Location = location
	}
	return cfg
}

func (c Config) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}
