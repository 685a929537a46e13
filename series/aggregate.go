package series

import (
	"cmp"
	"slices"
	"time"

	"github.com/tidepool-org/vitals/readings"
)

type Granularity string

const (
	GranularityRaw  Granularity = "raw"
	GranularityHour Granularity = "hour"
	GranularityDay  Granularity = "day"
)

// Point is a render-ready sample. Raw readings have a count of one; buckets carry the
// rounded mean of their readings at the bucket's representative timestamp.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	Count     int       `json:"count"`
}

type Series struct {
	Granularity Granularity `json:"granularity"`
	Points      []Point     `json:"points"`
}

// Aggregate groups readings by calendar day or hour when the span of the window is large
// enough and returns them unmodified otherwise. Buckets are always returned in ascending
// chronological order.
func Aggregate(rs []readings.Reading, window TimeWindow, cfg Config) Series {
	valid := make([]readings.Reading, 0, len(rs))
	for _, r := range rs {
		if r.Valid() {
			valid = append(valid, r)
		}
	}

	switch granularityFor(valid, window, cfg) {
	case GranularityDay:
		return Series{Granularity: GranularityDay, Points: group(valid, cfg, dayKey, dayRepresentative)}
	case GranularityHour:
		return Series{Granularity: GranularityHour, Points: group(valid, cfg, hourKey, hourRepresentative)}
	}

	points := make([]Point, 0, len(valid))
	for _, r := range valid {
		points = append(points, Point{Timestamp: r.Timestamp, Value: r.Value, Count: 1})
	}
	return Series{Granularity: GranularityRaw, Points: points}
}

func granularityFor(rs []readings.Reading, window TimeWindow, cfg Config) Granularity {
	if window.IsRecent() && window.Duration() <= ShortWindow {
		return GranularityRaw
	}

	span := windowSpan(rs, window)
	switch {
	case span > cfg.BucketThresholds.daySpan():
		return GranularityDay
	case span > cfg.BucketThresholds.hourSpan():
		return GranularityHour
	default:
		return GranularityRaw
	}
}

func windowSpan(rs []readings.Reading, window TimeWindow) time.Duration {
	if window.IsRecent() {
		return window.Duration()
	}

	from, to := window.from, window.to
	if from == nil || to == nil {
		if len(rs) == 0 {
			return 0
		}
		first, last := rs[0].Timestamp, rs[0].Timestamp
		for _, r := range rs[1:] {
			if r.Timestamp.Before(first) {
				first = r.Timestamp
			}
			if r.Timestamp.After(last) {
				last = r.Timestamp
			}
		}
		if from == nil {
			from = &first
		}
		if to == nil {
			to = &last
		}
	}
	return to.Sub(*from)
}

type keyFunc func(t time.Time, loc *time.Location) time.Time

func dayKey(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), 0, 0, 0, 0, loc)
}

func hourKey(t time.Time, loc *time.Location) time.Time {
	l := t.In(loc)
	return time.Date(l.Year(), l.Month(), l.Day(), l.Hour(), 0, 0, 0, loc)
}

func dayRepresentative(key time.Time) time.Time {
	return time.Date(key.Year(), key.Month(), key.Day(), 12, 0, 0, 0, key.Location())
}

func hourRepresentative(key time.Time) time.Time {
	return key
}

type accumulator struct {
	key   time.Time
	sum   float64
	count int
}

func group(rs []readings.Reading, cfg Config, key keyFunc, representative func(time.Time) time.Time) []Point {
	// Sorting first makes both bucket order and floating point sums independent of
	// arrival order.
	sorted := slices.Clone(rs)
	slices.SortFunc(sorted, func(a, b readings.Reading) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.Value, b.Value)
	})

	loc := cfg.location()
	buckets := make([]*accumulator, 0)
	index := map[int64]*accumulator{}
	for _, r := range sorted {
		k := key(r.Timestamp, loc)
		acc, ok := index[k.Unix()]
		if !ok {
			acc = &accumulator{key: k}
			index[k.Unix()] = acc
			buckets = append(buckets, acc)
		}
		acc.sum += r.Value
		acc.count++
	}

	slices.SortFunc(buckets, func(a, b *accumulator) int {
		return a.key.Compare(b.key)
	})

	points := make([]Point, 0, len(buckets))
	for _, acc := range buckets {
		points = append(points, Point{
			Timestamp: representative(acc.key),
			Value:     Round(acc.sum/float64(acc.count), cfg.Rounding),
			Count:     acc.count,
		})
	}
	return points
}

// VisibleSlice returns the most recent maxPoints items. It never pads.
func VisibleSlice[T any](items []T, maxPoints int) []T {
	if maxPoints <= 0 {
		return []T{}
	}
	start := len(items) - maxPoints
	if start < 0 {
		start = 0
	}
	return slices.Clone(items[start:])
}
