package series

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/tidepool-org/vitals/readings"
)

const (
	WindowLabelCustom = "custom"
	WindowLabelAll    = "all"

	// ShortWindow is the longest recent duration that is always displayed unbucketed
	ShortWindow = time.Hour

	day           = 24 * time.Hour
	maxWindowDays = int(math.MaxInt64 / int64(day))
)

var ErrInvalidWindow = errors.New("invalid time window")

// TimeWindow selects readings either by a recent duration or by an explicit range.
// Exactly one of the two policies is active.
type TimeWindow struct {
	duration time.Duration
	from     *time.Time
	to       *time.Time
	recent   bool
}

func Recent(duration time.Duration) TimeWindow {
	return TimeWindow{duration: duration, recent: true}
}

// Range returns a window bounded by from and to. A nil bound leaves that side open.
func Range(from, to *time.Time) TimeWindow {
	w := TimeWindow{}
	if from != nil {
		f := *from
		w.from = &f
	}
	if to != nil {
		t := *to
		w.to = &t
	}
	return w
}

func (w TimeWindow) IsRecent() bool {
	return w.recent
}

func (w TimeWindow) Duration() time.Duration {
	return w.duration
}

// Bounds returns the effective bounds of the window at the given instant
func (w TimeWindow) Bounds(now time.Time) (from *time.Time, to *time.Time) {
	if w.recent {
		f := now.Add(-w.duration)
		return &f, &now
	}
	return w.from, w.to
}

func (w TimeWindow) contains(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

func (w TimeWindow) String() string {
	if w.recent {
		return formatDuration(w.duration)
	}
	if w.from == nil && w.to == nil {
		return WindowLabelAll
	}
	return WindowLabelCustom
}

// ParseWindow parses the window selections offered by the dashboard ("30min", "1hour",
// "custom") as well as plain durations such as "6h" or "7d". An empty selection with a
// bound is a custom window, bounds are rejected for any other selection.
func ParseWindow(value string, from, to *time.Time) (TimeWindow, error) {
	value = strings.TrimSpace(value)
	bounded := from != nil || to != nil
	if value == "" && bounded {
		value = WindowLabelCustom
	}
	if value != WindowLabelCustom && bounded {
		return TimeWindow{}, fmt.Errorf("%w: from and to require a custom window", ErrInvalidWindow)
	}

	switch value {
	case "30min":
		return Recent(30 * time.Minute), nil
	case "1hour":
		return Recent(time.Hour), nil
	case WindowLabelCustom:
		if !bounded {
			return TimeWindow{}, fmt.Errorf("%w: custom window requires from or to", ErrInvalidWindow)
		}
		if from != nil && to != nil && from.After(*to) {
			return TimeWindow{}, fmt.Errorf("%w: from is after to", ErrInvalidWindow)
		}
		return Range(from, to), nil
	case "", WindowLabelAll:
		return Range(nil, nil), nil
	}

	duration, err := parseDuration(value)
	if err != nil {
		return TimeWindow{}, fmt.Errorf("%w: %s", ErrInvalidWindow, value)
	}
	if duration <= 0 {
		return TimeWindow{}, fmt.Errorf("%w: duration must be positive", ErrInvalidWindow)
	}
	return Recent(duration), nil
}

func parseDuration(value string) (time.Duration, error) {
	if days, ok := strings.CutSuffix(value, "d"); ok {
		n, err := strconv.Atoi(days)
		if err != nil {
			return 0, err
		}
		if n <= 0 || n > maxWindowDays {
			return 0, fmt.Errorf("day count must be between 1 and %d", maxWindowDays)
		}
		return time.Duration(n) * day, nil
	}
	return time.ParseDuration(value)
}

func formatDuration(d time.Duration) string {
	switch {
	case d > 0 && d%day == 0:
		return fmt.Sprintf("%dd", d/day)
	case d > 0 && d%time.Hour == 0:
		return fmt.Sprintf("%dh", d/time.Hour)
	case d > 0 && d%time.Minute == 0:
		return fmt.Sprintf("%dm", d/time.Minute)
	default:
		return d.String()
	}
}

// SelectWindow returns the well-formed readings that fall in the window, in their
// original relative order. The input is not modified.
func SelectWindow(rs []readings.Reading, window TimeWindow, now time.Time) []readings.Reading {
	from, to := window.Bounds(now)
	selected := make([]readings.Reading, 0, len(rs))
	for _, r := range rs {
		if !r.Valid() {
			continue
		}
		if window.contains(r.Timestamp, from, to) {
			selected = append(selected, r)
		}
	}
	return selected
}
