package series_test

import (
	"math"
	"time"

	"github.com/mohae/deepcopy"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tidepool-org/vitals/readings"
	readingsTest "github.com/tidepool-org/vitals/readings/test"
	"github.com/tidepool-org/vitals/series"
)

var _ = Describe("Time Window", func() {
	var now time.Time

	BeforeEach(func() {
		now = time.Date(2024, time.March, 10, 15, 0, 0, 0, time.UTC)
	})

	Describe("SelectWindow", func() {
		It("returns readings within the recent duration in their original order", func() {
			rs := []readings.Reading{
				{Timestamp: now.Add(-10 * time.Minute), Value: 3},
				{Timestamp: now.Add(-2 * time.Hour), Value: 1},
				{Timestamp: now.Add(-40 * time.Minute), Value: 2},
				{Timestamp: now, Value: 4},
			}

			selected := series.SelectWindow(rs, series.Recent(time.Hour), now)
			Expect(selected).To(Equal([]readings.Reading{rs[0], rs[2], rs[3]}))
		})

		It("includes both bounds of an explicit range", func() {
			from := now.Add(-time.Hour)
			to := now
			rs := []readings.Reading{
				{Timestamp: from, Value: 1},
				{Timestamp: from.Add(-time.Second), Value: 2},
				{Timestamp: to, Value: 3},
				{Timestamp: to.Add(time.Second), Value: 4},
			}

			selected := series.SelectWindow(rs, series.Range(&from, &to), now)
			Expect(selected).To(Equal([]readings.Reading{rs[0], rs[2]}))
		})

		It("treats a missing bound as open", func() {
			from := now.Add(-time.Hour)
			rs := []readings.Reading{
				{Timestamp: now.Add(-2 * time.Hour), Value: 1},
				{Timestamp: now.Add(48 * time.Hour), Value: 2},
			}

			selected := series.SelectWindow(rs, series.Range(&from, nil), now)
			Expect(selected).To(Equal([]readings.Reading{rs[1]}))
		})

		It("silently drops malformed readings", func() {
			rs := []readings.Reading{
				{Timestamp: time.Time{}, Value: 1900},
				{Timestamp: now.Add(-time.Minute), Value: math.NaN()},
				{Timestamp: now.Add(-time.Minute), Value: math.Inf(1)},
				{Timestamp: now.Add(-time.Minute), Value: 1900},
			}

			selected := series.SelectWindow(rs, series.Recent(time.Hour), now)
			Expect(selected).To(HaveLen(1))
			Expect(selected[0].Value).To(Equal(1900.0))
		})

		It("returns an empty result for empty input", func() {
			Expect(series.SelectWindow(nil, series.Recent(time.Hour), now)).To(BeEmpty())
		})

		It("returns a subset of the input without modifying it", func() {
			band := readings.Band{Min: 1800, Max: 2000}
			rs := readingsTest.Shuffled(readingsTest.RandomReadings(now.Add(-3*time.Hour), time.Minute, 180, band))
			original := deepcopy.Copy(rs).([]readings.Reading)

			selected := series.SelectWindow(rs, series.Recent(90*time.Minute), now)
			Expect(rs).To(Equal(original))

			position := -1
			for _, s := range selected {
				next := -1
				for i := position + 1; i < len(rs); i++ {
					if rs[i] == s {
						next = i
						break
					}
				}
				Expect(next).To(BeNumerically(">", position), "selected readings must keep their relative order")
				position = next
			}
		})
	})

	Describe("ParseWindow", func() {
		It("parses the dashboard filters", func() {
			w, err := series.ParseWindow("30min", nil, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(w.IsRecent()).To(BeTrue())
			Expect(w.Duration()).To(Equal(30 * time.Minute))

			w, err = series.ParseWindow("1hour", nil, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(w.Duration()).To(Equal(time.Hour))
		})

		It("parses plain and day durations", func() {
			w, err := series.ParseWindow("6h", nil, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(w.String()).To(Equal("6h"))

			w, err = series.ParseWindow("7d", nil, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(w.Duration()).To(Equal(7 * 24 * time.Hour))
			Expect(w.String()).To(Equal("7d"))
		})

		It("requires a bound for custom windows", func() {
			_, err := series.ParseWindow("custom", nil, nil)
			Expect(err).To(MatchError(series.ErrInvalidWindow))
		})

		It("rejects inverted custom ranges", func() {
			from := now
			to := now.Add(-time.Hour)
			_, err := series.ParseWindow("custom", &from, &to)
			Expect(err).To(MatchError(series.ErrInvalidWindow))
		})

		It("rejects garbage and non positive durations", func() {
			_, err := series.ParseWindow("yesterday", nil, nil)
			Expect(err).To(MatchError(series.ErrInvalidWindow))

			_, err = series.ParseWindow("-5m", nil, nil)
			Expect(err).To(MatchError(series.ErrInvalidWindow))
		})

		It("infers a custom window from bounds without a selection", func() {
			from := now.Add(-3 * time.Hour)
			w, err := series.ParseWindow("", &from, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(w.IsRecent()).To(BeFalse())
			Expect(w.String()).To(Equal(series.WindowLabelCustom))

			start, end := w.Bounds(now)
			Expect(start).To(Equal(&from))
			Expect(end).To(BeNil())
		})

		It("rejects bounds with a recent window", func() {
			from := now.Add(-3 * time.Hour)
			_, err := series.ParseWindow("30min", &from, nil)
			Expect(err).To(MatchError(series.ErrInvalidWindow))

			_, err = series.ParseWindow("7d", nil, &from)
			Expect(err).To(MatchError(series.ErrInvalidWindow))
		})

		It("rejects day counts that overflow a duration", func() {
			_, err := series.ParseWindow("400000d", nil, nil)
			Expect(err).To(MatchError(series.ErrInvalidWindow))

			_, err = series.ParseWindow("-400000d", nil, nil)
			Expect(err).To(MatchError(series.ErrInvalidWindow))

			w, err := series.ParseWindow("100000d", nil, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(w.Duration()).To(Equal(100000 * 24 * time.Hour))
		})

		It("returns an unbounded range when no window is selected", func() {
			w, err := series.ParseWindow("", nil, nil)
			Expect(err).ToNot(HaveOccurred())
			Expect(w.IsRecent()).To(BeFalse())
			Expect(w.String()).To(Equal(series.WindowLabelAll))
		})
	})
})
