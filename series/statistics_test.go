package series_test

import (
	"math"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tidepool-org/vitals/readings"
	"github.com/tidepool-org/vitals/series"
)

func points(values ...float64) []series.Point {
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	ps := make([]series.Point, 0, len(values))
	for i, v := range values {
		ps = append(ps, series.Point{Timestamp: start.Add(time.Duration(i) * time.Minute), Value: v, Count: 1})
	}
	return ps
}

var _ = Describe("ComputeStatistics", func() {
	ecgBand := readings.Band{Min: 1800, Max: 2000}

	It("returns nil for an empty visible set", func() {
		Expect(series.ComputeStatistics(nil, ecgBand, readings.RoundingInteger)).To(BeNil())
		Expect(series.ComputeStatistics([]series.Point{}, ecgBand, readings.RoundingTwoDecimal)).To(BeNil())
	})

	It("returns nil when no value is finite", func() {
		Expect(series.ComputeStatistics(points(math.NaN(), math.Inf(-1)), ecgBand, readings.RoundingInteger)).To(BeNil())
	})

	It("counts a single out of band reading", func() {
		stats := series.ComputeStatistics(points(1900, 1850, 1950, 1800, 2000, 1880, 1920, 1890, 1910, 2200), ecgBand, readings.RoundingInteger)
		Expect(stats).ToNot(BeNil())
		Expect(stats.AbnormalCount).To(Equal(1))
		Expect(stats.TotalReadings).To(Equal(10))
		Expect(stats.Max).To(Equal(2200.0))
		Expect(stats.Min).To(Equal(1800.0))
	})

	It("treats the band bounds as normal", func() {
		stats := series.ComputeStatistics(points(1800, 2000, 1799.5, 2000.01), ecgBand, readings.RoundingInteger)
		Expect(stats.AbnormalCount).To(Equal(2))
	})

	It("rounds the average to the nearest integer", func() {
		stats := series.ComputeStatistics(points(70, 71, 71), readings.Band{Min: 60, Max: 100}, readings.RoundingInteger)
		Expect(stats.Average).To(Equal(71.0))

		stats = series.ComputeStatistics(points(70, 71), readings.Band{Min: 60, Max: 100}, readings.RoundingInteger)
		Expect(stats.Average).To(Equal(71.0))
	})

	It("rounds the average to two decimals", func() {
		stats := series.ComputeStatistics(points(98.1, 98.2, 98.6), readings.Band{Min: 97, Max: 99}, readings.RoundingTwoDecimal)
		Expect(stats.Average).To(Equal(98.3))

		stats = series.ComputeStatistics(points(97, 98, 98), readings.Band{Min: 97, Max: 99}, readings.RoundingTwoDecimal)
		Expect(stats.Average).To(Equal(97.67))
	})

	It("never produces NaN", func() {
		stats := series.ComputeStatistics(points(0, 0, 0), ecgBand, readings.RoundingInteger)
		Expect(stats).ToNot(BeNil())
		Expect(math.IsNaN(stats.Average)).To(BeFalse())
		Expect(stats.Average).To(BeZero())
		Expect(stats.AbnormalCount).To(Equal(3))
	})
})
