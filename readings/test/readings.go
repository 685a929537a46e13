package test

import (
	"time"

	"github.com/tidepool-org/vitals/readings"
	"github.com/tidepool-org/vitals/test"
)

// RandomReadings returns count readings spaced by step starting at start, with values
// drawn uniformly from the band
func RandomReadings(start time.Time, step time.Duration, count int, band readings.Band) []readings.Reading {
	rs := make([]readings.Reading, 0, count)
	for i := 0; i < count; i++ {
		rs = append(rs, readings.Reading{
			Timestamp: start.Add(time.Duration(i) * step),
			Value:     RandomValue(band),
		})
	}
	return rs
}

func RandomValue(band readings.Band) float64 {
	return float64(test.Faker.IntBetween(int(band.Min), int(band.Max)))
}

// Shuffled returns a random permutation of the readings without modifying them
func Shuffled(rs []readings.Reading) []readings.Reading {
	shuffled := make([]readings.Reading, len(rs))
	copy(shuffled, rs)
	test.Rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}

func RandomPatientId() string {
	return test.Faker.UUID().V4()
}
