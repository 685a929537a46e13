package limits

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tidepool-org/vitals/readings"
)

var ErrNotFound = errors.New("vital limits not found")

//go:generate mockgen --build_flags=--mod=mod -source=./limits.go -destination=./test/mock_repository.go -package test

type Repository interface {
	Get(ctx context.Context, patientId string) (*Limits, error)
	Upsert(ctx context.Context, limits Limits) (*Limits, error)
}

type Service interface {
	Repository

	// Band returns the normal band of the metric for the patient, falling back to the
	// global band of the metric profile when the patient has no limit for it
	Band(ctx context.Context, patientId string, metric readings.Metric) (readings.Band, error)
}

// Limits are the per-patient normal ranges set by a doctor
type Limits struct {
	PatientId   string         `bson:"patientId" json:"patientId"`
	HeartRate   *readings.Band `bson:"heartRate,omitempty" json:"heartRate,omitempty"`
	Temperature *readings.Band `bson:"temperature,omitempty" json:"temperature,omitempty"`
	BloodOxygen *readings.Band `bson:"bloodOxygen,omitempty" json:"bloodOxygen,omitempty"`
	UpdatedBy   string         `bson:"updatedBy,omitempty" json:"updatedBy,omitempty"`
	UpdatedTime time.Time      `bson:"updatedTime" json:"updatedTime"`
}

func (l Limits) BandFor(metric readings.Metric) *readings.Band {
	switch metric {
	case readings.MetricHeartRate:
		return l.HeartRate
	case readings.MetricTemperature:
		return l.Temperature
	case readings.MetricBloodOxygen:
		return l.BloodOxygen
	default:
		return nil
	}
}

func (l Limits) Validate() error {
	if l.PatientId == "" {
		return errors.New("patient id is missing")
	}
	for _, metric := range readings.SupportedMetrics() {
		if band := l.BandFor(metric); band != nil {
			if err := band.Validate(); err != nil {
				return fmt.Errorf("invalid %s limits: %w", metric, err)
			}
		}
	}
	return nil
}

// WithDefaults returns a copy of the limits where metrics without a patient limit use the
// band of their profile
func (l Limits) WithDefaults(profiles readings.Profiles) Limits {
	result := l
	defaults := map[readings.Metric]**readings.Band{
		readings.MetricHeartRate:   &result.HeartRate,
		readings.MetricTemperature: &result.Temperature,
		readings.MetricBloodOxygen: &result.BloodOxygen,
	}
	for metric, band := range defaults {
		if *band != nil {
			continue
		}
		if profile, err := profiles.Get(metric); err == nil {
			b := profile.Band
			*band = &b
		}
	}
	return result
}
