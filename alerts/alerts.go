package alerts

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tidepool-org/vitals/readings"
	"github.com/tidepool-org/vitals/store"
)

const CollectionName = "vitalAlerts"

// Event records a single reading that fell outside the normal band of the patient
type Event struct {
	Id          string          `bson:"_id" json:"id"`
	PatientId   string          `bson:"patientId" json:"patientId"`
	Metric      readings.Metric `bson:"metric" json:"metric"`
	Value       float64         `bson:"value" json:"value"`
	Timestamp   time.Time       `bson:"timestamp" json:"timestamp"`
	Band        readings.Band   `bson:"band" json:"band"`
	CreatedTime time.Time       `bson:"createdTime" json:"createdTime"`
}

type Filter struct {
	Metric *readings.Metric
	Since  *time.Time
}

//go:generate mockgen --build_flags=--mod=mod -source=./alerts.go -destination=./test/mock_repository.go -package test

type Repository interface {
	// Create stores the events, events already recorded for the same reading are skipped
	Create(ctx context.Context, events ...Event) error
	List(ctx context.Context, patientId string, filter Filter, pagination store.Pagination) ([]Event, error)
}

func NewEvent(patientId string, metric readings.Metric, reading readings.Reading, band readings.Band) Event {
	return Event{
		Id:          uuid.NewString(),
		PatientId:   patientId,
		Metric:      metric,
		Value:       reading.Value,
		Timestamp:   reading.Timestamp,
		Band:        band,
		CreatedTime: time.Now().UTC(),
	}
}
