package alerts

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tidepool-org/vitals/readings"
)

// Tracker turns the successive reading batches of one watched series into alert events.
// Only readings newer than the latest reading already observed are considered.
type Tracker struct {
	repo      Repository
	patientId string
	metric    readings.Metric
	logger    *zap.SugaredLogger

	mu   sync.Mutex
	last time.Time
}

func NewTracker(repo Repository, patientId string, metric readings.Metric, logger *zap.SugaredLogger) *Tracker {
	return &Tracker{
		repo:      repo,
		patientId: patientId,
		metric:    metric,
		logger:    logger,
	}
}

func (t *Tracker) Observe(ctx context.Context, rs []readings.Reading, band readings.Band) ([]Event, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	latest := t.last
	var events []Event
	for _, r := range rs {
		if !r.Valid() || !r.Timestamp.After(t.last) {
			continue
		}
		if r.Timestamp.After(latest) {
			latest = r.Timestamp
		}
		if band.IsAbnormal(r.Value) {
			events = append(events, NewEvent(t.patientId, t.metric, r, band))
		}
	}

	if len(events) > 0 {
		if err := t.repo.Create(ctx, events...); err != nil {
			return nil, err
		}
		t.logger.Infow("recorded abnormal readings", "patientId", t.patientId, "metric", t.metric, "count", len(events))
	}

	t.last = latest
	return events, nil
}
