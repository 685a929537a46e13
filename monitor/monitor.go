package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tidepool-org/vitals/alerts"
	"github.com/tidepool-org/vitals/config"
	"github.com/tidepool-org/vitals/limits"
	"github.com/tidepool-org/vitals/poller"
	"github.com/tidepool-org/vitals/readings"
	"github.com/tidepool-org/vitals/series"
	"github.com/tidepool-org/vitals/source"
)

// Series is a computed view of one metric of a patient
type Series struct {
	PatientId string          `json:"patientId"`
	Metric    readings.Metric `json:"metric"`
	Title     string          `json:"title"`
	Unit      string          `json:"unit"`
	series.View
}

// SeriesFunc receives every refreshed series of a watch. When the refresh failed err is
// set and the series is computed from the last successful fetch.
type SeriesFunc func(s *Series, err error)

type Monitor interface {
	Series(ctx context.Context, patientId string, metric readings.Metric, window series.TimeWindow) (*Series, error)
	Watch(ctx context.Context, patientId string, metric readings.Metric, window series.TimeWindow, onSeries SeriesFunc) (*Watch, error)
}

type Params struct {
	fx.In

	Config *config.Config
	Source source.Source
	Limits limits.Service
	Alerts alerts.Repository
	Logger *zap.SugaredLogger
}

type monitor struct {
	config *config.Config
	source source.Source
	limits limits.Service
	alerts alerts.Repository
	logger *zap.SugaredLogger
	now    func() time.Time
}

func NewMonitor(p Params) Monitor {
	return NewMonitorWithClock(p, time.Now)
}

func NewMonitorWithClock(p Params, now func() time.Time) Monitor {
	return &monitor{
		config: p.Config,
		source: p.Source,
		limits: p.Limits,
		alerts: p.Alerts,
		logger: p.Logger,
		now:    now,
	}
}

func (m *monitor) Series(ctx context.Context, patientId string, metric readings.Metric, window series.TimeWindow) (*Series, error) {
	cfg, profile, err := m.seriesConfig(ctx, patientId, metric)
	if err != nil {
		return nil, err
	}

	rs, err := m.source.Fetch(ctx, patientId, metric)
	if err != nil {
		return nil, err
	}

	return m.compute(patientId, metric, profile, rs, window, cfg), nil
}

func (m *monitor) Watch(ctx context.Context, patientId string, metric readings.Metric, window series.TimeWindow, onSeries SeriesFunc) (*Watch, error) {
	cfg, profile, err := m.seriesConfig(ctx, patientId, metric)
	if err != nil {
		return nil, err
	}

	w := &Watch{
		band:    cfg.AbnormalBand,
		tracker: alerts.NewTracker(m.alerts, patientId, metric, m.logger),
	}

	fetch := func(ctx context.Context) ([]readings.Reading, error) {
		if band, err := m.limits.Band(ctx, patientId, metric); err == nil {
			w.setBand(band)
		} else {
			m.logger.Warnw("unable to refresh vital limits", "patientId", patientId, "metric", metric, zap.Error(err))
		}
		return m.source.Fetch(ctx, patientId, metric)
	}

	onUpdate := func(update poller.Update) {
		current := cfg
		current.AbnormalBand = w.Band()

		if update.Err == nil {
			if _, err := w.tracker.Observe(ctx, update.Readings, current.AbnormalBand); err != nil {
				m.logger.Errorw("unable to record alerts", "patientId", patientId, "metric", metric, zap.Error(err))
			}
		}
		onSeries(m.compute(patientId, metric, profile, update.Readings, update.Window, current), update.Err)
	}

	w.poller = poller.New(m.config.PollInterval, window, fetch, onUpdate, m.logger)
	if err := w.poller.Start(ctx); err != nil {
		return nil, err
	}

	m.logger.Infow("watching series", "patientId", patientId, "metric", metric, "window", window.String())
	return w, nil
}

func (m *monitor) seriesConfig(ctx context.Context, patientId string, metric readings.Metric) (series.Config, readings.Profile, error) {
	profile, err := m.config.Profiles.Get(metric)
	if err != nil {
		return series.Config{}, readings.Profile{}, err
	}
	cfg, err := m.config.SeriesConfig(metric)
	if err != nil {
		return series.Config{}, readings.Profile{}, err
	}

	band, err := m.limits.Band(ctx, patientId, metric)
	if err != nil {
		return series.Config{}, readings.Profile{}, fmt.Errorf("unable to get vital limits: %w", err)
	}
	cfg.AbnormalBand = band

	return cfg, profile, nil
}

func (m *monitor) compute(patientId string, metric readings.Metric, profile readings.Profile, rs []readings.Reading, window series.TimeWindow, cfg series.Config) *Series {
	return &Series{
		PatientId: patientId,
		Metric:    metric,
		Title:     profile.Title,
		Unit:      profile.Unit,
		View:      series.Compute(rs, window, m.now(), cfg),
	}
}

// Watch is a live, periodically refreshed series
type Watch struct {
	poller  *poller.Poller
	tracker *alerts.Tracker

	mu   sync.Mutex
	band readings.Band
}

func (w *Watch) SetWindow(window series.TimeWindow) {
	w.poller.SetWindow(window)
}

func (w *Watch) Window() series.TimeWindow {
	return w.poller.Window()
}

func (w *Watch) Band() readings.Band {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.band
}

// Stop ends the watch and waits until no more series are delivered
func (w *Watch) Stop() {
	w.poller.Stop()
}

func (w *Watch) setBand(band readings.Band) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.band = band
}
