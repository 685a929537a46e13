package limits

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/tidepool-org/vitals/config"
	"github.com/tidepool-org/vitals/readings"
)

type service struct {
	repo     Repository
	profiles readings.Profiles
	logger   *zap.SugaredLogger
}

var _ Service = &service{}

func NewService(repo Repository, cfg *config.Config, logger *zap.SugaredLogger) (Service, error) {
	return &service{
		repo:     repo,
		profiles: cfg.Profiles,
		logger:   logger,
	}, nil
}

func (s *service) Get(ctx context.Context, patientId string) (*Limits, error) {
	return s.repo.Get(ctx, patientId)
}

func (s *service) Upsert(ctx context.Context, limits Limits) (*Limits, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	limits.UpdatedTime = time.Now().UTC()
	return s.repo.Upsert(ctx, limits)
}

func (s *service) Band(ctx context.Context, patientId string, metric readings.Metric) (readings.Band, error) {
	profile, err := s.profiles.Get(metric)
	if err != nil {
		return readings.Band{}, err
	}

	limits, err := s.repo.Get(ctx, patientId)
	if errors.Is(err, ErrNotFound) {
		return profile.Band, nil
	} else if err != nil {
		return readings.Band{}, err
	}

	if band := limits.BandFor(metric); band != nil {
		s.logger.Debugw("using patient vital limits", "patientId", patientId, "metric", metric, "band", band)
		return *band, nil
	}
	return profile.Band, nil
}
