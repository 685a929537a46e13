package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tidepool-org/vitals/alerts"
	"github.com/tidepool-org/vitals/store"
)

type repository struct {
	collection *mongo.Collection
	logger     *zap.SugaredLogger
}

func NewRepository(db *mongo.Database, logger *zap.SugaredLogger, lifecycle fx.Lifecycle) (alerts.Repository, error) {
	repo := &repository{
		collection: db.Collection(alerts.CollectionName),
		logger:     logger,
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return repo.Initialize(ctx)
		},
	})

	return repo, nil
}

func (r *repository) Initialize(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "patientId", Value: 1},
				{Key: "metric", Value: 1},
				{Key: "timestamp", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetName("UniqueReadingAlert"),
		},
		{
			Keys: bson.D{
				{Key: "patientId", Value: 1},
				{Key: "timestamp", Value: -1},
			},
			Options: options.Index().SetName("PatientTimestamp"),
		},
	})
	return err
}

func (r *repository) Create(ctx context.Context, events ...alerts.Event) error {
	if len(events) == 0 {
		return nil
	}

	documents := make([]interface{}, 0, len(events))
	for _, event := range events {
		documents = append(documents, event)
	}

	_, err := r.collection.InsertMany(ctx, documents, options.InsertMany().SetOrdered(false))
	if store.IsDuplicateKeyError(err) {
		r.logger.Debugw("skipped alerts already recorded", "count", len(events))
		return nil
	} else if err != nil {
		return fmt.Errorf("error inserting alert events: %w", err)
	}
	return nil
}

func (r *repository) List(ctx context.Context, patientId string, filter alerts.Filter, pagination store.Pagination) ([]alerts.Event, error) {
	opts := options.Find().
		SetLimit(int64(pagination.Limit)).
		SetSkip(int64(pagination.Offset)).
		SetSort(bson.D{{Key: "timestamp", Value: -1}})

	selector := bson.M{
		"patientId": patientId,
	}
	if filter.Metric != nil {
		selector["metric"] = *filter.Metric
	}
	if filter.Since != nil {
		selector["timestamp"] = bson.M{"$gte": *filter.Since}
	}

	cursor, err := r.collection.Find(ctx, selector, opts)
	if err != nil {
		return nil, fmt.Errorf("error listing alert events: %w", err)
	}

	events := make([]alerts.Event, 0)
	if err = cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("error decoding alert events: %w", err)
	}

	return events, nil
}
