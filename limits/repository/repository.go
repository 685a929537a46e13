package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/tidepool-org/vitals/limits"
	"github.com/tidepool-org/vitals/store"
)

const (
	limitsCollectionName = "vitalLimits"
)

func NewRepository(db *mongo.Database, logger *zap.SugaredLogger, lifecycle fx.Lifecycle) (limits.Repository, error) {
	repo := &repository{
		collection: db.Collection(limitsCollectionName),
		logger:     logger,
	}

	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return repo.Initialize(ctx)
		},
	})

	return repo, nil
}

type repository struct {
	collection *mongo.Collection
	logger     *zap.SugaredLogger
}

func (r *repository) Initialize(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "patientId", Value: 1},
			},
			Options: options.Index().
				SetBackground(true).
				SetUnique(true).
				SetName("UniquePatientLimits"),
		},
	})
	return err
}

func (r *repository) Get(ctx context.Context, patientId string) (*limits.Limits, error) {
	ctx, cancel := context.WithTimeout(ctx, store.ContextTimeout)
	defer cancel()

	selector := bson.M{
		"patientId": patientId,
	}

	result := &limits.Limits{}
	err := r.collection.FindOne(ctx, selector).Decode(result)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, limits.ErrNotFound
	} else if err != nil {
		return nil, err
	}

	return result, nil
}

func (r *repository) Upsert(ctx context.Context, l limits.Limits) (*limits.Limits, error) {
	ctx, cancel := context.WithTimeout(ctx, store.ContextTimeout)
	defer cancel()

	selector := bson.M{
		"patientId": l.PatientId,
	}
	update := bson.M{
		"$set": l,
	}
	opts := options.FindOneAndReplace().
		SetUpsert(true).
		SetReturnDocument(options.After)

	result := &limits.Limits{}
	err := r.collection.FindOneAndReplace(ctx, selector, l, opts).Decode(result)
	if store.IsDuplicateKeyError(err) {
		// Concurrent upserts for a new patient race on the unique index, the loser retries as an update
		r.logger.Debugw("retrying concurrent limits upsert", "patientId", l.PatientId)
		err = r.collection.FindOneAndUpdate(ctx, selector, update, options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(result)
	}
	if err != nil {
		return nil, err
	}

	return result, nil
}
