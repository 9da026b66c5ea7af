package job

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var _ Store = (*MongoStore)(nil)

type MongoStore struct {
	collection *mongo.Collection
}

func NewMongoStore(db *mongo.Database) *MongoStore {
	return &MongoStore{
		collection: db.Collection("jobs"),
	}
}

// EnsureIndexes mirrors the postgres indexes.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "isActive", Value: 1}}},
		{Keys: bson.D{{Key: "nextRun", Value: 1}, {Key: "isActive", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("%w: failed to create job indexes", err)
	}

	return nil
}

func (s *MongoStore) Create(ctx context.Context, job *Job) error {
	now := time.Now()
	job.CreatedAt = now
	job.UpdatedAt = now

	if _, err := s.collection.InsertOne(ctx, job); err != nil {
		return fmt.Errorf("%w: failed to insert job", err)
	}

	return nil
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (*Job, error) {
	var job Job
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&job)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to find job by id", err)
	}

	return &job, nil
}

func (s *MongoStore) FindByUser(ctx context.Context, userID string) ([]Job, error) {
	return s.find(ctx, bson.M{"userId": userID})
}

func (s *MongoStore) FindActive(ctx context.Context) ([]Job, error) {
	return s.find(ctx, bson.M{"isActive": true})
}

func (s *MongoStore) UpdateStatus(ctx context.Context, id string, active bool, nextRun time.Time) (*Job, error) {
	return s.findOneAndUpdate(ctx, id, bson.M{
		"$set": bson.M{
			"isActive":  active,
			"nextRun":   nextRun,
			"updatedAt": time.Now(),
		},
	})
}

func (s *MongoStore) UpdateNextRun(ctx context.Context, id string, nextRun time.Time) error {
	res, err := s.collection.UpdateByID(ctx, id, bson.M{
		"$set": bson.M{
			"nextRun":   nextRun,
			"updatedAt": time.Now(),
		},
	})
	if err != nil {
		return fmt.Errorf("%w: failed to update next run", err)
	}

	if res.MatchedCount != 1 {
		return notUpdated(id)
	}

	return nil
}

func (s *MongoStore) RecordRun(ctx context.Context, id string, ranAt, nextRun time.Time) (*Job, error) {
	return s.findOneAndUpdate(ctx, id, bson.M{
		"$inc": bson.M{"runCount": 1},
		"$set": bson.M{
			"lastRun":   ranAt,
			"nextRun":   nextRun,
			"updatedAt": time.Now(),
		},
	})
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("%w: failed to delete job", err)
	}

	if res.DeletedCount == 0 {
		return notFound(id)
	}

	return nil
}

func (s *MongoStore) findOneAndUpdate(ctx context.Context, id string, update bson.M) (*Job, error) {
	var job Job
	err := s.collection.FindOneAndUpdate(
		ctx,
		bson.M{"_id": id},
		update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&job)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notUpdated(id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to update job", err)
	}

	return &job, nil
}

func (s *MongoStore) find(ctx context.Context, filter bson.M) ([]Job, error) {
	cursor, err := s.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to find jobs", err)
	}
	defer cursor.Close(ctx)

	var jobs []Job
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, fmt.Errorf("%w: failed to decode jobs", err)
	}

	return jobs, nil
}
