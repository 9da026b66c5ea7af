package report

import (
	"context"
	"errors"
	"fmt"

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
		collection: db.Collection("reports"),
	}
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "generatedAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("%w: failed to create report indexes", err)
	}

	return nil
}

func (s *MongoStore) Create(ctx context.Context, r *Report) error {
	if _, err := s.collection.InsertOne(ctx, r); err != nil {
		return fmt.Errorf("%w: failed to insert report", err)
	}

	return nil
}

func (s *MongoStore) FindByID(ctx context.Context, id string) (*Report, error) {
	var r Report
	err := s.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to find report", err)
	}

	return &r, nil
}

func (s *MongoStore) List(ctx context.Context) ([]Report, error) {
	cursor, err := s.collection.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "generatedAt", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to list reports", err)
	}

	reports := []Report{}
	if err := cursor.All(ctx, &reports); err != nil {
		return nil, fmt.Errorf("%w: failed to decode reports", err)
	}

	return reports, nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("%w: failed to delete report", err)
	}

	if res.DeletedCount == 0 {
		return notFound(id)
	}

	return nil
}

func (s *MongoStore) DeleteMany(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	res, err := s.collection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, fmt.Errorf("%w: failed to delete reports", err)
	}

	return int(res.DeletedCount), nil
}
