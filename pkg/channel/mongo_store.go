package channel

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
		collection: db.Collection("channels"),
	}
}

func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "channelId", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("%w: failed to create channel indexes", err)
	}

	return nil
}

func (s *MongoStore) FindLinked(ctx context.Context) (*Channel, error) {
	var c Channel
	err := s.collection.FindOne(ctx, bson.M{},
		options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}}),
	).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, noChannel()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to find linked channel", err)
	}

	return &c, nil
}

func (s *MongoStore) FindByChannelID(ctx context.Context, channelID string) (*Channel, error) {
	var c Channel
	err := s.collection.FindOne(ctx, bson.M{"channelId": channelID}).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(channelID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to find channel", err)
	}

	return &c, nil
}

func (s *MongoStore) Create(ctx context.Context, c *Channel) error {
	now := time.Now()
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.collection.InsertOne(ctx, c)
	if mongo.IsDuplicateKeyError(err) {
		return duplicate(c.ChannelID)
	}
	if err != nil {
		return fmt.Errorf("%w: failed to insert channel", err)
	}

	return nil
}

func (s *MongoStore) Update(ctx context.Context, channelID string, p Patch) (*Channel, error) {
	set := bson.M{"updatedAt": time.Now()}
	if p.Title != nil {
		set["title"] = *p.Title
	}
	if p.Description != nil {
		set["description"] = *p.Description
	}
	if p.ThumbnailURL != nil {
		set["thumbnailUrl"] = *p.ThumbnailURL
	}
	if p.CustomName != nil {
		set["customName"] = *p.CustomName
	}

	return s.update(ctx, channelID, set)
}

func (s *MongoStore) UpdateRefreshToken(ctx context.Context, channelID, refreshToken string) (*Channel, error) {
	return s.update(ctx, channelID, bson.M{
		"refreshToken": refreshToken,
		"updatedAt":    time.Now(),
	})
}

func (s *MongoStore) Delete(ctx context.Context, channelID string) error {
	res, err := s.collection.DeleteOne(ctx, bson.M{"channelId": channelID})
	if err != nil {
		return fmt.Errorf("%w: failed to delete channel", err)
	}

	if res.DeletedCount == 0 {
		return notFound(channelID)
	}

	return nil
}

func (s *MongoStore) update(ctx context.Context, channelID string, set bson.M) (*Channel, error) {
	var c Channel
	err := s.collection.FindOneAndUpdate(ctx,
		bson.M{"channelId": channelID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, notFound(channelID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: failed to update channel", err)
	}

	return &c, nil
}
