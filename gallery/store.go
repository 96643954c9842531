// Package gallery archives completed try-ons and serves them back page by page.
package gallery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/raushankrgupta/fitly-comfy-tryon/models"
	"github.com/raushankrgupta/fitly-comfy-tryon/utils"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("try-on not found")

const CollectionName = "tryons"

// Store persists archived try-ons.
type Store interface {
	Insert(ctx context.Context, t *models.TryOn) error
	List(ctx context.Context, userID string, page, limit int) ([]models.TryOn, int64, error)
	Delete(ctx context.Context, userID, id string) error
}

// MongoStore keeps try-ons in the shared MongoDB client.
type MongoStore struct {
	coll *mongo.Collection
}

// NewMongoStore needs utils.ConnectMongo to have succeeded.
func NewMongoStore(dbName string) (*MongoStore, error) {
	coll, err := utils.GetCollection(dbName, CollectionName)
	if err != nil {
		return nil, err
	}
	return &MongoStore{coll: coll}, nil
}

func (s *MongoStore) Insert(ctx context.Context, t *models.TryOn) error {
	if t.ID.IsZero() {
		t.ID = primitive.NewObjectID()
	}
	if _, err := s.coll.InsertOne(ctx, t); err != nil {
		return fmt.Errorf("failed to save try-on: %w", err)
	}
	return nil
}

// List returns the user's completed try-ons, latest first, and the total count.
func (s *MongoStore) List(ctx context.Context, userID string, page, limit int) ([]models.TryOn, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	filter := bson.M{"user_id": userID, "status": string(models.ResultCompleted), "is_deleted": bson.M{"$ne": true}}
	total, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count try-ons: %w", err)
	}

	findOptions := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := s.coll.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch try-ons: %w", err)
	}
	defer cursor.Close(ctx)

	var tryOns []models.TryOn
	if err := cursor.All(ctx, &tryOns); err != nil {
		return nil, 0, fmt.Errorf("failed to decode try-ons: %w", err)
	}
	return tryOns, total, nil
}

// Delete soft-deletes one of the user's try-ons.
func (s *MongoStore) Delete(ctx context.Context, userID, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": objID, "user_id": userID},
		bson.M{"$set": bson.M{"is_deleted": true}},
	)
	if err != nil {
		return fmt.Errorf("failed to delete try-on: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
