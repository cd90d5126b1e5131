package store

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ericfialkowski/shortlink/env"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

type MongoStore struct {
	client *mongo.Client
	links  *mongo.Collection
}

const (
	mongoDbName         = "shortlink"
	mongoCollectionName = "links"
	codeField           = "shortCode"
)

func mongoCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, env.DurationOrDefault("mongo_timeout", 10*time.Second))
}

// CreateMongoStore connects and ensures the unique index on shortCode. The
// index is what makes Insert atomic under racing creates.
func CreateMongoStore(uri string) LinkStore {
	client, err := mongo.Connect(options.Client().
		ApplyURI(uri).
		SetAppName("shortlink"))
	if err != nil {
		log.Fatalf("Couldn't create mongo client: %v", err)
	}

	links := client.Database(mongoDbName).Collection(mongoCollectionName)

	ctx, cancel := mongoCtx(context.Background())
	defer cancel()
	_, err = links.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: codeField, Value: 1}},
		Options: options.Index().SetUnique(true).SetName("uniqueness_ndx"),
	})
	if err != nil {
		log.Fatalf("Couldn't create uniqueness index: %v", err)
	}

	return &MongoStore{client: client, links: links}
}

func (s *MongoStore) IsLikelyOk() bool {
	ctx, cancel := mongoCtx(context.Background())
	defer cancel()

	err := s.client.Ping(ctx, readpref.Primary())
	if err != nil {
		log.Printf("Ping failed: %v", err)
	}
	return err == nil
}

func (s *MongoStore) FindByCode(ctx context.Context, code string) (LinkRecord, error) {
	ctx, cancel := mongoCtx(ctx)
	defer cancel()

	var rec LinkRecord
	err := s.links.FindOne(ctx, bson.M{codeField: code}).Decode(&rec)
	if err == mongo.ErrNoDocuments {
		return LinkRecord{}, ErrNotFound
	}
	if err != nil {
		return LinkRecord{}, fmt.Errorf("error looking up %s: %w", code, err)
	}
	return rec, nil
}

func (s *MongoStore) Exists(ctx context.Context, code string) (bool, error) {
	ctx, cancel := mongoCtx(ctx)
	defer cancel()

	count, err := s.links.CountDocuments(ctx, bson.M{codeField: code})
	if err != nil {
		return false, fmt.Errorf("error checking %s: %w", code, err)
	}
	return count > 0, nil
}

func (s *MongoStore) Insert(ctx context.Context, rec LinkRecord) error {
	ctx, cancel := mongoCtx(ctx)
	defer cancel()

	if rec.ClickEvents == nil {
		rec.ClickEvents = []ClickEvent{}
	}
	_, err := s.links.InsertOne(ctx, rec)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicateCode
	}
	if err != nil {
		return fmt.Errorf("couldn't insert %s: %w", rec.ShortCode, err)
	}
	return nil
}

func (s *MongoStore) RecordClick(ctx context.Context, code string, ev ClickEvent) error {
	ctx, cancel := mongoCtx(ctx)
	defer cancel()

	// Single UpdateOne keeps counter and event list in lockstep.
	res, err := s.links.UpdateOne(ctx,
		bson.M{codeField: code},
		bson.M{
			"$inc":  bson.M{"clicks": 1},
			"$push": bson.M{"clickEvents": ev},
		})
	if err != nil {
		return fmt.Errorf("couldn't record click for %s: %w", code, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoStore) Cleanup() {
	ctx, cancel := mongoCtx(context.Background())
	defer cancel()
	if err := s.client.Disconnect(ctx); err != nil {
		log.Printf("Error disconnecting from mongo: %v", err)
	}
}
