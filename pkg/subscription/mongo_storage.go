package subscription

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// mongoKey is the compound document identifier. Using the composite key as
// _id gives upsert-by-key semantics without a separate unique index.
type mongoKey struct {
	OwnerID        string `bson:"owner_id"`
	SubscriptionID string `bson:"subscription_id"`
}

// mongoRecord stores the subscription fields inline next to the compound _id
// so owner-scoped queries can filter on top-level fields.
type mongoRecord struct {
	Key          mongoKey `bson:"_id"`
	Subscription `bson:",inline"`
}

// MongoStorage persists each subscription as a single document. Counter and
// status mutations use $inc/$set update operators so they stay per-key atomic
// under concurrent dispatches.
type MongoStorage struct {
	coll *mongo.Collection
}

// NewMongoStorage creates a MongoDB-backed subscription storage.
// Panics if coll is nil to fail fast during initialization.
func NewMongoStorage(coll *mongo.Collection) *MongoStorage {
	if coll == nil {
		panic("subscription: mongo collection is required")
	}
	return &MongoStorage{coll: coll}
}

func (s *MongoStorage) Get(ctx context.Context, ownerID, subID string) (*Subscription, error) {
	var rec mongoRecord
	err := s.coll.FindOne(ctx, mongoKeyFilter(ownerID, subID)).Decode(&rec)
	switch {
	case errors.Is(err, mongo.ErrNoDocuments):
		return nil, ErrSubscriptionNotFound
	case err != nil:
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	sub := rec.Subscription
	return &sub, nil
}

func (s *MongoStorage) Put(ctx context.Context, sub Subscription) error {
	rec := mongoRecord{
		Key:          mongoKey{OwnerID: sub.OwnerID, SubscriptionID: sub.ID},
		Subscription: sub,
	}
	if _, err := s.coll.ReplaceOne(ctx,
		mongoKeyFilter(sub.OwnerID, sub.ID),
		rec,
		options.Replace().SetUpsert(true),
	); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (s *MongoStorage) QueryByOwner(ctx context.Context, ownerID string) ([]Subscription, error) {
	return s.find(ctx, bson.M{"owner_id": ownerID})
}

func (s *MongoStorage) ScanAll(ctx context.Context) ([]Subscription, error) {
	return s.find(ctx, bson.M{})
}

func (s *MongoStorage) Delete(ctx context.Context, ownerID, subID string) error {
	res, err := s.coll.DeleteOne(ctx, mongoKeyFilter(ownerID, subID))
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	if res.DeletedCount == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (s *MongoStorage) RecordSuccess(ctx context.Context, ownerID, subID string, at time.Time) error {
	res, err := s.coll.UpdateOne(ctx,
		mongoKeyFilter(ownerID, subID),
		mongoSuccessUpdate(at),
	)
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	if res.MatchedCount == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (s *MongoStorage) RecordFailure(ctx context.Context, ownerID, subID string, terminal bool, at time.Time) error {
	res, err := s.coll.UpdateOne(ctx,
		mongoKeyFilter(ownerID, subID),
		mongoFailureUpdate(terminal, at),
	)
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	if res.MatchedCount == 0 {
		return ErrSubscriptionNotFound
	}
	return nil
}

func (s *MongoStorage) find(ctx context.Context, filter bson.M) ([]Subscription, error) {
	cursor, err := s.coll.Find(ctx, filter)
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}

	var recs []mongoRecord
	if err := cursor.All(ctx, &recs); err != nil {
		return nil, errors.Join(ErrCorruptRecord, err)
	}

	subs := make([]Subscription, len(recs))
	for i, rec := range recs {
		subs[i] = rec.Subscription
	}
	return subs, nil
}

func mongoKeyFilter(ownerID, subID string) bson.M {
	return bson.M{"_id": mongoKey{OwnerID: ownerID, SubscriptionID: subID}}
}

func mongoSuccessUpdate(at time.Time) bson.M {
	return bson.M{
		"$set": bson.M{
			"failure_count":          0,
			"last_notification_sent": at,
			"updated_at":             at,
		},
	}
}

func mongoFailureUpdate(terminal bool, at time.Time) bson.M {
	set := bson.M{"updated_at": at}
	if terminal {
		set["status"] = string(StatusInactive)
	}
	return bson.M{
		"$inc": bson.M{"failure_count": 1},
		"$set": set,
	}
}
