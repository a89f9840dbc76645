package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/HSouheill/alumni_backend/config"
	"github.com/HSouheill/alumni_backend/models"
)

// reserveAttempts bounds the retries when two first issuances race to create
// the same window document.
const reserveAttempts = 3

var ErrContended = errors.New("issuance window contended")

// IssuanceRepository stores one capped window document per identifier for the
// mongo rate limiter.
type IssuanceRepository struct {
	collection *mongo.Collection
}

func NewIssuanceRepository(db *mongo.Database) *IssuanceRepository {
	return &IssuanceRepository{
		collection: db.Collection(config.IssuanceCollection),
	}
}

// Reserve appends now to the identifier's window in a single conditional
// update. The array keeps the last limit issuances in time order, so the
// window has room when it is shorter than limit or its first entry is at or
// before since. A duplicate key on the upsert means the document exists but
// the filter did not match.
func (r *IssuanceRepository) Reserve(ctx context.Context, identifier string, now, since time.Time, limit int) (time.Time, bool, error) {
	if limit < 1 {
		return time.Time{}, false, fmt.Errorf("issuance limit must be positive, got %d", limit)
	}

	filter := bson.M{
		"_id": identifier,
		"$or": bson.A{
			bson.M{fmt.Sprintf("issuances.%d", limit-1): bson.M{"$exists": false}},
			bson.M{"issuances.0": bson.M{"$lte": since}},
		},
	}
	update := bson.M{
		"$push": bson.M{"issuances": bson.M{"$each": bson.A{now}, "$slice": -limit}},
		"$set":  bson.M{"updatedAt": now},
	}
	opts := options.Update().SetUpsert(true)

	for attempt := 0; attempt < reserveAttempts; attempt++ {
		_, err := r.collection.UpdateOne(ctx, filter, update, opts)
		if err == nil {
			return time.Time{}, true, nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return time.Time{}, false, err
		}

		var window models.IssuanceWindow
		err = r.collection.FindOne(ctx, bson.M{"_id": identifier}).Decode(&window)
		if errors.Is(err, mongo.ErrNoDocuments) {
			continue
		}
		if err != nil {
			return time.Time{}, false, err
		}
		if len(window.Issuances) >= limit && window.Issuances[0].After(since) {
			return window.Issuances[0], false, nil
		}
		// lost a race with the first insert; the window had room
	}
	return time.Time{}, false, ErrContended
}
