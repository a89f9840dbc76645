package repositories

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/HSouheill/alumni_backend/config"
	"github.com/HSouheill/alumni_backend/models"
)

// VerificationRepository stores one verification entry per (identifier, channel).
// Every mutation after issuance filters on issueId so a superseded issuance
// cannot be touched by a late request.
type VerificationRepository struct {
	collection *mongo.Collection
}

func NewVerificationRepository(db *mongo.Database) *VerificationRepository {
	return &VerificationRepository{
		collection: db.Collection(config.VerificationCollection),
	}
}

// Replace upserts the entry, overwriting whatever issuance was there before.
func (r *VerificationRepository) Replace(ctx context.Context, entry *models.VerificationEntry) error {
	opts := options.Replace().SetUpsert(true)
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": entry.ID}, entry, opts)
	return err
}

func (r *VerificationRepository) Find(ctx context.Context, key string) (*models.VerificationEntry, error) {
	var entry models.VerificationEntry
	err := r.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// IncrementAttempts bumps the failed-attempt counter and returns the new value.
func (r *VerificationRepository) IncrementAttempts(ctx context.Context, key, issueID string) (int, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var entry models.VerificationEntry
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": key, "issueId": issueID},
		bson.M{"$inc": bson.M{"attempts": 1}},
		opts,
	).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return entry.Attempts, nil
}

// MarkVerified flips an unverified entry to verified and extends its expiry to
// the update-session window. ErrNotFound means it was already verified or superseded.
func (r *VerificationRepository) MarkVerified(ctx context.Context, key, issueID, credentialID string, verifiedAt, expiresAt time.Time) (*models.VerificationEntry, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var entry models.VerificationEntry
	err := r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": key, "issueId": issueID, "verified": false},
		bson.M{"$set": bson.M{
			"verified":     true,
			"verifiedAt":   verifiedAt,
			"credentialId": credentialID,
			"expiresAt":    expiresAt,
		}},
		opts,
	).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// Claim atomically removes the verified entry bound to credentialID.
// Only one caller can ever claim a given credential.
func (r *VerificationRepository) Claim(ctx context.Context, key, credentialID string, now time.Time) (*models.VerificationEntry, error) {
	var entry models.VerificationEntry
	err := r.collection.FindOneAndDelete(ctx, bson.M{
		"_id":          key,
		"credentialId": credentialID,
		"verified":     true,
		"expiresAt":    bson.M{"$gte": now},
	}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// Restore puts a claimed entry back unless a newer issuance took its place.
func (r *VerificationRepository) Restore(ctx context.Context, entry *models.VerificationEntry) error {
	_, err := r.collection.InsertOne(ctx, entry)
	if err != nil && mongo.IsDuplicateKeyError(err) {
		return nil
	}
	return err
}

// Delete removes the entry only if it still belongs to issueID.
func (r *VerificationRepository) Delete(ctx context.Context, key, issueID string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": key, "issueId": issueID})
	return err
}
