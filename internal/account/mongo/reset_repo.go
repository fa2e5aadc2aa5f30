// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/accountd/accountd/internal/account"
)

// resetDoc is keyed by the owning user so each user has at most one token.
type resetDoc struct {
	UserID    string    `bson:"_id"`
	TokenHash string    `bson:"tokenHash"`
	CreatedAt time.Time `bson:"createdAt"`
	ExpiresAt time.Time `bson:"expiresAt"`
}

// ResetTokenRepository implements account.ResetTokenRepository using MongoDB.
type ResetTokenRepository struct {
	coll *mongo.Collection
}

// NewResetTokenRepository creates a ResetTokenRepository over db's
// password_resets collection.
func NewResetTokenRepository(db *mongo.Database) *ResetTokenRepository {
	return &ResetTokenRepository{coll: db.Collection(ResetsCollection)}
}

// Replace upserts the user's reset token.
func (r *ResetTokenRepository) Replace(ctx context.Context, token *account.ResetToken) error {
	doc := resetDoc{
		UserID:    token.UserID.String(),
		TokenHash: token.TokenHash,
		CreatedAt: token.CreatedAt,
		ExpiresAt: token.ExpiresAt,
	}
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": doc.UserID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return oops.Code("RESET_REPLACE_FAILED").
			With("operation", "upsert password_reset").
			With("user_id", doc.UserID).
			Wrap(err)
	}
	return nil
}

// Consume deletes the live document matching tokenHash and returns its owner.
// FindOneAndDelete is atomic, so only one concurrent caller wins.
func (r *ResetTokenRepository) Consume(ctx context.Context, tokenHash string, now time.Time) (ulid.ULID, error) {
	var doc resetDoc
	err := r.coll.FindOneAndDelete(ctx, bson.M{
		"tokenHash": tokenHash,
		"expiresAt": bson.M{"$gt": now},
	}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ulid.ULID{}, oops.Code("RESET_NOT_FOUND").Wrap(account.ErrNotFound)
	}
	if err != nil {
		return ulid.ULID{}, oops.Code("RESET_CONSUME_FAILED").
			With("operation", "find and delete password_reset").
			Wrap(err)
	}

	userID, err := ulid.Parse(doc.UserID)
	if err != nil {
		return ulid.ULID{}, oops.Code("RESET_INVALID_USER_ID").
			With("operation", "parse user id").
			With("user_id", doc.UserID).
			Wrap(err)
	}
	return userID, nil
}

// DeleteExpired removes tokens that expired at or before now and returns the count.
func (r *ResetTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.coll.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lte": now}})
	if err != nil {
		return 0, oops.Code("RESET_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired password_resets").
			Wrap(err)
	}
	return result.DeletedCount, nil
}

// Compile-time interface check.
var _ account.ResetTokenRepository = (*ResetTokenRepository)(nil)
