// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Accountd Contributors

package mongo

import (
	"context"

	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// EnsureIndexes creates the indexes the repositories rely on. It is
// idempotent and plays the role migrations play for postgres.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	// Emails are stored lower-cased, so a plain unique index is case-insensitive.
	_, err := db.Collection(UsersCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("users_email_key"),
		},
	})
	if err != nil {
		return oops.Code("MONGO_INDEX_FAILED").With("collection", UsersCollection).Wrap(err)
	}

	_, err = db.Collection(ResetsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "tokenHash", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("password_resets_token_hash_key"),
		},
		{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetName("password_resets_expires_at_idx"),
		},
	})
	if err != nil {
		return oops.Code("MONGO_INDEX_FAILED").With("collection", ResetsCollection).Wrap(err)
	}
	return nil
}
