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

	"github.com/accountd/accountd/internal/account"
)

type userDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	Password  string    `bson:"password"`
	Photo     string    `bson:"photo"`
	Phone     string    `bson:"phone"`
	Bio       string    `bson:"bio"`
	CreatedAt time.Time `bson:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

func toUserDoc(u *account.User) userDoc {
	return userDoc{
		ID:        u.ID.String(),
		Name:      u.Name,
		Email:     u.Email,
		Password:  u.PasswordHash,
		Photo:     u.Photo,
		Phone:     u.Phone,
		Bio:       u.Bio,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (d userDoc) toUser() (*account.User, error) {
	id, err := ulid.Parse(d.ID)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("operation", "parse user id").
			With("id", d.ID).
			Wrap(err)
	}
	return &account.User{
		ID:           id,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.Password,
		Photo:        d.Photo,
		Phone:        d.Phone,
		Bio:          d.Bio,
		CreatedAt:    d.CreatedAt.UTC(),
		UpdatedAt:    d.UpdatedAt.UTC(),
	}, nil
}

// UserRepository implements account.UserRepository using MongoDB.
type UserRepository struct {
	coll *mongo.Collection
}

// NewUserRepository creates a UserRepository over db's users collection.
func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(UsersCollection)}
}

// Create stores a new user.
func (r *UserRepository) Create(ctx context.Context, user *account.User) error {
	_, err := r.coll.InsertOne(ctx, toUserDoc(user))
	switch {
	case err == nil:
		return nil
	case mongo.IsDuplicateKeyError(err):
		return oops.Code("USER_DUPLICATE_EMAIL").
			With("email", user.Email).
			Wrap(account.ErrDuplicateEmail)
	default:
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("email", user.Email).
			Wrap(err)
	}
}

// GetByID retrieves a user by ID.
func (r *UserRepository) GetByID(ctx context.Context, id ulid.ULID) (*account.User, error) {
	return r.findOne(ctx, bson.M{"_id": id.String()}, "id", id.String())
}

// GetByEmail retrieves a user by email. Stored emails are lower-case.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*account.User, error) {
	normalized, err := account.NormalizeEmail(email)
	if err != nil {
		return nil, oops.Code("USER_NOT_FOUND").
			With("email", email).
			Wrap(account.ErrNotFound)
	}
	return r.findOne(ctx, bson.M{"email": normalized}, "email", normalized)
}

func (r *UserRepository) findOne(ctx context.Context, filter bson.M, key, value string) (*account.User, error) {
	var doc userDoc
	err := r.coll.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, oops.Code("USER_NOT_FOUND").
			With(key, value).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "find user").
			With(key, value).
			Wrap(err)
	}
	return doc.toUser()
}

// Update replaces the stored fields of an existing user.
func (r *UserRepository) Update(ctx context.Context, user *account.User) error {
	doc := toUserDoc(user)
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": doc.ID}, bson.M{"$set": bson.M{
		"name":      doc.Name,
		"email":     doc.Email,
		"password":  doc.Password,
		"photo":     doc.Photo,
		"phone":     doc.Phone,
		"bio":       doc.Bio,
		"updatedAt": doc.UpdatedAt,
	}})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return oops.Code("USER_DUPLICATE_EMAIL").
				With("email", user.Email).
				Wrap(account.ErrDuplicateEmail)
		}
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update user").
			With("id", doc.ID).
			Wrap(err)
	}
	if result.MatchedCount == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", doc.ID).
			Wrap(account.ErrNotFound)
	}
	return nil
}

// Compile-time interface check.
var _ account.UserRepository = (*UserRepository)(nil)
