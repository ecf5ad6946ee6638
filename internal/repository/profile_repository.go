package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"devconnect/internal/model"
)

type ProfileRepository struct {
	col *mongo.Collection
}

func NewProfileRepository(db *mongo.Database) *ProfileRepository {
	return &ProfileRepository{col: db.Collection("profiles")}
}

func (r *ProfileRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create profile user index failed: %w", err)
	}
	return nil
}

// Upsert applies the given field map to the user's profile, creating the
// document when absent. Only fields present in the map are touched; the
// merged document is returned. The version counter is bumped so any
// in-flight versioned replace sees the write and retries instead of
// clobbering it.
func (r *ProfileRepository) Upsert(ctx context.Context, userID primitive.ObjectID, fields map[string]any) (*model.Profile, error) {
	set := bson.M{"updated_at": time.Now()}
	for k, v := range fields {
		set[k] = v
	}

	update := bson.M{
		"$set": set,
		"$inc": bson.M{"version": 1},
		"$setOnInsert": bson.M{
			"user":       userID,
			"experience": []model.Experience{},
			"education":  []model.Education{},
			"created_at": time.Now(),
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var profile model.Profile
	if err := r.col.FindOneAndUpdate(ctx, bson.M{"user": userID}, update, opts).Decode(&profile); err != nil {
		return nil, fmt.Errorf("upsert profile failed: %w", err)
	}
	return &profile, nil
}

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID primitive.ObjectID) (*model.Profile, error) {
	var profile model.Profile
	if err := r.col.FindOne(ctx, bson.M{"user": userID}).Decode(&profile); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("query profile by user failed: %w", err)
	}
	return &profile, nil
}

func (r *ProfileRepository) List(ctx context.Context) ([]model.Profile, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list profiles failed: %w", err)
	}
	defer cur.Close(ctx)

	var profiles []model.Profile
	if err := cur.All(ctx, &profiles); err != nil {
		return nil, fmt.Errorf("decode profiles failed: %w", err)
	}
	return profiles, nil
}

// UpdateVersioned mirrors PostRepository.UpdateVersioned for profile
// sub-list mutations (experience, education).
func (r *ProfileRepository) UpdateVersioned(ctx context.Context, profile *model.Profile) error {
	filter := bson.M{"_id": profile.ID, "version": profile.Version}
	profile.Version++
	profile.UpdatedAt = time.Now()
	res, err := r.col.ReplaceOne(ctx, filter, profile)
	if err != nil {
		profile.Version--
		return fmt.Errorf("update profile failed: %w", err)
	}
	if res.MatchedCount == 0 {
		profile.Version--
		return ErrVersionConflict
	}
	return nil
}

func (r *ProfileRepository) DeleteByUserID(ctx context.Context, userID primitive.ObjectID) error {
	if _, err := r.col.DeleteOne(ctx, bson.M{"user": userID}); err != nil {
		return fmt.Errorf("delete profile failed: %w", err)
	}
	return nil
}
