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

// ErrVersionConflict means a versioned write matched no document: either the
// document changed under us or it was deleted. Callers re-read and retry.
var ErrVersionConflict = errors.New("version conflict")

type PostRepository struct {
	col *mongo.Collection
}

func NewPostRepository(db *mongo.Database) *PostRepository {
	return &PostRepository{col: db.Collection("posts")}
}

func (r *PostRepository) Create(ctx context.Context, post *model.Post) error {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now()
	}
	if post.Likes == nil {
		post.Likes = []model.Like{}
	}
	if post.Comments == nil {
		post.Comments = []model.Comment{}
	}
	res, err := r.col.InsertOne(ctx, post)
	if err != nil {
		return fmt.Errorf("create post failed: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		post.ID = oid
	}
	return nil
}

func (r *PostRepository) List(ctx context.Context) ([]model.Post, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cur, err := r.col.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("list posts failed: %w", err)
	}
	defer cur.Close(ctx)

	var posts []model.Post
	if err := cur.All(ctx, &posts); err != nil {
		return nil, fmt.Errorf("decode posts failed: %w", err)
	}
	return posts, nil
}

func (r *PostRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*model.Post, error) {
	var post model.Post
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("query post by id failed: %w", err)
	}
	return &post, nil
}

// UpdateVersioned replaces the post only if the stored version still matches,
// bumping the version on success. A miss reports ErrVersionConflict.
func (r *PostRepository) UpdateVersioned(ctx context.Context, post *model.Post) error {
	filter := bson.M{"_id": post.ID, "version": post.Version}
	post.Version++
	res, err := r.col.ReplaceOne(ctx, filter, post)
	if err != nil {
		post.Version--
		return fmt.Errorf("update post failed: %w", err)
	}
	if res.MatchedCount == 0 {
		post.Version--
		return ErrVersionConflict
	}
	return nil
}

func (r *PostRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, err := r.col.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete post failed: %w", err)
	}
	return nil
}

func (r *PostRepository) DeleteByAuthor(ctx context.Context, userID primitive.ObjectID) error {
	if _, err := r.col.DeleteMany(ctx, bson.M{"user": userID}); err != nil {
		return fmt.Errorf("delete posts by author failed: %w", err)
	}
	return nil
}

// PullAuthorActivity strips a user's likes and comments from every remaining
// post, part of the account-deletion cascade.
func (r *PostRepository) PullAuthorActivity(ctx context.Context, userID primitive.ObjectID) error {
	update := bson.M{
		"$pull": bson.M{
			"likes":    bson.M{"user": userID},
			"comments": bson.M{"user": userID},
		},
		"$inc": bson.M{"version": 1},
	}
	if _, err := r.col.UpdateMany(ctx, bson.M{}, update); err != nil {
		return fmt.Errorf("pull author activity failed: %w", err)
	}
	return nil
}
