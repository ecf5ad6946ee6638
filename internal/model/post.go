package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Post carries a denormalized author name/avatar snapshot taken at creation
// time, so the feed never joins against the users collection.
type Post struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user" json:"user"`
	Text      string             `bson:"text" json:"text"`
	Name      string             `bson:"name" json:"name"`
	Avatar    string             `bson:"avatar" json:"avatar"`
	Likes     []Like             `bson:"likes" json:"likes"`
	Comments  []Comment          `bson:"comments" json:"comments"`
	Version   int64              `bson:"version" json:"-"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

// Like holds only the liking user's reference. At most one per user per post.
type Like struct {
	UserID primitive.ObjectID `bson:"user" json:"user"`
}

type Comment struct {
	ID        primitive.ObjectID `bson:"_id" json:"id"`
	UserID    primitive.ObjectID `bson:"user" json:"user"`
	Text      string             `bson:"text" json:"text"`
	Name      string             `bson:"name" json:"name"`
	Avatar    string             `bson:"avatar" json:"avatar"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}
