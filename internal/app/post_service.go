package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"devconnect/internal/model"
	"devconnect/internal/repository"
)

var (
	ErrPostNotFound    = errors.New("post not found")
	ErrAlreadyLiked    = errors.New("post already liked")
	ErrNotLiked        = errors.New("post has not yet been liked")
	ErrCommentNotFound = errors.New("comment does not exist")
	ErrNotAuthorized   = errors.New("user not authorized")
	ErrConflict        = errors.New("concurrent modification, please retry")
)

// maxMutationRetries bounds re-reads after a versioned write loses a race.
const maxMutationRetries = 3

// PostStore is the post-collection surface PostService needs. Writes that
// follow a read go through UpdateVersioned so concurrent list mutations
// cannot silently overwrite each other.
type PostStore interface {
	Create(ctx context.Context, post *model.Post) error
	List(ctx context.Context) ([]model.Post, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.Post, error)
	UpdateVersioned(ctx context.Context, post *model.Post) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type PostService struct {
	postStore PostStore
	userStore UserStore
}

func NewPostService(postStore PostStore, userStore UserStore) *PostService {
	return &PostService{
		postStore: postStore,
		userStore: userStore,
	}
}

// Create denormalizes the author's name and avatar onto the post so feed
// reads never join against the users collection.
func (s *PostService) Create(ctx context.Context, userID, text string) (*model.Post, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrInvalidInput
	}

	user, err := s.GetAuthor(ctx, userID)
	if err != nil {
		return nil, err
	}

	post := &model.Post{
		UserID: user.ID,
		Text:   text,
		Name:   user.Name,
		Avatar: user.Avatar,
	}
	if err := s.postStore.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *PostService) List(ctx context.Context) ([]model.Post, error) {
	return s.postStore.List(ctx)
}

func (s *PostService) Get(ctx context.Context, postID string) (*model.Post, error) {
	oid, err := parsePostID(postID)
	if err != nil {
		return nil, err
	}
	post, err := s.postStore.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	return post, nil
}

// Like prepends a like entry unless the user already liked the post. The
// membership check runs against a fresh read on every attempt.
func (s *PostService) Like(ctx context.Context, postID, userID string) ([]model.Like, error) {
	oid, err := parsePostID(postID)
	if err != nil {
		return nil, err
	}
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, ErrInvalidInput
	}

	for attempt := 0; attempt < maxMutationRetries; attempt++ {
		post, err := s.postStore.GetByID(ctx, oid)
		if err != nil {
			return nil, err
		}
		if post == nil {
			return nil, ErrPostNotFound
		}
		if likeIndex(post.Likes, uid) >= 0 {
			return nil, ErrAlreadyLiked
		}

		post.Likes = append([]model.Like{{UserID: uid}}, post.Likes...)
		err = s.postStore.UpdateVersioned(ctx, post)
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return post.Likes, nil
	}
	return nil, ErrConflict
}

func (s *PostService) Unlike(ctx context.Context, postID, userID string) ([]model.Like, error) {
	oid, err := parsePostID(postID)
	if err != nil {
		return nil, err
	}
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, ErrInvalidInput
	}

	for attempt := 0; attempt < maxMutationRetries; attempt++ {
		post, err := s.postStore.GetByID(ctx, oid)
		if err != nil {
			return nil, err
		}
		if post == nil {
			return nil, ErrPostNotFound
		}
		idx := likeIndex(post.Likes, uid)
		if idx < 0 {
			return nil, ErrNotLiked
		}

		post.Likes = append(post.Likes[:idx:idx], post.Likes[idx+1:]...)
		err = s.postStore.UpdateVersioned(ctx, post)
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return post.Likes, nil
	}
	return nil, ErrConflict
}

func (s *PostService) AddComment(ctx context.Context, postID, userID, text string) ([]model.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrInvalidInput
	}
	oid, err := parsePostID(postID)
	if err != nil {
		return nil, err
	}

	user, err := s.GetAuthor(ctx, userID)
	if err != nil {
		return nil, err
	}

	comment := model.Comment{
		ID:        primitive.NewObjectID(),
		UserID:    user.ID,
		Text:      text,
		Name:      user.Name,
		Avatar:    user.Avatar,
		CreatedAt: time.Now(),
	}

	for attempt := 0; attempt < maxMutationRetries; attempt++ {
		post, err := s.postStore.GetByID(ctx, oid)
		if err != nil {
			return nil, err
		}
		if post == nil {
			return nil, ErrPostNotFound
		}

		post.Comments = append([]model.Comment{comment}, post.Comments...)
		err = s.postStore.UpdateVersioned(ctx, post)
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return post.Comments, nil
	}
	return nil, ErrConflict
}

// DeleteComment removes the comment whose id matches commentID. The removal
// index comes from the comment-id lookup itself, never from a separate
// owner-reference scan.
func (s *PostService) DeleteComment(ctx context.Context, postID, commentID, userID string) ([]model.Comment, error) {
	oid, err := parsePostID(postID)
	if err != nil {
		return nil, err
	}
	cid, err := primitive.ObjectIDFromHex(strings.TrimSpace(commentID))
	if err != nil {
		return nil, ErrCommentNotFound
	}
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, ErrInvalidInput
	}

	for attempt := 0; attempt < maxMutationRetries; attempt++ {
		post, err := s.postStore.GetByID(ctx, oid)
		if err != nil {
			return nil, err
		}
		if post == nil {
			return nil, ErrPostNotFound
		}

		idx := -1
		for i, comment := range post.Comments {
			if comment.ID == cid {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, ErrCommentNotFound
		}
		if post.Comments[idx].UserID != uid {
			return nil, ErrNotAuthorized
		}

		post.Comments = append(post.Comments[:idx:idx], post.Comments[idx+1:]...)
		err = s.postStore.UpdateVersioned(ctx, post)
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return post.Comments, nil
	}
	return nil, ErrConflict
}

// Delete removes a post after verifying the caller authored it.
func (s *PostService) Delete(ctx context.Context, postID, userID string) error {
	oid, err := parsePostID(postID)
	if err != nil {
		return err
	}
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return ErrInvalidInput
	}

	post, err := s.postStore.GetByID(ctx, oid)
	if err != nil {
		return err
	}
	if post == nil {
		return ErrPostNotFound
	}
	if post.UserID != uid {
		return ErrNotAuthorized
	}
	return s.postStore.Delete(ctx, oid)
}

// GetAuthor loads the acting user for snapshot denormalization.
func (s *PostService) GetAuthor(ctx context.Context, userID string) (*model.User, error) {
	uid, err := primitive.ObjectIDFromHex(strings.TrimSpace(userID))
	if err != nil {
		return nil, ErrUserNotFound
	}
	user, err := s.userStore.GetByID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func parsePostID(postID string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(postID))
	if err != nil {
		return primitive.NilObjectID, ErrPostNotFound
	}
	return oid, nil
}

func likeIndex(likes []model.Like, userID primitive.ObjectID) int {
	for i, like := range likes {
		if like.UserID == userID {
			return i
		}
	}
	return -1
}
