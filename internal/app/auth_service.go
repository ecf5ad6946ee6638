package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"devconnect/internal/model"
	"devconnect/internal/pkg/gravatar"
	"devconnect/internal/pkg/jwtutil"
	"devconnect/internal/repository"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrEmailExists        = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserNotFound       = errors.New("user not found")
)

// UserStore is the credential-store surface AuthService needs.
type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type AuthService struct {
	userStore     UserStore
	jwtSecret     string
	jwtExpiration time.Duration
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

type LoginInput struct {
	Email    string
	Password string
}

func NewAuthService(userStore UserStore, jwtSecret string, jwtExpiration time.Duration) *AuthService {
	return &AuthService{
		userStore:     userStore,
		jwtSecret:     jwtSecret,
		jwtExpiration: jwtExpiration,
	}
}

// Register creates a user and returns a fresh token. The avatar URL is
// derived from the email, and the password is stored as a bcrypt hash only.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (string, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(strings.ToLower(input.Email))
	password := input.Password

	if name == "" || email == "" || len(password) < 4 || !strings.ContainsAny(password, "0123456789") {
		return "", ErrInvalidInput
	}

	existing, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if existing != nil {
		return "", ErrEmailExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password failed: %w", err)
	}

	user := &model.User{
		Name:     name,
		Email:    email,
		Password: string(hash),
		Avatar:   gravatar.URL(email),
	}
	// The existence check above races concurrent registrations; the unique
	// email index is the backstop.
	if err := s.userStore.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return "", ErrEmailExists
		}
		return "", err
	}

	return jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, user.ID.Hex())
}

// Login verifies credentials and returns a fresh token. A failed password
// match returns immediately; no token is ever issued on a mismatch.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (string, error) {
	email := strings.TrimSpace(strings.ToLower(input.Email))
	password := input.Password
	if email == "" || password == "" {
		return "", ErrInvalidInput
	}

	user, err := s.userStore.GetByEmail(ctx, email)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	return jwtutil.GenerateToken(s.jwtSecret, s.jwtExpiration, user.ID.Hex())
}

// GetUserByID resolves the authenticated user. The password hash never
// leaves the model's json:"-" field.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, ErrUserNotFound
	}
	user, err := s.userStore.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}
