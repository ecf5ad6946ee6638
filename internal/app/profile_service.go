package app

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"devconnect/internal/event"
	"devconnect/internal/github"
	"devconnect/internal/model"
	"devconnect/internal/repository"
)

var (
	ErrProfileNotFound = errors.New("profile is not created yet")
	ErrGithubNotFound  = errors.New("no github profile found")
)

// ProfileStore is the profile-collection surface ProfileService needs.
type ProfileStore interface {
	Upsert(ctx context.Context, userID primitive.ObjectID, fields map[string]any) (*model.Profile, error)
	GetByUserID(ctx context.Context, userID primitive.ObjectID) (*model.Profile, error)
	List(ctx context.Context) ([]model.Profile, error)
	UpdateVersioned(ctx context.Context, profile *model.Profile) error
	DeleteByUserID(ctx context.Context, userID primitive.ObjectID) error
}

// CleanupPublisher hands account-deletion cascades to the async worker.
type CleanupPublisher interface {
	Publish(ctx context.Context, ev event.AccountDeleted) error
}

type GithubClient interface {
	ReposByUsername(ctx context.Context, username string) ([]github.Repo, error)
}

type RepoCache interface {
	Get(ctx context.Context, username string) ([]github.Repo, bool, error)
	Set(ctx context.Context, username string, repos []github.Repo) error
}

type ProfileService struct {
	profileStore ProfileStore
	userStore    UserStore
	publisher    CleanupPublisher
	githubClient GithubClient
	repoCache    RepoCache
}

type ProfileInput struct {
	Company        string
	Website        string
	Location       string
	Status         string
	Skills         string
	Bio            string
	GithubUsername string
	Youtube        string
	Twitter        string
	Facebook       string
	LinkedIn       string
	Instagram      string
}

type ExperienceInput struct {
	Title       string
	Company     string
	Location    string
	From        time.Time
	To          *time.Time
	Current     bool
	Description string
}

type EducationInput struct {
	School       string
	Degree       string
	FieldOfStudy string
	From         time.Time
	To           *time.Time
	Current      bool
	Description  string
}

func NewProfileService(
	profileStore ProfileStore,
	userStore UserStore,
	publisher CleanupPublisher,
	githubClient GithubClient,
	repoCache RepoCache,
) *ProfileService {
	return &ProfileService{
		profileStore: profileStore,
		userStore:    userStore,
		publisher:    publisher,
		githubClient: githubClient,
		repoCache:    repoCache,
	}
}

// Upsert merges the present fields into the user's profile, creating it when
// absent. Empty inputs leave the stored values untouched.
func (s *ProfileService) Upsert(ctx context.Context, userID string, input ProfileInput) (*model.Profile, error) {
	uid, err := primitive.ObjectIDFromHex(strings.TrimSpace(userID))
	if err != nil {
		return nil, ErrInvalidInput
	}
	if strings.TrimSpace(input.Status) == "" || strings.TrimSpace(input.Skills) == "" {
		return nil, ErrInvalidInput
	}

	fields := map[string]any{
		"status": strings.TrimSpace(input.Status),
		"skills": parseSkills(input.Skills),
	}
	setIfPresent(fields, "company", input.Company)
	setIfPresent(fields, "website", input.Website)
	setIfPresent(fields, "location", input.Location)
	setIfPresent(fields, "bio", input.Bio)
	setIfPresent(fields, "githubusername", input.GithubUsername)

	// Dotted paths merge individual links instead of replacing the sub-map.
	setIfPresent(fields, "social.youtube", input.Youtube)
	setIfPresent(fields, "social.twitter", input.Twitter)
	setIfPresent(fields, "social.facebook", input.Facebook)
	setIfPresent(fields, "social.linkedin", input.LinkedIn)
	setIfPresent(fields, "social.instagram", input.Instagram)

	return s.profileStore.Upsert(ctx, uid, fields)
}

func (s *ProfileService) Me(ctx context.Context, userID string) (*model.Profile, error) {
	return s.getByUser(ctx, userID)
}

func (s *ProfileService) List(ctx context.Context) ([]model.Profile, error) {
	return s.profileStore.List(ctx)
}

func (s *ProfileService) GetByUserID(ctx context.Context, userID string) (*model.Profile, error) {
	return s.getByUser(ctx, userID)
}

func (s *ProfileService) AddExperience(ctx context.Context, userID string, input ExperienceInput) (*model.Profile, error) {
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Company) == "" || input.From.IsZero() {
		return nil, ErrInvalidInput
	}
	entry := model.Experience{
		ID:          primitive.NewObjectID(),
		Title:       strings.TrimSpace(input.Title),
		Company:     strings.TrimSpace(input.Company),
		Location:    strings.TrimSpace(input.Location),
		From:        input.From,
		To:          input.To,
		Current:     input.Current,
		Description: strings.TrimSpace(input.Description),
	}

	return s.mutate(ctx, userID, func(profile *model.Profile) bool {
		profile.Experience = append([]model.Experience{entry}, profile.Experience...)
		return true
	})
}

// RemoveExperience deletes the entry whose id matches. A miss is a silent
// no-op so repeated deletes stay idempotent.
func (s *ProfileService) RemoveExperience(ctx context.Context, userID, entryID string) (*model.Profile, error) {
	target, err := primitive.ObjectIDFromHex(strings.TrimSpace(entryID))
	if err != nil {
		return s.getByUser(ctx, userID)
	}

	return s.mutate(ctx, userID, func(profile *model.Profile) bool {
		kept := profile.Experience[:0:0]
		for _, entry := range profile.Experience {
			if entry.ID != target {
				kept = append(kept, entry)
			}
		}
		if len(kept) == len(profile.Experience) {
			return false
		}
		profile.Experience = kept
		return true
	})
}

func (s *ProfileService) AddEducation(ctx context.Context, userID string, input EducationInput) (*model.Profile, error) {
	if strings.TrimSpace(input.School) == "" || strings.TrimSpace(input.Degree) == "" ||
		strings.TrimSpace(input.FieldOfStudy) == "" || input.From.IsZero() {
		return nil, ErrInvalidInput
	}
	entry := model.Education{
		ID:           primitive.NewObjectID(),
		School:       strings.TrimSpace(input.School),
		Degree:       strings.TrimSpace(input.Degree),
		FieldOfStudy: strings.TrimSpace(input.FieldOfStudy),
		From:         input.From,
		To:           input.To,
		Current:      input.Current,
		Description:  strings.TrimSpace(input.Description),
	}

	return s.mutate(ctx, userID, func(profile *model.Profile) bool {
		profile.Education = append([]model.Education{entry}, profile.Education...)
		return true
	})
}

func (s *ProfileService) RemoveEducation(ctx context.Context, userID, entryID string) (*model.Profile, error) {
	target, err := primitive.ObjectIDFromHex(strings.TrimSpace(entryID))
	if err != nil {
		return s.getByUser(ctx, userID)
	}

	return s.mutate(ctx, userID, func(profile *model.Profile) bool {
		kept := profile.Education[:0:0]
		for _, entry := range profile.Education {
			if entry.ID != target {
				kept = append(kept, entry)
			}
		}
		if len(kept) == len(profile.Education) {
			return false
		}
		profile.Education = kept
		return true
	})
}

// DeleteAccount removes the profile and user, then hands the rest of the
// cascade (posts, likes, comments) to the cleanup worker. Event loss is
// logged, not surfaced: the account itself is already gone.
func (s *ProfileService) DeleteAccount(ctx context.Context, userID string) error {
	uid, err := primitive.ObjectIDFromHex(strings.TrimSpace(userID))
	if err != nil {
		return ErrInvalidInput
	}

	if err := s.profileStore.DeleteByUserID(ctx, uid); err != nil {
		return err
	}
	if err := s.userStore.Delete(ctx, uid); err != nil {
		return err
	}

	if err := s.publisher.Publish(ctx, event.AccountDeleted{UserID: uid.Hex()}); err != nil {
		log.Printf("publish account cleanup event failed: %v", err)
	}
	return nil
}

// GithubRepos serves from the redis cache when possible and falls back to
// the GitHub API on a miss.
func (s *ProfileService) GithubRepos(ctx context.Context, username string) ([]github.Repo, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, ErrGithubNotFound
	}

	if s.repoCache != nil {
		repos, hit, err := s.repoCache.Get(ctx, username)
		if err != nil {
			log.Printf("github repo cache read failed: %v", err)
		} else if hit {
			return repos, nil
		}
	}

	repos, err := s.githubClient.ReposByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, github.ErrNotFound) {
			return nil, ErrGithubNotFound
		}
		return nil, err
	}

	if s.repoCache != nil {
		if err := s.repoCache.Set(ctx, username, repos); err != nil {
			log.Printf("github repo cache write failed: %v", err)
		}
	}
	return repos, nil
}

// mutate applies fn to a fresh read of the profile and retries versioned
// writes that lose a race. fn returning false means nothing changed and no
// write is issued.
func (s *ProfileService) mutate(ctx context.Context, userID string, fn func(*model.Profile) bool) (*model.Profile, error) {
	uid, err := primitive.ObjectIDFromHex(strings.TrimSpace(userID))
	if err != nil {
		return nil, ErrInvalidInput
	}

	for attempt := 0; attempt < maxMutationRetries; attempt++ {
		profile, err := s.profileStore.GetByUserID(ctx, uid)
		if err != nil {
			return nil, err
		}
		if profile == nil {
			return nil, ErrProfileNotFound
		}

		if !fn(profile) {
			return profile, nil
		}

		err = s.profileStore.UpdateVersioned(ctx, profile)
		if errors.Is(err, repository.ErrVersionConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return profile, nil
	}
	return nil, ErrConflict
}

func (s *ProfileService) getByUser(ctx context.Context, userID string) (*model.Profile, error) {
	uid, err := primitive.ObjectIDFromHex(strings.TrimSpace(userID))
	if err != nil {
		return nil, ErrProfileNotFound
	}
	profile, err := s.profileStore.GetByUserID(ctx, uid)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, ErrProfileNotFound
	}
	return profile, nil
}

func setIfPresent(fields map[string]any, key, value string) {
	value = strings.TrimSpace(value)
	if value != "" {
		fields[key] = value
	}
}

// parseSkills turns "Go, SQL,Go , Docker" into ["Go","SQL","Docker"]:
// comma-split, trimmed, first occurrence wins.
func parseSkills(raw string) []string {
	parts := strings.Split(raw, ",")
	seen := make(map[string]struct{}, len(parts))
	skills := make([]string, 0, len(parts))
	for _, part := range parts {
		skill := strings.TrimSpace(part)
		if skill == "" {
			continue
		}
		if _, dup := seen[skill]; dup {
			continue
		}
		seen[skill] = struct{}{}
		skills = append(skills, skill)
	}
	return skills
}
