package app

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"devconnect/internal/event"
	"devconnect/internal/github"
	"devconnect/internal/model"
	"devconnect/internal/repository"
)

type fakeProfileStore struct {
	profiles       map[primitive.ObjectID]*model.Profile
	forceConflicts int
	// onRead runs after a read returns its snapshot; tests use it to
	// interleave a concurrent writer.
	onRead func()
}

func newFakeProfileStore() *fakeProfileStore {
	return &fakeProfileStore{profiles: make(map[primitive.ObjectID]*model.Profile)}
}

func cloneProfile(profile *model.Profile) *model.Profile {
	clone := *profile
	clone.Skills = append([]string(nil), profile.Skills...)
	clone.Experience = append([]model.Experience(nil), profile.Experience...)
	clone.Education = append([]model.Education(nil), profile.Education...)
	return &clone
}

func (f *fakeProfileStore) Upsert(_ context.Context, userID primitive.ObjectID, fields map[string]any) (*model.Profile, error) {
	profile, ok := f.profiles[userID]
	if !ok {
		profile = &model.Profile{
			ID:         primitive.NewObjectID(),
			UserID:     userID,
			Experience: []model.Experience{},
			Education:  []model.Education{},
			CreatedAt:  time.Now(),
		}
		f.profiles[userID] = profile
	}
	for key, value := range fields {
		applyProfileField(profile, key, value)
	}
	profile.Version++
	profile.UpdatedAt = time.Now()
	return cloneProfile(profile), nil
}

func applyProfileField(profile *model.Profile, key string, value any) {
	switch key {
	case "status":
		profile.Status = value.(string)
	case "skills":
		profile.Skills = value.([]string)
	case "company":
		profile.Company = value.(string)
	case "website":
		profile.Website = value.(string)
	case "location":
		profile.Location = value.(string)
	case "bio":
		profile.Bio = value.(string)
	case "githubusername":
		profile.GithubUsername = value.(string)
	case "social.youtube":
		profile.Social.Youtube = value.(string)
	case "social.twitter":
		profile.Social.Twitter = value.(string)
	case "social.facebook":
		profile.Social.Facebook = value.(string)
	case "social.linkedin":
		profile.Social.LinkedIn = value.(string)
	case "social.instagram":
		profile.Social.Instagram = value.(string)
	}
}

func (f *fakeProfileStore) GetByUserID(_ context.Context, userID primitive.ObjectID) (*model.Profile, error) {
	profile, ok := f.profiles[userID]
	if !ok {
		return nil, nil
	}
	clone := cloneProfile(profile)
	if f.onRead != nil {
		f.onRead()
	}
	return clone, nil
}

func (f *fakeProfileStore) List(_ context.Context) ([]model.Profile, error) {
	profiles := make([]model.Profile, 0, len(f.profiles))
	for _, profile := range f.profiles {
		profiles = append(profiles, *cloneProfile(profile))
	}
	return profiles, nil
}

func (f *fakeProfileStore) UpdateVersioned(_ context.Context, profile *model.Profile) error {
	if f.forceConflicts > 0 {
		f.forceConflicts--
		return repository.ErrVersionConflict
	}
	stored, ok := f.profiles[profile.UserID]
	if !ok || stored.Version != profile.Version {
		return repository.ErrVersionConflict
	}
	profile.Version++
	f.profiles[profile.UserID] = cloneProfile(profile)
	return nil
}

func (f *fakeProfileStore) DeleteByUserID(_ context.Context, userID primitive.ObjectID) error {
	delete(f.profiles, userID)
	return nil
}

type fakeCleanupPublisher struct {
	events []event.AccountDeleted
}

func (f *fakeCleanupPublisher) Publish(_ context.Context, ev event.AccountDeleted) error {
	f.events = append(f.events, ev)
	return nil
}

type fakeGithubClient struct {
	repos map[string][]github.Repo
	calls int
}

func (f *fakeGithubClient) ReposByUsername(_ context.Context, username string) ([]github.Repo, error) {
	f.calls++
	repos, ok := f.repos[username]
	if !ok {
		return nil, github.ErrNotFound
	}
	return repos, nil
}

type fakeRepoCache struct {
	entries map[string][]github.Repo
}

func newFakeRepoCache() *fakeRepoCache {
	return &fakeRepoCache{entries: make(map[string][]github.Repo)}
}

func (f *fakeRepoCache) Get(_ context.Context, username string) ([]github.Repo, bool, error) {
	repos, ok := f.entries[username]
	return repos, ok, nil
}

func (f *fakeRepoCache) Set(_ context.Context, username string, repos []github.Repo) error {
	f.entries[username] = repos
	return nil
}

type profileFixture struct {
	svc          *ProfileService
	profileStore *fakeProfileStore
	userStore    *fakeUserStore
	publisher    *fakeCleanupPublisher
	githubClient *fakeGithubClient
	user         *model.User
}

func newProfileFixture(t *testing.T) *profileFixture {
	t.Helper()
	profileStore := newFakeProfileStore()
	userStore := newFakeUserStore()
	publisher := &fakeCleanupPublisher{}
	githubClient := &fakeGithubClient{repos: map[string][]github.Repo{
		"octocat": {{ID: 1, Name: "hello-world"}},
	}}

	user := &model.User{Name: "A", Email: "a@x.com", Avatar: "avatar-a"}
	if err := userStore.Create(context.Background(), user); err != nil {
		t.Fatalf("seed user failed: %v", err)
	}

	return &profileFixture{
		svc:          NewProfileService(profileStore, userStore, publisher, githubClient, newFakeRepoCache()),
		profileStore: profileStore,
		userStore:    userStore,
		publisher:    publisher,
		githubClient: githubClient,
		user:         user,
	}
}

func TestUpsertCreatesThenMerges(t *testing.T) {
	fx := newProfileFixture(t)
	ctx := context.Background()
	uid := fx.user.ID.Hex()

	first, err := fx.svc.Upsert(ctx, uid, ProfileInput{
		Status:  "Developer",
		Skills:  "Go,SQL",
		Company: "Acme",
	})
	if err != nil {
		t.Fatalf("first Upsert() error = %v", err)
	}
	if first.Company != "Acme" || first.Status != "Developer" {
		t.Errorf("profile = %+v, want company Acme status Developer", first)
	}

	second, err := fx.svc.Upsert(ctx, uid, ProfileInput{
		Status:  "Senior Developer",
		Skills:  "Go,SQL,Docker",
		Website: "https://a.example",
	})
	if err != nil {
		t.Fatalf("second Upsert() error = %v", err)
	}

	if len(fx.profileStore.profiles) != 1 {
		t.Fatalf("profile count = %d, want exactly one record per user", len(fx.profileStore.profiles))
	}
	if second.Company != "Acme" {
		t.Errorf("company = %q after partial update, want untouched Acme", second.Company)
	}
	if second.Website != "https://a.example" || second.Status != "Senior Developer" {
		t.Errorf("merged profile = %+v, want new website and status", second)
	}
}

func TestUpsertRequiresStatusAndSkills(t *testing.T) {
	fx := newProfileFixture(t)
	ctx := context.Background()

	if _, err := fx.svc.Upsert(ctx, fx.user.ID.Hex(), ProfileInput{Skills: "Go"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Upsert() without status error = %v, want ErrInvalidInput", err)
	}
	if _, err := fx.svc.Upsert(ctx, fx.user.ID.Hex(), ProfileInput{Status: "Dev"}); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Upsert() without skills error = %v, want ErrInvalidInput", err)
	}
}

func TestUpsertNormalizesSkills(t *testing.T) {
	fx := newProfileFixture(t)
	ctx := context.Background()

	profile, err := fx.svc.Upsert(ctx, fx.user.ID.Hex(), ProfileInput{
		Status: "Dev",
		Skills: " Go , SQL ,Go ,, Docker",
	})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	want := []string{"Go", "SQL", "Docker"}
	if !reflect.DeepEqual(profile.Skills, want) {
		t.Errorf("skills = %v, want %v", profile.Skills, want)
	}
}

func TestUpsertMergesSocialLinks(t *testing.T) {
	fx := newProfileFixture(t)
	ctx := context.Background()
	uid := fx.user.ID.Hex()

	if _, err := fx.svc.Upsert(ctx, uid, ProfileInput{Status: "Dev", Skills: "Go", Youtube: "https://yt.example"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	profile, err := fx.svc.Upsert(ctx, uid, ProfileInput{Status: "Dev", Skills: "Go", Twitter: "https://tw.example"})
	if err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if profile.Social.Youtube != "https://yt.example" || profile.Social.Twitter != "https://tw.example" {
		t.Errorf("social = %+v, want both youtube and twitter present", profile.Social)
	}
}

func TestExperienceLifecycle(t *testing.T) {
	fx := newProfileFixture(t)
	ctx := context.Background()
	uid := fx.user.ID.Hex()

	input := ExperienceInput{Title: "Engineer", Company: "Acme", From: time.Now().AddDate(-2, 0, 0)}
	if _, err := fx.svc.AddExperience(ctx, uid, input); !errors.Is(err, ErrProfileNotFound) {
		t.Fatalf("AddExperience() without profile error = %v, want ErrProfileNotFound", err)
	}

	if _, err := fx.svc.Upsert(ctx, uid, ProfileInput{Status: "Dev", Skills: "Go"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if _, err := fx.svc.AddExperience(ctx, uid, input); err != nil {
		t.Fatalf("AddExperience() error = %v", err)
	}
	profile, err := fx.svc.AddExperience(ctx, uid, ExperienceInput{
		Title: "Senior Engineer", Company: "Acme", From: time.Now().AddDate(-1, 0, 0),
	})
	if err != nil {
		t.Fatalf("AddExperience() error = %v", err)
	}
	if len(profile.Experience) != 2 || profile.Experience[0].Title != "Senior Engineer" {
		t.Fatalf("experience = %v, want newest entry first", profile.Experience)
	}

	target := profile.Experience[1].ID.Hex()
	profile, err = fx.svc.RemoveExperience(ctx, uid, target)
	if err != nil {
		t.Fatalf("RemoveExperience() error = %v", err)
	}
	if len(profile.Experience) != 1 || profile.Experience[0].Title != "Senior Engineer" {
		t.Errorf("experience after remove = %v, want only Senior Engineer", profile.Experience)
	}

	// Removing again, or removing garbage, is a silent no-op.
	profile, err = fx.svc.RemoveExperience(ctx, uid, target)
	if err != nil {
		t.Fatalf("repeat RemoveExperience() error = %v", err)
	}
	if len(profile.Experience) != 1 {
		t.Errorf("experience after repeat remove = %v, want unchanged", profile.Experience)
	}
	if _, err := fx.svc.RemoveExperience(ctx, uid, "not-an-id"); err != nil {
		t.Errorf("RemoveExperience(bad id) error = %v, want nil", err)
	}
}

func TestEducationLifecycle(t *testing.T) {
	fx := newProfileFixture(t)
	ctx := context.Background()
	uid := fx.user.ID.Hex()

	if _, err := fx.svc.Upsert(ctx, uid, ProfileInput{Status: "Dev", Skills: "Go"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	profile, err := fx.svc.AddEducation(ctx, uid, EducationInput{
		School: "MIT", Degree: "BSc", FieldOfStudy: "CS", From: time.Now().AddDate(-6, 0, 0),
	})
	if err != nil {
		t.Fatalf("AddEducation() error = %v", err)
	}
	if len(profile.Education) != 1 || profile.Education[0].School != "MIT" {
		t.Fatalf("education = %v, want single MIT entry", profile.Education)
	}

	profile, err = fx.svc.RemoveEducation(ctx, uid, profile.Education[0].ID.Hex())
	if err != nil {
		t.Fatalf("RemoveEducation() error = %v", err)
	}
	if len(profile.Education) != 0 {
		t.Errorf("education after remove = %v, want empty", profile.Education)
	}
}

// An upsert landing between a mutation's read and its versioned write must
// invalidate that write: the mutation retries against the fresh document and
// both changes survive.
func TestMutationRetriesAfterConcurrentUpsert(t *testing.T) {
	fx := newProfileFixture(t)
	ctx := context.Background()
	uid := fx.user.ID.Hex()

	if _, err := fx.svc.Upsert(ctx, uid, ProfileInput{Status: "Dev", Skills: "Go"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	interleaved := false
	fx.profileStore.onRead = func() {
		if interleaved {
			return
		}
		interleaved = true
		if _, err := fx.svc.Upsert(ctx, uid, ProfileInput{Status: "Architect", Skills: "Go"}); err != nil {
			t.Fatalf("interleaved Upsert() error = %v", err)
		}
	}

	profile, err := fx.svc.AddExperience(ctx, uid, ExperienceInput{
		Title: "Engineer", Company: "Acme", From: time.Now().AddDate(-1, 0, 0),
	})
	if err != nil {
		t.Fatalf("AddExperience() error = %v", err)
	}
	if !interleaved {
		t.Fatal("concurrent upsert never ran")
	}
	if profile.Status != "Architect" {
		t.Errorf("status = %q, want the interleaved upsert's Architect preserved", profile.Status)
	}
	if len(profile.Experience) != 1 || profile.Experience[0].Title != "Engineer" {
		t.Errorf("experience = %v, want the retried mutation's entry", profile.Experience)
	}
}

func TestDeleteAccountCascades(t *testing.T) {
	fx := newProfileFixture(t)
	ctx := context.Background()
	uid := fx.user.ID.Hex()

	if _, err := fx.svc.Upsert(ctx, uid, ProfileInput{Status: "Dev", Skills: "Go"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	if err := fx.svc.DeleteAccount(ctx, uid); err != nil {
		t.Fatalf("DeleteAccount() error = %v", err)
	}

	if len(fx.profileStore.profiles) != 0 {
		t.Error("profile survived account deletion")
	}
	if len(fx.userStore.users) != 0 {
		t.Error("user survived account deletion")
	}
	if len(fx.publisher.events) != 1 || fx.publisher.events[0].UserID != uid {
		t.Errorf("published events = %v, want single cleanup event for %s", fx.publisher.events, uid)
	}
}

func TestGithubReposCachesUpstream(t *testing.T) {
	fx := newProfileFixture(t)
	ctx := context.Background()

	repos, err := fx.svc.GithubRepos(ctx, "octocat")
	if err != nil {
		t.Fatalf("GithubRepos() error = %v", err)
	}
	if len(repos) != 1 || repos[0].Name != "hello-world" {
		t.Fatalf("repos = %v, want hello-world", repos)
	}

	if _, err := fx.svc.GithubRepos(ctx, "octocat"); err != nil {
		t.Fatalf("second GithubRepos() error = %v", err)
	}
	if fx.githubClient.calls != 1 {
		t.Errorf("upstream calls = %d, want 1 (second read served from cache)", fx.githubClient.calls)
	}

	if _, err := fx.svc.GithubRepos(ctx, "ghost"); !errors.Is(err, ErrGithubNotFound) {
		t.Errorf("GithubRepos(unknown) error = %v, want ErrGithubNotFound", err)
	}
}

func TestProfileLookups(t *testing.T) {
	fx := newProfileFixture(t)
	ctx := context.Background()
	uid := fx.user.ID.Hex()

	if _, err := fx.svc.Me(ctx, uid); !errors.Is(err, ErrProfileNotFound) {
		t.Errorf("Me() without profile error = %v, want ErrProfileNotFound", err)
	}

	if _, err := fx.svc.Upsert(ctx, uid, ProfileInput{Status: "Dev", Skills: "Go"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	profile, err := fx.svc.GetByUserID(ctx, uid)
	if err != nil {
		t.Fatalf("GetByUserID() error = %v", err)
	}
	if profile.UserID != fx.user.ID {
		t.Errorf("profile user = %v, want %v", profile.UserID, fx.user.ID)
	}

	profiles, err := fx.svc.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(profiles) != 1 {
		t.Errorf("profile list length = %d, want 1", len(profiles))
	}
}
