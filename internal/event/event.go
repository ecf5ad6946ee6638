package event

// AccountDeleted is published when a user deletes their account. The cleanup
// worker removes everything the synchronous delete left behind: the user's
// posts and their likes/comments on other users' posts.
type AccountDeleted struct {
	UserID string `json:"user_id"`
}
