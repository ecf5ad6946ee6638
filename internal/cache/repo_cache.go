package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	redisv9 "github.com/redis/go-redis/v9"

	"devconnect/internal/github"
)

// RepoCache keeps GitHub repo listings in redis so repeated profile views
// do not hammer the upstream API quota.
type RepoCache struct {
	client *redisv9.Client
	ttl    time.Duration
}

func NewRepoCache(client *redisv9.Client, ttl time.Duration) *RepoCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RepoCache{
		client: client,
		ttl:    ttl,
	}
}

func (c *RepoCache) Get(ctx context.Context, username string) ([]github.Repo, bool, error) {
	raw, err := c.client.Get(ctx, c.key(username)).Result()
	if err == redisv9.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get github repos failed: %w", err)
	}

	var repos []github.Repo
	if err := json.Unmarshal([]byte(raw), &repos); err != nil {
		return nil, false, fmt.Errorf("unmarshal cached github repos failed: %w", err)
	}
	return repos, true, nil
}

func (c *RepoCache) Set(ctx context.Context, username string, repos []github.Repo) error {
	payload, err := json.Marshal(repos)
	if err != nil {
		return fmt.Errorf("marshal github repos cache failed: %w", err)
	}
	if err := c.client.Set(ctx, c.key(username), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set github repos failed: %w", err)
	}
	return nil
}

func (c *RepoCache) key(username string) string {
	return fmt.Sprintf("github:repos:%s", username)
}
