package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrNotFound covers any non-success answer from the GitHub API; callers do
// not distinguish an unknown username from an upstream outage.
var ErrNotFound = errors.New("github profile not found")

type Repo struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	FullName        string `json:"full_name"`
	HTMLURL         string `json:"html_url"`
	Description     string `json:"description"`
	StargazersCount int    `json:"stargazers_count"`
	ForksCount      int    `json:"forks_count"`
	WatchersCount   int    `json:"watchers_count"`
	CreatedAt       string `json:"created_at"`
}

type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client
}

func NewClient(baseURL, clientID, clientSecret string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:      baseURL,
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

// ReposByUsername fetches five of the user's repositories, earliest created
// first.
func (c *Client) ReposByUsername(ctx context.Context, username string) ([]Repo, error) {
	query := url.Values{}
	query.Set("per_page", "5")
	query.Set("sort", "created:asc")
	if c.clientID != "" {
		query.Set("client_id", c.clientID)
		query.Set("client_secret", c.clientSecret)
	}

	endpoint := fmt.Sprintf("%s/users/%s/repos?%s", c.baseURL, url.PathEscape(username), query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build github request failed: %w", err)
	}
	req.Header.Set("User-Agent", "devconnect")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("github request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, ErrNotFound
	}

	var repos []Repo
	if err := json.NewDecoder(resp.Body).Decode(&repos); err != nil {
		return nil, fmt.Errorf("decode github response failed: %w", err)
	}
	return repos, nil
}
