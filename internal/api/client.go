// internal/api/client.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/eitopstats/topstats/internal/cache"
)

// ErrNoGuild is returned when no guild id is configured.
var ErrNoGuild = errors.New("guild id not set")

// Member is one entry of the guild roster.
type Member struct {
	Name   string    `json:"name"`
	Rank   string    `json:"rank"`
	Joined time.Time `json:"joined"`
}

// TokenInfo describes the API key.
type TokenInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
}

// Has reports whether the key carries permission p.
func (t TokenInfo) Has(p string) bool {
	for _, have := range t.Permissions {
		if have == p {
			return true
		}
	}
	return false
}

// Client handles communication with the game API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	q := url.Values{}
	q.Set("access_token", c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Text string `json:"text"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Text != "" {
			return fmt.Errorf("%s returned status %d: %s", path, resp.StatusCode, apiErr.Text)
		}
		return fmt.Errorf("%s returned status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// Healthcheck validates the API key against the token endpoint.
func (c *Client) Healthcheck(ctx context.Context) (TokenInfo, error) {
	var info TokenInfo
	err := c.get(ctx, "/v2/tokeninfo", &info)
	return info, err
}

// GuildMembers fetches the roster of guildID. The key must belong to a
// guild leader.
func (c *Client) GuildMembers(ctx context.Context, guildID string) ([]Member, error) {
	if guildID == "" {
		return nil, ErrNoGuild
	}
	var members []Member
	if err := c.get(ctx, "/v2/guild/"+url.PathEscape(guildID)+"/members", &members); err != nil {
		return nil, err
	}
	return members, nil
}

// LoadRoster replaces the contents of roster with the guild members, keyed
// by account name. It returns the member count.
func (c *Client) LoadRoster(ctx context.Context, guildID string, roster *cache.Roster) (int, error) {
	members, err := c.GuildMembers(ctx, guildID)
	if err != nil {
		return 0, err
	}
	roster.Reset()
	for _, m := range members {
		if m.Name == "" {
			continue
		}
		roster.Set(m.Name, m.Rank)
	}
	return roster.Len(), nil
}
