package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"chatcore/internal/domain"
)

// Client talks to the remote user service for display metadata. Profiles
// are never cached here: the user service stays authoritative. No client
// timeout is set; callers bound lookups through the request context.
type Client struct {
	baseURL string
	httpc   *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{},
	}
}

// GetUsersByIDs fetches display metadata for the given user ids in a single
// batched call. Failures wrap domain.ErrUpstream.
func (c *Client) GetUsersByIDs(ctx context.Context, ids []string) ([]domain.Profile, error) {
	body, err := json.Marshal(map[string][]string{"userIds": ids})
	if err != nil {
		return nil, fmt.Errorf("marshal user ids: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/getUsersByUserIds", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: user service returned %d", domain.ErrUpstream, resp.StatusCode)
	}

	var out struct {
		Users []domain.Profile `json:"users"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode users: %v", domain.ErrUpstream, err)
	}
	return out.Users, nil
}
