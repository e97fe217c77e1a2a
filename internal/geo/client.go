// Package geo resolves caller IP addresses to regions through an external
// lookup service.
package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Region is the lookup result. ContinentCode follows the two-letter
// continent convention of the upstream provider (e.g. "EU", "NA").
type Region struct {
	ContinentCode string `json:"continent_code"`
}

// Lookup resolves an IP address to its region. Implementations may fail for
// any transport or provider reason; callers treat every failure the same.
type Lookup interface {
	Lookup(ctx context.Context, ip string) (Region, error)
}

// Client queries an IP-to-region HTTP endpoint returning JSON.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient constructs a Client for the given lookup endpoint.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Lookup calls the provider. Non-2xx responses and malformed payloads are
// reported as plain errors; the caller does not distinguish the two.
func (c *Client) Lookup(ctx context.Context, ip string) (Region, error) {
	u := fmt.Sprintf("%s?format=json&ip=%s", c.baseURL, url.QueryEscape(ip))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Region{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Region{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Region{}, fmt.Errorf("region lookup returned status %d", resp.StatusCode)
	}

	var region Region
	if err := json.NewDecoder(resp.Body).Decode(&region); err != nil {
		return Region{}, fmt.Errorf("decode region lookup response: %w", err)
	}
	return region, nil
}
