// Package directory looks up user display profiles from the platform's
// user-directory service. Lookups enrich notifications only; a failed
// lookup never fails the send that triggered it.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

// DisplayName is the human-readable profile attached to notifications.
type DisplayName struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// Client queries the user-directory HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient builds a directory client. The timeout bounds every lookup so
// a slow directory cannot stall notification delivery.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// Lookup fetches the display profile for an identifier. Any failure
// (network, timeout, not found, bad payload) returns a zero DisplayName
// and a non-nil error; callers substitute blank fields and proceed.
func (c *Client) Lookup(ctx context.Context, identifier string) (DisplayName, error) {
	if identifier == "" {
		return DisplayName{}, fmt.Errorf("blank identifier")
	}

	endpoint := c.baseURL + "/api/admin/users/by-email?email=" + url.QueryEscape(identifier)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return DisplayName{}, fmt.Errorf("build directory request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return DisplayName{}, fmt.Errorf("directory lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return DisplayName{}, fmt.Errorf("directory lookup: status %d", resp.StatusCode)
	}

	var name DisplayName
	if err := json.NewDecoder(resp.Body).Decode(&name); err != nil {
		return DisplayName{}, fmt.Errorf("decode directory response: %w", err)
	}

	c.logger.Debug("directory lookup ok",
		zap.String("identifier", identifier),
	)
	return name, nil
}
