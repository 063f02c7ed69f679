// Package whois checks domain availability through the APILayer WHOIS API.
package whois

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/davmora/siteforge/internal/sitegen"
)

const defaultBaseURL = "https://api.apilayer.com/whois/check"

// Config configures the APILayer WHOIS client.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client queries APILayer's WHOIS check endpoint. Errors are wrapped as
// ProviderError; timeouts and rate limits are marked transient so the
// pipeline backoff can retry before downgrading to unknown.
type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// New builds the WHOIS client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("apilayer key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Client{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
	}, nil
}

type checkResponse struct {
	Result string `json:"result"`
}

// CheckAvailability resolves the tri-state availability of one domain.
func (c *Client) CheckAvailability(ctx context.Context, domain string) (sitegen.DomainAvailability, error) {
	if domain == "" {
		return sitegen.DomainUnknown, sitegen.NewProviderError("whois", fmt.Errorf("empty domain"))
	}
	q := url.Values{}
	q.Set("domain", domain)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return sitegen.DomainUnknown, sitegen.NewProviderError("whois", err)
	}
	req.Header.Set("apikey", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return sitegen.DomainUnknown, sitegen.NewTransientProviderError("whois", err)
		}
		return sitegen.DomainUnknown, sitegen.NewProviderError("whois", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return sitegen.DomainUnknown, sitegen.NewTransientProviderError("whois",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return sitegen.DomainUnknown, sitegen.NewProviderError("whois",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var body checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return sitegen.DomainUnknown, sitegen.NewProviderError("whois",
			fmt.Errorf("decode response: %w", err))
	}

	switch body.Result {
	case "available":
		return sitegen.DomainAvailable, nil
	case "registered", "unavailable":
		return sitegen.DomainUnavailable, nil
	default:
		return sitegen.DomainUnknown, sitegen.NewProviderError("whois",
			fmt.Errorf("unrecognized result %q", body.Result))
	}
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
