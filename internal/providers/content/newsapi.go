package content

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/davmora/siteforge/internal/sitegen"
)

const defaultNewsAPIBaseURL = "https://newsapi.org/v2/everything"

// NewsAPIConfig configures the NewsAPI client.
type NewsAPIConfig struct {
	APIKey   string
	BaseURL  string
	Language string
	Timeout  time.Duration
}

// NewsAPISource fetches real articles from newsapi.org. Failures surface as
// ProviderError so the pipeline can retry transient ones and fall back.
type NewsAPISource struct {
	client   *http.Client
	baseURL  string
	apiKey   string
	language string
}

// NewNewsAPI builds a NewsAPI-backed content source.
func NewNewsAPI(cfg NewsAPIConfig) (*NewsAPISource, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("newsapi key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultNewsAPIBaseURL
	}
	if cfg.Language == "" {
		cfg.Language = "es"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &NewsAPISource{
		client:   &http.Client{Timeout: cfg.Timeout},
		baseURL:  cfg.BaseURL,
		apiKey:   cfg.APIKey,
		language: cfg.Language,
	}, nil
}

type newsAPIResponse struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	Articles []struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	} `json:"articles"`
}

// Articles queries NewsAPI for the category. The seed is unused here; remote
// content is inherently non-deterministic.
func (s *NewsAPISource) Articles(ctx context.Context, category string, n int, _ int64) ([]sitegen.Article, error) {
	q := url.Values{}
	q.Set("q", category)
	q.Set("language", s.language)
	q.Set("sortBy", "publishedAt")
	q.Set("pageSize", strconv.Itoa(n))
	q.Set("apiKey", s.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, sitegen.NewProviderError("newsapi", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, sitegen.NewTransientProviderError("newsapi", err)
		}
		return nil, sitegen.NewProviderError("newsapi", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, sitegen.NewTransientProviderError("newsapi",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return nil, sitegen.NewProviderError("newsapi",
			fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var body newsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, sitegen.NewProviderError("newsapi", fmt.Errorf("decode response: %w", err))
	}
	if body.Status != "ok" {
		return nil, sitegen.NewProviderError("newsapi",
			fmt.Errorf("api error: %s", body.Message))
	}

	articles := make([]sitegen.Article, 0, len(body.Articles))
	for _, a := range body.Articles {
		if a.Title == "" {
			continue
		}
		articles = append(articles, sitegen.Article{
			Title:    a.Title,
			Summary:  a.Description,
			Category: category,
		})
	}
	return articles, nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
