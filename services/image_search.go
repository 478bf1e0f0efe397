// services/image_search.go
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"

	"picturegame-bot/config"
	"picturegame-bot/utils"
)

// SearchResult is the outcome of a reverse image lookup. Link is the first
// matching page when Found is true.
type SearchResult struct {
	Found bool
	Link  string
}

// ImageSearch never fails: lookup errors degrade to "not found".
type ImageSearch interface {
	Search(ctx context.Context, imageURL string) SearchResult
	CheckFound(ctx context.Context, imageURL string) bool
}

// ImageSearchService queries SerpApi's Google reverse image engine.
type ImageSearchService struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	logger  *log.Logger
}

func NewImageSearchService(cfg config.ImageSearchConfig, logger *log.Logger) *ImageSearchService {
	return &ImageSearchService{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Client:  utils.HTTPClient,
		logger:  logger,
	}
}

type reverseImageResponse struct {
	Error        string `json:"error"`
	ImageResults []struct {
		Title string `json:"title"`
		Link  string `json:"link"`
	} `json:"image_results"`
}

func (s *ImageSearchService) Search(ctx context.Context, imageURL string) SearchResult {
	if s.APIKey == "" || imageURL == "" {
		return SearchResult{}
	}
	res, err := s.search(ctx, imageURL)
	if err != nil {
		s.logger.Printf("[ImageSearch] ⚠️ lookup for %s failed, treating as not found: %v", imageURL, err)
		return SearchResult{}
	}
	return res
}

func (s *ImageSearchService) CheckFound(ctx context.Context, imageURL string) bool {
	return s.Search(ctx, imageURL).Found
}

func (s *ImageSearchService) search(ctx context.Context, imageURL string) (SearchResult, error) {
	u, err := url.Parse(s.BaseURL)
	if err != nil {
		return SearchResult{}, fmt.Errorf("failed to parse base URL: %w", err)
	}
	q := u.Query()
	q.Set("engine", "google_reverse_image")
	q.Set("image_url", imageURL)
	q.Set("api_key", s.APIKey)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return SearchResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return SearchResult{}, fmt.Errorf("failed to call image search: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return SearchResult{}, fmt.Errorf("image search returned status %d: %s", resp.StatusCode, string(body))
	}

	var out reverseImageResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return SearchResult{}, fmt.Errorf("failed to decode image search response: %w", err)
	}
	if out.Error != "" {
		return SearchResult{}, fmt.Errorf("image search: %s", out.Error)
	}
	if len(out.ImageResults) == 0 {
		return SearchResult{}, nil
	}
	return SearchResult{Found: true, Link: out.ImageResults[0].Link}, nil
}
