package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"videointel/internal/models"
)

const trustedPickTimeout = 5 * time.Second

// trustedPickSeeds is the hardcoded curated fallback list consulted when the
// external trusted-recommendation API is unavailable (spec.md §4.9 step 8).
var trustedPickSeeds = []models.VideoCandidate{
	{VideoMetadata: models.VideoMetadata{VideoID: "8idr1WZ1A7Q", Title: "The Story of Science", Channel: "Kurzgesagt"}},
	{VideoMetadata: models.VideoMetadata{VideoID: "yWO-cvGETRQ", Title: "The Feynman Lectures", Channel: "MIT OpenCourseWare"}},
}

// TrustedPicker guarantees at least one external-quality-verified candidate
// reaches the top of the discovery result (spec.md §4.9 step 8).
type TrustedPicker struct {
	httpClient   *http.Client
	apiURL       string
	apiKey       string
}

func NewTrustedPicker(apiURL, apiKey string) *TrustedPicker {
	return &TrustedPicker{httpClient: &http.Client{Timeout: trustedPickTimeout}, apiURL: apiURL, apiKey: apiKey}
}

// Pick fetches one trusted recommendation scoped by query, excluding any
// video ID already present, falling back to the curated seed list.
func (p *TrustedPicker) Pick(ctx context.Context, query string, excludeIDs []string) (models.VideoCandidate, bool) {
	excluded := make(map[string]bool, len(excludeIDs))
	for _, id := range excludeIDs {
		excluded[id] = true
	}

	if p.apiKey != "" && p.apiURL != "" {
		if candidate, ok := p.fetchFromAPI(ctx, query, excluded); ok {
			return candidate, true
		}
	}

	for _, seed := range trustedPickSeeds {
		if !excluded[seed.VideoID] {
			return seed, true
		}
	}
	return models.VideoCandidate{}, false
}

func (p *TrustedPicker) fetchFromAPI(ctx context.Context, query string, excluded map[string]bool) (models.VideoCandidate, bool) {
	ctx, cancel := context.WithTimeout(ctx, trustedPickTimeout)
	defer cancel()

	reqURL := fmt.Sprintf("%s/recommend?%s", p.apiURL, url.Values{"query": {query}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return models.VideoCandidate{}, false
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return models.VideoCandidate{}, false
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return models.VideoCandidate{}, false
	}

	var out []models.VideoMetadata
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return models.VideoCandidate{}, false
	}
	for _, v := range out {
		if !excluded[v.VideoID] {
			return models.VideoCandidate{VideoMetadata: v}, true
		}
	}
	return models.VideoCandidate{}, false
}
