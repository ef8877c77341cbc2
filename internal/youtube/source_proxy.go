package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"clipquery.app/backend/internal/storage/models"
)

// ProxySource fetches captions through a configured HTTP relay that returns
// already-normalized spans. Second-priority strategy.
type ProxySource struct {
	proxyURL string
	client   *http.Client
}

func NewProxySource(proxyURL string) *ProxySource {
	return &ProxySource{
		proxyURL: proxyURL,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *ProxySource) Name() string { return "proxy" }

type proxyResponse struct {
	Success  bool                 `json:"success"`
	Error    string               `json:"error"`
	Segments []models.CaptionSpan `json:"segments"`
}

func (s *ProxySource) Fetch(ctx context.Context, youtubeID string) ([]models.CaptionSpan, error) {
	reqURL := fmt.Sprintf("%s?video_id=%s", s.proxyURL, url.QueryEscape(youtubeID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("proxy request failed: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("proxy request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("proxy returned status %d", resp.StatusCode)
	}

	var payload proxyResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("proxy response invalid: %w", err)
	}
	if !payload.Success {
		if payload.Error != "" {
			return nil, fmt.Errorf("proxy fetch unsuccessful: %s", payload.Error)
		}
		return nil, fmt.Errorf("proxy fetch unsuccessful")
	}
	if len(payload.Segments) == 0 {
		return nil, ErrNoTranscript
	}

	return payload.Segments, nil
}
