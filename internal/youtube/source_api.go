package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"clipquery.app/backend/internal/storage/models"
	"clipquery.app/backend/internal/transcript"
)

// APISource fetches captions from a hosted transcript API: highest priority
// strategy, enabled when a base URL is configured.
type APISource struct {
	baseURL  string
	apiKey   string
	language string
	client   *http.Client
}

func NewAPISource(baseURL, apiKey, language string) *APISource {
	return &APISource{
		baseURL:  strings.TrimRight(baseURL, "/"),
		apiKey:   apiKey,
		language: language,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *APISource) Name() string { return "transcript-api" }

type apiTrack struct {
	Language     string                  `json:"language"`
	LanguageCode string                  `json:"languageCode"`
	Captions     []transcript.RawCaption `json:"captions"`
}

type apiResponse struct {
	Tracks []apiTrack `json:"tracks"`
}

func (s *APISource) Fetch(ctx context.Context, youtubeID string) ([]models.CaptionSpan, error) {
	url := fmt.Sprintf("%s/transcripts/%s", s.baseURL, youtubeID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("transcript api request failed: %w", err)
	}
	if s.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+s.apiKey)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("transcript api request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &RetryableError{
			Msg:        "transcript api rate limited",
			RetryAfter: retryAfter(resp),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("transcript api returned status %d", resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("transcript api response invalid: %w", err)
	}

	track, ok := selectTrack(payload.Tracks, s.language)
	if !ok || len(track.Captions) == 0 {
		return nil, ErrNoTranscript
	}

	return transcript.Normalize(track.Captions), nil
}

// selectTrack prefers an exact language-code match, then the first track
// whose language tag contains the code.
func selectTrack(tracks []apiTrack, language string) (apiTrack, bool) {
	for _, track := range tracks {
		if strings.EqualFold(track.LanguageCode, language) {
			return track, true
		}
	}
	for _, track := range tracks {
		if strings.Contains(strings.ToLower(track.LanguageCode), strings.ToLower(language)) {
			return track, true
		}
	}
	return apiTrack{}, false
}

func retryAfter(resp *http.Response) time.Duration {
	raw := resp.Header.Get("Retry-After")
	if raw == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(raw); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return 0
}
