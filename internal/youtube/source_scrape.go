package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"clipquery.app/backend/internal/storage/models"
	"clipquery.app/backend/internal/transcript"
)

// ScrapeSource is the fallback of last resort: it pulls the public watch
// page, lifts the embedded API key, and calls the platform's internal player
// API impersonating a mobile client to reach the caption track URLs. Any
// failure here is terminal for the chain.
type ScrapeSource struct {
	language string
	client   *http.Client
}

func NewScrapeSource(language string) *ScrapeSource {
	return &ScrapeSource{
		language: language,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (s *ScrapeSource) Name() string { return "scrape" }

var innertubeKeyRe = regexp.MustCompile(`"INNERTUBE_API_KEY":"([^"]+)"`)

// Player API identifiers for the Android client. The mobile client gets
// caption URLs without the signature gating the web client sees.
const (
	androidClientName    = "ANDROID"
	androidClientVersion = "19.09.37"
	androidUserAgent     = "com.google.android.youtube/19.09.37 (Linux; U; Android 11) gzip"
)

type playerResponse struct {
	Captions struct {
		PlayerCaptionsTracklistRenderer struct {
			CaptionTracks []captionTrack `json:"captionTracks"`
		} `json:"playerCaptionsTracklistRenderer"`
	} `json:"captions"`
}

type captionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
}

func (s *ScrapeSource) Fetch(ctx context.Context, youtubeID string) ([]models.CaptionSpan, error) {
	apiKey, err := s.extractAPIKey(ctx, youtubeID)
	if err != nil {
		return nil, err
	}

	tracks, err := s.fetchCaptionTracks(ctx, youtubeID, apiKey)
	if err != nil {
		return nil, err
	}

	track, ok := pickCaptionTrack(tracks, s.language)
	if !ok {
		return nil, ErrNoTranscript
	}

	return s.fetchTrack(ctx, track.BaseURL)
}

func (s *ScrapeSource) extractAPIKey(ctx context.Context, youtubeID string) (string, error) {
	watchURL := "https://www.youtube.com/watch?v=" + youtubeID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, watchURL, nil)
	if err != nil {
		return "", fmt.Errorf("watch page request failed: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("watch page request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("watch page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("watch page read failed: %w", err)
	}

	match := innertubeKeyRe.FindSubmatch(body)
	if match == nil {
		return "", fmt.Errorf("could not extract player API key from watch page")
	}
	return string(match[1]), nil
}

func (s *ScrapeSource) fetchCaptionTracks(ctx context.Context, youtubeID, apiKey string) ([]captionTrack, error) {
	payload := map[string]any{
		"context": map[string]any{
			"client": map[string]any{
				"clientName":    androidClientName,
				"clientVersion": androidClientVersion,
			},
		},
		"videoId": youtubeID,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("player request encode failed: %w", err)
	}

	playerURL := "https://www.youtube.com/youtubei/v1/player?key=" + apiKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, playerURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("player request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", androidUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("player request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("player API returned status %d", resp.StatusCode)
	}

	var player playerResponse
	if err := json.NewDecoder(resp.Body).Decode(&player); err != nil {
		return nil, fmt.Errorf("player response invalid: %w", err)
	}

	tracks := player.Captions.PlayerCaptionsTracklistRenderer.CaptionTracks
	if len(tracks) == 0 {
		return nil, ErrNoTranscript
	}
	return tracks, nil
}

func pickCaptionTrack(tracks []captionTrack, language string) (captionTrack, bool) {
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
	return captionTrack{}, false
}

func (s *ScrapeSource) fetchTrack(ctx context.Context, trackURL string) ([]models.CaptionSpan, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trackURL, nil)
	if err != nil {
		return nil, fmt.Errorf("caption track request failed: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("caption track request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("caption track returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("caption track read failed: %w", err)
	}

	captions, err := parseTimedText(data)
	if err != nil {
		return nil, err
	}
	if len(captions) == 0 {
		return nil, ErrNoTranscript
	}

	return transcript.Normalize(captions), nil
}
