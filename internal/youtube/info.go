package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// VideoInfo is the metadata shown for an ingested YouTube video.
type VideoInfo struct {
	Title        string
	Description  string
	Duration     *float64
	ChannelTitle string
	Thumbnail    string
}

// InfoClient fetches video metadata from the Data API when a key is
// configured, degrading to basic placeholder info when it is not or when the
// API is unreachable. Metadata is best-effort; ingestion never fails on it.
type InfoClient struct {
	apiKey string
	client *http.Client
	log    zerolog.Logger
}

func NewInfoClient(apiKey string, log zerolog.Logger) *InfoClient {
	return &InfoClient{
		apiKey: apiKey,
		client: &http.Client{Timeout: 30 * time.Second},
		log:    log.With().Str("component", "youtube-info").Logger(),
	}
}

func (c *InfoClient) VideoInfo(ctx context.Context, youtubeID string) VideoInfo {
	if c.apiKey == "" {
		return fallbackInfo(youtubeID)
	}

	info, err := c.fetch(ctx, youtubeID)
	if err != nil {
		c.log.Warn().Err(err).Str("youtube_id", youtubeID).
			Msg("could not fetch video info, using fallback")
		return fallbackInfo(youtubeID)
	}
	return info
}

type dataAPIResponse struct {
	Items []struct {
		Snippet struct {
			Title        string `json:"title"`
			Description  string `json:"description"`
			ChannelTitle string `json:"channelTitle"`
			Thumbnails   struct {
				Default struct {
					URL string `json:"url"`
				} `json:"default"`
			} `json:"thumbnails"`
		} `json:"snippet"`
		ContentDetails struct {
			Duration string `json:"duration"`
		} `json:"contentDetails"`
	} `json:"items"`
}

func (c *InfoClient) fetch(ctx context.Context, youtubeID string) (VideoInfo, error) {
	query := url.Values{
		"part": {"snippet,contentDetails"},
		"id":   {youtubeID},
		"key":  {c.apiKey},
	}
	reqURL := "https://www.googleapis.com/youtube/v3/videos?" + query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return VideoInfo{}, fmt.Errorf("video info request failed: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return VideoInfo{}, fmt.Errorf("video info request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return VideoInfo{}, fmt.Errorf("video info returned status %d", resp.StatusCode)
	}

	var payload dataAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return VideoInfo{}, fmt.Errorf("video info response invalid: %w", err)
	}
	if len(payload.Items) == 0 {
		return VideoInfo{}, fmt.Errorf("video %s not found", youtubeID)
	}

	item := payload.Items[0]
	info := VideoInfo{
		Title:        item.Snippet.Title,
		Description:  item.Snippet.Description,
		ChannelTitle: item.Snippet.ChannelTitle,
		Thumbnail:    item.Snippet.Thumbnails.Default.URL,
	}
	if seconds, ok := parseISODuration(item.ContentDetails.Duration); ok {
		info.Duration = &seconds
	}
	return info, nil
}

func fallbackInfo(youtubeID string) VideoInfo {
	return VideoInfo{
		Title:        "YouTube Video " + youtubeID,
		ChannelTitle: "Unknown",
		Thumbnail:    fmt.Sprintf("https://img.youtube.com/vi/%s/default.jpg", youtubeID),
	}
}

var isoDurationRe = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?$`)

// parseISODuration converts the Data API's PT4M13S format to seconds.
func parseISODuration(raw string) (float64, bool) {
	match := isoDurationRe.FindStringSubmatch(raw)
	if match == nil {
		return 0, false
	}
	seconds := 0
	for i, scale := range []int{3600, 60, 1} {
		if match[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(match[i+1])
		if err != nil {
			return 0, false
		}
		seconds += n * scale
	}
	return float64(seconds), true
}
