package models

import (
	"net/url"
	"strings"
	"time"
)

// Video lifecycle states.
const (
	StatusUploaded   = "uploaded"
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusFailed     = "failed"
)

// Video source types.
const (
	TypeUploaded = "uploaded"
	TypeYouTube  = "youtube"
)

type Video struct {
	ID           string    `json:"id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	FilePath     string    `json:"filePath"`
	FileSize     int64     `json:"fileSize"`
	Duration     *float64  `json:"duration,omitempty"`
	Status       string    `json:"status"`
	VideoType    string    `json:"videoType"`
	YouTubeID    *string   `json:"youtubeId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type ProcessRequest struct {
	VideoID string `json:"videoId"`
}

type ProcessingResult struct {
	Success      bool   `json:"success"`
	SegmentCount int    `json:"segmentCount"`
	WindowCount  int    `json:"windowCount"`
	Error        string `json:"error,omitempty"`
}

type SearchRequest struct {
	Query   string `json:"query"`
	VideoID string `json:"videoId"`
	TopK    int    `json:"topK,omitempty"`
}

// ExtractYouTubeID pulls the video id out of watch, youtu.be and embed URLs.
func ExtractYouTubeID(rawURL string) (string, bool) {
	switch {
	case strings.Contains(rawURL, "youtu.be/"):
		id := strings.SplitN(rawURL, "youtu.be/", 2)[1]
		id = strings.SplitN(id, "?", 2)[0]
		return id, id != ""
	case strings.Contains(rawURL, "youtube.com/watch"):
		parsed, err := url.Parse(rawURL)
		if err != nil {
			return "", false
		}
		id := parsed.Query().Get("v")
		return id, id != ""
	case strings.Contains(rawURL, "youtube.com/embed/"):
		id := strings.SplitN(rawURL, "youtube.com/embed/", 2)[1]
		id = strings.SplitN(id, "?", 2)[0]
		return id, id != ""
	default:
		return "", false
	}
}
