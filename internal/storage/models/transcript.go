package models

import "time"

// CaptionSpan is a raw timestamped text fragment from a transcript source,
// before smart segmentation. Never persisted.
type CaptionSpan struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Segment is the persisted, sentence-scale unit of transcript text.
type Segment struct {
	ID        string    `json:"id,omitempty"`
	VideoID   string    `json:"videoId,omitempty"`
	Text      string    `json:"text"`
	StartTime float64   `json:"startTime"`
	EndTime   float64   `json:"endTime"`
	CreatedAt time.Time `json:"createdAt,omitempty"`
}

// Window is a fixed-duration overlapping slice of segment text, rebuilt
// deterministically from segments on every processing run. Only its vector
// representation is stored, keyed by (video id, window index).
type Window struct {
	Text  string
	Start float64
	End   float64
}

// SearchMatch is one ranked retrieval result. Produced fresh per query.
type SearchMatch struct {
	Text       string  `json:"text"`
	StartTime  float64 `json:"startTime"`
	EndTime    float64 `json:"endTime"`
	Confidence float64 `json:"confidence"`
}
