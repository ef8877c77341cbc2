// Package transcript holds the transcript processing pipeline: caption
// normalization, smart segmentation and retrieval window construction. All
// transforms are pure and synchronous.
package transcript

import (
	"html"
	"strings"

	"clipquery.app/backend/internal/storage/models"
)

// RawCaption is what transcript sources hand over: a text fragment with a
// start offset and a duration.
type RawCaption struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Normalize converts raw caption entries into canonical spans: end computed
// from duration, text entities decoded and trimmed, empty entries dropped.
// Input order is preserved; sources deliver entries in start order already.
func Normalize(entries []RawCaption) []models.CaptionSpan {
	spans := make([]models.CaptionSpan, 0, len(entries))
	for _, entry := range entries {
		text := strings.TrimSpace(html.UnescapeString(entry.Text))
		if text == "" {
			continue
		}
		spans = append(spans, models.CaptionSpan{
			Text:  text,
			Start: entry.Start,
			End:   entry.Start + entry.Duration,
		})
	}
	return spans
}
