package transcript

import (
	"math"
	"strings"

	"clipquery.app/backend/internal/storage/models"
)

const (
	windowSeconds = 10.0
	strideSeconds = 5.0
)

// BuildWindows slices segments into fixed 10-second windows advancing by 5
// seconds, so retrieval granularity is independent of sentence boundaries.
// Windows carry a stable positional index (their slice position) used for
// vector ids. Empty windows are skipped; the last window is clamped to the
// transcript's true end.
func BuildWindows(segments []models.Segment) []models.Window {
	if len(segments) == 0 {
		return nil
	}

	var lastEnd float64
	for _, segment := range segments {
		if segment.EndTime > lastEnd {
			lastEnd = segment.EndTime
		}
	}

	var windows []models.Window
	for current := 0.0; current < lastEnd; current += strideSeconds {
		windowEnd := current + windowSeconds

		var parts []string
		for _, segment := range segments {
			startsInside := segment.StartTime >= current && segment.StartTime < windowEnd
			endsInside := segment.EndTime > current && segment.EndTime <= windowEnd
			spansWindow := segment.StartTime < current && segment.EndTime > windowEnd
			if startsInside || endsInside || spansWindow {
				parts = append(parts, strings.TrimSpace(segment.Text))
			}
		}

		text := strings.TrimSpace(strings.Join(parts, " "))
		if text == "" {
			continue
		}
		windows = append(windows, models.Window{
			Text:  text,
			Start: current,
			End:   math.Min(windowEnd, lastEnd),
		})
	}
	return windows
}
