package transcript

import (
	"math"
	"regexp"
	"strings"

	"clipquery.app/backend/internal/storage/models"
)

// Segmentation policy constants. Chosen to make any caption source look like
// natural speech-to-text output.
const (
	// Grouping: minimum duration before sentence/pause boundaries count, the
	// sentence-agnostic cutoff, and the hard cap.
	groupMinSeconds   = 5.0
	groupForceSeconds = 10.0
	groupCapSeconds   = 15.0

	// Gap to the next span that counts as a natural pause.
	pauseGapSeconds = 0.5

	// Strategy selection: below averageTinySeconds spans get grouped, above
	// averageGiantSeconds (or a single span) they get split.
	averageTinySeconds  = 5.0
	averageGiantSeconds = 30.0

	// Splitting: spans longer than splitThresholdSeconds are broken up, the
	// running buffer flushes past softFlushChars and never grows past
	// hardCapChars, and the word-count fallback targets chunks of roughly
	// targetChunkSeconds.
	splitThresholdSeconds = 15.0
	softFlushChars        = 200
	hardCapChars          = 400
	targetChunkSeconds    = 8.0
	minWordsPerChunk      = 20
)

var sentenceRe = regexp.MustCompile(`[^.!?]+[.!?]+|[^.!?]+$`)

// SmartSegments turns normalized caption spans into segments with natural
// boundaries and bounded duration. The strategy is picked once per transcript
// from the average span duration: many tiny spans get merged, giant spans get
// split, well-sized input passes through.
func SmartSegments(spans []models.CaptionSpan) []models.Segment {
	if len(spans) == 0 {
		return nil
	}

	var total float64
	for _, span := range spans {
		total += span.End - span.Start
	}
	average := total / float64(len(spans))

	switch {
	case len(spans) == 1 || average > averageGiantSeconds:
		return splitSpans(spans)
	case average < averageTinySeconds:
		return groupSpans(spans)
	default:
		return passThrough(spans)
	}
}

func passThrough(spans []models.CaptionSpan) []models.Segment {
	segments := make([]models.Segment, 0, len(spans))
	for _, span := range spans {
		text := strings.TrimSpace(span.Text)
		if text == "" {
			continue
		}
		segments = append(segments, models.Segment{
			Text:      text,
			StartTime: span.Start,
			EndTime:   span.End,
		})
	}
	return segments
}

// groupSpans accumulates tiny spans into a running group and flushes it at,
// in priority order: a sentence boundary once the group is long enough, the
// forced cutoff, a natural pause before the next span, the hard cap, or the
// end of input.
func groupSpans(spans []models.CaptionSpan) []models.Segment {
	var segments []models.Segment

	var parts []string
	var start, lastEnd float64
	open := false

	flush := func() {
		text := strings.TrimSpace(strings.Join(parts, " "))
		if text != "" {
			segments = append(segments, models.Segment{
				Text:      text,
				StartTime: start,
				EndTime:   lastEnd,
			})
		}
		parts = parts[:0]
		open = false
	}

	for i, span := range spans {
		text := strings.TrimSpace(span.Text)
		if text == "" {
			continue
		}

		if !open {
			start = span.Start
			open = true
		}
		parts = append(parts, text)
		lastEnd = span.End

		duration := lastEnd - start
		last := i == len(spans)-1

		switch {
		case duration >= groupMinSeconds && endsSentence(text):
			flush()
		case duration >= groupForceSeconds:
			flush()
		case duration >= groupMinSeconds && !last && spans[i+1].Start-span.End > pauseGapSeconds:
			flush()
		case duration >= groupCapSeconds:
			flush()
		case last:
			flush()
		}
	}

	// Trailing empty-text spans can leave an unflushed group behind.
	if open {
		flush()
	}

	return segments
}

func endsSentence(text string) bool {
	return strings.HasSuffix(text, ".") ||
		strings.HasSuffix(text, "!") ||
		strings.HasSuffix(text, "?")
}

// splitSpans breaks oversized spans into sentence-scale chunks with linearly
// interpolated timestamps. Spans at or under the threshold are kept as-is.
func splitSpans(spans []models.CaptionSpan) []models.Segment {
	var segments []models.Segment
	for _, span := range spans {
		text := strings.TrimSpace(span.Text)
		if text == "" {
			continue
		}
		if span.End-span.Start <= splitThresholdSeconds {
			segments = append(segments, models.Segment{
				Text:      text,
				StartTime: span.Start,
				EndTime:   span.End,
			})
			continue
		}
		segments = append(segments, splitSpan(text, span.Start, span.End)...)
	}
	return segments
}

func splitSpan(text string, start, end float64) []models.Segment {
	duration := end - start

	fragments := sentenceFragments(text)
	if len(fragments) == 0 {
		fragments = wordFragments(text, duration)
	}

	chunks := packFragments(fragments)

	// Interpolate timestamps by character share, pinning the final chunk to
	// the span's true end so rounding never drifts past it.
	timePerChar := duration / float64(len(text))
	segments := make([]models.Segment, 0, len(chunks))
	current := start
	for i, chunk := range chunks {
		chunkEnd := current + float64(len(chunk))*timePerChar
		if i == len(chunks)-1 {
			chunkEnd = end
		}
		segments = append(segments, models.Segment{
			Text:      chunk,
			StartTime: current,
			EndTime:   chunkEnd,
		})
		current = chunkEnd
	}
	return segments
}

// sentenceFragments splits on sentence-ending punctuation, keeping the
// punctuation with its sentence. Returns nil when no boundary exists.
func sentenceFragments(text string) []string {
	if !strings.ContainsAny(text, ".!?") {
		return nil
	}
	var fragments []string
	for _, raw := range sentenceRe.FindAllString(text, -1) {
		if fragment := strings.TrimSpace(raw); fragment != "" {
			fragments = append(fragments, fragment)
		}
	}
	return fragments
}

// wordFragments is the no-punctuation fallback: fixed word-count pieces sized
// so each covers roughly targetChunkSeconds of speech.
func wordFragments(text string, duration float64) []string {
	words := strings.Fields(text)
	perChunk := int(math.Max(minWordsPerChunk,
		float64(len(words))*targetChunkSeconds/duration))

	var fragments []string
	for i := 0; i < len(words); i += perChunk {
		j := i + perChunk
		if j > len(words) {
			j = len(words)
		}
		fragments = append(fragments, strings.Join(words[i:j], " "))
	}
	return fragments
}

// packFragments reassembles fragments into chunks, flushing once a chunk
// passes softFlushChars and never letting one grow past hardCapChars.
func packFragments(fragments []string) []string {
	var chunks []string
	var buffer string
	for _, fragment := range fragments {
		if buffer != "" && len(buffer)+1+len(fragment) > hardCapChars {
			chunks = append(chunks, buffer)
			buffer = ""
		}
		if buffer == "" {
			buffer = fragment
		} else {
			buffer += " " + fragment
		}
		if len(buffer) > softFlushChars {
			chunks = append(chunks, buffer)
			buffer = ""
		}
	}
	if buffer != "" {
		chunks = append(chunks, buffer)
	}
	return chunks
}
