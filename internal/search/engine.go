// Package search implements retrieval over a video's transcript: semantic
// nearest-neighbor when a vector index is available, degrading to literal
// substring matching when it is not.
package search

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"clipquery.app/backend/internal/index"
	"clipquery.app/backend/internal/storage/models"
)

// Flat confidence assigned to substring-stage matches. One canonical value
// for every caller; substring hits carry no similarity signal to rank by.
const substringConfidence = 0.7

// Tokens this short ("the", "a", "is") are skipped by the token fallback.
const minTokenLength = 4

// Per-token result cap in the token fallback stage.
const perTokenLimit = 3

// Embedder turns query text into a vector with the same model the windows
// were indexed under.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorIndex is the nearest-neighbor store queried in the semantic stage.
type VectorIndex interface {
	Query(ctx context.Context, vector []float32, videoID string, topK int) ([]index.Match, error)
}

// SegmentSearcher is the substring fallback over persisted segments.
type SegmentSearcher interface {
	SearchSubstring(ctx context.Context, videoID string, query string, limit int) ([]models.Segment, error)
}

type Engine struct {
	segments SegmentSearcher
	embedder Embedder
	vectors  VectorIndex
	log      zerolog.Logger
}

// NewEngine builds the retrieval engine. Pass a nil embedder or vectors to
// disable the semantic stage deterministically; the engine never consults the
// environment to decide.
func NewEngine(segments SegmentSearcher, embedder Embedder, vectors VectorIndex, log zerolog.Logger) *Engine {
	return &Engine{
		segments: segments,
		embedder: embedder,
		vectors:  vectors,
		log:      log.With().Str("component", "search").Logger(),
	}
}

// Search runs the fallback chain: semantic, exact substring, then per-token
// substring. It never returns an error; total failure yields an empty list so
// chat and search stay responsive.
func (e *Engine) Search(ctx context.Context, videoID string, query string, topK int) []models.SearchMatch {
	if e.embedder != nil && e.vectors != nil {
		matches, err := e.semantic(ctx, videoID, query, topK)
		if err == nil {
			e.log.Debug().Str("video_id", videoID).Int("results", len(matches)).
				Msg("semantic search served query")
			return matches
		}
		e.log.Warn().Err(err).Str("video_id", videoID).
			Msg("semantic search unavailable, falling back to substring")
	}

	return e.substring(ctx, videoID, query, topK)
}

func (e *Engine) semantic(ctx context.Context, videoID string, query string, topK int) ([]models.SearchMatch, error) {
	vector, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	hits, err := e.vectors.Query(ctx, vector, videoID, topK)
	if err != nil {
		return nil, err
	}

	matches := []models.SearchMatch{}
	for _, hit := range hits {
		if strings.TrimSpace(hit.Text) == "" {
			continue
		}
		matches = append(matches, models.SearchMatch{
			Text:       hit.Text,
			StartTime:  hit.Start,
			EndTime:    hit.End,
			Confidence: hit.Score,
		})
	}
	return matches, nil
}

func (e *Engine) substring(ctx context.Context, videoID string, query string, topK int) []models.SearchMatch {
	segments, err := e.segments.SearchSubstring(ctx, videoID, query, topK)
	if err != nil {
		e.log.Error().Err(err).Str("video_id", videoID).Msg("substring search failed")
		return []models.SearchMatch{}
	}

	if len(segments) == 0 {
		segments = e.tokenFallback(ctx, videoID, query, topK)
	}

	matches := make([]models.SearchMatch, 0, len(segments))
	for _, segment := range segments {
		matches = append(matches, models.SearchMatch{
			Text:       segment.Text,
			StartTime:  segment.StartTime,
			EndTime:    segment.EndTime,
			Confidence: substringConfidence,
		})
	}
	return matches
}

// tokenFallback searches each meaningful token of a multi-word query
// separately, in query order, stopping once enough results accumulate.
// Results are not deduplicated: a segment matching several tokens appears
// once per token.
func (e *Engine) tokenFallback(ctx context.Context, videoID string, query string, topK int) []models.Segment {
	tokens := strings.Fields(query)
	if len(tokens) <= 1 {
		return nil
	}

	var segments []models.Segment
	for _, token := range tokens {
		if len(token) < minTokenLength {
			continue
		}
		found, err := e.segments.SearchSubstring(ctx, videoID, token, perTokenLimit)
		if err != nil {
			e.log.Warn().Err(err).Str("token", token).Msg("token search failed")
			continue
		}
		segments = append(segments, found...)
		if len(segments) >= topK {
			break
		}
	}
	return segments
}
