// Package youtube acquires transcripts for externally hosted video. Three
// strategies are tried in fixed priority order, each isolated by error:
// a hosted transcript API, a proxy relay, and direct watch-page scraping.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"clipquery.app/backend/internal/storage/models"
)

// ErrNoTranscript means the source answered but carried no usable captions
// for the target language. Permanent; the chain moves on.
var ErrNoTranscript = errors.New("no transcript available")

// RetryableError signals an upstream quota or rate limit. It short-circuits
// the chain immediately instead of burning the remaining strategies, and
// carries a wait hint for the caller.
type RetryableError struct {
	Msg        string
	RetryAfter time.Duration
}

func (e *RetryableError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s (retry after %s)", e.Msg, e.RetryAfter)
	}
	return e.Msg
}

// Source is one transcript-fetch strategy.
type Source interface {
	Name() string
	Fetch(ctx context.Context, youtubeID string) ([]models.CaptionSpan, error)
}

type Chain struct {
	sources []Source
	log     zerolog.Logger
}

// NewChain builds the fallback chain from the enabled sources, in the order
// given. Sources toggled off by configuration are simply not passed in.
func NewChain(log zerolog.Logger, sources ...Source) *Chain {
	return &Chain{
		sources: sources,
		log:     log.With().Str("component", "transcript-chain").Logger(),
	}
}

// Fetch tries each source in priority order. A source's failure is logged and
// contained, except for rate-limit signals which surface immediately. If every
// source fails the whole fetch fails with a retryable error.
func (c *Chain) Fetch(ctx context.Context, youtubeID string) ([]models.CaptionSpan, error) {
	for _, source := range c.sources {
		spans, err := source.Fetch(ctx, youtubeID)
		if err == nil {
			c.log.Info().
				Str("source", source.Name()).
				Str("youtube_id", youtubeID).
				Int("spans", len(spans)).
				Msg("transcript fetched")
			return spans, nil
		}

		var retryable *RetryableError
		if errors.As(err, &retryable) {
			return nil, err
		}

		c.log.Warn().
			Err(err).
			Str("source", source.Name()).
			Str("youtube_id", youtubeID).
			Msg("transcript source failed, trying next")
	}

	return nil, &RetryableError{Msg: "all transcript sources failed"}
}
