package youtube

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipquery.app/backend/internal/storage/models"
)

type stubSource struct {
	name  string
	spans []models.CaptionSpan
	err   error
	calls int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(ctx context.Context, youtubeID string) ([]models.CaptionSpan, error) {
	s.calls++
	return s.spans, s.err
}

func TestChainFirstSourceWins(t *testing.T) {
	first := &stubSource{name: "first", spans: []models.CaptionSpan{{Text: "hi", Start: 0, End: 1}}}
	second := &stubSource{name: "second"}
	chain := NewChain(zerolog.Nop(), first, second)

	spans, err := chain.Fetch(context.Background(), "abc123")

	require.NoError(t, err)
	assert.Len(t, spans, 1)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 0, second.calls)
}

func TestChainFallsThroughOnFailure(t *testing.T) {
	first := &stubSource{name: "first", err: errors.New("boom")}
	second := &stubSource{name: "second", err: ErrNoTranscript}
	third := &stubSource{name: "third", spans: []models.CaptionSpan{{Text: "hi", Start: 0, End: 1}}}
	chain := NewChain(zerolog.Nop(), first, second, third)

	spans, err := chain.Fetch(context.Background(), "abc123")

	require.NoError(t, err)
	assert.Len(t, spans, 1)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 1, third.calls)
}

func TestChainRateLimitShortCircuits(t *testing.T) {
	first := &stubSource{name: "first", err: &RetryableError{Msg: "rate limited", RetryAfter: 30 * time.Second}}
	second := &stubSource{name: "second", spans: []models.CaptionSpan{{Text: "hi", Start: 0, End: 1}}}
	chain := NewChain(zerolog.Nop(), first, second)

	spans, err := chain.Fetch(context.Background(), "abc123")

	assert.Nil(t, spans)
	var retryable *RetryableError
	require.ErrorAs(t, err, &retryable)
	assert.Equal(t, 30*time.Second, retryable.RetryAfter)
	assert.Equal(t, 0, second.calls, "rate limit must not fall through")
}

func TestChainAllSourcesFail(t *testing.T) {
	first := &stubSource{name: "first", err: errors.New("down")}
	second := &stubSource{name: "second", err: ErrNoTranscript}
	chain := NewChain(zerolog.Nop(), first, second)

	spans, err := chain.Fetch(context.Background(), "abc123")

	assert.Nil(t, spans)
	var retryable *RetryableError
	require.ErrorAs(t, err, &retryable)
}
