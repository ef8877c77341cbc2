package search

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipquery.app/backend/internal/index"
	"clipquery.app/backend/internal/storage/models"
)

type fakeEmbedder struct {
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeIndex struct {
	matches []index.Match
	err     error
	queries int
}

func (f *fakeIndex) Query(ctx context.Context, vector []float32, videoID string, topK int) ([]index.Match, error) {
	f.queries++
	if f.err != nil {
		return nil, f.err
	}
	return f.matches, nil
}

// fakeSegments matches on case-insensitive substring, like the repository.
type fakeSegments struct {
	segments []models.Segment
	err      error
	queries  []string
}

func (f *fakeSegments) SearchSubstring(ctx context.Context, videoID string, query string, limit int) ([]models.Segment, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	var found []models.Segment
	for _, segment := range f.segments {
		if strings.Contains(strings.ToLower(segment.Text), strings.ToLower(query)) {
			found = append(found, segment)
		}
		if len(found) == limit {
			break
		}
	}
	return found, nil
}

func TestSearchSemanticStage(t *testing.T) {
	vectors := &fakeIndex{matches: []index.Match{
		{Text: "best match", Start: 10, End: 20, Score: 0.93},
		{Text: "   ", Start: 30, End: 40, Score: 0.80}, // blank metadata dropped
		{Text: "second match", Start: 50, End: 60, Score: 0.71},
	}}
	engine := NewEngine(&fakeSegments{}, &fakeEmbedder{}, vectors, zerolog.Nop())

	matches := engine.Search(context.Background(), "vid", "anything", 3)

	require.Len(t, matches, 2)
	assert.Equal(t, "best match", matches[0].Text)
	assert.Equal(t, 0.93, matches[0].Confidence)
	assert.Equal(t, "second match", matches[1].Text)
}

func TestSearchSemanticEmptyStillWins(t *testing.T) {
	// A working index that finds nothing is a successful stage; the engine
	// must not fall through to substring matching.
	segments := &fakeSegments{segments: []models.Segment{
		{Text: "would match literally", StartTime: 1, EndTime: 2},
	}}
	engine := NewEngine(segments, &fakeEmbedder{}, &fakeIndex{}, zerolog.Nop())

	matches := engine.Search(context.Background(), "vid", "literally", 3)

	assert.Empty(t, matches)
	assert.Empty(t, segments.queries)
}

func TestSearchFallsBackWhenIndexErrors(t *testing.T) {
	segments := &fakeSegments{segments: []models.Segment{
		{Text: "How are you today", StartTime: 1, EndTime: 2},
	}}
	vectors := &fakeIndex{err: errors.New("index unreachable")}
	engine := NewEngine(segments, &fakeEmbedder{}, vectors, zerolog.Nop())

	matches := engine.Search(context.Background(), "vid", "today", 3)

	require.Len(t, matches, 1)
	assert.Equal(t, "How are you today", matches[0].Text)
	assert.Equal(t, substringConfidence, matches[0].Confidence)
}

func TestSearchFallsBackWhenEmbedderErrors(t *testing.T) {
	segments := &fakeSegments{segments: []models.Segment{
		{Text: "some words here", StartTime: 0, EndTime: 3},
	}}
	engine := NewEngine(segments, &fakeEmbedder{err: errors.New("rate limited")}, &fakeIndex{}, zerolog.Nop())

	matches := engine.Search(context.Background(), "vid", "words", 3)

	require.Len(t, matches, 1)
	assert.Equal(t, substringConfidence, matches[0].Confidence)
}

func TestSearchSemanticDisabledDeterministically(t *testing.T) {
	segments := &fakeSegments{segments: []models.Segment{
		{Text: "plain substring hit", StartTime: 5, EndTime: 9},
	}}
	engine := NewEngine(segments, nil, nil, zerolog.Nop())

	matches := engine.Search(context.Background(), "vid", "substring", 3)

	require.Len(t, matches, 1)
	assert.Equal(t, "plain substring hit", matches[0].Text)
}

func TestSearchTokenFallback(t *testing.T) {
	// "fine today" matches no segment as a whole; its tokens (both longer
	// than 3 chars) match separately.
	segments := &fakeSegments{segments: []models.Segment{
		{Text: "How are you today", StartTime: 1.0, EndTime: 2.0},
		{Text: "I am fine.", StartTime: 2.5, EndTime: 3.5},
	}}
	engine := NewEngine(segments, nil, nil, zerolog.Nop())

	matches := engine.Search(context.Background(), "vid", "fine today", 3)

	require.Len(t, matches, 2)
	texts := []string{matches[0].Text, matches[1].Text}
	assert.Contains(t, texts, "How are you today")
	assert.Contains(t, texts, "I am fine.")
	for _, match := range matches {
		assert.Equal(t, substringConfidence, match.Confidence)
	}
	// Full query first, then per-token lookups in original order.
	assert.Equal(t, []string{"fine today", "fine", "today"}, segments.queries)
}

func TestSearchTokenFallbackKeepsPerTokenDuplicates(t *testing.T) {
	segments := &fakeSegments{segments: []models.Segment{
		{Text: "today is fine", StartTime: 5.0, EndTime: 7.0},
	}}
	engine := NewEngine(segments, nil, nil, zerolog.Nop())

	matches := engine.Search(context.Background(), "vid", "fine basically today", 5)

	// One segment matching two tokens is returned once per token.
	require.Len(t, matches, 2)
	assert.Equal(t, matches[0].Text, matches[1].Text)
	assert.Equal(t, matches[0].StartTime, matches[1].StartTime)
}

func TestSearchTokenFallbackSkipsShortTokens(t *testing.T) {
	segments := &fakeSegments{segments: []models.Segment{
		{Text: "the cat sat", StartTime: 0, EndTime: 1},
	}}
	engine := NewEngine(segments, nil, nil, zerolog.Nop())

	engine.Search(context.Background(), "vid", "did the dog bark", 3)

	// "did", "the", "dog" are too short; only "bark" is searched.
	assert.Equal(t, []string{"did the dog bark", "bark"}, segments.queries)
}

func TestSearchSingleTokenNoFallback(t *testing.T) {
	segments := &fakeSegments{}
	engine := NewEngine(segments, nil, nil, zerolog.Nop())

	matches := engine.Search(context.Background(), "vid", "nomatch", 3)

	assert.Empty(t, matches)
	assert.Equal(t, []string{"nomatch"}, segments.queries)
}

func TestSearchNeverErrors(t *testing.T) {
	segments := &fakeSegments{err: errors.New("database down")}
	vectors := &fakeIndex{err: errors.New("index down")}
	engine := NewEngine(segments, &fakeEmbedder{}, vectors, zerolog.Nop())

	matches := engine.Search(context.Background(), "vid", "anything at all", 3)

	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}
