package chat

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipquery.app/backend/internal/storage/models"
)

func TestBuildContextFormatsTimestampLines(t *testing.T) {
	matches := []models.SearchMatch{
		{Text: "machine learning basics", StartTime: 12.34, EndTime: 20.0, Confidence: 0.91},
		{Text: "  neural networks  ", StartTime: 45.0, EndTime: 55.0, Confidence: 0.7},
	}

	lines, segments := buildContext(matches)

	require.Len(t, lines, 2)
	assert.Equal(t, "[12.3s] machine learning basics", lines[0])
	assert.Equal(t, "[45.0s] neural networks", lines[1])

	require.Len(t, segments, 2)
	assert.Equal(t, 1, segments[0].RelevanceRank)
	assert.Equal(t, 2, segments[1].RelevanceRank)
	assert.Equal(t, "12.3s", segments[0].TimestampText)
	assert.Equal(t, 0.91, segments[0].SimilarityScore)
	assert.Equal(t, "neural networks", segments[1].Text)
}

func TestBuildContextSkipsBlankMatches(t *testing.T) {
	matches := []models.SearchMatch{
		{Text: "   ", StartTime: 1.0},
		{Text: "keep me", StartTime: 2.0, Confidence: 0.5},
	}

	lines, segments := buildContext(matches)

	require.Len(t, lines, 1)
	assert.Equal(t, "[2.0s] keep me", lines[0])
	require.Len(t, segments, 1)
	// Rank follows the original result position so the client can show
	// where the match sat in the retrieval ordering.
	assert.Equal(t, 2, segments[0].RelevanceRank)
}

func TestBuildSystemPromptWithContext(t *testing.T) {
	prompt := buildSystemPrompt("[5.0s] hello world")

	assert.True(t, strings.Contains(prompt, "[5.0s] hello world"))
	assert.True(t, strings.Contains(prompt, "Relevant video content found"))
}

func TestBuildSystemPromptWithoutContext(t *testing.T) {
	prompt := buildSystemPrompt("")

	assert.True(t, strings.Contains(prompt, "No specific video segments match"))
	assert.False(t, strings.Contains(prompt, "Relevant video content found"))
}
