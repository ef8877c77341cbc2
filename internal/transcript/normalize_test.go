package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"clipquery.app/backend/internal/storage/models"
)

func TestNormalize(t *testing.T) {
	entries := []RawCaption{
		{Text: "  Hello world.  ", Start: 0, Duration: 1.5},
		{Text: "", Start: 1.5, Duration: 1.0},
		{Text: "Tom &amp; Jerry &#39;live&#39;", Start: 2.5, Duration: 2.0},
		{Text: "   ", Start: 4.5, Duration: 1.0},
	}

	spans := Normalize(entries)

	assert.Equal(t, []models.CaptionSpan{
		{Text: "Hello world.", Start: 0, End: 1.5},
		{Text: "Tom & Jerry 'live'", Start: 2.5, End: 4.5},
	}, spans)
}

func TestNormalizeIdempotent(t *testing.T) {
	entries := []RawCaption{
		{Text: "plain text", Start: 0, Duration: 2},
		{Text: "it&#39;s &quot;quoted&quot;", Start: 2, Duration: 2},
	}

	first := Normalize(entries)

	reentered := make([]RawCaption, len(first))
	for i, span := range first {
		reentered[i] = RawCaption{Text: span.Text, Start: span.Start, Duration: span.End - span.Start}
	}
	second := Normalize(reentered)

	assert.Equal(t, first, second)
}

func TestNormalizeEmpty(t *testing.T) {
	assert.Empty(t, Normalize(nil))
	assert.Empty(t, Normalize([]RawCaption{{Text: " ", Start: 0, Duration: 1}}))
}
