package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipquery.app/backend/internal/storage/models"
)

func TestBuildWindowsEmpty(t *testing.T) {
	assert.Nil(t, BuildWindows(nil))
}

func TestBuildWindowsCoverage(t *testing.T) {
	segments := []models.Segment{
		{Text: "intro", StartTime: 0, EndTime: 4},
		{Text: "middle part", StartTime: 4, EndTime: 13},
		{Text: "closing remarks", StartTime: 13, EndTime: 22},
	}

	windows := BuildWindows(segments)

	require.NotEmpty(t, windows)
	assert.Equal(t, 0.0, windows[0].Start)
	for i, window := range windows {
		assert.LessOrEqual(t, window.End-window.Start, windowSeconds)
		assert.LessOrEqual(t, window.End, 22.0)
		if i > 0 {
			assert.Equal(t, strideSeconds, window.Start-windows[i-1].Start)
		}
	}
	// Last window is clamped to the transcript end, not start+10.
	last := windows[len(windows)-1]
	assert.Equal(t, 22.0, last.End)
}

func TestBuildWindowsOverlapConditions(t *testing.T) {
	segments := []models.Segment{
		{Text: "starts inside", StartTime: 12, EndTime: 23},
		{Text: "ends inside", StartTime: 3, EndTime: 14},
		{Text: "spans fully", StartTime: 9, EndTime: 21},
	}

	windows := BuildWindows(segments)

	// The [10,20) window picks up all three: one starts in it, one ends in
	// it, one fully covers it.
	var target *models.Window
	for i := range windows {
		if windows[i].Start == 10.0 {
			target = &windows[i]
		}
	}
	require.NotNil(t, target)
	assert.Contains(t, target.Text, "starts inside")
	assert.Contains(t, target.Text, "ends inside")
	assert.Contains(t, target.Text, "spans fully")
}

func TestBuildWindowsSkipsEmptyText(t *testing.T) {
	segments := []models.Segment{
		{Text: "early", StartTime: 0, EndTime: 2},
		// Silence from 2s to 40s.
		{Text: "late", StartTime: 40, EndTime: 42},
	}

	windows := BuildWindows(segments)

	for _, window := range windows {
		assert.NotEmpty(t, window.Text)
	}
	// Middle-of-silence windows are not emitted.
	for _, window := range windows {
		assert.False(t, window.Start >= 15 && window.End <= 35,
			"window %+v should not exist inside the silent stretch", window)
	}
}
