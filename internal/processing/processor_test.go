package processing

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clipquery.app/backend/internal/index"
	"clipquery.app/backend/internal/storage/models"
)

type fakeVideos struct {
	mu       sync.Mutex
	videos   map[string]*models.Video
	statuses []string
}

func (f *fakeVideos) Get(ctx context.Context, id string) (*models.Video, error) {
	video, ok := f.videos[id]
	if !ok {
		return nil, errors.New("missing")
	}
	copied := *video
	return &copied, nil
}

func (f *fakeVideos) UpdateStatus(ctx context.Context, id string, status string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.statuses = append(f.statuses, status)
	f.videos[id].Status = status
	return nil
}

type fakeSegments struct {
	stored map[string][]models.Segment
	saves  int
}

func (f *fakeSegments) SaveAll(ctx context.Context, videoID string, segments []models.Segment) error {
	if f.stored == nil {
		f.stored = map[string][]models.Segment{}
	}
	f.stored[videoID] = segments
	f.saves++
	return nil
}

func (f *fakeSegments) ListByVideo(ctx context.Context, videoID string) ([]models.Segment, error) {
	return f.stored[videoID], nil
}

func (f *fakeSegments) CountByVideo(ctx context.Context, videoID string) (int, error) {
	return len(f.stored[videoID]), nil
}

type fakeChain struct {
	spans   []models.CaptionSpan
	err     error
	fetches int
}

func (f *fakeChain) Fetch(ctx context.Context, youtubeID string) ([]models.CaptionSpan, error) {
	f.fetches++
	return f.spans, f.err
}

type fakeIndexer struct {
	entries map[string][]index.Entry
	err     error
}

func (f *fakeIndexer) Replace(ctx context.Context, videoID string, entries []index.Entry) error {
	if f.err != nil {
		return f.err
	}
	if f.entries == nil {
		f.entries = map[string][]index.Entry{}
	}
	f.entries[videoID] = entries
	return nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{1, 2, 3}, nil
}

func youtubeVideo(id string) *models.Video {
	ytID := "yt-" + id
	return &models.Video{
		ID:        id,
		VideoType: models.TypeYouTube,
		YouTubeID: &ytID,
		Status:    models.StatusUploaded,
	}
}

func newTestProcessor(videos *fakeVideos, segments *fakeSegments, chain *fakeChain, indexer Indexer, embedder Embedder) *Processor {
	return NewProcessor(videos, segments, chain, nil, embedder, indexer, nil, zerolog.Nop())
}

func TestProcessYouTubeVideo(t *testing.T) {
	videos := &fakeVideos{videos: map[string]*models.Video{"v1": youtubeVideo("v1")}}
	segments := &fakeSegments{}
	chain := &fakeChain{spans: []models.CaptionSpan{
		{Text: "Hello world.", Start: 0, End: 1.0},
		{Text: "How are you today", Start: 1.0, End: 2.0},
		{Text: "I am fine.", Start: 2.5, End: 3.5},
	}}
	indexer := &fakeIndexer{}
	processor := newTestProcessor(videos, segments, chain, indexer, fakeEmbedder{})

	result, err := processor.Process(context.Background(), "v1")

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.SegmentCount)
	assert.Equal(t, 1, result.WindowCount)
	assert.Equal(t, []string{models.StatusProcessing, models.StatusReady}, videos.statuses)
	assert.Len(t, indexer.entries["v1"], 1)
}

func TestProcessReusesExistingSegments(t *testing.T) {
	videos := &fakeVideos{videos: map[string]*models.Video{"v1": youtubeVideo("v1")}}
	segments := &fakeSegments{stored: map[string][]models.Segment{
		"v1": {{Text: "already here", StartTime: 0, EndTime: 5}},
	}}
	chain := &fakeChain{}
	processor := newTestProcessor(videos, segments, chain, &fakeIndexer{}, fakeEmbedder{})

	result, err := processor.Process(context.Background(), "v1")

	require.NoError(t, err)
	assert.Equal(t, 0, chain.fetches, "reprocessing must not refetch the transcript")
	assert.Equal(t, 0, segments.saves)
	assert.Equal(t, 1, result.SegmentCount)
	assert.Equal(t, models.StatusReady, videos.videos["v1"].Status)
}

func TestProcessMarksFailedWhenFetchFails(t *testing.T) {
	videos := &fakeVideos{videos: map[string]*models.Video{"v1": youtubeVideo("v1")}}
	chain := &fakeChain{err: errors.New("all transcript sources failed")}
	processor := newTestProcessor(videos, &fakeSegments{}, chain, &fakeIndexer{}, fakeEmbedder{})

	_, err := processor.Process(context.Background(), "v1")

	require.Error(t, err)
	assert.Equal(t, models.StatusFailed, videos.videos["v1"].Status)
}

func TestProcessIndexFailureStillReady(t *testing.T) {
	videos := &fakeVideos{videos: map[string]*models.Video{"v1": youtubeVideo("v1")}}
	chain := &fakeChain{spans: []models.CaptionSpan{{Text: "Hello there.", Start: 0, End: 3}}}
	indexer := &fakeIndexer{err: errors.New("index unavailable")}
	processor := newTestProcessor(videos, &fakeSegments{}, chain, indexer, fakeEmbedder{})

	result, err := processor.Process(context.Background(), "v1")

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, models.StatusReady, videos.videos["v1"].Status)
}

func TestProcessWithoutIndexerSkipsIndexing(t *testing.T) {
	videos := &fakeVideos{videos: map[string]*models.Video{"v1": youtubeVideo("v1")}}
	chain := &fakeChain{spans: []models.CaptionSpan{{Text: "Just text.", Start: 0, End: 2}}}
	processor := newTestProcessor(videos, &fakeSegments{}, chain, nil, nil)

	result, err := processor.Process(context.Background(), "v1")

	require.NoError(t, err)
	assert.True(t, result.Success)
}

func TestProcessUploadedVideoWithoutTranscriberFails(t *testing.T) {
	videos := &fakeVideos{videos: map[string]*models.Video{"v1": {
		ID:        "v1",
		VideoType: models.TypeUploaded,
		FilePath:  "uploads/v1.mp4",
		Status:    models.StatusUploaded,
	}}}
	processor := newTestProcessor(videos, &fakeSegments{}, &fakeChain{}, nil, nil)

	result, err := processor.Process(context.Background(), "v1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "speech-to-text is not configured")
	assert.False(t, result.Success)
	assert.Equal(t, models.StatusFailed, videos.videos["v1"].Status)
}

func TestProcessRejectsConcurrentDuplicate(t *testing.T) {
	videos := &fakeVideos{videos: map[string]*models.Video{"v1": youtubeVideo("v1")}}
	processor := newTestProcessor(videos, &fakeSegments{}, &fakeChain{}, nil, nil)

	require.True(t, processor.acquire("v1"))
	defer processor.release("v1")

	_, err := processor.Process(context.Background(), "v1")
	assert.ErrorIs(t, err, ErrAlreadyProcessing)
}
