// Package processing orchestrates a video's journey from uploaded to ready:
// transcript acquisition, smart segmentation, persistence, window building
// and best-effort vector indexing.
package processing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"clipquery.app/backend/internal/index"
	"clipquery.app/backend/internal/media"
	"clipquery.app/backend/internal/storage/models"
	"clipquery.app/backend/internal/transcript"
)

var (
	ErrVideoNotFound = errors.New("video not found")
	// ErrAlreadyProcessing guards against concurrent duplicate runs on the
	// same video.
	ErrAlreadyProcessing = errors.New("video is already being processed")
)

type VideoStore interface {
	Get(ctx context.Context, id string) (*models.Video, error)
	UpdateStatus(ctx context.Context, id string, status string) error
}

type SegmentStore interface {
	SaveAll(ctx context.Context, videoID string, segments []models.Segment) error
	ListByVideo(ctx context.Context, videoID string) ([]models.Segment, error)
	CountByVideo(ctx context.Context, videoID string) (int, error)
}

// TranscriptFetcher is the transcript source chain for YouTube videos.
type TranscriptFetcher interface {
	Fetch(ctx context.Context, youtubeID string) ([]models.CaptionSpan, error)
}

// Transcriber is the speech-to-text engine for uploaded videos.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) ([]models.Segment, error)
}

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type Indexer interface {
	Replace(ctx context.Context, videoID string, entries []index.Entry) error
}

// Downloader copies remote video objects to local temp files.
type Downloader interface {
	Download(ctx context.Context, objectPath string) (string, error)
}

type Processor struct {
	videos      VideoStore
	segments    SegmentStore
	transcripts TranscriptFetcher
	transcriber Transcriber
	embedder    Embedder
	indexer     Indexer
	downloader  Downloader
	log         zerolog.Logger

	mu     sync.Mutex
	active map[string]struct{}
}

// NewProcessor wires the pipeline. embedder and indexer may be nil, which
// disables indexing; downloader may be nil when S3 is not configured. A nil
// transcriber fails uploaded-video runs cleanly instead of panicking.
func NewProcessor(
	videos VideoStore,
	segments SegmentStore,
	transcripts TranscriptFetcher,
	transcriber Transcriber,
	embedder Embedder,
	indexer Indexer,
	downloader Downloader,
	log zerolog.Logger,
) *Processor {
	return &Processor{
		videos:      videos,
		segments:    segments,
		transcripts: transcripts,
		transcriber: transcriber,
		embedder:    embedder,
		indexer:     indexer,
		downloader:  downloader,
		log:         log.With().Str("component", "processing").Logger(),
		active:      map[string]struct{}{},
	}
}

// Process runs the full pipeline for one video. Segments are materialized in
// full before windows are built; index failures never block reaching ready.
func (p *Processor) Process(ctx context.Context, videoID string) (models.ProcessingResult, error) {
	if !p.acquire(videoID) {
		return models.ProcessingResult{}, ErrAlreadyProcessing
	}
	defer p.release(videoID)

	video, err := p.videos.Get(ctx, videoID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.ProcessingResult{}, ErrVideoNotFound
		}
		return models.ProcessingResult{}, fmt.Errorf("loading video failed: %w", err)
	}

	if err := p.videos.UpdateStatus(ctx, videoID, models.StatusProcessing); err != nil {
		return models.ProcessingResult{}, fmt.Errorf("marking video processing failed: %w", err)
	}

	var segments []models.Segment
	if video.VideoType == models.TypeYouTube && video.YouTubeID != nil {
		segments, err = p.youtubeSegments(ctx, video)
	} else {
		segments, err = p.uploadedSegments(ctx, video)
	}
	if err != nil {
		p.markFailed(ctx, videoID)
		return models.ProcessingResult{}, err
	}

	windows := transcript.BuildWindows(segments)
	p.log.Info().
		Str("video_id", videoID).
		Int("segments", len(segments)).
		Int("windows", len(windows)).
		Msg("transcript processed")

	p.indexWindows(ctx, videoID, windows)

	if err := p.videos.UpdateStatus(ctx, videoID, models.StatusReady); err != nil {
		return models.ProcessingResult{}, fmt.Errorf("marking video ready failed: %w", err)
	}

	return models.ProcessingResult{
		Success:      true,
		SegmentCount: len(segments),
		WindowCount:  len(windows),
	}, nil
}

// youtubeSegments reuses persisted segments when they exist (reprocessing
// never refetches the transcript), otherwise fetches and segments captions.
func (p *Processor) youtubeSegments(ctx context.Context, video *models.Video) ([]models.Segment, error) {
	existing, err := p.segments.CountByVideo(ctx, video.ID)
	if err != nil {
		return nil, fmt.Errorf("counting segments failed: %w", err)
	}
	if existing > 0 {
		p.log.Info().
			Str("video_id", video.ID).
			Int("segments", existing).
			Msg("segments already exist, skipping transcript fetch")
		return p.segments.ListByVideo(ctx, video.ID)
	}

	if video.YouTubeID == nil {
		return nil, fmt.Errorf("video %s has no youtube id", video.ID)
	}

	spans, err := p.transcripts.Fetch(ctx, *video.YouTubeID)
	if err != nil {
		return nil, fmt.Errorf("transcript fetch failed: %w", err)
	}

	segments := transcript.SmartSegments(spans)
	if err := p.segments.SaveAll(ctx, video.ID, segments); err != nil {
		return nil, fmt.Errorf("saving segments failed: %w", err)
	}
	return segments, nil
}

// uploadedSegments runs the speech-to-text path: resolve the file locally,
// extract audio, transcribe. Whisper's segments are accepted as-is.
func (p *Processor) uploadedSegments(ctx context.Context, video *models.Video) ([]models.Segment, error) {
	existing, err := p.segments.CountByVideo(ctx, video.ID)
	if err != nil {
		return nil, fmt.Errorf("counting segments failed: %w", err)
	}
	if existing > 0 {
		return p.segments.ListByVideo(ctx, video.ID)
	}

	if p.transcriber == nil {
		return nil, fmt.Errorf("speech-to-text is not configured")
	}

	videoPath := video.FilePath
	if strings.HasPrefix(videoPath, "s3://") {
		if p.downloader == nil {
			return nil, fmt.Errorf("video %s is in S3 but no object store is configured", video.ID)
		}
		localPath, err := p.downloader.Download(ctx, videoPath)
		if err != nil {
			return nil, fmt.Errorf("downloading video failed: %w", err)
		}
		defer os.Remove(localPath)
		videoPath = localPath
	}

	if _, err := os.Stat(videoPath); err != nil {
		return nil, fmt.Errorf("video file not found: %s", videoPath)
	}

	audioPath, err := media.ExtractAudio(ctx, videoPath)
	if err != nil {
		return nil, err
	}
	defer os.Remove(audioPath)

	segments, err := p.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return nil, err
	}

	if err := p.segments.SaveAll(ctx, video.ID, segments); err != nil {
		return nil, fmt.Errorf("saving segments failed: %w", err)
	}
	return segments, nil
}

// indexWindows embeds and upserts window vectors. Best-effort: any failure is
// logged and swallowed so the video still reaches ready, degrading search to
// the substring stages.
func (p *Processor) indexWindows(ctx context.Context, videoID string, windows []models.Window) {
	if p.embedder == nil || p.indexer == nil {
		p.log.Debug().Str("video_id", videoID).Msg("vector indexing not configured, skipping")
		return
	}

	entries := make([]index.Entry, 0, len(windows))
	for _, window := range windows {
		if strings.TrimSpace(window.Text) == "" {
			continue
		}
		vector, err := p.embedder.Embed(ctx, window.Text)
		if err != nil {
			p.log.Error().Err(err).Str("video_id", videoID).
				Msg("window embedding failed, skipping vector indexing")
			return
		}
		entries = append(entries, index.Entry{
			Text:      window.Text,
			Start:     window.Start,
			End:       window.End,
			Embedding: vector,
		})
	}

	if err := p.indexer.Replace(ctx, videoID, entries); err != nil {
		p.log.Error().Err(err).Str("video_id", videoID).
			Msg("window index update failed, search degrades to substring")
		return
	}
	p.log.Info().Str("video_id", videoID).Int("vectors", len(entries)).
		Msg("window vectors stored")
}

func (p *Processor) markFailed(ctx context.Context, videoID string) {
	if err := p.videos.UpdateStatus(ctx, videoID, models.StatusFailed); err != nil {
		p.log.Error().Err(err).Str("video_id", videoID).Msg("could not mark video failed")
	}
}

func (p *Processor) acquire(videoID string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, busy := p.active[videoID]; busy {
		return false
	}
	p.active[videoID] = struct{}{}
	return true
}

func (p *Processor) release(videoID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.active, videoID)
}
