// The worker daemon LISTENs on the new_video Postgres channel and runs the
// processing pipeline for each inserted video, so ingestion endpoints can
// return immediately.
package main

import (
	"context"
	"encoding/json"
	"time"

	"github.com/joho/godotenv"
	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"clipquery.app/backend/internal/config"
	"clipquery.app/backend/internal/embed"
	"clipquery.app/backend/internal/index"
	"clipquery.app/backend/internal/logging"
	"clipquery.app/backend/internal/objectstore"
	"clipquery.app/backend/internal/processing"
	"clipquery.app/backend/internal/storage/db"
	"clipquery.app/backend/internal/storage/postgres"
	"clipquery.app/backend/internal/transcribe"
	"clipquery.app/backend/internal/youtube"
)

const notifyChannel = "new_video"

type videoNotification struct {
	ID string `json:"id"`
}

func main() {
	godotenv.Load()

	cfg := config.Load()
	log := logging.Init(cfg.Environment)

	if cfg.DatabaseURL == "" {
		log.Fatal().Msg("DATABASE_URL must be set")
	}

	database, err := db.NewConnection(db.Config{URL: cfg.DatabaseURL})
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer database.Close()

	if err := db.EnsureSchema(database); err != nil {
		log.Fatal().Err(err).Msg("schema setup failed")
	}

	videoRepo := postgres.NewVideoRepository(database)
	segmentRepo := postgres.NewSegmentRepository(database)

	var downloader processing.Downloader
	if cfg.S3Enabled() {
		store, err := objectstore.New(context.Background(), cfg.S3Bucket, cfg.AWSRegion)
		if err != nil {
			log.Fatal().Err(err).Msg("s3 setup failed")
		}
		downloader = store
	}

	var indexEmbedder processing.Embedder
	var indexer processing.Indexer
	if cfg.SemanticSearch {
		indexEmbedder = embed.NewClient(cfg.OpenAIAPIKey)
		indexer = index.NewWindowIndex(database)
	}

	var transcriber processing.Transcriber
	if cfg.OpenAIAPIKey != "" {
		transcriber = transcribe.NewClient(cfg.OpenAIAPIKey)
	}

	var sources []youtube.Source
	if cfg.TranscriptAPIURL != "" {
		sources = append(sources, youtube.NewAPISource(cfg.TranscriptAPIURL, cfg.TranscriptAPIKey, cfg.TranscriptLanguage))
	}
	if cfg.TranscriptProxyURL != "" {
		sources = append(sources, youtube.NewProxySource(cfg.TranscriptProxyURL))
	}
	sources = append(sources, youtube.NewScrapeSource(cfg.TranscriptLanguage))

	processor := processing.NewProcessor(
		videoRepo, segmentRepo, youtube.NewChain(log, sources...),
		transcriber, indexEmbedder, indexer, downloader, log,
	)

	if err := listen(cfg.DatabaseURL, processor, log); err != nil {
		log.Fatal().Err(err).Msg("worker stopped")
	}
}

func listen(dbURL string, processor *processing.Processor, log zerolog.Logger) error {
	listener := pq.NewListener(dbURL, 10*time.Second, time.Minute,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Warn().Err(err).Int("event", int(ev)).Msg("listener event")
			}
		})
	defer listener.Close()

	if err := listener.Listen(notifyChannel); err != nil {
		return err
	}

	log.Info().Str("channel", notifyChannel).Msg("waiting for new videos")

	for {
		select {
		case n := <-listener.Notify:
			if n == nil {
				// Reconnect; pq re-establishes LISTEN on its own.
				continue
			}
			handleNotification(n.Extra, processor, log)

		case <-time.After(time.Minute):
			if err := listener.Ping(); err != nil {
				log.Warn().Err(err).Msg("listener ping failed")
			}
		}
	}
}

func handleNotification(payload string, processor *processing.Processor, log zerolog.Logger) {
	var note videoNotification
	if err := json.Unmarshal([]byte(payload), &note); err != nil || note.ID == "" {
		log.Warn().Str("payload", payload).Msg("unparseable notification")
		return
	}

	log.Info().Str("video_id", note.ID).Msg("processing new video")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()

	result, err := processor.Process(ctx, note.ID)
	if err != nil {
		log.Error().Err(err).Str("video_id", note.ID).Msg("processing failed")
		return
	}

	log.Info().Str("video_id", note.ID).
		Int("segments", result.SegmentCount).
		Int("windows", result.WindowCount).
		Msg("video ready")
}
