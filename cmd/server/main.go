package main

import (
	"context"
	"net/http"

	"github.com/joho/godotenv"

	"clipquery.app/backend/internal/api"
	"clipquery.app/backend/internal/api/handlers"
	"clipquery.app/backend/internal/chat"
	"clipquery.app/backend/internal/config"
	"clipquery.app/backend/internal/embed"
	"clipquery.app/backend/internal/index"
	"clipquery.app/backend/internal/logging"
	"clipquery.app/backend/internal/objectstore"
	"clipquery.app/backend/internal/processing"
	"clipquery.app/backend/internal/search"
	"clipquery.app/backend/internal/storage/db"
	"clipquery.app/backend/internal/storage/postgres"
	"clipquery.app/backend/internal/transcribe"
	"clipquery.app/backend/internal/youtube"
)

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

	var store *objectstore.Manager
	if cfg.S3Enabled() {
		store, err = objectstore.New(context.Background(), cfg.S3Bucket, cfg.AWSRegion)
		if err != nil {
			log.Fatal().Err(err).Msg("s3 setup failed")
		}
		log.Info().Str("bucket", cfg.S3Bucket).Msg("uploads go to S3")
	} else {
		log.Info().Str("dir", cfg.UploadDir).Msg("uploads go to local disk")
	}

	// nil embedder and vectors keep the semantic stage off; search still
	// serves substring matches.
	var embedder *embed.Client
	var searchEmbedder search.Embedder
	var searchVectors search.VectorIndex
	var indexEmbedder processing.Embedder
	var indexer processing.Indexer
	if cfg.SemanticSearch {
		embedder = embed.NewClient(cfg.OpenAIAPIKey)
		windows := index.NewWindowIndex(database)
		searchEmbedder, searchVectors = embedder, windows
		indexEmbedder, indexer = embedder, windows
	} else {
		log.Warn().Msg("semantic search disabled, substring matching only")
	}

	engine := search.NewEngine(segmentRepo, searchEmbedder, searchVectors, log)

	var sources []youtube.Source
	if cfg.TranscriptAPIURL != "" {
		sources = append(sources, youtube.NewAPISource(cfg.TranscriptAPIURL, cfg.TranscriptAPIKey, cfg.TranscriptLanguage))
	}
	if cfg.TranscriptProxyURL != "" {
		sources = append(sources, youtube.NewProxySource(cfg.TranscriptProxyURL))
	}
	sources = append(sources, youtube.NewScrapeSource(cfg.TranscriptLanguage))
	chain := youtube.NewChain(log, sources...)

	var transcriber processing.Transcriber
	if cfg.OpenAIAPIKey != "" {
		transcriber = transcribe.NewClient(cfg.OpenAIAPIKey)
	}

	var downloader processing.Downloader
	if store != nil {
		downloader = store
	}

	processor := processing.NewProcessor(
		videoRepo, segmentRepo, chain, transcriber,
		indexEmbedder, indexer, downloader, log,
	)

	infoClient := youtube.NewInfoClient(cfg.YouTubeAPIKey, log)

	router := api.NewRouter(api.RouterConfig{
		Videos: handlers.NewVideoHandler(
			videoRepo, segmentRepo, processor, infoClient,
			store, cfg.UploadDir, cfg.MaxDurationSeconds, log,
		),
		Upload: handlers.NewUploadHandler(
			videoRepo, store, cfg.UploadDir,
			cfg.MaxUploadBytes, cfg.MaxDurationSeconds, log,
		),
		Search:        handlers.NewSearchHandler(engine),
		Chat:          chat.NewHandler(engine, cfg.OpenAIAPIKey, cfg.CORSOrigins, log),
		ServiceAPIKey: cfg.ServiceAPIKey,
		CORSOrigins:   cfg.CORSOrigins,
	})

	log.Info().Str("port", cfg.Port).Msg("starting HTTP server")
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatal().Err(err).Msg("HTTP server error")
	}
}
