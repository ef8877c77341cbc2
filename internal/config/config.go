// Package config reads service configuration from the environment once at
// startup. Nothing else in the codebase reads environment variables at call
// time; feature toggles (semantic search, S3, per-strategy transcript sources)
// are explicit values threaded into constructors.
package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Environment string
	Port        string

	DatabaseURL string

	OpenAIAPIKey string
	// SemanticSearch gates the vector-index stage of retrieval. Derived from
	// OPENAI_API_KEY presence, overridable with SEMANTIC_SEARCH=false.
	SemanticSearch bool

	ServiceAPIKey string
	CORSOrigins   []string

	AWSRegion string
	S3Bucket  string

	YouTubeAPIKey string

	TranscriptAPIURL   string
	TranscriptAPIKey   string
	TranscriptProxyURL string
	TranscriptLanguage string

	UploadDir          string
	MaxUploadBytes     int64
	MaxDurationSeconds float64
}

func Load() Config {
	cfg := Config{
		Environment:        getenv("ENVIRONMENT", "development"),
		Port:               getenv("PORT", "8000"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		ServiceAPIKey:      os.Getenv("SERVICE_API_KEY"),
		AWSRegion:          getenv("AWS_REGION", "us-east-1"),
		S3Bucket:           os.Getenv("AWS_S3_BUCKET"),
		YouTubeAPIKey:      os.Getenv("YOUTUBE_API_KEY"),
		TranscriptAPIURL:   os.Getenv("TRANSCRIPT_API_URL"),
		TranscriptAPIKey:   os.Getenv("TRANSCRIPT_API_KEY"),
		TranscriptProxyURL: os.Getenv("TRANSCRIPT_PROXY_URL"),
		TranscriptLanguage: getenv("TRANSCRIPT_LANGUAGE", "en"),
		UploadDir:          getenv("UPLOAD_DIR", "uploads"),
		MaxUploadBytes:     getint64("MAX_UPLOAD_BYTES", 500*1024*1024),
		MaxDurationSeconds: getfloat("MAX_DURATION_SECONDS", 180),
	}

	cfg.SemanticSearch = cfg.OpenAIAPIKey != "" &&
		!strings.EqualFold(os.Getenv("SEMANTIC_SEARCH"), "false")

	cfg.CORSOrigins = parseOrigins(os.Getenv("CORS_ORIGINS"))

	return cfg
}

// S3Enabled reports whether uploads go to S3 rather than local disk.
func (c Config) S3Enabled() bool {
	return c.S3Bucket != ""
}

// parseOrigins accepts a JSON array (the historical format) or a comma
// separated list, falling back to localhost dev origins.
func parseOrigins(raw string) []string {
	defaults := []string{"http://localhost:3000", "http://localhost:3001"}
	if raw == "" {
		return defaults
	}
	if strings.HasPrefix(strings.TrimSpace(raw), "[") {
		var origins []string
		if err := json.Unmarshal([]byte(raw), &origins); err == nil && len(origins) > 0 {
			return origins
		}
		return defaults
	}
	var origins []string
	for _, o := range strings.Split(raw, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		return defaults
	}
	return origins
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func getfloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
