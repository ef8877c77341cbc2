package db

import (
	"database/sql"
	"fmt"
)

// Window vectors use text-embedding-3-small, which is 1536-dimensional.
const embeddingDimensions = 1536

var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,

	`CREATE TABLE IF NOT EXISTS videos (
		id            text PRIMARY KEY,
		filename      text NOT NULL,
		original_name text NOT NULL,
		file_path     text NOT NULL,
		file_size     bigint NOT NULL,
		duration      double precision,
		status        text NOT NULL DEFAULT 'uploaded',
		video_type    text NOT NULL DEFAULT 'uploaded',
		youtube_id    text,
		created_at    timestamptz NOT NULL DEFAULT now(),
		updated_at    timestamptz NOT NULL DEFAULT now()
	)`,

	`CREATE TABLE IF NOT EXISTS video_segments (
		id         text PRIMARY KEY,
		video_id   text NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
		text       text NOT NULL,
		start_time double precision NOT NULL,
		end_time   double precision NOT NULL,
		created_at timestamptz NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS video_segments_video_id_start_time_idx
		ON video_segments (video_id, start_time)`,

	fmt.Sprintf(`CREATE TABLE IF NOT EXISTS video_windows (
		video_id     text NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
		window_index integer NOT NULL,
		text         text NOT NULL,
		start_time   double precision NOT NULL,
		end_time     double precision NOT NULL,
		embedding    vector(%d) NOT NULL,
		PRIMARY KEY (video_id, window_index)
	)`, embeddingDimensions),

	// New rows on videos notify the transcription worker, same channel the
	// worker LISTENs on.
	`CREATE OR REPLACE FUNCTION notify_new_video() RETURNS trigger AS $$
	BEGIN
		PERFORM pg_notify('new_video', row_to_json(NEW)::text);
		RETURN NEW;
	END;
	$$ LANGUAGE plpgsql`,

	`DROP TRIGGER IF EXISTS videos_notify_new ON videos`,

	`CREATE TRIGGER videos_notify_new
		AFTER INSERT ON videos
		FOR EACH ROW EXECUTE FUNCTION notify_new_video()`,
}

// EnsureSchema creates tables, indexes and the notify trigger on startup.
func EnsureSchema(conn *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := conn.Exec(stmt); err != nil {
			return fmt.Errorf("schema statement failed: %w", err)
		}
	}
	return nil
}
