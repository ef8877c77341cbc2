// Package index stores window vectors in Postgres via pgvector, partitioned
// by video id and keyed by window index within a video.
package index

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pgvector/pgvector-go"
)

// Match is one nearest-neighbor hit with its stored window metadata.
type Match struct {
	Text  string
	Start float64
	End   float64
	Score float64
}

type WindowIndex struct {
	db *sql.DB
}

func NewWindowIndex(db *sql.DB) *WindowIndex {
	return &WindowIndex{db: db}
}

// Entry pairs a window's metadata with its embedding for upsert.
type Entry struct {
	Text      string
	Start     float64
	End       float64
	Embedding []float32
}

// Replace swaps out all of a video's window vectors in one transaction.
// Delete-then-insert means a reprocessed transcript with fewer windows can
// never leave stale trailing vectors behind.
func (x *WindowIndex) Replace(ctx context.Context, videoID string, entries []Entry) error {
	tx, err := x.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("window index replace failed: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM video_windows WHERE video_id = $1`, videoID); err != nil {
		return fmt.Errorf("window index delete failed: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO video_windows (video_id, window_index, text, start_time, end_time, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
	`)
	if err != nil {
		return fmt.Errorf("window index replace failed: %w", err)
	}
	defer stmt.Close()

	for i, entry := range entries {
		_, err := stmt.ExecContext(ctx,
			videoID,
			i,
			entry.Text,
			entry.Start,
			entry.End,
			pgvector.NewVector(entry.Embedding),
		)
		if err != nil {
			return fmt.Errorf("window insert failed: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("window index replace failed: %w", err)
	}
	return nil
}

// Query returns the topK nearest windows for a video by cosine similarity.
func (x *WindowIndex) Query(ctx context.Context, vector []float32, videoID string, topK int) ([]Match, error) {
	const query = `
		SELECT text, start_time, end_time,
			1 - (embedding <=> $1) AS similarity
		FROM video_windows
		WHERE video_id = $2
		ORDER BY embedding <=> $1
		LIMIT $3
	`

	rows, err := x.db.QueryContext(ctx, query, pgvector.NewVector(vector), videoID, topK)
	if err != nil {
		return nil, fmt.Errorf("window query failed: %w", err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		var match Match
		if err := rows.Scan(&match.Text, &match.Start, &match.End, &match.Score); err != nil {
			return nil, fmt.Errorf("window scan failed: %w", err)
		}
		matches = append(matches, match)
	}
	return matches, rows.Err()
}
