package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"clipquery.app/backend/internal/storage/models"
)

type SegmentRepository struct {
	db *sql.DB
}

func NewSegmentRepository(db *sql.DB) *SegmentRepository {
	return &SegmentRepository{db: db}
}

// SaveAll persists a full transcript's segments in one transaction.
func (r *SegmentRepository) SaveAll(ctx context.Context, videoID string, segments []models.Segment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("segment save failed: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO video_segments (id, video_id, text, start_time, end_time)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return fmt.Errorf("segment save failed: %w", err)
	}
	defer stmt.Close()

	for _, segment := range segments {
		_, err := stmt.ExecContext(ctx,
			uuid.NewString(),
			videoID,
			segment.Text,
			segment.StartTime,
			segment.EndTime,
		)
		if err != nil {
			return fmt.Errorf("segment insert failed: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("segment save failed: %w", err)
	}
	return nil
}

// ListByVideo returns all segments for a video ordered by start time.
func (r *SegmentRepository) ListByVideo(ctx context.Context, videoID string) ([]models.Segment, error) {
	const query = `
		SELECT id, video_id, text, start_time, end_time, created_at
		FROM video_segments
		WHERE video_id = $1
		ORDER BY start_time
	`

	rows, err := r.db.QueryContext(ctx, query, videoID)
	if err != nil {
		return nil, fmt.Errorf("segment list failed: %w", err)
	}
	defer rows.Close()

	return scanSegments(rows)
}

func (r *SegmentRepository) CountByVideo(ctx context.Context, videoID string) (int, error) {
	const query = `SELECT count(*) FROM video_segments WHERE video_id = $1`

	var count int
	if err := r.db.QueryRowContext(ctx, query, videoID).Scan(&count); err != nil {
		return 0, fmt.Errorf("segment count failed: %w", err)
	}
	return count, nil
}

// SearchSubstring does a case-insensitive substring match over a video's
// segments, chronological order, limited.
func (r *SegmentRepository) SearchSubstring(ctx context.Context, videoID string, query string, limit int) ([]models.Segment, error) {
	const sqlQuery = `
		SELECT id, video_id, text, start_time, end_time, created_at
		FROM video_segments
		WHERE video_id = $1 AND text ILIKE '%' || $2 || '%'
		ORDER BY start_time
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, sqlQuery, videoID, query, limit)
	if err != nil {
		return nil, fmt.Errorf("segment search failed: %w", err)
	}
	defer rows.Close()

	return scanSegments(rows)
}

func scanSegments(rows *sql.Rows) ([]models.Segment, error) {
	segments := []models.Segment{}
	for rows.Next() {
		var segment models.Segment
		err := rows.Scan(
			&segment.ID,
			&segment.VideoID,
			&segment.Text,
			&segment.StartTime,
			&segment.EndTime,
			&segment.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		segments = append(segments, segment)
	}
	return segments, rows.Err()
}
