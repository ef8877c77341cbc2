package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"clipquery.app/backend/internal/storage/models"
)

type VideoRepository struct {
	db *sql.DB
}

func NewVideoRepository(db *sql.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

// Create inserts the video and fills in its generated id and timestamps.
func (r *VideoRepository) Create(ctx context.Context, video *models.Video) error {
	const query = `
		INSERT INTO videos (id, filename, original_name, file_path, file_size,
			duration, status, video_type, youtube_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	video.ID = uuid.NewString()
	if video.Status == "" {
		video.Status = models.StatusUploaded
	}
	if video.VideoType == "" {
		video.VideoType = models.TypeUploaded
	}

	err := r.db.QueryRowContext(ctx, query,
		video.ID,
		video.Filename,
		video.OriginalName,
		video.FilePath,
		video.FileSize,
		video.Duration,
		video.Status,
		video.VideoType,
		video.YouTubeID,
	).Scan(&video.CreatedAt, &video.UpdatedAt)
	if err != nil {
		return fmt.Errorf("video insert failed: %w", err)
	}
	return nil
}

const videoColumns = `id, filename, original_name, file_path, file_size,
	duration, status, video_type, youtube_id, created_at, updated_at`

func (r *VideoRepository) Get(ctx context.Context, id string) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *VideoRepository) GetByFilename(ctx context.Context, filename string) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos WHERE filename = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, filename))
}

// GetByYouTubeID finds an existing YouTube video so the same URL is not
// ingested twice.
func (r *VideoRepository) GetByYouTubeID(ctx context.Context, youtubeID string) (*models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos
		WHERE youtube_id = $1 AND video_type = $2`
	return r.scanOne(r.db.QueryRowContext(ctx, query, youtubeID, models.TypeYouTube))
}

func (r *VideoRepository) List(ctx context.Context) ([]models.Video, error) {
	query := `SELECT ` + videoColumns + ` FROM videos ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("video list failed: %w", err)
	}
	defer rows.Close()

	videos := []models.Video{}
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, *video)
	}
	return videos, rows.Err()
}

func (r *VideoRepository) UpdateStatus(ctx context.Context, id string, status string) error {
	const query = `UPDATE videos SET status = $1, updated_at = now() WHERE id = $2`

	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("status update failed: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("status update failed: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *VideoRepository) Delete(ctx context.Context, id string) error {
	// Segments and window vectors cascade.
	result, err := r.db.ExecContext(ctx, `DELETE FROM videos WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("video delete failed: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("video delete failed: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *VideoRepository) scanOne(row rowScanner) (*models.Video, error) {
	video, err := scanVideo(row)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	return video, nil
}

func scanVideo(row rowScanner) (*models.Video, error) {
	var video models.Video
	err := row.Scan(
		&video.ID,
		&video.Filename,
		&video.OriginalName,
		&video.FilePath,
		&video.FileSize,
		&video.Duration,
		&video.Status,
		&video.VideoType,
		&video.YouTubeID,
		&video.CreatedAt,
		&video.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &video, nil
}
