package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"drumtrack-service/internal/models"
)

// CreateVideoUpload inserts a pending upload attempt.
func (d *DB) CreateVideoUpload(ctx context.Context, v models.VideoUpload) error {
	query := `
        INSERT INTO video_uploads (
            id, drum_id, confirm_time, local_path, video_ref, status,
            last_error, created_at, updated_at
        )
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := d.Pool.Exec(ctx, query,
		v.ID, v.DrumID, v.ConfirmTime, v.LocalPath, v.VideoRef, v.Status,
		v.LastError, v.CreatedAt, v.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert video upload: %w", err)
	}
	return nil
}

// UpdateVideoUploadStatus finalizes an upload attempt.
func (d *DB) UpdateVideoUploadStatus(ctx context.Context, id [16]byte, status, videoRef, lastError string) error {
	query := `
        UPDATE video_uploads
        SET status = $1, video_ref = $2, last_error = $3, updated_at = $4
        WHERE id = $5`
	result, err := d.Pool.Exec(ctx, query, status, videoRef, lastError, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update video upload status: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("no video upload updated for id %x", id)
	}
	return nil
}

// GetLatestFailedUpload returns the newest failed upload for a confirm group,
// for the manual retry path.
func (d *DB) GetLatestFailedUpload(ctx context.Context, drumID, confirmTime string) (models.VideoUpload, error) {
	var v models.VideoUpload
	var id pgtype.UUID

	query := `
        SELECT id, drum_id, confirm_time, local_path, video_ref, status,
               last_error, created_at, updated_at
        FROM video_uploads
        WHERE drum_id = $1 AND confirm_time = $2 AND status = 'failed'
        ORDER BY created_at DESC
        LIMIT 1`
	err := d.Pool.QueryRow(ctx, query, drumID, confirmTime).Scan(
		&id, &v.DrumID, &v.ConfirmTime, &v.LocalPath, &v.VideoRef,
		&v.Status, &v.LastError, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return models.VideoUpload{}, fmt.Errorf("no failed upload found for group %s", confirmTime)
		}
		return models.VideoUpload{}, fmt.Errorf("failed to get upload for group %s: %w", confirmTime, err)
	}
	v.ID = id.Bytes
	return v, nil
}

// GetVideoUploadsByDrum fetches the drum's upload history, newest first.
func (d *DB) GetVideoUploadsByDrum(ctx context.Context, drumID string, limit, offset int) ([]models.VideoUpload, error) {
	query := `
        SELECT id, drum_id, confirm_time, local_path, video_ref, status,
               last_error, created_at, updated_at
        FROM video_uploads
        WHERE drum_id = $1
        ORDER BY created_at DESC
        LIMIT $2 OFFSET $3`
	rows, err := d.Pool.Query(ctx, query, drumID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to get video uploads for drum %s: %w", drumID, err)
	}
	defer rows.Close()

	var uploads []models.VideoUpload
	for rows.Next() {
		var v models.VideoUpload
		var id pgtype.UUID
		err := rows.Scan(&id, &v.DrumID, &v.ConfirmTime, &v.LocalPath,
			&v.VideoRef, &v.Status, &v.LastError, &v.CreatedAt, &v.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan video upload: %w", err)
		}
		v.ID = id.Bytes
		uploads = append(uploads, v)
	}
	return uploads, nil
}
