package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

var (
	ErrTrackNotFound = errors.New("track not found")
)

// TrackRepository provides CRUD operations for catalog tracks.
type TrackRepository struct {
	db *DB
}

// NewTrackRepository creates a new TrackRepository.
func NewTrackRepository(db *DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Create inserts a new track record and fills in the generated ID.
func (r *TrackRepository) Create(ctx context.Context, track *Track) error {
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO tracks (
			title, artist, genre, release_date, stored_filename,
			upload_date, download_count
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`,
		track.Title,
		track.Artist,
		track.Genre,
		track.ReleaseDate,
		track.StoredFilename,
		track.UploadDate,
		track.DownloadCount,
	).Scan(&track.ID)
	if err != nil {
		return fmt.Errorf("failed to create track: %w", err)
	}
	return nil
}

// GetByID retrieves a track by its ID.
func (r *TrackRepository) GetByID(ctx context.Context, id int64) (*Track, error) {
	track := &Track{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, title, artist, genre, release_date, stored_filename,
			   upload_date, download_count
		FROM tracks WHERE id = $1
	`, id).Scan(
		&track.ID,
		&track.Title,
		&track.Artist,
		&track.Genre,
		&track.ReleaseDate,
		&track.StoredFilename,
		&track.UploadDate,
		&track.DownloadCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTrackNotFound
		}
		return nil, fmt.Errorf("failed to get track: %w", err)
	}
	return track, nil
}

// GetByStoredFilename retrieves a track by the filename it is stored under.
func (r *TrackRepository) GetByStoredFilename(ctx context.Context, filename string) (*Track, error) {
	track := &Track{}
	err := r.db.Pool.QueryRow(ctx, `
		SELECT id, title, artist, genre, release_date, stored_filename,
			   upload_date, download_count
		FROM tracks WHERE stored_filename = $1
	`, filename).Scan(
		&track.ID,
		&track.Title,
		&track.Artist,
		&track.Genre,
		&track.ReleaseDate,
		&track.StoredFilename,
		&track.UploadDate,
		&track.DownloadCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTrackNotFound
		}
		return nil, fmt.Errorf("failed to get track: %w", err)
	}
	return track, nil
}

// List returns all tracks in insertion order.
func (r *TrackRepository) List(ctx context.Context) ([]*Track, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, title, artist, genre, release_date, stored_filename,
			   upload_date, download_count
		FROM tracks ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*Track
	for rows.Next() {
		track := &Track{}
		if err := rows.Scan(
			&track.ID,
			&track.Title,
			&track.Artist,
			&track.Genre,
			&track.ReleaseDate,
			&track.StoredFilename,
			&track.UploadDate,
			&track.DownloadCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan track: %w", err)
		}
		tracks = append(tracks, track)
	}
	return tracks, rows.Err()
}

// IncrementDownloads atomically increments the download counter.
// The read-modify-write happens inside the database, so concurrent
// downloads of the same track never lose updates.
func (r *TrackRepository) IncrementDownloads(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx,
		"UPDATE tracks SET download_count = download_count + 1 WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to increment download count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTrackNotFound
	}
	return nil
}

// Delete removes a track record by ID.
func (r *TrackRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Pool.Exec(ctx, "DELETE FROM tracks WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrTrackNotFound
	}
	return nil
}
