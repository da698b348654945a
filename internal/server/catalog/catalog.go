package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"trecks/internal/server/database"
	"trecks/internal/server/storage"

	"github.com/google/uuid"
)

// Sentinel errors for the catalog layer.
var (
	ErrTrackNotFound       = errors.New("track not found")
	ErrUnsupportedFileType = errors.New("only mp3 and wav music files are accepted")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
	ErrMissingField        = errors.New("missing required field")
	ErrInvalidReleaseDate  = errors.New("release date must be in YYYY-MM-DD format")
)

// releaseDateLayout is the wire format for release dates.
const releaseDateLayout = "2006-01-02"

// allowedExtensions and allowedMIMETypes form the upload allow-list.
// A file must pass both checks; a matching extension with a mismatched
// declared type (or vice versa) is rejected.
var allowedExtensions = map[string]bool{
	".mp3": true,
	".wav": true,
}

var allowedMIMETypes = map[string]bool{
	"audio/mpeg":  true,
	"audio/wav":   true,
	"audio/x-wav": true,
}

// TrackStore is the persistence surface the catalog service needs.
type TrackStore interface {
	Create(ctx context.Context, track *database.Track) error
	GetByID(ctx context.Context, id int64) (*database.Track, error)
	GetByStoredFilename(ctx context.Context, filename string) (*database.Track, error)
	List(ctx context.Context) ([]*database.Track, error)
	IncrementDownloads(ctx context.Context, id int64) error
	Delete(ctx context.Context, id int64) error
}

// UploadRequest carries the metadata fields submitted alongside a file.
type UploadRequest struct {
	Title       string
	Artist      string
	Genre       string
	ReleaseDate string
}

// TrackSummary is the public listing representation of a track.
// Field names match the JSON the original API exposed.
type TrackSummary struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Artist      string    `json:"artist"`
	Genre       string    `json:"genre"`
	ReleaseDate string    `json:"releaseDate"`
	Filename    string    `json:"filename"`
	UploadDate  time.Time `json:"uploadDate"`
	Downloads   int       `json:"downloads"`
}

// Download describes a file ready to be streamed to a client.
type Download struct {
	TrackID     int64
	Path        string
	DisplayName string
}

// Service contains the business logic for the track catalog:
// validated intake, storage, listing, download bookkeeping, deletion.
type Service struct {
	tracks      TrackStore
	store       storage.Store
	maxFileSize int64
}

// NewService creates a new catalog service.
func NewService(tracks TrackStore, store storage.Store, maxFileSize int64) *Service {
	return &Service{
		tracks:      tracks,
		store:       store,
		maxFileSize: maxFileSize,
	}
}

// ValidateFile applies the upload allow-list to a submitted file.
// Both the extension and the declared content type must match, which
// guards against extension spoofing without inspecting content.
func (s *Service) ValidateFile(filename, declaredMIME string, size int64) error {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] || !allowedMIMETypes[normalizeMIME(declaredMIME)] {
		return ErrUnsupportedFileType
	}
	if size > s.maxFileSize {
		return ErrFileTooLarge
	}
	return nil
}

// Upload validates an incoming file and its metadata, persists the file
// under a generated unique name, and records the track in the catalog.
func (s *Service) Upload(ctx context.Context, req UploadRequest, originalFilename, declaredMIME string, data io.Reader, size int64) (*database.Track, error) {
	if err := s.ValidateFile(originalFilename, declaredMIME, size); err != nil {
		return nil, err
	}

	if err := requireFields(req); err != nil {
		return nil, err
	}

	releaseDate, err := time.Parse(releaseDateLayout, req.ReleaseDate)
	if err != nil {
		return nil, ErrInvalidReleaseDate
	}

	// UUID-based names make collisions a non-issue even under
	// concurrent uploads of identically named files.
	storedFilename := uuid.NewString() + strings.ToLower(filepath.Ext(originalFilename))

	storedBytes, err := s.store.Save(storedFilename, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	track := &database.Track{
		Title:          req.Title,
		Artist:         req.Artist,
		Genre:          req.Genre,
		ReleaseDate:    releaseDate,
		StoredFilename: storedFilename,
		UploadDate:     time.Now().UTC(),
		DownloadCount:  0,
	}

	if err := s.tracks.Create(ctx, track); err != nil {
		// Clean up stored file on catalog failure
		s.store.Delete(storedFilename)
		return nil, fmt.Errorf("failed to create track record: %w", err)
	}

	slog.Info("track uploaded",
		"track_id", track.ID,
		"title", track.Title,
		"artist", track.Artist,
		"stored_filename", storedFilename,
		"size", storedBytes,
	)

	return track, nil
}

// Download resolves a stored filename to the file on disk and the name
// it should be served under. The download counter is NOT touched here:
// callers report a finished transfer via CompleteDownload, so failed or
// partial transfers never count.
func (s *Service) Download(ctx context.Context, filename string) (*Download, error) {
	track, err := s.tracks.GetByStoredFilename(ctx, filename)
	if err != nil {
		if errors.Is(err, database.ErrTrackNotFound) {
			return nil, ErrTrackNotFound
		}
		return nil, err
	}

	path, err := s.store.GetPath(track.StoredFilename)
	if err != nil {
		slog.Error("track file missing from storage",
			"track_id", track.ID,
			"stored_filename", track.StoredFilename,
		)
		return nil, ErrTrackNotFound
	}

	ext := strings.ToLower(filepath.Ext(track.StoredFilename))
	displayName := fmt.Sprintf("%s - %s - %s%s", track.Artist, track.Title, track.Genre, ext)

	return &Download{
		TrackID:     track.ID,
		Path:        path,
		DisplayName: displayName,
	}, nil
}

// CompleteDownload records one fully transferred download.
func (s *Service) CompleteDownload(ctx context.Context, trackID int64) error {
	if err := s.tracks.IncrementDownloads(ctx, trackID); err != nil {
		if errors.Is(err, database.ErrTrackNotFound) {
			return ErrTrackNotFound
		}
		return err
	}
	return nil
}

// Delete removes a track from the catalog. The stored file is left on
// disk on purpose: an in-flight download keeps working, and the original
// deployment behaved the same way.
func (s *Service) Delete(ctx context.Context, id int64) error {
	track, err := s.tracks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrTrackNotFound) {
			return ErrTrackNotFound
		}
		return err
	}

	if err := s.tracks.Delete(ctx, id); err != nil {
		if errors.Is(err, database.ErrTrackNotFound) {
			return ErrTrackNotFound
		}
		return fmt.Errorf("failed to delete track record: %w", err)
	}

	slog.Info("track deleted", "track_id", id, "title", track.Title)
	return nil
}

// List returns all tracks for public display, in insertion order.
func (s *Service) List(ctx context.Context) ([]TrackSummary, error) {
	tracks, err := s.tracks.List(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]TrackSummary, 0, len(tracks))
	for _, track := range tracks {
		summaries = append(summaries, TrackSummary{
			ID:          track.ID,
			Title:       track.Title,
			Artist:      track.Artist,
			Genre:       track.Genre,
			ReleaseDate: track.ReleaseDate.Format(releaseDateLayout),
			Filename:    track.StoredFilename,
			UploadDate:  track.UploadDate,
			Downloads:   track.DownloadCount,
		})
	}
	return summaries, nil
}

// --- Helpers ---

func requireFields(req UploadRequest) error {
	fields := []struct {
		name  string
		value string
	}{
		{"title", req.Title},
		{"artist", req.Artist},
		{"genre", req.Genre},
		{"releaseDate", req.ReleaseDate},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}
	return nil
}

// normalizeMIME strips parameters and case from a declared content type,
// e.g. "Audio/MPEG; charset=binary" becomes "audio/mpeg".
func normalizeMIME(mime string) string {
	base, _, _ := strings.Cut(mime, ";")
	return strings.ToLower(strings.TrimSpace(base))
}
