// Package testutil provides in-memory fakes for the persistence
// interfaces so service and handler tests run without Postgres.
package testutil

import (
	"context"
	"sync"

	"trecks/internal/server/database"
)

// FakeUserStore is an in-memory auth.UserStore implementation enforcing
// the same uniqueness rules as the users table.
type FakeUserStore struct {
	mu     sync.Mutex
	users  map[string]*database.User
	nextID int64
}

// NewFakeUserStore creates an empty fake user store.
func NewFakeUserStore() *FakeUserStore {
	return &FakeUserStore{users: make(map[string]*database.User)}
}

func (f *FakeUserStore) Create(ctx context.Context, user *database.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.users[user.Username]; exists {
		return database.ErrUsernameTaken
	}
	for _, existing := range f.users {
		if existing.RegistrationCode == user.RegistrationCode {
			return database.ErrRegistrationCodeUsed
		}
	}

	f.nextID++
	user.ID = f.nextID
	stored := *user
	f.users[user.Username] = &stored
	return nil
}

func (f *FakeUserStore) GetByUsername(ctx context.Context, username string) (*database.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	user, ok := f.users[username]
	if !ok {
		return nil, database.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

// FakeTrackStore is an in-memory catalog.TrackStore implementation.
// IncrementDownloads is serialized by the mutex, matching the atomic
// UPDATE contract of the real repository.
type FakeTrackStore struct {
	mu     sync.Mutex
	tracks map[int64]*database.Track
	nextID int64

	// CreateErr, when set, makes Create fail. Lets tests exercise the
	// stored-file cleanup path.
	CreateErr error
}

// NewFakeTrackStore creates an empty fake track store.
func NewFakeTrackStore() *FakeTrackStore {
	return &FakeTrackStore{tracks: make(map[int64]*database.Track)}
}

func (f *FakeTrackStore) Create(ctx context.Context, track *database.Track) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.CreateErr != nil {
		return f.CreateErr
	}

	f.nextID++
	track.ID = f.nextID
	stored := *track
	f.tracks[track.ID] = &stored
	return nil
}

func (f *FakeTrackStore) GetByID(ctx context.Context, id int64) (*database.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	track, ok := f.tracks[id]
	if !ok {
		return nil, database.ErrTrackNotFound
	}
	t := *track
	return &t, nil
}

func (f *FakeTrackStore) GetByStoredFilename(ctx context.Context, filename string) (*database.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, track := range f.tracks {
		if track.StoredFilename == filename {
			t := *track
			return &t, nil
		}
	}
	return nil, database.ErrTrackNotFound
}

func (f *FakeTrackStore) List(ctx context.Context) ([]*database.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var tracks []*database.Track
	for id := int64(1); id <= f.nextID; id++ {
		if track, ok := f.tracks[id]; ok {
			t := *track
			tracks = append(tracks, &t)
		}
	}
	return tracks, nil
}

func (f *FakeTrackStore) IncrementDownloads(ctx context.Context, id int64) error {
	// A real Exec fails once the context is done; so does the fake.
	if err := ctx.Err(); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	track, ok := f.tracks[id]
	if !ok {
		return database.ErrTrackNotFound
	}
	track.DownloadCount++
	return nil
}

func (f *FakeTrackStore) Delete(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.tracks[id]; !ok {
		return database.ErrTrackNotFound
	}
	delete(f.tracks, id)
	return nil
}
