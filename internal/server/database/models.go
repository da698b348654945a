package database

import "time"

// User is a registered account. Every successful registrant is an admin
// (single-admin deployment model).
type User struct {
	ID               int64
	Username         string
	PasswordHash     string
	RegistrationCode string
	IsAdmin          bool
	CreatedAt        time.Time
}

// Track is one uploaded piece of music in the catalog.
type Track struct {
	ID             int64
	Title          string
	Artist         string
	Genre          string
	ReleaseDate    time.Time
	StoredFilename string
	UploadDate     time.Time
	DownloadCount  int
}
