package cli

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type ValidationError struct {
	Arg   string
	Cause string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid argument %q: %s", e.Arg, e.Cause)
}

// UploadArgs holds everything needed to push one track to a server.
type UploadArgs struct {
	ServerURL   string
	Username    string
	Password    string
	FilePath    string
	Title       string
	Artist      string
	Genre       string
	ReleaseDate string
}

// uploadableExtensions mirrors the server-side allow-list so obviously
// wrong files are rejected before any network traffic.
var uploadableExtensions = map[string]bool{
	".mp3": true,
	".wav": true,
}

// ParseArgs parses and validates the uploader's command line.
func ParseArgs(args []string) (*UploadArgs, error) {
	fs := flag.NewFlagSet("trecks", flag.ContinueOnError)

	out := &UploadArgs{}
	fs.StringVar(&out.ServerURL, "server", "http://localhost:3000", "base URL of the trecks server")
	fs.StringVar(&out.Username, "user", "", "admin username")
	fs.StringVar(&out.Password, "pass", "", "admin password")
	fs.StringVar(&out.FilePath, "file", "", "path to the .mp3 or .wav file to upload")
	fs.StringVar(&out.Title, "title", "", "track title")
	fs.StringVar(&out.Artist, "artist", "", "track artist")
	fs.StringVar(&out.Genre, "genre", "", "track genre")
	fs.StringVar(&out.ReleaseDate, "release-date", "", "release date (YYYY-MM-DD)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	required := []struct {
		name  string
		value string
	}{
		{"-user", out.Username},
		{"-pass", out.Password},
		{"-file", out.FilePath},
		{"-title", out.Title},
		{"-artist", out.Artist},
		{"-genre", out.Genre},
		{"-release-date", out.ReleaseDate},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, &ValidationError{Arg: r.name, Cause: "value is required"}
		}
	}

	if _, err := time.Parse("2006-01-02", out.ReleaseDate); err != nil {
		return nil, &ValidationError{Arg: "-release-date", Cause: "must be YYYY-MM-DD"}
	}

	p := filepath.Clean(out.FilePath)
	info, err := os.Stat(p)
	if err != nil {
		return nil, &ValidationError{Arg: out.FilePath, Cause: "not found or not accessible"}
	}
	if info.IsDir() {
		return nil, &ValidationError{Arg: out.FilePath, Cause: "is a directory, not a music file"}
	}
	if !uploadableExtensions[strings.ToLower(filepath.Ext(p))] {
		return nil, &ValidationError{Arg: out.FilePath, Cause: "only .mp3 and .wav files can be uploaded"}
	}
	out.FilePath = p

	return out, nil
}
