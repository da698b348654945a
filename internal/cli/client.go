package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Client talks to a running trecks server. The cookie jar carries the
// session cookie from login into the upload request.
type Client struct {
	baseURL string
	http    *http.Client
}

// UploadResponse is the server's record of the created track.
type UploadResponse struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Genre       string `json:"genre"`
	ReleaseDate string `json:"releaseDate"`
	Filename    string `json:"filename"`
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL string) (*Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Jar:     jar,
			Timeout: 5 * time.Minute,
		},
	}, nil
}

// Login authenticates and stores the session cookie for later requests.
func (c *Client) Login(ctx context.Context, username, password string) error {
	body, err := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		return fmt.Errorf("failed to encode login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/login", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login failed: %s", readError(resp.Body))
	}
	return nil
}

// UploadTrack sends the file and its metadata as a multipart form.
func (c *Client) UploadTrack(ctx context.Context, args *UploadArgs) (*UploadResponse, error) {
	file, err := os.Open(args.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", args.FilePath, err)
	}
	defer file.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := createAudioPart(writer, filepath.Base(args.FilePath))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", args.FilePath, err)
	}

	fields := map[string]string{
		"title":       args.Title,
		"artist":      args.Artist,
		"genre":       args.Genre,
		"releaseDate": args.ReleaseDate,
	}
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			return nil, fmt.Errorf("failed to write form field %s: %w", name, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("upload failed: %s", readError(resp.Body))
	}

	result := &UploadResponse{}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return nil, fmt.Errorf("failed to decode upload response: %w", err)
	}
	return result, nil
}

// createAudioPart builds the musicFile form part with the content type
// the server expects for the file's extension. multipart's CreateFormFile
// would declare application/octet-stream, which the server rejects.
func createAudioPart(writer *multipart.Writer, filename string) (io.Writer, error) {
	contentType := "audio/mpeg"
	if strings.ToLower(filepath.Ext(filename)) == ".wav" {
		contentType = "audio/wav"
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="musicFile"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	return writer.CreatePart(header)
}

func readError(body io.Reader) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return "unexpected server response"
}
