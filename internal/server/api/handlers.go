package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"trecks/internal/server/auth"
	"trecks/internal/server/catalog"

	"github.com/labstack/echo/v4"
)

// HealthChecker reports whether a backing dependency is reachable.
// *database.DB satisfies it.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Handler contains the HTTP handlers for the Trecks API.
type Handler struct {
	auth          *auth.Service
	catalog       *catalog.Service
	db            HealthChecker
	sessionSecret string
}

// NewHandler creates a new handler with the given service dependencies.
func NewHandler(authSvc *auth.Service, catalogSvc *catalog.Service, db HealthChecker, sessionSecret string) *Handler {
	return &Handler{
		auth:          authSvc,
		catalog:       catalogSvc,
		db:            db,
		sessionSecret: sessionSecret,
	}
}

// registerRequest is the body for POST /register. The registrationId
// field name matches the original form.
type registerRequest struct {
	Username       string `json:"username" form:"username"`
	Password       string `json:"password" form:"password"`
	RegistrationID string `json:"registrationId" form:"registrationId"`
}

// loginRequest is the body for POST /login.
type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// HandleRegister handles POST /register.
// The registration ID must equal the configured shared secret; every
// successful registrant becomes the (single) admin.
func (h *Handler) HandleRegister(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	userID, err := h.auth.Register(c.Request().Context(), req.Username, req.Password, req.RegistrationID)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"message": "registration successful",
		"userId":  userID,
	})
}

// HandleLogin handles POST /login.
// On success, sets the signed session cookie.
func (h *Handler) HandleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	session, err := h.auth.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return mapServiceError(c, err)
	}

	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    auth.SignToken(h.sessionSecret, session.Token),
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "login successful"})
}

// HandleLogout handles POST /logout.
// Destroys the server-side session and clears the cookie.
func (h *Handler) HandleLogout(c echo.Context) error {
	if cookie, err := c.Cookie(sessionCookieName); err == nil {
		if token, err := auth.VerifyCookieValue(h.sessionSecret, cookie.Value); err == nil {
			if err := h.auth.Logout(c.Request().Context(), token); err != nil {
				return mapServiceError(c, err)
			}
		}
	}

	c.SetCookie(&http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return c.JSON(http.StatusOK, echo.Map{"message": "logout successful"})
}

// HandleUpload handles POST /upload (admin only).
// Accepts a multipart form with a "musicFile" field plus the metadata
// fields title, artist, genre, and releaseDate.
func (h *Handler) HandleUpload(c echo.Context) error {
	fileHeader, err := c.FormFile("musicFile")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"error": "music file is required (use form field 'musicFile')",
		})
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{
			"error": "failed to read uploaded file",
		})
	}
	defer src.Close()

	req := catalog.UploadRequest{
		Title:       c.FormValue("title"),
		Artist:      c.FormValue("artist"),
		Genre:       c.FormValue("genre"),
		ReleaseDate: c.FormValue("releaseDate"),
	}

	track, err := h.catalog.Upload(
		c.Request().Context(),
		req,
		fileHeader.Filename,
		fileHeader.Header.Get(echo.HeaderContentType),
		src,
		fileHeader.Size,
	)
	if err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"id":          track.ID,
		"title":       track.Title,
		"artist":      track.Artist,
		"genre":       track.Genre,
		"releaseDate": track.ReleaseDate.Format("2006-01-02"),
		"filename":    track.StoredFilename,
		"uploadDate":  track.UploadDate,
		"downloads":   track.DownloadCount,
	})
}

// HandleListTracks handles GET /uploads.
// Returns the full catalog as a JSON array.
func (h *Handler) HandleListTracks(c echo.Context) error {
	tracks, err := h.catalog.List(c.Request().Context())
	if err != nil {
		return mapServiceError(c, err)
	}
	return c.JSON(http.StatusOK, tracks)
}

// HandleDownload handles GET /download/:filename.
// Streams the file and counts the download only after the full body has
// been written; an aborted transfer leaves the counter unchanged.
func (h *Handler) HandleDownload(c echo.Context) error {
	filename := c.Param("filename")

	dl, err := h.catalog.Download(c.Request().Context(), filename)
	if err != nil {
		return mapServiceError(c, err)
	}

	file, err := os.Open(dl.Path)
	if err != nil {
		slog.Error("failed to open track file", "path", dl.Path, "error", err)
		return c.JSON(http.StatusNotFound, echo.Map{"error": "track not found"})
	}
	defer file.Close()

	res := c.Response()
	res.Header().Set(echo.HeaderContentType, contentTypeForFile(dl.Path))
	res.Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", dl.DisplayName))
	if info, err := file.Stat(); err == nil {
		res.Header().Set(echo.HeaderContentLength, strconv.FormatInt(info.Size(), 10))
	}
	res.WriteHeader(http.StatusOK)

	if _, err := io.Copy(res, file); err != nil {
		// Headers are already out; all we can do is skip the count.
		slog.Warn("download transfer aborted", "track_id", dl.TrackID, "error", err)
		return nil
	}

	// The request context dies as soon as the client hangs up, and a
	// client with the full body often hangs up immediately. The count
	// must still be recorded.
	if err := h.catalog.CompleteDownload(context.WithoutCancel(c.Request().Context()), dl.TrackID); err != nil {
		slog.Error("failed to record download", "track_id", dl.TrackID, "error", err)
	}

	return nil
}

// HandleDelete handles POST /delete-music/:id (admin only).
// Removes the catalog row; the stored file stays on disk.
func (h *Handler) HandleDelete(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "track not found"})
	}

	if err := h.catalog.Delete(c.Request().Context(), id); err != nil {
		return mapServiceError(c, err)
	}

	return c.JSON(http.StatusOK, echo.Map{"message": "track deleted successfully"})
}

// HandleHealth handles GET /health.
// Returns the health status of the server, including database connectivity.
func (h *Handler) HandleHealth(c echo.Context) error {
	status := "healthy"
	dbStatus := "connected"

	if err := h.db.HealthCheck(c.Request().Context()); err != nil {
		status = "degraded"
		dbStatus = fmt.Sprintf("error: %v", err)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"status":   status,
		"database": dbStatus,
	})
}

// mapServiceError translates service-layer errors into appropriate HTTP responses.
func mapServiceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidRegistrationCode):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid registration ID"})
	case errors.Is(err, auth.ErrMissingCredentials):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username and password are required"})
	case errors.Is(err, auth.ErrUsernameTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": "username already taken"})
	case errors.Is(err, auth.ErrRegistrationCodeUsed):
		return c.JSON(http.StatusConflict, echo.Map{"error": "registration ID already used"})
	case errors.Is(err, auth.ErrInvalidCredentials):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid username or password"})
	case errors.Is(err, auth.ErrUnauthenticated):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
	case errors.Is(err, catalog.ErrTrackNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "track not found"})
	case errors.Is(err, catalog.ErrUnsupportedFileType):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "only mp3 and wav music files are accepted"})
	case errors.Is(err, catalog.ErrFileTooLarge):
		return c.JSON(http.StatusRequestEntityTooLarge, echo.Map{
			"error": "file exceeds maximum allowed size",
		})
	case errors.Is(err, catalog.ErrMissingField):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, catalog.ErrInvalidReleaseDate):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	default:
		slog.Error("request failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
}

// contentTypeForFile picks the response content type from the stored
// file's extension.
func contentTypeForFile(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	default:
		return "application/octet-stream"
	}
}
