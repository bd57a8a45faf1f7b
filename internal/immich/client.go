package immich

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/lehigh-university-libraries/snapshot/internal/config"
	"github.com/lehigh-university-libraries/snapshot/internal/models"
)

// ErrNotConfigured is returned when a required setting is missing.
var ErrNotConfigured = errors.New("immich is not configured")

// timestampLayout is ISO-8601 with milliseconds in UTC
const timestampLayout = "2006-01-02T15:04:05.000Z"

// Client talks to an Immich-compatible asset service
type Client struct {
	BaseURL  string
	APIKey   string
	AlbumID  string
	DeviceID string

	httpClient *http.Client
}

// NewClient creates a new asset service client
func NewClient(cfg config.Immich) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		APIKey:   cfg.APIKey,
		AlbumID:  cfg.AlbumID,
		DeviceID: cfg.DeviceID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) configured() bool {
	return c.BaseURL != "" && c.APIKey != "" && c.AlbumID != "" && c.DeviceID != ""
}

// NewJob derives the upload metadata for a saved photo from its file on disk.
func (c *Client) NewJob(path string) (*models.MirrorJob, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	filename := filepath.Base(path)
	mtime := info.ModTime().UTC()
	return &models.MirrorJob{
		Filename:       filename,
		Path:           path,
		AlbumID:        c.AlbumID,
		DeviceAssetID:  fmt.Sprintf("%s-%d", filename, mtime.Unix()),
		FileCreatedAt:  mtime.Format(timestampLayout),
		FileModifiedAt: mtime.Format(timestampLayout),
	}, nil
}

// Mirror uploads the photo at path and attaches it to the configured album.
func (c *Client) Mirror(ctx context.Context, path string) (string, error) {
	if !c.configured() {
		return "", ErrNotConfigured
	}
	job, err := c.NewJob(path)
	if err != nil {
		return "", err
	}
	assetID, err := c.UploadAsset(ctx, job)
	if err != nil {
		return "", err
	}
	if err := c.AddToAlbum(ctx, job.AlbumID, assetID); err != nil {
		return assetID, err
	}
	return assetID, nil
}

// UploadAsset sends the file as a multipart upload and returns the asset id.
func (c *Client) UploadAsset(ctx context.Context, job *models.MirrorJob) (string, error) {
	f, err := os.Open(job.Path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", job.Path, err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	partHeader := make(textproto.MIMEHeader)
	partHeader.Set("Content-Disposition", fmt.Sprintf(`form-data; name="assetData"; filename="%s"`, job.Filename))
	partHeader.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(partHeader)
	if err != nil {
		return "", fmt.Errorf("failed to create asset part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("failed to copy asset data: %w", err)
	}

	fields := [][2]string{
		{"deviceAssetId", job.DeviceAssetID},
		{"deviceId", c.DeviceID},
		{"fileCreatedAt", job.FileCreatedAt},
		{"fileModifiedAt", job.FileModifiedAt},
		{"isFavorite", "false"},
	}
	for _, field := range fields {
		if err := mw.WriteField(field[0], field[1]); err != nil {
			return "", fmt.Errorf("failed to write field %s: %w", field[0], err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("failed to finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/assets", &body)
	if err != nil {
		return "", fmt.Errorf("failed to create upload request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("x-api-key", c.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload asset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("asset upload returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var asset struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&asset); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	if asset.ID == "" {
		return "", fmt.Errorf("asset upload response has no id")
	}
	return asset.ID, nil
}

// AddToAlbum attaches an uploaded asset to an album.
func (c *Client) AddToAlbum(ctx context.Context, albumID, assetID string) error {
	payload, err := json.Marshal(map[string][]string{"ids": {assetID}})
	if err != nil {
		return fmt.Errorf("failed to marshal album request: %w", err)
	}

	albumURL := fmt.Sprintf("%s/albums/%s/assets", c.BaseURL, url.PathEscape(albumID))
	req, err := http.NewRequestWithContext(ctx, "PUT", albumURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create album request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to add asset to album: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("album update returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// AlbumURL returns the web URL of the configured album, used for QR codes.
func (c *Client) AlbumURL() (string, error) {
	if c.BaseURL == "" || c.AlbumID == "" {
		return "", ErrNotConfigured
	}
	base := strings.TrimSuffix(c.BaseURL, "/api")
	base = strings.TrimRight(base, "/")
	return fmt.Sprintf("%s/albums/%s", base, c.AlbumID), nil
}
