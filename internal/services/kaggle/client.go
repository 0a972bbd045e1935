package kaggle

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"datasetup/internal/services"
)

const (
	defaultBaseURL         = "https://www.kaggle.com/api/v1"
	defaultDownloadTimeout = 30 * time.Minute
	userAgent              = "datasetup"
)

// Client talks to the Kaggle REST API.
type Client struct {
	baseURL string
	creds   Credentials
	http    *http.Client
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client (primarily for tests).
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// NewClient constructs a Kaggle API client. The timeout bounds each request.
func NewClient(baseURL string, creds Credentials, timeout time.Duration, opts ...ClientOption) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultDownloadTimeout
	}
	client := &Client{
		baseURL: baseURL,
		creds:   creds,
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// DownloadURL returns the archive endpoint for an owner/slug dataset identifier.
func (c *Client) DownloadURL(dataset string) string {
	return c.baseURL + "/datasets/download/" + strings.Trim(dataset, "/")
}

// Download streams the dataset archive to dest, replacing it atomically.
// It returns the number of bytes written.
func (c *Client) Download(ctx context.Context, dataset, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.DownloadURL(dataset), nil)
	if err != nil {
		return 0, services.Wrap(services.ErrConfiguration, "kaggle", "build request", "invalid download url", err)
	}
	req.SetBasicAuth(c.creds.Username, c.creds.Key)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return 0, services.Wrap(services.ErrTimeout, "kaggle", "download", "request timed out", err)
		}
		return 0, services.Wrap(services.ErrTransient, "kaggle", "download", "request failed", err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode, dataset); err != nil {
		return 0, err
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("create cache directory: %w", err)
	}
	tempPath := dest + ".partial"
	file, err := os.Create(tempPath)
	if err != nil {
		return 0, fmt.Errorf("create archive temp file: %w", err)
	}
	written, copyErr := io.Copy(file, resp.Body)
	closeErr := file.Close()
	if copyErr != nil {
		os.Remove(tempPath)
		return 0, services.Wrap(services.ErrTransient, "kaggle", "download", "read response body", copyErr)
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return 0, fmt.Errorf("close archive temp file: %w", closeErr)
	}
	if err := os.Rename(tempPath, dest); err != nil {
		os.Remove(tempPath)
		return 0, fmt.Errorf("replace cached archive: %w", err)
	}
	return written, nil
}

func statusError(code int, dataset string) error {
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return services.Wrap(services.ErrConfiguration, "kaggle", "download",
			fmt.Sprintf("credentials rejected (status %d); check the Kaggle username and API key", code), nil)
	case code == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, "kaggle", "download",
			fmt.Sprintf("dataset %q not found", dataset), nil)
	case code == http.StatusTooManyRequests || code >= 500:
		return services.Wrap(services.ErrTransient, "kaggle", "download",
			fmt.Sprintf("unexpected status %d", code), nil)
	default:
		return services.Wrap(services.ErrExternalTool, "kaggle", "download",
			fmt.Sprintf("unexpected status %d", code), nil)
	}
}
