package kaggle_test

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"datasetup/internal/config"
	"datasetup/internal/logging"
	"datasetup/internal/services"
	"datasetup/internal/services/kaggle"
)

var required = []string{"Music Info.csv", "User Listening History.csv"}

func newConfig(t *testing.T, baseURL string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.CacheDir = t.TempDir()
	cfg.Kaggle.BaseURL = baseURL
	cfg.Kaggle.Dataset = "owner/songs"
	cfg.Kaggle.Username = "alice"
	cfg.Kaggle.Key = "secret"
	cfg.Kaggle.ConfigDir = t.TempDir()
	return &cfg
}

func buildArchive(t *testing.T, members map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range members {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("create zip entry: %v", err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("write zip entry: %v", err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func archiveServer(t *testing.T, archive []byte, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		user, key, ok := r.BasicAuth()
		if !ok || user != "alice" || key != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Path != "/datasets/download/owner/songs" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write(archive)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestAttemptDownloadsAndCopiesRequiredFiles(t *testing.T) {
	archive := buildArchive(t, map[string]string{
		"Music Info.csv":                    "track_id,name\n1,Song\n",
		"nested/User Listening History.csv": "track_id,user_id,playcount\n1,u1,3\n",
		"README.md":                         "ignored",
	})
	var hits atomic.Int32
	server := archiveServer(t, archive, &hits)
	cfg := newConfig(t, server.URL)
	target := t.TempDir()

	method := kaggle.NewMethod(cfg, logging.NewNop())
	if err := method.Attempt(context.Background(), target, required); err != nil {
		t.Fatalf("Attempt returned error: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(target, "User Listening History.csv"))
	if err != nil {
		t.Fatalf("expected nested member to be copied: %v", err)
	}
	if !strings.HasPrefix(string(data), "track_id,user_id") {
		t.Fatalf("unexpected content: %q", data)
	}
	if _, err := os.Stat(filepath.Join(target, "Music Info.csv")); err != nil {
		t.Fatalf("expected Music Info.csv: %v", err)
	}
	if _, err := os.Stat(filepath.Join(target, "README.md")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected unrelated member to be skipped, got %v", err)
	}

	// A second run in a fresh target reuses the cached extraction.
	if err := method.Attempt(context.Background(), t.TempDir(), required); err != nil {
		t.Fatalf("second Attempt returned error: %v", err)
	}
	if got := hits.Load(); got != 1 {
		t.Fatalf("expected cached reuse, got %d downloads", got)
	}
}

func TestAttemptForceDownloadBypassesCache(t *testing.T) {
	archive := buildArchive(t, map[string]string{
		"Music Info.csv":             "a",
		"User Listening History.csv": "b",
	})
	var hits atomic.Int32
	server := archiveServer(t, archive, &hits)
	cfg := newConfig(t, server.URL)
	cfg.Kaggle.ForceDownload = true

	method := kaggle.NewMethod(cfg, logging.NewNop())
	for i := 0; i < 2; i++ {
		if err := method.Attempt(context.Background(), t.TempDir(), required); err != nil {
			t.Fatalf("Attempt %d returned error: %v", i, err)
		}
	}
	if got := hits.Load(); got != 2 {
		t.Fatalf("expected two downloads, got %d", got)
	}
}

func TestAttemptUsesCachedArchive(t *testing.T) {
	archive := buildArchive(t, map[string]string{
		"Music Info.csv":             "cached-a",
		"User Listening History.csv": "cached-b",
	})
	tests := []struct {
		name     string
		cached   []byte
		wantHits int32
	}{
		{name: "incomplete extraction re-extracts", cached: archive, wantHits: 0},
		{name: "corrupt archive downloads again", cached: []byte("not a zip archive"), wantHits: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var hits atomic.Int32
			server := archiveServer(t, archive, &hits)
			method := kaggle.NewMethod(newConfig(t, server.URL), logging.NewNop())

			filesDir := filepath.Join(method.DatasetDir(), "files")
			if err := os.MkdirAll(filesDir, 0o755); err != nil {
				t.Fatalf("mkdir cache: %v", err)
			}
			if err := os.WriteFile(filepath.Join(filesDir, "Music Info.csv"), []byte("cached-a"), 0o644); err != nil {
				t.Fatalf("seed extraction: %v", err)
			}
			if err := os.WriteFile(filepath.Join(method.DatasetDir(), "archive.zip"), tc.cached, 0o644); err != nil {
				t.Fatalf("seed archive: %v", err)
			}

			target := t.TempDir()
			if err := method.Attempt(context.Background(), target, required); err != nil {
				t.Fatalf("Attempt returned error: %v", err)
			}
			if got := hits.Load(); got != tc.wantHits {
				t.Fatalf("expected %d downloads, got %d", tc.wantHits, got)
			}
			data, err := os.ReadFile(filepath.Join(target, "User Listening History.csv"))
			if err != nil || string(data) != "cached-b" {
				t.Fatalf("expected extracted member in target, got %q (err=%v)", data, err)
			}
		})
	}
}

func TestAttemptToleratesMissingMember(t *testing.T) {
	archive := buildArchive(t, map[string]string{"Music Info.csv": "a"})
	var hits atomic.Int32
	server := archiveServer(t, archive, &hits)
	cfg := newConfig(t, server.URL)
	target := t.TempDir()

	if err := kaggle.NewMethod(cfg, logging.NewNop()).Attempt(context.Background(), target, required); err != nil {
		t.Fatalf("expected missing member to be tolerated, got %v", err)
	}
	if _, err := os.Stat(filepath.Join(target, "Music Info.csv")); err != nil {
		t.Fatalf("expected present member to be copied: %v", err)
	}
	if _, err := os.Stat(filepath.Join(target, "User Listening History.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected absent member to stay absent, got %v", err)
	}
}

func TestAttemptUnavailableWithoutCredentials(t *testing.T) {
	cfg := newConfig(t, "http://127.0.0.1:1")
	cfg.Kaggle.Username = ""
	cfg.Kaggle.Key = ""

	method := kaggle.NewMethod(cfg, logging.NewNop())
	err := method.Attempt(context.Background(), t.TempDir(), required)
	if !services.IsUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
	if !services.IsUnavailable(method.Probe()) {
		t.Fatal("expected Probe to report unavailable")
	}
}

func TestAttemptUnavailableWhenDisabled(t *testing.T) {
	cfg := newConfig(t, "http://127.0.0.1:1")
	cfg.Kaggle.Enabled = false

	if err := kaggle.NewMethod(cfg, logging.NewNop()).Attempt(context.Background(), t.TempDir(), required); !services.IsUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestResolveCredentialsFromFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "kaggle.json"), []byte(`{"username":" bob ","key":"k1"}`), 0o600); err != nil {
		t.Fatalf("write kaggle.json: %v", err)
	}

	creds, source, err := kaggle.ResolveCredentials(config.Kaggle{ConfigDir: dir})
	if err != nil {
		t.Fatalf("ResolveCredentials returned error: %v", err)
	}
	if creds.Username != "bob" || creds.Key != "k1" {
		t.Fatalf("unexpected credentials: %+v", creds)
	}
	if source != filepath.Join(dir, "kaggle.json") {
		t.Fatalf("unexpected source: %q", source)
	}
}

func TestResolveCredentialsRejectsIncompleteFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "kaggle.json"), []byte(`{"username":"bob"}`), 0o600); err != nil {
		t.Fatalf("write kaggle.json: %v", err)
	}
	if _, _, err := kaggle.ResolveCredentials(config.Kaggle{ConfigDir: dir}); !services.IsUnavailable(err) {
		t.Fatalf("expected unavailable error, got %v", err)
	}
}

func TestDownloadMapsHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		marker error
		text   string
	}{
		{status: http.StatusUnauthorized, marker: services.ErrConfiguration, text: "credentials"},
		{status: http.StatusForbidden, marker: services.ErrConfiguration, text: "credentials"},
		{status: http.StatusNotFound, marker: services.ErrNotFound, text: "not found"},
		{status: http.StatusInternalServerError, marker: services.ErrTransient, text: "unexpected status 500"},
		{status: http.StatusTeapot, marker: services.ErrExternalTool, text: "unexpected status 418"},
	}

	for _, tc := range tests {
		t.Run(http.StatusText(tc.status), func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tc.status)
			}))
			defer server.Close()

			client := kaggle.NewClient(server.URL, kaggle.Credentials{Username: "a", Key: "b"}, 0)
			dest := filepath.Join(t.TempDir(), "archive.zip")
			_, err := client.Download(context.Background(), "owner/songs", dest)
			if !errors.Is(err, tc.marker) {
				t.Fatalf("expected marker %v, got %v", tc.marker, err)
			}
			if !strings.Contains(err.Error(), tc.text) {
				t.Fatalf("expected %q in %v", tc.text, err)
			}
			if _, statErr := os.Stat(dest); !errors.Is(statErr, os.ErrNotExist) {
				t.Fatalf("expected no archive on failure, got %v", statErr)
			}
		})
	}
}

func TestDownloadURLTrimsSlashes(t *testing.T) {
	client := kaggle.NewClient("https://example.test/api/v1/", kaggle.Credentials{}, 0)
	if got := client.DownloadURL("/owner/songs/"); got != "https://example.test/api/v1/datasets/download/owner/songs" {
		t.Fatalf("unexpected url: %q", got)
	}
}
