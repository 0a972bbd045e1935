package kaggle

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"datasetup/internal/config"
	"datasetup/internal/fileutil"
	"datasetup/internal/logging"
	"datasetup/internal/services"
)

// MethodName identifies the Kaggle acquisition method.
const MethodName = config.MethodKaggle

const archiveName = "archive.zip"

// Method acquires dataset files through the Kaggle download API.
type Method struct {
	cfg      config.Kaggle
	cacheDir string
	timeout  time.Duration
	logger   *slog.Logger
	opts     []ClientOption
}

// NewMethod builds the Kaggle acquisition method from configuration.
func NewMethod(cfg *config.Config, logger *slog.Logger, opts ...ClientOption) *Method {
	return &Method{
		cfg:      cfg.Kaggle,
		cacheDir: cfg.KaggleCacheDir(),
		timeout:  cfg.KaggleTimeout(),
		logger:   logging.NewComponentLogger(logger, "kaggle"),
		opts:     opts,
	}
}

// Name returns the method identifier.
func (m *Method) Name() string { return MethodName }

// SetLogger swaps the logger used for the next attempt.
func (m *Method) SetLogger(logger *slog.Logger) {
	m.logger = logging.NewComponentLogger(logger, "kaggle")
}

// Probe reports why the method cannot run, or nil when it can.
func (m *Method) Probe() error {
	if !m.cfg.Enabled {
		return services.Unavailable("kaggle", "disabled in configuration", nil)
	}
	_, _, err := ResolveCredentials(m.cfg)
	return err
}

// DatasetDir returns the cache directory for the configured dataset.
func (m *Method) DatasetDir() string {
	return filepath.Join(m.cacheDir, filepath.FromSlash(m.cfg.Dataset))
}

// Attempt downloads the dataset when needed and copies the required members
// into targetDir. Members absent from the archive are logged, not returned as
// errors; the provisioner decides what is still missing.
func (m *Method) Attempt(ctx context.Context, targetDir string, required []string) error {
	if !m.cfg.Enabled {
		return services.Unavailable("kaggle", "disabled in configuration", nil)
	}
	creds, source, err := ResolveCredentials(m.cfg)
	if err != nil {
		return err
	}
	m.logger.Debug("kaggle credentials resolved", logging.String("source", source))

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	filesDir, err := m.fetch(ctx, creds, required)
	if err != nil {
		return err
	}

	for _, name := range required {
		src := filepath.Join(filesDir, name)
		ok, err := fileutil.IsRegularFile(src)
		if err != nil {
			return fmt.Errorf("inspect extracted %s: %w", name, err)
		}
		if !ok {
			logging.WarnWithContext(m.logger, "file missing from dataset archive", "archive_member_missing",
				logging.String("file", name),
				logging.String("dataset", m.cfg.Dataset),
				logging.String(logging.FieldImpact, "file must come from another method"),
			)
			continue
		}
		if err := fileutil.CopyFileAtomic(src, filepath.Join(targetDir, name)); err != nil {
			return fmt.Errorf("copy %s into target: %w", name, err)
		}
		m.logger.Info("copied dataset file", logging.String("file", name))
	}
	return nil
}

// fetch returns a directory holding the extracted required members, reusing
// the cache unless a forced download is configured.
func (m *Method) fetch(ctx context.Context, creds Credentials, required []string) (string, error) {
	datasetDir := m.DatasetDir()
	filesDir := filepath.Join(datasetDir, "files")
	archivePath := filepath.Join(datasetDir, archiveName)

	if !m.cfg.ForceDownload {
		if cachedAll(filesDir, required) {
			m.logger.Info("using cached dataset files", logging.String("path", filesDir))
			return filesDir, nil
		}
		if ok, _ := fileutil.IsRegularFile(archivePath); ok {
			m.logger.Info("using cached dataset archive", logging.String("path", archivePath))
			_, err := extractMembers(archivePath, filesDir, required)
			if err == nil {
				return filesDir, nil
			}
			m.logger.Warn("cached archive unusable; downloading again",
				logging.Error(err),
				logging.String(logging.FieldEventType, "archive_cache_invalid"),
			)
		}
	}

	client := NewClient(m.cfg.BaseURL, creds, m.timeout, m.opts...)
	m.logger.Info("downloading dataset",
		logging.String("dataset", m.cfg.Dataset),
		logging.String("url", client.DownloadURL(m.cfg.Dataset)),
	)
	start := time.Now()
	size, err := client.Download(ctx, m.cfg.Dataset, archivePath)
	if err != nil {
		return "", err
	}
	m.logger.Info("dataset downloaded",
		logging.Int64("bytes", size),
		logging.Duration("duration", time.Since(start)),
	)

	if err := os.RemoveAll(filesDir); err != nil {
		return "", fmt.Errorf("clear extraction directory: %w", err)
	}
	found, err := extractMembers(archivePath, filesDir, required)
	if err != nil {
		return "", services.Wrap(services.ErrExternalTool, "kaggle", "extract", "dataset archive unreadable", err)
	}
	m.logger.Debug("archive members extracted", logging.String("files", strings.Join(found, ", ")))
	return filesDir, nil
}

func cachedAll(dir string, required []string) bool {
	for _, name := range required {
		if ok, _ := fileutil.IsRegularFile(filepath.Join(dir, name)); !ok {
			return false
		}
	}
	return len(required) > 0
}
