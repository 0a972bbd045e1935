package kaggle

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
)

// extractMembers copies every archive member whose base name is in wanted into
// destDir and returns the names it found. Members are matched by base name so
// nested archive layouts still resolve.
func extractMembers(archivePath, destDir string, wanted []string) ([]string, error) {
	reader, err := zip.OpenReader(archivePath)
	if err != nil {
		return nil, fmt.Errorf("open dataset archive: %w", err)
	}
	defer reader.Close()

	want := make(map[string]struct{}, len(wanted))
	for _, name := range wanted {
		want[name] = struct{}{}
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return nil, fmt.Errorf("create extraction directory: %w", err)
	}

	var found []string
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		base := path.Base(file.Name)
		if _, ok := want[base]; !ok {
			continue
		}
		if err := extractFile(file, filepath.Join(destDir, base)); err != nil {
			return found, err
		}
		delete(want, base)
		found = append(found, base)
	}
	return found, nil
}

func extractFile(file *zip.File, dest string) error {
	rc, err := file.Open()
	if err != nil {
		return fmt.Errorf("open archive entry %s: %w", file.Name, err)
	}
	defer rc.Close()

	tempPath := dest + ".partial"
	out, err := os.Create(tempPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", tempPath, err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		os.Remove(tempPath)
		return fmt.Errorf("extract %s: %w", file.Name, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("close %s: %w", tempPath, err)
	}
	if err := os.Rename(tempPath, dest); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("finalize %s: %w", dest, err)
	}
	return nil
}
