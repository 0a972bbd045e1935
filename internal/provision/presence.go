package provision

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// lfsPointerPrefix opens every Git LFS pointer file.
const lfsPointerPrefix = "version https://git-lfs.github.com/spec/v1"

// Pointer files are tiny; anything larger is real content.
const maxPointerSize = 1024

// FileState describes a required file on disk.
type FileState string

const (
	StatePresent    FileState = "present"
	StateMissing    FileState = "missing"
	StateLFSPointer FileState = "lfs_pointer"
	StateNotRegular FileState = "not_regular"
)

// FileStatus is the presence result for one required file.
type FileStatus struct {
	Name  string
	Path  string
	State FileState
	Size  int64
	Err   error
}

// Present reports whether the file satisfies the requirement.
func (s FileStatus) Present() bool {
	return s.State == StatePresent
}

// Inspect reports the state of each required file under dir in order.
// When pointersMissing is set, un-smudged Git LFS pointer files count as
// missing.
func Inspect(dir string, required []string, pointersMissing bool) []FileStatus {
	statuses := make([]FileStatus, 0, len(required))
	for _, name := range required {
		statuses = append(statuses, inspectFile(dir, name, pointersMissing))
	}
	return statuses
}

// Check returns the required filenames not present under dir.
func Check(dir string, required []string, pointersMissing bool) []string {
	var missing []string
	for _, status := range Inspect(dir, required, pointersMissing) {
		if !status.Present() {
			missing = append(missing, status.Name)
		}
	}
	return missing
}

func inspectFile(dir, name string, pointersMissing bool) FileStatus {
	path := filepath.Join(dir, name)
	status := FileStatus{Name: name, Path: path, State: StateMissing}
	info, err := os.Stat(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			status.Err = err
		}
		return status
	}
	if !info.Mode().IsRegular() {
		status.State = StateNotRegular
		return status
	}
	status.Size = info.Size()
	status.State = StatePresent
	if pointersMissing && info.Size() < maxPointerSize {
		pointer, err := IsLFSPointer(path)
		if err != nil {
			status.Err = err
		}
		if pointer {
			status.State = StateLFSPointer
		}
	}
	return status
}

// IsLFSPointer reports whether path holds a Git LFS pointer instead of content.
func IsLFSPointer(path string) (bool, error) {
	file, err := os.Open(path)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()
	head := make([]byte, len(lfsPointerPrefix))
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	return bytes.Equal(head[:n], []byte(lfsPointerPrefix)), nil
}
