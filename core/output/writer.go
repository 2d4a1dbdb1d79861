// Package output handles directory creation and file writes for saved
// pages. Failures are reported as *core.FileSystemError.
package output

import (
	"errors"
	"io/fs"
	"os"

	"github.com/gaurav-prasanna/pageloader/core"
)

// Writer writes saved pages and resources to disk.
type Writer struct {
	DirPerm  fs.FileMode
	FilePerm fs.FileMode
}

// New creates a Writer with conventional permissions.
func New() *Writer {
	return &Writer{DirPerm: 0o755, FilePerm: 0o644}
}

// EnsureDir creates dir if it is missing. Its parent must exist. An
// existing directory, including one created concurrently, is success.
func (w *Writer) EnsureDir(dir string) error {
	err := os.Mkdir(dir, w.DirPerm)
	if err == nil || errors.Is(err, fs.ErrExist) {
		return nil
	}
	return &core.FileSystemError{Op: "mkdir", Path: dir, Err: err}
}

// Write replaces the file at path with data.
func (w *Writer) Write(path string, data []byte) error {
	if err := os.WriteFile(path, data, w.FilePerm); err != nil {
		return &core.FileSystemError{Op: "write", Path: path, Err: err}
	}
	return nil
}
