package core

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path"
	"path/filepath"
)

// ErrInvalidURL is returned when the page URL is not an absolute http(s) URL.
var ErrInvalidURL = errors.New("invalid URL")

// NetworkError reports a failed fetch: either a transport error or a
// non-2xx status.
type NetworkError struct {
	URL        string
	StatusCode int // 0 when no response was received
	Err        error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("error while loading '%s': %s", path.Base(e.URL), e.reason())
}

func (e *NetworkError) reason() string {
	if e.StatusCode != 0 {
		if text := http.StatusText(e.StatusCode); text != "" {
			return fmt.Sprintf("%d %s", e.StatusCode, text)
		}
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "unknown error"
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ResourceFetchError is a failed download of a single page resource.
// It never aborts the page.
type ResourceFetchError struct {
	Kind Kind
	URL  string
	Err  error
}

func (e *ResourceFetchError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Kind, e.URL, e.Err)
}

func (e *ResourceFetchError) Unwrap() error { return e.Err }

// FileSystemError is a failed mkdir or write.
type FileSystemError struct {
	Op   string
	Path string
	Err  error
}

func (e *FileSystemError) Error() string {
	dir := filepath.Dir(e.Path)
	switch {
	case errors.Is(e.Err, fs.ErrNotExist):
		return fmt.Sprintf("the directory %s doesn't exist", dir)
	case errors.Is(e.Err, fs.ErrPermission):
		return fmt.Sprintf("access to the directory %s is denied", dir)
	default:
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
}

func (e *FileSystemError) Unwrap() error { return e.Err }
