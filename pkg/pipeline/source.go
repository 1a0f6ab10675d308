package pipeline

import (
	"context"
	"os"
	"path/filepath"

	"github.com/matzehuels/depview/pkg/errors"
)

// Source supplies a raw graph description. [client.Client] is the backend
// source; [FileSource] reads a local file.
type Source interface {
	// GraphURL identifies the description; it is also its cache key.
	GraphURL() string

	// FetchGraphRaw returns the undecoded description.
	FetchGraphRaw(ctx context.Context) ([]byte, error)
}

// FileSource reads a graph description from disk.
type FileSource struct {
	Path string
}

// GraphURL returns a file:// URL for the absolute path.
func (s FileSource) GraphURL() string {
	abs, err := filepath.Abs(s.Path)
	if err != nil {
		abs = s.Path
	}
	return "file://" + filepath.ToSlash(abs)
}

// FetchGraphRaw reads the file.
func (s FileSource) FetchGraphRaw(context.Context) ([]byte, error) {
	if err := errors.ValidatePath(s.Path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "graph file %s", s.Path)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "read graph file %s", s.Path)
	}
	return data, nil
}
