package service

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// SourceFetcher resolves a document's source URI to its raw bytes.
type SourceFetcher interface {
	Fetch(ctx context.Context, sourceURI string) ([]byte, error)
}

// FileFetcher reads documents from the local filesystem. Accepts file://
// URIs and bare paths.
type FileFetcher struct{}

// NewFileFetcher creates a filesystem-backed source fetcher.
func NewFileFetcher() *FileFetcher {
	return &FileFetcher{}
}

// Fetch reads the file the URI points at.
func (f *FileFetcher) Fetch(_ context.Context, sourceURI string) ([]byte, error) {
	path := sourceURI
	if strings.Contains(sourceURI, "://") {
		u, err := url.Parse(sourceURI)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid source URI %q", ErrInvalidInput, sourceURI)
		}
		if u.Scheme != "file" {
			return nil, fmt.Errorf("%w: unsupported source URI scheme %q", ErrInvalidInput, u.Scheme)
		}
		path = u.Path
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source %q: %w", sourceURI, err)
	}
	return data, nil
}
