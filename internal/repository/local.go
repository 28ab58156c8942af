package repository

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// LocalSource serves repositories that already exist on disk
type LocalSource struct{}

// NewLocalSource creates a local directory source
func NewLocalSource() *LocalSource {
	return &LocalSource{}
}

// Fetch returns the absolute path of source. The ref is ignored and the
// cleanup function never removes anything.
func (s *LocalSource) Fetch(_ context.Context, source, _ string) (string, func(), error) {
	abs, err := filepath.Abs(source)
	if err != nil {
		return "", nil, fmt.Errorf("failed to resolve path %s: %w", source, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", nil, fmt.Errorf("failed to access repository %s: %w", abs, err)
	}
	if !info.IsDir() {
		return "", nil, fmt.Errorf("repository path %s is not a directory", abs)
	}
	return abs, func() {}, nil
}
