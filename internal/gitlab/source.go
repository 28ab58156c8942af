package gitlab

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"pipegen-cli/internal/domain"
	"pipegen-cli/internal/patterns"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Default limits for tree downloads
const (
	DefaultMaxParallel = 5
	DefaultMaxFiles    = 2000
)

// TreeSource materializes a repository by downloading its files through the
// API, for hosts where cloning is not possible
type TreeSource struct {
	client      domain.GitlabClient
	maxParallel int
	maxFiles    int
	logger      *zap.Logger
}

// NewTreeSource creates a tree-download repository source
func NewTreeSource(client domain.GitlabClient, maxParallel, maxFiles int, logger *zap.Logger) *TreeSource {
	if maxParallel <= 0 {
		maxParallel = DefaultMaxParallel
	}
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	return &TreeSource{client: client, maxParallel: maxParallel, maxFiles: maxFiles, logger: logger}
}

// Fetch downloads the files of source at ref into a temporary directory.
// Files under excluded directories are skipped, and so are files that fail
// to download. The token must be accepted and listing the tree must succeed.
func (s *TreeSource) Fetch(ctx context.Context, source, ref string) (string, func(), error) {
	if err := s.client.CheckPermissions(ctx); err != nil {
		return "", nil, fmt.Errorf("failed to access GitLab: %w", err)
	}

	files, err := s.client.GetFilesList(ctx, source, ref)
	if err != nil {
		return "", nil, fmt.Errorf("failed to list repository files: %w", err)
	}

	selected := make([]string, 0, len(files))
	for _, f := range files {
		if wanted(f) {
			selected = append(selected, f)
		}
	}
	if len(selected) > s.maxFiles {
		s.logger.Warn("Repository tree truncated",
			zap.String("repo", source),
			zap.Int("files", len(selected)),
			zap.Int("max_files", s.maxFiles))
		selected = selected[:s.maxFiles]
	}

	dir, err := os.MkdirTemp("", "pipegen-tree-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxParallel)
	for _, rel := range selected {
		g.Go(func() error {
			content, err := s.client.GetFileContent(gctx, source, ref, rel)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				s.logger.Warn("Skipping file that failed to download", zap.String("file", rel), zap.Error(err))
				return nil
			}
			target := filepath.Join(dir, filepath.FromSlash(rel))
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return fmt.Errorf("failed to create directory for %s: %w", rel, err)
			}
			if err := os.WriteFile(target, content, 0o644); err != nil {
				return fmt.Errorf("failed to write %s: %w", rel, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to download repository tree: %w", err)
	}

	s.logger.Info("Repository tree downloaded",
		zap.String("repo", source),
		zap.Int("files", len(selected)),
		zap.Int64("failed", failed.Load()))

	return dir, cleanup, nil
}

// wanted keeps local paths outside excluded and hidden directories
func wanted(rel string) bool {
	if !filepath.IsLocal(filepath.FromSlash(rel)) {
		return false
	}
	parts := strings.Split(rel, "/")
	for _, dir := range parts[:len(parts)-1] {
		if patterns.ExcludedDirs[dir] {
			return false
		}
		if strings.HasPrefix(dir, ".") && !patterns.AllowedHiddenDirs[dir] {
			return false
		}
	}
	return true
}
