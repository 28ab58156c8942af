package repository

import (
	"context"
	"fmt"
	"os"
	"pipegen-cli/internal/domain"
	"strings"

	"go.uber.org/zap"
)

// Fetch methods for remote repositories
const (
	MethodClone = "clone"
	MethodAPI   = "api"
)

// Resolver picks a repository source for each request: existing local
// directories are used in place, remotes are cloned or downloaded through
// the API depending on the configured method
type Resolver struct {
	local  domain.RepositorySource
	clone  domain.RepositorySource
	api    domain.RepositorySource
	method string
	logger *zap.Logger
}

// NewResolver creates a dispatching repository source. api may be nil when
// no GitLab client is configured.
func NewResolver(local, clone, api domain.RepositorySource, method string, logger *zap.Logger) *Resolver {
	if method == "" {
		method = MethodClone
	}
	return &Resolver{local: local, clone: clone, api: api, method: method, logger: logger}
}

// Fetch materializes source using the matching strategy
func (r *Resolver) Fetch(ctx context.Context, source, ref string) (string, func(), error) {
	if source == "" {
		return "", nil, fmt.Errorf("%w: empty repository source", domain.ErrInvalidInput)
	}

	if !IsRemote(source) {
		if _, err := os.Stat(source); err != nil {
			return "", nil, fmt.Errorf("failed to access repository %s: %w", source, err)
		}
		r.logger.Debug("Using local repository", zap.String("path", source))
		return r.local.Fetch(ctx, source, ref)
	}

	if r.method == MethodAPI {
		if r.api == nil {
			return "", nil, fmt.Errorf("%w: api fetch method requires a GitLab token", domain.ErrInvalidInput)
		}
		r.logger.Debug("Downloading repository tree", zap.String("repo", source))
		return r.api.Fetch(ctx, source, ref)
	}

	r.logger.Debug("Cloning remote repository", zap.String("repo", source))
	return r.clone.Fetch(ctx, source, ref)
}

// IsRemote reports whether source names a remote repository rather than a
// local path
func IsRemote(source string) bool {
	for _, prefix := range []string{"https://", "http://", "ssh://", "git://", "git@"} {
		if strings.HasPrefix(source, prefix) {
			return true
		}
	}
	return false
}
