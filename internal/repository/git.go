package repository

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrCloneFailed wraps every failure of the clone subprocess
var ErrCloneFailed = errors.New("clone failed")

// Clone defaults
const (
	DefaultCloneTimeout = 5 * time.Minute
	DefaultCloneDepth   = 1
)

// GitSource shallow-clones remote repositories into temporary directories
type GitSource struct {
	token   string
	timeout time.Duration
	depth   int
	pool    *Pool
	logger  *zap.Logger
}

// NewGitSource creates a clone-based source. token, when set, is used as
// oauth2 credentials for https remotes.
func NewGitSource(token string, timeout time.Duration, depth int, pool *Pool, logger *zap.Logger) *GitSource {
	if timeout <= 0 {
		timeout = DefaultCloneTimeout
	}
	if depth <= 0 {
		depth = DefaultCloneDepth
	}
	return &GitSource{token: token, timeout: timeout, depth: depth, pool: pool, logger: logger}
}

// Fetch clones source at ref (the remote default branch when empty) and
// returns the checkout directory with a cleanup that removes it
func (s *GitSource) Fetch(ctx context.Context, source, ref string) (string, func(), error) {
	dir, err := os.MkdirTemp("", "pipegen-clone-*")
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	cleanup := func() {
		if err := os.RemoveAll(dir); err != nil {
			s.logger.Warn("Failed to remove clone directory", zap.String("dir", dir), zap.Error(err))
		}
	}

	args := []string{"clone", "--depth", strconv.Itoa(s.depth), "--single-branch"}
	if ref != "" {
		args = append(args, "--branch", ref)
	}
	args = append(args, WithToken(source, s.token), dir)

	s.logger.Info("Cloning repository",
		zap.String("repo", source),
		zap.String("ref", ref),
		zap.String("dir", dir))
	start := time.Now()

	err = s.pool.Run(ctx, func() error {
		cloneCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		cmd := exec.CommandContext(cloneCtx, "git", args...)
		cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
		var stderr bytes.Buffer
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			msg := Redact(strings.TrimSpace(stderr.String()), s.token)
			if errors.Is(cloneCtx.Err(), context.DeadlineExceeded) {
				return fmt.Errorf("%w: %s: timed out after %s", ErrCloneFailed, source, s.timeout)
			}
			return fmt.Errorf("%w: %s: %s: %v", ErrCloneFailed, source, msg, err)
		}
		return nil
	})
	if err != nil {
		cleanup()
		s.logger.Error("Failed to clone repository", zap.String("repo", source), zap.Error(err))
		if !errors.Is(err, ErrCloneFailed) {
			err = fmt.Errorf("%w: %s: %w", ErrCloneFailed, source, err)
		}
		return "", nil, err
	}

	s.logger.Info("Repository cloned",
		zap.String("repo", source),
		zap.Duration("duration", time.Since(start)))

	return dir, cleanup, nil
}

// WithToken embeds token as oauth2 credentials into an http(s) remote URL.
// Other URLs are returned unchanged.
func WithToken(rawURL, token string) string {
	if token == "" {
		return rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.User != nil {
		return rawURL
	}
	u.User = url.UserPassword("oauth2", token)
	return u.String()
}

// Redact removes token from text
func Redact(text, token string) string {
	if token == "" {
		return text
	}
	return strings.ReplaceAll(text, token, "***")
}
