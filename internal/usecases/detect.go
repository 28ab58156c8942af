package usecases

import (
	"context"
	"errors"
	"fmt"
	"pipegen-cli/internal/domain"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const (
	// Default number of detection results kept per process
	defaultDetectCacheSize = 32
	// Default budget for fetching and scanning one repository
	defaultAnalysisTimeout = 10 * time.Minute
)

// ErrAnalysisTimeout is returned when fetching or scanning exceeds the budget
var ErrAnalysisTimeout = errors.New("analysis timed out")

// DetectUseCase fetches a repository and detects its technology stack
type DetectUseCase struct {
	source   domain.RepositorySource
	detector domain.StackDetector
	cache    *lru.Cache[string, *domain.StackResult]
	timeout  time.Duration
	logger   *zap.Logger
	ctx      context.Context
}

// NewDetectUseCase creates a new detect use case with dependency injection
func NewDetectUseCase(
	ctx context.Context,
	source domain.RepositorySource,
	detector domain.StackDetector,
	cacheSize int,
	timeout time.Duration,
	logger *zap.Logger,
) (*DetectUseCase, error) {
	if cacheSize <= 0 {
		cacheSize = defaultDetectCacheSize
	}
	if timeout <= 0 {
		timeout = defaultAnalysisTimeout
	}
	cache, err := lru.New[string, *domain.StackResult](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create detection cache: %w", err)
	}
	return &DetectUseCase{
		source:   source,
		detector: detector,
		cache:    cache,
		timeout:  timeout,
		logger:   logger,
		ctx:      ctx,
	}, nil
}

func cacheKey(source, ref string) string {
	return source + "@" + ref
}

// Execute detects the stack of source at ref. Results are cached per
// (source, ref) and callers receive their own copy.
func (uc *DetectUseCase) Execute(source, ref string) (*domain.StackResult, error) {
	key := cacheKey(source, ref)
	if cached, ok := uc.cache.Get(key); ok {
		uc.logger.Info("Using cached detection result", zap.String("repo", source), zap.String("ref", ref))
		return cached.Clone(), nil
	}

	uc.logger.Info("Starting stack detection", zap.String("repo", source), zap.String("ref", ref))
	start := time.Now()

	ctx, cancel := context.WithTimeout(uc.ctx, uc.timeout)
	defer cancel()

	dir, cleanup, err := uc.source.Fetch(ctx, source, ref)
	if err != nil {
		uc.logger.Error("Failed to fetch repository", zap.String("repo", source), zap.Error(err))
		return nil, uc.timeoutOr(ctx, fmt.Errorf("failed to fetch repository: %w", err))
	}
	defer cleanup()

	result, err := uc.detector.Detect(ctx, dir)
	if err != nil {
		uc.logger.Error("Failed to detect stack", zap.String("repo", source), zap.Error(err))
		return nil, uc.timeoutOr(ctx, fmt.Errorf("failed to detect stack: %w", err))
	}

	uc.cache.Add(key, result.Clone())

	uc.logger.Info("Stack detection completed",
		zap.String("repo", source),
		zap.Strings("languages", result.Languages),
		zap.Strings("frameworks", result.Frameworks),
		zap.Strings("test_runners", result.TestRunners),
		zap.Bool("docker", result.Docker),
		zap.Int("entry_points", len(result.EntryPoints)),
		zap.Duration("duration", time.Since(start)))

	return result, nil
}

// timeoutOr replaces err with ErrAnalysisTimeout when the budget ran out
func (uc *DetectUseCase) timeoutOr(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w after %s: %w", ErrAnalysisTimeout, uc.timeout, err)
	}
	return err
}
