package classifier

import (
	"context"
	"path/filepath"
	"pipegen-cli/internal/domain"
	"pipegen-cli/internal/patterns"
	"strings"

	"go.uber.org/zap"
)

// Framework categories
const (
	CategoryMobile   = "mobile"
	CategoryBackend  = "backend"
	CategoryFrontend = "frontend"
)

// categoryOrder decides ties: a framework listed in several categories
// belongs to the first one here
var categoryOrder = []string{CategoryMobile, CategoryBackend, CategoryFrontend}

// Classifier assigns frameworks to exactly one of frontend, backend or
// mobile, and filters languages through the allow-list
type Classifier struct {
	categories map[string][]string
	logger     *zap.Logger
}

// NewClassifier creates a classifier from the built-in framework sets plus
// extra patterns per category. Patterns may be exact names, wildcards
// ("@company/*"), prefixes ("company-") or suffixes (".company").
func NewClassifier(extra map[string][]string, logger *zap.Logger) *Classifier {
	categories := map[string][]string{
		CategoryMobile:   append([]string{}, patterns.MobileFrameworks...),
		CategoryBackend:  append([]string{}, patterns.BackendFrameworks...),
		CategoryFrontend: append([]string{}, patterns.FrontendFrameworks...),
	}
	for category, list := range extra {
		if _, ok := categories[category]; !ok {
			logger.Warn("Ignoring unknown framework category", zap.String("category", category))
			continue
		}
		categories[category] = append(categories[category], list...)
	}
	return &Classifier{
		categories: categories,
		logger:     logger,
	}
}

// Category returns the category of a framework, or "" when unclassified
func (c *Classifier) Category(framework string) string {
	if framework == "" {
		return ""
	}
	// exact names first so that "react-native" is never taken for "react"
	for _, category := range categoryOrder {
		for _, pattern := range c.categories[category] {
			if framework == pattern {
				return category
			}
		}
	}
	for _, category := range categoryOrder {
		for _, pattern := range c.categories[category] {
			if c.matchesPattern(framework, pattern) {
				return category
			}
		}
	}
	return ""
}

// Classify returns a delta holding the frontend, backend and mobile
// partitions of frameworks
func (c *Classifier) Classify(ctx context.Context, frameworks []string) *domain.StackResult {
	delta := domain.NewStackResult()
	for _, fw := range frameworks {
		if ctx.Err() != nil {
			return delta
		}
		switch c.Category(fw) {
		case CategoryMobile:
			delta.AddMobileFramework(fw)
		case CategoryBackend:
			delta.AddBackendFramework(fw)
		case CategoryFrontend:
			delta.AddFrontendFramework(fw)
		default:
			c.logger.Debug("Framework left unclassified", zap.String("framework", fw))
		}
	}
	return delta
}

// FilterLanguages normalizes languages and splits them into allow-listed
// ones, in first-seen order, and dropped ones
func (c *Classifier) FilterLanguages(languages []string) (kept, dropped []string) {
	seen := map[string]bool{}
	for _, lang := range languages {
		normalized, ok := patterns.NormalizeLanguage(lang)
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		if !ok {
			c.logger.Info("Dropping unsupported language", zap.String("language", normalized))
			dropped = append(dropped, normalized)
			continue
		}
		kept = append(kept, normalized)
	}
	return kept, dropped
}

// matchesPattern checks if a name matches a given pattern
func (c *Classifier) matchesPattern(name, pattern string) bool {
	if name == pattern {
		return true
	}
	if c.matchesWildcardPattern(name, pattern) {
		return true
	}
	if c.matchesPrefixPattern(name, pattern) {
		return true
	}
	return c.matchesSuffixPattern(name, pattern)
}

// matchesWildcardPattern checks if name matches a wildcard pattern
func (c *Classifier) matchesWildcardPattern(name, pattern string) bool {
	if !strings.Contains(pattern, "*") {
		return false
	}

	matched, err := filepath.Match(pattern, name)
	return err == nil && matched
}

// matchesPrefixPattern checks if name matches a prefix pattern
func (c *Classifier) matchesPrefixPattern(name, pattern string) bool {
	if !strings.HasSuffix(pattern, "/") && !strings.HasSuffix(pattern, "-") {
		return false
	}
	return strings.HasPrefix(name, pattern)
}

// matchesSuffixPattern checks if name matches a suffix pattern
func (c *Classifier) matchesSuffixPattern(name, pattern string) bool {
	if !strings.HasPrefix(pattern, ".") && !strings.HasPrefix(pattern, "-") {
		return false
	}
	return strings.HasSuffix(name, pattern)
}
