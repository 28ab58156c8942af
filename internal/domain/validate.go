package domain

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// ErrInvalidInput marks malformed analysis or settings input
var ErrInvalidInput = errors.New("invalid input")

var identifierRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks analysis input before any composition work starts
func (a *StackAnalysis) Validate() error {
	if a == nil {
		return fmt.Errorf("%w: analysis is required", ErrInvalidInput)
	}
	for i, lang := range a.Languages {
		if strings.TrimSpace(lang) == "" {
			return fmt.Errorf("%w: languages[%d] is empty", ErrInvalidInput, i)
		}
	}
	for i, runner := range a.TestRunners {
		if strings.TrimSpace(runner) == "" {
			return fmt.Errorf("%w: test_runner[%d] is empty", ErrInvalidInput, i)
		}
	}
	for i, ep := range a.EntryPoints {
		if ep.FilePath == "" {
			return fmt.Errorf("%w: entry_points[%d] has no path", ErrInvalidInput, i)
		}
		if ep.Confidence < 0 || ep.Confidence > 1 {
			return fmt.Errorf("%w: entry_points[%d] confidence %.2f out of range", ErrInvalidInput, i, ep.Confidence)
		}
	}
	if strings.HasPrefix(a.DockerContext, "/") || strings.Contains(a.DockerContext, "..") {
		return fmt.Errorf("%w: docker_context must be a relative path inside the repository", ErrInvalidInput)
	}
	return nil
}

// Validate checks user settings and fills the platform default
func (s *UserSettings) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: settings are required", ErrInvalidInput)
	}
	if s.Platform == "" {
		s.Platform = PlatformGitLab
	}
	s.Platform = strings.ToLower(s.Platform)
	if s.Platform != PlatformGitLab && s.Platform != PlatformJenkins {
		return fmt.Errorf("%w: unsupported platform %q", ErrInvalidInput, s.Platform)
	}

	seen := make([]string, 0, len(s.Stages))
	for i, stage := range s.Stages {
		if strings.TrimSpace(stage) == "" {
			return fmt.Errorf("%w: stages[%d] is empty", ErrInvalidInput, i)
		}
		if slices.Contains(seen, stage) {
			return fmt.Errorf("%w: stage %q listed twice", ErrInvalidInput, stage)
		}
		seen = append(seen, stage)
	}

	if s.Triggers != nil {
		for i, branch := range s.Triggers.OnPush {
			if strings.TrimSpace(branch) == "" || strings.Contains(branch, `"`) {
				return fmt.Errorf("%w: triggers.on_push[%d] is not a valid branch name", ErrInvalidInput, i)
			}
		}
		if s.Triggers.OnTags != "" {
			if _, err := regexp.Compile(s.Triggers.OnTags); err != nil {
				return fmt.Errorf("%w: triggers.on_tags is not a valid pattern: %w", ErrInvalidInput, err)
			}
		}
	}

	for name := range s.Variables {
		if !identifierRe.MatchString(name) {
			return fmt.Errorf("%w: variable name %q is not a valid identifier", ErrInvalidInput, name)
		}
	}

	switch s.DeployTarget {
	case "", "ssh", "compose", "kubernetes":
	default:
		return fmt.Errorf("%w: unsupported deploy_target %q", ErrInvalidInput, s.DeployTarget)
	}
	return nil
}
