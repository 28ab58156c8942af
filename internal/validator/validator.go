// Package validator statically checks generated pipelines. Every finding is
// reported as data in a ValidationResult; Validate never fails.
package validator

import (
	"context"
	"errors"
	"fmt"
	"pipegen-cli/internal/ciyaml"
	"pipegen-cli/internal/domain"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultLintTimeout bounds a single external lint call
const DefaultLintTimeout = 30 * time.Second

// Validator runs the static passes and, when a linter is configured, the
// remote CI lint. It is safe for concurrent use.
type Validator struct {
	linter      domain.PipelineLinter
	lintTimeout time.Duration
	logger      *zap.Logger
}

// NewValidator creates a validator. linter may be nil to skip external lint.
func NewValidator(linter domain.PipelineLinter, lintTimeout time.Duration, logger *zap.Logger) *Validator {
	if lintTimeout <= 0 {
		lintTimeout = DefaultLintTimeout
	}
	return &Validator{
		linter:      linter,
		lintTimeout: lintTimeout,
		logger:      logger,
	}
}

// Validate checks a GitLab CI document or a Jenkinsfile
func (v *Validator) Validate(ctx context.Context, text string) *domain.ValidationResult {
	result := domain.NewValidationResult()

	if IsJenkinsfile(text) {
		v.validateJenkins(text, result)
	} else {
		v.validateGitLab(ctx, text, result)
	}

	result.IsValid = len(result.YAMLErrors) == 0 &&
		len(result.Errors) == 0 &&
		len(result.SecurityIssues) == 0 &&
		len(result.CircularDependencies) == 0 &&
		len(result.MissingDependencies) == 0 &&
		len(result.ExternalLintErrors) == 0

	v.logger.Info("Validation complete",
		zap.Bool("valid", result.IsValid),
		zap.Int("errors", len(result.Errors)),
		zap.Int("warnings", len(result.Warnings)),
		zap.Int("security_issues", len(result.SecurityIssues)))

	return result
}

func (v *Validator) validateGitLab(ctx context.Context, text string, result *domain.ValidationResult) {
	root, err := ciyaml.Parse([]byte(text))
	if err != nil {
		if errors.Is(err, ciyaml.ErrNotMapping) {
			result.Errors = append(result.Errors, "Pipeline must be a mapping of jobs and keywords")
		} else {
			result.YAMLErrors = append(result.YAMLErrors, fmt.Sprintf("YAML syntax error: %v", err))
		}
		return
	}

	doc := newDocument(root)
	result.Errors = append(result.Errors, checkStructure(doc)...)
	result.SecurityIssues = append(result.SecurityIssues, scanDangerousCommands(text)...)
	result.SecurityIssues = append(result.SecurityIssues, checkSecretVariables(doc)...)
	result.CircularDependencies = append(result.CircularDependencies, checkCycles(doc)...)
	result.MissingDependencies = append(result.MissingDependencies, checkMissingNeeds(doc)...)
	result.Warnings = append(result.Warnings, checkDuplicateJobs(root)...)
	result.Warnings = append(result.Warnings, checkStyle(doc)...)

	v.lint(ctx, text, result)
}

// lint folds the remote lint answer into result. Transport failures only log.
func (v *Validator) lint(ctx context.Context, text string, result *domain.ValidationResult) {
	if v.linter == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, v.lintTimeout)
	defer cancel()

	lint, err := v.linter.LintPipeline(ctx, text)
	if err != nil {
		v.logger.Warn("External CI lint unavailable", zap.Error(err))
		return
	}
	if !lint.Valid {
		if len(lint.Errors) == 0 {
			result.ExternalLintErrors = append(result.ExternalLintErrors, "GitLab Lint: invalid")
		}
		for _, e := range lint.Errors {
			result.ExternalLintErrors = append(result.ExternalLintErrors, "GitLab Lint: "+e)
		}
	}
	for _, w := range lint.Warnings {
		result.Warnings = append(result.Warnings, "GitLab Lint Warning: "+w)
	}
}

// document is the decoded view of a GitLab CI file the passes share
type document struct {
	root      *yaml.Node
	stages    *yaml.Node
	variables *yaml.Node
	jobs      []ciyaml.Entry // runnable jobs in document order
	names     map[string]bool
}

func newDocument(root *yaml.Node) *document {
	doc := &document{root: root, names: map[string]bool{}}
	for _, e := range ciyaml.Entries(root) {
		switch {
		case e.Key == "stages":
			doc.stages = e.Value
		case e.Key == "variables":
			doc.variables = e.Value
		case ciyaml.IsReserved(e.Key):
		case ciyaml.IsHidden(e.Key):
			doc.names[e.Key] = true
		default:
			doc.names[e.Key] = true
			doc.jobs = append(doc.jobs, e)
		}
	}
	return doc
}

// needs decodes a job's needs, ignoring shapes the structure pass reports
func needs(job *yaml.Node) []domain.Need {
	n := ciyaml.Lookup(job, "needs")
	if n == nil {
		return nil
	}
	var out ciyaml.Needs
	if err := n.Decode(&out); err != nil {
		return nil
	}
	return out
}
