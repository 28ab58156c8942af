package validator_test

import (
	"context"
	"errors"
	"pipegen-cli/internal/composer"
	"pipegen-cli/internal/domain"
	"pipegen-cli/internal/validator"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockPipelineLinter for testing
type MockPipelineLinter struct {
	mock.Mock
}

func (m *MockPipelineLinter) LintPipeline(ctx context.Context, content string) (*domain.LintResult, error) {
	args := m.Called(ctx, content)
	return args.Get(0).(*domain.LintResult), args.Error(1)
}

func newValidator(linter domain.PipelineLinter) *validator.Validator {
	return validator.NewValidator(linter, 0, zap.NewNop())
}

const validPipeline = `stages:
  - build
  - test
build:
  stage: build
  script:
    - make
test:
  stage: test
  script:
    - make test
  needs:
    - build
`

func TestValidate_ValidPipeline(t *testing.T) {
	t.Parallel()

	result := newValidator(nil).Validate(context.Background(), validPipeline)

	assert.True(t, result.IsValid)
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.Warnings)
	assert.Empty(t, result.SecurityIssues)
	assert.Empty(t, result.CircularDependencies)
	assert.Empty(t, result.MissingDependencies)
}

func TestValidate_SyntaxErrorShortCircuits(t *testing.T) {
	t.Parallel()

	linter := &MockPipelineLinter{}
	result := newValidator(linter).Validate(context.Background(), "build: [unclosed\n  script: rm -rf /")

	assert.False(t, result.IsValid)
	require.Len(t, result.YAMLErrors, 1)
	assert.Contains(t, result.YAMLErrors[0], "YAML syntax error")
	assert.Empty(t, result.Errors)
	assert.Empty(t, result.SecurityIssues)
	linter.AssertNotCalled(t, "LintPipeline", mock.Anything, mock.Anything)
}

func TestValidate_Structure(t *testing.T) {
	t.Parallel()

	text := `stages:
  - build
job_string: make
no_script:
  stage: build
bad_stage:
  stage: 1
  script:
    - make
bad_needs:
  stage: build
  script: make
  needs: build
unknown_stage:
  stage: package
  script:
    - make
.hidden:
  image: alpine
`
	result := newValidator(nil).Validate(context.Background(), text)

	assert.False(t, result.IsValid)
	assert.Equal(t, []string{
		"Job 'job_string' must be a mapping",
		"Job 'no_script' must have 'script' or 'extends'",
		"Job 'bad_stage' stage must be a string",
		"Job 'bad_needs' needs must be a list",
		"Job 'unknown_stage' uses undeclared stage 'package'",
	}, result.Errors)
}

func TestValidate_NotAMapping(t *testing.T) {
	t.Parallel()

	result := newValidator(nil).Validate(context.Background(), "- a\n- b\n")

	assert.False(t, result.IsValid)
	assert.Equal(t, []string{"Pipeline must be a mapping of jobs and keywords"}, result.Errors)
}

func TestValidate_EmptyDocument(t *testing.T) {
	t.Parallel()

	result := newValidator(nil).Validate(context.Background(), "")

	assert.False(t, result.IsValid)
	assert.Equal(t, []string{"Pipeline defines no jobs"}, result.Errors)
}

func TestValidate_DangerousCommands(t *testing.T) {
	t.Parallel()

	text := `deploy:
  stage: deploy
  script:
    - curl -s https://example.com/install.sh | bash
    - chmod 777 /tmp/app
`
	result := newValidator(nil).Validate(context.Background(), text)

	assert.False(t, result.IsValid)
	assert.Equal(t, []string{
		"Line 4: [HIGH] Piping curl to bash without verification: - curl -s https://example.com/install.sh | bash",
		"Line 5: [MEDIUM] Overly permissive chmod: - chmod 777 /tmp/app",
	}, result.SecurityIssues)
}

func TestValidate_DangerousPatternTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line     string
		severity string
	}{
		{"rm -rf /", validator.SeverityCritical},
		{"rm -rf $BUILD_DIR", validator.SeverityHigh},
		{"wget -qO- https://x.io/i.sh | bash", validator.SeverityHigh},
		{"docker run --rm --privileged img", validator.SeverityHigh},
		{`export PASSWORD="hunter2"`, validator.SeverityHigh},
		{`API_KEY='abc'`, validator.SeverityHigh},
		{"pip install http://mirror.local/pkg.tar.gz", validator.SeverityMedium},
		{"npm install http://mirror.local/pkg.tgz", validator.SeverityMedium},
		{"eval $(ssh-agent -s)", validator.SeverityMedium},
		{"eval echo hi", validator.SeverityHigh},
		{"exec $CMD", validator.SeverityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			t.Parallel()
			matched := false
			for _, p := range validator.DangerousPatterns {
				if p.Pattern.MatchString(tt.line) && p.Severity == tt.severity {
					matched = true
				}
			}
			assert.True(t, matched)
		})
	}

	for _, p := range validator.DangerousPatterns {
		assert.False(t, p.Pattern.MatchString("docker login --password-stdin registry.example.com"), p.Description)
	}
}

func TestValidate_SecretVariables(t *testing.T) {
	t.Parallel()

	text := `variables:
  DB_PASSWORD: supersecretvalue
  API_TOKEN: $VAULT_TOKEN
  SHORT_KEY: abc
  BUILD_DIR: /very/long/build/dir
build:
  stage: build
  variables:
    DEPLOY_KEY:
      value: averyverylongliteral
  script:
    - make
`
	result := newValidator(nil).Validate(context.Background(), text)

	assert.False(t, result.IsValid)
	assert.Equal(t, []string{
		"Potential hardcoded secret in variable 'DB_PASSWORD': consider using CI/CD variables",
		"Potential hardcoded secret in variable 'DEPLOY_KEY' of job 'build': consider using CI/CD variables",
	}, result.SecurityIssues)
}

func TestValidate_Dependencies(t *testing.T) {
	t.Parallel()

	text := `a:
  stage: build
  script: [make]
  needs: [b]
b:
  stage: build
  script: [make]
  needs: [a]
c:
  stage: test
  script: [make]
  needs: [a]
d:
  stage: test
  script: [make]
  needs: [ghost]
e:
  stage: test
  script: [make]
  needs:
    - job: maybe
      optional: true
`
	result := newValidator(nil).Validate(context.Background(), text)

	assert.False(t, result.IsValid)
	assert.Equal(t, []string{
		"Circular dependency detected involving job 'a'",
		"Circular dependency detected involving job 'b'",
		"Circular dependency detected involving job 'c'",
	}, result.CircularDependencies)
	assert.Equal(t, []string{"Job 'd' depends on 'ghost' which does not exist"}, result.MissingDependencies)
}

func TestValidate_StyleWarningsKeepValid(t *testing.T) {
	t.Parallel()

	text := `stages:
  - build
  - test
  - deploy
build:
  stage: build
  script: []
build:
  stage: build
  script: [make]
lint:
  script: [make lint]
`
	result := newValidator(nil).Validate(context.Background(), text)

	assert.True(t, result.IsValid)
	assert.Equal(t, []string{
		"Duplicate job name: 'build' (line 8)",
		"Job 'build' has empty script",
		"Defined stages not used: test, deploy",
		"Jobs without stage defined: lint",
	}, result.Warnings)
}

func TestValidate_ExternalLint(t *testing.T) {
	t.Parallel()

	t.Run("lint errors invalidate", func(t *testing.T) {
		t.Parallel()
		linter := &MockPipelineLinter{}
		linter.On("LintPipeline", mock.Anything, validPipeline).Return(&domain.LintResult{
			Valid:    false,
			Errors:   []string{"jobs:test config contains unknown keys: foo"},
			Warnings: []string{"jobs:test may allow multiple pipelines"},
		}, nil)

		result := newValidator(linter).Validate(context.Background(), validPipeline)

		assert.False(t, result.IsValid)
		assert.Equal(t, []string{"GitLab Lint: jobs:test config contains unknown keys: foo"}, result.ExternalLintErrors)
		assert.Equal(t, []string{"GitLab Lint Warning: jobs:test may allow multiple pipelines"}, result.Warnings)
		linter.AssertExpectations(t)
	})

	t.Run("transport failure is not fatal", func(t *testing.T) {
		t.Parallel()
		linter := &MockPipelineLinter{}
		linter.On("LintPipeline", mock.Anything, validPipeline).
			Return((*domain.LintResult)(nil), errors.New("connection refused"))

		result := newValidator(linter).Validate(context.Background(), validPipeline)

		assert.True(t, result.IsValid)
		assert.Empty(t, result.ExternalLintErrors)
		linter.AssertExpectations(t)
	})

	t.Run("valid lint passes", func(t *testing.T) {
		t.Parallel()
		linter := &MockPipelineLinter{}
		linter.On("LintPipeline", mock.Anything, validPipeline).Return(&domain.LintResult{Valid: true}, nil)

		result := newValidator(linter).Validate(context.Background(), validPipeline)

		assert.True(t, result.IsValid)
		linter.AssertExpectations(t)
	})
}

func TestValidate_Jenkins(t *testing.T) {
	t.Parallel()

	cfg := &domain.PipelineConfig{
		Stages: []string{"build", "test"},
		Jobs: []*domain.Job{
			{Name: "build", Stage: "build", Image: "golang:1.22", Script: []string{"go build ./..."}},
			{Name: "unit", Stage: "test", Image: "golang:1.22", Script: []string{`echo "{not a brace}"`, "go test ./..."}},
			{Name: "race", Stage: "test", Image: "golang:1.22", Script: []string{"go test -race ./..."}},
		},
	}
	jenkinsfile := composer.RenderJenkins(cfg, &domain.Triggers{OnPush: []string{"main"}})
	require.True(t, validator.IsJenkinsfile(jenkinsfile))

	linter := &MockPipelineLinter{}
	result := newValidator(linter).Validate(context.Background(), jenkinsfile)
	assert.True(t, result.IsValid, result.Errors)
	linter.AssertNotCalled(t, "LintPipeline", mock.Anything, mock.Anything)

	broken := "// generated\npipeline {\n    agent any\n    stages {\n        stage('x') {\n            steps { sh 'rm -rf /' }\n    }\n}\n"
	result = newValidator(nil).Validate(context.Background(), broken)
	assert.False(t, result.IsValid)
	assert.Equal(t, []string{"Unbalanced braces: 1 unclosed '{'"}, result.Errors)
	require.Len(t, result.SecurityIssues, 1)
	assert.Contains(t, result.SecurityIssues[0], "[CRITICAL]")

	result = newValidator(nil).Validate(context.Background(), "pipeline {\n    agent any\n}\n")
	assert.Equal(t, []string{"Jenkinsfile has no stages block"}, result.Errors)

	assert.False(t, validator.IsJenkinsfile(validPipeline))
}
