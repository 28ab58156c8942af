package config_test

import (
	"os"
	"path/filepath"
	"pipegen-cli/internal/config"
	"pipegen-cli/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configEnvVars = []string{
	"GITLAB_BASE_URL",
	"GITLAB_TOKEN",
	"GITLAB_LINT_PROJECT",
	"PIPEGEN_TEMPLATES_DIR",
	"CLONE_METHOD",
	"ANALYSIS_TIMEOUT_MINUTES",
	"LINT_TIMEOUT_SECONDS",
	"LOG_LEVEL",
}

// clearConfigEnvVars blanks variables that would leak into the config;
// t.Setenv restores them when the test ends
func clearConfigEnvVars(t *testing.T) {
	for _, envVar := range configEnvVars {
		t.Setenv(envVar, "")
		os.Unsetenv(envVar)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	tmpFile, err := os.CreateTemp(t.TempDir(), "test-config-*.yaml")
	if err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}

	if _, err := tmpFile.WriteString(content); err != nil {
		t.Fatalf("Failed to write to temp file: %v", err)
	}

	if err := tmpFile.Close(); err != nil {
		t.Fatalf("Failed to close temp file: %v", err)
	}

	return tmpFile.Name()
}

//nolint:paralleltest // Cannot use t.Parallel() with t.Setenv()
func TestLoadConfig_Defaults(t *testing.T) {
	clearConfigEnvVars(t)

	cfg, err := config.LoadConfig("")
	require.NoError(t, err)

	assert.Equal(t, "https://gitlab.com", cfg.GitLab.BaseURL)
	assert.Empty(t, cfg.GitLab.Token)
	assert.Equal(t, config.CloneMethodGit, cfg.Clone.Method)
	assert.Equal(t, 300, cfg.Clone.TimeoutSeconds)
	assert.Equal(t, 1, cfg.Clone.Depth)
	assert.Equal(t, 4, cfg.Clone.MaxParallel)
	assert.Equal(t, int64(1<<20), cfg.Detection.MaxFileSizeBytes)
	assert.Equal(t, 64<<10, cfg.Detection.ContentPrefixBytes)
	assert.Equal(t, 10, cfg.Timeout.AnalysisTimeoutMinutes)
	assert.Equal(t, 30, cfg.Timeout.LintTimeoutSeconds)
	assert.Equal(t, "info", cfg.Logging.Level)
}

//nolint:paralleltest // Cannot use t.Parallel() with t.Setenv()
func TestLoadConfig_ValidConfig(t *testing.T) {
	clearConfigEnvVars(t)

	configContent := `
gitlab:
  base_url: "https://gitlab.example.com"
  token: "test-token"
  lint_project: "platform/ci-lint"

templates:
  dir: "./ci-templates"

detection:
  max_file_size_bytes: 2048
  content_prefix_bytes: 512

clone:
  method: api
  timeout_seconds: 60
  max_parallel: 2

output:
  pipeline_file: ".gitlab-ci.yml"
  html_file: "report.html"

logging:
  level: debug
`

	cfg, err := config.LoadConfig(createTempConfigFile(t, configContent))
	require.NoError(t, err)

	assert.Equal(t, "https://gitlab.example.com", cfg.GitLab.BaseURL)
	assert.Equal(t, "test-token", cfg.GitLab.Token)
	assert.Equal(t, "platform/ci-lint", cfg.GitLab.LintProject)
	assert.Equal(t, "./ci-templates", cfg.Templates.Dir)
	assert.Equal(t, int64(2048), cfg.Detection.MaxFileSizeBytes)
	assert.Equal(t, 512, cfg.Detection.ContentPrefixBytes)
	assert.Equal(t, config.CloneMethodAPI, cfg.Clone.Method)
	assert.Equal(t, 60, cfg.Clone.TimeoutSeconds)
	assert.Equal(t, 2, cfg.Clone.MaxParallel)
	assert.Equal(t, 1, cfg.Clone.Depth)
	assert.Equal(t, ".gitlab-ci.yml", cfg.Output.PipelineFile)
	assert.Equal(t, "report.html", cfg.Output.HTMLFile)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

//nolint:paralleltest // Cannot use t.Parallel() with t.Setenv()
func TestLoadConfig_InvalidPath(t *testing.T) {
	clearConfigEnvVars(t)

	_, err := config.LoadConfig(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file does not exist")
}

//nolint:paralleltest // Cannot use t.Parallel() with t.Setenv()
func TestLoadConfig_InvalidYAML(t *testing.T) {
	clearConfigEnvVars(t)

	_, err := config.LoadConfig(createTempConfigFile(t, "gitlab: [unclosed\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}

//nolint:paralleltest // Cannot use t.Parallel() with t.Setenv()
func TestLoadConfig_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		message string
	}{
		{
			name:    "api method without token",
			content: "clone:\n  method: api\n",
			message: "gitlab.token is required when clone.method",
		},
		{
			name:    "lint project without token",
			content: "gitlab:\n  lint_project: group/project\n",
			message: "gitlab.token is required when gitlab.lint_project is set",
		},
		{
			name:    "unknown clone method",
			content: "clone:\n  method: rsync\n",
			message: "clone.method must be",
		},
		{
			name:    "bad base url",
			content: "gitlab:\n  base_url: gitlab.example.com\n",
			message: "gitlab.base_url must be an http(s) URL",
		},
		{
			name:    "non-positive timeout",
			content: "timeout:\n  analysis_timeout_minutes: 0\n",
			message: "timeout.analysis_timeout_minutes must be positive",
		},
		{
			name:    "unknown log level",
			content: "logging:\n  level: chatty\n",
			message: "logging.level must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearConfigEnvVars(t)
			_, err := config.LoadConfig(createTempConfigFile(t, tt.content))
			require.Error(t, err)
			assert.Contains(t, err.Error(), "config validation failed")
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

//nolint:paralleltest // Cannot use t.Parallel() with t.Setenv()
func TestLoadConfig_EnvironmentOverrides(t *testing.T) {
	clearConfigEnvVars(t)

	t.Setenv("GITLAB_TOKEN", "env-token")
	t.Setenv("GITLAB_BASE_URL", "https://git.internal")
	t.Setenv("GITLAB_LINT_PROJECT", "42")
	t.Setenv("ANALYSIS_TIMEOUT_MINUTES", "20")
	t.Setenv("CLONE_METHOD", "api")

	configContent := `
gitlab:
  token: "file-token"
timeout:
  analysis_timeout_minutes: 15
`

	cfg, err := config.LoadConfig(createTempConfigFile(t, configContent))
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.GitLab.Token)
	assert.Equal(t, "https://git.internal", cfg.GitLab.BaseURL)
	assert.Equal(t, "42", cfg.GitLab.LintProject)
	assert.Equal(t, 20, cfg.Timeout.AnalysisTimeoutMinutes)
	assert.Equal(t, config.CloneMethodAPI, cfg.Clone.Method)
}

func TestLoadSettings(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yml")
	content := `
platform: gitlab
stages: [lint, test, deploy]
deploy_target: ssh
docker_registry: registry.example.com
triggers:
  on_push: [main]
  on_merge_request: true
variables:
  APP_ENV: production
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	settings, err := config.LoadSettings(path)
	require.NoError(t, err)
	assert.Equal(t, domain.PlatformGitLab, settings.Platform)
	assert.Equal(t, []string{"lint", "test", "deploy"}, settings.Stages)
	assert.Equal(t, "ssh", settings.DeployTarget)
	require.NotNil(t, settings.Triggers)
	assert.Equal(t, []string{"main"}, settings.Triggers.OnPush)
	assert.True(t, settings.Triggers.OnMergeRequest)
	assert.Equal(t, map[string]string{"APP_ENV": "production"}, settings.Variables)
}

func TestLoadSettings_JSONAndEmpty(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	jsonPath := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"platform": "jenkins", "stages": ["build"]}`), 0o644))

	settings, err := config.LoadSettings(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, domain.PlatformJenkins, settings.Platform)
	assert.Equal(t, []string{"build"}, settings.Stages)

	emptyPath := filepath.Join(dir, "empty.yml")
	require.NoError(t, os.WriteFile(emptyPath, nil, 0o644))
	settings, err = config.LoadSettings(emptyPath)
	require.NoError(t, err)
	assert.Empty(t, settings.Platform)

	settings, err = config.LoadSettings("")
	require.NoError(t, err)
	assert.NotNil(t, settings)
}

func TestLoadSettings_UnknownKey(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "settings.yml")
	require.NoError(t, os.WriteFile(path, []byte("platfrom: gitlab\n"), 0o644))

	_, err := config.LoadSettings(path)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestLoadAnalysis(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "analysis.json")
	content := `{
  "languages": ["python"],
  "test_runner": ["pytest"],
  "docker": true,
  "docker_context": ".",
  "cloud_platforms": ["aws"],
  "entry_points": [{"path": "app.py", "type": "main", "confidence": 0.7}]
}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	analysis, err := config.LoadAnalysis(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"python"}, analysis.Languages)
	assert.Equal(t, []string{"pytest"}, analysis.TestRunners)
	assert.True(t, analysis.Docker)
	require.Len(t, analysis.EntryPoints, 1)
	assert.Equal(t, "app.py", analysis.EntryPoints[0].FilePath)
	assert.InDelta(t, 0.7, analysis.EntryPoints[0].Confidence, 1e-9)
}

func TestLoadAnalysis_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadAnalysis(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load analysis")
}
