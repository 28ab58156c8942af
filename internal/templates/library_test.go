package templates_test

import (
	"os"
	"path/filepath"
	"pipegen-cli/internal/domain"
	"pipegen-cli/internal/templates"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newEmbedded(t *testing.T) *templates.Library {
	t.Helper()
	lib, err := templates.NewLibrary("", zap.NewNop())
	require.NoError(t, err)
	return lib
}

func names(ts []domain.Template) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.Source+"/"+t.Name)
	}
	return out
}

func TestLoad_KeysAndSkips(t *testing.T) {
	t.Parallel()

	fsys := fstest.MapFS{
		"python/lint.yml": {Data: []byte("stages: [lint]\nvariables:\n  A: b\n.hidden:\n  script: [x]\nlint:\n  stage: lint\n  script: flake8\n")},
		"python/django/build.yml": {Data: []byte("build:\n  script:\n    - python manage.py check\n")},
		"python/broken.yml":       {Data: []byte("build: [unclosed\n")},
		"generic/build.yml":       {Data: []byte("build:\n  script: [echo ok]\n")},
		"README.md":               {Data: []byte("# not a template")},
	}

	lib, err := templates.Load(fsys, zap.NewNop())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"generic/build",
		"generic/build.yml/build",
		"python/django/build",
		"python/django/build.yml/build",
		"python/lint",
		"python/lint.yml/lint",
	}, lib.Keys())

	lint, ok := lib.Get("python/lint")
	require.True(t, ok)
	assert.Equal(t, "python", lint.Language)
	assert.Empty(t, lint.Framework)
	assert.Equal(t, "lint", lint.Category)
	assert.Equal(t, []string{"flake8"}, lint.Script)

	build, ok := lib.Get("python/django/build")
	require.True(t, ok)
	assert.Equal(t, "django", build.Framework)
}

func TestNewLibrary_OverlayReplacesEmbedded(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "python"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "python", "lint.yml"),
		[]byte("lint:\n  stage: lint\n  script: [ruff check .]\n"), 0o644))

	lib, err := templates.NewLibrary(dir, zap.NewNop())
	require.NoError(t, err)

	lint, ok := lib.Get("python/lint.yml/lint")
	require.True(t, ok)
	assert.Equal(t, []string{"ruff check ."}, lint.Script)

	_, err = templates.NewLibrary(filepath.Join(dir, "missing"), zap.NewNop())
	require.Error(t, err)
}

func TestSelect_PythonPytest(t *testing.T) {
	t.Parallel()

	lib := newEmbedded(t)
	analysis := &domain.StackAnalysis{Languages: []string{"python"}, TestRunners: []string{"pytest"}}

	selected := lib.Select(analysis, &domain.UserSettings{})

	assert.Equal(t, []string{
		"python/lint.yml/lint",
		"python/test_pytest.yml/test",
		"python/build.yml/build",
		"python/install.yml/install",
		"python/security.yml/security",
	}, names(selected))
}

func TestSelect_TestFallback(t *testing.T) {
	t.Parallel()

	lib := newEmbedded(t)
	analysis := &domain.StackAnalysis{Languages: []string{"typescript"}, TestRunners: []string{"karma"}}

	selected := lib.Select(analysis, nil)

	assert.Contains(t, names(selected), "node/test.yml/test")
	assert.NotContains(t, names(selected), "node/test_jest.yml/test")
}

func TestSelect_NoRunnerNoTest(t *testing.T) {
	t.Parallel()

	lib := newEmbedded(t)
	selected := lib.Select(&domain.StackAnalysis{Languages: []string{"go"}}, nil)

	for _, tmpl := range selected {
		assert.NotEqual(t, "test", tmpl.Name)
	}
}

func TestSelect_FrameworkWinsPerCategory(t *testing.T) {
	t.Parallel()

	lib := newEmbedded(t)
	analysis := &domain.StackAnalysis{Languages: []string{"python"}, BackendFrameworks: []string{"django"}}

	got := names(lib.Select(analysis, nil))

	assert.Contains(t, got, "python/django/build.yml/build")
	assert.NotContains(t, got, "python/build.yml/build")
	assert.Contains(t, got, "python/install.yml/install")
}

func TestSelect_Docker(t *testing.T) {
	t.Parallel()

	lib := newEmbedded(t)

	t.Run("without registry", func(t *testing.T) {
		t.Parallel()
		got := names(lib.Select(&domain.StackAnalysis{Docker: true}, &domain.UserSettings{}))
		assert.Contains(t, got, "docker/docker_build.yml/docker_build")
		assert.Contains(t, got, "docker/cleanup.yml/cleanup")
		assert.NotContains(t, got, "docker/docker_push.yml/docker_push")
		assert.NotContains(t, got, "docker/integration.yml/integration")
	})

	t.Run("with registry and compose", func(t *testing.T) {
		t.Parallel()
		analysis := &domain.StackAnalysis{
			Docker:      true,
			EntryPoints: []domain.EntryPoint{{FilePath: "docker-compose.yml", Type: domain.EntryTypeDockerCompose, Confidence: 0.7}},
		}
		got := names(lib.Select(analysis, &domain.UserSettings{DockerRegistry: "registry.example.com"}))
		assert.Contains(t, got, "docker/docker_push.yml/docker_push")
		assert.Contains(t, got, "docker/integration.yml/integration")
	})
}

func TestSelect_DeployTargets(t *testing.T) {
	t.Parallel()

	lib := newEmbedded(t)
	analysis := &domain.StackAnalysis{Languages: []string{"go"}}

	got := names(lib.Select(analysis, &domain.UserSettings{DeployTarget: "ssh"}))
	assert.Contains(t, got, "deploy/ssh/deploy.yml/deploy_ssh")
	assert.NotContains(t, got, "deploy/compose/deploy.yml/deploy_compose")

	got = names(lib.Select(analysis, &domain.UserSettings{DeployTarget: "kubernetes"}))
	assert.Contains(t, got, "kubernetes/deploy.yml/deploy")
	assert.Contains(t, got, "kubernetes/post_deploy.yml/post_deploy")
}

func TestSelect_GenericFallback(t *testing.T) {
	t.Parallel()

	lib := newEmbedded(t)
	got := names(lib.Select(&domain.StackAnalysis{Languages: []string{"rust"}}, nil))
	assert.Equal(t, []string{"generic/build.yml/build"}, got)

	empty, err := templates.Load(fstest.MapFS{}, zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, empty.Select(&domain.StackAnalysis{Languages: []string{"python"}}, nil))
}
