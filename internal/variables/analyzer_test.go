package variables_test

import (
	"pipegen-cli/internal/composer"
	"pipegen-cli/internal/domain"
	"pipegen-cli/internal/templates"
	"pipegen-cli/internal/variables"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func names(vars []domain.RequiredVariable) []string {
	out := make([]string, 0, len(vars))
	for _, v := range vars {
		out = append(out, v.Name)
	}
	return out
}

func TestAnalyze_DeployHostOnly(t *testing.T) {
	t.Parallel()

	text := `stages:
  - deploy
deploy_ssh:
  stage: deploy
  script:
    - ssh deploy@${DEPLOY_HOST} 'systemctl restart app'
smoke:
  stage: deploy
  script:
    - curl -f https://${DEPLOY_HOST}/health
notify:
  stage: deploy
  script:
    - echo done $CI_COMMIT_SHA
`
	vars := variables.NewAnalyzer(zap.NewNop()).Analyze(text)

	require.Len(t, vars, 1)
	assert.Equal(t, "DEPLOY_HOST", vars[0].Name)
	assert.True(t, vars[0].Required)
	assert.Equal(t, []string{"deploy_ssh", "smoke"}, vars[0].JobUsage)
	assert.NotEmpty(t, vars[0].Description)
}

func TestAnalyze_FiltersAndOrders(t *testing.T) {
	t.Parallel()

	text := `variables:
  APP_ENV: production
build:
  stage: build
  variables:
    LOCAL_FLAG: "1"
  script:
    - echo ${APP_ENV} ${LOCAL_FLAG} ${CI_COMMIT_REF_SLUG}
    - make VERSION=${VERSION:-dev} TARGET=${TARGET}
    - docker build -f ${DOCKERFILE} .
release:
  stage: deploy
  script:
    - make release TARGET=$TARGET
`
	vars := variables.NewAnalyzer(zap.NewNop()).Analyze(text)

	assert.Equal(t, []string{"TARGET", "DOCKERFILE", "VERSION"}, names(vars))

	target := vars[0]
	assert.True(t, target.Required)
	assert.Equal(t, "Variable TARGET", target.Description)
	assert.Equal(t, []string{"build", "release"}, target.JobUsage)

	dockerfile := vars[1]
	assert.False(t, dockerfile.Required)
	assert.Equal(t, "Dockerfile", dockerfile.DefaultValue)
	assert.Equal(t, []string{"build"}, dockerfile.JobUsage)

	version := vars[2]
	assert.False(t, version.Required)
	assert.Equal(t, "dev", version.DefaultValue)
}

func TestAnalyze_ComposedSSHDeploy(t *testing.T) {
	t.Parallel()

	lib, err := templates.NewLibrary("", zap.NewNop())
	require.NoError(t, err)

	analysis := &domain.StackAnalysis{Languages: []string{"python"}}
	settings := &domain.UserSettings{DeployTarget: "ssh", Stages: []string{"deploy"}}
	selected := lib.Select(analysis, settings)
	for i := range selected {
		selected[i] = lib.ApplyParameters(selected[i], analysis, settings)
	}
	comp, err := composer.NewComposer(zap.NewNop()).Compose(selected, analysis, settings)
	require.NoError(t, err)

	vars := variables.NewAnalyzer(zap.NewNop()).Analyze(comp.Text)

	assert.Equal(t, []string{"DEPLOY_HOST", "SSH_PRIVATE_KEY", "DEPLOY_PATH", "DEPLOY_USER"}, names(vars))
	for _, v := range vars {
		assert.Equal(t, []string{"deploy_ssh"}, v.JobUsage, v.Name)
	}
	assert.Equal(t, "deploy", vars[3].DefaultValue)
}

func TestAnalyze_JenkinsfileHasNoJobUsage(t *testing.T) {
	t.Parallel()

	text := "pipeline {\n    stages {\n        stage('deploy') {\n            steps {\n                sh 'kubectl --kubeconfig ${KUBECONFIG} apply -f k8s/'\n            }\n        }\n    }\n}\n"

	vars := variables.NewAnalyzer(zap.NewNop()).Analyze(text)

	require.Len(t, vars, 1)
	assert.Equal(t, "KUBECONFIG", vars[0].Name)
	assert.True(t, vars[0].Required)
	assert.Empty(t, vars[0].JobUsage)
}

func TestAnalyze_NoTokens(t *testing.T) {
	t.Parallel()

	vars := variables.NewAnalyzer(zap.NewNop()).Analyze("build:\n  script:\n    - make\n")
	assert.Empty(t, vars)
}
