package ciyaml_test

import (
	"pipegen-cli/internal/ciyaml"
	"pipegen-cli/internal/domain"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	root, err := ciyaml.Parse([]byte("stages: [build]\nbuild:\n  script: [make]\n"))
	require.NoError(t, err)

	entries := ciyaml.Entries(root)
	require.Len(t, entries, 2)
	assert.Equal(t, "stages", entries[0].Key)
	assert.Equal(t, "build", entries[1].Key)
	assert.Equal(t, 2, entries[1].Line)
	assert.NotNil(t, ciyaml.Lookup(root, "build"))
	assert.Nil(t, ciyaml.Lookup(root, "deploy"))
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	_, err := ciyaml.Parse([]byte("- a\n- b\n"))
	require.ErrorIs(t, err, ciyaml.ErrNotMapping)

	_, err = ciyaml.Parse([]byte("job: [unclosed\n"))
	require.Error(t, err)

	root, err := ciyaml.Parse([]byte(""))
	require.NoError(t, err)
	assert.Empty(t, ciyaml.Entries(root))
}

func TestIsJobKey(t *testing.T) {
	t.Parallel()

	assert.True(t, ciyaml.IsJobKey("unit_tests"))
	assert.False(t, ciyaml.IsJobKey("variables"))
	assert.False(t, ciyaml.IsJobKey("before_script"))
	assert.False(t, ciyaml.IsJobKey(".base"))
}

func TestDecodeJob_NormalizesUnions(t *testing.T) {
	t.Parallel()

	root, err := ciyaml.Parse([]byte(`deploy:
  stage: deploy
  script: ./deploy.sh
  image:
    name: alpine:3.19
    entrypoint: [""]
  services:
    - docker:dind
    - name: postgres:16
      alias: db
  variables:
    PLAIN: 1
    DESCRIBED:
      value: "x"
      description: "documented"
  needs:
    - build
    - job: test
      optional: true
    - pipeline: other/project
  allow_failure:
    exit_codes: [3]
`))
	require.NoError(t, err)

	job, err := ciyaml.DecodeJob(ciyaml.Lookup(root, "deploy"))
	require.NoError(t, err)

	assert.Equal(t, "deploy", job.Stage)
	assert.Equal(t, ciyaml.StringList{"./deploy.sh"}, job.Script)
	assert.Equal(t, ciyaml.Image("alpine:3.19"), job.Image)
	assert.Equal(t, ciyaml.StringList{"docker:dind", "postgres:16"}, job.Services)
	assert.Equal(t, "1", job.Variables["PLAIN"])
	assert.Equal(t, "x", job.Variables["DESCRIBED"])
	assert.Equal(t, ciyaml.Needs{{Job: "build"}, {Job: "test", Optional: true}}, job.Needs)
	assert.True(t, bool(job.AllowFailure))

	pj := job.PipelineJob("deploy")
	assert.Equal(t, []string{"build", "test"}, pj.NeedNames())
	assert.Equal(t, []domain.Need{{Job: "build"}, {Job: "test", Optional: true}}, pj.Needs)
}

func TestDecodeJob_Errors(t *testing.T) {
	t.Parallel()

	root, err := ciyaml.Parse([]byte("a: [1, 2]\nb:\n  needs: build\n"))
	require.NoError(t, err)

	_, err = ciyaml.DecodeJob(ciyaml.Lookup(root, "a"))
	require.Error(t, err)

	_, err = ciyaml.DecodeJob(ciyaml.Lookup(root, "b"))
	require.Error(t, err)
}
