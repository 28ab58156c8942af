package usecases_test

import (
	"context"
	"os"
	"path/filepath"
	"pipegen-cli/internal/domain"
	"pipegen-cli/internal/usecases"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const sampleCI = "build:\n  script:\n    - make ${TARGET}\n"

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".gitlab-ci.yml")
	require.NoError(t, os.WriteFile(path, []byte(sampleCI), 0o644))
	return path
}

func TestValidateUseCase_Execute(t *testing.T) {
	t.Parallel()

	expected := domain.NewValidationResult()
	v := &MockPipelineValidator{}
	v.On("Validate", mock.Anything, sampleCI).Return(expected)

	uc := usecases.NewValidateUseCase(context.Background(), v, zap.NewNop())
	res, err := uc.Execute(writeSample(t))
	require.NoError(t, err)
	assert.Same(t, expected, res)
	v.AssertExpectations(t)
}

func TestValidateUseCase_MissingFile(t *testing.T) {
	t.Parallel()

	uc := usecases.NewValidateUseCase(context.Background(), &MockPipelineValidator{}, zap.NewNop())
	_, err := uc.Execute(filepath.Join(t.TempDir(), "missing.yml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read pipeline file")
}

func TestVariablesUseCase_Execute(t *testing.T) {
	t.Parallel()

	a := &MockVariableAnalyzer{}
	a.On("Analyze", sampleCI).Return([]domain.RequiredVariable{{Name: "TARGET", Required: true, JobUsage: []string{"build"}}})

	uc := usecases.NewVariablesUseCase(a, zap.NewNop())
	vars, err := uc.Execute(writeSample(t))
	require.NoError(t, err)
	require.Len(t, vars, 1)
	assert.Equal(t, "TARGET", vars[0].Name)
}
