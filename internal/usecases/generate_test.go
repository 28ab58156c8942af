package usecases_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"pipegen-cli/internal/composer"
	"pipegen-cli/internal/domain"
	"pipegen-cli/internal/generator"
	"pipegen-cli/internal/templates"
	"pipegen-cli/internal/usecases"
	"pipegen-cli/internal/validator"
	"pipegen-cli/internal/variables"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func pythonAnalysis() *domain.StackAnalysis {
	return &domain.StackAnalysis{
		Languages:   []string{"python"},
		TestRunners: []string{"pytest"},
	}
}

func newRealGenerateUseCase(t *testing.T) *usecases.GenerateUseCase {
	t.Helper()
	lib, err := templates.NewLibrary("", zap.NewNop())
	require.NoError(t, err)
	return usecases.NewGenerateUseCase(
		context.Background(),
		lib,
		composer.NewComposer(zap.NewNop()),
		validator.NewValidator(nil, 0, zap.NewNop()),
		variables.NewAnalyzer(zap.NewNop()),
		generator.NewGenerator(zap.NewNop()),
		zap.NewNop(),
	)
}

func TestGenerateUseCase_PythonPytest(t *testing.T) {
	t.Parallel()

	uc := newRealGenerateUseCase(t)
	resp, err := uc.Execute(usecases.GenerateRequest{
		Source:   "./app",
		Analysis: pythonAnalysis(),
		Settings: &domain.UserSettings{Stages: []string{"lint", "test"}},
	}, usecases.GenerateOutputs{})
	require.NoError(t, err)

	report := resp.Report
	_, err = uuid.Parse(report.RunID)
	require.NoError(t, err)
	assert.Equal(t, "./app", report.Source)
	assert.Equal(t, domain.PlatformGitLab, report.Platform)
	assert.Equal(t, []string{"lint", "test"}, report.Stages)
	assert.Equal(t, 2, report.JobCount)
	assert.Contains(t, report.Pipeline, "pytest")
	assert.NotContains(t, report.Pipeline, "error_job")
	require.NotNil(t, report.Validation)
	assert.Empty(t, report.Validation.YAMLErrors)
}

func TestGenerateUseCase_WritesOutputs(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	out := usecases.GenerateOutputs{
		PipelinePath:  filepath.Join(dir, ".gitlab-ci.yml"),
		JSONPath:      filepath.Join(dir, "report.json"),
		HTMLPath:      filepath.Join(dir, "report.html"),
		VariablesPath: filepath.Join(dir, "variables.csv"),
	}

	uc := newRealGenerateUseCase(t)
	resp, err := uc.Execute(usecases.GenerateRequest{
		Analysis: pythonAnalysis(),
		Settings: &domain.UserSettings{DeployTarget: "ssh", Stages: []string{"deploy"}},
	}, out)
	require.NoError(t, err)

	pipeline, err := os.ReadFile(out.PipelinePath)
	require.NoError(t, err)
	assert.Equal(t, resp.Report.Pipeline, string(pipeline))
	assert.FileExists(t, out.JSONPath)
	assert.FileExists(t, out.HTMLPath)

	csv, err := os.ReadFile(out.VariablesPath)
	require.NoError(t, err)
	assert.Contains(t, string(csv), "DEPLOY_HOST,true")
}

func TestGenerateUseCase_InvalidInput(t *testing.T) {
	t.Parallel()

	uc := newRealGenerateUseCase(t)

	_, err := uc.Execute(usecases.GenerateRequest{}, usecases.GenerateOutputs{})
	require.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.Execute(usecases.GenerateRequest{
		Analysis: pythonAnalysis(),
		Settings: &domain.UserSettings{Platform: "circleci"},
	}, usecases.GenerateOutputs{})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGenerateUseCase_PanicBecomesErrorPipeline(t *testing.T) {
	t.Parallel()

	library := &MockTemplateLibrary{}
	library.On("Select", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		panic("template index corrupted")
	}).Return([]domain.Template{})
	validatorMock := &MockPipelineValidator{}
	analyzer := &MockVariableAnalyzer{}

	uc := usecases.NewGenerateUseCase(
		context.Background(),
		library,
		composer.NewComposer(zap.NewNop()),
		validatorMock,
		analyzer,
		&MockReportGenerator{},
		zap.NewNop(),
	)

	resp, err := uc.Execute(usecases.GenerateRequest{Analysis: pythonAnalysis()}, usecases.GenerateOutputs{})
	require.NoError(t, err)

	report := resp.Report
	assert.Equal(t, []string{"error"}, report.Stages)
	assert.Equal(t, 1, report.JobCount)
	assert.Contains(t, report.Pipeline, composer.ErrorJobName)
	assert.Contains(t, report.Pipeline, "Pipeline generation failed: panic: template index corrupted")
	assert.False(t, report.Validation.IsValid)
	assert.Equal(t, []string{"Generation error: panic: template index corrupted"}, report.Validation.Errors)
	assert.Empty(t, report.Variables)

	validatorMock.AssertNotCalled(t, "Validate", mock.Anything, mock.Anything)
	analyzer.AssertNotCalled(t, "Analyze", mock.Anything)
}

func TestGenerateUseCase_ErrorPipelineForJenkins(t *testing.T) {
	t.Parallel()

	library := &MockTemplateLibrary{}
	library.On("Select", mock.Anything, mock.Anything).Run(func(mock.Arguments) {
		panic(errors.New("boom"))
	}).Return([]domain.Template{})

	uc := usecases.NewGenerateUseCase(
		context.Background(),
		library,
		composer.NewComposer(zap.NewNop()),
		&MockPipelineValidator{},
		&MockVariableAnalyzer{},
		&MockReportGenerator{},
		zap.NewNop(),
	)

	resp, err := uc.Execute(usecases.GenerateRequest{
		Analysis: pythonAnalysis(),
		Settings: &domain.UserSettings{Platform: "jenkins"},
	}, usecases.GenerateOutputs{})
	require.NoError(t, err)
	assert.Equal(t, domain.PlatformJenkins, resp.Report.Platform)
	assert.Contains(t, resp.Report.Pipeline, "pipeline {")
}

func TestGenerateUseCase_UsesInjectedComponents(t *testing.T) {
	t.Parallel()

	tmpl := domain.Template{Name: "lint", Language: "python", Category: "lint", Stage: "lint", Script: []string{"flake8 ${PROJECT_NAME}"}}
	applied := tmpl
	applied.Script = []string{"flake8 app"}

	library := &MockTemplateLibrary{}
	library.On("Select", mock.Anything, mock.Anything).Return([]domain.Template{tmpl})
	library.On("ApplyParameters", tmpl, mock.Anything, mock.Anything).Return(applied)

	validation := domain.NewValidationResult()
	validatorMock := &MockPipelineValidator{}
	validatorMock.On("Validate", mock.Anything, mock.AnythingOfType("string")).Return(validation)

	analyzer := &MockVariableAnalyzer{}
	analyzer.On("Analyze", mock.Anything).Return([]domain.RequiredVariable{{Name: "X", Required: true}})

	gen := &MockReportGenerator{}
	gen.On("WritePipeline", mock.Anything, "out.yml", mock.Anything).Return(nil)
	gen.On("GenerateJSON", mock.Anything, "out.json", mock.Anything).Return(errors.New("disk full"))

	uc := usecases.NewGenerateUseCase(
		context.Background(),
		library,
		composer.NewComposer(zap.NewNop()),
		validatorMock,
		analyzer,
		gen,
		zap.NewNop(),
	)

	_, err := uc.Execute(usecases.GenerateRequest{Analysis: pythonAnalysis()}, usecases.GenerateOutputs{
		PipelinePath: "out.yml",
		JSONPath:     "out.json",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to generate JSON report")

	library.AssertExpectations(t)
	validatorMock.AssertExpectations(t)
	analyzer.AssertExpectations(t)
	gen.AssertExpectations(t)
	gen.AssertNotCalled(t, "GenerateHTML", mock.Anything, mock.Anything, mock.Anything)
}
