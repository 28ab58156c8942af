package usecases_test

import (
	"context"
	"pipegen-cli/internal/domain"

	"github.com/stretchr/testify/mock"
)

// MockRepositorySource for testing
type MockRepositorySource struct {
	mock.Mock
}

func (m *MockRepositorySource) Fetch(ctx context.Context, source, ref string) (string, func(), error) {
	args := m.Called(ctx, source, ref)
	cleanup, _ := args.Get(1).(func())
	return args.String(0), cleanup, args.Error(2)
}

// MockStackDetector for testing
type MockStackDetector struct {
	mock.Mock
}

func (m *MockStackDetector) Detect(ctx context.Context, repoRoot string) (*domain.StackResult, error) {
	args := m.Called(ctx, repoRoot)
	result, _ := args.Get(0).(*domain.StackResult)
	return result, args.Error(1)
}

// MockTemplateLibrary for testing
type MockTemplateLibrary struct {
	mock.Mock
}

func (m *MockTemplateLibrary) Select(analysis *domain.StackAnalysis, settings *domain.UserSettings) []domain.Template {
	args := m.Called(analysis, settings)
	return args.Get(0).([]domain.Template)
}

func (m *MockTemplateLibrary) ApplyParameters(
	t domain.Template,
	analysis *domain.StackAnalysis,
	settings *domain.UserSettings,
) domain.Template {
	args := m.Called(t, analysis, settings)
	return args.Get(0).(domain.Template)
}

// MockPipelineValidator for testing
type MockPipelineValidator struct {
	mock.Mock
}

func (m *MockPipelineValidator) Validate(ctx context.Context, text string) *domain.ValidationResult {
	args := m.Called(ctx, text)
	return args.Get(0).(*domain.ValidationResult)
}

// MockVariableAnalyzer for testing
type MockVariableAnalyzer struct {
	mock.Mock
}

func (m *MockVariableAnalyzer) Analyze(text string) []domain.RequiredVariable {
	args := m.Called(text)
	return args.Get(0).([]domain.RequiredVariable)
}

// MockReportGenerator for testing
type MockReportGenerator struct {
	mock.Mock
}

func (m *MockReportGenerator) WritePipeline(ctx context.Context, path, text string) error {
	args := m.Called(ctx, path, text)
	return args.Error(0)
}

func (m *MockReportGenerator) GenerateJSON(ctx context.Context, path string, report *domain.GenerationReport) error {
	args := m.Called(ctx, path, report)
	return args.Error(0)
}

func (m *MockReportGenerator) GenerateHTML(ctx context.Context, path string, report *domain.GenerationReport) error {
	args := m.Called(ctx, path, report)
	return args.Error(0)
}

func (m *MockReportGenerator) GenerateCSV(ctx context.Context, path string, report *domain.GenerationReport) error {
	args := m.Called(ctx, path, report)
	return args.Error(0)
}
