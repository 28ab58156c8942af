package usecases

import (
	"context"
	"errors"
	"fmt"
	"pipegen-cli/internal/domain"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// GenerateRequest is the input of one generation run
type GenerateRequest struct {
	Source   string // informational, copied into the report
	Analysis *domain.StackAnalysis
	Settings *domain.UserSettings
}

// GenerateOutputs lists the files to write; empty paths are skipped
type GenerateOutputs struct {
	PipelinePath  string
	JSONPath      string
	HTMLPath      string
	VariablesPath string
}

// GenerateResponse represents the result of a generation run
type GenerateResponse struct {
	Report      *domain.GenerationReport
	Composition *domain.Composition
}

// GenerateUseCase selects templates, composes, validates and reports
type GenerateUseCase struct {
	library   domain.TemplateLibrary
	composer  domain.PipelineComposer
	validator domain.PipelineValidator
	variables domain.VariableAnalyzer
	generator domain.ReportGenerator
	logger    *zap.Logger
	ctx       context.Context
}

// NewGenerateUseCase creates a new generate use case with dependency injection
func NewGenerateUseCase(
	ctx context.Context,
	library domain.TemplateLibrary,
	composer domain.PipelineComposer,
	validator domain.PipelineValidator,
	variables domain.VariableAnalyzer,
	generator domain.ReportGenerator,
	logger *zap.Logger,
) *GenerateUseCase {
	return &GenerateUseCase{
		library:   library,
		composer:  composer,
		validator: validator,
		variables: variables,
		generator: generator,
		logger:    logger,
		ctx:       ctx,
	}
}

// Execute runs one generation. Invalid input is returned as an error before
// any work starts. Failures during composition, panics included, never
// escape: they produce the error pipeline and an invalid validation result.
func (uc *GenerateUseCase) Execute(req GenerateRequest, out GenerateOutputs) (*GenerateResponse, error) {
	runID := uuid.NewString()
	logger := uc.logger.With(zap.String("run_id", runID))

	if err := req.Analysis.Validate(); err != nil {
		return nil, err
	}
	settings := domain.UserSettings{}
	if req.Settings != nil {
		settings = *req.Settings
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	logger.Info("Starting pipeline generation",
		zap.String("source", req.Source),
		zap.String("platform", settings.Platform),
		zap.Strings("languages", req.Analysis.Languages))

	var validation *domain.ValidationResult
	var required []domain.RequiredVariable

	composition, err := uc.compose(req.Analysis, &settings)
	if err != nil {
		logger.Error("Pipeline generation failed", zap.Error(err))
		composition = uc.composer.ErrorPipeline(err.Error(), settings.Platform)
		validation = domain.NewValidationResult()
		validation.IsValid = false
		validation.Errors = append(validation.Errors, "Generation error: "+err.Error())
		required = []domain.RequiredVariable{}
	} else {
		validation = uc.validator.Validate(uc.ctx, composition.Text)
		required = uc.variables.Analyze(composition.Text)
	}

	report := &domain.GenerationReport{
		RunID:       runID,
		Source:      req.Source,
		Platform:    composition.Platform,
		GeneratedAt: time.Now().UTC(),
		Analysis:    req.Analysis,
		Pipeline:    composition.Text,
		Warnings:    nonNil(composition.Warnings),
		Validation:  validation,
		Variables:   required,
	}
	if composition.Config != nil {
		report.Stages = composition.Config.Stages
		report.JobCount = len(composition.Config.Jobs)
	}

	if err := uc.writeOutputs(report, out); err != nil {
		logger.Error("Failed to write outputs", zap.Error(err))
		return nil, err
	}

	logger.Info("Pipeline generation completed",
		zap.Int("stages", len(report.Stages)),
		zap.Int("jobs", report.JobCount),
		zap.Bool("valid", validation.IsValid),
		zap.Int("required_variables", len(required)))

	return &GenerateResponse{Report: report, Composition: composition}, nil
}

// compose runs selection, parameterization and composition, converting
// panics into errors
func (uc *GenerateUseCase) compose(
	analysis *domain.StackAnalysis,
	settings *domain.UserSettings,
) (composition *domain.Composition, err error) {
	defer func() {
		if r := recover(); r != nil {
			composition = nil
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	selected := uc.library.Select(analysis, settings)
	for i := range selected {
		selected[i] = uc.library.ApplyParameters(selected[i], analysis, settings)
	}
	uc.logger.Debug("Templates selected", zap.Int("templates", len(selected)))

	composition, err = uc.composer.Compose(selected, analysis, settings)
	if err != nil {
		return nil, err
	}
	if composition == nil {
		return nil, errors.New("composer returned no pipeline")
	}
	return composition, nil
}

func (uc *GenerateUseCase) writeOutputs(report *domain.GenerationReport, out GenerateOutputs) error {
	if out.PipelinePath != "" {
		if err := uc.generator.WritePipeline(uc.ctx, out.PipelinePath, report.Pipeline); err != nil {
			return fmt.Errorf("failed to write pipeline: %w", err)
		}
	}
	if out.JSONPath != "" {
		if err := uc.generator.GenerateJSON(uc.ctx, out.JSONPath, report); err != nil {
			return fmt.Errorf("failed to generate JSON report: %w", err)
		}
	}
	if out.HTMLPath != "" {
		if err := uc.generator.GenerateHTML(uc.ctx, out.HTMLPath, report); err != nil {
			return fmt.Errorf("failed to generate HTML report: %w", err)
		}
	}
	if out.VariablesPath != "" {
		if err := uc.generator.GenerateCSV(uc.ctx, out.VariablesPath, report); err != nil {
			return fmt.Errorf("failed to generate variables CSV: %w", err)
		}
	}
	return nil
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
