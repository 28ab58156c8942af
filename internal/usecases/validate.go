package usecases

import (
	"context"
	"fmt"
	"os"
	"pipegen-cli/internal/domain"

	"go.uber.org/zap"
)

// ValidateUseCase validates an existing pipeline file
type ValidateUseCase struct {
	validator domain.PipelineValidator
	logger    *zap.Logger
	ctx       context.Context
}

// NewValidateUseCase creates a new validate use case
func NewValidateUseCase(ctx context.Context, validator domain.PipelineValidator, logger *zap.Logger) *ValidateUseCase {
	return &ValidateUseCase{validator: validator, logger: logger, ctx: ctx}
}

// Execute reads path and validates its content
func (uc *ValidateUseCase) Execute(path string) (*domain.ValidationResult, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline file: %w", err)
	}
	uc.logger.Info("Validating pipeline", zap.String("path", path), zap.Int("size_bytes", len(content)))
	return uc.validator.Validate(uc.ctx, string(content)), nil
}

// VariablesUseCase lists the variables a pipeline file expects
type VariablesUseCase struct {
	analyzer domain.VariableAnalyzer
	logger   *zap.Logger
}

// NewVariablesUseCase creates a new variables use case
func NewVariablesUseCase(analyzer domain.VariableAnalyzer, logger *zap.Logger) *VariablesUseCase {
	return &VariablesUseCase{analyzer: analyzer, logger: logger}
}

// Execute reads path and returns its required variables
func (uc *VariablesUseCase) Execute(path string) ([]domain.RequiredVariable, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline file: %w", err)
	}
	vars := uc.analyzer.Analyze(string(content))
	uc.logger.Info("Variables analyzed", zap.String("path", path), zap.Int("variables", len(vars)))
	return vars, nil
}
