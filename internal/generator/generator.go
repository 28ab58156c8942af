package generator

import (
	"context"
	_ "embed"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"pipegen-cli/internal/domain"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

//go:embed report.html
var templateContent string

const reportTitle = "Pipeline Generation Report"

// Generator writes generated pipelines and their reports
type Generator struct {
	logger *zap.Logger
}

// NewGenerator creates a new report generator
func NewGenerator(logger *zap.Logger) *Generator {
	return &Generator{logger: logger}
}

// createFile creates path and any missing parent directories
func createFile(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return file, nil
}

// WritePipeline writes the pipeline document to path
func (g *Generator) WritePipeline(ctx context.Context, path, text string) error {
	file, err := createFile(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err := file.WriteString(text); err != nil {
		return fmt.Errorf("failed to write pipeline: %w", err)
	}

	g.logger.Info("Pipeline written", zap.String("path", path), zap.Int("size_bytes", len(text)))
	return nil
}

// GenerateSummary creates aggregated statistics for a report
func (g *Generator) GenerateSummary(ctx context.Context, report *domain.GenerationReport) map[string]interface{} {
	issues := map[string]int{
		"errors":                0,
		"warnings":              len(report.Warnings),
		"security_issues":       0,
		"circular_dependencies": 0,
		"missing_dependencies":  0,
		"external_lint_errors":  0,
	}
	valid := false
	if v := report.Validation; v != nil {
		valid = v.IsValid
		issues["errors"] = len(v.Errors) + len(v.YAMLErrors)
		issues["warnings"] += len(v.Warnings)
		issues["security_issues"] = len(v.SecurityIssues)
		issues["circular_dependencies"] = len(v.CircularDependencies)
		issues["missing_dependencies"] = len(v.MissingDependencies)
		issues["external_lint_errors"] = len(v.ExternalLintErrors)
	}

	required := 0
	for _, v := range report.Variables {
		if v.Required {
			required++
		}
	}

	var languages []string
	if report.Analysis != nil {
		languages = report.Analysis.Languages
	}

	return map[string]interface{}{
		"platform":           report.Platform,
		"languages":          languages,
		"total_stages":       len(report.Stages),
		"total_jobs":         report.JobCount,
		"is_valid":           valid,
		"issues":             issues,
		"total_variables":    len(report.Variables),
		"required_variables": required,
	}
}

// GenerateMatrix creates a variable by job usage matrix
func (g *Generator) GenerateMatrix(ctx context.Context, report *domain.GenerationReport) map[string]interface{} {
	var jobs []string
	for _, v := range report.Variables {
		for _, job := range v.JobUsage {
			if !slices.Contains(jobs, job) {
				jobs = append(jobs, job)
			}
		}
	}
	slices.Sort(jobs)

	variables := make([]string, 0, len(report.Variables))
	matrix := make([][]bool, len(report.Variables))
	for i, v := range report.Variables {
		variables = append(variables, v.Name)
		matrix[i] = make([]bool, len(jobs))
		for j, job := range jobs {
			matrix[i][j] = slices.Contains(v.JobUsage, job)
		}
	}

	return map[string]interface{}{
		"jobs":      jobs,
		"variables": variables,
		"matrix":    matrix,
	}
}

// GenerateHTML creates an HTML report
func (g *Generator) GenerateHTML(ctx context.Context, path string, report *domain.GenerationReport) error {
	data := struct {
		Report  *domain.GenerationReport
		Summary map[string]interface{}
		Matrix  map[string]interface{}
		Title   string
	}{
		Report:  report,
		Summary: g.GenerateSummary(ctx, report),
		Matrix:  g.GenerateMatrix(ctx, report),
		Title:   reportTitle,
	}

	tmpl, err := template.New("report").Funcs(template.FuncMap{
		"join": strings.Join,
	}).Parse(templateContent)
	if err != nil {
		return fmt.Errorf("failed to parse template: %w", err)
	}

	file, err := createFile(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := tmpl.Execute(file, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}

	g.logger.Info("HTML report generated", zap.String("path", path))
	return nil
}

// GenerateCSV creates a CSV listing of required variables
func (g *Generator) GenerateCSV(ctx context.Context, path string, report *domain.GenerationReport) error {
	file, err := createFile(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)

	header := []string{
		"Name",
		"Required",
		"Default Value",
		"Description",
		"Example",
		"Jobs",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, v := range report.Variables {
		record := []string{
			v.Name,
			strconv.FormatBool(v.Required),
			v.DefaultValue,
			v.Description,
			v.Example,
			strings.Join(v.JobUsage, ";"),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush CSV: %w", err)
	}

	g.logger.Info("Variables CSV generated", zap.String("path", path), zap.Int("variables", len(report.Variables)))
	return nil
}

// GenerateJSON creates a JSON report
func (g *Generator) GenerateJSON(ctx context.Context, path string, report *domain.GenerationReport) error {
	reportData := struct {
		*domain.GenerationReport
		Summary map[string]interface{} `json:"summary"`
		Title   string                 `json:"title"`
	}{
		GenerationReport: report,
		Summary:          g.GenerateSummary(ctx, report),
		Title:            reportTitle,
	}

	file, err := createFile(path)
	if err != nil {
		return err
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	if err := encoder.Encode(reportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}

	g.logger.Info("JSON report generated", zap.String("path", path))
	return nil
}
