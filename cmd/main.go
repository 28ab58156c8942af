package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"pipegen-cli/internal/classifier"
	"pipegen-cli/internal/composer"
	"pipegen-cli/internal/config"
	"pipegen-cli/internal/domain"
	"pipegen-cli/internal/generator"
	"pipegen-cli/internal/gitlab"
	"pipegen-cli/internal/logger"
	"pipegen-cli/internal/parser"
	"pipegen-cli/internal/repository"
	"pipegen-cli/internal/scanner"
	"pipegen-cli/internal/templates"
	"pipegen-cli/internal/usecases"
	"pipegen-cli/internal/validator"
	"pipegen-cli/internal/variables"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// errPipelineInvalid makes the validate command exit non-zero
var errPipelineInvalid = errors.New("pipeline is invalid")

// options holds every flag value of one command tree
type options struct {
	configFile string
	debug      bool

	repo        string
	ref         string
	output      string
	analysis    string
	settings    string
	platform    string
	stages      []string
	report      string
	html        string
	varsCSV     string
	file        string
	jsonOut     bool
	timeout     int
	cloneMethod string
	templates   string
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	rootCmd := &cobra.Command{
		Use:   "pipegen-cli",
		Short: "Pipeline generator - detect a repository's stack and generate its CI/CD pipeline",
		Long: `A command-line tool that inspects a repository (local directory, git remote
or GitLab project), detects its languages, frameworks, test runners and
infrastructure, and composes a GitLab CI or Jenkins pipeline from a template
library. Generated pipelines are validated for structure, dependency and
security problems, and the variables they expect from CI/CD settings are listed.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "Path to configuration file")
	rootCmd.PersistentFlags().BoolVarP(&opts.debug, "debug", "d", false, "Enable debug logging with verbose output")
	rootCmd.PersistentFlags().IntVarP(&opts.timeout, "timeout", "", 0,
		"Analysis timeout in minutes (overrides config, 0 = use config default)")
	rootCmd.PersistentFlags().StringVar(&opts.cloneMethod, "clone-method", "",
		"How remote repositories are fetched: clone or api (overrides config)")
	rootCmd.PersistentFlags().StringVar(&opts.templates, "templates", "",
		"Directory with templates overlaying the built-in library (overrides config)")

	detectCmd := &cobra.Command{
		Use:   "detect",
		Short: "Detect the technology stack of a repository",
		Long: `Fetch the repository and print the detected stack as JSON. With --output
the composer input (the stack analysis) is also written to a file that the
generate command accepts through --analysis.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, opts)
		},
	}
	detectCmd.Flags().StringVarP(&opts.repo, "repo", "r", "", "Repository path or URL (required)")
	detectCmd.Flags().StringVar(&opts.ref, "ref", "", "Branch, tag or commit (default branch when empty)")
	detectCmd.Flags().StringVarP(&opts.output, "output", "o", "", "Write the stack analysis to this file")
	_ = detectCmd.MarkFlagRequired("repo")

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a CI/CD pipeline",
		Long: `Generate a pipeline for a repository (--repo) or a previously saved stack
analysis (--analysis). The pipeline is printed to stdout unless --output is set.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(cmd, opts)
		},
	}
	generateCmd.Flags().StringVarP(&opts.repo, "repo", "r", "", "Repository path or URL")
	generateCmd.Flags().StringVar(&opts.ref, "ref", "", "Branch, tag or commit (default branch when empty)")
	generateCmd.Flags().StringVarP(&opts.analysis, "analysis", "a", "", "Stack analysis file (JSON or YAML)")
	generateCmd.Flags().StringVarP(&opts.settings, "settings", "s", "", "Generation settings file (JSON or YAML)")
	generateCmd.Flags().StringVarP(&opts.platform, "platform", "p", "", "Target platform: gitlab or jenkins (overrides settings)")
	generateCmd.Flags().StringSliceVar(&opts.stages, "stages", nil, "Stages to generate (overrides settings)")
	generateCmd.Flags().StringVarP(&opts.output, "output", "o", "", "Pipeline output file (overrides config)")
	generateCmd.Flags().StringVar(&opts.report, "report", "", "JSON report file (overrides config)")
	generateCmd.Flags().StringVar(&opts.html, "html", "", "HTML report file (overrides config)")
	generateCmd.Flags().StringVar(&opts.varsCSV, "variables-csv", "", "Required variables CSV file (overrides config)")
	generateCmd.MarkFlagsOneRequired("repo", "analysis")
	generateCmd.MarkFlagsMutuallyExclusive("repo", "analysis")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate an existing pipeline file",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, opts)
		},
	}
	validateCmd.Flags().StringVarP(&opts.file, "file", "f", "", "Pipeline file (required)")
	validateCmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print the result as JSON")
	_ = validateCmd.MarkFlagRequired("file")

	variablesCmd := &cobra.Command{
		Use:   "variables",
		Short: "List the variables a pipeline expects from CI/CD settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVariables(cmd, opts)
		},
	}
	variablesCmd.Flags().StringVarP(&opts.file, "file", "f", "", "Pipeline file (required)")
	variablesCmd.Flags().BoolVar(&opts.jsonOut, "json", false, "Print the variables as JSON")
	_ = variablesCmd.MarkFlagRequired("file")

	templatesCmd := &cobra.Command{
		Use:   "templates",
		Short: "List the template library keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTemplates(cmd, opts)
		},
	}

	rootCmd.AddCommand(detectCmd, generateCmd, validateCmd, variablesCmd, templatesCmd)
	return rootCmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// loadConfig loads configuration, applies flag overrides and sets the log level
func loadConfig(opts *options) (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(opts.configFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if opts.timeout > 0 {
		cfg.Timeout.AnalysisTimeoutMinutes = opts.timeout
	}
	if opts.cloneMethod != "" {
		cfg.Clone.Method = opts.cloneMethod
	}
	if opts.templates != "" {
		cfg.Templates.Dir = opts.templates
	}

	level, err := logger.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, nil, err
	}
	if opts.debug {
		level = zapcore.DebugLevel
	}
	logger.SetLevel(level)

	return cfg, logger.GetLogger(), nil
}

// buildSource wires local, clone and GitLab tree sources behind one resolver
func buildSource(cfg *config.Config, l *zap.Logger) (domain.RepositorySource, error) {
	pool := repository.NewPool(cfg.Clone.MaxParallel)
	clone := repository.NewGitSource(
		cfg.GitLab.Token,
		time.Duration(cfg.Clone.TimeoutSeconds)*time.Second,
		cfg.Clone.Depth,
		pool,
		l,
	)

	var api domain.RepositorySource
	if cfg.GitLab.Token != "" {
		client, err := gitlab.NewClient(cfg.GitLab.BaseURL, cfg.GitLab.Token, cfg.GitLab.LintProject, l)
		if err != nil {
			return nil, err
		}
		api = gitlab.NewTreeSource(client, cfg.Clone.MaxParallel, cfg.Clone.MaxFiles, l)
	}

	return repository.NewResolver(repository.NewLocalSource(), clone, api, cfg.Clone.Method, l), nil
}

func buildDetectUseCase(ctx context.Context, cfg *config.Config, l *zap.Logger) (*usecases.DetectUseCase, error) {
	source, err := buildSource(cfg, l)
	if err != nil {
		return nil, err
	}
	detector := scanner.NewScanner(
		parser.NewParser(),
		classifier.NewClassifier(nil, l),
		scanner.Options{
			MaxFileSize:   cfg.Detection.MaxFileSizeBytes,
			ContentPrefix: cfg.Detection.ContentPrefixBytes,
			CacheSize:     cfg.Detection.CacheSize,
		},
		l,
	)
	return usecases.NewDetectUseCase(
		ctx,
		source,
		detector,
		cfg.Detection.ResultCacheSize,
		time.Duration(cfg.Timeout.AnalysisTimeoutMinutes)*time.Minute,
		l,
	)
}

func buildValidator(cfg *config.Config, l *zap.Logger) (*validator.Validator, error) {
	var linter domain.PipelineLinter
	if cfg.GitLab.Token != "" && cfg.GitLab.LintProject != "" {
		client, err := gitlab.NewClient(cfg.GitLab.BaseURL, cfg.GitLab.Token, cfg.GitLab.LintProject, l)
		if err != nil {
			return nil, err
		}
		linter = client
	}
	return validator.NewValidator(linter, time.Duration(cfg.Timeout.LintTimeoutSeconds)*time.Second, l), nil
}

func runDetect(cmd *cobra.Command, opts *options) error {
	cfg, l, err := loadConfig(opts)
	if err != nil {
		return err
	}

	detectUseCase, err := buildDetectUseCase(cmd.Context(), cfg, l)
	if err != nil {
		return err
	}

	result, err := detectUseCase.Execute(opts.repo, opts.ref)
	if err != nil {
		return fmt.Errorf("failed to detect stack: %w", err)
	}

	if opts.output != "" {
		if err := writeJSONFile(opts.output, result.Analysis()); err != nil {
			return err
		}
		l.Info("Stack analysis written", zap.String("path", opts.output))
	}

	return writeJSON(cmd.OutOrStdout(), result)
}

func runGenerate(cmd *cobra.Command, opts *options) error {
	cfg, l, err := loadConfig(opts)
	if err != nil {
		return err
	}

	settings, err := config.LoadSettings(opts.settings)
	if err != nil {
		return err
	}
	if opts.platform != "" {
		settings.Platform = opts.platform
	}
	if len(opts.stages) > 0 {
		settings.Stages = opts.stages
	}

	var analysis *domain.StackAnalysis
	source := opts.repo
	if opts.analysis != "" {
		analysis, err = config.LoadAnalysis(opts.analysis)
		if err != nil {
			return err
		}
		source = opts.analysis
	} else {
		detectUseCase, err := buildDetectUseCase(cmd.Context(), cfg, l)
		if err != nil {
			return err
		}
		result, err := detectUseCase.Execute(opts.repo, opts.ref)
		if err != nil {
			return fmt.Errorf("failed to detect stack: %w", err)
		}
		analysis = result.Analysis()
	}

	library, err := templates.NewLibrary(cfg.Templates.Dir, l)
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	pipelineValidator, err := buildValidator(cfg, l)
	if err != nil {
		return err
	}

	generateUseCase := usecases.NewGenerateUseCase(
		cmd.Context(),
		library,
		composer.NewComposer(l),
		pipelineValidator,
		variables.NewAnalyzer(l),
		generator.NewGenerator(l),
		l,
	)

	out := usecases.GenerateOutputs{
		PipelinePath:  firstNonEmpty(opts.output, cfg.Output.PipelineFile),
		JSONPath:      firstNonEmpty(opts.report, cfg.Output.JSONFile),
		HTMLPath:      firstNonEmpty(opts.html, cfg.Output.HTMLFile),
		VariablesPath: firstNonEmpty(opts.varsCSV, cfg.Output.CSVFile),
	}

	response, err := generateUseCase.Execute(usecases.GenerateRequest{
		Source:   source,
		Analysis: analysis,
		Settings: settings,
	}, out)
	if err != nil {
		return fmt.Errorf("failed to generate pipeline: %w", err)
	}

	summary := cmd.OutOrStdout()
	if out.PipelinePath == "" {
		fmt.Fprint(cmd.OutOrStdout(), response.Report.Pipeline)
		summary = cmd.ErrOrStderr()
	}
	printGenerateSummary(summary, response.Report, out)
	return nil
}

func runValidate(cmd *cobra.Command, opts *options) error {
	cfg, l, err := loadConfig(opts)
	if err != nil {
		return err
	}
	pipelineValidator, err := buildValidator(cfg, l)
	if err != nil {
		return err
	}

	result, err := usecases.NewValidateUseCase(cmd.Context(), pipelineValidator, l).Execute(opts.file)
	if err != nil {
		return err
	}

	if opts.jsonOut {
		if err := writeJSON(cmd.OutOrStdout(), result); err != nil {
			return err
		}
	} else {
		printValidation(cmd.OutOrStdout(), result)
	}

	if !result.IsValid {
		return errPipelineInvalid
	}
	return nil
}

func runVariables(cmd *cobra.Command, opts *options) error {
	_, l, err := loadConfig(opts)
	if err != nil {
		return err
	}

	vars, err := usecases.NewVariablesUseCase(variables.NewAnalyzer(l), l).Execute(opts.file)
	if err != nil {
		return err
	}

	if opts.jsonOut {
		return writeJSON(cmd.OutOrStdout(), vars)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tREQUIRED\tDEFAULT\tJOBS\tDESCRIPTION")
	for _, v := range vars {
		fmt.Fprintf(w, "%s\t%t\t%s\t%s\t%s\n", v.Name, v.Required, v.DefaultValue, strings.Join(v.JobUsage, ","), v.Description)
	}
	return w.Flush()
}

func runTemplates(cmd *cobra.Command, opts *options) error {
	cfg, l, err := loadConfig(opts)
	if err != nil {
		return err
	}
	library, err := templates.NewLibrary(cfg.Templates.Dir, l)
	if err != nil {
		return fmt.Errorf("failed to load templates: %w", err)
	}
	for _, key := range library.Keys() {
		fmt.Fprintln(cmd.OutOrStdout(), key)
	}
	return nil
}

func printGenerateSummary(w io.Writer, report *domain.GenerationReport, out usecases.GenerateOutputs) {
	status := "✅ valid"
	if report.Validation != nil && !report.Validation.IsValid {
		status = "❌ invalid"
	}
	fmt.Fprintln(w, "\n🎉 Pipeline generated")
	fmt.Fprintf(w, "📈 Summary:\n")
	fmt.Fprintf(w, "  • Run ID: %s\n", report.RunID)
	fmt.Fprintf(w, "  • Platform: %s\n", report.Platform)
	fmt.Fprintf(w, "  • Stages: %s\n", strings.Join(report.Stages, ", "))
	fmt.Fprintf(w, "  • Jobs: %d\n", report.JobCount)
	fmt.Fprintf(w, "  • Validation: %s\n", status)
	fmt.Fprintf(w, "  • Required variables: %d\n", len(report.Variables))
	for _, path := range []string{out.PipelinePath, out.JSONPath, out.HTMLPath, out.VariablesPath} {
		if path != "" {
			fmt.Fprintf(w, "  • Written: %s\n", path)
		}
	}
	for _, warning := range report.Warnings {
		fmt.Fprintf(w, "⚠️  %s\n", warning)
	}
}

func printValidation(w io.Writer, result *domain.ValidationResult) {
	if result.IsValid {
		fmt.Fprintln(w, "✅ Pipeline is valid")
	} else {
		fmt.Fprintln(w, "❌ Pipeline is invalid")
	}
	sections := []struct {
		title string
		items []string
	}{
		{"YAML errors", result.YAMLErrors},
		{"Errors", result.Errors},
		{"Security issues", result.SecurityIssues},
		{"Circular dependencies", result.CircularDependencies},
		{"Missing dependencies", result.MissingDependencies},
		{"CI lint", result.ExternalLintErrors},
		{"Warnings", result.Warnings},
	}
	for _, s := range sections {
		if len(s.items) == 0 {
			continue
		}
		fmt.Fprintf(w, "%s:\n", s.title)
		for _, item := range s.items {
			fmt.Fprintf(w, "  • %s\n", item)
		}
	}
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

func writeJSONFile(path string, v any) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer file.Close()
	return writeJSON(file, v)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
