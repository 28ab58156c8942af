package domain

import "context"

type GitlabClient interface {
	// checks if the token has enough permissions
	CheckPermissions(ctx context.Context) error

	// returns list of filepaths in the repository
	GetFilesList(ctx context.Context, repoURL, ref string) ([]string, error)

	// returns the content of the file
	GetFileContent(ctx context.Context, repoURL, ref, filePath string) ([]byte, error)
}

type PipelineLinter interface {
	// submits pipeline text to the CI lint endpoint
	LintPipeline(ctx context.Context, content string) (*LintResult, error)
}

type RepositorySource interface {
	// materializes the repository on disk; cleanup removes anything created
	Fetch(ctx context.Context, source, ref string) (dir string, cleanup func(), err error)
}

type StackDetector interface {
	// scans a repository tree and infers its technology stack
	Detect(ctx context.Context, repoRoot string) (*StackResult, error)
}

type ManifestParser interface {
	// extracts declared dependency names from a manifest file
	ParseManifest(ctx context.Context, filePath string, content []byte) ([]string, error)
}

type TemplateLibrary interface {
	// returns templates matching the analyzed stack
	Select(analysis *StackAnalysis, settings *UserSettings) []Template
	// substitutes ${VAR} placeholders and returns a new template
	ApplyParameters(t Template, analysis *StackAnalysis, settings *UserSettings) Template
}

type PipelineComposer interface {
	// merges templates into a rendered pipeline
	Compose(templates []Template, analysis *StackAnalysis, settings *UserSettings) (*Composition, error)
	// renders the single-job pipeline reporting a generation failure
	ErrorPipeline(message, platform string) *Composition
}

type PipelineValidator interface {
	// statically checks pipeline text; findings are data, never errors
	Validate(ctx context.Context, text string) *ValidationResult
}

type VariableAnalyzer interface {
	// lists variables the pipeline expects from CI/CD settings
	Analyze(text string) []RequiredVariable
}

type ReportGenerator interface {
	// writes the pipeline document
	WritePipeline(ctx context.Context, path, text string) error
	// generates a JSON report
	GenerateJSON(ctx context.Context, path string, report *GenerationReport) error
	// generates an HTML report
	GenerateHTML(ctx context.Context, path string, report *GenerationReport) error
	// generates a CSV listing of required variables
	GenerateCSV(ctx context.Context, path string, report *GenerationReport) error
}
