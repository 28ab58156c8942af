package domain

import "time"

// Supported output platforms
const (
	PlatformGitLab  = "gitlab"
	PlatformJenkins = "jenkins"
)

// Entry point types in selection priority order
const (
	EntryTypeMain          = "main"
	EntryTypeApp           = "app"
	EntryTypeDocker        = "docker"
	EntryTypeScript        = "script"
	EntryTypeDockerCompose = "docker-compose"
	EntryTypeWebpack       = "webpack"
)

// EntryPoint is a candidate application start location
type EntryPoint struct {
	FilePath    string  `json:"path"                  yaml:"path"`
	Type        string  `json:"type"                  yaml:"type"`
	Language    string  `json:"lang,omitempty"        yaml:"lang,omitempty"`
	Framework   string  `json:"framework,omitempty"   yaml:"framework,omitempty"`
	Confidence  float64 `json:"confidence"            yaml:"confidence"`
	Description string  `json:"description,omitempty" yaml:"description,omitempty"`
}

// StackResult accumulates everything the detector learns about a repository.
// Set-like fields only grow and booleans never revert once true.
type StackResult struct {
	Languages          []string            `json:"languages"`
	Frameworks         []string            `json:"frameworks"`
	FrontendFrameworks []string            `json:"frontend_frameworks"`
	BackendFrameworks  []string            `json:"backend_frameworks"`
	MobileFrameworks   []string            `json:"mobile_frameworks"`
	PackageManager     string              `json:"package_manager,omitempty"`
	TestRunners        []string            `json:"test_runner"`
	Docker             bool                `json:"docker"`
	DockerContext      string              `json:"docker_context"`
	DockerfilePath     string              `json:"dockerfile_path,omitempty"`
	Kubernetes         bool                `json:"kubernetes"`
	Terraform          bool                `json:"terraform"`
	Databases          []string            `json:"databases"`
	CloudPlatforms     []string            `json:"cloud_platforms"`
	BuildTools         []string            `json:"build_tools"`
	CICD               []string            `json:"cicd"`
	EntryPoints        []EntryPoint        `json:"entry_points"`
	MainEntryPoint     *EntryPoint         `json:"main_entry_point,omitempty"`
	FilesDetected      map[string][]string `json:"files_detected"`
	Hints              []string            `json:"hints"`
}

// StackAnalysis is the composer-facing view of a detected stack
type StackAnalysis struct {
	Languages          []string     `json:"languages"                     yaml:"languages"`
	Frameworks         []string     `json:"frameworks"                    yaml:"frameworks"`
	FrontendFrameworks []string     `json:"frontend_frameworks"           yaml:"frontend_frameworks"`
	BackendFrameworks  []string     `json:"backend_frameworks"            yaml:"backend_frameworks"`
	PackageManager     string       `json:"package_manager,omitempty"     yaml:"package_manager,omitempty"`
	TestRunners        []string     `json:"test_runner"                   yaml:"test_runner"`
	Docker             bool         `json:"docker"                        yaml:"docker"`
	DockerContext      string       `json:"docker_context"                yaml:"docker_context"`
	DockerfilePath     string       `json:"dockerfile_path,omitempty"     yaml:"dockerfile_path,omitempty"`
	Kubernetes         bool         `json:"kubernetes"                    yaml:"kubernetes"`
	Terraform          bool         `json:"terraform"                     yaml:"terraform"`
	Databases          []string     `json:"databases"                     yaml:"databases"`
	EntryPoints        []EntryPoint `json:"entry_points"                  yaml:"entry_points"`
	MainEntry          *EntryPoint  `json:"main_entry,omitempty"          yaml:"main_entry,omitempty"`
}

// Triggers declares when the generated pipeline runs
type Triggers struct {
	OnPush         []string `json:"on_push,omitempty"          yaml:"on_push,omitempty"`
	OnMergeRequest bool     `json:"on_merge_request,omitempty" yaml:"on_merge_request,omitempty"`
	OnTags         string   `json:"on_tags,omitempty"          yaml:"on_tags,omitempty"`
	Schedule       bool     `json:"schedule,omitempty"         yaml:"schedule,omitempty"`
	Manual         bool     `json:"manual,omitempty"           yaml:"manual,omitempty"`
}

// UserSettings are caller preferences for pipeline generation
type UserSettings struct {
	Platform       string            `json:"platform"                  yaml:"platform"`
	Triggers       *Triggers         `json:"triggers,omitempty"        yaml:"triggers,omitempty"`
	Stages         []string          `json:"stages,omitempty"          yaml:"stages,omitempty"`
	DockerRegistry string            `json:"docker_registry,omitempty" yaml:"docker_registry,omitempty"`
	DockerImage    string            `json:"docker_image,omitempty"    yaml:"docker_image,omitempty"`
	DockerContext  string            `json:"docker_context,omitempty"  yaml:"docker_context,omitempty"`
	DockerfilePath string            `json:"dockerfile_path,omitempty" yaml:"dockerfile_path,omitempty"`
	Variables      map[string]string `json:"variables,omitempty"       yaml:"variables,omitempty"`
	ProjectName    string            `json:"project_name,omitempty"    yaml:"project_name,omitempty"`
	PythonVersion  string            `json:"python_version,omitempty"  yaml:"python_version,omitempty"`
	NodeVersion    string            `json:"node_version,omitempty"    yaml:"node_version,omitempty"`
	JavaVersion    string            `json:"java_version,omitempty"    yaml:"java_version,omitempty"`
	GoVersion      string            `json:"go_version,omitempty"      yaml:"go_version,omitempty"`
	Images         map[string]string `json:"images,omitempty"          yaml:"images,omitempty"`
	DeployTarget   string            `json:"deploy_target,omitempty"   yaml:"deploy_target,omitempty"`
}

// Rule is a single conditional clause for a job or the whole workflow
type Rule struct {
	If      string   `json:"if,omitempty"      yaml:"if,omitempty"`
	When    string   `json:"when,omitempty"    yaml:"when,omitempty"`
	Changes []string `json:"changes,omitempty" yaml:"changes,omitempty"`
}

// Template is a parameterized job definition loaded from the library
type Template struct {
	Name         string            `json:"name"`
	Language     string            `json:"language,omitempty"`
	Framework    string            `json:"framework,omitempty"`
	Category     string            `json:"category,omitempty"` // file stem: lint, test_pytest, docker_push
	Source       string            `json:"source,omitempty"`   // path relative to the library root
	Stage        string            `json:"stage,omitempty"`
	Script       []string          `json:"script,omitempty"`
	BeforeScript []string          `json:"before_script,omitempty"`
	AfterScript  []string          `json:"after_script,omitempty"`
	Image        string            `json:"image,omitempty"`
	Services     []string          `json:"services,omitempty"`
	Variables    map[string]string `json:"variables,omitempty"`
	Needs        []Need            `json:"needs,omitempty"`
	Dependencies []string          `json:"dependencies,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	Cache        map[string]any    `json:"cache,omitempty"`
	Artifacts    map[string]any    `json:"artifacts,omitempty"`
	Only         any               `json:"only,omitempty"`
	Except       any               `json:"except,omitempty"`
	When         string            `json:"when,omitempty"`
	AllowFailure bool              `json:"allow_failure,omitempty"`
	Timeout      string            `json:"timeout,omitempty"`
	Retry        any               `json:"retry,omitempty"`
	Rules        []Rule            `json:"rules,omitempty"`
}

// Need is one entry of a job's needs list. On the wire it is either a
// bare job name or a {job, optional} object.
type Need struct {
	Job      string `json:"job"`
	Optional bool   `json:"optional,omitempty"`
}

// Job is a concrete pipeline job derived from a template during composition
type Job struct {
	Name         string
	Stage        string
	Script       []string
	Image        string
	Services     []string
	Variables    map[string]string
	Needs        []Need
	Tags         []string
	Cache        map[string]any
	Artifacts    map[string]any
	BeforeScript []string
	AfterScript  []string
	Only         any
	Except       any
	When         string
	AllowFailure bool
	Timeout      string
	Retry        any
	Rules        []Rule
	Extends      []string

	// composition metadata, never serialized
	Language  string
	Framework string
	Category  string
}

// NeedNames returns the job names referenced by needs
func (j *Job) NeedNames() []string {
	names := make([]string, 0, len(j.Needs))
	for _, n := range j.Needs {
		names = append(names, n.Job)
	}
	return names
}

// Workflow holds pipeline-level trigger rules
type Workflow struct {
	Rules []Rule
}

// PipelineConfig is the composed pipeline before serialization
type PipelineConfig struct {
	Stages    []string
	Variables map[string]string
	Cache     map[string]any
	Workflow  *Workflow
	Default   map[string]any
	Jobs      []*Job
	Notes     []string // requested stages rendered as placeholder comments
}

// FindJob returns the job with the given name or nil
func (p *PipelineConfig) FindJob(name string) *Job {
	for _, j := range p.Jobs {
		if j.Name == name {
			return j
		}
	}
	return nil
}

// Composition is the outcome of composing templates into a pipeline
type Composition struct {
	Config   *PipelineConfig `json:"-"`
	Text     string          `json:"pipeline"`
	Platform string          `json:"platform"`
	Warnings []string        `json:"warnings"`
	Minimal  bool            `json:"minimal"`
}

// ValidationResult is the structured outcome of validating a pipeline
type ValidationResult struct {
	IsValid              bool     `json:"is_valid"`
	Errors               []string `json:"errors"`
	Warnings             []string `json:"warnings"`
	SecurityIssues       []string `json:"security_issues"`
	CircularDependencies []string `json:"circular_dependencies"`
	MissingDependencies  []string `json:"missing_dependencies"`
	YAMLErrors           []string `json:"yaml_errors"`
	ExternalLintErrors   []string `json:"external_lint_errors"`
}

// NewValidationResult returns an empty, valid result with non-nil lists
func NewValidationResult() *ValidationResult {
	return &ValidationResult{
		IsValid:              true,
		Errors:               []string{},
		Warnings:             []string{},
		SecurityIssues:       []string{},
		CircularDependencies: []string{},
		MissingDependencies:  []string{},
		YAMLErrors:           []string{},
		ExternalLintErrors:   []string{},
	}
}

// RequiredVariable describes a variable the pipeline needs from CI/CD settings
type RequiredVariable struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Required     bool     `json:"required"`
	DefaultValue string   `json:"default_value,omitempty"`
	Example      string   `json:"example,omitempty"`
	JobUsage     []string `json:"job_usage"`
}

// LintResult is the answer of an external CI lint endpoint
type LintResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// GenerationReport bundles everything produced by one generation run
type GenerationReport struct {
	RunID       string             `json:"run_id"`
	Source      string             `json:"source,omitempty"`
	Platform    string             `json:"platform"`
	GeneratedAt time.Time          `json:"generated_at"`
	Analysis    *StackAnalysis     `json:"analysis"`
	Stages      []string           `json:"stages"`
	JobCount    int                `json:"job_count"`
	Pipeline    string             `json:"pipeline"`
	Warnings    []string           `json:"warnings"`
	Validation  *ValidationResult  `json:"validation"`
	Variables   []RequiredVariable `json:"required_variables"`
}
