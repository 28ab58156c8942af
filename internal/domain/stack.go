package domain

import "slices"

// NewStackResult returns an empty result with all collections initialized so
// that the JSON form is stable.
func NewStackResult() *StackResult {
	return &StackResult{
		Languages:          []string{},
		Frameworks:         []string{},
		FrontendFrameworks: []string{},
		BackendFrameworks:  []string{},
		MobileFrameworks:   []string{},
		TestRunners:        []string{},
		Databases:          []string{},
		CloudPlatforms:     []string{},
		BuildTools:         []string{},
		CICD:               []string{},
		EntryPoints:        []EntryPoint{},
		FilesDetected:      map[string][]string{},
		Hints:              []string{},
	}
}

func appendUnique(list []string, values ...string) []string {
	for _, v := range values {
		if v == "" || slices.Contains(list, v) {
			continue
		}
		list = append(list, v)
	}
	return list
}

func (s *StackResult) AddLanguage(lang string) { s.Languages = appendUnique(s.Languages, lang) }
func (s *StackResult) AddFramework(fw string) { s.Frameworks = appendUnique(s.Frameworks, fw) }
func (s *StackResult) AddTestRunner(runner string) { s.TestRunners = appendUnique(s.TestRunners, runner) }
func (s *StackResult) AddDatabase(db string) { s.Databases = appendUnique(s.Databases, db) }
func (s *StackResult) AddCloudPlatform(name string) { s.CloudPlatforms = appendUnique(s.CloudPlatforms, name) }
func (s *StackResult) AddBuildTool(tool string) { s.BuildTools = appendUnique(s.BuildTools, tool) }
func (s *StackResult) AddCICD(system string) { s.CICD = appendUnique(s.CICD, system) }
func (s *StackResult) AddHint(hint string) { s.Hints = appendUnique(s.Hints, hint) }
func (s *StackResult) AddFrontendFramework(fw string) {
	s.FrontendFrameworks = appendUnique(s.FrontendFrameworks, fw)
}
func (s *StackResult) AddBackendFramework(fw string) {
	s.BackendFrameworks = appendUnique(s.BackendFrameworks, fw)
}
func (s *StackResult) AddMobileFramework(fw string) {
	s.MobileFrameworks = appendUnique(s.MobileFrameworks, fw)
}

// SetPackageManager records the package manager unless one is already known
func (s *StackResult) SetPackageManager(pm string) {
	if s.PackageManager == "" {
		s.PackageManager = pm
	}
}

func (s *StackResult) MarkDocker() { s.Docker = true }
func (s *StackResult) MarkKubernetes() { s.Kubernetes = true }
func (s *StackResult) MarkTerraform() { s.Terraform = true }

// SetDockerfile records the canonical Dockerfile once
func (s *StackResult) SetDockerfile(path, context string) {
	if s.DockerfilePath != "" {
		return
	}
	s.DockerfilePath = path
	s.DockerContext = context
}

// AddFile appends evidence for a category
func (s *StackResult) AddFile(category string, paths ...string) {
	if s.FilesDetected == nil {
		s.FilesDetected = map[string][]string{}
	}
	s.FilesDetected[category] = appendUnique(s.FilesDetected[category], paths...)
}

// HasLanguage reports whether lang was detected
func (s *StackResult) HasLanguage(lang string) bool {
	return slices.Contains(s.Languages, lang)
}

// AddEntryPoint appends ep unless an entry with the same path and type exists.
// It reports whether the entry was added.
func (s *StackResult) AddEntryPoint(ep EntryPoint) bool {
	for _, existing := range s.EntryPoints {
		if existing.FilePath == ep.FilePath && existing.Type == ep.Type {
			return false
		}
	}
	s.EntryPoints = append(s.EntryPoints, ep)
	return true
}

// Merge folds a delta produced by one analyzer into s. Merging only adds:
// first writes win for single values and booleans are OR-ed.
func (s *StackResult) Merge(delta *StackResult) {
	if delta == nil {
		return
	}
	s.Languages = appendUnique(s.Languages, delta.Languages...)
	s.Frameworks = appendUnique(s.Frameworks, delta.Frameworks...)
	s.FrontendFrameworks = appendUnique(s.FrontendFrameworks, delta.FrontendFrameworks...)
	s.BackendFrameworks = appendUnique(s.BackendFrameworks, delta.BackendFrameworks...)
	s.MobileFrameworks = appendUnique(s.MobileFrameworks, delta.MobileFrameworks...)
	s.SetPackageManager(delta.PackageManager)
	s.TestRunners = appendUnique(s.TestRunners, delta.TestRunners...)
	s.Docker = s.Docker || delta.Docker
	s.Kubernetes = s.Kubernetes || delta.Kubernetes
	s.Terraform = s.Terraform || delta.Terraform
	if delta.DockerfilePath != "" {
		s.SetDockerfile(delta.DockerfilePath, delta.DockerContext)
	}
	s.Databases = appendUnique(s.Databases, delta.Databases...)
	s.CloudPlatforms = appendUnique(s.CloudPlatforms, delta.CloudPlatforms...)
	s.BuildTools = appendUnique(s.BuildTools, delta.BuildTools...)
	s.CICD = appendUnique(s.CICD, delta.CICD...)
	for _, ep := range delta.EntryPoints {
		s.AddEntryPoint(ep)
	}
	if s.MainEntryPoint == nil && delta.MainEntryPoint != nil {
		ep := *delta.MainEntryPoint
		s.MainEntryPoint = &ep
	}
	for _, category := range sortedKeys(delta.FilesDetected) {
		s.AddFile(category, delta.FilesDetected[category]...)
	}
	s.Hints = appendUnique(s.Hints, delta.Hints...)
}

// Clone returns a deep copy suitable as a read-only snapshot
func (s *StackResult) Clone() *StackResult {
	c := NewStackResult()
	c.Merge(s)
	return c
}

// Analysis converts the detection result into composer input
func (s *StackResult) Analysis() *StackAnalysis {
	a := &StackAnalysis{
		Languages:          slices.Clone(s.Languages),
		Frameworks:         slices.Clone(s.Frameworks),
		FrontendFrameworks: slices.Clone(s.FrontendFrameworks),
		BackendFrameworks:  slices.Clone(s.BackendFrameworks),
		PackageManager:     s.PackageManager,
		TestRunners:        slices.Clone(s.TestRunners),
		Docker:             s.Docker,
		DockerContext:      s.DockerContext,
		DockerfilePath:     s.DockerfilePath,
		Kubernetes:         s.Kubernetes,
		Terraform:          s.Terraform,
		Databases:          slices.Clone(s.Databases),
		EntryPoints:        slices.Clone(s.EntryPoints),
	}
	if s.MainEntryPoint != nil {
		ep := *s.MainEntryPoint
		a.MainEntry = &ep
	}
	return a
}

// PrimaryLanguage returns the first detected language or ""
func (a *StackAnalysis) PrimaryLanguage() string {
	if len(a.Languages) == 0 {
		return ""
	}
	return a.Languages[0]
}

// PrimaryFramework is the first backend framework, else the first frontend one
func (a *StackAnalysis) PrimaryFramework() string {
	if len(a.BackendFrameworks) > 0 {
		return a.BackendFrameworks[0]
	}
	if len(a.FrontendFrameworks) > 0 {
		return a.FrontendFrameworks[0]
	}
	return ""
}

// HasEntryType reports whether any entry point has the given type
func (a *StackAnalysis) HasEntryType(entryType string) bool {
	for _, ep := range a.EntryPoints {
		if ep.Type == entryType {
			return true
		}
	}
	return false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
