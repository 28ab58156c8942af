package templates

import (
	"maps"
	"pipegen-cli/internal/domain"
	"regexp"
	"slices"
)

// Parameter defaults used when neither settings nor analysis provide a value
const (
	DefaultPythonVersion  = "3.11"
	DefaultNodeVersion    = "18"
	DefaultJavaVersion    = "17"
	DefaultGoVersion      = "1.22"
	DefaultDockerImage    = "${CI_REGISTRY_IMAGE}:${CI_COMMIT_REF_SLUG}"
	DefaultDockerRegistry = "${CI_REGISTRY}"
	DefaultDockerContext  = "."
	DefaultDockerfile     = "Dockerfile"
)

// placeholderRe matches ${NAME}, ${NAME:-default} and ${NAME:default}
var placeholderRe = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-?([^}]*))?\}`)

// Parameters builds the substitution map for a stack and its settings.
// Every known parameter is present, possibly with an empty value.
func Parameters(analysis *domain.StackAnalysis, settings *domain.UserSettings) map[string]string {
	if analysis == nil {
		analysis = &domain.StackAnalysis{}
	}
	if settings == nil {
		settings = &domain.UserSettings{}
	}
	params := map[string]string{
		"LANGUAGE":        analysis.PrimaryLanguage(),
		"PACKAGE_MANAGER": analysis.PackageManager,
		"TEST_RUNNER":     "",
		"FRAMEWORK":       analysis.PrimaryFramework(),
		"PYTHON_VERSION":  firstNonEmpty(settings.PythonVersion, DefaultPythonVersion),
		"NODE_VERSION":    firstNonEmpty(settings.NodeVersion, DefaultNodeVersion),
		"JAVA_VERSION":    firstNonEmpty(settings.JavaVersion, DefaultJavaVersion),
		"GO_VERSION":      firstNonEmpty(settings.GoVersion, DefaultGoVersion),
		"DOCKER_IMAGE":    firstNonEmpty(settings.DockerImage, DefaultDockerImage),
		"DOCKER_REGISTRY": firstNonEmpty(settings.DockerRegistry, DefaultDockerRegistry),
		"DOCKER_CONTEXT":  firstNonEmpty(settings.DockerContext, analysis.DockerContext, DefaultDockerContext),
		"DOCKERFILE":      firstNonEmpty(settings.DockerfilePath, analysis.DockerfilePath, DefaultDockerfile),
		"PROJECT_NAME":    settings.ProjectName,
	}
	if len(analysis.TestRunners) > 0 {
		params["TEST_RUNNER"] = analysis.TestRunners[0]
	}
	if analysis.PrimaryFramework() == "" && len(analysis.Frameworks) > 0 {
		params["FRAMEWORK"] = analysis.Frameworks[0]
	}
	return params
}

// ApplyParameters returns a copy of t with placeholders substituted in
// scripts, image, services and variable values. The input is not modified.
func (l *Library) ApplyParameters(t domain.Template, analysis *domain.StackAnalysis, settings *domain.UserSettings) domain.Template {
	return Apply(t, Parameters(analysis, settings))
}

// Apply substitutes params into a copy of t
func Apply(t domain.Template, params map[string]string) domain.Template {
	out := t
	out.Script = substituteAll(t.Script, params)
	out.BeforeScript = substituteAll(t.BeforeScript, params)
	out.AfterScript = substituteAll(t.AfterScript, params)
	out.Services = substituteAll(t.Services, params)
	out.Image = Substitute(t.Image, params)
	if t.Variables != nil {
		out.Variables = make(map[string]string, len(t.Variables))
		for k, v := range t.Variables {
			out.Variables[k] = Substitute(v, params)
		}
	}
	out.Needs = slices.Clone(t.Needs)
	out.Dependencies = slices.Clone(t.Dependencies)
	out.Tags = slices.Clone(t.Tags)
	out.Rules = slices.Clone(t.Rules)
	out.Cache = maps.Clone(t.Cache)
	out.Artifacts = maps.Clone(t.Artifacts)
	return out
}

// Substitute replaces known placeholders in one string. A known parameter
// with an empty value falls back to the inline default; names that are not
// parameters, or empty ones without a default, stay verbatim.
func Substitute(text string, params map[string]string) string {
	if text == "" {
		return text
	}
	return placeholderRe.ReplaceAllStringFunc(text, func(match string) string {
		m := placeholderRe.FindStringSubmatch(match)
		value, known := params[m[1]]
		if !known {
			return match
		}
		if value != "" {
			return value
		}
		if hasDefault(match) {
			return m[2]
		}
		return match
	})
}

// hasDefault distinguishes ${A:-} from ${A}
func hasDefault(match string) bool {
	for i := 2; i < len(match)-1; i++ {
		if match[i] == ':' {
			return true
		}
	}
	return false
}

func substituteAll(lines []string, params map[string]string) []string {
	if lines == nil {
		return nil
	}
	out := make([]string, len(lines))
	for i, line := range lines {
		out[i] = Substitute(line, params)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
