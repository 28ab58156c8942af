package patterns

import (
	"slices"
	"strings"
)

// CanonicalStageOrder orders auto-detected stages; unknown stages follow alphabetically
var CanonicalStageOrder = []string{"install", "lint", "test", "build", "security", "deploy"}

// DefaultStages are used when neither the caller nor the jobs name any stage
var DefaultStages = []string{"build", "test", "deploy"}

// StageKeyword ties a stage to the words that suggest it
type StageKeyword struct {
	Stage    string
	Keywords []string
}

// StageKeywords is evaluated in order; the first stage with a matching keyword wins
var StageKeywords = []StageKeyword{
	{Stage: "install", Keywords: []string{"install", "deps", "dependencies", "pip install", "npm install", "npm ci"}},
	{Stage: "lint", Keywords: []string{"lint", "linter", "flake8", "eslint", "pylint", "ruff", "golangci", "checkstyle"}},
	{Stage: "test", Keywords: []string{"test", "pytest", "jest", "unittest", "spec", "mocha"}},
	{Stage: "build", Keywords: []string{"build", "compile", "docker build", "npm run build", "package"}},
	{Stage: "security", Keywords: []string{"security", "bandit", "snyk", "trivy", "scan", "audit"}},
	{Stage: "deploy", Keywords: []string{"deploy", "kubectl", "helm", "terraform apply", "release"}},
}

// SuggestStage infers a stage from a job name and its script, restricted to
// allowed when it is non-empty. It returns "" when nothing matches.
func SuggestStage(name string, script []string, allowed []string) string {
	lowerName := strings.ToLower(name)
	lowerScript := strings.ToLower(strings.Join(script, "\n"))

	// the job name is a stronger signal than its script
	for _, text := range []string{lowerName, lowerScript} {
		for _, sk := range StageKeywords {
			if len(allowed) > 0 && !slices.Contains(allowed, sk.Stage) {
				continue
			}
			for _, kw := range sk.Keywords {
				if strings.Contains(text, kw) {
					return sk.Stage
				}
			}
		}
	}
	return ""
}

// TestTemplateNames maps normalized runner names to test template categories
var TestTemplateNames = map[string]string{
	"pytest":   "test_pytest",
	"unittest": "test_unittest",
	"jest":     "test_jest",
	"jasmine":  "test_jest",
	"mocha":    "test_mocha",
	"vitest":   "test_vitest",
	"junit":    "test_junit",
	"testng":   "test_junit",
	"go test":  "test",
	"go":       "test",
}

// TemplateLanguageDirs maps languages to template library directories
var TemplateLanguageDirs = map[string]string{
	"javascript": "node",
	"typescript": "node",
	"nodejs":     "node",
	"csharp":     "dotnet",
	"kotlin":     "java",
}

// TemplateDirForLanguage returns the library directory holding a language's templates
func TemplateDirForLanguage(lang string) string {
	if dir, ok := TemplateLanguageDirs[lang]; ok {
		return dir
	}
	return lang
}
