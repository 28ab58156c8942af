package patterns

import (
	"path"
	"slices"
	"strings"
)

// ExtensionLanguages maps source file extensions to language identifiers.
// Languages outside SupportedLanguages are recognised so they can be logged
// and dropped.
var ExtensionLanguages = map[string]string{
	".py":    "python",
	".pyw":   "python",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".cjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".java":  "java",
	".kt":    "kotlin",
	".kts":   "kotlin",
	".go":    "go",
	".php":   "php",
	".rb":    "ruby",
	".rs":    "rust",
	".cs":    "csharp",
	".cpp":   "cpp",
	".c":     "c",
	".swift": "swift",
	".scala": "scala",
	".dart":  "dart",
}

// SupportedLanguages is the language allow-list
var SupportedLanguages = []string{"python", "javascript", "typescript", "java", "go"}

var languageAliases = map[string]string{
	"kotlin": "java",
	"golang": "go",
	"nodejs": "javascript",
	"node":   "javascript",
	"py":     "python",
}

// NormalizeLanguage folds aliases into canonical identifiers and reports
// whether the result is on the allow-list.
func NormalizeLanguage(lang string) (string, bool) {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if alias, ok := languageAliases[lang]; ok {
		lang = alias
	}
	return lang, slices.Contains(SupportedLanguages, lang)
}

// LanguageForFile returns the canonical language of a source file, or ""
func LanguageForFile(relPath string) string {
	lang, ok := ExtensionLanguages[strings.ToLower(path.Ext(relPath))]
	if !ok {
		return ""
	}
	normalized, _ := NormalizeLanguage(lang)
	return normalized
}

// PackageManagerFile maps a manifest to the language and manager it implies
type PackageManagerFile struct {
	Name     string
	Language string
	Manager  string
}

// PackageManagerFiles lists manifests in precedence order. package.json is
// resolved separately through its sibling lockfile.
var PackageManagerFiles = []PackageManagerFile{
	{Name: "requirements.txt", Language: "python", Manager: "pip"},
	{Name: "pyproject.toml", Language: "python", Manager: "poetry"},
	{Name: "Pipfile", Language: "python", Manager: "pipenv"},
	{Name: "setup.py", Language: "python", Manager: "setuptools"},
	{Name: "go.mod", Language: "go", Manager: "go mod"},
	{Name: "pom.xml", Language: "java", Manager: "maven"},
	{Name: "build.gradle", Language: "java", Manager: "gradle"},
	{Name: "build.gradle.kts", Language: "java", Manager: "gradle"},
	{Name: "package.json", Language: "javascript", Manager: "npm"},
}

// NodeLockfiles decides the node package manager from a lockfile next to package.json
var NodeLockfiles = []struct {
	Name    string
	Manager string
}{
	{Name: "yarn.lock", Manager: "yarn"},
	{Name: "pnpm-lock.yaml", Manager: "pnpm"},
	{Name: "package-lock.json", Manager: "npm"},
}

// ExcludedDirs are never descended into during a scan
var ExcludedDirs = map[string]bool{
	"node_modules":     true,
	"vendor":           true,
	"dist":             true,
	"build":            true,
	"target":           true,
	"out":              true,
	"bin":              true,
	"obj":              true,
	"coverage":         true,
	"__pycache__":      true,
	"venv":             true,
	"env":              true,
	"site-packages":    true,
	"bower_components": true,
}

// AllowedHiddenDirs are hidden directories kept because CI configuration lives there
var AllowedHiddenDirs = map[string]bool{
	".github":   true,
	".gitlab":   true,
	".circleci": true,
}
