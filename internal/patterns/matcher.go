package patterns

import (
	"path"
	"pipegen-cli/internal/domain"
	"regexp"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// File is the view of a repository file that matchers evaluate
type File struct {
	Path string // slash separated, relative to the repository root
	Name string
	Ext  string // lower case, with leading dot
}

// NewFile builds a File from a relative slash path
func NewFile(relPath string) File {
	name := path.Base(relPath)
	return File{
		Path: relPath,
		Name: name,
		Ext:  strings.ToLower(path.Ext(name)),
	}
}

// ContentReader returns a bounded prefix of a file's content
type ContentReader func(relPath string) (string, bool)

// Matcher is a predicate over repository files. The set of implementations
// is closed: ExactName, ExtensionSet, Glob and ContentRegex.
type Matcher interface {
	Match(f File, read ContentReader) bool
	String() string
	sealed()
}

// ExactName matches a base name, or a full relative path when the entry
// contains a slash.
type ExactName []string

func (m ExactName) Match(f File, _ ContentReader) bool {
	for _, name := range m {
		if strings.Contains(name, "/") {
			if f.Path == name {
				return true
			}
			continue
		}
		if f.Name == name {
			return true
		}
	}
	return false
}

func (m ExactName) String() string { return "name:" + strings.Join(m, ",") }
func (ExactName) sealed() {}

// ExtensionSet matches lower-cased file extensions
type ExtensionSet []string

func (m ExtensionSet) Match(f File, _ ContentReader) bool {
	return f.Ext != "" && slices.Contains(m, f.Ext)
}

func (m ExtensionSet) String() string { return "ext:" + strings.Join(m, ",") }
func (ExtensionSet) sealed() {}

// Glob matches the relative path against a doublestar pattern
type Glob string

func (m Glob) Match(f File, _ ContentReader) bool {
	ok, err := doublestar.Match(string(m), f.Path)
	return err == nil && ok
}

func (m Glob) String() string { return "glob:" + string(m) }
func (Glob) sealed() {}

// ContentRegex matches files whose bounded content prefix matches Pattern.
// Files are pre-filtered by Extensions (or Names) so only relevant files are read.
type ContentRegex struct {
	Name       string
	Extensions []string
	Names      []string
	Pattern    *regexp.Regexp
}

func (m ContentRegex) Match(f File, read ContentReader) bool {
	if !m.Applies(f) || read == nil {
		return false
	}
	content, ok := read(f.Path)
	if !ok {
		return false
	}
	return m.Pattern.MatchString(content)
}

// Applies reports whether f is a candidate for this content heuristic
func (m ContentRegex) Applies(f File) bool {
	if len(m.Extensions) == 0 && len(m.Names) == 0 {
		return true
	}
	return slices.Contains(m.Extensions, f.Ext) || slices.Contains(m.Names, f.Name)
}

func (m ContentRegex) String() string { return "content:" + m.Name }
func (ContentRegex) sealed() {}

// Setter applies a rule's finding to a delta
type Setter func(r *domain.StackResult, value string)

// Rule binds a matcher to the stack field it feeds
type Rule struct {
	Matcher  Matcher
	Category string // files_detected key; empty to record no evidence
	Value    string
	Apply    Setter
}

// Evaluate runs every rule over files and applies matches to delta.
// It returns the number of matching (rule, file) pairs.
func Evaluate(rules []Rule, files []File, read ContentReader, delta *domain.StackResult) int {
	matches := 0
	for _, rule := range rules {
		for _, f := range files {
			if !rule.Matcher.Match(f, read) {
				continue
			}
			matches++
			if rule.Apply != nil {
				rule.Apply(delta, rule.Value)
			}
			if rule.Category != "" {
				delta.AddFile(rule.Category, f.Path)
			}
		}
	}
	return matches
}

// Common setters
var (
	SetDocker     Setter = func(r *domain.StackResult, _ string) { r.MarkDocker() }
	SetKubernetes Setter = func(r *domain.StackResult, _ string) { r.MarkKubernetes() }
	SetTerraform  Setter = func(r *domain.StackResult, _ string) { r.MarkTerraform() }
	AddFramework  Setter = func(r *domain.StackResult, v string) { r.AddFramework(v) }
	AddTestRunner Setter = func(r *domain.StackResult, v string) { r.AddTestRunner(v) }
	AddDatabase   Setter = func(r *domain.StackResult, v string) { r.AddDatabase(v) }
	AddCloud      Setter = func(r *domain.StackResult, v string) { r.AddCloudPlatform(v) }
	AddBuildTool  Setter = func(r *domain.StackResult, v string) { r.AddBuildTool(v) }
	AddCICD       Setter = func(r *domain.StackResult, v string) { r.AddCICD(v) }
	AddHint       Setter = func(r *domain.StackResult, v string) { r.AddHint(v) }
)
