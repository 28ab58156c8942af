package parser

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"regexp"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/aquasecurity/trivy/pkg/dependency/parser/golang/mod"
	"github.com/aquasecurity/trivy/pkg/dependency/parser/nodejs/npm"
	"github.com/aquasecurity/trivy/pkg/dependency/parser/nodejs/packagejson"
	"github.com/aquasecurity/trivy/pkg/dependency/parser/nodejs/yarn"
	"github.com/aquasecurity/trivy/pkg/dependency/parser/python/pip"
	"github.com/aquasecurity/trivy/pkg/dependency/parser/python/pipenv"
	"github.com/aquasecurity/trivy/pkg/dependency/parser/python/poetry"
	"github.com/aquasecurity/trivy/pkg/dependency/parser/python/pyproject"
	"github.com/aquasecurity/trivy/pkg/dependency/parser/python/uv"
	ftypes "github.com/aquasecurity/trivy/pkg/fanal/types"
	xio "github.com/aquasecurity/trivy/pkg/x/io"
)

// Ecosystems a manifest can belong to
const (
	EcosystemPython = "python"
	EcosystemNode   = "node"
	EcosystemGo     = "go"
	EcosystemJava   = "java"
)

var manifestEcosystems = map[string]string{
	"requirements.txt":  EcosystemPython,
	"pyproject.toml":    EcosystemPython,
	"Pipfile":           EcosystemPython,
	"Pipfile.lock":      EcosystemPython,
	"poetry.lock":       EcosystemPython,
	"uv.lock":           EcosystemPython,
	"setup.py":          EcosystemPython,
	"package.json":      EcosystemNode,
	"package-lock.json": EcosystemNode,
	"yarn.lock":         EcosystemNode,
	"go.mod":            EcosystemGo,
	"pom.xml":           EcosystemJava,
	"build.gradle":      EcosystemJava,
	"build.gradle.kts":  EcosystemJava,
}

var (
	requirementLine = regexp.MustCompile(`^\s*([A-Za-z0-9][A-Za-z0-9._-]*)(\[[^\]]*\])?\s*([<>=!~;@ ].*)?$`)
	setupRequires   = regexp.MustCompile(`(?s)install_requires\s*=\s*\[(.*?)\]`)
	quotedString    = regexp.MustCompile(`['"]([^'"]+)['"]`)
	pomDependency   = regexp.MustCompile(`(?s)<groupId>\s*([^<\s]+)\s*</groupId>\s*<artifactId>\s*([^<\s]+)\s*</artifactId>`)
	gradleDep       = regexp.MustCompile(`(?m)\b(?:implementation|api|compile|compileOnly|runtimeOnly|testImplementation|testCompile|annotationProcessor|classpath)\s*\(?\s*['"]([^:'"\s]+):([^:'"\s]+)`)
	gradlePlugin    = regexp.MustCompile(`\bid\s*\(?\s*['"]([^'"]+)['"]`)
)

// Parser extracts declared dependency names from manifests using Trivy
type Parser struct{}

// NewParser creates a new manifest parser
func NewParser() *Parser {
	return &Parser{}
}

// CanParse checks if this parser can handle the given file
func (p *Parser) CanParse(filePath string) bool {
	_, ok := manifestEcosystems[path.Base(filePath)]
	return ok
}

// Ecosystem returns the ecosystem a manifest belongs to, or "" when unknown
func (p *Parser) Ecosystem(filePath string) string {
	return manifestEcosystems[path.Base(filePath)]
}

// ParseManifest returns the sorted, unique dependency names declared in a
// manifest. Dev and optional dependencies are included because test runners
// are usually declared there.
func (p *Parser) ParseManifest(ctx context.Context, filePath string, content []byte) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(content)) == 0 {
		return []string{}, nil
	}

	fileName := path.Base(filePath)
	var (
		names []string
		err   error
	)
	switch fileName {
	case "go.mod":
		names, err = p.parseGoMod(content)
	case "package.json":
		names, err = p.parsePackageJSON(content)
	case "package-lock.json", "yarn.lock":
		names, err = p.parseNodeLockfile(fileName, content)
	case "requirements.txt":
		names, err = p.parseRequirements(content)
	case "pyproject.toml":
		names, err = p.parsePyProject(content)
	case "Pipfile":
		names, err = p.parsePipfile(content)
	case "Pipfile.lock", "poetry.lock", "uv.lock":
		names, err = p.parsePythonLockfile(fileName, content)
	case "setup.py":
		names = parseSetupPy(content)
	case "pom.xml":
		names = parsePom(content)
	case "build.gradle", "build.gradle.kts":
		names = parseGradle(content)
	default:
		return nil, fmt.Errorf("unsupported manifest: %s", filePath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}
	return uniqueSorted(names), nil
}

func newReader(content []byte) (xio.ReadSeekerAt, error) {
	reader, err := xio.NewReadSeekerAt(bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("failed to create reader: %w", err)
	}
	return reader, nil
}

func (p *Parser) parseGoMod(content []byte) ([]string, error) {
	reader, err := newReader(content)
	if err != nil {
		return nil, err
	}
	pkgs, _, err := mod.NewParser(false, false).Parse(reader)
	if err != nil {
		return nil, fmt.Errorf("go.mod parser error: %w", err)
	}
	return packageNames(pkgs), nil
}

func (p *Parser) parsePackageJSON(content []byte) ([]string, error) {
	reader, err := newReader(content)
	if err != nil {
		return nil, err
	}
	pkg, err := packagejson.NewParser().Parse(reader)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, deps := range []map[string]string{pkg.Dependencies, pkg.DevDependencies, pkg.OptionalDependencies} {
		for name := range deps {
			names = append(names, name)
		}
	}
	return names, nil
}

func (p *Parser) parseNodeLockfile(fileName string, content []byte) ([]string, error) {
	reader, err := newReader(content)
	if err != nil {
		return nil, err
	}
	var pkgs []ftypes.Package
	switch fileName {
	case "package-lock.json":
		pkgs, _, err = npm.NewParser().Parse(reader)
	case "yarn.lock":
		pkgs, _, _, err = yarn.NewParser().Parse(reader)
	}
	if err != nil {
		return nil, err
	}
	return packageNames(pkgs), nil
}

// parseRequirements combines Trivy's pinned-requirement parser with a line
// scan, since unpinned lines like "flask>=2" are not reported by Trivy.
func (p *Parser) parseRequirements(content []byte) ([]string, error) {
	var names []string
	if reader, err := newReader(content); err == nil {
		if pkgs, _, err := pip.NewParser(false).Parse(reader); err == nil {
			names = append(names, packageNames(pkgs)...)
		}
	}
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimSpace(line)
		if i := strings.Index(line, "#"); i >= 0 {
			line = strings.TrimSpace(line[:i])
		}
		if line == "" || strings.HasPrefix(line, "-") {
			continue
		}
		if m := requirementLine.FindStringSubmatch(line); m != nil {
			names = append(names, normalizePython(m[1]))
		}
	}
	return names, nil
}

type pyProjectExtras struct {
	Project struct {
		OptionalDependencies map[string][]string `toml:"optional-dependencies"`
	} `toml:"project"`
	DependencyGroups map[string][]any `toml:"dependency-groups"`
	Tool             struct {
		Poetry struct {
			DevDependencies map[string]any `toml:"dev-dependencies"`
			Group           map[string]struct {
				Dependencies map[string]any `toml:"dependencies"`
			} `toml:"group"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

func (p *Parser) parsePyProject(content []byte) ([]string, error) {
	reader, err := newReader(content)
	if err != nil {
		return nil, err
	}
	project, err := pyproject.NewParser().Parse(reader)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, name := range project.MainDeps().Items() {
		names = append(names, normalizePython(name))
	}

	var extras pyProjectExtras
	if _, err := toml.Decode(string(content), &extras); err != nil {
		return names, nil //nolint:nilerr // main dependencies are still usable
	}
	for _, specs := range extras.Project.OptionalDependencies {
		names = append(names, requirementNames(specs)...)
	}
	for _, group := range extras.DependencyGroups {
		for _, spec := range group {
			if s, ok := spec.(string); ok {
				names = append(names, requirementNames([]string{s})...)
			}
		}
	}
	for name := range extras.Tool.Poetry.DevDependencies {
		names = append(names, normalizePython(name))
	}
	for _, group := range extras.Tool.Poetry.Group {
		for name := range group.Dependencies {
			names = append(names, normalizePython(name))
		}
	}
	return names, nil
}

type pipfile struct {
	Packages    map[string]any `toml:"packages"`
	DevPackages map[string]any `toml:"dev-packages"`
}

func (p *Parser) parsePipfile(content []byte) ([]string, error) {
	var pf pipfile
	if _, err := toml.Decode(string(content), &pf); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(pf.Packages)+len(pf.DevPackages))
	for name := range pf.Packages {
		names = append(names, normalizePython(name))
	}
	for name := range pf.DevPackages {
		names = append(names, normalizePython(name))
	}
	return names, nil
}

func (p *Parser) parsePythonLockfile(fileName string, content []byte) ([]string, error) {
	reader, err := newReader(content)
	if err != nil {
		return nil, err
	}
	var pkgs []ftypes.Package
	switch fileName {
	case "Pipfile.lock":
		pkgs, _, err = pipenv.NewParser().Parse(reader)
	case "poetry.lock":
		pkgs, _, err = poetry.NewParser().Parse(reader)
	case "uv.lock":
		pkgs, _, err = uv.NewParser().Parse(reader)
	}
	if err != nil {
		return nil, err
	}
	names := packageNames(pkgs)
	for i, name := range names {
		names[i] = normalizePython(name)
	}
	return names, nil
}

func parseSetupPy(content []byte) []string {
	m := setupRequires.FindSubmatch(content)
	if m == nil {
		return nil
	}
	var specs []string
	for _, q := range quotedString.FindAllSubmatch(m[1], -1) {
		specs = append(specs, string(q[1]))
	}
	return requirementNames(specs)
}

// parsePom reads groupId:artifactId pairs. Trivy's pom parser resolves
// parents over the network, which detection must not do.
func parsePom(content []byte) []string {
	var names []string
	for _, m := range pomDependency.FindAllSubmatch(content, -1) {
		names = append(names, string(m[1])+":"+string(m[2]))
	}
	return names
}

func parseGradle(content []byte) []string {
	var names []string
	for _, m := range gradleDep.FindAllSubmatch(content, -1) {
		names = append(names, string(m[1])+":"+string(m[2]))
	}
	for _, m := range gradlePlugin.FindAllSubmatch(content, -1) {
		names = append(names, string(m[1]))
	}
	return names
}

func requirementNames(specs []string) []string {
	var names []string
	for _, spec := range specs {
		if m := requirementLine.FindStringSubmatch(strings.TrimSpace(spec)); m != nil {
			names = append(names, normalizePython(m[1]))
		}
	}
	return names
}

func packageNames(pkgs []ftypes.Package) []string {
	names := make([]string, 0, len(pkgs))
	for i := range pkgs {
		pkg := &pkgs[i]
		if pkg.Name == "" || pkg.Relationship == ftypes.RelationshipRoot {
			continue
		}
		names = append(names, pkg.Name)
	}
	return names
}

func normalizePython(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "-")
}

func uniqueSorted(names []string) []string {
	out := make([]string, 0, len(names))
	for _, name := range names {
		if name != "" {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
