package scanner

import (
	"context"
	"fmt"
	"path"
	"pipegen-cli/internal/domain"
	"pipegen-cli/internal/patterns"
	"slices"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Options bound how much of a repository is read
type Options struct {
	MaxFileSize   int64 // files above this are matched by name only
	ContentPrefix int   // bytes read for content heuristics
	CacheSize     int   // content prefixes kept in memory
}

// DefaultOptions are used when configuration leaves values unset
func DefaultOptions() Options {
	return Options{
		MaxFileSize:   1 << 20,
		ContentPrefix: 64 << 10,
		CacheSize:     4096,
	}
}

// ManifestParser extracts dependency names from manifest files
type ManifestParser interface {
	domain.ManifestParser
	CanParse(filePath string) bool
	Ecosystem(filePath string) string
}

// FrameworkClassifier partitions frameworks and filters languages
type FrameworkClassifier interface {
	Classify(ctx context.Context, frameworks []string) *domain.StackResult
	FilterLanguages(languages []string) (kept, dropped []string)
}

// Manifest is a parsed dependency manifest
type Manifest struct {
	Path      string
	Ecosystem string
	Deps      []string
}

// input is what every analyzer after the language phase receives. The
// snapshot and manifests are shared and must not be mutated.
type input struct {
	snapshot  *domain.StackResult
	tree      *Tree
	manifests []Manifest
}

type analyzer struct {
	name string
	run  func(ctx context.Context, in *input) (*domain.StackResult, error)
}

// Scanner detects the technology stack of a repository on disk
type Scanner struct {
	parser     ManifestParser
	classifier FrameworkClassifier
	opts       Options
	logger     *zap.Logger
}

// NewScanner creates a new stack detector
func NewScanner(parser ManifestParser, classifier FrameworkClassifier, opts Options, logger *zap.Logger) *Scanner {
	defaults := DefaultOptions()
	if opts.MaxFileSize <= 0 {
		opts.MaxFileSize = defaults.MaxFileSize
	}
	if opts.ContentPrefix <= 0 {
		opts.ContentPrefix = defaults.ContentPrefix
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaults.CacheSize
	}
	return &Scanner{
		parser:     parser,
		classifier: classifier,
		opts:       opts,
		logger:     logger,
	}
}

// Detect scans repoRoot and returns the detected stack. Analyzers run in a
// fixed order: language first, then framework, devops, test, database,
// cloud, build tools, cicd and hints concurrently with their deltas merged
// in that order, then classification and entry points.
func (s *Scanner) Detect(ctx context.Context, repoRoot string) (*domain.StackResult, error) {
	start := time.Now()
	s.logger.Info("Detecting stack", zap.String("root", repoRoot))

	tree, err := NewTree(repoRoot, s.opts)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("Repository tree built",
		zap.Int("files", len(tree.Files())),
		zap.Int("ci_files", len(tree.AllFiles())-len(tree.Files())))

	result := domain.NewStackResult()
	result.Merge(s.analyzeLanguages(tree))
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to detect stack: %w", err)
	}

	in := &input{
		snapshot:  result.Clone(),
		tree:      tree,
		manifests: s.parseManifests(ctx, tree),
	}

	analyzers := []analyzer{
		{name: "framework", run: s.analyzeFrameworks},
		{name: "devops", run: s.analyzeDevOps},
		{name: "test", run: s.analyzeTestRunners},
		{name: "database", run: s.analyzeDatabases},
		{name: "cloud", run: rulesAnalyzer(patterns.CloudRules)},
		{name: "build-tools", run: rulesAnalyzer(patterns.BuildToolRules)},
		{name: "cicd", run: s.analyzeCICD},
		{name: "hints", run: rulesAnalyzer(patterns.HintRules)},
	}

	deltas := make([]*domain.StackResult, len(analyzers))
	g, gctx := errgroup.WithContext(ctx)
	for i, a := range analyzers {
		g.Go(func() error {
			delta, err := a.run(gctx, in)
			if err != nil {
				return fmt.Errorf("%s analyzer: %w", a.name, err)
			}
			deltas[i] = delta
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to detect stack: %w", err)
	}
	for i, delta := range deltas {
		s.logger.Debug("Merging analyzer delta", zap.String("analyzer", analyzers[i].name))
		result.Merge(delta)
	}

	result.Merge(s.classifier.Classify(ctx, result.Frameworks))

	entries := s.resolveEntryPoints(ctx, result.Clone(), tree)
	result.Merge(entries)
	result.MainEntryPoint = SelectMainEntry(result.EntryPoints)

	for _, hint := range tree.Failures() {
		result.AddHint(hint)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to detect stack: %w", err)
	}

	s.logger.Info("Stack detected",
		zap.Strings("languages", result.Languages),
		zap.Strings("frameworks", result.Frameworks),
		zap.Strings("test_runners", result.TestRunners),
		zap.Bool("docker", result.Docker),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

// analyzeLanguages counts source files per language and orders languages by
// file count, ties broken by first appearance. Package managers come from
// manifests visited root first.
func (s *Scanner) analyzeLanguages(tree *Tree) *domain.StackResult {
	delta := domain.NewStackResult()

	counts := map[string]int{}
	var order []string
	for _, f := range tree.Files() {
		raw, ok := patterns.ExtensionLanguages[f.Ext]
		if !ok {
			continue
		}
		if counts[raw] == 0 {
			order = append(order, raw)
		}
		counts[raw]++
		normalized, _ := patterns.NormalizeLanguage(raw)
		delta.AddFile(normalized+"_files", f.Path)
	}
	slices.SortStableFunc(order, func(a, b string) int { return counts[b] - counts[a] })

	manifests := manifestsByDepth(tree.Files())
	for _, f := range manifests {
		for _, pm := range patterns.PackageManagerFiles {
			if f.Name == pm.Name && counts[pm.Language] == 0 && !slices.Contains(order, pm.Language) {
				order = append(order, pm.Language)
			}
		}
	}

	kept, dropped := s.classifier.FilterLanguages(order)
	for _, lang := range kept {
		delta.AddLanguage(lang)
	}
	for _, lang := range dropped {
		delta.AddHint("unsupported language ignored: " + lang)
	}

	for _, f := range manifests {
		for _, pm := range patterns.PackageManagerFiles {
			if f.Name != pm.Name {
				continue
			}
			manager := pm.Manager
			if pm.Name == "package.json" {
				manager = nodeManager(tree, f.Path)
			}
			delta.SetPackageManager(manager)
			delta.AddFile(strings.ReplaceAll(strings.ReplaceAll(pm.Name, ".", "_"), "-", "_"), f.Path)
		}
	}
	return delta
}

// manifestsByDepth orders package manager files root first, then by path
func manifestsByDepth(files []patterns.File) []patterns.File {
	var manifests []patterns.File
	for _, f := range files {
		for _, pm := range patterns.PackageManagerFiles {
			if f.Name == pm.Name {
				manifests = append(manifests, f)
				break
			}
		}
	}
	slices.SortStableFunc(manifests, func(a, b patterns.File) int {
		da, db := strings.Count(a.Path, "/"), strings.Count(b.Path, "/")
		if da != db {
			return da - db
		}
		return strings.Compare(a.Path, b.Path)
	})
	return manifests
}

func nodeManager(tree *Tree, packageJSON string) string {
	for _, lock := range patterns.NodeLockfiles {
		if tree.Has(Sibling(packageJSON, lock.Name)) {
			return lock.Manager
		}
	}
	return "npm"
}

// parseManifests reads every parseable manifest once. Failures become hints.
func (s *Scanner) parseManifests(ctx context.Context, tree *Tree) []Manifest {
	var manifests []Manifest
	for _, f := range tree.Files() {
		if !s.parser.CanParse(f.Path) {
			continue
		}
		content, err := tree.ReadFull(f.Path)
		if err != nil {
			tree.recordFailure(f.Path, err.Error())
			continue
		}
		deps, err := s.parser.ParseManifest(ctx, f.Path, content)
		if err != nil {
			s.logger.Warn("Failed to parse manifest", zap.String("file", f.Path), zap.Error(err))
			tree.recordFailure(f.Path, "unparseable manifest")
			continue
		}
		manifests = append(manifests, Manifest{Path: f.Path, Ecosystem: s.parser.Ecosystem(f.Path), Deps: deps})
	}
	return manifests
}

func (s *Scanner) analyzeFrameworks(ctx context.Context, in *input) (*domain.StackResult, error) {
	delta := domain.NewStackResult()
	for _, m := range in.manifests {
		for _, dep := range m.Deps {
			if fw, ok := patterns.FrameworkForDependency(m.Ecosystem, dep); ok {
				delta.AddFramework(fw)
				delta.AddFile(fw, m.Path)
			}
		}
	}
	files := in.tree.Files()
	patterns.Evaluate(patterns.FrameworkFileRules, files, in.tree.Read, delta)
	patterns.Evaluate(patterns.FrameworkContentRules, files, in.tree.Read, delta)
	return delta, ctx.Err()
}

func (s *Scanner) analyzeDevOps(ctx context.Context, in *input) (*domain.StackResult, error) {
	delta := domain.NewStackResult()
	files := in.tree.Files()
	patterns.Evaluate(patterns.DevOpsRules, files, in.tree.Read, delta)

	var dockerfiles []string
	for _, f := range files {
		if patterns.IsDockerfile(f) {
			dockerfiles = append(dockerfiles, f.Path)
		}
	}
	if primary := SelectDockerfile(dockerfiles); primary != "" {
		delta.MarkDocker()
		delta.AddFile("docker_all", dockerfiles...)
		delta.AddFile("docker", primary)
		delta.SetDockerfile(primary, dockerContext(primary))
	}
	return delta, ctx.Err()
}

// dockerContext is the Dockerfile's directory, empty for the repository root
func dockerContext(dockerfile string) string {
	dir := path.Dir(dockerfile)
	if dir == "." {
		return ""
	}
	return dir
}

// SelectDockerfile picks the canonical Dockerfile: the root Dockerfile, else
// the shallowest Dockerfile, else the lexicographically first
// Dockerfile.<variant>, else the lexicographically first *.dockerfile.
func SelectDockerfile(paths []string) string {
	var exact, variants, suffixed []string
	for _, p := range paths {
		f := patterns.NewFile(p)
		switch {
		case patterns.DockerfileExact.Match(f, nil):
			exact = append(exact, p)
		case patterns.DockerfileVariant.Match(f, nil):
			variants = append(variants, p)
		case patterns.DockerfileSuffix.Match(f, nil):
			suffixed = append(suffixed, p)
		}
	}
	byDepth := func(a, b string) int {
		da, db := strings.Count(a, "/"), strings.Count(b, "/")
		if da != db {
			return da - db
		}
		return strings.Compare(a, b)
	}
	if len(exact) > 0 {
		slices.SortFunc(exact, byDepth)
		return exact[0]
	}
	for _, group := range [][]string{variants, suffixed} {
		if len(group) > 0 {
			slices.Sort(group)
			return group[0]
		}
	}
	return ""
}

// analyzeTestRunners accepts a runner only when one of its languages was
// detected. Content heuristics run only when no configuration named a
// runner, and only on files whose own language was detected.
func (s *Scanner) analyzeTestRunners(ctx context.Context, in *input) (*domain.StackResult, error) {
	delta := domain.NewStackResult()
	langs := in.snapshot.Languages
	accept := func(runner string) bool {
		for _, lang := range patterns.TestRunnerLanguages[runner] {
			if slices.Contains(langs, lang) {
				return true
			}
		}
		return false
	}

	files := in.tree.Files()
	for _, rule := range patterns.TestRunnerFileRules {
		for _, f := range files {
			if rule.Matcher.Match(f, nil) && accept(rule.Runner) {
				delta.AddTestRunner(rule.Runner)
				delta.AddFile("tests", f.Path)
			}
		}
	}

	for _, m := range in.manifests {
		for _, dep := range m.Deps {
			runner := manifestTestRunner(m.Ecosystem, dep)
			if runner != "" && accept(runner) {
				delta.AddTestRunner(runner)
				delta.AddFile("tests", m.Path)
			}
		}
	}

	if len(delta.TestRunners) > 0 {
		return delta, ctx.Err()
	}

	for _, rule := range patterns.TestRunnerContentRules {
		for _, f := range files {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if !rule.Matcher.Applies(f) {
				continue
			}
			lang := patterns.LanguageForFile(f.Path)
			if !slices.Contains(langs, lang) || !accept(rule.Runner) {
				continue
			}
			if rule.Matcher.Match(f, in.tree.Read) {
				delta.AddTestRunner(rule.Runner)
				delta.AddFile("tests", f.Path)
			}
		}
	}
	return delta, ctx.Err()
}

func manifestTestRunner(ecosystem, dep string) string {
	switch ecosystem {
	case "node":
		return patterns.NodeTestRunners[dep]
	case "python":
		return patterns.PythonTestRunners[dep]
	case "java":
		switch {
		case strings.Contains(dep, "junit"):
			return "junit"
		case strings.Contains(dep, "testng"):
			return "testng"
		}
	}
	return ""
}

func (s *Scanner) analyzeDatabases(ctx context.Context, in *input) (*domain.StackResult, error) {
	delta := domain.NewStackResult()
	for _, m := range in.manifests {
		for _, dep := range m.Deps {
			if db, ok := databaseForDependency(dep); ok {
				delta.AddDatabase(db)
				delta.AddFile("database_files", m.Path)
			}
		}
	}
	files := in.tree.Files()
	patterns.Evaluate(patterns.DatabaseFileRules, files, in.tree.Read, delta)
	patterns.Evaluate(patterns.DatabaseContentRules, files, in.tree.Read, delta)
	return delta, ctx.Err()
}

func databaseForDependency(dep string) (string, bool) {
	if db, ok := patterns.DependencyDatabases[dep]; ok {
		return db, true
	}
	// go modules are matched on their path prefix, e.g. mongo-driver/v2
	for module, db := range patterns.DependencyDatabases {
		if strings.Contains(module, "/") && strings.HasPrefix(dep, module+"/") {
			return db, true
		}
	}
	return "", false
}

func (s *Scanner) analyzeCICD(ctx context.Context, in *input) (*domain.StackResult, error) {
	delta := domain.NewStackResult()
	patterns.Evaluate(patterns.CICDRules, in.tree.AllFiles(), in.tree.Read, delta)
	return delta, ctx.Err()
}

func rulesAnalyzer(rules []patterns.Rule) func(ctx context.Context, in *input) (*domain.StackResult, error) {
	return func(ctx context.Context, in *input) (*domain.StackResult, error) {
		delta := domain.NewStackResult()
		patterns.Evaluate(rules, in.tree.Files(), in.tree.Read, delta)
		return delta, ctx.Err()
	}
}
