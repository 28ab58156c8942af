package scanner

import (
	"context"
	"encoding/json"
	"path"
	"pipegen-cli/internal/domain"
	"pipegen-cli/internal/patterns"
	"regexp"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var (
	dockerInstruction = regexp.MustCompile(`(?mi)^\s*(CMD|ENTRYPOINT)\s+(.+)$`)
	nodeScriptFile    = regexp.MustCompile(`node\s+(\S+)`)
	pomMainClass      = regexp.MustCompile(`<mainClass>\s*([^<\s]+)\s*</mainClass>`)
	webpackEntry      = regexp.MustCompile(`entry:\s*['"]([^'"]+)['"]`)
	whitespace        = regexp.MustCompile(`\s+`)
)

// resolveEntryPoints collects entry point candidates in source order:
// standard file names, manifests and framework configs, content patterns,
// Dockerfile commands. The first candidate for a (path, type) pair wins.
func (s *Scanner) resolveEntryPoints(ctx context.Context, snapshot *domain.StackResult, tree *Tree) *domain.StackResult {
	delta := domain.NewStackResult()
	add := func(ep domain.EntryPoint) {
		if ep.Language != "" {
			lang, ok := patterns.NormalizeLanguage(ep.Language)
			if !ok {
				s.logger.Debug("Dropping entry point of unsupported language",
					zap.String("path", ep.FilePath), zap.String("language", ep.Language))
				return
			}
			ep.Language = lang
		}
		ep.FilePath = path.Clean(ep.FilePath)
		delta.AddEntryPoint(ep)
	}

	files := tree.Files()
	s.standardEntryPoints(snapshot.Languages, files, add)
	if ctx.Err() != nil {
		return delta
	}
	s.configEntryPoints(files, tree, add)
	if ctx.Err() != nil {
		return delta
	}
	s.contentEntryPoints(files, tree, add)
	s.dockerEntryPoints(files, tree, add)

	s.logger.Debug("Entry points resolved", zap.Int("count", len(delta.EntryPoints)))
	return delta
}

func (s *Scanner) standardEntryPoints(languages []string, files []patterns.File, add func(domain.EntryPoint)) {
	for _, lang := range languages {
		for _, pattern := range patterns.StandardEntryFiles[lang] {
			for _, f := range files {
				if ok, err := doublestar.Match("**/"+pattern, f.Path); err != nil || !ok {
					continue
				}
				add(domain.EntryPoint{
					FilePath:    f.Path,
					Type:        domain.EntryTypeMain,
					Language:    lang,
					Confidence:  patterns.StandardEntryConfidence,
					Description: "standard entry file",
				})
			}
		}
	}
}

func (s *Scanner) configEntryPoints(files []patterns.File, tree *Tree, add func(domain.EntryPoint)) {
	for _, f := range files {
		switch {
		case f.Name == "package.json":
			s.packageJSONEntries(f, tree, add)
		case f.Name == "pyproject.toml":
			s.pyprojectEntries(f, tree, add)
		case f.Name == "pom.xml":
			if content, ok := tree.Read(f.Path); ok {
				if m := pomMainClass.FindStringSubmatch(content); m != nil {
					add(domain.EntryPoint{
						FilePath:   join(f.Path, "src/main/java/"+strings.ReplaceAll(m[1], ".", "/")+".java"),
						Type:       domain.EntryTypeMain,
						Language:   "java",
						Confidence: 0.9,
					})
				}
			}
		case f.Name == "build.gradle" || f.Name == "build.gradle.kts":
			if content, ok := tree.Read(f.Path); ok && strings.Contains(content, "org.springframework.boot") {
				if app := findFile(files, "**/src/main/{java,kotlin}/**/*Application.{java,kt}"); app != "" {
					add(domain.EntryPoint{
						FilePath:   app,
						Type:       domain.EntryTypeApp,
						Language:   "java",
						Framework:  "spring",
						Confidence: 0.7,
					})
				}
			}
		case matchGlob("**/webpack.config.{js,ts}", f.Path):
			if content, ok := tree.Read(f.Path); ok {
				if m := webpackEntry.FindStringSubmatch(content); m != nil {
					add(domain.EntryPoint{
						FilePath:   join(f.Path, m[1]),
						Type:       domain.EntryTypeWebpack,
						Language:   patterns.LanguageForFile(m[1]),
						Framework:  "webpack",
						Confidence: 0.8,
					})
				}
			}
		case matchGlob("**/vite.config.{js,ts,mjs}", f.Path):
			add(domain.EntryPoint{
				FilePath:   join(f.Path, "index.html"),
				Type:       domain.EntryTypeApp,
				Framework:  "vite",
				Confidence: 0.7,
			})
		case matchGlob("**/next.config.{js,mjs,ts}", f.Path):
			add(domain.EntryPoint{
				FilePath:   firstExisting(tree, f.Path, "pages/index.js", "pages/index.tsx", "pages/index.ts", "app/page.tsx", "app/page.js"),
				Type:       domain.EntryTypeApp,
				Language:   "javascript",
				Framework:  "nextjs",
				Confidence: 0.8,
			})
		case matchGlob("**/nuxt.config.{js,ts}", f.Path):
			add(domain.EntryPoint{
				FilePath:   join(f.Path, "pages/index.vue"),
				Type:       domain.EntryTypeApp,
				Language:   "javascript",
				Framework:  "nuxt",
				Confidence: 0.8,
			})
		case f.Name == "angular.json":
			s.angularEntries(f, tree, add)
		case f.Name == "vue.config.js":
			add(domain.EntryPoint{
				FilePath:   firstExisting(tree, f.Path, "src/main.js", "src/main.ts"),
				Type:       domain.EntryTypeMain,
				Language:   "javascript",
				Framework:  "vue",
				Confidence: 0.8,
			})
		case matchGlob("**/{docker-compose,compose}*.{yml,yaml}", f.Path):
			s.composeEntries(f, tree, add)
		}
	}
}

type packageJSON struct {
	Main    string            `json:"main"`
	Scripts map[string]string `json:"scripts"`
}

func (s *Scanner) packageJSONEntries(f patterns.File, tree *Tree, add func(domain.EntryPoint)) {
	content, err := tree.ReadFull(f.Path)
	if err != nil {
		return
	}
	var pkg packageJSON
	if err := json.Unmarshal(content, &pkg); err != nil {
		s.logger.Warn("Failed to read package.json entry", zap.String("file", f.Path), zap.Error(err))
		return
	}
	if pkg.Main != "" {
		add(domain.EntryPoint{
			FilePath:   join(f.Path, pkg.Main),
			Type:       domain.EntryTypeMain,
			Language:   nodeLanguage(pkg.Main),
			Framework:  "node",
			Confidence: 0.9,
		})
	}
	for _, name := range []string{"start", "dev", "serve"} {
		m := nodeScriptFile.FindStringSubmatch(pkg.Scripts[name])
		if m == nil {
			continue
		}
		add(domain.EntryPoint{
			FilePath:    join(f.Path, m[1]),
			Type:        domain.EntryTypeScript,
			Language:    nodeLanguage(m[1]),
			Framework:   "node",
			Confidence:  0.8,
			Description: "Script: " + name,
		})
	}
}

func nodeLanguage(file string) string {
	if lang := patterns.LanguageForFile(file); lang == "typescript" {
		return lang
	}
	return "javascript"
}

type pyprojectScripts struct {
	Project struct {
		Scripts map[string]string `toml:"scripts"`
	} `toml:"project"`
	Tool struct {
		Poetry struct {
			Scripts map[string]string `toml:"scripts"`
		} `toml:"poetry"`
	} `toml:"tool"`
}

func (s *Scanner) pyprojectEntries(f patterns.File, tree *Tree, add func(domain.EntryPoint)) {
	content, ok := tree.Read(f.Path)
	if !ok {
		return
	}
	var doc pyprojectScripts
	if _, err := toml.Decode(content, &doc); err != nil {
		s.logger.Warn("Failed to read pyproject scripts", zap.String("file", f.Path), zap.Error(err))
		return
	}
	for _, scripts := range []map[string]string{doc.Tool.Poetry.Scripts, doc.Project.Scripts} {
		names := make([]string, 0, len(scripts))
		for name := range scripts {
			names = append(names, name)
		}
		slices.Sort(names)
		for _, name := range names {
			module, _, _ := strings.Cut(scripts[name], ":")
			if module == "" {
				continue
			}
			add(domain.EntryPoint{
				FilePath:    join(f.Path, strings.ReplaceAll(module, ".", "/")+".py"),
				Type:        domain.EntryTypeScript,
				Language:    "python",
				Framework:   "poetry",
				Confidence:  0.8,
				Description: "Script: " + name,
			})
		}
	}
}

type angularWorkspace struct {
	Projects map[string]struct {
		Architect struct {
			Build struct {
				Options struct {
					Main    string `json:"main"`
					Browser string `json:"browser"`
				} `json:"options"`
			} `json:"build"`
		} `json:"architect"`
	} `json:"projects"`
}

func (s *Scanner) angularEntries(f patterns.File, tree *Tree, add func(domain.EntryPoint)) {
	content, err := tree.ReadFull(f.Path)
	if err != nil {
		return
	}
	var ws angularWorkspace
	if err := json.Unmarshal(content, &ws); err != nil {
		s.logger.Warn("Failed to read angular.json", zap.String("file", f.Path), zap.Error(err))
		return
	}
	names := make([]string, 0, len(ws.Projects))
	for name := range ws.Projects {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		opts := ws.Projects[name].Architect.Build.Options
		main := opts.Main
		if main == "" {
			main = opts.Browser
		}
		if main == "" {
			continue
		}
		add(domain.EntryPoint{
			FilePath:   join(f.Path, main),
			Type:       domain.EntryTypeMain,
			Language:   "typescript",
			Framework:  "angular",
			Confidence: 0.9,
		})
	}
}

type composeFile struct {
	Services map[string]struct {
		Build yaml.Node `yaml:"build"`
	} `yaml:"services"`
}

// composeEntries records each service build context; build is either a
// path or a mapping with a context key
func (s *Scanner) composeEntries(f patterns.File, tree *Tree, add func(domain.EntryPoint)) {
	content, ok := tree.Read(f.Path)
	if !ok {
		return
	}
	var doc composeFile
	if err := yaml.Unmarshal([]byte(content), &doc); err != nil {
		s.logger.Warn("Failed to read compose file", zap.String("file", f.Path), zap.Error(err))
		return
	}
	names := make([]string, 0, len(doc.Services))
	for name := range doc.Services {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		build := doc.Services[name].Build
		var buildContext string
		switch build.Kind {
		case yaml.ScalarNode:
			buildContext = build.Value
		case yaml.MappingNode:
			var spec struct {
				Context string `yaml:"context"`
			}
			if err := build.Decode(&spec); err == nil {
				buildContext = spec.Context
			}
			if buildContext == "" {
				buildContext = "."
			}
		}
		if buildContext == "" {
			continue
		}
		add(domain.EntryPoint{
			FilePath:    join(f.Path, buildContext),
			Type:        domain.EntryTypeDockerCompose,
			Confidence:  patterns.ComposeEntryConfidence,
			Description: "Docker Compose service " + name,
		})
	}
}

// contentEntryPoints applies the first matching pattern of each source file
func (s *Scanner) contentEntryPoints(files []patterns.File, tree *Tree, add func(domain.EntryPoint)) {
	for _, f := range files {
		table, ok := patterns.EntryPatternLanguage[f.Ext]
		if !ok {
			continue
		}
		content, ok := tree.Read(f.Path)
		if !ok {
			continue
		}
		for _, p := range patterns.EntryPatterns[table] {
			if !p.Pattern.MatchString(content) {
				continue
			}
			entryType := domain.EntryTypeApp
			if p.Framework == "main" {
				entryType = domain.EntryTypeMain
			}
			add(domain.EntryPoint{
				FilePath:    f.Path,
				Type:        entryType,
				Language:    patterns.LanguageForFile(f.Path),
				Framework:   p.Framework,
				Confidence:  p.Confidence,
				Description: p.Name,
			})
			break
		}
	}
}

// dockerEntryPoints reads the effective CMD, else ENTRYPOINT, of every Dockerfile
func (s *Scanner) dockerEntryPoints(files []patterns.File, tree *Tree, add func(domain.EntryPoint)) {
	for _, f := range files {
		if !patterns.IsDockerfile(f) {
			continue
		}
		content, ok := tree.Read(f.Path)
		if !ok {
			continue
		}
		command := dockerCommand(content)
		if command == "" {
			continue
		}
		m := patterns.DockerCommandPattern.FindStringSubmatch(command)
		if m == nil {
			continue
		}
		interpreter := whitespace.ReplaceAllString(m[1], " ")
		add(domain.EntryPoint{
			FilePath:    m[2],
			Type:        domain.EntryTypeDocker,
			Language:    patterns.DockerCommandLanguages[interpreter],
			Confidence:  patterns.DockerEntryConfidence,
			Description: "Docker command: " + command,
		})
	}
}

// dockerCommand returns the last CMD, falling back to the last ENTRYPOINT.
// Exec form arrays are joined with spaces.
func dockerCommand(content string) string {
	var cmd, entrypoint string
	for _, m := range dockerInstruction.FindAllStringSubmatch(content, -1) {
		value := strings.TrimSpace(m[2])
		var parts []string
		if strings.HasPrefix(value, "[") && json.Unmarshal([]byte(value), &parts) == nil {
			value = strings.Join(parts, " ")
		}
		if strings.EqualFold(m[1], "CMD") {
			cmd = value
		} else {
			entrypoint = value
		}
	}
	if cmd != "" {
		return cmd
	}
	return entrypoint
}

// SelectMainEntry picks the first candidate of the first preferred type after
// a stable sort by confidence, else the most confident candidate
func SelectMainEntry(entries []domain.EntryPoint) *domain.EntryPoint {
	if len(entries) == 0 {
		return nil
	}
	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, func(a, b domain.EntryPoint) int {
		switch {
		case a.Confidence > b.Confidence:
			return -1
		case a.Confidence < b.Confidence:
			return 1
		default:
			return 0
		}
	})
	for _, preferred := range patterns.EntryTypePriority {
		for i := range sorted {
			if sorted[i].Type == preferred {
				ep := sorted[i]
				return &ep
			}
		}
	}
	ep := sorted[0]
	return &ep
}

func join(manifest, rel string) string {
	return path.Clean(path.Join(path.Dir(manifest), rel))
}

func matchGlob(pattern, p string) bool {
	ok, err := doublestar.Match(pattern, p)
	return err == nil && ok
}

func findFile(files []patterns.File, pattern string) string {
	for _, f := range files {
		if matchGlob(pattern, f.Path) {
			return f.Path
		}
	}
	return ""
}

func firstExisting(tree *Tree, manifest string, candidates ...string) string {
	for _, c := range candidates {
		if p := join(manifest, c); tree.Has(p) {
			return p
		}
	}
	return join(manifest, candidates[0])
}
