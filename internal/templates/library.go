package templates

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path"
	"pipegen-cli/internal/ciyaml"
	"pipegen-cli/internal/domain"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
)

//go:embed library
var embedded embed.FS

// Embedded returns the default template library compiled into the binary
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "library")
	if err != nil {
		// the directory is part of the binary
		panic(err)
	}
	return sub
}

// Library is the keyed, read-only template cache. It is filled once at
// construction and safe for concurrent use afterwards.
type Library struct {
	templates []domain.Template
	index     map[string]int
	logger    *zap.Logger
}

// NewLibrary loads the embedded templates and, when overlayDir is set,
// the templates found there. Overlay files replace embedded entries with the
// same key.
func NewLibrary(overlayDir string, logger *zap.Logger) (*Library, error) {
	lib := &Library{index: map[string]int{}, logger: logger}
	if err := lib.load(Embedded()); err != nil {
		return nil, fmt.Errorf("failed to load embedded templates: %w", err)
	}
	if overlayDir == "" {
		return lib, nil
	}
	info, err := os.Stat(overlayDir)
	if err != nil {
		return nil, fmt.Errorf("failed to access templates directory %s: %w", overlayDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("templates path %s is not a directory", overlayDir)
	}
	if err := lib.load(os.DirFS(overlayDir)); err != nil {
		return nil, fmt.Errorf("failed to load templates from %s: %w", overlayDir, err)
	}
	return lib, nil
}

// Load builds a library from a single file system
func Load(fsys fs.FS, logger *zap.Logger) (*Library, error) {
	lib := &Library{index: map[string]int{}, logger: logger}
	if err := lib.load(fsys); err != nil {
		return nil, err
	}
	return lib, nil
}

func (l *Library) load(fsys fs.FS) error {
	files, err := doublestar.Glob(fsys, "**/*.{yml,yaml}")
	if err != nil {
		return fmt.Errorf("failed to list template files: %w", err)
	}
	slices.Sort(files)

	loaded := 0
	for _, file := range files {
		content, err := fs.ReadFile(fsys, file)
		if err != nil {
			l.logger.Warn("Skipping unreadable template file", zap.String("file", file), zap.Error(err))
			continue
		}
		templates, err := parseFile(file, content)
		if err != nil {
			l.logger.Warn("Skipping malformed template file", zap.String("file", file), zap.Error(err))
			continue
		}
		for _, t := range templates {
			l.store(t)
			loaded++
		}
	}
	l.logger.Debug("Templates loaded", zap.Int("files", len(files)), zap.Int("templates", loaded))
	return nil
}

// parseFile turns one template file into templates. Language and framework
// come from the path: <language>/[<framework>/]<category>.yml.
func parseFile(file string, content []byte) ([]domain.Template, error) {
	root, err := ciyaml.Parse(content)
	if err != nil {
		return nil, err
	}

	parts := strings.Split(file, "/")
	var language, framework string
	if len(parts) >= 2 {
		language = parts[0]
	}
	if len(parts) >= 3 {
		framework = parts[1]
	}
	category := strings.TrimSuffix(path.Base(file), path.Ext(file))

	var out []domain.Template
	for _, entry := range ciyaml.Entries(root) {
		if !ciyaml.IsJobKey(entry.Key) {
			continue
		}
		job, err := ciyaml.DecodeJob(entry.Value)
		if err != nil {
			return nil, fmt.Errorf("job %s: %w", entry.Key, err)
		}
		t := job.Template(entry.Key)
		t.Language = language
		t.Framework = framework
		t.Category = category
		t.Source = file
		out = append(out, t)
	}
	return out, nil
}

func (l *Library) store(t domain.Template) {
	keys := []string{t.Source + "/" + t.Name}
	switch {
	case t.Framework != "":
		keys = append(keys, t.Language+"/"+t.Framework+"/"+t.Name)
	case t.Language != "":
		keys = append(keys, t.Language+"/"+t.Name)
	default:
		keys = append(keys, t.Name)
	}

	// a template replaces an earlier one with the same source file key
	if i, ok := l.index[keys[0]]; ok {
		l.templates[i] = t
		for _, k := range keys[1:] {
			l.index[k] = i
		}
		return
	}

	l.templates = append(l.templates, t)
	i := len(l.templates) - 1
	for _, k := range keys {
		l.index[k] = i
	}
}

// Get returns the template stored under key
func (l *Library) Get(key string) (domain.Template, bool) {
	i, ok := l.index[key]
	if !ok {
		return domain.Template{}, false
	}
	return l.templates[i], true
}

// Keys returns every cache key in sorted order
func (l *Library) Keys() []string {
	keys := make([]string, 0, len(l.index))
	for k := range l.index {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Templates returns the loaded templates in load order
func (l *Library) Templates() []domain.Template {
	return slices.Clone(l.templates)
}
