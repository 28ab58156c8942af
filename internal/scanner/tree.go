package scanner

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"pipegen-cli/internal/patterns"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"
)

type cachedContent struct {
	content string
	ok      bool
}

// Tree is the filtered, read-only view of a repository that analyzers scan
type Tree struct {
	root          string
	files         []patterns.File
	ciFiles       []patterns.File
	present       map[string]bool
	sizes         map[string]int64
	maxFileSize   int64
	contentPrefix int
	cache         *lru.Cache[string, cachedContent]

	mu       sync.Mutex
	failures map[string]string
}

// NewTree walks root and builds the file view. Excluded and hidden
// directories are skipped; files under the CI directories in
// patterns.AllowedHiddenDirs are kept apart for the cicd analyzer.
func NewTree(root string, opts Options) (*Tree, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("failed to access repository root %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("repository root %s is not a directory", root)
	}

	cache, err := lru.New[string, cachedContent](max(opts.CacheSize, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to create content cache: %w", err)
	}

	t := &Tree{
		root:          root,
		present:       map[string]bool{},
		sizes:         map[string]int64{},
		maxFileSize:   opts.MaxFileSize,
		contentPrefix: opts.ContentPrefix,
		cache:         cache,
		failures:      map[string]string{},
	}

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// unreadable subtrees are skipped, the root itself was checked above
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if patterns.ExcludedDirs[name] || name == ".git" {
				return filepath.SkipDir
			}
			if strings.HasPrefix(name, ".") && !patterns.AllowedHiddenDirs[name] {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fi, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr // vanished files are skipped
		}
		f := patterns.NewFile(rel)
		t.present[rel] = true
		t.sizes[rel] = fi.Size()
		if underAllowedHiddenDir(rel) {
			t.ciFiles = append(t.ciFiles, f)
			return nil
		}
		t.files = append(t.files, f)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk repository %s: %w", root, err)
	}
	return t, nil
}

func underAllowedHiddenDir(rel string) bool {
	first, _, found := strings.Cut(rel, "/")
	return found && patterns.AllowedHiddenDirs[first]
}

// Files returns the source-visible files in lexical order
func (t *Tree) Files() []patterns.File {
	return t.files
}

// AllFiles returns the visible files plus the CI directory files
func (t *Tree) AllFiles() []patterns.File {
	all := make([]patterns.File, 0, len(t.files)+len(t.ciFiles))
	all = append(all, t.ciFiles...)
	all = append(all, t.files...)
	slices.SortFunc(all, func(a, b patterns.File) int { return strings.Compare(a.Path, b.Path) })
	return all
}

// Has reports whether a relative path exists in the tree
func (t *Tree) Has(rel string) bool {
	return t.present[rel]
}

// Sibling returns the path of name in the directory of rel
func Sibling(rel, name string) string {
	dir := path.Dir(rel)
	if dir == "." {
		return name
	}
	return dir + "/" + name
}

// Read returns a bounded, valid UTF-8 prefix of a file. Binary or
// undecodable files are recorded as failures and reported as unreadable.
func (t *Tree) Read(rel string) (string, bool) {
	if cached, ok := t.cache.Get(rel); ok {
		return cached.content, cached.ok
	}
	content, ok := t.readPrefix(rel)
	t.cache.Add(rel, cachedContent{content: content, ok: ok})
	return content, ok
}

func (t *Tree) readPrefix(rel string) (string, bool) {
	size, known := t.sizes[rel]
	if !known {
		return "", false
	}
	if t.maxFileSize > 0 && size > t.maxFileSize {
		return "", false
	}
	f, err := os.Open(filepath.Join(t.root, filepath.FromSlash(rel)))
	if err != nil {
		t.recordFailure(rel, err.Error())
		return "", false
	}
	defer f.Close()

	limit := int64(t.contentPrefix)
	if limit <= 0 {
		limit = size
	}
	buf, err := io.ReadAll(io.LimitReader(f, limit))
	if err != nil {
		t.recordFailure(rel, err.Error())
		return "", false
	}
	if bytes.IndexByte(buf, 0) >= 0 {
		t.recordFailure(rel, "binary content")
		return "", false
	}
	buf = trimPartialRune(buf)
	if !utf8.Valid(buf) {
		t.recordFailure(rel, "not valid UTF-8")
		return "", false
	}
	return string(buf), true
}

// trimPartialRune drops a rune cut in half by the prefix limit
func trimPartialRune(buf []byte) []byte {
	for i := 0; i < utf8.UTFMax-1 && len(buf) > 0; i++ {
		r, size := utf8.DecodeLastRune(buf)
		if r != utf8.RuneError || size != 1 {
			break
		}
		buf = buf[:len(buf)-1]
	}
	return buf
}

// ErrFileTooLarge is returned by ReadFull for files over the size cap
var ErrFileTooLarge = errors.New("file exceeds size limit")

// ReadFull returns the whole content of a manifest-sized file
func (t *Tree) ReadFull(rel string) ([]byte, error) {
	size, known := t.sizes[rel]
	if !known {
		return nil, fmt.Errorf("failed to read %s: %w", rel, fs.ErrNotExist)
	}
	if t.maxFileSize > 0 && size > t.maxFileSize {
		return nil, fmt.Errorf("failed to read %s: %w", rel, ErrFileTooLarge)
	}
	content, err := os.ReadFile(filepath.Join(t.root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", rel, err)
	}
	return content, nil
}

func (t *Tree) recordFailure(rel, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.failures[rel]; !exists {
		t.failures[rel] = reason
	}
}

// Failures returns per-file read failures as sorted hint lines
func (t *Tree) Failures() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	hints := make([]string, 0, len(t.failures))
	for rel, reason := range t.failures {
		hints = append(hints, fmt.Sprintf("skipped %s: %s", rel, reason))
	}
	slices.Sort(hints)
	return hints
}
