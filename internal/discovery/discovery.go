package discovery

import (
	"errors"
	"io/fs"
	"iter"
	"path/filepath"
	"strings"

	"github.com/gobwas/glob"
)

// DefaultExtension is the source suffix enumerated when none is configured.
const DefaultExtension = ".py"

var errStopWalk = errors.New("stop walk")

// compiledPattern holds both the pattern string and compiled glob
type compiledPattern struct {
	pattern string
	glob    glob.Glob
}

// Options controls which files an Enumerator yields.
type Options struct {
	// Exclude drops every path containing it as a substring. Empty excludes nothing.
	Exclude       string
	Extension     string
	IncludeHidden bool

	// Ignore holds glob patterns matched against slash-separated paths relative to the root.
	Ignore []string
}

// Enumerator lists source files under a project root.
type Enumerator struct {
	rootDir        string
	exclude        string
	extension      string
	includeHidden  bool
	ignorePatterns []compiledPattern
}

// NewEnumerator creates an enumerator rooted at rootDir.
func NewEnumerator(rootDir string, opts Options) (*Enumerator, error) {
	e := &Enumerator{
		rootDir:       filepath.Clean(rootDir),
		exclude:       opts.Exclude,
		extension:     opts.Extension,
		includeHidden: opts.IncludeHidden,
	}
	if e.extension == "" {
		e.extension = DefaultExtension
	}

	for _, pattern := range opts.Ignore {
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, err
		}
		e.ignorePatterns = append(e.ignorePatterns, compiledPattern{pattern: pattern, glob: g})
	}

	return e, nil
}

// RootDir returns the directory the enumerator walks.
func (e *Enumerator) RootDir() string {
	return e.rootDir
}

// Files returns a lazy sequence of matching file paths in walk order.
// Each call walks the tree again. A walk error is yielded once as the
// final element with an empty path.
func (e *Enumerator) Files() iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		err := filepath.WalkDir(e.rootDir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if path == e.rootDir {
				return nil
			}

			relPath, err := filepath.Rel(e.rootDir, path)
			if err != nil {
				return err
			}
			relPath = filepath.ToSlash(relPath)

			if d.IsDir() {
				if e.shouldSkip(relPath, d.Name()) {
					return filepath.SkipDir
				}
				return nil
			}

			if !strings.HasSuffix(d.Name(), e.extension) || e.shouldSkip(relPath, d.Name()) {
				return nil
			}

			if !yield(path, nil) {
				return errStopWalk
			}
			return nil
		})

		if err != nil && !errors.Is(err, errStopWalk) {
			yield("", err)
		}
	}
}

// shouldSkip reports whether a file or directory is filtered out.
// Skipping a directory prunes everything below it.
func (e *Enumerator) shouldSkip(relPath, name string) bool {
	if !e.includeHidden && strings.HasPrefix(name, ".") {
		return true
	}

	if e.exclude != "" && strings.Contains(relPath, e.exclude) {
		return true
	}

	// "node_modules" should match pattern "node_modules/**"
	return e.matchesAnyPattern(relPath) || e.matchesAnyPattern(relPath+"/**")
}

// matchesAnyPattern checks if a path matches any ignore pattern.
func (e *Enumerator) matchesAnyPattern(path string) bool {
	for _, cp := range e.ignorePatterns {
		if cp.glob.Match(path) {
			return true
		}
	}
	return false
}

// Collect drains a file sequence, stopping at the first error.
func Collect(seq iter.Seq2[string, error]) ([]string, error) {
	files := []string{}
	for path, err := range seq {
		if err != nil {
			return nil, err
		}
		files = append(files, path)
	}
	return files, nil
}
