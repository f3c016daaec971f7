// Package scanner provides source-file discovery.
package scanner

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/andrewmcveigh/refactor-nrepl/lang"
)

// DefaultIgnoreDirs returns the default list of directories to ignore.
func DefaultIgnoreDirs() map[string]struct{} {
	return map[string]struct{}{
		".git":         {},
		".hg":          {},
		".svn":         {},
		".jj":          {},
		"node_modules": {},
		"target":       {},
		"out":          {},
		".cpcache":     {},
		".clj-kondo":   {},
		".lsp":         {},
		".shadow-cljs": {},
		".cache":       {},
	}
}

// Config holds scanner configuration.
type Config struct {
	// Root is the directory to scan.
	Root string

	// IgnoreDirs overrides the default directory skip list.
	IgnoreDirs map[string]struct{}

	// MaxBytes skips files larger than this size. Zero means no limit.
	MaxBytes int64
}

// Scanner discovers source files for processing.
type Scanner struct {
	cfg Config
	gi  *ignore.GitIgnore
}

// New creates a new Scanner with the given configuration. A .gitignore
// at the root, when present, is honored during collection.
func New(cfg Config) *Scanner {
	if cfg.IgnoreDirs == nil {
		cfg.IgnoreDirs = DefaultIgnoreDirs()
	}
	gi, err := ignore.CompileIgnoreFile(filepath.Join(cfg.Root, ".gitignore"))
	if err != nil {
		gi = nil
	}
	return &Scanner{cfg: cfg, gi: gi}
}

// Collect returns the absolute paths of all source files under the
// root, sorted.
func (s *Scanner) Collect() ([]string, error) {
	absRoot, err := filepath.Abs(s.cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}

	var files []string
	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, relErr := filepath.Rel(absRoot, path)
		if relErr != nil {
			rel = path
		}

		if d.IsDir() {
			if path == absRoot {
				return nil
			}
			if s.shouldIgnoreDir(d.Name()) {
				return filepath.SkipDir
			}
			if s.gi != nil && s.gi.MatchesPath(rel) {
				return filepath.SkipDir
			}
			return nil
		}

		if !lang.IsSourceFile(d.Name()) {
			return nil
		}
		if s.gi != nil && s.gi.MatchesPath(rel) {
			return nil
		}

		if s.cfg.MaxBytes > 0 {
			info, err := d.Info()
			if err != nil {
				// Skip files we can't stat
				return nil
			}
			if info.Size() > s.cfg.MaxBytes {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(files)
	return files, nil
}

func (s *Scanner) shouldIgnoreDir(name string) bool {
	_, ok := s.cfg.IgnoreDirs[name]
	return ok
}
