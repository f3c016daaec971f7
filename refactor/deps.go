package refactor

import (
	"io"
	"log/slog"
	"os"
	"sort"

	"github.com/andrewmcveigh/refactor-nrepl/ns"
	"github.com/andrewmcveigh/refactor-nrepl/scanner"
)

// DependencyTracker reports the files whose ns declaration contains a
// dependency clause referencing a namespace.
type DependencyTracker interface {
	Dependents(nsName string) ([]string, error)
}

// ScanTracker is a DependencyTracker that rebuilds the dependency view
// from disk on every query, so a rename always operates on an
// up-to-date picture of the tree.
type ScanTracker struct {
	roots  []string
	logger *slog.Logger
}

// NewScanTracker creates a tracker over the given source roots.
func NewScanTracker(roots []string, logger *slog.Logger) *ScanTracker {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ScanTracker{roots: roots, logger: logger}
}

// Dependents returns the absolute paths of all source files whose
// declaration references nsName through any dependency clause, sorted.
// Files without a parseable declaration contribute
// nothing; the rename engine re-parses every dependent before any
// mutation anyway.
func (t *ScanTracker) Dependents(nsName string) ([]string, error) {
	var out []string
	for _, root := range t.roots {
		if _, err := os.Stat(root); err != nil {
			t.logger.Debug("skipping missing source root", "root", root)
			continue
		}
		files, err := scanner.New(scanner.Config{Root: root}).Collect()
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			decl, err := ns.ParseFile(file)
			if err != nil {
				t.logger.Debug("skipping file without ns declaration", "file", file, "err", err)
				continue
			}
			if decl.DependsOn(nsName) {
				out = append(out, file)
			}
		}
	}
	sort.Strings(out)
	return out, nil
}
