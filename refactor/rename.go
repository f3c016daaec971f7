// Package refactor implements the rename engine: moving source files
// and directories while propagating the namespace rename to every
// dependent file.
package refactor

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/andrewmcveigh/refactor-nrepl/lang"
	"github.com/andrewmcveigh/refactor-nrepl/ns"
	"github.com/andrewmcveigh/refactor-nrepl/types"
)

// Config holds engine configuration.
type Config struct {
	// SourceRoots are the known source directories, in resolution
	// order.
	SourceRoots []string

	// Tracker supplies the dependents of a namespace. When nil, a
	// ScanTracker over SourceRoots is used.
	Tracker DependencyTracker

	// Logger receives progress and recovery diagnostics. Optional.
	Logger *slog.Logger
}

// Engine performs rename operations. Every call re-reads state from
// disk; no index survives between calls.
type Engine struct {
	roots   []string
	tracker DependencyTracker
	logger  *slog.Logger
}

// NewEngine creates an Engine.
func NewEngine(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	roots := make([]string, 0, len(cfg.SourceRoots))
	for _, r := range cfg.SourceRoots {
		if abs, err := filepath.Abs(r); err == nil {
			roots = append(roots, abs)
		}
	}
	tracker := cfg.Tracker
	if tracker == nil {
		tracker = NewScanTracker(roots, logger)
	}
	return &Engine{roots: roots, tracker: tracker, logger: logger}
}

// Rename moves oldPath (a file or directory) to newPath. For source
// files the namespace rename is propagated: every dependent's
// declaration and fully-qualified references are rewritten. All
// dependent content is computed before any file is mutated; a parse
// failure in any dependent aborts the whole operation untouched.
// Returns the de-duplicated, existence-filtered set of affected
// absolute paths.
func (e *Engine) Rename(oldPath, newPath string) ([]string, error) {
	if strings.TrimSpace(oldPath) == "" || strings.TrimSpace(newPath) == "" {
		return nil, types.NewError(types.InvalidRequest, "old and new paths must be non-blank")
	}
	oldAbs, err := filepath.Abs(oldPath)
	if err != nil {
		return nil, &types.Error{Kind: types.InvalidRequest, Message: err.Error(), File: oldPath, Cause: err}
	}
	newAbs, err := filepath.Abs(newPath)
	if err != nil {
		return nil, &types.Error{Kind: types.InvalidRequest, Message: err.Error(), File: newPath, Cause: err}
	}
	info, err := os.Stat(oldAbs)
	if err != nil {
		return nil, &types.Error{Kind: types.InvalidRequest, Message: "old path does not exist", File: oldPath, Cause: err}
	}

	var affected []string
	if info.IsDir() {
		affected, err = e.renameDir(oldAbs, newAbs)
	} else {
		affected, err = e.renameFile(oldAbs, newAbs)
	}
	if err != nil {
		return nil, err
	}
	return e.assemble(affected, newAbs), nil
}

// renameDir renames every descendant file of old into its analogous
// location under new, flattening the per-file results.
func (e *Engine) renameDir(old, new string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(old, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, &types.Error{Kind: types.FileSystemError, Message: err.Error(), File: old, Cause: err}
	}

	var affected []string
	for _, file := range files {
		rel, err := filepath.Rel(old, file)
		if err != nil {
			return nil, &types.Error{Kind: types.FileSystemError, Message: err.Error(), File: file, Cause: err}
		}
		sub, err := e.renameFile(file, filepath.Join(new, rel))
		if err != nil {
			return nil, err
		}
		affected = append(affected, sub...)
	}
	return affected, nil
}

func (e *Engine) renameFile(old, new string) ([]string, error) {
	if lang.IsSourceFile(old) {
		return e.renameSource(old, new)
	}
	// Non-source files move without any content rewriting.
	if err := e.move(old, new); err != nil {
		return nil, err
	}
	return []string{new}, nil
}

// renameSource runs the dependent-propagation algorithm for a single
// source file. Compute comes strictly before commit: dependent content
// is staged in memory and only written after the move succeeds.
func (e *Engine) renameSource(old, new string) ([]string, error) {
	content, err := os.ReadFile(old)
	if err != nil {
		return nil, &types.Error{Kind: types.FileSystemError, Message: err.Error(), File: old, Cause: err}
	}
	decl, err := ns.Parse(string(content))
	if err != nil {
		if terr, ok := err.(*types.Error); ok {
			terr.File = old
		}
		return nil, err
	}
	oldNS := decl.Name

	newNS, err := ns.NamespaceFromPath(new, e.roots)
	if err != nil {
		return nil, err
	}

	dependents, err := e.tracker.Dependents(oldNS)
	if err != nil {
		return nil, err
	}

	staged := make(map[string]string, len(dependents))
	var depFiles []string
	for _, dep := range dependents {
		if sameFile(dep, old) {
			continue
		}
		src, err := os.ReadFile(dep)
		if err != nil {
			return nil, &types.Error{Kind: types.FileSystemError, Message: err.Error(), File: dep, Cause: err}
		}
		out, err := ns.RewriteContent(string(src), oldNS, newNS)
		if err != nil {
			if terr, ok := err.(*types.Error); ok {
				terr.File = dep
			}
			return nil, err
		}
		staged[dep] = out
		depFiles = append(depFiles, dep)
	}

	e.logger.Debug("renaming namespace", "old", oldNS, "new", newNS, "dependents", len(depFiles))

	if err := e.move(old, new); err != nil {
		return nil, err
	}

	// The move already mutated the tree; from here on every touched
	// path is tracked for the failure report.
	written := []string{new}

	// The moved file's own declaration only changes its name token.
	if err := writeFileFn(new, []byte(ns.ReplaceDeclName(string(content), oldNS, newNS)), 0o644); err != nil {
		return nil, e.writeFailure(err, new, written)
	}

	for _, dep := range depFiles {
		if err := writeFileFn(dep, []byte(staged[dep]), 0o644); err != nil {
			return nil, e.writeFailure(err, dep, written)
		}
		written = append(written, dep)
	}

	return append(depFiles, new), nil
}

// writeFileFn is swapped in tests to force write-phase failures.
var writeFileFn = os.WriteFile

// writeFailure surfaces a write-phase error. There is no rollback; the
// files already mutated, the relocated file included, are reported so
// the caller can recover manually.
func (e *Engine) writeFailure(cause error, failed string, written []string) error {
	for _, w := range written {
		e.logger.Error("file already modified before failure", "file", w)
	}
	return &types.Error{
		Kind:    types.FileSystemError,
		Message: fmt.Sprintf("write failed after %d files were already modified: %v", len(written), cause),
		File:    failed,
		Cause:   cause,
		Written: written,
	}
}

// move relocates a file, refusing an existing destination, creating
// missing target directories and pruning now-empty directories upward
// from the old location.
func (e *Engine) move(old, new string) error {
	if _, err := os.Stat(new); err == nil {
		return &types.Error{Kind: types.InvalidRequest, Message: "destination already exists", File: new}
	}
	if err := os.MkdirAll(filepath.Dir(new), 0o755); err != nil {
		return &types.Error{Kind: types.FileSystemError, Message: err.Error(), File: new, Cause: err}
	}
	if err := os.Rename(old, new); err != nil {
		return &types.Error{Kind: types.FileSystemError, Message: err.Error(), File: old, Cause: err}
	}
	e.pruneEmptyDirs(filepath.Dir(old))
	return nil
}

// pruneEmptyDirs removes empty directories walking upward, stopping at
// the first non-empty directory, a configured source root, or the
// filesystem root.
func (e *Engine) pruneEmptyDirs(dir string) {
	for {
		if e.isRoot(dir) {
			return
		}
		entries, err := os.ReadDir(dir)
		if err != nil || len(entries) > 0 {
			return
		}
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

func (e *Engine) isRoot(dir string) bool {
	if dir == filepath.Dir(dir) {
		return true
	}
	for _, r := range e.roots {
		if sameFile(dir, r) {
			return true
		}
	}
	return false
}

// assemble normalizes the affected set: absolute cleaned paths,
// de-duplicated, directories and vanished files dropped, and the final
// destination included unless it is a directory.
func (e *Engine) assemble(affected []string, newPath string) []string {
	if st, err := os.Stat(newPath); err == nil && !st.IsDir() {
		affected = append(affected, newPath)
	}

	seen := make(map[string]struct{})
	var out []string
	for _, p := range affected {
		abs, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		abs = filepath.Clean(abs)
		if _, dup := seen[abs]; dup {
			continue
		}
		st, err := os.Stat(abs)
		if err != nil || st.IsDir() {
			continue
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	}
	sort.Strings(out)
	return out
}

func sameFile(a, b string) bool {
	return filepath.Clean(a) == filepath.Clean(b)
}
