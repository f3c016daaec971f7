package symbols

import (
	"log/slog"

	"github.com/andrewmcveigh/refactor-nrepl/types"
)

// Options configures a Find request.
type Options struct {
	// Name is the symbol's simple name (required).
	Name string

	// Ns is the symbol's namespace. If empty, the namespace declared
	// by File is used; an empty result implies the default namespace.
	Ns string

	// File anchors the request: its declaration supplies the default
	// namespace and its directory the default search root. Required
	// for a local search.
	File string

	// Dir is the root directory for the global search.
	// If empty, the directory of File is used.
	Dir string

	// Line and Column anchor a local-symbol search (1-based). Both
	// must be set for the local search to run.
	Line   int
	Column int

	// Jobs is the number of parallel workers for the global search.
	// If 0, defaults to the number of CPUs.
	Jobs int
}

// MacroLookup finds occurrences of a macro by fully-qualified name.
// Generic invocation matching misidentifies macro call sites after
// expansion, so macro lookup runs before any other search.
type MacroLookup func(fullName string) []types.SymbolReference

// FinderConfig holds Finder configuration.
type FinderConfig struct {
	// Macros is the external macro lookup. Optional.
	Macros MacroLookup

	// Logger receives per-file diagnostics. Optional.
	Logger *slog.Logger
}
