// Package symbols locates occurrences of a symbol across source trees
// using AST analysis rather than text search, so results stay accurate
// under aliasing, macro expansion and shadowing.
package symbols

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"sort"
	"strings"

	"github.com/andrewmcveigh/refactor-nrepl/analyzer"
	"github.com/andrewmcveigh/refactor-nrepl/ast"
	"github.com/andrewmcveigh/refactor-nrepl/lang"
	"github.com/andrewmcveigh/refactor-nrepl/ns"
	"github.com/andrewmcveigh/refactor-nrepl/scanner"
	"github.com/andrewmcveigh/refactor-nrepl/types"
)

// Finder runs symbol searches.
type Finder struct {
	macros MacroLookup
	logger *slog.Logger
}

// NewFinder creates a Finder.
func NewFinder(cfg FinderConfig) *Finder {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Finder{macros: cfg.Macros, logger: logger}
}

// Find locates occurrences of a symbol. Dispatch order: macro lookup
// first, then local search when an anchor position is given and yields
// results, then global search. Local results are authoritative because
// a local binding can shadow a global var of the same name.
func (f *Finder) Find(opts Options) ([]types.SymbolReference, error) {
	if opts.Name == "" {
		return nil, types.NewError(types.InvalidRequest, "symbol name is required")
	}

	nsName := opts.Ns
	if nsName == "" && opts.File != "" {
		if d, err := ns.ParseFile(opts.File); err == nil {
			nsName = d.Name
		}
	}

	fullName := opts.Name
	if nsName != "" {
		fullName = nsName + lang.ReferenceSeparator + opts.Name
	}
	if f.macros != nil {
		if refs := f.macros(fullName); len(refs) > 0 {
			return refs, nil
		}
	}

	if opts.File != "" && opts.Line > 0 && opts.Column > 0 {
		refs, err := f.FindLocal(opts.File, opts.Name, opts.Line, opts.Column)
		if err != nil {
			f.logger.Debug("local search failed", "file", opts.File, "err", err)
		} else if len(refs) > 0 {
			return refs, nil
		}
	}

	dir := opts.Dir
	if dir == "" && opts.File != "" {
		dir = filepath.Dir(opts.File)
	}
	if dir == "" {
		dir = "."
	}
	return f.FindGlobal(nsName, opts.Name, dir, opts.Jobs)
}

// FindGlobal scans every source file under dir for occurrences of the
// symbol. A file that fails to parse contributes no matches and does
// not abort the search. When nsName is the default namespace (or
// empty), the unqualified name alone is the match key.
func (f *Finder) FindGlobal(nsName, name, dir string, jobs int) ([]types.SymbolReference, error) {
	key := name
	if nsName != "" && nsName != lang.DefaultNamespace {
		key = nsName + lang.ReferenceSeparator + name
	}
	words := wordSet(key)

	files, err := scanner.New(scanner.Config{Root: dir}).Collect()
	if err != nil {
		return nil, err
	}
	if jobs == 0 {
		jobs = runtime.NumCPU()
	}

	refs := runWorkers(files, jobs, func(path string) []types.SymbolReference {
		return f.searchFile(path, key, name, words)
	})

	sort.Slice(refs, func(i, j int) bool {
		if refs[i].File != refs[j].File {
			return refs[i].File < refs[j].File
		}
		if refs[i].LineBeg != refs[j].LineBeg {
			return refs[i].LineBeg < refs[j].LineBeg
		}
		return refs[i].ColBeg < refs[j].ColBeg
	})
	return refs, nil
}

func (f *Finder) searchFile(path, key, name string, words []string) []types.SymbolReference {
	content, err := os.ReadFile(path)
	if err != nil {
		f.logger.Debug("skipping unreadable file", "file", path, "err", err)
		return nil
	}
	res, err := analyzer.Analyze(string(content))
	if err != nil {
		f.logger.Debug("skipping unparseable file", "file", path, "err", err)
		return nil
	}

	located := ast.MatchAndLocate(res.Forest, func(n *ast.Node) (string, bool) {
		if !ast.KeepThroughExpansion(n, name) {
			return "", false
		}
		switch n.Kind {
		case ast.KindVarRef:
			if fq := FullyQualify(n, res); fq == key {
				return fq, true
			}
		case ast.KindConst:
			if matchesWordSet(n.Form, words) {
				return key, true
			}
		}
		return "", false
	})

	lines := strings.Split(res.Source, "\n")
	var refs []types.SymbolReference
	for _, loc := range located {
		refs = append(refs, render(path, lines, loc.Node.Range, loc.Name))
	}
	return refs
}

// FindLocal locates all occurrences of a local binding. The binding is
// anchored at the exact line/column of its introduction; the scan is
// scoped to the enclosing top-level form. Returns nothing when no
// binding with the given name exists at that position.
func (f *Finder) FindLocal(file, name string, line, col int) ([]types.SymbolReference, error) {
	content, err := os.ReadFile(file)
	if err != nil {
		return nil, &types.Error{Kind: types.FileSystemError, Message: err.Error(), File: file, Cause: err}
	}
	res, err := analyzer.Analyze(string(content))
	if err != nil {
		return nil, err
	}

	idx := ast.TopLevelFormAt(res.Forest, line, col)
	if idx < 0 {
		return nil, nil
	}
	nodes := ast.Flatten(res.Forest[idx : idx+1])

	id := 0
	for _, n := range nodes {
		if n.Kind == ast.KindLocalBinding && n.Name == name &&
			n.Range.Start.Line == line && n.Range.Start.Column == col {
			id = n.LocalID
			break
		}
	}
	if id == 0 {
		return nil, nil
	}

	lines := strings.Split(res.Source, "\n")
	var refs []types.SymbolReference
	for _, n := range nodes {
		if (n.Kind == ast.KindLocalBinding || n.Kind == ast.KindLocalRef) && n.LocalID == id {
			refs = append(refs, render(file, lines, n.Range, name))
		}
	}
	sort.Slice(refs, func(i, j int) bool {
		if refs[i].LineBeg != refs[j].LineBeg {
			return refs[i].LineBeg < refs[j].LineBeg
		}
		return refs[i].ColBeg < refs[j].ColBeg
	})
	return refs, nil
}

// FindDebugInvocations finds invocations of the comma-separated names
// in source. Returns nil when there are none.
func FindDebugInvocations(source, namesCSV string) ([]types.SymbolReference, error) {
	set := make(map[string]bool)
	for _, n := range strings.Split(namesCSV, ",") {
		if n = strings.TrimSpace(n); n != "" {
			set[n] = true
		}
	}
	if len(set) == 0 {
		return nil, nil
	}

	res, err := analyzer.Analyze(source)
	if err != nil {
		return nil, err
	}

	located := ast.MatchAndLocate(res.Forest, func(n *ast.Node) (string, bool) {
		if n.Kind != ast.KindInvoke || n.Var == "" {
			return "", false
		}
		fq := fullyQualifyVar(n.Var, res)
		if set[fq] {
			return fq, true
		}
		return "", false
	})

	lines := strings.Split(res.Source, "\n")
	var refs []types.SymbolReference
	for _, loc := range located {
		refs = append(refs, render("", lines, loc.Node.Range, loc.Name))
	}
	return refs, nil
}

// FullyQualify builds the fully-qualified name a node refers to: an
// explicit class reference wins; otherwise the var reference is taken,
// the var marker stripped, the default-namespace prefix dropped, and
// the namespace segment resolved through the file's alias map.
func FullyQualify(n *ast.Node, res *analyzer.Result) string {
	if n.Class != "" {
		return n.Class
	}
	return fullyQualifyVar(n.Var, res)
}

func fullyQualifyVar(v string, res *analyzer.Result) string {
	v = strings.TrimPrefix(v, lang.VarMarker)
	v = strings.TrimPrefix(v, lang.DefaultNamespace+lang.ReferenceSeparator)
	if i := strings.Index(v, lang.ReferenceSeparator); i >= 0 {
		nsPart, member := v[:i], v[i+1:]
		if real, ok := res.Aliases[nsPart]; ok {
			nsPart = real
		}
		return nsPart + lang.ReferenceSeparator + member
	}
	return v
}

func render(file string, lines []string, r types.Range, name string) types.SymbolReference {
	lineBeg := r.Start.Line
	lineEnd := r.End.Line
	colEnd := r.End.Column
	if lineEnd == 0 {
		lineEnd = lineBeg
		colEnd = r.Start.Column
	}

	match := ""
	if lineBeg >= 1 && lineBeg <= len(lines) {
		end := lineEnd
		if end > len(lines) {
			end = len(lines)
		}
		match = strings.TrimSpace(strings.Join(lines[lineBeg-1:end], "\n"))
	}

	return types.SymbolReference{
		LineBeg: lineBeg,
		LineEnd: lineEnd,
		ColBeg:  r.Start.Column,
		ColEnd:  colEnd,
		Name:    name,
		File:    file,
		Match:   match,
	}
}

var wordRe = regexp.MustCompile(`\w+`)

func wordSet(s string) []string {
	return wordRe.FindAllString(s, -1)
}

// matchesWordSet reports whether every word segment of the target
// occurs in text.
func matchesWordSet(text string, words []string) bool {
	if len(words) == 0 {
		return false
	}
	have := make(map[string]bool)
	for _, w := range wordRe.FindAllString(text, -1) {
		have[w] = true
	}
	for _, w := range words {
		if !have[w] {
			return false
		}
	}
	return true
}
