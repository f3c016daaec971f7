package symbols

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/andrewmcveigh/refactor-nrepl/types"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, name, content string) string {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func writeTree(t *testing.T) (string, string, string) {
	t.Helper()
	root := t.TempDir()
	core := writeFile(t, root, "app/core.clj", `(ns app.core)
(defn hello []
  :ok)`)
	user := writeFile(t, root, "app/user.clj", `(ns app.user
  (:require [app.core :as core]))
(defn go []
  (core/hello))`)
	return root, core, user
}

func TestFindRequiresName(t *testing.T) {
	f := NewFinder(FinderConfig{})
	_, err := f.Find(Options{})
	require.Error(t, err)
	kind, ok := types.KindOf(err)
	require.True(t, ok)
	require.Equal(t, types.InvalidRequest, kind)
}

func TestFindGlobal(t *testing.T) {
	root, core, user := writeTree(t)

	f := NewFinder(FinderConfig{})
	refs, err := f.FindGlobal("app.core", "hello", root, 1)
	require.NoError(t, err)
	require.Len(t, refs, 2)

	// Definition site in core.clj.
	require.Equal(t, core, refs[0].File)
	require.Equal(t, 2, refs[0].LineBeg)
	require.Equal(t, 7, refs[0].ColBeg)
	require.Equal(t, "app.core/hello", refs[0].Name)
	require.Equal(t, "(defn hello []", refs[0].Match)

	// Aliased call site in user.clj, resolved through the alias map.
	require.Equal(t, user, refs[1].File)
	require.Equal(t, 4, refs[1].LineBeg)
	require.Equal(t, "app.core/hello", refs[1].Name)
	require.Equal(t, "(core/hello))", refs[1].Match)
}

func TestFindGlobalFullyQualifiedCallSite(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.clj", `(ns app.a)
(app.core/hello 1)`)

	f := NewFinder(FinderConfig{})
	refs, err := f.FindGlobal("app.core", "hello", root, 1)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	require.Equal(t, 2, refs[0].LineBeg)
	require.Equal(t, 2, refs[0].ColBeg)
}

func TestFindGlobalKeywordConstant(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.clj", `(ns app.a)
(get m :app.core/hello)`)

	f := NewFinder(FinderConfig{})
	refs, err := f.FindGlobal("app.core", "hello", root, 1)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	require.Equal(t, 2, refs[0].LineBeg)
}

func TestFindGlobalDefaultNamespace(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "a.clj", `(ns app.a)
(println "x")
(app.other/println "y")`)

	f := NewFinder(FinderConfig{})
	// Default-namespace symbols match by simple name only.
	refs, err := f.FindGlobal("clojure.core", "println", root, 1)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	require.Equal(t, 2, refs[0].LineBeg)
}

func TestFindGlobalSkipsBrokenFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "broken.clj", "(never closed")
	writeFile(t, root, "ok.clj", `(ns app.a)
(app.core/hello)`)

	f := NewFinder(FinderConfig{})
	refs, err := f.FindGlobal("app.core", "hello", root, 1)
	require.NoError(t, err)
	require.Len(t, refs, 1)
}

func TestFindLocal(t *testing.T) {
	root := t.TempDir()
	file := writeFile(t, root, "a.clj", `(ns app.a)
(defn f [x]
  (let [y x]
    (inc y)))`)

	f := NewFinder(FinderConfig{})

	// Anchor at the y binding (line 3, column 9).
	refs, err := f.FindLocal(file, "y", 3, 9)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	require.Equal(t, 3, refs[0].LineBeg)
	require.Equal(t, 9, refs[0].ColBeg)
	require.Equal(t, 4, refs[1].LineBeg)

	// Anchor at the x parameter (line 2, column 10).
	refs, err = f.FindLocal(file, "x", 2, 10)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	require.Equal(t, 2, refs[0].LineBeg)
	require.Equal(t, 3, refs[1].LineBeg)

	// No binding at the anchor position.
	refs, err = f.FindLocal(file, "y", 4, 8)
	require.NoError(t, err)
	require.Empty(t, refs)
}

func TestFindLocalTakesPrecedence(t *testing.T) {
	root := t.TempDir()
	file := writeFile(t, root, "a.clj", `(ns app.a)
(def hello 1)
(defn f [hello]
  hello)`)

	f := NewFinder(FinderConfig{})
	refs, err := f.Find(Options{
		Name:   "hello",
		File:   file,
		Line:   3,
		Column: 10,
		Jobs:   1,
	})
	require.NoError(t, err)

	// Only the parameter and its reference, not the top-level var.
	require.Len(t, refs, 2)
	require.Equal(t, 3, refs[0].LineBeg)
	require.Equal(t, 4, refs[1].LineBeg)
}

func TestFindFallsBackToGlobal(t *testing.T) {
	root, core, user := writeTree(t)
	_ = root

	f := NewFinder(FinderConfig{})
	refs, err := f.Find(Options{
		Name: "hello",
		Ns:   "app.core",
		File: core,
		Jobs: 1,
	})
	require.NoError(t, err)
	require.Len(t, refs, 2)
	require.Equal(t, core, refs[0].File)
	require.Equal(t, user, refs[1].File)
}

func TestFindNamespaceFromFile(t *testing.T) {
	_, core, user := writeTree(t)

	f := NewFinder(FinderConfig{})
	// No explicit ns: the anchor file's declaration supplies it.
	refs, err := f.Find(Options{Name: "hello", File: core, Jobs: 1})
	require.NoError(t, err)
	require.Len(t, refs, 2)
	require.Equal(t, core, refs[0].File)
	require.Equal(t, user, refs[1].File)
}

func TestFindMacroLookupWins(t *testing.T) {
	_, core, _ := writeTree(t)

	canned := []types.SymbolReference{{Name: "app.core/hello", File: "expanded.clj", LineBeg: 1}}
	f := NewFinder(FinderConfig{
		Macros: func(fullName string) []types.SymbolReference {
			if fullName == "app.core/hello" {
				return canned
			}
			return nil
		},
	})

	refs, err := f.Find(Options{Name: "hello", Ns: "app.core", File: core, Jobs: 1})
	require.NoError(t, err)
	require.Equal(t, canned, refs)
}

func TestFindDebugInvocations(t *testing.T) {
	refs, err := FindDebugInvocations(`(ns app.a)
(defn f [x]
  (println x)
  (prn x)
  (log x))`, "println,prn")
	require.NoError(t, err)
	require.Len(t, refs, 2)
	require.Equal(t, "println", refs[0].Name)
	require.Equal(t, 3, refs[0].LineBeg)
	require.Equal(t, "prn", refs[1].Name)
	require.Equal(t, 4, refs[1].LineBeg)
}

func TestFindDebugInvocationsNone(t *testing.T) {
	refs, err := FindDebugInvocations("(ns app.a)\n(inc 1)", "println")
	require.NoError(t, err)
	require.Nil(t, refs)

	refs, err = FindDebugInvocations("(println 1)", "")
	require.NoError(t, err)
	require.Nil(t, refs)
}

func TestFullyQualifyAlias(t *testing.T) {
	root := t.TempDir()
	file := writeFile(t, root, "a.clj", `(ns app.a
  (:require [app.core :as core]))
(core/hello)
(#'core/hello)
(clojure.core/inc 1)`)

	f := NewFinder(FinderConfig{})

	refs, err := f.FindGlobal("app.core", "hello", root, 1)
	require.NoError(t, err)
	// Both the aliased and the var-marked call sites qualify the same.
	require.Len(t, refs, 2)
	require.Equal(t, 3, refs[0].LineBeg)
	require.Equal(t, 4, refs[1].LineBeg)

	refs, err = f.FindGlobal("clojure.core", "inc", root, 1)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	require.Equal(t, 5, refs[0].LineBeg)

	_ = file
}
