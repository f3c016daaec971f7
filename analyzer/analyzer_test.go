package analyzer

import (
	"testing"

	"github.com/andrewmcveigh/refactor-nrepl/ast"
	"github.com/andrewmcveigh/refactor-nrepl/types"
	"github.com/stretchr/testify/require"
)

func analyze(t *testing.T, src string) *Result {
	t.Helper()
	res, err := Analyze(src)
	require.NoError(t, err)
	return res
}

// byKind gathers every flattened node of the given kind.
func byKind(res *Result, kind ast.Kind) []*ast.Node {
	var out []*ast.Node
	for _, n := range ast.Flatten(res.Forest) {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func TestAnalyzeNamespaceAndAliases(t *testing.T) {
	res := analyze(t, `(ns app.user
  (:require [app.core :as core]
            [app.util :refer [helper]]))
(core/go)`)

	require.Equal(t, "app.user", res.Namespace)
	require.Equal(t, map[string]string{"core": "app.core"}, res.Aliases)
	require.Equal(t, map[string]string{"helper": "app.util"}, res.Refers)

	// The ns form itself is not analyzed.
	require.Len(t, res.Forest, 1)
}

func TestAnalyzeDefQualification(t *testing.T) {
	res := analyze(t, `(ns app.core)
(defn hello [] :ok)
(hello)`)

	var vars []string
	for _, n := range byKind(res, ast.KindVarRef) {
		vars = append(vars, n.Var)
	}
	// The definition occurrence and the call site both resolve to the
	// fully-qualified var; the defn head stays bare.
	require.Contains(t, vars, "app.core/hello")
	count := 0
	for _, v := range vars {
		if v == "app.core/hello" {
			count++
		}
	}
	require.Equal(t, 2, count)
	require.Contains(t, vars, "defn")
}

func TestAnalyzeAliasPassThrough(t *testing.T) {
	res := analyze(t, `(ns app.user
  (:require [app.core :as core]))
(core/hello)`)

	invokes := byKind(res, ast.KindInvoke)
	require.Len(t, invokes, 1)
	// The alias is left as written; qualification happens at search time.
	require.Equal(t, "core/hello", invokes[0].Var)
	require.Equal(t, "hello", invokes[0].Name)
}

func TestAnalyzeReferResolution(t *testing.T) {
	res := analyze(t, `(ns app.user
  (:require [app.util :refer [helper]]))
(helper 1)`)

	invokes := byKind(res, ast.KindInvoke)
	require.Len(t, invokes, 1)
	require.Equal(t, "app.util/helper", invokes[0].Var)
}

func TestAnalyzeLetLocals(t *testing.T) {
	res := analyze(t, `(defn f [x]
  (let [y x]
    (inc y)))`)

	bindings := byKind(res, ast.KindLocalBinding)
	require.Len(t, bindings, 2)
	x, y := bindings[0], bindings[1]
	require.Equal(t, "x", x.Name)
	require.Equal(t, "y", y.Name)
	require.NotEqual(t, x.LocalID, y.LocalID)

	refs := byKind(res, ast.KindLocalRef)
	require.Len(t, refs, 2)
	require.Equal(t, "x", refs[0].Name)
	require.Equal(t, x.LocalID, refs[0].LocalID)
	require.Equal(t, "y", refs[1].Name)
	require.Equal(t, y.LocalID, refs[1].LocalID)
}

func TestAnalyzeShadowing(t *testing.T) {
	res := analyze(t, `(ns app.core)
(def x 1)
(defn f [x] x)
x`)

	// The parameter shadows the var inside f.
	refs := byKind(res, ast.KindLocalRef)
	require.Len(t, refs, 1)
	require.Equal(t, "x", refs[0].Name)

	// Outside f the name resolves to the def'd var.
	var qualified int
	for _, n := range byKind(res, ast.KindVarRef) {
		if n.Var == "app.core/x" {
			qualified++
		}
	}
	// def occurrence plus the trailing top-level reference.
	require.Equal(t, 2, qualified)
}

func TestAnalyzeDestructuring(t *testing.T) {
	res := analyze(t, `(defn f [{:keys [a b] :as all} [c & d]]
  (a b all c d))`)

	var names []string
	for _, n := range byKind(res, ast.KindLocalBinding) {
		names = append(names, n.Name)
	}
	require.ElementsMatch(t, []string{"a", "b", "all", "c", "d"}, names)

	refs := byKind(res, ast.KindLocalRef)
	require.Len(t, refs, 5)
}

func TestAnalyzeLetfn(t *testing.T) {
	res := analyze(t, `(letfn [(even? [n] (odd? (dec n)))
        (odd? [n] (even? (dec n)))]
  (even? 10))`)

	bindings := byKind(res, ast.KindLocalBinding)
	require.Len(t, bindings, 4) // even?, odd?, and the two n params

	// The mutually recursive references resolve to the letfn locals.
	var localNames []string
	for _, n := range byKind(res, ast.KindLocalRef) {
		localNames = append(localNames, n.Name)
	}
	require.Contains(t, localNames, "even?")
	require.Contains(t, localNames, "odd?")
}

func TestAnalyzeMultiArity(t *testing.T) {
	res := analyze(t, `(defn f
  ([x] x)
  ([x y] (+ x y)))`)

	bindings := byKind(res, ast.KindLocalBinding)
	require.Len(t, bindings, 3)
	refs := byKind(res, ast.KindLocalRef)
	require.Len(t, refs, 3)
}

func TestAnalyzeQuotedIsConst(t *testing.T) {
	res := analyze(t, "'(foo bar) `(baz) (quote qux)")

	require.Empty(t, byKind(res, ast.KindVarRef))
	require.Len(t, byKind(res, ast.KindConst), 3)
}

func TestAnalyzeVarMarker(t *testing.T) {
	res := analyze(t, `(ns app.core)
(defn hello [] :ok)
#'hello`)

	var found bool
	for _, n := range byKind(res, ast.KindVarRef) {
		if n.Var == "#'app.core/hello" {
			found = true
		}
	}
	require.True(t, found)
}

func TestAnalyzeParseError(t *testing.T) {
	_, err := Analyze("(never closed")
	require.Error(t, err)
	kind, ok := types.KindOf(err)
	require.True(t, ok)
	require.Equal(t, types.ParseError, kind)
}

func TestAnalyzeNoDeclaration(t *testing.T) {
	res := analyze(t, "(inc 1)")
	require.Empty(t, res.Namespace)
	require.Len(t, res.Forest, 1)
}
