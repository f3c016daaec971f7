// Package ast provides traversal and location matching over analyzed
// syntax trees. Nodes form a closed tagged-variant set; searches
// operate on the flattened node universe rather than source text.
package ast

import (
	"strings"

	"github.com/andrewmcveigh/refactor-nrepl/lang"
	"github.com/andrewmcveigh/refactor-nrepl/types"
)

// Kind tags the shape of a node.
type Kind int

const (
	// KindInvoke is an invocation form; Var holds the callee.
	KindInvoke Kind = iota
	// KindLocalBinding introduces a local name; LocalID is its identity.
	KindLocalBinding
	// KindLocalRef references a local binding with the same LocalID.
	KindLocalRef
	// KindVarRef references a var; Var holds the (possibly aliased)
	// reference as written.
	KindVarRef
	// KindConst is a literal: keyword, string, number, quoted form.
	KindConst
	// KindColl is a structural container with no referent of its own.
	KindColl
)

// Node is a single analyzed syntax node.
type Node struct {
	Kind     Kind
	Range    types.Range
	Children []*Node

	// Var is the referenced var for KindVarRef and the callee for
	// KindInvoke, as written in the source (alias not yet resolved,
	// var marker retained).
	Var string

	// Class is a fully-qualified interop class reference, when the
	// node carries one.
	Class string

	// Name is the simple rendered name (binding name, callee symbol).
	Name string

	// Form is the rendered source text of the node.
	Form string

	// LocalID links a local binding with its references. Zero means
	// the node is not local.
	LocalID int

	// RawForms holds the pre-expansion source forms when the node is
	// the result of macro expansion. Empty means the node either is
	// not expansion output or its pre-expansion form is unavailable.
	RawForms []string
}

// Flatten returns every node of every tree in pre-order, parents
// before children.
func Flatten(forest []*Node) []*Node {
	var out []*Node
	var walk func(n *Node)
	walk = func(n *Node) {
		out = append(out, n)
		for _, c := range n.Children {
			walk(c)
		}
	}
	for _, n := range forest {
		walk(n)
	}
	return out
}

// Located pairs a matched node with the annotation its predicate
// computed.
type Located struct {
	Node *Node
	Name string
}

// MatchAndLocate returns every node in the forest for which pred
// returns true, together with pred's annotation. The predicate filters
// and qualifies in one pass.
func MatchAndLocate(forest []*Node, pred func(*Node) (string, bool)) []Located {
	var out []Located
	for _, n := range Flatten(forest) {
		if name, ok := pred(n); ok {
			out = append(out, Located{Node: n, Name: name})
		}
	}
	return out
}

// ContainsPoint reports whether the node's span covers the 1-based
// line/column. A span with no recorded end defaults to its start.
func (n *Node) ContainsPoint(line, col int) bool {
	start := n.Range.Start
	end := n.Range.End
	if end.Line == 0 {
		end = start
	}
	if line < start.Line || (line == start.Line && col < start.Column) {
		return false
	}
	if line > end.Line || (line == end.Line && col > end.Column) {
		return false
	}
	return true
}

// TopLevelFormAt returns the index of the top-level form whose span
// contains the given point, or -1.
func TopLevelFormAt(forest []*Node, line, col int) int {
	for i, n := range forest {
		if n.ContainsPoint(line, col) {
			return i
		}
	}
	return -1
}

// KeepThroughExpansion reports whether a node survives the
// macro-expansion filter for a search anchored to name. Expansion
// output is kept only when name's final segment occurs as a whole word
// in a recorded pre-expansion form; nodes without recorded forms are
// always kept.
func KeepThroughExpansion(n *Node, name string) bool {
	if len(n.RawForms) == 0 {
		return true
	}
	seg := name
	if i := strings.LastIndex(name, lang.ReferenceSeparator); i >= 0 {
		seg = name[i+1:]
	}
	for _, raw := range n.RawForms {
		if containsWholeWord(raw, seg) {
			return true
		}
	}
	return false
}

func containsWholeWord(text, word string) bool {
	if word == "" {
		return false
	}
	for start := 0; ; {
		i := strings.Index(text[start:], word)
		if i < 0 {
			return false
		}
		i += start
		before := i == 0 || !lang.IsSymbolChar(text[i-1])
		afterIdx := i + len(word)
		after := afterIdx >= len(text) || !lang.IsSymbolChar(text[afterIdx])
		if before && after {
			return true
		}
		start = i + 1
	}
}
