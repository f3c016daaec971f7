// Package analyzer lowers reader forms into the node representation
// searched by the symbol locator: invocations, var references, local
// bindings and their references, and constants. Locals are tracked
// lexically so that every binding and its references share an
// identity.
package analyzer

import (
	"strings"

	"github.com/andrewmcveigh/refactor-nrepl/ast"
	"github.com/andrewmcveigh/refactor-nrepl/lang"
	"github.com/andrewmcveigh/refactor-nrepl/ns"
	"github.com/andrewmcveigh/refactor-nrepl/reader"
	"github.com/andrewmcveigh/refactor-nrepl/types"
)

// Result is the analysis of one source file.
type Result struct {
	// Forest holds one node tree per top-level form, in source order.
	// The leading ns declaration is not part of the forest.
	Forest []*ast.Node

	// Namespace is the file's declared namespace, empty when the file
	// has no declaration.
	Namespace string

	// Aliases maps require aliases to the namespaces they stand for.
	Aliases map[string]string

	// Refers maps referred simple names to their namespaces.
	Refers map[string]string

	Source string
}

// Analyze parses and analyzes source text.
func Analyze(source string) (*Result, error) {
	forms, err := reader.ReadAll(source)
	if err != nil {
		return nil, &types.Error{Kind: types.ParseError, Message: err.Error(), Cause: err}
	}

	res := &Result{
		Aliases: make(map[string]string),
		Refers:  make(map[string]string),
		Source:  source,
	}
	if decl, declErr := ns.Parse(source); declErr == nil {
		res.Namespace = decl.Name
		for _, r := range decl.Requires {
			if r.Alias != "" {
				res.Aliases[r.Alias] = r.Namespace
			}
			for _, name := range r.Refers {
				res.Refers[name] = r.Namespace
			}
		}
	}

	start := 0
	if len(forms) > 0 && isNsForm(forms[0]) {
		start = 1
	}

	a := &analysis{
		nsName: res.Namespace,
		refers: res.Refers,
		defs:   make(map[string]bool),
	}
	for _, f := range forms[start:] {
		if name, ok := defName(f); ok {
			a.defs[name] = true
		}
	}
	for _, f := range forms[start:] {
		res.Forest = append(res.Forest, a.node(f, nil))
	}
	return res, nil
}

type analysis struct {
	nsName    string
	refers    map[string]string
	defs      map[string]bool
	nextLocal int
}

// scope is a lexical environment mapping local names to identities.
type scope struct {
	parent *scope
	names  map[string]int
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, names: make(map[string]int)}
}

func (s *scope) lookup(name string) (int, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if id, ok := cur.names[name]; ok {
			return id, true
		}
	}
	return 0, false
}

func (s *scope) bind(name string, id int) {
	s.names[name] = id
}

var letHeads = map[string]bool{
	"let": true, "loop": true, "for": true, "doseq": true, "dotimes": true,
	"binding": true, "with-open": true, "with-redefs": true, "with-local-vars": true,
	"if-let": true, "when-let": true, "if-some": true, "when-some": true,
}

var defHeads = map[string]bool{
	"def": true, "defonce": true, "defn": true, "defn-": true,
	"defmacro": true, "defmulti": true, "deftest": true,
}

func defName(f *reader.Form) (string, bool) {
	if f.Kind != reader.List || len(f.Children) < 2 {
		return "", false
	}
	head := f.Children[0]
	name := f.Children[1]
	if head.Kind != reader.Symbol || !defHeads[head.Value] || name.Kind != reader.Symbol {
		return "", false
	}
	return name.Value, true
}

func isNsForm(f *reader.Form) bool {
	return f.Kind == reader.List && len(f.Children) > 0 &&
		f.Children[0].Kind == reader.Symbol && f.Children[0].Value == "ns"
}

func (a *analysis) fresh() int {
	a.nextLocal++
	return a.nextLocal
}

func (a *analysis) node(f *reader.Form, sc *scope) *ast.Node {
	// Quoted and syntax-quoted forms are data, not references.
	if strings.HasPrefix(f.Text, "'") || strings.HasPrefix(f.Text, "`") {
		return &ast.Node{Kind: ast.KindConst, Form: f.Text, Range: f.Range}
	}

	switch f.Kind {
	case reader.Symbol:
		base := strings.TrimPrefix(f.Value, lang.VarMarker)
		if sc != nil {
			if id, ok := sc.lookup(base); ok {
				return &ast.Node{Kind: ast.KindLocalRef, LocalID: id, Name: base, Form: f.Text, Range: f.Range}
			}
		}
		return &ast.Node{Kind: ast.KindVarRef, Var: a.resolve(f.Value), Name: simpleName(base), Form: f.Text, Range: f.Range}
	case reader.Keyword, reader.String, reader.Number, reader.Char, reader.Regex:
		return &ast.Node{Kind: ast.KindConst, Form: f.Text, Range: f.Range}
	case reader.Vector, reader.Map, reader.Set:
		n := &ast.Node{Kind: ast.KindColl, Form: f.Text, Range: f.Range}
		for _, c := range f.Children {
			n.Children = append(n.Children, a.node(c, sc))
		}
		return n
	case reader.List:
		return a.listNode(f, sc)
	}
	return &ast.Node{Kind: ast.KindConst, Form: f.Text, Range: f.Range}
}

func (a *analysis) listNode(f *reader.Form, sc *scope) *ast.Node {
	if len(f.Children) == 0 {
		return &ast.Node{Kind: ast.KindColl, Form: f.Text, Range: f.Range}
	}
	head := f.Children[0]
	n := &ast.Node{Kind: ast.KindInvoke, Form: f.Text, Range: f.Range}

	if head.Kind != reader.Symbol {
		for _, c := range f.Children {
			n.Children = append(n.Children, a.node(c, sc))
		}
		return n
	}

	name := strings.TrimPrefix(head.Value, lang.VarMarker)
	n.Name = simpleName(name)
	callee := a.node(head, sc)
	if callee.Kind == ast.KindVarRef {
		n.Var = callee.Var
	}
	n.Children = append(n.Children, callee)

	switch {
	case name == "quote":
		n.Kind = ast.KindConst
		n.Children = nil
		return n
	case letHeads[name] && len(f.Children) > 1 && f.Children[1].Kind == reader.Vector:
		inner := newScope(sc)
		bindings := f.Children[1].Children
		for i := 0; i < len(bindings); i += 2 {
			binder := bindings[i]
			var value *ast.Node
			if i+1 < len(bindings) {
				value = a.node(bindings[i+1], inner)
			}
			if binder.Kind == reader.Keyword {
				// Sequence-comprehension modifier (:when, :while ...);
				// its expression is not a binder.
				n.Children = append(n.Children, a.node(binder, inner))
			} else {
				n.Children = append(n.Children, a.bindingNodes(binder, inner)...)
			}
			if value != nil {
				n.Children = append(n.Children, value)
			}
		}
		for _, body := range f.Children[2:] {
			n.Children = append(n.Children, a.node(body, inner))
		}
		return n
	case name == "fn" || name == "fn*":
		inner := newScope(sc)
		rest := f.Children[1:]
		if len(rest) > 0 && rest[0].Kind == reader.Symbol {
			// Named fn: the name is local to the body.
			id := a.fresh()
			inner.bind(rest[0].Value, id)
			n.Children = append(n.Children, &ast.Node{
				Kind: ast.KindLocalBinding, LocalID: id,
				Name: rest[0].Value, Form: rest[0].Text, Range: rest[0].Range,
			})
			rest = rest[1:]
		}
		n.Children = append(n.Children, a.fnTail(rest, inner)...)
		return n
	case name == "defn" || name == "defn-" || name == "defmacro":
		if len(f.Children) > 1 && f.Children[1].Kind == reader.Symbol {
			n.Children = append(n.Children, a.defNode(f.Children[1]))
			n.Children = append(n.Children, a.fnTail(f.Children[2:], newScope(sc))...)
			return n
		}
	case name == "def" || name == "defonce":
		if len(f.Children) > 1 && f.Children[1].Kind == reader.Symbol {
			n.Children = append(n.Children, a.defNode(f.Children[1]))
			for _, c := range f.Children[2:] {
				n.Children = append(n.Children, a.node(c, sc))
			}
			return n
		}
	case name == "letfn":
		if len(f.Children) > 1 && f.Children[1].Kind == reader.Vector {
			inner := newScope(sc)
			fns := f.Children[1].Children
			// letfn names are mutually recursive: bind all before bodies.
			for _, fnForm := range fns {
				if fnForm.Kind == reader.List && len(fnForm.Children) > 0 && fnForm.Children[0].Kind == reader.Symbol {
					nameForm := fnForm.Children[0]
					id := a.fresh()
					inner.bind(nameForm.Value, id)
					n.Children = append(n.Children, &ast.Node{
						Kind: ast.KindLocalBinding, LocalID: id,
						Name: nameForm.Value, Form: nameForm.Text, Range: nameForm.Range,
					})
				}
			}
			for _, fnForm := range fns {
				if fnForm.Kind == reader.List && len(fnForm.Children) > 1 {
					n.Children = append(n.Children, a.fnTail(fnForm.Children[1:], newScope(inner))...)
				}
			}
			for _, body := range f.Children[2:] {
				n.Children = append(n.Children, a.node(body, inner))
			}
			return n
		}
	}

	for _, c := range f.Children[1:] {
		n.Children = append(n.Children, a.node(c, sc))
	}
	return n
}

// defNode builds the definition occurrence of a def-family form.
func (a *analysis) defNode(nameForm *reader.Form) *ast.Node {
	v := nameForm.Value
	if a.nsName != "" {
		v = a.nsName + lang.ReferenceSeparator + nameForm.Value
	}
	return &ast.Node{Kind: ast.KindVarRef, Var: v, Name: nameForm.Value, Form: nameForm.Text, Range: nameForm.Range}
}

// fnTail analyzes the parameter vector(s) and body of a fn-like form,
// handling both single and multi-arity shapes.
func (a *analysis) fnTail(parts []*reader.Form, sc *scope) []*ast.Node {
	var out []*ast.Node
	for i, p := range parts {
		switch p.Kind {
		case reader.Vector:
			inner := newScope(sc)
			for _, param := range p.Children {
				out = append(out, a.bindingNodes(param, inner)...)
			}
			for _, body := range parts[i+1:] {
				out = append(out, a.node(body, inner))
			}
			return out
		case reader.List:
			// Multi-arity: each list is ([params] body...).
			out = append(out, a.fnTail(p.Children, newScope(sc))...)
		default:
			// Doc string or attr map before the params.
			out = append(out, a.node(p, sc))
		}
	}
	return out
}

// bindingNodes introduces bindings for a binder form, recursing into
// destructuring vectors and maps.
func (a *analysis) bindingNodes(binder *reader.Form, sc *scope) []*ast.Node {
	switch binder.Kind {
	case reader.Symbol:
		if binder.Value == "&" {
			return nil
		}
		id := a.fresh()
		sc.bind(binder.Value, id)
		return []*ast.Node{{
			Kind: ast.KindLocalBinding, LocalID: id,
			Name: binder.Value, Form: binder.Text, Range: binder.Range,
		}}
	case reader.Vector:
		var out []*ast.Node
		for _, c := range binder.Children {
			if c.Kind == reader.Keyword {
				continue
			}
			out = append(out, a.bindingNodes(c, sc)...)
		}
		return out
	case reader.Map:
		var out []*ast.Node
		kids := binder.Children
		for i := 0; i+1 < len(kids); i += 2 {
			k, v := kids[i], kids[i+1]
			if k.Kind == reader.Keyword {
				switch k.Value {
				case "keys", "syms", "strs":
					for _, sym := range v.Children {
						out = append(out, a.bindingNodes(sym, sc)...)
					}
				case "as":
					out = append(out, a.bindingNodes(v, sc)...)
				}
				continue
			}
			out = append(out, a.bindingNodes(k, sc)...)
		}
		return out
	}
	return nil
}

// resolve qualifies a symbol as far as the file allows: names defined
// in this file gain the current namespace, referred names gain their
// source namespace, already-qualified (or aliased) symbols pass
// through, and bare names stay bare, implying the default namespace.
func (a *analysis) resolve(sym string) string {
	marker := ""
	base := sym
	if strings.HasPrefix(base, lang.VarMarker) {
		marker = lang.VarMarker
		base = strings.TrimPrefix(base, lang.VarMarker)
	}
	if strings.Contains(base, lang.ReferenceSeparator) {
		return sym
	}
	if a.defs[base] && a.nsName != "" {
		return marker + a.nsName + lang.ReferenceSeparator + base
	}
	if rns, ok := a.refers[base]; ok {
		return marker + rns + lang.ReferenceSeparator + base
	}
	return sym
}

func simpleName(s string) string {
	if i := strings.LastIndex(s, lang.ReferenceSeparator); i >= 0 {
		return s[i+1:]
	}
	return s
}
