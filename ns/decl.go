// Package ns models the per-file namespace declaration and the mapping
// between file paths and namespace names.
package ns

import (
	"fmt"
	"os"
	"strings"

	"github.com/andrewmcveigh/refactor-nrepl/lang"
	"github.com/andrewmcveigh/refactor-nrepl/reader"
	"github.com/andrewmcveigh/refactor-nrepl/types"
)

// Require is a single dependency clause: a referenced namespace with an
// optional alias and an optional selective-name list.
type Require struct {
	Namespace string
	Alias     string
	Refers    []string
	ReferAll  bool
}

// Import is a single import clause: one fully-qualified class name.
type Import struct {
	Class string
}

// Decl is a parsed ns declaration. The declaration must be the first
// top-level form of a source file.
type Decl struct {
	Name     string
	Requires []Require
	Uses     []Require // :use clauses; Refers holds the :only names
	Imports  []Import

	doc       string   // raw doc string token, including quotes
	meta      string   // raw attr-map text
	other     []string // raw text of clauses other than :require/:import
	endOffset int      // offset just past the closing paren of the ns form
}

// Parse reads the ns declaration from source. It fails with a
// MalformedDeclaration error when the first form is not a well-formed
// ns declaration.
func Parse(source string) (*Decl, error) {
	forms, err := reader.ReadAll(source)
	if err != nil {
		return nil, &types.Error{Kind: types.MalformedDeclaration, Message: err.Error(), Cause: err}
	}
	if len(forms) == 0 {
		return nil, types.NewError(types.MalformedDeclaration, "no ns declaration found")
	}
	f := forms[0]
	if f.Kind != reader.List || len(f.Children) < 2 ||
		f.Children[0].Kind != reader.Symbol || f.Children[0].Value != "ns" ||
		f.Children[1].Kind != reader.Symbol {
		return nil, types.NewError(types.MalformedDeclaration, "first form is not an ns declaration")
	}

	d := &Decl{Name: f.Children[1].Value, endOffset: f.EndOffset}
	if m := f.Children[1].Meta; m != nil {
		d.meta = m.Text
	}

	for _, child := range f.Children[2:] {
		switch {
		case child.Kind == reader.String:
			d.doc = child.Text
		case child.Kind == reader.Map:
			d.meta = child.Text
		case child.Kind == reader.List && len(child.Children) > 0 && child.Children[0].Kind == reader.Keyword:
			switch child.Children[0].Value {
			case "require":
				reqs, err := parseRequires(child.Children[1:])
				if err != nil {
					return nil, &types.Error{Kind: types.MalformedDeclaration, Message: err.Error(), Cause: err}
				}
				d.Requires = append(d.Requires, reqs...)
			case "use":
				uses, err := parseRequires(child.Children[1:])
				if err != nil {
					return nil, &types.Error{Kind: types.MalformedDeclaration, Message: err.Error(), Cause: err}
				}
				d.Uses = append(d.Uses, uses...)
			case "import":
				d.Imports = append(d.Imports, parseImports(child.Children[1:])...)
			default:
				d.other = append(d.other, child.Text)
			}
		default:
			d.other = append(d.other, child.Text)
		}
	}
	return d, nil
}

// ParseFile reads path and parses its ns declaration.
func ParseFile(path string) (*Decl, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &types.Error{Kind: types.FileSystemError, Message: err.Error(), File: path, Cause: err}
	}
	d, err := Parse(string(content))
	if err != nil {
		if e, ok := err.(*types.Error); ok {
			e.File = path
		}
		return nil, err
	}
	return d, nil
}

func parseRequires(forms []*reader.Form) ([]Require, error) {
	var out []Require
	for _, f := range forms {
		switch f.Kind {
		case reader.Symbol:
			out = append(out, Require{Namespace: f.Value})
		case reader.Vector:
			req, err := parseLibspec(f, "")
			if err != nil {
				return nil, err
			}
			out = append(out, req)
		case reader.List:
			// Prefix list: (prefix lib1 [lib2 :as x] ...)
			if len(f.Children) == 0 || f.Children[0].Kind != reader.Symbol {
				return nil, fmt.Errorf("unsupported require clause %s", f.Text)
			}
			prefix := f.Children[0].Value
			for _, sub := range f.Children[1:] {
				switch sub.Kind {
				case reader.Symbol:
					out = append(out, Require{Namespace: prefix + lang.NamespaceSeparator + sub.Value})
				case reader.Vector:
					req, err := parseLibspec(sub, prefix)
					if err != nil {
						return nil, err
					}
					out = append(out, req)
				default:
					return nil, fmt.Errorf("unsupported require clause %s", sub.Text)
				}
			}
		default:
			return nil, fmt.Errorf("unsupported require clause %s", f.Text)
		}
	}
	return out, nil
}

func parseLibspec(v *reader.Form, prefix string) (Require, error) {
	if len(v.Children) == 0 || v.Children[0].Kind != reader.Symbol {
		return Require{}, fmt.Errorf("unsupported libspec %s", v.Text)
	}
	req := Require{Namespace: v.Children[0].Value}
	if prefix != "" {
		req.Namespace = prefix + lang.NamespaceSeparator + req.Namespace
	}
	rest := v.Children[1:]
	for i := 0; i+1 < len(rest); i += 2 {
		opt, arg := rest[i], rest[i+1]
		if opt.Kind != reader.Keyword {
			return Require{}, fmt.Errorf("unsupported libspec option in %s", v.Text)
		}
		switch opt.Value {
		case "as":
			req.Alias = arg.Value
		case "refer":
			if arg.Kind == reader.Keyword && arg.Value == "all" {
				req.ReferAll = true
				break
			}
			for _, n := range arg.Children {
				req.Refers = append(req.Refers, n.Value)
			}
		case "only":
			for _, n := range arg.Children {
				req.Refers = append(req.Refers, n.Value)
			}
		}
	}
	return req, nil
}

func parseImports(forms []*reader.Form) []Import {
	var out []Import
	for _, f := range forms {
		switch f.Kind {
		case reader.Symbol:
			out = append(out, Import{Class: f.Value})
		case reader.List, reader.Vector:
			// Package prefix form: (java.util Date Calendar)
			if len(f.Children) == 0 {
				continue
			}
			prefix := f.Children[0].Value
			for _, c := range f.Children[1:] {
				out = append(out, Import{Class: prefix + "." + c.Value})
			}
		}
	}
	return out
}

// Rebuild renders the declaration back to text in canonical formatting,
// preserving the doc string, metadata and non-dependency clauses.
func (d *Decl) Rebuild() string {
	var sb strings.Builder
	sb.WriteString("(ns " + d.Name)
	if d.doc != "" {
		sb.WriteString("\n  " + d.doc)
	}
	if d.meta != "" {
		sb.WriteString("\n  " + d.meta)
	}
	if len(d.Requires) > 0 {
		sb.WriteString("\n  (:require ")
		indent := strings.Repeat(" ", len("  (:require "))
		for i, r := range d.Requires {
			if i > 0 {
				sb.WriteString("\n" + indent)
			}
			sb.WriteString(renderLibspec(r))
		}
		sb.WriteString(")")
	}
	if len(d.Uses) > 0 {
		sb.WriteString("\n  (:use ")
		indent := strings.Repeat(" ", len("  (:use "))
		for i, u := range d.Uses {
			if i > 0 {
				sb.WriteString("\n" + indent)
			}
			sb.WriteString(renderUseSpec(u))
		}
		sb.WriteString(")")
	}
	if len(d.Imports) > 0 {
		sb.WriteString("\n  (:import ")
		indent := strings.Repeat(" ", len("  (:import "))
		for i, imp := range d.Imports {
			if i > 0 {
				sb.WriteString("\n" + indent)
			}
			sb.WriteString(imp.Class)
		}
		sb.WriteString(")")
	}
	for _, raw := range d.other {
		sb.WriteString("\n  " + raw)
	}
	sb.WriteString(")")
	return sb.String()
}

func renderLibspec(r Require) string {
	var sb strings.Builder
	sb.WriteString("[" + r.Namespace)
	if r.Alias != "" {
		sb.WriteString(" :as " + r.Alias)
	}
	if r.ReferAll {
		sb.WriteString(" :refer :all")
	} else if len(r.Refers) > 0 {
		sb.WriteString(" :refer [" + strings.Join(r.Refers, " ") + "]")
	}
	sb.WriteString("]")
	return sb.String()
}

func renderUseSpec(r Require) string {
	var sb strings.Builder
	sb.WriteString("[" + r.Namespace)
	if len(r.Refers) > 0 {
		sb.WriteString(" :only [" + strings.Join(r.Refers, " ") + "]")
	}
	sb.WriteString("]")
	return sb.String()
}

// RewriteContent computes the content of a dependent file after the
// namespace oldNS has been renamed to newNS: dependency clauses
// (:require and :use) referencing oldNS are redirected, import clauses
// under oldNS's class-compatible prefix are re-prefixed, clauses
// carried as raw text get a whole-name rewrite, and fully-qualified
// references in the body are rewritten. The declaration itself is
// rebuilt; the body pass never touches it.
func RewriteContent(source, oldNS, newNS string) (string, error) {
	d, err := Parse(source)
	if err != nil {
		return "", err
	}

	for i, r := range d.Requires {
		if r.Namespace == oldNS {
			d.Requires[i].Namespace = newNS
		}
	}
	for i, u := range d.Uses {
		if u.Namespace == oldNS {
			d.Uses[i].Namespace = newNS
		}
	}

	oldClass := lang.Munge(oldNS)
	newClass := lang.Munge(newNS)
	for i, imp := range d.Imports {
		if imp.Class == oldClass {
			d.Imports[i].Class = newClass
		} else if strings.HasPrefix(imp.Class, oldClass+".") {
			d.Imports[i].Class = newClass + strings.TrimPrefix(imp.Class, oldClass)
		}
	}

	for i, raw := range d.other {
		d.other[i] = replaceName(raw, oldNS, newNS)
	}

	body := source[d.endOffset:]
	body = ReplaceNamespacePrefix(body, oldClass, newClass)
	if oldNS != oldClass {
		body = ReplaceNamespacePrefix(body, oldNS, newNS)
	}
	return d.Rebuild() + body, nil
}

// isNameChar reports whether b could extend a namespace name to the
// left. Marker characters (quote, keyword colon, var marker) are not
// part of the name and never block a rewrite.
func isNameChar(b byte) bool {
	if b >= '0' && b <= '9' || b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z' {
		return true
	}
	switch b {
	case '*', '+', '!', '-', '_', '?', '<', '>', '=', '.', '$', '&':
		return true
	}
	return false
}

// ReplaceNamespacePrefix replaces occurrences of old followed by the
// reference separator with new, skipping occurrences preceded by a
// name character so that a namespace merely containing old as a
// suffix is never touched.
func ReplaceNamespacePrefix(text, old, new string) string {
	target := old + lang.ReferenceSeparator
	repl := new + lang.ReferenceSeparator
	var sb strings.Builder
	for {
		i := strings.Index(text, target)
		if i < 0 {
			sb.WriteString(text)
			return sb.String()
		}
		if i > 0 && isNameChar(text[i-1]) {
			sb.WriteString(text[:i+len(target)])
			text = text[i+len(target):]
			continue
		}
		sb.WriteString(text[:i])
		sb.WriteString(repl)
		text = text[i+len(target):]
	}
}

// replaceName replaces whole-name occurrences of old in text; an
// occurrence flanked by a name character on either side is left alone.
func replaceName(text, old, new string) string {
	var sb strings.Builder
	for {
		i := strings.Index(text, old)
		if i < 0 {
			sb.WriteString(text)
			return sb.String()
		}
		j := i + len(old)
		if (i == 0 || !isNameChar(text[i-1])) && (j == len(text) || !isNameChar(text[j])) {
			sb.WriteString(text[:i])
			sb.WriteString(new)
		} else {
			sb.WriteString(text[:j])
		}
		text = text[j:]
	}
}

func containsName(text, name string) bool {
	for off := 0; ; {
		i := strings.Index(text[off:], name)
		if i < 0 {
			return false
		}
		i += off
		j := i + len(name)
		if (i == 0 || !isNameChar(text[i-1])) && (j == len(text) || !isNameChar(text[j])) {
			return true
		}
		off = j
	}
}

// DependsOn reports whether the declaration references nsName through
// any dependency clause, including clauses carried as raw text such as
// :require-macros.
func (d *Decl) DependsOn(nsName string) bool {
	for _, r := range d.Requires {
		if r.Namespace == nsName {
			return true
		}
	}
	for _, u := range d.Uses {
		if u.Namespace == nsName {
			return true
		}
	}
	for _, raw := range d.other {
		if containsName(raw, nsName) {
			return true
		}
	}
	return false
}

// ReplaceDeclName replaces the first textual occurrence of oldNS with
// newNS. Used to update a moved file's own declaration, where only the
// declared name changes.
func ReplaceDeclName(source, oldNS, newNS string) string {
	return strings.Replace(source, oldNS, newNS, 1)
}
