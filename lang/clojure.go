// Package lang defines the conventions of the source language the
// engine operates on: file extensions, namespace naming, and the
// munging rules between namespace names, file paths, and class names.
package lang

import (
	"path/filepath"
	"strings"
)

const (
	// DefaultNamespace is the standard-library namespace; bare symbol
	// names imply it.
	DefaultNamespace = "clojure.core"

	// NamespaceSeparator separates namespace segments.
	NamespaceSeparator = "."

	// ReferenceSeparator separates a namespace from a var name in a
	// fully-qualified reference.
	ReferenceSeparator = "/"

	// VarMarker prefixes a reference to a var object rather than its
	// value.
	VarMarker = "#'"
)

var sourceExtensions = []string{".clj", ".cljc", ".cljs"}

// Extensions returns the recognized source file extensions.
func Extensions() []string {
	return sourceExtensions
}

// IsSourceFile reports whether path names a recognized source file.
func IsSourceFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range sourceExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Munge converts a namespace name to its class-compatible form.
func Munge(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

// Demunge converts a class-compatible name back to namespace form.
func Demunge(name string) string {
	return strings.ReplaceAll(name, "_", "-")
}

// NamespaceFromRelPath converts a root-relative source path (slash
// separated) into a namespace name.
func NamespaceFromRelPath(rel string) string {
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return Demunge(strings.ReplaceAll(rel, "/", NamespaceSeparator))
}

// RelPathFromNamespace converts a namespace name into a root-relative
// source path (slash separated) with the given extension.
func RelPathFromNamespace(nsName, ext string) string {
	return Munge(strings.ReplaceAll(nsName, NamespaceSeparator, "/")) + ext
}

// IsSymbolChar reports whether b can occur inside a symbol. Used for
// boundary checks so prefix substitutions never touch a symbol that
// merely contains the prefix.
func IsSymbolChar(b byte) bool {
	if b >= '0' && b <= '9' || b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z' {
		return true
	}
	switch b {
	case '*', '+', '!', '-', '_', '\'', '?', '<', '>', '=', '.', '/', '$', '&', '%', ':', '#':
		return true
	}
	return false
}
