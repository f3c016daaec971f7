package ns

import (
	"path/filepath"
	"strings"

	"github.com/andrewmcveigh/refactor-nrepl/lang"
	"github.com/andrewmcveigh/refactor-nrepl/types"
)

// NamespaceFromPath derives the namespace name for path relative to
// the matching source root. When several roots match, the one yielding
// the shortest relative path wins (the most specific root). Fails with
// NoSourceRootFound when no root is a prefix of path.
func NamespaceFromPath(path string, roots []string) (string, error) {
	p := filepath.ToSlash(filepath.Clean(path))

	best := ""
	found := false
	for _, root := range roots {
		r := strings.TrimSuffix(filepath.ToSlash(filepath.Clean(root)), "/")
		if !strings.HasPrefix(p, r+"/") {
			continue
		}
		rel := strings.TrimPrefix(p[len(r):], "/")
		if !found || len(rel) < len(best) {
			best = rel
			found = true
		}
	}
	if !found {
		return "", &types.Error{
			Kind:    types.NoSourceRootFound,
			Message: "path is not under any known source root",
			File:    path,
		}
	}
	return lang.NamespaceFromRelPath(best), nil
}

// PathForNamespace returns the source path for a namespace under the
// given root, using the provided file extension.
func PathForNamespace(nsName, root, ext string) string {
	return filepath.Join(root, filepath.FromSlash(lang.RelPathFromNamespace(nsName, ext)))
}
