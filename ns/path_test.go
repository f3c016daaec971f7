package ns

import (
	"path/filepath"
	"testing"

	"github.com/andrewmcveigh/refactor-nrepl/types"
	"github.com/stretchr/testify/require"
)

func TestNamespaceFromPath(t *testing.T) {
	nsName, err := NamespaceFromPath("/proj/src/app/my_lib/core.clj", []string{"/proj/src"})
	require.NoError(t, err)
	require.Equal(t, "app.my-lib.core", nsName)
}

func TestNamespaceFromPathMostSpecificRoot(t *testing.T) {
	// Both roots match; the one yielding the shortest relative path wins.
	nsName, err := NamespaceFromPath(
		"/proj/src/app/core.clj",
		[]string{"/proj", "/proj/src"},
	)
	require.NoError(t, err)
	require.Equal(t, "app.core", nsName)

	// Order of the roots does not change the outcome.
	nsName, err = NamespaceFromPath(
		"/proj/src/app/core.clj",
		[]string{"/proj/src", "/proj"},
	)
	require.NoError(t, err)
	require.Equal(t, "app.core", nsName)
}

func TestNamespaceFromPathNoRoot(t *testing.T) {
	_, err := NamespaceFromPath("/elsewhere/core.clj", []string{"/proj/src"})
	require.Error(t, err)
	kind, ok := types.KindOf(err)
	require.True(t, ok)
	require.Equal(t, types.NoSourceRootFound, kind)
}

func TestPathForNamespaceRoundTrip(t *testing.T) {
	p := PathForNamespace("app.my-lib.core", "/proj/src", ".clj")
	require.Equal(t, filepath.FromSlash("/proj/src/app/my_lib/core.clj"), p)

	nsName, err := NamespaceFromPath(p, []string{"/proj/src"})
	require.NoError(t, err)
	require.Equal(t, "app.my-lib.core", nsName)
}
