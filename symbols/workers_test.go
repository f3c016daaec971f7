package symbols

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestRunWorkers tests the generic worker pool for concurrency correctness.
// Run with -race flag to detect race conditions: go test -race
func TestRunWorkers(t *testing.T) {
	tests := []struct {
		name      string
		fileCount int
		jobs      int
	}{
		{"single_file_single_worker", 1, 1},
		{"multiple_files_single_worker", 5, 1},
		{"multiple_files_multiple_workers", 10, 4},
		{"more_workers_than_files", 3, 10},
		{"many_files_high_concurrency", 50, 16},
		{"zero_jobs_defaults_to_one", 5, 0},
		{"empty_files", 0, 4},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var files, expected []string
			for i := 0; i < tc.fileCount; i++ {
				files = append(files, fmt.Sprintf("file_%d.clj", i))
				expected = append(expected, fmt.Sprintf("file_%d.clj!", i))
			}

			results := runWorkers(files, tc.jobs, func(path string) []string {
				return []string{path + "!"}
			})

			if tc.fileCount == 0 {
				require.Empty(t, results)
				return
			}

			require.Len(t, results, tc.fileCount, "should have one result per file")

			// Sort both slices for comparison (order may vary due to concurrency)
			sort.Strings(results)
			sort.Strings(expected)
			require.Equal(t, expected, results, "every file should be processed exactly once")
		})
	}
}

func TestRunWorkersMultipleResultsPerFile(t *testing.T) {
	files := []string{"a.clj", "b.clj"}
	results := runWorkers(files, 2, func(path string) []string {
		return []string{path + ":1", path + ":2"}
	})
	sort.Strings(results)
	require.Equal(t, []string{"a.clj:1", "a.clj:2", "b.clj:1", "b.clj:2"}, results)
}
