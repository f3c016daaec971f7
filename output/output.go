// Package output provides JSON output formatting for the CLI.
package output

import (
	"encoding/json"
	"errors"
	"io"
	"os"

	"github.com/andrewmcveigh/refactor-nrepl/types"
)

// Writer handles structured output.
type Writer struct {
	encoder *json.Encoder
	compact bool
}

// Config holds output configuration.
type Config struct {
	Compact bool
	Output  io.Writer
}

// New creates a new output Writer.
func New(cfg Config) *Writer {
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}

	enc := json.NewEncoder(cfg.Output)
	enc.SetEscapeHTML(false)
	if !cfg.Compact {
		enc.SetIndent("", "  ")
	}

	return &Writer{
		encoder: enc,
		compact: cfg.Compact,
	}
}

// Write outputs a value as JSON.
func (w *Writer) Write(v any) error {
	return w.encoder.Encode(v)
}

// WriteError writes an error to stderr as JSON. Typed errors carry
// their kind and, after a partial rename, the list of files already
// rewritten.
func WriteError(err error) {
	payload := map[string]any{
		"error": err.Error(),
	}
	var terr *types.Error
	if errors.As(err, &terr) {
		payload["kind"] = terr.Kind.String()
		if terr.File != "" {
			payload["file"] = terr.File
		}
		if len(terr.Written) > 0 {
			payload["written"] = terr.Written
		}
	}
	enc := json.NewEncoder(os.Stderr)
	enc.Encode(payload)
}
