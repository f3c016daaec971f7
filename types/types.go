// Package types defines shared data types for refactor-nrepl.
package types

// Position represents a location in a source file. Lines and columns
// are 1-based.
type Position struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

// Range represents a span in a source file. An End with a zero Line
// means the span covers only its Start.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// SymbolReference is a located occurrence of a symbol. It is produced
// by searches and never persisted.
type SymbolReference struct {
	LineBeg int    `json:"line-beg"`
	LineEnd int    `json:"line-end"`
	ColBeg  int    `json:"col-beg"`
	ColEnd  int    `json:"col-end"`
	Name    string `json:"name"`
	File    string `json:"file,omitempty"`
	Match   string `json:"match"`
}
