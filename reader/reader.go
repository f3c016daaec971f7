// Package reader parses source text into position-annotated forms.
// It is a plain syntactic reader: no evaluation, no macro expansion.
package reader

import (
	"fmt"
	"strings"

	"github.com/andrewmcveigh/refactor-nrepl/lang"
	"github.com/andrewmcveigh/refactor-nrepl/types"
)

// Kind tags the shape of a form.
type Kind int

const (
	List Kind = iota
	Vector
	Map
	Set
	Symbol
	Keyword
	String
	Number
	Char
	Regex
)

// Form is a single read form with its source span.
type Form struct {
	Kind     Kind
	Children []*Form

	// Text is the literal source text of the form, including any
	// quote or var markers that preceded it.
	Text string

	// Value is the content of a symbol or keyword (keyword without
	// leading colons, symbol including a leading var marker if any).
	Value string

	// Meta is the ^metadata form attached to this form, if any.
	Meta *Form

	Range       types.Range
	StartOffset int
	EndOffset   int
}

type reader struct {
	src  string
	pos  int
	line int
	col  int
}

// ReadAll reads every top-level form in src.
func ReadAll(src string) ([]*Form, error) {
	r := &reader{src: src, line: 1, col: 1}
	var forms []*Form
	for {
		if err := r.skipSpace(); err != nil {
			return nil, err
		}
		if r.eof() {
			return forms, nil
		}
		f, err := r.readForm()
		if err != nil {
			return nil, err
		}
		forms = append(forms, f)
	}
}

func (r *reader) eof() bool { return r.pos >= len(r.src) }

func (r *reader) cur() byte { return r.src[r.pos] }

func (r *reader) peek(n int) byte {
	if r.pos+n >= len(r.src) {
		return 0
	}
	return r.src[r.pos+n]
}

func (r *reader) advance() {
	if r.src[r.pos] == '\n' {
		r.line++
		r.col = 1
	} else {
		r.col++
	}
	r.pos++
}

func (r *reader) errorf(format string, args ...any) error {
	return fmt.Errorf("%d:%d: %s", r.line, r.col, fmt.Sprintf(format, args...))
}

// skipSpace consumes whitespace, commas, line comments and #_ discards.
func (r *reader) skipSpace() error {
	for !r.eof() {
		c := r.cur()
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n' || c == ',':
			r.advance()
		case c == ';':
			for !r.eof() && r.cur() != '\n' {
				r.advance()
			}
		case c == '#' && r.peek(1) == '_':
			r.advance()
			r.advance()
			if err := r.skipSpace(); err != nil {
				return err
			}
			if r.eof() {
				return r.errorf("unexpected end of input after #_")
			}
			if _, err := r.readForm(); err != nil {
				return err
			}
		default:
			return nil
		}
	}
	return nil
}

func (r *reader) readForm() (*Form, error) {
	start := r.pos
	startLine, startCol := r.line, r.col

	c := r.cur()
	switch {
	case c == '(':
		return r.readDelimited(List, ')', start, startLine, startCol)
	case c == '[':
		return r.readDelimited(Vector, ']', start, startLine, startCol)
	case c == '{':
		return r.readDelimited(Map, '}', start, startLine, startCol)
	case c == ')' || c == ']' || c == '}':
		return nil, r.errorf("unmatched %q", string(c))
	case c == '#':
		return r.readDispatch(start, startLine, startCol)
	case c == '\'' || c == '`' || c == '@':
		r.advance()
		return r.readMarked(start, startLine, startCol)
	case c == '~':
		r.advance()
		if !r.eof() && r.cur() == '@' {
			r.advance()
		}
		return r.readMarked(start, startLine, startCol)
	case c == '^':
		r.advance()
		if err := r.skipSpace(); err != nil {
			return nil, err
		}
		meta, err := r.readForm()
		if err != nil {
			return nil, err
		}
		if err := r.skipSpace(); err != nil {
			return nil, err
		}
		if r.eof() {
			return nil, r.errorf("metadata with nothing to attach to")
		}
		f, err := r.readForm()
		if err != nil {
			return nil, err
		}
		f.Meta = meta
		f.StartOffset = start
		f.Range.Start = types.Position{Line: startLine, Column: startCol}
		f.Text = r.src[start:f.EndOffset]
		return f, nil
	case c == '"':
		return r.readString(start, startLine, startCol, String)
	case c == '\\':
		return r.readChar(start, startLine, startCol)
	case c == ':':
		return r.readKeyword(start, startLine, startCol)
	case isDigit(c) || ((c == '+' || c == '-') && isDigit(r.peek(1))):
		return r.readToken(Number, start, startLine, startCol)
	case lang.IsSymbolChar(c):
		return r.readToken(Symbol, start, startLine, startCol)
	default:
		return nil, r.errorf("unexpected character %q", string(c))
	}
}

// readMarked reads the form following a quote-family marker and widens
// its span to include the marker.
func (r *reader) readMarked(start, startLine, startCol int) (*Form, error) {
	if err := r.skipSpace(); err != nil {
		return nil, err
	}
	if r.eof() {
		return nil, r.errorf("unexpected end of input after reader marker")
	}
	f, err := r.readForm()
	if err != nil {
		return nil, err
	}
	f.StartOffset = start
	f.Range.Start = types.Position{Line: startLine, Column: startCol}
	f.Text = r.src[start:f.EndOffset]
	return f, nil
}

func (r *reader) readDispatch(start, startLine, startCol int) (*Form, error) {
	switch r.peek(1) {
	case '{':
		r.advance()
		return r.readDelimited(Set, '}', start, startLine, startCol)
	case '"':
		r.advance()
		return r.readString(start, startLine, startCol, Regex)
	case '\'':
		// Var marker: read the symbol and keep the marker in Value so
		// qualification can strip it.
		r.advance()
		r.advance()
		if r.eof() || !lang.IsSymbolChar(r.cur()) {
			return nil, r.errorf("expected symbol after #'")
		}
		f, err := r.readToken(Symbol, r.pos, r.line, r.col)
		if err != nil {
			return nil, err
		}
		f.StartOffset = start
		f.Range.Start = types.Position{Line: startLine, Column: startCol}
		f.Text = r.src[start:f.EndOffset]
		f.Value = lang.VarMarker + f.Value
		return f, nil
	case '(':
		// Anonymous function literal reads as a list.
		r.advance()
		return r.readDelimited(List, ')', start, startLine, startCol)
	case '?':
		// Reader conditional #?(...) or #?@(...): skip to the list.
		r.advance()
		r.advance()
		if !r.eof() && r.cur() == '@' {
			r.advance()
		}
		if r.eof() || r.cur() != '(' {
			return nil, r.errorf("expected list after reader conditional")
		}
		return r.readDelimited(List, ')', start, startLine, startCol)
	default:
		return nil, r.errorf("unsupported dispatch #%s", string(r.peek(1)))
	}
}

func (r *reader) readDelimited(kind Kind, close byte, start, startLine, startCol int) (*Form, error) {
	r.advance() // opening delimiter
	var children []*Form
	for {
		if err := r.skipSpace(); err != nil {
			return nil, err
		}
		if r.eof() {
			return nil, fmt.Errorf("%d:%d: unclosed %s", startLine, startCol, kindName(kind))
		}
		if r.cur() == close {
			r.advance()
			return r.finish(&Form{Kind: kind, Children: children}, start, startLine, startCol), nil
		}
		child, err := r.readForm()
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
}

func (r *reader) readString(start, startLine, startCol int, kind Kind) (*Form, error) {
	r.advance() // opening quote
	var sb strings.Builder
	for {
		if r.eof() {
			return nil, fmt.Errorf("%d:%d: unterminated string", startLine, startCol)
		}
		c := r.cur()
		if c == '\\' {
			r.advance()
			if r.eof() {
				return nil, fmt.Errorf("%d:%d: unterminated string", startLine, startCol)
			}
			sb.WriteByte(r.cur())
			r.advance()
			continue
		}
		if c == '"' {
			r.advance()
			f := &Form{Kind: kind, Value: sb.String()}
			return r.finish(f, start, startLine, startCol), nil
		}
		sb.WriteByte(c)
		r.advance()
	}
}

func (r *reader) readChar(start, startLine, startCol int) (*Form, error) {
	r.advance() // backslash
	if r.eof() {
		return nil, r.errorf("unterminated character literal")
	}
	r.advance() // first character is always part of the literal
	for !r.eof() && isLetter(r.cur()) {
		r.advance()
	}
	return r.finish(&Form{Kind: Char}, start, startLine, startCol), nil
}

func (r *reader) readKeyword(start, startLine, startCol int) (*Form, error) {
	r.advance()
	if !r.eof() && r.cur() == ':' {
		r.advance()
	}
	for !r.eof() && lang.IsSymbolChar(r.cur()) {
		r.advance()
	}
	f := r.finish(&Form{Kind: Keyword}, start, startLine, startCol)
	f.Value = strings.TrimLeft(f.Text, ":")
	return f, nil
}

func (r *reader) readToken(kind Kind, start, startLine, startCol int) (*Form, error) {
	for !r.eof() && lang.IsSymbolChar(r.cur()) {
		r.advance()
	}
	f := r.finish(&Form{Kind: kind}, start, startLine, startCol)
	f.Value = f.Text
	return f, nil
}

// finish stamps text, offsets and the span onto f. The end position is
// the position of the character following the form.
func (r *reader) finish(f *Form, start, startLine, startCol int) *Form {
	f.StartOffset = start
	f.EndOffset = r.pos
	f.Text = r.src[start:r.pos]
	f.Range = types.Range{
		Start: types.Position{Line: startLine, Column: startCol},
		End:   types.Position{Line: r.line, Column: r.col},
	}
	return f
}

func isDigit(b byte) bool  { return b >= '0' && b <= '9' }
func isLetter(b byte) bool { return b >= 'a' && b <= 'z' || b >= 'A' && b <= 'Z' }

func kindName(k Kind) string {
	switch k {
	case List:
		return "list"
	case Vector:
		return "vector"
	case Map:
		return "map"
	case Set:
		return "set"
	}
	return "form"
}
