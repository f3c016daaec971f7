package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies refactoring errors.
type ErrorKind int

const (
	// InvalidRequest means a request had bad or missing paths.
	InvalidRequest ErrorKind = iota
	// NoSourceRootFound means a path is not under any known source root.
	NoSourceRootFound
	// MalformedDeclaration means a file lacks a parseable ns declaration.
	MalformedDeclaration
	// ParseError means source text could not be read into forms.
	ParseError
	// FileSystemError wraps read/write/move failures.
	FileSystemError
)

func (k ErrorKind) String() string {
	switch k {
	case InvalidRequest:
		return "invalid request"
	case NoSourceRootFound:
		return "no source root found"
	case MalformedDeclaration:
		return "malformed ns declaration"
	case ParseError:
		return "parse error"
	case FileSystemError:
		return "file system error"
	}
	return "unknown error"
}

// Error represents a failure in a refactoring operation.
type Error struct {
	Kind    ErrorKind
	Message string
	File    string
	Cause   error

	// Written lists files already mutated when a write-phase failure
	// occurred. There is no rollback; callers need this for manual
	// recovery.
	Written []string
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.File != "" {
		return fmt.Sprintf("%s: %s", e.File, msg)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError creates an Error of the given kind.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// KindOf reports the ErrorKind of err, if err is or wraps an *Error.
func KindOf(err error) (ErrorKind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
