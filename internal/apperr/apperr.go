package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure for propagation decisions.
type Kind string

const (
	// KindNotFound means the dataset root or the cache location is unusable.
	KindNotFound Kind = "not-found"
	// KindIO covers read, write and metadata failures.
	KindIO Kind = "io-failure"
	// KindStore covers connection, statement and transaction failures.
	KindStore Kind = "store-failure"
	// KindDecode marks a per-file decode failure. It never aborts a scan.
	KindDecode Kind = "decode-skip"
	// KindDuplicate marks a row rejected by the unique content-hash index.
	KindDuplicate Kind = "duplicate-hash"
	// KindConfig marks invalid configuration.
	KindConfig Kind = "configuration"
)

// Sentinels for errors.Is checks. Any *Error with the same Kind matches.
var (
	ErrNotFound  = &Error{Kind: KindNotFound}
	ErrIO        = &Error{Kind: KindIO}
	ErrStore     = &Error{Kind: KindStore}
	ErrDecode    = &Error{Kind: KindDecode}
	ErrDuplicate = &Error{Kind: KindDuplicate}
	ErrConfig    = &Error{Kind: KindConfig}
)

// Error wraps an underlying error with a kind, the failing operation and,
// where relevant, the path involved.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

// New builds an *Error.
func New(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// NotFound builds a KindNotFound error.
func NotFound(op, path string, err error) *Error { return New(KindNotFound, op, path, err) }

// IO builds a KindIO error.
func IO(op, path string, err error) *Error { return New(KindIO, op, path, err) }

// Store builds a KindStore error.
func Store(op string, err error) *Error { return New(KindStore, op, "", err) }

// Error implements the error interface
func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (%s)", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same Kind, so the package sentinels work
// with errors.Is regardless of Op, Path or the wrapped cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

