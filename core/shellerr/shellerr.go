// Package shellerr defines the error taxonomy used by the shell.
//
// Every error that reaches the user is one of four kinds:
//
//   - Syntax: a malformed line, e.g. a redirection with no file name.
//   - Resource: a file, pipe or process could not be created.
//   - Execution: the target program or script could not be run.
//   - Validation: the line was rejected by the input sanity checks.
//
// Kinds are matched with errors.Is against the package sentinels:
//
//	if errors.Is(err, shellerr.ErrSyntax) {
//	    // ...
//	}
package shellerr

import (
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
)

// Kind classifies an error.
type Kind int

const (
	KindSyntax Kind = iota + 1
	KindResource
	KindExecution
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindSyntax:
		return "syntax error"
	case KindResource:
		return "resource error"
	case KindExecution:
		return "execution error"
	case KindValidation:
		return "validation error"
	default:
		return "error"
	}
}

// Sentinels for errors.Is matching.
var (
	ErrSyntax     error = kindSentinel(KindSyntax)
	ErrResource   error = kindSentinel(KindResource)
	ErrExecution  error = kindSentinel(KindExecution)
	ErrValidation error = kindSentinel(KindValidation)
)

type kindSentinel Kind

func (k kindSentinel) Error() string {
	return Kind(k).String()
}

// Exit statuses reported for failed stages.
const (
	StatusFailure     = 1
	StatusUsage       = 2
	StatusNotRunnable = 126
	StatusNotFound    = 127
)

// Error is a classified shell error.
type Error struct {
	Kind Kind
	// Op names the operation that failed, e.g. "redirect" or "pipe".
	Op string
	// Path is the file or command involved, if any.
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch {
	case e.Path != "" && e.Err != nil:
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	case e.Path != "":
		return fmt.Sprintf("%s %s", e.Op, e.Path)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op
	}
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(kindSentinel)
	return ok && Kind(k) == e.Kind
}

// Syntax creates a syntax error.
func Syntax(op string, format string, args ...interface{}) *Error {
	return &Error{Kind: KindSyntax, Op: op, Err: fmt.Errorf(format, args...)}
}

// Resource wraps a failure to acquire a file, pipe or process.
func Resource(op, path string, cause error) *Error {
	return &Error{Kind: KindResource, Op: op, Path: path, Err: cause}
}

// Execution wraps a failure to run a program.
func Execution(path string, cause error) *Error {
	return &Error{Kind: KindExecution, Op: "exec", Path: path, Err: cause}
}

// Validation creates a validation error.
func Validation(format string, args ...interface{}) *Error {
	return &Error{Kind: KindValidation, Op: "validate", Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of err, or 0 if err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

// ExitStatus maps an error to the status a failed stage reports.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}

	switch KindOf(err) {
	case KindSyntax, KindValidation:
		return StatusUsage
	case KindExecution:
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return StatusNotFound
		}
		return StatusNotRunnable
	default:
		return StatusFailure
	}
}
