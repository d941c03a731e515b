package errors

import (
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/julianstephens/habitbot/internal/logger"
)

// Kind classifies an error by how callers are expected to react to it
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation means caller-supplied input violated a precondition; nothing was written
	KindValidation
	// KindNotFound means a referenced user or habit does not exist
	KindNotFound
	// KindStorage means the persistence medium was unreachable or rejected the operation
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation error"
	case KindNotFound:
		return "not found"
	case KindStorage:
		return "storage error"
	default:
		return "unknown error"
	}
}

// Error is a classified error carrying the operation that produced it
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

var (
	// ErrValidation matches any validation error via errors.Is
	ErrValidation = &Error{Kind: KindValidation}
	// ErrNotFound matches any not-found error via errors.Is
	ErrNotFound = &Error{Kind: KindNotFound}
	// ErrStorage matches any storage error via errors.Is
	ErrStorage = &Error{Kind: KindStorage}
)

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Msg != "" {
		b.WriteString(e.Msg)
	} else {
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for e's kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Msg == "" && t.Err == nil && t.Kind == e.Kind
}

// Validation returns a validation error for op
func Validation(op, format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// NotFound returns a not-found error for op
func NotFound(op, format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Storage wraps err as a storage error for op.
// Errors that are already classified are returned unchanged so their kind survives.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if stderrors.As(err, &classified) && classified.Kind != KindUnknown {
		return err
	}
	return &Error{Kind: KindStorage, Op: op, Err: err}
}

// KindOf returns the kind of the first classified error in err's chain
func KindOf(err error) Kind {
	var classified *Error
	if stderrors.As(err, &classified) {
		return classified.Kind
	}
	return KindUnknown
}

// Message returns the user-facing part of a classified error, falling back to err.Error()
func Message(err error) string {
	var classified *Error
	if stderrors.As(err, &classified) && classified.Msg != "" {
		return classified.Msg
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// Format formats an error message with a consistent "Error: " prefix
func Format(err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Error: %v", err)
}

// Formatf formats an error message with a consistent "Error: " prefix using a format string
func Formatf(format string, args ...interface{}) string {
	return fmt.Sprintf("Error: "+format, args...)
}

// Fatal logs an error and exits the program with exit code 1
func Fatal(err error) {
	if err != nil {
		logger.Error("Command execution failed", "error", err)
		fmt.Fprintf(os.Stderr, "%s\n", Format(err))
		os.Exit(1)
	}
}

// Fatalf logs and formats an error message, then exits the program with exit code 1
func Fatalf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	logger.Error("Command execution failed", "error", msg)
	fmt.Fprintf(os.Stderr, "%s\n", Formatf(format, args...))
	os.Exit(1)
}
