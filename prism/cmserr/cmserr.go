// Package cmserr holds the error taxonomy shared by every part of the engine.
package cmserr

import (
	"errors"
	"fmt"
)

var _ = fmt.Print

type Kind int

const (
	// Mismatched channel counts, malformed pixel formats and the like.
	// Always detected while building, never while evaluating.
	Configuration Kind = iota + 1
	// Allocation or size overflow while building an optimized pipeline.
	Resource
	// Non-monotonic curve inversion, unknown parametric formula id.
	Domain
	// A registered callback misbehaved.
	Plugin
)

var kind_names = map[Kind]string{
	Configuration: "configuration",
	Resource:      "resource",
	Domain:        "domain",
	Plugin:        "plugin",
}

func (k Kind) String() string {
	if ans, ok := kind_names[k]; ok {
		return ans
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

type Error struct {
	Kind Kind
	// The operation that failed, for example "pipeline.Append"
	Op  string
	Msg string
	Err error
}

func (e *Error) Error() string {
	prefix := e.Kind.String() + " error"
	if e.Op != "" {
		prefix = e.Op + ": " + prefix
	}
	if e.Err != nil {
		if e.Msg == "" {
			return prefix + ": " + e.Err.Error()
		}
		return prefix + ": " + e.Msg + ": " + e.Err.Error()
	}
	return prefix + ": " + e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrDomain) and friends match on kind alone.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok && t.Op == "" && t.Msg == "" && t.Err == nil {
		return t.Kind == e.Kind
	}
	return false
}

var (
	ErrConfiguration = &Error{Kind: Configuration}
	ErrResource      = &Error{Kind: Resource}
	ErrDomain        = &Error{Kind: Domain}
	ErrPlugin        = &Error{Kind: Plugin}
)

func newf(k Kind, op, format string, args ...any) *Error {
	return &Error{Kind: k, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func Configurationf(op, format string, args ...any) *Error {
	return newf(Configuration, op, format, args...)
}

func Resourcef(op, format string, args ...any) *Error {
	return newf(Resource, op, format, args...)
}

func Domainf(op, format string, args ...any) *Error {
	return newf(Domain, op, format, args...)
}

func Pluginf(op, format string, args ...any) *Error {
	return newf(Plugin, op, format, args...)
}

// Wrap attaches a kind and operation to an arbitrary error. Errors that
// already carry a kind keep it.
func Wrap(k Kind, op string, err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Op == "" {
			return &Error{Kind: e.Kind, Op: op, Msg: e.Msg, Err: e.Err}
		}
		return e
	}
	return &Error{Kind: k, Op: op, Err: err}
}

// KindOf returns the kind of err or zero when err is not from this package.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
