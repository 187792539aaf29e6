// Package fault defines the error taxonomy shared by the knowledge base,
// the memory manager and the protocol dispatcher. Every error crossing a
// component boundary carries a Kind so transports can map it to a
// machine-readable code without string matching.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

const (
	// KindConsistency covers broken internal invariants and unclassified
	// errors. It is the zero value so that unknown errors never look like
	// caller mistakes.
	KindConsistency Kind = iota
	KindValidation
	KindNotFound
	KindProvider
	KindProtocol
)

// String returns the human-readable kind label.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation failure"
	case KindNotFound:
		return "not found"
	case KindProvider:
		return "provider failure"
	case KindProtocol:
		return "protocol failure"
	default:
		return "consistency failure"
	}
}

// Code returns the wire code used in protocol responses.
func (k Kind) Code() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindProvider:
		return "provider"
	case KindProtocol:
		return "protocol"
	default:
		return "consistency"
	}
}

// Error is a classified error. Op names the failing operation
// (e.g. "knowledge.add").
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Op == "" {
		return e.Err.Error()
	}
	return e.Op + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap classifies err under kind. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// Validation returns a validation failure with a formatted message.
func Validation(op, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Err: fmt.Errorf(format, args...)}
}

// NotFound returns a not-found failure with a formatted message.
func NotFound(op, format string, args ...any) error {
	return &Error{Kind: KindNotFound, Op: op, Err: fmt.Errorf(format, args...)}
}

// Protocol returns a protocol failure with a formatted message.
func Protocol(op, format string, args ...any) error {
	return &Error{Kind: KindProtocol, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the kind of the outermost classified error in err's
// chain, or KindConsistency when err carries no classification.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindConsistency
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == kind
}

// ParseCode maps a wire code back to its Kind. Unknown codes map to
// KindConsistency.
func ParseCode(code string) Kind {
	for _, k := range []Kind{KindValidation, KindNotFound, KindProvider, KindProtocol} {
		if k.Code() == code {
			return k
		}
	}
	return KindConsistency
}
