package ankiconnect

import (
	"errors"
	"fmt"
)

// Kind classifies a backend failure.
type Kind int

const (
	// KindUnreachable covers connection failures and timeouts.
	KindUnreachable Kind = iota + 1
	// KindRejected means AnkiConnect answered with a non-empty error field.
	KindRejected
	// KindMalformed means a reply arrived but was unusable: a non-2xx status
	// or a body that could not be decoded.
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindUnreachable:
		return "unreachable"
	case KindRejected:
		return "rejected"
	case KindMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Error is the single failure type returned by Client.
type Error struct {
	Kind   Kind
	Action string
	URL    string
	Detail string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindUnreachable:
		return fmt.Sprintf("Could not connect to AnkiConnect at %s: %s", e.URL, e.Detail)
	case KindRejected:
		return e.Detail
	default:
		return "Error contacting AnkiConnect: " + e.Detail
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsUnreachable reports whether err is a transport-level backend failure.
func IsUnreachable(err error) bool { return kindOf(err) == KindUnreachable }

// IsRejected reports whether the backend itself refused the action.
func IsRejected(err error) bool { return kindOf(err) == KindRejected }

func kindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
