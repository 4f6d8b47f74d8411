// Package failure defines the closed set of error kinds a digest request can
// end with. Callers branch on Kind rather than on message text.
package failure

import (
	"errors"
	"fmt"
)

// Kind identifies the stage and class of a failure.
type Kind string

const (
	KindInvalidURL       Kind = "invalid_url"
	KindCaptionsDisabled Kind = "captions_disabled"
	KindNoCaptions       Kind = "no_captions"
	KindVideoUnavailable Kind = "video_unavailable"
	KindFetch            Kind = "fetch_failed"
	KindSummarization    Kind = "summarization_failed"
	KindPersistence      Kind = "persistence_failed"
	KindInternal         Kind = "internal"
)

// Error is a tagged failure. Err holds the underlying cause, if any.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns a tagged error without a cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap tags err with kind. A nil err yields nil.
func Wrap(kind Kind, msg string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf reports the kind of the outermost tagged error in err's chain.
// Untagged errors report KindInternal; nil reports "".
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message returns the human-readable message of a tagged error, or the
// plain error text otherwise.
func Message(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		if fe.Err != nil {
			return fe.Message + ": " + fe.Err.Error()
		}
		return fe.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
