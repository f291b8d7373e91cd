package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrTaskActive         = errors.New("task already has an active job")
)

// Kind classifies a pipeline failure. The dispatcher decides retry vs.
// finalize from the kind alone, never from message text.
type Kind string

const (
	KindValidation          Kind = "validation"
	KindInsufficientCredits Kind = "insufficient_credits"
	KindTransientProvider   Kind = "transient_provider"
	KindWorkspace           Kind = "workspace"
	KindAuth                Kind = "auth"
	KindInternal            Kind = "internal"
)

// Retryable reports whether a failure of this kind may be re-attempted by
// the queue's backoff policy.
func (k Kind) Retryable() bool {
	return k == KindTransientProvider || k == KindWorkspace
}

// Category is the human-readable failure category surfaced to the user.
// Internal details never leave the logs.
func (k Kind) Category() string {
	switch k {
	case KindValidation:
		return "task is malformed"
	case KindInsufficientCredits:
		return "insufficient credits"
	case KindTransientProvider:
		return "AI provider is temporarily unavailable"
	case KindWorkspace:
		return "repository workspace could not be prepared"
	case KindAuth:
		return "repository or provider credentials are invalid"
	default:
		return "internal error"
	}
}

// Error is a tagged domain error: a kind for classification plus optional
// structured context (provider name for gateway failures).
type Error struct {
	Kind     Kind
	Provider string
	Msg      string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// E builds a tagged error wrapping cause (cause may be nil).
func E(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: cause}
}

// KindOf extracts the kind from err; anything untagged is internal.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
