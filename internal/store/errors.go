package store

import (
	"errors"
	"fmt"
)

// Kind categorizes a collection-core failure so callers can apply the
// propagation policy (per-device vs job-level vs fatal) without string
// matching.
type Kind string

const (
	KindConfigError        Kind = "config_error"
	KindInventoryEmpty     Kind = "inventory_empty"
	KindNoCredential       Kind = "no_credential"
	KindAuthFailed         Kind = "auth_failed"
	KindTimeout            Kind = "timeout"
	KindTransportError     Kind = "transport_error"
	KindCommandError       Kind = "command_error"
	KindValidationFailed   Kind = "validation_failed"
	KindPersistenceError   Kind = "persistence_error"
	KindSecretStoreLocked  Kind = "secret_store_locked"
)

// Error wraps an underlying cause with a Kind so it can be matched with
// errors.As without inspecting message text.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, store.KindError(store.KindTimeout))-style
// checks, matching on the Kind alone.
func (e *Error) Is(target error) bool {
	var ke kindError
	if errors.As(target, &ke) {
		return e.Kind == Kind(ke)
	}
	return false
}

type kindError Kind

func (k kindError) Error() string { return string(k) }

// KindError produces a sentinel comparable with errors.Is against any
// *Error carrying the same Kind.
func KindError(k Kind) error { return kindError(k) }

// Wrap constructs an *Error, the canonical way operations in this module
// report a categorized failure.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the Kind from err if it (or something it wraps) is an
// *Error; ok is false otherwise.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}

var (
	// ErrNotFound is returned by store lookups that find no matching row.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyUnlocked names an unlock attempt on an already unlocked
	// secret store session. vault.Session.Unlock does not return it: an
	// unlock of an unlocked session checks the password again like any other.
	ErrAlreadyUnlocked = errors.New("secret store already unlocked")
	// ErrWrongPassword is returned when the unlock verifier does not match.
	ErrWrongPassword = errors.New("wrong vault password")
)
