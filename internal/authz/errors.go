package authz

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Kind enumerates the recoverable failure kinds of the authorization core.
// Callers branch on the kind to pick the HTTP-equivalent response; none of
// these are programming errors.
type Kind string

const (
	KindNotFound            Kind = "NOT_FOUND"
	KindWorkspaceNotFound   Kind = "WORKSPACE_NOT_FOUND"
	KindChannelNotFound     Kind = "CHANNEL_NOT_FOUND"
	KindUserNotFound        Kind = "USER_NOT_FOUND"
	KindNotAllowed          Kind = "NOT_ALLOWED"
	KindAlreadyMember       Kind = "ALREADY_MEMBER"
	KindAlreadyInvited      Kind = "ALREADY_INVITED"
	KindCannotInviteSelf    Kind = "CANNOT_INVITE_YOURSELF"
	KindCannotRemoveOwner   Kind = "CANNOT_REMOVE_OWNER"
	KindUserNotInWorkspace  Kind = "USER_NOT_IN_WORKSPACE"
	KindUserAlreadyInChan   Kind = "USER_ALREADY_IN_CHANNEL"
	KindStorage             Kind = "STORAGE_ERROR"
)

// Error is the typed error returned by every core operation.
type Error struct {
	Kind Kind
	Msg  string
	err  error
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Is makes errors.Is match on the kind, so callers can compare against a
// bare kind sentinel.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// E builds a typed core error.
func E(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the kind of err, or KindStorage when err is not a core
// error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// isRecordNotFound distinguishes an absent row from a storage failure.
func isRecordNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// wrapStorage hides storage-level errors from callers: a gorm not-found
// becomes the given not-found kind, everything else a STORAGE_ERROR
// passthrough. Errors already carrying a kind pass through untouched.
func wrapStorage(err error, notFound Kind) error {
	if err == nil {
		return nil
	}
	var typed *Error
	if errors.As(err, &typed) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Error{Kind: notFound, err: err}
	}
	return &Error{Kind: KindStorage, Msg: "storage failure", err: err}
}
