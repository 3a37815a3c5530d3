package domain

import (
	"errors"
	"fmt"
	"strings"
)

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

func (e NotFoundError) Unwrap() error { return e.Err }

// ValidationError carries every failing field identifier of an input, not only the first.
type ValidationError struct {
	Field  string
	Fields []string
	Msg    string
	Err    error
}

func (e ValidationError) Error() string {
	fields := e.FailingFields()
	if e.Msg != "" && len(fields) > 0 {
		return fmt.Sprintf("%s: %s", strings.Join(fields, ","), e.Msg)
	}
	if e.Msg != "" {
		return e.Msg
	}
	if len(fields) > 0 {
		return fmt.Sprintf("invalid %s", strings.Join(fields, ","))
	}
	return "validation error"
}

func (e ValidationError) Unwrap() error { return e.Err }

// FailingFields merges Field and Fields, keeping order and dropping duplicates.
func (e ValidationError) FailingFields() []string {
	out := make([]string, 0, len(e.Fields)+1)
	seen := map[string]bool{}
	for _, f := range append([]string{e.Field}, e.Fields...) {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

// CapacityExceededError means a slot cannot take the requested passengers on that date.
type CapacityExceededError struct {
	SlotID    string
	Date      string
	Available int
	Requested int
}

func (e CapacityExceededError) Error() string {
	if e.Available <= 0 {
		return fmt.Sprintf("slot %s on %s is fully booked", e.SlotID, e.Date)
	}
	return fmt.Sprintf("only %d seats left on slot %s for %s, requested %d", e.Available, e.SlotID, e.Date, e.Requested)
}

// PersistenceError is a failed durable write of local state (quota, db). Fatal for the submission.
type PersistenceError struct {
	Msg string
	Err error
}

func (e PersistenceError) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = "local persistence failed"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e PersistenceError) Unwrap() error { return e.Err }

// RemoteSyncError is a failed remote mirror write. Never fatal for a booking.
type RemoteSyncError struct {
	Op  string
	IDs []string
	Err error
}

func (e RemoteSyncError) Error() string {
	base := "remote sync failed"
	if e.Op != "" {
		base = fmt.Sprintf("remote %s failed", e.Op)
	}
	if len(e.IDs) > 0 {
		base = fmt.Sprintf("%s for %s", base, strings.Join(e.IDs, ","))
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", base, e.Err)
	}
	return base
}

func (e RemoteSyncError) Unwrap() error { return e.Err }

// AuthError is a wrong admin secret or missing confirmation.
type AuthError struct {
	Msg string
}

func (e AuthError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "admin authentication failed"
}

type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Error() string {
	switch {
	case e.Msg != "" && e.Resource != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return fmt.Sprintf("%s conflict", e.Resource)
	default:
		return "conflict"
	}
}

func (e ConflictError) Unwrap() error { return e.Err }

type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}

func (e InternalError) Unwrap() error { return e.Err }

func IsNotFound(err error) bool {
	var target NotFoundError
	return errors.As(err, &target)
}

func IsValidation(err error) bool {
	var target ValidationError
	return errors.As(err, &target)
}

func IsConflict(err error) bool {
	var target ConflictError
	return errors.As(err, &target)
}

func IsInternal(err error) bool {
	var target InternalError
	return errors.As(err, &target)
}

func IsCapacityExceeded(err error) bool {
	var target CapacityExceededError
	return errors.As(err, &target)
}

func IsPersistence(err error) bool {
	var target PersistenceError
	return errors.As(err, &target)
}

func IsRemoteSync(err error) bool {
	var target RemoteSyncError
	return errors.As(err, &target)
}

func IsAuth(err error) bool {
	var target AuthError
	return errors.As(err, &target)
}
