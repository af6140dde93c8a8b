// Sessionguard - Login Risk Analysis and Session Integrity
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sessionguard

package models

import (
	"errors"
	"fmt"
)

// Error kinds. Wrap or return these so callers can use errors.Is.
var (
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrAccountInactive = errors.New("account inactive")
)

// Error carries the kind of a failure plus the resource it concerns.
type Error struct {
	Kind     error
	Resource string
	ID       string
	Message  string
}

func (e *Error) Error() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.ID != "":
		return fmt.Sprintf("%s %s: %v", e.Resource, e.ID, e.Kind)
	case e.Resource != "":
		return fmt.Sprintf("%s: %v", e.Resource, e.Kind)
	default:
		return e.Kind.Error()
	}
}

// Unwrap exposes the kind to errors.Is.
func (e *Error) Unwrap() error {
	return e.Kind
}

// NotFound reports a missing resource.
func NotFound(resource, id string) error {
	return &Error{Kind: ErrNotFound, Resource: resource, ID: id}
}

// Conflict reports a uniqueness violation.
func Conflict(resource, msg string) error {
	return &Error{Kind: ErrConflict, Resource: resource, Message: msg}
}

// InvalidInput reports a rejected request value.
func InvalidInput(msg string) error {
	return &Error{Kind: ErrInvalidInput, Message: msg}
}

// Unauthorized reports failed authentication.
func Unauthorized(msg string) error {
	return &Error{Kind: ErrUnauthorized, Message: msg}
}

// AccountInactive reports a login against a non-active account.
func AccountInactive(status AccountStatus) error {
	return &Error{Kind: ErrAccountInactive, Message: fmt.Sprintf("account is %s", status)}
}

// IsNotFound reports whether err is of kind ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
