// Copyright (c) 2025 Supersetctl
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package errors defines typed errors with categories for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable error kinds
// and human-friendly messages, so callers can branch on the category of a failure
// (validation, identity, permission, not found, connection, remote) without parsing
// error strings.
//
// The package supports wrapping underlying errors while maintaining error kind information.
// HasKind walks the whole chain, so an identity failure caused by a permission denial
// reports both kinds.
package errors

import (
	"context"
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// Validation indicates malformed input caught before any remote call.
	Validation Kind = "validation"
	// Identity indicates that no resolution strategy produced a user id.
	Identity Kind = "identity"
	// Permission indicates the server refused the operation (401/403).
	Permission Kind = "permission"
	// NotFound indicates a referenced resource does not exist.
	NotFound Kind = "not_found"
	// Connection indicates a transport-level failure; batch operations abort on it.
	Connection Kind = "connection"
	// Remote indicates the server rejected a request for any other reason.
	Remote Kind = "remote"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	// Status is the HTTP status code when the error came from a response.
	Status int
	Err    error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// Newf formats msg and returns an error of the given kind.
func Newf(kind Kind, format string, args ...any) *E {
	return &E{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// WithStatus returns an error carrying an HTTP status code.
func WithStatus(kind Kind, status int, msg string) *E {
	return &E{Kind: kind, Status: status, Message: msg}
}

// HasKind reports whether any error in err's chain is an *E of the given kind.
func HasKind(err error, kind Kind) bool {
	for err != nil {
		var e *E
		if !stderrors.As(err, &e) {
			return false
		}
		if e.Kind == kind {
			return true
		}
		err = e.Err
	}
	return false
}

// KindOf returns the kind of the outermost *E in err's chain, or "" when there is none.
func KindOf(err error) Kind {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsConnection is shorthand for HasKind(err, Connection).
func IsConnection(err error) bool { return HasKind(err, Connection) }

// Is and As re-export the standard library helpers so callers need a single import.
func Is(err, target error) bool { return stderrors.Is(err, target) }
func As(err error, target any) bool { return stderrors.As(err, target) }

// Annotate prefixes err with msg and keeps its kind. Errors without a kind become
// Remote, except context cancellation which is returned wrapped as is.
func Annotate(msg string, err error) error {
	if err == nil {
		return nil
	}
	k := KindOf(err)
	if k == "" {
		if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%s: %w", msg, err)
		}
		k = Remote
	}
	return Wrap(k, msg, err)
}
