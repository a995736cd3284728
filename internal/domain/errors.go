// Package domain holds the notification, push token, preference and event types shared by
// every layer of the service.
package domain

import "errors"

// Sentinel errors for domain-level error discrimination. Repositories and services wrap
// these; handlers map them to HTTP status codes and the dispatcher uses them to tell bad
// arguments from delivery failures.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrBadRequest   = errors.New("bad request")
)
