// Package services defines the business logic for the request lifecycle.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into user-facing chat replies is performed at the bot router/flow layer.
package services

import "errors"

var (
	// ErrDuplicateRequest indicates the requester already has a pending
	// request for this exact title string.
	ErrDuplicateRequest = errors.New("request already pending")

	// ErrAlreadyAvailable indicates a completed request already exists for
	// this (requester, title). Callers receive the prior record alongside
	// this error so the stored link can be shown; creation is not blocked
	// as a hard invariant, only reported.
	ErrAlreadyAvailable = errors.New("title already available")

	// ErrRequestNotFound indicates that the referenced request does not
	// exist, or is no longer in a state the operation can act on.
	ErrRequestNotFound = errors.New("request not found")

	// ErrInvalidTitle is returned when a title is empty after trimming or
	// exceeds the configured maximum length.
	ErrInvalidTitle = errors.New("invalid title")

	// ErrInvalidLink is returned when a fulfillment link is empty.
	ErrInvalidLink = errors.New("invalid link")
)
