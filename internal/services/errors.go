// Package services defines the business logic of the moderation pipeline:
// update intake, the per-message moderation flow, manual moderator actions,
// and the background notice sweeper. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer and
// translation into user-facing messages or HTTP status codes should be
// performed at the handler layer.
package services

import "errors"

var (
	// ErrConfigNotFound indicates that the chat has no stored moderation
	// configuration.
	ErrConfigNotFound = errors.New("chat configuration not found")

	// ErrDuplicateUpdate is returned when a webhook update id has already
	// been processed; the caller acknowledges without re-moderating.
	ErrDuplicateUpdate = errors.New("update already processed")

	// ErrInvalidAction is returned when a manual moderation request names
	// an action outside the supported set.
	ErrInvalidAction = errors.New("unsupported moderation action")

	// ErrInvalidTarget is returned when a manual moderation request names
	// neither a user nor a message to act on.
	ErrInvalidTarget = errors.New("action requires a target user or message")

	// ErrInvalidConfig is returned when a configuration update fails
	// validation (unknown judgement or action names, negative thresholds).
	ErrInvalidConfig = errors.New("invalid moderation configuration")
)
