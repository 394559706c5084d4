// Package handlers defines HTTP-layer error codes used across all API
// endpoints.
//
// Codes are lowercase snake_case and stable: clients branch on them for
// programmatic error handling while the message field stays human-readable.
// Generic codes mirror common HTTP status semantics; domain-specific codes
// cover failures the status alone cannot convey.
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Domain-specific:
	ErrCodeInvalidConfig = "invalid_config"
	ErrCodeInvalidAction = "invalid_action"
	ErrCodeActionFailed  = "action_failed"
	ErrCodeListFailed    = "list_failed"
)
