// internal/gateway/errors.go
package gateway

import "fmt"

// Kind classifies a rejected action so callers can tell "fix your input"
// apart from "try again".
type Kind string

const (
	// KindUnauthorized: the caller occupies neither seat of the match. Fatal.
	KindUnauthorized Kind = "unauthorized"

	// KindInvalidRequest: malformed or missing payload fields. Fatal; the
	// caller must correct the input.
	KindInvalidRequest Kind = "invalid_request"

	// KindCardNotFound: the referenced uid is absent from the stated source
	// zone. The caller's view is stale; they should refresh.
	KindCardNotFound Kind = "card_not_found"

	// KindConflict: the version conflict persisted past the retry bound.
	// Transient; refresh and resubmit.
	KindConflict Kind = "conflict"

	// KindStoreUnavailable: a collaborator failed before the mutation became
	// durable. Transient and retryable; nothing was applied.
	KindStoreUnavailable Kind = "store_unavailable"
)

// ActionError is the structured failure every gateway rejection surfaces as.
type ActionError struct {
	Kind Kind
	Err  error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}

func fail(kind Kind, format string, args ...interface{}) *ActionError {
	return &ActionError{Kind: kind, Err: fmt.Errorf(format, args...)}
}
