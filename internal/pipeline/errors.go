package pipeline

import "errors"

// Stage failures are classified so callers and logs can tell a bad request
// apart from a broken collaborator. The orchestrator records the wrapped text
// on the job row either way.
var (
	// ErrValidation marks a missing stage precondition, such as an embed
	// run on a document with no chunks.
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks a job or document that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDependencyUnavailable marks a collaborator that is not configured
	// at all, as opposed to one that failed a single call.
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrExternalService marks a network failure, timeout or non-success
	// response from a collaborator.
	ErrExternalService = errors.New("external service error")

	// ErrStorage marks a persistence failure.
	ErrStorage = errors.New("storage error")
)
