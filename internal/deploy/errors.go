package deploy

import "fmt"

// NotFoundError indicates a referenced service, deployment, or project is
// absent.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// UpstreamError indicates the platform rejected or failed an operation, via
// either the CLI or the remote API. Detail carries sanitized diagnostics only.
type UpstreamError struct {
	Op     string
	Detail string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s failed: %s", e.Op, e.Detail)
}

// ConflictError indicates the operation clashes with existing platform state,
// e.g. a duplicate name or a rollback target that cannot be replayed.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}
