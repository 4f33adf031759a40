package railcli

import (
	"fmt"
	"time"
)

// ForbiddenOperationError is returned when a command is rejected before any
// process is spawned: empty commands, shell metacharacters, verbs outside the
// allow-list, or explicitly denied verbs.
type ForbiddenOperationError struct {
	Command string
	Reason  string
}

func (e *ForbiddenOperationError) Error() string {
	return fmt.Sprintf("forbidden command %q: %s", e.Command, e.Reason)
}

// ReadinessTimeoutError is returned by the poller when a service does not
// report active before the deadline.
type ReadinessTimeoutError struct {
	ServiceID string
	Timeout   time.Duration
}

func (e *ReadinessTimeoutError) Error() string {
	return fmt.Sprintf("service %s not ready after %s", e.ServiceID, e.Timeout)
}
