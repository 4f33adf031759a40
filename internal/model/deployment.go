package model

import (
	"time"
)

// DeploymentRecord is one attempt to put a Service into a running state.
// A record is created in StatusBuilding and transitions exactly once to a
// terminal status. Rollback never mutates the record it rolls back to; it
// creates a new record whose metadata references the source record.
type DeploymentRecord struct {
	ID                   string         `json:"id" db:"id"`
	ServiceID            string         `json:"service_id" db:"service_id"`
	PlatformDeploymentID string         `json:"platform_deployment_id,omitempty" db:"platform_deployment_id"`
	Status               string         `json:"status" db:"status"`
	Trigger              string         `json:"trigger" db:"trigger"`
	ActorID              string         `json:"actor_id,omitempty" db:"actor_id"`
	StartedAt            time.Time      `json:"started_at" db:"started_at"`
	CompletedAt          *time.Time     `json:"completed_at,omitempty" db:"completed_at"`
	DurationSeconds      float64        `json:"duration_seconds" db:"duration_seconds"`
	URL                  string         `json:"url,omitempty" db:"url"`
	Error                string         `json:"error,omitempty" db:"error"`
	Metadata             map[string]any `json:"metadata,omitempty" db:"metadata"`
}

// MetadataSourceDeployment is the metadata key linking a rollback record to
// the deployment it was rolled back to.
const MetadataSourceDeployment = "source_deployment_id"

// Deployment triggers.
const (
	TriggerManual   = "manual"
	TriggerRedeploy = "redeploy"
	TriggerRollback = "rollback"
)

// Terminal reports whether status permits no further automatic transition.
func Terminal(status string) bool {
	switch status {
	case StatusSuccess, StatusFailed, StatusCancelled:
		return true
	}
	return false
}
