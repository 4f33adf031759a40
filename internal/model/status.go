package model

// Service lifecycle statuses.
const (
	StatusProvisioning = "provisioning"
	StatusActive       = "active"
	StatusDeploying    = "deploying"
	StatusFailed       = "failed"
)

// DeploymentRecord statuses. StatusFailed is shared with the service
// lifecycle above.
const (
	StatusBuilding  = "building"
	StatusSuccess   = "success"
	StatusCancelled = "cancelled"
)
