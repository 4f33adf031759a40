package request

// Deploy starts a single-service deployment.
type Deploy struct {
	Environment  string `json:"environment"`
	WaitForReady bool   `json:"wait_for_ready"`
}

// BulkDeploy starts a dependency-ordered project rollout.
type BulkDeploy struct {
	Environment string `json:"environment"`
}

// Rollback replays a prior deployment.
type Rollback struct {
	TargetDeploymentID string `json:"target_deployment_id" validate:"required"`
}

// SetVariables upserts service environment variables.
type SetVariables struct {
	Variables map[string]string `json:"variables" validate:"required,min=1"`
}
