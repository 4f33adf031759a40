package request

// CreateService registers a service in the local registry.
type CreateService struct {
	ProjectID         string            `json:"project_id" validate:"required"`
	WorkspaceID       string            `json:"workspace_id" validate:"required"`
	Name              string            `json:"name" validate:"required,slug"`
	Kind              string            `json:"kind" validate:"required,oneof=web api worker database cache cron"`
	DeployOrder       int               `json:"deploy_order" validate:"gte=0"`
	PlatformServiceID string            `json:"platform_service_id"`
	Config            map[string]string `json:"config"`
	CustomDomain      string            `json:"custom_domain"`
}

// UpdateService changes mutable service fields. Nil pointers leave a field
// untouched.
type UpdateService struct {
	Kind              *string            `json:"kind" validate:"omitempty,oneof=web api worker database cache cron"`
	DeployOrder       *int               `json:"deploy_order" validate:"omitempty,gte=0"`
	PlatformServiceID *string            `json:"platform_service_id"`
	Config            *map[string]string `json:"config"`
	CustomDomain      *string            `json:"custom_domain"`
}
