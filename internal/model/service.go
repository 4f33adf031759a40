package model

import (
	"time"
)

// Service is a deployable unit within a project: one Railway service such as
// a database, an API, or a front end.
type Service struct {
	ID                string            `json:"id" db:"id"`
	ProjectID         string            `json:"project_id" db:"project_id"`
	WorkspaceID       string            `json:"workspace_id" db:"workspace_id"`
	PlatformServiceID string            `json:"platform_service_id,omitempty" db:"platform_service_id"`
	Name              string            `json:"name" db:"name"`
	Kind              string            `json:"kind" db:"kind"`
	Status            string            `json:"status" db:"status"`
	DeployOrder       int               `json:"deploy_order" db:"deploy_order"`
	Config            map[string]string `json:"config,omitempty" db:"config"`
	Domain            string            `json:"domain,omitempty" db:"domain"`
	CustomDomain      string            `json:"custom_domain,omitempty" db:"custom_domain"`
	CreatedAt         time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at" db:"updated_at"`
}

// Service kinds.
const (
	KindWeb      = "web"
	KindAPI      = "api"
	KindWorker   = "worker"
	KindDatabase = "database"
	KindCache    = "cache"
	KindCron     = "cron"
)

// ValidKind reports whether kind is one of the known service kinds.
func ValidKind(kind string) bool {
	switch kind {
	case KindWeb, KindAPI, KindWorker, KindDatabase, KindCache, KindCron:
		return true
	}
	return false
}
