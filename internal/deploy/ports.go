package deploy

import (
	"context"
	"time"

	"github.com/edvin/raildeploy/internal/model"
)

// ServiceRegistry persists Service entities. Lookups return (nil, nil) when
// the entity does not exist.
type ServiceRegistry interface {
	GetByID(ctx context.Context, id string) (*model.Service, error)
	ListByProject(ctx context.Context, projectID string) ([]model.Service, error)
	Create(ctx context.Context, svc *model.Service) error
	Save(ctx context.Context, svc *model.Service) error
}

// DeploymentLedger persists DeploymentRecord entities. Lookups return
// (nil, nil) when the entity does not exist.
type DeploymentLedger interface {
	Create(ctx context.Context, rec *model.DeploymentRecord) error
	GetByID(ctx context.Context, id string) (*model.DeploymentRecord, error)
	Save(ctx context.Context, rec *model.DeploymentRecord) error
	ListByService(ctx context.Context, serviceID string, limit int) ([]model.DeploymentRecord, error)
}

// Domain is a platform-managed domain attached to a service.
type Domain struct {
	ID        string `json:"id"`
	ServiceID string `json:"service_id"`
	Name      string `json:"name"`
}

// PlatformAPIClient covers the remote API operations the CLI cannot perform.
// Implementations surface failures as *UpstreamError, except a recognizable
// "already exists" condition which maps to *ConflictError.
type PlatformAPIClient interface {
	RedeployDeployment(ctx context.Context, platformDeploymentID string) error
	ListDomains(ctx context.Context, platformServiceID string) ([]Domain, error)
	CreateDomain(ctx context.Context, platformServiceID string) (*Domain, error)
	DeleteDomain(ctx context.Context, domainID string) error
	UpsertVariables(ctx context.Context, platformServiceID string, vars map[string]string) error
}

// AuditSink records operational events. Calls are fire-and-forget: a sink
// failure is logged by the caller and never fails the primary operation.
type AuditSink interface {
	Log(ctx context.Context, workspaceID, actorID, action, entityType, entityID string, metadata map[string]any) error
}

// NotificationSink delivers best-effort user-facing events under the same
// failure-isolation rule as AuditSink.
type NotificationSink interface {
	Notify(ctx context.Context, workspaceID, event string, payload map[string]any) error
}

// ReadinessWaiter blocks until a provisioned service reports active.
type ReadinessWaiter interface {
	WaitUntilReady(ctx context.Context, token, platformServiceID string, timeout time.Duration) error
}

// ServiceDeployer performs one service's deployment. Satisfied by
// SingleServiceDeployer; the orchestrator depends on this narrow view.
type ServiceDeployer interface {
	Deploy(ctx context.Context, svc *model.Service, opts Options) (*model.DeploymentRecord, error)
}
