package deploy

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/raildeploy/internal/model"
	"github.com/edvin/raildeploy/internal/platform"
)

// Bulk rollout outcomes.
const (
	BulkSuccess        = "success"
	BulkFailed         = "failed"
	BulkPartialFailure = "partial_failure"
)

// Policy holds rollout policy knobs.
type Policy struct {
	// CriticalOrderMax is the highest deploy order still considered
	// critical: a failure at or below it halts the rollout. Conventionally
	// databases deploy at order 0 and primary APIs at order 1.
	CriticalOrderMax int
}

// DefaultPolicy matches the conventional database/API critical tier.
var DefaultPolicy = Policy{CriticalOrderMax: 1}

// ServiceResult is one service's outcome within a bulk rollout.
type ServiceResult struct {
	ServiceID       string  `json:"service_id"`
	ServiceName     string  `json:"service_name"`
	DeployOrder     int     `json:"deploy_order"`
	Status          string  `json:"status"`
	DeploymentID    string  `json:"deployment_id,omitempty"`
	URL             string  `json:"url,omitempty"`
	Error           string  `json:"error,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
}

// BulkDeployResult is the structured report of a bulk rollout. Bulk
// operations never fail for partial failure; callers inspect OverallStatus.
type BulkDeployResult struct {
	DeploymentID  string          `json:"deployment_id"`
	ProjectID     string          `json:"project_id"`
	StartedAt     time.Time       `json:"started_at"`
	CompletedAt   time.Time       `json:"completed_at"`
	OverallStatus string          `json:"overall_status"`
	Services      []ServiceResult `json:"services"`
}

// Orchestrator sequences a dependency-ordered multi-service rollout.
type Orchestrator struct {
	logger   zerolog.Logger
	deployer ServiceDeployer
	services ServiceRegistry
	ledger   DeploymentLedger
	audit    AuditSink
	notify   NotificationSink
	policy   Policy
}

func NewOrchestrator(
	logger zerolog.Logger,
	deployer ServiceDeployer,
	services ServiceRegistry,
	ledger DeploymentLedger,
	audit AuditSink,
	notify NotificationSink,
	policy Policy,
) *Orchestrator {
	return &Orchestrator{
		logger:   logger.With().Str("component", "orchestrator").Logger(),
		deployer: deployer,
		services: services,
		ledger:   ledger,
		audit:    audit,
		notify:   notify,
		policy:   policy,
	}
}

// DeployAll deploys every service in the project in ascending deploy-order
// groups. Services within a group deploy concurrently; one sibling's failure
// never cancels the others. A failure in the critical tier halts the rollout
// and marks all not-yet-attempted services cancelled, so a broken data layer
// can never end up with a frontend deployed against it.
func (o *Orchestrator) DeployAll(ctx context.Context, projectID string, opts Options) (*BulkDeployResult, error) {
	services, err := o.services.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("list services for project %s: %w", projectID, err)
	}
	if len(services) == 0 {
		return nil, &NotFoundError{Resource: "project", ID: projectID}
	}

	result := &BulkDeployResult{
		DeploymentID: platform.NewID(),
		ProjectID:    projectID,
		StartedAt:    time.Now().UTC(),
	}

	groups := lo.GroupBy(services, func(s model.Service) int { return s.DeployOrder })
	orders := lo.Keys(groups)
	sort.Ints(orders)

	o.auditLog(ctx, opts, "bulk_deploy.started", "project", projectID, map[string]any{
		"bulk_deployment_id": result.DeploymentID,
		"service_count":      len(services),
	})
	o.logger.Info().
		Str("project_id", projectID).
		Int("service_count", len(services)).
		Int("group_count", len(orders)).
		Msg("bulk deploy started")

	halted := false
	haltReason := ""
	anyFailed := false

	for _, order := range orders {
		group := groups[order]

		if halted {
			for _, svc := range group {
				result.Services = append(result.Services, o.cancelService(ctx, svc, haltReason, opts))
			}
			continue
		}

		// Fan out the whole group and join. Each member finishes on its
		// own; errors are captured per service, never returned, so no
		// sibling is cancelled.
		results := make([]ServiceResult, len(group))
		var g errgroup.Group
		for i := range group {
			i := i
			svc := group[i]
			g.Go(func() error {
				results[i] = o.deployOne(ctx, &svc, order, opts)
				return nil
			})
		}
		_ = g.Wait()
		result.Services = append(result.Services, results...)

		failed := lo.Filter(results, func(r ServiceResult, _ int) bool {
			return r.Status != model.StatusSuccess
		})
		if len(failed) == 0 {
			continue
		}
		anyFailed = true
		if order <= o.policy.CriticalOrderMax {
			halted = true
			haltReason = fmt.Sprintf("critical service %s (deploy order %d) failed", failed[0].ServiceName, order)
			o.logger.Error().
				Str("project_id", projectID).
				Str("service", failed[0].ServiceName).
				Int("deploy_order", order).
				Msg("halting rollout after critical tier failure")
		}
	}

	switch {
	case halted:
		result.OverallStatus = BulkFailed
	case anyFailed:
		result.OverallStatus = BulkPartialFailure
	default:
		result.OverallStatus = BulkSuccess
	}
	result.CompletedAt = time.Now().UTC()

	successes := lo.CountBy(result.Services, func(r ServiceResult) bool { return r.Status == model.StatusSuccess })
	failures := lo.CountBy(result.Services, func(r ServiceResult) bool { return r.Status == model.StatusFailed })
	cancelled := lo.CountBy(result.Services, func(r ServiceResult) bool { return r.Status == model.StatusCancelled })

	o.auditLog(ctx, opts, "bulk_deploy.completed", "project", projectID, map[string]any{
		"bulk_deployment_id": result.DeploymentID,
		"status":             result.OverallStatus,
		"success_count":      successes,
		"failure_count":      failures,
		"cancelled_count":    cancelled,
	})
	o.notifyEvent(ctx, opts, "bulk_deploy.completed", map[string]any{
		"project_id": projectID,
		"status":     result.OverallStatus,
	})
	o.logger.Info().
		Str("project_id", projectID).
		Str("status", result.OverallStatus).
		Int("successes", successes).
		Int("failures", failures).
		Int("cancelled", cancelled).
		Msg("bulk deploy completed")

	return result, nil
}

func (o *Orchestrator) deployOne(ctx context.Context, svc *model.Service, order int, opts Options) ServiceResult {
	sr := ServiceResult{
		ServiceID:   svc.ID,
		ServiceName: svc.Name,
		DeployOrder: order,
	}

	rec, err := o.deployer.Deploy(ctx, svc, opts)
	if err != nil && rec == nil {
		sr.Status = model.StatusFailed
		sr.Error = err.Error()
		return sr
	}

	sr.Status = rec.Status
	sr.DeploymentID = rec.ID
	sr.URL = rec.URL
	sr.Error = rec.Error
	sr.DurationSeconds = rec.DurationSeconds
	return sr
}

// cancelService records a pre-emptive cancelled ledger entry for a service in
// a group that was never attempted because the rollout halted.
func (o *Orchestrator) cancelService(ctx context.Context, svc model.Service, reason string, opts Options) ServiceResult {
	now := time.Now().UTC()
	rec := &model.DeploymentRecord{
		ID:          platform.NewID(),
		ServiceID:   svc.ID,
		Status:      model.StatusCancelled,
		Trigger:     model.TriggerManual,
		ActorID:     opts.ActorID,
		StartedAt:   now,
		CompletedAt: &now,
		Error:       reason,
	}
	if err := o.ledger.Create(ctx, rec); err != nil {
		o.logger.Warn().Err(err).Str("service_id", svc.ID).Msg("failed to record cancelled deployment")
	}

	return ServiceResult{
		ServiceID:    svc.ID,
		ServiceName:  svc.Name,
		DeployOrder:  svc.DeployOrder,
		Status:       model.StatusCancelled,
		DeploymentID: rec.ID,
		Error:        reason,
	}
}

func (o *Orchestrator) auditLog(ctx context.Context, opts Options, action, entityType, entityID string, metadata map[string]any) {
	if o.audit == nil {
		return
	}
	if err := o.audit.Log(ctx, opts.WorkspaceID, opts.ActorID, action, entityType, entityID, metadata); err != nil {
		o.logger.Warn().Err(err).Str("action", action).Msg("audit log failed")
	}
}

func (o *Orchestrator) notifyEvent(ctx context.Context, opts Options, event string, payload map[string]any) {
	if o.notify == nil {
		return
	}
	if err := o.notify.Notify(ctx, opts.WorkspaceID, event, payload); err != nil {
		o.logger.Warn().Err(err).Str("event", event).Msg("notification failed")
	}
}
