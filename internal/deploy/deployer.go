package deploy

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/edvin/raildeploy/internal/model"
	"github.com/edvin/raildeploy/internal/platform"
	"github.com/edvin/raildeploy/internal/railcli"
)

var deploymentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "raildeploy_deployments_total",
	Help: "Total deployment attempts by trigger and terminal status",
}, []string{"trigger", "status"})

// Options carries per-operation parameters shared by all deployer entry
// points. Token is the decrypted platform credential; it is passed through to
// the executor and never stored.
type Options struct {
	Token       string
	Environment string
	ActorID     string
	WorkspaceID string
	// Timeout overrides the executor's class default when positive.
	Timeout time.Duration
	// WaitForReady blocks after a successful deploy until the service
	// reports active.
	WaitForReady bool
	// ReadyTimeout bounds the readiness wait; zero means the poller default.
	ReadyTimeout time.Duration
	OnOutput     func(stream, line string)
}

// SingleServiceDeployer deploys, redeploys, restarts, and rolls back one
// service, owning its ledger record transitions.
type SingleServiceDeployer struct {
	logger   zerolog.Logger
	runner   railcli.Runner
	services ServiceRegistry
	ledger   DeploymentLedger
	api      PlatformAPIClient
	audit    AuditSink
	notify   NotificationSink
	waiter   ReadinessWaiter
}

func NewSingleServiceDeployer(
	logger zerolog.Logger,
	runner railcli.Runner,
	services ServiceRegistry,
	ledger DeploymentLedger,
	api PlatformAPIClient,
	audit AuditSink,
	notify NotificationSink,
	waiter ReadinessWaiter,
) *SingleServiceDeployer {
	return &SingleServiceDeployer{
		logger:   logger.With().Str("component", "deployer").Logger(),
		runner:   runner,
		services: services,
		ledger:   ledger,
		api:      api,
		audit:    audit,
		notify:   notify,
		waiter:   waiter,
	}
}

// Deploy pushes the service's current source to the platform.
func (d *SingleServiceDeployer) Deploy(ctx context.Context, svc *model.Service, opts Options) (*model.DeploymentRecord, error) {
	return d.run(ctx, svc, "up", model.TriggerManual, opts)
}

// Redeploy re-runs the service's latest build.
func (d *SingleServiceDeployer) Redeploy(ctx context.Context, svc *model.Service, opts Options) (*model.DeploymentRecord, error) {
	return d.run(ctx, svc, "redeploy", model.TriggerRedeploy, opts)
}

func (d *SingleServiceDeployer) run(ctx context.Context, svc *model.Service, verb, trigger string, opts Options) (*model.DeploymentRecord, error) {
	now := time.Now().UTC()
	rec := &model.DeploymentRecord{
		ID:                   platform.NewID(),
		ServiceID:            svc.ID,
		PlatformDeploymentID: platform.NewLocalDeploymentID(),
		Status:               model.StatusBuilding,
		Trigger:              trigger,
		ActorID:              opts.ActorID,
		StartedAt:            now,
	}
	if err := d.ledger.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create deployment record: %w", err)
	}

	svc.Status = model.StatusDeploying
	if err := d.services.Save(ctx, svc); err != nil {
		return nil, fmt.Errorf("mark service %s deploying: %w", svc.ID, err)
	}

	res, execErr := d.runner.Execute(ctx, railcli.Request{
		Command:     verb,
		Token:       opts.Token,
		Service:     d.selector(svc),
		Environment: opts.Environment,
		Timeout:     opts.Timeout,
		OnOutput:    opts.OnOutput,
	})

	completed := time.Now().UTC()
	rec.CompletedAt = &completed

	switch {
	case execErr != nil:
		// Pre-spawn rejection. The attempt still reaches a terminal state.
		rec.Status = model.StatusFailed
		rec.Error = execErr.Error()
		svc.Status = model.StatusFailed
	case res.ExitCode == 0 && !res.TimedOut:
		rec.Status = model.StatusSuccess
		rec.DurationSeconds = res.Duration.Seconds()
		if url := extractDeploymentURL(res.Stdout); url != "" {
			rec.URL = url
			svc.Domain = url
		}
		svc.Status = model.StatusActive
	case res.TimedOut:
		rec.Status = model.StatusFailed
		rec.DurationSeconds = res.Duration.Seconds()
		rec.Error = fmt.Sprintf("deployment timed out after %s", res.Duration.Round(time.Second))
		svc.Status = model.StatusFailed
	default:
		rec.Status = model.StatusFailed
		rec.DurationSeconds = res.Duration.Seconds()
		rec.Error = strings.TrimSpace(res.Stderr)
		if rec.Error == "" {
			rec.Error = fmt.Sprintf("%s exited with code %d", verb, res.ExitCode)
		}
		svc.Status = model.StatusFailed
	}

	if err := d.ledger.Save(ctx, rec); err != nil {
		return rec, fmt.Errorf("finalize deployment record %s: %w", rec.ID, err)
	}
	if err := d.services.Save(ctx, svc); err != nil {
		return rec, fmt.Errorf("save service %s: %w", svc.ID, err)
	}

	deploymentsTotal.WithLabelValues(trigger, rec.Status).Inc()

	if rec.Status == model.StatusSuccess {
		if opts.WaitForReady && d.waiter != nil && svc.PlatformServiceID != "" {
			if err := d.waiter.WaitUntilReady(ctx, opts.Token, svc.PlatformServiceID, opts.ReadyTimeout); err != nil {
				d.logger.Warn().Err(err).Str("service_id", svc.ID).Msg("service deployed but not yet ready")
			}
		}
		d.ensureDomain(ctx, svc)
	}

	d.auditLog(ctx, opts, "service.deployed", "service", svc.ID, map[string]any{
		"service_name":     svc.Name,
		"status":           rec.Status,
		"duration_seconds": rec.DurationSeconds,
	})
	d.notifyEvent(ctx, opts, "deployment.completed", map[string]any{
		"service_id":    svc.ID,
		"service_name":  svc.Name,
		"deployment_id": rec.ID,
		"status":        rec.Status,
	})

	if execErr != nil {
		return rec, execErr
	}
	return rec, nil
}

// Restart restarts the running deployment. It is an operational action, not a
// deployment: no ledger record is created and the service status is left
// alone.
func (d *SingleServiceDeployer) Restart(ctx context.Context, svc *model.Service, opts Options) error {
	res, err := d.runner.Execute(ctx, railcli.Request{
		Command:     "restart",
		Token:       opts.Token,
		Service:     d.selector(svc),
		Environment: opts.Environment,
		Timeout:     opts.Timeout,
	})
	if err != nil {
		return err
	}
	if res.TimedOut {
		return &UpstreamError{Op: "restart", Detail: "restart timed out"}
	}
	if res.ExitCode != 0 {
		detail := strings.TrimSpace(res.Stderr)
		if detail == "" {
			detail = fmt.Sprintf("restart exited with code %d", res.ExitCode)
		}
		return &UpstreamError{Op: "restart", Detail: detail}
	}

	d.auditLog(ctx, opts, "service.restarted", "service", svc.ID, map[string]any{
		"service_name": svc.Name,
	})
	return nil
}

// Rollback replays a prior deployment through the platform API. The target
// record is never mutated; the rollback gets its own ledger record whose
// metadata names the source.
func (d *SingleServiceDeployer) Rollback(ctx context.Context, svc *model.Service, targetDeploymentID string, opts Options) (*model.DeploymentRecord, error) {
	target, err := d.ledger.GetByID(ctx, targetDeploymentID)
	if err != nil {
		return nil, fmt.Errorf("look up deployment %s: %w", targetDeploymentID, err)
	}
	if target == nil {
		return nil, &NotFoundError{Resource: "deployment", ID: targetDeploymentID}
	}
	if target.ServiceID != svc.ID {
		return nil, &ConflictError{Message: fmt.Sprintf("deployment %s does not belong to service %s", targetDeploymentID, svc.ID)}
	}
	if target.PlatformDeploymentID == "" {
		return nil, &ConflictError{Message: fmt.Sprintf("deployment %s has no platform deployment id to replay", targetDeploymentID)}
	}

	if err := d.api.RedeployDeployment(ctx, target.PlatformDeploymentID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	rec := &model.DeploymentRecord{
		ID:                   platform.NewID(),
		ServiceID:            svc.ID,
		PlatformDeploymentID: platform.NewLocalDeploymentID(),
		Status:               model.StatusBuilding,
		Trigger:              model.TriggerRollback,
		ActorID:              opts.ActorID,
		StartedAt:            now,
		Metadata: map[string]any{
			model.MetadataSourceDeployment: target.ID,
		},
	}
	if err := d.ledger.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create rollback record: %w", err)
	}

	svc.Status = model.StatusDeploying
	if err := d.services.Save(ctx, svc); err != nil {
		return rec, fmt.Errorf("mark service %s deploying: %w", svc.ID, err)
	}

	deploymentsTotal.WithLabelValues(model.TriggerRollback, model.StatusBuilding).Inc()

	d.auditLog(ctx, opts, "deployment.rolled_back", "deployment", rec.ID, map[string]any{
		"service_name":         svc.Name,
		"source_deployment_id": target.ID,
	})
	return rec, nil
}

// History returns recent deployment records for a service, newest first.
func (d *SingleServiceDeployer) History(ctx context.Context, svc *model.Service, limit int) ([]model.DeploymentRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	records, err := d.ledger.ListByService(ctx, svc.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("list deployments for service %s: %w", svc.ID, err)
	}
	return records, nil
}

// selector returns the CLI service selector, preferring the platform id once
// the service has been provisioned.
func (d *SingleServiceDeployer) selector(svc *model.Service) string {
	if svc.PlatformServiceID != "" {
		return svc.PlatformServiceID
	}
	return svc.Name
}

// ensureDomain makes sure a web-facing service has a platform domain after a
// successful deploy. Best effort: failures are logged and never change the
// deployment outcome.
func (d *SingleServiceDeployer) ensureDomain(ctx context.Context, svc *model.Service) {
	if d.api == nil || svc.PlatformServiceID == "" {
		return
	}
	if svc.Kind != model.KindWeb && svc.Kind != model.KindAPI {
		return
	}

	domains, err := d.api.ListDomains(ctx, svc.PlatformServiceID)
	if err != nil {
		d.logger.Warn().Err(err).Str("service_id", svc.ID).Msg("domain lookup failed")
		return
	}
	if len(domains) > 0 {
		if svc.Domain == "" {
			svc.Domain = domains[0].Name
		}
		return
	}

	domain, err := d.api.CreateDomain(ctx, svc.PlatformServiceID)
	if err != nil {
		d.logger.Warn().Err(err).Str("service_id", svc.ID).Msg("domain creation failed")
		return
	}
	svc.Domain = domain.Name
	if err := d.services.Save(ctx, svc); err != nil {
		d.logger.Warn().Err(err).Str("service_id", svc.ID).Msg("failed to persist generated domain")
	}
}

func (d *SingleServiceDeployer) auditLog(ctx context.Context, opts Options, action, entityType, entityID string, metadata map[string]any) {
	if d.audit == nil {
		return
	}
	if err := d.audit.Log(ctx, opts.WorkspaceID, opts.ActorID, action, entityType, entityID, metadata); err != nil {
		d.logger.Warn().Err(err).Str("action", action).Msg("audit log failed")
	}
}

func (d *SingleServiceDeployer) notifyEvent(ctx context.Context, opts Options, event string, payload map[string]any) {
	if d.notify == nil {
		return
	}
	if err := d.notify.Notify(ctx, opts.WorkspaceID, event, payload); err != nil {
		d.logger.Warn().Err(err).Str("event", event).Msg("notification failed")
	}
}

var deploymentURLRe = regexp.MustCompile(`https://[a-z0-9][a-z0-9.-]*\.up\.railway\.app\S*`)

// extractDeploymentURL pulls the generated deployment URL from CLI output.
// JSON lines are preferred when the CLI emits them; the text pattern is the
// fallback.
func extractDeploymentURL(stdout string) string {
	for _, line := range strings.Split(stdout, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "{") {
			continue
		}
		var payload struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal([]byte(line), &payload); err == nil && payload.URL != "" {
			return payload.URL
		}
	}
	return deploymentURLRe.FindString(stdout)
}
