package handler

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/edvin/raildeploy/internal/deploy"
	"github.com/edvin/raildeploy/internal/model"
	"github.com/edvin/raildeploy/internal/railcli"
)

// memRegistry is an in-memory ServiceRegistry for handler tests.
type memRegistry struct {
	services map[string]*model.Service
}

func newMemRegistry(services ...*model.Service) *memRegistry {
	r := &memRegistry{services: map[string]*model.Service{}}
	for _, svc := range services {
		r.services[svc.ID] = svc
	}
	return r
}

func (r *memRegistry) GetByID(ctx context.Context, id string) (*model.Service, error) {
	return r.services[id], nil
}

func (r *memRegistry) ListByProject(ctx context.Context, projectID string) ([]model.Service, error) {
	var out []model.Service
	for _, svc := range r.services {
		if svc.ProjectID == projectID {
			out = append(out, *svc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memRegistry) Create(ctx context.Context, svc *model.Service) error {
	r.services[svc.ID] = svc
	return nil
}

func (r *memRegistry) Save(ctx context.Context, svc *model.Service) error {
	r.services[svc.ID] = svc
	return nil
}

// memLedger is an in-memory DeploymentLedger.
type memLedger struct {
	records map[string]*model.DeploymentRecord
}

func newMemLedger(records ...*model.DeploymentRecord) *memLedger {
	l := &memLedger{records: map[string]*model.DeploymentRecord{}}
	for _, rec := range records {
		l.records[rec.ID] = rec
	}
	return l
}

func (l *memLedger) Create(ctx context.Context, rec *model.DeploymentRecord) error {
	l.records[rec.ID] = rec
	return nil
}

func (l *memLedger) GetByID(ctx context.Context, id string) (*model.DeploymentRecord, error) {
	return l.records[id], nil
}

func (l *memLedger) Save(ctx context.Context, rec *model.DeploymentRecord) error {
	l.records[rec.ID] = rec
	return nil
}

func (l *memLedger) ListByService(ctx context.Context, serviceID string, limit int) ([]model.DeploymentRecord, error) {
	var out []model.DeploymentRecord
	for _, rec := range l.records {
		if rec.ServiceID == serviceID {
			out = append(out, *rec)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartedAt.After(out[j].StartedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// cannedRunner returns the same result for every CLI invocation.
type cannedRunner struct {
	res *railcli.Result
	err error
}

func (r *cannedRunner) Execute(ctx context.Context, req railcli.Request) (*railcli.Result, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.res, nil
}

type nopAudit struct{}

func (nopAudit) Log(ctx context.Context, workspaceID, actorID, action, entityType, entityID string, metadata map[string]any) error {
	return nil
}

type nopNotify struct{}

func (nopNotify) Notify(ctx context.Context, workspaceID, event string, payload map[string]any) error {
	return nil
}

func newTestDeployer(registry *memRegistry, ledger *memLedger, runner railcli.Runner) *deploy.SingleServiceDeployer {
	return deploy.NewSingleServiceDeployer(zerolog.Nop(), runner, registry, ledger, nil, nopAudit{}, nopNotify{}, nil)
}
