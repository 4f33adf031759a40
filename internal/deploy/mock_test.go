package deploy

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/edvin/raildeploy/internal/model"
	"github.com/edvin/raildeploy/internal/railcli"
)

// mockRegistry implements ServiceRegistry.
type mockRegistry struct {
	mock.Mock
}

func (m *mockRegistry) GetByID(ctx context.Context, id string) (*model.Service, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Service), args.Error(1)
}

func (m *mockRegistry) ListByProject(ctx context.Context, projectID string) ([]model.Service, error) {
	args := m.Called(ctx, projectID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Service), args.Error(1)
}

func (m *mockRegistry) Create(ctx context.Context, svc *model.Service) error {
	args := m.Called(ctx, svc)
	return args.Error(0)
}

func (m *mockRegistry) Save(ctx context.Context, svc *model.Service) error {
	args := m.Called(ctx, svc)
	return args.Error(0)
}

// mockLedger implements DeploymentLedger.
type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) Create(ctx context.Context, rec *model.DeploymentRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *mockLedger) GetByID(ctx context.Context, id string) (*model.DeploymentRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.DeploymentRecord), args.Error(1)
}

func (m *mockLedger) Save(ctx context.Context, rec *model.DeploymentRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *mockLedger) ListByService(ctx context.Context, serviceID string, limit int) ([]model.DeploymentRecord, error) {
	args := m.Called(ctx, serviceID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DeploymentRecord), args.Error(1)
}

// mockAPI implements PlatformAPIClient.
type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) RedeployDeployment(ctx context.Context, platformDeploymentID string) error {
	args := m.Called(ctx, platformDeploymentID)
	return args.Error(0)
}

func (m *mockAPI) ListDomains(ctx context.Context, platformServiceID string) ([]Domain, error) {
	args := m.Called(ctx, platformServiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Domain), args.Error(1)
}

func (m *mockAPI) CreateDomain(ctx context.Context, platformServiceID string) (*Domain, error) {
	args := m.Called(ctx, platformServiceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Domain), args.Error(1)
}

func (m *mockAPI) DeleteDomain(ctx context.Context, domainID string) error {
	args := m.Called(ctx, domainID)
	return args.Error(0)
}

func (m *mockAPI) UpsertVariables(ctx context.Context, platformServiceID string, vars map[string]string) error {
	args := m.Called(ctx, platformServiceID, vars)
	return args.Error(0)
}

// mockAudit implements AuditSink and records every payload it receives so
// tests can assert on what was (and was not) logged.
type mockAudit struct {
	mu      sync.Mutex
	entries []auditEntry
	err     error
}

type auditEntry struct {
	Action   string
	Entity   string
	EntityID string
	Metadata map[string]any
}

func (m *mockAudit) Log(ctx context.Context, workspaceID, actorID, action, entityType, entityID string, metadata map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, auditEntry{Action: action, Entity: entityType, EntityID: entityID, Metadata: metadata})
	return m.err
}

func (m *mockAudit) byAction(action string) []auditEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []auditEntry
	for _, e := range m.entries {
		if e.Action == action {
			out = append(out, e)
		}
	}
	return out
}

// mockNotify implements NotificationSink.
type mockNotify struct {
	mu     sync.Mutex
	events []string
}

func (m *mockNotify) Notify(ctx context.Context, workspaceID, event string, payload map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

// mockWaiter implements ReadinessWaiter.
type mockWaiter struct {
	mock.Mock
}

func (m *mockWaiter) WaitUntilReady(ctx context.Context, token, platformServiceID string, timeout time.Duration) error {
	args := m.Called(ctx, token, platformServiceID, timeout)
	return args.Error(0)
}

// scriptedRunner replays canned CLI results in call order, repeating the last
// one, and keeps every request it saw.
type scriptedRunner struct {
	mu       sync.Mutex
	requests []railcli.Request
	results  []*railcli.Result
	err      error
}

func (r *scriptedRunner) Execute(ctx context.Context, req railcli.Request) (*railcli.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i := len(r.requests)
	r.requests = append(r.requests, req)
	if r.err != nil {
		return nil, r.err
	}
	if i >= len(r.results) {
		i = len(r.results) - 1
	}
	return r.results[i], nil
}

// mockDeployer implements ServiceDeployer for orchestrator tests.
type mockDeployer struct {
	mu sync.Mutex
	// outcomes maps service name to a deploy outcome; services without an
	// entry succeed.
	outcomes map[string]deployOutcome
	deployed []string
}

type deployOutcome struct {
	status string
	errMsg string
	err    error
}

func (m *mockDeployer) Deploy(ctx context.Context, svc *model.Service, opts Options) (*model.DeploymentRecord, error) {
	m.mu.Lock()
	m.deployed = append(m.deployed, svc.Name)
	out, ok := m.outcomes[svc.Name]
	m.mu.Unlock()

	if ok && out.err != nil {
		return nil, out.err
	}

	now := time.Now().UTC()
	rec := &model.DeploymentRecord{
		ID:          "dep-" + svc.Name,
		ServiceID:   svc.ID,
		Status:      model.StatusSuccess,
		Trigger:     model.TriggerManual,
		StartedAt:   now,
		CompletedAt: &now,
	}
	if ok {
		rec.Status = out.status
		rec.Error = out.errMsg
	}
	return rec, nil
}

func (m *mockDeployer) deployedServices() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deployed...)
}
