package deploy

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/edvin/raildeploy/internal/model"
)

func projectServices() []model.Service {
	return []model.Service{
		{ID: "svc-db", ProjectID: "proj-1", Name: "postgres", Kind: model.KindDatabase, DeployOrder: 0},
		{ID: "svc-api", ProjectID: "proj-1", Name: "api", Kind: model.KindAPI, DeployOrder: 1},
		{ID: "svc-worker", ProjectID: "proj-1", Name: "worker", Kind: model.KindWorker, DeployOrder: 2},
		{ID: "svc-web", ProjectID: "proj-1", Name: "web", Kind: model.KindWeb, DeployOrder: 2},
	}
}

type orchestratorFixture struct {
	orch     *Orchestrator
	deployer *mockDeployer
	registry *mockRegistry
	ledger   *mockLedger
	audit    *mockAudit
	notify   *mockNotify
}

func newOrchestratorFixture(outcomes map[string]deployOutcome) *orchestratorFixture {
	f := &orchestratorFixture{
		deployer: &mockDeployer{outcomes: outcomes},
		registry: &mockRegistry{},
		ledger:   &mockLedger{},
		audit:    &mockAudit{},
		notify:   &mockNotify{},
	}
	f.orch = NewOrchestrator(zerolog.Nop(), f.deployer, f.registry, f.ledger, f.audit, f.notify, DefaultPolicy)
	return f
}

func resultFor(t *testing.T, res *BulkDeployResult, serviceID string) ServiceResult {
	t.Helper()
	for _, sr := range res.Services {
		if sr.ServiceID == serviceID {
			return sr
		}
	}
	t.Fatalf("no result for service %s", serviceID)
	return ServiceResult{}
}

func TestDeployAllHappyPath(t *testing.T) {
	f := newOrchestratorFixture(nil)
	f.registry.On("ListByProject", mock.Anything, "proj-1").Return(projectServices(), nil)

	res, err := f.orch.DeployAll(context.Background(), "proj-1", Options{Token: "tok", ActorID: "user-1"})
	require.NoError(t, err)

	assert.Equal(t, BulkSuccess, res.OverallStatus)
	assert.Equal(t, "proj-1", res.ProjectID)
	assert.NotEmpty(t, res.DeploymentID)
	require.Len(t, res.Services, 4)
	for _, sr := range res.Services {
		assert.Equal(t, model.StatusSuccess, sr.Status, sr.ServiceName)
	}

	// Lower orders must finish before higher orders start.
	deployed := f.deployer.deployedServices()
	require.Len(t, deployed, 4)
	assert.Equal(t, "postgres", deployed[0])
	assert.Equal(t, "api", deployed[1])
	assert.ElementsMatch(t, []string{"worker", "web"}, deployed[2:])

	started := f.audit.byAction("bulk_deploy.started")
	require.Len(t, started, 1)
	assert.Equal(t, 4, started[0].Metadata["service_count"])

	completed := f.audit.byAction("bulk_deploy.completed")
	require.Len(t, completed, 1)
	assert.Equal(t, BulkSuccess, completed[0].Metadata["status"])
	assert.Equal(t, 4, completed[0].Metadata["success_count"])
}

func TestDeployAllHaltsOnCriticalFailure(t *testing.T) {
	f := newOrchestratorFixture(map[string]deployOutcome{
		"postgres": {status: model.StatusFailed, errMsg: "volume attach failed"},
	})
	f.registry.On("ListByProject", mock.Anything, "proj-1").Return(projectServices(), nil)

	var cancelled []*model.DeploymentRecord
	f.ledger.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		cancelled = append(cancelled, args.Get(1).(*model.DeploymentRecord))
	}).Return(nil)

	res, err := f.orch.DeployAll(context.Background(), "proj-1", Options{Token: "tok"})
	require.NoError(t, err, "a halted rollout is a result, not an error")

	assert.Equal(t, BulkFailed, res.OverallStatus)
	require.Len(t, res.Services, 4)

	db := resultFor(t, res, "svc-db")
	assert.Equal(t, model.StatusFailed, db.Status)
	assert.Equal(t, "volume attach failed", db.Error)

	for _, id := range []string{"svc-api", "svc-worker", "svc-web"} {
		sr := resultFor(t, res, id)
		assert.Equal(t, model.StatusCancelled, sr.Status, id)
		assert.Contains(t, sr.Error, "postgres")
		assert.Contains(t, sr.Error, "deploy order 0")
	}

	// Only the failed database was ever attempted.
	assert.Equal(t, []string{"postgres"}, f.deployer.deployedServices())

	// Every skipped service gets a cancelled ledger record.
	require.Len(t, cancelled, 3)
	for _, rec := range cancelled {
		assert.Equal(t, model.StatusCancelled, rec.Status)
		assert.NotNil(t, rec.CompletedAt)
	}

	completed := f.audit.byAction("bulk_deploy.completed")
	require.Len(t, completed, 1)
	assert.Equal(t, 3, completed[0].Metadata["cancelled_count"])
}

func TestDeployAllHaltsOnAPITierFailure(t *testing.T) {
	f := newOrchestratorFixture(map[string]deployOutcome{
		"api": {status: model.StatusFailed, errMsg: "build failed"},
	})
	f.registry.On("ListByProject", mock.Anything, "proj-1").Return(projectServices(), nil)
	f.ledger.On("Create", mock.Anything, mock.Anything).Return(nil)

	res, err := f.orch.DeployAll(context.Background(), "proj-1", Options{Token: "tok"})
	require.NoError(t, err)

	assert.Equal(t, BulkFailed, res.OverallStatus)
	assert.Equal(t, model.StatusSuccess, resultFor(t, res, "svc-db").Status)
	assert.Equal(t, model.StatusFailed, resultFor(t, res, "svc-api").Status)
	assert.Equal(t, model.StatusCancelled, resultFor(t, res, "svc-worker").Status)
	assert.Equal(t, model.StatusCancelled, resultFor(t, res, "svc-web").Status)
}

func TestDeployAllPartialFailureAboveCriticalTier(t *testing.T) {
	f := newOrchestratorFixture(map[string]deployOutcome{
		"worker": {status: model.StatusFailed, errMsg: "healthcheck failed"},
	})
	f.registry.On("ListByProject", mock.Anything, "proj-1").Return(projectServices(), nil)

	res, err := f.orch.DeployAll(context.Background(), "proj-1", Options{Token: "tok"})
	require.NoError(t, err)

	assert.Equal(t, BulkPartialFailure, res.OverallStatus)
	assert.Equal(t, model.StatusFailed, resultFor(t, res, "svc-worker").Status)
	assert.Equal(t, model.StatusSuccess, resultFor(t, res, "svc-web").Status, "siblings are never cancelled")

	// All four were attempted; nothing was skipped.
	assert.Len(t, f.deployer.deployedServices(), 4)
	f.ledger.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestDeployAllDeployerErrorCountsAsFailure(t *testing.T) {
	f := newOrchestratorFixture(map[string]deployOutcome{
		"web": {err: &NotFoundError{Resource: "service", ID: "svc-web"}},
	})
	f.registry.On("ListByProject", mock.Anything, "proj-1").Return(projectServices(), nil)

	res, err := f.orch.DeployAll(context.Background(), "proj-1", Options{Token: "tok"})
	require.NoError(t, err)

	assert.Equal(t, BulkPartialFailure, res.OverallStatus)
	web := resultFor(t, res, "svc-web")
	assert.Equal(t, model.StatusFailed, web.Status)
	assert.Contains(t, web.Error, "svc-web")
}

func TestDeployAllCustomCriticalTier(t *testing.T) {
	f := newOrchestratorFixture(map[string]deployOutcome{
		"worker": {status: model.StatusFailed, errMsg: "healthcheck failed"},
	})
	f.orch = NewOrchestrator(zerolog.Nop(), f.deployer, f.registry, f.ledger, f.audit, f.notify, Policy{CriticalOrderMax: 2})
	f.registry.On("ListByProject", mock.Anything, "proj-1").Return(projectServices(), nil)
	f.ledger.On("Create", mock.Anything, mock.Anything).Return(nil)

	res, err := f.orch.DeployAll(context.Background(), "proj-1", Options{Token: "tok"})
	require.NoError(t, err)

	// With the tier raised to 2 the worker failure halts the rollout, but
	// its order-2 sibling already ran.
	assert.Equal(t, BulkFailed, res.OverallStatus)
	assert.Equal(t, model.StatusSuccess, resultFor(t, res, "svc-web").Status)
}

func TestDeployAllUnknownProject(t *testing.T) {
	f := newOrchestratorFixture(nil)
	f.registry.On("ListByProject", mock.Anything, "proj-missing").Return([]model.Service{}, nil)

	_, err := f.orch.DeployAll(context.Background(), "proj-missing", Options{Token: "tok"})
	var notFound *NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "project", notFound.Resource)
}
