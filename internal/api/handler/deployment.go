package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/raildeploy/internal/api/request"
	"github.com/edvin/raildeploy/internal/api/response"
	"github.com/edvin/raildeploy/internal/deploy"
	"github.com/edvin/raildeploy/internal/model"
)

type Deployment struct {
	registry deploy.ServiceRegistry
	deployer *deploy.SingleServiceDeployer
	orch     *deploy.Orchestrator
	services *Service
	token    string
}

func NewDeployment(registry deploy.ServiceRegistry, deployer *deploy.SingleServiceDeployer, orch *deploy.Orchestrator, token string) *Deployment {
	return &Deployment{
		registry: registry,
		deployer: deployer,
		orch:     orch,
		services: NewService(registry),
		token:    token,
	}
}

func (h *Deployment) options(r *http.Request, svc *model.Service, environment string, waitForReady bool) deploy.Options {
	opts := deploy.Options{
		Token:        h.token,
		Environment:  environment,
		ActorID:      actorID(r),
		WaitForReady: waitForReady,
	}
	if svc != nil {
		opts.WorkspaceID = svc.WorkspaceID
	}
	return opts
}

func (h *Deployment) Deploy(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.services.lookup(w, r)
	if !ok {
		return
	}

	var req request.Deploy
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.deployer.Deploy(r.Context(), svc, h.options(r, svc, req.Environment, req.WaitForReady))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if rec.Status == model.StatusFailed {
		// The record is already persisted; the response still signals the
		// upstream failure.
		writeDomainError(w, &deploy.UpstreamError{Op: "deploy", Detail: rec.Error})
		return
	}
	response.WriteJSON(w, http.StatusOK, rec)
}

func (h *Deployment) Redeploy(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.services.lookup(w, r)
	if !ok {
		return
	}

	var req request.Deploy
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.deployer.Redeploy(r.Context(), svc, h.options(r, svc, req.Environment, req.WaitForReady))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if rec.Status == model.StatusFailed {
		writeDomainError(w, &deploy.UpstreamError{Op: "redeploy", Detail: rec.Error})
		return
	}
	response.WriteJSON(w, http.StatusOK, rec)
}

func (h *Deployment) Restart(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.services.lookup(w, r)
	if !ok {
		return
	}

	if err := h.deployer.Restart(r.Context(), svc, h.options(r, svc, "", false)); err != nil {
		writeDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"status": "restarted"})
}

func (h *Deployment) Rollback(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.services.lookup(w, r)
	if !ok {
		return
	}

	var req request.Rollback
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.deployer.Rollback(r.Context(), svc, req.TargetDeploymentID, h.options(r, svc, "", false))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, rec)
}

func (h *Deployment) History(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.services.lookup(w, r)
	if !ok {
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			response.WriteError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	records, err := h.deployer.History(r.Context(), svc, limit)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if records == nil {
		records = []model.DeploymentRecord{}
	}
	response.WriteJSON(w, http.StatusOK, records)
}

func (h *Deployment) BulkDeploy(w http.ResponseWriter, r *http.Request) {
	projectID, err := request.RequireID(chi.URLParam(r, "projectID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req request.BulkDeploy
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.orch.DeployAll(r.Context(), projectID, h.options(r, nil, req.Environment, false))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, res)
}
