package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/raildeploy/internal/api/request"
	"github.com/edvin/raildeploy/internal/api/response"
	"github.com/edvin/raildeploy/internal/deploy"
)

type Variables struct {
	services *Service
	deployer *deploy.SingleServiceDeployer
	token    string
}

func NewVariables(registry deploy.ServiceRegistry, deployer *deploy.SingleServiceDeployer, token string) *Variables {
	return &Variables{
		services: NewService(registry),
		deployer: deployer,
		token:    token,
	}
}

func (h *Variables) List(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.services.lookup(w, r)
	if !ok {
		return
	}

	opts := deploy.Options{Token: h.token, ActorID: actorID(r), WorkspaceID: svc.WorkspaceID}
	vars, err := h.deployer.ListVariables(r.Context(), svc, opts)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if vars == nil {
		vars = []deploy.VariableInfo{}
	}
	response.WriteJSON(w, http.StatusOK, vars)
}

func (h *Variables) Set(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.services.lookup(w, r)
	if !ok {
		return
	}

	var req request.SetVariables
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := deploy.Options{Token: h.token, ActorID: actorID(r), WorkspaceID: svc.WorkspaceID}
	if err := h.deployer.SetVariables(r.Context(), svc, req.Variables, opts); err != nil {
		writeDomainError(w, err)
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]int{"updated": len(req.Variables)})
}

func (h *Variables) Delete(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.services.lookup(w, r)
	if !ok {
		return
	}

	name, err := request.RequireID(chi.URLParam(r, "name"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	opts := deploy.Options{Token: h.token, ActorID: actorID(r), WorkspaceID: svc.WorkspaceID}
	if err := h.deployer.DeleteVariable(r.Context(), svc, name, opts); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
