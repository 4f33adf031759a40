package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/edvin/raildeploy/internal/api/request"
	"github.com/edvin/raildeploy/internal/api/response"
	"github.com/edvin/raildeploy/internal/deploy"
	"github.com/edvin/raildeploy/internal/model"
	"github.com/edvin/raildeploy/internal/platform"
)

type Service struct {
	registry deploy.ServiceRegistry
}

func NewService(registry deploy.ServiceRegistry) *Service {
	return &Service{registry: registry}
}

func (h *Service) Create(w http.ResponseWriter, r *http.Request) {
	var req request.CreateService
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	cfg := req.Config
	if cfg == nil {
		cfg = map[string]string{}
	}

	now := time.Now().UTC()
	svc := &model.Service{
		ID:                platform.NewID(),
		ProjectID:         req.ProjectID,
		WorkspaceID:       req.WorkspaceID,
		PlatformServiceID: req.PlatformServiceID,
		Name:              req.Name,
		Kind:              req.Kind,
		Status:            model.StatusProvisioning,
		DeployOrder:       req.DeployOrder,
		Config:            cfg,
		CustomDomain:      req.CustomDomain,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := h.registry.Create(r.Context(), svc); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}

	response.WriteJSON(w, http.StatusCreated, svc)
}

func (h *Service) Get(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.lookup(w, r)
	if !ok {
		return
	}
	response.WriteJSON(w, http.StatusOK, svc)
}

func (h *Service) ListByProject(w http.ResponseWriter, r *http.Request) {
	projectID, err := request.RequireID(chi.URLParam(r, "projectID"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	services, err := h.registry.ListByProject(r.Context(), projectID)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if services == nil {
		services = []model.Service{}
	}
	response.WriteJSON(w, http.StatusOK, services)
}

func (h *Service) Update(w http.ResponseWriter, r *http.Request) {
	svc, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req request.UpdateService
	if err := request.Decode(r, &req); err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Kind != nil {
		svc.Kind = *req.Kind
	}
	if req.DeployOrder != nil {
		svc.DeployOrder = *req.DeployOrder
	}
	if req.PlatformServiceID != nil {
		svc.PlatformServiceID = *req.PlatformServiceID
	}
	if req.Config != nil {
		svc.Config = *req.Config
	}
	if req.CustomDomain != nil {
		svc.CustomDomain = *req.CustomDomain
	}

	if err := h.registry.Save(r.Context(), svc); err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	response.WriteJSON(w, http.StatusOK, svc)
}

func (h *Service) lookup(w http.ResponseWriter, r *http.Request) (*model.Service, bool) {
	id, err := request.RequireID(chi.URLParam(r, "id"))
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	svc, err := h.registry.GetByID(r.Context(), id)
	if err != nil {
		response.WriteError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if svc == nil {
		writeDomainError(w, &deploy.NotFoundError{Resource: "service", ID: id})
		return nil, false
	}
	return svc, true
}
