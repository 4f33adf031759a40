package handler

import (
	"errors"
	"net/http"

	"github.com/edvin/raildeploy/internal/api/response"
	"github.com/edvin/raildeploy/internal/deploy"
	"github.com/edvin/raildeploy/internal/railcli"
)

// writeDomainError maps the error taxonomy to HTTP status codes.
func writeDomainError(w http.ResponseWriter, err error) {
	var notFound *deploy.NotFoundError
	var conflict *deploy.ConflictError
	var upstream *deploy.UpstreamError
	var forbidden *railcli.ForbiddenOperationError
	var readiness *railcli.ReadinessTimeoutError

	switch {
	case errors.As(err, &notFound):
		response.WriteError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &conflict):
		response.WriteError(w, http.StatusConflict, err.Error())
	case errors.As(err, &upstream):
		response.WriteError(w, http.StatusBadGateway, err.Error())
	case errors.As(err, &forbidden):
		response.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &readiness):
		response.WriteError(w, http.StatusGatewayTimeout, err.Error())
	default:
		response.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}

// actorID identifies the caller for audit purposes.
func actorID(r *http.Request) string {
	return r.Header.Get("X-Actor-Id")
}
