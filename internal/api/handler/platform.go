package handler

import (
	"net/http"

	"github.com/edvin/raildeploy/internal/api/response"
	"github.com/edvin/raildeploy/internal/railcli"
)

type Platform struct {
	runner railcli.Runner
	token  string
}

func NewPlatform(runner railcli.Runner, token string) *Platform {
	return &Platform{runner: runner, token: token}
}

// Health reports CLI connectivity and the authenticated account. Degraded
// connectivity is still a 200; the body carries the detail.
func (h *Platform) Health(w http.ResponseWriter, r *http.Request) {
	status := railcli.CheckHealth(r.Context(), h.runner, h.token)
	response.WriteJSON(w, http.StatusOK, status)
}
