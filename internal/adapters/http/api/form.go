package api

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

// FormDependencies defines the form lookup operation.
type FormDependencies interface {
	Form(ctx context.Context, role, player string) (FormEntry, error)
}

// FormHandler handles player form requests.
type FormHandler struct {
	deps FormDependencies
}

// NewFormHandler creates a new form handler.
func NewFormHandler(deps FormDependencies) *FormHandler {
	return &FormHandler{deps: deps}
}

// HandleGetForm handles GET /api/form/{player}?role=batsman|bowler.
func (h *FormHandler) HandleGetForm(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_form"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	player, err := url.PathUnescape(strings.TrimPrefix(r.URL.EscapedPath(), "/api/form/"))
	if err != nil || strings.TrimSpace(player) == "" || strings.Contains(player, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrMissingPlayer))
		return
	}
	entry, err := h.deps.Form(r.Context(), r.URL.Query().Get("role"), player)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}
