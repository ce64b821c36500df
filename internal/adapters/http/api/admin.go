package api

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/apas/internal/domain/model"
	"github.com/okian/apas/internal/domain/roster"
)

// AdminDependencies covers the reviewer roster.
type AdminDependencies interface {
	Athletes(ctx context.Context, f roster.Filter) ([]model.Athlete, error)
	Athlete(ctx context.Context, id string) (model.Athlete, error)
	Summary(ctx context.Context) (roster.Summary, error)
	SetStatus(ctx context.Context, id string, status model.ValidationStatus) (model.Athlete, error)
}

// AdminHandler handles roster review and exports.
type AdminHandler struct {
	deps AdminDependencies
	now  func() time.Time
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps AdminDependencies, now func() time.Time) *AdminHandler {
	return &AdminHandler{deps: deps, now: now}
}

type athleteList struct {
	Athletes []model.Athlete `json:"athletes"`
	Total    int             `json:"total"`
}

func filterFrom(r *http.Request) roster.Filter {
	q := r.URL.Query()
	return roster.Filter{
		Search: q.Get("search"),
		Sport:  q.Get("sport"),
		State:  q.Get("state"),
		Status: q.Get("status"),
	}
}

// HandleListAthletes handles GET /api/v1/admin/athletes?search&sport&state&status.
func (h *AdminHandler) HandleListAthletes(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_athletes"
	list, err := h.deps.Athletes(r.Context(), filterFrom(r))
	if err != nil {
		writeFailure(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, athleteList{Athletes: list, Total: len(list)})
}

// HandleGetAthlete handles GET /api/v1/admin/athletes/{id}.
func (h *AdminHandler) HandleGetAthlete(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_athlete"
	a, err := h.deps.Athlete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// HandleSummary handles GET /api/v1/admin/stats.
func (h *AdminHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	const op = "api.roster_summary"
	sum, err := h.deps.Summary(r.Context())
	if err != nil {
		writeFailure(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleExportCSV handles GET /api/v1/admin/athletes/export.csv. The roster
// filters apply to the export as well.
func (h *AdminHandler) HandleExportCSV(w http.ResponseWriter, r *http.Request) {
	const op = "api.export_csv"
	list, err := h.deps.Athletes(r.Context(), filterFrom(r))
	if err != nil {
		writeFailure(r.Context(), w, op, err)
		return
	}
	var buf bytes.Buffer
	if err := roster.WriteCSV(&buf, list); err != nil {
		writeFailure(r.Context(), w, op, err)
		return
	}
	attachment(w, "text/csv; charset=utf-8", roster.CSVFilename(h.now()), buf.Bytes())
}

// HandleReport handles GET /api/v1/admin/athletes/{id}/report.txt.
func (h *AdminHandler) HandleReport(w http.ResponseWriter, r *http.Request) {
	const op = "api.athlete_report"
	a, err := h.deps.Athlete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeFailure(r.Context(), w, op, err)
		return
	}
	var buf bytes.Buffer
	if err := roster.WriteReport(&buf, a); err != nil {
		writeFailure(r.Context(), w, op, err)
		return
	}
	attachment(w, "text/plain; charset=utf-8", roster.ReportFilename(a), buf.Bytes())
}

type statusRequest struct {
	Status model.ValidationStatus `json:"status"`
}

// HandleSetStatus handles PATCH /api/v1/admin/athletes/{id}/status.
func (h *AdminHandler) HandleSetStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_status"
	var req statusRequest
	if err := decodeJSON(w, r, op, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}
	a, err := h.deps.SetStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeFailure(r.Context(), w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

func attachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
