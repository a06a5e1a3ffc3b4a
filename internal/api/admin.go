package api

import (
	"net/http"

	"github.com/alphabot-ai/ranked/internal/ratelimit"
	"github.com/alphabot-ai/ranked/internal/social"
	"github.com/alphabot-ai/ranked/internal/store"
)

type ReportsResponse struct {
	Reports []*store.Report `json:"reports"`
}

// ReportContent handles POST /api/reports
func (h *Handler) ReportContent(w http.ResponseWriter, r *http.Request) {
	if !h.checkRateLimit(w, r, ratelimit.ActionReport) {
		return
	}

	var req social.ReportInput
	if !decodeJSON(w, r, &req) {
		return
	}

	report, err := h.social.ReportContent(r.Context(), UserIDFromContext(r.Context()), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

// Repair handles POST /api/admin/repair
func (h *Handler) Repair(w http.ResponseWriter, r *http.Request) {
	if !h.isAdmin(r) {
		writeError(w, http.StatusUnauthorized, "admin authentication required")
		return
	}

	report, err := h.social.CleanupFollowerCounts(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// ListReports handles GET /api/admin/reports?status=
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	if !h.isAdmin(r) {
		writeError(w, http.StatusUnauthorized, "admin authentication required")
		return
	}

	status := store.ReportStatus(r.URL.Query().Get("status"))
	switch status {
	case "", store.ReportPending, store.ReportReviewed, store.ReportResolved, store.ReportDismissed:
	default:
		writeError(w, http.StatusBadRequest, "unknown report status")
		return
	}

	reports, err := h.social.ListReports(r.Context(), status)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ReportsResponse{Reports: reports})
}
