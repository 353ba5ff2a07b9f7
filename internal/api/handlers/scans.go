// scans.go — /api/v1/scans: агрегаты по результатам сканирования.
package handlers

import (
	"net/http"

	"github.com/bigkaa/goartstore/scan-module/internal/api/middleware"
)

type scanStatsResponse struct {
	Total    int64 `json:"total"`
	Clean    int64 `json:"clean"`
	Infected int64 `json:"infected"`
}

type infectedResponse struct {
	FileIDs []string `json:"fileIds"`
}

// ScanStats — GET /api/v1/scans/stats.
func (h *APIHandler) ScanStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.catalog.Stats(r.Context(), middleware.SubjectFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err, "stats")
		return
	}
	writeJSON(w, http.StatusOK, scanStatsResponse{
		Total:    stats.Total,
		Clean:    stats.Clean,
		Infected: stats.Infected,
	})
}

// InfectedFiles — GET /api/v1/scans/infected.
func (h *APIHandler) InfectedFiles(w http.ResponseWriter, r *http.Request) {
	ids, err := h.catalog.InfectedFileIDs(r.Context(), middleware.SubjectFromContext(r.Context()))
	if err != nil {
		h.writeServiceError(w, r, err, "infected")
		return
	}
	writeJSON(w, http.StatusOK, infectedResponse{FileIDs: ids})
}
