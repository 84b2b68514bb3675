package handlers

import (
	"log/slog"
	"net/http"

	"fleet-analytics-service/internal/api/dto"
	"fleet-analytics-service/internal/services"
)

const maxPerVehicleLimit = 100

// OptimizerHandler exposes route optimization runs and their advisory summary.
type OptimizerHandler struct {
	Optimizer *services.RouteOptimizer
	Logger    *slog.Logger
}

func (h *OptimizerHandler) Summary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.Optimizer.GetOptimizationSummary(r.Context()))
}

// Run performs one optimization pass. Unsuccessful runs are still 200 responses;
// the result carries success=false and the reason.
func (h *OptimizerHandler) Run(w http.ResponseWriter, r *http.Request) {
	var req dto.RunRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}
	if req.MaxPerVehicle < 0 || req.MaxPerVehicle > maxPerVehicleLimit {
		writeError(w, r, http.StatusBadRequest, "max_per_vehicle must be between 1 and 100")
		return
	}

	writeJSON(w, r, http.StatusOK, h.Optimizer.OptimizeRoutes(r.Context(), req.MaxPerVehicle))
}

func (h *OptimizerHandler) Suggest(w http.ResponseWriter, r *http.Request) {
	var req dto.SuggestRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}

	s, err := h.Optimizer.SuggestRoute(r.Context(), req.StoreIDs)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "store_ids must contain at least one store")
		return
	}
	writeJSON(w, r, http.StatusOK, s)
}
