package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"fleet-analytics-service/internal/api/dto"
	"fleet-analytics-service/internal/domain"
	"fleet-analytics-service/internal/ports"
	"fleet-analytics-service/internal/services"
)

// ModelHandler serves predictions and manages the delivery-time model.
type ModelHandler struct {
	Predictor *services.Predictor
	Repo      ports.Repository
	Export    ports.DatasetExporter
	Logger    *slog.Logger
	Now       func() time.Time
}

func (h *ModelHandler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func (h *ModelHandler) Predict(w http.ResponseWriter, r *http.Request) {
	var req dto.PredictionRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if len(req.Orders) == 0 {
		writeError(w, r, http.StatusBadRequest, "orders must not be empty")
		return
	}

	records := make([]domain.OrderRecord, len(req.Orders))
	for i, o := range req.Orders {
		records[i] = o.Record()
	}

	out, err := h.Predictor.PredictWithConfidence(records)
	if errors.Is(err, services.ErrNotTrained) {
		writeError(w, r, http.StatusConflict, "model is not trained")
		return
	}
	if err != nil {
		h.Logger.ErrorContext(r.Context(), "predict failed", "err", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}

	res := dto.PredictionResponse{
		Predictions: make([]dto.PredictionItem, len(records)),
		Confidence:  out.Confidence,
	}
	for i := range records {
		res.Predictions[i] = dto.PredictionItem{
			OrderID:    records[i].OrderID,
			Minutes:    out.Predictions[i],
			LowerBound: out.LowerBound[i],
			UpperBound: out.UpperBound[i],
		}
	}
	writeJSON(w, r, http.StatusOK, res)
}

func (h *ModelHandler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]any{
		"model":      h.Predictor.Info(),
		"importance": h.Predictor.FeatureImportance(),
	})
}

func (h *ModelHandler) Train(w http.ResponseWriter, r *http.Request) {
	report, err := services.TrainModel(r.Context(), h.Repo, h.Predictor, services.TrainOptions{
		Now:    h.now(),
		Export: h.Export,
		Logger: h.Logger,
	})
	if errors.Is(err, services.ErrInsufficientData) {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		h.Logger.ErrorContext(r.Context(), "train failed", "err", err)
		writeError(w, r, http.StatusInternalServerError, "training failed")
		return
	}
	writeJSON(w, r, http.StatusOK, report)
}

func (h *ModelHandler) Evaluate(w http.ResponseWriter, r *http.Request) {
	ev, err := services.EvaluateRecent(r.Context(), h.Repo, h.Predictor, services.EvaluateOptions{Now: h.now()})
	switch {
	case errors.Is(err, services.ErrNotTrained):
		writeError(w, r, http.StatusConflict, "model is not trained")
		return
	case errors.Is(err, services.ErrInsufficientData):
		writeError(w, r, http.StatusUnprocessableEntity, "no recent completed deliveries")
		return
	case err != nil:
		h.Logger.ErrorContext(r.Context(), "evaluate failed", "err", err)
		writeError(w, r, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, r, http.StatusOK, ev)
}
