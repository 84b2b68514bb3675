package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"fleet-analytics-service/internal/api/handlers"
	"fleet-analytics-service/internal/ports"
	"fleet-analytics-service/internal/services"
)

type Deps struct {
	Optimizer *services.RouteOptimizer
	Predictor *services.Predictor
	Repo      ports.Repository
	Export    ports.DatasetExporter
	Logger    *slog.Logger
	Now       func() time.Time
}

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// Handlers stay unaware of concrete adapters.
func NewRouter(deps Deps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	opt := &handlers.OptimizerHandler{Optimizer: deps.Optimizer, Logger: logger}
	model := &handlers.ModelHandler{
		Predictor: deps.Predictor,
		Repo:      deps.Repo,
		Export:    deps.Export,
		Logger:    logger,
		Now:       deps.Now,
	}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(loggingMiddleware(logger))

	r.Get("/health", handlers.Health)

	r.Get("/optimizer/summary", opt.Summary)
	r.Post("/optimizer/run", opt.Run)
	r.Post("/optimizer/suggest", opt.Suggest)

	r.Post("/predictions", model.Predict)
	r.Get("/model", model.Info)
	r.Post("/model/train", model.Train)
	r.Get("/model/evaluation", model.Evaluate)

	return r
}
