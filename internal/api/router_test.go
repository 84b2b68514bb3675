package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fleet-analytics-service/internal/adapters/repositories"
	"fleet-analytics-service/internal/domain"
	"fleet-analytics-service/internal/platform/db"
	"fleet-analytics-service/internal/services"
)

var fixedNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

type testServer struct {
	handler   http.Handler
	predictor *services.Predictor
}

func newTestServer(t *testing.T, seed repositories.Seed) *testServer {
	t.Helper()
	conn, err := db.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := repositories.InitSchema(conn); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	if err := repositories.InsertSeed(context.Background(), conn, repositories.DialectQuestion, seed, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := repositories.NewSqlRepository(conn, repositories.DialectQuestion)

	cfg := services.DefaultPredictorConfig()
	cfg.EnableRegression = false
	p := services.NewPredictor(cfg, nil, logger)

	opt := services.NewRouteOptimizer(repo, services.DefaultOptimizerConfig(),
		services.WithLogger(logger),
		services.WithClock(func() time.Time { return fixedNow }),
	)

	return &testServer{
		handler: NewRouter(Deps{
			Optimizer: opt,
			Predictor: p,
			Repo:      repo,
			Logger:    logger,
			Now:       func() time.Time { return fixedNow },
		}),
		predictor: p,
	}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rec.Body.String())
	}
}

func TestHealthAssignsRequestID(t *testing.T) {
	s := newTestServer(t, repositories.Seed{})

	rec := s.do(t, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("missing X-Request-ID header")
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-ID"); got != "abc-123" {
		t.Errorf("request id = %q, want caller's abc-123", got)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t, repositories.Seed{})
	if rec := s.do(t, http.MethodPost, "/health", ""); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestPredictions(t *testing.T) {
	s := newTestServer(t, repositories.Seed{})
	body := `{"orders": [{"order_id": "A1", "order_time": "09:15:00"}, {"order_id": "A2", "order_time": "18:00:00"}]}`

	if rec := s.do(t, http.MethodPost, "/predictions", body); rec.Code != http.StatusConflict {
		t.Fatalf("untrained status = %d, want 409", rec.Code)
	}

	s.predictor.Train([]domain.OrderRecord{
		{OrderTime: "09:00", DeliveryMinutes: domain.Float(60)},
		{OrderTime: "18:30", DeliveryMinutes: domain.Float(120)},
	})

	rec := s.do(t, http.MethodPost, "/predictions", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res struct {
		Predictions []struct {
			OrderID string  `json:"order_id"`
			Minutes float64 `json:"predicted_minutes"`
			Upper   float64 `json:"upper_bound"`
		} `json:"predictions"`
		Confidence float64 `json:"confidence"`
	}
	decode(t, rec, &res)
	if len(res.Predictions) != 2 {
		t.Fatalf("predictions = %d, want 2", len(res.Predictions))
	}
	if res.Predictions[0].OrderID != "A1" || res.Predictions[0].Minutes != 60 || res.Predictions[0].Upper != 85 {
		t.Errorf("first prediction = %+v", res.Predictions[0])
	}
	if res.Predictions[1].Minutes != 120 {
		t.Errorf("second prediction = %v, want 120", res.Predictions[1].Minutes)
	}
}

func TestPredictionsRejectsBadBodies(t *testing.T) {
	s := newTestServer(t, repositories.Seed{})
	cases := map[string]string{
		"empty":         ``,
		"no orders":     `{"orders": []}`,
		"unknown field": `{"orders": [], "extra": 1}`,
		"two objects":   `{"orders": [{}]}{}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if rec := s.do(t, http.MethodPost, "/predictions", body); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func pendingSeed() repositories.Seed {
	seed := repositories.Seed{
		Vehicles: []repositories.VehicleSeed{
			{VehicleID: "V1", Status: "available"},
			{VehicleID: "V2", Status: "idle"},
		},
	}
	for i := 0; i < 3; i++ {
		seed.Orders = append(seed.Orders, repositories.OrderSeed{
			OrderID: fmt.Sprintf("A%d", i), OrderDate: "2026-06-01", OrderTime: "08:00:00", StoreID: "SA", Status: "pending",
		})
	}
	return seed
}

func TestOptimizerRun(t *testing.T) {
	s := newTestServer(t, pendingSeed())

	rec := s.do(t, http.MethodGet, "/optimizer/summary", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("summary status = %d", rec.Code)
	}
	var sum domain.OptimizationSummary
	decode(t, rec, &sum)
	if sum.PendingDeliveries != 3 || sum.OptimizationPotential != domain.PotentialLow {
		t.Errorf("summary = %+v", sum)
	}

	rec = s.do(t, http.MethodPost, "/optimizer/run", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("run status = %d, body %s", rec.Code, rec.Body.String())
	}
	var res domain.OptimizationResult
	decode(t, rec, &res)
	if !res.Success || res.TotalDeliveries != 3 || res.VehiclesUsed != 1 {
		t.Errorf("result = %+v", res)
	}

	// Assigned but not yet picked up orders do not count as load, so a rerun
	// leaves the cluster where it is.
	rec = s.do(t, http.MethodPost, "/optimizer/run", `{"max_per_vehicle": 3}`)
	res = domain.OptimizationResult{}
	decode(t, rec, &res)
	if !res.Success || len(res.Assignments) != 1 || res.Assignments[0].VehicleID != "V1" {
		t.Errorf("second run = %+v, want everything still on V1", res)
	}
}

func TestOptimizerRunValidatesCap(t *testing.T) {
	s := newTestServer(t, repositories.Seed{})
	for _, body := range []string{`{"max_per_vehicle": -1}`, `{"max_per_vehicle": 101}`, `{"max": 3}`} {
		if rec := s.do(t, http.MethodPost, "/optimizer/run", body); rec.Code != http.StatusBadRequest {
			t.Errorf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestOptimizerSuggest(t *testing.T) {
	s := newTestServer(t, repositories.Seed{})

	if rec := s.do(t, http.MethodPost, "/optimizer/suggest", `{"store_ids": [" "]}`); rec.Code != http.StatusBadRequest {
		t.Errorf("blank ids status = %d, want 400", rec.Code)
	}

	rec := s.do(t, http.MethodPost, "/optimizer/suggest", `{"store_ids": ["S1"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var sug domain.RouteSuggestion
	decode(t, rec, &sug)
	if sug.VehicleFound || sug.PickupEstimateMin != services.DefaultPickupEstimate {
		t.Errorf("suggestion = %+v, want defaults", sug)
	}
}

func TestModelEndpoints(t *testing.T) {
	s := newTestServer(t, repositories.Seed{})

	rec := s.do(t, http.MethodGet, "/model", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("info status = %d", rec.Code)
	}
	var info struct {
		Model services.ModelInfo `json:"model"`
	}
	decode(t, rec, &info)
	if info.Model.Trained {
		t.Error("fresh model reported trained")
	}

	if rec := s.do(t, http.MethodPost, "/model/train", ""); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("train on empty history status = %d, want 422", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/model/evaluation", ""); rec.Code != http.StatusConflict {
		t.Errorf("evaluation before training status = %d, want 409", rec.Code)
	}
}
