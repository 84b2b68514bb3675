package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"fleet-analytics-service/internal/domain"
	"fleet-analytics-service/internal/features"
	"fleet-analytics-service/internal/ml"
	"fleet-analytics-service/internal/ports"
)

type ModelKind string

const (
	KindSimple ModelKind = "simple_average"
	KindRidge  ModelKind = "ridge"
	KindForest ModelKind = "random_forest"
)

// PredictorConfig selects which model families Train may try.
type PredictorConfig struct {
	EnableRegression bool
	EnableEnsemble   bool
	// Validation R² below which the ensemble is tried as a second candidate.
	WeakR2 float64
	// Half-width of the band reported by PredictWithConfidence.
	ConfidenceMargin float64
	// Floor applied to every prediction.
	MinimumMinutes float64
	RidgeAlpha     float64
	TestFraction   float64
	Seed           int64
	Forest         ml.ForestParams
}

func DefaultPredictorConfig() PredictorConfig {
	return PredictorConfig{
		EnableRegression: true,
		EnableEnsemble:   true,
		WeakR2:           0.3,
		ConfidenceMargin: 25,
		MinimumMinutes:   10,
		RidgeAlpha:       1.0,
		TestFraction:     0.2,
		Seed:             42,
		Forest:           ml.DefaultForestParams(),
	}
}

const nominalConfidence = 0.95

// TrainingReport describes the model committed by Train.
type TrainingReport struct {
	ModelKind ModelKind `json:"model_kind"`
	TrainR2   float64   `json:"train_r2"`
	ValR2     float64   `json:"val_r2"`
	TrainMAE  float64   `json:"train_mae"`
	ValMAE    float64   `json:"val_mae"`
	Samples   int       `json:"samples"`
}

type Prediction struct {
	Predictions []float64 `json:"predictions"`
	LowerBound  []float64 `json:"lower_bound"`
	UpperBound  []float64 `json:"upper_bound"`
	Confidence  float64   `json:"confidence"`
}

type FeatureWeight struct {
	Name   string  `json:"feature"`
	Weight float64 `json:"importance"`
}

type ModelInfo struct {
	Trained   bool            `json:"trained"`
	Kind      ModelKind       `json:"model_kind,omitempty"`
	TrainedAt *time.Time      `json:"trained_at,omitempty"`
	Samples   int             `json:"training_samples"`
	Report    *TrainingReport `json:"report,omitempty"`
	Location  string          `json:"location,omitempty"`
}

// Fitted state. A nil *modelState means untrained.
type modelState struct {
	kind           ModelKind
	featureNames   []string
	scaler         *ml.StandardScaler
	ridge          *ml.Ridge
	forest         *ml.Forest
	hourAverages   map[int]float64
	overallAverage float64
	datasetStart   *time.Time
	trainedAt      time.Time
	samples        int
	report         TrainingReport
}

// Predictor forecasts delivery minutes. It moves from untrained to trained once,
// through Train or Load, and is safe for concurrent use.
type Predictor struct {
	cfg    PredictorConfig
	store  ports.ArtifactStore
	logger *slog.Logger
	now    func() time.Time

	mu       sync.RWMutex
	state    *modelState
	stores   domain.StoreAverages
	vehicles domain.VehicleAverages
}

// NewPredictor returns an untrained predictor. store may be nil when the model
// is never persisted.
func NewPredictor(cfg PredictorConfig, store ports.ArtifactStore, logger *slog.Logger) *Predictor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MinimumMinutes <= 0 {
		cfg.MinimumMinutes = 10
	}
	if cfg.RidgeAlpha <= 0 {
		cfg.RidgeAlpha = 1.0
	}
	if cfg.TestFraction <= 0 || cfg.TestFraction >= 1 {
		cfg.TestFraction = 0.2
	}
	if cfg.Forest.Trees <= 0 {
		cfg.Forest = ml.DefaultForestParams()
	}
	return &Predictor{
		cfg:      cfg,
		store:    store,
		logger:   logger,
		now:      time.Now,
		stores:   domain.StoreAverages{},
		vehicles: domain.VehicleAverages{},
	}
}

// SetAverages replaces the lookup tables used to build features.
func (p *Predictor) SetAverages(stores domain.StoreAverages, vehicles domain.VehicleAverages) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setAverages(stores, vehicles)
}

func (p *Predictor) setAverages(stores domain.StoreAverages, vehicles domain.VehicleAverages) {
	if stores == nil {
		stores = domain.StoreAverages{}
	}
	if vehicles == nil {
		vehicles = domain.VehicleAverages{}
	}
	p.stores, p.vehicles = stores, vehicles
}

func (p *Predictor) IsTrained() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.state != nil
}

// Train fits the predictor to labelled records and always leaves it trained.
// Rows without a finite delivery duration are ignored.
func (p *Predictor) Train(records []domain.OrderRecord) TrainingReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.train(records)
}

// TrainWithAverages installs the lookup tables and trains in one step, so a
// concurrent training run cannot swap the tables between the two.
func (p *Predictor) TrainWithAverages(records []domain.OrderRecord, stores domain.StoreAverages, vehicles domain.VehicleAverages) TrainingReport {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.setAverages(stores, vehicles)
	return p.train(records)
}

func (p *Predictor) train(records []domain.OrderRecord) TrainingReport {
	labelled := make([]domain.OrderRecord, 0, len(records))
	y := make([]float64, 0, len(records))
	for _, r := range records {
		if r.DeliveryMinutes == nil || math.IsNaN(*r.DeliveryMinutes) || math.IsInf(*r.DeliveryMinutes, 0) {
			continue
		}
		labelled = append(labelled, r)
		y = append(y, *r.DeliveryMinutes)
	}

	st := &modelState{
		kind:      KindSimple,
		trainedAt: p.now().UTC(),
		samples:   len(labelled),
	}
	st.hourAverages, st.overallAverage = hourAverages(labelled, y)
	st.datasetStart = earliestDate(labelled)

	trainIdx, testIdx := ml.TrainTestSplit(len(labelled), p.cfg.TestFraction, p.cfg.Seed)
	st.report = simpleReport(labelled, y, trainIdx, testIdx)

	if p.cfg.EnableRegression && len(trainIdx) > 0 && len(testIdx) > 0 {
		table := features.Build(labelled, features.Lookups{
			Stores:       p.stores,
			Vehicles:     p.vehicles,
			DatasetStart: st.datasetStart,
		})
		if table.Len() > 0 && len(table.Names) > 0 {
			p.fitRegression(st, table, y, trainIdx, testIdx)
		}
	}

	p.state = st
	p.logger.Info("predictor trained",
		"model_kind", st.kind,
		"samples", st.samples,
		"val_r2", st.report.ValR2,
		"val_mae", st.report.ValMAE,
	)
	return st.report
}

// fitRegression tries ridge, then the forest when ridge is weak, and commits the
// better candidate if its validation R² is positive.
func (p *Predictor) fitRegression(st *modelState, table features.Table, y []float64, trainIdx, testIdx []int) {
	xTrain := ml.Take(table.Rows, trainIdx)
	xTest := ml.Take(table.Rows, testIdx)
	yTrain := ml.Take(y, trainIdx)
	yTest := ml.Take(y, testIdx)

	scaler, err := ml.FitScaler(xTrain)
	if err != nil {
		p.logger.Warn("fit scaler failed, using simple model", "err", err)
		return
	}
	sTrain, _ := scaler.Transform(xTrain)
	sTest, _ := scaler.Transform(xTest)

	type candidate struct {
		kind   ModelKind
		ridge  *ml.Ridge
		forest *ml.Forest
		report TrainingReport
	}
	score := func(kind ModelKind, predict func([][]float64) []float64) TrainingReport {
		trainPred := p.floor(predict(sTrain))
		testPred := p.floor(predict(sTest))
		return TrainingReport{
			ModelKind: kind,
			TrainR2:   ml.R2(yTrain, trainPred),
			ValR2:     ml.R2(yTest, testPred),
			TrainMAE:  ml.MAE(yTrain, trainPred),
			ValMAE:    ml.MAE(yTest, testPred),
			Samples:   st.samples,
		}
	}

	var best *candidate

	ridge, err := ml.FitRidge(sTrain, yTrain, p.cfg.RidgeAlpha)
	if err != nil {
		p.logger.Warn("ridge fit failed", "err", err)
	} else {
		best = &candidate{kind: KindRidge, ridge: ridge, report: score(KindRidge, ridge.Predict)}
	}

	if p.cfg.EnableEnsemble && (best == nil || best.report.ValR2 < p.cfg.WeakR2) {
		forest, err := ml.FitForest(sTrain, yTrain, p.cfg.Forest)
		if err != nil {
			p.logger.Warn("forest fit failed", "err", err)
		} else {
			c := &candidate{kind: KindForest, forest: forest, report: score(KindForest, forest.Predict)}
			if best == nil || c.report.ValR2 > best.report.ValR2 {
				best = c
			}
		}
	}

	if best == nil || best.report.ValR2 <= 0 {
		p.logger.Info("no regression model beat the baseline, using simple model")
		return
	}

	st.kind = best.kind
	st.ridge = best.ridge
	st.forest = best.forest
	st.scaler = scaler
	st.featureNames = table.Names
	st.report = best.report
}

// Predict returns one forecast per record, in order, never below the floor.
func (p *Predictor) Predict(records []domain.OrderRecord) ([]float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	st := p.state
	if st == nil {
		return nil, ErrNotTrained
	}
	if len(records) == 0 {
		return []float64{}, nil
	}

	if st.kind == KindSimple {
		out := make([]float64, len(records))
		for i, r := range records {
			out[i] = st.simplePredict(r)
		}
		return p.floor(out), nil
	}

	table := features.Build(records, features.Lookups{
		Stores:       p.stores,
		Vehicles:     p.vehicles,
		DatasetStart: st.datasetStart,
	})
	if !slices.Equal(table.Names, st.featureNames) {
		return nil, ErrFeatureMismatch
	}
	x, err := st.scaler.Transform(table.Rows)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}

	var out []float64
	switch st.kind {
	case KindRidge:
		out = st.ridge.Predict(x)
	case KindForest:
		out = st.forest.Predict(x)
	default:
		return nil, fmt.Errorf("predict: unknown model kind %q", st.kind)
	}
	return p.floor(out), nil
}

// PredictWithConfidence wraps Predict with a fixed band of ±ConfidenceMargin minutes.
func (p *Predictor) PredictWithConfidence(records []domain.OrderRecord) (Prediction, error) {
	preds, err := p.Predict(records)
	if err != nil {
		return Prediction{}, err
	}

	out := Prediction{
		Predictions: preds,
		LowerBound:  make([]float64, len(preds)),
		UpperBound:  make([]float64, len(preds)),
		Confidence:  nominalConfidence,
	}
	for i, v := range preds {
		out.LowerBound[i] = math.Max(p.cfg.MinimumMinutes, v-p.cfg.ConfidenceMargin)
		out.UpperBound[i] = v + p.cfg.ConfidenceMargin
	}
	return out, nil
}

// FeatureImportance lists features by descending absolute weight. Empty for the
// simple model or an untrained predictor.
func (p *Predictor) FeatureImportance() []FeatureWeight {
	p.mu.RLock()
	defer p.mu.RUnlock()

	st := p.state
	if st == nil {
		return []FeatureWeight{}
	}

	var weights []float64
	switch st.kind {
	case KindRidge:
		weights = st.ridge.Coef
	case KindForest:
		weights = st.forest.Importances
	default:
		return []FeatureWeight{}
	}

	out := make([]FeatureWeight, 0, len(weights))
	for i, w := range weights {
		if i < len(st.featureNames) {
			out = append(out, FeatureWeight{Name: st.featureNames[i], Weight: w})
		}
	}
	slices.SortStableFunc(out, func(a, b FeatureWeight) int {
		switch da, db := math.Abs(a.Weight), math.Abs(b.Weight); {
		case da > db:
			return -1
		case da < db:
			return 1
		}
		return 0
	})
	return out
}

func (p *Predictor) Info() ModelInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()

	info := ModelInfo{}
	if p.store != nil {
		info.Location = p.store.Location()
	}
	if p.state == nil {
		return info
	}
	at := p.state.trainedAt
	report := p.state.report
	info.Trained = true
	info.Kind = p.state.kind
	info.TrainedAt = &at
	info.Samples = p.state.samples
	info.Report = &report
	return info
}

// Save writes the full predictor state to the artifact store.
func (p *Predictor) Save(ctx context.Context) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.state == nil {
		return ErrNotTrained
	}
	if p.store == nil {
		return errors.New("save predictor: no artifact store configured")
	}

	data, err := encodeArtifact(p.state, p.stores, p.vehicles)
	if err != nil {
		return fmt.Errorf("save predictor: %w", err)
	}
	if err := p.store.Write(ctx, data); err != nil {
		return fmt.Errorf("save predictor: %w", err)
	}
	p.logger.Info("predictor saved", "location", p.store.Location(), "model_kind", p.state.kind)
	return nil
}

// Load restores a saved predictor. Missing, corrupt or incompatible artifacts
// are logged and leave the predictor unchanged; Load reports whether it succeeded.
func (p *Predictor) Load(ctx context.Context) bool {
	if p.store == nil {
		return false
	}

	data, err := p.store.Read(ctx)
	if err != nil {
		if errors.Is(err, ports.ErrArtifactNotFound) {
			p.logger.Info("no saved predictor", "location", p.store.Location())
		} else {
			p.logger.Warn("read predictor artifact failed", "location", p.store.Location(), "err", err)
		}
		return false
	}

	st, stores, vehicles, err := decodeArtifact(data)
	if err != nil {
		p.logger.Warn("discarding predictor artifact", "location", p.store.Location(), "err", err)
		return false
	}

	p.mu.Lock()
	p.state, p.stores, p.vehicles = st, stores, vehicles
	p.mu.Unlock()

	p.logger.Info("predictor loaded",
		"location", p.store.Location(),
		"model_kind", st.kind,
		"trained_at", st.trainedAt.Format(time.RFC3339),
	)
	return true
}

func (p *Predictor) floor(v []float64) []float64 {
	for i := range v {
		if math.IsNaN(v[i]) || v[i] < p.cfg.MinimumMinutes {
			v[i] = p.cfg.MinimumMinutes
		}
	}
	return v
}

func (st *modelState) simplePredict(r domain.OrderRecord) float64 {
	if avg, ok := st.hourAverages[recordHour(r)]; ok {
		return avg
	}
	return st.overallAverage
}

func recordHour(r domain.OrderRecord) int {
	if r.OrderHour != nil && !math.IsNaN(*r.OrderHour) && !math.IsInf(*r.OrderHour, 0) {
		return int(*r.OrderHour)
	}
	if h, ok := features.ParseHour(r.OrderTime); ok {
		return h
	}
	return features.DefaultHour
}

// Mean duration per order hour, plus the overall mean.
func hourAverages(records []domain.OrderRecord, y []float64) (map[int]float64, float64) {
	if len(y) == 0 {
		return map[int]float64{}, features.DefaultAverageMinutes
	}

	sums := map[int]float64{}
	counts := map[int]int{}
	for i, r := range records {
		h := recordHour(r)
		sums[h] += y[i]
		counts[h]++
	}
	out := make(map[int]float64, len(sums))
	for h, s := range sums {
		out[h] = s / float64(counts[h])
	}
	return out, ml.Mean(y)
}

// simpleReport scores hour averages fit on the training partition only. The
// committed simple model is refit on every row.
func simpleReport(records []domain.OrderRecord, y []float64, trainIdx, testIdx []int) TrainingReport {
	fit := &modelState{}
	fit.hourAverages, fit.overallAverage = hourAverages(ml.Take(records, trainIdx), ml.Take(y, trainIdx))

	predict := func(idx []int) ([]float64, []float64) {
		pred := make([]float64, len(idx))
		for i, j := range idx {
			pred[i] = fit.simplePredict(records[j])
		}
		return ml.Take(y, idx), pred
	}
	yTrain, pTrain := predict(trainIdx)
	yTest, pTest := predict(testIdx)
	return TrainingReport{
		ModelKind: KindSimple,
		TrainR2:   ml.R2(yTrain, pTrain),
		ValR2:     ml.R2(yTest, pTest),
		TrainMAE:  ml.MAE(yTrain, pTrain),
		ValMAE:    ml.MAE(yTest, pTest),
		Samples:   len(records),
	}
}

func earliestDate(records []domain.OrderRecord) *time.Time {
	var earliest *time.Time
	for _, r := range records {
		d, ok := r.Date()
		if !ok {
			continue
		}
		if earliest == nil || d.Before(*earliest) {
			earliest = &d
		}
	}
	return earliest
}
