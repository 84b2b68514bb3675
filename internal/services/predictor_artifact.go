package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"fleet-analytics-service/internal/domain"
	"fleet-analytics-service/internal/features"
	"fleet-analytics-service/internal/ml"
)

// Bumped whenever the serialized layout changes.
const artifactFormatVersion = 1

type artifact struct {
	FormatVersion   int                    `json:"format_version"`
	ModelKind       ModelKind              `json:"model_kind"`
	FeatureNames    []string               `json:"feature_names,omitempty"`
	Scaler          *ml.StandardScaler     `json:"scaler,omitempty"`
	Ridge           *ml.Ridge              `json:"ridge,omitempty"`
	Forest          *ml.Forest             `json:"forest,omitempty"`
	HourAverages    map[int]float64        `json:"hour_averages"`
	OverallAverage  float64                `json:"overall_average"`
	StoreAverages   domain.StoreAverages   `json:"store_averages"`
	VehicleAverages domain.VehicleAverages `json:"vehicle_averages"`
	DatasetStart    *time.Time             `json:"dataset_start,omitempty"`
	TrainedAt       time.Time              `json:"trained_at"`
	TrainingSamples int                    `json:"training_samples"`
	Report          TrainingReport         `json:"report"`
}

func encodeArtifact(st *modelState, stores domain.StoreAverages, vehicles domain.VehicleAverages) ([]byte, error) {
	a := artifact{
		FormatVersion:   artifactFormatVersion,
		ModelKind:       st.kind,
		FeatureNames:    st.featureNames,
		Scaler:          st.scaler,
		Ridge:           st.ridge,
		Forest:          st.forest,
		HourAverages:    st.hourAverages,
		OverallAverage:  st.overallAverage,
		StoreAverages:   stores,
		VehicleAverages: vehicles,
		DatasetStart:    st.datasetStart,
		TrainedAt:       st.trainedAt,
		TrainingSamples: st.samples,
		Report:          st.report,
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode artifact: %w", err)
	}
	return data, nil
}

// decodeArtifact rejects anything this build could not predict with.
func decodeArtifact(data []byte) (*modelState, domain.StoreAverages, domain.VehicleAverages, error) {
	var a artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, nil, nil, fmt.Errorf("decode artifact: %w", err)
	}
	if a.FormatVersion != artifactFormatVersion {
		return nil, nil, nil, fmt.Errorf("decode artifact: unsupported format version %d", a.FormatVersion)
	}

	switch a.ModelKind {
	case KindSimple:
	case KindRidge, KindForest:
		if !slices.Equal(a.FeatureNames, features.Names()) {
			return nil, nil, nil, fmt.Errorf("decode artifact: %w", ErrFeatureMismatch)
		}
		if a.Scaler == nil {
			return nil, nil, nil, errors.New("decode artifact: missing scaler")
		}
		if err := a.Scaler.Check(len(a.FeatureNames)); err != nil {
			return nil, nil, nil, fmt.Errorf("decode artifact: %w", err)
		}
		if a.ModelKind == KindRidge && (a.Ridge == nil || len(a.Ridge.Coef) != len(a.FeatureNames)) {
			return nil, nil, nil, errors.New("decode artifact: missing or malformed ridge model")
		}
		if a.ModelKind == KindForest {
			if a.Forest == nil {
				return nil, nil, nil, errors.New("decode artifact: missing forest model")
			}
			if err := a.Forest.Check(len(a.FeatureNames)); err != nil {
				return nil, nil, nil, fmt.Errorf("decode artifact: %w", err)
			}
		}
	default:
		return nil, nil, nil, fmt.Errorf("decode artifact: unknown model kind %q", a.ModelKind)
	}

	if a.HourAverages == nil {
		a.HourAverages = map[int]float64{}
	}
	if a.StoreAverages == nil {
		a.StoreAverages = domain.StoreAverages{}
	}
	if a.VehicleAverages == nil {
		a.VehicleAverages = domain.VehicleAverages{}
	}

	st := &modelState{
		kind:           a.ModelKind,
		featureNames:   a.FeatureNames,
		scaler:         a.Scaler,
		ridge:          a.Ridge,
		forest:         a.Forest,
		hourAverages:   a.HourAverages,
		overallAverage: a.OverallAverage,
		datasetStart:   a.DatasetStart,
		trainedAt:      a.TrainedAt,
		samples:        a.TrainingSamples,
		report:         a.Report,
	}
	return st, a.StoreAverages, a.VehicleAverages, nil
}
