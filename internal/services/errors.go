package services

import "errors"

var (
	// Predict or Save was called before Train or a successful Load.
	ErrNotTrained = errors.New("predictor is not trained")
	// Fewer valid training rows than MinTrainingRows survived filtering.
	ErrInsufficientData = errors.New("insufficient training data")
	// Inference features do not match the schema the model was fit to.
	ErrFeatureMismatch = errors.New("feature schema does not match trained model")
	// max_per_vehicle below 1.
	ErrInvalidCapacity = errors.New("max per vehicle must be positive")
)
