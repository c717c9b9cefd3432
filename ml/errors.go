package ml

import "errors"

var (
	// ErrModelUnavailable is returned when the model artifact is missing or cannot be loaded.
	ErrModelUnavailable = errors.New("model unavailable")
	// ErrSchemaMismatch is returned when a feature vector does not line up with the artifact schema.
	ErrSchemaMismatch = errors.New("feature schema mismatch")
	// ErrPredictionFailed wraps any failure raised while building the feature table or predicting.
	ErrPredictionFailed = errors.New("prediction failed")
	// ErrInvalidInput is returned for form values outside their declared domain.
	ErrInvalidInput = errors.New("invalid input")
)
