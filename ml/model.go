package ml

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Regressor is a loaded model artifact. Implementations are immutable after load
// and safe for concurrent use.
type Regressor interface {
	// FeatureNames returns the column order the model was trained on.
	FeatureNames() []string
	// Predict maps each row of x to one output.
	Predict(x mat.Matrix) ([]float64, error)
}

// ArtifactSource hands out the process-wide model artifact.
type ArtifactSource interface {
	Artifact() (Regressor, error)
}

// checkColumns is shared by the model implementations.
func checkColumns(x mat.Matrix, names []string) (int, error) {
	rows, cols := x.Dims()
	if cols != len(names) {
		return 0, fmt.Errorf("%w: model expects %d features, got %d", ErrSchemaMismatch, len(names), cols)
	}
	return rows, nil
}
