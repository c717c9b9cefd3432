package ml

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// LinearRegression predicts Coefficients·x + Intercept.
type LinearRegression struct {
	names        []string
	coefficients *mat.VecDense
	intercept    float64
}

func NewLinearRegression(featureNames []string, coefficients []float64, intercept float64) (*LinearRegression, error) {
	if err := validateFeatureNames(featureNames); err != nil {
		return nil, err
	}
	if len(coefficients) != len(featureNames) {
		return nil, fmt.Errorf("got %d coefficients for %d features", len(coefficients), len(featureNames))
	}
	return &LinearRegression{
		names:        append([]string(nil), featureNames...),
		coefficients: mat.NewVecDense(len(coefficients), append([]float64(nil), coefficients...)),
		intercept:    intercept,
	}, nil
}

func (l *LinearRegression) FeatureNames() []string {
	return append([]string(nil), l.names...)
}

func (l *LinearRegression) Coefficients() []float64 {
	return mat.Col(nil, 0, l.coefficients)
}

func (l *LinearRegression) Intercept() float64 {
	return l.intercept
}

func (l *LinearRegression) Predict(x mat.Matrix) ([]float64, error) {
	rows, err := checkColumns(x, l.names)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return []float64{}, nil
	}
	var result mat.VecDense
	result.MulVec(x, l.coefficients)
	out := make([]float64, rows)
	for i := range out {
		out[i] = result.AtVec(i) + l.intercept
	}
	return out, nil
}
