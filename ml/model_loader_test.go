package ml

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const forestArtifact = `{
  "format_version": 1,
  "model_type": "random_forest_regressor",
  "feature_names": ["age", "bmi"],
  "trees": [
    {"nodes": [
      {"feature_idx": 0, "threshold": 40, "left_child": 1, "right_child": 2},
      {"is_leaf": true, "value": 3000},
      {"is_leaf": true, "value": 9000}
    ]},
    {"nodes": [{"is_leaf": true, "value": 5000}]}
  ]
}`

func writeArtifact(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadModelForest(t *testing.T) {
	path := writeArtifact(t, forestArtifact)

	artifact, err := LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, ModelTypeRandomForest, artifact.Info.ModelType)
	assert.Equal(t, []string{"age", "bmi"}, artifact.FeatureNames())
	assert.Equal(t, path, artifact.Info.Path)

	forest, ok := artifact.Regressor.(*RandomForest)
	require.True(t, ok)
	assert.Equal(t, 2, forest.Trees())
}

func TestLoadModelMissingFile(t *testing.T) {
	_, err := LoadModel(filepath.Join(t.TempDir(), "absent.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadModelRejectsBadArtifacts(t *testing.T) {
	tests := map[string]string{
		"not json":        `pickle`,
		"wrong version":   `{"format_version": 7, "model_type": "linear_regression"}`,
		"unknown type":    `{"format_version": 1, "model_type": "svm", "feature_names": ["age"]}`,
		"tree missing":    `{"format_version": 1, "model_type": "decision_tree_regressor", "feature_names": ["age"]}`,
		"coef mismatch":   `{"format_version": 1, "model_type": "linear_regression", "feature_names": ["age"], "coefficients": [1, 2]}`,
		"no names":        `{"format_version": 1, "model_type": "linear_regression", "coefficients": []}`,
		"child backwards": `{"format_version": 1, "model_type": "decision_tree_regressor", "feature_names": ["age"], "tree": {"nodes": [{"feature_idx": 0, "left_child": 0, "right_child": 0}]}}`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadModel(writeArtifact(t, content))
			assert.Error(t, err)
		})
	}
}

func TestSaveModelLinear(t *testing.T) {
	model, err := NewLinearRegression(FeatureNames(), make([]float64, 11), 1234.5)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "linear.json")
	require.NoError(t, SaveModel(path, model))

	artifact, err := LoadModel(path)
	require.NoError(t, err)
	assert.Equal(t, ModelTypeLinear, artifact.Info.ModelType)
	linear := artifact.Regressor.(*LinearRegression)
	assert.Equal(t, 1234.5, linear.Intercept())
	assert.Len(t, linear.Coefficients(), 11)
}

func TestShippedModelArtifact(t *testing.T) {
	artifact, err := LoadModel(filepath.Join("..", "models", "rfr_model.json"))
	require.NoError(t, err)
	require.NoError(t, CheckSchema(artifact))
	assert.Equal(t, ModelTypeRandomForest, artifact.Info.ModelType)

	source := staticSource{model: artifact}
	smoker := Encode(RawInput{Age: 45, Sex: SexMale, BMI: 31.2, Children: 0, Smoker: SmokerYes, Region: RegionNorthwest})
	res := Invoke(source, smoker)
	require.True(t, res.OK(), res.Message)
	assert.Equal(t, 34500.0, res.Cost)

	nonSmoker := Encode(RawInput{Age: 30, Sex: SexFemale, BMI: 25, Children: 2, Smoker: SmokerNo, Region: RegionSoutheast})
	res = Invoke(source, nonSmoker)
	require.True(t, res.OK(), res.Message)
	assert.Equal(t, 5250.0, res.Cost)
}
