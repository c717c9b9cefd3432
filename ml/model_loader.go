package ml

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// FormatVersion is the artifact envelope version this package reads and writes.
const FormatVersion = 1

const (
	ModelTypeRandomForest = "random_forest_regressor"
	ModelTypeDecisionTree = "decision_tree_regressor"
	ModelTypeLinear       = "linear_regression"
)

type artifactFile struct {
	FormatVersion int              `json:"format_version"`
	ModelType     string           `json:"model_type"`
	FeatureNames  []string         `json:"feature_names"`
	Trees         []RegressionTree `json:"trees,omitempty"`
	Tree          *RegressionTree  `json:"tree,omitempty"`
	Coefficients  []float64        `json:"coefficients,omitempty"`
	Intercept     float64          `json:"intercept,omitempty"`
}

// ArtifactInfo describes where a model came from.
type ArtifactInfo struct {
	Path         string    `json:"path"`
	ModelType    string    `json:"model_type"`
	FeatureNames []string  `json:"feature_names"`
	LoadedAt     time.Time `json:"loaded_at"`
}

// Artifact is a loaded model plus its provenance.
type Artifact struct {
	Regressor
	Info ArtifactInfo
}

// LoadModel reads and validates the artifact at path. A missing file is
// reported with an error matching os.ErrNotExist.
func LoadModel(path string) (*Artifact, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file artifactFile
	if err := json.Unmarshal(payload, &file); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if file.FormatVersion != FormatVersion {
		return nil, fmt.Errorf("%s: unsupported format version %d", path, file.FormatVersion)
	}

	var model Regressor
	switch file.ModelType {
	case ModelTypeRandomForest:
		model, err = NewRandomForest(file.FeatureNames, file.Trees)
	case ModelTypeDecisionTree:
		if file.Tree == nil {
			return nil, fmt.Errorf("%s: decision tree artifact has no tree", path)
		}
		model, err = NewRandomForest(file.FeatureNames, []RegressionTree{*file.Tree})
	case ModelTypeLinear:
		model, err = NewLinearRegression(file.FeatureNames, file.Coefficients, file.Intercept)
	default:
		return nil, fmt.Errorf("%s: unsupported model type %q", path, file.ModelType)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return &Artifact{
		Regressor: model,
		Info: ArtifactInfo{
			Path:         path,
			ModelType:    file.ModelType,
			FeatureNames: model.FeatureNames(),
			LoadedAt:     time.Now(),
		},
	}, nil
}

// SaveModel writes model in the artifact envelope.
func SaveModel(path string, model Regressor) error {
	if a, ok := model.(*Artifact); ok {
		model = a.Regressor
	}
	file := artifactFile{
		FormatVersion: FormatVersion,
		FeatureNames:  model.FeatureNames(),
	}
	switch m := model.(type) {
	case *RandomForest:
		if len(m.trees) == 1 {
			file.ModelType = ModelTypeDecisionTree
			tree := m.trees[0]
			file.Tree = &tree
		} else {
			file.ModelType = ModelTypeRandomForest
			file.Trees = m.trees
		}
	case *LinearRegression:
		file.ModelType = ModelTypeLinear
		file.Coefficients = m.Coefficients()
		file.Intercept = m.intercept
	default:
		return errors.New("unsupported model type")
	}
	payload, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}
