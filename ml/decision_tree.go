package ml

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// TreeNode is one node of a fitted regression tree. Rows with
// x[FeatureIdx] <= Threshold go to LeftChild.
type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	Value      float64 `json:"value"`
	IsLeaf     bool    `json:"is_leaf"`
}

type RegressionTree struct {
	Nodes []TreeNode `json:"nodes"`
}

func (t *RegressionTree) predictRow(features []float64) (float64, error) {
	if len(t.Nodes) == 0 {
		return 0, errors.New("empty tree")
	}
	idx := 0
	// a valid tree reaches a leaf in fewer steps than it has nodes
	for steps := 0; steps <= len(t.Nodes); steps++ {
		node := t.Nodes[idx]
		if node.IsLeaf {
			return node.Value, nil
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= len(features) {
			return 0, errors.New("feature index out of range")
		}
		if features[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
		if idx < 0 || idx >= len(t.Nodes) {
			return 0, errors.New("invalid tree state")
		}
	}
	return 0, errors.New("tree contains a cycle")
}

func (t *RegressionTree) validate(featureCount int) error {
	if len(t.Nodes) == 0 {
		return errors.New("tree has no nodes")
	}
	for i, node := range t.Nodes {
		if node.IsLeaf {
			continue
		}
		if node.FeatureIdx < 0 || node.FeatureIdx >= featureCount {
			return fmt.Errorf("node %d: feature index %d out of range [0,%d)", i, node.FeatureIdx, featureCount)
		}
		if node.LeftChild <= i || node.LeftChild >= len(t.Nodes) {
			return fmt.Errorf("node %d: left child %d out of range", i, node.LeftChild)
		}
		if node.RightChild <= i || node.RightChild >= len(t.Nodes) {
			return fmt.Errorf("node %d: right child %d out of range", i, node.RightChild)
		}
	}
	return nil
}

// RandomForest averages the outputs of its trees. A single decision tree
// regressor is a forest of one.
type RandomForest struct {
	names []string
	trees []RegressionTree
}

func NewRandomForest(featureNames []string, trees []RegressionTree) (*RandomForest, error) {
	if err := validateFeatureNames(featureNames); err != nil {
		return nil, err
	}
	if len(trees) == 0 {
		return nil, errors.New("forest has no trees")
	}
	for i := range trees {
		if err := trees[i].validate(len(featureNames)); err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return &RandomForest{
		names: append([]string(nil), featureNames...),
		trees: append([]RegressionTree(nil), trees...),
	}, nil
}

func (f *RandomForest) FeatureNames() []string {
	return append([]string(nil), f.names...)
}

func (f *RandomForest) Trees() int {
	return len(f.trees)
}

func (f *RandomForest) Predict(x mat.Matrix) ([]float64, error) {
	rows, err := checkColumns(x, f.names)
	if err != nil {
		return nil, err
	}
	out := make([]float64, rows)
	row := make([]float64, len(f.names))
	for i := 0; i < rows; i++ {
		mat.Row(row, i, x)
		sum := 0.0
		for j := range f.trees {
			value, err := f.trees[j].predictRow(row)
			if err != nil {
				return nil, fmt.Errorf("tree %d: %w", j, err)
			}
			sum += value
		}
		out[i] = sum / float64(len(f.trees))
	}
	return out, nil
}

func validateFeatureNames(names []string) error {
	if len(names) == 0 {
		return errors.New("feature names are empty")
	}
	seen := make(map[string]struct{}, len(names))
	for _, name := range names {
		if name == "" {
			return errors.New("feature name is empty")
		}
		if _, ok := seen[name]; ok {
			return fmt.Errorf("duplicate feature name %q", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}
