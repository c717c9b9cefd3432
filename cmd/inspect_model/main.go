package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"medcost/ml"
)

func main() {
	modelPath := flag.String("model_path", "./models/rfr_model.json", "model artifact path")
	sampleOut := flag.String("write_sample", "", "write a small sample random forest artifact to this path and exit")
	predict := flag.Bool("predict", false, "run one prediction with the input flags below")
	age := flag.Int("age", 30, "age in years")
	sex := flag.String("sex", "male", "male or female (男性/女性)")
	bmi := flag.Float64("bmi", 25, "body mass index")
	children := flag.Int("children", 0, "number of children")
	smoker := flag.String("smoker", "no", "yes or no (是/否)")
	region := flag.String("region", "southeast", "southeast, southwest, northeast or northwest")
	flag.Parse()

	if *sampleOut != "" {
		if err := writeSample(*sampleOut); err != nil {
			log.Fatalf("failed to write sample model: %v", err)
		}
		fmt.Printf("sample model saved to %s\n", *sampleOut)
		return
	}

	artifact, err := ml.LoadModel(*modelPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Fatalf("model file not found: %s", *modelPath)
		}
		log.Fatalf("failed to load model: %v", err)
	}

	fmt.Printf("path:     %s\n", artifact.Info.Path)
	fmt.Printf("type:     %s\n", artifact.Info.ModelType)
	fmt.Printf("features: %s\n", strings.Join(artifact.Info.FeatureNames, ", "))
	if forest, ok := artifact.Regressor.(*ml.RandomForest); ok {
		fmt.Printf("trees:    %d\n", forest.Trees())
	}
	if err := ml.CheckSchema(artifact); err != nil {
		fmt.Printf("schema:   MISMATCH (%v)\n", err)
		os.Exit(1)
	}
	fmt.Println("schema:   ok")

	if !*predict {
		return
	}

	raw, err := parseInput(*age, *sex, *bmi, *children, *smoker, *region)
	if err != nil {
		log.Fatalf("invalid input: %v", err)
	}
	vec := ml.Encode(raw)
	for i, name := range vec.Names {
		fmt.Printf("  %-17s %g\n", name, vec.Values[i])
	}

	res := ml.Invoke(staticArtifact{artifact}, vec)
	if !res.OK() {
		log.Fatalf("prediction failed (%s): %s", res.Outcome, res.Message)
	}
	fmt.Printf("cost:     %.2f\n", res.Cost)
}

type staticArtifact struct {
	artifact *ml.Artifact
}

func (s staticArtifact) Artifact() (ml.Regressor, error) {
	return s.artifact, nil
}

func parseInput(age int, sex string, bmi float64, children int, smoker, region string) (ml.RawInput, error) {
	s, sexErr := ml.ParseSex(sex)
	sm, smokerErr := ml.ParseSmoker(smoker)
	r, regionErr := ml.ParseRegion(region)
	if err := errors.Join(sexErr, smokerErr, regionErr); err != nil {
		return ml.RawInput{}, err
	}
	raw := ml.RawInput{Age: age, Sex: s, BMI: bmi, Children: children, Smoker: sm, Region: r}
	return raw, raw.Validate()
}

// writeSample 写出一个两棵树的小型随机森林，仅用于本地联调
func writeSample(path string) error {
	smokerYes := indexOf(ml.FeatureSmokerYes)
	age := indexOf(ml.FeatureAge)
	bmi := indexOf(ml.FeatureBMI)

	trees := []ml.RegressionTree{
		{Nodes: []ml.TreeNode{
			{FeatureIdx: smokerYes, Threshold: 0.5, LeftChild: 1, RightChild: 4},
			{FeatureIdx: age, Threshold: 40, LeftChild: 2, RightChild: 3},
			{IsLeaf: true, Value: 4500},
			{IsLeaf: true, Value: 11000},
			{FeatureIdx: bmi, Threshold: 30, LeftChild: 5, RightChild: 6},
			{IsLeaf: true, Value: 21000},
			{IsLeaf: true, Value: 42000},
		}},
		{Nodes: []ml.TreeNode{
			{FeatureIdx: age, Threshold: 50, LeftChild: 1, RightChild: 2},
			{FeatureIdx: smokerYes, Threshold: 0.5, LeftChild: 3, RightChild: 4},
			{FeatureIdx: smokerYes, Threshold: 0.5, LeftChild: 5, RightChild: 6},
			{IsLeaf: true, Value: 6000},
			{IsLeaf: true, Value: 27000},
			{IsLeaf: true, Value: 13500},
			{IsLeaf: true, Value: 38000},
		}},
	}

	forest, err := ml.NewRandomForest(ml.FeatureNames(), trees)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	return ml.SaveModel(path, forest)
}

func indexOf(feature string) int {
	for i, name := range ml.FeatureNames() {
		if name == feature {
			return i
		}
	}
	panic("unknown feature " + feature)
}
