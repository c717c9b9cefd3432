package ml

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RawInput is one submitted form.
type RawInput struct {
	Age      int     `json:"age"`
	Sex      Sex     `json:"sex"`
	BMI      float64 `json:"bmi"`
	Children int     `json:"children"`
	Smoker   Smoker  `json:"smoker"`
	Region   Region  `json:"region"`
}

// Validate reports every field that falls outside its domain.
func (r RawInput) Validate() error {
	var errs []error
	if r.Age < 0 {
		errs = append(errs, fmt.Errorf("%w: age must be non-negative, got %d", ErrInvalidInput, r.Age))
	}
	if math.IsNaN(r.BMI) || math.IsInf(r.BMI, 0) || r.BMI < 0 {
		errs = append(errs, fmt.Errorf("%w: bmi must be a non-negative number, got %v", ErrInvalidInput, r.BMI))
	}
	if r.Children < 0 {
		errs = append(errs, fmt.Errorf("%w: children must be non-negative, got %d", ErrInvalidInput, r.Children))
	}
	if !r.Sex.Valid() {
		errs = append(errs, fmt.Errorf("%w: unrecognised sex %q", ErrInvalidInput, r.Sex))
	}
	if !r.Smoker.Valid() {
		errs = append(errs, fmt.Errorf("%w: unrecognised smoker value %q", ErrInvalidInput, r.Smoker))
	}
	if !r.Region.Valid() {
		errs = append(errs, fmt.Errorf("%w: unrecognised region %q", ErrInvalidInput, r.Region))
	}
	return errors.Join(errs...)
}

// FeatureVector is an encoded RawInput together with the column names it was encoded for.
type FeatureVector struct {
	Names  []string
	Values []float64
}

func (v FeatureVector) Len() int {
	return len(v.Values)
}

// Value returns the value of the named column.
func (v FeatureVector) Value(name string) (float64, bool) {
	for i, n := range v.Names {
		if n == name && i < len(v.Values) {
			return v.Values[i], true
		}
	}
	return 0, false
}

func (v FeatureVector) key() string {
	var b strings.Builder
	for i, value := range v.Values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(value, 'g', -1, 64))
	}
	return b.String()
}

const (
	FeatureAge             = "age"
	FeatureBMI             = "bmi"
	FeatureChildren        = "children"
	FeatureSexFemale       = "sex_female"
	FeatureSexMale         = "sex_male"
	FeatureSmokerNo        = "smoker_no"
	FeatureSmokerYes       = "smoker_yes"
	FeatureRegionNortheast = "region_northeast"
	FeatureRegionSoutheast = "region_southeast"
	FeatureRegionNorthwest = "region_northwest"
	FeatureRegionSouthwest = "region_southwest"
)

// FeatureNames is the column order the encoder produces and trained artifacts expect.
func FeatureNames() []string {
	return []string{
		FeatureAge,
		FeatureBMI,
		FeatureChildren,
		FeatureSexFemale,
		FeatureSexMale,
		FeatureSmokerNo,
		FeatureSmokerYes,
		FeatureRegionNortheast,
		FeatureRegionSoutheast,
		FeatureRegionNorthwest,
		FeatureRegionSouthwest,
	}
}

// categoricalGroups maps each categorical input to its indicator columns.
var categoricalGroups = map[string][]string{
	"sex":    {FeatureSexFemale, FeatureSexMale},
	"smoker": {FeatureSmokerNo, FeatureSmokerYes},
	"region": {FeatureRegionNortheast, FeatureRegionSoutheast, FeatureRegionNorthwest, FeatureRegionSouthwest},
}

// CheckOneHot verifies that exactly one indicator is set in each categorical group.
func CheckOneHot(v FeatureVector) error {
	for group, columns := range categoricalGroups {
		set := 0
		for _, column := range columns {
			value, ok := v.Value(column)
			if !ok {
				return fmt.Errorf("%w: missing column %s", ErrSchemaMismatch, column)
			}
			switch value {
			case 1:
				set++
			case 0:
			default:
				return fmt.Errorf("column %s holds %v, want 0 or 1", column, value)
			}
		}
		if set != 1 {
			return fmt.Errorf("%s group has %d indicators set, want 1", group, set)
		}
	}
	return nil
}
