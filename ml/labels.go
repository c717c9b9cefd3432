package ml

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/width"
)

type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

type Smoker string

const (
	SmokerYes Smoker = "yes"
	SmokerNo  Smoker = "no"
)

type Region string

const (
	RegionNortheast Region = "northeast"
	RegionSoutheast Region = "southeast"
	RegionNorthwest Region = "northwest"
	RegionSouthwest Region = "southwest"
)

// Regions lists the recognised regions in the order the form offers them.
func Regions() []Region {
	return []Region{RegionSoutheast, RegionSouthwest, RegionNortheast, RegionNorthwest}
}

func (s Sex) Valid() bool { return s == SexMale || s == SexFemale }

func (s Smoker) Valid() bool { return s == SmokerYes || s == SmokerNo }

func (r Region) Valid() bool {
	switch r {
	case RegionNortheast, RegionSoutheast, RegionNorthwest, RegionSouthwest:
		return true
	}
	return false
}

// The form historically submitted Chinese labels; both spellings are accepted.
var (
	sexAliases = map[string]Sex{
		"male":   SexMale,
		"m":      SexMale,
		"男":      SexMale,
		"男性":     SexMale,
		"female": SexFemale,
		"f":      SexFemale,
		"女":      SexFemale,
		"女性":     SexFemale,
	}
	smokerAliases = map[string]Smoker{
		"yes":   SmokerYes,
		"y":     SmokerYes,
		"true":  SmokerYes,
		"是":     SmokerYes,
		"no":    SmokerNo,
		"n":     SmokerNo,
		"false": SmokerNo,
		"否":     SmokerNo,
	}
	regionAliases = map[string]Region{
		"northeast": RegionNortheast,
		"东北部":       RegionNortheast,
		"东北":        RegionNortheast,
		"southeast": RegionSoutheast,
		"东南部":       RegionSoutheast,
		"东南":        RegionSoutheast,
		"northwest": RegionNorthwest,
		"西北部":       RegionNorthwest,
		"西北":        RegionNorthwest,
		"southwest": RegionSouthwest,
		"西南部":       RegionSouthwest,
		"西南":        RegionSouthwest,
	}
)

// normalizeLabel folds case and full-width forms so "ＭＡＬＥ" and "Male" match "male".
func normalizeLabel(s string) string {
	s = strings.TrimSpace(s)
	s = width.Narrow.String(s)
	s = cases.Fold().String(s)
	return strings.ReplaceAll(s, " ", "")
}

func ParseSex(s string) (Sex, error) {
	if v, ok := sexAliases[normalizeLabel(s)]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: unrecognised sex %q", ErrInvalidInput, s)
}

func ParseSmoker(s string) (Smoker, error) {
	if v, ok := smokerAliases[normalizeLabel(s)]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: unrecognised smoker value %q", ErrInvalidInput, s)
}

func ParseRegion(s string) (Region, error) {
	if v, ok := regionAliases[normalizeLabel(s)]; ok {
		return v, nil
	}
	return "", fmt.Errorf("%w: unrecognised region %q", ErrInvalidInput, s)
}
