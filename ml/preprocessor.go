package ml

// Encode one-hot encodes a form into the column order of FeatureNames.
// Labels outside the recognised set leave their indicator group at zero; callers
// that need a hard failure run RawInput.Validate first.
func Encode(raw RawInput) FeatureVector {
	var sexFemale, sexMale float64
	switch raw.Sex {
	case SexFemale:
		sexFemale = 1
	case SexMale:
		sexMale = 1
	}

	var smokerYes, smokerNo float64
	switch raw.Smoker {
	case SmokerYes:
		smokerYes = 1
	case SmokerNo:
		smokerNo = 1
	}

	regionNortheast := indicator(raw.Region == RegionNortheast)
	regionSoutheast := indicator(raw.Region == RegionSoutheast)
	regionNorthwest := indicator(raw.Region == RegionNorthwest)
	regionSouthwest := indicator(raw.Region == RegionSouthwest)

	return FeatureVector{
		Names: FeatureNames(),
		Values: []float64{
			float64(raw.Age), raw.BMI, float64(raw.Children),
			sexFemale, sexMale,
			smokerNo, smokerYes,
			regionNortheast, regionSoutheast, regionNorthwest, regionSouthwest,
		},
	}
}

func indicator(ok bool) float64 {
	if ok {
		return 1
	}
	return 0
}
