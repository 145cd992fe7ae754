package ml

import "strings"

// NumFeatures is the width of every feature vector the models are trained on.
const NumFeatures = 11

// LabelColumn is the target column of the training CSV.
const LabelColumn = "quality"

// WineSample is one wine described by its 11 physicochemical measurements.
type WineSample struct {
	FixedAcidity       float64 `json:"fixed_acidity"`
	VolatileAcidity    float64 `json:"volatile_acidity"`
	CitricAcid         float64 `json:"citric_acid"`
	ResidualSugar      float64 `json:"residual_sugar"`
	Chlorides          float64 `json:"chlorides"`
	FreeSulfurDioxide  float64 `json:"free_sulfur_dioxide"`
	TotalSulfurDioxide float64 `json:"total_sulfur_dioxide"`
	Density            float64 `json:"density"`
	PH                 float64 `json:"pH"`
	Sulphates          float64 `json:"sulphates"`
	Alcohol            float64 `json:"alcohol"`
}

// FeatureVector lays the sample out in training column order.
func FeatureVector(sample WineSample) []float64 {
	return []float64{
		sample.FixedAcidity,
		sample.VolatileAcidity,
		sample.CitricAcid,
		sample.ResidualSugar,
		sample.Chlorides,
		sample.FreeSulfurDioxide,
		sample.TotalSulfurDioxide,
		sample.Density,
		sample.PH,
		sample.Sulphates,
		sample.Alcohol,
	}
}

// FeatureNames returns the request field names in feature vector order.
func FeatureNames() []string {
	return []string{
		"fixed_acidity",
		"volatile_acidity",
		"citric_acid",
		"residual_sugar",
		"chlorides",
		"free_sulfur_dioxide",
		"total_sulfur_dioxide",
		"density",
		"pH",
		"sulphates",
		"alcohol",
	}
}

// FeatureIndex resolves a CSV header such as "free sulfur dioxide" to its
// position in the feature vector, or -1.
func FeatureIndex(column string) int {
	normalized := strings.ReplaceAll(strings.TrimSpace(column), " ", "_")
	for i, name := range FeatureNames() {
		if strings.EqualFold(name, normalized) {
			return i
		}
	}
	return -1
}
