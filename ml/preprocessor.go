package ml

import "fmt"

// DataPreprocessor keeps the per-feature [min, max] range seen in training
// data.
type DataPreprocessor struct {
	featureStats map[string][2]float64
}

// ComputeStats replaces the stored ranges with those of features.
func (p *DataPreprocessor) ComputeStats(features [][]float64) error {
	if len(features) == 0 {
		return ErrEmptyDataset
	}
	names := FeatureNames()
	stats := make(map[string][2]float64, len(names))
	for i, row := range features {
		if len(row) != len(names) {
			return fmt.Errorf("%w: row %d has %d features", ErrFeatureMismatch, i, len(row))
		}
		for j, value := range row {
			name := names[j]
			if i == 0 {
				stats[name] = [2]float64{value, value}
				continue
			}
			current := stats[name]
			if value < current[0] {
				current[0] = value
			}
			if value > current[1] {
				current[1] = value
			}
			stats[name] = current
		}
	}
	p.featureStats = stats
	return nil
}

// FeatureStats returns a copy of the ranges keyed by feature name, or nil.
func (p *DataPreprocessor) FeatureStats() map[string][2]float64 {
	if p.featureStats == nil {
		return nil
	}
	copied := make(map[string][2]float64, len(p.featureStats))
	for key, value := range p.featureStats {
		copied[key] = value
	}
	return copied
}
