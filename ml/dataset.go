package ml

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Dataset holds feature rows in FeatureNames order and their quality labels.
type Dataset struct {
	Features [][]float64
	Targets  []float64
}

// Len returns the number of rows.
func (d *Dataset) Len() int {
	return len(d.Targets)
}

// LoadDataset reads the training CSV at path.
func LoadDataset(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	dataset, err := ReadDataset(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return dataset, nil
}

// ReadDataset parses a semicolon separated file with a header row naming the
// 11 feature columns and the quality label in any order.
func ReadDataset(r io.Reader) (*Dataset, error) {
	decoded := transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder()))
	reader := csv.NewReader(decoded)
	reader.Comma = ';'
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmptyDataset
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	columns := make([]int, len(header))
	labelIdx := -1
	seen := make([]bool, NumFeatures)
	for i, name := range header {
		columns[i] = -1
		if strings.EqualFold(strings.TrimSpace(name), LabelColumn) {
			labelIdx = i
			continue
		}
		idx := FeatureIndex(name)
		if idx < 0 {
			continue
		}
		if seen[idx] {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		seen[idx] = true
		columns[i] = idx
	}
	if labelIdx < 0 {
		return nil, fmt.Errorf("missing column %q", LabelColumn)
	}
	for i, ok := range seen {
		if !ok {
			return nil, fmt.Errorf("missing column %q", FeatureNames()[i])
		}
	}

	dataset := &Dataset{}
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		line++

		row := make([]float64, NumFeatures)
		var target float64
		for i, cell := range record {
			if columns[i] < 0 && i != labelIdx {
				continue
			}
			value, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d column %q: %w", line, header[i], err)
			}
			if math.IsNaN(value) || math.IsInf(value, 0) {
				return nil, fmt.Errorf("line %d column %q: non-finite value %q", line, header[i], cell)
			}
			if i == labelIdx {
				target = value
				continue
			}
			row[columns[i]] = value
		}
		dataset.Features = append(dataset.Features, row)
		dataset.Targets = append(dataset.Targets, target)
	}

	if dataset.Len() == 0 {
		return nil, ErrEmptyDataset
	}
	return dataset, nil
}
