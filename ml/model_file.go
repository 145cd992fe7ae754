package ml

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// modelFile is the portable on-disk form shared by every model type: plain
// tree arrays plus the scalars needed to combine them.
type modelFile struct {
	ModelType    string       `json:"model_type"`
	FeatureNames []string     `json:"feature_names"`
	NumFeatures  int          `json:"num_features"`
	BaseScore    float64      `json:"base_score"`
	LearningRate float64      `json:"learning_rate"`
	Trees        [][]TreeNode `json:"trees"`
}

// writeModelFile replaces path atomically so a running server never reads a
// partially written model.
func writeModelFile(path string, file modelFile) error {
	payload, err := json.Marshal(file)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func readModelFile(path string) (modelFile, error) {
	var file modelFile
	payload, err := os.ReadFile(path)
	if err != nil {
		return file, err
	}
	if err := json.Unmarshal(payload, &file); err != nil {
		return file, fmt.Errorf("decode model %s: %w", path, err)
	}
	if file.NumFeatures <= 0 {
		return file, fmt.Errorf("decode model %s: num_features must be positive", path)
	}
	return file, nil
}
