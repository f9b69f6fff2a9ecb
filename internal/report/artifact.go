package report

import (
	"encoding/gob"
	"os"
	"path/filepath"

	"churn-pipeline/internal/model"
)

// Artifact is the persisted form of a trained model: the classifier, the
// scaler fitted on its training partition, and the feature order both
// were trained against. Scoring must feed features in exactly this
// order.
type Artifact struct {
	Columns []string
	Scaler  *model.StandardScaler
	Model   model.Classifier
}

func init() {
	gob.Register(&model.RandomForest{})
	gob.Register(&model.LogisticRegression{})
	gob.Register(&model.GradientBoosting{})
}

// SaveModel writes the model artifact into dir as churn_model.gob.
func SaveModel(dir string, artifact *Artifact) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, "churn_model.gob")
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := gob.NewEncoder(f).Encode(artifact); err != nil {
		return "", err
	}
	return path, nil
}

// LoadModel reads an artifact previously written by SaveModel.
func LoadModel(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	artifact := &Artifact{}
	if err := gob.NewDecoder(f).Decode(artifact); err != nil {
		return nil, err
	}
	return artifact, nil
}
