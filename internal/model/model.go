// Package model implements the configurable churn classifiers. All three
// models share the same contract: fit on a scaled training matrix,
// produce hard labels and class-1 probabilities, and expose per-feature
// importance scores.
package model

import (
	"fmt"
	"math"

	"churn-pipeline/internal/config"
)

type Classifier interface {
	Fit(X [][]float64, y []int) error
	Predict(X [][]float64) []int
	Proba(X [][]float64) []float64
	Importances() []float64
}

// Options carries the run-level knobs shared by every model type.
type Options struct {
	Seed        int64
	ClassWeight config.ClassWeight
}

// New builds the classifier for a validated model type. Unknown values
// cannot reach here; config validation rejects them first.
func New(t config.ModelType, opts Options) Classifier {
	switch t {
	case config.ModelLogisticRegression:
		return NewLogisticRegression(opts)
	case config.ModelGradientBoosting:
		return NewGradientBoosting(opts)
	default:
		return NewRandomForest(opts)
	}
}

// ModelFitError is fatal for the run: the training partition cannot
// support a fit (single class present, or fewer rows than features).
type ModelFitError struct {
	Rows        int
	Features    int
	ClassCounts map[int]int
	Reason      string
}

func (e *ModelFitError) Error() string {
	return fmt.Sprintf("model fit: %s (rows=%d features=%d class counts=%v)", e.Reason, e.Rows, e.Features, e.ClassCounts)
}

func classCounts(y []int) map[int]int {
	counts := make(map[int]int, 2)
	for _, v := range y {
		counts[v]++
	}
	return counts
}

func validateTrainingSet(X [][]float64, y []int) error {
	if len(X) == 0 || len(X) != len(y) {
		return &ModelFitError{Rows: len(X), Reason: "empty or misaligned training set"}
	}
	features := len(X[0])
	counts := classCounts(y)
	if len(counts) < 2 {
		return &ModelFitError{Rows: len(X), Features: features, ClassCounts: counts, Reason: "single class in training partition"}
	}
	if len(X) < features {
		return &ModelFitError{Rows: len(X), Features: features, ClassCounts: counts, Reason: "fewer rows than features"}
	}
	return nil
}

// sampleWeights returns per-row weights. Balanced weighting scales each
// class by n / (2 * n_class) so both classes contribute equally.
func sampleWeights(y []int, weighting config.ClassWeight) []float64 {
	w := make([]float64, len(y))
	if weighting != config.ClassWeightBalanced {
		for i := range w {
			w[i] = 1
		}
		return w
	}
	counts := classCounts(y)
	n := float64(len(y))
	for i, v := range y {
		w[i] = n / (2 * float64(counts[v]))
	}
	return w
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func labelsFromProba(proba []float64) []int {
	labels := make([]int, len(proba))
	for i, p := range proba {
		if p >= 0.5 {
			labels[i] = 1
		}
	}
	return labels
}

// normalizeImportances scales raw scores to sum to one. A model with no
// informative splits (all zero) reports a uniform distribution.
func normalizeImportances(raw []float64) []float64 {
	out := make([]float64, len(raw))
	var sum float64
	for _, v := range raw {
		sum += v
	}
	if sum == 0 {
		for i := range out {
			out[i] = 1 / float64(len(out))
		}
		return out
	}
	for i, v := range raw {
		out[i] = v / sum
	}
	return out
}
