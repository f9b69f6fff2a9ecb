package model

import (
	"math"

	"churn-pipeline/internal/config"
)

// LogisticRegression fits an L2-regularized logistic model with batch
// gradient descent. It expects standardized features; the pipeline
// scales the matrix before fitting.
type LogisticRegression struct {
	LearningRate float64
	Iterations   int
	L2           float64
	Weighting    config.ClassWeight
	Coef         []float64
	Intercept    float64
}

func NewLogisticRegression(opts Options) *LogisticRegression {
	return &LogisticRegression{
		LearningRate: 0.1,
		Iterations:   1000,
		L2:           1e-4,
		Weighting:    opts.ClassWeight,
	}
}

func (lr *LogisticRegression) Fit(X [][]float64, y []int) error {
	if err := validateTrainingSet(X, y); err != nil {
		return err
	}

	features := len(X[0])
	lr.Coef = make([]float64, features)
	lr.Intercept = 0

	weight := sampleWeights(y, lr.Weighting)
	var weightSum float64
	for _, w := range weight {
		weightSum += w
	}

	grad := make([]float64, features)
	for iter := 0; iter < lr.Iterations; iter++ {
		for j := range grad {
			grad[j] = 0
		}
		var gradIntercept float64
		for i, row := range X {
			z := lr.Intercept
			for j, v := range row {
				z += lr.Coef[j] * v
			}
			err := sigmoid(z) - float64(y[i])
			werr := weight[i] * err
			for j, v := range row {
				grad[j] += werr * v
			}
			gradIntercept += werr
		}
		for j := range lr.Coef {
			lr.Coef[j] -= lr.LearningRate * (grad[j]/weightSum + lr.L2*lr.Coef[j])
		}
		lr.Intercept -= lr.LearningRate * gradIntercept / weightSum
	}
	return nil
}

func (lr *LogisticRegression) Proba(X [][]float64) []float64 {
	proba := make([]float64, len(X))
	for i, row := range X {
		z := lr.Intercept
		for j, v := range row {
			z += lr.Coef[j] * v
		}
		proba[i] = sigmoid(z)
	}
	return proba
}

func (lr *LogisticRegression) Predict(X [][]float64) []int {
	return labelsFromProba(lr.Proba(X))
}

// Importances ranks features by coefficient magnitude. Meaningful only
// because inputs are standardized to comparable scales.
func (lr *LogisticRegression) Importances() []float64 {
	raw := make([]float64, len(lr.Coef))
	for i, c := range lr.Coef {
		raw[i] = math.Abs(c)
	}
	return normalizeImportances(raw)
}
