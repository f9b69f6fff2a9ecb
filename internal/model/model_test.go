package model

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churn-pipeline/internal/config"
)

// separableData builds two well-separated clusters: class 0 around -1 on
// the first two features, class 1 around +1.
func separableData(n int, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, 0, 2*n)
	y := make([]int, 0, 2*n)
	for i := 0; i < n; i++ {
		X = append(X, []float64{-1 + rng.NormFloat64()*0.1, -1 + rng.NormFloat64()*0.1, rng.NormFloat64()})
		y = append(y, 0)
		X = append(X, []float64{1 + rng.NormFloat64()*0.1, 1 + rng.NormFloat64()*0.1, rng.NormFloat64()})
		y = append(y, 1)
	}
	return X, y
}

func classifiers(seed int64) map[string]Classifier {
	opts := Options{Seed: seed, ClassWeight: config.ClassWeightNone}
	return map[string]Classifier{
		"random_forest":       NewRandomForest(opts),
		"logistic_regression": NewLogisticRegression(opts),
		"gradient_boosting":   NewGradientBoosting(opts),
	}
}

func TestClassifiersSeparateClasses(t *testing.T) {
	X, y := separableData(40, 7)

	for name, clf := range classifiers(1) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, clf.Fit(X, y))

			pred := clf.Predict(X)
			var correct int
			for i := range y {
				if pred[i] == y[i] {
					correct++
				}
			}
			assert.GreaterOrEqual(t, float64(correct)/float64(len(y)), 0.95, "training accuracy on separable data")

			proba := clf.Proba(X)
			for _, p := range proba {
				assert.GreaterOrEqual(t, p, 0.0)
				assert.LessOrEqual(t, p, 1.0)
			}
		})
	}
}

func TestImportancesNormalized(t *testing.T) {
	X, y := separableData(40, 7)

	for name, clf := range classifiers(1) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, clf.Fit(X, y))

			imps := clf.Importances()
			require.Len(t, imps, 3)
			var sum float64
			for _, v := range imps {
				assert.GreaterOrEqual(t, v, 0.0)
				sum += v
			}
			assert.InDelta(t, 1.0, sum, 1e-6)

			// the informative features must dominate the noise feature
			assert.Greater(t, imps[0]+imps[1], imps[2])
		})
	}
}

func TestFitDeterministic(t *testing.T) {
	X, y := separableData(30, 11)
	probe, _ := separableData(10, 13)

	for name := range classifiers(1) {
		t.Run(name, func(t *testing.T) {
			first := classifiers(5)[name]
			second := classifiers(5)[name]
			require.NoError(t, first.Fit(X, y))
			require.NoError(t, second.Fit(X, y))
			assert.Equal(t, first.Proba(probe), second.Proba(probe))
		})
	}
}

func TestFitRejectsSingleClass(t *testing.T) {
	X := [][]float64{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}, {1, 1, 1}}
	y := []int{1, 1, 1, 1}

	for name, clf := range classifiers(1) {
		t.Run(name, func(t *testing.T) {
			err := clf.Fit(X, y)
			require.Error(t, err)
			var fitErr *ModelFitError
			require.ErrorAs(t, err, &fitErr)
			assert.Equal(t, map[int]int{1: 4}, fitErr.ClassCounts)
		})
	}
}

func TestFitRejectsFewerRowsThanFeatures(t *testing.T) {
	X := [][]float64{{1, 2, 3}, {4, 5, 6}}
	y := []int{0, 1}

	clf := NewRandomForest(Options{Seed: 1})
	err := clf.Fit(X, y)
	var fitErr *ModelFitError
	require.ErrorAs(t, err, &fitErr)
	assert.Equal(t, 2, fitErr.Rows)
	assert.Equal(t, 3, fitErr.Features)
}

func TestBalancedWeights(t *testing.T) {
	y := []int{1, 1, 1, 0}

	w := sampleWeights(y, config.ClassWeightBalanced)
	assert.InDelta(t, 4.0/6, w[0], 1e-9, "majority rows weigh n/(2*3)")
	assert.InDelta(t, 2.0, w[3], 1e-9, "minority row weighs n/(2*1)")

	uniform := sampleWeights(y, config.ClassWeightNone)
	assert.Equal(t, []float64{1, 1, 1, 1}, uniform)
}

func TestStandardScaler(t *testing.T) {
	X := [][]float64{{1, 10}, {3, 10}, {5, 10}}

	scaler := &StandardScaler{}
	scaled, err := scaler.FitTransform(X)
	require.NoError(t, err)

	assert.InDelta(t, 3.0, scaler.Mean[0], 1e-9)
	var sum float64
	for _, row := range scaled {
		sum += row[0]
	}
	assert.InDelta(t, 0.0, sum, 1e-9, "centered feature")

	// constant feature divides by 1, not 0
	for _, row := range scaled {
		assert.False(t, math.IsNaN(row[1]))
		assert.Equal(t, 0.0, row[1])
	}

	// holdout transformed with training statistics
	holdout := scaler.Transform([][]float64{{3, 10}})
	assert.Equal(t, 0.0, holdout[0][0])
}
