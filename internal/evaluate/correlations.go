package evaluate

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"

	"churn-pipeline/internal/features"
)

// Correlation is a signed feature-to-label Pearson correlation.
type Correlation struct {
	Feature string
	Value   float64
}

// FeatureCorrelations computes each feature's correlation with the churn
// label, sorted descending by magnitude. The avg_review column is
// correlated only over customers with at least one real review so the
// sentinel rows cannot dilute it. Constant columns correlate at zero.
func FeatureCorrelations(m *features.Matrix) []Correlation {
	reviewCol := m.ColumnIndex("avg_review")

	out := make([]Correlation, 0, len(m.Columns))
	for j, name := range m.Columns {
		var xs, ys []float64
		for i, row := range m.X {
			if j == reviewCol && !m.ReviewObserved[i] {
				continue
			}
			xs = append(xs, row[j])
			ys = append(ys, float64(m.Y[i]))
		}
		value, err := stats.Pearson(xs, ys)
		if err != nil || math.IsNaN(value) {
			value = 0
		}
		out = append(out, Correlation{Feature: name, Value: value})
	}

	sort.Slice(out, func(a, b int) bool {
		ma, mb := math.Abs(out[a].Value), math.Abs(out[b].Value)
		if ma != mb {
			return ma > mb
		}
		return out[a].Feature < out[b].Feature
	})
	return out
}

// Importance pairs a feature with its normalized importance weight.
type Importance struct {
	Feature string
	Weight  float64
}

// RankImportances pairs raw normalized weights with feature names,
// sorted descending by weight.
func RankImportances(columns []string, weights []float64) []Importance {
	out := make([]Importance, len(columns))
	for i, name := range columns {
		out[i] = Importance{Feature: name, Weight: weights[i]}
	}
	sort.Slice(out, func(a, b int) bool {
		if out[a].Weight != out[b].Weight {
			return out[a].Weight > out[b].Weight
		}
		return out[a].Feature < out[b].Feature
	})
	return out
}
