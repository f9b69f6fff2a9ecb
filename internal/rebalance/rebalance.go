// Package rebalance counters label imbalance on the training split by
// duplicating or synthesizing minority-class rows. It must never touch
// the holdout split.
package rebalance

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"churn-pipeline/internal/config"
	"churn-pipeline/internal/features"
)

// ErrInsufficientMinoritySamples means the minority class is too small
// for the synthetic strategy's neighbor interpolation. The caller must
// pick a fallback strategy or abort; there is no silent recovery here.
var ErrInsufficientMinoritySamples = errors.New("rebalance: minority class smaller than neighbor count + 1")

// Apply rebalances the matrix with the configured strategy. The result
// always has at least as many rows as the input, and the minority
// proportion never decreases. targetRatio is minority/majority after
// rebalancing (1.0 = fully balanced). The rng drives all sampling so a
// fixed seed reproduces the exact output.
func Apply(m *features.Matrix, strategy config.RebalanceStrategy, targetRatio float64, neighbors int, rng *rand.Rand) (*features.Matrix, error) {
	if strategy == config.RebalanceNone {
		return m, nil
	}
	if m.Rows() == 0 {
		return nil, fmt.Errorf("rebalance: empty matrix")
	}

	minority, majority := splitByClass(m)
	if len(minority.rows) == 0 {
		return nil, fmt.Errorf("rebalance: only one class present")
	}

	deficit := int(math.Ceil(targetRatio*float64(len(majority.rows)))) - len(minority.rows)
	if deficit <= 0 {
		return m, nil
	}

	switch strategy {
	case config.RebalanceOversample:
		return oversample(m, minority, deficit, rng), nil
	case config.RebalanceSMOTE:
		if len(minority.rows) < neighbors+1 {
			return nil, fmt.Errorf("%w (have %d, need %d)", ErrInsufficientMinoritySamples, len(minority.rows), neighbors+1)
		}
		return synthesize(m, minority, deficit, neighbors, rng), nil
	}
	return nil, fmt.Errorf("rebalance: unknown strategy %v", strategy)
}

type classRows struct {
	label int
	rows  []int
}

func splitByClass(m *features.Matrix) (minority, majority classRows) {
	var zero, one classRows
	one.label = 1
	for i, y := range m.Y {
		if y == 1 {
			one.rows = append(one.rows, i)
		} else {
			zero.rows = append(zero.rows, i)
		}
	}
	if len(one.rows) < len(zero.rows) {
		return one, zero
	}
	return zero, one
}

func appendRow(m *features.Matrix, x []float64, y int, key string, observed bool) {
	m.X = append(m.X, x)
	m.Y = append(m.Y, y)
	m.CustomerKeys = append(m.CustomerKeys, key)
	m.ReviewObserved = append(m.ReviewObserved, observed)
}

func cloneMatrix(m *features.Matrix, extra int) *features.Matrix {
	out := &features.Matrix{
		Columns:        m.Columns,
		CustomerKeys:   make([]string, len(m.CustomerKeys), len(m.CustomerKeys)+extra),
		X:              make([][]float64, len(m.X), len(m.X)+extra),
		Y:              make([]int, len(m.Y), len(m.Y)+extra),
		ReviewObserved: make([]bool, len(m.ReviewObserved), len(m.ReviewObserved)+extra),
	}
	copy(out.CustomerKeys, m.CustomerKeys)
	copy(out.X, m.X)
	copy(out.Y, m.Y)
	copy(out.ReviewObserved, m.ReviewObserved)
	return out
}

// oversample duplicates minority rows drawn with replacement.
func oversample(m *features.Matrix, minority classRows, deficit int, rng *rand.Rand) *features.Matrix {
	out := cloneMatrix(m, deficit)
	for n := 0; n < deficit; n++ {
		src := minority.rows[rng.Intn(len(minority.rows))]
		x := make([]float64, len(m.X[src]))
		copy(x, m.X[src])
		appendRow(out, x, minority.label, m.CustomerKeys[src], m.ReviewObserved[src])
	}
	return out
}

// synthesize interpolates each new row between a random minority sample
// and one of its k nearest minority neighbors in feature space.
func synthesize(m *features.Matrix, minority classRows, deficit, neighbors int, rng *rand.Rand) *features.Matrix {
	out := cloneMatrix(m, deficit)
	for n := 0; n < deficit; n++ {
		src := minority.rows[rng.Intn(len(minority.rows))]
		nearest := nearestNeighbors(m, minority.rows, src, neighbors)
		nb := nearest[rng.Intn(len(nearest))]

		u := rng.Float64()
		x := make([]float64, len(m.X[src]))
		for j := range x {
			x[j] = m.X[src][j] + u*(m.X[nb][j]-m.X[src][j])
		}
		key := fmt.Sprintf("synthetic:%s:%d", m.CustomerKeys[src], n)
		appendRow(out, x, minority.label, key, m.ReviewObserved[src])
	}
	return out
}

func nearestNeighbors(m *features.Matrix, candidates []int, src, k int) []int {
	type neighbor struct {
		row  int
		dist float64
	}
	all := make([]neighbor, 0, len(candidates)-1)
	for _, row := range candidates {
		if row == src {
			continue
		}
		all = append(all, neighbor{row: row, dist: euclidean(m.X[src], m.X[row])})
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].dist != all[j].dist {
			return all[i].dist < all[j].dist
		}
		return all[i].row < all[j].row
	})
	if k > len(all) {
		k = len(all)
	}
	rows := make([]int, k)
	for i := 0; i < k; i++ {
		rows[i] = all[i].row
	}
	return rows
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
