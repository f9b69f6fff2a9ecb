package rebalance

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churn-pipeline/internal/config"
	"churn-pipeline/internal/features"
)

func imbalancedMatrix(majority, minority int) *features.Matrix {
	m := &features.Matrix{Columns: features.Columns}
	for i := 0; i < majority; i++ {
		m.X = append(m.X, []float64{float64(i), 10, 100, 50, 5, 2, 0, 4})
		m.Y = append(m.Y, 1)
		m.CustomerKeys = append(m.CustomerKeys, fmt.Sprintf("maj-%d", i))
		m.ReviewObserved = append(m.ReviewObserved, true)
	}
	for i := 0; i < minority; i++ {
		m.X = append(m.X, []float64{float64(100 + i), 1, 20, 20, 0, 1, 0, 3})
		m.Y = append(m.Y, 0)
		m.CustomerKeys = append(m.CustomerKeys, fmt.Sprintf("min-%d", i))
		m.ReviewObserved = append(m.ReviewObserved, false)
	}
	return m
}

func minorityProportion(m *features.Matrix) float64 {
	var minority int
	for _, y := range m.Y {
		if y == 0 {
			minority++
		}
	}
	return float64(minority) / float64(m.Rows())
}

func TestApplyNonePassesThrough(t *testing.T) {
	m := imbalancedMatrix(20, 4)
	out, err := Apply(m, config.RebalanceNone, 1.0, 5, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Same(t, m, out)
}

func TestApplyAlreadyBalanced(t *testing.T) {
	m := imbalancedMatrix(10, 10)
	out, err := Apply(m, config.RebalanceOversample, 1.0, 5, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, m.Rows(), out.Rows())
}

func TestOversample(t *testing.T) {
	m := imbalancedMatrix(20, 4)
	before := minorityProportion(m)

	out, err := Apply(m, config.RebalanceOversample, 1.0, 5, rand.New(rand.NewSource(1)))
	require.NoError(t, err)

	assert.GreaterOrEqual(t, out.Rows(), m.Rows())
	assert.Equal(t, 40, out.Rows(), "balanced to 20/20")
	assert.Greater(t, minorityProportion(out), before)

	// duplicated rows are exact copies of minority rows
	for i := m.Rows(); i < out.Rows(); i++ {
		assert.Equal(t, 0, out.Y[i])
		assert.Equal(t, 1.0, out.X[i][1])
	}

	// input matrix untouched
	assert.Equal(t, 24, m.Rows())
}

func TestOversamplePartialTargetRatio(t *testing.T) {
	m := imbalancedMatrix(20, 4)
	out, err := Apply(m, config.RebalanceOversample, 0.5, 5, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 30, out.Rows(), "minority raised to 10 = 0.5 * 20")
}

func TestSMOTESynthesizesNewRows(t *testing.T) {
	m := imbalancedMatrix(20, 8)
	before := minorityProportion(m)

	out, err := Apply(m, config.RebalanceSMOTE, 1.0, 3, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.Equal(t, 40, out.Rows())
	assert.Greater(t, minorityProportion(out), before)

	// synthetic rows interpolate between minority samples, so every
	// feature stays inside the minority class bounds
	for i := m.Rows(); i < out.Rows(); i++ {
		assert.Equal(t, 0, out.Y[i])
		assert.Contains(t, out.CustomerKeys[i], "synthetic:")
		assert.GreaterOrEqual(t, out.X[i][0], 100.0)
		assert.LessOrEqual(t, out.X[i][0], 107.0)
		assert.Equal(t, 1.0, out.X[i][1], "constant minority feature stays constant")
	}
}

func TestSMOTEInsufficientMinority(t *testing.T) {
	m := imbalancedMatrix(20, 4)
	_, err := Apply(m, config.RebalanceSMOTE, 1.0, 5, rand.New(rand.NewSource(1)))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientMinoritySamples)
}

func TestApplyDeterministic(t *testing.T) {
	m := imbalancedMatrix(20, 8)

	first, err := Apply(m, config.RebalanceSMOTE, 1.0, 3, rand.New(rand.NewSource(42)))
	require.NoError(t, err)
	second, err := Apply(m, config.RebalanceSMOTE, 1.0, 3, rand.New(rand.NewSource(42)))
	require.NoError(t, err)

	assert.Equal(t, first.X, second.X)
	assert.Equal(t, first.Y, second.Y)
}

func TestApplySingleClassFails(t *testing.T) {
	m := imbalancedMatrix(10, 0)
	_, err := Apply(m, config.RebalanceOversample, 1.0, 5, rand.New(rand.NewSource(1)))
	assert.Error(t, err)
}
