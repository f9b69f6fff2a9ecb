package evaluate

import (
	"fmt"
	"math/rand"

	"churn-pipeline/internal/features"
)

// StratifiedSplit partitions the matrix into train and holdout sets,
// preserving the label proportions within each side. The seeded shuffle
// makes the assignment reproducible: same seed, same split.
func StratifiedSplit(m *features.Matrix, testSize float64, seed int64) (train, test *features.Matrix, err error) {
	if m.Rows() == 0 {
		return nil, nil, fmt.Errorf("evaluate: cannot split an empty matrix")
	}
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, fmt.Errorf("evaluate: test size %v out of range", testSize)
	}

	rng := rand.New(rand.NewSource(seed))
	var trainIdx, testIdx []int
	for _, class := range []int{0, 1} {
		var classIdx []int
		for i, y := range m.Y {
			if y == class {
				classIdx = append(classIdx, i)
			}
		}
		rng.Shuffle(len(classIdx), func(a, b int) {
			classIdx[a], classIdx[b] = classIdx[b], classIdx[a]
		})
		cut := int(float64(len(classIdx)) * testSize)
		testIdx = append(testIdx, classIdx[:cut]...)
		trainIdx = append(trainIdx, classIdx[cut:]...)
	}

	return subset(m, trainIdx), subset(m, testIdx), nil
}

func subset(m *features.Matrix, idx []int) *features.Matrix {
	out := &features.Matrix{
		Columns:        m.Columns,
		CustomerKeys:   make([]string, len(idx)),
		X:              make([][]float64, len(idx)),
		Y:              make([]int, len(idx)),
		ReviewObserved: make([]bool, len(idx)),
	}
	for n, i := range idx {
		out.CustomerKeys[n] = m.CustomerKeys[i]
		out.X[n] = m.X[i]
		out.Y[n] = m.Y[i]
		out.ReviewObserved[n] = m.ReviewObserved[i]
	}
	return out
}
