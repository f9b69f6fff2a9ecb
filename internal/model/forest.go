package model

import (
	"math"
	"math/rand"

	"churn-pipeline/internal/config"
)

// RandomForest averages bootstrapped regression trees grown on 0/1
// labels, so each tree's leaf value is a class-1 fraction and the forest
// mean is the predicted probability.
type RandomForest struct {
	NumTrees       int
	MaxDepth       int
	MinSamplesLeaf int
	Seed           int64
	Weighting      config.ClassWeight
	Trees          []*Node
	RawImportances []float64
}

func NewRandomForest(opts Options) *RandomForest {
	return &RandomForest{
		NumTrees:       100,
		MaxDepth:       12,
		MinSamplesLeaf: 2,
		Seed:           opts.Seed,
		Weighting:      opts.ClassWeight,
	}
}

func (f *RandomForest) Fit(X [][]float64, y []int) error {
	if err := validateTrainingSet(X, y); err != nil {
		return err
	}

	features := len(X[0])
	target := make([]float64, len(y))
	for i, v := range y {
		target[i] = float64(v)
	}
	weight := sampleWeights(y, f.Weighting)

	params := treeParams{
		maxDepth:       f.MaxDepth,
		minSamplesLeaf: f.MinSamplesLeaf,
		maxFeatures:    int(math.Ceil(math.Sqrt(float64(features)))),
	}

	rng := rand.New(rand.NewSource(f.Seed))
	f.Trees = make([]*Node, 0, f.NumTrees)
	f.RawImportances = make([]float64, features)
	idx := make([]int, len(X))
	for t := 0; t < f.NumTrees; t++ {
		for i := range idx {
			idx[i] = rng.Intn(len(X))
		}
		f.Trees = append(f.Trees, buildTree(X, target, weight, idx, 0, params, rng, f.RawImportances))
	}
	return nil
}

func (f *RandomForest) Proba(X [][]float64) []float64 {
	proba := make([]float64, len(X))
	for i, row := range X {
		var sum float64
		for _, tree := range f.Trees {
			sum += tree.predict(row)
		}
		p := sum / float64(len(f.Trees))
		proba[i] = math.Min(1, math.Max(0, p))
	}
	return proba
}

func (f *RandomForest) Predict(X [][]float64) []int {
	return labelsFromProba(f.Proba(X))
}

func (f *RandomForest) Importances() []float64 {
	return normalizeImportances(f.RawImportances)
}
