package model

import (
	"math"
	"math/rand"

	"churn-pipeline/internal/config"
)

// GradientBoosting fits shallow regression trees to the logistic-loss
// residuals, updating an additive score in logit space.
type GradientBoosting struct {
	NumTrees       int
	LearningRate   float64
	MaxDepth       int
	MinSamplesLeaf int
	Seed           int64
	Weighting      config.ClassWeight
	InitScore      float64
	Trees          []*Node
	RawImportances []float64
}

func NewGradientBoosting(opts Options) *GradientBoosting {
	return &GradientBoosting{
		NumTrees:       100,
		LearningRate:   0.1,
		MaxDepth:       3,
		MinSamplesLeaf: 2,
		Seed:           opts.Seed,
		Weighting:      opts.ClassWeight,
	}
}

func (gb *GradientBoosting) Fit(X [][]float64, y []int) error {
	if err := validateTrainingSet(X, y); err != nil {
		return err
	}

	features := len(X[0])
	weight := sampleWeights(y, gb.Weighting)

	var wSum, wPos float64
	for i, w := range weight {
		wSum += w
		if y[i] == 1 {
			wPos += w
		}
	}
	base := wPos / wSum
	base = math.Min(1-1e-6, math.Max(1e-6, base))
	gb.InitScore = math.Log(base / (1 - base))

	score := make([]float64, len(X))
	for i := range score {
		score[i] = gb.InitScore
	}

	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	residual := make([]float64, len(X))

	params := treeParams{maxDepth: gb.MaxDepth, minSamplesLeaf: gb.MinSamplesLeaf}
	rng := rand.New(rand.NewSource(gb.Seed))
	gb.Trees = make([]*Node, 0, gb.NumTrees)
	gb.RawImportances = make([]float64, features)

	for t := 0; t < gb.NumTrees; t++ {
		for i := range X {
			residual[i] = float64(y[i]) - sigmoid(score[i])
		}
		tree := buildTree(X, residual, weight, idx, 0, params, rng, gb.RawImportances)
		gb.Trees = append(gb.Trees, tree)
		for i, row := range X {
			score[i] += gb.LearningRate * tree.predict(row)
		}
	}
	return nil
}

func (gb *GradientBoosting) Proba(X [][]float64) []float64 {
	proba := make([]float64, len(X))
	for i, row := range X {
		score := gb.InitScore
		for _, tree := range gb.Trees {
			score += gb.LearningRate * tree.predict(row)
		}
		proba[i] = sigmoid(score)
	}
	return proba
}

func (gb *GradientBoosting) Predict(X [][]float64) []int {
	return labelsFromProba(gb.Proba(X))
}

func (gb *GradientBoosting) Importances() []float64 {
	return normalizeImportances(gb.RawImportances)
}
