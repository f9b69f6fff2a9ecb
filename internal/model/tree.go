package model

import (
	"math/rand"
	"sort"
)

// Node is one node of a weighted regression tree. Trees regress on
// continuous targets; the forest uses 0/1 class labels as targets so a
// leaf value is directly the weighted class-1 fraction, and boosting
// regresses on residuals. A node with nil children is a leaf.
type Node struct {
	Feature   int
	Threshold float64
	Value     float64
	Left      *Node
	Right     *Node
}

func (n *Node) predict(x []float64) float64 {
	for n.Left != nil {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

type treeParams struct {
	maxDepth       int
	minSamplesLeaf int
	maxFeatures    int // 0 means all features
}

// buildTree grows a tree greedily by weighted variance reduction.
// importances accumulates the total impurity decrease per feature
// across every split, the mean-decrease-impurity score.
func buildTree(X [][]float64, target, weight []float64, idx []int, depth int, p treeParams, rng *rand.Rand, importances []float64) *Node {
	wSum, wtSum, wt2Sum := momentSums(target, weight, idx)
	node := &Node{Value: wtSum / wSum}

	if depth >= p.maxDepth || len(idx) < 2*p.minSamplesLeaf {
		return node
	}
	parentSSE := wt2Sum - wtSum*wtSum/wSum
	if parentSSE <= 1e-12 {
		return node
	}

	feature, threshold, gain := bestSplit(X, target, weight, idx, p, rng, wSum, wtSum, wt2Sum)
	if gain <= 0 {
		return node
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < p.minSamplesLeaf || len(right) < p.minSamplesLeaf {
		return node
	}

	importances[feature] += gain
	node.Feature = feature
	node.Threshold = threshold
	node.Left = buildTree(X, target, weight, left, depth+1, p, rng, importances)
	node.Right = buildTree(X, target, weight, right, depth+1, p, rng, importances)
	return node
}

func momentSums(target, weight []float64, idx []int) (wSum, wtSum, wt2Sum float64) {
	for _, i := range idx {
		w := weight[i]
		t := target[i]
		wSum += w
		wtSum += w * t
		wt2Sum += w * t * t
	}
	return
}

func candidateFeatures(total int, p treeParams, rng *rand.Rand) []int {
	if p.maxFeatures <= 0 || p.maxFeatures >= total {
		feats := make([]int, total)
		for i := range feats {
			feats[i] = i
		}
		return feats
	}
	return rng.Perm(total)[:p.maxFeatures]
}

// bestSplit scans candidate features for the threshold with the largest
// weighted SSE reduction. Thresholds sit at midpoints between distinct
// sorted values so either side of a tie lands on the same branch.
func bestSplit(X [][]float64, target, weight []float64, idx []int, p treeParams, rng *rand.Rand, wSum, wtSum, wt2Sum float64) (int, float64, float64) {
	bestFeature := -1
	var bestThreshold, bestGain float64
	parentSSE := wt2Sum - wtSum*wtSum/wSum

	sorted := make([]int, len(idx))
	for _, feature := range candidateFeatures(len(X[0]), p, rng) {
		copy(sorted, idx)
		sort.Slice(sorted, func(a, b int) bool {
			return X[sorted[a]][feature] < X[sorted[b]][feature]
		})

		var lw, lwt, lwt2 float64
		for pos := 0; pos < len(sorted)-1; pos++ {
			i := sorted[pos]
			lw += weight[i]
			lwt += weight[i] * target[i]
			lwt2 += weight[i] * target[i] * target[i]

			v, next := X[i][feature], X[sorted[pos+1]][feature]
			if v == next {
				continue
			}
			rw := wSum - lw
			if lw <= 0 || rw <= 0 {
				continue
			}
			leftSSE := lwt2 - lwt*lwt/lw
			rwt := wtSum - lwt
			rightSSE := (wt2Sum - lwt2) - rwt*rwt/rw
			gain := parentSSE - leftSSE - rightSSE
			if gain > bestGain {
				bestGain = gain
				bestFeature = feature
				bestThreshold = (v + next) / 2
			}
		}
	}

	if bestFeature < 0 {
		return -1, 0, 0
	}
	return bestFeature, bestThreshold, bestGain
}
