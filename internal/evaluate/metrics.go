// Package evaluate computes holdout metrics for a fitted classifier and
// the pre-training statistics that go into the run report.
package evaluate

import (
	"fmt"
	"math"
	"sort"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// ClassMetrics holds per-class precision, recall, F1 and support.
type ClassMetrics struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Metrics is the full holdout evaluation. The confusion matrix is
// indexed [actual][predicted] for the binary labels 0 and 1.
type Metrics struct {
	Accuracy          float64
	PrecisionWeighted float64
	RecallWeighted    float64
	F1Macro           float64
	F1Weighted        float64
	ROCAUC            float64
	AveragePrecision  float64
	PerClass          map[int]ClassMetrics
	Confusion         [2][2]int
	ScoreQuantiles    map[string]float64
}

// scoreScale maps a probability into the histogram's integer domain.
const scoreScale = 100000

// Compute evaluates predictions against the holdout truth. proba carries
// the class-1 probability per row.
func Compute(yTrue, yPred []int, proba []float64) (*Metrics, error) {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) || len(yTrue) != len(proba) {
		return nil, fmt.Errorf("evaluate: misaligned evaluation inputs (%d/%d/%d)", len(yTrue), len(yPred), len(proba))
	}

	m := &Metrics{PerClass: make(map[int]ClassMetrics, 2)}

	var correct int
	for i := range yTrue {
		m.Confusion[yTrue[i]][yPred[i]]++
		if yTrue[i] == yPred[i] {
			correct++
		}
	}
	total := len(yTrue)
	m.Accuracy = float64(correct) / float64(total)

	for _, class := range []int{0, 1} {
		tp := m.Confusion[class][class]
		fp := m.Confusion[1-class][class]
		fn := m.Confusion[class][1-class]
		support := m.Confusion[class][0] + m.Confusion[class][1]

		cm := ClassMetrics{Support: support}
		if tp+fp > 0 {
			cm.Precision = float64(tp) / float64(tp+fp)
		}
		if tp+fn > 0 {
			cm.Recall = float64(tp) / float64(tp+fn)
		}
		if cm.Precision+cm.Recall > 0 {
			cm.F1 = 2 * cm.Precision * cm.Recall / (cm.Precision + cm.Recall)
		}
		m.PerClass[class] = cm

		frac := float64(support) / float64(total)
		m.PrecisionWeighted += frac * cm.Precision
		m.RecallWeighted += frac * cm.Recall
		m.F1Weighted += frac * cm.F1
		m.F1Macro += cm.F1 / 2
	}

	m.ROCAUC = rocAUC(yTrue, proba)
	m.AveragePrecision = averagePrecision(yTrue, proba)
	m.ScoreQuantiles = scoreQuantiles(proba)

	return m, nil
}

// rocAUC is the Mann-Whitney rank statistic with average ranks on tied
// probabilities. Degenerate holdouts (one class only) score 0.5.
func rocAUC(yTrue []int, proba []float64) float64 {
	n := len(yTrue)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return proba[idx[a]] < proba[idx[b]]
	})

	ranks := make([]float64, n)
	for i := 0; i < n; {
		j := i
		for j < n && proba[idx[j]] == proba[idx[i]] {
			j++
		}
		avg := float64(i+j+1) / 2 // ranks are 1-based
		for k := i; k < j; k++ {
			ranks[idx[k]] = avg
		}
		i = j
	}

	var nPos, nNeg int
	var rankSum float64
	for i, y := range yTrue {
		if y == 1 {
			nPos++
			rankSum += ranks[i]
		} else {
			nNeg++
		}
	}
	if nPos == 0 || nNeg == 0 {
		return 0.5
	}
	return (rankSum - float64(nPos)*float64(nPos+1)/2) / (float64(nPos) * float64(nNeg))
}

// averagePrecision integrates precision over the ranked positives.
func averagePrecision(yTrue []int, proba []float64) float64 {
	n := len(yTrue)
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		if proba[idx[a]] != proba[idx[b]] {
			return proba[idx[a]] > proba[idx[b]]
		}
		return idx[a] < idx[b]
	})

	var nPos int
	for _, y := range yTrue {
		if y == 1 {
			nPos++
		}
	}
	if nPos == 0 {
		return 0
	}

	var hits int
	var sum float64
	for k, i := range idx {
		if yTrue[i] == 1 {
			hits++
			sum += float64(hits) / float64(k+1)
		}
	}
	return sum / float64(nPos)
}

// scoreQuantiles summarizes the predicted-probability distribution.
func scoreQuantiles(proba []float64) map[string]float64 {
	hist := hdrhistogram.New(1, scoreScale+1, 3)
	for _, p := range proba {
		hist.RecordValue(int64(math.Round(p*scoreScale)) + 1)
	}
	quantile := func(q float64) float64 {
		return float64(hist.ValueAtQuantile(q)-1) / scoreScale
	}
	return map[string]float64{
		"p50": quantile(50),
		"p90": quantile(90),
		"p99": quantile(99),
	}
}
