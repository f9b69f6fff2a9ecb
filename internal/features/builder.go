// Package features aggregates consolidated records into the fixed-width
// per-customer feature matrix consumed by the model.
package features

import (
	"fmt"
	"math"
	"time"

	"github.com/montanaflynn/stats"

	"churn-pipeline/internal/churn"
	"churn-pipeline/internal/consolidate"
)

// Columns is the fixed feature order. Training and scoring both depend
// on it; never reorder.
var Columns = []string{
	"recency",
	"num_orders",
	"total_spent",
	"avg_order_value",
	"std_order_value",
	"avg_installments",
	"cancel_rate",
	"avg_review",
}

// ReviewSentinel fills avg_review for customers with no reviews at all:
// the neutral midpoint of the 1-5 score range.
const ReviewSentinel = 3.0

// Matrix is the per-customer feature table. Rows in X, Y, CustomerKeys
// and ReviewObserved are parallel; ReviewObserved marks customers with
// at least one real review so sentinel rows can be excluded from
// review-based statistics.
type Matrix struct {
	Columns        []string
	CustomerKeys   []string
	X              [][]float64
	Y              []int
	ReviewObserved []bool
}

func (m *Matrix) Rows() int {
	return len(m.X)
}

// ColumnIndex returns the position of a named feature, or -1.
func (m *Matrix) ColumnIndex(name string) int {
	for i, c := range m.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

type orderAccumulator struct {
	total        float64
	canceled     bool
	installments int
	hasPayment   bool
	reviewScore  int
	hasReview    bool
}

type customerAccumulator struct {
	orders map[string]*orderAccumulator
}

// Build aggregates each labeled customer's records into one feature row.
// Only records at or before the cutoff contribute; nothing after the
// cutoff may influence any feature value. Customers labeled without any
// qualifying order (the never-purchased case) get the documented
// sentinels: zero counts and sums, the review midpoint, and the recency
// carried by their label.
func Build(records []consolidate.Record, labels map[string]churn.Label, cutoff time.Time) (*Matrix, error) {
	if len(labels) == 0 {
		return nil, fmt.Errorf("features: empty labeled set")
	}

	accumulators := make(map[string]*customerAccumulator, len(labels))
	for _, r := range records {
		if r.PurchaseTimestamp.After(cutoff) {
			continue
		}
		label, ok := labels[r.CustomerKey]
		if !ok || !label.OrderedBeforeCutoff {
			continue
		}
		acc := accumulators[r.CustomerKey]
		if acc == nil {
			acc = &customerAccumulator{orders: make(map[string]*orderAccumulator)}
			accumulators[r.CustomerKey] = acc
		}
		ord := acc.orders[r.OrderID]
		if ord == nil {
			ord = &orderAccumulator{
				canceled:     r.Canceled(),
				installments: r.Installments,
				hasPayment:   r.HasPayment,
				reviewScore:  r.ReviewScore,
				hasReview:    r.HasReview,
			}
			acc.orders[r.OrderID] = ord
		}
		ord.total += r.Price + r.FreightValue
	}

	keys := churn.SortedKeys(labels)
	m := &Matrix{
		Columns:        Columns,
		CustomerKeys:   make([]string, 0, len(keys)),
		X:              make([][]float64, 0, len(keys)),
		Y:              make([]int, 0, len(keys)),
		ReviewObserved: make([]bool, 0, len(keys)),
	}

	for _, key := range keys {
		label := labels[key]
		row, observed, err := featureRow(accumulators[key], label)
		if err != nil {
			return nil, fmt.Errorf("features: customer %s: %w", key, err)
		}
		m.CustomerKeys = append(m.CustomerKeys, key)
		m.X = append(m.X, row)
		m.ReviewObserved = append(m.ReviewObserved, observed)
		if label.Churned {
			m.Y = append(m.Y, 1)
		} else {
			m.Y = append(m.Y, 0)
		}
	}

	return m, nil
}

func featureRow(acc *customerAccumulator, label churn.Label) ([]float64, bool, error) {
	row := make([]float64, len(Columns))
	row[0] = label.RecencyDays
	row[7] = ReviewSentinel

	if acc == nil || len(acc.orders) == 0 {
		return row, false, nil
	}

	numOrders := float64(len(acc.orders))
	var totals, installmentCounts, reviewScores []float64
	var canceled int
	for _, ord := range acc.orders {
		totals = append(totals, ord.total)
		if ord.hasPayment {
			installmentCounts = append(installmentCounts, float64(ord.installments))
		} else {
			installmentCounts = append(installmentCounts, 0)
		}
		if ord.hasReview {
			reviewScores = append(reviewScores, float64(ord.reviewScore))
		}
		if ord.canceled {
			canceled++
		}
	}

	totalSpent, err := stats.Sum(totals)
	if err != nil {
		return nil, false, err
	}
	row[1] = numOrders
	row[2] = totalSpent
	row[3] = totalSpent / numOrders

	if len(totals) > 1 {
		std, err := stats.StandardDeviationSample(totals)
		if err != nil {
			return nil, false, err
		}
		row[4] = std
	}

	avgInstallments, err := stats.Mean(installmentCounts)
	if err != nil {
		return nil, false, err
	}
	row[5] = avgInstallments
	row[6] = float64(canceled) / numOrders

	observed := len(reviewScores) > 0
	if observed {
		avgReview, err := stats.Mean(reviewScores)
		if err != nil {
			return nil, false, err
		}
		row[7] = avgReview
	}

	for i, v := range row {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, false, fmt.Errorf("non-finite value in %s", Columns[i])
		}
	}
	return row, observed, nil
}
