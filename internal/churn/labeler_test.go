package churn

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churn-pipeline/internal/config"
	"churn-pipeline/internal/consolidate"
)

func day(n int) time.Time {
	return time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func order(key, orderID string, purchase time.Time) consolidate.Record {
	return consolidate.Record{
		OrderID:           orderID,
		ItemSeq:           1,
		CustomerKey:       key,
		PurchaseTimestamp: purchase,
	}
}

func TestLabelScenario(t *testing.T) {
	// cutoff at day 100, threshold 90: customer A ordered at day 0 and
	// day 30 (recency 70, retained), customer B only at day 0 (recency
	// 100, churned).
	records := []consolidate.Record{
		order("A", "a1", day(0)),
		order("A", "a2", day(30)),
		order("B", "b1", day(0)),
	}

	labels := LabelCustomers(records, day(100), 90, config.NeverPurchasedChurn)
	require.Len(t, labels, 2)

	a := labels["A"]
	assert.False(t, a.Churned)
	assert.Equal(t, 70.0, a.RecencyDays)
	assert.True(t, a.OrderedBeforeCutoff)

	b := labels["B"]
	assert.True(t, b.Churned)
	assert.Equal(t, 100.0, b.RecencyDays)
}

func TestLabelOrderExactlyAtCutoff(t *testing.T) {
	records := []consolidate.Record{order("A", "a1", day(100))}

	labels := LabelCustomers(records, day(100), 90, config.NeverPurchasedChurn)
	require.Len(t, labels, 1)
	assert.False(t, labels["A"].Churned)
	assert.Equal(t, 0.0, labels["A"].RecencyDays)
}

func TestLabelWithinThresholdBoundary(t *testing.T) {
	// recency exactly at the threshold is not churn; one day past is
	records := []consolidate.Record{
		order("edge", "e1", day(10)),
		order("past", "p1", day(9)),
	}

	labels := LabelCustomers(records, day(100), 90, config.NeverPurchasedChurn)
	assert.False(t, labels["edge"].Churned)
	assert.Equal(t, 90.0, labels["edge"].RecencyDays)
	assert.True(t, labels["past"].Churned)
	assert.Equal(t, 91.0, labels["past"].RecencyDays)
}

func TestLabelNeverPurchasedPolicies(t *testing.T) {
	// only order is after the cutoff
	records := []consolidate.Record{order("late", "l1", day(150))}

	labels := LabelCustomers(records, day(100), 90, config.NeverPurchasedChurn)
	require.Len(t, labels, 1)
	assert.True(t, labels["late"].Churned)
	assert.False(t, labels["late"].OrderedBeforeCutoff)
	assert.Equal(t, 91.0, labels["late"].RecencyDays)

	excluded := LabelCustomers(records, day(100), 90, config.NeverPurchasedExclude)
	assert.Empty(t, excluded)
}

func TestLabelRecencyNeverNegative(t *testing.T) {
	records := []consolidate.Record{
		order("A", "a1", day(40)),
		order("A", "a2", day(120)), // after cutoff, ignored for recency
		order("B", "b1", day(99)),
	}

	labels := LabelCustomers(records, day(100), 90, config.NeverPurchasedChurn)
	for key, label := range labels {
		assert.GreaterOrEqual(t, label.RecencyDays, 0.0, "customer %s", key)
		assert.Equal(t, label.RecencyDays > 90, label.Churned, "customer %s", key)
	}
	assert.Equal(t, 60.0, labels["A"].RecencyDays)
}

func TestDistribute(t *testing.T) {
	labels := map[string]Label{
		"a": {Churned: true},
		"b": {Churned: true},
		"c": {Churned: true},
		"d": {Churned: false},
	}

	dist := Distribute(labels)
	assert.Equal(t, 3, dist.Churned)
	assert.Equal(t, 1, dist.Retained)
	assert.Equal(t, 4, dist.TotalCount)
	assert.Equal(t, 0.75, dist.ChurnRate)
}

func TestSortedKeys(t *testing.T) {
	labels := map[string]Label{"c": {}, "a": {}, "b": {}}
	assert.Equal(t, []string{"a", "b", "c"}, SortedKeys(labels))
}
