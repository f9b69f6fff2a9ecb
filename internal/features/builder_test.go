package features

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churn-pipeline/internal/churn"
	"churn-pipeline/internal/config"
	"churn-pipeline/internal/consolidate"
	"churn-pipeline/internal/dataset"
)

func day(n int) time.Time {
	return time.Date(2018, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func record(key, orderID string, purchase time.Time, price, freight float64) consolidate.Record {
	return consolidate.Record{
		OrderID:           orderID,
		ItemSeq:           1,
		CustomerKey:       key,
		PurchaseTimestamp: purchase,
		Status:            dataset.StatusDelivered,
		Price:             price,
		FreightValue:      freight,
	}
}

func buildMatrix(t *testing.T, records []consolidate.Record, cutoff time.Time) *Matrix {
	t.Helper()
	labels := churn.LabelCustomers(records, cutoff, 90, config.NeverPurchasedChurn)
	m, err := Build(records, labels, cutoff)
	require.NoError(t, err)
	return m
}

func rowFor(t *testing.T, m *Matrix, key string) []float64 {
	t.Helper()
	for i, k := range m.CustomerKeys {
		if k == key {
			return m.X[i]
		}
	}
	t.Fatalf("customer %s not in matrix", key)
	return nil
}

func TestBuildAggregates(t *testing.T) {
	r1 := record("A", "a1", day(0), 50, 10) // order total 100 with the second item
	r1b := record("A", "a1", day(0), 30, 10)
	r1b.ItemSeq = 2
	r2 := record("A", "a2", day(30), 180, 20) // order total 200

	r1.Installments = 3
	r1.HasPayment = true
	r1b.Installments = 3
	r1b.HasPayment = true
	r2.Installments = 1
	r2.HasPayment = true
	r1.ReviewScore = 4
	r1.HasReview = true
	r1b.ReviewScore = 4
	r1b.HasReview = true

	canceled := record("A", "a3", day(40), 100, 0)
	canceled.Status = dataset.StatusCanceled

	m := buildMatrix(t, []consolidate.Record{r1, r1b, r2, canceled}, day(100))
	row := rowFor(t, m, "A")

	assert.Equal(t, 60.0, row[0], "recency from last order at day 40")
	assert.Equal(t, 3.0, row[1], "num_orders")
	assert.Equal(t, 400.0, row[2], "total_spent")
	assert.InDelta(t, 400.0/3, row[3], 1e-9, "avg_order_value")
	assert.InDelta(t, 57.7350, row[4], 1e-3, "sample std of 100,200,100")
	assert.InDelta(t, 4.0/3, row[5], 1e-9, "avg installments over orders 3,1,0")
	assert.InDelta(t, 1.0/3, row[6], 1e-9, "cancel_rate")
	assert.Equal(t, 4.0, row[7], "avg_review from the single reviewed order")
	assert.True(t, m.ReviewObserved[0])
}

func TestBuildScenarioOrderCounts(t *testing.T) {
	records := []consolidate.Record{
		record("A", "a1", day(0), 10, 0),
		record("A", "a2", day(30), 10, 0),
		record("B", "b1", day(0), 10, 0),
	}

	m := buildMatrix(t, records, day(100))
	assert.Equal(t, 2.0, rowFor(t, m, "A")[1])
	assert.Equal(t, 1.0, rowFor(t, m, "B")[1])
	assert.Equal(t, 0.0, rowFor(t, m, "A")[4], "std_order_value is 0 only when totals agree")
	assert.Equal(t, 0.0, rowFor(t, m, "B")[4], "single order has zero std")
}

func TestBuildLeakageInvariant(t *testing.T) {
	base := []consolidate.Record{
		record("A", "a1", day(0), 50, 5),
		record("A", "a2", day(30), 70, 5),
		record("B", "b1", day(20), 40, 10),
	}
	cutoff := day(100)
	labels := churn.LabelCustomers(base, cutoff, 90, config.NeverPurchasedChurn)

	before, err := Build(base, labels, cutoff)
	require.NoError(t, err)

	// orders strictly after the cutoff must not move any feature
	leaky := append([]consolidate.Record{}, base...)
	leaky = append(leaky,
		record("A", "a9", day(101), 9999, 100),
		record("B", "b9", day(200), 5000, 50),
	)
	after, err := Build(leaky, labels, cutoff)
	require.NoError(t, err)

	assert.Equal(t, before.X, after.X)
	assert.Equal(t, before.Y, after.Y)
}

func TestBuildReviewSentinel(t *testing.T) {
	records := []consolidate.Record{record("A", "a1", day(0), 10, 0)}

	m := buildMatrix(t, records, day(100))
	assert.Equal(t, ReviewSentinel, rowFor(t, m, "A")[7])
	assert.False(t, m.ReviewObserved[0])
}

func TestBuildNeverPurchasedSentinels(t *testing.T) {
	// only order is after the cutoff; under the churn policy the
	// customer is labeled with sentinel features
	records := []consolidate.Record{record("A", "a1", day(150), 10, 0)}

	m := buildMatrix(t, records, day(100))
	row := rowFor(t, m, "A")
	assert.Equal(t, 91.0, row[0], "recency sentinel sits just past the threshold")
	assert.Equal(t, 0.0, row[1])
	assert.Equal(t, 0.0, row[2])
	assert.Equal(t, ReviewSentinel, row[7])
	assert.Equal(t, []int{1}, m.Y)
}

func TestBuildFixedColumnOrder(t *testing.T) {
	expected := []string{
		"recency", "num_orders", "total_spent", "avg_order_value",
		"std_order_value", "avg_installments", "cancel_rate", "avg_review",
	}
	assert.Equal(t, expected, Columns)
}
