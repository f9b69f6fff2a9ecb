// Package churn derives the per-customer churn label from the
// consolidated record set. The label defined here is the single source
// of ground truth for the rest of the pipeline.
package churn

import (
	"sort"
	"time"

	"churn-pipeline/internal/config"
	"churn-pipeline/internal/consolidate"
)

const hoursPerDay = 24

// Label is the churn verdict for one customer key relative to a cutoff.
// RecencyDays is measured from the customer's last order at or before
// the cutoff; for customers with no such order it is set to
// threshold+1, the smallest value consistent with the churned verdict.
type Label struct {
	CustomerKey         string
	Churned             bool
	RecencyDays         float64
	OrderedBeforeCutoff bool
}

// Distribution summarizes the labeled set.
type Distribution struct {
	Churned    int
	Retained   int
	ChurnRate  float64
	TotalCount int
}

// LabelCustomers labels every customer key that appears in the record
// set. A customer is churned when the days between the cutoff and their
// last order at or before the cutoff exceed the threshold, or when they
// have no order at or before the cutoff at all (subject to the
// never-purchased policy). An order exactly at the cutoff means recency
// zero, not churned. Customers with no orders at all have no records and
// therefore never enter the labeled set.
func LabelCustomers(records []consolidate.Record, cutoff time.Time, thresholdDays int, policy config.NeverPurchasedPolicy) map[string]Label {
	type activity struct {
		lastBefore time.Time
		hasBefore  bool
	}

	byCustomer := make(map[string]*activity)
	for _, r := range records {
		act := byCustomer[r.CustomerKey]
		if act == nil {
			act = &activity{}
			byCustomer[r.CustomerKey] = act
		}
		if !r.PurchaseTimestamp.After(cutoff) {
			if !act.hasBefore || r.PurchaseTimestamp.After(act.lastBefore) {
				act.lastBefore = r.PurchaseTimestamp
				act.hasBefore = true
			}
		}
	}

	labels := make(map[string]Label, len(byCustomer))
	for key, act := range byCustomer {
		if !act.hasBefore {
			if policy == config.NeverPurchasedExclude {
				continue
			}
			labels[key] = Label{
				CustomerKey: key,
				Churned:     true,
				RecencyDays: float64(thresholdDays + 1),
			}
			continue
		}
		recency := cutoff.Sub(act.lastBefore).Hours() / hoursPerDay
		labels[key] = Label{
			CustomerKey:         key,
			Churned:             recency > float64(thresholdDays),
			RecencyDays:         recency,
			OrderedBeforeCutoff: true,
		}
	}
	return labels
}

// Distribute counts the labeled set.
func Distribute(labels map[string]Label) Distribution {
	d := Distribution{TotalCount: len(labels)}
	for _, l := range labels {
		if l.Churned {
			d.Churned++
		} else {
			d.Retained++
		}
	}
	if d.TotalCount > 0 {
		d.ChurnRate = float64(d.Churned) / float64(d.TotalCount)
	}
	return d
}

// SortedKeys returns the labeled customer keys in a stable order.
func SortedKeys(labels map[string]Label) []string {
	keys := make([]string, 0, len(labels))
	for key := range labels {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
