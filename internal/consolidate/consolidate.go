// Package consolidate joins the raw marketplace tables into one
// denormalized order-item record set, the working unit for all
// downstream aggregation.
package consolidate

import (
	"sort"
	"time"

	"churn-pipeline/internal/dataset"
)

// Record is one (order, item) pairing after joining orders, customers,
// payments, reviews, products and sellers. Payment and review values are
// order-level and therefore repeat across an order's items; HasReview
// keeps review presence separate from the numeric score so that missing
// reviews never bias averages.
type Record struct {
	OrderID           string
	ItemSeq           int
	CustomerKey       string
	PurchaseTimestamp time.Time
	Status            string
	Price             float64
	FreightValue      float64
	PaymentValue      float64
	Installments      int
	HasPayment        bool
	ReviewScore       int
	HasReview         bool
	ProductID         string
	CategoryName      string
	SellerID          string
}

// Canceled reports whether the record's order was canceled.
func (r Record) Canceled() bool {
	return r.Status == dataset.StatusCanceled
}

type orderPayment struct {
	value        float64
	installments int
}

// Consolidate builds the denormalized record set. Orders without items
// are dropped (no transaction took place); orders without a payment row
// carry a zero payment value; orders without a review carry
// HasReview=false. A missing customer row for an order is a broken
// foreign key and fails the run. Output order is deterministic: sorted
// by (order id, item sequence).
func Consolidate(t *dataset.Tables) ([]Record, error) {
	customersByID := make(map[string]dataset.Customer, len(t.Customers))
	for _, c := range t.Customers {
		customersByID[c.ID] = c
	}

	itemsByOrder := make(map[string][]dataset.OrderItem, len(t.Orders))
	for _, it := range t.OrderItems {
		itemsByOrder[it.OrderID] = append(itemsByOrder[it.OrderID], it)
	}

	// A split payment produces several rows per order; the order-level
	// value is their sum and the installment count the largest plan.
	paymentsByOrder := make(map[string]orderPayment)
	for _, p := range t.Payments {
		agg := paymentsByOrder[p.OrderID]
		agg.value += p.Value
		if p.Installments > agg.installments {
			agg.installments = p.Installments
		}
		paymentsByOrder[p.OrderID] = agg
	}

	// Last review wins on duplicates, judged by creation date.
	reviewsByOrder := make(map[string]dataset.Review)
	for _, r := range t.Reviews {
		prev, ok := reviewsByOrder[r.OrderID]
		if !ok || r.CreationDate.After(prev.CreationDate) {
			reviewsByOrder[r.OrderID] = r
		}
	}

	productsByID := make(map[string]dataset.Product, len(t.Products))
	for _, p := range t.Products {
		productsByID[p.ID] = p
	}
	translations := make(map[string]string, len(t.Translations))
	for _, tr := range t.Translations {
		translations[tr.Name] = tr.NameEnglish
	}

	var records []Record
	for _, order := range t.Orders {
		items := itemsByOrder[order.ID]
		if len(items) == 0 {
			continue
		}

		customer, ok := customersByID[order.CustomerID]
		if !ok {
			return nil, &dataset.DataIntegrityError{
				Table:  "orders",
				Key:    order.ID,
				Reason: "customer_id " + order.CustomerID + " has no customer row",
			}
		}

		payment, hasPayment := paymentsByOrder[order.ID]
		review, hasReview := reviewsByOrder[order.ID]

		for _, it := range items {
			rec := Record{
				OrderID:           order.ID,
				ItemSeq:           it.ItemSeq,
				CustomerKey:       customer.UniqueID,
				PurchaseTimestamp: order.PurchaseTimestamp,
				Status:            order.Status,
				Price:             it.Price,
				FreightValue:      it.FreightValue,
				ProductID:         it.ProductID,
				SellerID:          it.SellerID,
			}
			if hasPayment {
				rec.PaymentValue = payment.value
				rec.Installments = payment.installments
				rec.HasPayment = true
			}
			if hasReview {
				rec.ReviewScore = review.Score
				rec.HasReview = true
			}
			if product, ok := productsByID[it.ProductID]; ok {
				rec.CategoryName = product.CategoryName
				if english, ok := translations[product.CategoryName]; ok {
					rec.CategoryName = english
				}
			}
			records = append(records, rec)
		}
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].OrderID != records[j].OrderID {
			return records[i].OrderID < records[j].OrderID
		}
		return records[i].ItemSeq < records[j].ItemSeq
	})

	return records, nil
}
