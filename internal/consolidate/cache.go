package consolidate

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"
)

var cacheHeader = []string{
	"order_id", "item_seq", "customer_key", "purchase_timestamp", "status",
	"price", "freight_value", "payment_value", "installments", "has_payment",
	"review_score", "has_review", "product_id", "category_name", "seller_id",
}

const cacheTimeLayout = time.RFC3339Nano

// WriteCache writes the record set as a CSV artifact so later runs can
// skip the join. A cached set reloads to the exact records that produced
// it.
func WriteCache(path string, records []Record) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(cacheHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.OrderID,
			strconv.Itoa(r.ItemSeq),
			r.CustomerKey,
			r.PurchaseTimestamp.Format(cacheTimeLayout),
			r.Status,
			strconv.FormatFloat(r.Price, 'g', -1, 64),
			strconv.FormatFloat(r.FreightValue, 'g', -1, 64),
			strconv.FormatFloat(r.PaymentValue, 'g', -1, 64),
			strconv.Itoa(r.Installments),
			strconv.FormatBool(r.HasPayment),
			strconv.Itoa(r.ReviewScore),
			strconv.FormatBool(r.HasReview),
			r.ProductID,
			r.CategoryName,
			r.SellerID,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// ReadCache loads a record set previously written by WriteCache.
func ReadCache(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("consolidate: cache %s is empty", path)
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) != len(cacheHeader) {
			return nil, fmt.Errorf("consolidate: cache %s has malformed row", path)
		}
		itemSeq, err := strconv.Atoi(row[1])
		if err != nil {
			return nil, err
		}
		ts, err := time.Parse(cacheTimeLayout, row[3])
		if err != nil {
			return nil, err
		}
		price, err := strconv.ParseFloat(row[5], 64)
		if err != nil {
			return nil, err
		}
		freight, err := strconv.ParseFloat(row[6], 64)
		if err != nil {
			return nil, err
		}
		paymentValue, err := strconv.ParseFloat(row[7], 64)
		if err != nil {
			return nil, err
		}
		installments, err := strconv.Atoi(row[8])
		if err != nil {
			return nil, err
		}
		hasPayment, err := strconv.ParseBool(row[9])
		if err != nil {
			return nil, err
		}
		reviewScore, err := strconv.Atoi(row[10])
		if err != nil {
			return nil, err
		}
		hasReview, err := strconv.ParseBool(row[11])
		if err != nil {
			return nil, err
		}
		records = append(records, Record{
			OrderID:           row[0],
			ItemSeq:           itemSeq,
			CustomerKey:       row[2],
			PurchaseTimestamp: ts,
			Status:            row[4],
			Price:             price,
			FreightValue:      freight,
			PaymentValue:      paymentValue,
			Installments:      installments,
			HasPayment:        hasPayment,
			ReviewScore:       reviewScore,
			HasReview:         hasReview,
			ProductID:         row[12],
			CategoryName:      row[13],
			SellerID:          row[14],
		})
	}
	return records, nil
}
