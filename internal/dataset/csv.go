package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// CSVSource reads the marketplace export files from a directory. File
// names follow the published dataset layout (olist_orders_dataset.csv and
// friends). The "dsn" for this source is the directory path.
type CSVSource struct {
	dir string
}

func (cs *CSVSource) Connect(dsn string) error {
	info, err := os.Stat(dsn)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("csv source: %s is not a directory", dsn)
	}
	cs.dir = dsn
	return nil
}

func (cs *CSVSource) Close() error {
	return nil
}

type csvTable struct {
	header map[string]int
	rows   [][]string
}

func (t *csvTable) field(row []string, name string) string {
	idx, ok := t.header[name]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

func readCSVFile(path string) (*csvTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv source: %s has no header row", path)
	}

	header := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		header[name] = i
	}
	return &csvTable{header: header, rows: records[1:]}, nil
}

func (cs *CSVSource) readTable(name string) (*csvTable, error) {
	return readCSVFile(filepath.Join(cs.dir, name))
}

func (cs *CSVSource) Load(ctx context.Context) (*Tables, error) {
	tables := &Tables{}

	t, err := cs.readTable("olist_orders_dataset.csv")
	if err != nil {
		return nil, err
	}
	for _, row := range t.rows {
		id := t.field(row, "order_id")
		if id == "" {
			return nil, &DataIntegrityError{Table: "orders", Key: "", Reason: "missing order_id"}
		}
		customerID := t.field(row, "customer_id")
		if customerID == "" {
			return nil, &DataIntegrityError{Table: "orders", Key: id, Reason: "missing customer_id"}
		}
		purchase, err := parseTimestamp("orders", id, t.field(row, "order_purchase_timestamp"))
		if err != nil {
			return nil, err
		}
		approved, err := parseOptionalTimestamp("orders", id, t.field(row, "order_approved_at"))
		if err != nil {
			return nil, err
		}
		delivered, err := parseOptionalTimestamp("orders", id, t.field(row, "order_delivered_customer_date"))
		if err != nil {
			return nil, err
		}
		estimated, err := parseOptionalTimestamp("orders", id, t.field(row, "order_estimated_delivery_date"))
		if err != nil {
			return nil, err
		}
		tables.Orders = append(tables.Orders, Order{
			ID:                    id,
			CustomerID:            customerID,
			Status:                t.field(row, "order_status"),
			PurchaseTimestamp:     purchase,
			ApprovedAt:            approved,
			DeliveredCustomerDate: delivered,
			EstimatedDeliveryDate: estimated,
		})
	}

	t, err = cs.readTable("olist_customers_dataset.csv")
	if err != nil {
		return nil, err
	}
	for _, row := range t.rows {
		id := t.field(row, "customer_id")
		unique := t.field(row, "customer_unique_id")
		if id == "" || unique == "" {
			return nil, &DataIntegrityError{Table: "customers", Key: id, Reason: "missing customer id or unique id"}
		}
		tables.Customers = append(tables.Customers, Customer{
			ID:        id,
			UniqueID:  unique,
			ZipPrefix: t.field(row, "customer_zip_code_prefix"),
			City:      t.field(row, "customer_city"),
			State:     t.field(row, "customer_state"),
		})
	}

	t, err = cs.readTable("olist_order_items_dataset.csv")
	if err != nil {
		return nil, err
	}
	for _, row := range t.rows {
		orderID := t.field(row, "order_id")
		if orderID == "" {
			return nil, &DataIntegrityError{Table: "order_items", Key: "", Reason: "missing order_id"}
		}
		seq, _ := strconv.Atoi(t.field(row, "order_item_id"))
		price, err := parseFloat("order_items", orderID, t.field(row, "price"))
		if err != nil {
			return nil, err
		}
		freight, err := parseFloat("order_items", orderID, t.field(row, "freight_value"))
		if err != nil {
			return nil, err
		}
		tables.OrderItems = append(tables.OrderItems, OrderItem{
			OrderID:      orderID,
			ItemSeq:      seq,
			ProductID:    t.field(row, "product_id"),
			SellerID:     t.field(row, "seller_id"),
			Price:        price,
			FreightValue: freight,
		})
	}

	t, err = cs.readTable("olist_order_payments_dataset.csv")
	if err != nil {
		return nil, err
	}
	for _, row := range t.rows {
		orderID := t.field(row, "order_id")
		if orderID == "" {
			return nil, &DataIntegrityError{Table: "payments", Key: "", Reason: "missing order_id"}
		}
		seq, _ := strconv.Atoi(t.field(row, "payment_sequential"))
		installments, _ := strconv.Atoi(t.field(row, "payment_installments"))
		value, err := parseFloat("payments", orderID, t.field(row, "payment_value"))
		if err != nil {
			return nil, err
		}
		tables.Payments = append(tables.Payments, Payment{
			OrderID:      orderID,
			Sequential:   seq,
			Type:         t.field(row, "payment_type"),
			Installments: installments,
			Value:        value,
		})
	}

	t, err = cs.readTable("olist_order_reviews_dataset.csv")
	if err != nil {
		return nil, err
	}
	for _, row := range t.rows {
		orderID := t.field(row, "order_id")
		if orderID == "" {
			return nil, &DataIntegrityError{Table: "reviews", Key: "", Reason: "missing order_id"}
		}
		score, _ := strconv.Atoi(t.field(row, "review_score"))
		creation, err := parseOptionalTimestamp("reviews", orderID, t.field(row, "review_creation_date"))
		if err != nil {
			return nil, err
		}
		answer, err := parseOptionalTimestamp("reviews", orderID, t.field(row, "review_answer_timestamp"))
		if err != nil {
			return nil, err
		}
		tables.Reviews = append(tables.Reviews, Review{
			ID:              t.field(row, "review_id"),
			OrderID:         orderID,
			Score:           score,
			CreationDate:    creation,
			AnswerTimestamp: answer,
		})
	}

	t, err = cs.readTable("olist_products_dataset.csv")
	if err != nil {
		return nil, err
	}
	for _, row := range t.rows {
		tables.Products = append(tables.Products, Product{
			ID:           t.field(row, "product_id"),
			CategoryName: t.field(row, "product_category_name"),
		})
	}

	t, err = cs.readTable("olist_sellers_dataset.csv")
	if err != nil {
		return nil, err
	}
	for _, row := range t.rows {
		tables.Sellers = append(tables.Sellers, Seller{
			ID:        t.field(row, "seller_id"),
			ZipPrefix: t.field(row, "seller_zip_code_prefix"),
			City:      t.field(row, "seller_city"),
			State:     t.field(row, "seller_state"),
		})
	}

	// Geolocation and the category translation are optional enrichment
	// tables; a missing file is tolerated.
	if t, err = cs.readTable("olist_geolocation_dataset.csv"); err == nil {
		for _, row := range t.rows {
			lat, _ := strconv.ParseFloat(t.field(row, "geolocation_lat"), 64)
			lng, _ := strconv.ParseFloat(t.field(row, "geolocation_lng"), 64)
			tables.Geolocations = append(tables.Geolocations, Geolocation{
				ZipPrefix: t.field(row, "geolocation_zip_code_prefix"),
				Lat:       lat,
				Lng:       lng,
				City:      t.field(row, "geolocation_city"),
				State:     t.field(row, "geolocation_state"),
			})
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	if t, err = cs.readTable("product_category_name_translation.csv"); err == nil {
		for _, row := range t.rows {
			tables.Translations = append(tables.Translations, CategoryTranslation{
				Name:        t.field(row, "product_category_name"),
				NameEnglish: t.field(row, "product_category_name_english"),
			})
		}
	} else if !os.IsNotExist(err) {
		return nil, err
	}

	return tables, nil
}

func parseFloat(table, key, value string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, &DataIntegrityError{Table: table, Key: key, Reason: fmt.Sprintf("unparseable number %q", value)}
	}
	return f, nil
}
