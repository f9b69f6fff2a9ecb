package dataset

import (
	"context"
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLSource loads the raw tables from a MySQL schema. The DSN must
// include parseTime=true so timestamp columns scan as time.Time.
type MySQLSource struct {
	db *sql.DB
}

func (ms *MySQLSource) Connect(dsn string) error {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return err
	}
	if err := db.Ping(); err != nil {
		return err
	}
	ms.db = db
	return nil
}

func (ms *MySQLSource) Close() error {
	return ms.db.Close()
}

func (ms *MySQLSource) Load(ctx context.Context) (*Tables, error) {
	tables := &Tables{}

	rows, err := ms.db.QueryContext(ctx, `SELECT order_id, customer_id, order_status, order_purchase_timestamp,
		order_approved_at, order_delivered_customer_date, order_estimated_delivery_date FROM orders`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var o Order
		var approved, delivered, estimated sql.NullTime
		if err := rows.Scan(&o.ID, &o.CustomerID, &o.Status, &o.PurchaseTimestamp, &approved, &delivered, &estimated); err != nil {
			rows.Close()
			return nil, err
		}
		o.ApprovedAt = nullableTime(approved)
		o.DeliveredCustomerDate = nullableTime(delivered)
		o.EstimatedDeliveryDate = nullableTime(estimated)
		tables.Orders = append(tables.Orders, o)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = ms.db.QueryContext(ctx, `SELECT customer_id, customer_unique_id, customer_zip_code_prefix,
		customer_city, customer_state FROM customers`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.UniqueID, &c.ZipPrefix, &c.City, &c.State); err != nil {
			rows.Close()
			return nil, err
		}
		tables.Customers = append(tables.Customers, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = ms.db.QueryContext(ctx, `SELECT order_id, order_item_id, product_id, seller_id, price, freight_value FROM order_items`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.OrderID, &it.ItemSeq, &it.ProductID, &it.SellerID, &it.Price, &it.FreightValue); err != nil {
			rows.Close()
			return nil, err
		}
		tables.OrderItems = append(tables.OrderItems, it)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = ms.db.QueryContext(ctx, `SELECT order_id, payment_sequential, payment_type, payment_installments, payment_value FROM payments`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.OrderID, &p.Sequential, &p.Type, &p.Installments, &p.Value); err != nil {
			rows.Close()
			return nil, err
		}
		tables.Payments = append(tables.Payments, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = ms.db.QueryContext(ctx, `SELECT review_id, order_id, review_score, review_creation_date, review_answer_timestamp FROM reviews`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var r Review
		var creation, answer sql.NullTime
		if err := rows.Scan(&r.ID, &r.OrderID, &r.Score, &creation, &answer); err != nil {
			rows.Close()
			return nil, err
		}
		r.CreationDate = nullableTime(creation)
		r.AnswerTimestamp = nullableTime(answer)
		tables.Reviews = append(tables.Reviews, r)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = ms.db.QueryContext(ctx, `SELECT product_id, COALESCE(product_category_name, '') FROM products`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.CategoryName); err != nil {
			rows.Close()
			return nil, err
		}
		tables.Products = append(tables.Products, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = ms.db.QueryContext(ctx, `SELECT seller_id, seller_zip_code_prefix, seller_city, seller_state FROM sellers`)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var s Seller
		if err := rows.Scan(&s.ID, &s.ZipPrefix, &s.City, &s.State); err != nil {
			rows.Close()
			return nil, err
		}
		tables.Sellers = append(tables.Sellers, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return tables, nil
}
