package dataset

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFixture(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func writeValidFixtures(t *testing.T, dir string) {
	writeFixture(t, dir, "olist_orders_dataset.csv",
		"order_id,customer_id,order_status,order_purchase_timestamp,order_approved_at,order_delivered_customer_date,order_estimated_delivery_date\n"+
			"o1,c1,delivered,2018-01-10 09:15:00,2018-01-10 10:00:00,2018-01-20 18:00:00,2018-01-25 00:00:00\n"+
			"o2,c2,canceled,2018-02-01 14:00:00,,,\n")
	writeFixture(t, dir, "olist_customers_dataset.csv",
		"customer_id,customer_unique_id,customer_zip_code_prefix,customer_city,customer_state\n"+
			"c1,u1,01310,sao paulo,SP\n"+
			"c2,u2,20040,rio de janeiro,RJ\n")
	writeFixture(t, dir, "olist_order_items_dataset.csv",
		"order_id,order_item_id,product_id,seller_id,shipping_limit_date,price,freight_value\n"+
			"o1,1,p1,s1,2018-01-12 00:00:00,59.90,12.50\n"+
			"o2,1,p2,s1,2018-02-03 00:00:00,120.00,20.00\n")
	writeFixture(t, dir, "olist_order_payments_dataset.csv",
		"order_id,payment_sequential,payment_type,payment_installments,payment_value\n"+
			"o1,1,credit_card,3,72.40\n")
	writeFixture(t, dir, "olist_order_reviews_dataset.csv",
		"review_id,order_id,review_score,review_comment_title,review_comment_message,review_creation_date,review_answer_timestamp\n"+
			"r1,o1,5,,,2018-01-21 00:00:00,2018-01-22 08:00:00\n")
	writeFixture(t, dir, "olist_products_dataset.csv",
		"product_id,product_category_name\n"+
			"p1,informatica_acessorios\n"+
			"p2,moveis_decoracao\n")
	writeFixture(t, dir, "olist_sellers_dataset.csv",
		"seller_id,seller_zip_code_prefix,seller_city,seller_state\n"+
			"s1,13023,campinas,SP\n")
}

func TestCSVSourceLoad(t *testing.T) {
	dir := t.TempDir()
	writeValidFixtures(t, dir)

	src := &CSVSource{}
	require.NoError(t, src.Connect(dir))
	defer src.Close()

	tables, err := src.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, tables.Orders, 2)
	assert.Equal(t, "o1", tables.Orders[0].ID)
	assert.Equal(t, "delivered", tables.Orders[0].Status)
	assert.Equal(t, 2018, tables.Orders[0].PurchaseTimestamp.Year())
	assert.True(t, tables.Orders[1].DeliveredCustomerDate.IsZero())

	require.Len(t, tables.Customers, 2)
	assert.Equal(t, "u1", tables.Customers[0].UniqueID)

	require.Len(t, tables.OrderItems, 2)
	assert.Equal(t, 59.90, tables.OrderItems[0].Price)
	assert.Equal(t, 12.50, tables.OrderItems[0].FreightValue)

	require.Len(t, tables.Payments, 1)
	assert.Equal(t, 3, tables.Payments[0].Installments)

	require.Len(t, tables.Reviews, 1)
	assert.Equal(t, 5, tables.Reviews[0].Score)

	require.Len(t, tables.Products, 2)
	require.Len(t, tables.Sellers, 1)

	// enrichment files are absent, which is tolerated
	assert.Empty(t, tables.Geolocations)
	assert.Empty(t, tables.Translations)
}

func TestCSVSourceUnparseableTimestamp(t *testing.T) {
	dir := t.TempDir()
	writeValidFixtures(t, dir)
	writeFixture(t, dir, "olist_orders_dataset.csv",
		"order_id,customer_id,order_status,order_purchase_timestamp\n"+
			"o1,c1,delivered,not-a-date\n")

	src := &CSVSource{}
	require.NoError(t, src.Connect(dir))

	_, err := src.Load(context.Background())
	require.Error(t, err)
	var integrity *DataIntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, "orders", integrity.Table)
	assert.Equal(t, "o1", integrity.Key)
}

func TestCSVSourceMissingJoinKey(t *testing.T) {
	dir := t.TempDir()
	writeValidFixtures(t, dir)
	writeFixture(t, dir, "olist_orders_dataset.csv",
		"order_id,customer_id,order_status,order_purchase_timestamp\n"+
			"o1,,delivered,2018-01-10 09:15:00\n")

	src := &CSVSource{}
	require.NoError(t, src.Connect(dir))

	_, err := src.Load(context.Background())
	var integrity *DataIntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, "orders", integrity.Table)
}

func TestCSVSourceConnectRejectsFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plain.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	src := &CSVSource{}
	assert.Error(t, src.Connect(path))
}
