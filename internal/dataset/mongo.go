package dataset

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const mongoDatabase = "marketplace"

// MongoSource loads the raw tables from a MongoDB database where each
// export file lives in a collection of the same shape.
type MongoSource struct {
	client *mongo.Client
}

func (md *MongoSource) Connect(dsn string) error {
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(dsn))
	if err != nil {
		return err
	}
	md.client = client
	return nil
}

func (md *MongoSource) Close() error {
	return md.client.Disconnect(context.Background())
}

type mongoOrder struct {
	ID                    string     `bson:"_id"`
	CustomerID            string     `bson:"customer_id"`
	Status                string     `bson:"order_status"`
	PurchaseTimestamp     time.Time  `bson:"order_purchase_timestamp"`
	ApprovedAt            *time.Time `bson:"order_approved_at"`
	DeliveredCustomerDate *time.Time `bson:"order_delivered_customer_date"`
	EstimatedDeliveryDate *time.Time `bson:"order_estimated_delivery_date"`
}

type mongoCustomer struct {
	ID        string `bson:"_id"`
	UniqueID  string `bson:"customer_unique_id"`
	ZipPrefix string `bson:"customer_zip_code_prefix"`
	City      string `bson:"customer_city"`
	State     string `bson:"customer_state"`
}

type mongoOrderItem struct {
	OrderID      string  `bson:"order_id"`
	ItemSeq      int     `bson:"order_item_id"`
	ProductID    string  `bson:"product_id"`
	SellerID     string  `bson:"seller_id"`
	Price        float64 `bson:"price"`
	FreightValue float64 `bson:"freight_value"`
}

type mongoPayment struct {
	OrderID      string  `bson:"order_id"`
	Sequential   int     `bson:"payment_sequential"`
	Type         string  `bson:"payment_type"`
	Installments int     `bson:"payment_installments"`
	Value        float64 `bson:"payment_value"`
}

type mongoReview struct {
	ID              string     `bson:"_id"`
	OrderID         string     `bson:"order_id"`
	Score           int        `bson:"review_score"`
	CreationDate    *time.Time `bson:"review_creation_date"`
	AnswerTimestamp *time.Time `bson:"review_answer_timestamp"`
}

type mongoProduct struct {
	ID           string `bson:"_id"`
	CategoryName string `bson:"product_category_name"`
}

type mongoSeller struct {
	ID        string `bson:"_id"`
	ZipPrefix string `bson:"seller_zip_code_prefix"`
	City      string `bson:"seller_city"`
	State     string `bson:"seller_state"`
}

func derefTime(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func loadCollection[T any](ctx context.Context, client *mongo.Client, name string) ([]T, error) {
	cursor, err := client.Database(mongoDatabase).Collection(name).Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []T
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	return docs, nil
}

func (md *MongoSource) Load(ctx context.Context) (*Tables, error) {
	tables := &Tables{}

	orders, err := loadCollection[mongoOrder](ctx, md.client, "orders")
	if err != nil {
		return nil, err
	}
	for _, o := range orders {
		tables.Orders = append(tables.Orders, Order{
			ID:                    o.ID,
			CustomerID:            o.CustomerID,
			Status:                o.Status,
			PurchaseTimestamp:     o.PurchaseTimestamp,
			ApprovedAt:            derefTime(o.ApprovedAt),
			DeliveredCustomerDate: derefTime(o.DeliveredCustomerDate),
			EstimatedDeliveryDate: derefTime(o.EstimatedDeliveryDate),
		})
	}

	customers, err := loadCollection[mongoCustomer](ctx, md.client, "customers")
	if err != nil {
		return nil, err
	}
	for _, c := range customers {
		tables.Customers = append(tables.Customers, Customer{
			ID:        c.ID,
			UniqueID:  c.UniqueID,
			ZipPrefix: c.ZipPrefix,
			City:      c.City,
			State:     c.State,
		})
	}

	items, err := loadCollection[mongoOrderItem](ctx, md.client, "order_items")
	if err != nil {
		return nil, err
	}
	for _, it := range items {
		tables.OrderItems = append(tables.OrderItems, OrderItem{
			OrderID:      it.OrderID,
			ItemSeq:      it.ItemSeq,
			ProductID:    it.ProductID,
			SellerID:     it.SellerID,
			Price:        it.Price,
			FreightValue: it.FreightValue,
		})
	}

	payments, err := loadCollection[mongoPayment](ctx, md.client, "payments")
	if err != nil {
		return nil, err
	}
	for _, p := range payments {
		tables.Payments = append(tables.Payments, Payment{
			OrderID:      p.OrderID,
			Sequential:   p.Sequential,
			Type:         p.Type,
			Installments: p.Installments,
			Value:        p.Value,
		})
	}

	reviews, err := loadCollection[mongoReview](ctx, md.client, "reviews")
	if err != nil {
		return nil, err
	}
	for _, r := range reviews {
		tables.Reviews = append(tables.Reviews, Review{
			ID:              r.ID,
			OrderID:         r.OrderID,
			Score:           r.Score,
			CreationDate:    derefTime(r.CreationDate),
			AnswerTimestamp: derefTime(r.AnswerTimestamp),
		})
	}

	products, err := loadCollection[mongoProduct](ctx, md.client, "products")
	if err != nil {
		return nil, err
	}
	for _, p := range products {
		tables.Products = append(tables.Products, Product{ID: p.ID, CategoryName: p.CategoryName})
	}

	sellers, err := loadCollection[mongoSeller](ctx, md.client, "sellers")
	if err != nil {
		return nil, err
	}
	for _, s := range sellers {
		tables.Sellers = append(tables.Sellers, Seller{ID: s.ID, ZipPrefix: s.ZipPrefix, City: s.City, State: s.State})
	}

	return tables, nil
}
