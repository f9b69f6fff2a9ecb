package dataset

import "time"

// Order statuses observed in the marketplace export.
const (
	StatusCreated     = "created"
	StatusApproved    = "approved"
	StatusInvoiced    = "invoiced"
	StatusProcessing  = "processing"
	StatusShipped     = "shipped"
	StatusDelivered   = "delivered"
	StatusCanceled    = "canceled"
	StatusUnavailable = "unavailable"
)

type Order struct {
	ID                    string
	CustomerID            string
	Status                string
	PurchaseTimestamp     time.Time
	ApprovedAt            time.Time
	DeliveredCustomerDate time.Time
	EstimatedDeliveryDate time.Time
}

type OrderItem struct {
	OrderID      string
	ItemSeq      int
	ProductID    string
	SellerID     string
	Price        float64
	FreightValue float64
}

type Payment struct {
	OrderID      string
	Sequential   int
	Type         string
	Installments int
	Value        float64
}

type Review struct {
	ID             string
	OrderID        string
	Score          int
	CreationDate   time.Time
	AnswerTimestamp time.Time
}

// Customer carries both the per-order id and the stable unique key.
// The same person gets a fresh CustomerID on every order; aggregation
// always groups by UniqueID.
type Customer struct {
	ID        string
	UniqueID  string
	ZipPrefix string
	City      string
	State     string
}

type Product struct {
	ID           string
	CategoryName string
}

type Seller struct {
	ID        string
	ZipPrefix string
	City      string
	State     string
}

type Geolocation struct {
	ZipPrefix string
	Lat       float64
	Lng       float64
	City      string
	State     string
}

type CategoryTranslation struct {
	Name        string
	NameEnglish string
}

// Tables holds one loaded snapshot of the raw relational datasets.
// It is never mutated after Load returns.
type Tables struct {
	Orders       []Order
	OrderItems   []OrderItem
	Payments     []Payment
	Reviews      []Review
	Customers    []Customer
	Products     []Product
	Sellers      []Seller
	Geolocations []Geolocation
	Translations []CategoryTranslation
}
