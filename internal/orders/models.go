package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Product struct {
	ID          string          `json:"id"`
	CategoryID  string          `json:"category_id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	IsAvailable bool            `json:"is_available"`
}

type Table struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Status TableStatus `json:"status"` // lihat status.go
}

// CartLine is a product snapshot plus its own line id, so the same product
// may appear on more than one line.
type CartLine struct {
	Product
	LineID   string `json:"line_id"`
	Quantity int    `json:"quantity"`
}

// Amount is price x quantity for the line.
func (l CartLine) Amount() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type PaymentMethod string

const (
	PaymentCash PaymentMethod = "CASH"
	PaymentCard PaymentMethod = "CARD"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCash || m == PaymentCard
}

// Order is immutable once created.
type Order struct {
	ID              string          `json:"id"`
	ExternalID      string          `json:"external_id,omitempty"`
	TableID         *string         `json:"table_id"`
	TableName       *string         `json:"table_name"`
	Items           []CartLine      `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	DiscountAmount  decimal.Decimal `json:"discount_amount"`
	Tax             decimal.Decimal `json:"tax"`
	Total           decimal.Decimal `json:"total"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	Timestamp       time.Time       `json:"timestamp"`
	CashierID       string          `json:"cashier_id"`
	Status          OrderStatus     `json:"status"`
}

// Totals returns the stored figures without recomputing them.
func (o Order) Totals() Totals {
	return Totals{
		Subtotal:       o.Subtotal,
		DiscountAmount: o.DiscountAmount,
		Tax:            o.Tax,
		Total:          o.Total,
	}
}
