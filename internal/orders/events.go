package orders

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const EventOrderCompleted = "OrderCompleted"

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"` // e.g., "pos-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // biasanya order_id
	Payload       json.RawMessage `json:"payload"`
}

type OrderCompletedPayload struct {
	OrderID       string          `json:"order_id"`
	CashierID     string          `json:"cashier_id"`
	TableID       *string         `json:"table_id,omitempty"`
	PaymentMethod PaymentMethod   `json:"payment_method"`
	ItemCount     int             `json:"item_count"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Tax           decimal.Decimal `json:"tax"`
	Total         decimal.Decimal `json:"total"`
	Timestamp     time.Time       `json:"timestamp"`
}

func NewEnvelope(eventType, producer, traceID, correlationID string, payload any) (Envelope, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: correlationID,
		Payload:       b,
	}, nil
}

func CompletedPayload(o Order) OrderCompletedPayload {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return OrderCompletedPayload{
		OrderID:       o.ID,
		CashierID:     o.CashierID,
		TableID:       o.TableID,
		PaymentMethod: o.PaymentMethod,
		ItemCount:     n,
		Subtotal:      o.Subtotal,
		Discount:      o.DiscountAmount,
		Tax:           o.Tax,
		Total:         o.Total,
		Timestamp:     o.Timestamp,
	}
}
