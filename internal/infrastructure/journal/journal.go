package journal

import (
	"context"
	"encoding/json"
	"time"
)

// Settlement event types carried on the journal and the event stream.
const (
	EventPaymentCreated    = "payment.created"
	EventPaymentVerified   = "payment.verified"
	EventInvoiceSettled    = "invoice.settled"
	EventPaymentOrphaned   = "payment.orphaned"
	EventPaymentReconciled = "payment.reconciled"
	EventRefundInitiated   = "refund.initiated"
)

// Event is one journaled settlement fact, keyed by the gateway payment
// id when one exists.
type Event struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	PaymentID string          `json:"payment_id,omitempty"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Recorder appends settlement events to the journal and, when wired,
// publishes them on the event stream.
type Recorder interface {
	Record(ctx context.Context, eventType, paymentID string, data any) (*Event, error)
}

// Orphan statuses.
const (
	OrphanPending   = "pending"
	OrphanResolved  = "resolved"
	OrphanAbandoned = "abandoned"
)

// Orphan is a verified payment whose invoice creation failed. It carries
// the fully-assembled invoice request so reconciliation can retry it
// without re-resolving the cart or customer.
type Orphan struct {
	PaymentID      string          `json:"payment_id"`
	OrderID        string          `json:"order_id"`
	AmountMinor    int64           `json:"amount_minor"`
	InvoiceRequest json.RawMessage `json:"invoice_request"`
	Status         string          `json:"status"`
	Attempts       int             `json:"attempts"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// OrphanStore keeps orphaned payments until reconciliation resolves or
// abandons them. Saving an orphan whose payment id is already present is
// a no-op, so duplicate captures are harmless.
type OrphanStore interface {
	SaveOrphan(ctx context.Context, o *Orphan) error
	GetOrphan(ctx context.Context, paymentID string) (*Orphan, error)
	PendingOrphans(ctx context.Context) ([]Orphan, error)
	MarkOrphan(ctx context.Context, paymentID, status string, attempts int) error
}
