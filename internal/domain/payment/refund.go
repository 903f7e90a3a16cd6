package payment

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/example/pos-settlement/internal/backend"
	"github.com/example/pos-settlement/internal/infrastructure/journal"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidRefundAmount = errors.New("refund amount must be positive")

// RefundBackend is the backend's refund endpoint.
type RefundBackend interface {
	Refund(ctx context.Context, paymentID string, req backend.RefundRequest) (*backend.Refund, error)
}

// RefundCoordinator forwards refunds against settled payments. It keeps
// no cumulative bookkeeping: the backend is the sole authority on the
// remaining refundable balance, and its errors surface verbatim with no
// retry.
type RefundCoordinator struct {
	gw       RefundBackend
	recorder journal.Recorder
}

func NewRefundCoordinator(gw RefundBackend, recorder journal.Recorder) *RefundCoordinator {
	return &RefundCoordinator{gw: gw, recorder: recorder}
}

// Refund issues a refund for a payment. A nil amount requests a full
// refund; a provided amount is in major units and converted at the
// gateway boundary. Each call carries a fresh receipt note so the
// gateway side can deduplicate, but the coordinator itself does not.
func (rc *RefundCoordinator) Refund(ctx context.Context, paymentID string, amount *decimal.Decimal, invoiceID string) (*backend.Refund, error) {
	req := backend.RefundRequest{
		Speed:     "normal",
		InvoiceID: invoiceID,
		Notes:     map[string]string{"receipt": uuid.New().String()},
	}
	if amount != nil {
		if !amount.IsPositive() {
			return nil, ErrInvalidRefundAmount
		}
		minor := MinorUnits(*amount)
		req.Amount = &minor
	}

	refund, err := rc.gw.Refund(ctx, paymentID, req)
	if err != nil {
		return nil, fmt.Errorf("refund %s: %w", paymentID, err)
	}

	if rc.recorder != nil {
		if _, err := rc.recorder.Record(ctx, journal.EventRefundInitiated, paymentID, map[string]any{
			"refund_id":  refund.ID,
			"amount":     refund.Amount,
			"invoice_id": invoiceID,
		}); err != nil {
			log.Printf("[Refund] record %s: %v", journal.EventRefundInitiated, err)
		}
	}
	return refund, nil
}
