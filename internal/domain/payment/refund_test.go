package payment

import (
	"context"
	"testing"

	"github.com/example/pos-settlement/internal/backend"
	"github.com/example/pos-settlement/internal/infrastructure/journal"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRefundBackend struct {
	refund *backend.Refund
	err    error

	paymentID string
	req       backend.RefundRequest
	calls     int
}

func (f *fakeRefundBackend) Refund(ctx context.Context, paymentID string, req backend.RefundRequest) (*backend.Refund, error) {
	f.calls++
	f.paymentID = paymentID
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return f.refund, nil
}

func TestRefundCoordinator_FullRefundByDefault(t *testing.T) {
	gw := &fakeRefundBackend{refund: &backend.Refund{ID: "rfnd_1", PaymentID: "pay_1", Amount: 23600, Status: "processed"}}
	rc := NewRefundCoordinator(gw, nil)

	refund, err := rc.Refund(context.Background(), "pay_1", nil, "")

	require.NoError(t, err)
	assert.Equal(t, "pay_1", gw.paymentID)
	// No amount on the wire means the backend refunds the full settled amount.
	assert.Nil(t, gw.req.Amount)
	assert.Equal(t, int64(23600), refund.Amount)
	assert.NotEmpty(t, gw.req.Notes["receipt"])
}

func TestRefundCoordinator_PartialRefundInMinorUnits(t *testing.T) {
	gw := &fakeRefundBackend{refund: &backend.Refund{ID: "rfnd_2", PaymentID: "pay_1", Amount: 5000}}
	rc := NewRefundCoordinator(gw, nil)

	amount := decimal.NewFromInt(50)
	_, err := rc.Refund(context.Background(), "pay_1", &amount, "inv_9")

	require.NoError(t, err)
	require.NotNil(t, gw.req.Amount)
	assert.Equal(t, int64(5000), *gw.req.Amount)
	assert.Equal(t, "inv_9", gw.req.InvoiceID)
}

func TestRefundCoordinator_NonPositiveAmountRejected(t *testing.T) {
	gw := &fakeRefundBackend{}
	rc := NewRefundCoordinator(gw, nil)

	zero := decimal.Zero
	_, err := rc.Refund(context.Background(), "pay_1", &zero, "")

	assert.ErrorIs(t, err, ErrInvalidRefundAmount)
	assert.Zero(t, gw.calls)
}

func TestRefundCoordinator_JournalsInitiatedRefund(t *testing.T) {
	gw := &fakeRefundBackend{refund: &backend.Refund{ID: "rfnd_3", PaymentID: "pay_2", Amount: 1000}}
	jrnl := journal.NewMemoryJournal(nil)
	rc := NewRefundCoordinator(gw, jrnl)

	amount := decimal.NewFromInt(10)
	_, err := rc.Refund(context.Background(), "pay_2", &amount, "inv_3")

	require.NoError(t, err)
	events := jrnl.Events()
	require.Len(t, events, 1)
	assert.Equal(t, journal.EventRefundInitiated, events[0].Type)
	assert.Equal(t, "pay_2", events[0].PaymentID)
}

func TestRefundCoordinator_BackendErrorSurfacedNoRetry(t *testing.T) {
	// The backend rejects an over-amount refund; the coordinator must not
	// cap it silently or retry.
	gw := &fakeRefundBackend{err: &backend.APIError{StatusCode: 400, Message: "refund amount exceeds captured amount"}}
	rc := NewRefundCoordinator(gw, nil)

	amount := decimal.NewFromInt(999999)
	refund, err := rc.Refund(context.Background(), "pay_1", &amount, "")

	require.Error(t, err)
	assert.Nil(t, refund)
	assert.ErrorContains(t, err, "exceeds captured amount")
	assert.Equal(t, 1, gw.calls)
}
