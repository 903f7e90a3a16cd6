package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/pos-settlement/internal/backend"
	"github.com/shopspring/decimal"
)

var (
	ErrVerificationFailed = errors.New("backend did not attest the payment signature")
	ErrOrderMismatch      = errors.New("callback order id does not match the attempt")
)

// Gateway is the slice of the backend API the orchestrator drives.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency string, notes map[string]string) (*backend.GatewayOrder, error)
	VerifyPayment(ctx context.Context, req backend.VerifyRequest) (bool, error)
}

// SuccessCallback carries the gateway's client-reported success. It is
// untrusted until the backend verifies the signature.
type SuccessCallback struct {
	PaymentID string
	OrderID   string
	Signature string
}

// Orchestrator drives payment attempts through the gateway lifecycle.
// It guarantees that Verified is only ever reached after the backend's
// verification call returned a positive result.
type Orchestrator struct {
	gw       Gateway
	currency string
}

func NewOrchestrator(gw Gateway, currency string) *Orchestrator {
	return &Orchestrator{gw: gw, currency: currency}
}

var minorFactor = decimal.NewFromInt(100)

// MinorUnits converts a major-unit amount to integer minor units
// (amount x 100, rounded). Only amounts crossing the gateway boundary
// use this form.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(minorFactor).Round(0).IntPart()
}

// Start creates a gateway order for the given major-unit total and moves
// a fresh attempt to Created. An order-creation failure is fatal to the
// attempt; the failed attempt is returned alongside the error so callers
// can observe its terminal state.
func (o *Orchestrator) Start(ctx context.Context, total decimal.Decimal, contact Contact, notes map[string]string) (*Attempt, error) {
	a := newAttempt(contact)
	amount := MinorUnits(total)

	order, err := o.gw.CreateOrder(ctx, amount, o.currency, notes)
	if err != nil {
		a.mu.Lock()
		a.err = err
		_ = a.transition(StateFailed)
		a.mu.Unlock()
		return a, fmt.Errorf("create gateway order: %w", err)
	}

	a.mu.Lock()
	a.orderID = order.ID
	a.keyID = order.KeyID
	a.amountMinor = order.Amount
	a.currency = order.Currency
	err = a.transition(StateCreated)
	a.mu.Unlock()
	if err != nil {
		return a, err
	}
	return a, nil
}

// AwaitUser marks the hosted checkout UI as opened. The attempt now
// suspends indefinitely on user interaction; only the gateway callbacks
// move it on.
func (o *Orchestrator) AwaitUser(a *Attempt) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.transition(StateAwaitingUser)
}

// ConfirmSuccess handles the gateway's success callback: the attempt
// enters Verifying, the backend checks the signature, and only a positive
// answer reaches Verified. A negative answer or a verification transport
// error terminates the attempt as Failed — the money may have moved, but
// without an attestation the sale must not settle.
func (o *Orchestrator) ConfirmSuccess(ctx context.Context, a *Attempt, cb SuccessCallback) error {
	a.mu.Lock()
	if cb.OrderID != a.orderID {
		a.err = ErrOrderMismatch
		_ = a.transition(StateFailed)
		a.mu.Unlock()
		return ErrOrderMismatch
	}
	a.paymentID = cb.PaymentID
	a.signature = cb.Signature
	if err := a.transition(StateVerifying); err != nil {
		a.mu.Unlock()
		return err
	}
	a.mu.Unlock()

	ok, err := o.gw.VerifyPayment(ctx, backend.VerifyRequest{
		OrderID:   cb.OrderID,
		PaymentID: cb.PaymentID,
		Signature: cb.Signature,
	})

	a.mu.Lock()
	defer a.mu.Unlock()
	if err != nil {
		a.err = err
		_ = a.transition(StateFailed)
		return fmt.Errorf("verify payment: %w", err)
	}
	if !ok {
		a.err = ErrVerificationFailed
		_ = a.transition(StateFailed)
		return ErrVerificationFailed
	}
	return a.transition(StateVerified)
}

// Fail terminates a non-terminal attempt with the gateway's reported
// error.
func (o *Orchestrator) Fail(a *Attempt, cause error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.transition(StateFailed); err != nil {
		return err
	}
	a.err = cause
	return nil
}

// Dismiss records the user closing the hosted UI without paying. The
// underlying order is not retryable; a new attempt must create a fresh
// one.
func (o *Orchestrator) Dismiss(a *Attempt) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.transition(StateDismissed)
}
