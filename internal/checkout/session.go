package checkout

import (
	"errors"
	"sync"

	"github.com/example/pos-settlement/internal/backend"
	"github.com/example/pos-settlement/internal/domain/cart"
	"github.com/example/pos-settlement/internal/domain/payment"
	"github.com/example/pos-settlement/internal/domain/tax"
)

var ErrSettlementInFlight = errors.New("a settlement attempt is already in flight for this session")

// Session owns one operator's cart and at most one in-flight payment
// attempt. Cart and attempt state are never ambient: everything hangs
// off the session object.
type Session struct {
	ID   string
	Cart *cart.Store

	mu       sync.Mutex
	inFlight bool
	attempt  *payment.Attempt
	pending  *backend.InvoiceRequest
	totals   tax.Breakdown
}

// beginFlight claims the session for one settlement attempt. The
// orchestrator does not guard re-entry itself, so the session must.
func (s *Session) beginFlight() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight {
		return ErrSettlementInFlight
	}
	if s.attempt != nil && !s.attempt.State().Terminal() {
		return ErrSettlementInFlight
	}
	s.inFlight = true
	return nil
}

func (s *Session) endFlight() {
	s.mu.Lock()
	s.inFlight = false
	s.mu.Unlock()
}

// setAttempt parks a created attempt, its assembled invoice request and
// the breakdown the gateway order was priced from until a callback
// arrives. The cart keeps moving with the catalog; these do not.
func (s *Session) setAttempt(a *payment.Attempt, pending *backend.InvoiceRequest, totals tax.Breakdown) {
	s.mu.Lock()
	s.attempt = a
	s.pending = pending
	s.totals = totals
	s.mu.Unlock()
}

// currentAttempt returns the parked attempt, request and breakdown, or
// nil when no gateway flow is waiting on a callback.
func (s *Session) currentAttempt() (*payment.Attempt, *backend.InvoiceRequest, tax.Breakdown) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempt, s.pending, s.totals
}

func (s *Session) clearAttempt() {
	s.mu.Lock()
	s.attempt = nil
	s.pending = nil
	s.totals = tax.Breakdown{}
	s.mu.Unlock()
}
