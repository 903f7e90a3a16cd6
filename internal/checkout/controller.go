package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/example/pos-settlement/internal/backend"
	"github.com/example/pos-settlement/internal/domain/cart"
	"github.com/example/pos-settlement/internal/domain/catalog"
	"github.com/example/pos-settlement/internal/domain/invoice"
	"github.com/example/pos-settlement/internal/domain/payment"
	"github.com/example/pos-settlement/internal/domain/tax"
	"github.com/example/pos-settlement/internal/infrastructure/journal"
	"github.com/shopspring/decimal"
)

// Method is the declared way a sale is paid.
type Method string

const (
	MethodGateway       Method = "gateway"
	MethodCash          Method = "cash"
	MethodPayOnDelivery Method = "pay-on-delivery"
	MethodBankTransfer  Method = "bank-transfer"
)

func (m Method) usesGateway() bool { return m == MethodGateway }

// paidInFullOnCheckout says whether an offline method collects the full
// amount at the counter.
func (m Method) paidInFullOnCheckout() bool {
	return m == MethodCash || m == MethodBankTransfer
}

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrCustomerRequired   = errors.New("customer name is required for offline sales")
	ErrUnknownMethod      = errors.New("unknown payment method")
	ErrNoActiveAttempt    = errors.New("no payment attempt is awaiting a gateway callback")
	ErrPaidAmountTooLarge = errors.New("paid amount exceeds the grand total")

	// ErrSettlementIncomplete marks a verified payment whose invoice
	// could not be created. The payment is journaled for reconciliation;
	// the operator must not re-charge the customer.
	ErrSettlementIncomplete = errors.New("payment verified but invoice creation failed; queued for reconciliation")
)

// InvoiceBackend creates invoices on the business-data backend.
type InvoiceBackend interface {
	CreateInvoice(ctx context.Context, req backend.InvoiceRequest) (*backend.Invoice, error)
}

// Refresher re-pulls a snapshot collection from the backend after a
// settled sale.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Input is one checkout request from the operator.
type Input struct {
	Method     Method                `json:"method"`
	Customer   invoice.CustomerInput `json:"customer"`
	PaidAmount *decimal.Decimal      `json:"paid_amount,omitempty"`
}

// Receipt is the caller-visible outcome of a settled sale.
type Receipt struct {
	InvoiceID        string          `json:"invoice_id"`
	InvoiceNumber    string          `json:"invoice_number"`
	Method           Method          `json:"method"`
	Source           string          `json:"source"`
	Totals           tax.Breakdown   `json:"totals"`
	PaidAmount       decimal.Decimal `json:"paid_amount"`
	GatewayOrderID   string          `json:"gateway_order_id,omitempty"`
	GatewayPaymentID string          `json:"gateway_payment_id,omitempty"`
}

// Result is what BeginCheckout returns: a receipt for offline methods,
// or the checkout parameters the hosted gateway UI needs for online
// ones.
type Result struct {
	Receipt *Receipt                `json:"receipt,omitempty"`
	Payment *payment.CheckoutParams `json:"payment,omitempty"`
}

// Controller sequences assembly, payment and invoice creation for every
// sale, one session per operator.
type Controller struct {
	products  *catalog.Store
	assembler *invoice.Assembler
	invoices  InvoiceBackend
	payments  *payment.Orchestrator

	recorder   journal.Recorder
	orphans    journal.OrphanStore
	refreshers []Refresher

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewController(
	products *catalog.Store,
	assembler *invoice.Assembler,
	invoices InvoiceBackend,
	payments *payment.Orchestrator,
	recorder journal.Recorder,
	orphans journal.OrphanStore,
	refreshers ...Refresher,
) *Controller {
	return &Controller{
		products:   products,
		assembler:  assembler,
		invoices:   invoices,
		payments:   payments,
		recorder:   recorder,
		orphans:    orphans,
		refreshers: refreshers,
		sessions:   make(map[string]*Session),
	}
}

// Session returns the checkout session for an operator, creating it on
// first use with a cart bound to the live catalog.
func (c *Controller) Session(id string) *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sessions[id]; ok {
		return s
	}
	s := &Session{ID: id, Cart: cart.NewStore(c.products)}
	c.sessions[id] = s
	return s
}

// BeginCheckout validates the cart, resolves the customer and either
// settles an offline sale immediately or opens a gateway attempt. Any
// failure before invoice creation leaves the cart exactly as it was.
func (c *Controller) BeginCheckout(ctx context.Context, sessionID string, in Input) (*Result, error) {
	sess := c.Session(sessionID)

	if err := validateInput(in); err != nil {
		return nil, err
	}
	if sess.Cart.IsEmpty() {
		return nil, ErrEmptyCart
	}
	if err := sess.beginFlight(); err != nil {
		return nil, err
	}

	lines, totals := sess.Cart.Resolve()
	if len(lines) == 0 {
		sess.endFlight()
		return nil, ErrEmptyCart
	}
	if in.PaidAmount != nil && in.PaidAmount.GreaterThan(totals.Total) {
		sess.endFlight()
		return nil, ErrPaidAmountTooLarge
	}

	if in.Method.usesGateway() {
		return c.beginGateway(ctx, sess, in, lines, totals)
	}
	return c.settleOffline(ctx, sess, in, lines, totals)
}

func validateInput(in Input) error {
	switch in.Method {
	case MethodGateway:
		return nil
	case MethodCash, MethodPayOnDelivery, MethodBankTransfer:
		if strings.TrimSpace(in.Customer.Name) == "" {
			return ErrCustomerRequired
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownMethod, in.Method)
	}
}

func (c *Controller) settleOffline(ctx context.Context, sess *Session, in Input, lines []cart.ResolvedLine, totals tax.Breakdown) (*Result, error) {
	defer sess.endFlight()

	paid := in.PaidAmount
	if paid == nil && in.Method.paidInFullOnCheckout() {
		paid = &totals.Total
	}

	req, err := c.assembler.Assemble(ctx, lines, totals, in.Customer, invoice.Options{
		Source:        invoice.SourceOffline,
		PaymentMethod: string(in.Method),
		PaidAmount:    paid,
	})
	if err != nil {
		return nil, fmt.Errorf("assemble invoice: %w", err)
	}

	inv, err := c.invoices.CreateInvoice(ctx, *req)
	if err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}

	c.finishSale(ctx, sess, inv)
	return &Result{Receipt: receiptFor(inv, in.Method, totals)}, nil
}

func (c *Controller) beginGateway(ctx context.Context, sess *Session, in Input, lines []cart.ResolvedLine, totals tax.Breakdown) (*Result, error) {
	req, err := c.assembler.Assemble(ctx, lines, totals, in.Customer, invoice.Options{
		Source:        invoice.SourceOnline,
		PaymentMethod: string(in.Method),
		PaidAmount:    in.PaidAmount,
	})
	if err != nil {
		sess.endFlight()
		return nil, fmt.Errorf("assemble invoice: %w", err)
	}

	contact := payment.Contact{
		Name:  in.Customer.Name,
		Phone: in.Customer.Phone,
		Email: in.Customer.Email,
	}
	attempt, err := c.payments.Start(ctx, totals.Total, contact, map[string]string{"session": sess.ID})
	if err != nil {
		sess.endFlight()
		return nil, err
	}
	if err := c.payments.AwaitUser(attempt); err != nil {
		sess.endFlight()
		return nil, err
	}

	sess.setAttempt(attempt, req, totals)
	c.record(ctx, journal.EventPaymentCreated, "", map[string]any{
		"session":  sess.ID,
		"order_id": attempt.OrderID(),
		"amount":   attempt.AmountMinor(),
	})

	// The session stays claimed until a gateway callback lands: the
	// hosted UI may suspend indefinitely and re-entry must stay blocked.
	params := attempt.CheckoutParams()
	return &Result{Payment: &params}, nil
}

// CompletePayment handles the gateway's success callback: verification,
// then invoice creation, then cart clearing and snapshot refresh — in
// that order, never another.
func (c *Controller) CompletePayment(ctx context.Context, sessionID string, cb payment.SuccessCallback) (*Receipt, error) {
	sess := c.Session(sessionID)
	attempt, pending, totals := sess.currentAttempt()
	if attempt == nil || pending == nil || attempt.State().Terminal() {
		return nil, ErrNoActiveAttempt
	}
	defer sess.endFlight()

	if err := c.payments.ConfirmSuccess(ctx, attempt, cb); err != nil {
		// Client-side success the backend would not attest. The cart
		// stays; the ambiguity is the operator's to reconcile manually.
		return nil, err
	}

	c.record(ctx, journal.EventPaymentVerified, attempt.PaymentID(), map[string]any{
		"session":  sess.ID,
		"order_id": attempt.OrderID(),
	})

	req := *pending
	req.GatewayOrderID = attempt.OrderID()
	req.GatewayPaymentID = attempt.PaymentID()

	inv, err := c.invoices.CreateInvoice(ctx, req)
	if err != nil {
		c.captureOrphan(ctx, attempt, req, err)
		return nil, fmt.Errorf("%w: %v", ErrSettlementIncomplete, err)
	}

	// The receipt reports what was settled, priced at checkout time. The
	// cart may have drifted with the catalog since; never re-resolve it.
	c.finishSale(ctx, sess, inv)
	sess.clearAttempt()
	return receiptFor(inv, MethodGateway, totals), nil
}

// FailPayment handles the gateway's payment.failed event. No invoice is
// created and the cart is untouched.
func (c *Controller) FailPayment(sessionID string, cause error) error {
	sess := c.Session(sessionID)
	attempt, _, _ := sess.currentAttempt()
	if attempt == nil {
		return ErrNoActiveAttempt
	}
	defer sess.endFlight()
	return c.payments.Fail(attempt, cause)
}

// DismissPayment handles the user closing the hosted UI. The order is
// not retryable; the next checkout starts a fresh attempt.
func (c *Controller) DismissPayment(sessionID string) error {
	sess := c.Session(sessionID)
	attempt, _, _ := sess.currentAttempt()
	if attempt == nil {
		return ErrNoActiveAttempt
	}
	defer sess.endFlight()
	return c.payments.Dismiss(attempt)
}

// captureOrphan journals a verified-but-uninvoiced payment so the
// reconciler can retry invoice creation later.
func (c *Controller) captureOrphan(ctx context.Context, attempt *payment.Attempt, req backend.InvoiceRequest, cause error) {
	payload, err := json.Marshal(req)
	if err != nil {
		log.Printf("[Checkout] marshal orphan payload for %s: %v", attempt.PaymentID(), err)
		return
	}
	orphan := &journal.Orphan{
		PaymentID:      attempt.PaymentID(),
		OrderID:        attempt.OrderID(),
		AmountMinor:    attempt.AmountMinor(),
		InvoiceRequest: payload,
	}
	if err := c.orphans.SaveOrphan(ctx, orphan); err != nil {
		log.Printf("[Checkout] save orphan %s: %v", attempt.PaymentID(), err)
	}
	c.record(ctx, journal.EventPaymentOrphaned, attempt.PaymentID(), map[string]any{
		"order_id": attempt.OrderID(),
		"amount":   attempt.AmountMinor(),
		"cause":    cause.Error(),
	})
}

// finishSale runs the post-settlement obligations: clear the cart, then
// refresh snapshots. The backend already decremented stock atomically
// with invoice creation; refresh only pulls its truth.
func (c *Controller) finishSale(ctx context.Context, sess *Session, inv *backend.Invoice) {
	sess.Cart.Clear()

	for _, r := range c.refreshers {
		if err := r.Refresh(ctx); err != nil {
			// The sale is settled; a stale snapshot is recoverable.
			log.Printf("[Checkout] post-sale refresh: %v", err)
		}
	}

	c.record(ctx, journal.EventInvoiceSettled, inv.GatewayPaymentID, map[string]any{
		"invoice_id":     inv.ID,
		"invoice_number": inv.Number,
		"grand_total":    inv.GrandTotal,
	})
}

func (c *Controller) record(ctx context.Context, eventType, paymentID string, data any) {
	if c.recorder == nil {
		return
	}
	if _, err := c.recorder.Record(ctx, eventType, paymentID, data); err != nil {
		log.Printf("[Checkout] record %s: %v", eventType, err)
	}
}

func receiptFor(inv *backend.Invoice, method Method, totals tax.Breakdown) *Receipt {
	return &Receipt{
		InvoiceID:        inv.ID,
		InvoiceNumber:    inv.Number,
		Method:           method,
		Source:           inv.Source,
		Totals:           totals,
		PaidAmount:       inv.PaidAmount,
		GatewayOrderID:   inv.GatewayOrderID,
		GatewayPaymentID: inv.GatewayPaymentID,
	}
}
