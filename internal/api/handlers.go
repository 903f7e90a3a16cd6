package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/example/pos-settlement/internal/api/middleware"
	"github.com/example/pos-settlement/internal/backend"
	"github.com/example/pos-settlement/internal/checkout"
	"github.com/example/pos-settlement/internal/domain/catalog"
	"github.com/example/pos-settlement/internal/domain/ledger"
	"github.com/example/pos-settlement/internal/domain/payment"
	"github.com/shopspring/decimal"
)

// LinkBackend creates hosted payment links on the backend.
type LinkBackend interface {
	CreatePaymentLink(ctx context.Context, req backend.PaymentLinkRequest) (*backend.PaymentLink, error)
}

type Handlers struct {
	checkout  *checkout.Controller
	products  *catalog.Store
	customers *ledger.CustomerLedger
	invoices  *ledger.InvoiceLedger
	refunds   *payment.RefundCoordinator
	links     LinkBackend
	currency  string
}

func NewHandlers(
	controller *checkout.Controller,
	products *catalog.Store,
	customers *ledger.CustomerLedger,
	invoices *ledger.InvoiceLedger,
	refunds *payment.RefundCoordinator,
	links LinkBackend,
	currency string,
) *Handlers {
	return &Handlers{
		checkout:  controller,
		products:  products,
		customers: customers,
		invoices:  invoices,
		refunds:   refunds,
		links:     links,
		currency:  currency,
	}
}

// Product Handlers

func (h *Handlers) GetProducts(w http.ResponseWriter, r *http.Request) {
	products := h.products.List()

	type productView struct {
		catalog.Product
		Status catalog.Status `json:"status"`
	}
	views := make([]productView, 0, len(products))
	for _, p := range products {
		views = append(views, productView{Product: p, Status: p.Status()})
	}

	respondJSON(w, http.StatusOK, views)
}

func (h *Handlers) RefreshProducts(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Refresh(r.Context()); err != nil {
		respondJSONError(w, err.Error(), http.StatusBadGateway)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Catalog refreshed"})
}

// Cart Handlers

func (h *Handlers) GetCart(w http.ResponseWriter, r *http.Request) {
	sess := h.checkout.Session(getOperatorID(r))
	respondJSON(w, http.StatusOK, map[string]any{"items": sess.Cart.Lines()})
}

func (h *Handlers) AddToCart(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID string `json:"product_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sess := h.checkout.Session(getOperatorID(r))
	if err := sess.Cart.Add(req.ProductID); err != nil {
		respondJSONError(w, err.Error(), http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"items": sess.Cart.Lines()})
}

func (h *Handlers) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	productID := extractPathParam(r.URL.Path, "/cart/items/")

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	sess := h.checkout.Session(getOperatorID(r))
	if err := sess.Cart.SetQuantity(productID, req.Quantity); err != nil {
		respondJSONError(w, err.Error(), http.StatusNotFound)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{"items": sess.Cart.Lines()})
}

func (h *Handlers) RemoveFromCart(w http.ResponseWriter, r *http.Request) {
	productID := extractPathParam(r.URL.Path, "/cart/items/")

	sess := h.checkout.Session(getOperatorID(r))
	sess.Cart.Remove(productID)

	respondJSON(w, http.StatusOK, map[string]any{"items": sess.Cart.Lines()})
}

func (h *Handlers) ClearCart(w http.ResponseWriter, r *http.Request) {
	sess := h.checkout.Session(getOperatorID(r))
	sess.Cart.Clear()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) GetCartTotals(w http.ResponseWriter, r *http.Request) {
	sess := h.checkout.Session(getOperatorID(r))
	lines, totals := sess.Cart.Resolve()
	respondJSON(w, http.StatusOK, map[string]any{
		"lines":  lines,
		"totals": totals,
	})
}

// Checkout Handlers

func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	var in checkout.Input
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.checkout.BeginCheckout(r.Context(), getOperatorID(r), in)
	if err != nil {
		respondJSONError(w, err.Error(), statusForError(err))
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// PaymentCallback receives the gateway's client-side success callback
// and runs verification plus settlement.
func (h *Handlers) PaymentCallback(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentID string `json:"razorpay_payment_id"`
		OrderID   string `json:"razorpay_order_id"`
		Signature string `json:"razorpay_signature"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	receipt, err := h.checkout.CompletePayment(r.Context(), getOperatorID(r), payment.SuccessCallback{
		PaymentID: req.PaymentID,
		OrderID:   req.OrderID,
		Signature: req.Signature,
	})
	if err != nil {
		respondJSONError(w, err.Error(), statusForError(err))
		return
	}

	respondJSON(w, http.StatusOK, receipt)
}

func (h *Handlers) PaymentFailed(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.Reason == "" {
		req.Reason = "payment failed"
	}

	if err := h.checkout.FailPayment(getOperatorID(r), errors.New(req.Reason)); err != nil {
		respondJSONError(w, err.Error(), statusForError(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Payment marked failed"})
}

func (h *Handlers) PaymentDismiss(w http.ResponseWriter, r *http.Request) {
	if err := h.checkout.DismissPayment(getOperatorID(r)); err != nil {
		respondJSONError(w, err.Error(), statusForError(err))
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Payment dismissed"})
}

// CreatePaymentLink issues a hosted payment link for a remote customer.
func (h *Handlers) CreatePaymentLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount      decimal.Decimal `json:"amount"`
		Name        string          `json:"name,omitempty"`
		Phone       string          `json:"phone,omitempty"`
		Email       string          `json:"email,omitempty"`
		Description string          `json:"description,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if !req.Amount.IsPositive() {
		respondJSONError(w, "amount must be positive", http.StatusBadRequest)
		return
	}

	link, err := h.links.CreatePaymentLink(r.Context(), backend.PaymentLinkRequest{
		Amount:      payment.MinorUnits(req.Amount),
		Currency:    h.currency,
		Name:        req.Name,
		Phone:       req.Phone,
		Email:       req.Email,
		Description: req.Description,
	})
	if err != nil {
		respondJSONError(w, err.Error(), statusForError(err))
		return
	}

	respondJSON(w, http.StatusCreated, link)
}

// Refund Handlers

func (h *Handlers) Refund(w http.ResponseWriter, r *http.Request) {
	paymentID := extractPathParam(r.URL.Path, "/refunds/")
	if paymentID == "" {
		respondJSONError(w, "payment id is required", http.StatusBadRequest)
		return
	}

	var req struct {
		Amount    *decimal.Decimal `json:"amount,omitempty"`
		InvoiceID string           `json:"invoice_id,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	refund, err := h.refunds.Refund(r.Context(), paymentID, req.Amount, req.InvoiceID)
	if err != nil {
		respondJSONError(w, err.Error(), statusForError(err))
		return
	}

	respondJSON(w, http.StatusOK, refund)
}

// Ledger Handlers

func (h *Handlers) GetCustomers(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.customers.List())
}

func (h *Handlers) GetInvoices(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.invoices.List())
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondJSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func extractPathParam(path, prefix string) string {
	return strings.TrimPrefix(path, prefix)
}

// getOperatorID extracts the operator ID from JWT context or falls back
// to the X-Operator-ID header
func getOperatorID(r *http.Request) string {
	if operatorID := middleware.GetOperatorID(r.Context()); operatorID != "" {
		return operatorID
	}

	if operatorID := r.Header.Get("X-Operator-ID"); operatorID != "" {
		return operatorID
	}

	return "default-operator"
}

// statusForError maps domain errors to HTTP status codes
func statusForError(err error) int {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrCustomerRequired),
		errors.Is(err, checkout.ErrUnknownMethod),
		errors.Is(err, checkout.ErrPaidAmountTooLarge),
		errors.Is(err, payment.ErrInvalidRefundAmount):
		return http.StatusBadRequest
	case errors.Is(err, checkout.ErrSettlementInFlight):
		return http.StatusConflict
	case errors.Is(err, checkout.ErrNoActiveAttempt),
		errors.Is(err, payment.ErrAttemptFinished):
		return http.StatusConflict
	case errors.Is(err, payment.ErrVerificationFailed),
		errors.Is(err, payment.ErrOrderMismatch):
		return http.StatusPaymentRequired
	case errors.Is(err, checkout.ErrSettlementIncomplete):
		return http.StatusBadGateway
	case errors.As(err, &apiErr):
		return apiErr.StatusCode
	default:
		return http.StatusInternalServerError
	}
}
