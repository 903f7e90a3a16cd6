package backend

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is the backend's customer record. Phone, when present, is the
// identity key: the backend keeps at most one record per phone number.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type CustomerRequest struct {
	Name    string `json:"name"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Address string `json:"address,omitempty"`
}

// InvoiceLine projects a resolved cart line onto the invoice contract.
type InvoiceLine struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
}

// InvoiceRequest creates an invoice. It carries no invoice number: the
// backend assigns one from its own counter on creation.
type InvoiceRequest struct {
	CustomerID       *string         `json:"customer_id"` // nil for a walk-in sale
	Source           string          `json:"source"`      // "online" | "offline"
	PaymentMethod    string          `json:"payment_method"`
	Lines            []InvoiceLine   `json:"lines"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	GrandTotal       decimal.Decimal `json:"grand_total"`
	PaidAmount       decimal.Decimal `json:"paid_amount"`
	GatewayOrderID   string          `json:"gateway_order_id,omitempty"`
	GatewayPaymentID string          `json:"gateway_payment_id,omitempty"`
}

// Invoice is immutable for financial fields once created; only the
// fulfillment status moves afterwards.
type Invoice struct {
	ID               string          `json:"id"`
	Number           string          `json:"number"`
	CustomerID       *string         `json:"customer_id"`
	Source           string          `json:"source"`
	PaymentMethod    string          `json:"payment_method"`
	Lines            []InvoiceLine   `json:"lines"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	GrandTotal       decimal.Decimal `json:"grand_total"`
	PaidAmount       decimal.Decimal `json:"paid_amount"`
	GatewayOrderID   string          `json:"gateway_order_id,omitempty"`
	GatewayPaymentID string          `json:"gateway_payment_id,omitempty"`
	Status           string          `json:"status"`
	CreatedAt        time.Time       `json:"created_at"`
}

// GatewayOrder is the backend's reservation of an amount-to-be-paid with
// the payment gateway. Amount is in minor currency units.
type GatewayOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
}

type createOrderRequest struct {
	Amount   int64             `json:"amount"` // minor units
	Currency string            `json:"currency"`
	Notes    map[string]string `json:"notes,omitempty"`
}

// VerifyRequest asks the backend to attest a gateway signature.
type VerifyRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
	InvoiceID string `json:"invoiceId,omitempty"`
}

type verifyResponse struct {
	Success bool `json:"success"`
}

type PaymentLinkRequest struct {
	Amount      int64  `json:"amount"` // minor units
	Currency    string `json:"currency"`
	Name        string `json:"name,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	Description string `json:"description,omitempty"`
}

type PaymentLink struct {
	ShortURL string `json:"shortUrl"`
	LinkID   string `json:"linkId"`
}

// RefundRequest forwards a refund to the gateway through the backend.
// A nil Amount requests a full refund.
type RefundRequest struct {
	Amount    *int64            `json:"amount,omitempty"` // minor units
	Speed     string            `json:"speed,omitempty"`
	InvoiceID string            `json:"invoiceId,omitempty"`
	Notes     map[string]string `json:"notes,omitempty"`
}

type Refund struct {
	ID        string `json:"id"`
	PaymentID string `json:"payment_id"`
	Amount    int64  `json:"amount"`
	Status    string `json:"status"`
}
