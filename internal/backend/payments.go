package backend

import (
	"context"
	"net/http"
)

// CreateOrder reserves an amount-to-be-paid with the gateway. Amount is
// in minor currency units.
func (c *Client) CreateOrder(ctx context.Context, amount int64, currency string, notes map[string]string) (*GatewayOrder, error) {
	req := createOrderRequest{Amount: amount, Currency: currency, Notes: notes}
	var order GatewayOrder
	if err := c.do(ctx, http.MethodPost, "/payments/create-order", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// VerifyPayment asks the backend to check the gateway signature. A false
// result with a nil error means the backend answered but would not attest
// the signature.
func (c *Client) VerifyPayment(ctx context.Context, req VerifyRequest) (bool, error) {
	var resp verifyResponse
	if err := c.do(ctx, http.MethodPost, "/payments/verify", req, &resp); err != nil {
		return false, err
	}
	return resp.Success, nil
}

// CreatePaymentLink makes a hosted payment link for a remote customer.
func (c *Client) CreatePaymentLink(ctx context.Context, req PaymentLinkRequest) (*PaymentLink, error) {
	var link PaymentLink
	if err := c.do(ctx, http.MethodPost, "/payments/payment-link", req, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

// Refund forwards a refund against a settled payment. The backend is the
// sole authority on the remaining refundable balance; its errors come
// back verbatim as *APIError.
func (c *Client) Refund(ctx context.Context, paymentID string, req RefundRequest) (*Refund, error) {
	var refund Refund
	if err := c.do(ctx, http.MethodPost, "/payments/refund/"+paymentID, req, &refund); err != nil {
		return nil, err
	}
	return &refund, nil
}
