package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/example/pos-settlement/internal/domain/catalog"
	"github.com/example/pos-settlement/internal/domain/tax"
	"github.com/shopspring/decimal"
)

// APIError is a non-2xx response from the backend, carrying its message
// verbatim.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: %s (status %d)", e.Message, e.StatusCode)
}

// Client talks to the business-data backend's resource API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = &bytes.Buffer{}
		if err := json.NewEncoder(reqBody).Encode(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var envelope struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.Error == "" {
			envelope.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: envelope.Error}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

type productPayload struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	ListPrice decimal.Decimal `json:"list_price"`
	Stock     int             `json:"stock"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
	TaxMode   string          `json:"tax_mode"`
}

// FetchProducts implements catalog.Source.
func (c *Client) FetchProducts(ctx context.Context) ([]catalog.Product, error) {
	var payload []productPayload
	if err := c.do(ctx, http.MethodGet, "/products", nil, &payload); err != nil {
		return nil, err
	}

	products := make([]catalog.Product, 0, len(payload))
	for _, p := range payload {
		mode := tax.ModeExclusive
		if p.TaxMode == string(tax.ModeInclusive) {
			mode = tax.ModeInclusive
		}
		products = append(products, catalog.Product{
			ID:        p.ID,
			Name:      p.Name,
			Category:  p.Category,
			UnitPrice: p.UnitPrice,
			ListPrice: p.ListPrice,
			Stock:     p.Stock,
			TaxRate:   p.TaxRate,
			TaxMode:   mode,
		})
	}
	return products, nil
}

// FetchCustomers lists the backend's customer records.
func (c *Client) FetchCustomers(ctx context.Context) ([]Customer, error) {
	var customers []Customer
	if err := c.do(ctx, http.MethodGet, "/customers", nil, &customers); err != nil {
		return nil, err
	}
	return customers, nil
}

// FindCustomerByPhone returns the customer holding a phone number, or nil
// when no record matches.
func (c *Client) FindCustomerByPhone(ctx context.Context, phone string) (*Customer, error) {
	var customers []Customer
	path := "/customers?phone=" + url.QueryEscape(phone)
	if err := c.do(ctx, http.MethodGet, path, nil, &customers); err != nil {
		return nil, err
	}
	if len(customers) == 0 {
		return nil, nil
	}
	return &customers[0], nil
}

func (c *Client) CreateCustomer(ctx context.Context, req CustomerRequest) (*Customer, error) {
	var customer Customer
	if err := c.do(ctx, http.MethodPost, "/customers", req, &customer); err != nil {
		return nil, err
	}
	return &customer, nil
}

// UpdateCustomerAddress updates only the address of an existing record.
func (c *Client) UpdateCustomerAddress(ctx context.Context, customerID, address string) error {
	body := map[string]string{"address": address}
	return c.do(ctx, http.MethodPut, "/customers/"+customerID, body, nil)
}

func (c *Client) CreateInvoice(ctx context.Context, req InvoiceRequest) (*Invoice, error) {
	var invoice Invoice
	if err := c.do(ctx, http.MethodPost, "/invoices", req, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (c *Client) FetchInvoices(ctx context.Context) ([]Invoice, error) {
	var invoices []Invoice
	if err := c.do(ctx, http.MethodGet, "/invoices", nil, &invoices); err != nil {
		return nil, err
	}
	return invoices, nil
}
