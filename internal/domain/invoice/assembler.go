package invoice

import (
	"context"
	"fmt"
	"strings"

	"github.com/example/pos-settlement/internal/backend"
	"github.com/example/pos-settlement/internal/domain/cart"
	"github.com/example/pos-settlement/internal/domain/tax"
	"github.com/shopspring/decimal"
)

const (
	SourceOnline  = "online"
	SourceOffline = "offline"
)

// CustomerInput is what the operator typed at checkout.
type CustomerInput struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Address string `json:"address"`
}

// Directory is the backend's customer surface.
type Directory interface {
	FindCustomerByPhone(ctx context.Context, phone string) (*backend.Customer, error)
	CreateCustomer(ctx context.Context, req backend.CustomerRequest) (*backend.Customer, error)
	UpdateCustomerAddress(ctx context.Context, customerID, address string) error
}

// Options steer how the assembled invoice is attributed and paid.
type Options struct {
	Source           string
	PaymentMethod    string
	PaidAmount       *decimal.Decimal // nil uses the source default
	GatewayOrderID   string
	GatewayPaymentID string
}

// Assembler turns a resolved cart plus a customer identity into an
// invoice-creation request. Identity is resolved before anything is
// submitted: an I/O failure anywhere aborts the whole assembly, so no
// partial invoice ever leaves without a customer reference or the
// walk-in sentinel.
type Assembler struct {
	customers Directory
}

func NewAssembler(customers Directory) *Assembler {
	return &Assembler{customers: customers}
}

// Assemble resolves the customer and builds the invoice request.
//
// Identity rules: an empty name is a walk-in sale with no customer write;
// a phone that matches an existing record reuses that record and updates
// only its address, never creating a duplicate; anything else creates a
// new record.
func (a *Assembler) Assemble(ctx context.Context, lines []cart.ResolvedLine, totals tax.Breakdown, cust CustomerInput, opts Options) (*backend.InvoiceRequest, error) {
	customerID, err := a.resolveCustomer(ctx, cust)
	if err != nil {
		return nil, err
	}

	invoiceLines := make([]backend.InvoiceLine, 0, len(lines))
	for _, line := range lines {
		invoiceLines = append(invoiceLines, backend.InvoiceLine{
			ProductID: line.Product.ID,
			Quantity:  line.Quantity,
			UnitPrice: line.Product.UnitPrice,
			TaxRate:   line.Product.TaxRate,
		})
	}

	paid := defaultPaidAmount(opts.Source, totals.Total)
	if opts.PaidAmount != nil {
		paid = *opts.PaidAmount
	}

	return &backend.InvoiceRequest{
		CustomerID:       customerID,
		Source:           opts.Source,
		PaymentMethod:    opts.PaymentMethod,
		Lines:            invoiceLines,
		Subtotal:         totals.Total.Sub(totals.Tax),
		TaxAmount:        totals.Tax,
		GrandTotal:       totals.Total,
		PaidAmount:       paid,
		GatewayOrderID:   opts.GatewayOrderID,
		GatewayPaymentID: opts.GatewayPaymentID,
	}, nil
}

func defaultPaidAmount(source string, total decimal.Decimal) decimal.Decimal {
	if source == SourceOnline {
		return total
	}
	return decimal.Zero
}

func (a *Assembler) resolveCustomer(ctx context.Context, cust CustomerInput) (*string, error) {
	name := strings.TrimSpace(cust.Name)
	if name == "" {
		// Walk-in: no customer record is touched.
		return nil, nil
	}

	phone := strings.TrimSpace(cust.Phone)
	if phone != "" {
		existing, err := a.customers.FindCustomerByPhone(ctx, phone)
		if err != nil {
			return nil, fmt.Errorf("resolve customer by phone: %w", err)
		}
		if existing != nil {
			if cust.Address != "" && cust.Address != existing.Address {
				if err := a.customers.UpdateCustomerAddress(ctx, existing.ID, cust.Address); err != nil {
					return nil, fmt.Errorf("update customer address: %w", err)
				}
			}
			return &existing.ID, nil
		}
	}

	created, err := a.customers.CreateCustomer(ctx, backend.CustomerRequest{
		Name:    name,
		Phone:   phone,
		Email:   strings.TrimSpace(cust.Email),
		Address: cust.Address,
	})
	if err != nil {
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return &created.ID, nil
}
