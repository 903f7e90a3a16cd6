// Package ledger caches backend customer and invoice collections for
// browsing at the terminal. The backend owns the records; these are
// read-only snapshots refreshed after every settled sale.
package ledger

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/pos-settlement/internal/backend"
)

type CustomerSource interface {
	FetchCustomers(ctx context.Context) ([]backend.Customer, error)
}

type CustomerLedger struct {
	src CustomerSource

	mu        sync.RWMutex
	customers []backend.Customer
}

func NewCustomerLedger(src CustomerSource) *CustomerLedger {
	return &CustomerLedger{src: src}
}

func (l *CustomerLedger) Refresh(ctx context.Context) error {
	customers, err := l.src.FetchCustomers(ctx)
	if err != nil {
		return fmt.Errorf("fetch customers: %w", err)
	}
	l.mu.Lock()
	l.customers = customers
	l.mu.Unlock()
	return nil
}

func (l *CustomerLedger) List() []backend.Customer {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]backend.Customer, len(l.customers))
	copy(out, l.customers)
	return out
}

type InvoiceSource interface {
	FetchInvoices(ctx context.Context) ([]backend.Invoice, error)
}

type InvoiceLedger struct {
	src InvoiceSource

	mu       sync.RWMutex
	invoices []backend.Invoice
}

func NewInvoiceLedger(src InvoiceSource) *InvoiceLedger {
	return &InvoiceLedger{src: src}
}

func (l *InvoiceLedger) Refresh(ctx context.Context) error {
	invoices, err := l.src.FetchInvoices(ctx)
	if err != nil {
		return fmt.Errorf("fetch invoices: %w", err)
	}
	l.mu.Lock()
	l.invoices = invoices
	l.mu.Unlock()
	return nil
}

func (l *InvoiceLedger) List() []backend.Invoice {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]backend.Invoice, len(l.invoices))
	copy(out, l.invoices)
	return out
}
