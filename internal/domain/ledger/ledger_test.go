package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/example/pos-settlement/internal/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCustomerSource struct {
	customers []backend.Customer
	err       error
}

func (f *fakeCustomerSource) FetchCustomers(ctx context.Context) ([]backend.Customer, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.customers, nil
}

type fakeInvoiceSource struct {
	invoices []backend.Invoice
	err      error
}

func (f *fakeInvoiceSource) FetchInvoices(ctx context.Context) ([]backend.Invoice, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.invoices, nil
}

func TestCustomerLedger_RefreshReplacesSnapshot(t *testing.T) {
	src := &fakeCustomerSource{customers: []backend.Customer{
		{ID: "cus_1", Name: "Asha"},
		{ID: "cus_2", Name: "Ravi"},
	}}
	l := NewCustomerLedger(src)

	require.NoError(t, l.Refresh(context.Background()))
	assert.Len(t, l.List(), 2)

	src.customers = []backend.Customer{{ID: "cus_3", Name: "Meera"}}
	require.NoError(t, l.Refresh(context.Background()))

	got := l.List()
	require.Len(t, got, 1)
	assert.Equal(t, "cus_3", got[0].ID)
}

func TestCustomerLedger_RefreshErrorKeepsOldSnapshot(t *testing.T) {
	src := &fakeCustomerSource{customers: []backend.Customer{{ID: "cus_1"}}}
	l := NewCustomerLedger(src)
	require.NoError(t, l.Refresh(context.Background()))

	src.err = errors.New("backend down")
	err := l.Refresh(context.Background())

	require.Error(t, err)
	assert.Len(t, l.List(), 1)
}

func TestCustomerLedger_ListCopies(t *testing.T) {
	src := &fakeCustomerSource{customers: []backend.Customer{{ID: "cus_1", Name: "Asha"}}}
	l := NewCustomerLedger(src)
	require.NoError(t, l.Refresh(context.Background()))

	got := l.List()
	got[0].Name = "mutated"

	assert.Equal(t, "Asha", l.List()[0].Name)
}

func TestInvoiceLedger_Refresh(t *testing.T) {
	src := &fakeInvoiceSource{invoices: []backend.Invoice{
		{ID: "inv_1", Number: "INV-0001"},
	}}
	l := NewInvoiceLedger(src)

	assert.Empty(t, l.List())

	require.NoError(t, l.Refresh(context.Background()))

	got := l.List()
	require.Len(t, got, 1)
	assert.Equal(t, "INV-0001", got[0].Number)
}
