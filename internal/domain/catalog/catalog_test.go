package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	products []Product
	err      error
}

func (f *fakeSource) FetchProducts(ctx context.Context) ([]Product, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.products, nil
}

func TestProduct_Status(t *testing.T) {
	assert.Equal(t, StatusOutOfStock, Product{Stock: 0}.Status())
	assert.Equal(t, StatusLowStock, Product{Stock: 1}.Status())
	assert.Equal(t, StatusLowStock, Product{Stock: 10}.Status())
	assert.Equal(t, StatusInStock, Product{Stock: 11}.Status())
}

func TestStore_Refresh_ReplacesSnapshots(t *testing.T) {
	src := &fakeSource{products: []Product{
		{ID: "p1", Name: "Rice", Stock: 50, UnitPrice: decimal.NewFromInt(80)},
		{ID: "p2", Name: "Salt", Stock: 5},
	}}
	store := NewStore(src)

	require.NoError(t, store.Refresh(context.Background()))
	assert.Len(t, store.List(), 2)

	p, ok := store.Get("p2")
	require.True(t, ok)
	assert.Equal(t, StatusLowStock, p.Status())

	// A later refresh with fewer products drops the stale ones.
	src.products = src.products[:1]
	require.NoError(t, store.Refresh(context.Background()))
	assert.Len(t, store.List(), 1)
	_, ok = store.Get("p2")
	assert.False(t, ok)
}

func TestStore_Refresh_Error(t *testing.T) {
	src := &fakeSource{products: []Product{{ID: "p1", Stock: 1}}}
	store := NewStore(src)
	require.NoError(t, store.Refresh(context.Background()))

	src.err = errors.New("backend down")
	err := store.Refresh(context.Background())
	require.Error(t, err)

	// The previous snapshots survive a failed refresh.
	_, ok := store.Get("p1")
	assert.True(t, ok)
}
