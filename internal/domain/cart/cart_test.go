package cart

import (
	"testing"

	"github.com/example/pos-settlement/internal/domain/catalog"
	"github.com/example/pos-settlement/internal/domain/tax"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSnapshot map[string]catalog.Product

func (f fakeSnapshot) Get(id string) (catalog.Product, bool) {
	p, ok := f[id]
	return p, ok
}

func product(id string, stock int, price string, rate string, mode tax.Mode) catalog.Product {
	return catalog.Product{
		ID:        id,
		Name:      id,
		Stock:     stock,
		UnitPrice: decimal.RequireFromString(price),
		TaxRate:   decimal.RequireFromString(rate),
		TaxMode:   mode,
	}
}

// ============================================
// Add Tests
// ============================================

func TestStore_Add_NewLine(t *testing.T) {
	snap := fakeSnapshot{"p1": product("p1", 5, "100", "18", tax.ModeExclusive)}
	store := NewStore(snap)

	require.NoError(t, store.Add("p1"))

	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)
}

func TestStore_Add_IncrementsUpToStock(t *testing.T) {
	snap := fakeSnapshot{"p1": product("p1", 2, "100", "18", tax.ModeExclusive)}
	store := NewStore(snap)

	require.NoError(t, store.Add("p1"))
	require.NoError(t, store.Add("p1"))
	// Third add would exceed stock: silent no-op.
	require.NoError(t, store.Add("p1"))

	lines := store.Lines()
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].Quantity)
}

func TestStore_Add_OutOfStockProduct(t *testing.T) {
	snap := fakeSnapshot{"p1": product("p1", 0, "100", "18", tax.ModeExclusive)}
	store := NewStore(snap)

	require.NoError(t, store.Add("p1"))
	assert.True(t, store.IsEmpty())
}

func TestStore_Add_UnknownProduct(t *testing.T) {
	store := NewStore(fakeSnapshot{})
	assert.ErrorIs(t, store.Add("nope"), ErrUnknownProduct)
}

func TestStore_Add_RespectsShrunkenStock(t *testing.T) {
	snap := fakeSnapshot{"p1": product("p1", 5, "100", "18", tax.ModeExclusive)}
	store := NewStore(snap)

	require.NoError(t, store.Add("p1"))
	require.NoError(t, store.Add("p1"))

	// A concurrent sale reduced stock to 2; the next increment must be
	// rejected against the current snapshot, not the one seen at add time.
	snap["p1"] = product("p1", 2, "100", "18", tax.ModeExclusive)
	require.NoError(t, store.Add("p1"))

	assert.Equal(t, 2, store.Lines()[0].Quantity)
}

// ============================================
// SetQuantity Tests
// ============================================

func TestStore_SetQuantity_ClampsToStock(t *testing.T) {
	snap := fakeSnapshot{"p1": product("p1", 3, "100", "18", tax.ModeExclusive)}
	store := NewStore(snap)

	require.NoError(t, store.SetQuantity("p1", 10))
	assert.Equal(t, 3, store.Lines()[0].Quantity)
}

func TestStore_SetQuantity_NegativeRemoves(t *testing.T) {
	snap := fakeSnapshot{"p1": product("p1", 3, "100", "18", tax.ModeExclusive)}
	store := NewStore(snap)

	require.NoError(t, store.Add("p1"))
	require.NoError(t, store.SetQuantity("p1", -4))
	assert.True(t, store.IsEmpty())
}

func TestStore_SetQuantity_ZeroRemovesLine(t *testing.T) {
	snap := fakeSnapshot{"p1": product("p1", 3, "100", "18", tax.ModeExclusive)}
	store := NewStore(snap)

	require.NoError(t, store.Add("p1"))
	require.NoError(t, store.SetQuantity("p1", 0))
	assert.True(t, store.IsEmpty())
}

func TestStore_RemoveAndClear(t *testing.T) {
	snap := fakeSnapshot{
		"p1": product("p1", 3, "100", "18", tax.ModeExclusive),
		"p2": product("p2", 3, "50", "5", tax.ModeInclusive),
	}
	store := NewStore(snap)
	require.NoError(t, store.Add("p1"))
	require.NoError(t, store.Add("p2"))

	store.Remove("p1")
	require.Len(t, store.Lines(), 1)

	store.Clear()
	assert.True(t, store.IsEmpty())
}

// ============================================
// Resolve Tests
// ============================================

func TestStore_Resolve_ComputesBreakdown(t *testing.T) {
	snap := fakeSnapshot{"p1": product("p1", 10, "100", "18", tax.ModeExclusive)}
	store := NewStore(snap)
	require.NoError(t, store.Add("p1"))
	require.NoError(t, store.SetQuantity("p1", 2))

	lines, totals := store.Resolve()

	require.Len(t, lines, 1)
	assert.True(t, totals.Subtotal.Equal(decimal.NewFromInt(200)), "subtotal = %s", totals.Subtotal)
	assert.True(t, totals.Tax.Equal(decimal.NewFromInt(36)), "tax = %s", totals.Tax)
	assert.True(t, totals.Total.Equal(decimal.NewFromInt(236)), "total = %s", totals.Total)
}

func TestStore_Resolve_RecomputesAgainstCurrentSnapshot(t *testing.T) {
	snap := fakeSnapshot{"p1": product("p1", 5, "100", "18", tax.ModeExclusive)}
	store := NewStore(snap)
	require.NoError(t, store.SetQuantity("p1", 4))

	// Stock collapsed to 1 after the line was added.
	snap["p1"] = product("p1", 1, "100", "18", tax.ModeExclusive)
	lines, totals := store.Resolve()

	require.Len(t, lines, 1)
	assert.Equal(t, 1, lines[0].Quantity)
	assert.True(t, totals.Total.Equal(decimal.NewFromInt(118)))
}

func TestStore_Resolve_SkipsSoldOutLines(t *testing.T) {
	snap := fakeSnapshot{"p1": product("p1", 5, "100", "18", tax.ModeExclusive)}
	store := NewStore(snap)
	require.NoError(t, store.Add("p1"))

	snap["p1"] = product("p1", 0, "100", "18", tax.ModeExclusive)
	lines, totals := store.Resolve()

	assert.Empty(t, lines)
	assert.True(t, totals.Total.IsZero())
}
