package catalog

import (
	"context"
	"fmt"
	"sync"

	"github.com/example/pos-settlement/internal/domain/tax"
	"github.com/shopspring/decimal"
)

// LowStockThreshold is the stock level at or below which a product is
// flagged as running low.
const LowStockThreshold = 10

type Status string

const (
	StatusInStock    Status = "in_stock"
	StatusLowStock   Status = "low_stock"
	StatusOutOfStock Status = "out_of_stock"
)

// Product is a read-only snapshot of a backend product. The backend owns
// the record; the terminal only caches it between refreshes.
type Product struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Category  string          `json:"category"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	ListPrice decimal.Decimal `json:"list_price"`
	Stock     int             `json:"stock"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
	TaxMode   tax.Mode        `json:"tax_mode"`
}

// Status derives availability from stock. It is never stored, so it can
// never go stale relative to the stock count.
func (p Product) Status() Status {
	switch {
	case p.Stock <= 0:
		return StatusOutOfStock
	case p.Stock <= LowStockThreshold:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// Source fetches product snapshots from the backend.
type Source interface {
	FetchProducts(ctx context.Context) ([]Product, error)
}

// Store caches the latest product snapshots. Refresh replaces the whole
// set; reads always see the most recent refresh.
type Store struct {
	src Source

	mu       sync.RWMutex
	products map[string]Product
	order    []string
}

func NewStore(src Source) *Store {
	return &Store{
		src:      src,
		products: make(map[string]Product),
	}
}

// Refresh replaces the cached snapshots with the backend's current view.
func (s *Store) Refresh(ctx context.Context) error {
	products, err := s.src.FetchProducts(ctx)
	if err != nil {
		return fmt.Errorf("fetch products: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = make(map[string]Product, len(products))
	s.order = s.order[:0]
	for _, p := range products {
		if _, seen := s.products[p.ID]; !seen {
			s.order = append(s.order, p.ID)
		}
		s.products[p.ID] = p
	}
	return nil
}

// Get returns the current snapshot for a product id.
func (s *Store) Get(id string) (Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	return p, ok
}

// List returns snapshots in backend order.
func (s *Store) List() []Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Product, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.products[id])
	}
	return out
}
