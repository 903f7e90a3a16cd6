package cart

import (
	"errors"
	"sync"

	"github.com/example/pos-settlement/internal/domain/catalog"
	"github.com/example/pos-settlement/internal/domain/tax"
	"github.com/shopspring/decimal"
)

var ErrUnknownProduct = errors.New("unknown product")

// Line is a product reference plus the requested quantity.
type Line struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// ResolvedLine is a cart line enriched with the current product snapshot
// and the computed tax and total. It is derived on every read and never
// cached.
type ResolvedLine struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Snapshot looks up the current product snapshot. Bounds are checked
// against this live view at mutation time, so stock taken by concurrent
// sales is respected without an explicit refresh inside the cart.
type Snapshot interface {
	Get(id string) (catalog.Product, bool)
}

// Store maps product id -> quantity with stock-bound mutation rules.
// Mutations that would exceed stock are silent no-ops; the unchanged
// state is the signal.
type Store struct {
	products Snapshot

	mu         sync.Mutex
	quantities map[string]int
	order      []string
}

func NewStore(products Snapshot) *Store {
	return &Store{
		products:   products,
		quantities: make(map[string]int),
	}
}

// Add puts one unit of the product in the cart: a new line at quantity 1
// when stock allows, an increment when the line exists and stock covers
// one more, otherwise nothing.
func (s *Store) Add(productID string) error {
	p, ok := s.products.Get(productID)
	if !ok {
		return ErrUnknownProduct
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if qty, present := s.quantities[productID]; present {
		if qty+1 <= p.Stock {
			s.quantities[productID] = qty + 1
		}
		return nil
	}
	if p.Stock > 0 {
		s.quantities[productID] = 1
		s.order = append(s.order, productID)
	}
	return nil
}

// SetQuantity clamps the requested quantity to [0, stock]. Zero removes
// the line.
func (s *Store) SetQuantity(productID string, quantity int) error {
	p, ok := s.products.Get(productID)
	if !ok {
		return ErrUnknownProduct
	}

	if quantity < 0 {
		quantity = 0
	}
	if quantity > p.Stock {
		quantity = p.Stock
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity == 0 {
		s.removeLocked(productID)
		return nil
	}
	if _, present := s.quantities[productID]; !present {
		s.order = append(s.order, productID)
	}
	s.quantities[productID] = quantity
	return nil
}

// Remove drops the line if present.
func (s *Store) Remove(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(productID)
}

func (s *Store) removeLocked(productID string) {
	if _, present := s.quantities[productID]; !present {
		return
	}
	delete(s.quantities, productID)
	for i, id := range s.order {
		if id == productID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quantities = make(map[string]int)
	s.order = nil
}

func (s *Store) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.quantities) == 0
}

// Lines returns the raw cart lines in insertion order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Line, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, Line{ProductID: id, Quantity: s.quantities[id]})
	}
	return out
}

// Resolve recomputes every line against the current snapshots. Quantities
// are clamped to current stock and lines whose product vanished or sold
// out are skipped, so externally-driven stock changes can only shrink the
// sale, never oversell it.
func (s *Store) Resolve() ([]ResolvedLine, tax.Breakdown) {
	lines := s.Lines()

	resolved := make([]ResolvedLine, 0, len(lines))
	amounts := make([]tax.LineAmounts, 0, len(lines))
	for _, line := range lines {
		p, ok := s.products.Get(line.ProductID)
		if !ok || p.Stock <= 0 {
			continue
		}
		qty := line.Quantity
		if qty > p.Stock {
			qty = p.Stock
		}
		lineTax, lineTotal := tax.Resolve(p.UnitPrice, p.TaxRate, p.TaxMode, qty)
		resolved = append(resolved, ResolvedLine{Product: p, Quantity: qty, Tax: lineTax, Total: lineTotal})
		amounts = append(amounts, tax.LineAmounts{Tax: lineTax, Total: lineTotal})
	}
	return resolved, tax.Aggregate(amounts)
}
