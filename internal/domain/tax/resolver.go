package tax

import (
	"github.com/shopspring/decimal"
)

// Mode says whether a listed price already contains GST.
type Mode string

const (
	ModeInclusive Mode = "inclusive"
	ModeExclusive Mode = "exclusive"
)

var (
	one     = decimal.NewFromInt(1)
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// Resolve computes (tax, total) for a single line. Amounts are in major
// currency units and the tax is rounded to two places per line; callers
// summing lines inherit that per-line rounding.
func Resolve(unitPrice, rate decimal.Decimal, mode Mode, quantity int) (tax, total decimal.Decimal) {
	base := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))

	switch mode {
	case ModeInclusive:
		// Price already contains tax: back it out.
		total = base
		tax = base.Sub(base.Div(one.Add(rate.Div(hundred)))).Round(2)
	default:
		tax = base.Mul(rate).Div(hundred).Round(2)
		total = base.Add(tax)
	}
	return tax, total
}

// LineAmounts is the computed money of one resolved line.
type LineAmounts struct {
	Tax   decimal.Decimal
	Total decimal.Decimal
}

// Breakdown aggregates an invoice's money. CGST and SGST are each half of
// Tax; that is a presentation split, not a second computation, so an odd
// total keeps its fractional halves.
type Breakdown struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
	CGST     decimal.Decimal `json:"cgst"`
	SGST     decimal.Decimal `json:"sgst"`
}

// Aggregate sums per-line amounts into an invoice breakdown. The aggregate
// tax is the sum of already-rounded line taxes; it is never recomputed from
// the subtotal, so line-level rounding differences stand.
func Aggregate(lines []LineAmounts) Breakdown {
	var tax, total decimal.Decimal
	for _, l := range lines {
		tax = tax.Add(l.Tax)
		total = total.Add(l.Total)
	}
	half := tax.Div(two)
	return Breakdown{
		Subtotal: total.Sub(tax),
		Tax:      tax,
		Total:    total,
		CGST:     half,
		SGST:     half,
	}
}
