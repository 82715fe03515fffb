// Package tax computes invoice totals.
//
// Every money value is a decimal with two places. Line totals and the tax
// amount are rounded half-up at the moment they are computed; subtotal and
// total are exact sums of already-rounded values, so
// subtotal + taxAmount == total always holds for what gets persisted.
package tax

import (
	"github.com/shopspring/decimal"

	"github.com/dukerupert/papertrail/internal/domain"
)

// Places is the currency precision.
const Places = 2

var hundred = decimal.NewFromInt(100)

// Result holds computed totals. Items is a copy of the input with Total set.
type Result struct {
	Items     []domain.LineItem
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// Calculate fills line totals and derives subtotal, tax and grand total.
//
// Quantity must be at least 1, unit price and discount must not be negative,
// and a discount larger than quantity * unitPrice is rejected. rate is a
// percentage in [0, 100]. The input slice is not modified.
func Calculate(items []domain.LineItem, rate decimal.Decimal) (*Result, error) {
	const op = "tax.calculate"

	if len(items) == 0 {
		return nil, domain.ErrNoLineItems
	}
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return nil, domain.ErrInvalidTaxRate
	}

	out := make([]domain.LineItem, len(items))
	subtotal := decimal.Zero

	for i, item := range items {
		if item.Quantity < 1 {
			return nil, domain.Errorf(domain.EINVALID, op, "item %d: quantity must be at least 1", i+1)
		}
		if item.UnitPrice.IsNegative() {
			return nil, domain.Errorf(domain.EINVALID, op, "item %d: unit price cannot be negative", i+1)
		}
		if item.Discount.IsNegative() {
			return nil, domain.Errorf(domain.EINVALID, op, "item %d: discount cannot be negative", i+1)
		}

		line := LineTotal(item)
		if line.IsNegative() {
			return nil, domain.ErrNegativeLineTotal
		}

		item.Total = line
		out[i] = item
		subtotal = subtotal.Add(line)
	}

	taxAmount := Amount(subtotal, rate)

	return &Result{
		Items:     out,
		Subtotal:  subtotal,
		TaxAmount: taxAmount,
		Total:     subtotal.Add(taxAmount),
	}, nil
}

// LineTotal is quantity * unitPrice - discount, rounded to currency precision.
func LineTotal(item domain.LineItem) decimal.Decimal {
	return decimal.NewFromInt(int64(item.Quantity)).
		Mul(item.UnitPrice).
		Sub(item.Discount).
		Round(Places)
}

// Amount returns subtotal * rate / 100 rounded half-up to currency precision.
// decimal.Round rounds half away from zero, which is half-up for the
// non-negative subtotals Calculate allows.
func Amount(subtotal, rate decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(rate).Div(hundred).Round(Places)
}
