package service

import (
	"github.com/shopspring/decimal"
)

var (
	hundred      = decimal.NewFromInt(100)
	minimumTotal = decimal.RequireFromString("0.01")
)

// PricedLine is one sale line with the unit price frozen at posting time.
type PricedLine struct {
	UnitPrice          decimal.Decimal
	Quantity           int
	DiscountPercentage decimal.Decimal
	DiscountAmount     decimal.Decimal
}

func (l PricedLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

func (l PricedLine) Discount() decimal.Decimal {
	return percentOf(l.Subtotal(), l.DiscountPercentage).Add(l.DiscountAmount)
}

// Totals holds full-precision results; callers round when persisting.
type Totals struct {
	SubtotalBeforeDiscount    decimal.Decimal
	ItemDiscounts             decimal.Decimal
	SubtotalAfterItemDiscount decimal.Decimal
	TransactionDiscount       decimal.Decimal
	TotalDiscount             decimal.Decimal
	Total                     decimal.Decimal
}

// ComputeTotals applies line discounts first, then the transaction discount
// to what remains. The total never drops below 0.01.
func ComputeTotals(lines []PricedLine, pct, amount decimal.Decimal) Totals {
	var t Totals
	for _, line := range lines {
		t.SubtotalBeforeDiscount = t.SubtotalBeforeDiscount.Add(line.Subtotal())
		t.ItemDiscounts = t.ItemDiscounts.Add(line.Discount())
	}
	t.SubtotalAfterItemDiscount = t.SubtotalBeforeDiscount.Sub(t.ItemDiscounts)
	t.TransactionDiscount = percentOf(t.SubtotalAfterItemDiscount, pct).Add(amount)
	t.TotalDiscount = t.ItemDiscounts.Add(t.TransactionDiscount)
	t.Total = t.SubtotalAfterItemDiscount.Sub(t.TransactionDiscount)
	if t.Total.LessThan(minimumTotal) {
		t.Total = minimumTotal
	}
	return t
}

// Ledger returns the totals as stored, in cents. The total is derived from
// the rounded subtotal and discount so the three always reconcile, unless
// the 0.01 floor applies.
func (t Totals) Ledger() (subtotal, discount, total decimal.Decimal) {
	subtotal = money(t.SubtotalBeforeDiscount)
	discount = money(t.TotalDiscount)
	total = subtotal.Sub(discount)
	if total.LessThan(minimumTotal) {
		total = minimumTotal
	}
	return subtotal, discount, total
}

func percentOf(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(pct).Div(hundred)
}

func money(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func hasMoreThanCents(d decimal.Decimal) bool {
	return !d.Equal(d.Round(2))
}

func valueOrZero(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
