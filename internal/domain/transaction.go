package domain

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "Cash"
	PaymentCard   PaymentMethod = "Card"
	PaymentCredit PaymentMethod = "Credit"
)

var PaymentMethods = []PaymentMethod{PaymentCash, PaymentCard, PaymentCredit}

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentCredit:
		return true
	}
	return false
}

var hundred = decimal.NewFromInt(100)

// Transaction is an immutable record of a posted sale.
type Transaction struct {
	ID                     int64             `json:"id"`
	Timestamp              time.Time         `json:"timestamp"`
	PaymentMethod          PaymentMethod     `json:"payment_method"`
	CashReceived           *decimal.Decimal  `json:"cash_received"`
	ChangeAmount           *decimal.Decimal  `json:"change_amount"`
	SubtotalBeforeDiscount decimal.Decimal   `json:"subtotal_before_discount"`
	DiscountPercentage     decimal.Decimal   `json:"discount_percentage"`
	DiscountAmount         decimal.Decimal   `json:"discount_amount"`
	TotalDiscount          decimal.Decimal   `json:"total_discount"`
	TotalAmount            decimal.Decimal   `json:"total_amount"`
	CashierID              int64             `json:"cashier"`
	CashierUsername        string            `json:"cashier_username"`
	CashierName            string            `json:"cashier_name"`
	CashierRole            Role              `json:"cashier_role"`
	Items                  []TransactionItem `json:"items"`
}

// ItemCount is the number of units sold across all lines.
func (t Transaction) ItemCount() int {
	count := 0
	for _, item := range t.Items {
		count += item.Quantity
	}
	return count
}

type TransactionItem struct {
	ID                 int64           `json:"id"`
	TransactionID      int64           `json:"transaction_id"`
	ProductID          int64           `json:"product"`
	ProductName        string          `json:"product_name"`
	ProductSKU         string          `json:"product_sku"`
	Quantity           int             `json:"quantity"`
	UnitPriceAtSale    decimal.Decimal `json:"unit_price_at_sale"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	DiscountAmount     decimal.Decimal `json:"discount_amount"`
	// CatalogUnitPrice is the product's current list price, joined for reports.
	CatalogUnitPrice decimal.Decimal `json:"-"`
}

func (i TransactionItem) BaseSubtotal() decimal.Decimal {
	return i.UnitPriceAtSale.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i TransactionItem) ItemDiscount() decimal.Decimal {
	return i.BaseSubtotal().Mul(i.DiscountPercentage).Div(hundred).Add(i.DiscountAmount)
}

func (i TransactionItem) Subtotal() decimal.Decimal {
	return i.BaseSubtotal().Sub(i.ItemDiscount())
}

func (i TransactionItem) MarshalJSON() ([]byte, error) {
	type plain TransactionItem
	return json.Marshal(struct {
		plain
		BaseSubtotal decimal.Decimal `json:"base_subtotal"`
		ItemDiscount decimal.Decimal `json:"item_discount"`
		Subtotal     decimal.Decimal `json:"subtotal"`
	}{
		plain:        plain(i),
		BaseSubtotal: i.BaseSubtotal().Round(2),
		ItemDiscount: i.ItemDiscount().Round(2),
		Subtotal:     i.Subtotal().Round(2),
	})
}

type LineItemRequest struct {
	ProductID          int64            `json:"product_id"`
	Quantity           int              `json:"quantity"`
	DiscountPercentage *decimal.Decimal `json:"discount_percentage,omitempty"`
	DiscountAmount     *decimal.Decimal `json:"discount_amount,omitempty"`
}

type PostTransactionRequest struct {
	Items              []LineItemRequest `json:"items"`
	PaymentMethod      PaymentMethod     `json:"payment_method"`
	CashReceived       *decimal.Decimal  `json:"cash_received,omitempty"`
	ChangeAmount       *decimal.Decimal  `json:"change_amount,omitempty"`
	DiscountPercentage *decimal.Decimal  `json:"discount_percentage,omitempty"`
	DiscountAmount     *decimal.Decimal  `json:"discount_amount,omitempty"`
}

type TransactionFilter struct {
	// From is inclusive, To is exclusive.
	From          *time.Time
	To            *time.Time
	CashierID     int64
	PaymentMethod PaymentMethod
	Offset        int
	// Limit of zero returns every match.
	Limit int
}
