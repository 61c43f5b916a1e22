package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type CompanyInfo struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
	TaxID   string `json:"tax_id"`
	Website string `json:"website"`
}

type ReceiptSettings struct {
	TaxRate        decimal.Decimal `json:"tax_rate"`
	Currency       string          `json:"currency"`
	CurrencySymbol string          `json:"currency_symbol"`
	PrintWidth     int             `json:"print_width"`
	AutoPrint      bool            `json:"auto_print"`
}

type Receipt struct {
	ID                     int64             `json:"id"`
	Timestamp              time.Time         `json:"timestamp"`
	FormattedTimestamp     string            `json:"formatted_timestamp"`
	FormattedDate          string            `json:"formatted_date"`
	FormattedTime          string            `json:"formatted_time"`
	PaymentMethod          PaymentMethod     `json:"payment_method"`
	CashReceived           *decimal.Decimal  `json:"cash_received"`
	ChangeAmount           *decimal.Decimal  `json:"change_amount"`
	SubtotalBeforeDiscount decimal.Decimal   `json:"subtotal_before_discount"`
	DiscountPercentage     decimal.Decimal   `json:"discount_percentage"`
	DiscountAmount         decimal.Decimal   `json:"discount_amount"`
	TotalDiscount          decimal.Decimal   `json:"total_discount"`
	TotalAmount            decimal.Decimal   `json:"total_amount"`
	Subtotal               decimal.Decimal   `json:"subtotal"`
	TaxAmount              decimal.Decimal   `json:"tax_amount"`
	TaxRate                decimal.Decimal   `json:"tax_rate"`
	CashierUsername        string            `json:"cashier_username"`
	CashierRole            Role              `json:"cashier_role"`
	Items                  []TransactionItem `json:"items"`
}

type ReceiptDocument struct {
	Receipt  Receipt         `json:"receipt"`
	Company  CompanyInfo     `json:"company"`
	Settings ReceiptSettings `json:"settings"`
}

type EscposReceipt struct {
	TransactionID int64  `json:"transaction_id"`
	PreviewText   string `json:"preview_text"`
	EscposBase64  string `json:"escpos_base64"`
	ByteLength    int    `json:"byte_length"`
}
