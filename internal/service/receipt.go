package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"superpos/backend/internal/domain"
)

// Prices are VAT-inclusive at a flat 5%, so tax is backed out of the total.
var (
	receiptTaxRate    = decimal.RequireFromString("0.05")
	receiptTaxPercent = decimal.NewFromInt(5)
)

func (s *Service) Receipt(ctx context.Context, id int64) (domain.ReceiptDocument, error) {
	txn, err := s.GetTransaction(ctx, id)
	if err != nil {
		return domain.ReceiptDocument{}, err
	}
	return domain.ReceiptDocument{
		Receipt:  BuildReceipt(txn),
		Company:  s.profile.Company,
		Settings: s.profile.Settings,
	}, nil
}

func BuildReceipt(txn domain.Transaction) domain.Receipt {
	net := txn.TotalAmount.Div(decimal.NewFromInt(1).Add(receiptTaxRate))
	return domain.Receipt{
		ID:                     txn.ID,
		Timestamp:              txn.Timestamp,
		FormattedTimestamp:     txn.Timestamp.Format("2006-01-02 15:04:05"),
		FormattedDate:          txn.Timestamp.Format("January 02, 2006"),
		FormattedTime:          txn.Timestamp.Format("03:04 PM"),
		PaymentMethod:          txn.PaymentMethod,
		CashReceived:           txn.CashReceived,
		ChangeAmount:           txn.ChangeAmount,
		SubtotalBeforeDiscount: txn.SubtotalBeforeDiscount,
		DiscountPercentage:     txn.DiscountPercentage,
		DiscountAmount:         txn.DiscountAmount,
		TotalDiscount:          txn.TotalDiscount,
		TotalAmount:            txn.TotalAmount,
		Subtotal:               net.Round(2),
		TaxAmount:              txn.TotalAmount.Sub(net).Round(2),
		TaxRate:                receiptTaxPercent,
		CashierUsername:        txn.CashierUsername,
		CashierRole:            txn.CashierRole,
		Items:                  txn.Items,
	}
}

// EscposReceipt renders the receipt as printer bytes plus a plain text
// preview of the same lines.
func (s *Service) EscposReceipt(ctx context.Context, id int64) (domain.EscposReceipt, error) {
	doc, err := s.Receipt(ctx, id)
	if err != nil {
		return domain.EscposReceipt{}, err
	}
	lines := receiptLines(doc, lineWidth(doc.Settings.PrintWidth))

	escpos := []byte{0x1b, 0x40}
	for _, line := range lines {
		escpos = append(escpos, []byte(line)...)
		escpos = append(escpos, '\n')
	}
	escpos = append(escpos, []byte{0x1d, 0x56, 0x41, 0x10}...)

	return domain.EscposReceipt{
		TransactionID: doc.Receipt.ID,
		PreviewText:   strings.Join(lines, "\n"),
		EscposBase64:  base64.StdEncoding.EncodeToString(escpos),
		ByteLength:    len(escpos),
	}, nil
}

// lineWidth maps paper width in millimetres to printable columns.
func lineWidth(paperMM int) int {
	if paperMM > 0 && paperMM <= 58 {
		return 32
	}
	return 42
}

func receiptLines(doc domain.ReceiptDocument, width int) []string {
	r := doc.Receipt
	currency := doc.Settings.CurrencySymbol
	if currency == "" {
		currency = doc.Settings.Currency
	}
	rule := strings.Repeat("=", width)
	thin := strings.Repeat("-", width)

	lines := []string{center(doc.Company.Name, width)}
	for _, extra := range []string{doc.Company.Address, doc.Company.Phone, doc.Company.Email} {
		if extra != "" {
			lines = append(lines, center(extra, width))
		}
	}
	if doc.Company.TaxID != "" {
		lines = append(lines, center("TRN: "+doc.Company.TaxID, width))
	}
	lines = append(lines,
		rule,
		fmt.Sprintf("Receipt #%d", r.ID),
		"Date: "+r.FormattedDate+" "+r.FormattedTime,
		"Cashier: "+r.CashierUsername,
		thin,
	)
	for _, item := range r.Items {
		lines = append(lines, truncate(fmt.Sprintf("%s x%d", item.ProductName, item.Quantity), width))
		lines = append(lines, pair(fmt.Sprintf("  @ %s", item.UnitPriceAtSale.StringFixed(2)), item.Subtotal().StringFixed(2), width))
		if discount := item.ItemDiscount(); discount.IsPositive() {
			lines = append(lines, pair("  discount", "-"+discount.StringFixed(2), width))
		}
	}
	lines = append(lines,
		thin,
		pair("Subtotal", r.SubtotalBeforeDiscount.StringFixed(2), width),
	)
	if r.TotalDiscount.IsPositive() {
		lines = append(lines, pair("Discount", "-"+r.TotalDiscount.StringFixed(2), width))
	}
	lines = append(lines,
		pair("Net (excl. VAT)", r.Subtotal.StringFixed(2), width),
		pair(fmt.Sprintf("VAT %s%%", r.TaxRate.String()), r.TaxAmount.StringFixed(2), width),
		pair("TOTAL "+currency, r.TotalAmount.StringFixed(2), width),
		pair("Payment", string(r.PaymentMethod), width),
	)
	if r.CashReceived != nil {
		lines = append(lines, pair("Cash", r.CashReceived.StringFixed(2), width))
	}
	if r.ChangeAmount != nil {
		lines = append(lines, pair("Change", r.ChangeAmount.StringFixed(2), width))
	}
	lines = append(lines,
		rule,
		center("Thank you for shopping with us", width),
		"",
	)
	return lines
}

func pair(left, right string, width int) string {
	gap := width - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	if gap < 1 {
		left = truncate(left, width-utf8.RuneCountInString(right)-1)
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func center(text string, width int) string {
	text = truncate(text, width)
	pad := (width - utf8.RuneCountInString(text)) / 2
	return strings.Repeat(" ", pad) + text
}

// truncate cuts text to at most width runes.
func truncate(text string, width int) string {
	if width < 1 {
		return ""
	}
	if utf8.RuneCountInString(text) <= width {
		return text
	}
	return string([]rune(text)[:width])
}
