package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"superpos/backend/internal/domain"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

const sheetName = "Sales"

var header = []string{
	"Transaction ID",
	"Date",
	"Time",
	"Cashier",
	"Payment Method",
	"Cash Received",
	"Change",
	"Total Amount",
	"Item Count",
}

// File is a rendered export ready to be served as an attachment.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

func ParseFormat(raw string) (Format, bool) {
	switch Format(raw) {
	case "", FormatCSV:
		return FormatCSV, true
	case FormatXLSX:
		return FormatXLSX, true
	}
	return "", false
}

// Sales renders one row per transaction.
func Sales(txns []domain.Transaction, r domain.DateRange, format Format) (File, error) {
	name := fmt.Sprintf("sales_report_%s_%s.%s", r.Start.Format("2006-01-02"), r.End.Format("2006-01-02"), format)
	var buf bytes.Buffer
	switch format {
	case FormatXLSX:
		if err := WriteXLSX(&buf, txns); err != nil {
			return File{}, err
		}
		return File{Name: name, ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", Body: buf.Bytes()}, nil
	default:
		if err := WriteCSV(&buf, txns); err != nil {
			return File{}, err
		}
		return File{Name: name, ContentType: "text/csv; charset=utf-8", Body: buf.Bytes()}, nil
	}
}

func WriteCSV(w io.Writer, txns []domain.Transaction) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, txn := range txns {
		if err := writer.Write(row(txn)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func WriteXLSX(w io.Writer, txns []domain.Transaction) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return err
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return err
	}

	for i, h := range header {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, h); err != nil {
			return err
		}
	}
	for idx, txn := range txns {
		r := idx + 2
		values := []any{
			txn.ID,
			txn.Timestamp.Format("2006-01-02"),
			txn.Timestamp.Format("15:04:05"),
			txn.CashierUsername,
			string(txn.PaymentMethod),
			optionalFloat(txn.CashReceived),
			optionalFloat(txn.ChangeAmount),
			txn.TotalAmount.InexactFloat64(),
			len(txn.Items),
		}
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, r)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return err
			}
		}
	}
	_ = f.SetColWidth(sheetName, "A", "A", 14)
	_ = f.SetColWidth(sheetName, "B", "C", 12)
	_ = f.SetColWidth(sheetName, "D", "E", 16)
	_ = f.SetColWidth(sheetName, "F", "I", 14)

	return f.Write(w)
}

func row(txn domain.Transaction) []string {
	return []string{
		strconv.FormatInt(txn.ID, 10),
		txn.Timestamp.Format("2006-01-02"),
		txn.Timestamp.Format("15:04:05"),
		txn.CashierUsername,
		string(txn.PaymentMethod),
		optionalMoney(txn.CashReceived),
		optionalMoney(txn.ChangeAmount),
		txn.TotalAmount.StringFixed(2),
		strconv.Itoa(len(txn.Items)),
	}
}

func optionalMoney(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.StringFixed(2)
}

func optionalFloat(d *decimal.Decimal) any {
	if d == nil {
		return ""
	}
	return d.InexactFloat64()
}
