package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReportPeriod string

const (
	PeriodDaily   ReportPeriod = "daily"
	PeriodWeekly  ReportPeriod = "weekly"
	PeriodMonthly ReportPeriod = "monthly"
)

type ReportGroupBy string

const (
	GroupByDate          ReportGroupBy = "date"
	GroupByCashier       ReportGroupBy = "cashier"
	GroupByPaymentMethod ReportGroupBy = "payment_method"
)

// DateRange covers whole days: Start at 00:00 through End at 23:59:59.
type DateRange struct {
	Start time.Time `json:"start_date"`
	End   time.Time `json:"end_date"`
}

type SalesReportQuery struct {
	Range   DateRange
	Period  ReportPeriod
	GroupBy ReportGroupBy
}

type SalesSummary struct {
	TotalSales         decimal.Decimal `json:"total_sales"`
	TotalTransactions  int             `json:"total_transactions"`
	AverageTransaction decimal.Decimal `json:"average_transaction"`
	CashSales          decimal.Decimal `json:"cash_sales"`
	CardSales          decimal.Decimal `json:"card_sales"`
	CreditSales        decimal.Decimal `json:"credit_sales"`
}

type PeriodSales struct {
	Period           string          `json:"period"`
	TotalSales       decimal.Decimal `json:"total_sales"`
	TransactionCount int             `json:"transaction_count"`
	AvgTransaction   decimal.Decimal `json:"avg_transaction"`
}

type GroupSales struct {
	Key              string          `json:"key"`
	Label            string          `json:"label"`
	TotalSales       decimal.Decimal `json:"total_sales"`
	TransactionCount int             `json:"transaction_count"`
	AvgTransaction   decimal.Decimal `json:"avg_transaction"`
}

type SalesReport struct {
	StartDate   string        `json:"start_date"`
	EndDate     string        `json:"end_date"`
	Period      ReportPeriod  `json:"period"`
	GroupBy     ReportGroupBy `json:"group_by"`
	Summary     SalesSummary  `json:"summary"`
	PeriodData  []PeriodSales `json:"period_data"`
	GroupByData []GroupSales  `json:"group_by_data"`
}

type TopProductsQuery struct {
	Range DateRange
	Limit int
}

type ProductSales struct {
	ProductID         int64           `json:"product_id"`
	Name              string          `json:"name"`
	SKU               string          `json:"sku"`
	UnitPrice         decimal.Decimal `json:"unit_price"`
	TotalQuantitySold int             `json:"total_quantity_sold"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
	TransactionCount  int             `json:"transaction_count"`
}

type TopProductsReport struct {
	StartDate string         `json:"start_date"`
	EndDate   string         `json:"end_date"`
	Limit     int            `json:"limit"`
	Products  []ProductSales `json:"top_products"`
}

type CashierPerformanceQuery struct {
	Range     DateRange
	CashierID int64
}

type CashierSales struct {
	CashierID          int64           `json:"cashier_id"`
	Username           string          `json:"username"`
	Name               string          `json:"name"`
	TotalSales         decimal.Decimal `json:"total_sales"`
	TransactionCount   int             `json:"transaction_count"`
	AverageTransaction decimal.Decimal `json:"average_transaction"`
	CashTransactions   int             `json:"cash_transactions"`
	CardTransactions   int             `json:"card_transactions"`
	CreditTransactions int             `json:"credit_transactions"`
}

type CashierPerformanceReport struct {
	StartDate string         `json:"start_date"`
	EndDate   string         `json:"end_date"`
	Cashiers  []CashierSales `json:"performance"`
}
