package report

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"superpos/backend/internal/cache"
	"superpos/backend/internal/domain"
	"superpos/backend/internal/logger"
	"superpos/backend/internal/metrics"
)

const (
	dateLayout         = "2006-01-02"
	defaultRangeDays   = 30
	defaultTopProducts = 10
	maxTopProducts     = 100
)

// Source is the read side of the ledger.
type Source interface {
	ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, int, error)
}

// Engine aggregates posted transactions into reports. Results may be served
// from cache for up to cacheTTL, so a report can lag the ledger slightly.
type Engine struct {
	source   Source
	cache    cache.ReportCache
	cacheTTL time.Duration
	metrics  *metrics.Recorder
}

func NewEngine(source Source, cacheStore cache.ReportCache, cacheTTL time.Duration, recorder *metrics.Recorder) *Engine {
	if cacheStore == nil {
		cacheStore = cache.NoopReportCache{}
	}
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &Engine{
		source:   source,
		cache:    cacheStore,
		cacheTTL: cacheTTL,
		metrics:  recorder,
	}
}

// ParseRange reads YYYY-MM-DD bounds. Missing or malformed values fall back
// to the 30 days ending today, and reversed bounds are swapped.
func ParseRange(start, end string, now time.Time) domain.DateRange {
	today := truncateDay(now)
	endDate, err := time.Parse(dateLayout, strings.TrimSpace(end))
	if err != nil {
		endDate = today
	}
	startDate, err := time.Parse(dateLayout, strings.TrimSpace(start))
	if err != nil {
		startDate = endDate.AddDate(0, 0, -defaultRangeDays)
	}
	if startDate.After(endDate) {
		startDate, endDate = endDate, startDate
	}
	return domain.DateRange{Start: startDate.UTC(), End: endDate.UTC()}
}

// Filter turns a whole-day range into a half-open timestamp filter.
func Filter(r domain.DateRange) domain.TransactionFilter {
	from := truncateDay(r.Start)
	to := truncateDay(r.End).AddDate(0, 0, 1)
	return domain.TransactionFilter{From: &from, To: &to}
}

func (e *Engine) Transactions(ctx context.Context, r domain.DateRange) ([]domain.Transaction, error) {
	txns, _, err := e.source.ListTransactions(ctx, Filter(r))
	return txns, err
}

func (e *Engine) Sales(ctx context.Context, q domain.SalesReportQuery) (domain.SalesReport, error) {
	if q.Period == "" {
		q.Period = domain.PeriodDaily
	}
	if q.GroupBy == "" {
		q.GroupBy = domain.GroupByDate
	}
	key := fmt.Sprintf("sales:%s:%s:%s:%s", formatDay(q.Range.Start), formatDay(q.Range.End), q.Period, q.GroupBy)
	return cached(ctx, e, "sales", key, func() (domain.SalesReport, error) {
		txns, err := e.Transactions(ctx, q.Range)
		if err != nil {
			return domain.SalesReport{}, err
		}
		return BuildSales(txns, q), nil
	})
}

func (e *Engine) TopProducts(ctx context.Context, q domain.TopProductsQuery) (domain.TopProductsReport, error) {
	q.Limit = normalizeLimit(q.Limit)
	key := fmt.Sprintf("top:%s:%s:%d", formatDay(q.Range.Start), formatDay(q.Range.End), q.Limit)
	return cached(ctx, e, "top_products", key, func() (domain.TopProductsReport, error) {
		txns, err := e.Transactions(ctx, q.Range)
		if err != nil {
			return domain.TopProductsReport{}, err
		}
		return BuildTopProducts(txns, q), nil
	})
}

func (e *Engine) CashierPerformance(ctx context.Context, q domain.CashierPerformanceQuery) (domain.CashierPerformanceReport, error) {
	key := fmt.Sprintf("cashiers:%s:%s:%d", formatDay(q.Range.Start), formatDay(q.Range.End), q.CashierID)
	return cached(ctx, e, "cashier_performance", key, func() (domain.CashierPerformanceReport, error) {
		filter := Filter(q.Range)
		filter.CashierID = q.CashierID
		txns, _, err := e.source.ListTransactions(ctx, filter)
		if err != nil {
			return domain.CashierPerformanceReport{}, err
		}
		return BuildCashierPerformance(txns, q), nil
	})
}

// cached serves key from the cache when possible. Cache failures degrade to
// a direct computation.
func cached[T any](ctx context.Context, e *Engine, report, key string, compute func() (T, error)) (T, error) {
	var hit T
	ok, err := e.cache.Get(ctx, key, &hit)
	if err != nil {
		logger.Warn("report cache read failed", "report", report, "key", key, "error", err)
	}
	e.metrics.ReportCacheLookup(report, ok && err == nil)
	if ok && err == nil {
		return hit, nil
	}

	result, err := compute()
	if err != nil {
		return result, err
	}
	if err := e.cache.Set(ctx, key, result, e.cacheTTL); err != nil {
		logger.Warn("report cache write failed", "report", report, "key", key, "error", err)
	}
	return result, nil
}

func BuildSales(txns []domain.Transaction, q domain.SalesReportQuery) domain.SalesReport {
	report := domain.SalesReport{
		StartDate:   formatDay(q.Range.Start),
		EndDate:     formatDay(q.Range.End),
		Period:      q.Period,
		GroupBy:     q.GroupBy,
		PeriodData:  []domain.PeriodSales{},
		GroupByData: []domain.GroupSales{},
	}

	type bucket struct {
		label string
		total decimal.Decimal
		count int
	}
	periods := make(map[string]*bucket)
	groups := make(map[string]*bucket)

	summary := &report.Summary
	for _, txn := range txns {
		summary.TotalSales = summary.TotalSales.Add(txn.TotalAmount)
		summary.TotalTransactions++
		switch txn.PaymentMethod {
		case domain.PaymentCash:
			summary.CashSales = summary.CashSales.Add(txn.TotalAmount)
		case domain.PaymentCard:
			summary.CardSales = summary.CardSales.Add(txn.TotalAmount)
		case domain.PaymentCredit:
			summary.CreditSales = summary.CreditSales.Add(txn.TotalAmount)
		}

		label := periodLabel(txn.Timestamp, q.Period)
		if periods[label] == nil {
			periods[label] = &bucket{label: label}
		}
		periods[label].total = periods[label].total.Add(txn.TotalAmount)
		periods[label].count++

		key, groupLabel := groupKey(txn, q.GroupBy)
		if key == "" {
			continue
		}
		if groups[key] == nil {
			groups[key] = &bucket{label: groupLabel}
		}
		groups[key].total = groups[key].total.Add(txn.TotalAmount)
		groups[key].count++
	}
	summary.AverageTransaction = average(summary.TotalSales, summary.TotalTransactions)

	for label, b := range periods {
		report.PeriodData = append(report.PeriodData, domain.PeriodSales{
			Period:           label,
			TotalSales:       b.total,
			TransactionCount: b.count,
			AvgTransaction:   average(b.total, b.count),
		})
	}
	sort.Slice(report.PeriodData, func(i, j int) bool {
		return report.PeriodData[i].Period < report.PeriodData[j].Period
	})

	for key, b := range groups {
		report.GroupByData = append(report.GroupByData, domain.GroupSales{
			Key:              key,
			Label:            b.label,
			TotalSales:       b.total,
			TransactionCount: b.count,
			AvgTransaction:   average(b.total, b.count),
		})
	}
	sort.Slice(report.GroupByData, func(i, j int) bool {
		a, b := report.GroupByData[i], report.GroupByData[j]
		if cmp := a.TotalSales.Cmp(b.TotalSales); cmp != 0 {
			return cmp > 0
		}
		return a.Key < b.Key
	})
	return report
}

func BuildTopProducts(txns []domain.Transaction, q domain.TopProductsQuery) domain.TopProductsReport {
	limit := normalizeLimit(q.Limit)
	type agg struct {
		row  domain.ProductSales
		seen map[int64]struct{}
	}
	byProduct := make(map[int64]*agg)
	for _, txn := range txns {
		for _, item := range txn.Items {
			a := byProduct[item.ProductID]
			if a == nil {
				price := item.CatalogUnitPrice
				if price.IsZero() {
					price = item.UnitPriceAtSale
				}
				a = &agg{
					row: domain.ProductSales{
						ProductID: item.ProductID,
						Name:      item.ProductName,
						SKU:       item.ProductSKU,
						UnitPrice: price,
					},
					seen: make(map[int64]struct{}),
				}
				byProduct[item.ProductID] = a
			}
			a.row.TotalQuantitySold += item.Quantity
			a.row.TotalRevenue = a.row.TotalRevenue.Add(item.BaseSubtotal())
			a.seen[txn.ID] = struct{}{}
		}
	}

	rows := make([]domain.ProductSales, 0, len(byProduct))
	for _, a := range byProduct {
		a.row.TransactionCount = len(a.seen)
		rows = append(rows, a.row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].TotalQuantitySold != rows[j].TotalQuantitySold {
			return rows[i].TotalQuantitySold > rows[j].TotalQuantitySold
		}
		if cmp := rows[i].TotalRevenue.Cmp(rows[j].TotalRevenue); cmp != 0 {
			return cmp > 0
		}
		return rows[i].ProductID < rows[j].ProductID
	})
	if len(rows) > limit {
		rows = rows[:limit]
	}

	return domain.TopProductsReport{
		StartDate: formatDay(q.Range.Start),
		EndDate:   formatDay(q.Range.End),
		Limit:     limit,
		Products:  rows,
	}
}

func BuildCashierPerformance(txns []domain.Transaction, q domain.CashierPerformanceQuery) domain.CashierPerformanceReport {
	byCashier := make(map[int64]*domain.CashierSales)
	for _, txn := range txns {
		if q.CashierID != 0 && txn.CashierID != q.CashierID {
			continue
		}
		row := byCashier[txn.CashierID]
		if row == nil {
			name := txn.CashierName
			if name == "" {
				name = txn.CashierUsername
			}
			row = &domain.CashierSales{CashierID: txn.CashierID, Username: txn.CashierUsername, Name: name}
			byCashier[txn.CashierID] = row
		}
		row.TotalSales = row.TotalSales.Add(txn.TotalAmount)
		row.TransactionCount++
		switch txn.PaymentMethod {
		case domain.PaymentCash:
			row.CashTransactions++
		case domain.PaymentCard:
			row.CardTransactions++
		case domain.PaymentCredit:
			row.CreditTransactions++
		}
	}

	rows := make([]domain.CashierSales, 0, len(byCashier))
	for _, row := range byCashier {
		row.AverageTransaction = average(row.TotalSales, row.TransactionCount)
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if cmp := rows[i].TotalSales.Cmp(rows[j].TotalSales); cmp != 0 {
			return cmp > 0
		}
		return rows[i].CashierID < rows[j].CashierID
	})

	return domain.CashierPerformanceReport{
		StartDate: formatDay(q.Range.Start),
		EndDate:   formatDay(q.Range.End),
		Cashiers:  rows,
	}
}

func periodLabel(ts time.Time, period domain.ReportPeriod) string {
	day := truncateDay(ts)
	switch period {
	case domain.PeriodWeekly:
		offset := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -offset).Format(dateLayout)
	case domain.PeriodMonthly:
		return day.Format("2006-01")
	default:
		return day.Format(dateLayout)
	}
}

func groupKey(txn domain.Transaction, groupBy domain.ReportGroupBy) (string, string) {
	switch groupBy {
	case domain.GroupByCashier:
		name := txn.CashierName
		if name == "" {
			name = txn.CashierUsername
		}
		return strconv.FormatInt(txn.CashierID, 10), name
	case domain.GroupByPaymentMethod:
		return string(txn.PaymentMethod), string(txn.PaymentMethod)
	}
	return "", ""
}

func average(total decimal.Decimal, count int) decimal.Decimal {
	if count == 0 {
		return decimal.Zero
	}
	return total.Div(decimal.NewFromInt(int64(count))).Round(2)
}

func normalizeLimit(limit int) int {
	if limit < 1 {
		return defaultTopProducts
	}
	if limit > maxTopProducts {
		return maxTopProducts
	}
	return limit
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func formatDay(t time.Time) string {
	return t.UTC().Format(dateLayout)
}
