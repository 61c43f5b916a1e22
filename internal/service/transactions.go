package service

import (
	"context"

	"superpos/backend/internal/domain"
	"superpos/backend/internal/export"
	"superpos/backend/internal/report"
	"superpos/backend/internal/store"
)

const (
	defaultTransactionPageSize = 50
	maxTransactionPageSize     = 500
)

func (s *Service) GetTransaction(ctx context.Context, id int64) (domain.Transaction, error) {
	if _, err := requireRole(ctx); err != nil {
		return domain.Transaction{}, err
	}
	txn, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}
	return *txn, nil
}

// ListTransactions returns a page of transactions, newest first, and the
// total number of matches.
func (s *Service) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, int, error) {
	if _, err := requireRole(ctx); err != nil {
		return nil, 0, err
	}
	if filter.PaymentMethod != "" && !filter.PaymentMethod.Valid() {
		return nil, 0, store.NewValidationError("payment_method", "must be one of Cash, Card, Credit")
	}
	filter.Offset, filter.Limit = normalizePage(filter.Offset, filter.Limit, defaultTransactionPageSize, maxTransactionPageSize)
	return s.repo.ListTransactions(ctx, filter)
}

func (s *Service) SalesReport(ctx context.Context, q domain.SalesReportQuery) (domain.SalesReport, error) {
	if _, err := requireRole(ctx); err != nil {
		return domain.SalesReport{}, err
	}
	verr := &store.ValidationError{}
	switch q.Period {
	case "", domain.PeriodDaily, domain.PeriodWeekly, domain.PeriodMonthly:
	default:
		verr.Add("period", "must be daily, weekly or monthly")
	}
	switch q.GroupBy {
	case "", domain.GroupByDate, domain.GroupByCashier, domain.GroupByPaymentMethod:
	default:
		verr.Add("group_by", "must be date, cashier or payment_method")
	}
	if err := verr.OrNil(); err != nil {
		return domain.SalesReport{}, err
	}
	return s.reports.Sales(ctx, q)
}

func (s *Service) TopProducts(ctx context.Context, q domain.TopProductsQuery) (domain.TopProductsReport, error) {
	if _, err := requireRole(ctx); err != nil {
		return domain.TopProductsReport{}, err
	}
	return s.reports.TopProducts(ctx, q)
}

func (s *Service) CashierPerformance(ctx context.Context, q domain.CashierPerformanceQuery) (domain.CashierPerformanceReport, error) {
	if _, err := requireRole(ctx); err != nil {
		return domain.CashierPerformanceReport{}, err
	}
	return s.reports.CashierPerformance(ctx, q)
}

// ExportSales renders every transaction in the range. It always reads the
// ledger directly.
func (s *Service) ExportSales(ctx context.Context, r domain.DateRange, format export.Format) (export.File, error) {
	if _, err := requireRole(ctx); err != nil {
		return export.File{}, err
	}
	txns, _, err := s.repo.ListTransactions(ctx, report.Filter(r))
	if err != nil {
		return export.File{}, err
	}
	return export.Sales(txns, r, format)
}
