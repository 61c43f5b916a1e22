package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"superpos/backend/internal/domain"
	"superpos/backend/internal/export"
	"superpos/backend/internal/report"
	"superpos/backend/internal/store"
)

func (a *API) dateRange(r *http.Request) domain.DateRange {
	q := r.URL.Query()
	return report.ParseRange(q.Get("start_date"), q.Get("end_date"), a.now())
}

func (a *API) handleSalesReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	result, err := a.service.SalesReport(r.Context(), domain.SalesReportQuery{
		Range:   a.dateRange(r),
		Period:  domain.ReportPeriod(strings.TrimSpace(q.Get("period"))),
		GroupBy: domain.ReportGroupBy(strings.TrimSpace(q.Get("group_by"))),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"report": result})
}

func (a *API) handleTopProducts(w http.ResponseWriter, r *http.Request) {
	result, err := a.service.TopProducts(r.Context(), domain.TopProductsQuery{
		Range: a.dateRange(r),
		Limit: parsePositiveLimit(r.URL.Query().Get("limit"), 10, 100),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"report": result})
}

func (a *API) handleCashierPerformance(w http.ResponseWriter, r *http.Request) {
	query := domain.CashierPerformanceQuery{Range: a.dateRange(r)}
	if raw := strings.TrimSpace(r.URL.Query().Get("cashier_id")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id < 1 {
			writeServiceError(w, store.NewValidationError("cashier_id", "must be a positive integer"))
			return
		}
		query.CashierID = id
	}

	result, err := a.service.CashierPerformance(r.Context(), query)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"report": result})
}

func (a *API) handleExportSales(w http.ResponseWriter, r *http.Request) {
	format, ok := export.ParseFormat(strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format"))))
	if !ok {
		writeServiceError(w, store.NewValidationError("format", "must be csv or xlsx"))
		return
	}

	file, err := a.service.ExportSales(r.Context(), a.dateRange(r), format)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Body)
}
