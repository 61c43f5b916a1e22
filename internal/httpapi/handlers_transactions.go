package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"superpos/backend/internal/domain"
)

func (a *API) handlePostTransaction(w http.ResponseWriter, r *http.Request) {
	var req domain.PostTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}

	txn, err := a.service.PostTransaction(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]any{
		"transaction_id": txn.ID,
		"message":        "Transaction completed successfully",
		"transaction":    txn,
	})
}

func (a *API) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit, offset := parsePage(r, 50, 500)
	filter := domain.TransactionFilter{
		PaymentMethod: domain.PaymentMethod(strings.TrimSpace(q.Get("payment_method"))),
		Offset:        offset,
		Limit:         limit,
	}
	if start, ok := parseDay(q.Get("start_date")); ok {
		filter.From = &start
	}
	if end, ok := parseDay(q.Get("end_date")); ok {
		next := end.AddDate(0, 0, 1)
		filter.To = &next
	}
	if raw := strings.TrimSpace(q.Get("cashier_id")); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			filter.CashierID = id
		}
	}

	txns, total, err := a.service.ListTransactions(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{
		"count":        total,
		"page":         page,
		"limit":        limit,
		"transactions": txns,
	})
}

func (a *API) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	txn, err := a.service.GetTransaction(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"transaction": txn})
}

func (a *API) handleReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	doc, err := a.service.Receipt(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{
		"receipt":  doc.Receipt,
		"company":  doc.Company,
		"settings": doc.Settings,
	})
}

func (a *API) handleEscposReceipt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out, err := a.service.EscposReceipt(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{
		"transaction_id": out.TransactionID,
		"preview_text":   out.PreviewText,
		"escpos_base64":  out.EscposBase64,
		"byte_length":    out.ByteLength,
		"file_name":      "receipt-" + strconv.FormatInt(out.TransactionID, 10) + ".bin",
	})
}

func parseDay(raw string) (time.Time, bool) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
