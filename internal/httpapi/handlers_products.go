package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"superpos/backend/internal/domain"
	"superpos/backend/internal/service"
)

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit, offset := parsePage(r, 50, 200)
	filter := domain.ProductFilter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
		Offset:   offset,
		Limit:    limit,
	}
	if isTruthy(q.Get("low_stock")) {
		threshold := service.DefaultLowStockThreshold
		filter.MaxStock = &threshold
	}

	products, total, err := a.service.ListProducts(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{
		"count":    total,
		"page":     page,
		"limit":    limit,
		"products": products,
	})
}

func (a *API) handleProductBySKU(w http.ResponseWriter, r *http.Request) {
	product, err := a.service.GetProductBySKU(r.Context(), r.URL.Query().Get("sku"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"product": product})
}

func (a *API) handleLowStock(w http.ResponseWriter, r *http.Request) {
	threshold := service.DefaultLowStockThreshold
	if raw := strings.TrimSpace(r.URL.Query().Get("threshold")); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
			threshold = parsed
		}
	}

	products, err := a.service.LowStock(r.Context(), threshold)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{
		"threshold": threshold,
		"count":     len(products),
		"products":  products,
	})
}

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	product, err := a.service.GetProduct(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"product": product})
}

func (a *API) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	product, err := a.service.CreateProduct(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, http.StatusCreated, map[string]any{
		"message": "Product created successfully",
		"product": product,
	})
}

func (a *API) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req domain.ProductUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	product, err := a.service.UpdateProduct(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{
		"message": "Product updated successfully",
		"product": product,
	})
}

func (a *API) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if err := a.service.DeleteProduct(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{"message": "Product deleted successfully"})
}

func (a *API) handleUpdateInventory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req domain.InventoryUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	product, err := a.service.AdjustStock(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{
		"message": "Inventory updated successfully",
		"product": product,
	})
}

func (a *API) handlePriceHistory(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 50, 200)
	history, err := a.service.ListPriceHistory(r.Context(), id, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{
		"product_id": id,
		"count":      len(history),
		"history":    history,
	})
}

func (a *API) handleStockAdjustments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 50, 200)
	entries, err := a.service.ListStockAdjustments(r.Context(), id, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeOK(w, http.StatusOK, map[string]any{
		"product_id":  id,
		"count":       len(entries),
		"adjustments": entries,
	})
}

func isTruthy(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
