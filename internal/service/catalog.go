package service

import (
	"context"
	"strings"

	"superpos/backend/internal/domain"
	"superpos/backend/internal/logger"
	"superpos/backend/internal/store"
)

const (
	DefaultLowStockThreshold = 10
	defaultProductPageSize   = 50
	maxProductPageSize       = 200
	defaultHistoryLimit      = 50
)

func (s *Service) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	if _, err := requireRole(ctx); err != nil {
		return nil, 0, err
	}
	filter.Search = strings.TrimSpace(filter.Search)
	filter.Category = strings.TrimSpace(filter.Category)
	filter.Offset, filter.Limit = normalizePage(filter.Offset, filter.Limit, defaultProductPageSize, maxProductPageSize)
	return s.repo.ListProducts(ctx, filter)
}

func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	if _, err := requireRole(ctx); err != nil {
		return domain.Product{}, err
	}
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) GetProductBySKU(ctx context.Context, sku string) (domain.Product, error) {
	if _, err := requireRole(ctx); err != nil {
		return domain.Product{}, err
	}
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return domain.Product{}, store.NewValidationError("sku", "SKU parameter is required")
	}
	product, err := s.repo.GetProductBySKU(ctx, sku)
	if err != nil {
		return domain.Product{}, err
	}
	return *product, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	actor, err := requireRole(ctx, domain.RoleAdmin)
	if err != nil {
		return domain.Product{}, err
	}

	req.SKU = strings.TrimSpace(req.SKU)
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)

	verr := &store.ValidationError{}
	if req.SKU == "" {
		verr.Add("sku", "this field is required")
	}
	if req.Name == "" {
		verr.Add("name", "this field is required")
	}
	if req.UnitPrice.LessThan(minimumTotal) {
		verr.Add("unit_price", "must be at least 0.01")
	}
	if req.Cost.IsNegative() {
		verr.Add("cost", "must not be negative")
	}
	if req.StockQuantity < 0 {
		verr.Add("stock_quantity", "must not be negative")
	}
	if err := verr.OrNil(); err != nil {
		return domain.Product{}, err
	}

	created, err := s.repo.CreateProduct(ctx, domain.Product{
		SKU:           req.SKU,
		Name:          req.Name,
		UnitPrice:     money(req.UnitPrice),
		Cost:          money(req.Cost),
		Category:      req.Category,
		StockQuantity: req.StockQuantity,
	})
	if err != nil {
		return domain.Product{}, err
	}

	logger.Info("product created",
		"product_id", created.ID,
		"sku", created.SKU,
		"unit_price", created.UnitPrice.StringFixed(2),
		"stock", created.StockQuantity,
		"by", actor.Username,
	)
	return *created, nil
}

// UpdateProduct applies a partial update. The SKU may be echoed but not
// changed. A stock_quantity goes through the audited stock adjustment path.
func (s *Service) UpdateProduct(ctx context.Context, id int64, req domain.ProductUpdateRequest) (domain.Product, error) {
	actor, err := requireRole(ctx, domain.RoleAdmin)
	if err != nil {
		return domain.Product{}, err
	}
	existing, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	updated := *existing
	verr := &store.ValidationError{}
	if req.SKU != nil && strings.TrimSpace(*req.SKU) != existing.SKU {
		verr.Add("sku", "SKU cannot be changed once created")
	}
	if req.Name != nil {
		updated.Name = strings.TrimSpace(*req.Name)
		if updated.Name == "" {
			verr.Add("name", "may not be blank")
		}
	}
	if req.Category != nil {
		updated.Category = strings.TrimSpace(*req.Category)
	}
	if req.UnitPrice != nil {
		if req.UnitPrice.LessThan(minimumTotal) {
			verr.Add("unit_price", "must be at least 0.01")
		}
		updated.UnitPrice = money(*req.UnitPrice)
	}
	if req.Cost != nil {
		if req.Cost.IsNegative() {
			verr.Add("cost", "must not be negative")
		}
		updated.Cost = money(*req.Cost)
	}
	if req.StockQuantity != nil && *req.StockQuantity < 0 {
		verr.Add("stock_quantity", "must not be negative")
	}
	if err := verr.OrNil(); err != nil {
		return domain.Product{}, err
	}

	var change *domain.PriceChange
	if !updated.UnitPrice.Equal(existing.UnitPrice) || !updated.Cost.Equal(existing.Cost) {
		change = &domain.PriceChange{
			ProductID:    id,
			OldUnitPrice: existing.UnitPrice,
			NewUnitPrice: updated.UnitPrice,
			OldCost:      existing.Cost,
			NewCost:      updated.Cost,
			ChangedBy:    actor.Username,
		}
	}

	var stock *domain.StockAdjustment
	if req.StockQuantity != nil && *req.StockQuantity != existing.StockQuantity {
		stock = &domain.StockAdjustment{
			ProductID:   id,
			NewQuantity: *req.StockQuantity,
			Reason:      "product update",
			AdjustedBy:  actor.Username,
		}
	}

	result, err := s.repo.UpdateProduct(ctx, updated, change, stock)
	if err != nil {
		return domain.Product{}, err
	}

	logger.Info("product updated",
		"product_id", id,
		"price_changed", change != nil,
		"stock_changed", stock != nil,
		"by", actor.Username,
	)
	return *result, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	actor, err := requireRole(ctx, domain.RoleAdmin)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}
	logger.Info("product deleted", "product_id", id, "by", actor.Username)
	return nil
}

// AdjustStock overwrites a product's stock level and records the change.
func (s *Service) AdjustStock(ctx context.Context, id int64, req domain.InventoryUpdateRequest) (domain.Product, error) {
	actor, err := requireRole(ctx, domain.RoleAdmin)
	if err != nil {
		return domain.Product{}, err
	}
	if req.StockQuantity == nil {
		return domain.Product{}, store.NewValidationError("stock_quantity", "this field is required")
	}
	if *req.StockQuantity < 0 {
		return domain.Product{}, store.NewValidationError("stock_quantity", "must not be negative")
	}
	reason := strings.TrimSpace(req.AdjustmentReason)
	if reason == "" {
		reason = "manual adjustment"
	}

	product, err := s.repo.SetStock(ctx, domain.StockAdjustment{
		ProductID:   id,
		NewQuantity: *req.StockQuantity,
		Reason:      reason,
		AdjustedBy:  actor.Username,
	})
	if err != nil {
		return domain.Product{}, err
	}
	logger.Info("stock adjusted",
		"product_id", id,
		"stock", product.StockQuantity,
		"reason", reason,
		"by", actor.Username,
	)
	return *product, nil
}

func (s *Service) LowStock(ctx context.Context, threshold int) ([]domain.Product, error) {
	if _, err := requireRole(ctx); err != nil {
		return nil, err
	}
	if threshold < 0 {
		threshold = DefaultLowStockThreshold
	}
	return s.repo.ListLowStock(ctx, threshold)
}

func (s *Service) ListPriceHistory(ctx context.Context, id int64, limit int) ([]domain.PriceChange, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, err
	}
	_, limit = normalizePage(0, limit, defaultHistoryLimit, maxProductPageSize)
	return s.repo.ListPriceHistory(ctx, id, limit)
}

func (s *Service) ListStockAdjustments(ctx context.Context, id int64, limit int) ([]domain.StockAdjustment, error) {
	if _, err := requireRole(ctx, domain.RoleAdmin); err != nil {
		return nil, err
	}
	_, limit = normalizePage(0, limit, defaultHistoryLimit, maxProductPageSize)
	return s.repo.ListStockAdjustments(ctx, id, limit)
}
