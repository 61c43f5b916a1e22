package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"superpos/backend/internal/domain"
	"superpos/backend/internal/logger"
	"superpos/backend/internal/store"
)

// PostTransaction records a sale for the calling cashier. Stock checks,
// pricing, the ledger rows and the inventory decrements all happen in one
// unit of work, so a failure leaves no trace.
func (s *Service) PostTransaction(ctx context.Context, req domain.PostTransactionRequest) (domain.Transaction, error) {
	started := time.Now()
	actor, err := requireRole(ctx)
	if err != nil {
		return domain.Transaction{}, err
	}
	if err := validatePostRequest(req); err != nil {
		s.metrics.TransactionFailed(failureKind(err), time.Since(started))
		return domain.Transaction{}, err
	}

	var posted domain.Transaction
	err = s.repo.WithinPostingTx(ctx, func(tx store.PostingTx) error {
		lines := make([]PricedLine, len(req.Items))
		for i, item := range req.Items {
			product, available, err := tx.ProductForSale(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if item.Quantity > available {
				return &store.StockError{
					ProductID:   product.ID,
					ProductName: product.Name,
					Requested:   item.Quantity,
					Available:   available,
				}
			}
			lines[i] = PricedLine{
				UnitPrice:          product.UnitPrice,
				Quantity:           item.Quantity,
				DiscountPercentage: valueOrZero(item.DiscountPercentage),
				DiscountAmount:     valueOrZero(item.DiscountAmount),
			}
		}

		txnPct := valueOrZero(req.DiscountPercentage)
		txnAmt := valueOrZero(req.DiscountAmount)
		subtotal, discount, total := ComputeTotals(lines, txnPct, txnAmt).Ledger()

		txn := domain.Transaction{
			Timestamp:              s.now(),
			PaymentMethod:          req.PaymentMethod,
			SubtotalBeforeDiscount: subtotal,
			DiscountPercentage:     txnPct,
			DiscountAmount:         money(txnAmt),
			TotalDiscount:          discount,
			TotalAmount:            total,
			CashierID:              actor.ID,
		}
		if req.PaymentMethod == domain.PaymentCash {
			cash, change, err := settleCash(*req.CashReceived, req.ChangeAmount, txn.TotalAmount)
			if err != nil {
				return err
			}
			txn.CashReceived = &cash
			txn.ChangeAmount = &change
		}

		if err := tx.InsertTransaction(ctx, &txn); err != nil {
			return err
		}
		txn.Items = make([]domain.TransactionItem, 0, len(lines))
		for i, line := range lines {
			item := domain.TransactionItem{
				TransactionID:      txn.ID,
				ProductID:          req.Items[i].ProductID,
				Quantity:           line.Quantity,
				UnitPriceAtSale:    line.UnitPrice,
				DiscountPercentage: line.DiscountPercentage,
				DiscountAmount:     money(line.DiscountAmount),
			}
			if err := tx.InsertTransactionItem(ctx, &item); err != nil {
				return err
			}
			txn.Items = append(txn.Items, item)
		}
		for _, line := range txn.Items {
			if err := tx.DecrementStock(ctx, line.ProductID, line.Quantity); err != nil {
				return err
			}
		}

		posted = txn
		return nil
	})
	elapsed := time.Since(started)
	if err != nil {
		s.metrics.TransactionFailed(failureKind(err), elapsed)
		logger.Warn("transaction rejected",
			"cashier", actor.Username,
			"payment_method", req.PaymentMethod,
			"lines", len(req.Items),
			"error", err,
		)
		return domain.Transaction{}, err
	}

	s.metrics.TransactionPosted(string(posted.PaymentMethod), posted.TotalAmount, elapsed)
	logger.Info("transaction posted",
		"transaction_id", posted.ID,
		"cashier", actor.Username,
		"payment_method", posted.PaymentMethod,
		"total", posted.TotalAmount.StringFixed(2),
		"lines", len(posted.Items),
	)
	return posted, nil
}

// settleCash returns the stored cash and change values. A caller-supplied
// change is kept as given.
func settleCash(received decimal.Decimal, change *decimal.Decimal, total decimal.Decimal) (decimal.Decimal, decimal.Decimal, error) {
	received = money(received)
	if change != nil {
		return received, money(*change), nil
	}
	computed := received.Sub(total)
	if computed.IsNegative() {
		return decimal.Decimal{}, decimal.Decimal{}, &store.CashError{Total: total, Received: received}
	}
	return received, money(computed), nil
}

func validatePostRequest(req domain.PostTransactionRequest) error {
	verr := &store.ValidationError{}
	if len(req.Items) == 0 {
		verr.Add("items", "at least one item is required")
	}
	for i, item := range req.Items {
		prefix := fmt.Sprintf("items[%d].", i)
		if item.ProductID <= 0 {
			verr.Add(prefix+"product_id", "must be a positive id")
		}
		if item.Quantity < 1 {
			verr.Add(prefix+"quantity", "must be at least 1")
		}
		checkPercentage(verr, prefix+"discount_percentage", item.DiscountPercentage)
		checkNonNegative(verr, prefix+"discount_amount", item.DiscountAmount)
	}
	if !req.PaymentMethod.Valid() {
		verr.Add("payment_method", "must be one of Cash, Card, Credit")
	}
	checkPercentage(verr, "discount_percentage", req.DiscountPercentage)
	checkNonNegative(verr, "discount_amount", req.DiscountAmount)
	if req.PaymentMethod == domain.PaymentCash {
		if req.CashReceived == nil {
			verr.Add("cash_received", "cash_received is required for Cash payments")
		} else {
			checkNonNegative(verr, "cash_received", req.CashReceived)
		}
		checkNonNegative(verr, "change_amount", req.ChangeAmount)
	}
	return verr.OrNil()
}

func checkPercentage(verr *store.ValidationError, field string, value *decimal.Decimal) {
	if value == nil {
		return
	}
	switch {
	case value.IsNegative() || value.GreaterThan(hundred):
		verr.Add(field, "must be between 0 and 100")
	case hasMoreThanCents(*value):
		verr.Add(field, "must have at most 2 decimal places")
	}
}

func checkNonNegative(verr *store.ValidationError, field string, value *decimal.Decimal) {
	if value == nil {
		return
	}
	switch {
	case value.IsNegative():
		verr.Add(field, "must not be negative")
	case hasMoreThanCents(*value):
		verr.Add(field, "must have at most 2 decimal places")
	}
}

func failureKind(err error) string {
	switch {
	case errors.Is(err, store.ErrValidation):
		return "validation"
	case errors.Is(err, store.ErrNotFound):
		return "not_found"
	case errors.Is(err, store.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, store.ErrInsufficientCash):
		return "insufficient_cash"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}
