package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"superpos/backend/internal/domain"
	"superpos/backend/internal/logger"
	"superpos/backend/internal/metrics"
	"superpos/backend/internal/store"
	"superpos/backend/internal/store/memory"
)

var fixedNow = time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)

type fixture struct {
	svc     *Service
	repo    *memory.Store
	admin   context.Context
	cashier context.Context
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	logger.UseNop()
	repo := memory.New()
	ctx := context.Background()

	admin, err := repo.CreateEmployee(ctx, domain.EmployeeAccount{Employee: domain.Employee{Username: "admin", Role: domain.RoleAdmin, Active: true}})
	require.NoError(t, err)
	cashier, err := repo.CreateEmployee(ctx, domain.EmployeeAccount{Employee: domain.Employee{Username: "cashier", FirstName: "Front", LastName: "Desk", Role: domain.RoleCashier, Active: true}})
	require.NoError(t, err)

	svc := New(repo, nil, WithClock(func() time.Time { return fixedNow }), WithMetrics(metrics.New("test")))
	return fixture{
		svc:     svc,
		repo:    repo,
		admin:   WithActor(ctx, admin.Identity()),
		cashier: WithActor(ctx, cashier.Identity()),
	}
}

func (f fixture) product(t *testing.T, sku, price string, stock int) domain.Product {
	t.Helper()
	p, err := f.svc.CreateProduct(f.admin, domain.ProductCreateRequest{
		SKU:           sku,
		Name:          "Product " + sku,
		UnitPrice:     decimal.RequireFromString(price),
		Cost:          decimal.RequireFromString("1"),
		Category:      "General",
		StockQuantity: stock,
	})
	require.NoError(t, err)
	return p
}

func dec(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(want).Equal(got), "want %s, got %s", want, got.String())
}

func TestPostTransactionWorkedExample(t *testing.T) {
	f := newFixture(t)
	a := f.product(t, "A", "10.00", 10)
	b := f.product(t, "B", "5.00", 10)

	txn, err := f.svc.PostTransaction(f.cashier, domain.PostTransactionRequest{
		Items: []domain.LineItemRequest{
			{ProductID: a.ID, Quantity: 2, DiscountPercentage: dec("10")},
			{ProductID: b.ID, Quantity: 1},
		},
		PaymentMethod:  domain.PaymentCard,
		DiscountAmount: dec("5"),
	})
	require.NoError(t, err)

	assertMoney(t, "25.00", txn.SubtotalBeforeDiscount)
	assertMoney(t, "7.00", txn.TotalDiscount)
	assertMoney(t, "18.00", txn.TotalAmount)
	require.Len(t, txn.Items, 2)
	assertMoney(t, "2.00", txn.Items[0].ItemDiscount())
	assertMoney(t, "18.00", txn.Items[0].Subtotal())
	assert.Nil(t, txn.CashReceived)
	assert.Nil(t, txn.ChangeAmount)
	assert.Equal(t, "cashier", txn.CashierUsername)
	assert.Equal(t, "Front Desk", txn.CashierName)
	assert.Equal(t, fixedNow, txn.Timestamp)

	stockA, err := f.svc.GetProduct(f.cashier, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, stockA.StockQuantity)
}

func TestComputeTotalsFloorsAtOneCent(t *testing.T) {
	totals := ComputeTotals([]PricedLine{{UnitPrice: decimal.RequireFromString("3"), Quantity: 1}}, decimal.Zero, decimal.RequireFromString("10"))
	assertMoney(t, "0.01", totals.Total)
	assertMoney(t, "10", totals.TotalDiscount)
}

func TestComputeTotalsKeepsPrecisionUntilRounding(t *testing.T) {
	lines := []PricedLine{
		{UnitPrice: decimal.RequireFromString("3.33"), Quantity: 3, DiscountPercentage: decimal.RequireFromString("12.5")},
	}
	totals := ComputeTotals(lines, decimal.RequireFromString("7.5"), decimal.Zero)
	// 9.99 - 1.24875 = 8.74125; 8.74125 * 0.925 = 8.08565625
	assertMoney(t, "8.08565625", totals.Total)
	assertMoney(t, "8.09", money(totals.Total))
}

func TestLedgerReconcilesOnHalfCent(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "HALF", "10.00", 5)

	txn, err := f.svc.PostTransaction(f.cashier, domain.PostTransactionRequest{
		Items:         []domain.LineItemRequest{{ProductID: p.ID, Quantity: 1, DiscountPercentage: dec("0.05")}},
		PaymentMethod: domain.PaymentCard,
	})
	require.NoError(t, err)
	assertMoney(t, "10.00", txn.SubtotalBeforeDiscount)
	assertMoney(t, "0.01", txn.TotalDiscount)
	assertMoney(t, "9.99", txn.TotalAmount)
	assertMoney(t, txn.TotalAmount.String(), txn.SubtotalBeforeDiscount.Sub(txn.TotalDiscount))

	stored, err := f.svc.GetTransaction(f.cashier, txn.ID)
	require.NoError(t, err)
	assertMoney(t, "9.99", stored.TotalAmount)
}

func TestLedgerKeepsFloor(t *testing.T) {
	subtotal, discount, total := ComputeTotals([]PricedLine{{UnitPrice: decimal.RequireFromString("3"), Quantity: 1}}, decimal.Zero, decimal.RequireFromString("10")).Ledger()
	assertMoney(t, "3", subtotal)
	assertMoney(t, "10", discount)
	assertMoney(t, "0.01", total)
}

func TestCashPostingComputesChange(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "CASH", "12.50", 10)

	txn, err := f.svc.PostTransaction(f.cashier, domain.PostTransactionRequest{
		Items:         []domain.LineItemRequest{{ProductID: p.ID, Quantity: 3}},
		PaymentMethod: domain.PaymentCash,
		CashReceived:  dec("50.00"),
	})
	require.NoError(t, err)
	assertMoney(t, "37.50", txn.TotalAmount)
	require.NotNil(t, txn.ChangeAmount)
	assertMoney(t, "12.50", *txn.ChangeAmount)
}

func TestCashPostingRejectsShortfall(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "CASH", "12.50", 10)

	_, err := f.svc.PostTransaction(f.cashier, domain.PostTransactionRequest{
		Items:         []domain.LineItemRequest{{ProductID: p.ID, Quantity: 3}},
		PaymentMethod: domain.PaymentCash,
		CashReceived:  dec("30.00"),
	})
	require.ErrorIs(t, err, store.ErrInsufficientCash)
	var cashErr *store.CashError
	require.True(t, errors.As(err, &cashErr))
	assertMoney(t, "37.50", cashErr.Total)

	after, err := f.svc.GetProduct(f.cashier, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, after.StockQuantity)
	_, count, err := f.svc.ListTransactions(f.cashier, domain.TransactionFilter{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestCashPostingKeepsProvidedChange(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "CASH", "10.00", 10)

	txn, err := f.svc.PostTransaction(f.cashier, domain.PostTransactionRequest{
		Items:         []domain.LineItemRequest{{ProductID: p.ID, Quantity: 1}},
		PaymentMethod: domain.PaymentCash,
		CashReceived:  dec("20"),
		ChangeAmount:  dec("10"),
	})
	require.NoError(t, err)
	assertMoney(t, "10", *txn.ChangeAmount)
}

func TestNonCashDiscardsCashFields(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "CARD", "10.00", 10)

	txn, err := f.svc.PostTransaction(f.cashier, domain.PostTransactionRequest{
		Items:         []domain.LineItemRequest{{ProductID: p.ID, Quantity: 1}},
		PaymentMethod: domain.PaymentCredit,
		CashReceived:  dec("100"),
		ChangeAmount:  dec("90"),
	})
	require.NoError(t, err)
	assert.Nil(t, txn.CashReceived)
	assert.Nil(t, txn.ChangeAmount)
}

func TestPostTransactionValidation(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "VAL", "10.00", 10)

	cases := map[string]struct {
		req   domain.PostTransactionRequest
		field string
	}{
		"no items": {
			req:   domain.PostTransactionRequest{PaymentMethod: domain.PaymentCard},
			field: "items",
		},
		"zero quantity": {
			req:   domain.PostTransactionRequest{Items: []domain.LineItemRequest{{ProductID: p.ID}}, PaymentMethod: domain.PaymentCard},
			field: "items[0].quantity",
		},
		"bad method": {
			req:   domain.PostTransactionRequest{Items: []domain.LineItemRequest{{ProductID: p.ID, Quantity: 1}}, PaymentMethod: "Bitcoin"},
			field: "payment_method",
		},
		"percentage over 100": {
			req:   domain.PostTransactionRequest{Items: []domain.LineItemRequest{{ProductID: p.ID, Quantity: 1}}, PaymentMethod: domain.PaymentCard, DiscountPercentage: dec("101")},
			field: "discount_percentage",
		},
		"negative line amount": {
			req:   domain.PostTransactionRequest{Items: []domain.LineItemRequest{{ProductID: p.ID, Quantity: 1, DiscountAmount: dec("-1")}}, PaymentMethod: domain.PaymentCard},
			field: "items[0].discount_amount",
		},
		"percentage past cents": {
			req:   domain.PostTransactionRequest{Items: []domain.LineItemRequest{{ProductID: p.ID, Quantity: 1, DiscountPercentage: dec("33.335")}}, PaymentMethod: domain.PaymentCard},
			field: "items[0].discount_percentage",
		},
		"amount past cents": {
			req:   domain.PostTransactionRequest{Items: []domain.LineItemRequest{{ProductID: p.ID, Quantity: 1}}, PaymentMethod: domain.PaymentCard, DiscountAmount: dec("0.125")},
			field: "discount_amount",
		},
		"cash received past cents": {
			req:   domain.PostTransactionRequest{Items: []domain.LineItemRequest{{ProductID: p.ID, Quantity: 1}}, PaymentMethod: domain.PaymentCash, CashReceived: dec("20.005")},
			field: "cash_received",
		},
		"cash without cash_received": {
			req:   domain.PostTransactionRequest{Items: []domain.LineItemRequest{{ProductID: p.ID, Quantity: 1}}, PaymentMethod: domain.PaymentCash},
			field: "cash_received",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.PostTransaction(f.cashier, tc.req)
			var verr *store.ValidationError
			require.True(t, errors.As(err, &verr), "got %v", err)
			assert.Contains(t, verr.Fields, tc.field)
		})
	}
}

func TestPostTransactionRequiresCaller(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.PostTransaction(context.Background(), domain.PostTransactionRequest{})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestInsufficientStockLeavesNoTrace(t *testing.T) {
	f := newFixture(t)
	plenty := f.product(t, "PLENTY", "2.00", 100)
	scarce := f.product(t, "SCARCE", "3.00", 2)

	_, err := f.svc.PostTransaction(f.cashier, domain.PostTransactionRequest{
		Items: []domain.LineItemRequest{
			{ProductID: plenty.ID, Quantity: 5},
			{ProductID: scarce.ID, Quantity: 3},
		},
		PaymentMethod: domain.PaymentCard,
	})
	require.ErrorIs(t, err, store.ErrInsufficientStock)
	var stockErr *store.StockError
	require.True(t, errors.As(err, &stockErr))
	assert.Equal(t, scarce.ID, stockErr.ProductID)
	assert.Equal(t, 3, stockErr.Requested)
	assert.Equal(t, 2, stockErr.Available)

	p1, _ := f.svc.GetProduct(f.cashier, plenty.ID)
	p2, _ := f.svc.GetProduct(f.cashier, scarce.ID)
	assert.Equal(t, 100, p1.StockQuantity)
	assert.Equal(t, 2, p2.StockQuantity)
}

func TestDuplicateLinesAreCheckedTogether(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "DUP", "1.00", 3)

	_, err := f.svc.PostTransaction(f.cashier, domain.PostTransactionRequest{
		Items: []domain.LineItemRequest{
			{ProductID: p.ID, Quantity: 2},
			{ProductID: p.ID, Quantity: 2},
		},
		PaymentMethod: domain.PaymentCard,
	})
	require.ErrorIs(t, err, store.ErrInsufficientStock)

	txn, err := f.svc.PostTransaction(f.cashier, domain.PostTransactionRequest{
		Items: []domain.LineItemRequest{
			{ProductID: p.ID, Quantity: 1},
			{ProductID: p.ID, Quantity: 2},
		},
		PaymentMethod: domain.PaymentCard,
	})
	require.NoError(t, err)
	assert.Len(t, txn.Items, 2)
	after, _ := f.svc.GetProduct(f.cashier, p.ID)
	assert.Zero(t, after.StockQuantity)
}

func TestUnknownProductIsNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.PostTransaction(f.cashier, domain.PostTransactionRequest{
		Items:         []domain.LineItemRequest{{ProductID: 999, Quantity: 1}},
		PaymentMethod: domain.PaymentCard,
	})
	var nf *store.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, int64(999), nf.ID)
}

func TestConcurrentPostingsOnLastUnit(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "LAST", "9.99", 1)

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.PostTransaction(f.cashier, domain.PostTransactionRequest{
				Items:         []domain.LineItemRequest{{ProductID: p.ID, Quantity: 1}},
				PaymentMethod: domain.PaymentCard,
			})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	successes := 0
	for err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.ErrorIs(t, err, store.ErrInsufficientStock)
	}
	assert.Equal(t, 1, successes)
	after, _ := f.svc.GetProduct(f.cashier, p.ID)
	assert.Zero(t, after.StockQuantity)
}

func TestPriceIsFrozenAtSale(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "FROZEN", "4.00", 10)

	txn, err := f.svc.PostTransaction(f.cashier, domain.PostTransactionRequest{
		Items:         []domain.LineItemRequest{{ProductID: p.ID, Quantity: 1}},
		PaymentMethod: domain.PaymentCard,
	})
	require.NoError(t, err)

	_, err = f.svc.UpdateProduct(f.admin, p.ID, domain.ProductUpdateRequest{UnitPrice: dec("6.00")})
	require.NoError(t, err)

	stored, err := f.svc.GetTransaction(f.cashier, txn.ID)
	require.NoError(t, err)
	assertMoney(t, "4.00", stored.Items[0].UnitPriceAtSale)
	assertMoney(t, "4.00", stored.TotalAmount)

	history, err := f.svc.ListPriceHistory(f.admin, p.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assertMoney(t, "4.00", history[0].OldUnitPrice)
	assertMoney(t, "6.00", history[0].NewUnitPrice)
	assert.Equal(t, "admin", history[0].ChangedBy)
}

func TestReceiptRoundTrip(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "RCPT", "21.00", 5)

	txn, err := f.svc.PostTransaction(f.cashier, domain.PostTransactionRequest{
		Items:         []domain.LineItemRequest{{ProductID: p.ID, Quantity: 1}},
		PaymentMethod: domain.PaymentCash,
		CashReceived:  dec("25"),
	})
	require.NoError(t, err)

	doc, err := f.svc.Receipt(f.cashier, txn.ID)
	require.NoError(t, err)
	r := doc.Receipt
	assertMoney(t, "21.00", r.TotalAmount)
	assertMoney(t, "20.00", r.Subtotal)
	assertMoney(t, "1.00", r.TaxAmount)
	assertMoney(t, "5", r.TaxRate)
	assertMoney(t, "21.00", r.Items[0].Subtotal())
	assert.Equal(t, "2026-03-14 10:30:00", r.FormattedTimestamp)
	assert.Equal(t, "March 14, 2026", r.FormattedDate)
	assert.Equal(t, "10:30 AM", r.FormattedTime)
	assert.Equal(t, domain.RoleCashier, r.CashierRole)
	assert.Equal(t, "AED", doc.Settings.Currency)
	assertMoney(t, "0.05", doc.Settings.TaxRate)
}

func TestEscposReceipt(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "PRINT", "3.00", 5)
	txn, err := f.svc.PostTransaction(f.cashier, domain.PostTransactionRequest{
		Items:         []domain.LineItemRequest{{ProductID: p.ID, Quantity: 2}},
		PaymentMethod: domain.PaymentCard,
	})
	require.NoError(t, err)

	out, err := f.svc.EscposReceipt(f.cashier, txn.ID)
	require.NoError(t, err)
	assert.Equal(t, txn.ID, out.TransactionID)
	assert.Contains(t, out.PreviewText, "Product PRINT x2")
	assert.Contains(t, out.PreviewText, "6.00")
	assert.NotEmpty(t, out.EscposBase64)
	assert.Greater(t, out.ByteLength, len(out.PreviewText))
}

func TestEscposReceiptKeepsMultibyteNamesIntact(t *testing.T) {
	f := newFixture(t)
	p, err := f.svc.CreateProduct(f.admin, domain.ProductCreateRequest{
		SKU:           "CREME",
		Name:          "Lait Crème Entière Bio Demi-Écrémé Très Grand Format Économique",
		UnitPrice:     decimal.RequireFromString("4.50"),
		StockQuantity: 3,
	})
	require.NoError(t, err)
	txn, err := f.svc.PostTransaction(f.cashier, domain.PostTransactionRequest{
		Items:         []domain.LineItemRequest{{ProductID: p.ID, Quantity: 1}},
		PaymentMethod: domain.PaymentCard,
	})
	require.NoError(t, err)

	out, err := f.svc.EscposReceipt(f.cashier, txn.ID)
	require.NoError(t, err)
	assert.True(t, utf8.ValidString(out.PreviewText))
	assert.Contains(t, out.PreviewText, "Lait Crème")
}

func TestTruncateCountsRunes(t *testing.T) {
	assert.Equal(t, "Crè", truncate("Crème", 3))
	assert.Equal(t, "Écrémé", truncate("Écrémé", 6))
	assert.Equal(t, "", truncate("Écrémé", 0))
	assert.Equal(t, "  été", center("été", 7))
}

// stockOfflineRepo fails standalone stock writes.
type stockOfflineRepo struct {
	*memory.Store
}

func (stockOfflineRepo) SetStock(context.Context, domain.StockAdjustment) (*domain.Product, error) {
	return nil, errors.New("inventory offline")
}

func TestUpdateProductAppliesPriceAndStockTogether(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "ATOM", "5.00", 3)
	svc := New(stockOfflineRepo{f.repo}, nil, WithClock(func() time.Time { return fixedNow }))

	qty := 12
	updated, err := svc.UpdateProduct(f.admin, p.ID, domain.ProductUpdateRequest{UnitPrice: dec("6.00"), StockQuantity: &qty})
	require.NoError(t, err)
	assertMoney(t, "6.00", updated.UnitPrice)
	assert.Equal(t, 12, updated.StockQuantity)

	history, err := f.repo.ListPriceHistory(context.Background(), p.ID, 10)
	require.NoError(t, err)
	assert.Len(t, history, 1)
	adjustments, err := f.repo.ListStockAdjustments(context.Background(), p.ID, 10)
	require.NoError(t, err)
	require.Len(t, adjustments, 1)
	assert.Equal(t, "product update", adjustments[0].Reason)
}

func TestCatalogRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateProduct(f.cashier, domain.ProductCreateRequest{SKU: "X", Name: "X", UnitPrice: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrForbidden)

	p := f.product(t, "ADM", "1.00", 1)
	assert.ErrorIs(t, f.svc.DeleteProduct(f.cashier, p.ID), ErrForbidden)
	_, err = f.svc.AdjustStock(f.cashier, p.ID, domain.InventoryUpdateRequest{StockQuantity: new(int)})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestCreateProductValidation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateProduct(f.admin, domain.ProductCreateRequest{
		SKU:           "BAD",
		Name:          "Bad",
		UnitPrice:     decimal.Zero,
		Cost:          decimal.NewFromInt(-1),
		StockQuantity: -2,
	})
	var verr *store.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "unit_price")
	assert.Contains(t, verr.Fields, "cost")
	assert.Contains(t, verr.Fields, "stock_quantity")

	f.product(t, "DUPSKU", "1.00", 1)
	_, err = f.svc.CreateProduct(f.admin, domain.ProductCreateRequest{SKU: "DUPSKU", Name: "Again", UnitPrice: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, store.ErrConflict)
}

func TestUpdateProductRejectsSKUChange(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "IMMUTABLE", "1.00", 1)

	same := "IMMUTABLE"
	_, err := f.svc.UpdateProduct(f.admin, p.ID, domain.ProductUpdateRequest{SKU: &same})
	require.NoError(t, err)

	other := "CHANGED"
	_, err = f.svc.UpdateProduct(f.admin, p.ID, domain.ProductUpdateRequest{SKU: &other})
	var verr *store.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "sku")
}

func TestUpdateProductStockIsAudited(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "AUDIT", "1.00", 4)

	qty := 9
	updated, err := f.svc.UpdateProduct(f.admin, p.ID, domain.ProductUpdateRequest{StockQuantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 9, updated.StockQuantity)

	entries, err := f.svc.ListStockAdjustments(f.admin, p.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 4, entries[0].PreviousQuantity)
	assert.Equal(t, 9, entries[0].NewQuantity)
	assert.Equal(t, "product update", entries[0].Reason)
}

func TestAdjustStockAndLowStock(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "LOW", "1.00", 50)
	f.product(t, "HIGH", "1.00", 50)

	qty := 3
	adjusted, err := f.svc.AdjustStock(f.admin, p.ID, domain.InventoryUpdateRequest{StockQuantity: &qty, AdjustmentReason: "damaged"})
	require.NoError(t, err)
	assert.Equal(t, 3, adjusted.StockQuantity)

	neg := -1
	_, err = f.svc.AdjustStock(f.admin, p.ID, domain.InventoryUpdateRequest{StockQuantity: &neg})
	assert.ErrorIs(t, err, store.ErrValidation)

	low, err := f.svc.LowStock(f.cashier, DefaultLowStockThreshold)
	require.NoError(t, err)
	require.Len(t, low, 1)
	assert.Equal(t, "LOW", low[0].SKU)
}

func TestProtectOnDelete(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "KEEP", "1.00", 5)
	unused := f.product(t, "GONE", "1.00", 5)

	_, err := f.svc.PostTransaction(f.cashier, domain.PostTransactionRequest{
		Items:         []domain.LineItemRequest{{ProductID: p.ID, Quantity: 1}},
		PaymentMethod: domain.PaymentCard,
	})
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.DeleteProduct(f.admin, p.ID), store.ErrConflict)
	require.NoError(t, f.svc.DeleteProduct(f.admin, unused.ID))
	_, err = f.svc.GetProduct(f.admin, unused.ID)
	assert.ErrorIs(t, err, store.ErrNotFound)

	cashier, _ := ActorFromContext(f.cashier)
	assert.ErrorIs(t, f.svc.DeleteEmployee(f.admin, cashier.ID), store.ErrConflict)
}

func TestEmployeeManagement(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.CreateEmployee(f.admin, domain.EmployeeCreateRequest{
		Username: "night",
		Password: "night-shift-1",
		Email:    "night@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleCashier, created.Role)
	assert.True(t, created.Active)

	account, err := f.repo.GetEmployeeAccount(context.Background(), "night")
	require.NoError(t, err)
	assert.NotEqual(t, "night-shift-1", account.PasswordHash)

	_, err = f.svc.CreateEmployee(f.admin, domain.EmployeeCreateRequest{Username: "night", Password: "another-pass"})
	assert.ErrorIs(t, err, store.ErrConflict)

	_, err = f.svc.CreateEmployee(f.admin, domain.EmployeeCreateRequest{Username: "short", Password: "abc", Email: "nope"})
	var verr *store.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, verr.Fields, "password")
	assert.Contains(t, verr.Fields, "email")

	_, err = f.svc.ListEmployees(f.cashier)
	assert.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, f.svc.DeleteEmployee(f.admin, created.ID))
	admin, _ := ActorFromContext(f.admin)
	assert.ErrorIs(t, f.svc.DeleteEmployee(f.admin, admin.ID), store.ErrValidation)
}

func TestBootstrapAdminNeedsNoCaller(t *testing.T) {
	f := newFixture(t)

	created, err := f.svc.BootstrapAdmin(context.Background(), domain.EmployeeCreateRequest{
		Username: "owner",
		Password: "owner-password",
		Role:     domain.RoleCashier,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, created.Role)

	_, err = f.svc.BootstrapAdmin(context.Background(), domain.EmployeeCreateRequest{Username: "owner2", Password: "short"})
	assert.ErrorIs(t, err, store.ErrValidation)
}

func TestReportsThroughService(t *testing.T) {
	f := newFixture(t)
	p := f.product(t, "REP", "10.00", 50)
	for i := 0; i < 3; i++ {
		_, err := f.svc.PostTransaction(f.cashier, domain.PostTransactionRequest{
			Items:         []domain.LineItemRequest{{ProductID: p.ID, Quantity: 2}},
			PaymentMethod: domain.PaymentCard,
		})
		require.NoError(t, err)
	}
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	rng := domain.DateRange{Start: day, End: day}

	sales, err := f.svc.SalesReport(f.cashier, domain.SalesReportQuery{Range: rng, GroupBy: domain.GroupByCashier})
	require.NoError(t, err)
	assert.Equal(t, 3, sales.Summary.TotalTransactions)
	assertMoney(t, "60", sales.Summary.TotalSales)
	require.Len(t, sales.GroupByData, 1)
	assert.Equal(t, "Front Desk", sales.GroupByData[0].Label)

	_, err = f.svc.SalesReport(f.cashier, domain.SalesReportQuery{Range: rng, Period: "hourly"})
	assert.ErrorIs(t, err, store.ErrValidation)

	top, err := f.svc.TopProducts(f.cashier, domain.TopProductsQuery{Range: rng})
	require.NoError(t, err)
	require.Len(t, top.Products, 1)
	assert.Equal(t, 6, top.Products[0].TotalQuantitySold)
	assert.Equal(t, 3, top.Products[0].TransactionCount)
}
