package store

import (
	"context"

	"superpos/backend/internal/domain"
)

// PostingTx is the set of primitives a sale may use inside one unit of work.
// Nothing written through it is visible until the surrounding call commits.
type PostingTx interface {
	// ProductForSale returns the product and its current stock quantity.
	ProductForSale(ctx context.Context, productID int64) (domain.Product, int, error)
	InsertTransaction(ctx context.Context, txn *domain.Transaction) error
	InsertTransactionItem(ctx context.Context, item *domain.TransactionItem) error
	// DecrementStock subtracts qty only while stock covers it and returns a
	// *StockError otherwise.
	DecrementStock(ctx context.Context, productID int64, qty int) error
}

type Repository interface {
	ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error)
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error)
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	// UpdateProduct writes the product fields, the optional price history
	// entry and the optional stock adjustment as one unit.
	UpdateProduct(ctx context.Context, product domain.Product, change *domain.PriceChange, stock *domain.StockAdjustment) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id int64) error
	SetStock(ctx context.Context, adjustment domain.StockAdjustment) (*domain.Product, error)
	ListLowStock(ctx context.Context, threshold int) ([]domain.Product, error)
	ListPriceHistory(ctx context.Context, productID int64, limit int) ([]domain.PriceChange, error)
	ListStockAdjustments(ctx context.Context, productID int64, limit int) ([]domain.StockAdjustment, error)

	WithinPostingTx(ctx context.Context, fn func(tx PostingTx) error) error
	GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, int, error)

	CreateEmployee(ctx context.Context, account domain.EmployeeAccount) (*domain.Employee, error)
	GetEmployee(ctx context.Context, id int64) (*domain.Employee, error)
	GetEmployeeAccount(ctx context.Context, username string) (*domain.EmployeeAccount, error)
	ListEmployees(ctx context.Context) ([]domain.Employee, error)
	DeleteEmployee(ctx context.Context, id int64) error
}
