package memory

import (
	"context"
	"os"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"

	"superpos/backend/internal/domain"
	"superpos/backend/internal/logger"
	"superpos/backend/internal/store"
)

type Store struct {
	mu           sync.RWMutex
	products     map[int64]domain.Product
	stock        map[int64]int
	employees    map[int64]domain.EmployeeAccount
	transactions map[int64]domain.Transaction
	priceHistory map[int64][]domain.PriceChange
	adjustments  map[int64][]domain.StockAdjustment
	seq          sequences
	now          func() time.Time
}

type sequences struct {
	product, employee, transaction, item, priceChange, adjustment int64
}

func New() *Store {
	return &Store{
		products:     make(map[int64]domain.Product),
		stock:        make(map[int64]int),
		employees:    make(map[int64]domain.EmployeeAccount),
		transactions: make(map[int64]domain.Transaction),
		priceHistory: make(map[int64][]domain.PriceChange),
		adjustments:  make(map[int64][]domain.StockAdjustment),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// NewSeeded returns a store with a demo catalog and one account per role.
// Passwords come from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD and fall
// back to dev defaults.
func NewSeeded() *Store {
	s := New()
	ctx := context.Background()

	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		logger.Warn("memory store is using default dev credentials", "override", "SEED_ADMIN_PASSWORD,SEED_CASHIER_PASSWORD")
	}
	for _, u := range []struct {
		username, password, first, last string
		role                            domain.Role
	}{
		{"admin", adminPwd, "Store", "Admin", domain.RoleAdmin},
		{"cashier", cashierPwd, "Front", "Cashier", domain.RoleCashier},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			logger.Fatal(err, "username", u.username)
		}
		_, _ = s.CreateEmployee(ctx, domain.EmployeeAccount{
			Employee: domain.Employee{
				Username:  u.username,
				FirstName: u.first,
				LastName:  u.last,
				Role:      u.role,
				Active:    true,
			},
			PasswordHash: string(hash),
		})
	}

	for _, p := range []struct {
		sku, name, category, price, cost string
		stock                            int
	}{
		{"MILK-1L", "Fresh Milk 1L", "Dairy", "6.50", "4.20", 120},
		{"LABAN-500", "Laban 500ml", "Dairy", "3.25", "2.00", 80},
		{"BREAD-WHT", "White Bread", "Bakery", "4.75", "2.90", 40},
		{"KHUBZ-6", "Arabic Bread 6pcs", "Bakery", "2.50", "1.40", 60},
		{"RICE-5KG", "Basmati Rice 5kg", "Grocery", "42.00", "31.00", 25},
		{"DATES-1KG", "Khalas Dates 1kg", "Grocery", "28.00", "18.50", 8},
		{"WATER-1.5", "Mineral Water 1.5L", "Beverages", "1.50", "0.70", 300},
		{"TEA-100", "Black Tea 100 bags", "Beverages", "14.25", "9.80", 5},
	} {
		_, _ = s.CreateProduct(ctx, domain.Product{
			SKU:           p.sku,
			Name:          p.name,
			Category:      p.category,
			UnitPrice:     decimal.RequireFromString(p.price),
			Cost:          decimal.RequireFromString(p.cost),
			StockQuantity: p.stock,
		})
	}
	return s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (s *Store) ListProducts(_ context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	category := strings.TrimSpace(filter.Category)
	matched := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		p.StockQuantity = s.stock[p.ID]
		if search != "" && !strings.Contains(strings.ToLower(p.Name), search) && !strings.Contains(strings.ToLower(p.SKU), search) {
			continue
		}
		if category != "" && !strings.EqualFold(p.Category, category) {
			continue
		}
		if filter.MaxStock != nil && p.StockQuantity > *filter.MaxStock {
			continue
		}
		matched = append(matched, p)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].Name != matched[j].Name {
			return matched[i].Name < matched[j].Name
		}
		return matched[i].ID < matched[j].ID
	})
	return paginate(matched, filter.Offset, filter.Limit), len(matched), nil
}

func (s *Store) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.productLocked(id)
}

func (s *Store) productLocked(id int64) (*domain.Product, error) {
	p, ok := s.products[id]
	if !ok {
		return nil, &store.NotFoundError{Entity: "product", ID: id}
	}
	p.StockQuantity = s.stock[id]
	return &p, nil
}

func (s *Store) GetProductBySKU(_ context.Context, sku string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for id, p := range s.products {
		if p.SKU == sku {
			return s.productLocked(id)
		}
	}
	return nil, &store.NotFoundError{Entity: "product", Key: sku}
}

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.products {
		if existing.SKU == product.SKU {
			return nil, &store.DuplicateError{Field: "sku", Value: product.SKU}
		}
	}
	s.seq.product++
	now := s.now()
	product.ID = s.seq.product
	product.CreatedAt = now
	product.UpdatedAt = now
	s.stock[product.ID] = product.StockQuantity
	product.StockQuantity = 0
	s.products[product.ID] = product
	return s.productLocked(product.ID)
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product, change *domain.PriceChange, stock *domain.StockAdjustment) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.products[product.ID]
	if !ok {
		return nil, &store.NotFoundError{Entity: "product", ID: product.ID}
	}
	now := s.now()
	existing.Name = product.Name
	existing.Category = product.Category
	existing.UnitPrice = product.UnitPrice
	existing.Cost = product.Cost
	existing.UpdatedAt = now
	s.products[product.ID] = existing

	if change != nil {
		s.seq.priceChange++
		entry := *change
		entry.ID = s.seq.priceChange
		entry.ProductID = product.ID
		entry.ChangedAt = now
		s.priceHistory[product.ID] = append(s.priceHistory[product.ID], entry)
	}
	if stock != nil {
		adjustment := *stock
		adjustment.ProductID = product.ID
		s.setStockLocked(adjustment)
	}
	return s.productLocked(product.ID)
}

func (s *Store) DeleteProduct(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[id]; !ok {
		return &store.NotFoundError{Entity: "product", ID: id}
	}
	for _, txn := range s.transactions {
		for _, item := range txn.Items {
			if item.ProductID == id {
				return &store.ReferencedError{Entity: "product", ID: id, By: "transaction items"}
			}
		}
	}
	delete(s.products, id)
	delete(s.stock, id)
	delete(s.priceHistory, id)
	delete(s.adjustments, id)
	return nil
}

func (s *Store) SetStock(_ context.Context, adjustment domain.StockAdjustment) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.products[adjustment.ProductID]; !ok {
		return nil, &store.NotFoundError{Entity: "product", ID: adjustment.ProductID}
	}
	s.setStockLocked(adjustment)
	return s.productLocked(adjustment.ProductID)
}

func (s *Store) setStockLocked(adjustment domain.StockAdjustment) {
	s.seq.adjustment++
	adjustment.ID = s.seq.adjustment
	adjustment.PreviousQuantity = s.stock[adjustment.ProductID]
	adjustment.CreatedAt = s.now()
	s.stock[adjustment.ProductID] = adjustment.NewQuantity
	s.adjustments[adjustment.ProductID] = append(s.adjustments[adjustment.ProductID], adjustment)
}

func (s *Store) ListLowStock(_ context.Context, threshold int) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Product, 0)
	for id, p := range s.products {
		qty := s.stock[id]
		if qty > threshold {
			continue
		}
		p.StockQuantity = qty
		result = append(result, p)
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].StockQuantity != result[j].StockQuantity {
			return result[i].StockQuantity < result[j].StockQuantity
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

func (s *Store) ListPriceHistory(_ context.Context, productID int64, limit int) ([]domain.PriceChange, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.products[productID]; !ok {
		return nil, &store.NotFoundError{Entity: "product", ID: productID}
	}
	history := slices.Clone(s.priceHistory[productID])
	slices.Reverse(history)
	return paginate(history, 0, limit), nil
}

func (s *Store) ListStockAdjustments(_ context.Context, productID int64, limit int) ([]domain.StockAdjustment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.products[productID]; !ok {
		return nil, &store.NotFoundError{Entity: "product", ID: productID}
	}
	entries := slices.Clone(s.adjustments[productID])
	slices.Reverse(entries)
	return paginate(entries, 0, limit), nil
}

func (s *Store) GetTransaction(_ context.Context, id int64) (*domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txn, ok := s.transactions[id]
	if !ok {
		return nil, &store.NotFoundError{Entity: "transaction", ID: id}
	}
	out := s.decorateLocked(txn)
	return &out, nil
}

func (s *Store) ListTransactions(_ context.Context, filter domain.TransactionFilter) ([]domain.Transaction, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]domain.Transaction, 0, len(s.transactions))
	for _, txn := range s.transactions {
		if filter.From != nil && txn.Timestamp.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !txn.Timestamp.Before(*filter.To) {
			continue
		}
		if filter.CashierID != 0 && txn.CashierID != filter.CashierID {
			continue
		}
		if filter.PaymentMethod != "" && txn.PaymentMethod != filter.PaymentMethod {
			continue
		}
		matched = append(matched, s.decorateLocked(txn))
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].Timestamp.Equal(matched[j].Timestamp) {
			return matched[i].Timestamp.After(matched[j].Timestamp)
		}
		return matched[i].ID > matched[j].ID
	})
	return paginate(matched, filter.Offset, filter.Limit), len(matched), nil
}

// decorateLocked joins cashier and product details onto a stored transaction.
func (s *Store) decorateLocked(txn domain.Transaction) domain.Transaction {
	out := cloneTransaction(txn)
	if emp, ok := s.employees[out.CashierID]; ok {
		out.CashierUsername = emp.Username
		out.CashierName = emp.DisplayName()
		out.CashierRole = emp.Role
	}
	for i := range out.Items {
		if p, ok := s.products[out.Items[i].ProductID]; ok {
			out.Items[i].ProductName = p.Name
			out.Items[i].ProductSKU = p.SKU
			out.Items[i].CatalogUnitPrice = p.UnitPrice
		}
	}
	return out
}

func (s *Store) CreateEmployee(_ context.Context, account domain.EmployeeAccount) (*domain.Employee, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.employees {
		if existing.Username == account.Username {
			return nil, &store.DuplicateError{Field: "username", Value: account.Username}
		}
	}
	s.seq.employee++
	now := s.now()
	account.ID = s.seq.employee
	account.CreatedAt = now
	account.UpdatedAt = now
	s.employees[account.ID] = account
	emp := account.Employee
	return &emp, nil
}

func (s *Store) GetEmployee(_ context.Context, id int64) (*domain.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	account, ok := s.employees[id]
	if !ok {
		return nil, &store.NotFoundError{Entity: "employee", ID: id}
	}
	emp := account.Employee
	return &emp, nil
}

func (s *Store) GetEmployeeAccount(_ context.Context, username string) (*domain.EmployeeAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, account := range s.employees {
		if account.Username == username {
			out := account
			return &out, nil
		}
	}
	return nil, &store.NotFoundError{Entity: "employee", Key: username}
}

func (s *Store) ListEmployees(_ context.Context) ([]domain.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Employee, 0, len(s.employees))
	for _, account := range s.employees {
		result = append(result, account.Employee)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Username < result[j].Username })
	return result, nil
}

func (s *Store) DeleteEmployee(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.employees[id]; !ok {
		return &store.NotFoundError{Entity: "employee", ID: id}
	}
	for _, txn := range s.transactions {
		if txn.CashierID == id {
			return &store.ReferencedError{Entity: "employee", ID: id, By: "transactions"}
		}
	}
	delete(s.employees, id)
	return nil
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func cloneTransaction(txn domain.Transaction) domain.Transaction {
	out := txn
	out.CashReceived = cloneDecimal(txn.CashReceived)
	out.ChangeAmount = cloneDecimal(txn.ChangeAmount)
	out.Items = slices.Clone(txn.Items)
	return out
}

func cloneDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
