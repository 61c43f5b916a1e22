package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"superpos/backend/internal/domain"
	"superpos/backend/internal/store"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

const productColumns = `
	p.id, p.sku, p.name, p.unit_price, p.cost, p.category,
	COALESCE(i.stock_quantity, 0), p.created_at, p.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (domain.Product, error) {
	var p domain.Product
	err := row.Scan(&p.ID, &p.SKU, &p.Name, &p.UnitPrice, &p.Cost, &p.Category, &p.StockQuantity, &p.CreatedAt, &p.UpdatedAt)
	p.CreatedAt = p.CreatedAt.UTC()
	p.UpdatedAt = p.UpdatedAt.UTC()
	return p, err
}

func (s *Store) ListProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, int, error) {
	where := make([]string, 0, 3)
	args := make([]any, 0, 5)
	if search := strings.TrimSpace(filter.Search); search != "" {
		args = append(args, "%"+search+"%")
		where = append(where, fmt.Sprintf("(p.name ILIKE $%d OR p.sku ILIKE $%d)", len(args), len(args)))
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		args = append(args, category)
		where = append(where, fmt.Sprintf("LOWER(p.category) = LOWER($%d)", len(args)))
	}
	if filter.MaxStock != nil {
		args = append(args, *filter.MaxStock)
		where = append(where, fmt.Sprintf("COALESCE(i.stock_quantity, 0) <= $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM products p
		LEFT JOIN inventory i ON i.product_id = p.id
		`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + productColumns + `
		FROM products p
		LEFT JOIN inventory i ON i.product_id = p.id
		` + clause + `
		ORDER BY p.name ASC, p.id ASC`
	query, args = withPage(query, args, filter.Offset, filter.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 64)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, err
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

func (s *Store) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return getProduct(ctx, s.db, id)
}

func getProduct(ctx context.Context, q queryer, id int64) (*domain.Product, error) {
	p, err := scanProduct(q.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products p
		LEFT JOIN inventory i ON i.product_id = p.id
		WHERE p.id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &store.NotFoundError{Entity: "product", ID: id}
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) GetProductBySKU(ctx context.Context, sku string) (*domain.Product, error) {
	p, err := scanProduct(s.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products p
		LEFT JOIN inventory i ON i.product_id = p.id
		WHERE p.sku = $1
	`, sku))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &store.NotFoundError{Entity: "product", Key: sku}
		}
		return nil, err
	}
	return &p, nil
}

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var id int64
	err = tx.QueryRowContext(ctx, `
		INSERT INTO products (sku, name, unit_price, cost, category, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, now(), now())
		RETURNING id
	`, product.SKU, product.Name, product.UnitPrice, product.Cost, product.Category).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &store.DuplicateError{Field: "sku", Value: product.SKU}
		}
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO inventory (product_id, stock_quantity, last_updated)
		VALUES ($1, $2, now())
	`, id, product.StockQuantity); err != nil {
		return nil, err
	}

	created, err := getProduct(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product, change *domain.PriceChange, stock *domain.StockAdjustment) (*domain.Product, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE products
		SET name = $2, category = $3, unit_price = $4, cost = $5, updated_at = now()
		WHERE id = $1
	`, product.ID, product.Name, product.Category, product.UnitPrice, product.Cost)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, &store.NotFoundError{Entity: "product", ID: product.ID}
	}

	if change != nil {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO product_price_history (product_id, old_unit_price, new_unit_price, old_cost, new_cost, changed_by, changed_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())
		`, product.ID, change.OldUnitPrice, change.NewUnitPrice, change.OldCost, change.NewCost, change.ChangedBy); err != nil {
			return nil, err
		}
	}

	if stock != nil {
		adjustment := *stock
		adjustment.ProductID = product.ID
		if err := setStock(ctx, tx, adjustment); err != nil {
			return nil, err
		}
	}

	updated, err := getProduct(ctx, tx, product.ID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return &store.ReferencedError{Entity: "product", ID: id, By: "transaction items"}
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &store.NotFoundError{Entity: "product", ID: id}
	}
	return nil
}

func (s *Store) SetStock(ctx context.Context, adjustment domain.StockAdjustment) (*domain.Product, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, adjustment.ProductID).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, &store.NotFoundError{Entity: "product", ID: adjustment.ProductID}
	}

	if err := setStock(ctx, tx, adjustment); err != nil {
		return nil, err
	}

	product, err := getProduct(ctx, tx, adjustment.ProductID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return product, nil
}

func setStock(ctx context.Context, tx *sql.Tx, adjustment domain.StockAdjustment) error {
	var previous int
	err := tx.QueryRowContext(ctx, `
		SELECT stock_quantity FROM inventory WHERE product_id = $1 FOR UPDATE
	`, adjustment.ProductID).Scan(&previous)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO inventory (product_id, stock_quantity, last_updated)
		VALUES ($1, $2, now())
		ON CONFLICT (product_id)
		DO UPDATE SET stock_quantity = EXCLUDED.stock_quantity, last_updated = now()
	`, adjustment.ProductID, adjustment.NewQuantity); err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_adjustments (product_id, previous_quantity, new_quantity, reason, adjusted_by, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
	`, adjustment.ProductID, previous, adjustment.NewQuantity, adjustment.Reason, adjustment.AdjustedBy)
	return err
}

func (s *Store) ListLowStock(ctx context.Context, threshold int) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products p
		JOIN inventory i ON i.product_id = p.id
		WHERE i.stock_quantity <= $1
		ORDER BY i.stock_quantity ASC, p.id ASC
	`, threshold)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 16)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) ListPriceHistory(ctx context.Context, productID int64, limit int) ([]domain.PriceChange, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, old_unit_price, new_unit_price, old_cost, new_cost, changed_by, changed_at
		FROM product_price_history
		WHERE product_id = $1
		ORDER BY changed_at DESC, id DESC
		LIMIT $2
	`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]domain.PriceChange, 0, limit)
	for rows.Next() {
		var entry domain.PriceChange
		if err := rows.Scan(&entry.ID, &entry.ProductID, &entry.OldUnitPrice, &entry.NewUnitPrice, &entry.OldCost, &entry.NewCost, &entry.ChangedBy, &entry.ChangedAt); err != nil {
			return nil, err
		}
		entry.ChangedAt = entry.ChangedAt.UTC()
		history = append(history, entry)
	}
	return history, rows.Err()
}

func (s *Store) ListStockAdjustments(ctx context.Context, productID int64, limit int) ([]domain.StockAdjustment, error) {
	if _, err := s.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, previous_quantity, new_quantity, reason, adjusted_by, created_at
		FROM stock_adjustments
		WHERE product_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, productID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.StockAdjustment, 0, limit)
	for rows.Next() {
		var entry domain.StockAdjustment
		if err := rows.Scan(&entry.ID, &entry.ProductID, &entry.PreviousQuantity, &entry.NewQuantity, &entry.Reason, &entry.AdjustedBy, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.CreatedAt = entry.CreatedAt.UTC()
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *Store) CreateEmployee(ctx context.Context, account domain.EmployeeAccount) (*domain.Employee, error) {
	emp := account.Employee
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO employees (username, password_hash, first_name, last_name, email, role, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
		RETURNING id, created_at, updated_at
	`, emp.Username, account.PasswordHash, emp.FirstName, emp.LastName, emp.Email, string(emp.Role), emp.Active).
		Scan(&emp.ID, &emp.CreatedAt, &emp.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, &store.DuplicateError{Field: "username", Value: emp.Username}
		}
		return nil, err
	}
	emp.CreatedAt = emp.CreatedAt.UTC()
	emp.UpdatedAt = emp.UpdatedAt.UTC()
	return &emp, nil
}

const employeeColumns = `id, username, first_name, last_name, email, role, active, created_at, updated_at`

func scanEmployee(row rowScanner, extra ...any) (domain.Employee, error) {
	var emp domain.Employee
	var role string
	dest := append([]any{&emp.ID, &emp.Username, &emp.FirstName, &emp.LastName, &emp.Email, &role, &emp.Active, &emp.CreatedAt, &emp.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return domain.Employee{}, err
	}
	emp.Role = domain.Role(role)
	emp.CreatedAt = emp.CreatedAt.UTC()
	emp.UpdatedAt = emp.UpdatedAt.UTC()
	return emp, nil
}

func (s *Store) GetEmployee(ctx context.Context, id int64) (*domain.Employee, error) {
	emp, err := scanEmployee(s.db.QueryRowContext(ctx, `SELECT `+employeeColumns+` FROM employees WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &store.NotFoundError{Entity: "employee", ID: id}
		}
		return nil, err
	}
	return &emp, nil
}

func (s *Store) GetEmployeeAccount(ctx context.Context, username string) (*domain.EmployeeAccount, error) {
	var hash string
	emp, err := scanEmployee(s.db.QueryRowContext(ctx, `
		SELECT `+employeeColumns+`, password_hash FROM employees WHERE username = $1
	`, username), &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &store.NotFoundError{Entity: "employee", Key: username}
		}
		return nil, err
	}
	return &domain.EmployeeAccount{Employee: emp, PasswordHash: hash}, nil
}

func (s *Store) ListEmployees(ctx context.Context) ([]domain.Employee, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+employeeColumns+` FROM employees ORDER BY username ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	employees := make([]domain.Employee, 0, 16)
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

func (s *Store) DeleteEmployee(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM employees WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return &store.ReferencedError{Entity: "employee", ID: id, By: "transactions"}
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &store.NotFoundError{Entity: "employee", ID: id}
	}
	return nil
}

func withPage(query string, args []any, offset, limit int) (string, []any) {
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if offset > 0 {
		args = append(args, offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23503"
	}
	return false
}

func nullTime(val time.Time) any {
	if val.IsZero() {
		return nil
	}
	return val
}

func nullDecimal(val *decimal.Decimal) any {
	if val == nil {
		return nil
	}
	return *val
}

func decimalPtr(val decimal.NullDecimal) *decimal.Decimal {
	if !val.Valid {
		return nil
	}
	d := val.Decimal
	return &d
}
