package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"superpos/backend/internal/domain"
	"superpos/backend/internal/store"
)

// WithinPostingTx runs fn inside one READ COMMITTED transaction. Stock is
// guarded by the conditional decrement, so the stronger isolation levels
// would only add serialization failures.
func (s *Store) WithinPostingTx(ctx context.Context, fn func(tx store.PostingTx) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&postingTx{tx: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

type postingTx struct {
	tx *sql.Tx
}

func (t *postingTx) ProductForSale(ctx context.Context, productID int64) (domain.Product, int, error) {
	var p domain.Product
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, sku, name, unit_price, cost, category, created_at, updated_at
		FROM products
		WHERE id = $1
	`, productID).Scan(&p.ID, &p.SKU, &p.Name, &p.UnitPrice, &p.Cost, &p.Category, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, 0, &store.NotFoundError{Entity: "product", ID: productID}
		}
		return domain.Product{}, 0, err
	}

	err = t.tx.QueryRowContext(ctx, `
		SELECT stock_quantity FROM inventory WHERE product_id = $1
	`, productID).Scan(&p.StockQuantity)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, 0, &store.NotFoundError{Entity: "inventory", ID: productID}
		}
		return domain.Product{}, 0, err
	}
	return p, p.StockQuantity, nil
}

func (t *postingTx) InsertTransaction(ctx context.Context, txn *domain.Transaction) error {
	var first, last, role string
	err := t.tx.QueryRowContext(ctx, `
		WITH inserted AS (
			INSERT INTO transactions (
				created_at, payment_method, cash_received, change_amount,
				subtotal_before_discount, discount_percentage, discount_amount,
				total_discount, total_amount, cashier_id
			)
			VALUES (COALESCE($1::timestamptz, now()), $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING id, created_at, cashier_id
		)
		SELECT inserted.id, inserted.created_at, e.username, e.first_name, e.last_name, e.role
		FROM inserted
		JOIN employees e ON e.id = inserted.cashier_id
	`,
		nullTime(txn.Timestamp), string(txn.PaymentMethod), nullDecimal(txn.CashReceived), nullDecimal(txn.ChangeAmount),
		txn.SubtotalBeforeDiscount, txn.DiscountPercentage, txn.DiscountAmount,
		txn.TotalDiscount, txn.TotalAmount, txn.CashierID,
	).Scan(&txn.ID, &txn.Timestamp, &txn.CashierUsername, &first, &last, &role)
	if err != nil {
		if isForeignKeyViolation(err) {
			return &store.NotFoundError{Entity: "employee", ID: txn.CashierID}
		}
		return err
	}
	txn.Timestamp = txn.Timestamp.UTC()
	txn.CashierName = domain.DisplayName(first, last, txn.CashierUsername)
	txn.CashierRole = domain.Role(role)
	return nil
}

func (t *postingTx) InsertTransactionItem(ctx context.Context, item *domain.TransactionItem) error {
	err := t.tx.QueryRowContext(ctx, `
		WITH inserted AS (
			INSERT INTO transaction_items (
				transaction_id, product_id, quantity, unit_price_at_sale,
				discount_percentage, discount_amount
			)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id, product_id
		)
		SELECT inserted.id, p.name, p.sku, p.unit_price
		FROM inserted
		JOIN products p ON p.id = inserted.product_id
	`,
		item.TransactionID, item.ProductID, item.Quantity, item.UnitPriceAtSale,
		item.DiscountPercentage, item.DiscountAmount,
	).Scan(&item.ID, &item.ProductName, &item.ProductSKU, &item.CatalogUnitPrice)
	if err != nil {
		if isForeignKeyViolation(err) {
			return &store.NotFoundError{Entity: "product", ID: item.ProductID}
		}
		return err
	}
	return nil
}

func (t *postingTx) DecrementStock(ctx context.Context, productID int64, qty int) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE inventory
		SET stock_quantity = stock_quantity - $1, last_updated = now()
		WHERE product_id = $2 AND stock_quantity >= $1
	`, qty, productID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 1 {
		return nil
	}

	var available int
	var name string
	err = t.tx.QueryRowContext(ctx, `
		SELECT i.stock_quantity, p.name
		FROM inventory i
		JOIN products p ON p.id = i.product_id
		WHERE i.product_id = $1
	`, productID).Scan(&available, &name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &store.NotFoundError{Entity: "inventory", ID: productID}
		}
		return err
	}
	return &store.StockError{ProductID: productID, ProductName: name, Requested: qty, Available: available}
}

const transactionColumns = `
	t.id, t.created_at, t.payment_method, t.cash_received, t.change_amount,
	t.subtotal_before_discount, t.discount_percentage, t.discount_amount,
	t.total_discount, t.total_amount, t.cashier_id,
	e.username, e.first_name, e.last_name, e.role`

func scanTransaction(row rowScanner) (domain.Transaction, error) {
	var txn domain.Transaction
	var method, first, last, role string
	var cash, change decimal.NullDecimal
	err := row.Scan(
		&txn.ID, &txn.Timestamp, &method, &cash, &change,
		&txn.SubtotalBeforeDiscount, &txn.DiscountPercentage, &txn.DiscountAmount,
		&txn.TotalDiscount, &txn.TotalAmount, &txn.CashierID,
		&txn.CashierUsername, &first, &last, &role,
	)
	if err != nil {
		return domain.Transaction{}, err
	}
	txn.Timestamp = txn.Timestamp.UTC()
	txn.PaymentMethod = domain.PaymentMethod(method)
	txn.CashReceived = decimalPtr(cash)
	txn.ChangeAmount = decimalPtr(change)
	txn.CashierName = domain.DisplayName(first, last, txn.CashierUsername)
	txn.CashierRole = domain.Role(role)
	txn.Items = []domain.TransactionItem{}
	return txn, nil
}

func (s *Store) GetTransaction(ctx context.Context, id int64) (*domain.Transaction, error) {
	txn, err := scanTransaction(s.db.QueryRowContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions t
		JOIN employees e ON e.id = t.cashier_id
		WHERE t.id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &store.NotFoundError{Entity: "transaction", ID: id}
		}
		return nil, err
	}

	items, err := s.loadItems(ctx, []int64{id})
	if err != nil {
		return nil, err
	}
	if lines, ok := items[id]; ok {
		txn.Items = lines
	}
	return &txn, nil
}

func (s *Store) ListTransactions(ctx context.Context, filter domain.TransactionFilter) ([]domain.Transaction, int, error) {
	where := make([]string, 0, 4)
	args := make([]any, 0, 6)
	if filter.From != nil {
		args = append(args, *filter.From)
		where = append(where, fmt.Sprintf("t.created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where = append(where, fmt.Sprintf("t.created_at < $%d", len(args)))
	}
	if filter.CashierID != 0 {
		args = append(args, filter.CashierID)
		where = append(where, fmt.Sprintf("t.cashier_id = $%d", len(args)))
	}
	if filter.PaymentMethod != "" {
		args = append(args, string(filter.PaymentMethod))
		where = append(where, fmt.Sprintf("t.payment_method = $%d", len(args)))
	}
	clause := ""
	if len(where) > 0 {
		clause = "WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions t `+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + transactionColumns + `
		FROM transactions t
		JOIN employees e ON e.id = t.cashier_id
		` + clause + `
		ORDER BY t.created_at DESC, t.id DESC`
	query, args = withPage(query, args, filter.Offset, filter.Limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	txns := make([]domain.Transaction, 0, 64)
	ids := make([]int64, 0, 64)
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, 0, err
		}
		txns = append(txns, txn)
		ids = append(ids, txn.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	if len(ids) == 0 {
		return txns, total, nil
	}

	items, err := s.loadItems(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	for i := range txns {
		if lines, ok := items[txns[i].ID]; ok {
			txns[i].Items = lines
		}
	}
	return txns, total, nil
}

func (s *Store) loadItems(ctx context.Context, transactionIDs []int64) (map[int64][]domain.TransactionItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ti.id, ti.transaction_id, ti.product_id, p.name, p.sku, p.unit_price,
		       ti.quantity, ti.unit_price_at_sale, ti.discount_percentage, ti.discount_amount
		FROM transaction_items ti
		JOIN products p ON p.id = ti.product_id
		WHERE ti.transaction_id = ANY($1)
		ORDER BY ti.transaction_id, ti.id
	`, transactionIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[int64][]domain.TransactionItem, len(transactionIDs))
	for rows.Next() {
		var item domain.TransactionItem
		if err := rows.Scan(
			&item.ID, &item.TransactionID, &item.ProductID, &item.ProductName, &item.ProductSKU, &item.CatalogUnitPrice,
			&item.Quantity, &item.UnitPriceAtSale, &item.DiscountPercentage, &item.DiscountAmount,
		); err != nil {
			return nil, err
		}
		result[item.TransactionID] = append(result[item.TransactionID], item)
	}
	return result, rows.Err()
}
