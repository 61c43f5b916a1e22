package memory

import (
	"context"

	"superpos/backend/internal/domain"
	"superpos/backend/internal/store"
)

// WithinPostingTx runs fn while holding the write lock. Writes are staged on
// the postingTx and applied only when fn returns nil.
func (s *Store) WithinPostingTx(ctx context.Context, fn func(tx store.PostingTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &postingTx{
		s:           s,
		stockDelta:  make(map[int64]int),
		nextTxnID:   s.seq.transaction,
		nextItemID:  s.seq.item,
		itemsByTxID: make(map[int64][]domain.TransactionItem),
	}
	if err := fn(tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	tx.commit()
	return nil
}

type postingTx struct {
	s           *Store
	stockDelta  map[int64]int
	txns        []*domain.Transaction
	itemsByTxID map[int64][]domain.TransactionItem
	nextTxnID   int64
	nextItemID  int64
}

func (t *postingTx) ProductForSale(_ context.Context, productID int64) (domain.Product, int, error) {
	p, ok := t.s.products[productID]
	if !ok {
		return domain.Product{}, 0, &store.NotFoundError{Entity: "product", ID: productID}
	}
	qty, ok := t.s.stock[productID]
	if !ok {
		return domain.Product{}, 0, &store.NotFoundError{Entity: "inventory", ID: productID}
	}
	qty += t.stockDelta[productID]
	p.StockQuantity = qty
	return p, qty, nil
}

func (t *postingTx) InsertTransaction(_ context.Context, txn *domain.Transaction) error {
	emp, ok := t.s.employees[txn.CashierID]
	if !ok {
		return &store.NotFoundError{Entity: "employee", ID: txn.CashierID}
	}
	t.nextTxnID++
	txn.ID = t.nextTxnID
	if txn.Timestamp.IsZero() {
		txn.Timestamp = t.s.now()
	}
	txn.CashierUsername = emp.Username
	txn.CashierName = emp.DisplayName()
	txn.CashierRole = emp.Role
	t.txns = append(t.txns, txn)
	return nil
}

func (t *postingTx) InsertTransactionItem(_ context.Context, item *domain.TransactionItem) error {
	if _, staged := t.itemsByTxID[item.TransactionID]; !staged && !t.hasTxn(item.TransactionID) {
		return &store.NotFoundError{Entity: "transaction", ID: item.TransactionID}
	}
	p, ok := t.s.products[item.ProductID]
	if !ok {
		return &store.NotFoundError{Entity: "product", ID: item.ProductID}
	}
	t.nextItemID++
	item.ID = t.nextItemID
	item.ProductName = p.Name
	item.ProductSKU = p.SKU
	item.CatalogUnitPrice = p.UnitPrice
	t.itemsByTxID[item.TransactionID] = append(t.itemsByTxID[item.TransactionID], *item)
	return nil
}

func (t *postingTx) DecrementStock(_ context.Context, productID int64, qty int) error {
	current, ok := t.s.stock[productID]
	if !ok {
		return &store.NotFoundError{Entity: "inventory", ID: productID}
	}
	current += t.stockDelta[productID]
	if current < qty {
		return &store.StockError{
			ProductID:   productID,
			ProductName: t.s.products[productID].Name,
			Requested:   qty,
			Available:   current,
		}
	}
	t.stockDelta[productID] -= qty
	return nil
}

func (t *postingTx) hasTxn(id int64) bool {
	for _, txn := range t.txns {
		if txn.ID == id {
			return true
		}
	}
	return false
}

func (t *postingTx) commit() {
	for productID, delta := range t.stockDelta {
		t.s.stock[productID] += delta
	}
	for _, txn := range t.txns {
		stored := cloneTransaction(*txn)
		stored.Items = append([]domain.TransactionItem(nil), t.itemsByTxID[txn.ID]...)
		t.s.transactions[stored.ID] = stored
	}
	t.s.seq.transaction = t.nextTxnID
	t.s.seq.item = t.nextItemID
}
