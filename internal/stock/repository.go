package stock

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda-pos/internal/catalog"
	"github.com/comanda-pos/comanda-pos/internal/platform/db"
)

// Repository persists ledger data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// WithTx executes the callback inside one serializable transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, NewTxStore(tx))
	})
}

// AuditFilter narrows audit trail listings.
type AuditFilter struct {
	ComponentID int64
	OrderID     int64
	Limit       int
}

// ListAuditEntries returns audit rows, oldest first, for reconciliation
// consumers. The engine itself never reads these back for logic decisions.
func (r *Repository) ListAuditEntries(ctx context.Context, filter AuditFilter) ([]AuditEntry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	rows, err := r.pool.Query(ctx, `SELECT id, component_id, order_id, line_item_id, previous_stock, delta, new_stock, reason, occurred_at
FROM audit_entries
WHERE ($1 = 0 OR component_id = $1) AND ($2 = 0 OR order_id = $2)
ORDER BY id ASC
LIMIT $3`, filter.ComponentID, filter.OrderID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		var reason string
		if err := rows.Scan(&e.ID, &e.ComponentID, &e.OrderID, &e.LineItemID, &e.PreviousStock, &e.Delta, &e.NewStock, &reason, &e.OccurredAt); err != nil {
			return nil, err
		}
		e.Reason = Reason(reason)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

type txStore struct {
	tx pgx.Tx
}

// NewTxStore wraps an open transaction as a TxStore. Used by the order
// coordinator to share one transaction between row mutations and the ledger.
func NewTxStore(tx pgx.Tx) TxStore {
	return &txStore{tx: tx}
}

func (s *txStore) GetComponentsForUpdate(ctx context.Context, ids []int64) ([]catalog.Component, error) {
	rows, err := s.tx.Query(ctx, `SELECT id, name, unit, current_stock, minimum_stock, created_at, updated_at
FROM inventory_components
WHERE id = ANY($1)
ORDER BY id
FOR UPDATE`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []catalog.Component
	for rows.Next() {
		var c catalog.Component
		if err := rows.Scan(&c.ID, &c.Name, &c.Unit, &c.CurrentStock, &c.MinimumStock, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *txStore) UpdateComponentStock(ctx context.Context, id int64, qty decimal.Decimal) error {
	_, err := s.tx.Exec(ctx, `UPDATE inventory_components SET current_stock=$2, updated_at=NOW() WHERE id=$1`, id, qty)
	return err
}

func (s *txStore) InsertAuditEntry(ctx context.Context, entry AuditEntry) (int64, error) {
	var id int64
	err := s.tx.QueryRow(ctx, `INSERT INTO audit_entries (component_id, order_id, line_item_id, previous_stock, delta, new_stock, reason, occurred_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`,
		entry.ComponentID, entry.OrderID, entry.LineItemID, entry.PreviousStock, entry.Delta, entry.NewStock, string(entry.Reason), entry.OccurredAt).Scan(&id)
	return id, err
}
