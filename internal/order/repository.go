package order

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comanda-pos/comanda-pos/internal/platform/db"
	"github.com/comanda-pos/comanda-pos/internal/stock"
)

// Repository persists orders in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes the transactional operations the coordinator needs.
// Stock() shares the same transaction with the ledger, so a row mutation and
// its ledger call commit or roll back together.
type TxRepository interface {
	Stock() stock.TxStore

	GetOrderForUpdate(ctx context.Context, id int64) (Order, error)
	UpdateOrderStatus(ctx context.Context, id int64, status Status) error

	InsertLineItem(ctx context.Context, item LineItem) (int64, error)
	GetLineItemForUpdate(ctx context.Context, id int64) (LineItem, error)
	UpdateLineItemQuantity(ctx context.Context, id int64, qty int64) error
	DeleteLineItem(ctx context.Context, id int64) error
	ListLineItems(ctx context.Context, orderID int64) ([]LineItem, error)
	MarkLineItemsCancelled(ctx context.Context, orderID int64) error

	InsertAddon(ctx context.Context, addon Addon) error
	GetAddon(ctx context.Context, lineItemID, addonID int64) (Addon, error)
	DeleteAddon(ctx context.Context, lineItemID, addonID int64) error
	DeleteAddons(ctx context.Context, lineItemID int64) error
	ListAddons(ctx context.Context, lineItemID int64) ([]Addon, error)
}

// WithTx executes the callback inside one serializable transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// CreateOrder opens a new order ticket.
func (r *Repository) CreateOrder(ctx context.Context, o Order) (Order, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO orders (reference, label, status, created_at, updated_at)
VALUES ($1,$2,$3,NOW(),NOW()) RETURNING id, created_at, updated_at`,
		o.Reference, o.Label, string(o.Status)).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// GetOrder fetches an order header.
func (r *Repository) GetOrder(ctx context.Context, id int64) (Order, error) {
	var o Order
	var status string
	err := r.pool.QueryRow(ctx, `SELECT id, reference, label, status, created_at, updated_at FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.Reference, &o.Label, &status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	o.Status = Status(status)
	return o, err
}

// GetDetail fetches an order with its line items and addons.
func (r *Repository) GetDetail(ctx context.Context, id int64) (Detail, error) {
	o, err := r.GetOrder(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	detail := Detail{Order: o}
	rows, err := r.pool.Query(ctx, `SELECT id, order_id, menu_item_id, quantity, status, created_at
FROM order_line_items WHERE order_id=$1 ORDER BY id`, id)
	if err != nil {
		return Detail{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item LineItem
		var status string
		if err := rows.Scan(&item.ID, &item.OrderID, &item.MenuItemID, &item.Quantity, &status, &item.CreatedAt); err != nil {
			return Detail{}, err
		}
		item.Status = LineItemStatus(status)
		detail.Items = append(detail.Items, LineItemDetail{LineItem: item})
	}
	if err := rows.Err(); err != nil {
		return Detail{}, err
	}
	for i := range detail.Items {
		addons, err := r.listAddons(ctx, detail.Items[i].ID)
		if err != nil {
			return Detail{}, err
		}
		detail.Items[i].Addons = addons
	}
	return detail, nil
}

// ListOrders returns order headers, newest first, optionally filtered by status.
func (r *Repository) ListOrders(ctx context.Context, status *Status, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 100
	}
	var filter any
	if status != nil {
		filter = string(*status)
	}
	rows, err := r.pool.Query(ctx, `SELECT id, reference, label, status, created_at, updated_at
FROM orders
WHERE ($1::text IS NULL OR status = $1)
ORDER BY id DESC
LIMIT $2`, filter, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		var o Order
		var st string
		if err := rows.Scan(&o.ID, &o.Reference, &o.Label, &st, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, err
		}
		o.Status = Status(st)
		out = append(out, o)
	}
	return out, rows.Err()
}

func (r *Repository) listAddons(ctx context.Context, lineItemID int64) ([]Addon, error) {
	rows, err := r.pool.Query(ctx, `SELECT line_item_id, addon_id, quantity FROM order_line_item_addons WHERE line_item_id=$1 ORDER BY addon_id`, lineItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Addon
	for rows.Next() {
		var a Addon
		if err := rows.Scan(&a.LineItemID, &a.AddonID, &a.Quantity); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) Stock() stock.TxStore {
	return stock.NewTxStore(r.tx)
}

func (r *txRepository) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	var o Order
	var status string
	err := r.tx.QueryRow(ctx, `SELECT id, reference, label, status, created_at, updated_at FROM orders WHERE id=$1 FOR UPDATE`, id).
		Scan(&o.ID, &o.Reference, &o.Label, &status, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	o.Status = Status(status)
	return o, err
}

func (r *txRepository) UpdateOrderStatus(ctx context.Context, id int64, status Status) error {
	_, err := r.tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=NOW() WHERE id=$1`, id, string(status))
	return err
}

func (r *txRepository) InsertLineItem(ctx context.Context, item LineItem) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO order_line_items (order_id, menu_item_id, quantity, status, created_at)
VALUES ($1,$2,$3,$4,NOW()) RETURNING id`,
		item.OrderID, item.MenuItemID, item.Quantity, string(item.Status)).Scan(&id)
	return id, err
}

func (r *txRepository) GetLineItemForUpdate(ctx context.Context, id int64) (LineItem, error) {
	var item LineItem
	var status string
	err := r.tx.QueryRow(ctx, `SELECT id, order_id, menu_item_id, quantity, status, created_at FROM order_line_items WHERE id=$1 FOR UPDATE`, id).
		Scan(&item.ID, &item.OrderID, &item.MenuItemID, &item.Quantity, &status, &item.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return LineItem{}, ErrLineItemNotFound
	}
	item.Status = LineItemStatus(status)
	return item, err
}

func (r *txRepository) UpdateLineItemQuantity(ctx context.Context, id int64, qty int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE order_line_items SET quantity=$2 WHERE id=$1`, id, qty)
	return err
}

func (r *txRepository) DeleteLineItem(ctx context.Context, id int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM order_line_items WHERE id=$1`, id)
	return err
}

func (r *txRepository) ListLineItems(ctx context.Context, orderID int64) ([]LineItem, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, order_id, menu_item_id, quantity, status, created_at
FROM order_line_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LineItem
	for rows.Next() {
		var item LineItem
		var status string
		if err := rows.Scan(&item.ID, &item.OrderID, &item.MenuItemID, &item.Quantity, &status, &item.CreatedAt); err != nil {
			return nil, err
		}
		item.Status = LineItemStatus(status)
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *txRepository) MarkLineItemsCancelled(ctx context.Context, orderID int64) error {
	_, err := r.tx.Exec(ctx, `UPDATE order_line_items SET status=$2 WHERE order_id=$1`, orderID, string(LineItemStatusCancelled))
	return err
}

func (r *txRepository) InsertAddon(ctx context.Context, addon Addon) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO order_line_item_addons (line_item_id, addon_id, quantity)
VALUES ($1,$2,$3)`, addon.LineItemID, addon.AddonID, addon.Quantity)
	return err
}

func (r *txRepository) GetAddon(ctx context.Context, lineItemID, addonID int64) (Addon, error) {
	var a Addon
	err := r.tx.QueryRow(ctx, `SELECT line_item_id, addon_id, quantity FROM order_line_item_addons WHERE line_item_id=$1 AND addon_id=$2`, lineItemID, addonID).
		Scan(&a.LineItemID, &a.AddonID, &a.Quantity)
	if errors.Is(err, pgx.ErrNoRows) {
		return Addon{}, ErrAddonNotFound
	}
	return a, err
}

func (r *txRepository) DeleteAddon(ctx context.Context, lineItemID, addonID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM order_line_item_addons WHERE line_item_id=$1 AND addon_id=$2`, lineItemID, addonID)
	return err
}

func (r *txRepository) DeleteAddons(ctx context.Context, lineItemID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM order_line_item_addons WHERE line_item_id=$1`, lineItemID)
	return err
}

func (r *txRepository) ListAddons(ctx context.Context, lineItemID int64) ([]Addon, error) {
	rows, err := r.tx.Query(ctx, `SELECT line_item_id, addon_id, quantity FROM order_line_item_addons WHERE line_item_id=$1 ORDER BY addon_id`, lineItemID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Addon
	for rows.Next() {
		var a Addon
		if err := rows.Scan(&a.LineItemID, &a.AddonID, &a.Quantity); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
