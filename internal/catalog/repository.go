package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comanda-pos/comanda-pos/internal/platform/db"
)

// Repository persists catalog data in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Resolve implements Resolver. Unknown units yield an empty slice.
func (r *Repository) Resolve(ctx context.Context, unitID int64, kind UnitKind) ([]RecipeLine, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	rows, err := r.pool.Query(ctx, `SELECT component_id, quantity_per_unit
FROM recipe_links
WHERE sellable_unit_id=$1 AND sellable_unit_kind=$2
ORDER BY component_id`, unitID, string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []RecipeLine
	for rows.Next() {
		var line RecipeLine
		if err := rows.Scan(&line.ComponentID, &line.QuantityPerUnit); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// SetRecipe replaces the bill of materials for a sellable unit atomically.
func (r *Repository) SetRecipe(ctx context.Context, unitID int64, kind UnitKind, lines []RecipeLine) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM recipe_links WHERE sellable_unit_id=$1 AND sellable_unit_kind=$2`, unitID, string(kind)); err != nil {
			return err
		}
		for _, line := range lines {
			if _, err := tx.Exec(ctx, `INSERT INTO recipe_links (sellable_unit_id, sellable_unit_kind, component_id, quantity_per_unit)
VALUES ($1,$2,$3,$4)`, unitID, string(kind), line.ComponentID, line.QuantityPerUnit); err != nil {
				return err
			}
		}
		return nil
	})
}

// CreateComponent inserts a component with zero stock. Stock arrives through
// ledger receipts, never at creation time.
func (r *Repository) CreateComponent(ctx context.Context, c Component) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO inventory_components (name, unit, current_stock, minimum_stock, created_at, updated_at)
VALUES ($1,$2,0,$3,NOW(),NOW()) RETURNING id`, c.Name, c.Unit, c.MinimumStock).Scan(&id)
	return id, err
}

// UpdateComponent updates descriptive fields only; current_stock stays ledger-owned.
func (r *Repository) UpdateComponent(ctx context.Context, c Component) error {
	tag, err := r.pool.Exec(ctx, `UPDATE inventory_components SET name=$2, unit=$3, minimum_stock=$4, updated_at=NOW() WHERE id=$1`,
		c.ID, c.Name, c.Unit, c.MinimumStock)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrComponentNotFound
	}
	return nil
}

// GetComponent fetches a component by id.
func (r *Repository) GetComponent(ctx context.Context, id int64) (Component, error) {
	var c Component
	err := r.pool.QueryRow(ctx, `SELECT id, name, unit, current_stock, minimum_stock, created_at, updated_at
FROM inventory_components WHERE id=$1`, id).
		Scan(&c.ID, &c.Name, &c.Unit, &c.CurrentStock, &c.MinimumStock, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Component{}, ErrComponentNotFound
	}
	return c, err
}

// ListComponents returns all components ordered by name.
func (r *Repository) ListComponents(ctx context.Context) ([]Component, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, unit, current_stock, minimum_stock, created_at, updated_at
FROM inventory_components ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComponents(rows)
}

// ListBelowMinimum returns components whose stock crossed the advisory threshold.
func (r *Repository) ListBelowMinimum(ctx context.Context) ([]Component, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, unit, current_stock, minimum_stock, created_at, updated_at
FROM inventory_components WHERE current_stock < minimum_stock ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanComponents(rows)
}

func scanComponents(rows pgx.Rows) ([]Component, error) {
	var out []Component
	for rows.Next() {
		var c Component
		if err := rows.Scan(&c.ID, &c.Name, &c.Unit, &c.CurrentStock, &c.MinimumStock, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CreateMenuItem inserts a menu item.
func (r *Repository) CreateMenuItem(ctx context.Context, m MenuItem) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO menu_items (name, price_cents, active, created_at)
VALUES ($1,$2,TRUE,NOW()) RETURNING id`, m.Name, m.PriceCents).Scan(&id)
	return id, err
}

// GetMenuItem fetches a menu item by id.
func (r *Repository) GetMenuItem(ctx context.Context, id int64) (MenuItem, error) {
	var m MenuItem
	err := r.pool.QueryRow(ctx, `SELECT id, name, price_cents, active, created_at FROM menu_items WHERE id=$1`, id).
		Scan(&m.ID, &m.Name, &m.PriceCents, &m.Active, &m.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return MenuItem{}, ErrMenuItemNotFound
	}
	return m, err
}

// ListMenuItems returns all active menu items.
func (r *Repository) ListMenuItems(ctx context.Context) ([]MenuItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, price_cents, active, created_at FROM menu_items WHERE active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []MenuItem
	for rows.Next() {
		var m MenuItem
		if err := rows.Scan(&m.ID, &m.Name, &m.PriceCents, &m.Active, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CreateAddon inserts an addon.
func (r *Repository) CreateAddon(ctx context.Context, a Addon) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `INSERT INTO addons (name, price_cents, active, created_at)
VALUES ($1,$2,TRUE,NOW()) RETURNING id`, a.Name, a.PriceCents).Scan(&id)
	return id, err
}

// GetAddon fetches an addon by id.
func (r *Repository) GetAddon(ctx context.Context, id int64) (Addon, error) {
	var a Addon
	err := r.pool.QueryRow(ctx, `SELECT id, name, price_cents, active, created_at FROM addons WHERE id=$1`, id).
		Scan(&a.ID, &a.Name, &a.PriceCents, &a.Active, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Addon{}, ErrAddonNotFound
	}
	return a, err
}

// ListAddons returns all active addons.
func (r *Repository) ListAddons(ctx context.Context) ([]Addon, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, price_cents, active, created_at FROM addons WHERE active ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Addon
	for rows.Next() {
		var a Addon
		if err := rows.Scan(&a.ID, &a.Name, &a.PriceCents, &a.Active, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
