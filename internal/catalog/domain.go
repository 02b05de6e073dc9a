package catalog

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// UnitKind tags which relationship table a sellable unit's recipe lives in.
type UnitKind string

const (
	// UnitKindMenuItem identifies a menu item recipe.
	UnitKindMenuItem UnitKind = "MENU_ITEM"
	// UnitKindAddon identifies an addon recipe.
	UnitKindAddon UnitKind = "ADDON"
)

// Valid reports whether the kind is one of the known values.
func (k UnitKind) Valid() bool {
	return k == UnitKindMenuItem || k == UnitKindAddon
}

// Component is an inventory component tracked by the stock ledger.
// CurrentStock is mutated exclusively through ledger transactions.
type Component struct {
	ID           int64
	Name         string
	Unit         string
	CurrentStock decimal.Decimal
	MinimumStock decimal.Decimal
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BelowMinimum reports whether the advisory threshold has been crossed.
func (c Component) BelowMinimum() bool {
	return c.CurrentStock.LessThan(c.MinimumStock)
}

// MenuItem is a sellable unit customers order directly.
type MenuItem struct {
	ID         int64
	Name       string
	PriceCents int64
	Active     bool
	CreatedAt  time.Time
}

// Addon is a sellable unit attached to an order line item.
type Addon struct {
	ID         int64
	Name       string
	PriceCents int64
	Active     bool
	CreatedAt  time.Time
}

// RecipeLine is one bill-of-materials row: the quantity of a component
// consumed by one unit of a sellable unit.
type RecipeLine struct {
	ComponentID     int64
	QuantityPerUnit decimal.Decimal
}

// Sentinel errors for catalog lookups.
var (
	ErrComponentNotFound = errors.New("catalog: component not found")
	ErrMenuItemNotFound  = errors.New("catalog: menu item not found")
	ErrAddonNotFound     = errors.New("catalog: addon not found")
	ErrInvalidKind       = errors.New("catalog: invalid sellable unit kind")
	ErrInvalidRecipe     = errors.New("catalog: recipe line quantity must be positive")
)
