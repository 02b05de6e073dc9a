package stock

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Reason classifies the cause of a ledger mutation in the audit trail.
type Reason string

const (
	ReasonItemAdded         Reason = "ITEM_ADDED"
	ReasonItemRemoved       Reason = "ITEM_REMOVED"
	ReasonQuantityIncreased Reason = "QUANTITY_INCREASED"
	ReasonQuantityDecreased Reason = "QUANTITY_DECREASED"
	ReasonAddonAdded        Reason = "ADDON_ADDED"
	ReasonAddonRemoved      Reason = "ADDON_REMOVED"
	ReasonOrderCancelled    Reason = "ORDER_CANCELLED"
	ReasonStockReceived     Reason = "STOCK_RECEIVED"
	ReasonStockAdjusted     Reason = "STOCK_ADJUSTED"
)

// Delta is a signed stock change for one component. Negative deducts,
// positive restores.
type Delta struct {
	ComponentID int64
	Qty         decimal.Decimal
}

// AuditContext ties a ledger call back to its causing order mutation.
// OrderID and LineItemID are nil for stock operations outside orders
// (receipts, manual adjustments).
type AuditContext struct {
	OrderID    *int64
	LineItemID *int64
	Reason     Reason
}

// AuditEntry is one append-only audit trail row. Entries are never mutated
// or deleted; the ledger balance of every component is fully explained by
// the sum of its entries.
type AuditEntry struct {
	ID            int64
	ComponentID   int64
	OrderID       *int64
	LineItemID    *int64
	PreviousStock decimal.Decimal
	Delta         decimal.Decimal
	NewStock      decimal.Decimal
	Reason        Reason
	OccurredAt    time.Time
}

// Shortfall reports one component that a deduction would take negative.
type Shortfall struct {
	ComponentID int64           `json:"component_id"`
	Name        string          `json:"name"`
	Requested   decimal.Decimal `json:"requested"`
	Available   decimal.Decimal `json:"available"`
}

// InsufficientStockError rejects a ledger call whose deductions would drive
// one or more components negative. No partial deduction occurs.
type InsufficientStockError struct {
	Shortfalls []Shortfall
}

func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Shortfalls))
	for _, s := range e.Shortfalls {
		parts = append(parts, fmt.Sprintf("%s: requested %s, available %s", s.Name, s.Requested, s.Available))
	}
	return "stock: insufficient stock: " + strings.Join(parts, "; ")
}

// ErrComponentNotFound indicates a delta referencing an unknown component.
var ErrComponentNotFound = errors.New("stock: component not found")

// ErrInvalidQuantity indicates a zero or wrongly-signed quantity.
var ErrInvalidQuantity = errors.New("stock: invalid quantity")
