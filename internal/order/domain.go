package order

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Status is the order lifecycle state.
type Status string

const (
	StatusOpen      Status = "OPEN"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// LineItemStatus is the lifecycle state of one line item.
type LineItemStatus string

const (
	LineItemStatusActive    LineItemStatus = "ACTIVE"
	LineItemStatusCancelled LineItemStatus = "CANCELLED"
)

// Order is a customer order ticket.
type Order struct {
	ID        int64
	Reference uuid.UUID
	Label     string
	Status    Status
	CreatedAt time.Time
	UpdatedAt time.Time
}

// LineItem is one menu item on an order. Quantity drives menu-item-level
// stock consumption.
type LineItem struct {
	ID         int64
	OrderID    int64
	MenuItemID int64
	Quantity   int64
	Status     LineItemStatus
	CreatedAt  time.Time
}

// Addon is an addon attached to a line item. Its stock consumption is
// multiplicative with the parent line item's quantity.
type Addon struct {
	LineItemID int64
	AddonID    int64
	Quantity   int64
}

// LineItemDetail bundles a line item with its attached addons.
type LineItemDetail struct {
	LineItem
	Addons []Addon
}

// Detail is a full order view with its line items.
type Detail struct {
	Order
	Items []LineItemDetail
}

// Sentinel errors for the coordinator.
var (
	ErrOrderNotFound    = errors.New("order: order not found")
	ErrLineItemNotFound = errors.New("order: line item not found")
	ErrAddonNotFound    = errors.New("order: addon not attached")
	ErrAddonAttached    = errors.New("order: addon already attached")
	ErrInvalidStatus    = errors.New("order: invalid status for operation")
	ErrInvalidQuantity  = errors.New("order: quantity must change and stay >= 1")
)
