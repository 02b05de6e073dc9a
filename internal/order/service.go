package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda-pos/internal/catalog"
	"github.com/comanda-pos/comanda-pos/internal/observability"
	"github.com/comanda-pos/comanda-pos/internal/stock"
)

// RepositoryPort abstracts repository usage for the coordinator.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	CreateOrder(ctx context.Context, o Order) (Order, error)
	GetOrder(ctx context.Context, id int64) (Order, error)
	GetDetail(ctx context.Context, id int64) (Detail, error)
	ListOrders(ctx context.Context, status *Status, limit int) ([]Order, error)
}

// Service is the order-item lifecycle coordinator. Every public operation is
// exactly one transaction wrapping a ledger call plus the item/addon row
// mutation; rejected operations leave no state behind.
type Service struct {
	repo    RepositoryPort
	recipes catalog.Resolver
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewService builds Service.
func NewService(repo RepositoryPort, recipes catalog.Resolver, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{repo: repo, recipes: recipes, logger: logger, metrics: metrics}
}

// Open creates a new order ticket in OPEN state.
func (s *Service) Open(ctx context.Context, label string) (Order, error) {
	o, err := s.repo.CreateOrder(ctx, Order{
		Reference: uuid.New(),
		Label:     label,
		Status:    StatusOpen,
	})
	if err != nil {
		return Order{}, err
	}
	s.logger.Info("order opened", "order_id", o.ID, "reference", o.Reference.String())
	return o, nil
}

// Get returns an order with its line items and addons.
func (s *Service) Get(ctx context.Context, id int64) (Detail, error) {
	return s.repo.GetDetail(ctx, id)
}

// List returns order headers, optionally filtered by status.
func (s *Service) List(ctx context.Context, status *Status, limit int) ([]Order, error) {
	return s.repo.ListOrders(ctx, status, limit)
}

// AddItem adds a menu item to an open order, deducting its recipe from stock.
// On insufficient stock no line item row is created and the shortfall detail
// propagates unchanged.
func (s *Service) AddItem(ctx context.Context, orderID, menuItemID, quantity int64) (LineItem, error) {
	if quantity < 1 {
		return LineItem{}, ErrInvalidQuantity
	}
	lines, err := s.recipes.Resolve(ctx, menuItemID, catalog.UnitKindMenuItem)
	if err != nil {
		return LineItem{}, err
	}

	var item LineItem
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		o, err := tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status != StatusOpen {
			return fmt.Errorf("%w: order is %s", ErrInvalidStatus, o.Status)
		}
		item = LineItem{OrderID: orderID, MenuItemID: menuItemID, Quantity: quantity, Status: LineItemStatusActive}
		itemID, err := tx.InsertLineItem(ctx, item)
		if err != nil {
			return err
		}
		item.ID = itemID
		deltas := scaleRecipe(lines, decimal.NewFromInt(-quantity))
		_, err = stock.Apply(ctx, tx.Stock(), deltas, stock.AuditContext{
			OrderID:    &orderID,
			LineItemID: &itemID,
			Reason:     stock.ReasonItemAdded,
		})
		return err
	})
	s.recordOutcome(stock.ReasonItemAdded, err)
	if err != nil {
		return LineItem{}, err
	}
	s.logger.Info("line item added", "order_id", orderID, "line_item_id", item.ID, "menu_item_id", menuItemID, "quantity", quantity)
	return item, nil
}

// UpdateQuantity changes a line item's quantity. Increases deduct the extra
// consumption, decreases restore it; attached addons scale proportionally in
// the same transaction. An unchanged quantity is rejected before any stock
// call.
func (s *Service) UpdateQuantity(ctx context.Context, lineItemID, newQuantity int64) (LineItem, error) {
	if newQuantity < 1 {
		return LineItem{}, ErrInvalidQuantity
	}

	var item LineItem
	reason := stock.ReasonQuantityIncreased
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		item, err = tx.GetLineItemForUpdate(ctx, lineItemID)
		if err != nil {
			return err
		}
		o, err := tx.GetOrderForUpdate(ctx, item.OrderID)
		if err != nil {
			return err
		}
		if o.Status != StatusOpen {
			return fmt.Errorf("%w: order is %s", ErrInvalidStatus, o.Status)
		}
		dq := newQuantity - item.Quantity
		if dq == 0 {
			return ErrInvalidQuantity
		}
		if dq < 0 {
			reason = stock.ReasonQuantityDecreased
		}

		factor := decimal.NewFromInt(-dq)
		menuLines, err := s.recipes.Resolve(ctx, item.MenuItemID, catalog.UnitKindMenuItem)
		if err != nil {
			return err
		}
		deltas := scaleRecipe(menuLines, factor)

		addons, err := tx.ListAddons(ctx, lineItemID)
		if err != nil {
			return err
		}
		for _, addon := range addons {
			addonLines, err := s.recipes.Resolve(ctx, addon.AddonID, catalog.UnitKindAddon)
			if err != nil {
				return err
			}
			deltas = append(deltas, scaleRecipe(addonLines, factor.Mul(decimal.NewFromInt(addon.Quantity)))...)
		}

		if _, err := stock.Apply(ctx, tx.Stock(), deltas, stock.AuditContext{
			OrderID:    &item.OrderID,
			LineItemID: &lineItemID,
			Reason:     reason,
		}); err != nil {
			return err
		}
		if err := tx.UpdateLineItemQuantity(ctx, lineItemID, newQuantity); err != nil {
			return err
		}
		item.Quantity = newQuantity
		return nil
	})
	s.recordOutcome(reason, err)
	if err != nil {
		return LineItem{}, err
	}
	s.logger.Info("line item quantity updated", "line_item_id", lineItemID, "quantity", newQuantity)
	return item, nil
}

// RemoveItem deletes a line item and its addons, restoring their full stock
// consumption. A pure restoration: it only fails when the item is missing or
// the order is no longer open.
func (s *Service) RemoveItem(ctx context.Context, lineItemID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetLineItemForUpdate(ctx, lineItemID)
		if err != nil {
			return err
		}
		o, err := tx.GetOrderForUpdate(ctx, item.OrderID)
		if err != nil {
			return err
		}
		if o.Status != StatusOpen {
			return fmt.Errorf("%w: order is %s", ErrInvalidStatus, o.Status)
		}
		deltas, err := s.restorationDeltas(ctx, tx, item)
		if err != nil {
			return err
		}
		if _, err := stock.Apply(ctx, tx.Stock(), deltas, stock.AuditContext{
			OrderID:    &item.OrderID,
			LineItemID: &lineItemID,
			Reason:     stock.ReasonItemRemoved,
		}); err != nil {
			return err
		}
		if err := tx.DeleteAddons(ctx, lineItemID); err != nil {
			return err
		}
		return tx.DeleteLineItem(ctx, lineItemID)
	})
	s.recordOutcome(stock.ReasonItemRemoved, err)
	if err != nil {
		return err
	}
	s.logger.Info("line item removed", "line_item_id", lineItemID)
	return nil
}

// AddAddon attaches an addon to a line item, deducting the addon recipe
// multiplied by the addon quantity and the parent line item quantity.
func (s *Service) AddAddon(ctx context.Context, lineItemID, addonID, quantity int64) (Addon, error) {
	if quantity < 1 {
		return Addon{}, ErrInvalidQuantity
	}
	lines, err := s.recipes.Resolve(ctx, addonID, catalog.UnitKindAddon)
	if err != nil {
		return Addon{}, err
	}

	addon := Addon{LineItemID: lineItemID, AddonID: addonID, Quantity: quantity}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetLineItemForUpdate(ctx, lineItemID)
		if err != nil {
			return err
		}
		o, err := tx.GetOrderForUpdate(ctx, item.OrderID)
		if err != nil {
			return err
		}
		if o.Status != StatusOpen {
			return fmt.Errorf("%w: order is %s", ErrInvalidStatus, o.Status)
		}
		if _, err := tx.GetAddon(ctx, lineItemID, addonID); err == nil {
			return ErrAddonAttached
		} else if !errors.Is(err, ErrAddonNotFound) {
			return err
		}
		if err := tx.InsertAddon(ctx, addon); err != nil {
			return err
		}
		factor := decimal.NewFromInt(-quantity * item.Quantity)
		_, err = stock.Apply(ctx, tx.Stock(), scaleRecipe(lines, factor), stock.AuditContext{
			OrderID:    &item.OrderID,
			LineItemID: &lineItemID,
			Reason:     stock.ReasonAddonAdded,
		})
		return err
	})
	s.recordOutcome(stock.ReasonAddonAdded, err)
	if err != nil {
		return Addon{}, err
	}
	s.logger.Info("addon attached", "line_item_id", lineItemID, "addon_id", addonID, "quantity", quantity)
	return addon, nil
}

// RemoveAddon detaches an addon, restoring its full consumption.
func (s *Service) RemoveAddon(ctx context.Context, lineItemID, addonID int64) error {
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		item, err := tx.GetLineItemForUpdate(ctx, lineItemID)
		if err != nil {
			return err
		}
		o, err := tx.GetOrderForUpdate(ctx, item.OrderID)
		if err != nil {
			return err
		}
		if o.Status != StatusOpen {
			return fmt.Errorf("%w: order is %s", ErrInvalidStatus, o.Status)
		}
		addon, err := tx.GetAddon(ctx, lineItemID, addonID)
		if err != nil {
			return err
		}
		lines, err := s.recipes.Resolve(ctx, addonID, catalog.UnitKindAddon)
		if err != nil {
			return err
		}
		factor := decimal.NewFromInt(addon.Quantity * item.Quantity)
		if _, err := stock.Apply(ctx, tx.Stock(), scaleRecipe(lines, factor), stock.AuditContext{
			OrderID:    &item.OrderID,
			LineItemID: &lineItemID,
			Reason:     stock.ReasonAddonRemoved,
		}); err != nil {
			return err
		}
		return tx.DeleteAddon(ctx, lineItemID, addonID)
	})
	s.recordOutcome(stock.ReasonAddonRemoved, err)
	if err != nil {
		return err
	}
	s.logger.Info("addon detached", "line_item_id", lineItemID, "addon_id", addonID)
	return nil
}

// Cancel restores stock for every line item and addon on the order in one
// transaction, then marks the order CANCELLED. Orders already CANCELLED or
// COMPLETED are rejected up front.
func (s *Service) Cancel(ctx context.Context, orderID int64) (Order, error) {
	var o Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		o, err = tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status == StatusCancelled || o.Status == StatusCompleted {
			return fmt.Errorf("%w: order is %s", ErrInvalidStatus, o.Status)
		}
		items, err := tx.ListLineItems(ctx, orderID)
		if err != nil {
			return err
		}
		var deltas []stock.Delta
		for _, item := range items {
			if item.Status != LineItemStatusActive {
				continue
			}
			itemDeltas, err := s.restorationDeltas(ctx, tx, item)
			if err != nil {
				return err
			}
			deltas = append(deltas, itemDeltas...)
		}
		if _, err := stock.Apply(ctx, tx.Stock(), deltas, stock.AuditContext{
			OrderID: &orderID,
			Reason:  stock.ReasonOrderCancelled,
		}); err != nil {
			return err
		}
		if err := tx.MarkLineItemsCancelled(ctx, orderID); err != nil {
			return err
		}
		if err := tx.UpdateOrderStatus(ctx, orderID, StatusCancelled); err != nil {
			return err
		}
		o.Status = StatusCancelled
		return nil
	})
	s.recordOutcome(stock.ReasonOrderCancelled, err)
	if err != nil {
		return Order{}, err
	}
	s.logger.Info("order cancelled", "order_id", orderID)
	return o, nil
}

// Complete marks an open order COMPLETED. Stock is untouched: consumption
// already happened as items were added.
func (s *Service) Complete(ctx context.Context, orderID int64) (Order, error) {
	var o Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		o, err = tx.GetOrderForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status != StatusOpen {
			return fmt.Errorf("%w: order is %s", ErrInvalidStatus, o.Status)
		}
		if err := tx.UpdateOrderStatus(ctx, orderID, StatusCompleted); err != nil {
			return err
		}
		o.Status = StatusCompleted
		return nil
	})
	if err != nil {
		return Order{}, err
	}
	s.logger.Info("order completed", "order_id", orderID)
	return o, nil
}

// restorationDeltas computes the positive deltas that return a line item's
// entire consumption: menu recipe times quantity plus every addon recipe
// times addon quantity times line quantity.
func (s *Service) restorationDeltas(ctx context.Context, tx TxRepository, item LineItem) ([]stock.Delta, error) {
	menuLines, err := s.recipes.Resolve(ctx, item.MenuItemID, catalog.UnitKindMenuItem)
	if err != nil {
		return nil, err
	}
	deltas := scaleRecipe(menuLines, decimal.NewFromInt(item.Quantity))
	addons, err := tx.ListAddons(ctx, item.ID)
	if err != nil {
		return nil, err
	}
	for _, addon := range addons {
		addonLines, err := s.recipes.Resolve(ctx, addon.AddonID, catalog.UnitKindAddon)
		if err != nil {
			return nil, err
		}
		factor := decimal.NewFromInt(addon.Quantity * item.Quantity)
		deltas = append(deltas, scaleRecipe(addonLines, factor)...)
	}
	return deltas, nil
}

func (s *Service) recordOutcome(reason stock.Reason, err error) {
	switch {
	case err == nil:
		s.metrics.RecordLedgerApply(string(reason), observability.OutcomeApplied)
	case isInsufficient(err):
		s.metrics.RecordLedgerApply(string(reason), observability.OutcomeInsufficient)
	default:
		s.metrics.RecordLedgerApply(string(reason), observability.OutcomeError)
	}
}

func isInsufficient(err error) bool {
	var insufficient *stock.InsufficientStockError
	return errors.As(err, &insufficient)
}

func scaleRecipe(lines []catalog.RecipeLine, factor decimal.Decimal) []stock.Delta {
	deltas := make([]stock.Delta, 0, len(lines))
	for _, line := range lines {
		deltas = append(deltas, stock.Delta{
			ComponentID: line.ComponentID,
			Qty:         line.QuantityPerUnit.Mul(factor),
		})
	}
	return deltas
}
