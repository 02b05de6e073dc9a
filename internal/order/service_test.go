package order

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/comanda-pos/comanda-pos/internal/catalog"
	"github.com/comanda-pos/comanda-pos/internal/stock"
)

// memoryWorld fakes the whole persistence surface: orders, line items,
// addons, component balances and the audit trail. WithTx serializes callers
// and rolls the world back when the callback fails, matching the
// all-or-nothing behaviour of the real transactions.
type memoryWorld struct {
	mu sync.Mutex

	components map[int64]catalog.Component
	recipes    map[string][]catalog.RecipeLine

	orders map[int64]Order
	items  map[int64]LineItem
	addons map[string]Addon
	audit  []stock.AuditEntry

	nextOrderID int64
	nextItemID  int64
	nextAuditID int64
}

func newMemoryWorld() *memoryWorld {
	return &memoryWorld{
		components: make(map[int64]catalog.Component),
		recipes:    make(map[string][]catalog.RecipeLine),
		orders:     make(map[int64]Order),
		items:      make(map[int64]LineItem),
		addons:     make(map[string]Addon),
	}
}

func recipeKey(kind catalog.UnitKind, unitID int64) string {
	return fmt.Sprintf("%s:%d", kind, unitID)
}

func addonKey(lineItemID, addonID int64) string {
	return fmt.Sprintf("%d:%d", lineItemID, addonID)
}

func (w *memoryWorld) addComponent(id int64, name, current string) {
	w.components[id] = catalog.Component{ID: id, Name: name, Unit: "kg", CurrentStock: dec(current)}
}

func (w *memoryWorld) setRecipe(kind catalog.UnitKind, unitID int64, lines ...catalog.RecipeLine) {
	w.recipes[recipeKey(kind, unitID)] = lines
}

func (w *memoryWorld) stock(id int64) decimal.Decimal {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.components[id].CurrentStock
}

// Resolve implements catalog.Resolver. Unknown units resolve empty.
func (w *memoryWorld) Resolve(ctx context.Context, unitID int64, kind catalog.UnitKind) ([]catalog.RecipeLine, error) {
	lines := w.recipes[recipeKey(kind, unitID)]
	out := make([]catalog.RecipeLine, len(lines))
	copy(out, lines)
	return out, nil
}

func (w *memoryWorld) snapshot() *memoryWorld {
	snap := newMemoryWorld()
	for k, v := range w.components {
		snap.components[k] = v
	}
	for k, v := range w.orders {
		snap.orders[k] = v
	}
	for k, v := range w.items {
		snap.items[k] = v
	}
	for k, v := range w.addons {
		snap.addons[k] = v
	}
	snap.audit = append(snap.audit, w.audit...)
	return snap
}

func (w *memoryWorld) restore(snap *memoryWorld) {
	w.components = snap.components
	w.orders = snap.orders
	w.items = snap.items
	w.addons = snap.addons
	w.audit = snap.audit
}

func (w *memoryWorld) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	snap := w.snapshot()
	if err := fn(ctx, &memoryTx{world: w}); err != nil {
		w.restore(snap)
		return err
	}
	return nil
}

func (w *memoryWorld) CreateOrder(ctx context.Context, o Order) (Order, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.nextOrderID++
	o.ID = w.nextOrderID
	w.orders[o.ID] = o
	return o, nil
}

func (w *memoryWorld) GetOrder(ctx context.Context, id int64) (Order, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	o, ok := w.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return o, nil
}

func (w *memoryWorld) GetDetail(ctx context.Context, id int64) (Detail, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	o, ok := w.orders[id]
	if !ok {
		return Detail{}, ErrOrderNotFound
	}
	detail := Detail{Order: o}
	for _, item := range w.items {
		if item.OrderID != id {
			continue
		}
		li := LineItemDetail{LineItem: item}
		for _, a := range w.addons {
			if a.LineItemID == item.ID {
				li.Addons = append(li.Addons, a)
			}
		}
		detail.Items = append(detail.Items, li)
	}
	return detail, nil
}

func (w *memoryWorld) ListOrders(ctx context.Context, status *Status, limit int) ([]Order, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []Order
	for _, o := range w.orders {
		if status != nil && o.Status != *status {
			continue
		}
		out = append(out, o)
	}
	return out, nil
}

type memoryTx struct {
	world *memoryWorld
}

func (tx *memoryTx) Stock() stock.TxStore {
	return &memoryTxStock{world: tx.world}
}

func (tx *memoryTx) GetOrderForUpdate(ctx context.Context, id int64) (Order, error) {
	o, ok := tx.world.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return o, nil
}

func (tx *memoryTx) UpdateOrderStatus(ctx context.Context, id int64, status Status) error {
	o := tx.world.orders[id]
	o.Status = status
	tx.world.orders[id] = o
	return nil
}

func (tx *memoryTx) InsertLineItem(ctx context.Context, item LineItem) (int64, error) {
	tx.world.nextItemID++
	item.ID = tx.world.nextItemID
	tx.world.items[item.ID] = item
	return item.ID, nil
}

func (tx *memoryTx) GetLineItemForUpdate(ctx context.Context, id int64) (LineItem, error) {
	item, ok := tx.world.items[id]
	if !ok {
		return LineItem{}, ErrLineItemNotFound
	}
	return item, nil
}

func (tx *memoryTx) UpdateLineItemQuantity(ctx context.Context, id int64, qty int64) error {
	item := tx.world.items[id]
	item.Quantity = qty
	tx.world.items[id] = item
	return nil
}

func (tx *memoryTx) DeleteLineItem(ctx context.Context, id int64) error {
	delete(tx.world.items, id)
	return nil
}

func (tx *memoryTx) ListLineItems(ctx context.Context, orderID int64) ([]LineItem, error) {
	var out []LineItem
	for _, item := range tx.world.items {
		if item.OrderID == orderID {
			out = append(out, item)
		}
	}
	return out, nil
}

func (tx *memoryTx) MarkLineItemsCancelled(ctx context.Context, orderID int64) error {
	for id, item := range tx.world.items {
		if item.OrderID == orderID {
			item.Status = LineItemStatusCancelled
			tx.world.items[id] = item
		}
	}
	return nil
}

func (tx *memoryTx) InsertAddon(ctx context.Context, addon Addon) error {
	tx.world.addons[addonKey(addon.LineItemID, addon.AddonID)] = addon
	return nil
}

func (tx *memoryTx) GetAddon(ctx context.Context, lineItemID, addonID int64) (Addon, error) {
	a, ok := tx.world.addons[addonKey(lineItemID, addonID)]
	if !ok {
		return Addon{}, ErrAddonNotFound
	}
	return a, nil
}

func (tx *memoryTx) DeleteAddon(ctx context.Context, lineItemID, addonID int64) error {
	delete(tx.world.addons, addonKey(lineItemID, addonID))
	return nil
}

func (tx *memoryTx) DeleteAddons(ctx context.Context, lineItemID int64) error {
	for k, a := range tx.world.addons {
		if a.LineItemID == lineItemID {
			delete(tx.world.addons, k)
		}
	}
	return nil
}

func (tx *memoryTx) ListAddons(ctx context.Context, lineItemID int64) ([]Addon, error) {
	var out []Addon
	for _, a := range tx.world.addons {
		if a.LineItemID == lineItemID {
			out = append(out, a)
		}
	}
	return out, nil
}

type memoryTxStock struct {
	world *memoryWorld
}

func (s *memoryTxStock) GetComponentsForUpdate(ctx context.Context, ids []int64) ([]catalog.Component, error) {
	out := make([]catalog.Component, 0, len(ids))
	for _, id := range ids {
		if c, ok := s.world.components[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memoryTxStock) UpdateComponentStock(ctx context.Context, id int64, qty decimal.Decimal) error {
	c := s.world.components[id]
	c.CurrentStock = qty
	s.world.components[id] = c
	return nil
}

func (s *memoryTxStock) InsertAuditEntry(ctx context.Context, entry stock.AuditEntry) (int64, error) {
	s.world.nextAuditID++
	entry.ID = s.world.nextAuditID
	s.world.audit = append(s.world.audit, entry)
	return entry.ID, nil
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func line(componentID int64, qty string) catalog.RecipeLine {
	return catalog.RecipeLine{ComponentID: componentID, QuantityPerUnit: dec(qty)}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const (
	beef   = int64(1)
	cheese = int64(2)
	flour  = int64(3)

	burger    = int64(10)
	pasta     = int64(11)
	xtraCheez = int64(20)
)

func newTestWorld() (*memoryWorld, *Service) {
	world := newMemoryWorld()
	world.addComponent(beef, "Beef", "10")
	world.addComponent(cheese, "Cheese", "120")
	world.addComponent(flour, "Flour", "5")
	world.setRecipe(catalog.UnitKindMenuItem, burger, line(beef, "0.2"))
	world.setRecipe(catalog.UnitKindMenuItem, pasta, line(flour, "10"))
	world.setRecipe(catalog.UnitKindAddon, xtraCheez, line(cheese, "1"))
	svc := NewService(world, world, testLogger(), nil)
	return world, svc
}

func TestAddAndRemoveItemRoundTrip(t *testing.T) {
	world, svc := newTestWorld()
	ctx := context.Background()

	o, err := svc.Open(ctx, "table 4")
	require.NoError(t, err)
	require.Equal(t, StatusOpen, o.Status)

	item, err := svc.AddItem(ctx, o.ID, burger, 1)
	require.NoError(t, err)
	require.True(t, world.stock(beef).Equal(dec("9.8")))

	require.NoError(t, svc.RemoveItem(ctx, item.ID))
	require.True(t, world.stock(beef).Equal(dec("10")))

	// Both movements are on the trail, nothing was erased.
	require.Len(t, world.audit, 2)
	require.Equal(t, stock.ReasonItemAdded, world.audit[0].Reason)
	require.Equal(t, stock.ReasonItemRemoved, world.audit[1].Reason)

	detail, err := svc.Get(ctx, o.ID)
	require.NoError(t, err)
	require.Empty(t, detail.Items)
}

func TestCancelRestoresItemsAndAddons(t *testing.T) {
	world, svc := newTestWorld()
	ctx := context.Background()

	o, err := svc.Open(ctx, "")
	require.NoError(t, err)
	item, err := svc.AddItem(ctx, o.ID, burger, 2)
	require.NoError(t, err)
	_, err = svc.AddAddon(ctx, item.ID, xtraCheez, 1)
	require.NoError(t, err)

	require.True(t, world.stock(beef).Equal(dec("9.6")))
	// addon consumption scales with the line quantity: 1 * 2 = 2 pcs
	require.True(t, world.stock(cheese).Equal(dec("118")))

	cancelled, err := svc.Cancel(ctx, o.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, cancelled.Status)
	require.True(t, world.stock(beef).Equal(dec("10")))
	require.True(t, world.stock(cheese).Equal(dec("120")))

	// Line items survive cancellation as CANCELLED rows.
	detail, err := svc.Get(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, detail.Items, 1)
	require.Equal(t, LineItemStatusCancelled, detail.Items[0].Status)

	// Cancelling twice is rejected.
	_, err = svc.Cancel(ctx, o.ID)
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestUpdateQuantityScalesItemAndAddons(t *testing.T) {
	world, svc := newTestWorld()
	ctx := context.Background()

	o, err := svc.Open(ctx, "")
	require.NoError(t, err)
	item, err := svc.AddItem(ctx, o.ID, burger, 1)
	require.NoError(t, err)
	_, err = svc.AddAddon(ctx, item.ID, xtraCheez, 1)
	require.NoError(t, err)

	require.True(t, world.stock(beef).Equal(dec("9.8")))
	require.True(t, world.stock(cheese).Equal(dec("119")))
	auditBefore := len(world.audit)

	updated, err := svc.UpdateQuantity(ctx, item.ID, 3)
	require.NoError(t, err)
	require.Equal(t, int64(3), updated.Quantity)

	// +2 units: 0.4 kg beef and 2 pcs cheese in one ledger call.
	require.True(t, world.stock(beef).Equal(dec("9.4")))
	require.True(t, world.stock(cheese).Equal(dec("117")))
	newEntries := world.audit[auditBefore:]
	require.Len(t, newEntries, 2)
	for _, e := range newEntries {
		require.Equal(t, stock.ReasonQuantityIncreased, e.Reason)
	}

	// Shrinking back restores the same amounts.
	_, err = svc.UpdateQuantity(ctx, item.ID, 1)
	require.NoError(t, err)
	require.True(t, world.stock(beef).Equal(dec("9.8")))
	require.True(t, world.stock(cheese).Equal(dec("119")))
}

func TestUpdateQuantityRejectsNoChange(t *testing.T) {
	_, svc := newTestWorld()
	ctx := context.Background()

	o, err := svc.Open(ctx, "")
	require.NoError(t, err)
	item, err := svc.AddItem(ctx, o.ID, burger, 2)
	require.NoError(t, err)

	_, err = svc.UpdateQuantity(ctx, item.ID, 2)
	require.ErrorIs(t, err, ErrInvalidQuantity)
	_, err = svc.UpdateQuantity(ctx, item.ID, 0)
	require.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestInsufficientStockLeavesNoTrace(t *testing.T) {
	world, svc := newTestWorld()
	ctx := context.Background()

	o, err := svc.Open(ctx, "")
	require.NoError(t, err)

	// Pasta needs 10 flour, only 5 on hand.
	_, err = svc.AddItem(ctx, o.ID, pasta, 1)
	var insufficient *stock.InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Len(t, insufficient.Shortfalls, 1)
	shortfall := insufficient.Shortfalls[0]
	require.Equal(t, flour, shortfall.ComponentID)
	require.True(t, shortfall.Requested.Equal(dec("10")))
	require.True(t, shortfall.Available.Equal(dec("5")))

	// No line item row, no stock movement, no audit entry.
	require.True(t, world.stock(flour).Equal(dec("5")))
	require.Empty(t, world.audit)
	detail, err := svc.Get(ctx, o.ID)
	require.NoError(t, err)
	require.Empty(t, detail.Items)
}

func TestRemoveAddonRestoresConsumption(t *testing.T) {
	world, svc := newTestWorld()
	ctx := context.Background()

	o, err := svc.Open(ctx, "")
	require.NoError(t, err)
	item, err := svc.AddItem(ctx, o.ID, burger, 2)
	require.NoError(t, err)
	_, err = svc.AddAddon(ctx, item.ID, xtraCheez, 2)
	require.NoError(t, err)
	require.True(t, world.stock(cheese).Equal(dec("116")))

	// Duplicate attachment is rejected without a stock movement.
	_, err = svc.AddAddon(ctx, item.ID, xtraCheez, 1)
	require.ErrorIs(t, err, ErrAddonAttached)
	require.True(t, world.stock(cheese).Equal(dec("116")))

	require.NoError(t, svc.RemoveAddon(ctx, item.ID, xtraCheez))
	require.True(t, world.stock(cheese).Equal(dec("120")))

	err = svc.RemoveAddon(ctx, item.ID, xtraCheez)
	require.ErrorIs(t, err, ErrAddonNotFound)
}

func TestMutationsRequireOpenOrder(t *testing.T) {
	_, svc := newTestWorld()
	ctx := context.Background()

	o, err := svc.Open(ctx, "")
	require.NoError(t, err)
	item, err := svc.AddItem(ctx, o.ID, burger, 1)
	require.NoError(t, err)

	_, err = svc.Complete(ctx, o.ID)
	require.NoError(t, err)

	_, err = svc.AddItem(ctx, o.ID, burger, 1)
	require.ErrorIs(t, err, ErrInvalidStatus)
	_, err = svc.UpdateQuantity(ctx, item.ID, 2)
	require.ErrorIs(t, err, ErrInvalidStatus)
	err = svc.RemoveItem(ctx, item.ID)
	require.ErrorIs(t, err, ErrInvalidStatus)
	_, err = svc.AddAddon(ctx, item.ID, xtraCheez, 1)
	require.ErrorIs(t, err, ErrInvalidStatus)

	// A completed order cannot be cancelled either.
	_, err = svc.Cancel(ctx, o.ID)
	require.ErrorIs(t, err, ErrInvalidStatus)
}

func TestConcurrentAddItemExactlyOneWins(t *testing.T) {
	world, svc := newTestWorld()
	ctx := context.Background()

	// Only enough beef for one more burger.
	world.addComponent(beef, "Beef", "0.2")

	o1, err := svc.Open(ctx, "")
	require.NoError(t, err)
	o2, err := svc.Open(ctx, "")
	require.NoError(t, err)

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, orderID := range []int64{o1.ID, o2.ID} {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_, err := svc.AddItem(ctx, id, burger, 1)
			errs <- err
		}(orderID)
	}
	wg.Wait()
	close(errs)

	var failures, successes int
	for err := range errs {
		if err == nil {
			successes++
		} else {
			var insufficient *stock.InsufficientStockError
			require.ErrorAs(t, err, &insufficient)
			failures++
		}
	}
	require.Equal(t, 1, successes)
	require.Equal(t, 1, failures)
	require.True(t, world.stock(beef).Equal(dec("0")))
}

func TestAddItemUnknownOrder(t *testing.T) {
	_, svc := newTestWorld()
	_, err := svc.AddItem(context.Background(), 999, burger, 1)
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestOpenAssignsReference(t *testing.T) {
	_, svc := newTestWorld()
	o, err := svc.Open(context.Background(), "counter")
	require.NoError(t, err)
	require.NotEqual(t, "00000000-0000-0000-0000-000000000000", o.Reference.String())
	require.Equal(t, "counter", o.Label)
}
