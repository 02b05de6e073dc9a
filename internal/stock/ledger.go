package stock

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda-pos/internal/catalog"
)

// TxStore is the transactional surface the ledger mutates. Implementations
// are scoped to a single open transaction; Apply never commits or rolls back.
type TxStore interface {
	// GetComponentsForUpdate loads and row-locks components in ascending id
	// order so concurrent ledger calls serialize without deadlocking.
	GetComponentsForUpdate(ctx context.Context, ids []int64) ([]catalog.Component, error)
	UpdateComponentStock(ctx context.Context, id int64, qty decimal.Decimal) error
	InsertAuditEntry(ctx context.Context, entry AuditEntry) (int64, error)
}

// Apply posts a batch of signed deltas against component balances inside the
// caller's transaction. Deltas for the same component are merged so exactly
// one audit entry is appended per component touched. If any deduction would
// take a balance negative the whole call fails with *InsufficientStockError
// and nothing is applied.
func Apply(ctx context.Context, store TxStore, deltas []Delta, audit AuditContext) ([]AuditEntry, error) {
	merged := make(map[int64]decimal.Decimal, len(deltas))
	for _, d := range deltas {
		merged[d.ComponentID] = merged[d.ComponentID].Add(d.Qty)
	}
	ids := make([]int64, 0, len(merged))
	for id, qty := range merged {
		if qty.IsZero() {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	components, err := store.GetComponentsForUpdate(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int64]catalog.Component, len(components))
	for _, c := range components {
		byID[c.ID] = c
	}

	var shortfalls []Shortfall
	for _, id := range ids {
		c, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("%w: id %d", ErrComponentNotFound, id)
		}
		qty := merged[id]
		if qty.IsNegative() && c.CurrentStock.Add(qty).IsNegative() {
			shortfalls = append(shortfalls, Shortfall{
				ComponentID: c.ID,
				Name:        c.Name,
				Requested:   qty.Neg(),
				Available:   c.CurrentStock,
			})
		}
	}
	if len(shortfalls) > 0 {
		return nil, &InsufficientStockError{Shortfalls: shortfalls}
	}

	now := time.Now().UTC()
	entries := make([]AuditEntry, 0, len(ids))
	for _, id := range ids {
		c := byID[id]
		qty := merged[id]
		newStock := c.CurrentStock.Add(qty)
		if err := store.UpdateComponentStock(ctx, id, newStock); err != nil {
			return nil, err
		}
		entry := AuditEntry{
			ComponentID:   id,
			OrderID:       audit.OrderID,
			LineItemID:    audit.LineItemID,
			PreviousStock: c.CurrentStock,
			Delta:         qty,
			NewStock:      newStock,
			Reason:        audit.Reason,
			OccurredAt:    now,
		}
		entryID, err := store.InsertAuditEntry(ctx, entry)
		if err != nil {
			return nil, err
		}
		entry.ID = entryID
		entries = append(entries, entry)
	}
	return entries, nil
}
