package stock

import (
	"context"
	"errors"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda-pos/internal/catalog"
	"github.com/comanda-pos/comanda-pos/internal/observability"
)

// RepositoryPort abstracts repository usage for the service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxStore) error) error
	ListAuditEntries(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

// LowStockLister reports components below their advisory minimum.
type LowStockLister interface {
	ListBelowMinimum(ctx context.Context) ([]catalog.Component, error)
}

// Service exposes ledger operations that originate outside orders
// (deliveries, manual corrections) plus the audit read side.
type Service struct {
	repo     RepositoryPort
	lowStock LowStockLister
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewService builds Service.
func NewService(repo RepositoryPort, lowStock LowStockLister, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{repo: repo, lowStock: lowStock, logger: logger, metrics: metrics}
}

// ReceiveInput describes an inbound delivery for one component.
type ReceiveInput struct {
	ComponentID int64
	Qty         decimal.Decimal
}

// Receive posts an inbound delivery. Quantity must be positive.
func (s *Service) Receive(ctx context.Context, input ReceiveInput) (AuditEntry, error) {
	if !input.Qty.IsPositive() {
		return AuditEntry{}, ErrInvalidQuantity
	}
	return s.post(ctx, input.ComponentID, input.Qty, ReasonStockReceived)
}

// AdjustInput describes a manual signed correction for one component.
type AdjustInput struct {
	ComponentID int64
	Qty         decimal.Decimal
}

// Adjust posts a manual correction. Negative adjustments are subject to the
// same insufficient-stock rejection as order deductions.
func (s *Service) Adjust(ctx context.Context, input AdjustInput) (AuditEntry, error) {
	if input.Qty.IsZero() {
		return AuditEntry{}, ErrInvalidQuantity
	}
	return s.post(ctx, input.ComponentID, input.Qty, ReasonStockAdjusted)
}

func (s *Service) post(ctx context.Context, componentID int64, qty decimal.Decimal, reason Reason) (AuditEntry, error) {
	var entry AuditEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, store TxStore) error {
		entries, err := Apply(ctx, store, []Delta{{ComponentID: componentID, Qty: qty}}, AuditContext{Reason: reason})
		if err != nil {
			return err
		}
		entry = entries[0]
		return nil
	})
	if err != nil {
		var insufficient *InsufficientStockError
		if errors.As(err, &insufficient) {
			s.metrics.RecordLedgerApply(string(reason), observability.OutcomeInsufficient)
		} else {
			s.metrics.RecordLedgerApply(string(reason), observability.OutcomeError)
		}
		return AuditEntry{}, err
	}
	s.metrics.RecordLedgerApply(string(reason), observability.OutcomeApplied)
	s.logger.Info("stock posted",
		"component_id", componentID,
		"delta", qty.String(),
		"reason", string(reason),
		"new_stock", entry.NewStock.String(),
	)
	return entry, nil
}

// AuditTrail lists audit entries for reconciliation consumers.
func (s *Service) AuditTrail(ctx context.Context, filter AuditFilter) ([]AuditEntry, error) {
	return s.repo.ListAuditEntries(ctx, filter)
}

// LowStockReport lists components under their advisory threshold.
func (s *Service) LowStockReport(ctx context.Context) ([]catalog.Component, error) {
	return s.lowStock.ListBelowMinimum(ctx)
}
