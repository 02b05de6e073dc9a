package stock

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/comanda-pos/comanda-pos/internal/platform/httpx"
)

// Handler exposes out-of-order ledger operations and the audit read side.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers stock routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/components/{id}/receive", h.receive)
	r.Post("/components/{id}/adjust", h.adjust)
	r.Get("/audit", h.auditTrail)
	r.Get("/low-stock", h.lowStock)
}

type movementRequest struct {
	Qty decimal.Decimal `json:"qty" validate:"required"`
}

type auditEntryResponse struct {
	ID            int64  `json:"id"`
	ComponentID   int64  `json:"component_id"`
	OrderID       *int64 `json:"order_id,omitempty"`
	LineItemID    *int64 `json:"line_item_id,omitempty"`
	PreviousStock string `json:"previous_stock"`
	Delta         string `json:"delta"`
	NewStock      string `json:"new_stock"`
	Reason        string `json:"reason"`
	OccurredAt    string `json:"occurred_at"`
}

func toAuditResponse(e AuditEntry) auditEntryResponse {
	return auditEntryResponse{
		ID:            e.ID,
		ComponentID:   e.ComponentID,
		OrderID:       e.OrderID,
		LineItemID:    e.LineItemID,
		PreviousStock: e.PreviousStock.String(),
		Delta:         e.Delta.String(),
		NewStock:      e.NewStock.String(),
		Reason:        string(e.Reason),
		OccurredAt:    e.OccurredAt.Format("2006-01-02T15:04:05.000Z07:00"),
	}
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	h.post(w, r, func(componentID int64, qty decimal.Decimal) (AuditEntry, error) {
		return h.service.Receive(r.Context(), ReceiveInput{ComponentID: componentID, Qty: qty})
	})
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	h.post(w, r, func(componentID int64, qty decimal.Decimal) (AuditEntry, error) {
		return h.service.Adjust(r.Context(), AdjustInput{ComponentID: componentID, Qty: qty})
	})
}

func (h *Handler) post(w http.ResponseWriter, r *http.Request, fn func(int64, decimal.Decimal) (AuditEntry, error)) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid component id")
		return
	}
	var req movementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, err)
		return
	}
	entry, err := fn(id, req.Qty)
	if err != nil {
		h.logger.Warn("stock movement failed", "error", err, "component_id", id)
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAuditResponse(entry))
}

func (h *Handler) auditTrail(w http.ResponseWriter, r *http.Request) {
	filter := AuditFilter{}
	filter.ComponentID, _ = strconv.ParseInt(r.URL.Query().Get("component_id"), 10, 64)
	filter.OrderID, _ = strconv.ParseInt(r.URL.Query().Get("order_id"), 10, 64)
	filter.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.service.AuditTrail(r.Context(), filter)
	if err != nil {
		h.logger.Error("audit trail failed", "error", err)
		h.respondError(w, err)
		return
	}
	resp := make([]auditEntryResponse, 0, len(entries))
	for _, e := range entries {
		resp = append(resp, toAuditResponse(e))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	components, err := h.service.LowStockReport(r.Context())
	if err != nil {
		h.logger.Error("low stock report failed", "error", err)
		h.respondError(w, err)
		return
	}
	type row struct {
		ID           int64  `json:"id"`
		Name         string `json:"name"`
		Unit         string `json:"unit"`
		CurrentStock string `json:"current_stock"`
		MinimumStock string `json:"minimum_stock"`
	}
	resp := make([]row, 0, len(components))
	for _, c := range components {
		resp = append(resp, row{
			ID:           c.ID,
			Name:         c.Name,
			Unit:         c.Unit,
			CurrentStock: c.CurrentStock.String(),
			MinimumStock: c.MinimumStock.String(),
		})
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var insufficient *InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		httpx.ProblemWith(w, http.StatusConflict, "Insufficient Stock",
			"one or more components cannot cover the requested quantity",
			map[string]any{"shortfalls": insufficient.Shortfalls})
	case errors.Is(err, ErrInvalidQuantity):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Quantity", err.Error())
	case errors.Is(err, ErrComponentNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}
