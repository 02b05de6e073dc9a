package order

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/comanda-pos/comanda-pos/internal/platform/httpx"
	"github.com/comanda-pos/comanda-pos/internal/stock"
)

// Handler exposes the coordinator operations over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/orders", h.open)
	r.Get("/orders", h.list)
	r.Get("/orders/{id}", h.show)
	r.Post("/orders/{id}/cancel", h.cancel)
	r.Post("/orders/{id}/complete", h.complete)
	r.Post("/orders/{id}/items", h.addItem)
	r.Post("/orders/{id}/items/{itemID}/quantity", h.updateQuantity)
	r.Post("/orders/{id}/items/{itemID}/remove", h.removeItem)
	r.Post("/orders/{id}/items/{itemID}/addons", h.addAddon)
	r.Post("/orders/{id}/items/{itemID}/addons/{addonID}/remove", h.removeAddon)
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	var req OpenOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, err)
		return
	}
	o, err := h.service.Open(r.Context(), req.Label)
	if err != nil {
		h.logger.Error("open order failed", "error", err)
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toOrderResponse(o))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var status *Status
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := Status(raw)
		status = &s
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	orders, err := h.service.List(r.Context(), status, limit)
	if err != nil {
		h.logger.Error("list orders failed", "error", err)
		h.respondError(w, err)
		return
	}
	resp := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, toOrderResponse(o))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid order id")
		return
	}
	detail, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toDetailResponse(detail))
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid order id")
		return
	}
	o, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		h.logger.Warn("cancel order failed", "error", err, "order_id", id)
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid order id")
		return
	}
	o, err := h.service.Complete(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toOrderResponse(o))
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid order id")
		return
	}
	var req AddItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, err)
		return
	}
	item, err := h.service.AddItem(r.Context(), orderID, req.MenuItemID, req.Quantity)
	if err != nil {
		h.logger.Warn("add item failed", "error", err, "order_id", orderID)
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, LineItemResponse{
		ID: item.ID, OrderID: item.OrderID, MenuItemID: item.MenuItemID,
		Quantity: item.Quantity, Status: string(item.Status),
	})
}

func (h *Handler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "itemID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid line item id")
		return
	}
	var req UpdateQuantityRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, err)
		return
	}
	item, err := h.service.UpdateQuantity(r.Context(), itemID, req.Quantity)
	if err != nil {
		h.logger.Warn("update quantity failed", "error", err, "line_item_id", itemID)
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, LineItemResponse{
		ID: item.ID, OrderID: item.OrderID, MenuItemID: item.MenuItemID,
		Quantity: item.Quantity, Status: string(item.Status),
	})
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "itemID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid line item id")
		return
	}
	if err := h.service.RemoveItem(r.Context(), itemID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addAddon(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "itemID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid line item id")
		return
	}
	var req AddAddonRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		h.respondError(w, err)
		return
	}
	addon, err := h.service.AddAddon(r.Context(), itemID, req.AddonID, req.Quantity)
	if err != nil {
		h.logger.Warn("add addon failed", "error", err, "line_item_id", itemID)
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, AddonResponse{AddonID: addon.AddonID, Quantity: addon.Quantity})
}

func (h *Handler) removeAddon(w http.ResponseWriter, r *http.Request) {
	itemID, err := pathID(r, "itemID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid line item id")
		return
	}
	addonID, err := pathID(r, "addonID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid addon id")
		return
	}
	if err := h.service.RemoveAddon(r.Context(), itemID, addonID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondError maps coordinator errors onto the error taxonomy: shortfall
// detail on 409 for insufficient stock, 409 for state conflicts, 404 for
// missing rows, and the shared fallback for everything else.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var insufficient *stock.InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		httpx.ProblemWith(w, http.StatusConflict, "Insufficient Stock",
			"one or more components cannot cover the requested quantity",
			map[string]any{"shortfalls": insufficient.Shortfalls})
	case errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrAddonAttached):
		httpx.Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.Is(err, ErrInvalidQuantity):
		httpx.Problem(w, http.StatusBadRequest, "Invalid Quantity", err.Error())
	case errors.Is(err, ErrOrderNotFound), errors.Is(err, ErrLineItemNotFound), errors.Is(err, ErrAddonNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

func pathID(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, key), 10, 64)
}
