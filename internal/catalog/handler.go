package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/comanda-pos/comanda-pos/internal/platform/httpx"
)

// Handler exposes catalog authoring over JSON.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/components", h.createComponent)
	r.Get("/components", h.listComponents)
	r.Get("/components/{id}", h.showComponent)
	r.Put("/components/{id}", h.updateComponent)

	r.Post("/menu-items", h.createMenuItem)
	r.Get("/menu-items", h.listMenuItems)
	r.Put("/menu-items/{id}/recipe", h.setMenuItemRecipe)
	r.Get("/menu-items/{id}/recipe", h.showMenuItemRecipe)

	r.Post("/addons", h.createAddon)
	r.Get("/addons", h.listAddons)
	r.Put("/addons/{id}/recipe", h.setAddonRecipe)
	r.Get("/addons/{id}/recipe", h.showAddonRecipe)
}

func (h *Handler) createComponent(w http.ResponseWriter, r *http.Request) {
	var req ComponentRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.service.CreateComponent(r.Context(), Component{
		Name: req.Name, Unit: req.Unit, MinimumStock: req.MinimumStock,
	})
	if err != nil {
		h.logger.Warn("create component failed", "error", err)
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toComponentResponse(c))
}

func (h *Handler) updateComponent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid component id")
		return
	}
	var req ComponentRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.service.UpdateComponent(r.Context(), Component{
		ID: id, Name: req.Name, Unit: req.Unit, MinimumStock: req.MinimumStock,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toComponentResponse(c))
}

func (h *Handler) showComponent(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid component id")
		return
	}
	c, err := h.service.GetComponent(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toComponentResponse(c))
}

func (h *Handler) listComponents(w http.ResponseWriter, r *http.Request) {
	components, err := h.service.ListComponents(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	resp := make([]ComponentResponse, 0, len(components))
	for _, c := range components {
		resp = append(resp, toComponentResponse(c))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) createMenuItem(w http.ResponseWriter, r *http.Request) {
	var req MenuItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	m, err := h.service.CreateMenuItem(r.Context(), MenuItem{Name: req.Name, PriceCents: req.PriceCents, Active: true})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toMenuItemResponse(m))
}

func (h *Handler) listMenuItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListMenuItems(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	resp := make([]MenuItemResponse, 0, len(items))
	for _, m := range items {
		resp = append(resp, toMenuItemResponse(m))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) createAddon(w http.ResponseWriter, r *http.Request) {
	var req AddonRequest
	if !h.decode(w, r, &req) {
		return
	}
	a, err := h.service.CreateAddon(r.Context(), Addon{Name: req.Name, PriceCents: req.PriceCents, Active: true})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAddonResponse(a))
}

func (h *Handler) listAddons(w http.ResponseWriter, r *http.Request) {
	addons, err := h.service.ListAddons(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	resp := make([]AddonResponse, 0, len(addons))
	for _, a := range addons {
		resp = append(resp, toAddonResponse(a))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) setMenuItemRecipe(w http.ResponseWriter, r *http.Request) {
	h.setRecipe(w, r, UnitKindMenuItem)
}

func (h *Handler) setAddonRecipe(w http.ResponseWriter, r *http.Request) {
	h.setRecipe(w, r, UnitKindAddon)
}

func (h *Handler) setRecipe(w http.ResponseWriter, r *http.Request, kind UnitKind) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid unit id")
		return
	}
	var req RecipeRequest
	if !h.decode(w, r, &req) {
		return
	}
	lines := make([]RecipeLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, RecipeLine{ComponentID: l.ComponentID, QuantityPerUnit: l.QuantityPerUnit})
	}
	if err := h.service.SetRecipe(r.Context(), id, kind, lines); err != nil {
		h.logger.Warn("set recipe failed", "error", err, "unit_id", id, "kind", string(kind))
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) showMenuItemRecipe(w http.ResponseWriter, r *http.Request) {
	h.showRecipe(w, r, UnitKindMenuItem)
}

func (h *Handler) showAddonRecipe(w http.ResponseWriter, r *http.Request) {
	h.showRecipe(w, r, UnitKindAddon)
}

func (h *Handler) showRecipe(w http.ResponseWriter, r *http.Request, kind UnitKind) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid unit id")
		return
	}
	lines, err := h.service.GetRecipe(r.Context(), id, kind)
	if err != nil {
		h.respondError(w, err)
		return
	}
	resp := make([]RecipeLineResponse, 0, len(lines))
	for _, l := range lines {
		resp = append(resp, RecipeLineResponse{ComponentID: l.ComponentID, QuantityPerUnit: l.QuantityPerUnit.String()})
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return false
	}
	if err := h.validator.Struct(dst); err != nil {
		h.respondError(w, err)
		return false
	}
	return true
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrComponentNotFound), errors.Is(err, ErrMenuItemNotFound), errors.Is(err, ErrAddonNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidRecipe), errors.Is(err, ErrInvalidKind):
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

func pathID(r *http.Request, key string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, key), 10, 64)
}
