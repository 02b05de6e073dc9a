package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type ComponentRequest struct {
	Name         string          `json:"name" validate:"required,max=120"`
	Unit         string          `json:"unit" validate:"required,max=16"`
	MinimumStock decimal.Decimal `json:"minimum_stock"`
}

type MenuItemRequest struct {
	Name       string `json:"name" validate:"required,max=120"`
	PriceCents int64  `json:"price_cents" validate:"gte=0"`
}

type AddonRequest struct {
	Name       string `json:"name" validate:"required,max=120"`
	PriceCents int64  `json:"price_cents" validate:"gte=0"`
}

type RecipeLineRequest struct {
	ComponentID     int64           `json:"component_id" validate:"required,gt=0"`
	QuantityPerUnit decimal.Decimal `json:"quantity_per_unit" validate:"required"`
}

type RecipeRequest struct {
	Lines []RecipeLineRequest `json:"lines" validate:"dive"`
}

type ComponentResponse struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Unit         string    `json:"unit"`
	CurrentStock string    `json:"current_stock"`
	MinimumStock string    `json:"minimum_stock"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type MenuItemResponse struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

type AddonResponse struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	PriceCents int64     `json:"price_cents"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

type RecipeLineResponse struct {
	ComponentID     int64  `json:"component_id"`
	QuantityPerUnit string `json:"quantity_per_unit"`
}

func toComponentResponse(c Component) ComponentResponse {
	return ComponentResponse{
		ID:           c.ID,
		Name:         c.Name,
		Unit:         c.Unit,
		CurrentStock: c.CurrentStock.String(),
		MinimumStock: c.MinimumStock.String(),
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}
}

func toMenuItemResponse(m MenuItem) MenuItemResponse {
	return MenuItemResponse{ID: m.ID, Name: m.Name, PriceCents: m.PriceCents, Active: m.Active, CreatedAt: m.CreatedAt}
}

func toAddonResponse(a Addon) AddonResponse {
	return AddonResponse{ID: a.ID, Name: a.Name, PriceCents: a.PriceCents, Active: a.Active, CreatedAt: a.CreatedAt}
}
