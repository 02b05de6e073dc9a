package order

import "time"

type OpenOrderRequest struct {
	Label string `json:"label" validate:"max=120"`
}

type AddItemRequest struct {
	MenuItemID int64 `json:"menu_item_id" validate:"required,gt=0"`
	Quantity   int64 `json:"quantity" validate:"required,gte=1"`
}

type UpdateQuantityRequest struct {
	Quantity int64 `json:"quantity" validate:"required,gte=1"`
}

type AddAddonRequest struct {
	AddonID  int64 `json:"addon_id" validate:"required,gt=0"`
	Quantity int64 `json:"quantity" validate:"required,gte=1"`
}

type OrderResponse struct {
	ID        int64     `json:"id"`
	Reference string    `json:"reference"`
	Label     string    `json:"label,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type LineItemResponse struct {
	ID         int64           `json:"id"`
	OrderID    int64           `json:"order_id"`
	MenuItemID int64           `json:"menu_item_id"`
	Quantity   int64           `json:"quantity"`
	Status     string          `json:"status"`
	Addons     []AddonResponse `json:"addons,omitempty"`
}

type AddonResponse struct {
	AddonID  int64 `json:"addon_id"`
	Quantity int64 `json:"quantity"`
}

type OrderDetailResponse struct {
	OrderResponse
	Items []LineItemResponse `json:"items"`
}

func toOrderResponse(o Order) OrderResponse {
	return OrderResponse{
		ID:        o.ID,
		Reference: o.Reference.String(),
		Label:     o.Label,
		Status:    string(o.Status),
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
}

func toDetailResponse(d Detail) OrderDetailResponse {
	resp := OrderDetailResponse{OrderResponse: toOrderResponse(d.Order), Items: []LineItemResponse{}}
	for _, item := range d.Items {
		li := LineItemResponse{
			ID:         item.ID,
			OrderID:    item.OrderID,
			MenuItemID: item.MenuItemID,
			Quantity:   item.Quantity,
			Status:     string(item.Status),
		}
		for _, a := range item.Addons {
			li.Addons = append(li.Addons, AddonResponse{AddonID: a.AddonID, Quantity: a.Quantity})
		}
		resp.Items = append(resp.Items, li)
	}
	return resp
}
