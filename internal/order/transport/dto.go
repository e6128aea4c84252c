package transport

import (
	"github.com/google/uuid"

	"github.com/quanghuy/freshmart/internal/models"
)

// CustomOrderItem is an ad hoc order line. ProductID is optional; when set
// the line is validated against the catalog and a zero price falls back to
// the catalog price.
type CustomOrderItem struct {
	ProductID   *uuid.UUID `json:"product_id"`
	ProductName string     `json:"product_name"`
	Quantity    uint       `json:"quantity"`
	Price       int64      `json:"price"`
	Notes       string     `json:"notes"`
}

type CreateCustomOrderFromCartRequest struct {
	Items []CustomOrderItem `json:"items"`
	Notes string            `json:"notes"`
}

// CreateCustomOrderRequest orders a subset of an existing cart's lines.
type CreateCustomOrderRequest struct {
	CartID     uuid.UUID   `json:"cart_id"`
	ProductIDs []uuid.UUID `json:"product_ids"`
	Notes      string      `json:"notes"`
}

type OrderFilter struct {
	UserID      *uuid.UUID           `json:"userId,omitempty"`
	CartID      *uuid.UUID           `json:"cartId,omitempty"`
	Statuses    []models.OrderStatus `json:"statuses,omitempty"`
	MinTotal    *int64               `json:"minTotal,omitempty"`
	MaxTotal    *int64               `json:"maxTotal,omitempty"`
	NotesSearch string               `json:"notesSearch,omitempty"`
}

type SortOption struct {
	Field string `json:"field"`
	Order string `json:"order"` // ASC | DESC
}
