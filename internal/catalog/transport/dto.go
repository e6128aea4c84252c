package transport

import "github.com/google/uuid"

type CreateProductRequest struct {
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Price        int64      `json:"price"`
	Stock        uint       `json:"stock"`
	CategoryID   *uuid.UUID `json:"category_id"`
	Brand        string     `json:"brand"`
	Origin       string     `json:"origin"`
	Packaging    string     `json:"packaging"`
	IsVegetarian bool       `json:"is_vegetarian"`
	IsVegan      bool       `json:"is_vegan"`
	Allergens    string     `json:"allergens"`
}

type PatchProductRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	Price       *int64     `json:"price"`
	Stock       *uint      `json:"stock"`
	CategoryID  *uuid.UUID `json:"category_id"`
	Brand       *string    `json:"brand"`
	Origin      *string    `json:"origin"`
	Packaging   *string    `json:"packaging"`
	Allergens   *string    `json:"allergens"`
}

type ProductFilter struct {
	Name       string     `json:"name,omitempty"`
	CategoryID *uuid.UUID `json:"categoryId,omitempty"`
	MinPrice   *int64     `json:"minPrice,omitempty"`
	MaxPrice   *int64     `json:"maxPrice,omitempty"`
}

type SortOption struct {
	Field string `json:"field"`
	Order string `json:"order"` // ASC | DESC
}
