package model

import "time"

// Item is one stock pool: a named supply held by a single warehouse.
// Items with the same name in different warehouses are independent.
type Item struct {
	ID        int64        `json:"id"`
	Name      string       `json:"name"`
	Category  string       `json:"category"`
	Warehouse WarehouseRef `json:"warehouse"`
	Quantity  int          `json:"quantity"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// DefaultCategory is used when stock arrives without a category.
const DefaultCategory = "uncategorized"
