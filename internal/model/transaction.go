package model

import "time"

// Direction of a stock movement.
type Direction string

// Directions.
const (
	DirectionIn  Direction = "IN"
	DirectionOut Direction = "OUT"
)

// Valid reports whether d is a known direction.
func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

// Actor names used by the system itself.
const (
	ActorTransfer = "system:transfer"
)

// Transaction is an immutable audit entry for a committed stock movement.
type Transaction struct {
	ID          int64         `json:"id"`
	ItemID      int64         `json:"item_id"`
	Direction   Direction     `json:"direction"`
	Quantity    int           `json:"quantity"`
	Destination *WarehouseRef `json:"destination,omitempty"`
	Actor       string        `json:"actor"`
	Note        string        `json:"note,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`

	// Joined fields (not always populated).
	ItemName  string        `json:"item_name,omitempty"`
	Warehouse *WarehouseRef `json:"warehouse,omitempty"`
}
