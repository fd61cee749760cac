package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

const centralKey = "central"

// WarehouseRef identifies a stock pool: the central warehouse or one shelter.
// The zero value is the central warehouse.
type WarehouseRef struct {
	shelterID int64
}

// Central returns the reference to the central warehouse.
func Central() WarehouseRef {
	return WarehouseRef{}
}

// ShelterWarehouse returns the reference to the warehouse of the given shelter.
func ShelterWarehouse(id int64) WarehouseRef {
	return WarehouseRef{shelterID: id}
}

// IsCentral reports whether w is the central warehouse.
func (w WarehouseRef) IsCentral() bool {
	return w.shelterID == 0
}

// ShelterID returns the shelter id and true for shelter warehouses.
func (w WarehouseRef) ShelterID() (int64, bool) {
	return w.shelterID, w.shelterID != 0
}

// Key is the persisted form: "central" or "shelter:<id>".
func (w WarehouseRef) Key() string {
	if w.IsCentral() {
		return centralKey
	}
	return "shelter:" + strconv.FormatInt(w.shelterID, 10)
}

func (w WarehouseRef) String() string {
	return w.Key()
}

// ParseWarehouseRef parses the persisted form produced by Key.
func ParseWarehouseRef(s string) (WarehouseRef, error) {
	if s == centralKey {
		return Central(), nil
	}
	rest, ok := strings.CutPrefix(s, "shelter:")
	if !ok {
		return WarehouseRef{}, fmt.Errorf("invalid warehouse %q", s)
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return WarehouseRef{}, fmt.Errorf("invalid shelter id in warehouse %q", s)
	}
	return ShelterWarehouse(id), nil
}

type warehouseJSON struct {
	Kind      string `json:"kind"`
	ShelterID int64  `json:"shelter_id,omitempty"`
}

// MarshalJSON encodes the reference as {"kind":"central"} or {"kind":"shelter","shelter_id":N}.
func (w WarehouseRef) MarshalJSON() ([]byte, error) {
	if w.IsCentral() {
		return json.Marshal(warehouseJSON{Kind: "central"})
	}
	return json.Marshal(warehouseJSON{Kind: "shelter", ShelterID: w.shelterID})
}

// UnmarshalJSON accepts the object form written by MarshalJSON.
func (w *WarehouseRef) UnmarshalJSON(data []byte) error {
	var v warehouseJSON
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v.Kind {
	case "central":
		*w = Central()
	case "shelter":
		if v.ShelterID <= 0 {
			return fmt.Errorf("shelter warehouse requires a positive shelter_id")
		}
		*w = ShelterWarehouse(v.ShelterID)
	default:
		return fmt.Errorf("unknown warehouse kind %q", v.Kind)
	}
	return nil
}
