package store

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/shelterstock/relief/internal/model"
)

const itemColumns = `id, name, category, warehouse, quantity, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*model.Item, error) {
	item := &model.Item{}
	var warehouse string
	if err := row.Scan(&item.ID, &item.Name, &item.Category, &warehouse, &item.Quantity, &item.CreatedAt, &item.UpdatedAt); err != nil {
		return nil, err
	}
	ref, err := model.ParseWarehouseRef(warehouse)
	if err != nil {
		return nil, fmt.Errorf("item %d: %w", item.ID, err)
	}
	item.Warehouse = ref
	return item, nil
}

func shelterColumn(w model.WarehouseRef) any {
	if id, ok := w.ShelterID(); ok {
		return id
	}
	return nil
}

// FindOrCreateItem returns the item called name in warehouse, creating it
// with quantity 0 if it does not exist yet. Concurrent callers converge on a
// single row. The category is only used on creation.
func FindOrCreateItem(ctx context.Context, db DBTX, name string, warehouse model.WarehouseRef, category string) (*model.Item, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, model.Invalid("name", "required")
	}
	category = strings.TrimSpace(category)
	if category == "" {
		category = model.DefaultCategory
	}

	if id, ok := warehouse.ShelterID(); ok {
		exists, err := ShelterExists(ctx, db, id)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, model.NotFound("shelter", id)
		}
	}

	ts := now()
	_, err := db.ExecContext(ctx,
		`INSERT INTO items (name, category, warehouse, shelter_id, quantity, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 0, ?, ?)
		 ON CONFLICT (name, warehouse) DO NOTHING`,
		name, category, warehouse.Key(), shelterColumn(warehouse), ts, ts,
	)
	if err != nil {
		return nil, unavailable("creating item", err)
	}

	item, err := GetItemByName(ctx, db, name, warehouse)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, unavailable("creating item", fmt.Errorf("item %q vanished after insert", name))
	}
	return item, nil
}

// AdjustItem applies quantity += delta as one conditional update. If the
// result would be negative nothing changes and an InsufficientStockError is
// returned; if it would exceed math.MaxInt64 nothing changes and a
// ValidationError is returned. Concurrent adjustments to the same item
// serialize in the database.
func AdjustItem(ctx context.Context, db DBTX, itemID int64, delta int) (*model.Item, error) {
	if delta == 0 {
		return nil, model.Invalid("delta", "must be non-zero")
	}
	if delta == math.MinInt {
		return nil, model.Invalid("delta", "out of range")
	}

	// Largest current quantity that can take delta without overflowing.
	ceiling := int64(math.MaxInt64)
	if delta > 0 {
		ceiling -= int64(delta)
	}

	item, err := scanItem(db.QueryRowContext(ctx,
		`UPDATE items SET quantity = quantity + ?, updated_at = ?
		 WHERE id = ? AND quantity <= ? AND quantity + ? >= 0
		 RETURNING `+itemColumns,
		delta, now(), itemID, ceiling, delta,
	))
	if err == nil {
		return item, nil
	}
	if err != sql.ErrNoRows {
		return nil, unavailable("adjusting item", err)
	}

	// Nothing matched: either the item is missing or stock is short.
	current, err := GetItem(ctx, db, itemID)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, model.NotFound("item", itemID)
	}
	if delta > 0 {
		return nil, model.Invalid("delta", fmt.Sprintf("stock of %q would exceed the maximum quantity", current.Name))
	}
	return nil, &model.InsufficientStockError{
		ItemName:  current.Name,
		Available: current.Quantity,
		Requested: -delta,
	}
}

// GetItem returns an item by ID, or nil if it does not exist.
func GetItem(ctx context.Context, db DBTX, id int64) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("getting item", err)
	}
	return item, nil
}

// GetItemByName returns the item called name in warehouse, or nil.
func GetItemByName(ctx context.Context, db DBTX, name string, warehouse model.WarehouseRef) (*model.Item, error) {
	item, err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE name = ? AND warehouse = ?`,
		strings.TrimSpace(name), warehouse.Key(),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("getting item by name", err)
	}
	return item, nil
}

// ListItemsByWarehouse returns the warehouse's items, most recently updated first.
func ListItemsByWarehouse(ctx context.Context, db DBTX, warehouse model.WarehouseRef) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items
		 WHERE warehouse = ?
		 ORDER BY updated_at DESC, id DESC`, warehouse.Key(),
	)
	if err != nil {
		return nil, unavailable("listing items", err)
	}
	defer rows.Close()

	var items []model.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, unavailable("scanning item", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("listing items", err)
	}
	return items, nil
}
