package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/shelterstock/relief/internal/model"
)

// TransactionInput describes one audit entry to append.
type TransactionInput struct {
	ItemID      int64
	Direction   model.Direction
	Quantity    int
	Destination *model.WarehouseRef
	Actor       string
	Note        string
}

const transactionColumns = `t.id, t.item_id, t.direction, t.quantity, t.destination, t.actor, t.note, t.created_at,
	i.name AS item_name, i.warehouse AS item_warehouse`

// RecordTransaction appends an audit entry. The log has no update or delete;
// corrections are recorded as compensating entries.
func RecordTransaction(ctx context.Context, db DBTX, in TransactionInput) (*model.Transaction, error) {
	if in.ItemID <= 0 {
		return nil, model.Invalid("item_id", "required")
	}
	if !in.Direction.Valid() {
		return nil, model.Invalid("direction", "must be IN or OUT")
	}
	if in.Quantity <= 0 {
		return nil, model.Invalid("quantity", "must be positive")
	}
	if strings.TrimSpace(in.Actor) == "" {
		return nil, model.Invalid("actor", "required")
	}

	var dest sql.NullString
	var destShelter any
	if in.Destination != nil {
		dest = sql.NullString{String: in.Destination.Key(), Valid: true}
		destShelter = shelterColumn(*in.Destination)
	}

	var id int64
	err := db.QueryRowContext(ctx,
		`INSERT INTO transactions (item_id, direction, quantity, destination, destination_shelter_id, actor, note, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		in.ItemID, string(in.Direction), in.Quantity, dest, destShelter, in.Actor, nullString(in.Note), now(),
	).Scan(&id)
	if err != nil {
		return nil, unavailable("recording transaction", err)
	}

	return getTransaction(ctx, db, id)
}

func getTransaction(ctx context.Context, db DBTX, id int64) (*model.Transaction, error) {
	t, err := scanTransaction(db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions t
		 JOIN items i ON i.id = t.item_id
		 WHERE t.id = ?`, id,
	))
	if err != nil {
		return nil, unavailable("getting transaction", err)
	}
	return t, nil
}

// ListTransactionsForItems returns the audit entries of the given items,
// newest first.
func ListTransactionsForItems(ctx context.Context, db DBTX, itemIDs []int64) ([]model.Transaction, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(itemIDs)), ",")
	args := make([]any, len(itemIDs))
	for i, id := range itemIDs {
		args[i] = id
	}

	rows, err := db.QueryContext(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions t
		 JOIN items i ON i.id = t.item_id
		 WHERE t.item_id IN (`+placeholders+`)
		 ORDER BY t.created_at DESC, t.id DESC`, args...,
	)
	if err != nil {
		return nil, unavailable("listing transactions", err)
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, unavailable("scanning transaction", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("listing transactions", err)
	}
	return txns, nil
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	t := &model.Transaction{}
	var direction, itemWarehouse string
	var dest, note sql.NullString
	if err := row.Scan(&t.ID, &t.ItemID, &direction, &t.Quantity, &dest, &t.Actor, &note, &t.CreatedAt,
		&t.ItemName, &itemWarehouse); err != nil {
		return nil, err
	}
	t.Direction = model.Direction(direction)
	t.Note = note.String

	if dest.Valid {
		ref, err := model.ParseWarehouseRef(dest.String)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", t.ID, err)
		}
		t.Destination = &ref
	}

	ref, err := model.ParseWarehouseRef(itemWarehouse)
	if err != nil {
		return nil, fmt.Errorf("transaction %d: %w", t.ID, err)
	}
	t.Warehouse = &ref
	return t, nil
}
