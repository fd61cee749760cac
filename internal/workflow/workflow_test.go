package workflow

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/shelterstock/relief/internal/db"
	"github.com/shelterstock/relief/internal/model"
	"github.com/shelterstock/relief/internal/store"
)

const admin = "admin"

func newTestService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	database := db.NewTestDB(t)
	return NewService(database, nil, nil), database
}

func seedShelter(t *testing.T, database *sql.DB, name string) *model.Shelter {
	t.Helper()
	s, err := store.CreateShelter(context.Background(), database, model.Shelter{
		Name: name, District: "Cianjur", Type: "school", Capacity: 200,
	})
	require.NoError(t, err)
	return s
}

func seedItem(t *testing.T, database *sql.DB, name string, warehouse model.WarehouseRef, qty int) *model.Item {
	t.Helper()
	ctx := context.Background()
	item, err := store.FindOrCreateItem(ctx, database, name, warehouse, "food")
	require.NoError(t, err)
	if qty > 0 {
		item, err = store.AdjustItem(ctx, database, item.ID, qty)
		require.NoError(t, err)
	}
	return item
}

func quantity(t *testing.T, database *sql.DB, itemID int64) int {
	t.Helper()
	item, err := store.GetItem(context.Background(), database, itemID)
	require.NoError(t, err)
	require.NotNil(t, item)
	return item.Quantity
}

func countTransactions(t *testing.T, database *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM transactions`).Scan(&n))
	return n
}
