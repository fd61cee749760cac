package store

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelterstock/relief/internal/db"
	"github.com/shelterstock/relief/internal/model"
)

func TestFindOrCreateItem_ReusesRow(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	first, err := FindOrCreateItem(ctx, database, "Rice", model.Central(), "food")
	require.NoError(t, err)
	assert.Equal(t, 0, first.Quantity)
	assert.Equal(t, "food", first.Category)
	assert.True(t, first.Warehouse.IsCentral())

	again, err := FindOrCreateItem(ctx, database, "  Rice ", model.Central(), "other")
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, "food", again.Category, "category only applies on creation")
}

func TestFindOrCreateItem_SameNameDifferentWarehouse(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	s := mustShelter(t, database, "Posko A")

	central, err := FindOrCreateItem(ctx, database, "Rice", model.Central(), "")
	require.NoError(t, err)
	local, err := FindOrCreateItem(ctx, database, "Rice", model.ShelterWarehouse(s.ID), "")
	require.NoError(t, err)

	assert.NotEqual(t, central.ID, local.ID)
	assert.Equal(t, model.DefaultCategory, local.Category)
	assert.Equal(t, model.ShelterWarehouse(s.ID), local.Warehouse)
}

func TestFindOrCreateItem_Validation(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := FindOrCreateItem(ctx, database, "   ", model.Central(), "")
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = FindOrCreateItem(ctx, database, "Rice", model.ShelterWarehouse(42), "")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestFindOrCreateItem_ConcurrentCallersConverge(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	const workers = 8
	ids := make([]int64, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			item, err := FindOrCreateItem(ctx, database, "Blanket", model.Central(), "shelter")
			if assert.NoError(t, err) {
				ids[i] = item.ID
			}
		}()
	}
	wg.Wait()

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestAdjustItem(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := FindOrCreateItem(ctx, database, "Water", model.Central(), "drink")
	require.NoError(t, err)

	item, err = AdjustItem(ctx, database, item.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, 10, item.Quantity)

	item, err = AdjustItem(ctx, database, item.ID, -10)
	require.NoError(t, err)
	assert.Equal(t, 0, item.Quantity)

	_, err = AdjustItem(ctx, database, item.ID, -1)
	var short *model.InsufficientStockError
	require.True(t, errors.As(err, &short), "got %v", err)
	assert.Equal(t, "Water", short.ItemName)
	assert.Equal(t, 0, short.Available)
	assert.Equal(t, 1, short.Requested)
	assert.ErrorIs(t, err, model.ErrInsufficientStock)

	got, err := GetItem(ctx, database, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity, "failed adjust must not change stock")

	_, err = AdjustItem(ctx, database, 9999, 5)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = AdjustItem(ctx, database, item.ID, 0)
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestAdjustItem_RejectsOverflow(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := FindOrCreateItem(ctx, database, "Rice", model.Central(), "food")
	require.NoError(t, err)
	item, err = AdjustItem(ctx, database, item.ID, math.MaxInt64-10)
	require.NoError(t, err)

	_, err = AdjustItem(ctx, database, item.ID, 11)
	assert.ErrorIs(t, err, model.ErrValidation)
	assert.NotErrorIs(t, err, model.ErrStorageUnavailable)

	got, err := GetItem(ctx, database, item.ID)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt64-10, got.Quantity, "rejected adjust must not change stock")

	item, err = AdjustItem(ctx, database, item.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, math.MaxInt64, item.Quantity)

	item, err = AdjustItem(ctx, database, item.ID, -math.MaxInt64)
	require.NoError(t, err)
	assert.Equal(t, 0, item.Quantity)
}

func TestAdjustItem_ConcurrentNeverNegative(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	item, err := FindOrCreateItem(ctx, database, "Rice", model.Central(), "food")
	require.NoError(t, err)
	_, err = AdjustItem(ctx, database, item.ID, 100)
	require.NoError(t, err)

	const workers = 10
	var (
		mu        sync.Mutex
		succeeded int
		wg        sync.WaitGroup
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := AdjustItem(ctx, database, item.ID, -15)
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, model.ErrInsufficientStock)
		}()
	}
	wg.Wait()

	got, err := GetItem(ctx, database, item.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, succeeded)
	assert.Equal(t, 100-15*succeeded, got.Quantity)
}

func TestListItemsByWarehouse(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	s := mustShelter(t, database, "Posko A")

	rice, _ := FindOrCreateItem(ctx, database, "Rice", model.Central(), "")
	FindOrCreateItem(ctx, database, "Oil", model.Central(), "")
	FindOrCreateItem(ctx, database, "Rice", model.ShelterWarehouse(s.ID), "")
	_, err := AdjustItem(ctx, database, rice.ID, 5)
	require.NoError(t, err)

	items, err := ListItemsByWarehouse(ctx, database, model.Central())
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Rice", items[0].Name, "most recently updated first")

	local, err := ListItemsByWarehouse(ctx, database, model.ShelterWarehouse(s.ID))
	require.NoError(t, err)
	require.Len(t, local, 1)

	empty, err := ListItemsByWarehouse(ctx, database, model.ShelterWarehouse(s.ID+1))
	require.NoError(t, err)
	assert.Empty(t, empty)
}
