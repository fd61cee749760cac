package workflow

import (
	"context"
	"io"
	"math"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelterstock/relief/internal/db"
	"github.com/shelterstock/relief/internal/model"
	"github.com/shelterstock/relief/internal/observability"
	"github.com/shelterstock/relief/internal/store"
)

func TestReceiveStockCreatesAndTopsUp(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.ReceiveStock(ctx, model.Central(), []ReceiveLine{
		{Name: "rice", Category: "food", Quantity: 100},
		{Name: "blanket", Quantity: 20},
		{Name: "rice", Quantity: 5},
	}, admin)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Processed)
	assert.Empty(t, res.Errors)

	items, err := svc.ListItems(ctx, model.Central())
	require.NoError(t, err)
	require.Len(t, items, 2)
	byName := map[string]model.Item{}
	for _, item := range items {
		byName[item.Name] = item
	}
	assert.Equal(t, 105, byName["rice"].Quantity)
	assert.Equal(t, "food", byName["rice"].Category)
	assert.Equal(t, model.DefaultCategory, byName["blanket"].Category)

	txns, err := svc.ListTransactions(ctx, model.Central())
	require.NoError(t, err)
	require.Len(t, txns, 3)
	for _, txn := range txns {
		assert.Equal(t, model.DirectionIn, txn.Direction)
		assert.Equal(t, admin, txn.Actor)
		assert.Equal(t, noteReceived, txn.Note)
		require.NotNil(t, txn.Destination)
		assert.True(t, txn.Destination.IsCentral())
	}
}

func TestReceiveStockSkipsBadLines(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	shelter := seedShelter(t, database, "Posko S")

	res, err := svc.ReceiveStock(ctx, model.ShelterWarehouse(shelter.ID), []ReceiveLine{
		{Name: "water", Quantity: 12},
		{Name: "", Quantity: 3},
		{Name: "soap", Quantity: -1},
		{Name: "mask", Quantity: 50},
	}, "staff-s")
	require.NoError(t, err)
	assert.Equal(t, 2, res.Processed)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "line 2")
	assert.Contains(t, res.Errors[1], "line 3 (soap)")

	items, err := svc.ListItems(ctx, model.ShelterWarehouse(shelter.ID))
	require.NoError(t, err)
	assert.Len(t, items, 2)

	central, err := svc.ListItems(ctx, model.Central())
	require.NoError(t, err)
	assert.Empty(t, central, "shelter receipts stay in the shelter warehouse")
}

func TestReceiveStockUnknownShelter(t *testing.T) {
	svc, _ := newTestService(t)

	res, err := svc.ReceiveStock(context.Background(), model.ShelterWarehouse(77), []ReceiveLine{
		{Name: "water", Quantity: 12},
	}, "staff")
	require.NoError(t, err)
	assert.Zero(t, res.Processed)
	assert.Len(t, res.Errors, 1)
}

func TestReceiveStockRejectsEmptyBatch(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.ReceiveStock(context.Background(), model.Central(), nil, admin)
	assert.ErrorIs(t, err, model.ErrValidation)

	_, err = svc.ReceiveStock(context.Background(), model.Central(), []ReceiveLine{{Name: "x", Quantity: 1}}, "")
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestIssueStockBestEffort(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	dest := seedShelter(t, database, "Posko D")
	rice := seedItem(t, database, "rice", model.Central(), 10)
	oil := seedItem(t, database, "oil", model.Central(), 3)

	missing := int64(999)
	res, err := svc.IssueStock(ctx, model.Central(), []IssueLine{
		{Name: "rice", Quantity: 4, DestinationShelterID: &dest.ID},
		{Name: "oil", Quantity: 5},
		{Name: "sugar", Quantity: 1},
		{Name: "rice", Quantity: 1, DestinationShelterID: &missing},
		{Name: "rice", Quantity: 6, Note: "field kitchen"},
	}, admin)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Issued)
	require.Len(t, res.Errors, 3)
	assert.Contains(t, res.Errors[0], "insufficient stock")

	assert.Equal(t, 0, quantity(t, database, rice.ID))
	assert.Equal(t, 3, quantity(t, database, oil.ID), "failed line leaves stock untouched")

	txns, err := svc.ListTransactions(ctx, model.Central())
	require.NoError(t, err)
	require.Len(t, txns, 2)
	assert.Equal(t, "field kitchen", txns[0].Note)
	assert.Nil(t, txns[0].Destination, "no destination means outside the network")
	require.NotNil(t, txns[1].Destination)
	assert.Equal(t, model.ShelterWarehouse(dest.ID), *txns[1].Destination)
	assert.Equal(t, noteIssued, txns[1].Note)

	// Issuing to a shelter records the movement only; the destination
	// warehouse gains nothing.
	local, err := svc.ListItems(ctx, model.ShelterWarehouse(dest.ID))
	require.NoError(t, err)
	assert.Empty(t, local)
}

func TestIssueStockCannotTargetItself(t *testing.T) {
	svc, database := newTestService(t)
	shelter := seedShelter(t, database, "Posko S")
	seedItem(t, database, "rice", model.ShelterWarehouse(shelter.ID), 10)

	res, err := svc.IssueStock(context.Background(), model.ShelterWarehouse(shelter.ID), []IssueLine{
		{Name: "rice", Quantity: 1, DestinationShelterID: &shelter.ID},
	}, "staff-s")
	require.NoError(t, err)
	assert.Zero(t, res.Issued)
	assert.Len(t, res.Errors, 1)
}

func TestListTransactionsIsScopedToWarehouse(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	a := seedShelter(t, database, "Posko A")
	b := seedShelter(t, database, "Posko B")

	_, err := svc.ReceiveStock(ctx, model.ShelterWarehouse(a.ID), []ReceiveLine{{Name: "rice", Quantity: 5}}, "staff-a")
	require.NoError(t, err)
	_, err = svc.ReceiveStock(ctx, model.ShelterWarehouse(b.ID), []ReceiveLine{{Name: "rice", Quantity: 9}}, "staff-b")
	require.NoError(t, err)

	txns, err := svc.ListTransactions(ctx, model.ShelterWarehouse(a.ID))
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.Equal(t, 5, txns[0].Quantity)

	empty, err := svc.ListTransactions(ctx, model.Central())
	require.NoError(t, err)
	assert.Empty(t, empty)

	all, err := store.ListTransactionsForItems(ctx, database, []int64{txns[0].ItemID})
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestItemHistoryIsScoped(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	shelter := seedShelter(t, database, "Posko S")

	_, err := svc.ReceiveStock(ctx, model.Central(), []ReceiveLine{{Name: "rice", Quantity: 5}}, admin)
	require.NoError(t, err)
	items, err := svc.ListItems(ctx, model.Central())
	require.NoError(t, err)
	require.Len(t, items, 1)

	item, txns, err := svc.ItemHistory(ctx, model.Central(), items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "rice", item.Name)
	assert.Len(t, txns, 1)

	_, _, err = svc.ItemHistory(ctx, model.ShelterWarehouse(shelter.ID), items[0].ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestReceiveStockOverflowIsALineError(t *testing.T) {
	svc, database := newTestService(t)
	ctx := context.Background()
	rice := seedItem(t, database, "rice", model.Central(), math.MaxInt64-5)

	res, err := svc.ReceiveStock(ctx, model.Central(), []ReceiveLine{
		{Name: "rice", Quantity: 10},
		{Name: "water", Quantity: 5},
		{Name: "tent", Quantity: 1_000_000_001},
	}, admin)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Processed)
	require.Len(t, res.Errors, 2)
	assert.Contains(t, res.Errors[0], "line 1 (rice)")
	assert.Contains(t, res.Errors[1], "line 3 (tent)")
	assert.Contains(t, res.Errors[1], "must be at most 1000000000")

	assert.Equal(t, math.MaxInt64-5, quantity(t, database, rice.ID))
	water, err := store.GetItemByName(ctx, database, "water", model.Central())
	require.NoError(t, err)
	require.NotNil(t, water)
	assert.Equal(t, 5, water.Quantity)
}

func TestAbortedBatchCountsFailingLine(t *testing.T) {
	database := db.NewTestDB(t)
	metrics := observability.NewMetrics()
	svc := NewService(database, nil, metrics)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := svc.ReceiveStock(ctx, model.Central(), []ReceiveLine{
		{Name: "rice", Quantity: 10},
		{Name: "water", Quantity: 5},
	}, admin)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, res.Processed)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `relief_batch_lines_failed_total{operation="receive"} 1`)
}
