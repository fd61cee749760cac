package workflow

import (
	"context"
	"fmt"

	"github.com/shelterstock/relief/internal/model"
	"github.com/shelterstock/relief/internal/store"
)

const noteTransferIn = "approved from central"

// transferToShelter moves every line of an approved request into the
// requesting shelter's warehouse. Central stock was already decremented when
// the request reserved it, so the OUT entry only documents that movement.
// It must run in the same database transaction as the status change.
func transferToShelter(ctx context.Context, tx store.DBTX, req *model.Request, actor string) ([]model.Transaction, error) {
	dest := req.Warehouse()
	moved := make([]model.Transaction, 0, 2*len(req.Lines))

	for _, line := range req.Lines {
		central, err := store.GetItem(ctx, tx, line.ItemID)
		if err != nil {
			return nil, err
		}
		if central == nil {
			return nil, model.NotFound("item", line.ItemID)
		}

		out, err := store.RecordTransaction(ctx, tx, store.TransactionInput{
			ItemID:      central.ID,
			Direction:   model.DirectionOut,
			Quantity:    line.Quantity,
			Destination: &dest,
			Actor:       actor,
			Note:        fmt.Sprintf("transfer per request %d", req.ID),
		})
		if err != nil {
			return nil, err
		}

		local, err := store.FindOrCreateItem(ctx, tx, line.ItemName, dest, central.Category)
		if err != nil {
			return nil, err
		}
		if _, err := store.AdjustItem(ctx, tx, local.ID, line.Quantity); err != nil {
			return nil, err
		}

		in, err := store.RecordTransaction(ctx, tx, store.TransactionInput{
			ItemID:      local.ID,
			Direction:   model.DirectionIn,
			Quantity:    line.Quantity,
			Destination: &dest,
			Actor:       model.ActorTransfer,
			Note:        noteTransferIn,
		})
		if err != nil {
			return nil, err
		}

		moved = append(moved, *out, *in)
	}
	return moved, nil
}
