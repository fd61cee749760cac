package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shelterstock/relief/internal/model"
	"github.com/shelterstock/relief/internal/store"
)

const (
	noteReceived = "received into stock"
	noteIssued   = "issued on site"
	maxBatch     = 500
)

// ReceiveLine is one incoming supply.
type ReceiveLine struct {
	Name     string `json:"name" validate:"required,max=200"`
	Category string `json:"category" validate:"max=100"`
	Quantity int    `json:"quantity" validate:"gt=0,lte=1000000000"`
	Note     string `json:"note" validate:"max=500"`
}

// IssueLine is one outgoing supply. DestinationShelterID is informational;
// nil means the stock leaves the shelter network.
type IssueLine struct {
	Name                 string `json:"name" validate:"required,max=200"`
	Quantity             int    `json:"quantity" validate:"gt=0,lte=1000000000"`
	DestinationShelterID *int64 `json:"destination_shelter_id" validate:"omitempty,gt=0"`
	Note                 string `json:"note" validate:"max=500"`
}

// ReceiveResult summarizes a receive batch.
type ReceiveResult struct {
	Processed int      `json:"processed"`
	Errors    []string `json:"errors,omitempty"`
}

// IssueResult summarizes an issue batch.
type IssueResult struct {
	Issued int      `json:"issued"`
	Errors []string `json:"errors,omitempty"`
}

// ListItems returns the stock of one warehouse.
func (s *Service) ListItems(ctx context.Context, warehouse model.WarehouseRef) ([]model.Item, error) {
	return store.ListItemsByWarehouse(ctx, s.db, warehouse)
}

// ListTransactions returns the audit entries of the items held by warehouse,
// newest first.
func (s *Service) ListTransactions(ctx context.Context, warehouse model.WarehouseRef) ([]model.Transaction, error) {
	items, err := store.ListItemsByWarehouse(ctx, s.db, warehouse)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}
	return store.ListTransactionsForItems(ctx, s.db, ids)
}

// ItemHistory returns one item's audit entries. Items outside warehouse are
// reported as not found.
func (s *Service) ItemHistory(ctx context.Context, warehouse model.WarehouseRef, itemID int64) (*model.Item, []model.Transaction, error) {
	item, err := store.GetItem(ctx, s.db, itemID)
	if err != nil {
		return nil, nil, err
	}
	if item == nil || item.Warehouse != warehouse {
		return nil, nil, model.NotFound("item", itemID)
	}
	txns, err := store.ListTransactionsForItems(ctx, s.db, []int64{itemID})
	if err != nil {
		return nil, nil, err
	}
	return item, txns, nil
}

// ReceiveStock adds each line to warehouse, creating items on first receipt.
// Lines are independent: a rejected line is reported in the result and does
// not undo its siblings. A storage failure stops the batch and is returned
// alongside the lines already committed.
func (s *Service) ReceiveStock(ctx context.Context, warehouse model.WarehouseRef, lines []ReceiveLine, actor string) (*ReceiveResult, error) {
	if err := checkBatch(len(lines), actor); err != nil {
		return nil, err
	}

	result := &ReceiveResult{}
	for i, line := range lines {
		txn, err := s.receiveLine(ctx, warehouse, line, actor)
		if err != nil {
			if fatal(err) {
				s.metrics.LinesFailed("receive", len(result.Errors)+1)
				return result, err
			}
			result.Errors = append(result.Errors, lineError(i, line.Name, err))
			continue
		}
		s.countMovements([]model.Transaction{*txn})
		result.Processed++
	}
	s.metrics.LinesFailed("receive", len(result.Errors))
	return result, nil
}

func (s *Service) receiveLine(ctx context.Context, warehouse model.WarehouseRef, line ReceiveLine, actor string) (*model.Transaction, error) {
	if err := Validate(line); err != nil {
		return nil, err
	}
	note := line.Note
	if note == "" {
		note = noteReceived
	}

	var txn *model.Transaction
	err := store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		item, err := store.FindOrCreateItem(ctx, tx, line.Name, warehouse, line.Category)
		if err != nil {
			return err
		}
		if _, err := store.AdjustItem(ctx, tx, item.ID, line.Quantity); err != nil {
			return err
		}
		dest := warehouse
		txn, err = store.RecordTransaction(ctx, tx, store.TransactionInput{
			ItemID:      item.ID,
			Direction:   model.DirectionIn,
			Quantity:    line.Quantity,
			Destination: &dest,
			Actor:       actor,
			Note:        note,
		})
		return err
	})
	return txn, err
}

// IssueStock removes each line from warehouse. Lines are independent in the
// same way as ReceiveStock; a line fails with InsufficientStockError rather
// than driving stock negative.
func (s *Service) IssueStock(ctx context.Context, warehouse model.WarehouseRef, lines []IssueLine, actor string) (*IssueResult, error) {
	if err := checkBatch(len(lines), actor); err != nil {
		return nil, err
	}

	result := &IssueResult{}
	for i, line := range lines {
		txn, err := s.issueLine(ctx, warehouse, line, actor)
		if err != nil {
			if fatal(err) {
				s.metrics.LinesFailed("issue", len(result.Errors)+1)
				return result, err
			}
			result.Errors = append(result.Errors, lineError(i, line.Name, err))
			continue
		}
		s.countMovements([]model.Transaction{*txn})
		result.Issued++
	}
	s.metrics.LinesFailed("issue", len(result.Errors))
	return result, nil
}

func (s *Service) issueLine(ctx context.Context, warehouse model.WarehouseRef, line IssueLine, actor string) (*model.Transaction, error) {
	if err := Validate(line); err != nil {
		return nil, err
	}
	note := line.Note
	if note == "" {
		note = noteIssued
	}

	var txn *model.Transaction
	err := store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var dest *model.WarehouseRef
		if line.DestinationShelterID != nil {
			ref := model.ShelterWarehouse(*line.DestinationShelterID)
			if ref == warehouse {
				return model.Invalid("destination_shelter_id", "cannot issue to the source warehouse")
			}
			exists, err := store.ShelterExists(ctx, tx, *line.DestinationShelterID)
			if err != nil {
				return err
			}
			if !exists {
				return model.NotFound("shelter", *line.DestinationShelterID)
			}
			dest = &ref
		}

		item, err := store.GetItemByName(ctx, tx, line.Name, warehouse)
		if err != nil {
			return err
		}
		if item == nil {
			return &model.NotFoundError{Entity: "item", ID: fmt.Sprintf("%q in %s", line.Name, warehouse)}
		}
		if _, err := store.AdjustItem(ctx, tx, item.ID, -line.Quantity); err != nil {
			return err
		}
		txn, err = store.RecordTransaction(ctx, tx, store.TransactionInput{
			ItemID:      item.ID,
			Direction:   model.DirectionOut,
			Quantity:    line.Quantity,
			Destination: dest,
			Actor:       actor,
			Note:        note,
		})
		return err
	})
	return txn, err
}

func checkBatch(n int, actor string) error {
	if n == 0 {
		return model.Invalid("lines", "at least one line required")
	}
	if n > maxBatch {
		return model.Invalid("lines", fmt.Sprintf("at most %d lines per batch", maxBatch))
	}
	if actor == "" {
		return model.Invalid("actor", "required")
	}
	return nil
}

// fatal reports errors that should abort a best-effort batch instead of
// being recorded against a single line.
func fatal(err error) bool {
	return errors.Is(err, model.ErrStorageUnavailable) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

func lineError(i int, name string, err error) string {
	if name == "" {
		return fmt.Sprintf("line %d: %v", i+1, err)
	}
	return fmt.Sprintf("line %d (%s): %v", i+1, name, err)
}
