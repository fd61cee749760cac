package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shelterstock/relief/internal/idempotency"
	"github.com/shelterstock/relief/internal/model"
	"github.com/shelterstock/relief/internal/store"
)

// RequestLineInput asks for quantity units of a central item.
type RequestLineInput struct {
	ItemID   int64 `json:"item_id" validate:"required,gt=0"`
	Quantity int   `json:"quantity" validate:"gt=0,lte=1000000000"`
}

// CreateRequestInput describes a new shelter request.
type CreateRequestInput struct {
	ShelterID   int64              `json:"shelter_id" validate:"required,gt=0"`
	Lines       []RequestLineInput `json:"lines" validate:"min=1,max=100,dive"`
	Note        string             `json:"note" validate:"max=500"`
	RequestedBy string             `json:"requested_by" validate:"required"`
	// IdempotencyKey deduplicates retries of the same creation. Optional.
	IdempotencyKey string `json:"-"`
}

// ErrRequestInProgress is returned when a creation with the same
// idempotency key has not finished yet.
var ErrRequestInProgress = errors.New("a request with this idempotency key is still being created")

// CreateRequest reserves central stock for every line and records a PENDING
// request. Either every line is reserved or none is: the reservations and the
// request row commit in one database transaction. replayed is true when the
// idempotency key matched an earlier creation and that request is returned
// instead.
func (s *Service) CreateRequest(ctx context.Context, in CreateRequestInput) (req *model.Request, replayed bool, err error) {
	if err := Validate(in); err != nil {
		return nil, false, err
	}

	claim, existingID, err := s.idempotency.Begin(ctx, in.RequestedBy, in.IdempotencyKey)
	switch {
	case errors.Is(err, idempotency.ErrInvalidKey):
		return nil, false, model.Invalid("idempotency_key", "must be at most 128 characters without whitespace")
	case errors.Is(err, idempotency.ErrInProgress):
		return nil, false, ErrRequestInProgress
	case err != nil:
		return nil, false, fmt.Errorf("%w: %w", model.ErrStorageUnavailable, err)
	}
	if existingID > 0 {
		return s.replay(ctx, existingID, in.ShelterID)
	}

	req, err = s.reserve(ctx, in)
	if err != nil {
		if relErr := claim.Release(context.WithoutCancel(ctx)); relErr != nil {
			slog.Warn("failed to release idempotency key", "key", in.IdempotencyKey, "error", relErr)
		}
		return nil, false, err
	}

	if err := claim.Complete(context.WithoutCancel(ctx), req.ID); err != nil {
		slog.Warn("failed to complete idempotency key", "key", in.IdempotencyKey, "request", req.ID, "error", err)
	}
	s.metrics.RequestEvent("created")
	return req, false, nil
}

func (s *Service) reserve(ctx context.Context, in CreateRequestInput) (*model.Request, error) {
	var req *model.Request
	err := store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		shelter, err := store.GetShelter(ctx, tx, in.ShelterID)
		if err != nil {
			return err
		}
		if shelter == nil {
			return model.NotFound("shelter", in.ShelterID)
		}
		if shelter.Status != model.ShelterStatusActive {
			return model.Invalid("shelter_id", "shelter is closed")
		}

		lines := make([]model.RequestLine, 0, len(in.Lines))
		for i, l := range in.Lines {
			item, err := store.GetItem(ctx, tx, l.ItemID)
			if err != nil {
				return err
			}
			if item == nil {
				return model.NotFound("item", l.ItemID)
			}
			if !item.Warehouse.IsCentral() {
				return model.Invalid(fmt.Sprintf("lines[%d].item_id", i), "must reference a central warehouse item")
			}
			if _, err := store.AdjustItem(ctx, tx, item.ID, -l.Quantity); err != nil {
				return err
			}
			lines = append(lines, model.RequestLine{ItemID: item.ID, ItemName: item.Name, Quantity: l.Quantity})
		}

		req, err = store.InsertRequest(ctx, tx, in.ShelterID, lines, in.RequestedBy, in.Note)
		return err
	})
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (s *Service) replay(ctx context.Context, id, shelterID int64) (*model.Request, bool, error) {
	req, err := store.GetRequest(ctx, s.db, id)
	if err != nil {
		return nil, false, err
	}
	if req == nil {
		return nil, false, model.NotFound("request", id)
	}
	if req.ShelterID != shelterID {
		return nil, false, model.Invalid("idempotency_key", "already used for another shelter")
	}
	return req, true, nil
}

// ApproveRequest resolves a PENDING request as APPROVED and transfers its
// reserved stock to the shelter. Of several concurrent resolutions exactly one
// succeeds; the rest get an AlreadyResolvedError and change nothing.
func (s *Service) ApproveRequest(ctx context.Context, id int64, actor string) (*model.Request, error) {
	if actor == "" {
		return nil, model.Invalid("actor", "required")
	}

	var (
		req   *model.Request
		moved []model.Transaction
	)
	err := store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := store.TransitionRequest(ctx, tx, id, model.RequestApproved, actor, ""); err != nil {
			return err
		}
		var err error
		req, err = store.GetRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		moved, err = transferToShelter(ctx, tx, req, actor)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.countMovements(moved)
	s.metrics.RequestEvent("approved")
	return req, nil
}

// RejectRequest resolves a PENDING request as REJECTED and releases its
// reservations back to central stock. Nothing is written to the transaction
// log since no stock left the central warehouse.
func (s *Service) RejectRequest(ctx context.Context, id int64, actor, reason string) (*model.Request, error) {
	if actor == "" {
		return nil, model.Invalid("actor", "required")
	}
	if len(reason) > 500 {
		return nil, model.Invalid("reject_reason", "must be at most 500 characters")
	}

	var req *model.Request
	err := store.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if err := store.TransitionRequest(ctx, tx, id, model.RequestRejected, actor, reason); err != nil {
			return err
		}
		var err error
		req, err = store.GetRequest(ctx, tx, id)
		if err != nil {
			return err
		}
		for _, line := range req.Lines {
			if _, err := store.AdjustItem(ctx, tx, line.ItemID, line.Quantity); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RequestEvent("rejected")
	return req, nil
}

// ResolveRequest applies decision to a PENDING request.
func (s *Service) ResolveRequest(ctx context.Context, id int64, decision model.Decision, actor, reason string) (*model.Request, error) {
	switch decision {
	case model.DecisionApprove:
		return s.ApproveRequest(ctx, id, actor)
	case model.DecisionReject:
		return s.RejectRequest(ctx, id, actor, reason)
	default:
		return nil, model.Invalid("decision", "must be APPROVE or REJECT")
	}
}

// GetRequest returns a request by ID.
func (s *Service) GetRequest(ctx context.Context, id int64) (*model.Request, error) {
	req, err := store.GetRequest(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, model.NotFound("request", id)
	}
	return req, nil
}

// ListRequests returns requests newest first.
func (s *Service) ListRequests(ctx context.Context, filter store.RequestFilter) ([]model.Request, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, model.Invalid("status", "must be PENDING, APPROVED or REJECTED")
	}
	return store.ListRequests(ctx, s.db, filter)
}
