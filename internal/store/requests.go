package store

import (
	"context"
	"database/sql"

	"github.com/shelterstock/relief/internal/model"
)

// RequestFilter narrows ListRequests. Zero values mean "any".
type RequestFilter struct {
	ShelterID int64
	Status    model.RequestStatus
}

const requestColumns = `r.id, r.shelter_id, r.status, r.requested_by, r.action_by, r.note, r.reject_reason,
	r.created_at, r.resolved_at, s.name AS shelter_name`

// InsertRequest persists a PENDING request with its lines. Reservation of
// central stock is the caller's job and must happen in the same transaction.
func InsertRequest(ctx context.Context, db DBTX, shelterID int64, lines []model.RequestLine, requestedBy, note string) (*model.Request, error) {
	if len(lines) == 0 {
		return nil, model.Invalid("lines", "at least one line required")
	}

	var id int64
	err := db.QueryRowContext(ctx,
		`INSERT INTO requests (shelter_id, status, requested_by, note, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING id`,
		shelterID, string(model.RequestPending), requestedBy, nullString(note), now(),
	).Scan(&id)
	if err != nil {
		return nil, unavailable("inserting request", err)
	}

	for i, line := range lines {
		_, err := db.ExecContext(ctx,
			`INSERT INTO request_lines (request_id, line_no, item_id, item_name, quantity)
			 VALUES (?, ?, ?, ?, ?)`,
			id, i+1, line.ItemID, line.ItemName, line.Quantity,
		)
		if err != nil {
			return nil, unavailable("inserting request line", err)
		}
	}

	return GetRequest(ctx, db, id)
}

// GetRequest returns a request with its lines, or nil if it does not exist.
func GetRequest(ctx context.Context, db DBTX, id int64) (*model.Request, error) {
	req, err := scanRequest(db.QueryRowContext(ctx,
		`SELECT `+requestColumns+`
		 FROM requests r
		 JOIN shelters s ON s.id = r.shelter_id
		 WHERE r.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("getting request", err)
	}

	lines, err := listRequestLines(ctx, db, id)
	if err != nil {
		return nil, err
	}
	req.Lines = lines
	return req, nil
}

// ListRequests returns requests newest first, each with its lines.
func ListRequests(ctx context.Context, db DBTX, filter RequestFilter) ([]model.Request, error) {
	query := `SELECT ` + requestColumns + `
	          FROM requests r
	          JOIN shelters s ON s.id = r.shelter_id
	          WHERE 1=1`
	var args []any

	if filter.ShelterID > 0 {
		query += ` AND r.shelter_id = ?`
		args = append(args, filter.ShelterID)
	}
	if filter.Status != "" {
		query += ` AND r.status = ?`
		args = append(args, string(filter.Status))
	}

	query += ` ORDER BY r.created_at DESC, r.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("listing requests", err)
	}

	var requests []model.Request
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			rows.Close()
			return nil, unavailable("scanning request", err)
		}
		requests = append(requests, *req)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, unavailable("listing requests", err)
	}

	for i := range requests {
		lines, err := listRequestLines(ctx, db, requests[i].ID)
		if err != nil {
			return nil, err
		}
		requests[i].Lines = lines
	}
	return requests, nil
}

// TransitionRequest moves a PENDING request to a terminal status with a
// single compare-and-set on the status column. Exactly one of several
// concurrent callers wins; the others get AlreadyResolvedError.
func TransitionRequest(ctx context.Context, db DBTX, id int64, to model.RequestStatus, actor, rejectReason string) error {
	if !to.Terminal() {
		return model.Invalid("status", "must be APPROVED or REJECTED")
	}
	if to != model.RequestRejected {
		rejectReason = ""
	}

	result, err := db.ExecContext(ctx,
		`UPDATE requests SET status = ?, action_by = ?, reject_reason = ?, resolved_at = ?
		 WHERE id = ? AND status = ?`,
		string(to), actor, nullString(rejectReason), now(), id, string(model.RequestPending),
	)
	if err != nil {
		return unavailable("transitioning request", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return unavailable("transitioning request", err)
	}
	if n == 1 {
		return nil
	}

	var status string
	err = db.QueryRowContext(ctx, `SELECT status FROM requests WHERE id = ?`, id).Scan(&status)
	if err == sql.ErrNoRows {
		return model.NotFound("request", id)
	}
	if err != nil {
		return unavailable("checking request status", err)
	}
	return &model.AlreadyResolvedError{RequestID: id, Status: model.RequestStatus(status)}
}

func listRequestLines(ctx context.Context, db DBTX, requestID int64) ([]model.RequestLine, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT item_id, item_name, quantity FROM request_lines
		 WHERE request_id = ? ORDER BY line_no`, requestID,
	)
	if err != nil {
		return nil, unavailable("listing request lines", err)
	}
	defer rows.Close()

	var lines []model.RequestLine
	for rows.Next() {
		var l model.RequestLine
		if err := rows.Scan(&l.ItemID, &l.ItemName, &l.Quantity); err != nil {
			return nil, unavailable("scanning request line", err)
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("listing request lines", err)
	}
	return lines, nil
}

func scanRequest(row rowScanner) (*model.Request, error) {
	r := &model.Request{}
	var status string
	var actionBy, note, reason sql.NullString
	if err := row.Scan(&r.ID, &r.ShelterID, &status, &r.RequestedBy, &actionBy, &note, &reason,
		&r.CreatedAt, &r.ResolvedAt, &r.ShelterName); err != nil {
		return nil, err
	}
	r.Status = model.RequestStatus(status)
	r.ActionBy = actionBy.String
	r.Note = note.String
	r.RejectReason = reason.String
	return r, nil
}
