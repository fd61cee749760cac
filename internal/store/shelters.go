package store

import (
	"context"
	"database/sql"

	"github.com/shelterstock/relief/internal/model"
)

const shelterColumns = `id, name, district, subdistrict, shelter_type, capacity, status, created_at`

func scanShelter(row rowScanner) (*model.Shelter, error) {
	s := &model.Shelter{}
	var subdistrict sql.NullString
	if err := row.Scan(&s.ID, &s.Name, &s.District, &subdistrict, &s.Type, &s.Capacity, &s.Status, &s.CreatedAt); err != nil {
		return nil, err
	}
	s.Subdistrict = subdistrict.String
	return s, nil
}

// CreateShelter registers a new shelter. Its warehouse exists implicitly and
// holds no items until the first receipt or transfer.
func CreateShelter(ctx context.Context, db DBTX, s model.Shelter) (*model.Shelter, error) {
	if s.Status == "" {
		s.Status = model.ShelterStatusActive
	}

	var id int64
	err := db.QueryRowContext(ctx,
		`INSERT INTO shelters (name, district, subdistrict, shelter_type, capacity, status, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 RETURNING id`,
		s.Name, s.District, nullString(s.Subdistrict), s.Type, s.Capacity, s.Status, now(),
	).Scan(&id)
	if err != nil {
		return nil, unavailable("creating shelter", err)
	}

	return GetShelter(ctx, db, id)
}

// GetShelter returns a shelter by ID, or nil if it does not exist.
func GetShelter(ctx context.Context, db DBTX, id int64) (*model.Shelter, error) {
	s, err := scanShelter(db.QueryRowContext(ctx,
		`SELECT `+shelterColumns+` FROM shelters WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("getting shelter", err)
	}
	return s, nil
}

// ShelterExists reports whether a shelter with the given ID is registered.
func ShelterExists(ctx context.Context, db DBTX, id int64) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM shelters WHERE id = ?)`, id,
	).Scan(&exists)
	if err != nil {
		return false, unavailable("checking shelter", err)
	}
	return exists, nil
}

// ListShelters returns shelters ordered by name, optionally filtered by status.
func ListShelters(ctx context.Context, db DBTX, status string) ([]model.Shelter, error) {
	query := `SELECT ` + shelterColumns + ` FROM shelters`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY name, id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("listing shelters", err)
	}
	defer rows.Close()

	var shelters []model.Shelter
	for rows.Next() {
		s, err := scanShelter(rows)
		if err != nil {
			return nil, unavailable("scanning shelter", err)
		}
		shelters = append(shelters, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("listing shelters", err)
	}
	return shelters, nil
}

// SetShelterStatus opens or closes a shelter. Closed shelters keep their
// stock and history.
func SetShelterStatus(ctx context.Context, db DBTX, id int64, status string) error {
	result, err := db.ExecContext(ctx,
		`UPDATE shelters SET status = ? WHERE id = ?`, status, id,
	)
	if err != nil {
		return unavailable("updating shelter status", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return unavailable("updating shelter status", err)
	}
	if n == 0 {
		return model.NotFound("shelter", id)
	}
	return nil
}
