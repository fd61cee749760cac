package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/shelterstock/relief/internal/model"
)

const userColumns = `id, username, password_hash, role, shelter_id, created_at, deleted_at`

func scanUser(row rowScanner) (*model.User, error) {
	u := &model.User{}
	var shelterID sql.NullInt64
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &shelterID, &u.CreatedAt, &u.DeletedAt); err != nil {
		return nil, err
	}
	if shelterID.Valid {
		id := shelterID.Int64
		u.ShelterID = &id
	}
	return u, nil
}

// CreateUser creates a new user. shelterID binds staff to their shelter and
// must be nil for admins.
func CreateUser(ctx context.Context, db DBTX, username, passwordHash, role string, shelterID *int64) (*model.User, error) {
	if !model.ValidRole(role) {
		return nil, model.Invalid("role", "must be admin or staff")
	}
	if role == model.RoleAdmin && shelterID != nil {
		return nil, model.Invalid("shelter_id", "admins are not bound to a shelter")
	}
	if shelterID != nil {
		exists, err := ShelterExists(ctx, db, *shelterID)
		if err != nil {
			return nil, err
		}
		if !exists {
			return nil, model.NotFound("shelter", *shelterID)
		}
	}

	var id int64
	err := db.QueryRowContext(ctx,
		`INSERT INTO users (username, password_hash, role, shelter_id, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 RETURNING id`,
		username, passwordHash, role, shelterID, now(),
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID.
func GetUser(ctx context.Context, db DBTX, id int64) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("getting user", err)
	}
	return u, nil
}

// GetUserByUsername returns the active user with the given username.
func GetUserByUsername(ctx context.Context, db DBTX, username string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? AND deleted_at IS NULL`, username,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("getting user by username", err)
	}
	return u, nil
}

// ListUsers returns all non-deleted users.
func ListUsers(ctx context.Context, db DBTX) ([]model.User, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL ORDER BY id`,
	)
	if err != nil {
		return nil, unavailable("listing users", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, unavailable("scanning user", err)
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("listing users", err)
	}
	return users, nil
}

// CountAdmins returns the number of active admin accounts.
func CountAdmins(ctx context.Context, db DBTX) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = ? AND deleted_at IS NULL`, model.RoleAdmin,
	).Scan(&n)
	if err != nil {
		return 0, unavailable("counting admins", err)
	}
	return n, nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, db DBTX, id int64, passwordHash string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id,
	)
	if err != nil {
		return unavailable("updating user password", err)
	}
	return nil
}

// DeleteUser soft-deletes a user.
func DeleteUser(ctx context.Context, db DBTX, id int64) error {
	result, err := db.ExecContext(ctx,
		`UPDATE users SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`,
		now(), id,
	)
	if err != nil {
		return unavailable("deleting user", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return unavailable("deleting user", err)
	}
	if n == 0 {
		return model.NotFound("user", id)
	}
	return nil
}
