package store

import (
	"context"
	"errors"
	"testing"

	"github.com/shelterstock/relief/internal/db"
	"github.com/shelterstock/relief/internal/model"
)

func TestCreateAndGetUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	shelter := mustShelter(t, database, "Posko Balai Desa")

	user, err := CreateUser(ctx, database, "testuser", "hash123", model.RoleStaff, &shelter.ID)
	if err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if user.Role != model.RoleStaff {
		t.Errorf("expected role 'staff', got %q", user.Role)
	}
	if user.ShelterID == nil || *user.ShelterID != shelter.ID {
		t.Errorf("expected shelter %d, got %v", shelter.ID, user.ShelterID)
	}

	got, err := GetUser(ctx, database, user.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Username != "testuser" {
		t.Errorf("expected username 'testuser', got %q", got.Username)
	}
}

func TestCreateUser_AdminWithShelterRejected(t *testing.T) {
	database := db.NewTestDB(t)
	shelter := mustShelter(t, database, "Posko A")

	_, err := CreateUser(context.Background(), database, "boss", "hash", model.RoleAdmin, &shelter.ID)
	if !errors.Is(err, model.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateUser_UnknownShelter(t *testing.T) {
	database := db.NewTestDB(t)
	missing := int64(99)

	_, err := CreateUser(context.Background(), database, "lost", "hash", model.RoleStaff, &missing)
	if !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestGetUserByUsername(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	if _, err := CreateUser(ctx, database, "alice", "hash", model.RoleAdmin, nil); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	user, err := GetUserByUsername(ctx, database, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if user == nil || user.Username != "alice" {
		t.Fatalf("expected alice, got %+v", user)
	}

	missing, err := GetUserByUsername(ctx, database, "bob")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if missing != nil {
		t.Error("expected nil for missing user")
	}
}

func TestListUsersAndCountAdmins(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	CreateUser(ctx, database, "a", "hash", model.RoleStaff, nil)
	CreateUser(ctx, database, "b", "hash", model.RoleAdmin, nil)

	users, err := ListUsers(ctx, database)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 {
		t.Errorf("expected 2 users, got %d", len(users))
	}

	admins, err := CountAdmins(ctx, database)
	if err != nil {
		t.Fatalf("CountAdmins: %v", err)
	}
	if admins != 1 {
		t.Errorf("expected 1 admin, got %d", admins)
	}
}

func TestDeleteUser(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "deleteme", "hash", model.RoleStaff, nil)
	if err := DeleteUser(ctx, database, user.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	users, _ := ListUsers(ctx, database)
	if len(users) != 0 {
		t.Errorf("expected 0 users after delete, got %d", len(users))
	}

	if err := DeleteUser(ctx, database, user.ID); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("expected not found on second delete, got %v", err)
	}

	// The username is free again once the old account is gone.
	if _, err := CreateUser(ctx, database, "deleteme", "hash", model.RoleStaff, nil); err != nil {
		t.Errorf("recreating deleted username: %v", err)
	}
}

func TestUpdateUserPassword(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	user, _ := CreateUser(ctx, database, "pwuser", "oldhash", model.RoleStaff, nil)
	UpdateUserPassword(ctx, database, user.ID, "newhash")

	got, _ := GetUser(ctx, database, user.ID)
	if got.PasswordHash != "newhash" {
		t.Errorf("expected password hash 'newhash', got %q", got.PasswordHash)
	}
}
