package model

import "testing"

func TestRoleAtLeast(t *testing.T) {
	tests := []struct {
		role     string
		minimum  string
		expected bool
	}{
		{RoleAdmin, RoleAdmin, true},
		{RoleAdmin, RoleStaff, true},
		{RoleStaff, RoleAdmin, false},
		{RoleStaff, RoleStaff, true},
		// Unknown roles fail-closed.
		{"unknown", RoleStaff, false},
		{RoleAdmin, "unknown", false},
		{"", "", false},
		{"", RoleStaff, false},
	}

	for _, tt := range tests {
		got := RoleAtLeast(tt.role, tt.minimum)
		if got != tt.expected {
			t.Errorf("RoleAtLeast(%q, %q) = %v, want %v", tt.role, tt.minimum, got, tt.expected)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		wantErr  bool
	}{
		{"", true},
		{"short", true},
		{"1234567", true},
		{"12345678", false},
		{"a-valid-password", false},
	}

	for _, tt := range tests {
		err := ValidatePassword(tt.password)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidatePassword(%q) error = %v, wantErr %v", tt.password, err, tt.wantErr)
		}
	}
}

func TestHomeWarehouse(t *testing.T) {
	seven := int64(7)

	w, err := HomeWarehouse(RoleAdmin, nil)
	if err != nil || !w.IsCentral() {
		t.Errorf("admin: got %v, %v; want central", w, err)
	}

	w, err = HomeWarehouse(RoleStaff, &seven)
	if err != nil || w != ShelterWarehouse(7) {
		t.Errorf("staff: got %v, %v; want shelter:7", w, err)
	}

	if _, err := HomeWarehouse(RoleStaff, nil); err != ErrNoHomeShelter {
		t.Errorf("unbound staff: got %v, want ErrNoHomeShelter", err)
	}
}
