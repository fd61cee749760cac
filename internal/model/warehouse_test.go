package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWarehouseRefZeroValueIsCentral(t *testing.T) {
	var w WarehouseRef
	assert.True(t, w.IsCentral())
	assert.Equal(t, Central(), w)

	_, ok := w.ShelterID()
	assert.False(t, ok)
}

func TestWarehouseRefKeyRoundTrip(t *testing.T) {
	for _, w := range []WarehouseRef{Central(), ShelterWarehouse(1), ShelterWarehouse(42)} {
		got, err := ParseWarehouseRef(w.Key())
		require.NoError(t, err)
		assert.Equal(t, w, got)
	}
}

func TestParseWarehouseRefRejectsGarbage(t *testing.T) {
	for _, s := range []string{"", "Central", "shelter:", "shelter:0", "shelter:-3", "shelter:x", "depot:1"} {
		_, err := ParseWarehouseRef(s)
		assert.Error(t, err, s)
	}
}

func TestWarehouseRefJSON(t *testing.T) {
	data, err := json.Marshal(ShelterWarehouse(5))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"shelter","shelter_id":5}`, string(data))

	data, err = json.Marshal(Central())
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"central"}`, string(data))

	var w WarehouseRef
	require.NoError(t, json.Unmarshal([]byte(`{"kind":"shelter","shelter_id":9}`), &w))
	assert.Equal(t, ShelterWarehouse(9), w)

	assert.Error(t, json.Unmarshal([]byte(`{"kind":"shelter"}`), &w))
	assert.Error(t, json.Unmarshal([]byte(`{"kind":"moon"}`), &w))
}

func TestTypedErrorsMatchSentinels(t *testing.T) {
	var err error = &InsufficientStockError{ItemName: "rice", Available: 3, Requested: 5}
	assert.True(t, errors.Is(err, ErrInsufficientStock))
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.Contains(t, err.Error(), "available 3")

	wrapped := errors.Join(errors.New("context"), &AlreadyResolvedError{RequestID: 4, Status: RequestApproved})
	assert.True(t, errors.Is(wrapped, ErrAlreadyResolved))

	var ar *AlreadyResolvedError
	require.True(t, errors.As(wrapped, &ar))
	assert.Equal(t, RequestApproved, ar.Status)

	assert.True(t, errors.Is(NotFound("item", 3), ErrNotFound))
	assert.True(t, errors.Is(Invalid("quantity", "must be positive"), ErrValidation))
}
