package api

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shelterstock/relief/internal/model"
	"github.com/shelterstock/relief/internal/store"
	"github.com/shelterstock/relief/internal/workflow"
)

// SheltersHandler handles the shelter directory.
type SheltersHandler struct {
	DB *sql.DB
}

type createShelterRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	District    string `json:"district" validate:"required,max=100"`
	Subdistrict string `json:"subdistrict" validate:"max=100"`
	Type        string `json:"shelter_type" validate:"required,max=50"`
	Capacity    int    `json:"capacity" validate:"gte=0"`
}

func (c createShelterRequest) shelter() model.Shelter {
	return model.Shelter{
		Name:        c.Name,
		District:    c.District,
		Subdistrict: c.Subdistrict,
		Type:        c.Type,
		Capacity:    c.Capacity,
	}
}

type shelterBatch struct {
	Shelters []createShelterRequest `json:"shelters" validate:"min=1,max=500,dive"`
}

type updateShelterStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=active closed"`
}

// List handles GET /api/shelters.
func (h *SheltersHandler) List(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status != "" && status != model.ShelterStatusActive && status != model.ShelterStatusClosed {
		jsonError(w, http.StatusBadRequest, "invalid status")
		return
	}

	shelters, err := store.ListShelters(r.Context(), h.DB, status)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if shelters == nil {
		shelters = []model.Shelter{}
	}
	jsonResponse(w, http.StatusOK, shelters)
}

// Get handles GET /api/shelters/{id}.
func (h *SheltersHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "shelter")
	if !ok {
		return
	}

	shelter, err := store.GetShelter(r.Context(), h.DB, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if shelter == nil {
		jsonError(w, http.StatusNotFound, "shelter not found")
		return
	}
	jsonResponse(w, http.StatusOK, shelter)
}

// Create handles POST /api/shelters. The body is one shelter object, or an
// array (bare or as {"shelters": [...]}) registered in one transaction.
func (h *SheltersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var raw json.RawMessage
	if err := decodeJSON(w, r, &raw); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var batch shelterBatch
	if err := json.Unmarshal(raw, &batch.Shelters); err == nil {
		h.createBatch(w, r, batch)
		return
	}
	if err := json.Unmarshal(raw, &batch); err == nil && batch.Shelters != nil {
		h.createBatch(w, r, batch)
		return
	}

	var req createShelterRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := workflow.Validate(req); err != nil {
		respondError(w, r, err)
		return
	}

	shelter, err := store.CreateShelter(r.Context(), h.DB, req.shelter())
	if err != nil {
		respondError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("shelter created", "user", claims.Username, "shelter", shelter.Name, "id", shelter.ID)
	jsonResponse(w, http.StatusCreated, shelter)
}

func (h *SheltersHandler) createBatch(w http.ResponseWriter, r *http.Request, batch shelterBatch) {
	if err := workflow.Validate(batch); err != nil {
		respondError(w, r, err)
		return
	}

	created := make([]model.Shelter, 0, len(batch.Shelters))
	err := store.WithTx(r.Context(), h.DB, func(tx *sql.Tx) error {
		for _, req := range batch.Shelters {
			shelter, err := store.CreateShelter(r.Context(), tx, req.shelter())
			if err != nil {
				return err
			}
			created = append(created, *shelter)
		}
		return nil
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("shelters imported", "user", claims.Username, "count", len(created))
	jsonResponse(w, http.StatusCreated, created)
}

// UpdateStatus handles PUT /api/shelters/{id}/status.
func (h *SheltersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "shelter")
	if !ok {
		return
	}

	var req updateShelterStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := workflow.Validate(req); err != nil {
		respondError(w, r, err)
		return
	}

	if err := store.SetShelterStatus(r.Context(), h.DB, id, req.Status); err != nil {
		respondError(w, r, err)
		return
	}

	shelter, err := store.GetShelter(r.Context(), h.DB, id)
	if err != nil {
		respondError(w, r, err)
		return
	}

	claims := GetClaims(r.Context())
	slog.Info("shelter status changed", "user", claims.Username, "shelter", shelter.Name, "status", req.Status)
	jsonResponse(w, http.StatusOK, shelter)
}
