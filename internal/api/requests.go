package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shelterstock/relief/internal/model"
	"github.com/shelterstock/relief/internal/store"
	"github.com/shelterstock/relief/internal/workflow"
)

// RequestsHandler handles shelter requests for central stock.
type RequestsHandler struct {
	Service *workflow.Service
}

type createRequestBody struct {
	Lines []workflow.RequestLineInput `json:"lines"`
	Note  string                      `json:"note"`
}

type resolveRequestBody struct {
	Decision     model.Decision `json:"decision"`
	RejectReason string         `json:"reject_reason"`
}

// Create handles POST /api/requests. Only staff bound to a shelter can
// request; the shelter comes from the caller's token.
func (h *RequestsHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, warehouse, ok := callerWarehouse(w, r)
	if !ok {
		return
	}
	shelterID, isShelter := warehouse.ShelterID()
	if !isShelter {
		jsonError(w, http.StatusForbidden, "only shelter staff can request stock")
		return
	}

	var body createRequestBody
	if err := decodeJSON(w, r, &body); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	req, replayed, err := h.Service.CreateRequest(r.Context(), workflow.CreateRequestInput{
		ShelterID:      shelterID,
		Lines:          body.Lines,
		Note:           body.Note,
		RequestedBy:    claims.Username,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	if replayed {
		w.Header().Set("Idempotent-Replayed", "true")
		jsonResponse(w, http.StatusOK, req)
		return
	}

	slog.Info("request created", "user", claims.Username, "request", req.ID,
		"shelter", req.ShelterName, "lines", len(req.Lines))
	jsonResponse(w, http.StatusCreated, req)
}

// Resolve handles PUT /api/requests/{id}.
func (h *RequestsHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "request")
	if !ok {
		return
	}

	var body resolveRequestBody
	if err := decodeJSON(w, r, &body); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	claims := GetClaims(r.Context())
	req, err := h.Service.ResolveRequest(r.Context(), id, body.Decision, claims.Username, body.RejectReason)
	if err != nil {
		respondError(w, r, err)
		return
	}

	slog.Info("request resolved", "user", claims.Username, "request", req.ID,
		"shelter", req.ShelterName, "status", req.Status)
	jsonResponse(w, http.StatusOK, req)
}

// List handles GET /api/requests. Admins see every shelter and may filter
// with ?shelter_id=; staff only see their own shelter.
func (h *RequestsHandler) List(w http.ResponseWriter, r *http.Request) {
	_, warehouse, ok := callerWarehouse(w, r)
	if !ok {
		return
	}

	filter := store.RequestFilter{Status: model.RequestStatus(r.URL.Query().Get("status"))}
	if id, isShelter := warehouse.ShelterID(); isShelter {
		filter.ShelterID = id
	} else if v := r.URL.Query().Get("shelter_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			jsonError(w, http.StatusBadRequest, "invalid shelter_id")
			return
		}
		filter.ShelterID = id
	}

	reqs, err := h.Service.ListRequests(r.Context(), filter)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if reqs == nil {
		reqs = []model.Request{}
	}
	jsonResponse(w, http.StatusOK, reqs)
}

// Get handles GET /api/requests/{id}.
func (h *RequestsHandler) Get(w http.ResponseWriter, r *http.Request) {
	_, warehouse, ok := callerWarehouse(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "request")
	if !ok {
		return
	}

	req, err := h.Service.GetRequest(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if shelterID, isShelter := warehouse.ShelterID(); isShelter && req.ShelterID != shelterID {
		respondError(w, r, model.NotFound("request", id))
		return
	}
	jsonResponse(w, http.StatusOK, req)
}
