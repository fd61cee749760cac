package model

import "time"

// RequestStatus is the state of a shelter request.
type RequestStatus string

// Request statuses. PENDING is the only non-terminal state.
const (
	RequestPending  RequestStatus = "PENDING"
	RequestApproved RequestStatus = "APPROVED"
	RequestRejected RequestStatus = "REJECTED"
)

// Terminal reports whether s is APPROVED or REJECTED.
func (s RequestStatus) Terminal() bool {
	return s == RequestApproved || s == RequestRejected
}

// Valid reports whether s is a known status.
func (s RequestStatus) Valid() bool {
	return s == RequestPending || s.Terminal()
}

// Decision resolves a pending request.
type Decision string

// Decisions.
const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// RequestLine is one requested central item.
type RequestLine struct {
	ItemID   int64  `json:"item_id"`
	ItemName string `json:"item_name"`
	Quantity int    `json:"quantity"`
}

// Request is a shelter's request for central stock.
type Request struct {
	ID           int64         `json:"id"`
	ShelterID    int64         `json:"shelter_id"`
	Lines        []RequestLine `json:"lines"`
	Status       RequestStatus `json:"status"`
	RequestedBy  string        `json:"requested_by"`
	ActionBy     string        `json:"action_by,omitempty"`
	Note         string        `json:"note,omitempty"`
	RejectReason string        `json:"reject_reason,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	ResolvedAt   *time.Time    `json:"resolved_at,omitempty"`

	// Joined fields (not always populated).
	ShelterName string `json:"shelter_name,omitempty"`
}

// Warehouse returns the requesting shelter's warehouse.
func (r *Request) Warehouse() WarehouseRef {
	return ShelterWarehouse(r.ShelterID)
}
