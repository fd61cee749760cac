package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shelterstock/relief/internal/model"
	"github.com/shelterstock/relief/internal/workflow"
)

// StockHandler serves the item ledger and the transaction log of the
// caller's warehouse.
type StockHandler struct {
	Service *workflow.Service
}

// List handles GET /api/items.
func (h *StockHandler) List(w http.ResponseWriter, r *http.Request) {
	_, warehouse, ok := callerWarehouse(w, r)
	if !ok {
		return
	}

	items, err := h.Service.ListItems(r.Context(), warehouse)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Receive handles POST /api/items/receive. The body is a single line or an
// array of lines; each line is applied independently. When no line could be
// received the response is 400 with the per-line errors.
func (h *StockHandler) Receive(w http.ResponseWriter, r *http.Request) {
	claims, warehouse, ok := callerWarehouse(w, r)
	if !ok {
		return
	}

	var lines []workflow.ReceiveLine
	if err := decodeLines(w, r, &lines); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.ReceiveStock(r.Context(), warehouse, lines, claims.Username)
	if err != nil {
		respondError(w, r, err)
		return
	}

	slog.Info("stock received", "user", claims.Username, "warehouse", warehouse,
		"processed", result.Processed, "failed", len(result.Errors))
	status := http.StatusCreated
	if result.Processed == 0 {
		status = http.StatusBadRequest
	}
	jsonResponse(w, status, result)
}

// Issue handles POST /api/items/issue. When no line could be issued the
// response is 400 with the per-line errors.
func (h *StockHandler) Issue(w http.ResponseWriter, r *http.Request) {
	claims, warehouse, ok := callerWarehouse(w, r)
	if !ok {
		return
	}

	var lines []workflow.IssueLine
	if err := decodeLines(w, r, &lines); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.Service.IssueStock(r.Context(), warehouse, lines, claims.Username)
	if err != nil {
		respondError(w, r, err)
		return
	}

	slog.Info("stock issued", "user", claims.Username, "warehouse", warehouse,
		"issued", result.Issued, "failed", len(result.Errors))
	status := http.StatusOK
	if result.Issued == 0 {
		status = http.StatusBadRequest
	}
	jsonResponse(w, status, result)
}

// Transactions handles GET /api/transactions.
func (h *StockHandler) Transactions(w http.ResponseWriter, r *http.Request) {
	_, warehouse, ok := callerWarehouse(w, r)
	if !ok {
		return
	}

	txns, err := h.Service.ListTransactions(r.Context(), warehouse)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if txns == nil {
		txns = []model.Transaction{}
	}
	jsonResponse(w, http.StatusOK, txns)
}

type itemHistory struct {
	Item         *model.Item         `json:"item"`
	Transactions []model.Transaction `json:"transactions"`
}

// History handles GET /api/items/{id}/history.
func (h *StockHandler) History(w http.ResponseWriter, r *http.Request) {
	_, warehouse, ok := callerWarehouse(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "item")
	if !ok {
		return
	}

	item, txns, err := h.Service.ItemHistory(r.Context(), warehouse, id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if txns == nil {
		txns = []model.Transaction{}
	}
	jsonResponse(w, http.StatusOK, itemHistory{Item: item, Transactions: txns})
}

// decodeLines accepts either a JSON array or a single object.
func decodeLines[T any](w http.ResponseWriter, r *http.Request, lines *[]T) error {
	var raw json.RawMessage
	if err := decodeJSON(w, r, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw, lines); err == nil {
		return nil
	}
	var one T
	if err := json.Unmarshal(raw, &one); err != nil {
		return err
	}
	*lines = []T{one}
	return nil
}
