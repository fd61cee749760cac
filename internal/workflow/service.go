// Package workflow implements the stock operations of the relief ledger:
// direct receive and issue, shelter requests that reserve central stock,
// and the transfer that moves reserved stock into a shelter on approval.
package workflow

import (
	"database/sql"

	"github.com/shelterstock/relief/internal/idempotency"
	"github.com/shelterstock/relief/internal/model"
	"github.com/shelterstock/relief/internal/observability"
)

// Service coordinates ledger operations over one shared database.
type Service struct {
	db          *sql.DB
	idempotency *idempotency.Store
	metrics     *observability.Metrics
}

// NewService builds a Service. idem and metrics may be nil.
func NewService(db *sql.DB, idem *idempotency.Store, metrics *observability.Metrics) *Service {
	return &Service{db: db, idempotency: idem, metrics: metrics}
}

func (s *Service) countMovements(txns []model.Transaction) {
	for _, t := range txns {
		s.metrics.StockMoved(string(t.Direction), t.Quantity)
	}
}
