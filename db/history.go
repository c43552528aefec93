package db

import (
	"context"
	"database/sql"
	"fmt"

	"Spotter/models"
)

const (
	opportunityColumns = 10
	// Postgres caps a statement at 65535 bind parameters.
	maxRowsPerInsert = 1000
)

const insertOpportunities = `
    INSERT INTO opportunities (snapshot_id, iteration, token, buy_exchange, buy_price, sell_exchange, sell_price, price_diff_pct, profit_per_1000_usd, scanned_at)
    VALUES `

// HistoryStore appends every snapshot's opportunities to the opportunities
// table.
type HistoryStore struct {
	db *sql.DB
}

// NewHistoryStore wraps an open database. The schema must already exist.
func NewHistoryStore(db *sql.DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Name implements scanner.Publisher.
func (s *HistoryStore) Name() string { return "postgres" }

// Ping checks the connection.
func (s *HistoryStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Publish inserts the snapshot's opportunities in one transaction. Snapshots
// without opportunities write nothing.
func (s *HistoryStore) Publish(ctx context.Context, snap *models.Snapshot) error {
	if len(snap.Opportunities) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("db: begin transaction: %w", err)
	}
	defer tx.Rollback()

	for start := 0; start < len(snap.Opportunities); start += maxRowsPerInsert {
		end := min(start+maxRowsPerInsert, len(snap.Opportunities))
		query, args := buildInsert(snap, snap.Opportunities[start:end])
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("db: insert opportunities: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("db: commit: %w", err)
	}
	return nil
}

func buildInsert(snap *models.Snapshot, opps []models.Opportunity) (string, []any) {
	query := insertOpportunities + generateNumberedPlaceholders(len(opps), opportunityColumns)

	args := make([]any, 0, len(opps)*opportunityColumns)
	for _, o := range opps {
		args = append(args, snap.ID, snap.Iteration, o.Token, o.BuyExchange, o.BuyPrice,
			o.SellExchange, o.SellPrice, o.PriceDiffPct, o.ProfitPer1000USD, snap.Timestamp)
	}
	return query, args
}
