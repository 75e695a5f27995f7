package signals

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
)

// DB is the subset of pgxpool.Pool the repository needs. The pool it is
// backed by points at the external signals database, not the auth database.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

var _ SignalRepo = (*PostgresSignalRepo)(nil)

type SignalRepo interface {
	ListTradeSignals(ctx context.Context) ([]TradeSignal, error)
}

// PostgresSignalRepo serves read-only trade-signal listings. The table is
// owned by the trading system; this service never writes to it.
type PostgresSignalRepo struct {
	logger *slog.Logger
	db     DB
}

func NewPostgresSignalRepo(db DB, logger *slog.Logger) *PostgresSignalRepo {
	return &PostgresSignalRepo{
		logger: logger,
		db:     db,
	}
}

func (r *PostgresSignalRepo) ListTradeSignals(ctx context.Context) ([]TradeSignal, error) {
	rows, err := r.db.Query(ctx,
		"SELECT id, symbol, ep, qty, created_at FROM admin_trade_signals ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("trade signal query failed: %w", err)
	}
	defer rows.Close()

	signals := make([]TradeSignal, 0)
	for rows.Next() {
		var s TradeSignal
		if err := rows.Scan(&s.ID, &s.Symbol, &s.EntryPrice, &s.Quantity, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("trade signal scan failed: %w", err)
		}
		signals = append(signals, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("trade signal rows failed: %w", err)
	}

	return signals, nil
}
