package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/wickbot/internal/id"
	"github.com/rustyeddy/wickbot/market"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	if t.ID == "" {
		t.ID = id.New()
	}
	var closedAt any
	if !t.ClosedAt.IsZero() {
		closedAt = t.ClosedAt
	}
	_, err := j.db.Exec(`
		INSERT INTO trades
		(id, ticket, symbol, side, volume, entry_price, exit_price, opened_at, closed_at, pnl, comment)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Ticket, t.Symbol, string(t.Side), t.Volume,
		t.EntryPrice, t.ExitPrice, t.OpenedAt, closedAt, t.PnL, t.Comment,
	)
	return err
}

// TradesBySymbol returns the recorded trades for one symbol ordered by
// open time.
func (j *SQLite) TradesBySymbol(symbol string) ([]TradeRecord, error) {
	rows, err := j.db.Query(`
		SELECT id, ticket, symbol, side, volume, entry_price, exit_price, opened_at, closed_at, pnl, comment
		FROM trades WHERE symbol = ? ORDER BY opened_at`, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var (
			t        TradeRecord
			side     string
			closedAt sql.NullTime
		)
		if err := rows.Scan(&t.ID, &t.Ticket, &t.Symbol, &side, &t.Volume,
			&t.EntryPrice, &t.ExitPrice, &t.OpenedAt, &closedAt, &t.PnL, &t.Comment); err != nil {
			return nil, err
		}
		t.Side = market.Side(side)
		if closedAt.Valid {
			t.ClosedAt = closedAt.Time
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
