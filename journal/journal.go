// Package journal persists executed trades. Records are append-only
// and written after the broker confirms the fill.
package journal

import (
	"time"

	"github.com/rustyeddy/wickbot/market"
)

// TradeRecord is one executed trade leg. Entry-only rows (a fresh
// position) have a zero ExitPrice and ClosedAt; close legs carry the
// realized PnL.
type TradeRecord struct {
	ID         string
	Ticket     string
	Symbol     string
	Side       market.Side
	Volume     float64
	EntryPrice float64
	ExitPrice  float64
	OpenedAt   time.Time
	ClosedAt   time.Time
	PnL        float64
	Comment    string
}

type Journal interface {
	RecordTrade(TradeRecord) error
	Close() error
}

// Nop discards every record; handy for tests and dry runs.
type Nop struct{}

func (Nop) RecordTrade(TradeRecord) error { return nil }
func (Nop) Close() error                  { return nil }
