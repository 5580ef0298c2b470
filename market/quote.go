package market

import "time"

// Quote is a live bid/ask snapshot for one symbol.
type Quote struct {
	Symbol string
	Bid    float64
	Ask    float64
	Time   time.Time
}

func (q Quote) Mid() float64 {
	return (q.Bid + q.Ask) / 2
}

func (q Quote) Spread() float64 {
	return q.Ask - q.Bid
}

// PriceFor returns the execution-relevant side of the quote: buyers pay
// the ask, sellers receive the bid.
func (q Quote) PriceFor(side Side) float64 {
	if side == Buy {
		return q.Ask
	}
	return q.Bid
}
