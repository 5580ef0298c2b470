// Package risk converts account state and instrument precision into a
// bounded order volume.
package risk

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/rustyeddy/wickbot/market"
)

// Balance fraction committed per trade. Instruments quoted with three
// decimal digits trade larger contracts, so they get the larger
// fraction.
const (
	fraction3Digit = 0.002
	fractionOther  = 0.0002
)

// SizingError reports input that could not be sized as requested. The
// accompanying volume is still safe to submit.
type SizingError struct {
	Reason string
}

func (e *SizingError) Error() string { return "sizing: " + e.Reason }

// Volume computes the trade volume for an instrument from the account
// balance and the execution price.
//
// The result is always within [MinLot, MaxLot], aligned to LotStep and
// rounded to two decimals; it is never NaN, zero or negative. When the
// inputs are unusable the instrument minimum is returned along with a
// SizingError so the caller can log what happened.
func Volume(meta market.InstrumentMeta, balance, price float64) (float64, error) {
	if meta.MinLot <= 0 {
		meta.MinLot = market.DefaultMeta.MinLot
	}
	if meta.MaxLot <= 0 {
		meta.MaxLot = market.DefaultMeta.MaxLot
	}

	if !isFinite(balance) || !isFinite(price) || balance <= 0 || price <= 0 {
		return meta.MinLot, &SizingError{
			Reason: fmt.Sprintf("unusable inputs balance=%v price=%v, forcing min lot", balance, price),
		}
	}

	frac := fractionOther
	if meta.Digits == 3 {
		frac = fraction3Digit
	}
	raw := balance / price * frac
	if !isFinite(raw) || raw <= 0 {
		return meta.MinLot, &SizingError{
			Reason: fmt.Sprintf("computed volume %v unusable, forcing min lot", raw),
		}
	}

	vol := snap(raw, meta.LotStep)

	switch {
	case vol < meta.MinLot:
		vol = meta.MinLot
	case vol > meta.MaxLot:
		vol = meta.MaxLot
	}
	return vol, nil
}

// snap aligns a volume to the instrument lot step and rounds it to two
// decimals. Float arithmetic alone drifts here (0.1+0.02 style), so
// the quantization runs on decimals.
func snap(volume, step float64) float64 {
	d := decimal.NewFromFloat(volume)
	if step > 0 {
		s := decimal.NewFromFloat(step)
		d = d.Div(s).Floor().Mul(s)
	}
	v, _ := d.Round(2).Float64()
	return v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
