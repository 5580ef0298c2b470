package broker

import (
	"errors"
	"fmt"
)

// RetCode is a broker return code. The numeric values mirror the MT5
// trade server codes operators already know; nothing outside this
// package depends on the numbers.
type RetCode int

const (
	RetDone           RetCode = 10009
	RetRequote        RetCode = 10004
	RetPriceOff       RetCode = 10021
	RetNoMoney        RetCode = 10019
	RetInvalidVolume  RetCode = 10014
	RetMarketClosed   RetCode = 10018
	RetLimitPositions RetCode = 10040
)

func (c RetCode) String() string {
	switch c {
	case RetDone:
		return "done"
	case RetRequote:
		return "requote"
	case RetPriceOff:
		return "price off"
	case RetNoMoney:
		return "no money"
	case RetInvalidVolume:
		return "invalid volume"
	case RetMarketClosed:
		return "market closed"
	case RetLimitPositions:
		return "position limit reached"
	default:
		return fmt.Sprintf("retcode %d", int(c))
	}
}

// TransportError wraps a failure to reach the broker: connection loss,
// timeout, malformed response. The operation may or may not have taken
// effect server-side; callers must query state before re-submitting.
type TransportError struct {
	Op     string
	Symbol string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("broker transport: %s %s: %v", e.Op, e.Symbol, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// RejectionError is a business rejection the broker returned with a
// structured code. It is terminal for this attempt; retry policy
// belongs to the caller's scheduler.
type RejectionError struct {
	Op      string
	Symbol  string
	RetCode RetCode
	Reason  string
}

func (e *RejectionError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = e.RetCode.String()
	}
	return fmt.Sprintf("broker rejected %s %s: %s", e.Op, e.Symbol, reason)
}

// IsRejection reports whether err carries a broker rejection, and
// returns it when so.
func IsRejection(err error) (*RejectionError, bool) {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej, true
	}
	return nil, false
}

// IsTransport reports whether err is a transport-level failure.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsMaxTrades reports whether err is the concurrent-trade-limit
// rejection.
func IsMaxTrades(err error) bool {
	rej, ok := IsRejection(err)
	return ok && rej.RetCode == RetLimitPositions
}
