package market

// Side is the direction of a signal, order or position. It is a closed
// enum independent of any broker's numeric encoding; adapters translate
// at the broker boundary.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

func (s Side) Valid() bool {
	return s == Buy || s == Sell
}

// Opposite returns the reversing side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

func (s Side) String() string { return string(s) }
