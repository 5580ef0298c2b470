package market

// InstrumentMeta describes the broker-facing contract terms for one
// symbol: quote precision, the point (tick) size used for wick
// measurement, and the lot bounds every order volume must respect.
type InstrumentMeta struct {
	Symbol string
	Digits int     // quote decimal digits
	Point  float64 // smallest price increment
	MinLot float64
	MaxLot float64
	LotStep float64
}

// Instruments is the built-in metadata table. Entries mirror common
// MT5 contract specs; unknown symbols fall back to DefaultMeta.
var Instruments = map[string]InstrumentMeta{
	"EURUSD": {Symbol: "EURUSD", Digits: 5, Point: 0.00001, MinLot: 0.01, MaxLot: 100, LotStep: 0.01},
	"GBPUSD": {Symbol: "GBPUSD", Digits: 5, Point: 0.00001, MinLot: 0.01, MaxLot: 100, LotStep: 0.01},
	"USDJPY": {Symbol: "USDJPY", Digits: 3, Point: 0.001, MinLot: 0.01, MaxLot: 100, LotStep: 0.01},
	"USDCHF": {Symbol: "USDCHF", Digits: 5, Point: 0.00001, MinLot: 0.01, MaxLot: 100, LotStep: 0.01},
	"USDCAD": {Symbol: "USDCAD", Digits: 5, Point: 0.00001, MinLot: 0.01, MaxLot: 100, LotStep: 0.01},
	"AUDUSD": {Symbol: "AUDUSD", Digits: 5, Point: 0.00001, MinLot: 0.01, MaxLot: 100, LotStep: 0.01},
	"NZDUSD": {Symbol: "NZDUSD", Digits: 5, Point: 0.00001, MinLot: 0.01, MaxLot: 100, LotStep: 0.01},
	"BTCUSD": {Symbol: "BTCUSD", Digits: 2, Point: 0.01, MinLot: 0.01, MaxLot: 50, LotStep: 0.01},
	"ETHUSD": {Symbol: "ETHUSD", Digits: 2, Point: 0.01, MinLot: 0.01, MaxLot: 100, LotStep: 0.01},
	"US500Cash": {Symbol: "US500Cash", Digits: 2, Point: 0.01, MinLot: 0.1, MaxLot: 200, LotStep: 0.1},
	"US30Cash":  {Symbol: "US30Cash", Digits: 2, Point: 0.01, MinLot: 0.1, MaxLot: 200, LotStep: 0.1},
	"US100Cash": {Symbol: "US100Cash", Digits: 2, Point: 0.01, MinLot: 0.1, MaxLot: 200, LotStep: 0.1},
	"JP225Cash": {Symbol: "JP225Cash", Digits: 2, Point: 0.01, MinLot: 0.1, MaxLot: 200, LotStep: 0.1},
	"OILCash":   {Symbol: "OILCash", Digits: 3, Point: 0.001, MinLot: 0.1, MaxLot: 200, LotStep: 0.1},
}

// DefaultMeta is used when a symbol has no Instruments entry so sizing
// and wick math never divide by zero.
var DefaultMeta = InstrumentMeta{Digits: 5, Point: 0.00001, MinLot: 0.01, MaxLot: 100, LotStep: 0.01}

// Lookup returns the metadata for symbol, falling back to DefaultMeta.
func Lookup(symbol string) InstrumentMeta {
	if meta, ok := Instruments[symbol]; ok {
		return meta
	}
	meta := DefaultMeta
	meta.Symbol = symbol
	return meta
}

// aliases maps vendor chart symbols to broker contract symbols.
var aliases = map[string]string{
	"US500": "US500Cash",
	"US30":  "US30Cash",
	"US100": "US100Cash",
	"JP225": "JP225Cash",
	"USOIL": "OILCash",
}

// ResolveSymbol maps a vendor alias to the broker symbol, returning the
// input unchanged when no alias exists.
func ResolveSymbol(symbol string) string {
	if mapped, ok := aliases[symbol]; ok {
		return mapped
	}
	return symbol
}
