package webhook

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/rustyeddy/wickbot/market"
)

// TradeRequest is the payload posted by charting platforms. Numeric
// fields frequently arrive as strings with comma decimal separators;
// parsing normalizes those before conversion.
type TradeRequest struct {
	Symbol     string
	Side       market.Side
	EntryPrice float64
	StopLoss   float64
	TakeProfit float64
	Volume     float64
}

var thousandsComma = regexp.MustCompile(`(\d),(\d)`)

// ParseTradeRequest extracts a trade request from a JSON or loose-text
// body. Vendor symbol aliases are resolved to broker symbols.
func ParseTradeRequest(body []byte) (*TradeRequest, error) {
	doc := string(body)
	if !gjson.Valid(doc) {
		// Some alert senders inline numbers with thousands separators,
		// which breaks the JSON structure. Collapse digit,digit pairs
		// and retry.
		doc = thousandsComma.ReplaceAllString(doc, "${1}${2}")
		if !gjson.Valid(doc) {
			return nil, fmt.Errorf("parse trade request: body is not valid JSON")
		}
	}

	symbol := strings.TrimSpace(gjson.Get(doc, "symbol").String())
	if symbol == "" {
		return nil, fmt.Errorf("parse trade request: missing symbol")
	}

	side := market.Side(strings.ToLower(strings.TrimSpace(gjson.Get(doc, "trade_type").String())))
	if !side.Valid() {
		return nil, fmt.Errorf("parse trade request: trade_type must be buy or sell, got %q", side)
	}

	req := &TradeRequest{
		Symbol: market.ResolveSymbol(symbol),
		Side:   side,
	}

	var err error
	if req.EntryPrice, err = numField(doc, "entry_price"); err != nil {
		return nil, err
	}
	if req.StopLoss, err = numField(doc, "stop_loss"); err != nil {
		return nil, err
	}
	if req.TakeProfit, err = numField(doc, "take_profit"); err != nil {
		return nil, err
	}
	if req.Volume, err = numField(doc, "volume"); err != nil {
		return nil, err
	}
	return req, nil
}

// numField reads a numeric field that may be a JSON number or a string
// with a comma decimal separator. Absent fields are zero.
func numField(doc, key string) (float64, error) {
	v := gjson.Get(doc, key)
	switch v.Type {
	case gjson.Null:
		return 0, nil
	case gjson.Number:
		return v.Float(), nil
	case gjson.String:
		s := strings.ReplaceAll(strings.TrimSpace(v.String()), ",", ".")
		if s == "" {
			return 0, nil
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("parse trade request: field %s: %w", key, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("parse trade request: field %s has unsupported type %s", key, v.Type)
	}
}
