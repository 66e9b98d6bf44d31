// Package normalize converts heterogeneous backend payloads into the unified
// domain model. Every domain type has a default parse function that handles
// the conventional field names; a backend definition supplies overrides
// through Funcs for anything the defaults cannot read. Identity fields are
// mandatory (a market without an id is an error), everything else degrades
// to nil rather than failing the whole payload.
package normalize

import (
	"fmt"
	"strings"

	"omniex/pkg/core"
)

// Funcs is the per-backend parse table. A nil entry means the default parse
// function for that domain type.
type Funcs struct {
	Market    func(ctx *Context, id string, raw map[string]any) (*core.Market, error)
	Currency  func(ctx *Context, id string, raw map[string]any) (*core.Currency, error)
	Ticker    func(ctx *Context, symbol string, raw map[string]any) (*core.Ticker, error)
	OrderBook func(ctx *Context, symbol string, raw map[string]any) (*core.OrderBook, error)
	Trade     func(ctx *Context, symbol string, raw map[string]any) (*core.Trade, error)
	Order     func(ctx *Context, symbol string, raw map[string]any) (*core.Order, error)
	Balances  func(ctx *Context, raw map[string]any) (core.Balances, error)
}

// WithDefaults returns a copy of f with every nil entry replaced by the
// default parser.
func (f Funcs) WithDefaults() Funcs {
	if f.Market == nil {
		f.Market = Market
	}
	if f.Currency == nil {
		f.Currency = Currency
	}
	if f.Ticker == nil {
		f.Ticker = Ticker
	}
	if f.OrderBook == nil {
		f.OrderBook = OrderBook
	}
	if f.Trade == nil {
		f.Trade = Trade
	}
	if f.Order == nil {
		f.Order = Order
	}
	if f.Balances == nil {
		f.Balances = Balances
	}
	return f
}

// Market is the default market parser. The id may come from the payload or,
// for backends that key their market map by pair name, from the caller.
func Market(ctx *Context, id string, raw map[string]any) (*core.Market, error) {
	id = SafeString2(raw, "id", "instrument_id", id)
	if id == "" {
		return nil, fmt.Errorf("market entry has no id")
	}

	baseID := SafeString2(raw, "base_currency", "baseId", "")
	quoteID := SafeString2(raw, "quote_currency", "quoteId", "")
	if baseID == "" || quoteID == "" {
		// Pair-style ids: "eth_btc", "ETH-BTC", "ETH/BTC".
		for _, sep := range []string{"_", "-", "/"} {
			if parts := strings.SplitN(id, sep, 2); len(parts) == 2 {
				baseID, quoteID = parts[0], parts[1]
				break
			}
		}
	}
	if baseID == "" || quoteID == "" {
		return nil, fmt.Errorf("market %q has no base/quote", id)
	}

	base := ctx.CurrencyCode(baseID)
	quote := ctx.CurrencyCode(quoteID)
	m := &core.Market{
		ID:      id,
		Symbol:  base + "/" + quote,
		Base:    base,
		Quote:   quote,
		BaseID:  baseID,
		QuoteID: quoteID,
		Active:  !SafeBool(raw, "hidden", false) && !SafeBool(raw, "disabled", false),
		Maker:   ctx.MakerFee,
		Taker:   ctx.TakerFee,
		Precision: core.Precision{
			Amount: int(SafeInt2(raw, "decimal_places", "size_increment_places", 8)),
			Price:  int(SafeInt2(raw, "decimal_places", "tick_size_places", 8)),
		},
		Limits: core.Limits{
			Amount: core.MinMax{
				Min: SafeDecimal2(raw, "min_amount", "min_size"),
				Max: SafeDecimal(raw, "max_amount"),
			},
			Price: core.MinMax{
				Min: SafeDecimal(raw, "min_price"),
				Max: SafeDecimal(raw, "max_price"),
			},
			Cost: core.MinMax{
				Min: SafeDecimal2(raw, "min_total", "min_notional"),
			},
		},
		Info: raw,
	}
	if fee := SafeDecimal(raw, "fee"); fee != nil {
		m.Maker, m.Taker = fee, fee
	}
	return m, nil
}

// Currency is the default currency parser.
func Currency(ctx *Context, id string, raw map[string]any) (*core.Currency, error) {
	id = SafeString2(raw, "id", "currency", id)
	if id == "" {
		return nil, fmt.Errorf("currency entry has no id")
	}
	return &core.Currency{
		ID:        id,
		Code:      ctx.CurrencyCode(id),
		Precision: int(SafeInt2(raw, "decimal_places", "precision", 8)),
		Active:    SafeBool(raw, "active", !SafeBool(raw, "disabled", false)),
		Fee:       SafeDecimal2(raw, "fee", "withdraw_fee"),
		Info:      raw,
	}, nil
}

// Ticker is the default ticker parser. The symbol is an identity field: it
// must be resolvable from the payload or supplied by the caller.
func Ticker(ctx *Context, symbol string, raw map[string]any) (*core.Ticker, error) {
	if id := SafeString2(raw, "symbol", "instrument_id", ""); id != "" {
		symbol = ctx.SymbolFor(id)
	}
	if symbol == "" {
		return nil, fmt.Errorf("ticker has no symbol")
	}
	return &core.Ticker{
		Symbol:      symbol,
		Timestamp:   SafeTimeMillis2(raw, "timestamp", "updated"),
		High:        SafeDecimal2(raw, "high", "high_24h"),
		Low:         SafeDecimal2(raw, "low", "low_24h"),
		Bid:         SafeDecimal2(raw, "bid", "best_bid"),
		Ask:         SafeDecimal2(raw, "ask", "best_ask"),
		Open:        SafeDecimal2(raw, "open", "open_24h"),
		Close:       SafeDecimal(raw, "close"),
		Last:        SafeDecimal2(raw, "last", "last_price"),
		BaseVolume:  SafeDecimal2(raw, "vol", "base_volume_24h"),
		QuoteVolume: SafeDecimal2(raw, "vol_cur", "quote_volume_24h"),
		Info:        raw,
	}, nil
}

// OrderBook is the default order-book parser for the common
// {"bids": [[price, amount], ...], "asks": [...]} shape.
func OrderBook(ctx *Context, symbol string, raw map[string]any) (*core.OrderBook, error) {
	if symbol == "" {
		return nil, fmt.Errorf("order book has no symbol")
	}
	return &core.OrderBook{
		Symbol:    symbol,
		Bids:      BookSide(SafeSlice(raw, "bids")),
		Asks:      BookSide(SafeSlice(raw, "asks")),
		Timestamp: SafeTimeMillis2(raw, "timestamp", "time"),
	}, nil
}

// BookSide converts a raw [[price, amount], ...] list into levels, skipping
// rows that do not parse.
func BookSide(rows []any) []core.BookLevel {
	levels := make([]core.BookLevel, 0, len(rows))
	for _, row := range rows {
		pair, ok := row.([]any)
		if !ok || len(pair) < 2 {
			continue
		}
		price := core.ParseDecimal(pair[0])
		amount := core.ParseDecimal(pair[1])
		if price == nil || amount == nil {
			continue
		}
		levels = append(levels, core.BookLevel{Price: price, Amount: amount})
	}
	return levels
}

// Trade is the default trade parser.
func Trade(ctx *Context, symbol string, raw map[string]any) (*core.Trade, error) {
	id := SafeString2(raw, "tid", "trade_id", SafeString(raw, "id", ""))
	if id == "" {
		return nil, fmt.Errorf("trade has no id")
	}
	if pair := SafeString2(raw, "pair", "instrument_id", ""); pair != "" {
		symbol = ctx.SymbolFor(pair)
	}

	t := &core.Trade{
		ID:        id,
		OrderID:   SafeString2(raw, "order_id", "order", ""),
		Timestamp: SafeTimeMillis2(raw, "timestamp", "time"),
		Symbol:    symbol,
		Side:      ParseSide(SafeString2(raw, "type", "side", "")),
		Price:     SafeDecimal(raw, "price"),
		Amount:    SafeDecimal2(raw, "amount", "size"),
		Cost:      SafeDecimal(raw, "cost"),
		Info:      raw,
	}
	switch SafeString2(raw, "taker_or_maker", "liquidity", "") {
	case "taker", "T":
		t.TakerOrMaker = core.RoleTaker
	case "maker", "M":
		t.TakerOrMaker = core.RoleMaker
	}
	if t.Cost == nil {
		t.Cost = core.DecMul(t.Price, t.Amount)
	}
	if rate := SafeDecimal2(raw, "fee", "fee_rate"); rate != nil && t.Fee == nil {
		t.Fee = &core.Fee{Currency: SafeString(raw, "fee_currency", ""), Cost: rate}
	}
	return t, nil
}

// Order is the default order parser. ID is the identity field; every numeric
// field degrades to nil and DeriveFills completes whatever it can.
func Order(ctx *Context, symbol string, raw map[string]any) (*core.Order, error) {
	id := SafeString2(raw, "id", "order_id", "")
	if id == "" {
		return nil, fmt.Errorf("order has no id")
	}
	if pair := SafeString2(raw, "pair", "instrument_id", ""); pair != "" {
		symbol = ctx.SymbolFor(pair)
	}

	o := &core.Order{
		ID:            id,
		ClientOrderID: SafeString2(raw, "client_oid", "clientOrderId", ""),
		Symbol:        symbol,
		Timestamp:     SafeTimeMillis2(raw, "timestamp_created", "timestamp"),
		Type:          ParseOrderType(SafeString2(raw, "order_type", "type", "limit")),
		Side:          ParseSide(SafeString2(raw, "type", "side", "")),
		Price:         SafeDecimal(raw, "rate"),
		Amount:        SafeDecimal2(raw, "amount", "size"),
		Remaining:     SafeDecimal(raw, "remaining"),
		Filled:        SafeDecimal2(raw, "filled_size", "filled"),
		Cost:          SafeDecimal(raw, "cost"),
		Status:        ParseOrderStatus(SafeString2(raw, "status", "state", "")),
		Info:          raw,
	}
	if o.Price == nil {
		o.Price = SafeDecimal(raw, "price")
	}
	// BTC-e lineage pairs start_amount (the original size) with amount (what
	// is left to fill); the reading flips only when that pairing key is there.
	if start := SafeDecimal(raw, "start_amount"); start != nil {
		o.Amount = start
		o.Remaining = SafeDecimal(raw, "amount")
	}
	o.DeriveFills()
	return o, nil
}

// Balances is the default balance parser for a {currency: amounts} map. Each
// entry may be an object with free/used/total style fields or a bare number
// (treated as the free amount).
func Balances(ctx *Context, raw map[string]any) (core.Balances, error) {
	out := make(core.Balances, len(raw))
	for id, v := range raw {
		code := ctx.CurrencyCode(id)
		var b core.Balance
		switch entry := v.(type) {
		case map[string]any:
			b.Free = SafeDecimal2(entry, "free", "available")
			b.Used = SafeDecimal2(entry, "used", "hold")
			if b.Used == nil {
				b.Used = SafeDecimal(entry, "frozen")
			}
			b.Total = SafeDecimal2(entry, "total", "balance")
		default:
			b.Free = core.ParseDecimal(v)
		}
		if b.Total == nil {
			b.Total = core.DecAdd(b.Free, b.Used)
		}
		if b.Free == nil && b.Used == nil && b.Total == nil {
			continue
		}
		out[code] = b
	}
	return out, nil
}

// ParseSide folds the side spellings backends use into OrderSide. Unknown
// values default to buy; callers should override when the payload encodes
// side elsewhere.
func ParseSide(s string) core.OrderSide {
	if strings.EqualFold(s, "sell") || strings.EqualFold(s, "ask") {
		return core.SideSell
	}
	return core.SideBuy
}

// ParseOrderType folds the type spellings backends use into OrderType.
func ParseOrderType(s string) core.OrderType {
	if strings.EqualFold(s, "market") {
		return core.TypeMarket
	}
	return core.TypeLimit
}

// ParseOrderStatus folds backend lifecycle states into the unified three.
// Unknown states count as open: an order is only moved out of open on
// definitive evidence.
func ParseOrderStatus(s string) core.OrderStatus {
	switch strings.ToLower(s) {
	case "closed", "filled", "done", "2":
		return core.StatusClosed
	case "canceled", "cancelled", "cancel", "-1":
		return core.StatusCanceled
	default:
		return core.StatusOpen
	}
}
