package client

import (
	"context"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"omniex/pkg/core"
	"omniex/pkg/normalize"
)

// LoadMarkets returns the backend's markets, fetching them on first use.
// The loaded set stays cached for the client's lifetime; ReloadMarkets is
// the only invalidation.
func (c *Client) LoadMarkets(ctx context.Context) (map[string]*core.Market, error) {
	c.marketsMu.RLock()
	loaded := c.markets
	c.marketsMu.RUnlock()
	if loaded != nil {
		return loaded, nil
	}
	return c.ReloadMarkets(ctx)
}

// ReloadMarkets fetches the market set unconditionally and replaces the
// cached one.
func (c *Client) ReloadMarkets(ctx context.Context) (map[string]*core.Market, error) {
	markets, err := c.FetchMarkets(ctx)
	if err != nil {
		return nil, err
	}

	bySymbol := make(map[string]*core.Market, len(markets))
	byID := make(map[string]*core.Market, len(markets))
	for _, m := range markets {
		bySymbol[m.Symbol] = m
		byID[m.ID] = m
	}

	c.marketsMu.Lock()
	c.markets = bySymbol
	c.nctx = &normalize.Context{
		Backend:          c.def.ID,
		MarketsByID:      byID,
		MarketsBySymbol:  bySymbol,
		CommonCurrencies: c.def.CommonCurrencies,
		Currencies:       c.currencies,
		MakerFee:         c.def.Fees.Maker,
		TakerFee:         c.def.Fees.Taker,
	}
	c.marketsMu.Unlock()

	c.logger.Info().Int("markets", len(markets)).Msg("markets loaded")
	return bySymbol, nil
}

// FetchMarkets fetches and normalizes the backend's market list without
// touching the cached set.
func (c *Client) FetchMarkets(ctx context.Context) ([]*core.Market, error) {
	decoded, err := c.invoke(ctx, core.OpFetchMarkets, nil)
	if err != nil {
		return nil, err
	}
	nctx := c.normalizeContext()

	if key := c.def.Options.String("marketsKey", ""); key != "" {
		if m := asMap(decoded); m != nil {
			decoded = m[key]
		}
	}

	var markets []*core.Market
	switch coll := decoded.(type) {
	case map[string]any:
		for id, entry := range coll {
			raw := asMap(entry)
			if raw == nil {
				continue
			}
			m, perr := c.funcs.Market(nctx, id, raw)
			if perr != nil {
				c.logger.Warn().Err(perr).Str("id", id).Msg("skipping market entry")
				continue
			}
			markets = append(markets, m)
		}
	case []any:
		for _, entry := range coll {
			raw := asMap(entry)
			if raw == nil {
				continue
			}
			m, perr := c.funcs.Market(nctx, "", raw)
			if perr != nil {
				c.logger.Warn().Err(perr).Msg("skipping market entry")
				continue
			}
			markets = append(markets, m)
		}
	}
	return markets, nil
}

// Market resolves a unified symbol against the loaded market set, loading
// it first when necessary.
func (c *Client) Market(ctx context.Context, symbol string) (*core.Market, error) {
	markets, err := c.LoadMarkets(ctx)
	if err != nil {
		return nil, err
	}
	m, ok := markets[symbol]
	if !ok {
		return nil, core.NewPreconditionError(c.def.ID, "", "unknown symbol "+symbol)
	}
	return m, nil
}

func (c *Client) normalizeContext() *normalize.Context {
	c.marketsMu.RLock()
	defer c.marketsMu.RUnlock()
	return c.nctx
}

// FetchCurrencies fetches the backend's currency directory.
func (c *Client) FetchCurrencies(ctx context.Context) (map[string]*core.Currency, error) {
	decoded, err := c.invoke(ctx, core.OpFetchCurrencies, nil)
	if err != nil {
		return nil, err
	}
	nctx := c.normalizeContext()

	out := make(map[string]*core.Currency)
	add := func(id string, raw map[string]any) {
		cur, perr := c.funcs.Currency(nctx, id, raw)
		if perr != nil {
			c.logger.Warn().Err(perr).Msg("skipping currency entry")
			return
		}
		out[cur.Code] = cur
	}
	switch coll := decoded.(type) {
	case map[string]any:
		for id, entry := range coll {
			if raw := asMap(entry); raw != nil {
				add(id, raw)
			}
		}
	case []any:
		for _, entry := range coll {
			if raw := asMap(entry); raw != nil {
				add("", raw)
			}
		}
	}

	c.marketsMu.Lock()
	c.currencies = out
	updated := *c.nctx
	updated.Currencies = out
	c.nctx = &updated
	c.marketsMu.Unlock()
	return out, nil
}

// FetchTicker fetches the ticker for one symbol.
func (c *Client) FetchTicker(ctx context.Context, symbol string) (*core.Ticker, error) {
	m, err := c.Market(ctx, symbol)
	if err != nil {
		return nil, err
	}

	params := core.Params{c.pairParam(): m.ID}
	decoded, err := c.invoke(ctx, core.OpFetchTicker, params)
	if err != nil {
		return nil, err
	}

	raw := asMap(decoded)
	// Pair-keyed envelope: {"eth_btc": {...}}.
	if inner := asMap(raw[m.ID]); inner != nil {
		raw = inner
	}
	if list := asList(decoded); len(list) > 0 {
		raw = asMap(list[0])
	}
	if raw == nil {
		return nil, c.classifier.Classify(core.OpFetchTicker, 200, nil)
	}
	return c.funcs.Ticker(c.normalizeContext(), m.Symbol, raw)
}

// FetchTickers fetches tickers for the given symbols, or for every loaded
// market when none are named. The result is keyed by unified symbol.
func (c *Client) FetchTickers(ctx context.Context, symbols ...string) (map[string]*core.Ticker, error) {
	markets, err := c.LoadMarkets(ctx)
	if err != nil {
		return nil, err
	}

	var ids []string
	if len(symbols) == 0 {
		for _, m := range markets {
			ids = append(ids, m.ID)
		}
	} else {
		for _, s := range symbols {
			m, ok := markets[s]
			if !ok {
				return nil, c.precondition(core.OpFetchTickers, "unknown symbol %s", s)
			}
			ids = append(ids, m.ID)
		}
	}

	params := core.Params{}
	// Joined-pair backends take every id in the path; the rest list all
	// tickers and we filter locally.
	if joiner := c.def.Options.String("pairJoiner", ""); joiner != "" {
		params[c.pairParam()] = strings.Join(ids, joiner)
	}

	decoded, err := c.invoke(ctx, core.OpFetchTickers, params)
	if err != nil {
		return nil, err
	}
	nctx := c.normalizeContext()

	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	out := make(map[string]*core.Ticker)
	switch coll := decoded.(type) {
	case map[string]any:
		for id, entry := range coll {
			raw := asMap(entry)
			if raw == nil || !wanted[id] {
				continue
			}
			t, perr := c.funcs.Ticker(nctx, nctx.SymbolFor(id), raw)
			if perr != nil {
				continue
			}
			out[t.Symbol] = t
		}
	case []any:
		for _, entry := range coll {
			raw := asMap(entry)
			if raw == nil {
				continue
			}
			t, perr := c.funcs.Ticker(nctx, "", raw)
			if perr != nil {
				continue
			}
			if m := nctx.MarketBySymbol(t.Symbol); m != nil && !wanted[m.ID] {
				continue
			}
			out[t.Symbol] = t
		}
	}
	return out, nil
}

// FetchOrderBook fetches the order book snapshot for one symbol.
func (c *Client) FetchOrderBook(ctx context.Context, symbol string, params core.Params) (*core.OrderBook, error) {
	m, err := c.Market(ctx, symbol)
	if err != nil {
		return nil, err
	}

	call := params.Clone()
	call[c.pairParam()] = m.ID
	decoded, err := c.invoke(ctx, core.OpFetchOrderBook, call)
	if err != nil {
		return nil, err
	}

	raw := asMap(decoded)
	if inner := asMap(raw[m.ID]); inner != nil {
		raw = inner
	}
	if raw == nil {
		return nil, c.classifier.Classify(core.OpFetchOrderBook, 200, nil)
	}
	return c.funcs.OrderBook(c.normalizeContext(), m.Symbol, raw)
}

// FetchTrades fetches recent public trades for one symbol.
func (c *Client) FetchTrades(ctx context.Context, symbol string, params core.Params) ([]*core.Trade, error) {
	m, err := c.Market(ctx, symbol)
	if err != nil {
		return nil, err
	}

	call := params.Clone()
	call[c.pairParam()] = m.ID
	decoded, err := c.invoke(ctx, core.OpFetchTrades, call)
	if err != nil {
		return nil, err
	}

	rows := asList(decoded)
	if raw := asMap(decoded); raw != nil {
		rows = asList(raw[m.ID])
	}
	return c.parseTrades(rows, m.Symbol), nil
}

func (c *Client) parseTrades(rows []any, symbol string) []*core.Trade {
	nctx := c.normalizeContext()
	trades := make([]*core.Trade, 0, len(rows))
	for _, row := range rows {
		raw := asMap(row)
		if raw == nil {
			continue
		}
		t, err := c.funcs.Trade(nctx, symbol, raw)
		if err != nil {
			c.logger.Warn().Err(err).Msg("skipping trade entry")
			continue
		}
		trades = append(trades, t)
	}
	return trades
}

// CalculateFee computes the fee a hypothetical trade would incur, from the
// loaded market's rates.
func (c *Client) CalculateFee(ctx context.Context, symbol string, side core.OrderSide, amount, price *apd.Decimal, role core.TakerOrMaker) (*core.Fee, error) {
	m, err := c.Market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	return m.CalculateFee(side, amount, price, role), nil
}

func (c *Client) pairParam() string {
	return c.def.Options.String("pairParam", "symbol")
}
