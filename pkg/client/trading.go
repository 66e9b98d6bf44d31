package client

import (
	"context"
	"sort"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/google/uuid"

	"omniex/pkg/core"
	"omniex/pkg/normalize"
)

// FetchBalance fetches the account's funds across all currencies.
func (c *Client) FetchBalance(ctx context.Context) (core.Balances, error) {
	if _, err := c.LoadMarkets(ctx); err != nil {
		return nil, err
	}
	decoded, err := c.invoke(ctx, core.OpFetchBalance, nil)
	if err != nil {
		return nil, err
	}

	raw := asMap(decoded)
	// Row-per-currency backends return an array; fold it into the map
	// shape the parser expects.
	if rows := asList(decoded); rows != nil {
		raw = make(map[string]any, len(rows))
		for _, row := range rows {
			entry := asMap(row)
			if entry == nil {
				continue
			}
			if id := normalize.SafeString2(entry, "currency", "ccy", ""); id != "" {
				raw[id] = entry
			}
		}
	}
	if raw == nil {
		return nil, c.classifier.Classify(core.OpFetchBalance, 200, nil)
	}
	return c.funcs.Balances(c.normalizeContext(), raw)
}

// CreateOrder places an order and records it in the order cache. The
// returned order carries a client-generated ClientOrderID when the backend
// accepts one; price may be nil for market orders.
func (c *Client) CreateOrder(ctx context.Context, symbol string, typ core.OrderType, side core.OrderSide, amount, price *apd.Decimal, params core.Params) (*core.Order, error) {
	m, err := c.Market(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if amount == nil {
		return nil, c.precondition(core.OpCreateOrder, "amount is required")
	}
	if typ == core.TypeLimit && price == nil {
		return nil, c.precondition(core.OpCreateOrder, "limit orders require a price")
	}
	if typ == core.TypeMarket && !c.def.Options.Bool("createMarketOrder", false) {
		return nil, c.precondition(core.OpCreateOrder, "market orders are not supported")
	}

	call := core.Params{}
	if c.profile.BuildOrder != nil {
		call = c.profile.BuildOrder(m, typ, side, amount, price)
	}
	for k, v := range params {
		call[k] = v
	}

	clientOrderID := ""
	if field := c.def.Options.String("clientOrderIDParam", ""); field != "" {
		if v, ok := call[field]; ok {
			clientOrderID, _ = v.(string)
		} else {
			clientOrderID = newClientOrderID()
			call[field] = clientOrderID
		}
	}

	decoded, err := c.invoke(ctx, core.OpCreateOrder, call)
	if err != nil {
		return nil, err
	}

	order := &core.Order{
		ClientOrderID: clientOrderID,
		Symbol:        m.Symbol,
		Timestamp:     time.Now().UTC(),
		Type:          typ,
		Side:          side,
		Price:         price,
		Amount:        amount,
		Status:        core.StatusOpen,
	}
	if raw := asMap(decoded); raw != nil {
		parsed, perr := c.funcs.Order(c.normalizeContext(), m.Symbol, raw)
		if perr != nil {
			return nil, c.precondition(core.OpCreateOrder, "unreadable order response: %v", perr)
		}
		order.ID = parsed.ID
		order.Status = parsed.Status
		if parsed.ClientOrderID != "" {
			order.ClientOrderID = parsed.ClientOrderID
		}
		if parsed.Filled != nil {
			order.Filled = parsed.Filled
		}
		if parsed.Remaining != nil {
			order.Remaining = parsed.Remaining
		}
		if parsed.Cost != nil {
			order.Cost = parsed.Cost
		}
		order.Info = raw
	}
	order.DeriveFills()

	c.cache.Upsert(order)
	c.logger.Info().
		Str("order", order.ID).
		Str("symbol", order.Symbol).
		Str("side", side.String()).
		Msg("order placed")
	return order, nil
}

// newClientOrderID generates a backend-safe client order id. UUIDs carry
// hyphens some venues reject, so they are stripped.
func newClientOrderID() string {
	id := uuid.New()
	out := make([]byte, 0, 32)
	for _, b := range id[:] {
		const hexdigits = "0123456789abcdef"
		out = append(out, hexdigits[b>>4], hexdigits[b&0xf])
	}
	return string(out)
}

// CancelOrder cancels an order by id. Backends that scope order ids per
// market need the symbol as well. The cache entry, if any, transitions to
// canceled.
func (c *Client) CancelOrder(ctx context.Context, id, symbol string) (*core.Order, error) {
	if id == "" {
		return nil, c.precondition(core.OpCancelOrder, "order id is required")
	}
	call := core.Params{c.orderIDParam(): id}
	if symbol != "" {
		m, err := c.Market(ctx, symbol)
		if err != nil {
			return nil, err
		}
		call[c.pairParam()] = m.ID
	}

	if _, err := c.invoke(ctx, core.OpCancelOrder, call); err != nil {
		return nil, err
	}

	c.cache.Upsert(&core.Order{ID: id, Symbol: symbol, Status: core.StatusCanceled})
	order := c.cache.Get(id)
	order.Status = core.StatusCanceled
	c.logger.Info().Str("order", id).Msg("order canceled")
	return order, nil
}

// FetchOrder fetches one order by id and merges the backend's view onto the
// cached one.
func (c *Client) FetchOrder(ctx context.Context, id, symbol string) (*core.Order, error) {
	if id == "" {
		return nil, c.precondition(core.OpFetchOrder, "order id is required")
	}
	call := core.Params{c.orderIDParam(): id}
	if symbol != "" {
		m, err := c.Market(ctx, symbol)
		if err != nil {
			return nil, err
		}
		call[c.pairParam()] = m.ID
	}

	decoded, err := c.invoke(ctx, core.OpFetchOrder, call)
	if err != nil {
		return nil, err
	}

	orders := c.parseOrders(decoded, symbol)
	if len(orders) == 0 {
		return nil, &core.BackendError{
			Kind:      core.KindOrderNotFound,
			Backend:   c.def.ID,
			Operation: core.OpFetchOrder.String(),
			Message:   "order " + id + " not in response",
			Timestamp: time.Now(),
		}
	}
	order := orders[0]
	if order.ID == "" {
		order.ID = id
	}
	c.cache.Upsert(order)
	return c.cache.Get(order.ID), nil
}

// FetchOpenOrders fetches the open orders, optionally scoped to one symbol,
// and reconciles the order cache against the snapshot: cached open orders
// inside the scope that the backend no longer lists transition to closed.
func (c *Client) FetchOpenOrders(ctx context.Context, symbol string) ([]*core.Order, error) {
	call := core.Params{}
	scope := ""
	if symbol != "" {
		m, err := c.Market(ctx, symbol)
		if err != nil {
			return nil, err
		}
		call[c.pairParam()] = m.ID
		scope = m.Symbol
	} else if _, err := c.LoadMarkets(ctx); err != nil {
		return nil, err
	}

	decoded, err := c.invoke(ctx, core.OpFetchOpenOrders, call)
	if err != nil {
		return nil, err
	}

	orders := c.parseOrders(decoded, scope)
	c.cache.Reconcile(orders, scope)
	return orders, nil
}

// FetchClosedOrders returns the orders no longer open, scoped to one symbol
// when given. Backends without a closed-orders endpoint serve the result
// from the order cache after refreshing it against the open-orders snapshot.
func (c *Client) FetchClosedOrders(ctx context.Context, symbol string) ([]*core.Order, error) {
	if _, bound := c.def.Binding(core.OpFetchClosedOrders); !bound {
		if !c.def.Options.Bool("closedOrdersFromCache", false) {
			return nil, c.precondition(core.OpFetchClosedOrders, "operation fetchClosedOrders is not supported")
		}
		if _, err := c.FetchOpenOrders(ctx, symbol); err != nil {
			return nil, err
		}
		return c.cache.Closed(symbol), nil
	}

	call := core.Params{}
	for k, v := range c.def.Options.Section("closedOrdersParams") {
		call[k] = v
	}
	scope := ""
	if symbol != "" {
		m, err := c.Market(ctx, symbol)
		if err != nil {
			return nil, err
		}
		call[c.pairParam()] = m.ID
		scope = m.Symbol
	} else if _, err := c.LoadMarkets(ctx); err != nil {
		return nil, err
	}

	decoded, err := c.invoke(ctx, core.OpFetchClosedOrders, call)
	if err != nil {
		return nil, err
	}

	orders := c.parseOrders(decoded, scope)
	for _, o := range orders {
		c.cache.Upsert(o)
	}
	return orders, nil
}

// FetchMyTrades fetches the account's own executions, optionally scoped to
// one symbol.
func (c *Client) FetchMyTrades(ctx context.Context, symbol string, params core.Params) ([]*core.Trade, error) {
	call := params.Clone()
	scope := ""
	if symbol != "" {
		m, err := c.Market(ctx, symbol)
		if err != nil {
			return nil, err
		}
		call[c.pairParam()] = m.ID
		scope = m.Symbol
	} else if _, err := c.LoadMarkets(ctx); err != nil {
		return nil, err
	}

	decoded, err := c.invoke(ctx, core.OpFetchMyTrades, call)
	if err != nil {
		return nil, err
	}

	rows := asList(decoded)
	if raw := asMap(decoded); raw != nil {
		// Id-keyed map shape; fold the key into each row.
		rows = make([]any, 0, len(raw))
		for id, entry := range raw {
			row := asMap(entry)
			if row == nil {
				continue
			}
			if _, ok := row["id"]; !ok {
				row["id"] = id
			}
			rows = append(rows, row)
		}
	}
	trades := c.parseTrades(rows, scope)
	sort.Slice(trades, func(i, j int) bool {
		if !trades[i].Timestamp.Equal(trades[j].Timestamp) {
			return trades[i].Timestamp.Before(trades[j].Timestamp)
		}
		return trades[i].ID < trades[j].ID
	})
	return trades, nil
}

// Withdraw requests a withdrawal and returns the backend's withdrawal id.
func (c *Client) Withdraw(ctx context.Context, code string, amount *apd.Decimal, address string, params core.Params) (string, error) {
	if code == "" || amount == nil || address == "" {
		return "", c.precondition(core.OpWithdraw, "currency, amount and address are required")
	}
	if cur := c.normalizeContext().Currency(code); cur != nil && !cur.Active {
		return "", c.precondition(core.OpWithdraw, "currency %s is disabled", code)
	}

	fields := c.def.Options.Section("withdraw")
	call := params.Clone()
	call[fields.String("currency", "currency")] = code
	call[fields.String("amount", "amount")] = core.DecString(amount)
	call[fields.String("address", "address")] = address

	decoded, err := c.invoke(ctx, core.OpWithdraw, call)
	if err != nil {
		return "", err
	}
	raw := asMap(decoded)
	id := normalize.SafeString2(raw, "tId", "withdrawal_id", "")
	if id == "" {
		id = normalize.SafeString(raw, "wd_id", "")
	}
	c.logger.Info().Str("currency", code).Str("withdrawal", id).Msg("withdrawal submitted")
	return id, nil
}

// parseOrders reads an order collection in either the id-keyed map shape or
// the array shape, sorted by timestamp then id.
func (c *Client) parseOrders(decoded any, symbol string) []*core.Order {
	nctx := c.normalizeContext()
	var out []*core.Order

	parse := func(raw map[string]any) {
		o, err := c.funcs.Order(nctx, symbol, raw)
		if err != nil {
			c.logger.Warn().Err(err).Msg("skipping order entry")
			return
		}
		out = append(out, o)
	}

	switch coll := decoded.(type) {
	case map[string]any:
		// A bare order object parses directly; otherwise the map is
		// id-keyed and the key is folded into each entry.
		if o, err := c.funcs.Order(nctx, symbol, coll); err == nil {
			return []*core.Order{o}
		}
		for id, entry := range coll {
			raw := asMap(entry)
			if raw == nil {
				continue
			}
			if _, ok := raw["id"]; !ok {
				if _, ok := raw["order_id"]; !ok {
					raw["id"] = id
				}
			}
			parse(raw)
		}
	case []any:
		for _, entry := range coll {
			if raw := asMap(entry); raw != nil {
				parse(raw)
			}
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (c *Client) orderIDParam() string {
	return c.def.Options.String("orderIDParam", "order_id")
}
