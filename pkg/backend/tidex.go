package backend

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"

	"omniex/pkg/classify"
	"omniex/pkg/config"
	"omniex/pkg/core"
	"omniex/pkg/normalize"
	"omniex/pkg/sign"
)

// tidex is a BTC-e lineage venue: every private endpoint is addressed by a
// "method" body field POSTed to one URL, the body is signed with HMAC-SHA512,
// and responses arrive wrapped in a {"success": .., "return": ..} envelope
// even on HTTP 200.
func init() {
	Register(Profile{
		ID:       "tidex",
		Doc:      tidexDocument(),
		Envelope: classify.Envelope{SuccessKey: "success"},
		Funcs: normalize.Funcs{
			Order:    tidexOrder,
			Balances: tidexBalances,
		},
		NewSigner: func(nonce *sign.Nonce) sign.Signer {
			return &sign.BodyHMAC{
				Nonce:      nonce,
				PathField:  "method",
				KeyHeader:  "Key",
				SignHeader: "Sign",
			}
		},
		BuildOrder: func(m *core.Market, typ core.OrderType, side core.OrderSide, amount, price *apd.Decimal) core.Params {
			return core.Params{
				"pair":   m.ID,
				"type":   side.String(),
				"rate":   core.DecString(price),
				"amount": core.DecString(amount),
			}
		},
	})
}

func tidexDocument() config.Document {
	return config.Document{
		"id":      "tidex",
		"extends": "base",
		"name":    "Tidex",
		"urls": map[string]any{
			"api": map[string]any{
				"public":  "https://api.tidex.com/api/3",
				"private": "https://api.tidex.com/tapi",
			},
		},
		"has": map[string]any{
			"fetchMarkets":      true,
			"fetchTicker":       true,
			"fetchTickers":      true,
			"fetchOrderBook":    true,
			"fetchTrades":       true,
			"fetchBalance":      true,
			"createOrder":       true,
			"cancelOrder":       true,
			"fetchOrder":        true,
			"fetchOpenOrders":   true,
			"fetchClosedOrders": true,
			"fetchMyTrades":     true,
			"fetchCurrencies":   false,
			"withdraw":          true,
		},
		"api": map[string]any{
			"public": map[string]any{
				"get": []any{
					"info",
					"ticker/{pair}",
					"depth/{pair}",
					"trades/{pair}",
				},
			},
			"private": map[string]any{
				"post": []any{
					"getInfo",
					"Trade",
					"ActiveOrders",
					"OrderInfo",
					"CancelOrder",
					"TradeHistory",
					"WithdrawCoin",
				},
			},
		},
		"operations": map[string]any{
			"fetchMarkets":    map[string]any{"tier": "public", "method": "GET", "path": "info"},
			"fetchTicker":     map[string]any{"tier": "public", "method": "GET", "path": "ticker/{pair}"},
			"fetchTickers":    map[string]any{"tier": "public", "method": "GET", "path": "ticker/{pair}"},
			"fetchOrderBook":  map[string]any{"tier": "public", "method": "GET", "path": "depth/{pair}"},
			"fetchTrades":     map[string]any{"tier": "public", "method": "GET", "path": "trades/{pair}"},
			"fetchBalance":    map[string]any{"tier": "private", "method": "POST", "path": "getInfo"},
			"createOrder":     map[string]any{"tier": "private", "method": "POST", "path": "Trade"},
			"cancelOrder":     map[string]any{"tier": "private", "method": "POST", "path": "CancelOrder"},
			"fetchOrder":      map[string]any{"tier": "private", "method": "POST", "path": "OrderInfo"},
			"fetchOpenOrders": map[string]any{"tier": "private", "method": "POST", "path": "ActiveOrders"},
			"fetchMyTrades":   map[string]any{"tier": "private", "method": "POST", "path": "TradeHistory"},
			"withdraw":        map[string]any{"tier": "private", "method": "POST", "path": "WithdrawCoin"},
		},
		"fees": map[string]any{
			"trading": map[string]any{
				"maker": "0.001",
				"taker": "0.001",
			},
		},
		"exceptions": map[string]any{
			"exact": map[string]any{
				"803": "INVALID_ORDER",
				"804": "INVALID_ORDER",
				"805": "INVALID_ORDER",
				"806": "INVALID_ORDER",
				"807": "INVALID_ORDER",
				"831": "INSUFFICIENT_FUNDS",
				"832": "INSUFFICIENT_FUNDS",
				"833": "ORDER_NOT_FOUND",
			},
			"broad": map[string]any{
				"invalid api key":                   "AUTHENTICATION",
				"invalid sign":                      "AUTHENTICATION",
				"api key dont have trade permission": "AUTHENTICATION",
				"invalid parameter":                 "INVALID_ORDER",
				"invalid order":                     "INVALID_ORDER",
				"invalid nonce":                     "INVALID_NONCE",
				"Requests too often":                "RATE_LIMIT",
				"not available":                     "SERVICE_UNAVAILABLE",
				"data unavailable":                  "SERVICE_UNAVAILABLE",
				"external service unavailable":      "SERVICE_UNAVAILABLE",
			},
		},
		"options": map[string]any{
			"marketsKey":            "pairs",
			"resultKey":             "return",
			"pairParam":             "pair",
			"pairJoiner":            "-",
			"orderIDParam":          "order_id",
			"closedOrdersFromCache": true,
			"createMarketOrder":     false,
			"withdraw": map[string]any{
				"currency": "coinName",
				"amount":   "amount",
				"address":  "address",
			},
		},
	}
}

// tidexOrder reads both the fetch shape (key-injected id, "amount" meaning
// remaining) and the Trade response shape (order_id/received/remains).
func tidexOrder(ctx *normalize.Context, symbol string, raw map[string]any) (*core.Order, error) {
	if _, ok := raw["order_id"]; ok {
		// Trade response. An order_id of zero means the order matched in
		// full immediately and never rested on the book.
		o := &core.Order{
			ID:        normalize.SafeString(raw, "order_id", ""),
			Symbol:    symbol,
			Status:    core.StatusOpen,
			Filled:    normalize.SafeDecimal(raw, "received"),
			Remaining: normalize.SafeDecimal(raw, "remains"),
			Info:      raw,
		}
		if o.ID == "" || o.ID == "0" {
			o.ID = normalize.SafeString(raw, "init_order_id", "")
			o.Status = core.StatusClosed
		}
		if o.ID == "" {
			return nil, fmt.Errorf("trade response has no order id")
		}
		o.Amount = core.DecAdd(o.Filled, o.Remaining)
		o.DeriveFills()
		return o, nil
	}

	o, err := normalize.Order(ctx, symbol, raw)
	if err != nil {
		return nil, err
	}
	// On this venue "amount" is always what is left to fill. Rows carrying
	// start_amount are read by the default parser; rows without it (the
	// ActiveOrders shape) recover the original size from the cache on merge.
	if _, ok := raw["start_amount"]; !ok {
		o.Remaining = normalize.SafeDecimal(raw, "amount")
		o.Amount = nil
	}
	// Numeric states: 0 active, 1 executed, 2 canceled, 3 canceled after a
	// partial fill.
	switch normalize.SafeString(raw, "status", "") {
	case "1":
		o.Status = core.StatusClosed
	case "2", "3":
		o.Status = core.StatusCanceled
	}
	return o, nil
}

// tidexBalances digs the funds map out of the getInfo result.
func tidexBalances(ctx *normalize.Context, raw map[string]any) (core.Balances, error) {
	funds := normalize.SafeMap(raw, "funds")
	if funds == nil {
		return nil, fmt.Errorf("balance result has no funds")
	}
	return normalize.Balances(ctx, funds)
}
