package backend

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"omniex/pkg/classify"
	"omniex/pkg/config"
	"omniex/pkg/core"
	"omniex/pkg/normalize"
	"omniex/pkg/sign"
)

// okx signs a canonical timestamp+verb+path(+body) string with HMAC-SHA256,
// base64-encoded, carried in OK-ACCESS-* headers together with an account
// passphrase. Failures come back as HTTP 200 with a non-zero "code" field.
func init() {
	Register(Profile{
		ID:       "okx",
		Doc:      okxDocument(),
		Envelope: classify.Envelope{CodeOK: "0"},
		Funcs: normalize.Funcs{
			Market: okxMarket,
			Order:  okxOrder,
			Trade:  okxTrade,
		},
		NewSigner: func(nonce *sign.Nonce) sign.Signer {
			return &sign.HeaderHMAC{
				Digest:           sign.SHA256,
				Encoding:         sign.Base64,
				Timestamp:        sign.ISO8601,
				KeyHeader:        "OK-ACCESS-KEY",
				SignHeader:       "OK-ACCESS-SIGN",
				TimestampHeader:  "OK-ACCESS-TIMESTAMP",
				PassphraseHeader: "OK-ACCESS-PASSPHRASE",
			}
		},
		BuildOrder: func(m *core.Market, typ core.OrderType, side core.OrderSide, amount, price *apd.Decimal) core.Params {
			p := core.Params{
				"instrument_id": m.ID,
				"side":          side.String(),
				"type":          typ.String(),
				"size":          core.DecString(amount),
			}
			if typ == core.TypeLimit {
				p["price"] = core.DecString(price)
			}
			return p
		},
	})
}

func okxDocument() config.Document {
	return config.Document{
		"id":      "okx",
		"extends": "base",
		"name":    "OKX",
		"urls": map[string]any{
			"api": map[string]any{
				"public":  "https://www.okx.com/api",
				"private": "https://www.okx.com/api",
			},
		},
		"requiredCredentials": map[string]any{
			"apiKey":   true,
			"secret":   true,
			"password": true,
		},
		"rateLimit": 1000,
		"has": map[string]any{
			"fetchMarkets":      true,
			"fetchCurrencies":   true,
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
			"withdraw":          true,
		},
		"api": map[string]any{
			"public": map[string]any{
				"get": []any{
					"spot/v3/instruments",
					"spot/v3/instruments/ticker",
					"spot/v3/instruments/{instrument_id}/ticker",
					"spot/v3/instruments/{instrument_id}/book",
					"spot/v3/instruments/{instrument_id}/trades",
				},
			},
			"private": map[string]any{
				"get": []any{
					"spot/v3/accounts",
					"spot/v3/orders",
					"spot/v3/orders_pending",
					"spot/v3/orders/{order_id}",
					"spot/v3/fills",
					"account/v3/currencies",
				},
				"post": []any{
					"spot/v3/orders",
					"spot/v3/cancel_orders/{order_id}",
					"account/v3/withdrawal",
				},
			},
		},
		"operations": map[string]any{
			"fetchMarkets":      map[string]any{"tier": "public", "method": "GET", "path": "spot/v3/instruments"},
			"fetchCurrencies":   map[string]any{"tier": "private", "method": "GET", "path": "account/v3/currencies"},
			"fetchTicker":       map[string]any{"tier": "public", "method": "GET", "path": "spot/v3/instruments/{instrument_id}/ticker"},
			"fetchTickers":      map[string]any{"tier": "public", "method": "GET", "path": "spot/v3/instruments/ticker"},
			"fetchOrderBook":    map[string]any{"tier": "public", "method": "GET", "path": "spot/v3/instruments/{instrument_id}/book"},
			"fetchTrades":       map[string]any{"tier": "public", "method": "GET", "path": "spot/v3/instruments/{instrument_id}/trades"},
			"fetchBalance":      map[string]any{"tier": "private", "method": "GET", "path": "spot/v3/accounts"},
			"createOrder":       map[string]any{"tier": "private", "method": "POST", "path": "spot/v3/orders"},
			"cancelOrder":       map[string]any{"tier": "private", "method": "POST", "path": "spot/v3/cancel_orders/{order_id}"},
			"fetchOrder":        map[string]any{"tier": "private", "method": "GET", "path": "spot/v3/orders/{order_id}"},
			"fetchOpenOrders":   map[string]any{"tier": "private", "method": "GET", "path": "spot/v3/orders_pending"},
			"fetchClosedOrders": map[string]any{"tier": "private", "method": "GET", "path": "spot/v3/orders"},
			"fetchMyTrades":     map[string]any{"tier": "private", "method": "GET", "path": "spot/v3/fills"},
			"withdraw":          map[string]any{"tier": "private", "method": "POST", "path": "account/v3/withdrawal"},
		},
		"fees": map[string]any{
			"trading": map[string]any{
				"maker": "0.001",
				"taker": "0.0015",
			},
		},
		"exceptions": map[string]any{
			"exact": map[string]any{
				"30001": "AUTHENTICATION",
				"30002": "AUTHENTICATION",
				"30004": "AUTHENTICATION",
				"30005": "INVALID_NONCE",
				"30006": "AUTHENTICATION",
				"30008": "INVALID_NONCE",
				"30012": "AUTHENTICATION",
				"30013": "AUTHENTICATION",
				"30014": "RATE_LIMIT",
				"30026": "RATE_LIMIT",
				"30027": "AUTHENTICATION",
				"32004": "ORDER_NOT_FOUND",
				"32005": "INVALID_ORDER",
				"32006": "INVALID_ORDER",
				"32007": "INVALID_ORDER",
				"33014": "ORDER_NOT_FOUND",
				"33017": "INSUFFICIENT_FUNDS",
				"34002": "INVALID_ORDER",
				"34008": "INSUFFICIENT_FUNDS",
			},
			"broad": map[string]any{
				"Insufficient funds": "INSUFFICIENT_FUNDS",
				"System error":       "SERVICE_UNAVAILABLE",
				"Request timed out":  "SERVICE_UNAVAILABLE",
			},
		},
		"options": map[string]any{
			"pairParam":          "instrument_id",
			"orderIDParam":       "order_id",
			"clientOrderIDParam": "client_oid",
			"createMarketOrder":  true,
			"closedOrdersParams": map[string]any{"state": "2"},
			"withdraw": map[string]any{
				"currency": "currency",
				"amount":   "amount",
				"address":  "to_address",
			},
		},
	}
}

func okxMarket(ctx *normalize.Context, id string, raw map[string]any) (*core.Market, error) {
	id = normalize.SafeString(raw, "instrument_id", id)
	if id == "" {
		return nil, fmt.Errorf("instrument has no id")
	}
	baseID := normalize.SafeString(raw, "base_currency", "")
	quoteID := normalize.SafeString(raw, "quote_currency", "")
	if baseID == "" || quoteID == "" {
		if parts := strings.SplitN(id, "-", 2); len(parts) == 2 {
			baseID, quoteID = parts[0], parts[1]
		}
	}
	if baseID == "" || quoteID == "" {
		return nil, fmt.Errorf("instrument %q has no base/quote", id)
	}
	base := ctx.CurrencyCode(baseID)
	quote := ctx.CurrencyCode(quoteID)
	return &core.Market{
		ID:      id,
		Symbol:  base + "/" + quote,
		Base:    base,
		Quote:   quote,
		BaseID:  baseID,
		QuoteID: quoteID,
		Active:  true,
		Maker:   ctx.MakerFee,
		Taker:   ctx.TakerFee,
		Precision: core.Precision{
			Amount: incrementPlaces(normalize.SafeDecimal(raw, "size_increment")),
			Price:  incrementPlaces(normalize.SafeDecimal(raw, "tick_size")),
		},
		Limits: core.Limits{
			Amount: core.MinMax{Min: normalize.SafeDecimal(raw, "min_size")},
			Cost:   core.MinMax{Min: normalize.SafeDecimal(raw, "min_notional")},
		},
		Info: raw,
	}, nil
}

// incrementPlaces converts an increment such as 0.0001 to its decimal-place
// count.
func incrementPlaces(inc *apd.Decimal) int {
	if inc == nil {
		return 8
	}
	if inc.Exponent < 0 {
		return int(-inc.Exponent)
	}
	return 0
}

func okxOrder(ctx *normalize.Context, symbol string, raw map[string]any) (*core.Order, error) {
	id := normalize.SafeString2(raw, "order_id", "id", "")
	if id == "" {
		return nil, fmt.Errorf("order has no id")
	}
	if inst := normalize.SafeString(raw, "instrument_id", ""); inst != "" {
		symbol = ctx.SymbolFor(inst)
	}
	o := &core.Order{
		ID:            id,
		ClientOrderID: normalize.SafeString(raw, "client_oid", ""),
		Symbol:        symbol,
		Timestamp:     normalize.SafeTimeMillis2(raw, "timestamp", "created_at"),
		Type:          normalize.ParseOrderType(normalize.SafeString(raw, "type", "limit")),
		Side:          normalize.ParseSide(normalize.SafeString(raw, "side", "")),
		Price:         normalize.SafeDecimal(raw, "price"),
		Amount:        normalize.SafeDecimal(raw, "size"),
		Filled:        normalize.SafeDecimal(raw, "filled_size"),
		Cost:          normalize.SafeDecimal(raw, "filled_notional"),
		Status:        normalize.ParseOrderStatus(normalize.SafeString2(raw, "state", "status", "")),
		Info:          raw,
	}
	o.DeriveFills()
	return o, nil
}

func okxTrade(ctx *normalize.Context, symbol string, raw map[string]any) (*core.Trade, error) {
	id := normalize.SafeString2(raw, "trade_id", "ledger_id", "")
	if id == "" {
		return nil, fmt.Errorf("trade has no id")
	}
	if inst := normalize.SafeString(raw, "instrument_id", ""); inst != "" {
		symbol = ctx.SymbolFor(inst)
	}
	t := &core.Trade{
		ID:        id,
		OrderID:   normalize.SafeString(raw, "order_id", ""),
		Timestamp: normalize.SafeTimeMillis2(raw, "timestamp", "time"),
		Symbol:    symbol,
		Side:      normalize.ParseSide(normalize.SafeString(raw, "side", "")),
		Price:     normalize.SafeDecimal(raw, "price"),
		Amount:    normalize.SafeDecimal(raw, "size"),
		Info:      raw,
	}
	switch normalize.SafeString2(raw, "exec_type", "liquidity", "") {
	case "T":
		t.TakerOrMaker = core.RoleTaker
	case "M":
		t.TakerOrMaker = core.RoleMaker
	}
	t.Cost = core.DecMul(t.Price, t.Amount)
	return t, nil
}
