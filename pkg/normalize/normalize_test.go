package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omniex/pkg/core"
)

func testContext() *Context {
	btcUsdt := &core.Market{ID: "btc_usdt", Symbol: "BTC/USDT", Base: "BTC", Quote: "USDT"}
	return &Context{
		Backend:          "testbackend",
		MarketsByID:      map[string]*core.Market{"btc_usdt": btcUsdt},
		MarketsBySymbol:  map[string]*core.Market{"BTC/USDT": btcUsdt},
		CommonCurrencies: map[string]string{"DSH": "DASH", "XBT": "BTC"},
		MakerFee:         core.MustDecimal("0.001"),
		TakerFee:         core.MustDecimal("0.002"),
	}
}

func TestCurrencyCodeRenames(t *testing.T) {
	ctx := testContext()

	assert.Equal(t, "DASH", ctx.CurrencyCode("dsh"))
	assert.Equal(t, "BTC", ctx.CurrencyCode("XBT"))
	assert.Equal(t, "ETH", ctx.CurrencyCode("eth"))
}

func TestMarketFromPairStyleEntry(t *testing.T) {
	ctx := testContext()
	raw := map[string]any{
		"decimal_places": float64(3),
		"min_amount":     0.001,
		"fee":            0.1,
		"hidden":         float64(0),
	}

	m, err := Market(ctx, "dsh_btc", raw)
	require.NoError(t, err)
	assert.Equal(t, "dsh_btc", m.ID)
	assert.Equal(t, "DASH/BTC", m.Symbol, "base goes through the rename table")
	assert.Equal(t, "dsh", m.BaseID)
	assert.True(t, m.Active)
	assert.Equal(t, 3, m.Precision.Price)
	assert.True(t, core.DecEqual(core.MustDecimal("0.1"), m.Taker), "reported fee wins over defaults")
}

func TestMarketWithoutIdentityFails(t *testing.T) {
	ctx := testContext()

	_, err := Market(ctx, "", map[string]any{"min_amount": 1})
	assert.Error(t, err)

	_, err = Market(ctx, "justonecurrency", map[string]any{})
	assert.Error(t, err)
}

func TestTickerDefaults(t *testing.T) {
	ctx := testContext()
	raw := map[string]any{
		"high":    "9200.5",
		"low":     "8800",
		"last":    9100.25,
		"vol":     "1234.5",
		"updated": float64(1588334400),
	}

	tk, err := Ticker(ctx, "BTC/USDT", raw)
	require.NoError(t, err)
	assert.Equal(t, "BTC/USDT", tk.Symbol)
	assert.True(t, core.DecEqual(core.MustDecimal("9100.25"), tk.Last))
	assert.Equal(t, int64(1588334400000), tk.Timestamp.UnixMilli(), "second stamps scale to millis")
	assert.Nil(t, tk.Bid, "absent fields degrade to nil")
}

func TestTickerSymbolFromPayload(t *testing.T) {
	ctx := testContext()

	tk, err := Ticker(ctx, "", map[string]any{"instrument_id": "btc_usdt", "last": "1"})
	require.NoError(t, err)
	assert.Equal(t, "BTC/USDT", tk.Symbol)

	_, err = Ticker(ctx, "", map[string]any{"last": "1"})
	assert.Error(t, err, "symbol is an identity field")
}

func TestOrderBookSkipsBadRows(t *testing.T) {
	ctx := testContext()
	raw := map[string]any{
		"bids": []any{
			[]any{"9000", "0.5"},
			[]any{"broken"},
			[]any{"not-a-number", "1"},
		},
		"asks": []any{[]any{9100.0, 1.0}},
	}

	ob, err := OrderBook(ctx, "BTC/USDT", raw)
	require.NoError(t, err)
	require.Len(t, ob.Bids, 1)
	require.Len(t, ob.Asks, 1)
	assert.True(t, core.DecEqual(core.MustDecimal("9000"), ob.Bids[0].Price))
}

func TestTradeDerivesCost(t *testing.T) {
	ctx := testContext()
	raw := map[string]any{
		"tid":       float64(42),
		"pair":      "btc_usdt",
		"type":      "sell",
		"price":     "9000",
		"amount":    "0.5",
		"timestamp": float64(1588334400),
	}

	tr, err := Trade(ctx, "", raw)
	require.NoError(t, err)
	assert.Equal(t, "42", tr.ID)
	assert.Equal(t, "BTC/USDT", tr.Symbol)
	assert.Equal(t, core.SideSell, tr.Side)
	assert.True(t, core.DecEqual(core.MustDecimal("4500.0"), tr.Cost))
}

func TestOrderDerivesFillsFromRemaining(t *testing.T) {
	ctx := testContext()
	// BTC-e lineage shape: "amount" is the remaining quantity.
	raw := map[string]any{
		"id":           "77",
		"pair":         "btc_usdt",
		"type":         "buy",
		"rate":         "9000",
		"start_amount": "2",
		"amount":       "0.5",
		"status":       "0",
	}

	o, err := Order(ctx, "", raw)
	require.NoError(t, err)
	assert.Equal(t, core.StatusOpen, o.Status)
	assert.True(t, core.DecEqual(core.MustDecimal("1.5"), o.Filled), "filled = amount - remaining")
	assert.True(t, core.DecEqual(core.MustDecimal("13500.0"), o.Cost), "cost = price * filled")
}

func TestOrderReadsAmountAsTotalWithoutStartAmount(t *testing.T) {
	ctx := testContext()
	// Conventional shape: "amount" is the total size, "filled" reported
	// alongside it.
	raw := map[string]any{
		"id":     "1",
		"side":   "buy",
		"price":  "100",
		"amount": "10",
		"filled": "4",
	}

	o, err := Order(ctx, "BTC/USDT", raw)
	require.NoError(t, err)
	assert.True(t, core.DecEqual(core.MustDecimal("10"), o.Amount))
	assert.True(t, core.DecEqual(core.MustDecimal("4"), o.Filled))
	assert.True(t, core.DecEqual(core.MustDecimal("6"), o.Remaining), "remaining = amount - filled")
	assert.True(t, core.DecEqual(o.Amount, core.DecAdd(o.Filled, o.Remaining)))
}

func TestOrderWithoutIDFails(t *testing.T) {
	_, err := Order(testContext(), "BTC/USDT", map[string]any{"rate": "1"})
	assert.Error(t, err)
}

func TestBalancesShapes(t *testing.T) {
	ctx := testContext()
	raw := map[string]any{
		"dsh": 1.5,
		"usdt": map[string]any{
			"available": "100",
			"frozen":    "25",
		},
		"eth": map[string]any{"total": "3"},
	}

	b, err := Balances(ctx, raw)
	require.NoError(t, err)

	dash := b["DASH"]
	assert.True(t, core.DecEqual(core.MustDecimal("1.5"), dash.Free))

	usdt := b["USDT"]
	assert.True(t, core.DecEqual(core.MustDecimal("125"), usdt.Total), "total = free + used when absent")

	eth := b["ETH"]
	assert.Nil(t, eth.Free)
	assert.True(t, core.DecEqual(core.MustDecimal("3"), eth.Total))
}

func TestFuncsOverride(t *testing.T) {
	called := false
	f := Funcs{
		Ticker: func(ctx *Context, symbol string, raw map[string]any) (*core.Ticker, error) {
			called = true
			return &core.Ticker{Symbol: symbol}, nil
		},
	}.WithDefaults()

	_, err := f.Ticker(testContext(), "BTC/USDT", nil)
	require.NoError(t, err)
	assert.True(t, called)

	// Untouched slots fall back to the defaults.
	_, err = f.Order(testContext(), "BTC/USDT", map[string]any{"id": "1"})
	assert.NoError(t, err)
}

func TestParseOrderStatus(t *testing.T) {
	tests := []struct {
		in   string
		want core.OrderStatus
	}{
		{"open", core.StatusOpen},
		{"0", core.StatusOpen},
		{"filled", core.StatusClosed},
		{"2", core.StatusClosed},
		{"cancelled", core.StatusCanceled},
		{"-1", core.StatusCanceled},
		{"weird-new-state", core.StatusOpen},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseOrderStatus(tt.in), tt.in)
	}
}
