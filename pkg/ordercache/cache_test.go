package ordercache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omniex/pkg/core"
)

func openOrder(id, symbol, amount string) *core.Order {
	return &core.Order{
		ID:        id,
		Symbol:    symbol,
		Side:      core.SideBuy,
		Type:      core.TypeLimit,
		Price:     core.MustDecimal("100"),
		Amount:    core.MustDecimal(amount),
		Remaining: core.MustDecimal(amount),
		Status:    core.StatusOpen,
		Timestamp: time.Date(2020, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestUpsertAndGet(t *testing.T) {
	c := New()
	c.Upsert(openOrder("1", "BTC/USDT", "2"))

	got := c.Get("1")
	require.NotNil(t, got)
	assert.Equal(t, "BTC/USDT", got.Symbol)
	assert.Nil(t, c.Get("nope"))

	// Get returns a copy: mutating it must not touch the cache.
	got.Symbol = "ETH/USDT"
	assert.Equal(t, "BTC/USDT", c.Get("1").Symbol)
}

func TestUpsertMergesPartialView(t *testing.T) {
	c := New()
	c.Upsert(openOrder("1", "BTC/USDT", "2"))

	// A later fetch reports only fill progress.
	c.Upsert(&core.Order{
		ID:        "1",
		Symbol:    "BTC/USDT",
		Status:    core.StatusOpen,
		Filled:    core.MustDecimal("0.5"),
		Remaining: core.MustDecimal("1.5"),
	})

	got := c.Get("1")
	assert.True(t, core.DecEqual(core.MustDecimal("2"), got.Amount), "amount survives the merge")
	assert.True(t, core.DecEqual(core.MustDecimal("0.5"), got.Filled))
}

func TestUpsertNeverReopensTerminalOrder(t *testing.T) {
	c := New()
	o := openOrder("1", "BTC/USDT", "2")
	o.Status = core.StatusCanceled
	c.Upsert(o)

	stale := openOrder("1", "BTC/USDT", "2")
	c.Upsert(stale)

	assert.Equal(t, core.StatusCanceled, c.Get("1").Status)
}

func TestReconcileClosesVanishedOrders(t *testing.T) {
	c := New()
	c.Upsert(openOrder("1", "BTC/USDT", "2"))
	c.Upsert(openOrder("2", "BTC/USDT", "3"))

	// The snapshot still lists order 1 but not order 2.
	c.Reconcile([]*core.Order{openOrder("1", "BTC/USDT", "2")}, "BTC/USDT")

	assert.Equal(t, core.StatusOpen, c.Get("1").Status)

	closed := c.Get("2")
	assert.Equal(t, core.StatusClosed, closed.Status)
	assert.True(t, core.DecEqual(core.MustDecimal("3"), closed.Filled), "filled becomes amount")
	assert.True(t, core.DecEqual(core.MustDecimal("0"), closed.Remaining))
	assert.True(t, core.DecEqual(core.MustDecimal("300"), closed.Cost), "cost = price * filled")
}

func TestReconcileRespectsSymbolScope(t *testing.T) {
	c := New()
	c.Upsert(openOrder("a", "BTC/USDT", "1"))
	c.Upsert(openOrder("b", "ETH/USDT", "1"))

	// Snapshot scoped to BTC/USDT says nothing about ETH/USDT orders.
	c.Reconcile(nil, "BTC/USDT")

	assert.Equal(t, core.StatusClosed, c.Get("a").Status)
	assert.Equal(t, core.StatusOpen, c.Get("b").Status)
}

func TestReconcileUnscopedCoversAllSymbols(t *testing.T) {
	c := New()
	c.Upsert(openOrder("a", "BTC/USDT", "1"))
	c.Upsert(openOrder("b", "ETH/USDT", "1"))

	c.Reconcile(nil, "")

	assert.Equal(t, core.StatusClosed, c.Get("a").Status)
	assert.Equal(t, core.StatusClosed, c.Get("b").Status)
}

func TestReconcileIsIdempotent(t *testing.T) {
	c := New()
	c.Upsert(openOrder("1", "BTC/USDT", "2"))
	snapshot := []*core.Order{openOrder("2", "BTC/USDT", "5")}

	c.Reconcile(snapshot, "BTC/USDT")
	first := c.Get("1")

	c.Reconcile(snapshot, "BTC/USDT")
	second := c.Get("1")

	assert.Equal(t, first.Status, second.Status)
	assert.True(t, core.DecEqual(first.Filled, second.Filled))
	assert.True(t, core.DecEqual(first.Cost, second.Cost))
	assert.Equal(t, 2, c.Len())
}

func TestReconcileNeverDeletes(t *testing.T) {
	c := New()
	c.Upsert(openOrder("1", "BTC/USDT", "2"))
	c.Reconcile(nil, "")

	assert.Equal(t, 1, c.Len())
	require.NotNil(t, c.Get("1"))
}

func TestOpenClosedFilters(t *testing.T) {
	c := New()
	c.Upsert(openOrder("1", "BTC/USDT", "1"))
	c.Upsert(openOrder("2", "ETH/USDT", "1"))
	c.Reconcile(nil, "ETH/USDT")

	open := c.Open("")
	require.Len(t, open, 1)
	assert.Equal(t, "1", open[0].ID)

	closed := c.Closed("")
	require.Len(t, closed, 1)
	assert.Equal(t, "2", closed[0].ID)

	assert.Len(t, c.All(""), 2)
	assert.Len(t, c.All("BTC/USDT"), 1)
}
