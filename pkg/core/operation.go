package core

// Operation identifies one entry of the unified operation surface.
type Operation int

const (
	// OpFetchMarkets loads the backend's market set.
	OpFetchMarkets Operation = iota
	// OpFetchCurrencies loads the backend's currency set.
	OpFetchCurrencies
	// OpFetchTicker retrieves the ticker for one symbol.
	OpFetchTicker
	// OpFetchTickers retrieves tickers for many symbols at once.
	OpFetchTickers
	// OpFetchOrderBook retrieves the order book for one symbol.
	OpFetchOrderBook
	// OpFetchTrades retrieves recent public trades.
	OpFetchTrades
	// OpFetchMyTrades retrieves the account's own trades.
	OpFetchMyTrades
	// OpFetchBalance retrieves account balances.
	OpFetchBalance
	// OpCreateOrder places a new order.
	OpCreateOrder
	// OpCancelOrder cancels an existing order.
	OpCancelOrder
	// OpFetchOrder retrieves one order by id.
	OpFetchOrder
	// OpFetchOpenOrders retrieves the open-orders snapshot.
	OpFetchOpenOrders
	// OpFetchClosedOrders retrieves orders no longer open.
	OpFetchClosedOrders
	// OpWithdraw requests a withdrawal.
	OpWithdraw
)

// String returns the operation's name as used in backend definitions and
// capability flags.
func (o Operation) String() string {
	return [...]string{
		"fetchMarkets",
		"fetchCurrencies",
		"fetchTicker",
		"fetchTickers",
		"fetchOrderBook",
		"fetchTrades",
		"fetchMyTrades",
		"fetchBalance",
		"createOrder",
		"cancelOrder",
		"fetchOrder",
		"fetchOpenOrders",
		"fetchClosedOrders",
		"withdraw",
	}[o]
}

// Operations lists every operation of the unified surface.
func Operations() []Operation {
	ops := make([]Operation, 0, int(OpWithdraw)+1)
	for o := OpFetchMarkets; o <= OpWithdraw; o++ {
		ops = append(ops, o)
	}
	return ops
}
