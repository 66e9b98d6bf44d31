// Package core defines the unified domain model shared by every backend
// adapter: markets, tickers, order books, trades, orders, balances, and the
// request/error types the dispatcher and transport exchange.
package core

import (
	"time"

	"github.com/cockroachdb/apd/v3"
)

// AccessTier partitions a backend's endpoint catalogue into unauthenticated
// and authenticated halves.
type AccessTier int

const (
	// TierPublic marks endpoints callable without credentials.
	TierPublic AccessTier = iota
	// TierPrivate marks endpoints that must be signed.
	TierPrivate
)

// String returns "public" or "private".
func (t AccessTier) String() string {
	return [...]string{"public", "private"}[t]
}

// ParseAccessTier maps a catalogue key to an AccessTier.
func ParseAccessTier(s string) (AccessTier, bool) {
	switch s {
	case "public":
		return TierPublic, true
	case "private":
		return TierPrivate, true
	}
	return TierPublic, false
}

// OrderSide represents the direction of an order (buy or sell).
type OrderSide int

const (
	// SideBuy indicates an order to purchase the base asset.
	SideBuy OrderSide = iota
	// SideSell indicates an order to sell the base asset.
	SideSell
)

// String returns the string representation of the order side ("buy" or "sell").
func (s OrderSide) String() string {
	return [...]string{"buy", "sell"}[s]
}

// MarshalJSON implements json.Marshaler for OrderSide.
func (s OrderSide) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for OrderSide.
func (s *OrderSide) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"buy"`, `"BUY"`:
		*s = SideBuy
	case `"sell"`, `"SELL"`:
		*s = SideSell
	}
	return nil
}

// OrderType represents how an order executes.
type OrderType int

const (
	// TypeLimit executes at a specified price or better.
	TypeLimit OrderType = iota
	// TypeMarket executes immediately at the best available price.
	TypeMarket
)

// String returns the string representation of the order type.
func (t OrderType) String() string {
	return [...]string{"limit", "market"}[t]
}

// MarshalJSON implements json.Marshaler for OrderType.
func (t OrderType) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for OrderType.
func (t *OrderType) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"limit"`, `"LIMIT"`:
		*t = TypeLimit
	case `"market"`, `"MARKET"`:
		*t = TypeMarket
	}
	return nil
}

// OrderStatus represents the unified lifecycle state of an order.
// Backends report many more states; the normalizer folds them into these
// three before anything else sees them.
type OrderStatus int

const (
	// StatusOpen indicates the order is live on the backend.
	StatusOpen OrderStatus = iota
	// StatusClosed indicates the order is no longer open. A closed order may
	// have been fully filled or canceled externally; the open-orders snapshot
	// does not distinguish the two.
	StatusClosed
	// StatusCanceled indicates the order was canceled and is terminal.
	StatusCanceled
)

// String returns the string representation of the order status.
func (s OrderStatus) String() string {
	return [...]string{"open", "closed", "canceled"}[s]
}

// IsTerminal reports whether no further state change is possible.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusClosed || s == StatusCanceled
}

// MarshalJSON implements json.Marshaler for OrderStatus.
func (s OrderStatus) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler for OrderStatus.
func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case `"open"`:
		*s = StatusOpen
	case `"closed"`:
		*s = StatusClosed
	case `"canceled"`, `"cancelled"`:
		*s = StatusCanceled
	}
	return nil
}

// TakerOrMaker marks which side of the book a trade consumed.
type TakerOrMaker int

const (
	// RoleUnknown is used when a backend does not report the role.
	RoleUnknown TakerOrMaker = iota
	// RoleTaker indicates the trade crossed the spread.
	RoleTaker
	// RoleMaker indicates the trade rested on the book.
	RoleMaker
)

// String returns the string representation of the role.
func (r TakerOrMaker) String() string {
	return [...]string{"", "taker", "maker"}[r]
}

// Fee is a trading or funding fee in a specific currency.
type Fee struct {
	// Currency is the unified currency code the fee is charged in.
	Currency string `json:"currency"`
	// Cost is the absolute fee amount, nil when unknown.
	Cost *apd.Decimal `json:"cost,omitempty"`
	// Rate is the fee rate applied, nil when unknown.
	Rate *apd.Decimal `json:"rate,omitempty"`
}

// MinMax bounds a trading limit. Either side may be nil when the backend does
// not declare it.
type MinMax struct {
	Min *apd.Decimal `json:"min,omitempty"`
	Max *apd.Decimal `json:"max,omitempty"`
}

// Precision holds the decimal places a backend accepts for a market.
type Precision struct {
	Amount int `json:"amount"`
	Price  int `json:"price"`
}

// Limits holds the trading limits a backend declares for a market.
type Limits struct {
	Amount MinMax `json:"amount"`
	Price  MinMax `json:"price"`
	Cost   MinMax `json:"cost"`
}

// Market describes one trading pair on one backend. Symbol is the unified
// "BASE/QUOTE" form and is unique within a backend's market set; ID is the
// backend-native identifier.
type Market struct {
	ID        string         `json:"id"`
	Symbol    string         `json:"symbol"`
	Base      string         `json:"base"`
	Quote     string         `json:"quote"`
	BaseID    string         `json:"baseId"`
	QuoteID   string         `json:"quoteId"`
	Active    bool           `json:"active"`
	Taker     *apd.Decimal   `json:"taker,omitempty"`
	Maker     *apd.Decimal   `json:"maker,omitempty"`
	Precision Precision      `json:"precision"`
	Limits    Limits         `json:"limits"`
	Info      map[string]any `json:"info,omitempty"`
}

// CalculateFee computes the fee for a hypothetical trade on this market.
// The cost base is price*amount in the quote currency.
func (m *Market) CalculateFee(side OrderSide, amount, price *apd.Decimal, role TakerOrMaker) *Fee {
	rate := m.Taker
	if role == RoleMaker {
		rate = m.Maker
	}
	cost := DecMul(DecMul(amount, price), rate)
	return &Fee{
		Currency: m.Quote,
		Rate:     rate,
		Cost:     cost,
	}
}

// Currency describes one currency on one backend. Code is the unified code
// after common-currency renames; ID is the backend-native ticker.
type Currency struct {
	ID        string         `json:"id"`
	Code      string         `json:"code"`
	Precision int            `json:"precision"`
	Active    bool           `json:"active"`
	// Fee is the withdrawal fee, nil when unknown.
	Fee  *apd.Decimal   `json:"fee,omitempty"`
	Info map[string]any `json:"info,omitempty"`
}

// Ticker is a point-in-time market summary. Every numeric field is optional
// because backends report different subsets; only Symbol and Timestamp are
// guaranteed.
type Ticker struct {
	Symbol      string         `json:"symbol"`
	Timestamp   time.Time      `json:"timestamp"`
	High        *apd.Decimal   `json:"high,omitempty"`
	Low         *apd.Decimal   `json:"low,omitempty"`
	Bid         *apd.Decimal   `json:"bid,omitempty"`
	Ask         *apd.Decimal   `json:"ask,omitempty"`
	Open        *apd.Decimal   `json:"open,omitempty"`
	Close       *apd.Decimal   `json:"close,omitempty"`
	Last        *apd.Decimal   `json:"last,omitempty"`
	BaseVolume  *apd.Decimal   `json:"baseVolume,omitempty"`
	QuoteVolume *apd.Decimal   `json:"quoteVolume,omitempty"`
	Info        map[string]any `json:"info,omitempty"`
}

// BookLevel is a single (price, amount) entry in an order book.
type BookLevel struct {
	Price  *apd.Decimal `json:"price"`
	Amount *apd.Decimal `json:"amount"`
}

// OrderBook is a snapshot of resting orders. Bids are sorted by price
// descending, asks ascending. The raw feed is trusted: no crossed-book
// validation happens here.
type OrderBook struct {
	Symbol    string      `json:"symbol"`
	Bids      []BookLevel `json:"bids"`
	Asks      []BookLevel `json:"asks"`
	Timestamp time.Time   `json:"timestamp"`
}

// Trade is a single execution, public or own. OrderID is only present for
// own trades.
type Trade struct {
	ID           string         `json:"id"`
	OrderID      string         `json:"order,omitempty"`
	Timestamp    time.Time      `json:"timestamp"`
	Symbol       string         `json:"symbol"`
	Side         OrderSide      `json:"side"`
	Type         OrderType      `json:"type"`
	TakerOrMaker TakerOrMaker   `json:"-"`
	Price        *apd.Decimal   `json:"price,omitempty"`
	Amount       *apd.Decimal   `json:"amount,omitempty"`
	Cost         *apd.Decimal   `json:"cost,omitempty"`
	Fee          *Fee           `json:"fee,omitempty"`
	Info         map[string]any `json:"info,omitempty"`
}

// Order is the unified view of one exchange order. Numeric fields are nil
// when the backend did not report them and nothing could be derived.
//
// Invariants maintained by DeriveFills: filled + remaining == amount whenever
// both are known, and cost == price * filled unless the backend reported cost
// directly.
type Order struct {
	ID                 string         `json:"id"`
	ClientOrderID      string         `json:"clientOrderId,omitempty"`
	Symbol             string         `json:"symbol"`
	Timestamp          time.Time      `json:"timestamp"`
	LastTradeTimestamp time.Time      `json:"lastTradeTimestamp,omitzero"`
	Type               OrderType      `json:"type"`
	Side               OrderSide      `json:"side"`
	Price              *apd.Decimal   `json:"price,omitempty"`
	Amount             *apd.Decimal   `json:"amount,omitempty"`
	Filled             *apd.Decimal   `json:"filled,omitempty"`
	Remaining          *apd.Decimal   `json:"remaining,omitempty"`
	Cost               *apd.Decimal   `json:"cost,omitempty"`
	Status             OrderStatus    `json:"status"`
	Fee                *Fee           `json:"fee,omitempty"`
	Info               map[string]any `json:"info,omitempty"`
}

// DeriveFills fills in whichever of filled, remaining and cost can be derived
// from the fields the backend reported. Reported values are never
// overwritten.
func (o *Order) DeriveFills() {
	if o.Filled == nil && o.Amount != nil && o.Remaining != nil {
		o.Filled = DecSub(o.Amount, o.Remaining)
	}
	if o.Remaining == nil && o.Amount != nil && o.Filled != nil {
		o.Remaining = DecSub(o.Amount, o.Filled)
	}
	if o.Cost == nil && o.Price != nil && o.Filled != nil {
		o.Cost = DecMul(o.Price, o.Filled)
	}
}

// Merge overlays the non-empty fields of other onto o. Used when a fetch
// reports a partial view of an order already known locally.
func (o *Order) Merge(other *Order) {
	if other.ID != "" {
		o.ID = other.ID
	}
	if other.ClientOrderID != "" {
		o.ClientOrderID = other.ClientOrderID
	}
	if other.Symbol != "" {
		o.Symbol = other.Symbol
	}
	if !other.Timestamp.IsZero() {
		o.Timestamp = other.Timestamp
	}
	if !other.LastTradeTimestamp.IsZero() {
		o.LastTradeTimestamp = other.LastTradeTimestamp
	}
	// Type and side are fixed at creation; partial views carry zero values
	// there and must not overwrite them.
	o.Status = other.Status
	if other.Price != nil {
		o.Price = other.Price
	}
	if other.Amount != nil {
		o.Amount = other.Amount
	}
	if other.Filled != nil {
		o.Filled = other.Filled
	}
	if other.Remaining != nil {
		o.Remaining = other.Remaining
	}
	if other.Cost != nil {
		o.Cost = other.Cost
	}
	if other.Fee != nil {
		o.Fee = other.Fee
	}
	if other.Info != nil {
		o.Info = other.Info
	}
}

// Balance holds the funds of one currency. total == free + used is the
// expected relation but is not enforced: backends report the three values
// independently and they may be mutually stale.
type Balance struct {
	Free  *apd.Decimal `json:"free,omitempty"`
	Used  *apd.Decimal `json:"used,omitempty"`
	Total *apd.Decimal `json:"total,omitempty"`
}

// Balances maps unified currency codes to their Balance.
type Balances map[string]Balance
