package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{name: "string", in: "0.001", want: "0.001"},
		{name: "float", in: 9100.25, want: "9100.25"},
		{name: "int", in: 42, want: "42"},
		{name: "json number", in: json.Number("-2011"), want: "-2011"},
		{name: "negative string", in: "-0.5", want: "-0.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := ParseDecimal(tt.in)
			require.NotNil(t, d)
			assert.True(t, DecEqual(MustDecimal(tt.want), d))
		})
	}

	assert.Nil(t, ParseDecimal(nil))
	assert.Nil(t, ParseDecimal(""))
	assert.Nil(t, ParseDecimal("not a number"))
	assert.Nil(t, ParseDecimal([]string{"1"}))
}

func TestDecimalArithmeticNilPropagation(t *testing.T) {
	one := MustDecimal("1")

	assert.Nil(t, DecAdd(nil, one))
	assert.Nil(t, DecMul(one, nil))
	assert.Nil(t, DecSub(nil, nil))
	assert.True(t, DecEqual(nil, nil))
	assert.False(t, DecEqual(one, nil))
	assert.Empty(t, DecString(nil))

	sum := DecAdd(MustDecimal("0.1"), MustDecimal("0.2"))
	assert.True(t, DecEqual(MustDecimal("0.3"), sum), "decimal arithmetic is exact")
}

func TestDeriveFills(t *testing.T) {
	o := &Order{
		Price:     MustDecimal("100"),
		Amount:    MustDecimal("2"),
		Remaining: MustDecimal("0.5"),
	}
	o.DeriveFills()
	assert.True(t, DecEqual(MustDecimal("1.5"), o.Filled))
	assert.True(t, DecEqual(MustDecimal("150.0"), o.Cost))

	// Reported values are never overwritten.
	o2 := &Order{
		Price:  MustDecimal("100"),
		Amount: MustDecimal("2"),
		Filled: MustDecimal("1"),
		Cost:   MustDecimal("99"),
	}
	o2.DeriveFills()
	assert.True(t, DecEqual(MustDecimal("1"), o2.Remaining))
	assert.True(t, DecEqual(MustDecimal("99"), o2.Cost))

	// Nothing derivable stays unknown.
	o3 := &Order{Amount: MustDecimal("2")}
	o3.DeriveFills()
	assert.Nil(t, o3.Filled)
	assert.Nil(t, o3.Cost)
}

func TestOrderMergeKeepsIdentityFields(t *testing.T) {
	o := &Order{
		ID:     "1",
		Symbol: "ETH/BTC",
		Side:   SideSell,
		Type:   TypeLimit,
		Amount: MustDecimal("2"),
		Status: StatusOpen,
	}
	o.Merge(&Order{
		ID:     "1",
		Status: StatusClosed,
		Filled: MustDecimal("2"),
	})

	assert.Equal(t, SideSell, o.Side, "side survives partial updates")
	assert.Equal(t, StatusClosed, o.Status)
	assert.True(t, DecEqual(MustDecimal("2"), o.Filled))
	assert.True(t, DecEqual(MustDecimal("2"), o.Amount))
}

func TestCalculateFee(t *testing.T) {
	m := &Market{
		Symbol: "ETH/BTC",
		Quote:  "BTC",
		Maker:  MustDecimal("0.001"),
		Taker:  MustDecimal("0.002"),
	}

	fee := m.CalculateFee(SideBuy, MustDecimal("2"), MustDecimal("0.05"), RoleTaker)
	assert.Equal(t, "BTC", fee.Currency)
	assert.True(t, DecEqual(MustDecimal("0.0002"), fee.Cost), "taker rate over price*amount")

	fee = m.CalculateFee(SideSell, MustDecimal("2"), MustDecimal("0.05"), RoleMaker)
	assert.True(t, DecEqual(MustDecimal("0.0001"), fee.Cost))
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "buy", SideBuy.String())
	assert.Equal(t, "sell", SideSell.String())
	assert.Equal(t, "limit", TypeLimit.String())
	assert.Equal(t, "open", StatusOpen.String())
	assert.True(t, StatusClosed.IsTerminal())
	assert.True(t, StatusCanceled.IsTerminal())
	assert.False(t, StatusOpen.IsTerminal())
	assert.Equal(t, "public", TierPublic.String())
	assert.Equal(t, "fetchOpenOrders", OpFetchOpenOrders.String())
}

func TestRequiredCheck(t *testing.T) {
	r := Required{APIKey: true, Secret: true, Password: true}

	assert.Equal(t, "apiKey", r.Check(nil))
	assert.Equal(t, "secret", r.Check(&Credentials{APIKey: "k"}))
	assert.Equal(t, "password", r.Check(&Credentials{APIKey: "k", Secret: "s"}))
	assert.Empty(t, r.Check(&Credentials{APIKey: "k", Secret: "s", Password: "p"}))
	assert.Empty(t, Required{}.Check(nil))
}
