package normalize

import (
	"strings"

	"github.com/cockroachdb/apd/v3"

	"omniex/pkg/core"
)

// Context carries the lookup state a parse function needs: the loaded market
// and currency maps and the backend's currency rename table. It is rebuilt
// whenever markets are reloaded and is read-only during parsing.
type Context struct {
	Backend string
	// MarketsByID indexes loaded markets by their backend-native id.
	MarketsByID map[string]*core.Market
	// MarketsBySymbol indexes the same markets by unified symbol.
	MarketsBySymbol map[string]*core.Market
	// CommonCurrencies renames backend-native codes to unified ones.
	CommonCurrencies map[string]string
	// Currencies indexes the loaded currency directory by unified code.
	Currencies map[string]*core.Currency
	// MakerFee and TakerFee are the definition's default trading rates,
	// stamped onto parsed markets that do not report their own.
	MakerFee *apd.Decimal
	TakerFee *apd.Decimal
}

// CurrencyCode maps a backend-native currency id to the unified code:
// uppercase, renamed through the common-currency table when listed.
func (c *Context) CurrencyCode(id string) string {
	code := strings.ToUpper(id)
	if c != nil && c.CommonCurrencies != nil {
		if unified, ok := c.CommonCurrencies[code]; ok {
			return unified
		}
	}
	return code
}

// Currency resolves a unified currency code against the loaded directory,
// nil when the directory is not loaded or the code is unknown.
func (c *Context) Currency(code string) *core.Currency {
	if c == nil || c.Currencies == nil {
		return nil
	}
	return c.Currencies[strings.ToUpper(code)]
}

// MarketByID resolves a backend-native market id, nil when unknown.
func (c *Context) MarketByID(id string) *core.Market {
	if c == nil || c.MarketsByID == nil {
		return nil
	}
	return c.MarketsByID[id]
}

// MarketBySymbol resolves a unified symbol, nil when unknown.
func (c *Context) MarketBySymbol(symbol string) *core.Market {
	if c == nil || c.MarketsBySymbol == nil {
		return nil
	}
	return c.MarketsBySymbol[symbol]
}

// SymbolFor returns the unified symbol for a backend-native market id. An
// unknown id falls back to the id itself so raw data stays traceable.
func (c *Context) SymbolFor(id string) string {
	if m := c.MarketByID(id); m != nil {
		return m.Symbol
	}
	return id
}
