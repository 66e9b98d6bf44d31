package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/cockroachdb/apd/v3"

	"omniex/pkg/core"
)

// Binding ties one unified operation to a catalogue endpoint.
type Binding struct {
	Tier core.AccessTier
	Verb string
	Path string
}

// TradingFees holds the backend's default maker/taker rates.
type TradingFees struct {
	Maker *apd.Decimal
	Taker *apd.Decimal
}

// BroadRule is one substring-match entry of the exception table.
type BroadRule struct {
	Substring string
	Kind      core.ErrorKind
}

// Exceptions is a backend's error-classification table: an exact code lookup
// and an ordered broad substring fallback.
type Exceptions struct {
	Exact map[string]core.ErrorKind
	Broad []BroadRule
}

// Definition is the immutable, fully-resolved description of one backend,
// produced by deep-merging its override chain and decoding the result. A
// client instance holds exactly one Definition for its lifetime.
type Definition struct {
	ID   string
	Name string
	// APIURLs maps access tier names to base URLs.
	APIURLs map[string]string
	// Has flags the operations the backend supports.
	Has map[string]bool
	// RequiredCredentials declares the credential fields private calls need.
	RequiredCredentials core.Required
	// Catalogue is the compiled endpoint registry.
	Catalogue *Catalogue
	// Bindings resolve unified operations to catalogue endpoints.
	Bindings map[core.Operation]Binding
	// Fees are the default trading rates stamped onto parsed markets.
	Fees TradingFees
	// RateLimit is the minimum interval between requests.
	RateLimit time.Duration
	// CommonCurrencies renames backend-native tickers to unified codes.
	CommonCurrencies map[string]string
	// Exceptions classify backend-reported errors.
	Exceptions Exceptions
	// Options are free-form backend tuning knobs.
	Options Document
	// Doc is the merged source document the definition was decoded from.
	Doc Document
}

// Decode turns a merged document into a validated Definition. Any structural
// problem is a configuration error surfaced now, at initialization.
func Decode(doc Document) (*Definition, error) {
	id := doc.String("id", "")
	if id == "" {
		return nil, core.NewConfigurationError("?", "definition has no id")
	}

	urls := doc.Section("urls").StringMap("api")
	api := doc.Section("api")
	cat, err := compileCatalogue(id, api, urls)
	if err != nil {
		return nil, err
	}

	def := &Definition{
		ID:               id,
		Name:             doc.String("name", id),
		APIURLs:          urls,
		Has:              doc.BoolMap("has"),
		Catalogue:        cat,
		Fees:             decodeFees(doc),
		RateLimit:        decodeRateLimit(doc),
		CommonCurrencies: doc.StringMap("commonCurrencies"),
		Exceptions:       decodeExceptions(doc.Section("exceptions")),
		Options:          doc.Section("options"),
		Doc:              doc,
	}

	creds := doc.BoolMap("requiredCredentials")
	def.RequiredCredentials = core.Required{
		APIKey:   creds["apiKey"],
		Secret:   creds["secret"],
		Password: creds["password"],
	}

	def.Bindings, err = decodeBindings(id, doc.Section("operations"), cat)
	if err != nil {
		return nil, err
	}

	return def, nil
}

func decodeFees(doc Document) TradingFees {
	trading := doc.Section("fees").Section("trading")
	return TradingFees{
		Maker: core.ParseDecimal(trading["maker"]),
		Taker: core.ParseDecimal(trading["taker"]),
	}
}

func decodeRateLimit(doc Document) time.Duration {
	ms := core.ParseDecimal(doc["rateLimit"])
	if ms == nil {
		return 2 * time.Second
	}
	i64, err := ms.Int64()
	if err != nil || i64 <= 0 {
		return 2 * time.Second
	}
	return time.Duration(i64) * time.Millisecond
}

func decodeExceptions(section Document) Exceptions {
	exc := Exceptions{Exact: make(map[string]core.ErrorKind)}
	for code, kindName := range section.StringMap("exact") {
		exc.Exact[code] = core.ParseErrorKind(kindName)
	}
	for substr, kindName := range section.StringMap("broad") {
		exc.Broad = append(exc.Broad, BroadRule{
			Substring: substr,
			Kind:      core.ParseErrorKind(kindName),
		})
	}
	// Longest substring first so the most specific rule wins; ties break
	// lexicographically to keep classification deterministic.
	sort.Slice(exc.Broad, func(i, j int) bool {
		a, b := exc.Broad[i].Substring, exc.Broad[j].Substring
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})
	return exc
}

func decodeBindings(backendID string, section Document, cat *Catalogue) (map[core.Operation]Binding, error) {
	bindings := make(map[core.Operation]Binding, len(section))
	byName := make(map[string]core.Operation, len(core.Operations()))
	for _, op := range core.Operations() {
		byName[op.String()] = op
	}
	for opName := range section {
		op, known := byName[opName]
		if !known {
			return nil, core.NewConfigurationError(backendID,
				fmt.Sprintf("operation binding for unknown operation %q", opName))
		}
		entry := section.Section(opName)
		tierName := entry.String("tier", "public")
		tier, ok := core.ParseAccessTier(tierName)
		if !ok {
			return nil, core.NewConfigurationError(backendID,
				fmt.Sprintf("operation %q bound to undeclared access tier %q", opName, tierName))
		}
		verb := normalizeVerb(entry.String("method", "GET"))
		path := entry.String("path", "")
		if _, found := cat.Lookup(tier, verb, path); !found {
			return nil, core.NewConfigurationError(backendID,
				fmt.Sprintf("operation %q bound to %s %s %q which is not in the catalogue", opName, tierName, verb, path))
		}
		bindings[op] = Binding{Tier: tier, Verb: verb, Path: path}
	}
	return bindings, nil
}

// Supports reports whether the backend advertises the operation and has an
// endpoint bound for it.
func (d *Definition) Supports(op core.Operation) bool {
	if has, declared := d.Has[op.String()]; declared && !has {
		return false
	}
	_, bound := d.Bindings[op]
	return bound
}

// Binding returns the endpoint binding for an operation.
func (d *Definition) Binding(op core.Operation) (Binding, bool) {
	b, ok := d.Bindings[op]
	return b, ok
}

// BaseURL returns the base URL of an access tier.
func (d *Definition) BaseURL(tier core.AccessTier) string {
	return d.APIURLs[tier.String()]
}

// CommonCurrencyCode applies the rename table to a backend-native ticker.
func (d *Definition) CommonCurrencyCode(code string) string {
	if renamed, ok := d.CommonCurrencies[code]; ok {
		return renamed
	}
	return code
}
