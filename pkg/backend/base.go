package backend

import "omniex/pkg/config"

// baseDocument is the ancestor every built-in profile extends: credential
// requirements, the shared rate limit, and the currency renames that predate
// any single venue. Leaves override whatever they need.
func baseDocument() config.Document {
	return config.Document{
		"id":        "base",
		"rateLimit": 2000,
		"requiredCredentials": map[string]any{
			"apiKey": true,
			"secret": true,
		},
		"commonCurrencies": map[string]any{
			"XBT": "BTC",
			"DSH": "DASH",
			"DRK": "DASH",
			"BCC": "BCH",
		},
		"fees": map[string]any{
			"trading": map[string]any{
				"maker": "0.002",
				"taker": "0.002",
			},
		},
		"exceptions": map[string]any{
			"exact": map[string]any{},
			"broad": map[string]any{},
		},
		"options": map[string]any{},
	}
}
