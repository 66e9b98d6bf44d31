// Package backend holds the built-in backend profiles. A profile bundles
// everything that distinguishes one venue from another: its configuration
// document, its signing scheme, its response envelope, and its normalizer
// overrides. The engine itself never special-cases a backend; it only reads
// profiles.
package backend

import (
	"sort"
	"sync"

	"github.com/cockroachdb/apd/v3"

	"omniex/pkg/classify"
	"omniex/pkg/config"
	"omniex/pkg/core"
	"omniex/pkg/normalize"
	"omniex/pkg/sign"
)

// Profile describes one backend to the client engine.
type Profile struct {
	// ID is the backend identifier, unique across registered profiles.
	ID string
	// Doc is the configuration document, merged over its extends chain at
	// resolution time.
	Doc config.Document
	// Envelope tells the classifier how a 2xx body signals failure.
	Envelope classify.Envelope
	// Funcs are the normalizer overrides; nil slots use the defaults.
	Funcs normalize.Funcs
	// NewSigner builds the private-tier signing scheme. Nil means the
	// backend has no authenticated endpoints.
	NewSigner func(nonce *sign.Nonce) sign.Signer
	// BuildOrder renders a new-order request in the backend's parameter
	// vocabulary.
	BuildOrder func(m *core.Market, typ core.OrderType, side core.OrderSide, amount, price *apd.Decimal) core.Params
}

var (
	mu       sync.RWMutex
	profiles = make(map[string]Profile)
)

// Register adds a profile. Built-in profiles register from init; callers may
// add their own before creating clients.
func Register(p Profile) {
	mu.Lock()
	defer mu.Unlock()
	profiles[p.ID] = p
}

// Get returns the profile registered under id.
func Get(id string) (Profile, bool) {
	mu.RLock()
	defer mu.RUnlock()
	p, ok := profiles[id]
	return p, ok
}

// IDs lists the registered backend ids, sorted.
func IDs() []string {
	mu.RLock()
	defer mu.RUnlock()
	ids := make([]string, 0, len(profiles))
	for id := range profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// NewRegistry builds a document registry holding the shared base document
// and every registered profile, ready for Resolve.
func NewRegistry() *config.Registry {
	reg := config.NewRegistry()
	reg.Register("base", baseDocument())

	mu.RLock()
	defer mu.RUnlock()
	for id, p := range profiles {
		reg.Register(id, p.Doc)
	}
	return reg
}
