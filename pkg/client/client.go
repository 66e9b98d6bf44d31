// Package client is the unified trading-venue client: one instance per
// backend account, dispatching unified operations through the backend's
// declarative definition. The instance owns its own rate limiter, nonce
// counter, and order cache; nothing is shared across instances.
package client

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"omniex/internal/circuitbreaker"
	"omniex/internal/ratelimit"
	"omniex/internal/transport"
	"omniex/pkg/backend"
	"omniex/pkg/classify"
	"omniex/pkg/config"
	"omniex/pkg/core"
	"omniex/pkg/normalize"
	"omniex/pkg/ordercache"
	"omniex/pkg/sign"
)

// Client executes unified operations against one backend.
type Client struct {
	def        *config.Definition
	settings   *config.Settings
	creds      *core.Credentials
	profile    backend.Profile
	signerPub  sign.Signer
	signerPriv sign.Signer
	transport  *transport.Client
	limiter    *ratelimit.Limiter
	nonce      *sign.Nonce
	classifier *classify.Classifier
	funcs      normalize.Funcs
	cache      *ordercache.Cache
	logger     zerolog.Logger

	marketsMu  sync.RWMutex
	markets    map[string]*core.Market // by unified symbol
	currencies map[string]*core.Currency
	nctx       *normalize.Context
}

// Option customizes a client at construction time.
type Option func(*options)

type options struct {
	creds    *core.Credentials
	settings *config.Settings
	logger   *zerolog.Logger
	registry *config.Registry
	apiURLs  map[string]string
	breaker  *circuitbreaker.Breaker
}

// WithCredentials supplies the account's API credentials.
func WithCredentials(creds core.Credentials) Option {
	return func(o *options) { o.creds = &creds }
}

// WithSettings replaces the default client settings.
func WithSettings(s *config.Settings) Option {
	return func(o *options) { o.settings = s }
}

// WithLogger sets the logger the client and its transport write to.
func WithLogger(logger zerolog.Logger) Option {
	return func(o *options) { o.logger = &logger }
}

// WithRegistry resolves the backend definition from a caller-supplied
// document registry instead of the built-in profiles.
func WithRegistry(reg *config.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// WithAPIURL overrides the base URL of one access tier, typically to point a
// client at a test server.
func WithAPIURL(tier, url string) Option {
	return func(o *options) {
		if o.apiURLs == nil {
			o.apiURLs = make(map[string]string)
		}
		o.apiURLs[tier] = url
	}
}

// WithCircuitBreaker guards the transport with a breaker.
func WithCircuitBreaker(cfg circuitbreaker.Config) Option {
	return func(o *options) { o.breaker = circuitbreaker.New(cfg) }
}

// New builds a client for a registered backend profile. The definition is
// fully resolved and validated here: a malformed catalogue or binding fails
// construction, never a later call.
func New(backendID string, opts ...Option) (*Client, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	profile, ok := backend.Get(backendID)
	if !ok {
		return nil, core.NewConfigurationError(backendID, "no such backend profile")
	}

	reg := o.registry
	if reg == nil {
		reg = backend.NewRegistry()
	}
	def, err := reg.Resolve(backendID)
	if err != nil {
		return nil, err
	}
	for tier, url := range o.apiURLs {
		def.APIURLs[tier] = url
	}

	settings := o.settings
	if settings == nil {
		settings = config.DefaultSettings()
	}
	if err := settings.Validate(); err != nil {
		return nil, core.NewConfigurationError(backendID, fmt.Sprintf("invalid settings: %v", err))
	}

	logger := zerolog.New(os.Stderr).With().Timestamp().Str("backend", backendID).Logger()
	if o.logger != nil {
		logger = o.logger.With().Str("backend", backendID).Logger()
	}
	if lvl, err := zerolog.ParseLevel(settings.LogLevel); err == nil && settings.LogLevel != "" {
		logger = logger.Level(lvl)
	}

	interval := def.RateLimit
	if settings.RateLimit > 0 {
		interval = settings.RateLimit
	}
	limiter := ratelimit.New(interval)

	tr := transport.NewClient(transport.Options{
		Backend:      backendID,
		Timeout:      settings.Timeout,
		MaxRetries:   settings.MaxRetries,
		RetryWaitMin: settings.RetryWaitMin,
		RetryWaitMax: settings.RetryWaitMax,
	}, limiter, o.breaker, logger)

	nonce := sign.NewNonce()
	c := &Client{
		def:        def,
		settings:   settings,
		creds:      o.creds,
		profile:    profile,
		signerPub:  sign.Public{},
		transport:  tr,
		limiter:    limiter,
		nonce:      nonce,
		classifier: classify.New(backendID, profile.Envelope, def.Exceptions),
		funcs:      profile.Funcs.WithDefaults(),
		cache:      ordercache.New(),
		logger:     logger,
	}
	if profile.NewSigner != nil {
		c.signerPriv = profile.NewSigner(nonce)
	}
	c.nctx = &normalize.Context{
		Backend:          backendID,
		CommonCurrencies: def.CommonCurrencies,
		MakerFee:         def.Fees.Maker,
		TakerFee:         def.Fees.Taker,
	}
	return c, nil
}

// ID returns the backend identifier.
func (c *Client) ID() string { return c.def.ID }

// Definition exposes the resolved backend definition.
func (c *Client) Definition() *config.Definition { return c.def }

// Has reports whether the backend supports a unified operation.
func (c *Client) Has(op core.Operation) bool { return c.def.Supports(op) }

// Orders exposes the client's order cache.
func (c *Client) Orders() *ordercache.Cache { return c.cache }

// Close releases the transport.
func (c *Client) Close() error { return c.transport.Close() }

// invoke dispatches one unified operation: binding lookup, precondition
// checks, placeholder expansion, signing, transport, success-shape check,
// and payload decoding. Every failure surfaces as a BackendError naming the
// backend and operation; precondition failures return before any network
// I/O.
func (c *Client) invoke(ctx context.Context, op core.Operation, params core.Params) (any, error) {
	binding, bound := c.def.Binding(op)
	if !bound || !c.def.Supports(op) {
		return nil, core.NewPreconditionError(c.def.ID, op.String(),
			fmt.Sprintf("operation %s is not supported", op))
	}

	signer := c.signerPub
	if binding.Tier == core.TierPrivate {
		if missing := c.def.RequiredCredentials.Check(c.creds); missing != "" {
			return nil, core.NewPreconditionError(c.def.ID, op.String(),
				fmt.Sprintf("missing required credential %q", missing))
		}
		if c.signerPriv == nil {
			return nil, core.NewPreconditionError(c.def.ID, op.String(),
				"backend has no private signing scheme")
		}
		signer = c.signerPriv
	}

	endpoint, ok := c.def.Catalogue.Lookup(binding.Tier, binding.Verb, binding.Path)
	if !ok {
		return nil, core.NewConfigurationError(c.def.ID,
			fmt.Sprintf("binding for %s names endpoint %s %s %q missing from the catalogue",
				op, binding.Tier, binding.Verb, binding.Path))
	}
	path, rest, err := endpoint.Expand(params)
	if err != nil {
		return nil, core.NewPreconditionError(c.def.ID, op.String(), err.Error())
	}

	req, err := signer.Sign(&sign.Payload{
		BaseURL:     c.def.BaseURL(binding.Tier),
		Path:        path,
		Verb:        binding.Verb,
		Tier:        binding.Tier,
		Params:      rest,
		Credentials: c.creds,
	})
	if err != nil {
		return nil, core.NewPreconditionError(c.def.ID, op.String(), err.Error())
	}

	resp, err := c.transport.Do(ctx, req)
	if err != nil {
		var be *core.BackendError
		if errors.As(err, &be) && be.Operation == "" {
			be.Operation = op.String()
		}
		return nil, err
	}

	if c.classifier.Failure(resp.StatusCode, resp.Body) {
		return nil, c.classifier.Classify(op, resp.StatusCode, resp.Body)
	}

	var decoded any
	if len(resp.Body) > 0 {
		if err := sonic.Unmarshal(resp.Body, &decoded); err != nil {
			e := c.classifier.Classify(op, resp.StatusCode, resp.Body)
			e.Message = fmt.Sprintf("undecodable response: %v", err)
			return nil, e
		}
	}
	return c.unwrap(decoded), nil
}

// unwrap strips the backend's result envelope when the definition declares
// one.
func (c *Client) unwrap(decoded any) any {
	key := c.def.Options.String("resultKey", "")
	if key == "" {
		return decoded
	}
	if m, ok := decoded.(map[string]any); ok {
		if inner, present := m[key]; present {
			return inner
		}
	}
	return decoded
}

// asMap returns decoded as an object, nil otherwise.
func asMap(decoded any) map[string]any {
	m, _ := decoded.(map[string]any)
	return m
}

// asList returns decoded as an array, nil otherwise.
func asList(decoded any) []any {
	l, _ := decoded.([]any)
	return l
}

func (c *Client) precondition(op core.Operation, format string, args ...any) error {
	return core.NewPreconditionError(c.def.ID, op.String(), fmt.Sprintf(format, args...))
}
