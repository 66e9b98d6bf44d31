// Package sign builds transport-ready requests. Each backend authentication
// scheme is a Signer strategy; public calls flow through the same interface
// so placeholder substitution and query encoding happen in exactly one place.
package sign

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"omniex/pkg/core"
)

// Payload is everything a signer needs to produce an outgoing request. Path
// is the endpoint template already expanded; Params are the parameters left
// over after placeholder consumption.
type Payload struct {
	BaseURL     string
	Path        string
	Verb        string
	Tier        core.AccessTier
	Params      core.Params
	Credentials *core.Credentials
}

// Signer turns a Payload into a fully-formed request: URL, method, headers,
// body. Implementations must not perform network I/O.
type Signer interface {
	Sign(p *Payload) (*core.Request, error)
}

// Public is the no-auth scheme: placeholdered path joined to the base URL,
// parameters encoded as a query string for GET-like verbs or a form body
// otherwise.
type Public struct{}

// Sign implements Signer.
func (Public) Sign(p *Payload) (*core.Request, error) {
	req := core.NewRequest(p.Verb, joinURL(p.BaseURL, p.Path))
	if p.Verb == "GET" || p.Verb == "DELETE" {
		req.SetQueryParams(stringifyParams(p.Params))
		return req, nil
	}
	if len(p.Params) > 0 {
		req.SetBody([]byte(EncodeForm(p.Params)), "application/x-www-form-urlencoded")
	}
	return req, nil
}

// EncodeForm url-encodes params with keys sorted, so the encoding (and any
// signature over it) is deterministic.
func EncodeForm(params core.Params) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	values := url.Values{}
	for _, k := range keys {
		values.Set(k, fmt.Sprintf("%v", params[k]))
	}
	return values.Encode()
}

func stringifyParams(params core.Params) map[string]string {
	out := make(map[string]string, len(params))
	for k, v := range params {
		out[k] = fmt.Sprintf("%v", v)
	}
	return out
}

func joinURL(base, path string) string {
	if path == "" {
		return base
	}
	return strings.TrimSuffix(base, "/") + "/" + strings.TrimPrefix(path, "/")
}
