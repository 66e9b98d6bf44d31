package core

import "maps"

// Params carries the loosely-typed parameters of one operation call. Keys
// consumed by path placeholders are removed before the remainder becomes
// query or body content.
type Params map[string]any

// Clone returns a shallow copy, safe against nil receivers.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	maps.Copy(out, p)
	return out
}

// Request is a fully-formed outgoing HTTP request as produced by a signer:
// absolute URL with path placeholders already substituted, verb, headers,
// and an optional pre-encoded body.
type Request struct {
	Method      string            `json:"method"`
	URL         string            `json:"url"`
	Query       map[string]string `json:"query,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	Body        []byte            `json:"body,omitempty"`
	ContentType string            `json:"contentType,omitempty"`
}

// NewRequest creates a Request for the given verb and absolute URL.
func NewRequest(method, url string) *Request {
	return &Request{
		Method:  method,
		URL:     url,
		Query:   make(map[string]string),
		Headers: make(map[string]string),
	}
}

// SetQuery adds a single query parameter and returns the request for chaining.
func (r *Request) SetQuery(key, value string) *Request {
	if r.Query == nil {
		r.Query = make(map[string]string)
	}
	r.Query[key] = value
	return r
}

// SetQueryParams copies all entries of params into the query string.
func (r *Request) SetQueryParams(params map[string]string) *Request {
	if r.Query == nil {
		r.Query = make(map[string]string)
	}
	maps.Copy(r.Query, params)
	return r
}

// SetHeader sets a single header and returns the request for chaining.
func (r *Request) SetHeader(key, value string) *Request {
	if r.Headers == nil {
		r.Headers = make(map[string]string)
	}
	r.Headers[key] = value
	return r
}

// SetBody attaches a pre-encoded body with its content type.
func (r *Request) SetBody(body []byte, contentType string) *Request {
	r.Body = body
	r.ContentType = contentType
	return r
}
