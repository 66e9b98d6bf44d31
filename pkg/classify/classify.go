// Package classify turns raw backend responses into typed errors. A
// classifier is built once per client from the merged exception tables of the
// backend definition; Classify itself is pure and safe for concurrent use.
package classify

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"omniex/pkg/config"
	"omniex/pkg/core"
)

// codeKeys and messageKeys are probed in order when extracting the
// backend-reported error code and description from a payload.
var (
	codeKeys    = []string{"code", "error_code", "errorCode", "ret_code", "sCode"}
	messageKeys = []string{"message", "msg", "error", "error_message", "errMsg", "description", "sMsg"}
)

// Defaults are classification rules shared by every backend. Backend tables
// merge on top and take precedence.
var Defaults = config.Exceptions{
	Exact: map[string]core.ErrorKind{},
	Broad: []config.BroadRule{
		{Substring: "Too Many Requests", Kind: core.KindRateLimit},
		{Substring: "Service Unavailable", Kind: core.KindServiceUnavailable},
		{Substring: "Internal Server Error", Kind: core.KindServiceUnavailable},
		{Substring: "Bad Gateway", Kind: core.KindServiceUnavailable},
		{Substring: "Gateway Time-out", Kind: core.KindServiceUnavailable},
		{Substring: "cloudflare", Kind: core.KindServiceUnavailable},
		{Substring: "maintenance", Kind: core.KindServiceUnavailable},
	},
}

// Envelope controls how a 2xx body is inspected for an embedded failure.
// Some backends always answer HTTP 200 and report the outcome inside the
// payload instead.
type Envelope struct {
	// SuccessKey, when non-empty, names a field whose falsy value (false,
	// 0, "0", "false") marks the call as failed.
	SuccessKey string
	// CodeOK, when non-empty, means any extracted code different from this
	// value marks the call as failed.
	CodeOK string
}

// Classifier maps one backend's raw responses to error kinds.
type Classifier struct {
	backend  string
	envelope Envelope
	exact    map[string]core.ErrorKind
	broad    []config.BroadRule
}

// New builds a classifier for a backend. Tables merge in order on top of
// Defaults: later exact entries override earlier ones, broad rules combine
// and keep the longest-substring-first order so the most specific rule wins.
func New(backend string, envelope Envelope, tables ...config.Exceptions) *Classifier {
	exact := make(map[string]core.ErrorKind, len(Defaults.Exact))
	var broad []config.BroadRule

	all := append([]config.Exceptions{Defaults}, tables...)
	seen := make(map[string]int)
	for _, t := range all {
		for code, kind := range t.Exact {
			exact[code] = kind
		}
		for _, rule := range t.Broad {
			if i, ok := seen[rule.Substring]; ok {
				broad[i] = rule
				continue
			}
			seen[rule.Substring] = len(broad)
			broad = append(broad, rule)
		}
	}
	sort.SliceStable(broad, func(i, j int) bool {
		a, b := broad[i].Substring, broad[j].Substring
		if len(a) != len(b) {
			return len(a) > len(b)
		}
		return a < b
	})

	return &Classifier{backend: backend, envelope: envelope, exact: exact, broad: broad}
}

// Failure reports whether the exchange failed: any non-2xx status, or a 2xx
// body whose envelope carries an embedded failure marker.
func (c *Classifier) Failure(status int, body []byte) bool {
	if status < 200 || status >= 300 {
		return true
	}
	doc := decode(body)
	if doc == nil {
		return false
	}
	if c.envelope.SuccessKey != "" {
		if v, ok := doc[c.envelope.SuccessKey]; ok && falsy(v) {
			return true
		}
	}
	if c.envelope.CodeOK != "" {
		if code, _ := extract(doc); code != "" && code != c.envelope.CodeOK {
			return true
		}
	}
	return false
}

// Classify produces the typed error for a failed exchange. Given the same
// inputs it always returns the same kind: exact code match first, then exact
// message match, then the first broad substring found in the message, then a
// status-derived fallback, and finally Unknown with the raw payload attached.
func (c *Classifier) Classify(op core.Operation, status int, body []byte) *core.BackendError {
	code, message := extract(decode(body))

	kind, ok := c.lookup(code, message)
	if !ok {
		kind = fallbackKind(status)
	}
	if message == "" {
		message = strings.TrimSpace(string(body))
		if len(message) > 256 {
			message = message[:256]
		}
	}

	return &core.BackendError{
		Kind:       kind,
		Backend:    c.backend,
		Operation:  op.String(),
		StatusCode: status,
		Code:       code,
		Message:    message,
		Raw:        body,
		Timestamp:  time.Now(),
	}
}

func (c *Classifier) lookup(code, message string) (core.ErrorKind, bool) {
	if code != "" {
		if kind, ok := c.exact[code]; ok {
			return kind, true
		}
	}
	if message != "" {
		if kind, ok := c.exact[message]; ok {
			return kind, true
		}
		for _, rule := range c.broad {
			if strings.Contains(message, rule.Substring) {
				return rule.Kind, true
			}
		}
	}
	return core.KindUnknown, false
}

func fallbackKind(status int) core.ErrorKind {
	switch {
	case status == 401 || status == 403:
		return core.KindAuthentication
	case status == 429 || status == 418:
		return core.KindRateLimit
	case status >= 500:
		return core.KindServiceUnavailable
	default:
		return core.KindUnknown
	}
}

func decode(body []byte) map[string]any {
	var doc map[string]any
	if err := sonic.Unmarshal(body, &doc); err != nil {
		return nil
	}
	return doc
}

// extract pulls the backend-reported code and message out of a payload,
// tolerating the envelope differences between backends: numeric or string
// codes, descriptions under several key names, and errors nested one level
// inside an "error" or "data" object.
func extract(doc map[string]any) (code, message string) {
	if doc == nil {
		return "", ""
	}
	for _, key := range codeKeys {
		if v, ok := doc[key]; ok {
			if s := stringify(v); s != "" {
				code = s
				break
			}
		}
	}
	for _, key := range messageKeys {
		v, ok := doc[key]
		if !ok {
			continue
		}
		switch m := v.(type) {
		case string:
			if m != "" {
				message = m
			}
		case map[string]any:
			nc, nm := extract(m)
			if code == "" {
				code = nc
			}
			if message == "" {
				message = nm
			}
		}
		if message != "" {
			break
		}
	}
	if code == "" && message == "" {
		if nested, ok := doc["data"].(map[string]any); ok {
			return extract(nested)
		}
	}
	return code, message
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}

func falsy(v any) bool {
	switch t := v.(type) {
	case bool:
		return !t
	case float64:
		return t == 0
	case string:
		return t == "0" || strings.EqualFold(t, "false")
	default:
		return false
	}
}
