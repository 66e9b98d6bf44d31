package sign

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"

	"omniex/pkg/core"
)

// Digest selects the HMAC hash function of a scheme.
type Digest int

const (
	// SHA256 digest.
	SHA256 Digest = iota
	// SHA512 digest.
	SHA512
)

// Encoding selects how a scheme renders the HMAC output.
type Encoding int

const (
	// Hex encoding.
	Hex Encoding = iota
	// Base64 encoding.
	Base64
)

// TimestampStyle selects the timestamp representation a scheme signs over.
type TimestampStyle int

const (
	// UnixMilli renders milliseconds since epoch.
	UnixMilli TimestampStyle = iota
	// ISO8601 renders an RFC3339 UTC timestamp with millisecond precision.
	ISO8601
)

// HeaderHMAC signs a canonical payload of timestamp + verb + path (+ body
// for write calls) and carries the credentials in headers. Passphrase-bearing
// schemes set PassphraseHeader to transmit the extra static secret.
type HeaderHMAC struct {
	Digest    Digest
	Encoding  Encoding
	Timestamp TimestampStyle

	KeyHeader        string
	SignHeader       string
	TimestampHeader  string
	PassphraseHeader string

	// Now is the time source, overridable in tests. Nil means time.Now.
	Now func() time.Time
}

// Sign implements Signer. GET-like calls keep their parameters in the query
// string and sign path?query; write calls JSON-encode the parameters as the
// body and sign over it.
func (s *HeaderHMAC) Sign(p *Payload) (*core.Request, error) {
	if p.Credentials == nil || p.Credentials.Secret == "" {
		return nil, fmt.Errorf("header hmac scheme requires a secret")
	}

	full := joinURL(p.BaseURL, p.Path)
	parsed, err := url.Parse(full)
	if err != nil {
		return nil, fmt.Errorf("parse request url: %w", err)
	}
	// The canonical string covers the full URL path, base prefix included.
	requestPath := parsed.Path
	if requestPath == "" {
		requestPath = "/"
	}
	var body []byte
	query := ""
	if p.Verb == "GET" || p.Verb == "DELETE" {
		if len(p.Params) > 0 {
			query = EncodeForm(p.Params)
			requestPath += "?" + query
		}
	} else if len(p.Params) > 0 {
		encoded, err := sonic.Marshal(p.Params)
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = encoded
	}

	ts := s.timestamp()
	payload := ts + p.Verb + requestPath + string(body)
	signature := s.mac(payload, p.Credentials.Secret)

	req := core.NewRequest(p.Verb, full)
	if query != "" {
		req.SetQueryParams(stringifyParams(p.Params))
	}
	if body != nil {
		req.SetBody(body, "application/json")
	}
	req.SetHeader(s.KeyHeader, p.Credentials.APIKey)
	req.SetHeader(s.SignHeader, signature)
	req.SetHeader(s.TimestampHeader, ts)
	if s.PassphraseHeader != "" {
		req.SetHeader(s.PassphraseHeader, p.Credentials.Password)
	}
	return req, nil
}

func (s *HeaderHMAC) timestamp() string {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	t := now().UTC()
	if s.Timestamp == ISO8601 {
		return t.Format("2006-01-02T15:04:05.000Z")
	}
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func (s *HeaderHMAC) mac(payload, secret string) string {
	var newHash func() hash.Hash = sha256.New
	if s.Digest == SHA512 {
		newHash = sha512.New
	}
	h := hmac.New(newHash, []byte(secret))
	h.Write([]byte(payload))
	sum := h.Sum(nil)
	if s.Encoding == Base64 {
		return base64.StdEncoding.EncodeToString(sum)
	}
	return hex.EncodeToString(sum)
}

