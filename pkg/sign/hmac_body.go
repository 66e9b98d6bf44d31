package sign

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"strconv"

	"omniex/pkg/core"
)

// BodyHMAC is the url-encoded body scheme: the nonce and every parameter are
// form-encoded into the request body and the whole body is signed with
// HMAC-SHA512. Credentials travel in headers. Backends of the BTC-e lineage
// address endpoints through a body field rather than the URL path; PathField
// names that field.
type BodyHMAC struct {
	// Nonce is the per-client nonce source. Required.
	Nonce *Nonce

	// PathField carries the endpoint name inside the body ("method" for the
	// BTC-e lineage). When set, the URL is the bare private base URL.
	PathField string

	KeyHeader  string
	SignHeader string
	NonceField string
}

// Sign implements Signer.
func (s *BodyHMAC) Sign(p *Payload) (*core.Request, error) {
	if p.Credentials == nil || p.Credentials.Secret == "" {
		return nil, fmt.Errorf("body hmac scheme requires a secret")
	}
	if s.Nonce == nil {
		return nil, fmt.Errorf("body hmac scheme requires a nonce source")
	}

	params := p.Params.Clone()
	nonceField := s.NonceField
	if nonceField == "" {
		nonceField = "nonce"
	}
	params[nonceField] = strconv.FormatInt(s.Nonce.Next(), 10)

	url := joinURL(p.BaseURL, p.Path)
	if s.PathField != "" {
		params[s.PathField] = p.Path
		url = p.BaseURL
	}

	body := EncodeForm(params)
	h := hmac.New(sha512.New, []byte(p.Credentials.Secret))
	h.Write([]byte(body))
	signature := hex.EncodeToString(h.Sum(nil))

	req := core.NewRequest(p.Verb, url)
	req.SetBody([]byte(body), "application/x-www-form-urlencoded")
	req.SetHeader(s.KeyHeader, p.Credentials.APIKey)
	req.SetHeader(s.SignHeader, signature)
	return req, nil
}
