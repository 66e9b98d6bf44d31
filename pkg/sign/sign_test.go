package sign

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omniex/pkg/core"
)

func TestNonceMonotonicUnderConcurrency(t *testing.T) {
	n := NewNonce()

	const goroutines = 32
	const perGoroutine = 50

	var mu sync.Mutex
	var all []int64
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]int64, 0, perGoroutine)
			for i := 0; i < perGoroutine; i++ {
				local = append(local, n.Next())
			}
			mu.Lock()
			all = append(all, local...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, all, goroutines*perGoroutine)
	seen := make(map[int64]bool, len(all))
	for _, v := range all {
		assert.False(t, seen[v], "nonce %d issued twice", v)
		seen[v] = true
	}
	assert.Equal(t, n.Peek(), maxOf(all))
}

func maxOf(vs []int64) int64 {
	m := vs[0]
	for _, v := range vs[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func TestPublicSignerQueryAndBody(t *testing.T) {
	req, err := Public{}.Sign(&Payload{
		BaseURL: "https://venue.example/api",
		Path:    "depth/eth_btc",
		Verb:    "GET",
		Params:  core.Params{"limit": 50},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://venue.example/api/depth/eth_btc", req.URL)
	assert.Equal(t, "50", req.Query["limit"])
	assert.Nil(t, req.Body)

	req, err = Public{}.Sign(&Payload{
		BaseURL: "https://venue.example/api",
		Path:    "submit",
		Verb:    "POST",
		Params:  core.Params{"a": 1},
	})
	require.NoError(t, err)
	assert.Equal(t, "application/x-www-form-urlencoded", req.ContentType)
	assert.Equal(t, "a=1", string(req.Body))
}

func TestBodyHMACSignsEncodedBody(t *testing.T) {
	s := &BodyHMAC{
		Nonce:      NewNonce(),
		PathField:  "method",
		KeyHeader:  "Key",
		SignHeader: "Sign",
	}
	req, err := s.Sign(&Payload{
		BaseURL:     "https://venue.example/tapi",
		Path:        "getInfo",
		Verb:        "POST",
		Tier:        core.TierPrivate,
		Params:      core.Params{"pair": "eth_btc"},
		Credentials: &core.Credentials{APIKey: "api-key", Secret: "topsecret"},
	})
	require.NoError(t, err)

	assert.Equal(t, "https://venue.example/tapi", req.URL, "endpoint travels in the body, not the path")
	assert.Equal(t, "api-key", req.Headers["Key"])

	values, err := url.ParseQuery(string(req.Body))
	require.NoError(t, err)
	assert.Equal(t, "getInfo", values.Get("method"))
	assert.Equal(t, "eth_btc", values.Get("pair"))
	assert.NotEmpty(t, values.Get("nonce"))

	mac := hmac.New(sha512.New, []byte("topsecret"))
	mac.Write(req.Body)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), req.Headers["Sign"])
}

func TestBodyHMACRequiresSecret(t *testing.T) {
	s := &BodyHMAC{Nonce: NewNonce(), KeyHeader: "Key", SignHeader: "Sign"}
	_, err := s.Sign(&Payload{Credentials: &core.Credentials{APIKey: "k"}})
	assert.Error(t, err)

	_, err = s.Sign(&Payload{})
	assert.Error(t, err)
}

func TestHeaderHMACCanonicalPayload(t *testing.T) {
	frozen := time.Date(2020, 5, 1, 12, 0, 0, 0, time.UTC)
	s := &HeaderHMAC{
		Digest:           SHA256,
		Encoding:         Base64,
		Timestamp:        ISO8601,
		KeyHeader:        "OK-ACCESS-KEY",
		SignHeader:       "OK-ACCESS-SIGN",
		TimestampHeader:  "OK-ACCESS-TIMESTAMP",
		PassphraseHeader: "OK-ACCESS-PASSPHRASE",
		Now:              func() time.Time { return frozen },
	}

	req, err := s.Sign(&Payload{
		BaseURL:     "https://venue.example/api",
		Path:        "spot/v3/orders",
		Verb:        "POST",
		Tier:        core.TierPrivate,
		Params:      core.Params{"instrument_id": "ETH-BTC"},
		Credentials: &core.Credentials{APIKey: "k", Secret: "s", Password: "pp"},
	})
	require.NoError(t, err)

	ts := "2020-05-01T12:00:00.000Z"
	assert.Equal(t, ts, req.Headers["OK-ACCESS-TIMESTAMP"])
	assert.Equal(t, "pp", req.Headers["OK-ACCESS-PASSPHRASE"])
	assert.Equal(t, "application/json", req.ContentType)

	// The canonical string includes the base URL's own path segment.
	payload := ts + "POST" + "/api/spot/v3/orders" + string(req.Body)
	mac := hmac.New(sha256.New, []byte("s"))
	mac.Write([]byte(payload))
	assert.Equal(t, base64.StdEncoding.EncodeToString(mac.Sum(nil)), req.Headers["OK-ACCESS-SIGN"])
}

func TestHeaderHMACSignsQueryOnGet(t *testing.T) {
	frozen := time.Date(2020, 5, 1, 12, 0, 0, 0, time.UTC)
	s := &HeaderHMAC{
		Digest:          SHA256,
		Encoding:        Hex,
		Timestamp:       UnixMilli,
		KeyHeader:       "X-Key",
		SignHeader:      "X-Sign",
		TimestampHeader: "X-Ts",
		Now:             func() time.Time { return frozen },
	}

	req, err := s.Sign(&Payload{
		BaseURL:     "https://venue.example/api",
		Path:        "spot/v3/fills",
		Verb:        "GET",
		Params:      core.Params{"order_id": "42", "limit": 10},
		Credentials: &core.Credentials{APIKey: "k", Secret: "s"},
	})
	require.NoError(t, err)
	assert.Equal(t, "1588334400000", req.Headers["X-Ts"])
	assert.Nil(t, req.Body)
	assert.Equal(t, "42", req.Query["order_id"])

	payload := "1588334400000GET/api/spot/v3/fills?limit=10&order_id=42"
	mac := hmac.New(sha256.New, []byte("s"))
	mac.Write([]byte(payload))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), req.Headers["X-Sign"])
}

func TestEncodeFormDeterministic(t *testing.T) {
	params := core.Params{"b": 2, "a": 1, "c": "x y"}
	first := EncodeForm(params)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, EncodeForm(params))
	}
	assert.Equal(t, "a=1&b=2&c=x+y", first)
}
