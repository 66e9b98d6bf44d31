package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omniex/pkg/config"
	"omniex/pkg/core"
)

func newTestClassifier() *Classifier {
	return New("testbackend", Envelope{SuccessKey: "success"}, config.Exceptions{
		Exact: map[string]core.ErrorKind{
			"-2011":        core.KindOrderNotFound,
			"1002":         core.KindInsufficientFunds,
			"invalid sign": core.KindAuthentication,
		},
		Broad: []config.BroadRule{
			{Substring: "invalid order", Kind: core.KindInvalidOrder},
			{Substring: "invalid", Kind: core.KindInvalidOrder},
			{Substring: "Requests too often", Kind: core.KindRateLimit},
			{Substring: "not available", Kind: core.KindServiceUnavailable},
		},
	})
}

func TestClassifyExactCode(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		name string
		body string
		want core.ErrorKind
	}{
		{
			name: "string code",
			body: `{"code":"-2011","msg":"anything at all"}`,
			want: core.KindOrderNotFound,
		},
		{
			name: "numeric code",
			body: `{"code":-2011,"msg":"Unknown order sent."}`,
			want: core.KindOrderNotFound,
		},
		{
			name: "exact message",
			body: `{"success":0,"error":"invalid sign"}`,
			want: core.KindAuthentication,
		},
		{
			name: "nested error object",
			body: `{"error":{"code":1002,"message":"balance too low"}}`,
			want: core.KindInsufficientFunds,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Classify(core.OpCreateOrder, 200, []byte(tt.body))
			require.NotNil(t, err)
			assert.Equal(t, tt.want, err.Kind)
			assert.Equal(t, "testbackend", err.Backend)
			assert.Equal(t, "createOrder", err.Operation)
		})
	}
}

func TestClassifyExactBeatsBroad(t *testing.T) {
	c := newTestClassifier()

	// The message matches the broad "invalid" rule but the code decides.
	err := c.Classify(core.OpCancelOrder, 200, []byte(`{"code":"-2011","msg":"invalid order id"}`))
	assert.Equal(t, core.KindOrderNotFound, err.Kind)
}

func TestClassifyBroadLongestFirst(t *testing.T) {
	c := newTestClassifier()

	// "invalid order xyz" contains both "invalid" and "invalid order"; the
	// longer substring must win regardless of insertion order.
	err := c.Classify(core.OpCreateOrder, 200, []byte(`{"error":"invalid order xyz"}`))
	assert.Equal(t, core.KindInvalidOrder, err.Kind)

	err = c.Classify(core.OpFetchTicker, 200, []byte(`{"error":"market data not available"}`))
	assert.Equal(t, core.KindServiceUnavailable, err.Kind)
}

func TestClassifyFallbacks(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		name   string
		status int
		body   string
		want   core.ErrorKind
	}{
		{name: "unauthorized", status: 401, body: `{}`, want: core.KindAuthentication},
		{name: "rate limited", status: 429, body: ``, want: core.KindRateLimit},
		{name: "server error", status: 502, body: `<html>Bad Gateway</html>`, want: core.KindServiceUnavailable},
		{name: "unclassified", status: 400, body: `{"weird":"shape"}`, want: core.KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Classify(core.OpFetchBalance, tt.status, []byte(tt.body))
			assert.Equal(t, tt.want, err.Kind)
			assert.Equal(t, tt.status, err.StatusCode)
		})
	}
}

func TestClassifyUnknownCarriesRaw(t *testing.T) {
	c := newTestClassifier()

	body := []byte(`{"weird":"shape"}`)
	err := c.Classify(core.OpFetchBalance, 400, body)
	assert.Equal(t, core.KindUnknown, err.Kind)
	assert.Equal(t, body, err.Raw)
	assert.NotEmpty(t, err.Message)
}

func TestClassifyIsPure(t *testing.T) {
	c := newTestClassifier()
	body := []byte(`{"code":"1002","msg":"x"}`)

	first := c.Classify(core.OpCreateOrder, 200, body)
	for i := 0; i < 10; i++ {
		again := c.Classify(core.OpCreateOrder, 200, body)
		assert.Equal(t, first.Kind, again.Kind)
		assert.Equal(t, first.Code, again.Code)
	}
}

func TestFailureEnvelope(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		name   string
		status int
		body   string
		want   bool
	}{
		{name: "plain success", status: 200, body: `{"success":1,"return":{}}`, want: false},
		{name: "embedded failure int", status: 200, body: `{"success":0,"error":"no orders"}`, want: true},
		{name: "embedded failure bool", status: 200, body: `{"success":false}`, want: true},
		{name: "http error", status: 500, body: `{}`, want: true},
		{name: "no envelope", status: 200, body: `[1,2,3]`, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Failure(tt.status, []byte(tt.body)))
		})
	}
}

func TestFailureCodeEnvelope(t *testing.T) {
	c := New("okxlike", Envelope{CodeOK: "0"}, config.Exceptions{})

	assert.False(t, c.Failure(200, []byte(`{"code":"0","data":[]}`)))
	assert.True(t, c.Failure(200, []byte(`{"code":"33014","msg":"order does not exist"}`)))
}

func TestBackendTableOverridesDefault(t *testing.T) {
	c := New("b", Envelope{}, config.Exceptions{
		Broad: []config.BroadRule{{Substring: "maintenance", Kind: core.KindServiceUnavailable}},
		Exact: map[string]core.ErrorKind{"cloudflare": core.KindRateLimit},
	})

	err := c.Classify(core.OpFetchMarkets, 200, []byte(`{"msg":"maintenance window"}`))
	require.Equal(t, core.KindServiceUnavailable, err.Kind)
	assert.True(t, err.Retryable())
}
