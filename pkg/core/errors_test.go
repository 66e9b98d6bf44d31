package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorKindRetryability(t *testing.T) {
	retryable := []ErrorKind{KindRateLimit, KindServiceUnavailable, KindTransport}
	for _, k := range retryable {
		assert.True(t, k.Retryable(), k.String())
	}

	fatal := []ErrorKind{
		KindUnknown, KindConfiguration, KindPrecondition, KindAuthentication,
		KindInvalidNonce, KindInvalidOrder, KindOrderNotFound, KindInsufficientFunds,
	}
	for _, k := range fatal {
		assert.False(t, k.Retryable(), k.String())
	}
}

func TestParseErrorKindRoundTrip(t *testing.T) {
	for k := KindUnknown; k <= KindTransport; k++ {
		assert.Equal(t, k, ParseErrorKind(k.String()))
	}
	assert.Equal(t, KindUnknown, ParseErrorKind("NO_SUCH_KIND"))
}

func TestBackendErrorMessage(t *testing.T) {
	e := &BackendError{
		Kind:       KindOrderNotFound,
		Backend:    "venue",
		Operation:  "cancelOrder",
		StatusCode: 400,
		Code:       "833",
		Message:    "order not found",
	}
	msg := e.Error()
	assert.Contains(t, msg, "venue")
	assert.Contains(t, msg, "cancelOrder")
	assert.Contains(t, msg, "ORDER_NOT_FOUND")
	assert.Contains(t, msg, "833")
}

func TestErrorPredicatesUnwrap(t *testing.T) {
	base := NewPreconditionError("venue", "createOrder", "missing credential")
	wrapped := fmt.Errorf("placing order: %w", base)

	assert.True(t, IsPrecondition(wrapped))
	assert.False(t, IsRetryable(wrapped))

	var be *BackendError
	require.True(t, errors.As(wrapped, &be))
	assert.Equal(t, "venue", be.Backend)

	assert.False(t, IsPrecondition(errors.New("plain")))
	assert.True(t, IsTransport(NewBackendError("venue", KindTransport, "timeout")))
	assert.True(t, IsRetryable(NewBackendError("venue", KindRateLimit, "slow down")))
}
