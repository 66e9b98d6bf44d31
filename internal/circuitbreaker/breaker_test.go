package circuitbreaker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	b := New(Config{FailThreshold: 3, Cooldown: time.Hour})

	for i := 0; i < 2; i++ {
		require.True(t, b.Allow())
		b.Record(false)
	}
	assert.Equal(t, StateClosed, b.State(), "below threshold stays closed")

	b.Record(false)
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}

func TestSuccessResetsFailureStreak(t *testing.T) {
	b := New(Config{FailThreshold: 3, Cooldown: time.Hour})

	b.Record(false)
	b.Record(false)
	b.Record(true)
	b.Record(false)
	b.Record(false)
	assert.Equal(t, StateClosed, b.State(), "streak broken by a success")
}

func TestHalfOpenProbeAndRecovery(t *testing.T) {
	b := New(Config{FailThreshold: 1, SuccessThreshold: 2, Cooldown: 10 * time.Millisecond})

	b.Record(false)
	require.Equal(t, StateOpen, b.State())
	require.False(t, b.Allow())

	time.Sleep(15 * time.Millisecond)
	require.True(t, b.Allow(), "cooldown elapsed, probing allowed")
	assert.Equal(t, StateHalfOpen, b.State())

	b.Record(true)
	assert.Equal(t, StateHalfOpen, b.State(), "one success is not enough")
	b.Record(true)
	assert.Equal(t, StateClosed, b.State())
}

func TestHalfOpenFailureReopens(t *testing.T) {
	b := New(Config{FailThreshold: 1, Cooldown: 10 * time.Millisecond})

	b.Record(false)
	time.Sleep(15 * time.Millisecond)
	require.True(t, b.Allow())

	b.Record(false)
	assert.Equal(t, StateOpen, b.State())
	assert.False(t, b.Allow())
}
