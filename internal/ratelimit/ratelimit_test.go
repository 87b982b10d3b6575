package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowAt_AllowsUpToBurstThenBlocks(t *testing.T) {
	l := New(Config{RequestsPerWindow: 3, Window: time.Minute, IdleEvictAfter: time.Hour})
	now := time.Now()

	for i := 0; i < 3; i++ {
		require.True(t, l.AllowAt("1.2.3.4", now))
	}
	assert.False(t, l.AllowAt("1.2.3.4", now))
}

func TestAllowAt_PerIPIsolation(t *testing.T) {
	l := New(Config{RequestsPerWindow: 1, Window: time.Minute, IdleEvictAfter: time.Hour})
	now := time.Now()

	assert.True(t, l.AllowAt("1.1.1.1", now))
	assert.True(t, l.AllowAt("2.2.2.2", now))
	assert.False(t, l.AllowAt("1.1.1.1", now))
}

func TestAllowAt_RefillsOverWindow(t *testing.T) {
	l := New(Config{RequestsPerWindow: 1, Window: time.Minute, IdleEvictAfter: time.Hour})
	now := time.Now()

	require.True(t, l.AllowAt("1.1.1.1", now))
	assert.False(t, l.AllowAt("1.1.1.1", now))
	assert.True(t, l.AllowAt("1.1.1.1", now.Add(time.Minute+time.Second)))
}

func TestGC_EvictsIdleBuckets(t *testing.T) {
	l := New(Config{RequestsPerWindow: 5, Window: time.Minute, IdleEvictAfter: time.Second})
	now := time.Now()

	l.AllowAt("1.1.1.1", now)
	assert.Equal(t, 1, l.TrackedIPs())

	l.AllowAt("2.2.2.2", now.Add(2*time.Second))
	assert.Equal(t, 1, l.TrackedIPs())
}

func TestNew_FillsZeroValueDefaults(t *testing.T) {
	l := New(Config{})
	assert.Equal(t, 60, l.cfg.RequestsPerWindow)
	assert.Equal(t, time.Minute, l.cfg.Window)
}
