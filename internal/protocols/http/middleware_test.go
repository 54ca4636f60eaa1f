package http

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserLimiterEvictsIdleBuckets(t *testing.T) {
	l := newUserLimiter(1, 1)
	require.NotNil(t, l)
	assert.Equal(t, minLimiterIdle, l.idleTTL)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("alice"))
	assert.False(t, l.allow("alice"), "burst of one is spent")
	assert.True(t, l.allow("bob"))
	assert.Len(t, l.limiters, 2)

	now = now.Add(30 * time.Second)
	assert.True(t, l.allow("bob"))
	assert.Len(t, l.limiters, 2, "nothing idle long enough yet")

	now = now.Add(2 * time.Minute)
	assert.True(t, l.allow("carol"))
	assert.Len(t, l.limiters, 1, "alice and bob were idle past the TTL")
	assert.Contains(t, l.limiters, "carol")

	assert.True(t, l.allow("alice"), "an evicted user starts with a full bucket")
}

func TestUserLimiterIdleCoversRefill(t *testing.T) {
	l := newUserLimiter(0.01, 10)
	assert.Equal(t, 1000*time.Second, l.idleTTL)

	assert.Nil(t, newUserLimiter(0, 10), "zero rate disables throttling")
}
