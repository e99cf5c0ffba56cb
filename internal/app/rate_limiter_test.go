package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiterSlidingWindow(t *testing.T) {
	rl := NewRateLimiter(2, time.Second)
	require.NotNil(t, rl)
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("a"))
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
	assert.True(t, rl.Allow("b"), "limits are per connection")

	now = now.Add(1001 * time.Millisecond)
	assert.True(t, rl.Allow("a"))

	rl.Forget("a")
	assert.True(t, rl.Allow("a"), "forget clears the history")
	assert.True(t, rl.Allow("a"))
	assert.False(t, rl.Allow("a"))
}

func TestRateLimiterDisabled(t *testing.T) {
	rl := NewRateLimiter(0, time.Second)
	assert.Nil(t, rl)
	for range 100 {
		assert.True(t, rl.Allow("a"))
	}
	rl.Forget("a")
	assert.Nil(t, NewRateLimiter(5, 0))
}

func TestParseRejoinPolicy(t *testing.T) {
	p, err := ParseRejoinPolicy("")
	require.NoError(t, err)
	assert.Equal(t, RejoinOverwrite, p)

	p, err = ParseRejoinPolicy("leave_first")
	require.NoError(t, err)
	assert.Equal(t, RejoinLeaveFirst, p)

	_, err = ParseRejoinPolicy("ignore")
	assert.Error(t, err)
}
