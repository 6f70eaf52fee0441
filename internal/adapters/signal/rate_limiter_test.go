package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/avheld/coview/internal/domain"
)

func TestChatLimiter_BurstThenThrottle(t *testing.T) {
	cl := NewChatLimiter(1, 3)
	conn := domain.ConnID("c1")

	for i := 0; i < 3; i++ {
		assert.True(t, cl.Allow(conn), "within burst")
	}
	assert.False(t, cl.Allow(conn), "burst exhausted")
}

func TestChatLimiter_PerConnectionBuckets(t *testing.T) {
	cl := NewChatLimiter(1, 1)

	assert.True(t, cl.Allow(domain.ConnID("a")))
	assert.False(t, cl.Allow(domain.ConnID("a")))
	assert.True(t, cl.Allow(domain.ConnID("b")), "a separate connection has its own bucket")
}

func TestChatLimiter_ForgetResetsBucket(t *testing.T) {
	cl := NewChatLimiter(1, 1)
	conn := domain.ConnID("c1")

	assert.True(t, cl.Allow(conn))
	assert.False(t, cl.Allow(conn))

	cl.Forget(conn)
	assert.True(t, cl.Allow(conn), "rebinding after Forget starts a fresh bucket")
}
