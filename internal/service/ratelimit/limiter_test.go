package ratelimit

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_BurstPerKey(t *testing.T) {
	l := New(0.001, 2)
	assert.True(t, l.Allow("forecast|1.2.3.4"))
	assert.True(t, l.Allow("forecast|1.2.3.4"))
	assert.False(t, l.Allow("forecast|1.2.3.4"))
	// other keys have their own bucket
	assert.True(t, l.Allow("returns|1.2.3.4"))
}

func TestLimiter_Disabled(t *testing.T) {
	l := New(0, 1)
	for i := 0; i < 100; i++ {
		assert.True(t, l.Allow("k"))
	}
	var nl *Limiter
	assert.True(t, nl.Allow("k"))
}
