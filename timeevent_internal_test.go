package aeloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestClockSkewFiresAllPendingTimers exercises the backwards-clock branch of
// processTimerEvents directly: lastTime is forced ahead of the wall clock so
// the next pass must treat every pending timer as ripe rather than stall
// until real time catches up.
func TestClockSkewFiresAllPendingTimers(t *testing.T) {
	loop, err := Create(4)
	require.NoError(t, err)
	defer loop.Delete()

	fired := 0
	loop.AddTimer(60_000, func(*EventLoop, uint64, interface{}) int64 {
		fired++
		return NoMore
	}, nil, nil)

	nowSec, _ := nowParts()
	loop.lastTime = nowSec + 3600

	n := loop.processTimerEvents()
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, fired)
}

func TestNearestTimerPicksSoonest(t *testing.T) {
	loop, err := Create(4)
	require.NoError(t, err)
	defer loop.Delete()

	loop.AddTimer(10_000, func(*EventLoop, uint64, interface{}) int64 { return NoMore }, nil, nil)
	soonID := loop.AddTimer(10, func(*EventLoop, uint64, interface{}) int64 { return NoMore }, nil, nil)

	nearest := loop.nearestTimer()
	require.NotNil(t, nearest)
	assert.Equal(t, soonID, nearest.id)
}
