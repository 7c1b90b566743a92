//go:build linux
// +build linux

package aeloop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/riftloop/aeloop/internal/poller"
)

// TestDispatchDeleteSuppressesSiblingCallback drives a single ProcessEvents
// batch containing two already-fired descriptors where the first
// descriptor's callback deletes the second before the dispatcher reaches
// it. The second callback must not run: dispatchFileEvents re-checks each
// slot's live mask against the batch's fired mask immediately before
// invoking it, so a deletion earlier in the same batch takes effect.
func TestDispatchDeleteSuppressesSiblingCallback(t *testing.T) {
	loop, err := Create(16)
	require.NoError(t, err)
	defer loop.Delete()

	var fdsA, fdsB [2]int
	require.NoError(t, unix.Pipe(fdsA[:]))
	require.NoError(t, unix.Pipe(fdsB[:]))
	defer unix.Close(fdsA[0])
	defer unix.Close(fdsA[1])
	defer unix.Close(fdsB[0])
	defer unix.Close(fdsB[1])

	bCalled := 0
	require.NoError(t, loop.AddFileEvent(fdsB[0], Readable, func(*EventLoop, int, interface{}, Mask) {
		bCalled++
	}, nil))

	require.NoError(t, loop.AddFileEvent(fdsA[0], Readable, func(l *EventLoop, fd int, _ interface{}, _ Mask) {
		l.DelFileEvent(fdsB[0], Readable)
	}, nil))

	fired := []poller.FiredEvent{
		{Fd: fdsA[0], Mask: Readable},
		{Fd: fdsB[0], Mask: Readable},
	}
	count := loop.dispatchFileEvents(fired)

	assert.Equal(t, 1, count)
	assert.Equal(t, 0, bCalled)
	assert.Equal(t, None, loop.GetFileEvents(fdsB[0]))
}

// TestDispatchSameProcBothDirectionsRunsOnce registers one FileProc for both
// Readable and Writable on a descriptor that fires both in the same batch.
// The proc must be invoked exactly once, with the combined mask, not once
// per direction.
func TestDispatchSameProcBothDirectionsRunsOnce(t *testing.T) {
	loop, err := Create(16)
	require.NoError(t, err)
	defer loop.Delete()

	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	calls := 0
	var gotMask Mask
	proc := func(l *EventLoop, fd int, _ interface{}, fired Mask) {
		calls++
		gotMask = fired
	}
	require.NoError(t, loop.AddFileEvent(fds[0], Readable|Writable, proc, nil))

	fired := []poller.FiredEvent{{Fd: fds[0], Mask: Readable | Writable}}
	count := loop.dispatchFileEvents(fired)

	assert.Equal(t, 1, count)
	assert.Equal(t, 1, calls)
	assert.Equal(t, Readable|Writable, gotMask)
}
