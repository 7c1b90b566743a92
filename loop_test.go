//go:build linux
// +build linux

package aeloop_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riftloop/aeloop"
)

func TestCreateRejectsNonPositiveSetSize(t *testing.T) {
	_, err := aeloop.Create(0)
	assert.ErrorIs(t, err, aeloop.ErrInvalidSetSize)

	_, err = aeloop.Create(-1)
	assert.ErrorIs(t, err, aeloop.ErrInvalidSetSize)
}

func TestRunRejectsReentrantCall(t *testing.T) {
	loop, err := aeloop.Create(4)
	require.NoError(t, err)
	defer loop.Delete()

	// A short timer bounds the backend's Poll timeout so the single
	// iteration this test needs doesn't block indefinitely: with nothing
	// registered at all, Run would otherwise wait forever for readiness
	// that can never arrive.
	loop.AddTimer(5, func(*aeloop.EventLoop, uint64, interface{}) int64 { return aeloop.NoMore }, nil, nil)

	reentrantErr := make(chan error, 1)
	loop.SetBeforeSleep(func(l *aeloop.EventLoop) {
		reentrantErr <- l.Run()
		l.Stop()
	})

	require.NoError(t, loop.Run())
	select {
	case err := <-reentrantErr:
		assert.ErrorIs(t, err, aeloop.ErrLoopRunning)
	case <-time.After(2 * time.Second):
		t.Fatal("before-sleep hook never ran")
	}
}

func TestRunStopsOnFlag(t *testing.T) {
	loop, err := aeloop.Create(4)
	require.NoError(t, err)
	defer loop.Delete()

	loop.AddTimer(5, func(*aeloop.EventLoop, uint64, interface{}) int64 { return 5 }, nil, nil)

	ticks := 0
	loop.SetBeforeSleep(func(l *aeloop.EventLoop) {
		ticks++
		if ticks >= 3 {
			l.Stop()
		}
	})

	done := make(chan error, 1)
	go func() { done <- loop.Run() }()

	select {
	case err := <-done:
		require.NoError(t, err)
		assert.GreaterOrEqual(t, ticks, 3)
	case <-time.After(2 * time.Second):
		t.Fatal("Run never stopped")
	}
}

func TestBackendNameMatchesPlatform(t *testing.T) {
	loop, err := aeloop.Create(4)
	require.NoError(t, err)
	defer loop.Delete()

	assert.Equal(t, "epoll", loop.BackendName())
}
