//go:build linux
// +build linux

package aeloop_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/riftloop/aeloop"
)

func TestWakeupPipeInterruptsRun(t *testing.T) {
	loop, err := aeloop.Create(8)
	require.NoError(t, err)
	defer loop.Delete()

	wakeup, err := aeloop.NewWakeupPipe()
	require.NoError(t, err)
	defer wakeup.Close()
	require.NoError(t, wakeup.Register(loop))
	defer wakeup.Unregister(loop)

	loop.SetBeforeSleep(func(l *aeloop.EventLoop) {
		l.Stop()
	})

	done := make(chan error, 1)
	go func() { done <- loop.Run() }()

	time.Sleep(10 * time.Millisecond)
	wakeup.Notify()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("wakeup did not interrupt Run")
	}
}

func TestWakeupNotifyCoalesces(t *testing.T) {
	wakeup, err := aeloop.NewWakeupPipe()
	require.NoError(t, err)
	defer wakeup.Close()

	wakeup.Notify()
	wakeup.Notify()
	wakeup.Notify()

	// A single pending notification must satisfy all three calls: one tick
	// dispatches the drain callback once, and the next tick finds nothing
	// left to read.
	loop, err := aeloop.Create(8)
	require.NoError(t, err)
	defer loop.Delete()
	require.NoError(t, wakeup.Register(loop))

	n := loop.ProcessEvents(aeloop.FileEvents | aeloop.DontWait)
	require.Equal(t, 1, n)

	n = loop.ProcessEvents(aeloop.FileEvents | aeloop.DontWait)
	require.Equal(t, 0, n)
}
