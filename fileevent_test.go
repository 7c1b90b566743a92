//go:build linux
// +build linux

package aeloop_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/riftloop/aeloop"
)

func TestAddDelFileEvent(t *testing.T) {
	loop, err := aeloop.Create(16)
	require.NoError(t, err)
	defer loop.Delete()

	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	r, w := fds[0], fds[1]
	defer unix.Close(r)
	defer unix.Close(w)

	called := 0
	proc := func(l *aeloop.EventLoop, fd int, clientData interface{}, fired aeloop.Mask) { called++ }

	require.NoError(t, loop.AddFileEvent(r, aeloop.Readable, proc, nil))
	assert.Equal(t, aeloop.Readable, loop.GetFileEvents(r))

	loop.DelFileEvent(r, aeloop.Readable)
	assert.Equal(t, aeloop.None, loop.GetFileEvents(r))
}

func TestAddFileEventOutOfRange(t *testing.T) {
	loop, err := aeloop.Create(4)
	require.NoError(t, err)
	defer loop.Delete()

	err = loop.AddFileEvent(100, aeloop.Readable, nil, nil)
	assert.ErrorIs(t, err, aeloop.ErrRange)
}

func TestResizeSetSizeRejectsTruncation(t *testing.T) {
	loop, err := aeloop.Create(8)
	require.NoError(t, err)
	defer loop.Delete()

	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	defer unix.Close(fds[0])
	defer unix.Close(fds[1])

	require.NoError(t, loop.AddFileEvent(fds[0], aeloop.Readable, func(*aeloop.EventLoop, int, interface{}, aeloop.Mask) {}, nil))

	err = loop.ResizeSetSize(fds[0])
	assert.ErrorIs(t, err, aeloop.ErrSetSizeTooSmall)

	require.NoError(t, loop.ResizeSetSize(32))
	assert.Equal(t, 32, loop.GetSetSize())
}

func TestDispatchProcessesEchoPipe(t *testing.T) {
	loop, err := aeloop.Create(16)
	require.NoError(t, err)
	defer loop.Delete()

	var fds [2]int
	require.NoError(t, unix.Pipe(fds[:]))
	r, w := fds[0], fds[1]
	defer unix.Close(r)
	defer unix.Close(w)

	gotData := make(chan []byte, 1)
	require.NoError(t, loop.AddFileEvent(r, aeloop.Readable, func(l *aeloop.EventLoop, fd int, clientData interface{}, fired aeloop.Mask) {
		buf := make([]byte, 64)
		n, _ := unix.Read(fd, buf)
		gotData <- buf[:n]
		l.DelFileEvent(fd, aeloop.Readable)
		l.Stop()
	}, nil))

	_, err = unix.Write(w, []byte("ping"))
	require.NoError(t, err)

	go func() {
		_ = loop.Run()
	}()

	select {
	case data := <-gotData:
		assert.Equal(t, "ping", string(data))
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for read callback")
	}
}
