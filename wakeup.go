//
//
// Tencent is pleased to support the open source community by making tRPC available.
//
// Copyright (C) 2023 Tencent.
// All rights reserved.
//
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

package aeloop

import (
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"golang.org/x/sys/unix"
)

// WakeupPipe lets another goroutine interrupt a blocked Run/ProcessEvents
// call — the loop itself never touches it except to drain bytes a foreign
// writer produced. It is the standard self-pipe trick: a dedicated pipe
// registered for Readable with the loop, written to by Notify and drained
// by a read callback that discards whatever it reads.
//
// notified coalesces concurrent Notify calls into a single byte: callers
// racing to wake the loop up don't need the write to succeed more than
// once before the loop next drains it.
type WakeupPipe struct {
	r, w     int
	notified atomic.Bool
}

// NewWakeupPipe allocates the underlying pipe. Close it once the owning
// loop is torn down.
func NewWakeupPipe() (*WakeupPipe, error) {
	fds := make([]int, 2)
	if err := unix.Pipe2(fds, unix.O_NONBLOCK|unix.O_CLOEXEC); err != nil {
		return nil, errors.Wrap(err, "aeloop: create wakeup pipe")
	}
	return &WakeupPipe{r: fds[0], w: fds[1]}, nil
}

// Register subscribes the pipe's read end with loop so a pending wakeup
// shows up as an ordinary, safe-to-dispatch-from-any-goroutine file event.
func (w *WakeupPipe) Register(loop *EventLoop) error {
	return loop.AddFileEvent(w.r, Readable, w.drain, nil)
}

// Unregister drops the pipe's read end from loop.
func (w *WakeupPipe) Unregister(loop *EventLoop) {
	loop.DelFileEvent(w.r, Readable)
}

// Notify wakes the loop if it is blocked in Poll. Safe to call from any
// goroutine, including concurrently with itself; a notification already in
// flight is not duplicated.
func (w *WakeupPipe) Notify() {
	if !w.notified.CAS(false, true) {
		return
	}
	buf := [1]byte{1}
	for {
		_, err := unix.Write(w.w, buf[:])
		if err == unix.EINTR {
			continue
		}
		// EAGAIN means the pipe's buffer already holds an undrained byte,
		// which wakes the loop just as well as this one would have.
		return
	}
}

// drain empties the pipe and clears the coalescing flag so a future Notify
// writes again.
func (w *WakeupPipe) drain(loop *EventLoop, fd int, clientData interface{}, fired Mask) {
	var buf [64]byte
	for {
		n, err := unix.Read(w.r, buf[:])
		if n <= 0 || err != nil {
			break
		}
	}
	w.notified.Store(false)
}

// Close releases both ends of the pipe.
func (w *WakeupPipe) Close() error {
	err1 := unix.Close(w.r)
	err2 := unix.Close(w.w)
	if err1 != nil {
		return err1
	}
	return err2
}
