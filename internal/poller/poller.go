// Tencent is pleased to support the open source community by making tnet available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tnet source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License can be found in the LICENSE file.

// Package poller provides a uniform level-triggered readiness API over the
// kernel's notification primitive: epoll on Linux, kqueue on the BSDs and
// Darwin, event ports on Solaris/illumos, and select on AIX. All
// four implementations satisfy the same Backend interface so the event loop
// above never branches on OS.
package poller

import (
	"fmt"
	"time"
)

// Mask is a subset of {Readable, Writable}.
type Mask uint8

// Interest bits. None means no interest registered.
const (
	None     Mask = 0
	Readable Mask = 1 << 0
	Writable Mask = 1 << 1
)

// String implements fmt.Stringer.
func (m Mask) String() string {
	switch m {
	case None:
		return "none"
	case Readable:
		return "readable"
	case Writable:
		return "writable"
	case Readable | Writable:
		return "readable|writable"
	default:
		return fmt.Sprintf("mask(%d)", uint8(m))
	}
}

// FiredEvent is one (fd, mask) readiness report. It is only valid from the
// return of one Poll call to the start of the next; backends are free to
// reuse the backing storage.
type FiredEvent struct {
	Fd   int
	Mask Mask
}

// Backend is the four-operation readiness shim every OS implementation
// satisfies: Add/Del subscribe or drop interest, Poll blocks until
// something is ready or the timeout elapses, Resize/Close manage the
// backend's own buffers, and Name identifies the implementation.
type Backend interface {
	// Add subscribes fd to any bit of mask not already subscribed, without
	// disturbing the other direction's subscription. Repeated calls are
	// cumulative.
	Add(fd int, mask Mask) error
	// Del drops the given bits of mask from fd's subscription. Dropping the
	// last bit fully removes fd from the backend.
	Del(fd int, mask Mask) error
	// Poll blocks until at least one subscribed fd is ready or timeout
	// elapses. A nil timeout blocks indefinitely; a zero timeout returns
	// immediately. The returned slice aliases backend-owned storage valid
	// only until the next call to Poll.
	Poll(timeout *time.Duration) ([]FiredEvent, error)
	// Resize grows the backend's internal buffers to hold setsize
	// descriptors; a setsize no larger than the current one leaves them as
	// they are.
	Resize(setsize int) error
	// Close releases the backend's kernel resources.
	Close() error
	// Name identifies the backend implementation, e.g. "epoll".
	Name() string
}

// New creates the backend for the current platform, sized for up to setsize
// file descriptors.
func New(setsize int) (Backend, error) {
	return newBackend(setsize)
}

// millisTimeout converts a *time.Duration into the millisecond timeout
// argument most poll-style syscalls expect: -1 for nil (block indefinitely),
// 0 for a non-positive duration (return immediately), else the duration
// truncated to whole milliseconds, with a sub-millisecond duration raised to
// 1ms.
func millisTimeout(timeout *time.Duration) int {
	if timeout == nil {
		return -1
	}
	if *timeout <= 0 {
		return 0
	}
	ms := timeout.Milliseconds()
	if ms == 0 {
		// A strictly positive sub-millisecond duration must still round up
		// to at least 1ms, or it would be indistinguishable from DONT-WAIT.
		ms = 1
	}
	return int(ms)
}
