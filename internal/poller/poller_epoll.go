// Tencent is pleased to support the open source community by making tnet available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tnet source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License can be found in the LICENSE file.

//go:build linux
// +build linux

package poller

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

const (
	rflags = unix.EPOLLIN | unix.EPOLLPRI
	wflags = unix.EPOLLOUT
	// hflags are level-triggered error/hangup conditions; the shim coalesces
	// them into the Writable signal so a write callback can observe them.
	hflags = unix.EPOLLHUP | unix.EPOLLRDHUP | unix.EPOLLERR
)

type epollBackend struct {
	fd      int
	events  []unix.EpollEvent
	fired   []FiredEvent
	curmask map[int]Mask
}

func newBackend(setsize int) (Backend, error) {
	fd, err := unix.EpollCreate1(unix.EPOLL_CLOEXEC)
	if err != nil {
		return nil, os.NewSyscallError("epoll_create1", err)
	}
	return &epollBackend{
		fd:      fd,
		events:  make([]unix.EpollEvent, setsize),
		fired:   make([]FiredEvent, setsize),
		curmask: make(map[int]Mask, setsize),
	}, nil
}

func toEpollEvents(mask Mask) uint32 {
	var events uint32
	if mask&Readable != 0 {
		events |= rflags
	}
	if mask&Writable != 0 {
		events |= wflags
	}
	if events != 0 {
		events |= hflags
	}
	return events
}

func (e *epollBackend) Add(fd int, mask Mask) error {
	old := e.curmask[fd]
	newMask := old | mask
	if newMask == old {
		return nil
	}
	ev := unix.EpollEvent{Events: toEpollEvents(newMask), Fd: int32(fd)}
	op := unix.EPOLL_CTL_MOD
	if old == None {
		op = unix.EPOLL_CTL_ADD
	}
	if err := unix.EpollCtl(e.fd, op, fd, &ev); err != nil {
		return errors.Wrapf(os.NewSyscallError("epoll_ctl", err), "poller: add fd=%d mask=%s", fd, mask)
	}
	e.curmask[fd] = newMask
	return nil
}

func (e *epollBackend) Del(fd int, mask Mask) error {
	old, ok := e.curmask[fd]
	if !ok {
		return nil
	}
	newMask := old &^ mask
	if newMask == None {
		if err := unix.EpollCtl(e.fd, unix.EPOLL_CTL_DEL, fd, nil); err != nil && err != unix.ENOENT {
			return errors.Wrapf(os.NewSyscallError("epoll_ctl", err), "poller: del fd=%d", fd)
		}
		delete(e.curmask, fd)
		return nil
	}
	ev := unix.EpollEvent{Events: toEpollEvents(newMask), Fd: int32(fd)}
	if err := unix.EpollCtl(e.fd, unix.EPOLL_CTL_MOD, fd, &ev); err != nil {
		return errors.Wrapf(os.NewSyscallError("epoll_ctl", err), "poller: del fd=%d mask=%s", fd, mask)
	}
	e.curmask[fd] = newMask
	return nil
}

func (e *epollBackend) Poll(timeout *time.Duration) ([]FiredEvent, error) {
	n, err := unix.EpollWait(e.fd, e.events, millisTimeout(timeout))
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, os.NewSyscallError("epoll_wait", err)
	}
	fired := e.fired[:0]
	for i := 0; i < n; i++ {
		ev := e.events[i]
		var mask Mask
		if ev.Events&(rflags) != 0 {
			mask |= Readable
		}
		if ev.Events&(wflags|hflags) != 0 {
			mask |= Writable
		}
		if mask == None {
			continue
		}
		fired = append(fired, FiredEvent{Fd: int(ev.Fd), Mask: mask})
	}
	return fired, nil
}

func (e *epollBackend) Resize(setsize int) error {
	if setsize <= len(e.events) {
		return nil
	}
	events := make([]unix.EpollEvent, setsize)
	copy(events, e.events)
	e.events = events
	e.fired = make([]FiredEvent, setsize)
	return nil
}

func (e *epollBackend) Close() error {
	return os.NewSyscallError("close", unix.Close(e.fd))
}

func (e *epollBackend) Name() string { return "epoll" }
