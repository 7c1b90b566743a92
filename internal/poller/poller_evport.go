// Tencent is pleased to support the open source community by making tnet available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tnet source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License can be found in the LICENSE file.

//go:build solaris
// +build solaris

package poller

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// evportBackend wraps a Solaris/illumos event port. Port associations fire
// once and must be re-armed, so, unlike epoll and kqueue, this backend must
// remember each fd's desired mask and re-associate it after every firing to
// emulate level-triggered readiness.
type evportBackend struct {
	fd      int
	events  []unix.PortEvent
	fired   []FiredEvent
	curmask map[int]Mask
}

func newBackend(setsize int) (Backend, error) {
	fd, err := unix.PortCreate()
	if err != nil {
		return nil, os.NewSyscallError("port_create", err)
	}
	return &evportBackend{
		fd:      fd,
		events:  make([]unix.PortEvent, setsize),
		fired:   make([]FiredEvent, setsize),
		curmask: make(map[int]Mask, setsize),
	}, nil
}

func toPortEvents(mask Mask) int {
	var events int
	if mask&Readable != 0 {
		events |= unix.POLLIN
	}
	if mask&Writable != 0 {
		events |= unix.POLLOUT
	}
	return events
}

func (p *evportBackend) associate(fd int, mask Mask) error {
	if mask == None {
		return unix.PortDissociate(p.fd, unix.PORT_SOURCE_FD, uintptr(fd))
	}
	return unix.PortAssociate(p.fd, unix.PORT_SOURCE_FD, uintptr(fd), toPortEvents(mask), nil)
}

func (p *evportBackend) Add(fd int, mask Mask) error {
	old := p.curmask[fd]
	newMask := old | mask
	if newMask == old {
		return nil
	}
	if err := p.associate(fd, newMask); err != nil {
		return errors.Wrapf(os.NewSyscallError("port_associate", err), "poller: add fd=%d mask=%s", fd, newMask)
	}
	p.curmask[fd] = newMask
	return nil
}

func (p *evportBackend) Del(fd int, mask Mask) error {
	old, ok := p.curmask[fd]
	if !ok {
		return nil
	}
	newMask := old &^ mask
	if newMask == None {
		if err := unix.PortDissociate(p.fd, unix.PORT_SOURCE_FD, uintptr(fd)); err != nil && err != unix.ENOENT {
			return errors.Wrapf(os.NewSyscallError("port_dissociate", err), "poller: del fd=%d", fd)
		}
		delete(p.curmask, fd)
		return nil
	}
	if err := p.associate(fd, newMask); err != nil {
		return errors.Wrapf(os.NewSyscallError("port_associate", err), "poller: del fd=%d mask=%s", fd, newMask)
	}
	p.curmask[fd] = newMask
	return nil
}

func (p *evportBackend) Poll(timeout *time.Duration) ([]FiredEvent, error) {
	var ts *unix.Timespec
	if timeout != nil {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		if *timeout <= 0 {
			t = unix.NsecToTimespec(0)
		}
		ts = &t
	}
	min, max := uint32(1), uint32(len(p.events))
	n, err := unix.PortGetn(p.fd, p.events, min, &max, ts)
	if err != nil {
		if err == unix.ETIME || err == unix.EINTR {
			return nil, nil
		}
		return nil, os.NewSyscallError("port_getn", err)
	}
	fired := p.fired[:0]
	for i := 0; i < n; i++ {
		ev := p.events[i]
		fd := int(ev.Object)
		var mask Mask
		if ev.Events&unix.POLLIN != 0 {
			mask |= Readable
		}
		if ev.Events&(unix.POLLOUT|unix.POLLERR|unix.POLLHUP) != 0 {
			mask |= Writable
		}
		if mask == None {
			continue
		}
		fired = append(fired, FiredEvent{Fd: fd, Mask: mask})
		// Re-arm: a fired association is consumed and must be re-associated
		// to keep delivering level-triggered readiness.
		if want := p.curmask[fd]; want != None {
			_ = p.associate(fd, want)
		}
	}
	return fired, nil
}

func (p *evportBackend) Resize(setsize int) error {
	if setsize <= len(p.events) {
		return nil
	}
	events := make([]unix.PortEvent, setsize)
	copy(events, p.events)
	p.events = events
	p.fired = make([]FiredEvent, setsize)
	return nil
}

func (p *evportBackend) Close() error {
	return os.NewSyscallError("close", unix.Close(p.fd))
}

func (p *evportBackend) Name() string { return "evport" }
