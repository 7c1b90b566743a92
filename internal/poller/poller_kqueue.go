// Tencent is pleased to support the open source community by making tnet available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tnet source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License can be found in the LICENSE file.

//go:build freebsd || dragonfly || darwin || netbsd || openbsd
// +build freebsd dragonfly darwin netbsd openbsd

package poller

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

type kqueueBackend struct {
	fd      int
	events  []unix.Kevent_t
	fired   []FiredEvent
	curmask map[int]Mask
}

func newBackend(setsize int) (Backend, error) {
	fd, err := unix.Kqueue()
	if err != nil {
		return nil, os.NewSyscallError("kqueue", err)
	}
	if _, err := unix.FcntlInt(uintptr(fd), unix.F_SETFD, unix.FD_CLOEXEC); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("fcntl", err)
	}
	return &kqueueBackend{
		fd:      fd,
		events:  make([]unix.Kevent_t, setsize),
		fired:   make([]FiredEvent, setsize),
		curmask: make(map[int]Mask, setsize),
	}, nil
}

func (k *kqueueBackend) change(fd int, filter int16, flags uint16) error {
	ev := unix.Kevent_t{
		Ident:  newKeventIdent(fd),
		Filter: filter,
		Flags:  flags,
	}
	_, err := unix.Kevent(k.fd, []unix.Kevent_t{ev}, nil, nil)
	return err
}

func (k *kqueueBackend) Add(fd int, mask Mask) error {
	old := k.curmask[fd]
	newMask := old | mask
	if mask&Readable != 0 && old&Readable == 0 {
		if err := k.change(fd, unix.EVFILT_READ, unix.EV_ADD|unix.EV_ENABLE); err != nil {
			return errors.Wrapf(os.NewSyscallError("kevent", err), "poller: add fd=%d readable", fd)
		}
	}
	if mask&Writable != 0 && old&Writable == 0 {
		if err := k.change(fd, unix.EVFILT_WRITE, unix.EV_ADD|unix.EV_ENABLE); err != nil {
			return errors.Wrapf(os.NewSyscallError("kevent", err), "poller: add fd=%d writable", fd)
		}
	}
	k.curmask[fd] = newMask
	return nil
}

func (k *kqueueBackend) Del(fd int, mask Mask) error {
	old, ok := k.curmask[fd]
	if !ok {
		return nil
	}
	if mask&Readable != 0 && old&Readable != 0 {
		if err := k.change(fd, unix.EVFILT_READ, unix.EV_DELETE); err != nil && err != unix.ENOENT {
			return errors.Wrapf(os.NewSyscallError("kevent", err), "poller: del fd=%d readable", fd)
		}
	}
	if mask&Writable != 0 && old&Writable != 0 {
		if err := k.change(fd, unix.EVFILT_WRITE, unix.EV_DELETE); err != nil && err != unix.ENOENT {
			return errors.Wrapf(os.NewSyscallError("kevent", err), "poller: del fd=%d writable", fd)
		}
	}
	newMask := old &^ mask
	if newMask == None {
		delete(k.curmask, fd)
	} else {
		k.curmask[fd] = newMask
	}
	return nil
}

func (k *kqueueBackend) Poll(timeout *time.Duration) ([]FiredEvent, error) {
	var ts *unix.Timespec
	if timeout != nil {
		t := unix.NsecToTimespec(timeout.Nanoseconds())
		if *timeout <= 0 {
			t = unix.NsecToTimespec(0)
		}
		ts = &t
	}
	n, err := unix.Kevent(k.fd, nil, k.events, ts)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, os.NewSyscallError("kevent", err)
	}
	fired := k.fired[:0]
	for i := 0; i < n; i++ {
		ev := k.events[i]
		fd := int(ev.Ident)
		var mask Mask
		switch ev.Filter {
		case unix.EVFILT_READ:
			mask = Readable
		case unix.EVFILT_WRITE:
			mask = Writable
		}
		if ev.Flags&(unix.EV_EOF|unix.EV_ERROR) != 0 {
			mask |= Writable
		}
		if mask == None {
			continue
		}
		fired = append(fired, FiredEvent{Fd: fd, Mask: mask})
	}
	return fired, nil
}

func (k *kqueueBackend) Resize(setsize int) error {
	if setsize <= len(k.events) {
		return nil
	}
	events := make([]unix.Kevent_t, setsize)
	copy(events, k.events)
	k.events = events
	k.fired = make([]FiredEvent, setsize)
	return nil
}

func (k *kqueueBackend) Close() error {
	return os.NewSyscallError("close", unix.Close(k.fd))
}

func (k *kqueueBackend) Name() string { return "kqueue" }
