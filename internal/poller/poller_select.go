// Tencent is pleased to support the open source community by making tnet available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tnet source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License can be found in the LICENSE file.

//go:build aix || aeloop_forceselect
// +build aix aeloop_forceselect

// This file builds on aix by default, and anywhere else via -tags
// aeloop_forceselect, which is how the select backend gets exercised on a
// development machine that would otherwise always pick epoll or kqueue.

package poller

import (
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// FDSetSize mirrors the kernel's FD_SETSIZE; select cannot watch a
// descriptor numbered FDSetSize or higher.
const FDSetSize = 1024

type selectBackend struct {
	rfds, wfds unix.FdSet
	curmask    map[int]Mask
	maxfd      int
	fired      []FiredEvent
}

func newBackend(setsize int) (Backend, error) {
	if setsize > FDSetSize {
		setsize = FDSetSize
	}
	return &selectBackend{
		curmask: make(map[int]Mask, setsize),
		maxfd:   -1,
		fired:   make([]FiredEvent, setsize),
	}, nil
}

func fdSet(set *unix.FdSet, fd int) {
	set.Bits[fd/64] |= 1 << (uint(fd) % 64)
}

func fdClr(set *unix.FdSet, fd int) {
	set.Bits[fd/64] &^= 1 << (uint(fd) % 64)
}

func fdIsSet(set *unix.FdSet, fd int) bool {
	return set.Bits[fd/64]&(1<<(uint(fd)%64)) != 0
}

func (s *selectBackend) Add(fd int, mask Mask) error {
	if fd >= FDSetSize {
		return errors.Errorf("poller: fd %d exceeds select's FD_SETSIZE %d", fd, FDSetSize)
	}
	if mask&Readable != 0 {
		fdSet(&s.rfds, fd)
	}
	if mask&Writable != 0 {
		fdSet(&s.wfds, fd)
	}
	s.curmask[fd] |= mask
	if fd > s.maxfd {
		s.maxfd = fd
	}
	return nil
}

func (s *selectBackend) Del(fd int, mask Mask) error {
	old, ok := s.curmask[fd]
	if !ok {
		return nil
	}
	if mask&Readable != 0 {
		fdClr(&s.rfds, fd)
	}
	if mask&Writable != 0 {
		fdClr(&s.wfds, fd)
	}
	newMask := old &^ mask
	if newMask == None {
		delete(s.curmask, fd)
		if fd == s.maxfd {
			s.maxfd = -1
			for other := range s.curmask {
				if other > s.maxfd {
					s.maxfd = other
				}
			}
		}
	} else {
		s.curmask[fd] = newMask
	}
	return nil
}

func (s *selectBackend) Poll(timeout *time.Duration) ([]FiredEvent, error) {
	if s.maxfd < 0 {
		// Nothing registered: select would return immediately with an
		// error on some platforms for nfds==0, so honor the timeout
		// ourselves instead of calling into the kernel.
		if timeout == nil {
			select {}
		}
		if *timeout > 0 {
			time.Sleep(*timeout)
		}
		return nil, nil
	}

	rcopy, wcopy := s.rfds, s.wfds
	var tv *unix.Timeval
	if timeout != nil {
		t := unix.NsecToTimeval(timeout.Nanoseconds())
		if *timeout <= 0 {
			t = unix.NsecToTimeval(0)
		}
		tv = &t
	}
	n, err := unix.Select(s.maxfd+1, &rcopy, &wcopy, nil, tv)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}
	if n <= 0 {
		return nil, nil
	}
	fired := s.fired[:0]
	for fd := 0; fd <= s.maxfd; fd++ {
		var mask Mask
		if fdIsSet(&rcopy, fd) {
			mask |= Readable
		}
		if fdIsSet(&wcopy, fd) {
			mask |= Writable
		}
		if mask != None {
			fired = append(fired, FiredEvent{Fd: fd, Mask: mask})
		}
	}
	return fired, nil
}

func (s *selectBackend) Resize(setsize int) error {
	if setsize > FDSetSize {
		return errors.Errorf("poller: select cannot grow past FD_SETSIZE %d", FDSetSize)
	}
	if setsize > len(s.fired) {
		s.fired = make([]FiredEvent, setsize)
	}
	return nil
}

func (s *selectBackend) Close() error {
	return nil
}

func (s *selectBackend) Name() string { return "select" }
