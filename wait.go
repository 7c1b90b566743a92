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
	"golang.org/x/sys/unix"
)

// Wait blocks on a single descriptor outside of any loop, returning the
// subset of {Readable, Writable} that became ready before timeoutMs
// elapsed. A negative timeoutMs blocks indefinitely; zero returns
// immediately. It is meant for one-off waits — a handshake, a connect
// completion — where spinning up a whole loop would be overkill.
func Wait(fd int, mask Mask, timeoutMs int64) (Mask, error) {
	var events int16
	if mask&Readable != 0 {
		events |= unix.POLLIN
	}
	if mask&Writable != 0 {
		events |= unix.POLLOUT
	}

	fds := []unix.PollFd{{Fd: int32(fd), Events: events}}
	for {
		n, err := unix.Poll(fds, int(timeoutMs))
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return None, errors.Wrapf(err, "aeloop: wait fd=%d", fd)
		}
		if n == 0 {
			return None, nil
		}
		break
	}

	revents := fds[0].Revents
	var ready Mask
	if revents&unix.POLLIN != 0 {
		ready |= Readable
	}
	if revents&(unix.POLLOUT|unix.POLLHUP|unix.POLLERR) != 0 {
		ready |= Writable
	}
	return ready, nil
}
