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
	"reflect"

	"github.com/riftloop/aeloop/internal/poller"
	"github.com/riftloop/aeloop/log"
	"github.com/riftloop/aeloop/metrics"
)

// Mask is a subset of {Readable, Writable}; None means "unregistered".
type Mask = poller.Mask

// Interest bits, mirrored from the poller package so callers never need to
// import it directly.
const (
	None     = poller.None
	Readable = poller.Readable
	Writable = poller.Writable
)

// FileProc is a file-event callback. fired is the subset of {Readable,
// Writable} that triggered this call and is still registered; when the
// descriptor fired in both directions it holds both bits, whichever of the
// two procs is being called.
type FileProc func(loop *EventLoop, fd int, clientData interface{}, fired Mask)

// fileEvent is one descriptor's slot. A slot is registered iff mask != None.
type fileEvent struct {
	mask       Mask
	readProc   FileProc
	writeProc  FileProc
	clientData interface{}
}

// GetSetSize returns the loop's current descriptor table capacity.
func (l *EventLoop) GetSetSize() int {
	return len(l.events)
}

// ResizeSetSize grows or shrinks the descriptor-indexed tables to newSetSize.
// It is a no-op if the size is unchanged, and fails with
// ErrSetSizeTooSmall if newSetSize would truncate a registered descriptor.
func (l *EventLoop) ResizeSetSize(newSetSize int) error {
	if newSetSize <= 0 {
		return ErrInvalidSetSize
	}
	if newSetSize == len(l.events) {
		return nil
	}
	if newSetSize <= l.maxfd {
		return ErrSetSizeTooSmall
	}
	events := make([]fileEvent, newSetSize)
	copy(events, l.events)
	l.events = events
	if err := l.backend.Resize(newSetSize); err != nil {
		return err
	}
	metrics.Add(metrics.ResizeCalls, 1)
	log.Debugf("aeloop: resized setsize to %d", newSetSize)
	return nil
}

// AddFileEvent subscribes fd to mask, installing proc as the callback for
// whichever of Readable/Writable is present in mask. Repeated calls are
// additive: adding Writable to an fd already registered for Readable keeps
// both callbacks installed.
func (l *EventLoop) AddFileEvent(fd int, mask Mask, proc FileProc, clientData interface{}) error {
	if fd < 0 || fd >= len(l.events) {
		return ErrRange
	}
	if err := l.backend.Add(fd, mask); err != nil {
		return err
	}
	slot := &l.events[fd]
	slot.mask |= mask
	if mask&Readable != 0 {
		slot.readProc = proc
	}
	if mask&Writable != 0 {
		slot.writeProc = proc
	}
	slot.clientData = clientData
	if fd > l.maxfd {
		l.maxfd = fd
	}
	metrics.Add(metrics.FileEventsAdded, 1)
	return nil
}

// DelFileEvent drops mask from fd's subscription. It is a no-op if fd is out
// of range or already unregistered.
func (l *EventLoop) DelFileEvent(fd int, mask Mask) {
	if fd < 0 || fd >= len(l.events) {
		return
	}
	slot := &l.events[fd]
	if slot.mask == None {
		return
	}
	if err := l.backend.Del(fd, mask); err != nil {
		log.Warnf("aeloop: backend del fd=%d mask=%s: %v", fd, mask, err)
	}
	removed := slot.mask & mask
	slot.mask &^= mask
	if mask&Readable != 0 {
		slot.readProc = nil
	}
	if mask&Writable != 0 {
		slot.writeProc = nil
	}
	if slot.mask == None {
		slot.clientData = nil
		if fd == l.maxfd {
			l.maxfd = l.scanMaxfd()
		}
	}
	if removed != None {
		metrics.Add(metrics.FileEventsRemoved, 1)
	}
}

// GetFileEvents returns fd's current interest mask, or None if fd is
// unregistered or out of range.
func (l *EventLoop) GetFileEvents(fd int) Mask {
	if fd < 0 || fd >= len(l.events) {
		return None
	}
	return l.events[fd].mask
}

// funcEqual reports whether two FileProc values wrap the same underlying
// function, which is how the dispatcher decides a descriptor registered
// with one proc for both directions should only be invoked once per tick.
// Go forbids comparing func values directly; reflect.Value.Pointer is the
// idiomatic way around that for this "same callback" check (it is not used
// to distinguish closures with different captured state from one another).
func funcEqual(a, b FileProc) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return reflect.ValueOf(a).Pointer() == reflect.ValueOf(b).Pointer()
}

// scanMaxfd recomputes maxfd after the previous maxfd's slot cleared,
// scanning downward to the next registered descriptor or -1.
func (l *EventLoop) scanMaxfd() int {
	for fd := l.maxfd - 1; fd >= 0; fd-- {
		if l.events[fd].mask != None {
			return fd
		}
	}
	return -1
}
