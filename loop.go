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
	"time"

	"go.uber.org/multierr"

	"github.com/riftloop/aeloop/internal/poller"
	"github.com/riftloop/aeloop/internal/safejob"
	"github.com/riftloop/aeloop/log"
	"github.com/riftloop/aeloop/metrics"
)

// ProcessFlags selects which kind of work ProcessEvents should service.
type ProcessFlags uint8

// Flag bits for ProcessEvents. All is the common FILE|TIME combination;
// DontWait forces a non-blocking poll regardless of pending timers.
const (
	FileEvents ProcessFlags = 1 << iota
	TimeEvents
	All      = FileEvents | TimeEvents
	DontWait ProcessFlags = 1 << 2
)

// BeforeSleepProc runs once at the top of every Run iteration, before the
// tick's ProcessEvents(All) call.
type BeforeSleepProc func(loop *EventLoop)

// EventLoop owns one backend instance, its descriptor-indexed file-event
// table, and its timer list. It is not safe for concurrent use: every
// method, and every callback the loop invokes, must run on the same
// goroutine that calls Run (or ProcessEvents directly).
type EventLoop struct {
	events  []fileEvent
	maxfd   int
	backend poller.Backend

	timeEventHead   *timeEvent
	timeEventNextID uint64
	lastTime        int64

	beforeSleep BeforeSleepProc
	stopped     bool
	run         safejob.ExclusiveUnblockJob
}

// Create allocates a loop with room for setsize file descriptors (valid fds
// are [0, setsize)). It returns ErrInvalidSetSize for a non-positive size,
// or whatever the backend's creation failed with; on any failure, no
// partial loop is returned.
func Create(setsize int) (*EventLoop, error) {
	if setsize <= 0 {
		return nil, ErrInvalidSetSize
	}
	backend, err := poller.New(setsize)
	if err != nil {
		return nil, err
	}
	l := &EventLoop{
		events: make([]fileEvent, setsize),
		maxfd:  -1,
	}
	l.backend = backend
	log.Infof("aeloop: created loop setsize=%d backend=%s", setsize, backend.Name())
	return l, nil
}

// Delete releases the loop's backend resources. It does not run timer
// finalizers or touch client data; the caller is responsible for
// unregistering and closing its own descriptors first.
func (l *EventLoop) Delete() error {
	var errs error
	if err := l.backend.Close(); err != nil {
		errs = multierr.Append(errs, err)
	}
	l.events = nil
	l.timeEventHead = nil
	return errs
}

// Stop requests that Run return after the current iteration completes.
func (l *EventLoop) Stop() {
	l.stopped = true
}

// SetBeforeSleep installs (or clears, with nil) the hook Run invokes at the
// top of every iteration.
func (l *EventLoop) SetBeforeSleep(proc BeforeSleepProc) {
	l.beforeSleep = proc
}

// BackendName returns the identifying name of the loop's readiness backend,
// e.g. "epoll".
func (l *EventLoop) BackendName() string {
	return l.backend.Name()
}

// ProcessEvents is the single dispatch primitive: one tick of I/O and/or
// timer processing, according to flags. It returns the number of file
// events and timer callbacks invoked. Passing neither FileEvents nor
// TimeEvents is a no-op that returns 0 immediately.
func (l *EventLoop) ProcessEvents(flags ProcessFlags) int {
	if flags&(FileEvents|TimeEvents) == 0 {
		return 0
	}

	processed := 0

	// The backend is entered whenever there is a descriptor registered, or
	// timers are being serviced without DontWait — otherwise there is
	// nothing to wait for.
	if l.maxfd >= 0 || (flags&TimeEvents != 0 && flags&DontWait == 0) {
		timeout := l.computeTimeout(flags)
		fired, err := l.backend.Poll(timeout)
		metrics.Add(metrics.PollWaitCalls, 1)
		if flags&DontWait != 0 {
			metrics.Add(metrics.PollNoWaitCalls, 1)
		}
		if err != nil {
			log.Warnf("aeloop: backend poll: %v", err)
		} else {
			metrics.Add(metrics.PollReadyEvents, uint64(len(fired)))
			processed += l.dispatchFileEvents(fired)
		}
	}

	if flags&TimeEvents != 0 {
		processed += l.processTimerEvents()
	}

	return processed
}

// computeTimeout derives the backend timeout for this tick: zero if
// DontWait is set, the delta to the nearest timer if TIME is requested
// without DontWait and a timer exists, or nil (block indefinitely)
// otherwise. The delta is clamped to zero on a negative result — the same
// clock-skew defense used by the timer firing pass.
func (l *EventLoop) computeTimeout(flags ProcessFlags) *time.Duration {
	if flags&DontWait != 0 {
		zero := time.Duration(0)
		return &zero
	}
	if flags&TimeEvents == 0 {
		return nil
	}
	nearest := l.nearestTimer()
	if nearest == nil {
		return nil
	}
	nowSec, nowMs := nowParts()
	deltaMs := (nearest.whenSec-nowSec)*1000 + (nearest.whenMs - nowMs)
	if deltaMs < 0 {
		deltaMs = 0
	}
	d := time.Duration(deltaMs) * time.Millisecond
	return &d
}

// dispatchFileEvents invokes the read and/or write callback for each fired
// descriptor still registered for (at least part of) the fired mask. Read
// runs before write for the same descriptor; if the same proc serves both
// directions it runs once, with the combined mask, not twice. The slot's
// mask is re-checked before each of the two calls, because an earlier
// callback in this same batch may have deleted or reconfigured it.
func (l *EventLoop) dispatchFileEvents(fired []poller.FiredEvent) int {
	count := 0
	for _, f := range fired {
		if f.Fd < 0 || f.Fd >= len(l.events) {
			continue
		}
		slot := &l.events[f.Fd]
		active := slot.mask & f.Mask
		if active == None {
			continue
		}

		ranRead := false
		if active&Readable != 0 && slot.readProc != nil {
			slot.readProc(l, f.Fd, slot.clientData, active)
			ranRead = true
			count++
		}

		// Re-read the slot: the read callback may have unregistered or
		// reconfigured fd.
		slot = &l.events[f.Fd]
		active = slot.mask & f.Mask
		if active&Writable != 0 && slot.writeProc != nil {
			sameProc := ranRead && slot.readProc != nil &&
				funcEqual(slot.writeProc, slot.readProc)
			if !sameProc {
				slot.writeProc(l, f.Fd, slot.clientData, active)
				count++
			}
		}
	}
	return count
}

// Run clears the stop flag and repeatedly invokes the before-sleep hook (if
// any) followed by one ProcessEvents(All) tick, until Stop is called. It
// returns ErrLoopRunning if the loop is already inside a Run call.
func (l *EventLoop) Run() error {
	if !l.run.Begin() {
		return ErrLoopRunning
	}
	defer l.run.End()

	l.stopped = false
	for !l.stopped {
		if l.beforeSleep != nil {
			l.beforeSleep(l)
		}
		l.ProcessEvents(All)
	}
	return nil
}
