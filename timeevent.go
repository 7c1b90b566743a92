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

	"github.com/riftloop/aeloop/log"
	"github.com/riftloop/aeloop/metrics"
)

// NoMore is the sentinel a TimeProc returns to mean "one-shot: delete me".
// Any non-negative return value instead reschedules the timer that many
// milliseconds from now.
const NoMore int64 = -1

// TimeProc is a timer callback. Its return value is either NoMore or a
// non-negative count of milliseconds until the next firing.
type TimeProc func(loop *EventLoop, id uint64, clientData interface{}) int64

// FinalizerProc runs when a timer is removed, one-shot or not, giving the
// caller a chance to release clientData. It is optional.
type FinalizerProc func(loop *EventLoop, clientData interface{})

// timeEvent is one node of the loop's unsorted, singly linked timer list.
// New timers are prepended, so creation is O(1); finding the nearest timer
// and firing ripe ones are both O(n) scans, documented and accepted (see
// spec.md §4.3) — a skiplist or min-heap is the future optimization this
// layer is built to allow without changing the interface above it.
type timeEvent struct {
	id            uint64
	whenSec       int64
	whenMs        int64
	timeProc      TimeProc
	finalizerProc FinalizerProc
	clientData    interface{}
	next          *timeEvent
}

// before reports whether e is strictly earlier than (sec, ms).
func (e *timeEvent) before(sec, ms int64) bool {
	return e.whenSec < sec || (e.whenSec == sec && e.whenMs < ms)
}

// ripe reports whether e's fire time has arrived by (sec, ms).
func (e *timeEvent) ripe(sec, ms int64) bool {
	return e.whenSec < sec || (e.whenSec == sec && e.whenMs <= ms)
}

// nowParts returns the current wall clock split into (seconds, milliseconds).
func nowParts() (sec, ms int64) {
	n := time.Now()
	return n.Unix(), int64(n.Nanosecond() / int(time.Millisecond))
}

// addMs returns (sec, ms) advanced by deltaMs milliseconds, carrying any
// overflow of the millisecond field into seconds.
func addMs(sec, ms, deltaMs int64) (int64, int64) {
	ms += deltaMs
	sec += ms / 1000
	ms %= 1000
	return sec, ms
}

// AddTimer schedules proc to run after ms milliseconds, returning the
// timer's identifier. Identifiers are dense, strictly increasing, and never
// reused within the loop's lifetime.
func (l *EventLoop) AddTimer(ms int64, proc TimeProc, clientData interface{}, finalizer FinalizerProc) uint64 {
	id := l.timeEventNextID
	l.timeEventNextID++
	sec, millis := nowParts()
	sec, millis = addMs(sec, millis, ms)
	e := &timeEvent{
		id:            id,
		whenSec:       sec,
		whenMs:        millis,
		timeProc:      proc,
		finalizerProc: finalizer,
		clientData:    clientData,
		next:          l.timeEventHead,
	}
	l.timeEventHead = e
	metrics.Add(metrics.TimersCreated, 1)
	return id
}

// DelTimer removes the timer with the given id, invoking its finalizer if
// one was installed. It returns ErrTimerNotFound if no timer has that id.
func (l *EventLoop) DelTimer(id uint64) error {
	var prev *timeEvent
	for e := l.timeEventHead; e != nil; e = e.next {
		if e.id != id {
			prev = e
			continue
		}
		l.unlinkTimer(prev, e)
		if e.finalizerProc != nil {
			e.finalizerProc(l, e.clientData)
		}
		metrics.Add(metrics.TimersDeleted, 1)
		return nil
	}
	return ErrTimerNotFound
}

func (l *EventLoop) unlinkTimer(prev, e *timeEvent) {
	if prev == nil {
		l.timeEventHead = e.next
	} else {
		prev.next = e.next
	}
}

// nearestTimer scans the timer list and returns the one with the
// lexicographically smallest (seconds, milliseconds), or nil if empty.
func (l *EventLoop) nearestTimer() *timeEvent {
	var nearest *timeEvent
	for e := l.timeEventHead; e != nil; e = e.next {
		if nearest == nil || e.before(nearest.whenSec, nearest.whenMs) {
			nearest = e
		}
	}
	return nearest
}

// processTimerEvents runs one firing pass and returns the number of timer
// callbacks invoked. A timer created by a callback during this pass is
// never fired in the same pass: the maxID guard below skips any timer
// whose id exceeds the id counter's value when the pass began, which bounds
// the total work to the timers that existed before the pass, regardless of
// how many new ones a callback schedules.
func (l *EventLoop) processTimerEvents() int {
	if l.timeEventHead == nil {
		return 0
	}

	nowSec, nowMs := nowParts()
	if nowSec < l.lastTime {
		// The wall clock moved backwards. Zeroing every pending timer's
		// seconds field makes all of them ripe in the comparison just
		// below: firing everything early is safer than stalling
		// indefinitely until the clock catches back up.
		for e := l.timeEventHead; e != nil; e = e.next {
			e.whenSec = 0
		}
		metrics.Add(metrics.ClockSkewDetected, 1)
		log.Warnf("aeloop: wall clock moved backwards (now=%d last=%d), firing all pending timers", nowSec, l.lastTime)
	}
	l.lastTime = nowSec

	maxID := l.timeEventNextID - 1
	processed := 0

	// now is captured once for the whole pass, not re-read per firing: a
	// periodic timer rescheduled to now+return will not be ripe again in
	// this same pass unless return is 0. Firing may mutate the list
	// (delete/reschedule/create), so each iteration restarts the scan from
	// the head; the maxID guard bounds total work to the timers that
	// existed when the pass began.
restart:
	for prev, e := (*timeEvent)(nil), l.timeEventHead; e != nil; prev, e = e, e.next {
		if e.id > maxID {
			continue
		}
		if !e.ripe(nowSec, nowMs) {
			continue
		}
		next := e.timeProc(l, e.id, e.clientData)
		processed++
		metrics.Add(metrics.TimersFired, 1)
		if next == NoMore {
			l.unlinkTimer(prev, e)
			if e.finalizerProc != nil {
				e.finalizerProc(l, e.clientData)
			}
			metrics.Add(metrics.TimersDeleted, 1)
		} else {
			e.whenSec, e.whenMs = addMs(nowSec, nowMs, next)
		}
		goto restart
	}
	return processed
}
