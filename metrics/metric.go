//
//
// Tencent is pleased to support the open source community by making tRPC available.
//
// Copyright (C) 2023 THL A29 Limited, a Tencent company.
// All rights reserved.
//
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tRPC source code is licensed under the  Apache 2.0 License,
// A copy of the Apache 2.0 License is included in this file.
//
//

// Package metrics provides a handful of runtime counters for the event
// loop, useful for spotting a pathological tick (e.g. a runaway timer
// rescheduling loop, or a poll call that never finds anything ready).
package metrics

import (
	"fmt"
	"time"

	"go.uber.org/atomic"
)

// All metrics definitions.
const (
	// PollWaitCalls counts calls into the backend's Poll.
	PollWaitCalls = iota
	// PollNoWaitCalls counts Poll calls made with a zero timeout (DONT-WAIT).
	PollNoWaitCalls
	// PollReadyEvents counts the total number of (fd, mask) entries a Poll
	// call has reported ready.
	PollReadyEvents
	// FileEventsAdded counts successful AddFileEvent calls.
	FileEventsAdded
	// FileEventsRemoved counts DelFileEvent calls that removed at least one bit.
	FileEventsRemoved
	// TimersCreated counts AddTimer calls.
	TimersCreated
	// TimersDeleted counts timers removed, whether by DelTimer or by firing
	// with the one-shot sentinel.
	TimersDeleted
	// TimersFired counts timer callback invocations.
	TimersFired
	// ClockSkewDetected counts firing passes where the wall clock was found
	// to have moved backwards since the previous pass.
	ClockSkewDetected
	// ResizeCalls counts ResizeSetSize calls that actually changed capacity.
	ResizeCalls
	// Max is the number of defined counters.
	Max
)

var metricValues [Max]atomic.Uint64

// Add adds delta to the named counter.
func Add(name int, delta uint64) {
	if name < 0 || name >= Max {
		return
	}
	metricValues[name].Add(delta)
}

// Get reads the named counter.
func Get(name int) uint64 {
	if name < 0 || name >= Max {
		return 0
	}
	return metricValues[name].Load()
}

// GetAll returns a snapshot of every counter.
func GetAll() [Max]uint64 {
	var m [Max]uint64
	for i := range metricValues {
		m[i] = metricValues[i].Load()
	}
	return m
}

// ShowMetricsOfPeriod blocks for d, then prints the counter deltas observed
// over that period.
func ShowMetricsOfPeriod(d time.Duration) {
	old := GetAll()
	<-time.After(d)
	latest := GetAll()
	var m [Max]uint64
	for i := range metricValues {
		m[i] = latest[i] - old[i]
	}
	showAll(m)
}

// ShowMetrics prints the current counter values.
func ShowMetrics() {
	showAll(GetAll())
}

func showAll(m [Max]uint64) {
	fmt.Println("######### event loop metrics (", time.Now().Format("2006-01-02 15:04:05"), ") ###########")
	fmt.Printf("%-55s: %d\n", "# number of backend Poll calls", m[PollWaitCalls])
	fmt.Printf("%-55s: %d\n", "# number of Poll calls with DONT-WAIT", m[PollNoWaitCalls])
	fmt.Printf("%-55s: %d\n", "# number of ready (fd, mask) events delivered", m[PollReadyEvents])
	if m[PollWaitCalls] > 0 {
		fmt.Printf("%-55s: %.2f\n", "# average ready events per Poll call",
			float64(m[PollReadyEvents])/float64(m[PollWaitCalls]))
	}
	fmt.Printf("%-55s: %d\n", "# file events added", m[FileEventsAdded])
	fmt.Printf("%-55s: %d\n", "# file events removed", m[FileEventsRemoved])
	fmt.Printf("%-55s: %d\n", "# timers created", m[TimersCreated])
	fmt.Printf("%-55s: %d\n", "# timers deleted", m[TimersDeleted])
	fmt.Printf("%-55s: %d\n", "# timer callbacks fired", m[TimersFired])
	fmt.Printf("%-55s: %d\n", "# clock-skew-backwards detections", m[ClockSkewDetected])
	fmt.Printf("%-55s: %d\n", "# setsize resizes", m[ResizeCalls])
	fmt.Printf("\n")
}
