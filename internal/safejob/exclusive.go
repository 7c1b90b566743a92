// Tencent is pleased to support the open source community by making tnet available.
// Copyright (C) 2023 THL A29 Limited, a Tencent company. All rights reserved.
// If you have downloaded a copy of the tRPC source code from Tencent,
// please note that tnet source code is licensed under the Apache 2.0 License,
// A copy of the Apache 2.0 License can be found in the LICENSE file.

package safejob

import (
	"sync"

	"go.uber.org/atomic"
)

// ExclusiveUnblockJob executes job exclusively, if control is not acquired, directly return.
//
// The event loop uses it to reject a reentrant Run call on the same loop from the
// same goroutine (e.g. a before-sleep hook or callback calling Run again) instead of
// deadlocking or racing the dispatch loop against itself.
type ExclusiveUnblockJob struct {
	mu     sync.Mutex
	closed atomic.Bool
}

var _ Job = (*ExclusiveUnblockJob)(nil)

// Begin sets the start entry of the job.
func (j *ExclusiveUnblockJob) Begin() bool {
	if !j.mu.TryLock() {
		return false
	}
	if j.closed.Load() {
		j.mu.Unlock()
		return false
	}
	return true
}

// End sets the end entry of the job.
func (j *ExclusiveUnblockJob) End() {
	j.mu.Unlock()
}

// Close the job, after closed the job can't be executed anymore.
func (j *ExclusiveUnblockJob) Close() {
	j.mu.Lock()
	j.closed.Store(true)
	j.mu.Unlock()
}

// Closed returns whether the job is closed.
func (j *ExclusiveUnblockJob) Closed() bool {
	return j.closed.Load()
}
