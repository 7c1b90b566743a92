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

import "errors"

// Sentinel errors for the loop's four error kinds. BACKEND-FAILURE does not
// get its own sentinel: it is whatever error the kernel call returned,
// wrapped with github.com/pkg/errors to attach the failing operation and fd.
var (
	// ErrRange is returned when a descriptor is >= the loop's setsize.
	ErrRange = errors.New("aeloop: fd out of range")
	// ErrSetSizeTooSmall is returned by ResizeSetSize when the requested
	// size would truncate an fd that is currently registered.
	ErrSetSizeTooSmall = errors.New("aeloop: new setsize smaller than a registered fd")
	// ErrInvalidSetSize is returned by Create/ResizeSetSize for a
	// non-positive setsize.
	ErrInvalidSetSize = errors.New("aeloop: setsize must be positive")
	// ErrTimerNotFound is returned by DelTimer when no timer has the given id.
	ErrTimerNotFound = errors.New("aeloop: timer not found")
	// ErrLoopRunning is returned by Run when the loop is already running
	// (e.g. a reentrant call from a callback).
	ErrLoopRunning = errors.New("aeloop: loop is already running")
)
