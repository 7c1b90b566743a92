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

// Package aeloop is a single-threaded, reactor-style event dispatcher: it
// multiplexes I/O readiness over a set of file descriptors together with
// user-scheduled timers, and invokes callbacks when either becomes ready.
// It is meant as the concurrency core of a networked server — register
// descriptors and timers, then hand control to Run.
//
// aeloop does not open sockets, accept connections, or speak any wire
// protocol; it only drives the callbacks the caller installs. The caller
// owns every descriptor and every piece of client data it hands the loop.
package aeloop
