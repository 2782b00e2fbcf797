// Package mono provides the monotonic wall-clock primitives critter's
// timers are built on.
/*
 * Copyright (c) 2020-2026, Critter Authors. All rights reserved.
 */
package mono

import "time"

// start is the process-wide reference point; every NowSec() call returns
// seconds elapsed since this instant, which is all the path tracker and
// the cost model ever need (§3 "all timestamps are doubles, seconds").
var start = time.Now()

// NowSec returns seconds since process start, matching MPI_Wtime's
// "arbitrary origin, monotonic within a run" contract.
func NowSec() float64 {
	return time.Since(start).Seconds()
}

// Idle is the sentinel the spec uses for "no in-flight timer" (§3
// InFlightRequest.start_time, §4.4 pending-state start_time == -1).
const Idle = -1.0
