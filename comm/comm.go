// Package comm is the messaging-substrate seam §1 carves out as explicitly
// out of scope for interception, reduced to the one interface the path
// tracker actually calls through: a Communicator. Hosts that already have
// a real MPI binding wrap it behind this interface; comm ships two
// concrete implementations for tests and standalone demos.
/*
 * Copyright (c) 2020-2026, Critter Authors. All rights reserved.
 */
package comm

import (
	"context"
	"sync/atomic"

	"github.com/critter-hpc/critter/pathvec"
)

// Request is the opaque non-blocking call handle a Communicator mints;
// request.Handle wraps this same underlying value.
type Request int64

var reqSeq atomic.Int64

// NextRequest mints a process-wide-unique request handle. Communicator
// implementations that don't need their own numbering scheme can use this
// directly.
func NextRequest() Request {
	return Request(reqSeq.Add(1))
}

// Comm is the seam between the path tracker (decomposition package) and
// whatever actually moves bytes and synchronizes ranks. Every method takes
// a context so a networked implementation can honor cancellation/timeouts;
// the in-process implementation ignores ctx beyond checking Err().
type Comm interface {
	Rank() int
	Size() int

	// Barrier is the §4.4 "synchronizing probe": a full barrier issued
	// immediately before the timed primitive so arrival skew doesn't leak
	// into the measured duration.
	Barrier(ctx context.Context) error

	// Allreduce performs the MAXLOC max-plus reduction (§4.5) across every
	// rank in the communicator and returns the fully-reduced Vector to
	// all of them.
	Allreduce(ctx context.Context, v pathvec.Vector) (pathvec.Vector, error)

	// Exchange performs a symmetric point-to-point swap of one Vector
	// with peer, both sides ending up with the MAXLOC merge of their two
	// inputs — the primitive decomposition.path's non-collective
	// propagation steps use to fold send/recv partners into the path
	// (§4.4 "propagate" for point-to-point routines).
	Exchange(ctx context.Context, peer int, v pathvec.Vector) (pathvec.Vector, error)

	// Send/Recv move raw payload bytes for the routines that carry actual
	// data (as opposed to just a path vector); critter only cares about
	// len(data) for its cost model, never the contents.
	Send(ctx context.Context, peer, tag int, data []byte) error
	Recv(ctx context.Context, peer, tag int) ([]byte, error)

	// NewRequest mints a handle for a just-issued non-blocking operation;
	// callers register it in the request table before the underlying
	// network call returns.
	NewRequest() Request
}
