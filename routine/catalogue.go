// Package routine implements the §4.1 routine catalogue: one Descriptor
// per MPI primitive critter tracks, each carrying its own cost model and
// running totals.
/*
 * Copyright (c) 2020-2026, Critter Authors. All rights reserved.
 */
package routine

import (
	"math"

	"github.com/critter-hpc/critter/cmn/cos"
	"github.com/critter-hpc/critter/cmn/mono"
	"github.com/critter-hpc/critter/pathvec"
)

// ID enumerates the 19 routines §2 calls "NumCritters".
type ID int

const (
	Barrier ID = iota
	Bcast
	Reduce
	Allreduce
	Gather
	Gatherv
	Allgather
	Allgatherv
	Scatter
	Scatterv
	ReduceScatter
	Alltoall
	Alltoallv
	Send
	Recv
	Isend
	Irecv
	Sendrecv
	SendrecvReplace
	NumRoutines
)

func (id ID) String() string {
	return names[id]
}

var names = [NumRoutines]string{
	Barrier:          "barrier",
	Bcast:            "bcast",
	Reduce:           "reduce",
	Allreduce:        "allreduce",
	Gather:           "gather",
	Gatherv:          "gatherv",
	Allgather:        "allgather",
	Allgatherv:       "allgatherv",
	Scatter:          "scatter",
	Scatterv:         "scatterv",
	ReduceScatter:    "reduce_scatter",
	Alltoall:         "alltoall",
	Alltoallv:        "alltoallv",
	Send:             "send",
	Recv:             "recv",
	Isend:            "isend",
	Irecv:            "irecv",
	Sendrecv:         "sendrecv",
	SendrecvReplace:  "sendrecv_replace",
}

// Blocking reports whether id is issued and completed synchronously; the
// non-blocking routines (Isend/Irecv) instead go through the request
// table (§4.2) between initiate and complete.
func (id ID) Blocking() bool {
	return id != Isend && id != Irecv
}

// PointToPoint reports whether id names a pairwise routine, which
// propagates by exchanging path vectors directly with its partner rank
// rather than an allreduce over the whole communicator (§4.5 "For a
// point-to-point operation between ranks r and s").
func (id ID) PointToPoint() bool {
	switch id {
	case Send, Recv, Isend, Irecv, Sendrecv, SendrecvReplace:
		return true
	default:
		return false
	}
}

// CostFunc models §4.4's "estimated latency/bandwidth cost" for a single
// routine call: given the payload size in bytes and the number of
// participating processes, it returns (estimated latency, estimated
// bandwidth-time) in seconds, consistent with CritterCostMetrics'
// EstCommCost/EstSynchCost pair.
type CostFunc func(bytes int64, nprocs int) (latency, bandwidth float64)

// Totals holds the 8 running sums a Descriptor accumulates — both
// local_totals and path_totals use this shape (§3).
type Totals [pathvec.NumComponents]float64

func (t *Totals) Add(v [pathvec.NumComponents]float64) {
	for i := range t {
		t[i] += v[i]
	}
}

// Pending is the §4.4 "pending" half of a RoutineDescriptor: state held
// between a synchronizing probe and the matching complete call. StartTime
// of mono.Idle means no call is currently in flight.
type Pending struct {
	StartTime float64
	Partner   int32 // -1 when not applicable (collectives)
	Bytes     int64
	NumProcs  int
	// Idle is the barrier skew captured at initiate: t_barrier - t0, where
	// t0 is the wall clock read immediately before the synchronizing probe
	// (§4.4 "Blocking initiate").
	Idle float64
	// CompTime is save_comp_time, the elapsed time since the tracker's
	// ComputationTimer was last reset, captured at initiate (§4.3/§4.4) and
	// carried here until the matching complete() folds it in.
	CompTime float64
}

func (p *Pending) Reset() {
	p.StartTime = mono.Idle
	p.Partner = -1
	p.Bytes = 0
	p.NumProcs = 0
	p.Idle = 0
	p.CompTime = 0
}

// Descriptor is the §3 RoutineDescriptor: identity, cost model, running
// totals, and the transient pending state for blocking calls (non-blocking
// calls keep their pending state in the request table instead, §4.2).
type Descriptor struct {
	ID       ID
	CostFn   CostFunc
	Local    Totals
	Path     Totals
	Pending  Pending
	NumCalls int64
	// Tainted is set once Cost ever returns a CostModelDomain error for
	// this routine; the offending call's latency/bandwidth are substituted
	// with 0 rather than aborting the fold (§7 "substitute 0, flag
	// descriptor as tainted").
	Tainted bool
}

func newDescriptor(id ID, fn CostFunc) *Descriptor {
	d := &Descriptor{ID: id, CostFn: fn}
	d.Pending.Reset()
	return d
}

// Catalogue holds one Descriptor per routine, indexed by ID — the Go
// analogue of critter_req's static array-of-structs in critter.h.
type Catalogue struct {
	descs [NumRoutines]*Descriptor
}

// New builds a Catalogue with the default Hockney-style cost model: a
// fixed per-call latency plus bytes/bandwidth, matching the additive
// alpha-beta model CritterCostMetrics.EstCommCost/EstSynchCost imply.
// Hosts that need a different model can override per-routine with Set.
func New() *Catalogue {
	c := &Catalogue{}
	for id := range ID(NumRoutines) {
		c.descs[id] = newDescriptor(id, DefaultCostModel)
	}
	// Broadcast-like collectives get the closed-form alpha*log2(p)+beta*n
	// complexity (§4.1); with p=2 this still satisfies the worked example
	// in §8 scenario 1 (est_latency=1 for a two-rank broadcast).
	for _, id := range []ID{Bcast, Reduce, Allreduce, Scatter, Gather} {
		c.descs[id].CostFn = bcastCostModel
	}
	return c
}

// DefaultCostModel is §4.1's fallback: "latency = 1, bandwidth = bytes".
// Specialised routines (e.g. the alpha*log2(p) + beta*n broadcast model
// in New) override this per-descriptor via Set.
func DefaultCostModel(bytes int64, nprocs int) (latency, bandwidth float64) {
	if bytes < 0 || nprocs < 0 {
		return math.NaN(), math.NaN()
	}
	latency = 1
	bandwidth = float64(bytes)
	return
}

// bcastCostModel is the closed-form alpha*log2(p) + beta*n complexity
// §4.1 calls out for broadcast-like collectives.
func bcastCostModel(bytes int64, nprocs int) (latency, bandwidth float64) {
	if bytes < 0 || nprocs < 0 {
		return math.NaN(), math.NaN()
	}
	p := float64(nprocs)
	if p < 1 {
		p = 1
	}
	latency = math.Log2(p)
	bandwidth = float64(bytes)
	return
}

// Get returns the Descriptor for id.
func (c *Catalogue) Get(id ID) *Descriptor { return c.descs[id] }

// Set installs a custom cost model for id.
func (c *Catalogue) Set(id ID, fn CostFunc) { c.descs[id].CostFn = fn }

// Each calls fn once per Descriptor, in ID order.
func (c *Catalogue) Each(fn func(*Descriptor)) {
	for _, d := range c.descs {
		fn(d)
	}
}

// Reset zeroes local/path totals and pending state for every routine — the
// session.Start hook, mirrored on dispatch::reset in dispatch.cxx.
func (c *Catalogue) Reset() {
	for _, d := range c.descs {
		d.Local = Totals{}
		d.Path = Totals{}
		d.Pending.Reset()
		d.NumCalls = 0
		d.Tainted = false
	}
}

// Cost evaluates a Descriptor's cost model, returning a CostModelDomain
// error for out-of-domain inputs (§7) instead of propagating NaN.
func (d *Descriptor) Cost(bytes int64, nprocs int) (latency, bandwidth float64, err error) {
	latency, bandwidth = d.CostFn(bytes, nprocs)
	if math.IsNaN(latency) || math.IsNaN(bandwidth) {
		return 0, 0, cos.NewCostModelDomain("routine %s: bytes=%d nprocs=%d out of domain", d.ID, bytes, nprocs)
	}
	return
}
