// Package decomposition ties routine, request, pathvec, symbol, and comm
// together into the §4.4/§4.5 path tracker: initiate/complete/propagate
// for both blocking and non-blocking routines, mirroring the C++
// decomposition::path namespace in original_source/src/decomposition/path.h.
/*
 * Copyright (c) 2020-2026, Critter Authors. All rights reserved.
 */
package decomposition

import (
	"context"

	"github.com/critter-hpc/critter/cmn/cos"
	"github.com/critter-hpc/critter/cmn/mono"
	"github.com/critter-hpc/critter/comm"
	"github.com/critter-hpc/critter/pathvec"
	"github.com/critter-hpc/critter/request"
	"github.com/critter-hpc/critter/routine"
	"github.com/critter-hpc/critter/symbol"
)

// Tracker is the per-rank path tracker: the object session.SessionState
// drives and dispatch.Dispatcher calls through for every routine
// invocation.
type Tracker struct {
	Comm     comm.Comm
	Catalog  *routine.Catalogue
	Requests *request.Table
	Symbols  *symbol.Stack

	// path is the running critical-path vector: the result of the most
	// recent MAXLOC reduction, carried forward into the next one the way
	// critter_path accumulates across the run (§3 PathVector).
	path pathvec.Vector

	// compTimer is the §4.3 ComputationTimer: the wall-clock boundary every
	// blocking complete() measures save_comp_time against, then resets.
	compTimer float64
}

func NewTracker(c comm.Comm, cat *routine.Catalogue) *Tracker {
	t := &Tracker{
		Comm:     c,
		Catalog:  cat,
		Requests: request.NewTable(),
		Symbols:  symbol.NewStack(),
		path:     pathvec.Zero(),
	}
	t.ResetCompTimer()
	return t
}

// Path returns a copy of the current critical-path vector.
func (t *Tracker) Path() pathvec.Vector { return t.path }

// ResetCompTimer marks "now" as the ComputationTimer origin (§4.3 start()
// "record the start wall-clock into ComputationTimer"); session.Start calls
// this once per iteration via Dispatcher.Clear.
func (t *Tracker) ResetCompTimer() { t.compTimer = mono.NowSec() }

// probe issues the §4.4 synchronizing barrier immediately before a timed
// primitive so arrival skew doesn't leak into the measured duration, and
// returns cos.NewProbeFailed if the barrier itself errors.
func (t *Tracker) probe(ctx context.Context, name string) error {
	if err := t.Comm.Barrier(ctx); err != nil {
		return cos.NewProbeFailed(name, err)
	}
	return nil
}

// InitiateBlocking captures t0 = now() before issuing the synchronizing
// probe, then records the start time for a blocking routine (§4.4 "Blocking
// initiate"). idle = t_barrier - t0 is the arrival skew the probe absorbs;
// comp_time = t0 - ComputationTimer is the application work done since the
// last complete() (§4.3); both are stashed in Pending for CompleteBlocking
// to fold in. peer is the partner rank for point-to-point routines, -1 for
// collectives; it is stashed too so CompleteBlocking can choose the
// pairwise-Exchange propagation variant (§4.5) for
// Send/Recv/Sendrecv/SendrecvReplace.
func (t *Tracker) InitiateBlocking(ctx context.Context, id routine.ID, peer int, bytes int64, nprocs int) error {
	d := t.Catalog.Get(id)
	t0 := mono.NowSec()
	compTime := cos.ClampNonNeg(t0 - t.compTimer)
	if err := t.probe(ctx, id.String()); err != nil {
		return err
	}
	tBarrier := mono.NowSec()
	d.Pending.Idle = cos.ClampNonNeg(tBarrier - t0)
	d.Pending.CompTime = compTime
	d.Pending.StartTime = tBarrier
	d.Pending.Partner = int32(peer)
	d.Pending.Bytes = bytes
	d.Pending.NumProcs = nprocs
	return nil
}

// CompleteBlocking closes out a blocking call: measures elapsed comm time,
// evaluates the cost model, folds the result into the descriptor's local
// totals, propagates a new critical-path estimate (pairwise Exchange for
// point-to-point routines, Allreduce for collectives — §4.5), and
// attributes the cost to the innermost open symbol.
func (t *Tracker) CompleteBlocking(ctx context.Context, id routine.ID) error {
	d := t.Catalog.Get(id)
	now := mono.NowSec()
	commTime := cos.ClampNonNeg(now - d.Pending.StartTime)
	partner := int(d.Pending.Partner)
	t.foldBlocking(d, commTime)
	return t.propagateFor(ctx, d, partner)
}

// CompleteBlockingBroadcast is CompleteBlocking's §10.4
// "compute_all_crit_bcast" counterpart: same local-totals fold, but the
// broadcast-specialized MAXLOC seeding (PropagateBroadcast) in place of
// the general propagate.
func (t *Tracker) CompleteBlockingBroadcast(ctx context.Context, id routine.ID, root int) error {
	d := t.Catalog.Get(id)
	now := mono.NowSec()
	commTime := cos.ClampNonNeg(now - d.Pending.StartTime)
	t.foldBlocking(d, commTime)
	return t.PropagateBroadcast(ctx, d, root)
}

// InitiateNonblocking issues the probe, evaluates the cost model up
// front, and registers a request.Record — computation time is attributed
// synchronously at initiate for non-blocking ops (SPEC_FULL.md §10.4,
// grounded on the original's istart-time save_comp_time attribution): the
// elapsed time since the tracker's ComputationTimer was last reset is
// captured here and carried in the Record until the matching complete.
func (t *Tracker) InitiateNonblocking(ctx context.Context, id routine.ID, peer int, bytes int64, nprocs int) (request.Handle, error) {
	d := t.Catalog.Get(id)
	t0 := mono.NowSec()
	compTime := cos.ClampNonNeg(t0 - t.compTimer)
	if err := t.probe(ctx, id.String()); err != nil {
		return 0, err
	}
	h := request.Handle(t.Comm.NewRequest())
	rec := &request.Record{
		Desc:          d,
		StartTime:     mono.NowSec(),
		Partner:       int32(peer),
		Bytes:         bytes,
		NumProcs:      nprocs,
		CompTimeAccum: compTime,
	}
	if err := t.Requests.Register(h, rec); err != nil {
		return 0, err
	}
	return h, nil
}

// CompleteNonblockingOne is the MPI_Wait/MPI_Waitany-equivalent completion
// path for a single handle.
func (t *Tracker) CompleteNonblockingOne(ctx context.Context, h request.Handle) error {
	rec, err := t.Requests.Take(h)
	if err != nil {
		return err
	}
	return t.completeNonblocking(ctx, rec)
}

// CompleteNonblockingAll is the MPI_Waitall-equivalent completion path:
// takes every handle, folds and propagates them one at a time in
// descending-partner order (§4.4) — each pair's pairwise Exchange (or
// collective Allreduce) is issued as that record is folded, so both
// endpoints of a point-to-point pair agree on fold order (§4.5
// "ordered by descending partner rank so that both endpoints agree").
func (t *Tracker) CompleteNonblockingAll(ctx context.Context, handles []request.Handle) error {
	recs, err := t.Requests.CompleteAllOrdered(handles)
	if err != nil {
		return err
	}
	for _, rec := range recs {
		if err := t.completeNonblocking(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tracker) completeNonblocking(ctx context.Context, rec *request.Record) error {
	now := mono.NowSec()
	commTime := cos.ClampNonNeg(now - rec.StartTime)
	rec.CommTimeAccum += commTime
	v := vecFor(rec.Desc, rec)
	rec.Desc.Local.Add(v)
	rec.Desc.NumCalls++
	t.Symbols.Charge(v)
	return t.propagateFor(ctx, rec.Desc, int(rec.Partner))
}

// foldBlocking performs the §4.4 "Blocking complete" bookkeeping — cost
// evaluation, local-totals update, symbol attribution, pending reset — and
// the §4.3 ComputationTimer reset, without triggering propagation, so
// CompleteBlocking and CompleteBlockingBroadcast can share it while
// choosing different §4.5 propagation variants. A cost-model domain error
// is §7's "substitute 0, flag descriptor as tainted" rather than aborting
// the fold.
func (t *Tracker) foldBlocking(d *routine.Descriptor, commTime float64) {
	latency, bandwidth, err := d.Cost(d.Pending.Bytes, d.Pending.NumProcs)
	if err != nil {
		latency, bandwidth = 0, 0
		d.Tainted = true
	}
	compTime := d.Pending.CompTime
	var v [pathvec.NumComponents]float64
	v[pathvec.Bytes] = float64(d.Pending.Bytes)
	v[pathvec.CommTime] = commTime
	v[pathvec.IdleTime] = d.Pending.Idle
	v[pathvec.EstLatency] = latency
	v[pathvec.EstBandwidth] = bandwidth
	v[pathvec.CompTime] = compTime
	v[pathvec.RunTime] = commTime + compTime
	d.Local.Add(v)
	d.NumCalls++
	d.Pending.Reset()
	t.ResetCompTimer()

	t.Symbols.Charge(v)
}

// Propagate re-runs the MAXLOC fold for d's current local totals; exported
// so dispatch's façade can re-trigger propagation independent of a
// specific complete call (§4.7 "propagate").
func (t *Tracker) Propagate(ctx context.Context, d *routine.Descriptor) error {
	return t.propagate(ctx, d)
}

// Finalize is §4.3 stop()'s "call the path tracker's finalise(comm_world),
// which performs exactly one global max-plus reduction": it seeds the
// current path vector's runtime component with the caller-supplied wall
// clock runtime (now - start_time), then folds every rank's vector with a
// single Allreduce — the one reduction a stop() with no intervening
// operations still needs to produce a vector whose only non-zero component
// is runtime (§8 "start/stop round trip").
func (t *Tracker) Finalize(ctx context.Context, runtime float64) (pathvec.Vector, error) {
	local := pathvec.FromLocal(t.path.Values(), int32(t.Comm.Rank()))
	local[pathvec.RunTime] = pathvec.Entry{Value: runtime, Rank: int32(t.Comm.Rank())}
	reduced, err := t.Comm.Allreduce(ctx, local)
	if err != nil {
		return pathvec.Vector{}, err
	}
	t.path = reduced
	return t.path, nil
}

// vecFor builds the 8-component delta vector for a completed non-blocking
// request, the request-table analogue of complete's inline computation. A
// cost-model domain error is §7's "substitute 0, flag descriptor as
// tainted" rather than aborting the fold.
func vecFor(d *routine.Descriptor, rec *request.Record) [pathvec.NumComponents]float64 {
	latency, bandwidth, err := d.Cost(rec.Bytes, rec.NumProcs)
	if err != nil {
		latency, bandwidth = 0, 0
		d.Tainted = true
	}
	var v [pathvec.NumComponents]float64
	v[pathvec.Bytes] = float64(rec.Bytes)
	v[pathvec.CommTime] = rec.CommTimeAccum
	v[pathvec.EstLatency] = latency
	v[pathvec.EstBandwidth] = bandwidth
	v[pathvec.CompTime] = rec.CompTimeAccum
	v[pathvec.RunTime] = rec.CommTimeAccum + rec.CompTimeAccum
	return v
}

// propagate folds this rank's updated local totals for d into the running
// critical-path vector via MAXLOC (§4.5), using a full Allreduce across
// the communicator — the collective case, and the fallback for Propagate
// (the façade's standalone re-trigger, which has no partner to exchange
// with).
func (t *Tracker) propagate(ctx context.Context, d *routine.Descriptor) error {
	local := pathvec.FromLocal(d.Local, int32(t.Comm.Rank()))
	reduced, err := t.Comm.Allreduce(ctx, local)
	if err != nil {
		return err
	}
	t.path.MaxPlus(reduced)
	d.Path = routine.Totals(t.path.Values())
	return nil
}

// propagateFor is propagate's routine-aware dispatch: point-to-point
// routines (§4.1's Send/Recv/Isend/Irecv/Sendrecv/SendrecvReplace) fold
// via a pairwise Exchange with partner instead of a communicator-wide
// Allreduce (§4.5 "For a point-to-point operation between ranks r and
// s"); everything else — and any point-to-point call with no partner
// recorded (partner < 0) — uses the general Allreduce path.
func (t *Tracker) propagateFor(ctx context.Context, d *routine.Descriptor, partner int) error {
	if !d.ID.PointToPoint() || partner < 0 {
		return t.propagate(ctx, d)
	}
	local := pathvec.FromLocal(d.Local, int32(t.Comm.Rank()))
	reduced, err := t.Comm.Exchange(ctx, partner, local)
	if err != nil {
		return err
	}
	t.path.MaxPlus(reduced)
	d.Path = routine.Totals(t.path.Values())
	return nil
}

// PropagateBroadcast is the SPEC_FULL.md §10.4 "compute_all_crit_bcast"
// variant: only the root's payload-bearing components feed the MAXLOC
// input; every rank still contributes its own idle/skew components, since
// Bcast's cost is asymmetric (the root pays for message construction, the
// rest pay for waiting on it) in a way the general propagate doesn't
// model.
func (t *Tracker) PropagateBroadcast(ctx context.Context, d *routine.Descriptor, root int) error {
	local := pathvec.FromLocal(d.Local, int32(t.Comm.Rank()))
	if t.Comm.Rank() != root {
		// non-root ranks never contributed payload bytes or cost-model
		// components, only idle time measured as their own comm_time.
		local[pathvec.Bytes] = pathvec.Entry{Value: 0, Rank: int32(t.Comm.Rank())}
		local[pathvec.EstLatency] = pathvec.Entry{Value: 0, Rank: int32(t.Comm.Rank())}
		local[pathvec.EstBandwidth] = pathvec.Entry{Value: 0, Rank: int32(t.Comm.Rank())}
	}
	reduced, err := t.Comm.Allreduce(ctx, local)
	if err != nil {
		return err
	}
	t.path.MaxPlus(reduced)
	d.Path = routine.Totals(t.path.Values())
	return nil
}
