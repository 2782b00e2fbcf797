// Package dispatch implements the §4.7 façade: one switch-keyed entry
// point per lifecycle operation (initiate, complete, propagate, collect,
// open_symbol/close_symbol, final_accumulate, clear, record), mirroring
// original_source/src/dispatch/dispatch.cxx's tagged-variant dispatch
// rather than virtual calls, to keep the hot path branch-predictable
// (§9 "dispatch-as-tagged-variant").
/*
 * Copyright (c) 2020-2026, Critter Authors. All rights reserved.
 */
package dispatch

import (
	"context"

	"github.com/critter-hpc/critter/comm"
	"github.com/critter-hpc/critter/decomposition"
	"github.com/critter-hpc/critter/request"
	"github.com/critter-hpc/critter/routine"
	"github.com/critter-hpc/critter/volumetric"
)

// Dispatcher is the single object a host program's Initiate*/Complete*
// wrappers (critter.go) call through; it owns the tracker, the
// volumetric collector, and knows which routines need the broadcast-
// specialized propagation variant.
type Dispatcher struct {
	Tracker    *decomposition.Tracker
	Volumetric *volumetric.Collector
	root       int // world root for broadcast-shaped routines, always 0
}

func New(c comm.Comm, cat *routine.Catalogue) *Dispatcher {
	return &Dispatcher{
		Tracker:    decomposition.NewTracker(c, cat),
		Volumetric: volumetric.NewCollector(),
		root:       0,
	}
}

// Initiate dispatches to the blocking or non-blocking initiate path based
// on routine.ID.Blocking(). peer is only meaningful for point-to-point and
// non-blocking routines; pass -1 for collectives.
func (d *Dispatcher) Initiate(ctx context.Context, id routine.ID, peer int, bytes int64, nprocs int) (request.Handle, error) {
	if id.Blocking() {
		return 0, d.Tracker.InitiateBlocking(ctx, id, peer, bytes, nprocs)
	}
	return d.Tracker.InitiateNonblocking(ctx, id, peer, bytes, nprocs)
}

// Complete dispatches the matching completion path for a blocking id,
// folding local totals and propagating — using the broadcast-specialized
// MAXLOC seeding for routine.Bcast (SPEC_FULL.md §10.4) and the general
// propagation for everything else.
func (d *Dispatcher) Complete(ctx context.Context, id routine.ID) error {
	if id == routine.Bcast {
		return d.Tracker.CompleteBlockingBroadcast(ctx, id, d.root)
	}
	return d.Tracker.CompleteBlocking(ctx, id)
}

// CompleteOne is MPI_Wait-equivalent: complete a single outstanding
// non-blocking request.
func (d *Dispatcher) CompleteOne(ctx context.Context, h request.Handle) error {
	return d.Tracker.CompleteNonblockingOne(ctx, h)
}

// CompleteAll is MPI_Waitall-equivalent.
func (d *Dispatcher) CompleteAll(ctx context.Context, handles []request.Handle) error {
	return d.Tracker.CompleteNonblockingAll(ctx, handles)
}

// Propagate re-runs the MAXLOC fold for id's current local totals,
// choosing the broadcast-specialized variant when id == routine.Bcast
// (SPEC_FULL.md §10.4).
func (d *Dispatcher) Propagate(ctx context.Context, id routine.ID) error {
	desc := d.Tracker.Catalog.Get(id)
	if id == routine.Bcast {
		return d.Tracker.PropagateBroadcast(ctx, desc, d.root)
	}
	return d.Tracker.Propagate(ctx, desc)
}

// Collect folds every routine's current local totals into the volumetric
// collector — §2 component 6's accumulation step, called once per
// iteration or at session stop().
func (d *Dispatcher) Collect() {
	d.Volumetric.Accumulate(d.Tracker.Catalog)
}

// OpenSymbol / CloseSymbol delegate straight to the tracker's region
// stack (§4.6).
func (d *Dispatcher) OpenSymbol(name string) { d.Tracker.Symbols.Open(name) }
func (d *Dispatcher) CloseSymbol()           { d.Tracker.Symbols.Close() }

// FinalAccumulate is the end-of-run rollup: collect volumetric totals and
// finalise the critical-path vector with exactly one more global max-plus
// reduction seeded with the caller's measured wall-clock runtime (§4.3
// stop()), the Go analogue of dispatch.cxx's final_accumulate.
func (d *Dispatcher) FinalAccumulate(ctx context.Context, runtime float64) (path routine.Totals, vol routine.Totals, err error) {
	d.Collect()
	finalVec, err := d.Tracker.Finalize(ctx, runtime)
	if err != nil {
		return routine.Totals{}, routine.Totals{}, err
	}
	return routine.Totals(finalVec.Values()), d.Volumetric.Local, nil
}

// Clear resets the catalogue, request table, symbol stack, and
// ComputationTimer for a new measurement iteration (dispatch.cxx's clear;
// the ComputationTimer reset is §4.3 start()'s "record the start wall-clock
// into ComputationTimer").
func (d *Dispatcher) Clear() {
	d.Tracker.Catalog.Reset()
	d.Tracker.Symbols.Clear()
	d.Tracker.ResetCompTimer()
	*d.Volumetric = volumetric.Collector{}
}
