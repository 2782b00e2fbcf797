// Package request implements the §4.2 in-flight request table: the
// non-blocking counterpart to routine.Descriptor.Pending, keyed by the
// opaque request handle comm.Comm hands back from Isend/Irecv.
/*
 * Copyright (c) 2020-2026, Critter Authors. All rights reserved.
 */
package request

import (
	"sort"

	"github.com/critter-hpc/critter/cmn/cos"
	"github.com/critter-hpc/critter/routine"
)

// Handle is the opaque non-blocking request identifier; comm implementations
// mint these (comm.Comm.NewRequest).
type Handle int64

// Record is the §3 InFlightRequest: everything needed to fold a completed
// non-blocking call back into its descriptor's totals once complete()
// fires.
type Record struct {
	Desc      *routine.Descriptor
	StartTime float64
	Partner   int32
	Bytes     int64
	NumProcs  int
	// CompTimeAccum is set once at Register time (computation time is
	// attributed synchronously at initiate, SPEC_FULL.md §10.4);
	// CommTimeAccum accrues at each completeNonblocking call. Both can
	// additionally be bumped by Annotate between Register and Take,
	// mirroring the C++ tuple's save_comm_time / save_comp_time slots
	// (§4.4 non-blocking initiate/complete).
	CommTimeAccum float64
	CompTimeAccum float64
}

// Table is the request table itself: no locking, because §5 assumes one
// goroutine per rank drives the whole path tracker (the teacher's
// "no mutex needed inside a single process" argument applies verbatim).
type Table struct {
	m map[Handle]*Record
}

func NewTable() *Table {
	return &Table{m: make(map[Handle]*Record)}
}

// Register records a newly-issued non-blocking call. Returns
// cos.NewDuplicateRequest if the handle is already registered (§7).
func (t *Table) Register(h Handle, rec *Record) error {
	if _, dup := t.m[h]; dup {
		return cos.NewDuplicateRequest(h)
	}
	t.m[h] = rec
	return nil
}

// Annotate adds to the comm/comp time accumulators of an already
// registered request without removing it — used when a later call (e.g.
// a subsequent MPI_Test probing the same handle) measures more elapsed
// time before the eventual Wait. Returns cos.NewUnknownRequest if h isn't
// registered (§7).
func (t *Table) Annotate(h Handle, dComm, dComp float64) error {
	rec, ok := t.m[h]
	if !ok {
		return cos.NewUnknownRequest(h)
	}
	rec.CommTimeAccum += dComm
	rec.CompTimeAccum += dComp
	return nil
}

// Take removes and returns the Record for h. Returns cos.NewUnknownRequest
// if h isn't registered; in debug builds the caller is expected to additionally
// assert (SPEC_FULL.md §10.4, "debug-mode request-table assertions").
func (t *Table) Take(h Handle) (*Record, error) {
	rec, ok := t.m[h]
	if !ok {
		return nil, cos.NewUnknownRequest(h)
	}
	delete(t.m, h)
	return rec, nil
}

// CompleteAny takes and returns the single Record for the handle an
// MPI_Waitany-equivalent selected out of candidates; the rest of
// candidates stay registered.
func (t *Table) CompleteAny(chosen Handle) (*Record, error) {
	return t.Take(chosen)
}

// CompleteAllOrdered takes every handle in handles and returns their
// Records sorted by descending partner rank before folding, per §4.4's
// explicit "descending partner order" rule for MPI_Waitall (this is the
// opposite of the original C++ macro's ascending sort — spec.md is the
// authority where the two disagree, SPEC_FULL.md §10.4).
func (t *Table) CompleteAllOrdered(handles []Handle) ([]*Record, error) {
	recs := make([]*Record, 0, len(handles))
	for _, h := range handles {
		rec, err := t.Take(h)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return recs[i].Partner > recs[j].Partner
	})
	return recs, nil
}

// Len reports the number of still-outstanding requests — session.Stop
// uses this for the §7 debug-mode "request table must be empty" check.
func (t *Table) Len() int { return len(t.m) }

// Peek reports whether h is currently registered, without removing it.
func (t *Table) Peek(h Handle) (*Record, bool) {
	rec, ok := t.m[h]
	return rec, ok
}
