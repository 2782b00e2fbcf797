// Package volumetric implements §2 component 6: per-rank sums of bytes
// moved, time spent communicating/idling, across every routine, reduced
// once at session stop() into a job-wide summary.
/*
 * Copyright (c) 2020-2026, Critter Authors. All rights reserved.
 */
package volumetric

import (
	"context"
	"encoding/binary"
	"math"

	"github.com/critter-hpc/critter/routine"
)

// Collector accumulates the volumetric (non-critical-path) view: simple
// per-rank sums across the whole catalogue, independent of the MAXLOC
// critical-path decomposition tracks.
type Collector struct {
	Local routine.Totals
}

func NewCollector() *Collector { return &Collector{} }

// Accumulate folds a Catalogue's current local totals (summed across every
// routine) into the running volumetric sum — called in bulk at session
// stop().
func (c *Collector) Accumulate(cat *routine.Catalogue) {
	cat.Each(func(d *routine.Descriptor) {
		c.Local.Add(d.Local)
	})
}

// reducer is the subset of comm.Comm volumetric needs: plain point-to-point
// bytes, not the MAXLOC collectives pathvec uses. Declared narrowly here
// (rather than importing comm.Comm wholesale) so volumetric stays testable
// against a bare-bones fake without a full Communicator.
type reducer interface {
	Rank() int
	Size() int
	Send(ctx context.Context, peer, tag int, data []byte) error
	Recv(ctx context.Context, peer, tag int) ([]byte, error)
}

const volumetricTag = -2 // reserved, distinct from comm.Exchange's -1 and any user tag

// Reduce computes the job-wide volumetric total: an elementwise *sum* of
// every rank's local totals (as opposed to pathvec's MAXLOC), since
// volumetric answers "how much work did the whole job do," not "what's on
// the critical path." Implemented as a simple star gather-then-broadcast
// through rank 0 — O(n) round trips, adequate for the per-run summary
// computed once at stop() rather than per-operation.
func Reduce(ctx context.Context, c reducer, local routine.Totals) (routine.Totals, error) {
	rank, size := c.Rank(), c.Size()

	if rank != 0 {
		if err := c.Send(ctx, 0, volumetricTag, encodeTotals(local)); err != nil {
			return routine.Totals{}, err
		}
		in, err := c.Recv(ctx, 0, volumetricTag)
		if err != nil {
			return routine.Totals{}, err
		}
		return decodeTotals(in), nil
	}

	total := local
	for p := 1; p < size; p++ {
		in, err := c.Recv(ctx, p, volumetricTag)
		if err != nil {
			return routine.Totals{}, err
		}
		total.Add(decodeTotals(in))
	}
	out := encodeTotals(total)
	for p := 1; p < size; p++ {
		if err := c.Send(ctx, p, volumetricTag, out); err != nil {
			return routine.Totals{}, err
		}
	}
	return total, nil
}

func encodeTotals(t routine.Totals) []byte {
	buf := make([]byte, 8*len(t))
	for i, v := range t {
		binary.LittleEndian.PutUint64(buf[i*8:], math.Float64bits(v))
	}
	return buf
}

func decodeTotals(b []byte) routine.Totals {
	var t routine.Totals
	for i := range t {
		t[i] = math.Float64frombits(binary.LittleEndian.Uint64(b[i*8:]))
	}
	return t
}
