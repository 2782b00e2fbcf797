// Package session implements §4.3: SessionState's start()/stop()
// bulk-synchronous lifecycle and the §6 output emission that happens at
// stop().
/*
 * Copyright (c) 2020-2026, Critter Authors. All rights reserved.
 */
package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/critter-hpc/critter/cmn"
	"github.com/critter-hpc/critter/cmn/cos"
	"github.com/critter-hpc/critter/cmn/mono"
	"github.com/critter-hpc/critter/cmn/nlog"
	"github.com/critter-hpc/critter/comm"
	"github.com/critter-hpc/critter/dispatch"
	"github.com/critter-hpc/critter/metrics"
	"github.com/critter-hpc/critter/pathvec"
	"github.com/critter-hpc/critter/record"
	"github.com/critter-hpc/critter/routine"
	"github.com/critter-hpc/critter/volumetric"
)

// State is the §3 SessionState: everything a running critter instance
// needs across its whole lifetime, owned by exactly one goroutine per
// rank (§5).
type State struct {
	ID         string
	Comm       comm.Comm
	Dispatcher *dispatch.Dispatcher
	Cfg        *cmn.Config

	stream    record.Stream // only non-nil on rank 0 (SPEC_FULL.md §10.5 #2)
	iteration int
	startedAt float64
	started   bool
}

// New constructs a State bound to c, reading its configuration from
// cmn.GCO at construction time — callers that need a non-default Config
// should call cmn.GCO.Put before New.
func New(c comm.Comm) *State {
	return &State{
		ID:         uuid.NewString(),
		Comm:       c,
		Dispatcher: dispatch.New(c, routine.New()),
		Cfg:        cmn.GCO.Get(),
	}
}

// Start begins a measurement iteration: resets the dispatcher's
// catalogue/symbol state, opens the output stream (root rank only), and
// records the wall-clock origin for this iteration (§4.3 start()).
func (s *State) Start(ctx context.Context) error {
	if s.started {
		return fmt.Errorf("session: Start called while already started")
	}
	s.Dispatcher.Clear()
	if s.Comm.Rank() == 0 && s.stream == nil {
		stream, err := s.openStream(ctx)
		if err != nil {
			return err
		}
		s.stream = stream
	}
	s.startedAt = mono.NowSec()
	s.started = true
	nlog.Infoln("critter: session", s.ID, "rank", s.Comm.Rank(), "started")
	return nil
}

func (s *State) openStream(ctx context.Context) (record.Stream, error) {
	if s.Cfg.VizKind == "otel" {
		return metrics.NewOtelStream(ctx, "critter")
	}
	return record.New(s.Cfg)
}

// Stop ends the current iteration: folds final volumetric/path totals,
// warns (debug mode: asserts) if the request table isn't empty, reduces
// the volumetric totals job-wide, writes one record.Node to the output
// stream (root rank only), and resets `started` so Start can run again
// for the next iteration (§4.3 stop()).
func (s *State) Stop(ctx context.Context) (*record.Node, error) {
	if !s.started {
		return nil, fmt.Errorf("session: Stop called without a matching Start")
	}
	if n := s.Dispatcher.Tracker.Requests.Len(); n > 0 {
		cos.Assert(false, fmt.Sprintf("request table not empty at stop(): %d outstanding", n))
		nlog.Warningln("critter: session", s.ID, "rank", s.Comm.Rank(), ": request table not empty at stop():", n, "outstanding")
	}

	runtime := mono.NowSec() - s.startedAt
	pathTotals, localVol, err := s.Dispatcher.FinalAccumulate(ctx, runtime)
	if err != nil {
		return nil, err
	}
	volTotals, err := volumetric.Reduce(ctx, s.Comm, localVol)
	if err != nil {
		return nil, err
	}

	if s.Cfg.IdleWarnThreshold > 0 && pathTotals[pathvec.RunTime] > 0 {
		idleFrac := pathTotals[pathvec.IdleTime] / pathTotals[pathvec.RunTime]
		if idleFrac > s.Cfg.IdleWarnThreshold {
			nlog.Warningln("critter: session", s.ID, "rank", s.Comm.Rank(),
				": idle fraction", idleFrac, "exceeds threshold", s.Cfg.IdleWarnThreshold)
		}
	}

	node := &record.Node{
		SessionID:  s.ID,
		Iteration:  s.iteration,
		PathTotals: pathTotals,
		VolTotals:  volTotals,
		Symbols:    s.Dispatcher.Tracker.Symbols.Totals(),
	}

	if s.Comm.Rank() == 0 && s.stream != nil {
		if err := s.stream.Write(node); err != nil {
			return node, err
		}
	}

	s.iteration++
	s.started = false
	nlog.Infoln("critter: session", s.ID, "rank", s.Comm.Rank(), "stopped, iteration", s.iteration)
	return node, nil
}

// Close shuts down the output stream, if one was opened — call once at
// process exit, not between iterations.
func (s *State) Close() error {
	if s.stream == nil {
		return nil
	}
	err := s.stream.Close()
	s.stream = nil
	return err
}
