// Package critter is the small public surface a host program imports: a
// Profiler wrapping one rank's session.State, plus per-routine
// Initiate*/Complete* wrappers playing the role of critter.h's top-level
// namespace functions (§1, §9 "no preprocessor rewriting — an explicit
// API instead").
/*
 * Copyright (c) 2020-2026, Critter Authors. All rights reserved.
 */
package critter

import (
	"context"

	"github.com/critter-hpc/critter/comm"
	"github.com/critter-hpc/critter/record"
	"github.com/critter-hpc/critter/request"
	"github.com/critter-hpc/critter/routine"
	"github.com/critter-hpc/critter/session"
)

// Profiler is the object a host program constructs once per rank and
// threads through every collective/point-to-point call site it wants
// tracked.
type Profiler struct {
	state *session.State
}

// New wraps c (an in-process comm.World rank, a comm.GRPCComm, or any
// other comm.Comm implementation) in a Profiler.
func New(c comm.Comm) *Profiler {
	return &Profiler{state: session.New(c)}
}

// Start begins a measurement iteration (§4.3 start()).
func (p *Profiler) Start(ctx context.Context) error { return p.state.Start(ctx) }

// Stop ends the current iteration and returns the completed record,
// writing it to the configured visualisation stream on rank 0 (§4.3
// stop(), §6).
func (p *Profiler) Stop(ctx context.Context) (*record.Node, error) { return p.state.Stop(ctx) }

// Close releases the output stream; call once at process exit.
func (p *Profiler) Close() error { return p.state.Close() }

// OpenSymbol / CloseSymbol bracket a named region of code whose cost
// should be attributed to that name (§4.6).
func (p *Profiler) OpenSymbol(name string) { p.state.Dispatcher.OpenSymbol(name) }
func (p *Profiler) CloseSymbol()           { p.state.Dispatcher.CloseSymbol() }

// Barrier wraps MPI_Barrier.
func (p *Profiler) Barrier(ctx context.Context) error {
	if _, err := p.state.Dispatcher.Initiate(ctx, routine.Barrier, -1, 0, p.state.Comm.Size()); err != nil {
		return err
	}
	return p.state.Dispatcher.Complete(ctx, routine.Barrier)
}

// Bcast wraps MPI_Bcast; bytes is the message size being broadcast from
// root. Completion folds local totals and propagates with the
// broadcast-specialized MAXLOC seeding (Dispatcher.Complete already
// special-cases routine.Bcast).
func (p *Profiler) Bcast(ctx context.Context, bytes int64, root int) error {
	if _, err := p.state.Dispatcher.Initiate(ctx, routine.Bcast, root, bytes, p.state.Comm.Size()); err != nil {
		return err
	}
	return p.state.Dispatcher.Complete(ctx, routine.Bcast)
}

// Allreduce wraps MPI_Allreduce over a payload of the given size.
func (p *Profiler) Allreduce(ctx context.Context, bytes int64) error {
	if _, err := p.state.Dispatcher.Initiate(ctx, routine.Allreduce, -1, bytes, p.state.Comm.Size()); err != nil {
		return err
	}
	return p.state.Dispatcher.Complete(ctx, routine.Allreduce)
}

// Reduce wraps MPI_Reduce.
func (p *Profiler) Reduce(ctx context.Context, bytes int64, root int) error {
	if _, err := p.state.Dispatcher.Initiate(ctx, routine.Reduce, root, bytes, p.state.Comm.Size()); err != nil {
		return err
	}
	return p.state.Dispatcher.Complete(ctx, routine.Reduce)
}

// Send wraps MPI_Send, a blocking point-to-point call.
func (p *Profiler) Send(ctx context.Context, peer int, bytes int64) error {
	if _, err := p.state.Dispatcher.Initiate(ctx, routine.Send, peer, bytes, p.state.Comm.Size()); err != nil {
		return err
	}
	if err := p.state.Comm.Send(ctx, peer, 0, make([]byte, bytes)); err != nil {
		return err
	}
	return p.state.Dispatcher.Complete(ctx, routine.Send)
}

// Recv wraps MPI_Recv.
func (p *Profiler) Recv(ctx context.Context, peer int, bytes int64) error {
	if _, err := p.state.Dispatcher.Initiate(ctx, routine.Recv, peer, bytes, p.state.Comm.Size()); err != nil {
		return err
	}
	if _, err := p.state.Comm.Recv(ctx, peer, 0); err != nil {
		return err
	}
	return p.state.Dispatcher.Complete(ctx, routine.Recv)
}

// Isend wraps MPI_Isend, returning a Request to later Wait on.
func (p *Profiler) Isend(ctx context.Context, peer int, bytes int64) (request.Handle, error) {
	return p.state.Dispatcher.Initiate(ctx, routine.Isend, peer, bytes, p.state.Comm.Size())
}

// Irecv wraps MPI_Irecv.
func (p *Profiler) Irecv(ctx context.Context, peer int, bytes int64) (request.Handle, error) {
	return p.state.Dispatcher.Initiate(ctx, routine.Irecv, peer, bytes, p.state.Comm.Size())
}

// Wait wraps MPI_Wait for a single non-blocking request.
func (p *Profiler) Wait(ctx context.Context, h request.Handle) error {
	return p.state.Dispatcher.CompleteOne(ctx, h)
}

// WaitAll wraps MPI_Waitall: completes every handle in descending
// partner order before propagating once (§4.4).
func (p *Profiler) WaitAll(ctx context.Context, handles []request.Handle) error {
	return p.state.Dispatcher.CompleteAll(ctx, handles)
}
