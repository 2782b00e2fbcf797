// crittersim is a cobra-driven demo/load-generator binary: it spins up N
// in-process ranks (comm.World) and drives each of them through a
// scripted sequence of collectives and point-to-point exchanges so the
// whole pipeline — catalogue, request table, path tracker, symbol stack,
// volumetric collector, session, output record — is exercised end to end
// without a real MPI runtime.
//
// Grounded on the teacher's own cmd/cli (cobra root + subcommands) and on
// the pack-sibling coatyio-dda-examples/compute's cmd/worker and
// cmd/coordinator (goroutine-per-rank fan-out, signal-driven shutdown).
/*
 * Copyright (c) 2020-2026, Critter Authors. All rights reserved.
 */
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/critter-hpc/critter"
	"github.com/critter-hpc/critter/cmn/nlog"
	"github.com/critter-hpc/critter/comm"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:     "crittersim",
		Short:   "Drive a simulated MPI job through critter's path-decomposition core",
		Version: version,
	}
	rootCmd.AddCommand(newRunCmd(), newReplayCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRunCmd() *cobra.Command {
	var (
		ranks      int
		iterations int
		bytes      int64
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a scripted sequence of collectives over N in-process ranks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd.Context(), ranks, iterations, bytes)
		},
	}
	cmd.Flags().IntVarP(&ranks, "ranks", "n", 4, "number of simulated ranks")
	cmd.Flags().IntVarP(&iterations, "iterations", "i", 3, "number of start()/stop() iterations")
	cmd.Flags().Int64VarP(&bytes, "bytes", "b", 4096, "payload size in bytes for collectives")
	return cmd
}

func newReplayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <recording.txt>",
		Short: "Replay a previously recorded per-iteration output stream",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return replayRecording(args[0])
		},
	}
	return cmd
}

// runSimulation is the "run" command's body: builds a World of `ranks`
// simulated processes, drives every rank through the same scripted
// sequence of operations for `iterations` start()/stop() cycles, and logs
// each iteration's job-wide path/volumetric totals on rank 0.
func runSimulation(ctx context.Context, ranks, iterations int, bytes int64) error {
	if ranks < 1 {
		return fmt.Errorf("crittersim: --ranks must be >= 1, got %d", ranks)
	}
	runID := uuid.NewString()
	nlog.Infoln("crittersim: run", runID, "starting", ranks, "ranks for", iterations, "iterations")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		if _, ok := <-sigCh; ok {
			nlog.Warningln("crittersim: run", runID, "received interrupt, cancelling")
			cancel()
		}
	}()
	defer signal.Stop(sigCh)

	w := comm.NewWorld(ranks)
	return comm.RunRanks(ctx, w, func(ctx context.Context, c comm.Comm) error {
		return driveRank(ctx, c, runID, iterations, bytes)
	})
}

// driveRank is the per-rank script every goroutine in the simulated job
// runs: open a top-level "iteration" region, issue a representative mix
// of collectives, a nested region around a point-to-point ping-pong
// between rank 0 and rank 1, then stop() and log the result on rank 0.
func driveRank(ctx context.Context, c comm.Comm, runID string, iterations int, bytes int64) error {
	p := critter.New(c)
	defer p.Close()

	for iter := 0; iter < iterations; iter++ {
		if err := p.Start(ctx); err != nil {
			return fmt.Errorf("crittersim: rank %d start: %w", c.Rank(), err)
		}

		p.OpenSymbol("iteration")
		if err := p.Barrier(ctx); err != nil {
			return err
		}
		if err := p.Allreduce(ctx, bytes); err != nil {
			return err
		}

		root := iter % c.Size()
		payload := int64(0)
		if c.Rank() == root {
			payload = bytes
		}
		if err := p.Bcast(ctx, payload, root); err != nil {
			return err
		}

		p.OpenSymbol("pingpong")
		if err := pingPong(ctx, p, c, bytes); err != nil {
			return err
		}
		p.CloseSymbol() // pingpong
		p.CloseSymbol() // iteration

		node, err := p.Stop(ctx)
		if err != nil {
			return fmt.Errorf("crittersim: rank %d stop: %w", c.Rank(), err)
		}
		if c.Rank() == 0 {
			nlog.Infoln("crittersim: run", runID, "iteration", node.Iteration,
				"path.runtime", node.PathTotals[7], "path.bytes", node.PathTotals[0])
		}
	}
	return nil
}

// pingPong is the only matched point-to-point pair in the script: rank 0
// and rank 1 exchange a non-blocking message (§4.5's pairwise Exchange
// requires both endpoints to participate with the matching partner), and
// every other rank is a no-op for this step.
func pingPong(ctx context.Context, p *critter.Profiler, c comm.Comm, bytes int64) error {
	switch c.Rank() {
	case 0:
		if c.Size() < 2 {
			return nil
		}
		h, err := p.Isend(ctx, 1, bytes)
		if err != nil {
			return err
		}
		return p.Wait(ctx, h)
	case 1:
		h, err := p.Irecv(ctx, 0, bytes)
		if err != nil {
			return err
		}
		return p.Wait(ctx, h)
	default:
		return nil
	}
}

// replayRecording reads a previously written newline-delimited JSON
// stream (record.stdoutStream / record.fileStream's output, §6) and
// prints a short human-readable summary per iteration.
func replayRecording(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("crittersim: open %s: %w", path, err)
	}
	defer f.Close()
	return printRecording(f)
}
