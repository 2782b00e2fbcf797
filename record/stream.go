// Package record implements §6's external interface: the optional
// "visualisation stream" a completed iteration's totals get written to,
// selected by CRITTER_VIZ/CRITTER_VIZ_FILE. Mirrors the teacher's
// stats/common.go copyValue.MarshalJSON path — a small jsoniter-backed
// record type plus pluggable sinks.
/*
 * Copyright (c) 2020-2026, Critter Authors. All rights reserved.
 */
package record

import (
	"fmt"
	"os"

	jsoniter "github.com/json-iterator/go"

	"github.com/critter-hpc/critter/cmn"
	"github.com/critter-hpc/critter/cmn/cos"
	"github.com/critter-hpc/critter/cmn/nlog"
	"github.com/critter-hpc/critter/routine"
	"github.com/critter-hpc/critter/symbol"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Node is one completed iteration's worth of output: the job-wide
// critical-path totals, the job-wide volumetric totals, and the
// per-symbol breakdown, keyed by name. Field names match §6's "a small
// number of named scalar fields" description.
type Node struct {
	SessionID  string                   `json:"session_id"`
	Iteration  int                      `json:"iteration"`
	PathTotals routine.Totals           `json:"path_totals"`
	VolTotals  routine.Totals           `json:"volumetric_totals"`
	Symbols    map[string]*symbol.Accum `json:"symbols,omitempty"`
}

// Stream is the sink a Node gets written to — stdout, a file, or (via
// metrics.OtelStream, which implements this interface) an OTLP span
// exporter.
type Stream interface {
	Write(n *Node) error
	Close() error
}

// stdoutStream writes newline-delimited JSON to os.Stdout.
type stdoutStream struct{}

func (stdoutStream) Write(n *Node) error {
	b, err := json.Marshal(n)
	if err != nil {
		return cos.NewStreamIOFailure("<stdout>", err)
	}
	_, err = fmt.Println(string(b))
	return err
}
func (stdoutStream) Close() error { return nil }

// fileStream writes newline-delimited JSON to a single open file.
type fileStream struct {
	f *os.File
}

func (s *fileStream) Write(n *Node) error {
	b, err := json.Marshal(n)
	if err != nil {
		return cos.NewStreamIOFailure(s.f.Name(), err)
	}
	if _, err := s.f.Write(append(b, '\n')); err != nil {
		return cos.NewStreamIOFailure(s.f.Name(), err)
	}
	return nil
}

func (s *fileStream) Close() error {
	if err := s.f.Close(); err != nil {
		return cos.NewStreamIOFailure(s.f.Name(), err)
	}
	return nil
}

// nopStream discards every Node — used when CRITTER_VIZ is unset (§6:
// the visualisation stream is optional).
type nopStream struct{}

func (nopStream) Write(*Node) error { return nil }
func (nopStream) Close() error      { return nil }

// New selects a Stream implementation from cfg.VizKind. "otel" is handled
// by the caller (session.Start), since it needs the metrics package,
// which would otherwise import record and create a cycle.
func New(cfg *cmn.Config) (Stream, error) {
	switch cfg.VizKind {
	case "":
		return nopStream{}, nil
	case "stdout":
		return stdoutStream{}, nil
	case "file":
		if cfg.VizFile == "" {
			return nil, cos.NewStreamIOFailure("<unset CRITTER_VIZ_FILE>", fmt.Errorf("CRITTER_VIZ=file requires CRITTER_VIZ_FILE"))
		}
		f, err := os.OpenFile(cfg.VizFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, cos.NewStreamIOFailure(cfg.VizFile, err)
		}
		nlog.Infoln("critter: visualisation stream writing to", cfg.VizFile)
		return &fileStream{f: f}, nil
	case "otel":
		// resolved by session.Start via metrics.NewOtelStream; returning
		// nopStream here would silently drop data if New is ever called
		// directly with VizKind=="otel" outside that path.
		return nil, fmt.Errorf("record: VizKind=otel must be constructed via metrics.NewOtelStream")
	default:
		// §6: "any non-empty value enables stream output" — an
		// unrecognized kind still turns the stream on rather than erroring,
		// defaulting to stdout.
		nlog.Infoln("critter: unrecognized CRITTER_VIZ kind", cfg.VizKind, "- defaulting to stdout")
		return stdoutStream{}, nil
	}
}
