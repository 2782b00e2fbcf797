// Package cmn holds the process-wide configuration critter reads once at
// session start, the way aistore's cmn.GCO holds the cluster config.
/*
 * Copyright (c) 2020-2026, Critter Authors. All rights reserved.
 */
package cmn

import (
	"os"
	"strconv"
	"sync/atomic"
)

// Config is the full set of tunables §6 and §7 name. It is populated once,
// from the environment, and never mutated in place afterward — callers
// that want a different Config install a new one via GCO.Put, matching
// cmn.GCO's copy-on-write discipline.
type Config struct {
	// VizKind selects the §6 visualisation stream backend: "", "stdout",
	// "file", or "otel". Read from CRITTER_VIZ.
	VizKind string
	// VizFile is the destination path when VizKind == "file". Read from
	// CRITTER_VIZ_FILE.
	VizFile string
	// DebugAsserts mirrors the teacher's build-tag debug.Enabled, here a
	// runtime switch: when true, §7 violated invariants panic instead of
	// returning best-effort.
	DebugAsserts bool
	// IdleWarnThreshold is the idle-time fraction (0..1) above which
	// session.Stop logs a warning per rank (ambient observability, not in
	// spec.md but a natural extension of §8's non-negativity property).
	IdleWarnThreshold float64
}

const (
	envVizKind           = "CRITTER_VIZ"
	envVizFile           = "CRITTER_VIZ_FILE"
	envDebugAsserts      = "CRITTER_DEBUG"
	envIdleWarnThreshold = "CRITTER_IDLE_WARN_THRESHOLD"

	defaultIdleWarnThreshold = 0.5
)

// FromEnv builds a Config from the process environment, matching the
// defaults a host program gets if it never touches GCO at all.
func FromEnv() *Config {
	c := &Config{
		VizKind:           os.Getenv(envVizKind),
		VizFile:           os.Getenv(envVizFile),
		IdleWarnThreshold: defaultIdleWarnThreshold,
	}
	if v, err := strconv.ParseBool(os.Getenv(envDebugAsserts)); err == nil {
		c.DebugAsserts = v
	}
	if v, err := strconv.ParseFloat(os.Getenv(envIdleWarnThreshold), 64); err == nil && v >= 0 {
		c.IdleWarnThreshold = v
	}
	return c
}

// gco is the GCO-style atomic holder: a single swappable *Config pointer,
// read far more often than it is written (once, typically, at startup).
type globalConfigOwner struct {
	ptr atomic.Pointer[Config]
}

// GCO is the process-wide config owner, mirroring cmn.GCO.
var GCO = &globalConfigOwner{}

func init() {
	GCO.ptr.Store(FromEnv())
}

func (g *globalConfigOwner) Get() *Config { return g.ptr.Load() }
func (g *globalConfigOwner) Put(c *Config) { g.ptr.Store(c) }
