// Package nlog provides the leveled logging facade used throughout critter.
/*
 * Copyright (c) 2020-2026, Critter Authors. All rights reserved.
 */
package nlog

import (
	"flag"
	"fmt"

	"github.com/golang/glog"
)

// verbosity, set once at process start (mirrors cmn.Rom.V / glog -v)
var verbosity int

func init() {
	// glog parses its own flags lazily; make sure -v is recognized even
	// when the host binary never calls flag.Parse() itself (e.g. tests).
	if flag.Lookup("v") == nil {
		flag.Int("v", 0, "nlog verbosity")
	}
}

// SetVerbosity sets the minimum -v level at which V(n) gates pass.
func SetVerbosity(v int) { verbosity = v }

// V reports whether logging at the given verbosity level is currently enabled.
func V(level int) bool { return level <= verbosity }

func Infoln(args ...any)    { glog.InfoDepth(1, fmt.Sprintln(args...)) }
func Warningln(args ...any) { glog.WarningDepth(1, fmt.Sprintln(args...)) }
func Errorln(args ...any)   { glog.ErrorDepth(1, fmt.Sprintln(args...)) }

func InfoDepth(depth int, args ...any)    { glog.InfoDepth(depth+1, fmt.Sprintln(args...)) }
func WarningDepth(depth int, args ...any) { glog.WarningDepth(depth+1, fmt.Sprintln(args...)) }
func ErrorDepth(depth int, args ...any)   { glog.ErrorDepth(depth+1, fmt.Sprintln(args...)) }

// Flush flushes all pending log I/O; call from session.Stop and from the
// process finalizer (mirrors cmn/nlog.Flush(nlog.ActNone) in the teacher).
func Flush() { glog.Flush() }
