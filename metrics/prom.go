// Package metrics exports critter's 8-component vectors through the two
// ambient observability backends the teacher's own stats package uses:
// Prometheus gauges (stats/common_prom.go's initProm/r.reg shape) and
// OpenTelemetry spans (otel.go, the richer §6 "visualisation stream"
// backend).
/*
 * Copyright (c) 2020-2026, Critter Authors. All rights reserved.
 */
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/critter-hpc/critter/pathvec"
	"github.com/critter-hpc/critter/routine"
)

// PromExporter registers one gauge vector per pathvec.Component, labeled
// by routine name and by "local" vs "path" — the same
// registry-of-gauge-vecs shape stats/common_prom.go builds for aistore's
// counters/gauges, just keyed on critter's own label set instead.
type PromExporter struct {
	reg    *prometheus.Registry
	gauges [pathvec.NumComponents]*prometheus.GaugeVec
}

// NewPromExporter registers one GaugeVec per component into reg (pass
// prometheus.NewRegistry() for an isolated registry, or
// prometheus.DefaultRegisterer's registry to fold into a host's existing
// /metrics endpoint).
func NewPromExporter(reg *prometheus.Registry) *PromExporter {
	e := &PromExporter{reg: reg}
	for c := pathvec.Component(0); c < pathvec.NumComponents; c++ {
		gv := prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "critter",
			Name:      c.String(),
			Help:      "critter " + c.String() + " per routine, local vs critical-path",
		}, []string{"routine", "kind"})
		reg.MustRegister(gv)
		e.gauges[c] = gv
	}
	return e
}

// Observe updates every component's gauge for one routine's current
// local and path totals.
func (e *PromExporter) Observe(id routine.ID, local, path routine.Totals) {
	for c := pathvec.Component(0); c < pathvec.NumComponents; c++ {
		e.gauges[c].WithLabelValues(id.String(), "local").Set(local[c])
		e.gauges[c].WithLabelValues(id.String(), "path").Set(path[c])
	}
}

// ObserveCatalogue walks every routine in cat and calls Observe, the bulk
// form session.Stop uses for the final snapshot.
func (e *PromExporter) ObserveCatalogue(cat *routine.Catalogue) {
	cat.Each(func(d *routine.Descriptor) {
		e.Observe(d.ID, d.Local, d.Path)
	})
}
