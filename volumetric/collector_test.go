package volumetric_test

import (
	"context"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/critter-hpc/critter/comm"
	"github.com/critter-hpc/critter/routine"
	"github.com/critter-hpc/critter/volumetric"
)

func TestReduceSumsAcrossRanks(t *testing.T) {
	g := NewWithT(t)

	const n = 3
	w := comm.NewWorld(n)
	results := make([]routine.Totals, n)

	err := comm.RunRanks(context.Background(), w, func(ctx context.Context, c comm.Comm) error {
		var local routine.Totals
		local[0] = float64(c.Rank() + 1)
		out, err := volumetric.Reduce(ctx, c, local)
		if err != nil {
			return err
		}
		results[c.Rank()] = out
		return nil
	})
	g.Expect(err).NotTo(HaveOccurred())

	for _, res := range results {
		g.Expect(res[0]).To(Equal(6.0)) // 1+2+3
	}
}

func TestAccumulateSumsAcrossCatalogue(t *testing.T) {
	g := NewWithT(t)

	cat := routine.New()
	cat.Get(routine.Barrier).Local[0] = 2
	cat.Get(routine.Bcast).Local[0] = 3

	coll := volumetric.NewCollector()
	coll.Accumulate(cat)
	g.Expect(coll.Local[0]).To(Equal(5.0))
}
