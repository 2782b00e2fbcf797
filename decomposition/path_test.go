package decomposition_test

import (
	"context"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/critter-hpc/critter/comm"
	"github.com/critter-hpc/critter/decomposition"
	"github.com/critter-hpc/critter/routine"
)

func TestBlockingRoundTripNonNegative(t *testing.T) {
	g := NewWithT(t)

	w := comm.NewWorld(2)
	err := comm.RunRanks(context.Background(), w, func(ctx context.Context, c comm.Comm) error {
		tr := decomposition.NewTracker(c, routine.New())
		if err := tr.InitiateBlocking(ctx, routine.Barrier, -1, 0, c.Size()); err != nil {
			return err
		}
		if err := tr.CompleteBlocking(ctx, routine.Barrier); err != nil {
			return err
		}
		d := tr.Catalog.Get(routine.Barrier)
		for _, v := range d.Local {
			if v < 0 {
				t.Errorf("negative local total: %v", d.Local)
			}
		}
		return nil
	})
	g.Expect(err).NotTo(HaveOccurred())
}

func TestPathDominatesLocalAfterPropagate(t *testing.T) {
	g := NewWithT(t)

	w := comm.NewWorld(3)
	err := comm.RunRanks(context.Background(), w, func(ctx context.Context, c comm.Comm) error {
		tr := decomposition.NewTracker(c, routine.New())
		if err := tr.InitiateBlocking(ctx, routine.Allreduce, -1, 64, c.Size()); err != nil {
			return err
		}
		if err := tr.CompleteBlocking(ctx, routine.Allreduce); err != nil {
			return err
		}
		d := tr.Catalog.Get(routine.Allreduce)
		path := tr.Path()
		g.Expect(path.Dominates(d.Local)).To(BeTrue())
		return nil
	})
	g.Expect(err).NotTo(HaveOccurred())
}

func TestNonblockingRequestTableEmptiesAfterComplete(t *testing.T) {
	g := NewWithT(t)

	w := comm.NewWorld(2)
	err := comm.RunRanks(context.Background(), w, func(ctx context.Context, c comm.Comm) error {
		tr := decomposition.NewTracker(c, routine.New())
		peer := 1 - c.Rank()
		h, err := tr.InitiateNonblocking(ctx, routine.Isend, peer, 128, c.Size())
		if err != nil {
			return err
		}
		if err := tr.CompleteNonblockingOne(ctx, h); err != nil {
			return err
		}
		if tr.Requests.Len() != 0 {
			t.Errorf("expected empty request table, got %d entries", tr.Requests.Len())
		}
		return nil
	})
	g.Expect(err).NotTo(HaveOccurred())
}

func TestSymbolAttributionClosesOverRoutineCost(t *testing.T) {
	g := NewWithT(t)

	w := comm.NewWorld(1)
	err := comm.RunRanks(context.Background(), w, func(ctx context.Context, c comm.Comm) error {
		tr := decomposition.NewTracker(c, routine.New())
		tr.Symbols.Open("region")
		if err := tr.InitiateBlocking(ctx, routine.Barrier, -1, 0, c.Size()); err != nil {
			return err
		}
		if err := tr.CompleteBlocking(ctx, routine.Barrier); err != nil {
			return err
		}
		tr.Symbols.Close()
		totals := tr.Symbols.Totals()
		g.Expect(totals).To(HaveKey("region"))
		g.Expect(totals["region"].NumCalls).To(Equal(int64(1)))
		return nil
	})
	g.Expect(err).NotTo(HaveOccurred())
}
