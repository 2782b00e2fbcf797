package dispatch_test

import (
	"context"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/critter-hpc/critter/comm"
	"github.com/critter-hpc/critter/dispatch"
	"github.com/critter-hpc/critter/routine"
)

func TestDispatcherBlockingLifecycle(t *testing.T) {
	g := NewWithT(t)

	w := comm.NewWorld(2)
	err := comm.RunRanks(context.Background(), w, func(ctx context.Context, c comm.Comm) error {
		d := dispatch.New(c, routine.New())
		d.OpenSymbol("phase1")
		if _, err := d.Initiate(ctx, routine.Barrier, -1, 0, c.Size()); err != nil {
			return err
		}
		if err := d.Complete(ctx, routine.Barrier); err != nil {
			return err
		}
		d.CloseSymbol()
		path, vol, err := d.FinalAccumulate(ctx, 0.001)
		if err != nil {
			return err
		}
		if path[0] < 0 || vol[0] < 0 {
			t.Errorf("negative totals: path=%v vol=%v", path, vol)
		}
		return nil
	})
	g.Expect(err).NotTo(HaveOccurred())
}

func TestDispatcherNonblockingLifecycle(t *testing.T) {
	g := NewWithT(t)

	w := comm.NewWorld(2)
	err := comm.RunRanks(context.Background(), w, func(ctx context.Context, c comm.Comm) error {
		d := dispatch.New(c, routine.New())
		peer := 1 - c.Rank()
		h, err := d.Initiate(ctx, routine.Isend, peer, 256, c.Size())
		if err != nil {
			return err
		}
		return d.CompleteOne(ctx, h)
	})
	g.Expect(err).NotTo(HaveOccurred())
}

func TestClearResetsCatalogueAndSymbols(t *testing.T) {
	g := NewWithT(t)

	w := comm.NewWorld(1)
	err := comm.RunRanks(context.Background(), w, func(ctx context.Context, c comm.Comm) error {
		d := dispatch.New(c, routine.New())
		if _, err := d.Initiate(ctx, routine.Barrier, -1, 0, c.Size()); err != nil {
			return err
		}
		if err := d.Complete(ctx, routine.Barrier); err != nil {
			return err
		}
		d.Clear()
		desc := d.Tracker.Catalog.Get(routine.Barrier)
		g.Expect(desc.Local).To(Equal(routine.Totals{}))
		return nil
	})
	g.Expect(err).NotTo(HaveOccurred())
}
