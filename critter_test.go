package critter_test

import (
	"context"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/critter-hpc/critter"
	"github.com/critter-hpc/critter/comm"
)

func TestProfilerEndToEndCollectivesAndP2P(t *testing.T) {
	g := NewWithT(t)

	const n = 3
	w := comm.NewWorld(n)

	err := comm.RunRanks(context.Background(), w, func(ctx context.Context, c comm.Comm) error {
		p := critter.New(c)
		defer p.Close()

		if err := p.Start(ctx); err != nil {
			return err
		}

		p.OpenSymbol("warmup")
		if err := p.Barrier(ctx); err != nil {
			return err
		}
		if err := p.Allreduce(ctx, 1024); err != nil {
			return err
		}
		p.CloseSymbol()

		if c.Rank() == 0 {
			if err := p.Bcast(ctx, 512, 0); err != nil {
				return err
			}
		} else {
			if err := p.Bcast(ctx, 0, 0); err != nil {
				return err
			}
		}

		// Point-to-point propagation is a pairwise Exchange (§4.5), so
		// only matched pairs may fold together: rank 0 and rank 1
		// ping-pong, the rest of the world sits this step out.
		switch c.Rank() {
		case 0:
			h, err := p.Isend(ctx, 1, 64)
			if err != nil {
				return err
			}
			if err := p.Wait(ctx, h); err != nil {
				return err
			}
		case 1:
			h, err := p.Irecv(ctx, 0, 64)
			if err != nil {
				return err
			}
			if err := p.Wait(ctx, h); err != nil {
				return err
			}
		}

		node, err := p.Stop(ctx)
		if err != nil {
			return err
		}
		if node.PathTotals[0] < 0 {
			t.Errorf("negative path totals: %v", node.PathTotals)
		}
		return nil
	})
	g.Expect(err).NotTo(HaveOccurred())
}
