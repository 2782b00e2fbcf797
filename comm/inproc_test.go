package comm_test

import (
	"context"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/critter-hpc/critter/comm"
	"github.com/critter-hpc/critter/pathvec"
)

func TestBarrierReleasesAllRanks(t *testing.T) {
	g := NewWithT(t)

	w := comm.NewWorld(4)
	err := comm.RunRanks(context.Background(), w, func(ctx context.Context, c comm.Comm) error {
		return c.Barrier(ctx)
	})
	g.Expect(err).NotTo(HaveOccurred())
}

func TestAllreduceMergesAllRanks(t *testing.T) {
	g := NewWithT(t)

	const n = 3
	w := comm.NewWorld(n)
	results := make([]pathvec.Vector, n)

	err := comm.RunRanks(context.Background(), w, func(ctx context.Context, c comm.Comm) error {
		r := c.Rank()
		v := pathvec.Zero()
		v[pathvec.RunTime] = pathvec.Entry{Value: float64(r + 1), Rank: int32(r)}
		out, err := c.Allreduce(ctx, v)
		if err != nil {
			return err
		}
		results[r] = out
		return nil
	})
	g.Expect(err).NotTo(HaveOccurred())

	for _, res := range results {
		g.Expect(res[pathvec.RunTime].Value).To(Equal(float64(n)))
		g.Expect(res[pathvec.RunTime].Rank).To(Equal(int32(n - 1)))
	}
}

func TestExchangeMergesPair(t *testing.T) {
	g := NewWithT(t)

	w := comm.NewWorld(2)
	results := make([]pathvec.Vector, 2)

	err := comm.RunRanks(context.Background(), w, func(ctx context.Context, c comm.Comm) error {
		r := c.Rank()
		v := pathvec.Zero()
		v[pathvec.Bytes] = pathvec.Entry{Value: float64(r * 10), Rank: int32(r)}
		peer := 1 - r
		out, err := c.Exchange(ctx, peer, v)
		if err != nil {
			return err
		}
		results[r] = out
		return nil
	})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(results[0][pathvec.Bytes].Value).To(Equal(10.0))
	g.Expect(results[1][pathvec.Bytes].Value).To(Equal(10.0))
}
