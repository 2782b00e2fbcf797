package session_test

import (
	"context"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/critter-hpc/critter/comm"
	"github.com/critter-hpc/critter/routine"
	"github.com/critter-hpc/critter/session"
)

func TestStartStopRoundTrip(t *testing.T) {
	g := NewWithT(t)

	w := comm.NewWorld(2)
	err := comm.RunRanks(context.Background(), w, func(ctx context.Context, c comm.Comm) error {
		s := session.New(c)
		if err := s.Start(ctx); err != nil {
			return err
		}
		if _, err := s.Dispatcher.Initiate(ctx, routine.Barrier, -1, 0, c.Size()); err != nil {
			return err
		}
		if err := s.Dispatcher.Complete(ctx, routine.Barrier); err != nil {
			return err
		}
		node, err := s.Stop(ctx)
		if err != nil {
			return err
		}
		if node.PathTotals[0] < 0 {
			t.Errorf("negative path total: %v", node.PathTotals)
		}
		return s.Close()
	})
	g.Expect(err).NotTo(HaveOccurred())
}

func TestStopWithoutStartFails(t *testing.T) {
	g := NewWithT(t)

	w := comm.NewWorld(1)
	s := session.New(w.Rank(0))
	_, err := s.Stop(context.Background())
	g.Expect(err).To(HaveOccurred())
}

func TestSecondIterationAfterStop(t *testing.T) {
	g := NewWithT(t)

	w := comm.NewWorld(1)
	s := session.New(w.Rank(0))
	ctx := context.Background()

	g.Expect(s.Start(ctx)).To(Succeed())
	_, err := s.Stop(ctx)
	g.Expect(err).NotTo(HaveOccurred())

	g.Expect(s.Start(ctx)).To(Succeed())
	node, err := s.Stop(ctx)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(node.Iteration).To(Equal(1))
	g.Expect(s.Close()).To(Succeed())
}
