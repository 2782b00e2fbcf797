package symbol_test

import (
	"testing"

	. "github.com/onsi/gomega"

	"github.com/critter-hpc/critter/pathvec"
	"github.com/critter-hpc/critter/symbol"
)

func TestOpenCloseAccumulatesInclusive(t *testing.T) {
	g := NewWithT(t)

	s := symbol.NewStack()
	s.Open("outer")
	var cost [pathvec.NumComponents]float64
	cost[pathvec.RunTime] = 5.0
	s.Charge(cost)
	s.Close()

	totals := s.Totals()
	g.Expect(totals).To(HaveKey("outer"))
	g.Expect(totals["outer"].Inclusive[pathvec.RunTime]).To(Equal(5.0))
	g.Expect(totals["outer"].Exclusive[pathvec.RunTime]).To(Equal(5.0))
	g.Expect(totals["outer"].NumCalls).To(Equal(int64(1)))
}

func TestNestedRegionsExcludeChildCost(t *testing.T) {
	g := NewWithT(t)

	s := symbol.NewStack()
	s.Open("outer")
	s.Open("inner")

	var innerCost [pathvec.NumComponents]float64
	innerCost[pathvec.RunTime] = 2.0
	s.Charge(innerCost)
	s.Close() // closes inner

	var outerOnlyCost [pathvec.NumComponents]float64
	outerOnlyCost[pathvec.RunTime] = 3.0
	s.Charge(outerOnlyCost)
	s.Close() // closes outer

	totals := s.Totals()
	g.Expect(totals["inner"].Exclusive[pathvec.RunTime]).To(Equal(2.0))
	g.Expect(totals["outer"].Inclusive[pathvec.RunTime]).To(Equal(5.0))
	g.Expect(totals["outer"].Exclusive[pathvec.RunTime]).To(Equal(3.0))
}

func TestDepthTracksOpenFrames(t *testing.T) {
	g := NewWithT(t)

	s := symbol.NewStack()
	g.Expect(s.Depth()).To(Equal(0))
	s.Open("a")
	s.Open("b")
	g.Expect(s.Depth()).To(Equal(2))
	g.Expect(s.Current()).To(Equal("b"))
	s.Close()
	g.Expect(s.Depth()).To(Equal(1))
	g.Expect(s.Current()).To(Equal("a"))
}

func TestChargeWithNoOpenRegionIsNoop(t *testing.T) {
	g := NewWithT(t)

	s := symbol.NewStack()
	var cost [pathvec.NumComponents]float64
	cost[pathvec.RunTime] = 9.0
	s.Charge(cost) // no region open, should not panic or record anything
	g.Expect(s.Totals()).To(BeEmpty())
}
