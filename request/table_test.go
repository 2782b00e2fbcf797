package request_test

import (
	"testing"

	. "github.com/onsi/gomega"

	"github.com/critter-hpc/critter/cmn/cos"
	"github.com/critter-hpc/critter/request"
	"github.com/critter-hpc/critter/routine"
)

func TestRegisterDuplicateFails(t *testing.T) {
	g := NewWithT(t)

	tbl := request.NewTable()
	rec := &request.Record{Desc: routine.New().Get(routine.Isend)}

	g.Expect(tbl.Register(1, rec)).To(Succeed())
	err := tbl.Register(1, rec)
	g.Expect(err).To(HaveOccurred())
	g.Expect(cos.Is(err, cos.KindDuplicateRequest)).To(BeTrue())
}

func TestTakeUnknownFails(t *testing.T) {
	g := NewWithT(t)

	tbl := request.NewTable()
	_, err := tbl.Take(42)
	g.Expect(err).To(HaveOccurred())
	g.Expect(cos.Is(err, cos.KindUnknownRequest)).To(BeTrue())
}

func TestCompleteAllOrderedDescendingPartner(t *testing.T) {
	g := NewWithT(t)

	tbl := request.NewTable()
	cat := routine.New()
	for i, partner := range []int32{2, 5, 0, 3} {
		rec := &request.Record{Desc: cat.Get(routine.Isend), Partner: partner}
		g.Expect(tbl.Register(request.Handle(i), rec)).To(Succeed())
	}

	recs, err := tbl.CompleteAllOrdered([]request.Handle{0, 1, 2, 3})
	g.Expect(err).NotTo(HaveOccurred())

	partners := make([]int32, len(recs))
	for i, r := range recs {
		partners[i] = r.Partner
	}
	g.Expect(partners).To(Equal([]int32{5, 3, 2, 0}))
}

func TestTableEmptyAfterAllCompleted(t *testing.T) {
	g := NewWithT(t)

	tbl := request.NewTable()
	cat := routine.New()
	g.Expect(tbl.Register(0, &request.Record{Desc: cat.Get(routine.Isend)})).To(Succeed())
	_, err := tbl.Take(0)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(tbl.Len()).To(Equal(0))
}
