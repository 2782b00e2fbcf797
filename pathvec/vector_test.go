package pathvec_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/critter-hpc/critter/pathvec"
)

var _ = Describe("MaxPlus", func() {
	It("ties on value and breaks toward the higher rank", func() {
		a := pathvec.Zero()
		a[pathvec.CommTime] = pathvec.Entry{Value: 3.0, Rank: 2}
		b := pathvec.Zero()
		b[pathvec.CommTime] = pathvec.Entry{Value: 3.0, Rank: 5}

		a.MaxPlus(b)
		Expect(a[pathvec.CommTime].Rank).To(Equal(int32(5)))
		Expect(a[pathvec.CommTime].Value).To(Equal(3.0))
	})

	It("picks the strictly larger value regardless of rank", func() {
		a := pathvec.Zero()
		a[pathvec.RunTime] = pathvec.Entry{Value: 1.0, Rank: 0}
		b := pathvec.Zero()
		b[pathvec.RunTime] = pathvec.Entry{Value: 2.0, Rank: 0}

		a.MaxPlus(b)
		Expect(a[pathvec.RunTime].Value).To(Equal(2.0))
	})
})

var _ = Describe("Reduce", func() {
	It("is order-independent across an arbitrary permutation of contributors", func() {
		v1 := pathvec.FromLocal([pathvec.NumComponents]float64{1, 2, 3, 4, 5, 6, 7, 8}, 0)
		v2 := pathvec.FromLocal([pathvec.NumComponents]float64{8, 7, 6, 5, 4, 3, 2, 1}, 1)
		v3 := pathvec.FromLocal([pathvec.NumComponents]float64{0, 0, 9, 0, 0, 0, 0, 0}, 2)

		forward := pathvec.Reduce([]pathvec.Vector{v1, v2, v3})
		backward := pathvec.Reduce([]pathvec.Vector{v3, v2, v1})

		Expect(forward).To(Equal(backward))
	})
})

var _ = Describe("Vector.Dominates", func() {
	var v pathvec.Vector

	BeforeEach(func() {
		v = pathvec.FromLocal([pathvec.NumComponents]float64{2, 2, 2, 2, 2, 2, 2, 2}, 0)
	})

	It("reports true when every component strictly exceeds the local vector", func() {
		local := [pathvec.NumComponents]float64{1, 1, 1, 1, 1, 1, 1, 1}
		Expect(v.Dominates(local)).To(BeTrue())
	})

	It("reports false when any component fails to exceed the local vector", func() {
		smaller := [pathvec.NumComponents]float64{3, 1, 1, 1, 1, 1, 1, 1}
		Expect(v.Dominates(smaller)).To(BeFalse())
	})
})
