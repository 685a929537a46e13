package pointer_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/tidepool-org/vitals/pointer"
)

var _ = Describe("Pointer", func() {
	It("returns a pointer to a copy of the value", func() {
		value := 3
		p := pointer.FromAny(value)
		value = 4
		Expect(*p).To(Equal(3))
	})

	It("returns the default for nil pointers", func() {
		Expect(pointer.Default[int](nil, 50)).To(Equal(50))
		Expect(pointer.Default(pointer.FromAny(10), 50)).To(Equal(10))
	})

	It("returns an empty string for nil pointers", func() {
		Expect(pointer.ToString(nil)).To(BeEmpty())
		Expect(pointer.ToString(pointer.FromAny("30min"))).To(Equal("30min"))
	})
})
