package provider_test

import (
	"github.com/google/uuid"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/provider-dispatcher/internal/provider"
)

var _ = Describe("Ordering", func() {
	var low, mid, high provider.Provider

	BeforeEach(func() {
		low = provider.NewSynthetic(provider.WithID(uuid.MustParse("10000000-0000-0000-0000-000000000000")))
		mid = provider.NewSynthetic(provider.WithID(uuid.MustParse("7fffffff-0000-0000-0000-000000000000")))
		high = provider.NewSynthetic(provider.WithID(uuid.MustParse("f0000000-0000-0000-0000-000000000000")))
	})

	DescribeTable("Compare",
		func(a, b func() provider.Provider, expected int) {
			Expect(provider.Compare(a(), b())).To(Equal(expected))
		},
		Entry("lower first", func() provider.Provider { return low }, func() provider.Provider { return high }, -1),
		Entry("higher first", func() provider.Provider { return high }, func() provider.Provider { return mid }, 1),
		Entry("same provider", func() provider.Provider { return mid }, func() provider.Provider { return mid }, 0),
	)

	It("should sort by identity regardless of insertion order", func() {
		providers := []provider.Provider{high, low, mid}
		provider.Sort(providers)
		Expect(providers).To(Equal([]provider.Provider{low, mid, high}))
	})

	It("should match the lexical order of identity strings", func() {
		providers := make([]provider.Provider, 0, 20)
		for i := 0; i < 20; i++ {
			providers = append(providers, provider.NewSynthetic())
		}
		provider.Sort(providers)

		for i := 1; i < len(providers); i++ {
			Expect(providers[i-1].ID().String() < providers[i].ID().String()).To(BeTrue())
		}
	})

	Describe("Same", func() {
		It("should compare by identity", func() {
			clone := provider.NewSynthetic(provider.WithID(low.ID()))
			Expect(provider.Same(low, clone)).To(BeTrue())
			Expect(provider.Same(low, high)).To(BeFalse())
		})

		It("should treat nil as never equal", func() {
			Expect(provider.Same(nil, low)).To(BeFalse())
			Expect(provider.Same(low, nil)).To(BeFalse())
			Expect(provider.Same(nil, nil)).To(BeFalse())
		})
	})
})
