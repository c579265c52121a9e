package metrics_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/angeloszaimis/provider-dispatcher/internal/metrics"
)

var _ = Describe("Metrics", func() {
	const (
		first  = "00000000-0000-0000-0000-000000000001"
		second = "00000000-0000-0000-0000-000000000002"
	)

	var m *metrics.Metrics

	BeforeEach(func() {
		m = metrics.NewMetrics()
	})

	Describe("RecordSelection", func() {
		It("should track selections per provider", func() {
			m.RecordSelection(first)
			m.RecordSelection(first)
			m.RecordSelection(second)

			snap := m.Snapshot("round-robin")
			Expect(snap.TotalDispatches).To(Equal(int64(3)))
			Expect(snap.Providers[first].Selections).To(Equal(int64(2)))
			Expect(snap.Providers[second].Selections).To(Equal(int64(1)))
		})
	})

	Describe("RecordResponse", func() {
		It("should record response times and failures", func() {
			m.RecordResponse(first, 100*time.Millisecond, false)
			m.RecordResponse(first, 200*time.Millisecond, true)

			p := m.Snapshot("round-robin").Providers[first]
			Expect(p.AvgResponse).To(Equal(150 * time.Millisecond))
			Expect(p.Failures).To(Equal(int64(1)))
		})

		It("should calculate percentiles correctly", func() {
			for i := 1; i <= 100; i++ {
				m.RecordResponse(first, time.Duration(i)*time.Millisecond, false)
			}

			p := m.Snapshot("round-robin").Providers[first]
			Expect(p.P50Response).To(BeNumerically("~", 50*time.Millisecond, 1*time.Millisecond))
			Expect(p.P95Response).To(BeNumerically("~", 95*time.Millisecond, 1*time.Millisecond))
			Expect(p.P99Response).To(BeNumerically("~", 99*time.Millisecond, 1*time.Millisecond))
		})

		It("should limit stored response times to 1000", func() {
			for i := 1; i <= 1500; i++ {
				m.RecordResponse(first, time.Duration(i)*time.Millisecond, false)
			}

			p := m.Snapshot("round-robin").Providers[first]
			Expect(p.AvgResponse).To(BeNumerically(">", 500*time.Millisecond))
		})
	})

	Describe("RecordRejection", func() {
		It("should count rejections by reason", func() {
			m.RecordRejection(metrics.ReasonCapacity)
			m.RecordRejection(metrics.ReasonNoProvider)
			m.RecordRejection(metrics.ReasonCapacity)

			snap := m.Snapshot("round-robin")
			Expect(snap.Rejections).To(HaveKeyWithValue(metrics.ReasonCapacity, int64(2)))
			Expect(snap.Rejections).To(HaveKeyWithValue(metrics.ReasonNoProvider, int64(1)))
			Expect(snap.TotalDispatches).To(BeZero())
		})
	})

	Describe("UpdateState", func() {
		It("should keep the latest state", func() {
			m.UpdateState(first, "INACTIVE")
			Expect(m.Snapshot("").Providers[first].State).To(Equal("INACTIVE"))

			m.UpdateState(first, "RECOVERING")
			Expect(m.Snapshot("").Providers[first].State).To(Equal("RECOVERING"))
		})
	})

	Describe("Snapshot", func() {
		It("should include uptime", func() {
			time.Sleep(10 * time.Millisecond)
			Expect(m.Snapshot("round-robin").Uptime).To(BeNumerically(">", 0))
		})

		It("should handle empty metrics", func() {
			snap := m.Snapshot("round-robin")

			Expect(snap.TotalDispatches).To(BeZero())
			Expect(snap.Providers).To(BeEmpty())
			Expect(snap.Rejections).To(BeEmpty())
		})

		It("should return independent snapshots", func() {
			m.RecordSelection(first)
			snap1 := m.Snapshot("round-robin")
			m.RecordSelection(first)
			snap2 := m.Snapshot("round-robin")

			Expect(snap1.TotalDispatches).To(Equal(int64(1)))
			Expect(snap2.TotalDispatches).To(Equal(int64(2)))
		})
	})
})
