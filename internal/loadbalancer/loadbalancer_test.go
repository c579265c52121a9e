package loadbalancer_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/angeloszaimis/provider-dispatcher/internal/loadbalancer"
	"github.com/angeloszaimis/provider-dispatcher/internal/metrics"
	"github.com/angeloszaimis/provider-dispatcher/internal/provider"
	"github.com/angeloszaimis/provider-dispatcher/internal/provider/providertest"
	"github.com/angeloszaimis/provider-dispatcher/internal/registry"
	"github.com/angeloszaimis/provider-dispatcher/internal/strategy"
)

var _ = Describe("LoadBalancer", func() {
	var (
		ctx   context.Context
		log   *slog.Logger
		reg   *registry.Registry
		lb    *loadbalancer.LoadBalancer
		fakes []*providertest.Fake
	)

	newBalancer := func(strat strategy.Strategy, opts ...loadbalancer.Option) *loadbalancer.LoadBalancer {
		opts = append([]loadbalancer.Option{loadbalancer.WithLogger(log)}, opts...)
		b, err := loadbalancer.NewLoadBalancer(reg, strat, opts...)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(b.Close)
		return b
	}

	register := func(n int) {
		fakes = providertest.Ordered(n)
		for _, f := range fakes {
			Expect(lb.Register(f)).To(BeTrue())
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
		reg = registry.New(registry.WithLogger(log))
		lb = newBalancer(strategy.NewRoundRobinStrategy())
	})

	Describe("NewLoadBalancer", func() {
		It("should require a registry and a strategy", func() {
			_, err := loadbalancer.NewLoadBalancer(nil, strategy.NewRandomStrategy())
			Expect(err).To(HaveOccurred())

			_, err = loadbalancer.NewLoadBalancer(reg, nil)
			Expect(err).To(HaveOccurred())
		})

		It("should default the per-provider capacity", func() {
			Expect(lb.PerProviderCapacity()).To(Equal(loadbalancer.DefaultPerProviderCapacity))
			Expect(lb.Registry()).To(BeIdenticalTo(reg))
		})
	})

	Describe("Register", func() {
		It("should accept at most ten providers", func() {
			register(10)

			Expect(lb.Register(providertest.New())).To(BeFalse())
			Expect(reg.Size()).To(Equal(10))
		})

		It("should count the providers added by RegisterAll", func() {
			register(2)

			ps := []provider.Provider{fakes[0], providertest.New(), providertest.New()}
			Expect(lb.RegisterAll(ps)).To(Equal(2))
			Expect(reg.Size()).To(Equal(4))
		})

		It("should remove registered providers only", func() {
			register(1)

			Expect(lb.Remove(fakes[0])).To(BeTrue())
			Expect(lb.Remove(fakes[0])).To(BeFalse())
		})
	})

	Describe("Dispatch", func() {
		Context("with round-robin over five providers", func() {
			BeforeEach(func() {
				register(5)
			})

			It("should cycle through the providers in identity order", func() {
				var got []string
				for i := 0; i < 15; i++ {
					resp, err := lb.Dispatch(ctx)
					Expect(err).NotTo(HaveOccurred())
					got = append(got, resp)
				}

				var want []string
				for round := 0; round < 3; round++ {
					for _, f := range fakes {
						want = append(want, f.ID().String())
					}
				}
				Expect(got).To(Equal(want))
				Expect(lb.InFlight()).To(BeZero())
			})
		})

		Context("DispatchResult", func() {
			It("should report the provider that answered", func() {
				register(2)

				res, err := lb.DispatchResult(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(res.ProviderID).To(Equal(fakes[0].ID()))
				Expect(res.Response).To(Equal(fakes[0].ID().String()))
			})
		})

		Context("with no healthy providers", func() {
			It("should reject for capacity", func() {
				_, err := lb.Dispatch(ctx)
				Expect(err).To(MatchError(loadbalancer.ErrCapacityExceeded))
			})
		})

		Context("when the strategy finds nothing", func() {
			It("should return ErrNoProviderAvailable", func() {
				register(2)
				lb.SetStrategy(strategy.Func(func(provider.Provider, []provider.Provider) provider.Provider {
					return nil
				}))

				_, err := lb.Dispatch(ctx)
				Expect(err).To(MatchError(loadbalancer.ErrNoProviderAvailable))
				Expect(lb.InFlight()).To(BeZero())
			})
		})

		Context("at the admission limit", func() {
			It("should admit healthy times per-provider capacity and reject the next", func() {
				register(3)

				releases := make([]chan<- struct{}, len(fakes))
				starts := make([]<-chan struct{}, len(fakes))
				for i, f := range fakes {
					starts[i], releases[i] = f.Block()
				}

				limit := len(fakes) * loadbalancer.DefaultPerProviderCapacity
				var wg sync.WaitGroup
				for i := 0; i < limit; i++ {
					wg.Add(1)
					go func() {
						defer GinkgoRecover()
						defer wg.Done()
						_, err := lb.Dispatch(ctx)
						Expect(err).NotTo(HaveOccurred())
					}()
				}

				for i := range fakes {
					for j := 0; j < loadbalancer.DefaultPerProviderCapacity; j++ {
						Eventually(starts[i]).Should(Receive())
					}
				}
				Expect(lb.InFlight()).To(Equal(limit))

				_, err := lb.Dispatch(ctx)
				Expect(err).To(MatchError(loadbalancer.ErrCapacityExceeded))

				for _, r := range releases {
					close(r)
				}
				wg.Wait()

				Expect(lb.InFlight()).To(BeZero())
				_, err = lb.Dispatch(ctx)
				Expect(err).NotTo(HaveOccurred())
			})
		})

		Context("with fewer workers configured than the admission limit", func() {
			It("should still start every admitted dispatch on its provider", func() {
				lb = newBalancer(strategy.NewRoundRobinStrategy(), loadbalancer.WithWorkers(1))
				Expect(lb.Workers()).To(Equal(reg.Capacity() * loadbalancer.DefaultPerProviderCapacity))

				register(2)
				start0, release0 := fakes[0].Block()
				start1, release1 := fakes[1].Block()

				var wg sync.WaitGroup
				for i := 0; i < 2; i++ {
					wg.Add(1)
					go func() {
						defer GinkgoRecover()
						defer wg.Done()
						_, err := lb.Dispatch(ctx)
						Expect(err).NotTo(HaveOccurred())
					}()
				}

				Eventually(start0).Should(Receive())
				Eventually(start1).Should(Receive())
				Expect(fakes[1].Calls()).To(Equal(1))

				close(release0)
				close(release1)
				wg.Wait()
				Expect(lb.InFlight()).To(BeZero())
			})
		})

		Context("when the provider fails", func() {
			BeforeEach(func() {
				register(1)
			})

			It("should wrap the error and release the slot", func() {
				cause := errors.New("boom")
				fakes[0].FailWith(cause)

				_, err := lb.Dispatch(ctx)

				var perr *loadbalancer.ProviderError
				Expect(errors.As(err, &perr)).To(BeTrue())
				Expect(perr.ProviderID).To(Equal(fakes[0].ID()))
				Expect(err).To(MatchError(cause))
				Expect(lb.InFlight()).To(BeZero())
			})

			It("should turn a panic into a provider error", func() {
				fakes[0].PanicWith("kaboom")

				_, err := lb.Dispatch(ctx)

				var perr *loadbalancer.ProviderError
				Expect(errors.As(err, &perr)).To(BeTrue())
				Expect(err.Error()).To(ContainSubstring("kaboom"))
				Expect(lb.InFlight()).To(BeZero())
			})

			It("should keep serving after repeated failures", func() {
				fakes[0].FailWith(errors.New("boom"))
				for i := 0; i < 10; i++ {
					_, err := lb.Dispatch(ctx)
					Expect(err).To(HaveOccurred())
				}

				fakes[0].FailWith(nil)
				resp, err := lb.Dispatch(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp).To(Equal(fakes[0].ID().String()))
			})
		})

		Context("with health transitions", func() {
			BeforeEach(func() {
				register(2)
			})

			It("should skip a provider after a failed probe until it recovers twice", func() {
				fakes[0].SetHealthy(false)
				reg.Sweep(ctx)

				for i := 0; i < 4; i++ {
					resp, err := lb.Dispatch(ctx)
					Expect(err).NotTo(HaveOccurred())
					Expect(resp).To(Equal(fakes[1].ID().String()))
				}

				fakes[0].SetHealthy(true)
				reg.Sweep(ctx)
				Expect(reg.Healthy()).To(HaveLen(1))

				reg.Sweep(ctx)
				Expect(reg.Healthy()).To(HaveLen(2))

				seen := map[string]bool{}
				for i := 0; i < 2; i++ {
					resp, err := lb.Dispatch(ctx)
					Expect(err).NotTo(HaveOccurred())
					seen[resp] = true
				}
				Expect(seen).To(HaveKey(fakes[0].ID().String()))
			})
		})

		Context("after Close", func() {
			It("should return ErrClosed", func() {
				register(1)
				lb.Close()

				_, err := lb.Dispatch(ctx)
				Expect(err).To(MatchError(loadbalancer.ErrClosed))
			})
		})
	})

	Describe("SetStrategy", func() {
		It("should apply to the next selection", func() {
			register(3)
			lb.SetStrategy(strategy.Func(func(_ provider.Provider, healthy []provider.Provider) provider.Provider {
				return healthy[len(healthy)-1]
			}))

			for i := 0; i < 3; i++ {
				resp, err := lb.Dispatch(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(resp).To(Equal(fakes[2].ID().String()))
			}
		})

		It("should ignore a nil strategy", func() {
			register(1)
			lb.SetStrategy(nil)

			_, err := lb.Dispatch(ctx)
			Expect(err).NotTo(HaveOccurred())
		})
	})

	Describe("metrics", func() {
		It("should report selections and rejections to the collector", func() {
			collector := metrics.NewCollector(100, log)
			runCtx, cancel := context.WithCancel(ctx)
			DeferCleanup(cancel)
			collector.Start(runCtx)

			lb = newBalancer(strategy.NewRoundRobinStrategy(),
				loadbalancer.WithCollector(collector),
				loadbalancer.WithTracerProvider(noop.NewTracerProvider()),
			)

			_, err := lb.Dispatch(ctx)
			Expect(err).To(MatchError(loadbalancer.ErrCapacityExceeded))

			register(1)
			_, err = lb.Dispatch(ctx)
			Expect(err).NotTo(HaveOccurred())

			id := fakes[0].ID().String()
			Eventually(func() int64 {
				return collector.Snapshot("").Providers[id].Selections
			}).Should(Equal(int64(1)))
			Eventually(func() int64 {
				return collector.Snapshot("").Rejections[metrics.ReasonCapacity]
			}).Should(Equal(int64(1)))
		})
	})
})
