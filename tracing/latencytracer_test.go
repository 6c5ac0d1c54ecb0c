package tracing

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"

	"github.com/sarchlab/bgas/sim"
)

var _ = Describe("LatencyTracer", func() {
	var (
		mockCtrl   *gomock.Controller
		timeTeller *MockTimeTeller
		tracer     *LatencyTracer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		timeTeller = NewMockTimeTeller(mockCtrl)
		tracer = NewLatencyTracer(timeTeller, KindIs("req_in"))
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should ignore tasks the filter rejects", func() {
		tracer.StartTask(Task{ID: "1", Kind: "req_out"})
		tracer.EndTask(Task{ID: "1"})

		Expect(tracer.Count()).To(Equal(uint64(0)))
		Expect(tracer.AverageTime()).To(Equal(sim.VTimeInSec(0)))
	})

	It("should measure task durations", func() {
		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInSec(1))
		tracer.StartTask(Task{ID: "1", Kind: "req_in"})
		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInSec(2))
		tracer.StartTask(Task{ID: "2", Kind: "req_in"})

		Expect(tracer.InflightCount()).To(Equal(2))

		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInSec(3))
		tracer.EndTask(Task{ID: "1"})
		timeTeller.EXPECT().CurrentTime().Return(sim.VTimeInSec(6))
		tracer.EndTask(Task{ID: "2"})

		Expect(tracer.Count()).To(Equal(uint64(2)))
		Expect(tracer.TotalTime()).To(Equal(sim.VTimeInSec(6)))
		Expect(tracer.AverageTime()).To(Equal(sim.VTimeInSec(3)))
		Expect(tracer.MaxTime()).To(Equal(sim.VTimeInSec(4)))
		Expect(tracer.InflightCount()).To(Equal(0))
	})

	It("should collect through hooks", func() {
		domain := sim.NewHookableBase()
		CollectTrace(namedHookable{domain}, tracer)

		Expect(domain.NumHooks()).To(Equal(1))
		Expect(func() {
			CollectTrace(namedHookable{domain}, tracer)
		}).To(Panic())
	})
})

type namedHookable struct {
	*sim.HookableBase
}

func (namedHookable) Name() string {
	return "Domain"
}
