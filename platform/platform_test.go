package platform

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"log"

	_ "github.com/mattn/go-sqlite3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/bgas/datarecording"
	"github.com/sarchlab/bgas/mem/olb"
	"github.com/sarchlab/bgas/sim"
)

var _ = Describe("Builder", func() {
	It("should require an engine", func() {
		_, err := MakeBuilder().Build()

		var cfgErr *olb.ConfigError
		Expect(errors.As(err, &cfgErr)).To(BeTrue())
		Expect(cfgErr.Param).To(Equal("engine"))
	})

	It("should reject unknown topologies", func() {
		_, err := MakeBuilder().
			WithEngine(sim.NewSerialEngine()).
			WithTopology("ring").
			Build()

		Expect(err).To(MatchError(ContainSubstring("ring")))
	})

	It("should reject memories too small for the agents", func() {
		_, err := MakeBuilder().
			WithEngine(sim.NewSerialEngine()).
			WithNumNodes(4).
			WithMemory(8192, 10).
			WithAgentRange(4096).
			Build()

		Expect(err).To(HaveOccurred())
	})

	It("should register every component", func() {
		p, err := MakeBuilder().
			WithEngine(sim.NewSerialEngine()).
			Build()
		Expect(err).NotTo(HaveOccurred())

		Expect(p.Nodes).To(HaveLen(2))
		Expect(p.AddressTable.NumNodes()).To(Equal(2))
		Expect(p.Simulation.GetComponentByName("Node[1].OLB")).
			To(BeIdenticalTo(p.Nodes[1].OLB))
		Expect(p.Simulation.GetComponentByName("Fabric")).NotTo(BeNil())
		Expect(p.Nodes[0].OLB.Topology().Kind).To(Equal(olb.TopologyDirect))
	})
})

var _ = Describe("Platform", func() {
	var engine *sim.SerialEngine

	BeforeEach(func() {
		engine = sim.NewSerialEngine()
	})

	It("should complete local accesses", func() {
		p, err := MakeBuilder().
			WithEngine(engine).
			WithNumNodes(1).
			WithMemory(1<<16, 10).
			WithTraffic(20, 20, 0).
			Build()
		Expect(err).NotTo(HaveOccurred())

		Expect(p.Run()).To(Succeed())
		Expect(p.Verify()).To(Succeed())

		counters := p.Counters(0)
		Expect(counters.Get(olb.StatTotalOps)).To(Equal(uint64(40)))
		Expect(counters.Get(olb.StatExtRead)).To(BeZero())
		Expect(p.Nodes[0].MemoryRequests()).To(Equal(uint64(40)))
	})

	It("should round trip remote accesses between two nodes", func() {
		p, err := MakeBuilder().
			WithEngine(engine).
			WithNumNodes(2).
			WithMemory(1<<16, 10).
			WithTraffic(30, 30, 1).
			Build()
		Expect(err).NotTo(HaveOccurred())

		Expect(p.Run()).To(Succeed())
		Expect(p.Verify()).To(Succeed())

		remote := uint64(0)
		for i := range p.Nodes {
			c := p.Counters(i)
			remote += c.Get(olb.StatExtRead) + c.Get(olb.StatExtWrite)
		}

		Expect(remote).To(Equal(uint64(120)))
		Expect(p.Nodes[0].Link.SentBytes() + p.Nodes[1].Link.SentBytes()).
			NotTo(BeZero())
	})

	It("should mix local and remote accesses over a four channel NIC", func() {
		p, err := MakeBuilder().
			WithEngine(engine).
			WithNumNodes(3).
			WithTopology(TopologyFourChannelNIC).
			WithMemory(1<<16, 5).
			WithTraffic(20, 20, 0.5).
			Build()
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Nodes[0].OLB.Topology().Kind).To(Equal(olb.TopologyNetworked))

		Expect(p.Run()).To(Succeed())
		Expect(p.Verify()).To(Succeed())
	})

	It("should log messages crossing OLB ports", func() {
		buf := &bytes.Buffer{}

		p, err := MakeBuilder().
			WithEngine(engine).
			WithNumNodes(1).
			WithMemory(1<<16, 5).
			WithTraffic(1, 1, 0).
			WithMsgLogger(log.New(buf, "", 0)).
			Build()
		Expect(err).NotTo(HaveOccurred())

		Expect(p.Run()).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("Node[0].OLB.HighNetwork0"))
		Expect(buf.String()).To(ContainSubstring("*mem.WriteReq"))
	})

	It("should record the statistics of every OLB", func() {
		db, err := sql.Open("sqlite3", ":memory:")
		Expect(err).NotTo(HaveOccurred())
		defer db.Close()

		recorder := datarecording.NewWithDB(db)

		p, err := MakeBuilder().
			WithEngine(engine).
			WithMemory(1<<16, 5).
			WithTraffic(5, 5, 0.5).
			WithRecorder(recorder).
			WithTaskTracing(true).
			Build()
		Expect(err).NotTo(HaveOccurred())

		Expect(p.Run()).To(Succeed())

		reader := datarecording.NewReaderWithDB(db)
		reader.MapTable(olb.StatTable, olb.StatEntry{})
		entries, err := reader.Query(context.Background(), olb.StatTable,
			datarecording.QueryParams{})
		Expect(err).NotTo(HaveOccurred())
		Expect(entries).To(HaveLen(2 * len(olb.AllStats())))
		Expect(recorder.ListTables()).To(ContainElement("trace"))
	})
})
