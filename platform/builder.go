package platform

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/sarchlab/bgas/datarecording"
	"github.com/sarchlab/bgas/mem/idealmemcontroller"
	"github.com/sarchlab/bgas/mem/memaccessagent"
	"github.com/sarchlab/bgas/mem/olb"
	"github.com/sarchlab/bgas/noc/linkcontrol"
	"github.com/sarchlab/bgas/sim"
	"github.com/sarchlab/bgas/tracing"
)

// Topologies the platform can wire between an OLB and its memory.
const (
	TopologyDirect         = "direct"
	TopologyNIC            = "nic"
	TopologyFourChannelNIC = "nic4"
)

// Builder can build platforms.
type Builder struct {
	engine      sim.Engine
	numNodes    int
	topology    string
	params      olb.Params
	freq        sim.Freq
	memCapacity uint64
	memLatency  int
	reads       int
	writes      int
	remoteRatio float64
	agentRange  uint64
	seed        int64
	recorder    datarecording.DataRecorder
	traceTasks  bool
	debug       io.Writer
	msgLogger   *log.Logger
	eventLogger *log.Logger
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() Builder {
	return Builder{
		numNodes:    2,
		topology:    TopologyDirect,
		params:      olb.Params{},
		freq:        1 * sim.GHz,
		memCapacity: 1 << 20,
		memLatency:  100,
		reads:       100,
		writes:      100,
		remoteRatio: 0.5,
		agentRange:  4096,
		seed:        1,
	}
}

// WithEngine sets the engine that all components use.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithNumNodes sets the number of nodes.
func (b Builder) WithNumNodes(n int) Builder {
	b.numNodes = n
	return b
}

// WithTopology sets how each OLB reaches its memory. It can be "direct",
// "nic" or "nic4".
func (b Builder) WithTopology(topology string) Builder {
	b.topology = topology
	return b
}

// WithOLBParams sets parameters that every OLB receives. The node id, the
// ports and the number of mapping entries are filled by the platform.
func (b Builder) WithOLBParams(params olb.Params) Builder {
	b.params = params
	return b
}

// WithFreq sets the frequency of all components.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithMemory sets the capacity and the latency in cycles of each memory.
func (b Builder) WithMemory(capacity uint64, latency int) Builder {
	b.memCapacity = capacity
	b.memLatency = latency

	return b
}

// WithTraffic sets the accesses each agent issues and the share of them that
// target other nodes.
func (b Builder) WithTraffic(reads, writes int, remoteRatio float64) Builder {
	b.reads = reads
	b.writes = writes
	b.remoteRatio = remoteRatio

	return b
}

// WithAgentRange sets the size of the address range each agent owns.
func (b Builder) WithAgentRange(size uint64) Builder {
	b.agentRange = size
	return b
}

// WithSeed sets the seed of the agents and of random mappings.
func (b Builder) WithSeed(seed int64) Builder {
	b.seed = seed
	return b
}

// WithRecorder makes the OLBs record their statistics at the end of the
// simulation.
func (b Builder) WithRecorder(r datarecording.DataRecorder) Builder {
	b.recorder = r
	return b
}

// WithTaskTracing records the tasks of memories and link controllers into
// the recorder.
func (b Builder) WithTaskTracing(enabled bool) Builder {
	b.traceTasks = enabled
	return b
}

// WithDebugWriter sends OLB debug output to w.
func (b Builder) WithDebugWriter(w io.Writer) Builder {
	b.debug = w
	return b
}

// WithMsgLogger logs every message sent from or delivered to an OLB port.
func (b Builder) WithMsgLogger(l *log.Logger) Builder {
	b.msgLogger = l
	return b
}

// WithEventLogger logs every event the engine handles.
func (b Builder) WithEventLogger(l *log.Logger) Builder {
	b.eventLogger = l
	return b
}

func (b Builder) olbPorts() ([]string, error) {
	switch b.topology {
	case TopologyDirect:
		return []string{olb.PortHigh, olb.PortCache}, nil
	case TopologyNIC:
		return []string{olb.PortHigh, olb.PortLow}, nil
	case TopologyFourChannelNIC:
		return []string{olb.PortHigh, olb.PortLow,
			olb.PortCacheAck, olb.PortCacheFwd, olb.PortCacheData}, nil
	default:
		return nil, &olb.ConfigError{
			Param:  "topology",
			Reason: fmt.Sprintf("unknown topology %q", b.topology),
		}
	}
}

// Build creates the platform.
func (b Builder) Build() (*Platform, error) {
	if b.engine == nil {
		return nil, &olb.ConfigError{Param: "engine", Reason: "engine is not given"}
	}

	if b.numNodes < 1 {
		return nil, &olb.ConfigError{
			Param:  "nodes",
			Reason: fmt.Sprintf("need at least one node, got %d", b.numNodes),
		}
	}

	if b.agentRange*uint64(b.numNodes) > b.memCapacity {
		return nil, &olb.ConfigError{
			Param:  "memory",
			Reason: "memory cannot hold the address ranges of all agents",
		}
	}

	ports, err := b.olbPorts()
	if err != nil {
		return nil, err
	}

	p := &Platform{
		Engine:       b.engine,
		Simulation:   sim.NewSimulation(b.engine),
		AddressTable: linkcontrol.NewAddressTable(),
	}
	p.Fabric = sim.MakeDirectConnection("Fabric", b.engine, b.freq)

	if b.eventLogger != nil {
		b.engine.AcceptHook(sim.NewEventLogger(b.eventLogger))
	}

	var dbTracer *tracing.DBTracer
	if b.traceTasks && b.recorder != nil {
		dbTracer = tracing.NewDBTracer(b.engine, b.recorder, "trace")
	}

	for i := 0; i < b.numNodes; i++ {
		n, err := b.buildNode(p, i, ports)
		if err != nil {
			return nil, err
		}

		if dbTracer != nil {
			tracing.CollectTrace(n.Memory, dbTracer)
			tracing.CollectTrace(n.Link, dbTracer)
		}

		p.Nodes = append(p.Nodes, n)
	}

	p.Simulation.RegisterComponent(p.Fabric)

	return p, nil
}

func (b Builder) nodeParams(id int, ports []string) olb.Params {
	params := olb.Params{}
	for _, k := range b.params.Keys() {
		v, _ := b.params.Find(k)
		params.Set(k, v)
	}

	params.Set("node", strconv.Itoa(id))
	params.Set("ports", strings.Join(ports, ","))
	params.SetDefault("entries", strconv.Itoa(b.numNodes))
	params.SetDefault("frequency", b.freq.String())
	params.SetDefault("seed", strconv.FormatInt(b.seed, 10))
	params.SetDefault(olb.PortBgas, "bgas")

	return params
}

func (b Builder) buildNode(p *Platform, id int, ports []string) (*Node, error) {
	prefix := fmt.Sprintf("Node[%d]", id)
	n := &Node{ID: id}

	n.Link = linkcontrol.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.freq).
		WithNode(linkcontrol.NodeID(id)).
		WithAddressTable(p.AddressTable).
		Build(prefix + ".Link")

	ob := olb.MakeBuilder().
		WithEngine(b.engine).
		WithParams(b.nodeParams(id, ports)).
		WithTransport(n.Link)
	if b.recorder != nil {
		ob = ob.WithRecorder(b.recorder)
	}

	if b.debug != nil {
		ob = ob.WithDebugWriter(b.debug)
	}

	var err error

	n.OLB, err = ob.Build(prefix + ".OLB")
	if err != nil {
		return nil, err
	}

	p.Fabric.PlugIn(n.Link.NetworkPort())

	n.Memory = idealmemcontroller.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.freq).
		WithLatency(b.memLatency).
		WithNewStorage(b.memCapacity).
		Build(prefix + ".Memory")

	n.memLatency = tracing.NewLatencyTracer(b.engine,
		func(t tracing.Task) bool { return t.Kind == "req_in" })
	tracing.CollectTrace(n.Memory, n.memLatency)

	n.Agent = memaccessagent.MakeBuilder().
		WithEngine(b.engine).
		WithFreq(b.freq).
		WithAddressRange(uint64(id)*b.agentRange, b.agentRange).
		WithReadLeft(b.reads).
		WithWriteLeft(b.writes).
		WithRemotePeers(uint32(b.numNodes), b.remoteRatio).
		WithSeed(b.seed + int64(id)).
		WithLowModule(n.OLB.UpLink().Ports()[0].AsRemote()).
		Build(prefix + ".Agent")

	b.connect(n, prefix)

	if b.msgLogger != nil {
		msgLogger := sim.NewPortMsgLogger(b.msgLogger, b.engine)
		for _, port := range n.OLB.Ports() {
			port.AcceptHook(msgLogger)
		}
	}

	for _, c := range []sim.Component{
		n.Agent, n.OLB, n.Memory, n.Link, n.CPUConn, n.MemConn,
	} {
		p.Simulation.RegisterComponent(c)
	}

	return n, nil
}

func (b Builder) connect(n *Node, prefix string) {
	up := n.OLB.UpLink()
	up.SetRemote(n.Agent.MemPort().AsRemote())

	n.CPUConn = sim.MakeDirectConnection(prefix+".CPUConn", b.engine, b.freq)
	n.CPUConn.PlugIn(n.Agent.MemPort())

	for _, port := range up.Ports() {
		n.CPUConn.PlugIn(port)
	}

	down := n.OLB.DownLink()
	down.SetRemote(n.Memory.TopPort().AsRemote())

	n.MemConn = sim.MakeDirectConnection(prefix+".MemConn", b.engine, b.freq)
	n.MemConn.PlugIn(n.Memory.TopPort())

	for _, port := range down.Ports() {
		n.MemConn.PlugIn(port)
	}
}
