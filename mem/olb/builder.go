package olb

import (
	"fmt"
	"io"
	"math/rand"
	"strconv"
	"time"

	"github.com/sarchlab/bgas/datarecording"
	"github.com/sarchlab/bgas/mem/memlink"
	"github.com/sarchlab/bgas/noc/linkcontrol"
	"github.com/sarchlab/bgas/sim"
)

// Default parameter values.
const (
	DefaultNetworkBW      = "80GiB/s"
	DefaultNetworkBufSize = "1KiB"
	DefaultMinPacketSize  = "8B"
	DefaultMapping        = "cyclic"
)

// Builder can build OLBs.
type Builder struct {
	engine      sim.Engine
	params      Params
	ports       []string
	transport   Transport
	stats       StatSink
	rng         *rand.Rand
	recorder    datarecording.DataRecorder
	debugWriter io.Writer
}

// MakeBuilder creates a builder with an empty parameter block.
func MakeBuilder() Builder {
	return Builder{params: make(Params)}
}

// WithEngine sets the engine that drives the OLB.
func (b Builder) WithEngine(engine sim.Engine) Builder {
	b.engine = engine
	return b
}

// WithParams sets the parameter block.
func (b Builder) WithParams(params Params) Builder {
	b.params = params
	return b
}

// WithConnectedPorts sets the ports that are connected. When not given, the
// ports are taken from the "ports" parameter.
func (b Builder) WithConnectedPorts(ports ...string) Builder {
	b.ports = ports
	return b
}

// WithTransport sets the transport to the BGAS fabric.
func (b Builder) WithTransport(t Transport) Builder {
	b.transport = t
	return b
}

// WithStatSink sets where statistics go. By default the OLB keeps Counters.
func (b Builder) WithStatSink(s StatSink) Builder {
	b.stats = s
	return b
}

// WithRandSource sets the random source of the random mapping policy.
func (b Builder) WithRandSource(rng *rand.Rand) Builder {
	b.rng = rng
	return b
}

// WithRecorder records the statistics when the simulation ends.
func (b Builder) WithRecorder(r datarecording.DataRecorder) Builder {
	b.recorder = r
	return b
}

// WithDebugWriter sends debug output to the writer instead of the location
// set by the "debug" parameter.
func (b Builder) WithDebugWriter(w io.Writer) Builder {
	b.debugWriter = w
	return b
}

// Build creates an OLB. All parameters are validated here and never read
// again.
func (b Builder) Build(name string) (*Comp, error) {
	if b.engine == nil {
		return nil, &ConfigError{Param: "engine", Reason: "engine is not given"}
	}

	debug, err := b.buildDebug(name)
	if err != nil {
		return nil, err
	}

	mapping, err := b.buildMapping()
	if err != nil {
		return nil, err
	}

	debug.Verbose(1, "%s: mapping table with %d entries", name, mapping.Len())

	plan, err := SelectTopology(b.connectivity())
	if err != nil {
		return nil, err
	}

	node, err := b.params.FindInt("node", 0)
	if err != nil {
		return nil, err
	}

	freq, err := b.frequency()
	if err != nil {
		return nil, err
	}

	stats := b.stats
	if stats == nil {
		stats = &Counters{}
	}

	c := &Comp{
		eagerLinks: make(map[sim.Port]memlink.Link),
		params:     b.params,
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, freq, c)
	c.Router = newRouter(name, linkcontrol.NodeID(node), mapping,
		b.transport, stats)
	c.debug = debug
	c.wake = c.TickLater

	err = b.configureTransport(c)
	if err != nil {
		return nil, err
	}

	err = b.configureLinks(c, plan)
	if err != nil {
		return nil, err
	}

	if b.recorder != nil {
		b.engine.RegisterSimulationEndHandler(c.FinishHandler(b.recorder))
	}

	debug.Verbose(1, "%s: %s topology, clock link %t",
		name, plan.Kind, plan.ClockLink)

	return c, nil
}

func (b Builder) buildDebug(name string) (*DebugOutput, error) {
	level, err := b.params.FindInt("debug_level", 0)
	if err != nil {
		return nil, err
	}

	if level < 0 || level > 10 {
		return nil, &ConfigError{
			Param:  "debug_level",
			Reason: fmt.Sprintf("must be in 0..10, got %d", level),
		}
	}

	prefix := "OLB[" + name + "]: "

	if b.debugWriter != nil {
		return NewDebugOutputTo(b.debugWriter, level, prefix), nil
	}

	location, err := b.params.FindInt("debug", DebugNone)
	if err != nil {
		return nil, err
	}

	return NewDebugOutput(location, level,
		b.params.FindString("debug_file", ""), prefix)
}

func (b Builder) buildMapping() (*MappingTable, error) {
	policy, err := ParseMappingPolicy(
		b.params.FindString("mapping", DefaultMapping))
	if err != nil {
		return nil, err
	}

	entries, err := b.params.FindInt("entries", 1)
	if err != nil {
		return nil, err
	}

	rng := b.rng
	if rng == nil && policy == MappingRandom {
		seed := time.Now().UnixNano()

		if s, found := b.params.Find("seed"); found {
			seed, err = strconv.ParseInt(s, 10, 64)
			if err != nil {
				return nil, &ConfigError{Param: "seed", Reason: err.Error()}
			}
		}

		rng = rand.New(rand.NewSource(seed))
	}

	return BuildMappingTable(entries, policy, rng)
}

func (b Builder) connectivity() Connectivity {
	ports := b.ports
	if ports == nil {
		ports = b.params.FindList("ports")
	}

	c := ConnectivityFromPorts(ports...)
	if b.params.FindString(PortBgas, "") != "" {
		c.Bgas = true
	}

	return c
}

func (b Builder) frequency() (sim.Freq, error) {
	s, found := b.params.Find("frequency")
	if !found {
		return 0, &ConfigError{
			Param:  "frequency",
			Reason: "OLB frequency is not specified",
		}
	}

	freq, err := sim.ParseFreq(s)
	if err != nil {
		return 0, &ConfigError{Param: "frequency", Reason: err.Error()}
	}

	return freq, nil
}

func (b Builder) byteParam(key, def string) (uint64, error) {
	n, err := sim.ParseBytes(b.params.FindString(key, def))
	if err != nil {
		return 0, &ConfigError{Param: key, Reason: err.Error()}
	}

	return n, nil
}

func (b Builder) configureTransport(c *Comp) error {
	if b.transport == nil {
		return &ConfigError{
			Param:  PortBgas,
			Reason: "could not initialize the link control",
		}
	}

	bw, err := sim.ParseBandwidth(
		b.params.FindString("network_bw", DefaultNetworkBW))
	if err != nil {
		return &ConfigError{Param: "network_bw", Reason: err.Error()}
	}

	inBuf, err := b.byteParam("network_input_buffer_size",
		DefaultNetworkBufSize)
	if err != nil {
		return err
	}

	outBuf, err := b.byteParam("network_output_buffer_size",
		DefaultNetworkBufSize)
	if err != nil {
		return err
	}

	c.packetHeader, err = b.byteParam("min_packet_size", DefaultMinPacketSize)
	if err != nil {
		return err
	}

	c.maxPacket = min(inBuf, outBuf)

	portName := b.params.FindString(PortBgas, PortBgas)

	err = b.transport.Initialize(portName, bw, 1, inBuf, outBuf)
	if err != nil {
		return &ConfigError{Param: PortBgas, Reason: err.Error()}
	}

	b.transport.SetNotifyOnReceive(c.recvNotify)

	c.debug.Verbose(1, "%s: BGAS link %s at %.0f B/s, header %d B",
		c.Name(), portName, bw, c.packetHeader)

	return nil
}

// linkParams derives the parameter block of a link from its prefix.
func (b Builder) linkParams(prefix string) Params {
	p := b.params.WithPrefix(prefix)

	p.Set("node", b.params.FindString("node", "0"))
	p.Set("shared_memory", b.params.FindString("shared_memory", "0"))
	p.Set("local_memory_size", b.params.FindString("local_memory_size", "0"))

	return p
}

func linkConfig(p Params) (memlink.Config, error) {
	cfg := memlink.DefaultConfig()

	cfg.Port = p.FindString("port", cfg.Port)
	cfg.ReqPort = p.FindString("req.port", cfg.ReqPort)
	cfg.AckPort = p.FindString("ack.port", cfg.AckPort)
	cfg.FwdPort = p.FindString("fwd.port", cfg.FwdPort)
	cfg.DataPort = p.FindString("data.port", cfg.DataPort)

	var err error

	if cfg.Group, err = p.FindInt("group", cfg.Group); err != nil {
		return cfg, err
	}

	if cfg.Node, err = p.FindInt("node", 0); err != nil {
		return cfg, err
	}

	if cfg.BufferSize, err = p.FindInt("buffer_size", cfg.BufferSize); err != nil {
		return cfg, err
	}

	if cfg.SharedMemory, err = p.FindUint("shared_memory", 0); err != nil {
		return cfg, err
	}

	cfg.LocalMemorySize, err = p.FindUint("local_memory_size", 0)

	return cfg, err
}

func (b Builder) configureLinks(c *Comp, plan TopologyPlan) error {
	cpuParams := b.linkParams("cpulink.")
	cpuParams.Set("port", PortHigh)

	cpuCfg, err := linkConfig(cpuParams)
	if err != nil {
		return err
	}

	topo := Topology{TopologyPlan: plan}
	lb := memlink.MakeBuilder().WithOwner(c)

	switch plan.Down {
	case LinkDirect:
		memParams := b.linkParams("memlink.")
		memParams.Set("port", PortLow)

		memCfg, err := linkConfig(memParams)
		if err != nil {
			return err
		}

		topo.DownLink = lb.WithConfig(memCfg).
			BuildDirectLink(c.Name() + ".MemLink")
	case LinkNIC, LinkFourChannelNIC:
		nicParams := b.linkParams("memNIC.")
		nicParams.SetDefault("group", "1")

		nicCfg, err := linkConfig(nicParams)
		if err != nil {
			return err
		}

		if plan.Down == LinkFourChannelNIC {
			topo.DownLink = lb.WithConfig(nicCfg).
				BuildFourChannelNIC(c.Name() + ".MemNIC")
		} else {
			topo.DownLink = lb.WithConfig(nicCfg).
				BuildNIC(c.Name() + ".MemNIC")
		}
	}

	topo.UpLink = lb.WithConfig(cpuCfg).BuildDirectLink(c.Name() + ".CPULink")

	topo.UpLink.SetRecvHandler(c.handleUp)
	topo.DownLink.SetRecvHandler(c.handleDown)

	for _, p := range topo.UpLink.Ports() {
		c.eagerLinks[p] = topo.UpLink
	}

	if !plan.ClockLink {
		for _, p := range topo.DownLink.Ports() {
			c.eagerLinks[p] = topo.DownLink
		}
	}

	c.topology = topo

	return nil
}
