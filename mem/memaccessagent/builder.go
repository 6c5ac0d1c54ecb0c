package memaccessagent

import (
	"math/rand"

	"github.com/sarchlab/bgas/sim"
)

// Builder can build MemAccessAgents.
type Builder struct {
	engine       sim.Engine
	freq         sim.Freq
	addressBase  uint64
	addressRange uint64
	writeLeft    int
	readLeft     int
	numPeers     uint32
	remoteRatio  float64
	seed         int64
	lowModule    sim.RemotePort
	dumpLog      bool
}

// MakeBuilder creates a builder with default parameters.
func MakeBuilder() *Builder {
	return &Builder{
		freq:         1 * sim.GHz,
		addressRange: 1024 * 1024,
		writeLeft:    1000,
		readLeft:     1000,
		seed:         1,
	}
}

// WithEngine sets the engine of the agent.
func (b *Builder) WithEngine(engine sim.Engine) *Builder {
	b.engine = engine
	return b
}

// WithFreq sets the frequency of the agent.
func (b *Builder) WithFreq(freq sim.Freq) *Builder {
	b.freq = freq
	return b
}

// WithAddressRange sets the addresses the agent may touch on every node.
func (b *Builder) WithAddressRange(base, size uint64) *Builder {
	b.addressBase = base
	b.addressRange = size

	return b
}

// WithWriteLeft sets the number of writes to issue.
func (b *Builder) WithWriteLeft(write int) *Builder {
	b.writeLeft = write
	return b
}

// WithReadLeft sets the number of reads to issue.
func (b *Builder) WithReadLeft(read int) *Builder {
	b.readLeft = read
	return b
}

// WithRemotePeers sets the number of logical peers and the share of accesses
// that go to them.
func (b *Builder) WithRemotePeers(numPeers uint32, ratio float64) *Builder {
	b.numPeers = numPeers
	b.remoteRatio = ratio

	return b
}

// WithSeed sets the seed of the access pattern.
func (b *Builder) WithSeed(seed int64) *Builder {
	b.seed = seed
	return b
}

// WithLowModule sets the port that requests go to.
func (b *Builder) WithLowModule(port sim.RemotePort) *Builder {
	b.lowModule = port
	return b
}

// WithDumpLog prints every access.
func (b *Builder) WithDumpLog(dump bool) *Builder {
	b.dumpLog = dump
	return b
}

// Build creates a new MemAccessAgent.
func (b *Builder) Build(name string) *MemAccessAgent {
	if b.addressRange < 8 {
		panic("address range must be at least 8 bytes")
	}

	agent := new(MemAccessAgent)
	agent.TickingComponent = sim.NewTickingComponent(
		name, b.engine, b.freq, agent)

	agent.AddressBase = b.addressBase
	agent.AddressRange = b.addressRange
	agent.NumPeers = b.numPeers
	agent.RemoteRatio = b.remoteRatio
	agent.WriteLeft = b.writeLeft
	agent.ReadLeft = b.readLeft
	agent.LowModule = b.lowModule
	agent.KnownMemValue = make(map[target]uint32)
	agent.Pending = make(map[string]pendingAccess)
	agent.rng = rand.New(rand.NewSource(b.seed))
	agent.dumpLog = b.dumpLog

	agent.memPort = sim.NewPort(agent, 4, 4, name+".MemPort")
	agent.AddPort("Mem", agent.memPort)

	return agent
}
