package linkcontrol

import (
	"container/list"

	"github.com/sarchlab/bgas/sim"
)

// Builder can help building link controls.
type Builder struct {
	engine       sim.Engine
	freq         sim.Freq
	node         NodeID
	addressTable *AddressTable
	portBufSize  int
}

// MakeBuilder creates a new Builder with default configurations.
func MakeBuilder() Builder {
	return Builder{
		freq:        1 * sim.GHz,
		portBufSize: 4,
	}
}

// WithEngine sets the engine of the link control to build.
func (b Builder) WithEngine(e sim.Engine) Builder {
	b.engine = e
	return b
}

// WithFreq sets the frequency of the link control to build.
func (b Builder) WithFreq(freq sim.Freq) Builder {
	b.freq = freq
	return b
}

// WithNode sets the node id on the fabric.
func (b Builder) WithNode(node NodeID) Builder {
	b.node = node
	return b
}

// WithAddressTable sets the table that maps node ids to fabric ports.
func (b Builder) WithAddressTable(t *AddressTable) Builder {
	b.addressTable = t
	return b
}

// WithNetworkPortBufferSize sets the number of flits the network port can
// buffer.
func (b Builder) WithNetworkPortBufferSize(n int) Builder {
	b.portBufSize = n
	return b
}

// Build creates a new link control. The link control must be initialized
// before it is used.
func (b Builder) Build(name string) *Comp {
	b.engineMustBeGiven()
	b.freqMustBeGiven()
	b.addressTableMustBeGiven()

	c := &Comp{
		node:               b.node,
		addressTable:       b.addressTable,
		portBufSize:        b.portBufSize,
		assemblingMsgs:     list.New(),
		assemblingMsgTable: make(map[string]*list.Element),
	}
	c.TickingComponent = sim.NewTickingComponent(name, b.engine, b.freq, c)

	return c
}

func (b Builder) engineMustBeGiven() {
	if b.engine == nil {
		panic("engine is not given")
	}
}

func (b Builder) freqMustBeGiven() {
	if b.freq == 0 {
		panic("freq must be given")
	}
}

func (b Builder) addressTableMustBeGiven() {
	if b.addressTable == nil {
		panic("address table is not given")
	}
}
