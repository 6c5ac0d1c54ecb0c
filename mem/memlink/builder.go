package memlink

import (
	"github.com/sarchlab/bgas/sim"
)

// Builder can build links.
type Builder struct {
	owner sim.Component
	cfg   Config
}

// MakeBuilder creates a builder with the default configuration.
func MakeBuilder() Builder {
	return Builder{cfg: DefaultConfig()}
}

// WithOwner sets the component that owns the ports of the link. The owner is
// notified when messages arrive.
func (b Builder) WithOwner(owner sim.Component) Builder {
	b.owner = owner
	return b
}

// WithConfig sets the parameters of the link.
func (b Builder) WithConfig(cfg Config) Builder {
	b.cfg = cfg
	return b
}

// BuildDirectLink creates a direct link over the port named in the
// configuration.
func (b Builder) BuildDirectLink(name string) *DirectLink {
	b.ownerMustBeGiven()

	l := &DirectLink{
		name: name,
		cfg:  b.cfg,
	}
	l.port = b.makePort(b.cfg.Port)

	return l
}

// BuildNIC creates a single channel NIC.
func (b Builder) BuildNIC(name string) *NIC {
	b.ownerMustBeGiven()

	n := b.makeNIC(name)
	n.channels = []*nicChannel{
		{port: b.makePort(b.cfg.Port)},
	}

	return n
}

// BuildFourChannelNIC creates a NIC with request, ack, forward and data
// channels.
func (b Builder) BuildFourChannelNIC(name string) *NIC {
	b.ownerMustBeGiven()

	n := b.makeNIC(name)
	n.channels = []*nicChannel{
		{port: b.makePort(b.cfg.ReqPort)},
		{port: b.makePort(b.cfg.AckPort)},
		{port: b.makePort(b.cfg.FwdPort)},
		{port: b.makePort(b.cfg.DataPort)},
	}

	return n
}

func (b Builder) makeNIC(name string) *NIC {
	queueCap := b.cfg.BufferSize
	if queueCap < 1 {
		queueCap = 1
	}

	return &NIC{
		name:     name,
		cfg:      b.cfg,
		queueCap: queueCap,
	}
}

func (b Builder) makePort(param string) sim.Port {
	bufSize := b.cfg.BufferSize
	if bufSize < 1 {
		bufSize = 1
	}

	token := PortToken(param)
	port := sim.NewPort(b.owner, bufSize, bufSize,
		b.owner.Name()+"."+token)
	b.owner.AddPort(token, port)

	return port
}

func (b Builder) ownerMustBeGiven() {
	if b.owner == nil {
		panic("owner is not given")
	}
}
