package olb

import (
	"fmt"

	"github.com/sarchlab/bgas/mem/memlink"
)

// Port names the OLB recognizes in its connectivity.
const (
	PortHigh      = "high_network_0"
	PortLow       = "low_network_0"
	PortCache     = "cache"
	PortCacheAck  = "cache_ack"
	PortCacheFwd  = "cache_fwd"
	PortCacheData = "cache_data"
	PortBgas      = "bgas_network_0"
)

// Connectivity tells which ports of the node are connected.
type Connectivity struct {
	High      bool
	Low       bool
	Cache     bool
	CacheAck  bool
	CacheFwd  bool
	CacheData bool
	Bgas      bool
}

// ConnectivityFromPorts marks the named ports as connected. Unknown names are
// ignored.
func ConnectivityFromPorts(names ...string) Connectivity {
	var c Connectivity

	for _, n := range names {
		switch n {
		case PortHigh:
			c.High = true
		case PortLow:
			c.Low = true
		case PortCache:
			c.Cache = true
		case PortCacheAck:
			c.CacheAck = true
		case PortCacheFwd:
			c.CacheFwd = true
		case PortCacheData:
			c.CacheData = true
		case PortBgas:
			c.Bgas = true
		}
	}

	return c
}

// TopologyKind is the way the node reaches its memory.
type TopologyKind int

// The two topologies a node can be wired into.
const (
	TopologyDirect TopologyKind = iota
	TopologyNetworked
)

func (k TopologyKind) String() string {
	switch k {
	case TopologyDirect:
		return "direct"
	case TopologyNetworked:
		return "networked"
	default:
		return fmt.Sprintf("TopologyKind(%d)", int(k))
	}
}

// LinkKind is the kind of a memory link.
type LinkKind int

// Memory link kinds.
const (
	LinkDirect LinkKind = iota
	LinkNIC
	LinkFourChannelNIC
)

func (k LinkKind) String() string {
	switch k {
	case LinkDirect:
		return "direct link"
	case LinkNIC:
		return "NIC"
	case LinkFourChannelNIC:
		return "four channel NIC"
	default:
		return fmt.Sprintf("LinkKind(%d)", int(k))
	}
}

// A TopologyPlan is the decision on how to wire a node.
type TopologyPlan struct {
	Kind      TopologyKind
	Up        LinkKind
	Down      LinkKind
	ClockLink bool
	Channels  int
}

// SelectTopology decides the topology from the connected ports.
func SelectTopology(c Connectivity) (TopologyPlan, error) {
	if !c.High {
		return TopologyPlan{}, &ConfigError{
			Param:  PortHigh,
			Reason: "no high network connected to the CPU",
		}
	}

	if !c.Low && !c.Cache {
		return TopologyPlan{}, &ConfigError{
			Param:  PortLow,
			Reason: "no connected low ports, connect one of cache or low_network_0",
		}
	}

	if !c.Bgas {
		return TopologyPlan{}, &ConfigError{
			Param:  PortBgas,
			Reason: "no BGAS network connected",
		}
	}

	if c.Cache {
		return TopologyPlan{
			Kind:     TopologyDirect,
			Up:       LinkDirect,
			Down:     LinkDirect,
			Channels: 1,
		}, nil
	}

	plan := TopologyPlan{
		Kind:      TopologyNetworked,
		Up:        LinkDirect,
		Down:      LinkNIC,
		ClockLink: true,
		Channels:  1,
	}

	if c.CacheAck && c.CacheFwd && c.CacheData {
		plan.Down = LinkFourChannelNIC
		plan.Channels = 4
	}

	return plan, nil
}

// Topology holds the links of the selected plan.
type Topology struct {
	TopologyPlan

	UpLink   memlink.Link
	DownLink memlink.Link
}
