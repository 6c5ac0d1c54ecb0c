// Package olb provides the Object Lookaside Buffer, the component that routes
// the memory requests of a node either to its own memory or over the BGAS
// fabric to other nodes.
package olb

import (
	"fmt"
	"strings"

	"github.com/sarchlab/bgas/mem/memlink"
	"github.com/sarchlab/bgas/noc/linkcontrol"
	"github.com/sarchlab/bgas/sim"
)

// Comp is an OLB.
type Comp struct {
	*sim.TickingComponent
	*Router

	topology   Topology
	eagerLinks map[sim.Port]memlink.Link
	params     Params
}

// Topology returns the links and the plan the OLB was built with.
func (c *Comp) Topology() Topology {
	return c.topology
}

// UpLink returns the link to the CPU.
func (c *Comp) UpLink() memlink.Link {
	return c.topology.UpLink
}

// DownLink returns the link to the memory.
func (c *Comp) DownLink() memlink.Link {
	return c.topology.DownLink
}

// Node returns the physical node id of the OLB.
func (c *Comp) Node() linkcontrol.NodeID {
	return c.node
}

// Stats returns the statistic sink of the OLB.
func (c *Comp) Stats() StatSink {
	return c.stats
}

// NotifyRecv hands messages arriving on unclocked links to the router right
// away.
func (c *Comp) NotifyRecv(port sim.Port) {
	if link, found := c.eagerLinks[port]; found {
		link.Poll()
	}

	c.TickLater()
}

// Tick runs one cycle of the dispatch loop. Local memory requests go out
// before network packets. If the network had nothing to send, a remote
// request classified in this cycle goes out in this cycle.
func (c *Comp) Tick() bool {
	madeProgress := false

	madeProgress = c.dispatchLocal(c.topology.DownLink) || madeProgress

	netIdle := len(c.sendQueue) == 0
	madeProgress = c.dispatchNet() || madeProgress
	madeProgress = c.dispatchReply(c.topology.UpLink) || madeProgress

	if c.topology.ClockLink {
		madeProgress = c.topology.DownLink.Tick() || madeProgress
	}

	madeProgress = c.drainTransport(0) || madeProgress
	madeProgress = c.topology.UpLink.Poll() || madeProgress

	if netIdle {
		madeProgress = c.dispatchNet() || madeProgress
	}

	return madeProgress
}

// Status describes the state of the OLB.
func (c *Comp) Status() string {
	var b strings.Builder

	fmt.Fprintf(&b, "OLB %s (node %d)\n", c.Name(), c.node)
	fmt.Fprintf(&b, "  topology: %s, up %s, down %s x%d\n",
		c.topology.Kind, c.topology.Up, c.topology.Down, c.topology.Channels)
	fmt.Fprintf(&b, "  tags outstanding: %d/%d\n",
		c.tags.Outstanding(), NumTags)
	fmt.Fprintf(&b, "  queues: local %d, network %d, reply %d, backlog %d\n",
		len(c.memQueue), len(c.sendQueue), len(c.replyQueue),
		len(c.netBacklog))
	fmt.Fprintf(&b, "  in flight: remote %d, memory %d\n",
		len(c.inflightRemote), len(c.pendingMem))

	if counters, ok := c.stats.(*Counters); ok {
		for _, s := range AllStats() {
			fmt.Fprintf(&b, "  %s: %d\n", s, counters.Get(s))
		}
	}

	return b.String()
}

func (c *Comp) recvNotify(vn int) bool {
	keep := c.RecvNotify(vn)
	c.TickLater()

	return keep
}
