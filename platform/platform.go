// Package platform assembles multi-node BGAS systems. Every node has a CPU
// agent, an OLB, a memory controller and a network link controller. The link
// controllers of all nodes share one fabric.
package platform

import (
	"fmt"

	"github.com/sarchlab/bgas/mem/idealmemcontroller"
	"github.com/sarchlab/bgas/mem/memaccessagent"
	"github.com/sarchlab/bgas/mem/olb"
	"github.com/sarchlab/bgas/noc/linkcontrol"
	"github.com/sarchlab/bgas/sim"
	"github.com/sarchlab/bgas/tracing"
)

// Node holds the components of one node.
type Node struct {
	ID      int
	Agent   *memaccessagent.MemAccessAgent
	OLB     *olb.Comp
	Memory  *idealmemcontroller.Comp
	Link    *linkcontrol.Comp
	CPUConn *sim.DirectConnection
	MemConn *sim.DirectConnection

	memLatency *tracing.LatencyTracer
}

// MemoryLatency returns the average time the memory controller of the node
// spends on a request.
func (n *Node) MemoryLatency() sim.VTimeInSec {
	return n.memLatency.AverageTime()
}

// MemoryRequests returns the number of requests the memory controller served.
func (n *Node) MemoryRequests() uint64 {
	return n.memLatency.Count()
}

// Platform is a built system ready to run.
type Platform struct {
	Engine       sim.Engine
	Simulation   *sim.Simulation
	Nodes        []*Node
	Fabric       *sim.DirectConnection
	AddressTable *linkcontrol.AddressTable
}

// Run kicks off all the agents and runs the engine until no event is left.
func (p *Platform) Run() error {
	for _, n := range p.Nodes {
		n.Agent.TickLater()
	}

	err := p.Engine.Run()
	if err != nil {
		return err
	}

	p.Engine.Finished()

	return nil
}

// Verify checks that every agent finished without reading wrong data and that
// every OLB returned all of its tags.
func (p *Platform) Verify() error {
	for _, n := range p.Nodes {
		if !n.Agent.Done() {
			return fmt.Errorf("%s: %d reads, %d writes left, %d pending",
				n.Agent.Name(), n.Agent.ReadLeft, n.Agent.WriteLeft,
				len(n.Agent.Pending))
		}

		if n.Agent.Mismatches > 0 {
			return fmt.Errorf("%s: %d reads returned wrong data",
				n.Agent.Name(), n.Agent.Mismatches)
		}

		if free := n.OLB.Tags().Available(); free != olb.NumTags {
			return fmt.Errorf("%s: %d tags still outstanding",
				n.OLB.Name(), olb.NumTags-free)
		}

		if n.OLB.InflightRemote() != 0 || n.OLB.PendingMemory() != 0 {
			return fmt.Errorf("%s: %d remote and %d memory requests in flight",
				n.OLB.Name(), n.OLB.InflightRemote(), n.OLB.PendingMemory())
		}
	}

	return nil
}

// Counters returns the statistics of the OLB of a node. It returns nil if
// the OLB reports to a custom sink.
func (p *Platform) Counters(node int) *olb.Counters {
	counters, _ := p.Nodes[node].OLB.Stats().(*olb.Counters)
	return counters
}
