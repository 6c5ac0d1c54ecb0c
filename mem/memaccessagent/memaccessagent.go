// Package memaccessagent provides a CPU-side agent that issues local and
// remote memory accesses and checks the values it reads back.
package memaccessagent

import (
	"encoding/binary"
	"log"
	"math/rand"
	"reflect"

	"github.com/sarchlab/bgas/mem/mem"
	"github.com/sarchlab/bgas/sim"
)

// LocalPeer marks accesses to the memory of the agent's own node. Logical
// peers start from 1.
const LocalPeer = 0

type target struct {
	peer    uint32
	address uint64
}

type pendingAccess struct {
	target
	write bool
	data  uint32
}

// A ProgressTracker is told every time an access completes.
type ProgressTracker interface {
	IncrementFinished(amount uint64)
}

// A MemAccessAgent is a Component that generates read and write requests to
// the memory of its node and, through the OLB, to the memory of other nodes.
type MemAccessAgent struct {
	*sim.TickingComponent

	LowModule sim.RemotePort

	// The agent only touches [AddressBase, AddressBase+AddressRange). Local
	// accesses use the lower half and remote accesses the upper half.
	AddressBase  uint64
	AddressRange uint64

	NumPeers    uint32
	RemoteRatio float64

	WriteLeft     int
	ReadLeft      int
	KnownMemValue map[target]uint32
	Pending       map[string]pendingAccess
	Mismatches    int

	// Progress is optional.
	Progress ProgressTracker

	memPort sim.Port
	rng     *rand.Rand
	dumpLog bool
}

// MemPort returns the port that connects to the OLB.
func (a *MemAccessAgent) MemPort() sim.Port {
	return a.memPort
}

// Done tells if the agent issued every access and got every response.
func (a *MemAccessAgent) Done() bool {
	return a.ReadLeft == 0 && a.WriteLeft == 0 && len(a.Pending) == 0
}

// Tick updates the states of the agent and issues new read and write requests.
func (a *MemAccessAgent) Tick() bool {
	madeProgress := false

	madeProgress = a.processMsgRsp() || madeProgress

	if a.ReadLeft == 0 && a.WriteLeft == 0 {
		return madeProgress
	}

	if a.shouldRead() {
		madeProgress = a.doRead() || madeProgress
	} else {
		madeProgress = a.doWrite() || madeProgress
	}

	return madeProgress
}

func (a *MemAccessAgent) processMsgRsp() bool {
	msg := a.memPort.RetrieveIncoming()
	if msg == nil {
		return false
	}

	switch msg := msg.(type) {
	case *mem.WriteDoneRsp:
		access := a.mustFindPending(msg.RespondTo)
		a.KnownMemValue[access.target] = access.data

		if a.dumpLog {
			log.Printf("%.10f, %s, write complete, %d, 0x%X\n",
				a.CurrentTime(), a.Name(), access.peer, access.address)
		}

		return true
	case *mem.DataReadyRsp:
		access := a.mustFindPending(msg.RespondTo)
		a.checkReadResult(access, msg.Data)

		return true
	default:
		log.Panicf("cannot process message of type %s", reflect.TypeOf(msg))
	}

	return false
}

func (a *MemAccessAgent) mustFindPending(id string) pendingAccess {
	access, found := a.Pending[id]
	if !found {
		log.Panicf("%s: response to unknown request %s", a.Name(), id)
	}

	delete(a.Pending, id)

	if a.Progress != nil {
		a.Progress.IncrementFinished(1)
	}

	return access
}

func (a *MemAccessAgent) checkReadResult(access pendingAccess, data []byte) {
	expected, known := a.KnownMemValue[access.target]
	if !known {
		return
	}

	if len(data) < 4 || binary.LittleEndian.Uint32(data) != expected {
		a.Mismatches++

		log.Printf("%s: peer %d address 0x%X read %v, expected 0x%X",
			a.Name(), access.peer, access.address, data, expected)

		return
	}

	if a.dumpLog {
		log.Printf("%.10f, %s, read complete, %d, 0x%X, %v\n",
			a.CurrentTime(), a.Name(), access.peer, access.address, data)
	}
}

func (a *MemAccessAgent) shouldRead() bool {
	if len(a.KnownMemValue) == 0 {
		return false
	}

	if a.ReadLeft == 0 {
		return false
	}

	if a.WriteLeft == 0 {
		return true
	}

	return a.rng.Float64() > 0.5
}

func (a *MemAccessAgent) randomTarget() target {
	half := a.AddressRange / 2
	offset := a.rng.Uint64() % (half / 4) * 4

	if a.NumPeers > 0 && a.rng.Float64() < a.RemoteRatio {
		return target{
			peer:    uint32(a.rng.Intn(int(a.NumPeers))) + 1,
			address: a.AddressBase + half + offset,
		}
	}

	return target{peer: LocalPeer, address: a.AddressBase + offset}
}

func (a *MemAccessAgent) randomKnownTarget() target {
	keys := make([]target, 0, len(a.KnownMemValue))
	for t := range a.KnownMemValue {
		keys = append(keys, t)
	}

	// Map order is random. Sorting keeps runs with the same seed identical.
	sortTargets(keys)

	return keys[a.rng.Intn(len(keys))]
}

func (a *MemAccessAgent) isTargetPending(t target) bool {
	for _, access := range a.Pending {
		if access.target == t {
			return true
		}
	}

	return false
}

func (a *MemAccessAgent) doRead() bool {
	t := a.randomKnownTarget()
	if a.isTargetPending(t) {
		return false
	}

	var req sim.Msg
	if t.peer == LocalPeer {
		req = mem.ReadReqBuilder{}.
			WithSrc(a.memPort.AsRemote()).
			WithDst(a.LowModule).
			WithAddress(t.address).
			WithByteSize(4).
			Build()
	} else {
		req = mem.RemoteReqBuilder{}.
			WithSrc(a.memPort.AsRemote()).
			WithDst(a.LowModule).
			WithLogicalPeer(t.peer).
			WithAddress(t.address).
			WithByteSize(4).
			Build()
	}

	err := a.memPort.Send(req)
	if err != nil {
		return false
	}

	a.Pending[req.Meta().ID] = pendingAccess{target: t}
	a.ReadLeft--

	if a.dumpLog {
		log.Printf("%.10f, %s, read, %d, 0x%X\n",
			a.CurrentTime(), a.Name(), t.peer, t.address)
	}

	return true
}

func uint32ToBytes(data uint32) []byte {
	bytes := make([]byte, 4)
	binary.LittleEndian.PutUint32(bytes, data)

	return bytes
}

func (a *MemAccessAgent) doWrite() bool {
	t := a.randomTarget()
	data := a.rng.Uint32()

	if a.isTargetPending(t) {
		return false
	}

	var req sim.Msg
	if t.peer == LocalPeer {
		req = mem.WriteReqBuilder{}.
			WithSrc(a.memPort.AsRemote()).
			WithDst(a.LowModule).
			WithAddress(t.address).
			WithData(uint32ToBytes(data)).
			Build()
	} else {
		req = mem.RemoteReqBuilder{}.
			WithSrc(a.memPort.AsRemote()).
			WithDst(a.LowModule).
			WithLogicalPeer(t.peer).
			WithAddress(t.address).
			WithData(uint32ToBytes(data)).
			Build()
	}

	err := a.memPort.Send(req)
	if err != nil {
		return false
	}

	a.WriteLeft--
	a.Pending[req.Meta().ID] = pendingAccess{target: t, write: true, data: data}

	if a.dumpLog {
		log.Printf("%.10f, %s, write, %d, 0x%X, %d\n",
			a.CurrentTime(), a.Name(), t.peer, t.address, data)
	}

	return true
}
