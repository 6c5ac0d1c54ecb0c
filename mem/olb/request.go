package olb

import (
	"github.com/sarchlab/bgas/noc/linkcontrol"
	"github.com/sarchlab/bgas/sim"
)

// Origin identifies the node and tag of a request that arrived over the
// fabric.
type Origin struct {
	Node linkcontrol.NodeID
	Tag  Tag
}

// A RoutedRequest is a request the OLB has tagged and queued. It owns its tag
// until it retires.
type RoutedRequest struct {
	Tag     Tag
	Dest    uint32
	Size    uint64
	Event   sim.Msg
	IsLocal bool

	// Origin is set for requests that other nodes sent to this node.
	Origin *Origin

	// Downstream is the message sent to the memory link on behalf of the
	// request. The memory response refers to it.
	Downstream sim.Msg
}

// NetEvent flags.
const (
	FlagWrite uint32 = 1 << iota
	FlagResponse
)

// A NetEvent is the payload the OLB places in fabric packets.
type NetEvent struct {
	Tag     Tag
	Opcode  uint32
	Address uint64
	Size    uint64
	Payload []byte
	Flags   uint32
	SrcNode linkcontrol.NodeID
}

// IsWrite tells if the event is a write or the response to one.
func (e *NetEvent) IsWrite() bool {
	return e.Flags&FlagWrite != 0
}

// IsResponse tells if the event answers an earlier request.
func (e *NetEvent) IsResponse() bool {
	return e.Flags&FlagResponse != 0
}

func (e *NetEvent) clone() *NetEvent {
	c := *e
	if e.Payload != nil {
		c.Payload = make([]byte, len(e.Payload))
		copy(c.Payload, e.Payload)
	}

	return &c
}

// Transport is the packet network that connects nodes.
type Transport interface {
	Initialize(
		portName string,
		bandwidth float64,
		numVCs int,
		inBufBytes, outBufBytes uint64,
	) error
	Send(req *linkcontrol.Request, vn int) bool
	Recv(vn int) *linkcontrol.Request
	SetNotifyOnReceive(f func(vn int) bool)
	SpaceToSend(vn int, bits int) bool
}
