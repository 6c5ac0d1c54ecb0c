package linkcontrol

import (
	"fmt"

	"github.com/sarchlab/bgas/sim"
)

// NodeID identifies a node on the fabric.
type NodeID int

// A Request is a packet handed to the link control for delivery to another
// node. The payload is opaque to the link control.
type Request struct {
	sim.MsgMeta

	SrcNode    NodeID
	DestNode   NodeID
	VN         int
	SizeInBits int
	Payload    any
}

// Meta returns the meta data of the request.
func (r *Request) Meta() *sim.MsgMeta {
	return &r.MsgMeta
}

// Clone returns a copy of the request with a different ID.
func (r *Request) Clone() sim.Msg {
	cloneMsg := *r
	cloneMsg.ID = sim.GetIDGenerator().Generate()

	return &cloneMsg
}

// ByteSize returns the number of bytes the request occupies in buffers.
func (r *Request) ByteSize() uint64 {
	return uint64((r.SizeInBits + 7) / 8)
}

// RequestBuilder can build requests.
type RequestBuilder struct {
	src, dest  NodeID
	sizeInBits int
	payload    any
}

// WithSrcNode sets the node that sends the request.
func (b RequestBuilder) WithSrcNode(n NodeID) RequestBuilder {
	b.src = n
	return b
}

// WithDestNode sets the node that the request goes to.
func (b RequestBuilder) WithDestNode(n NodeID) RequestBuilder {
	b.dest = n
	return b
}

// WithSizeInBits sets the size of the request on the wire.
func (b RequestBuilder) WithSizeInBits(bits int) RequestBuilder {
	b.sizeInBits = bits
	return b
}

// WithPayload sets the opaque payload.
func (b RequestBuilder) WithPayload(p any) RequestBuilder {
	b.payload = p
	return b
}

// Build creates a new request.
func (b RequestBuilder) Build() *Request {
	r := &Request{
		SrcNode:    b.src,
		DestNode:   b.dest,
		SizeInBits: b.sizeInBits,
		Payload:    b.payload,
	}
	r.ID = sim.GetIDGenerator().Generate()
	r.TrafficBytes = int(r.ByteSize())

	return r
}

// Flit is the smallest transferring unit on the fabric.
type Flit struct {
	sim.MsgMeta

	SeqID        int
	NumFlitInMsg int
	Req          *Request
}

// Meta returns the meta data associated with the Flit.
func (f *Flit) Meta() *sim.MsgMeta {
	return &f.MsgMeta
}

// Clone returns cloned Flit with different ID
func (f *Flit) Clone() sim.Msg {
	cloneMsg := *f
	cloneMsg.ID = flitID(f.SeqID, f.Req)

	return &cloneMsg
}

func flitID(seqID int, req *Request) string {
	return fmt.Sprintf("flit-%d-msg-%s-%s",
		seqID, req.ID, sim.GetIDGenerator().Generate())
}
