// Package linkcontrol provides the network interface that connects a node to
// the BGAS fabric.
package linkcontrol

import (
	"container/list"
	"errors"
	"fmt"
	"log"
	"math"

	"github.com/sarchlab/bgas/sim"
	"github.com/sarchlab/bgas/tracing"
)

type vnBuffer struct {
	reqs     []*Request
	bytes    uint64
	capBytes uint64
}

func (b *vnBuffer) fits(n uint64) bool {
	return b.bytes+n <= b.capBytes
}

func (b *vnBuffer) push(req *Request) {
	b.reqs = append(b.reqs, req)
	b.bytes += req.ByteSize()
}

func (b *vnBuffer) pop() *Request {
	if len(b.reqs) == 0 {
		return nil
	}

	req := b.reqs[0]
	b.reqs = b.reqs[1:]
	b.bytes -= req.ByteSize()

	return req
}

type msgToAssemble struct {
	req             *Request
	numFlitRequired int
	numFlitArrived  int
}

// Comp is the link control of a node. It accepts packets on a number of
// virtual networks, breaks them into flits that travel over the fabric, and
// reassembles the flits that arrive.
type Comp struct {
	*sim.TickingComponent

	node         NodeID
	addressTable *AddressTable
	portBufSize  int

	initialized  bool
	portName     string
	networkPort  sim.Port
	flitByteSize int
	outBufs      []*vnBuffer
	inBufs       []*vnBuffer
	flitsToSend  []*Flit

	assemblingMsgTable map[string]*list.Element
	assemblingMsgs     *list.List

	notifyOnReceive func(vn int) bool

	sentBytes, receivedBytes uint64
}

// Node returns the node id of the link control.
func (c *Comp) Node() NodeID {
	return c.node
}

// NetworkPort returns the port that connects to the fabric. It is nil before
// Initialize.
func (c *Comp) NetworkPort() sim.Port {
	return c.networkPort
}

// PortName returns the name given to Initialize.
func (c *Comp) PortName() string {
	return c.portName
}

// FlitByteSize returns the number of bytes the link moves per cycle.
func (c *Comp) FlitByteSize() int {
	return c.flitByteSize
}

// Initialize configures the link control. The bandwidth is in bytes per
// second. It can only be called once.
func (c *Comp) Initialize(
	portName string,
	bandwidth float64,
	numVCs int,
	inBufBytes, outBufBytes uint64,
) error {
	if c.initialized {
		return errors.New("link control already initialized")
	}

	switch {
	case portName == "":
		return errors.New("port name must not be empty")
	case bandwidth <= 0:
		return fmt.Errorf("bandwidth must be positive, got %g", bandwidth)
	case numVCs < 1:
		return fmt.Errorf("need at least one virtual channel, got %d", numVCs)
	case inBufBytes == 0 || outBufBytes == 0:
		return errors.New("buffer sizes must be positive")
	}

	c.portName = portName
	c.flitByteSize = int(math.Max(1, math.Ceil(bandwidth/float64(c.Freq))))

	c.outBufs = make([]*vnBuffer, numVCs)
	c.inBufs = make([]*vnBuffer, numVCs)

	for i := 0; i < numVCs; i++ {
		c.outBufs[i] = &vnBuffer{capBytes: outBufBytes}
		c.inBufs[i] = &vnBuffer{capBytes: inBufBytes}
	}

	c.networkPort = sim.NewPort(c, c.portBufSize, c.portBufSize,
		c.Name()+".NetworkPort")
	c.AddPort("Network", c.networkPort)

	if c.addressTable != nil {
		err := c.addressTable.Register(c.node, c.networkPort.AsRemote())
		if err != nil {
			return err
		}
	}

	c.initialized = true

	return nil
}

// SetNotifyOnReceive registers a function that is called when a request
// arrives. The function is dropped if it returns false.
func (c *Comp) SetNotifyOnReceive(f func(vn int) bool) {
	c.notifyOnReceive = f
}

// SpaceToSend tells if a request of the given size can be sent on the
// virtual network.
func (c *Comp) SpaceToSend(vn int, bits int) bool {
	c.mustBeInitialized()

	if vn < 0 || vn >= len(c.outBufs) {
		return false
	}

	return c.outBufs[vn].fits(uint64((bits + 7) / 8))
}

// Send queues a request for delivery. It returns false if the virtual network
// does not have enough buffer space.
func (c *Comp) Send(req *Request, vn int) bool {
	if !c.SpaceToSend(vn, req.SizeInBits) {
		return false
	}

	dst, found := c.addressTable.Lookup(req.DestNode)
	if !found {
		log.Panicf("%s: node %d is not on the fabric", c.Name(), req.DestNode)
	}

	req.SrcNode = c.node
	req.VN = vn
	req.Src = c.networkPort.AsRemote()
	req.Dst = dst

	c.outBufs[vn].push(req)

	tracing.StartTask(c.bufTaskID(req), "", c, "net_out", "out_buf", req)
	c.TickLater()

	return true
}

// Recv returns the oldest request that arrived on the virtual network, or nil
// if there is none.
func (c *Comp) Recv(vn int) *Request {
	c.mustBeInitialized()

	if vn < 0 || vn >= len(c.inBufs) {
		return nil
	}

	req := c.inBufs[vn].pop()
	if req == nil {
		return nil
	}

	tracing.EndTask(c.bufTaskID(req), c)
	c.TickLater()

	return req
}

// RequestsToRecv tells if any request is waiting in the virtual network.
func (c *Comp) RequestsToRecv(vn int) bool {
	if vn < 0 || vn >= len(c.inBufs) {
		return false
	}

	return len(c.inBufs[vn].reqs) > 0
}

// SentBytes returns the number of bytes that left the node.
func (c *Comp) SentBytes() uint64 {
	return c.sentBytes
}

// ReceivedBytes returns the number of bytes that arrived at the node.
func (c *Comp) ReceivedBytes() uint64 {
	return c.receivedBytes
}

func (c *Comp) mustBeInitialized() {
	if !c.initialized {
		log.Panicf("link control %s is not initialized", c.Name())
	}
}

func (c *Comp) bufTaskID(req *Request) string {
	return fmt.Sprintf("%s@%s_buf", req.ID, c.Name())
}

// Tick moves flits in and out of the fabric.
func (c *Comp) Tick() bool {
	if !c.initialized {
		return false
	}

	madeProgress := false

	madeProgress = c.sendFlitOut() || madeProgress
	madeProgress = c.prepareFlits() || madeProgress
	madeProgress = c.deliverAssembled() || madeProgress
	madeProgress = c.recvFlit() || madeProgress

	return madeProgress
}

func (c *Comp) sendFlitOut() bool {
	if len(c.flitsToSend) == 0 {
		return false
	}

	flit := c.flitsToSend[0]

	err := c.networkPort.Send(flit)
	if err != nil {
		return false
	}

	c.flitsToSend = c.flitsToSend[1:]

	return true
}

func (c *Comp) prepareFlits() bool {
	if len(c.flitsToSend) > 0 {
		return false
	}

	for _, buf := range c.outBufs {
		req := buf.pop()
		if req == nil {
			continue
		}

		tracing.EndTask(c.bufTaskID(req), c)

		c.flitsToSend = append(c.flitsToSend, c.reqToFlits(req)...)
		c.sentBytes += req.ByteSize()

		return true
	}

	return false
}

func (c *Comp) reqToFlits(req *Request) []*Flit {
	numFlit := 1
	if req.ByteSize() > 0 {
		numFlit = int((req.ByteSize()-1)/uint64(c.flitByteSize)) + 1
	}

	flits := make([]*Flit, numFlit)
	for i := 0; i < numFlit; i++ {
		flit := &Flit{
			SeqID:        i,
			NumFlitInMsg: numFlit,
			Req:          req,
		}
		flit.ID = flitID(i, req)
		flit.Src = req.Src
		flit.Dst = req.Dst
		flit.TrafficBytes = c.flitByteSize

		flits[i] = flit
	}

	return flits
}

func (c *Comp) recvFlit() bool {
	received := c.networkPort.PeekIncoming()
	if received == nil {
		return false
	}

	flit := received.(*Flit)
	req := flit.Req

	elem, found := c.assemblingMsgTable[req.ID]
	if !found {
		elem = c.assemblingMsgs.PushBack(&msgToAssemble{
			req:             req,
			numFlitRequired: flit.NumFlitInMsg,
		})
		c.assemblingMsgTable[req.ID] = elem
	}

	elem.Value.(*msgToAssemble).numFlitArrived++

	c.networkPort.RetrieveIncoming()

	return true
}

func (c *Comp) deliverAssembled() bool {
	madeProgress := false

	for e := c.assemblingMsgs.Front(); e != nil; {
		next := e.Next()
		assembling := e.Value.(*msgToAssemble)

		if assembling.numFlitArrived < assembling.numFlitRequired {
			e = next
			continue
		}

		req := assembling.req

		buf := c.inBufs[req.VN]
		if !buf.fits(req.ByteSize()) {
			e = next
			continue
		}

		buf.push(req)
		c.receivedBytes += req.ByteSize()
		c.assemblingMsgs.Remove(e)
		delete(c.assemblingMsgTable, req.ID)

		tracing.StartTask(c.bufTaskID(req), "", c, "net_in", "in_buf", req)

		c.notify(req.VN)

		madeProgress = true
		e = next
	}

	return madeProgress
}

func (c *Comp) notify(vn int) {
	if c.notifyOnReceive == nil {
		return
	}

	if !c.notifyOnReceive(vn) {
		c.notifyOnReceive = nil
	}
}
