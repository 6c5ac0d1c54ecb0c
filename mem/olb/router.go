package olb

import (
	"errors"
	"fmt"
	"log"

	"github.com/sarchlab/bgas/mem/mem"
	"github.com/sarchlab/bgas/mem/memlink"
	"github.com/sarchlab/bgas/noc/linkcontrol"
	"github.com/sarchlab/bgas/sim"
)

// Router classifies requests, tags them and keeps the queues of an OLB. A
// routed request is in exactly one of the local memory queue, the in-flight
// remote table or the pending memory table.
type Router struct {
	name         string
	node         linkcontrol.NodeID
	tags         *TagPool
	mapping      *MappingTable
	transport    Transport
	stats        StatSink
	debug        *DebugOutput
	packetHeader uint64
	maxPacket    uint64
	wake         func()

	memQueue       []*RoutedRequest
	sendQueue      []*linkcontrol.Request
	replyQueue     []sim.Msg
	netBacklog     []*NetEvent
	inflightRemote map[Tag]*RoutedRequest
	pendingMem     map[string]*RoutedRequest
}

func newRouter(
	name string,
	node linkcontrol.NodeID,
	mapping *MappingTable,
	transport Transport,
	stats StatSink,
) *Router {
	return &Router{
		name:           name,
		node:           node,
		tags:           NewTagPool(),
		mapping:        mapping,
		transport:      transport,
		stats:          stats,
		wake:           func() {},
		inflightRemote: make(map[Tag]*RoutedRequest),
		pendingMem:     make(map[string]*RoutedRequest),
	}
}

// Tags returns the tag pool of the node.
func (r *Router) Tags() *TagPool {
	return r.tags
}

// Mapping returns the mapping table of the node.
func (r *Router) Mapping() *MappingTable {
	return r.mapping
}

// LocalQueueLen returns the number of requests waiting for the memory link.
func (r *Router) LocalQueueLen() int {
	return len(r.memQueue)
}

// NetQueueLen returns the number of packets waiting for the transport.
func (r *Router) NetQueueLen() int {
	return len(r.sendQueue)
}

// ReplyQueueLen returns the number of replies waiting for the CPU link.
func (r *Router) ReplyQueueLen() int {
	return len(r.replyQueue)
}

// InflightRemote returns the number of remote requests awaiting a reply.
func (r *Router) InflightRemote() int {
	return len(r.inflightRemote)
}

// PendingMemory returns the number of requests the memory is serving.
func (r *Router) PendingMemory() int {
	return len(r.pendingMem)
}

// Classify tags a request from the CPU and queues it. Remote requests are
// encoded and queued for the transport right away. The returned error wraps
// ErrResourceExhausted when no tag is free.
func (r *Router) Classify(msg sim.Msg) (*RoutedRequest, error) {
	switch req := msg.(type) {
	case *mem.RemoteReq:
		return r.classifyRemote(req)
	case *mem.ReadReq:
		return r.classifyLocal(req, false)
	case *mem.WriteReq:
		return r.classifyLocal(req, true)
	default:
		return nil, fmt.Errorf("%s: cannot route message of type %T",
			r.name, msg)
	}
}

func (r *Router) classifyRemote(req *mem.RemoteReq) (*RoutedRequest, error) {
	err := r.checkPacketSize(req.GetByteSize())
	if err != nil {
		return nil, err
	}

	tag, err := r.tags.Allocate()
	if err != nil {
		return nil, err
	}

	physical, err := r.mapping.LogicalToPhysical(req.LogicalPeer())
	if err != nil {
		log.Panic(err)
	}

	rr := &RoutedRequest{
		Tag:     tag,
		Dest:    physical,
		Size:    req.GetByteSize(),
		Event:   req,
		IsLocal: false,
	}
	r.inflightRemote[tag] = rr

	ev := &NetEvent{
		Tag:     tag,
		Opcode:  req.Opcode,
		Address: req.Address,
		Size:    req.GetByteSize(),
		SrcNode: r.node,
	}

	if req.IsWrite() {
		ev.Flags |= FlagWrite
		ev.Payload = req.Data
	}

	r.pushNet(linkcontrol.NodeID(physical), ev)

	r.countOp(req.IsWrite(), StatExtRead, StatExtWrite)
	r.debug.Verbose(2, "%s: remote op %s tag %d to node %d",
		r.name, req.ID, tag, physical)

	return rr, nil
}

func (r *Router) classifyLocal(
	req mem.AccessReq,
	write bool,
) (*RoutedRequest, error) {
	tag, err := r.tags.Allocate()
	if err != nil {
		return nil, err
	}

	rr := &RoutedRequest{
		Tag:     tag,
		Dest:    uint32(r.node),
		Size:    req.GetByteSize(),
		Event:   req,
		IsLocal: true,
	}
	r.memQueue = append(r.memQueue, rr)

	r.countOp(write, StatLocalRead, StatLocalWrite)
	r.debug.Verbose(3, "%s: local op %s tag %d", r.name, req.Meta().ID, tag)
	r.wake()

	return rr, nil
}

func (r *Router) countOp(write bool, readStat, writeStat Stat) {
	r.stats.Add(StatTotalOps, 1)

	if write {
		r.stats.Add(StatTotalWrite, 1)
		r.stats.Add(writeStat, 1)

		return
	}

	r.stats.Add(StatTotalRead, 1)
	r.stats.Add(readStat, 1)
}

// checkPacketSize makes sure both the request and its reply fit in the
// transport buffers. A zero limit disables the check.
func (r *Router) checkPacketSize(dataBytes uint64) error {
	size := r.packetHeader + dataBytes
	if r.maxPacket == 0 || size <= r.maxPacket {
		return nil
	}

	return &PacketSizeError{Bytes: size, Limit: r.maxPacket}
}

func (r *Router) pushNet(dest linkcontrol.NodeID, ev *NetEvent) {
	req := linkcontrol.RequestBuilder{}.
		WithSrcNode(r.node).
		WithDestNode(dest).
		WithSizeInBits(int(r.packetHeader+uint64(len(ev.Payload))) * 8).
		WithPayload(ev).
		Build()

	r.sendQueue = append(r.sendQueue, req)
	r.wake()
}

// DecodeReply pulls one packet from the transport. It returns nil when
// nothing is pending. The returned event is a copy owned by the caller.
func (r *Router) DecodeReply(channel int) *NetEvent {
	req := r.transport.Recv(channel)
	if req == nil {
		return nil
	}

	ev, ok := req.Payload.(*NetEvent)
	if !ok {
		log.Panicf("%s: unknown packet payload %T", r.name, req.Payload)
	}

	decoded := ev.clone()
	decoded.SrcNode = req.SrcNode

	return decoded
}

// RecvNotify is called by the transport when packets arrive. It keeps the
// registration.
func (r *Router) RecvNotify(channel int) bool {
	if r.drainTransport(channel) {
		r.wake()
	}

	return true
}

func (r *Router) drainTransport(channel int) bool {
	madeProgress := r.retryBacklog()

	for {
		ev := r.DecodeReply(channel)
		if ev == nil {
			return madeProgress
		}

		r.handleNetEvent(ev)

		madeProgress = true
	}
}

func (r *Router) retryBacklog() bool {
	madeProgress := false

	for len(r.netBacklog) > 0 {
		if !r.acceptRemoteReq(r.netBacklog[0]) {
			return madeProgress
		}

		r.netBacklog = r.netBacklog[1:]
		madeProgress = true
	}

	return madeProgress
}

func (r *Router) handleNetEvent(ev *NetEvent) {
	if ev.IsResponse() {
		err := r.CompleteRemote(ev.Tag, ev)
		if err != nil {
			log.Panic(err)
		}

		return
	}

	if len(r.netBacklog) > 0 || !r.acceptRemoteReq(ev) {
		r.netBacklog = append(r.netBacklog, ev)
	}
}

// acceptRemoteReq queues a request from another node for the local memory.
// It returns false if no tag is free.
func (r *Router) acceptRemoteReq(ev *NetEvent) bool {
	if err := r.checkPacketSize(ev.Size); err != nil {
		log.Panicf("%s: request tag %d from node %d: %v",
			r.name, ev.Tag, ev.SrcNode, err)
	}

	tag, err := r.tags.Allocate()
	if errors.Is(err, ErrResourceExhausted) {
		return false
	}

	var downstream sim.Msg
	if ev.IsWrite() {
		downstream = mem.WriteReqBuilder{}.
			WithAddress(ev.Address).
			WithData(ev.Payload).
			Build()
	} else {
		downstream = mem.ReadReqBuilder{}.
			WithAddress(ev.Address).
			WithByteSize(ev.Size).
			Build()
	}

	rr := &RoutedRequest{
		Tag:        tag,
		Dest:       uint32(ev.SrcNode),
		Size:       ev.Size,
		Event:      downstream,
		IsLocal:    false,
		Origin:     &Origin{Node: ev.SrcNode, Tag: ev.Tag},
		Downstream: downstream,
	}
	r.memQueue = append(r.memQueue, rr)

	r.debug.Verbose(2, "%s: request tag %d from node %d as tag %d",
		r.name, ev.Tag, ev.SrcNode, tag)

	return true
}

// CompleteRemote retires the remote request that holds the tag and queues
// the reply for the CPU.
func (r *Router) CompleteRemote(tag Tag, ev *NetEvent) error {
	rr, found := r.inflightRemote[tag]
	if !found {
		return &TagError{Tag: tag, Reason: "no remote request in flight"}
	}

	if ev.SrcNode != linkcontrol.NodeID(rr.Dest) {
		return &TagError{
			Tag: tag,
			Reason: fmt.Sprintf("reply from node %d, request went to node %d",
				ev.SrcNode, rr.Dest),
		}
	}

	delete(r.inflightRemote, tag)

	err := r.tags.Release(tag)
	if err != nil {
		return err
	}

	req := rr.Event.(*mem.RemoteReq)

	var rsp sim.Msg
	if req.IsWrite() {
		rsp = mem.WriteDoneRspBuilder{}.
			WithDst(req.Src).
			WithRspTo(req.ID).
			Build()
	} else {
		rsp = mem.DataReadyRspBuilder{}.
			WithDst(req.Src).
			WithRspTo(req.ID).
			WithData(ev.Payload).
			Build()
	}

	r.replyQueue = append(r.replyQueue, rsp)
	r.wake()

	r.debug.Verbose(2, "%s: remote op %s done, tag %d", r.name, req.ID, tag)

	return nil
}

// CompleteLocal retires the request the memory response answers. Replies
// to the CPU go to the reply queue. Replies to other nodes go to the
// transport queue.
func (r *Router) CompleteLocal(rsp mem.AccessRsp) error {
	rr, found := r.pendingMem[rsp.GetRspTo()]
	if !found {
		return fmt.Errorf("%s: response to %s: %w",
			r.name, rsp.GetRspTo(), ErrUnmatchedResponse)
	}

	delete(r.pendingMem, rsp.GetRspTo())

	var data []byte
	if dr, ok := rsp.(*mem.DataReadyRsp); ok {
		data = dr.Data
	}

	if rr.Origin != nil {
		r.replyToNode(rr, data)
	} else {
		r.replyToCPU(rr, data)
	}

	return r.tags.Release(rr.Tag)
}

func (r *Router) replyToNode(rr *RoutedRequest, data []byte) {
	ev := &NetEvent{
		Tag:     rr.Origin.Tag,
		Size:    rr.Size,
		Payload: data,
		Flags:   FlagResponse,
		SrcNode: r.node,
	}

	if _, write := rr.Downstream.(*mem.WriteReq); write {
		ev.Flags |= FlagWrite
	}

	ev.Address = rr.Downstream.(mem.AccessReq).GetAddress()

	r.pushNet(rr.Origin.Node, ev)
}

func (r *Router) replyToCPU(rr *RoutedRequest, data []byte) {
	var rsp sim.Msg

	switch req := rr.Event.(type) {
	case *mem.ReadReq:
		rsp = mem.DataReadyRspBuilder{}.
			WithDst(req.Src).
			WithRspTo(req.ID).
			WithData(data).
			Build()
	case *mem.WriteReq:
		rsp = mem.WriteDoneRspBuilder{}.
			WithDst(req.Src).
			WithRspTo(req.ID).
			Build()
	default:
		log.Panicf("%s: cannot reply to %T", r.name, rr.Event)
	}

	r.replyQueue = append(r.replyQueue, rsp)
	r.wake()
}

// handleUp consumes requests from the CPU link. It declines requests while
// no tag is free.
func (r *Router) handleUp(msg sim.Msg) bool {
	_, err := r.Classify(msg)
	if errors.Is(err, ErrResourceExhausted) {
		return false
	}

	if err != nil {
		log.Panic(err)
	}

	return true
}

// handleDown consumes responses from the memory link.
func (r *Router) handleDown(msg sim.Msg) bool {
	rsp, ok := msg.(mem.AccessRsp)
	if !ok {
		log.Panicf("%s: memory link delivered %T", r.name, msg)
	}

	err := r.CompleteLocal(rsp)
	if err != nil {
		log.Panic(err)
	}

	return true
}

func (r *Router) downstreamOf(rr *RoutedRequest) sim.Msg {
	if rr.Downstream != nil {
		return rr.Downstream
	}

	switch req := rr.Event.(type) {
	case *mem.ReadReq:
		rr.Downstream = mem.ReadReqBuilder{}.
			WithAddress(req.Address).
			WithByteSize(req.AccessByteSize).
			WithInfo(req.Info).
			Build()
	case *mem.WriteReq:
		rr.Downstream = mem.WriteReqBuilder{}.
			WithAddress(req.Address).
			WithData(req.Data).
			WithInfo(req.Info).
			Build()
	default:
		log.Panicf("%s: cannot send %T to memory", r.name, rr.Event)
	}

	return rr.Downstream
}

func (r *Router) dispatchLocal(down memlink.Link) bool {
	if len(r.memQueue) == 0 {
		return false
	}

	rr := r.memQueue[0]
	msg := r.downstreamOf(rr)

	if !down.CanSend(msg) {
		return false
	}

	err := down.Send(msg)
	if errors.Is(err, memlink.ErrLinkBusy) {
		return false
	}

	if err != nil {
		log.Panic(err)
	}

	r.memQueue = r.memQueue[1:]
	r.pendingMem[msg.Meta().ID] = rr

	return true
}

func (r *Router) dispatchNet() bool {
	if len(r.sendQueue) == 0 {
		return false
	}

	req := r.sendQueue[0]

	if req.DestNode == r.node {
		return r.loopback(req)
	}

	if !r.transport.Send(req, 0) {
		return false
	}

	r.sendQueue = r.sendQueue[1:]

	return true
}

// loopback handles packets a node addresses to itself without using the
// transport. Requests that find no free tag wait in the network backlog.
func (r *Router) loopback(req *linkcontrol.Request) bool {
	ev := req.Payload.(*NetEvent).clone()
	ev.SrcNode = r.node

	r.sendQueue = r.sendQueue[1:]
	r.handleNetEvent(ev)

	return true
}

func (r *Router) dispatchReply(up memlink.Link) bool {
	if len(r.replyQueue) == 0 {
		return false
	}

	rsp := r.replyQueue[0]

	if !up.CanSend(rsp) {
		return false
	}

	err := up.Send(rsp)
	if errors.Is(err, memlink.ErrLinkBusy) {
		return false
	}

	if err != nil {
		log.Panic(err)
	}

	r.replyQueue = r.replyQueue[1:]

	return true
}
