package memlink

import (
	"fmt"

	"github.com/sarchlab/bgas/mem/mem"
	"github.com/sarchlab/bgas/sim"
)

// Channels of a four channel NIC.
const (
	ChannelReq = iota
	ChannelAck
	ChannelFwd
	ChannelData
)

type nicChannel struct {
	port  sim.Port
	queue []sim.Msg
}

// NIC is a clocked network interface to the memory hierarchy. Messages wait
// in per-channel queues and move to the ports when the NIC ticks. A NIC has
// either one channel or four channels that split requests, write acks,
// forwarded messages and data.
type NIC struct {
	name     string
	cfg      Config
	channels []*nicChannel
	queueCap int
	remote   sim.RemotePort
	handler  func(sim.Msg) bool

	sentMsgs, recvMsgs uint64
}

// Name returns the name of the NIC.
func (n *NIC) Name() string {
	return n.name
}

// Config returns the parameters the NIC was built with.
func (n *NIC) Config() Config {
	return n.cfg
}

// NumChannels returns 1 or 4.
func (n *NIC) NumChannels() int {
	return len(n.channels)
}

// Ports returns the ports of the NIC, ordered by channel.
func (n *NIC) Ports() []sim.Port {
	ports := make([]sim.Port, len(n.channels))
	for i, ch := range n.channels {
		ports[i] = ch.port
	}

	return ports
}

// SetRemote sets the port that messages go to by default.
func (n *NIC) SetRemote(remote sim.RemotePort) {
	n.remote = remote
}

// SetRecvHandler sets the function that consumes arriving messages.
func (n *NIC) SetRecvHandler(h func(sim.Msg) bool) {
	n.handler = h
}

// ChannelOf returns the channel that carries the message.
func (n *NIC) ChannelOf(msg sim.Msg) int {
	if len(n.channels) == 1 {
		return 0
	}

	switch msg.(type) {
	case *mem.ReadReq, *mem.WriteReq, *mem.RemoteReq:
		return ChannelReq
	case *mem.WriteDoneRsp:
		return ChannelAck
	case *mem.DataReadyRsp:
		return ChannelData
	default:
		return ChannelFwd
	}
}

// CanSend tells if the channel that carries the message has queue space.
func (n *NIC) CanSend(msg sim.Msg) bool {
	return len(n.channels[n.ChannelOf(msg)].queue) < n.queueCap
}

// Send queues the message on its channel.
func (n *NIC) Send(msg sim.Msg) error {
	ch := n.channels[n.ChannelOf(msg)]
	if len(ch.queue) >= n.queueCap {
		return fmt.Errorf("%s: %w", n.name, ErrLinkBusy)
	}

	err := address(msg, ch.port, n.remote)
	if err != nil {
		return fmt.Errorf("%s: %w", n.name, err)
	}

	ch.queue = append(ch.queue, msg)

	return nil
}

// Tick moves at most one queued message per channel to its port and then
// polls the ports.
func (n *NIC) Tick() bool {
	madeProgress := false

	for _, ch := range n.channels {
		if len(ch.queue) == 0 {
			continue
		}

		err := ch.port.Send(ch.queue[0])
		if err != nil {
			continue
		}

		ch.queue = ch.queue[1:]
		n.sentMsgs++
		madeProgress = true
	}

	return n.Poll() || madeProgress
}

// Poll hands the waiting messages of every channel to the receive handler.
func (n *NIC) Poll() bool {
	madeProgress := false

	for _, ch := range n.channels {
		if recvAll(ch.port, n.countingHandler) {
			madeProgress = true
		}
	}

	return madeProgress
}

func (n *NIC) countingHandler(msg sim.Msg) bool {
	if n.handler == nil || !n.handler(msg) {
		return false
	}

	n.recvMsgs++

	return true
}

// Pending returns the number of messages waiting in the channel queues.
func (n *NIC) Pending() int {
	count := 0
	for _, ch := range n.channels {
		count += len(ch.queue)
	}

	return count
}

// SentMsgs returns the number of messages the NIC put on its ports.
func (n *NIC) SentMsgs() uint64 {
	return n.sentMsgs
}

// RecvMsgs returns the number of messages the NIC handed to its owner.
func (n *NIC) RecvMsgs() uint64 {
	return n.recvMsgs
}
