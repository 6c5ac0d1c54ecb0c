// Package memlink provides the links that connect the OLB to the CPU above it
// and to the memory hierarchy below it.
package memlink

import (
	"errors"
	"strings"
	"unicode"

	"github.com/sarchlab/bgas/sim"
)

// ErrLinkBusy is returned when a link cannot take a message this cycle.
var ErrLinkBusy = errors.New("link busy")

// A Link moves memory messages between its owner and a remote port.
type Link interface {
	sim.Named

	// Send hands a message to the link. It fills in the source and, when not
	// set, the destination of the message.
	Send(msg sim.Msg) error
	CanSend(msg sim.Msg) bool

	// SetRecvHandler sets the function that consumes arriving messages. A
	// message the handler declines stays in the link until the next Poll.
	SetRecvHandler(h func(msg sim.Msg) bool)
	Poll() bool

	// Tick advances links that need a clock. Unclocked links return false.
	Tick() bool

	Ports() []sim.Port
	SetRemote(remote sim.RemotePort)
}

// Config holds the values from a link parameter block.
type Config struct {
	Port              string
	ReqPort, AckPort  string
	FwdPort, DataPort string
	Group             int
	Node              int
	SharedMemory      uint64
	LocalMemorySize   uint64
	BufferSize        int
}

// DefaultConfig returns the link configuration used when a parameter block
// leaves values out.
func DefaultConfig() Config {
	return Config{
		Port:       "cache",
		ReqPort:    "cache",
		AckPort:    "cache_ack",
		FwdPort:    "cache_fwd",
		DataPort:   "cache_data",
		Group:      1,
		BufferSize: 4,
	}
}

// PortToken turns a parameter style port name such as "high_network_0" into a
// name token such as "HighNetwork0".
func PortToken(param string) string {
	var b strings.Builder

	upper := true

	for _, r := range param {
		switch {
		case r == '_' || r == '-' || r == '.' || r == ' ':
			upper = true
		case upper:
			b.WriteRune(unicode.ToUpper(r))
			upper = false
		default:
			b.WriteRune(r)
		}
	}

	if b.Len() == 0 {
		return "Port"
	}

	return b.String()
}

func recvAll(port sim.Port, handler func(sim.Msg) bool) bool {
	if handler == nil {
		return false
	}

	madeProgress := false

	for {
		msg := port.PeekIncoming()
		if msg == nil {
			return madeProgress
		}

		if !handler(msg) {
			return madeProgress
		}

		port.RetrieveIncoming()

		madeProgress = true
	}
}
