package memlink

import (
	"fmt"

	"github.com/sarchlab/bgas/sim"
)

// DirectLink is a point-to-point link over a single port. It hands arriving
// messages to the receive handler as soon as its owner is notified.
type DirectLink struct {
	name    string
	cfg     Config
	port    sim.Port
	remote  sim.RemotePort
	handler func(sim.Msg) bool
}

// Name returns the name of the link.
func (l *DirectLink) Name() string {
	return l.name
}

// Config returns the parameters the link was built with.
func (l *DirectLink) Config() Config {
	return l.cfg
}

// Port returns the port of the link.
func (l *DirectLink) Port() sim.Port {
	return l.port
}

// Ports returns the ports of the link.
func (l *DirectLink) Ports() []sim.Port {
	return []sim.Port{l.port}
}

// SetRemote sets the port that messages go to by default.
func (l *DirectLink) SetRemote(remote sim.RemotePort) {
	l.remote = remote
}

// SetRecvHandler sets the function that consumes arriving messages.
func (l *DirectLink) SetRecvHandler(h func(sim.Msg) bool) {
	l.handler = h
}

// CanSend tells if the link can take a message now.
func (l *DirectLink) CanSend(_ sim.Msg) bool {
	return l.port.CanSend()
}

// Send sends the message through the port.
func (l *DirectLink) Send(msg sim.Msg) error {
	err := address(msg, l.port, l.remote)
	if err != nil {
		return fmt.Errorf("%s: %w", l.name, err)
	}

	sendErr := l.port.Send(msg)
	if sendErr != nil {
		return fmt.Errorf("%s: %w", l.name, ErrLinkBusy)
	}

	return nil
}

// Poll hands the waiting messages to the receive handler.
func (l *DirectLink) Poll() bool {
	return recvAll(l.port, l.handler)
}

// Tick does nothing. A direct link does not need a clock.
func (l *DirectLink) Tick() bool {
	return false
}

func address(msg sim.Msg, port sim.Port, remote sim.RemotePort) error {
	meta := msg.Meta()
	meta.Src = port.AsRemote()

	if meta.Dst == "" {
		if remote == "" {
			return fmt.Errorf("message %s has no destination", meta.ID)
		}

		meta.Dst = remote
	}

	return nil
}
