package sim

import "fmt"

// DirectConnection connects ports without latency. Messages are moved from
// the outgoing buffer of the source port to the incoming buffer of the
// destination port on each tick.
type DirectConnection struct {
	*TickingComponent

	nextPortID int
	ports      []Port
	byRemote   map[RemotePort]Port
}

// MakeDirectConnection creates a new DirectConnection.
func MakeDirectConnection(
	name string,
	engine Engine,
	freq Freq,
) *DirectConnection {
	c := new(DirectConnection)
	c.TickingComponent = NewSecondaryTickingComponent(name, engine, freq, c)
	c.byRemote = make(map[RemotePort]Port)

	return c
}

// PlugIn marks the port connects to this DirectConnection.
func (c *DirectConnection) PlugIn(port Port) {
	c.Lock()
	defer c.Unlock()

	if _, found := c.byRemote[port.AsRemote()]; found {
		panic(fmt.Sprintf("port %s already plugged in", port.Name()))
	}

	c.ports = append(c.ports, port)
	c.byRemote[port.AsRemote()] = port

	port.SetConnection(c)
}

// Unplug marks the port no longer connects to this DirectConnection.
func (c *DirectConnection) Unplug(port Port) {
	c.Lock()
	defer c.Unlock()

	if _, found := c.byRemote[port.AsRemote()]; !found {
		panic(fmt.Sprintf("port %s is not plugged in", port.Name()))
	}

	delete(c.byRemote, port.AsRemote())

	for i, p := range c.ports {
		if p == port {
			c.ports = append(c.ports[:i], c.ports[i+1:]...)
			break
		}
	}

	if len(c.ports) > 0 {
		c.nextPortID %= len(c.ports)
	} else {
		c.nextPortID = 0
	}
}

// NotifyAvailable is called by a port to notify that the connection can
// deliver to the port again.
func (c *DirectConnection) NotifyAvailable(_ Port) {
	c.TickLater()
}

// NotifySend is called by a port to notify that the connection has a message
// to deliver.
func (c *DirectConnection) NotifySend() {
	c.TickNow()
}

// Tick delivers the messages waiting in the outgoing buffers.
func (c *DirectConnection) Tick() bool {
	c.Lock()
	ports := make([]Port, len(c.ports))
	copy(ports, c.ports)
	start := c.nextPortID
	c.Unlock()

	if len(ports) == 0 {
		return false
	}

	madeProgress := false

	for i := 0; i < len(ports); i++ {
		port := ports[(i+start)%len(ports)]
		madeProgress = c.forwardMany(port) || madeProgress
	}

	c.Lock()
	if len(c.ports) > 0 {
		c.nextPortID = (c.nextPortID + 1) % len(c.ports)
	}
	c.Unlock()

	return madeProgress
}

func (c *DirectConnection) forwardMany(port Port) bool {
	madeProgress := false

	for {
		head := port.PeekOutgoing()
		if head == nil {
			break
		}

		dst := c.dstPort(head)

		err := dst.Deliver(head)
		if err != nil {
			break
		}

		c.InvokeHook(HookCtx{
			Domain: c,
			Pos:    HookPosConnDeliver,
			Item:   head,
		})

		port.RetrieveOutgoing()

		madeProgress = true
	}

	return madeProgress
}

func (c *DirectConnection) dstPort(msg Msg) Port {
	c.Lock()
	defer c.Unlock()

	dst, found := c.byRemote[msg.Meta().Dst]
	if !found {
		panic(fmt.Sprintf(
			"connection %s cannot deliver msg %s: dst %s not connected",
			c.Name(), msg.Meta().ID, msg.Meta().Dst,
		))
	}

	return dst
}
