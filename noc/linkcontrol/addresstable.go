package linkcontrol

import (
	"fmt"
	"sync"

	"github.com/sarchlab/bgas/sim"
)

// AddressTable records which fabric port belongs to which node. All the link
// controls on one fabric share a table.
type AddressTable struct {
	lock  sync.RWMutex
	ports map[NodeID]sim.RemotePort
}

// NewAddressTable creates an empty AddressTable.
func NewAddressTable() *AddressTable {
	return &AddressTable{
		ports: make(map[NodeID]sim.RemotePort),
	}
}

// Register binds a node to a fabric port.
func (t *AddressTable) Register(node NodeID, port sim.RemotePort) error {
	t.lock.Lock()
	defer t.lock.Unlock()

	if existing, found := t.ports[node]; found {
		return fmt.Errorf("node %d is already bound to %s", node, existing)
	}

	t.ports[node] = port

	return nil
}

// Lookup returns the fabric port of a node.
func (t *AddressTable) Lookup(node NodeID) (sim.RemotePort, bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	port, found := t.ports[node]

	return port, found
}

// NumNodes returns the number of registered nodes.
func (t *AddressTable) NumNodes() int {
	t.lock.RLock()
	defer t.lock.RUnlock()

	return len(t.ports)
}
