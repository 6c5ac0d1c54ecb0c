package olb

import (
	"fmt"
	"math/rand"
	"strings"
)

// MappingPolicy decides how logical peer ids are laid over physical nodes.
type MappingPolicy int

// Supported mapping policies.
const (
	MappingCyclic MappingPolicy = iota
	MappingRandom
)

func (p MappingPolicy) String() string {
	switch p {
	case MappingCyclic:
		return "cyclic"
	case MappingRandom:
		return "random"
	default:
		return fmt.Sprintf("MappingPolicy(%d)", int(p))
	}
}

// ParseMappingPolicy parses a policy name. Case is ignored.
func ParseMappingPolicy(s string) (MappingPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cyclic":
		return MappingCyclic, nil
	case "random":
		return MappingRandom, nil
	default:
		return 0, &ConfigError{
			Param:  "mapping",
			Reason: fmt.Sprintf("unknown mapping policy %q", s),
		}
	}
}

// A MappingEntry pairs a logical peer id with a physical node id.
type MappingEntry struct {
	Logical  uint32
	Physical uint32
}

// MappingTable translates between logical peer ids 1..N and physical node ids
// 0..N-1. It does not change after it is built.
type MappingTable struct {
	entries []MappingEntry
}

// BuildMappingTable creates the table for the given number of nodes. The rng
// is only used by the random policy.
func BuildMappingTable(
	entries int,
	policy MappingPolicy,
	rng *rand.Rand,
) (*MappingTable, error) {
	if entries < 1 {
		return nil, &ConfigError{
			Param:  "entries",
			Reason: fmt.Sprintf("need at least one entry, got %d", entries),
		}
	}

	start := 0

	switch policy {
	case MappingCyclic:
	case MappingRandom:
		if rng == nil {
			return nil, &ConfigError{
				Param:  "seed",
				Reason: "random mapping needs a random source",
			}
		}

		start = rng.Intn(entries)
	default:
		return nil, &ConfigError{
			Param:  "mapping",
			Reason: fmt.Sprintf("unknown mapping policy %d", int(policy)),
		}
	}

	t := &MappingTable{entries: make([]MappingEntry, entries)}
	for i := 0; i < entries; i++ {
		t.entries[i] = MappingEntry{
			Logical:  uint32(i + 1),
			Physical: uint32((start + i) % entries),
		}
	}

	return t, nil
}

// Len returns the number of entries.
func (t *MappingTable) Len() int {
	return len(t.entries)
}

// Entries returns a copy of the entries ordered by logical id.
func (t *MappingTable) Entries() []MappingEntry {
	entries := make([]MappingEntry, len(t.entries))
	copy(entries, t.entries)

	return entries
}

// LogicalToPhysical returns the physical node of a logical peer.
func (t *MappingTable) LogicalToPhysical(logical uint32) (uint32, error) {
	for _, e := range t.entries {
		if e.Logical == logical {
			return e.Physical, nil
		}
	}

	return 0, &LookupError{Kind: "logical", ID: logical}
}

// PhysicalToLogical returns the logical peer of a physical node.
func (t *MappingTable) PhysicalToLogical(physical uint32) (uint32, error) {
	for _, e := range t.entries {
		if e.Physical == physical {
			return e.Logical, nil
		}
	}

	return 0, &LookupError{Kind: "physical", ID: physical}
}
