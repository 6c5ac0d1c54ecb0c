package olb

import (
	"errors"
	"fmt"
)

// ErrResourceExhausted is the error behind every allocation that finds its
// pool empty.
var ErrResourceExhausted = errors.New("resource exhausted")

// ErrUnmatchedResponse is returned when a memory response matches no pending
// request.
var ErrUnmatchedResponse = errors.New("unmatched response")

// A ConfigError reports a parameter that prevents the OLB from being built.
type ConfigError struct {
	Param  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("olb: parameter %s: %s", e.Param, e.Reason)
}

// A ResourceExhaustedError reports that a bounded pool has nothing left.
type ResourceExhaustedError struct {
	Resource string
	Capacity int
}

func (e *ResourceExhaustedError) Error() string {
	return fmt.Sprintf("olb: all %d %s in use", e.Capacity, e.Resource)
}

// Unwrap makes the error match ErrResourceExhausted.
func (e *ResourceExhaustedError) Unwrap() error {
	return ErrResourceExhausted
}

// A LookupError reports an id that is not in the mapping table.
type LookupError struct {
	Kind string
	ID   uint32
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("olb: failed to decode %s id %d", e.Kind, e.ID)
}

// A TagError reports a tag used outside of its allocation.
type TagError struct {
	Tag    Tag
	Reason string
}

func (e *TagError) Error() string {
	return fmt.Sprintf("olb: tag %d: %s", e.Tag, e.Reason)
}

// A PacketSizeError reports an operation whose packet cannot fit in the
// transport buffers.
type PacketSizeError struct {
	Bytes uint64
	Limit uint64
}

func (e *PacketSizeError) Error() string {
	return fmt.Sprintf("olb: packet of %d bytes exceeds the %d byte "+
		"network buffer", e.Bytes, e.Limit)
}
