package mem

import (
	"fmt"
	"sync"
)

// A Storage keeps the data of the simulated memory.
//
// Storage is managed in units of unitSize bytes. Units that are never touched
// by Read or Write are never allocated, so a storage can be much larger than
// the host memory.
type Storage struct {
	sync.Mutex

	unitSize uint64
	capacity uint64
	data     map[uint64][]byte
}

// NewStorage creates a storage object with the specified capacity.
func NewStorage(capacity uint64) *Storage {
	storage := new(Storage)

	storage.unitSize = 4096
	storage.capacity = capacity
	storage.data = make(map[uint64][]byte)

	return storage
}

// Capacity returns the number of bytes that the storage can hold.
func (s *Storage) Capacity() uint64 {
	return s.capacity
}

func (s *Storage) createOrGetStorageUnit(address uint64) []byte {
	baseAddr, _ := s.parseAddress(address)

	unit, ok := s.data[baseAddr]
	if !ok {
		unit = make([]byte, s.unitSize)
		s.data[baseAddr] = unit
	}

	return unit
}

func (s *Storage) parseAddress(addr uint64) (baseAddr, inUnitAddr uint64) {
	inUnitAddr = addr % s.unitSize
	baseAddr = addr - inUnitAddr

	return
}

func (s *Storage) rangeMustFit(address, length uint64) error {
	if address+length > s.capacity || address+length < address {
		return fmt.Errorf(
			"accessing [0x%x, 0x%x) beyond the storage capacity 0x%x",
			address, address+length, s.capacity)
	}

	return nil
}

// Read returns a copy of the data in the range.
func (s *Storage) Read(address uint64, length uint64) ([]byte, error) {
	s.Lock()
	defer s.Unlock()

	if err := s.rangeMustFit(address, length); err != nil {
		return nil, err
	}

	res := make([]byte, length)
	currAddr := address
	dataOffset := uint64(0)

	for dataOffset < length {
		unit := s.createOrGetStorageUnit(currAddr)
		_, inUnitAddr := s.parseAddress(currAddr)
		n := copy(res[dataOffset:], unit[inUnitAddr:])

		dataOffset += uint64(n)
		currAddr += uint64(n)
	}

	return res, nil
}

// Write copies the data into the storage, starting from the address.
func (s *Storage) Write(address uint64, data []byte) error {
	s.Lock()
	defer s.Unlock()

	if err := s.rangeMustFit(address, uint64(len(data))); err != nil {
		return err
	}

	currAddr := address
	dataOffset := uint64(0)

	for dataOffset < uint64(len(data)) {
		unit := s.createOrGetStorageUnit(currAddr)
		_, inUnitAddr := s.parseAddress(currAddr)
		n := copy(unit[inUnitAddr:], data[dataOffset:])

		dataOffset += uint64(n)
		currAddr += uint64(n)
	}

	return nil
}
