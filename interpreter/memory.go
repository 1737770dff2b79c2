// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package interpreter

import (
	"math"

	"github.com/holiman/uint256"
	"github.com/petravm/petra"
)

// Memory is the byte-addressable scratch space of an execution frame. It
// grows lazily in 32-byte words, and every expansion is charged its
// incremental share of the quadratic expansion cost.
type Memory struct {
	store             []byte
	currentMemoryCost petra.Gas
}

func NewMemory() *Memory {
	return &Memory{}
}

func toValidMemorySize(size uint64) uint64 {
	fullWordsSize := petra.SizeInWords(size) * 32
	if size != 0 && fullWordsSize < size {
		return math.MaxUint64
	}
	return fullWordsSize
}

const (
	// Maximum memory size allowed before the expansion cost exceeds any
	// representable gas budget.
	maxMemoryExpansionSize = 0x1FFFFFFFE0
)

func (m *Memory) getExpansionCosts(size uint64) petra.Gas {

	// static assert
	const (
		// Memory expansion cost is done using unsigned arithmetic,
		// check for the maximum memory expansion size, not overflowing
		// int64 after computing costs
		maxInWords uint64 = (uint64(maxMemoryExpansionSize) + 31) / 32
		_                 = int64(maxInWords*maxInWords/512 + 3*maxInWords)
	)

	if m.length() >= size {
		return 0
	}
	size = toValidMemorySize(size)

	if size > maxMemoryExpansionSize {
		return petra.Gas(math.MaxInt64)
	}

	words := petra.SizeInWords(size)
	newCosts := petra.Gas((words*words)/512 + (3 * words))
	fee := newCosts - m.currentMemoryCost
	return fee
}

// expandMemory tries to expand the memory to cover [offset, offset+size).
// If the memory is already large enough or size is 0, it does nothing.
// If there is not enough gas in the context or an overflow occurs when adding
// offset and size, it returns an error. The caller should check the error and
// handle it.
func (m *Memory) expandMemory(offset, size uint64, c *context) error {
	if size == 0 {
		return nil
	}
	needed := offset + size
	// check overflow
	if needed < offset {
		return errOverflow
	}
	if m.length() < needed {
		fee := m.getExpansionCosts(needed)
		if err := c.useGas(fee); err != nil {
			return err
		}
		m.expandMemoryWithoutCharging(needed)
	}

	return nil
}

// expandMemoryWithoutCharging expands the memory to the given size without
// charging gas.
func (m *Memory) expandMemoryWithoutCharging(needed uint64) {
	needed = toValidMemorySize(needed)
	size := m.length()
	if size < needed {
		m.currentMemoryCost += m.getExpansionCosts(needed)
		m.store = append(m.store, make([]byte, needed-size)...)
	}
}

func (m *Memory) length() uint64 {
	return uint64(len(m.store))
}

// set expands the memory as needed, charges for the expansion, and writes the
// given value at the given offset.
func (m *Memory) set(offset uint64, value []byte, c *context) error {
	size := uint64(len(value))
	if size == 0 {
		return nil
	}
	if err := m.expandMemory(offset, size, c); err != nil {
		return err
	}
	if offset+size < offset || m.length() < offset+size {
		return errOverflow
	}
	copy(m.store[offset:offset+size], value)
	return nil
}

// getSlice obtains a slice of size bytes from the memory at the given offset.
// The returned slice is backed by the memory's internal data. Updates to the
// slice will thus affect the memory state. This connection is invalidated by
// any subsequent memory operation that may change the size of the memory.
func (m *Memory) getSlice(offset, size uint64, c *context) ([]byte, error) {
	err := m.expandMemory(offset, size, c)
	if err != nil {
		return nil, err
	}
	// since memory does not expand on size 0 independently of the offset,
	// we need to prevent out of bounds access
	if size == 0 {
		return nil, nil
	}
	return m.store[offset : offset+size], nil
}

// readWord reads a Word (32 byte) from the memory at the given offset and
// stores that word in the provided target. Expands memory as needed and
// charges for it. Returns an error in case of not enough gas or an
// offset+32 overflow.
func (m *Memory) readWord(offset uint64, target *uint256.Int, c *context) error {
	data, err := m.getSlice(offset, 32, c)
	if err != nil {
		return err
	}
	target.SetBytes32(data)
	return nil
}

// copyData copies data from the memory, starting at the given offset, into the
// target slice, padding with zeros if offset+(target length) is greater than
// the memory size. If offset is greater than the memory size, the target
// slice is filled with zeros.
func (m *Memory) copyData(offset uint64, target []byte) {
	if m.length() < offset {
		copy(target, make([]byte, len(target)))
		return
	}

	// Copy what is available.
	covered := copy(target, m.store[offset:])

	// Pad the rest
	if covered < len(target) {
		copy(target[covered:], make([]byte, len(target)-covered))
	}
}
