// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package petra

import "math"

// GetStorageStatus obtains the status code to be returned by a WorldState
// implementation when mutating a storage slot from the given current to the
// given new value.
func GetStorageStatus(current, new Word) StorageStatus {
	var zero = Word{}

	if current == new {
		return StorageUnchanged
	}
	if current == zero {
		return StorageAdded
	}
	if new == zero {
		return StorageDeleted
	}
	return StorageModified
}

// SizeInWords returns the number of 32-byte words required to store the given
// size, checking that size+32 does not overflow uint64.
func SizeInWords(size uint64) uint64 {
	if size > math.MaxUint64-31 {
		return math.MaxUint64/32 + 1
	}
	return (size + 31) / 32
}

// IsReservedAddress reports whether the given address is within the address
// range reserved for precompiled contracts.
func IsReservedAddress(recipient Address) bool {
	// the addresses 1-9 are reserved for precompiled contracts
	for i := 0; i < 19; i++ {
		if recipient[i] != 0 {
			return false
		}
	}
	return 1 <= recipient[19] && recipient[19] <= 9
}
