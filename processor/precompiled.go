// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package processor

import (
	"bytes"

	"github.com/petravm/petra"
)

const (
	identityBaseGas petra.Gas = 15
	identityWordGas petra.Gas = 3
)

// identityAddress is the reserved address of the identity contract.
var identityAddress = petra.Address{19: 0x04}

// handlePrecompiledContract executes the recipient as a precompiled contract
// if its address names one. The second return value indicates whether the
// call was handled. A false result with a zero gas level indicates that the
// gas did not cover the contract's cost; all gas is consumed in this case.
func handlePrecompiledContract(input petra.Data, recipient petra.Address, gas petra.Gas) (petra.CallResult, bool) {
	if !petra.IsReservedAddress(recipient) {
		return petra.CallResult{}, false
	}
	if recipient != identityAddress {
		// the other reserved addresses hold no contract and behave as
		// ordinary empty accounts
		return petra.CallResult{}, false
	}

	words := petra.SizeInWords(uint64(len(input)))
	cost := identityBaseGas + identityWordGas*petra.Gas(words)
	if gas < cost {
		return petra.CallResult{}, true
	}

	return petra.CallResult{
		Success: true,
		Output:  bytes.Clone(input),
		GasLeft: gas - cost,
	}, true
}
