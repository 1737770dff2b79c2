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
	"github.com/holiman/uint256"
	"github.com/petravm/petra"
	"github.com/petravm/petra/vm"
)

const (
	CallValueTransferGas petra.Gas = 9000 // Paid for CALL when the value transfer is non-zero.
	CallStipend          petra.Gas = 2300 // Free gas given at beginning of a value-bearing call.

	SstoreSentryGas      petra.Gas = 2300  // Minimum gas required to be present for an SSTORE call, not consumed.
	SstoreSetGas         petra.Gas = 20000 // Once per SSTORE operation writing a zero slot to non-zero.
	SstoreResetGas       petra.Gas = 5000  // Once per SSTORE operation writing a non-zero slot.
	SstoreClearRefundGas petra.Gas = 15000 // Refunded once per SSTORE operation clearing a non-zero slot.

	Sha3WordGas   petra.Gas = 6 // Per 32-byte word hashed by SHA3 and CREATE2.
	CopyWordGas   petra.Gas = 3 // Per 32-byte word copied by the *COPY instructions.
	ExpByteGas    petra.Gas = 50
	LogTopicGas   petra.Gas = 375
	LogDataGas    petra.Gas = 8
	CreateDataGas petra.Gas = 200 // Per byte of code deposited by a successful creation.

	// maxCodeSize is the maximum byte-code size permitted for a deployed
	// contract.
	maxCodeSize = 24576
)

var staticGasPrices = [256]petra.Gas{}

func init() {
	for i := 0; i < 256; i++ {
		staticGasPrices[i] = getStaticGasPriceInternal(vm.OpCode(i))
	}
}

func getStaticGasPriceInternal(op vm.OpCode) petra.Gas {
	if vm.PUSH1 <= op && op <= vm.PUSH32 {
		return 3
	}
	if vm.DUP1 <= op && op <= vm.DUP16 {
		return 3
	}
	if vm.SWAP1 <= op && op <= vm.SWAP16 {
		return 3
	}
	if vm.LT <= op && op <= vm.SAR {
		return 3
	}
	if vm.COINBASE <= op && op <= vm.CHAINID {
		return 2
	}
	switch op {
	case vm.POP:
		return 2
	case vm.PUSH0:
		return 2
	case vm.ADD, vm.SUB:
		return 3
	case vm.MUL, vm.DIV, vm.SDIV, vm.MOD, vm.SMOD:
		return 5
	case vm.ADDMOD, vm.MULMOD:
		return 8
	case vm.EXP:
		return 10 // plus 50 per byte of the exponent
	case vm.SIGNEXTEND:
		return 5
	case vm.SHA3:
		return 30 // plus 6 per word hashed
	case vm.ADDRESS, vm.ORIGIN, vm.CALLER, vm.CALLVALUE, vm.CALLDATASIZE,
		vm.CODESIZE, vm.GASPRICE, vm.RETURNDATASIZE:
		return 2
	case vm.CALLDATALOAD:
		return 3
	case vm.CALLDATACOPY, vm.CODECOPY, vm.RETURNDATACOPY:
		return 3 // plus 3 per word copied
	case vm.BALANCE:
		return 700
	case vm.EXTCODESIZE, vm.EXTCODEHASH:
		return 700
	case vm.EXTCODECOPY:
		return 700 // plus 3 per word copied
	case vm.BLOCKHASH:
		return 20
	case vm.SELFBALANCE:
		return 5
	case vm.BASEFEE:
		return 2
	case vm.MLOAD, vm.MSTORE, vm.MSTORE8:
		return 3
	case vm.SLOAD:
		return 800
	case vm.SSTORE:
		return 0 // costs are handled in opSstore
	case vm.JUMP:
		return 8
	case vm.JUMPI:
		return 10
	case vm.JUMPDEST:
		return 1
	case vm.PC, vm.MSIZE, vm.GAS:
		return 2
	case vm.LOG0:
		return 375
	case vm.LOG1:
		return 750
	case vm.LOG2:
		return 1125
	case vm.LOG3:
		return 1500
	case vm.LOG4:
		return 1875
	case vm.CREATE, vm.CREATE2:
		return 32000
	case vm.CALL, vm.CALLCODE, vm.STATICCALL, vm.DELEGATECALL:
		return 700
	case vm.RETURN, vm.REVERT, vm.STOP:
		return 0
	}
	return 0 // undefined instructions fail before any gas is charged
}

// callGas computes the amount of gas forwarded to a nested call: the gas
// requested by the caller, capped at all but one 64th of the remaining gas.
func callGas(availableGas petra.Gas, requested *uint256.Int) petra.Gas {
	gas := availableGas - availableGas/64
	if requested.IsUint64() {
		if want := petra.Gas(requested.Uint64()); want >= 0 && want < gas {
			gas = want
		}
	}
	return gas
}
