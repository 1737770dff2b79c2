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

// ConstError is an error type that can be used to define immutable error
// constants. Errors of this type can be compared using errors.Is.
type ConstError string

func (e ConstError) Error() string {
	return string(e)
}

// The set of execution errors reported through Result.Error. They identify
// why a frame failed; they never abort the process.
const (
	ErrOutOfGas            = ConstError("out of gas")
	ErrStackOverflow       = ConstError("stack overflow")
	ErrStackUnderflow      = ConstError("stack underflow")
	ErrInvalidOpcode       = ConstError("invalid opcode")
	ErrInvalidJump         = ConstError("invalid jump destination")
	ErrMemoryAccess        = ConstError("invalid memory access")
	ErrStaticStateChange   = ConstError("state change in static context")
	ErrInsufficientBalance = ConstError("insufficient balance")
)
