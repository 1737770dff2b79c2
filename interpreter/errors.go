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

import "github.com/petravm/petra"

// Execution failures are reported using the sentinel errors of the petra
// package, allowing callers to identify the cause of a failed run through
// Result.Error.
const (
	errOutOfGas               = petra.ErrOutOfGas
	errStackOverflow          = petra.ErrStackOverflow
	errStackUnderflow         = petra.ErrStackUnderflow
	errInvalidOpCode          = petra.ErrInvalidOpcode
	errInvalidJump            = petra.ErrInvalidJump
	errOverflow               = petra.ErrMemoryAccess
	errStaticContextViolation = petra.ErrStaticStateChange
)
