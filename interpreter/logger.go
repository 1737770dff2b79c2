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
	"fmt"
	"io"
	"os"

	"github.com/petravm/petra/vm"
)

// loggingRunner is a runner wrapping the execution loop to print one line per
// executed instruction, showing the program counter, the instruction, the gas
// level, and a summary of the stack. A positive limit caps the number of
// printed lines; the execution itself continues to completion.
type loggingRunner struct {
	out   io.Writer
	limit int
}

func (r loggingRunner) run(c *context) {
	out := r.out
	if out == nil {
		out = os.Stdout
	}
	count := 0
	for c.status == statusRunning {
		if r.limit > 0 && count >= r.limit {
			fmt.Fprintf(out, "(trace truncated after %d steps)\n", count)
			steps(c, false)
			return
		}
		count++
		if int(c.pc) < len(c.code) {
			op := vm.OpCode(c.code[c.pc])
			top := "-"
			if c.stack.len() > 0 {
				top = c.stack.peek().Hex()
			}
			fmt.Fprintf(out, "%04x: %-14v gas: %d, stack: %d, top: %s\n",
				c.pc, op, c.gas, c.stack.len(), top)
		}
		step(c)
	}
}
