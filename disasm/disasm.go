// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package disasm provides a disassembler for the machine's byte-code,
// rendering one instruction per line together with its code offset and,
// for PUSH instructions, the immediate argument.
package disasm

import (
	"fmt"
	"io"
	"strings"

	"github.com/petravm/petra/vm"
)

// Instruction is a single decoded instruction of a contract code.
type Instruction struct {
	// Offset is the position of the instruction in the code.
	Offset int

	// OpCode is the operation located at the offset.
	OpCode vm.OpCode

	// Arg holds the immediate argument of a PUSH instruction, nil for all
	// other instructions. If the code ends within the immediate data, Arg
	// holds only the bytes present in the code.
	Arg []byte
}

func (i Instruction) String() string {
	if len(i.Arg) > 0 || (vm.PUSH1 <= i.OpCode && i.OpCode <= vm.PUSH32) {
		return fmt.Sprintf("%04x: %v 0x%x", i.Offset, i.OpCode, i.Arg)
	}
	return fmt.Sprintf("%04x: %v", i.Offset, i.OpCode)
}

// Decode splits the given code into its instructions. Every byte of the code
// is covered; data trailing a truncated PUSH is part of that instruction.
func Decode(code []byte) []Instruction {
	res := make([]Instruction, 0, len(code))
	for i := 0; i < len(code); {
		op := vm.OpCode(code[i])
		instruction := Instruction{Offset: i, OpCode: op}
		if width := op.Width(); width > 1 {
			end := i + width
			if end > len(code) {
				end = len(code)
			}
			instruction.Arg = code[i+1 : end]
		}
		res = append(res, instruction)
		i += op.Width()
	}
	return res
}

// Print writes the disassembly of the given code to the given writer, one
// instruction per line.
func Print(out io.Writer, code []byte) error {
	for _, instruction := range Decode(code) {
		if _, err := fmt.Fprintln(out, instruction.String()); err != nil {
			return err
		}
	}
	return nil
}

// Sprint returns the disassembly of the given code as a string.
func Sprint(code []byte) string {
	builder := strings.Builder{}
	_ = Print(&builder, code)
	return builder.String()
}
