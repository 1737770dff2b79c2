// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package disasm

import (
	"bytes"
	"testing"

	"github.com/petravm/petra/vm"
)

func TestDecode_EveryByteOfTheCodeIsCovered(t *testing.T) {
	// PUSH2 0x1234 ADD PUSH1 0x01 STOP
	code := []byte{0x61, 0x12, 0x34, 0x01, 0x60, 0x01, 0x00}
	instructions := Decode(code)

	want := []Instruction{
		{Offset: 0, OpCode: vm.PUSH2, Arg: []byte{0x12, 0x34}},
		{Offset: 3, OpCode: vm.ADD},
		{Offset: 4, OpCode: vm.PUSH1, Arg: []byte{0x01}},
		{Offset: 6, OpCode: vm.STOP},
	}
	if len(want) != len(instructions) {
		t.Fatalf("expected %d instructions, but got %d", len(want), len(instructions))
	}
	for i, instruction := range instructions {
		if want[i].Offset != instruction.Offset || want[i].OpCode != instruction.OpCode ||
			!bytes.Equal(want[i].Arg, instruction.Arg) {
			t.Errorf("expected instruction %d to be %v, but got %v", i, want[i], instruction)
		}
	}
}

func TestDecode_TruncatedPushKeepsTheAvailableBytes(t *testing.T) {
	// PUSH4 with only two data bytes present
	instructions := Decode([]byte{0x63, 0xab, 0xcd})
	if want, got := 1, len(instructions); want != got {
		t.Fatalf("expected %d instruction, but got %d", want, got)
	}
	if want, got := []byte{0xab, 0xcd}, instructions[0].Arg; !bytes.Equal(want, got) {
		t.Errorf("expected argument %x, but got %x", want, got)
	}
}

func TestInstruction_StringRendersOffsetNameAndArgument(t *testing.T) {
	tests := []struct {
		instruction Instruction
		want        string
	}{
		{Instruction{Offset: 0, OpCode: vm.STOP}, "0000: STOP"},
		{Instruction{Offset: 4, OpCode: vm.PUSH2, Arg: []byte{0x12, 0x34}}, "0004: PUSH2 0x1234"},
		{Instruction{Offset: 256, OpCode: vm.JUMPDEST}, "0100: JUMPDEST"},
		{Instruction{Offset: 1, OpCode: vm.PUSH1}, "0001: PUSH1 0x"},
		{Instruction{Offset: 2, OpCode: vm.OpCode(0x0c)}, "0002: OpCode(0x0c)"},
	}
	for _, test := range tests {
		if got := test.instruction.String(); test.want != got {
			t.Errorf("expected %q, but got %q", test.want, got)
		}
	}
}

func TestSprint_ProducesOneLinePerInstruction(t *testing.T) {
	// PUSH1 0x03 JUMP JUMPDEST STOP
	code := []byte{0x60, 0x03, 0x56, 0x5b, 0x00}
	want := "0000: PUSH1 0x03\n0002: JUMP\n0003: JUMPDEST\n0004: STOP\n"
	if got := Sprint(code); want != got {
		t.Errorf("expected:\n%s\nbut got:\n%s", want, got)
	}
}

func TestSprint_EmptyCodeYieldsNoOutput(t *testing.T) {
	if got := Sprint(nil); got != "" {
		t.Errorf("expected no output, but got %q", got)
	}
}
