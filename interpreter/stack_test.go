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
	"sync"
	"testing"

	"github.com/holiman/uint256"
	"github.com/petravm/petra/vm"
)

func TestStack_ZeroStackIsEmpty(t *testing.T) {
	var stack stack
	if want, got := 0, stack.len(); want != got {
		t.Errorf("expected stack to be empty, but got %d elements", got)
	}
}

func TestStack_PushAndPop_CanUseFullCapacity(t *testing.T) {
	stack := NewStack()
	defer ReturnStack(stack)

	for i := 0; i < maxStackSize; i++ {
		stack.push(uint256.NewInt(uint64(i)))
	}
	if want, got := maxStackSize, stack.len(); want != got {
		t.Fatalf("expected stack to have %d elements, but got %d", want, got)
	}
	for i := maxStackSize - 1; i >= 0; i-- {
		if want, got := uint64(i), stack.pop().Uint64(); want != got {
			t.Fatalf("expected popped value to be %d, but got %d", want, got)
		}
	}
}

func TestStack_PushUndefined_ResultCanBeUsedToSetTheTop(t *testing.T) {
	stack := NewStack()
	defer ReturnStack(stack)

	value := new(uint256.Int).Lsh(uint256.NewInt(1), 192)
	stack.pushUndefined().Set(value)
	if want, got := value, stack.peek(); want.Cmp(got) != 0 {
		t.Errorf("expected top element to be %v, but got %v", want, got)
	}
}

func TestStack_PeekN_ObtainsNthElementFromTop(t *testing.T) {
	stack := NewStack()
	defer ReturnStack(stack)

	for i := 0; i < 10; i++ {
		stack.push(uint256.NewInt(uint64(i)))
	}

	for i := 0; i < 10; i++ {
		if want, got := uint64(9-i), stack.peekN(i).Uint64(); want != got {
			t.Errorf("expected %d-th element from top to be %d, but got %d", i, want, got)
		}
	}
}

func TestStack_SwapAndDup_OperateRelativeToTheTop(t *testing.T) {
	stack := NewStack()
	defer ReturnStack(stack)

	for i := 4; i >= 0; i-- {
		stack.push(uint256.NewInt(uint64(i)))
	}

	stack.swap(3)
	if want, got := uint64(3), stack.peek().Uint64(); want != got {
		t.Errorf("expected top element to be %d after swap, but got %d", want, got)
	}

	stack.dup(2)
	if want, got := uint64(2), stack.peek().Uint64(); want != got {
		t.Errorf("expected top element to be %d after dup, but got %d", want, got)
	}
	if want, got := 6, stack.len(); want != got {
		t.Errorf("expected stack to have %d elements, but got %d", want, got)
	}
}

func TestStack_CheckStackLimits_DetectsUnderflow(t *testing.T) {
	tests := map[vm.OpCode]int{
		vm.ADD:     2,
		vm.ADDMOD:  3,
		vm.ISZERO:  1,
		vm.CALL:    7,
		vm.SWAP16:  17,
		vm.LOG4:    6,
		vm.CREATE2: 4,
	}

	for op, required := range tests {
		t.Run(op.String(), func(t *testing.T) {
			if err := checkStackLimits(required, op); err != nil {
				t.Errorf("expected no error for a stack of %d elements, got %v", required, err)
			}
			if want, got := errStackUnderflow, checkStackLimits(required-1, op); want != got {
				t.Errorf("expected %v, got %v", want, got)
			}
		})
	}
}

func TestStack_CheckStackLimits_DetectsOverflow(t *testing.T) {
	for _, op := range []vm.OpCode{vm.PUSH1, vm.PUSH32, vm.DUP1, vm.MSIZE, vm.PC} {
		t.Run(op.String(), func(t *testing.T) {
			if err := checkStackLimits(maxStackSize-1, op); err != nil {
				t.Errorf("expected no error below the stack limit, got %v", err)
			}
			if want, got := errStackOverflow, checkStackLimits(maxStackSize, op); want != got {
				t.Errorf("expected %v, got %v", want, got)
			}
		})
	}
}

func TestStack_String_ListsElementsTopDown(t *testing.T) {
	stack := NewStack()
	defer ReturnStack(stack)

	stack.push(uint256.NewInt(1))
	stack.push(uint256.NewInt(2))

	print := stack.String()
	first := fmt.Sprintf("[%4d]", 1)
	if len(print) == 0 || print[4:10] != first {
		t.Errorf("expected print to start with the top element index %q, got %q", first, print)
	}
}

func TestStack_NewStackAndReturnStack_AreThreadSafe(t *testing.T) {
	// this test assumes to be executed using the --race flag.
	const parallelism = 10
	const iterations = 1000

	var wg sync.WaitGroup
	wg.Add(parallelism)
	for i := 0; i < parallelism; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				stack := NewStack()
				stack.push(uint256.NewInt(uint64(j)))
				ReturnStack(stack)
			}
		}()
	}
	wg.Wait()
}
