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
	"bytes"
	"testing"

	"github.com/holiman/uint256"
	"github.com/petravm/petra"
	"github.com/petravm/petra/vm"
	"go.uber.org/mock/gomock"
)

func getEmptyContext() context {
	return context{
		gas:    1 << 30,
		stack:  NewStack(),
		memory: NewMemory(),
	}
}

func TestOpPush_ReadsImmediateDataOfAnyWidth(t *testing.T) {
	data := make([]byte, 32)
	for i := range data {
		data[i] = byte(i + 1)
	}

	for n := 1; n <= 32; n++ {
		ctxt := getEmptyContext()
		ctxt.code = append([]byte{byte(vm.PUSH1) + byte(n-1)}, data...)

		opPush(&ctxt, n)

		if want, got := int32(n), ctxt.pc; want != got {
			t.Fatalf("for PUSH%d expected the PC to advance to %d, but got %d", n, want, got)
		}
		got := ctxt.stack.peek().Bytes()
		if !bytes.Equal(data[:n], got) {
			t.Fatalf("for PUSH%d expected %x on the stack, but got %x", n, data[:n], got)
		}
	}
}

func TestOpPush_MissingImmediateDataIsReadAsZeros(t *testing.T) {
	ctxt := getEmptyContext()
	ctxt.code = []byte{byte(vm.PUSH4), 0xab}

	opPush(&ctxt, 4)

	if want, got := uint64(0xab000000), ctxt.stack.peek().Uint64(); want != got {
		t.Errorf("expected truncated push to read %x, but got %x", want, got)
	}
}

func TestOpJump_MovesThePcToTheDestination(t *testing.T) {
	ctxt := getEmptyContext()
	ctxt.code = []byte{byte(vm.PUSH1), 3, byte(vm.JUMP), byte(vm.JUMPDEST)}
	ctxt.analysis = analyzeCode(ctxt.code)
	ctxt.stack.push(uint256.NewInt(3))

	if err := opJump(&ctxt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// the execution loop increments the PC after the instruction
	if want, got := int32(2), ctxt.pc; want != got {
		t.Errorf("expected the PC to be %d, but got %d", want, got)
	}
}

func TestOpJump_DestinationInsidePushDataIsRejected(t *testing.T) {
	// the JUMPDEST byte at position 4 is the immediate data of the PUSH
	ctxt := getEmptyContext()
	ctxt.code = []byte{byte(vm.PUSH1), 4, byte(vm.JUMP), byte(vm.PUSH1), byte(vm.JUMPDEST)}
	ctxt.analysis = analyzeCode(ctxt.code)
	ctxt.stack.push(uint256.NewInt(4))

	if want, got := errInvalidJump, opJump(&ctxt); want != got {
		t.Errorf("expected %v, but got %v", want, got)
	}
}

func TestOpJumpi_IgnoresTheDestinationIfTheConditionIsZero(t *testing.T) {
	ctxt := getEmptyContext()
	ctxt.code = []byte{byte(vm.JUMPI)}
	ctxt.analysis = analyzeCode(ctxt.code)
	ctxt.stack.push(uint256.NewInt(0))   // < condition
	ctxt.stack.push(uint256.NewInt(123)) // < destination on top

	if err := opJumpi(&ctxt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want, got := int32(0), ctxt.pc; want != got {
		t.Errorf("expected the PC to be unchanged, but got %d", got)
	}
}

func TestOpSstore_ChargesByStorageEffect(t *testing.T) {
	one := petra.Word{31: 1}
	two := petra.Word{31: 2}
	zero := petra.Word{}

	tests := map[string]struct {
		current petra.Word
		new     petra.Word
		cost    petra.Gas
		refund  petra.Gas
	}{
		"set":       {current: zero, new: one, cost: 20000},
		"clear":     {current: one, new: zero, cost: 5000, refund: 15000},
		"reset":     {current: one, new: two, cost: 5000},
		"unchanged": {current: one, new: one, cost: 5000},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			runContext := petra.NewMockRunContext(ctrl)

			key := petra.Key{31: 7}
			recipient := petra.Address{1}
			runContext.EXPECT().GetStorage(recipient, key).Return(test.current)
			runContext.EXPECT().SetStorage(recipient, key, test.new)

			ctxt := getEmptyContext()
			ctxt.gas = 30000
			ctxt.params.Recipient = recipient
			ctxt.context = runContext

			ctxt.stack.push(new(uint256.Int).SetBytes(test.new[:]))
			ctxt.stack.push(new(uint256.Int).SetBytes(key[:]))

			if err := opSstore(&ctxt); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if want, got := petra.Gas(30000)-test.cost, ctxt.gas; want != got {
				t.Errorf("expected %d gas left, but got %d", want, got)
			}
			if want, got := test.refund, ctxt.refund; want != got {
				t.Errorf("expected a refund of %d, but got %d", want, got)
			}
		})
	}
}

func TestOpSstore_FailsWithLessThanTheSentryGas(t *testing.T) {
	ctxt := getEmptyContext()
	ctxt.gas = SstoreSentryGas
	ctxt.stack.push(uint256.NewInt(1))
	ctxt.stack.push(uint256.NewInt(1))

	if want, got := errOutOfGas, opSstore(&ctxt); want != got {
		t.Errorf("expected %v, but got %v", want, got)
	}
}

func TestOpSstore_IsRejectedInStaticContext(t *testing.T) {
	ctxt := getEmptyContext()
	ctxt.params.Static = true

	if want, got := errStaticContextViolation, opSstore(&ctxt); want != got {
		t.Errorf("expected %v, but got %v", want, got)
	}
}

func TestOpSload_ReplacesTheKeyWithTheStoredValue(t *testing.T) {
	ctrl := gomock.NewController(t)
	runContext := petra.NewMockRunContext(ctrl)

	key := petra.Key{31: 9}
	value := petra.Word{30: 0xab}
	runContext.EXPECT().GetStorage(gomock.Any(), key).Return(value)

	ctxt := getEmptyContext()
	ctxt.context = runContext
	ctxt.stack.push(new(uint256.Int).SetBytes(key[:]))

	opSload(&ctxt)

	if want, got := new(uint256.Int).SetBytes(value[:]), ctxt.stack.peek(); want.Cmp(got) != 0 {
		t.Errorf("expected %v on the stack, but got %v", want, got)
	}
}

func TestOpSha3_HashesTheSelectedMemoryRange(t *testing.T) {
	ctxt := getEmptyContext()
	ctxt.stack.push(uint256.NewInt(0)) // < size
	ctxt.stack.push(uint256.NewInt(0)) // < offset

	if err := opSha3(&ctxt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := Keccak256(nil)
	if got := ctxt.stack.peek().Bytes32(); want != petra.Hash(got) {
		t.Errorf("expected the hash of the empty input %x, but got %x", want, got)
	}
}

func TestOpExp_ChargesPerByteOfTheExponent(t *testing.T) {
	ctxt := getEmptyContext()
	ctxt.gas = 1000
	ctxt.stack.push(uint256.NewInt(0x0100)) // < exponent, two bytes
	ctxt.stack.push(uint256.NewInt(2))      // < base

	if err := opExp(&ctxt); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want, got := petra.Gas(1000-2*50), ctxt.gas; want != got {
		t.Errorf("expected %d gas left, but got %d", want, got)
	}
}

// pushCallArguments prepares the stack for a CALL-family instruction. The
// arguments are listed in the order they are popped by the instruction.
func pushCallArguments(s *stack, args ...uint64) {
	for i := len(args) - 1; i >= 0; i-- {
		s.push(uint256.NewInt(args[i]))
	}
}

func TestGenericCall_ForwardsRequestedGasPlusStipend(t *testing.T) {
	ctrl := gomock.NewController(t)
	runContext := petra.NewMockRunContext(ctrl)

	self := petra.Address{1}
	target := petra.Address{19: 2}

	runContext.EXPECT().GetBalance(self).Return(petra.NewValue(100))
	runContext.EXPECT().Call(petra.Call, gomock.Any()).DoAndReturn(
		func(_ petra.CallKind, params petra.CallParameters) (petra.CallResult, error) {
			if want, got := self, params.Sender; want != got {
				t.Errorf("expected sender %v, but got %v", want, got)
			}
			if want, got := target, params.Recipient; want != got {
				t.Errorf("expected recipient %v, but got %v", want, got)
			}
			if want, got := petra.Gas(10+CallStipend), params.Gas; want != got {
				t.Errorf("expected %d gas to be forwarded, but got %d", want, got)
			}
			return petra.CallResult{Success: true, GasLeft: 5, GasRefund: 7}, nil
		})

	ctxt := getEmptyContext()
	ctxt.gas = 100000
	ctxt.params.Recipient = self
	ctxt.context = runContext

	// gas, address, value, input range, output range
	pushCallArguments(ctxt.stack, 10, uint64(target[19]), 1, 0, 0, 0, 0)

	if err := genericCall(&ctxt, petra.Call); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want, got := uint64(1), ctxt.stack.peek().Uint64(); want != got {
		t.Errorf("expected a success flag on the stack, but got %d", got)
	}
	if want, got := petra.Gas(100000-CallValueTransferGas-10+5), ctxt.gas; want != got {
		t.Errorf("expected %d gas left, but got %d", want, got)
	}
	if want, got := petra.Gas(7), ctxt.refund; want != got {
		t.Errorf("expected a refund of %d, but got %d", want, got)
	}
}

func TestGenericCall_InsufficientBalancePushesZeroAndReturnsTheGas(t *testing.T) {
	ctrl := gomock.NewController(t)
	runContext := petra.NewMockRunContext(ctrl)
	runContext.EXPECT().GetBalance(gomock.Any()).Return(petra.NewValue(0))

	ctxt := getEmptyContext()
	ctxt.gas = 100000
	ctxt.context = runContext
	pushCallArguments(ctxt.stack, 10, 2, 1, 0, 0, 0, 0)

	if err := genericCall(&ctxt, petra.Call); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want, got := uint64(0), ctxt.stack.peek().Uint64(); want != got {
		t.Errorf("expected a zero on the stack, but got %d", got)
	}
	// The value surcharge is consumed, the forwarded gas including the
	// stipend is handed back.
	if want, got := petra.Gas(100000-CallValueTransferGas-10+10+CallStipend), ctxt.gas; want != got {
		t.Errorf("expected %d gas left, but got %d", want, got)
	}
}

func TestGenericCall_DelegateCallKeepsCallerAndValue(t *testing.T) {
	ctrl := gomock.NewController(t)
	runContext := petra.NewMockRunContext(ctrl)

	grandparent := petra.Address{1}
	self := petra.Address{2}
	code := petra.Address{19: 3}
	value := petra.NewValue(42)

	runContext.EXPECT().Call(petra.DelegateCall, gomock.Any()).DoAndReturn(
		func(_ petra.CallKind, params petra.CallParameters) (petra.CallResult, error) {
			if want, got := grandparent, params.Sender; want != got {
				t.Errorf("expected sender %v, but got %v", want, got)
			}
			if want, got := self, params.Recipient; want != got {
				t.Errorf("expected recipient %v, but got %v", want, got)
			}
			if want, got := code, params.CodeAddress; want != got {
				t.Errorf("expected code address %v, but got %v", want, got)
			}
			if want, got := value, params.Value; want != got {
				t.Errorf("expected value %v, but got %v", want, got)
			}
			return petra.CallResult{Success: true}, nil
		})

	ctxt := getEmptyContext()
	ctxt.params.Sender = grandparent
	ctxt.params.Recipient = self
	ctxt.params.Value = value
	ctxt.context = runContext

	pushCallArguments(ctxt.stack, 100, uint64(code[19]), 0, 0, 0, 0)

	if err := genericCall(&ctxt, petra.DelegateCall); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestGenericCall_PlainCallsBecomeStaticInStaticContext(t *testing.T) {
	ctrl := gomock.NewController(t)
	runContext := petra.NewMockRunContext(ctrl)
	runContext.EXPECT().Call(petra.StaticCall, gomock.Any()).Return(petra.CallResult{Success: true}, nil)

	ctxt := getEmptyContext()
	ctxt.params.Static = true
	ctxt.context = runContext
	pushCallArguments(ctxt.stack, 100, 2, 0, 0, 0, 0, 0)

	if err := genericCall(&ctxt, petra.Call); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOpCall_ValueTransferInStaticContextIsRejected(t *testing.T) {
	ctxt := getEmptyContext()
	ctxt.params.Static = true
	pushCallArguments(ctxt.stack, 100, 2, 1, 0, 0, 0, 0)

	if want, got := errStaticContextViolation, opCall(&ctxt); want != got {
		t.Errorf("expected %v, but got %v", want, got)
	}
}

func TestGenericCreate_ForwardsAllButOne64thOfTheGas(t *testing.T) {
	ctrl := gomock.NewController(t)
	runContext := petra.NewMockRunContext(ctrl)

	created := petra.Address{0xc0}
	runContext.EXPECT().Call(petra.Create, gomock.Any()).DoAndReturn(
		func(_ petra.CallKind, params petra.CallParameters) (petra.CallResult, error) {
			if want, got := petra.Gas(63000), params.Gas; want != got {
				t.Errorf("expected %d gas to be forwarded, but got %d", want, got)
			}
			return petra.CallResult{Success: true, CreatedAddress: created, GasLeft: 100}, nil
		})

	ctxt := getEmptyContext()
	ctxt.gas = 64000
	ctxt.context = runContext

	ctxt.stack.push(uint256.NewInt(0)) // < size
	ctxt.stack.push(uint256.NewInt(0)) // < offset
	ctxt.stack.push(uint256.NewInt(0)) // < value

	if err := genericCreate(&ctxt, petra.Create); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want, got := created, petra.Address(ctxt.stack.peek().Bytes20()); want != got {
		t.Errorf("expected the created address on the stack, but got %v", got)
	}
	if want, got := petra.Gas(64000-63000+100), ctxt.gas; want != got {
		t.Errorf("expected %d gas left, but got %d", want, got)
	}
}

func TestGenericCreate_IsRejectedInStaticContext(t *testing.T) {
	ctxt := getEmptyContext()
	ctxt.params.Static = true
	if want, got := errStaticContextViolation, genericCreate(&ctxt, petra.Create2); want != got {
		t.Errorf("expected %v, but got %v", want, got)
	}
}

func TestGenericDataCopy_ReadingBeyondTheDataIsZeroPadded(t *testing.T) {
	ctxt := getEmptyContext()
	returnData := []byte{1, 2, 3}

	// memOffset, dataOffset, length
	pushCallArguments(ctxt.stack, 0, 2, 4)

	if err := genericDataCopy(&ctxt, returnData); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := ctxt.memory.getSlice(0, 4, &ctxt)
	if err != nil {
		t.Fatalf("failed to read memory: %v", err)
	}
	if want, got := []byte{3, 0, 0, 0}, data; !bytes.Equal(want, got) {
		t.Errorf("expected memory %x, but got %x", want, got)
	}
}

func TestGenericDataCopy_EmptyDataYieldsZeros(t *testing.T) {
	ctxt := getEmptyContext()

	// memOffset, dataOffset, length
	pushCallArguments(ctxt.stack, 0, 0, 32)

	if err := genericDataCopy(&ctxt, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	data, err := ctxt.memory.getSlice(0, 32, &ctxt)
	if err != nil {
		t.Fatalf("failed to read memory: %v", err)
	}
	if want, got := make([]byte, 32), data; !bytes.Equal(want, got) {
		t.Errorf("expected memory %x, but got %x", want, got)
	}
}

func TestOpLog_EmitsTopicsAndData(t *testing.T) {
	ctrl := gomock.NewController(t)
	runContext := petra.NewMockRunContext(ctrl)

	self := petra.Address{5}
	runContext.EXPECT().EmitLog(gomock.Any()).Do(func(log petra.Log) {
		if want, got := self, log.Address; want != got {
			t.Errorf("expected log address %v, but got %v", want, got)
		}
		if want, got := 2, len(log.Topics); want != got {
			t.Fatalf("expected %d topics, but got %d", want, got)
		}
		if want, got := (petra.Hash{31: 1}), log.Topics[0]; want != got {
			t.Errorf("expected first topic %v, but got %v", want, got)
		}
		if want, got := []byte{0xab}, log.Data; !bytes.Equal(want, []byte(got)) {
			t.Errorf("expected log data %x, but got %x", want, got)
		}
	})

	ctxt := getEmptyContext()
	ctxt.params.Recipient = self
	ctxt.context = runContext
	if err := ctxt.memory.set(0, []byte{0xab}, &ctxt); err != nil {
		t.Fatalf("failed to prepare memory: %v", err)
	}

	// offset, size, topic1, topic2
	pushCallArguments(ctxt.stack, 0, 1, 1, 2)

	if err := opLog(&ctxt, 2); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOpLog_IsRejectedInStaticContext(t *testing.T) {
	ctxt := getEmptyContext()
	ctxt.params.Static = true
	if want, got := errStaticContextViolation, opLog(&ctxt, 0); want != got {
		t.Errorf("expected %v, but got %v", want, got)
	}
}
