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
	"math"

	"github.com/holiman/uint256"
	"github.com/petravm/petra"
)

func opStop() status {
	return statusStopped
}

func opEndWithResult(c *context) error {
	offset := *c.stack.pop()
	size := *c.stack.pop()
	if err := checkSizeOffsetUint64Overflow(&offset, &size); err != nil {
		return err
	}
	var err error
	c.returnData, err = c.memory.getSlice(offset.Uint64(), size.Uint64(), c)
	return err
}

func opPc(c *context) {
	c.stack.pushUndefined().SetUint64(uint64(c.pc))
}

func checkJumpDest(c *context, destination *uint256.Int) error {
	if !destination.IsUint64() || !c.analysis.isJumpDest(destination.Uint64()) {
		return errInvalidJump
	}
	return nil
}

func opJump(c *context) error {
	destination := c.stack.pop()
	if err := checkJumpDest(c, destination); err != nil {
		return err
	}
	// Update the PC to the jump destination -1 since the interpreter will
	// increase the PC by 1 afterward.
	c.pc = int32(destination.Uint64()) - 1
	return nil
}

func opJumpi(c *context) error {
	destination := c.stack.pop()
	condition := c.stack.pop()
	if !condition.IsZero() {
		if err := checkJumpDest(c, destination); err != nil {
			return err
		}
		// Update the PC to the jump destination -1 since the interpreter
		// will increase the PC by 1 afterward.
		c.pc = int32(destination.Uint64()) - 1
	}
	return nil
}

func opPop(c *context) {
	c.stack.pop()
}

// opPush pushes the n bytes following the PUSH instruction onto the stack.
// If the code ends within the immediate data, the missing bytes are read as
// zeros, padded on the right.
func opPush(c *context, n int) {
	z := c.stack.pushUndefined()
	start := int(c.pc) + 1
	if end := start + n; end <= len(c.code) {
		z.SetBytes(c.code[start:end])
	} else {
		var value [32]byte
		copy(value[:n], c.code[start:])
		z.SetBytes(value[:n])
	}
	c.pc += int32(n)
}

func opPush0(c *context) {
	z := c.stack.pushUndefined()
	z[3], z[2], z[1], z[0] = 0, 0, 0, 0
}

func opDup(c *context, pos int) {
	c.stack.dup(pos - 1)
}

func opSwap(c *context, pos int) {
	c.stack.swap(pos)
}

func opMstore(c *context) error {
	var addr = c.stack.pop()
	var value = c.stack.pop()

	offset, overflow := addr.Uint64WithOverflow()
	if overflow {
		return errOverflow
	}
	data := value.Bytes32()
	return c.memory.set(offset, data[:], c)
}

func opMstore8(c *context) error {
	var addr = c.stack.pop()
	var value = c.stack.pop()

	offset, overflow := addr.Uint64WithOverflow()
	if overflow {
		return errOverflow
	}
	return c.memory.set(offset, []byte{byte(value.Uint64())}, c)
}

func opMload(c *context) error {
	var trg = c.stack.peek()
	var addr = *trg

	if !addr.IsUint64() {
		return errOverflow
	}
	offset := addr.Uint64()
	return c.memory.readWord(offset, trg, c)
}

func opMsize(c *context) {
	c.stack.pushUndefined().SetUint64(c.memory.length())
}

func opSstore(c *context) error {

	// SStore is a write instruction, it shall not be executed in static mode.
	if c.params.Static {
		return errStaticContextViolation
	}

	// At least 2300 gas must be available for an SSTORE.
	if c.gas <= SstoreSentryGas {
		return errOutOfGas
	}

	var key = petra.Key(c.stack.pop().Bytes32())
	var value = petra.Word(c.stack.pop().Bytes32())

	current := c.context.GetStorage(c.params.Recipient, key)

	cost := SstoreResetGas
	refund := petra.Gas(0)
	switch petra.GetStorageStatus(current, value) {
	case petra.StorageAdded:
		cost = SstoreSetGas
	case petra.StorageDeleted:
		refund = SstoreClearRefundGas
	}

	if err := c.useGas(cost); err != nil {
		return err
	}
	c.refund += refund
	c.context.SetStorage(c.params.Recipient, key, value)
	return nil
}

func opSload(c *context) {
	var top = c.stack.peek()
	slot := petra.Key(top.Bytes32())
	value := c.context.GetStorage(c.params.Recipient, slot)
	top.SetBytes32(value[:])
}

func opCaller(c *context) {
	c.stack.pushUndefined().SetBytes20(c.params.Sender[:])
}

func opCallvalue(c *context) {
	c.stack.pushUndefined().SetBytes32(c.params.Value[:])
}

func opCallDatasize(c *context) {
	size := len(c.params.Input)
	c.stack.pushUndefined().SetUint64(uint64(size))
}

func opCallDataload(c *context) {
	top := c.stack.peek()
	if !top.IsUint64() {
		top.Clear()
		return
	}

	offset := top.Uint64()
	top.SetBytes(getData(c.params.Input, offset, 32))
}

// genericDataCopy copies a section of the given data, padded with zeros, to
// the memory. It covers CALLDATACOPY, CODECOPY, and RETURNDATACOPY.
func genericDataCopy(c *context, data []byte) error {
	var (
		memOffset  = c.stack.pop()
		dataOffset = c.stack.pop()
		length     = c.stack.pop()
	)

	if err := checkSizeOffsetUint64Overflow(memOffset, length); err != nil {
		return err
	}

	dataOffset64, overflow := dataOffset.Uint64WithOverflow()
	if overflow {
		dataOffset64 = math.MaxUint64
	}

	// Charge for the copy costs
	words := petra.SizeInWords(length.Uint64())
	if err := c.useGas(CopyWordGas * petra.Gas(words)); err != nil {
		return err
	}

	dst, err := c.memory.getSlice(memOffset.Uint64(), length.Uint64(), c)
	if err != nil {
		return err
	}
	copy(dst, getData(data, dataOffset64, length.Uint64()))
	return nil
}

func opAnd(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.And(a, b)
}

func opOr(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Or(a, b)
}

func opNot(c *context) {
	a := c.stack.peek()
	a.Not(a)
}

func opXor(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Xor(a, b)
}

func opIszero(c *context) {
	top := c.stack.peek()
	if top.IsZero() {
		top.SetOne()
	} else {
		top.Clear()
	}
}

func opEq(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	if a.Eq(b) {
		b.SetOne()
	} else {
		b.Clear()
	}
}

func opLt(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	if a.Lt(b) {
		b.SetOne()
	} else {
		b.Clear()
	}
}

func opGt(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	if a.Gt(b) {
		b.SetOne()
	} else {
		b.Clear()
	}
}

func opSlt(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	if a.Slt(b) {
		b.SetOne()
	} else {
		b.Clear()
	}
}

func opSgt(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	if a.Sgt(b) {
		b.SetOne()
	} else {
		b.Clear()
	}
}

func opShr(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	if a.LtUint64(256) {
		b.Rsh(b, uint(a.Uint64()))
	} else {
		b.Clear()
	}
}

func opShl(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	if a.LtUint64(256) {
		b.Lsh(b, uint(a.Uint64()))
	} else {
		b.Clear()
	}
}

func opSar(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	if a.GtUint64(256) {
		if b.Sign() >= 0 {
			b.Clear()
		} else {
			b.SetAllOne()
		}
		return
	}
	b.SRsh(b, uint(a.Uint64()))
}

func opSignExtend(c *context) {
	back, num := c.stack.pop(), c.stack.peek()
	num.ExtendSign(num, back)
}

func opByte(c *context) {
	th, val := c.stack.pop(), c.stack.peek()
	val.Byte(th)
}

func opAdd(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Add(a, b)
}

func opSub(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Sub(a, b)
}

func opMul(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Mul(a, b)
}

func opMulMod(c *context) {
	a := c.stack.pop()
	b := c.stack.pop()
	n := c.stack.peek()
	n.MulMod(a, b, n)
}

func opDiv(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Div(a, b)
}

func opSDiv(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.SDiv(a, b)
}

func opMod(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.Mod(a, b)
}

func opAddMod(c *context) {
	a := c.stack.pop()
	b := c.stack.pop()
	n := c.stack.peek()
	n.AddMod(a, b, n)
}

func opSMod(c *context) {
	a := c.stack.pop()
	b := c.stack.peek()
	b.SMod(a, b)
}

func opExp(c *context) error {
	base, exponent := c.stack.pop(), c.stack.peek()
	if err := c.useGas(ExpByteGas * petra.Gas(exponent.ByteLen())); err != nil {
		return err
	}
	exponent.Exp(base, exponent)
	return nil
}

func opSha3(c *context) error {
	offset, size := c.stack.pop(), c.stack.peek()

	if checkSizeOffsetUint64Overflow(offset, size) != nil {
		return errOverflow
	}

	data, err := c.memory.getSlice(offset.Uint64(), size.Uint64(), c)
	if err != nil {
		return err
	}

	// charge dynamic gas price
	words := petra.SizeInWords(size.Uint64())
	if err := c.useGas(Sha3WordGas * petra.Gas(words)); err != nil {
		return err
	}

	hash := Keccak256(data)
	size.SetBytes32(hash[:])
	return nil
}

func opGas(c *context) {
	c.stack.pushUndefined().SetUint64(uint64(c.gas))
}

func opPrevRandao(c *context) {
	prevRandao := c.params.PrevRandao
	c.stack.pushUndefined().SetBytes32(prevRandao[:])
}

func opTimestamp(c *context) {
	time := c.params.Timestamp
	c.stack.pushUndefined().SetUint64(uint64(time))
}

func opNumber(c *context) {
	number := c.params.BlockNumber
	c.stack.pushUndefined().SetUint64(uint64(number))
}

func opCoinbase(c *context) {
	coinbase := c.params.Coinbase
	c.stack.pushUndefined().SetBytes20(coinbase[:])
}

func opGasLimit(c *context) {
	limit := c.params.GasLimit
	c.stack.pushUndefined().SetUint64(uint64(limit))
}

func opGasPrice(c *context) {
	price := c.params.GasPrice
	c.stack.pushUndefined().SetBytes32(price[:])
}

func opBalance(c *context) {
	slot := c.stack.peek()
	address := petra.Address(slot.Bytes20())
	balance := c.context.GetBalance(address)
	slot.SetBytes32(balance[:])
}

func opSelfbalance(c *context) {
	balance := c.context.GetBalance(c.params.Recipient)
	c.stack.pushUndefined().SetBytes32(balance[:])
}

func opBaseFee(c *context) {
	fee := c.params.BaseFee
	c.stack.pushUndefined().SetBytes32(fee[:])
}

func opChainId(c *context) {
	id := c.params.ChainID
	c.stack.pushUndefined().SetBytes32(id[:])
}

func opBlockhash(c *context) {
	// There is no block history source wired into the machine; the hash of
	// any block resolves to zero.
	c.stack.peek().Clear()
}

func opAddress(c *context) {
	c.stack.pushUndefined().SetBytes20(c.params.Recipient[:])
}

func opOrigin(c *context) {
	origin := c.params.Origin
	c.stack.pushUndefined().SetBytes20(origin[:])
}

func opCodeSize(c *context) {
	size := len(c.params.Code)
	c.stack.pushUndefined().SetUint64(uint64(size))
}

func opExtcodesize(c *context) {
	top := c.stack.peek()
	address := petra.Address(top.Bytes20())
	top.SetUint64(uint64(c.context.GetCodeSize(address)))
}

func opExtcodehash(c *context) {
	slot := c.stack.peek()
	address := petra.Address(slot.Bytes20())
	if !c.context.AccountExists(address) {
		slot.Clear()
	} else {
		hash := c.context.GetCodeHash(address)
		slot.SetBytes32(hash[:])
	}
}

func opExtCodeCopy(c *context) error {
	var (
		stack      = c.stack
		a          = stack.pop()
		memOffset  = stack.pop()
		codeOffset = stack.pop()
		length     = stack.pop()
	)
	if err := checkSizeOffsetUint64Overflow(memOffset, length); err != nil {
		return err
	}

	// Charge for length of copied code
	words := petra.SizeInWords(length.Uint64())
	if err := c.useGas(CopyWordGas * petra.Gas(words)); err != nil {
		return err
	}

	var uint64CodeOffset uint64
	if codeOffset.IsUint64() {
		uint64CodeOffset = codeOffset.Uint64()
	} else {
		uint64CodeOffset = math.MaxUint64
	}

	address := petra.Address(a.Bytes20())
	data, err := c.memory.getSlice(memOffset.Uint64(), length.Uint64(), c)
	if err != nil {
		return err
	}
	codeCopy := getData(c.context.GetCode(address), uint64CodeOffset, length.Uint64())
	copy(data, codeCopy)
	return nil
}

func opCreate(c *context) error {
	return genericCreate(c, petra.Create)
}

func opCreate2(c *context) error {
	return genericCreate(c, petra.Create2)
}

func genericCreate(c *context, kind petra.CallKind) error {

	// Create is a write instruction, it shall not be executed in static mode.
	if c.params.Static {
		return errStaticContextViolation
	}

	var (
		value  = c.stack.pop()
		offset = c.stack.pop()
		size   = c.stack.pop()
		salt   = petra.Hash{}
	)
	if kind == petra.Create2 {
		salt = c.stack.pop().Bytes32() // pop salt value for Create2
	}

	if checkSizeOffsetUint64Overflow(offset, size) != nil {
		return errOverflow
	}

	sizeU64 := size.Uint64()
	input, err := c.memory.getSlice(offset.Uint64(), sizeU64, c)
	if err != nil {
		return err
	}

	if kind == petra.Create2 {
		// Charge for hashing the init code to compute the target address.
		words := petra.SizeInWords(sizeU64)
		if err := c.useGas(Sha3WordGas * petra.Gas(words)); err != nil {
			return err
		}
	}

	if !value.IsZero() {
		balance := c.context.GetBalance(c.params.Recipient)
		balanceU256 := new(uint256.Int).SetBytes(balance[:])

		if value.Gt(balanceU256) {
			c.stack.pushUndefined().Clear()
			c.returnData = nil
			return nil
		}
	}

	// All but one 64th of the remaining gas is forwarded to the child.
	gas := c.gas
	gas -= gas / 64
	if err := c.useGas(gas); err != nil {
		return err
	}

	res, err := c.context.Call(kind, petra.CallParameters{
		Sender: c.params.Recipient,
		Value:  petra.Value(value.Bytes32()),
		Input:  input,
		Gas:    gas,
		Salt:   salt,
	})
	if err != nil {
		return err
	}

	// Push item on the stack based on the returned result.
	success := c.stack.pushUndefined()
	if !res.Success {
		success.Clear()
	} else {
		success.SetBytes20(res.CreatedAddress[:])
	}

	if !res.Success {
		c.returnData = res.Output
	} else {
		c.returnData = nil
	}
	c.gas += res.GasLeft
	c.refund += res.GasRefund
	return nil
}

// getData obtains a section of the given data, padding the result with zeros
// on the right if the requested range reaches beyond the data.
func getData(data []byte, start uint64, size uint64) []byte {
	length := uint64(len(data))
	if start > length {
		start = length
	}
	end := start + size
	if end > length {
		end = length
	}
	res := make([]byte, int(size))
	copy(res, data[start:end])
	return res
}

func checkSizeOffsetUint64Overflow(offset, size *uint256.Int) error {
	if size.IsZero() {
		return nil
	}
	if !offset.IsUint64() || !size.IsUint64() || offset.Uint64()+size.Uint64() < offset.Uint64() {
		return errOverflow
	}
	return nil
}

func genericCall(c *context, kind petra.CallKind) error {
	stack := c.stack
	value := uint256.NewInt(0)

	// Pop call parameters.
	providedGas, addr := stack.pop(), stack.pop()
	if kind == petra.Call || kind == petra.CallCode {
		value = stack.pop()
	}
	inOffset, inSize, retOffset, retSize := stack.pop(), stack.pop(), stack.pop(), stack.pop()

	toAddr := petra.Address(addr.Bytes20())

	if checkSizeOffsetUint64Overflow(inOffset, inSize) != nil {
		return errOverflow
	}

	if checkSizeOffsetUint64Overflow(retOffset, retSize) != nil {
		return errOverflow
	}

	// Get arguments from the memory.
	args, err := c.memory.getSlice(inOffset.Uint64(), inSize.Uint64(), c)
	if err != nil {
		return err
	}
	output, err := c.memory.getSlice(retOffset.Uint64(), retSize.Uint64(), c)
	if err != nil {
		return err
	}

	// for static and delegate calls, the following value checks will always
	// be zero.
	// Charge for transferring value to the recipient.
	if !value.IsZero() {
		if err := c.useGas(CallValueTransferGas); err != nil {
			return err
		}
	}

	// At most all but one 64th of the available gas in one scope may be
	// passed to a nested call.
	nestedCallGas := callGas(c.gas, providedGas)
	if err := c.useGas(nestedCallGas); err != nil {
		// this usage can never fail because the endowment is at most
		// 63/64 of the current gas level.
		return err
	}

	// The gas stipend is granted on top of the forwarded gas; it is not
	// charged to the caller.
	if !value.IsZero() {
		nestedCallGas += CallStipend
	}

	// Check that the caller has enough balance to transfer the requested
	// value.
	if (kind == petra.Call || kind == petra.CallCode) && !value.IsZero() {
		balance := c.context.GetBalance(c.params.Recipient)
		balanceU256 := new(uint256.Int).SetBytes32(balance[:])
		if balanceU256.Lt(value) {
			c.stack.pushUndefined().Clear()
			c.returnData = nil
			c.gas += nestedCallGas // the gas sent to the nested contract is returned
			return nil
		}
	}

	// In static mode, recursive calls are to be treated like static calls,
	// poisoning the whole subtree of executions.
	if c.params.Static && kind == petra.Call {
		kind = petra.StaticCall
	}

	// Prepare arguments, depending on call kind
	callParams := petra.CallParameters{
		Input: args,
		Gas:   nestedCallGas,
		Value: petra.Value(value.Bytes32()),
	}

	switch kind {
	case petra.Call, petra.StaticCall:
		callParams.Sender = c.params.Recipient
		callParams.Recipient = toAddr

	case petra.CallCode:
		callParams.Sender = c.params.Recipient
		callParams.Recipient = c.params.Recipient
		callParams.CodeAddress = toAddr

	case petra.DelegateCall:
		callParams.Sender = c.params.Sender
		callParams.Recipient = c.params.Recipient
		callParams.CodeAddress = toAddr
		callParams.Value = c.params.Value
	}

	// Perform the call.
	ret, err := c.context.Call(kind, callParams)
	if err != nil {
		return err
	}

	copy(output, ret.Output)

	success := stack.pushUndefined()
	if !ret.Success {
		success.Clear()
	} else {
		success.SetOne()
	}
	c.gas += ret.GasLeft
	c.refund += ret.GasRefund
	c.returnData = ret.Output
	return nil
}

func opCall(c *context) error {
	value := c.stack.peekN(2)
	// In a static call, no value must be transferred.
	if c.params.Static && !value.IsZero() {
		return errStaticContextViolation
	}
	return genericCall(c, petra.Call)
}

func opCallCode(c *context) error {
	return genericCall(c, petra.CallCode)
}

func opStaticCall(c *context) error {
	return genericCall(c, petra.StaticCall)
}

func opDelegateCall(c *context) error {
	return genericCall(c, petra.DelegateCall)
}

func opReturnDataSize(c *context) {
	c.stack.pushUndefined().SetUint64(uint64(len(c.returnData)))
}

func opLog(c *context, size int) error {

	// LogN op codes are write instructions, they shall not be executed in
	// static mode.
	if c.params.Static {
		return errStaticContextViolation
	}

	topics := make([]petra.Hash, size)
	stack := c.stack
	mStart, mSize := stack.pop(), stack.pop()

	if err := checkSizeOffsetUint64Overflow(mStart, mSize); err != nil {
		return err
	}

	for i := 0; i < size; i++ {
		addr := stack.pop()
		topics[i] = addr.Bytes32()
	}

	start := mStart.Uint64()
	logSize := mSize.Uint64()

	// charge for log size
	if err := c.useGas(LogDataGas * petra.Gas(logSize)); err != nil {
		return err
	}

	data, err := c.memory.getSlice(start, logSize, c)
	if err != nil {
		return err
	}

	// make a copy of the data to disconnect from memory
	logData := bytes.Clone(data)
	c.context.EmitLog(petra.Log{
		Address: c.params.Recipient,
		Topics:  topics,
		Data:    logData,
	})
	return nil
}
